package domain

import "fmt"

// Packet はコーデックがデコードした1メッセージです。
// コア層は中身を解釈せず、セッションのハンドラへそのまま渡します。
type Packet struct {
	ID   int32
	Data []byte
}

func (p Packet) String() string {
	return fmt.Sprintf("packet(0x%02x, %d bytes)", p.ID, len(p.Data))
}

// Direction は接続のどちら側のセッションかを表します。
type Direction uint8

const (
	// DirectionServerbound はこのプロセスが受け付けた接続（サーバー側）です。
	DirectionServerbound Direction = iota
	// DirectionClientbound は相手側（ダイヤルした側）の接続です。
	DirectionClientbound
)

func (d Direction) String() string {
	switch d {
	case DirectionServerbound:
		return "serverbound"
	case DirectionClientbound:
		return "clientbound"
	default:
		return fmt.Sprintf("unknown(%d)", d)
	}
}
