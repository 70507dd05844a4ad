package domain

import "net"

//go:generate go tool mockgen -destination=./mocks/channel_mock.go -package=mocks . Channel

// Channel はセッションが依存するトランスポート側の接続です。
// 読み書きは I/O goroutine が行い、コア層は状態の確認と非同期の送信・切断だけを行います。
type Channel interface {
	IsOpen() bool
	// IsLocal はプロセス内ループバック接続なら true を返します。
	IsLocal() bool
	RemoteAddr() net.Addr

	// Send は pkt を送信キューに積みます。done は書き込み完了後（失敗時も）に必ず一度呼ばれます。
	Send(pkt Packet, done func(error))
	// DisableRead は以降の受信を止めます。
	DisableRead()

	// Close は切断を開始してすぐに戻ります。完了は Done で待ちます。
	Close(reason string)
	Done() <-chan struct{}
	CloseReason() string
}
