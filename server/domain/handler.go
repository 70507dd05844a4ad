package domain

import "context"

//go:generate go tool mockgen -destination=./mocks/handler_mock.go -package=mocks . Handler,DisconnectListener,Tickable

// Handler はセッションに紐付くアプリケーション側のハンドラです。
// ハンドシェイク層は Session.SetHandler で自身をプレイ用ハンドラに差し替えます。
type Handler interface {
	// Receive はキューから取り出されたパケットを1つずつ受け取ります。
	Receive(ctx context.Context, pkt Packet) error
}

// DisconnectListener は切断の確定を一度だけ通知されたいハンドラが実装します。
type DisconnectListener interface {
	OnDisconnect(ctx context.Context, reason string)
}

// Tickable はドレイン後に毎tick呼び出されたいハンドラが実装します。
type Tickable interface {
	Update(ctx context.Context)
}

// HandlerFactory は新しいセッションに最初に紐付けるハンドラを生成します。
type HandlerFactory func(s *Session) Handler

// HandlerFunc は関数を Handler として扱うためのアダプタです。
type HandlerFunc func(ctx context.Context, pkt Packet) error

func (f HandlerFunc) Receive(ctx context.Context, pkt Packet) error { return f(ctx, pkt) }
