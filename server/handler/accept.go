package handler

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	adapterwebsocket "netsys/server/adapter/websocket"

	"github.com/coder/websocket"
)

// ConnServer は受け入れた接続をセッションとして扱い、閉じるまでブロックします。
type ConnServer interface {
	ServeConn(ctx context.Context, conn net.Conn) error
}

type AcceptHandler struct {
	server ConnServer
}

func NewAcceptHandler(server ConnServer) *AcceptHandler {
	return &AcceptHandler{server: server}
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // 開発用: Origin チェックをスキップ
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to accept", "err", err)
		return
	}
	conn.SetReadLimit(-1)

	// リクエストの ctx はハンドラを抜けると無効になるので切り離す
	connCtx := context.WithoutCancel(ctx)
	nc := adapterwebsocket.NewConnFrom(connCtx, conn, r.RemoteAddr)
	slog.DebugContext(ctx, "accepted new websocket connection", "remote", r.RemoteAddr)
	if err := h.server.ServeConn(connCtx, nc); err != nil {
		slog.ErrorContext(ctx, "failed to serve connection", "remote", r.RemoteAddr, "err", err)
		_ = conn.Close(websocket.StatusInternalError, "")
	}
}
