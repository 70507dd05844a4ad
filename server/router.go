package server

import (
	"net/http"

	"netsys/server/handler"
)

// Backend は websocket エンドポイントが必要とする操作です。
type Backend interface {
	handler.ConnServer
	handler.Status
}

func Route(path string, backend Backend) *http.ServeMux {
	if path == "" {
		path = "/ws"
	}
	mux := http.NewServeMux()
	mux.Handle(path, handler.NewAcceptHandler(backend))
	mux.Handle("/healthz", handler.NewHealthHandler(backend))
	return mux
}
