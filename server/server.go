package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

type Server struct {
	HTTP *http.Server
	ln   net.Listener
}

func NewServer(ln net.Listener, handler http.Handler) *Server {
	return &Server{
		HTTP: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ln: ln,
	}
}

// Serve は Close か Shutdown まで接続を受け付けます。正常終了では nil を返します。
func (s *Server) Serve() error {
	if err := s.HTTP.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error { return s.HTTP.Shutdown(ctx) }
func (s *Server) Close() error                       { return s.HTTP.Close() }
func (s *Server) Addr() net.Addr                     { return s.ln.Addr() }
