package transport

import (
	"context"
	"net"
)

type genericGroup struct {
	lc net.ListenConfig
}

func newGenericGroup() Group {
	return &genericGroup{}
}

func (g *genericGroup) Kind() Kind { return KindGeneric }

func (g *genericGroup) Listen(ctx context.Context, address string) (net.Listener, error) {
	return g.lc.Listen(ctx, "tcp", address)
}

func (g *genericGroup) TuneConn(conn net.Conn) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return ErrNotTCP
	}
	return tc.SetNoDelay(true)
}
