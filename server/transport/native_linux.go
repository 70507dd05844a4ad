//go:build linux

package transport

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// nativeGroup sets socket options directly on the file descriptors.
type nativeGroup struct {
	lc net.ListenConfig
}

func nativeAvailable() bool { return true }

func newNativeGroup() (Group, error) {
	return &nativeGroup{
		lc: net.ListenConfig{Control: controlListener},
	}, nil
}

func controlListener(_, _ string, c syscall.RawConn) error {
	return setsockopt(c, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

func (g *nativeGroup) Kind() Kind { return KindNative }

func (g *nativeGroup) Listen(ctx context.Context, address string) (net.Listener, error) {
	return g.lc.Listen(ctx, "tcp", address)
}

func (g *nativeGroup) TuneConn(conn net.Conn) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return ErrNotTCP
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	return setsockopt(rc, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
}

func setsockopt(c syscall.RawConn, level, opt, value int) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), level, opt, value)
	})
	if err != nil {
		return err
	}
	return opErr
}
