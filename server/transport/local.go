package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

// LocalAddr addresses an in-process endpoint.
type LocalAddr string

func (a LocalAddr) Network() string { return "local" }
func (a LocalAddr) String() string  { return string(a) }

// LocalHub is the in-process backend. Listeners are registered by address and
// Dial pairs the caller with the listener over net.Pipe.
type LocalHub struct {
	mu        sync.Mutex
	listeners map[LocalAddr]*localListener
	seq       atomic.Uint64
}

func NewLocalHub() *LocalHub {
	return &LocalHub{listeners: make(map[LocalAddr]*localListener)}
}

func (h *LocalHub) Kind() Kind { return KindLocal }

// Listen binds address, or a fresh ephemeral address when it is empty.
func (h *LocalHub) Listen(_ context.Context, address string) (net.Listener, error) {
	addr := LocalAddr(address)
	if addr == "" {
		addr = h.next("local")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.listeners[addr]; ok {
		return nil, fmt.Errorf("listen %s: %w", addr, ErrLocalAddressInUse)
	}
	l := &localListener{
		hub:      h,
		addr:     addr,
		acceptCh: make(chan net.Conn),
		closeCh:  make(chan struct{}),
	}
	h.listeners[addr] = l
	return l, nil
}

// TuneConn is a no-op: there is no socket to tune.
func (h *LocalHub) TuneConn(net.Conn) error { return nil }

// Dial connects to a local listener and returns the caller's end of the pipe.
func (h *LocalHub) Dial(ctx context.Context, addr net.Addr) (net.Conn, error) {
	h.mu.Lock()
	l := h.listeners[LocalAddr(addr.String())]
	h.mu.Unlock()
	if l == nil {
		return nil, fmt.Errorf("dial %s: %w", addr, ErrNoSuchLocalEndpoint)
	}

	client := h.next("local-client")
	serverEnd, clientEnd := net.Pipe()
	srv := &localConn{Conn: serverEnd, local: l.addr, remote: client}
	cli := &localConn{Conn: clientEnd, local: client, remote: l.addr}

	select {
	case l.acceptCh <- srv:
		return cli, nil
	case <-l.closeCh:
		_ = srv.Close()
		_ = cli.Close()
		return nil, fmt.Errorf("dial %s: %w", addr, ErrLocalListenerClosed)
	case <-ctx.Done():
		_ = srv.Close()
		_ = cli.Close()
		return nil, ctx.Err()
	}
}

func (h *LocalHub) next(prefix string) LocalAddr {
	return LocalAddr(fmt.Sprintf("%s:%d", prefix, h.seq.Add(1)))
}

func (h *LocalHub) remove(addr LocalAddr) {
	h.mu.Lock()
	delete(h.listeners, addr)
	h.mu.Unlock()
}

type localListener struct {
	hub      *LocalHub
	addr     LocalAddr
	acceptCh chan net.Conn

	closeOnce sync.Once
	closeCh   chan struct{}
}

func (l *localListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.acceptCh:
		return c, nil
	case <-l.closeCh:
		return nil, net.ErrClosed
	}
}

func (l *localListener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closeCh)
		l.hub.remove(l.addr)
	})
	return nil
}

func (l *localListener) Addr() net.Addr { return l.addr }

// localConn reports the hub addresses instead of net.Pipe's placeholders.
type localConn struct {
	net.Conn
	local  LocalAddr
	remote LocalAddr
}

func (c *localConn) LocalAddr() net.Addr  { return c.local }
func (c *localConn) RemoteAddr() net.Addr { return c.remote }
