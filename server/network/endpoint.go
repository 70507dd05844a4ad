package network

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"netsys/server"
	"netsys/server/domain"
	"netsys/server/pipeline"
	"netsys/server/transport"
)

// Endpoint は bind 済みのリスナーと、それを作ったバックエンドの組です。
type Endpoint struct {
	addr  net.Addr
	kind  transport.Kind
	close func() error
	done  chan struct{}
}

func newEndpoint(addr net.Addr, kind transport.Kind, closeFn func() error) *Endpoint {
	return &Endpoint{addr: addr, kind: kind, close: closeFn, done: make(chan struct{})}
}

func (e *Endpoint) Addr() net.Addr        { return e.addr }
func (e *Endpoint) Kind() transport.Kind  { return e.kind }
func (e *Endpoint) Done() <-chan struct{} { return e.done }

// shutdown はリスナーを閉じ、受け付けループが終わるまで待ちます。
func (e *Endpoint) shutdown(ctx context.Context) error {
	if err := e.close(); err != nil && !errors.Is(err, net.ErrClosed) {
		slog.DebugContext(ctx, "endpoint close returned error", "endpoint", e.addr, "err", err)
	}
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// channelSetup は1接続分のパイプライン構成です。
type channelSetup struct {
	group       transport.Group
	readTimeout time.Duration
	legacy      bool
	local       bool
	handshake   domain.HandlerFactory
}

// AddEndpoint は host:port に外部接続用のエンドポイントを bind します。
// bind は同期的に行われ、失敗はそのまま返されます。
func (s *System) AddEndpoint(ctx context.Context, host string, port int) (*Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive.Load() {
		return nil, ErrNotAlive
	}

	group, err := s.groups.Select(s.opts.NativeTransport)
	if err != nil {
		return nil, fmt.Errorf("select transport: %w", err)
	}
	if group.Kind() == transport.KindNative {
		slog.InfoContext(ctx, "using native channel type")
	} else {
		slog.InfoContext(ctx, "using default channel type")
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := group.Listen(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("bind endpoint %s: %w", address, err)
	}
	ep := newEndpoint(ln.Addr(), group.Kind(), ln.Close)
	s.endpoints = append(s.endpoints, ep)

	go s.acceptLoop(ep, ln, channelSetup{
		group:       group,
		readTimeout: s.opts.ReadTimeout,
		legacy:      s.opts.LegacyQuery,
		handshake:   s.opts.Handshake,
	})
	slog.InfoContext(ctx, "endpoint bound", "addr", ep.Addr(), "kind", ep.Kind())
	return ep, nil
}

// AddLocalEndpoint はプロセス内ループバック用のエンドポイントを bind し、そのアドレスを返します。
func (s *System) AddLocalEndpoint(ctx context.Context) (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive.Load() {
		return nil, ErrNotAlive
	}

	ln, err := s.groups.Local().Listen(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("bind local endpoint: %w", err)
	}
	ep := newEndpoint(ln.Addr(), transport.KindLocal, ln.Close)
	s.endpoints = append(s.endpoints, ep)

	go s.acceptLoop(ep, ln, channelSetup{
		local:     true,
		handshake: s.opts.LocalHandshake,
	})
	slog.InfoContext(ctx, "local endpoint bound", "addr", ep.Addr())
	return ep.Addr(), nil
}

// AddWebSocketEndpoint は websocket で接続を受け付ける HTTP サーバーを addr で起動します。
func (s *System) AddWebSocketEndpoint(ctx context.Context, addr, path string) (*Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive.Load() {
		return nil, ErrNotAlive
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind websocket endpoint %s: %w", addr, err)
	}
	srv := server.NewServer(ln, server.Route(path, s))
	ep := newEndpoint(srv.Addr(), transport.KindWebSocket, srv.Close)
	s.endpoints = append(s.endpoints, ep)

	go func() {
		defer close(ep.done)
		if err := srv.Serve(); err != nil {
			slog.Error("websocket endpoint stopped", "addr", ep.Addr(), "err", err)
		}
	}()
	slog.InfoContext(ctx, "websocket endpoint bound", "addr", ep.Addr(), "path", path)
	return ep, nil
}

// ServeConn は websocket 経由の接続をセッションとして登録し、接続が閉じるまでブロックします。
func (s *System) ServeConn(ctx context.Context, raw net.Conn) error {
	if !s.alive.Load() {
		_ = raw.Close()
		return ErrNotAlive
	}
	conn := s.initChannel(raw, channelSetup{
		readTimeout: s.opts.ReadTimeout,
		handshake:   s.opts.Handshake,
	})
	if conn == nil {
		return nil
	}
	select {
	case <-conn.Done():
	case <-ctx.Done():
		conn.Close(ReasonServerClosed)
	}
	return nil
}

// DialLocal はローカルエンドポイントに接続し、相手側のセッションを返します。
// 返されたセッションは Tick の対象ではないので、呼び出し側が ProcessReceived で処理します。
func (s *System) DialLocal(ctx context.Context, addr net.Addr, h domain.Handler) (*domain.Session, error) {
	raw, err := s.groups.Local().Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	session := domain.NewSession(domain.DirectionClientbound)
	conn := pipeline.NewConn(raw, nil, session, pipeline.Config{Codec: s.opts.Codec, Local: true})
	if err := session.AttachChannel(conn); err != nil {
		conn.Close(err.Error())
		return nil, err
	}
	session.SetHandler(h)
	conn.Start()
	session.MarkReady()
	return session, nil
}

func (s *System) acceptLoop(ep *Endpoint, ln net.Listener, setup channelSetup) {
	defer close(ep.done)
	var delay time.Duration
	for {
		raw, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// 一時的なエラーは net/http と同じく指数バックオフで再試行する
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else if delay *= 2; delay > time.Second {
				delay = time.Second
			}
			slog.Warn("accept failed", "endpoint", ep.Addr(), "err", err, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0
		go s.initChannel(raw, setup)
	}
}

// initChannel は受け付けた接続にパイプラインを組み、セッションを登録します。
// レガシー問い合わせに応答した場合など、セッションを作らなかったときは nil を返します。
func (s *System) initChannel(raw net.Conn, setup channelSetup) *pipeline.Conn {
	if setup.group != nil {
		if err := setup.group.TuneConn(raw); err != nil {
			slog.Debug("failed to set TCP_NODELAY", "remote", raw.RemoteAddr(), "err", err)
		}
	}

	br := bufio.NewReader(raw)
	if setup.legacy {
		// セッションがない間は Shutdown から見えないので、無期限には待たない
		timeout := setup.readTimeout
		if timeout <= 0 {
			timeout = s.opts.LegacyTimeout
		}
		_ = raw.SetReadDeadline(time.Now().Add(timeout))
		handled, err := pipeline.SniffLegacy(br, raw, s.opts.Status)
		if err != nil && !errors.Is(err, io.EOF) {
			slog.Debug("legacy query sniff failed", "remote", raw.RemoteAddr(), "err", err)
		}
		if handled || err != nil {
			_ = raw.Close()
			return nil
		}
		if setup.readTimeout <= 0 {
			_ = raw.SetReadDeadline(time.Time{})
		}
	}

	session := domain.NewSession(domain.DirectionServerbound)
	s.registry.Add(session)
	defer session.MarkReady()

	conn := pipeline.NewConn(raw, br, session, pipeline.Config{
		Codec:       s.opts.Codec,
		ReadTimeout: setup.readTimeout,
		Local:       setup.local,
	})
	if err := session.AttachChannel(conn); err != nil {
		conn.Close(err.Error())
		return conn
	}
	session.SetHandler(setup.handshake(session))
	conn.Start()

	// 停止処理のスナップショットより後に登録された場合は自分で閉じる
	if !s.alive.Load() {
		conn.Close(ReasonServerClosed)
	}
	slog.Debug("session registered", "sessionID", session.ID(), "remote", raw.RemoteAddr(), "local", setup.local)
	return conn
}
