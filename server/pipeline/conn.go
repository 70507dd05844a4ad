package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"netsys/server/domain"

	"golang.org/x/sync/errgroup"
)

const (
	ReasonTimedOut    = "Timed out"
	ReasonEndOfStream = "End of stream"

	defaultWriteQueue   = 1024
	defaultWriteTimeout = 10 * time.Second
)

// Inbox は受信したパケットの積み先です。*domain.Session が満たします。
type Inbox interface {
	Enqueue(pkt domain.Packet)
	EnqueueError(err error)
}

type Config struct {
	Codec Codec
	// ReadTimeout はフレーム間の最大待ち時間です。0 なら無効です。
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	WriteQueue   int
	Local        bool
}

type outbound struct {
	pkt  domain.Packet
	done func(error)
}

// Conn は net.Conn をフレーム単位で読み書きする domain.Channel の実装です。
type Conn struct {
	ctx    context.Context
	cancel context.CancelFunc

	raw   net.Conn
	br    *bufio.Reader
	inbox Inbox
	cfg   Config

	writeCh chan outbound

	// sendMu は closing と writeCh への投入を直列化します。
	sendMu  sync.RWMutex
	closing bool
	reason  string

	readEnabled atomic.Bool
	open        atomic.Bool
	started     atomic.Bool
	closeOnce   sync.Once
	done        chan struct{}
}

// NewConn は raw を包みます。br が nil でなければ先読み済みのバイトを引き継ぎます。
func NewConn(raw net.Conn, br *bufio.Reader, inbox Inbox, cfg Config) *Conn {
	if br == nil {
		br = bufio.NewReader(raw)
	}
	if cfg.Codec == nil {
		cfg.Codec = PacketCodec{}
	}
	if cfg.WriteQueue <= 0 {
		cfg.WriteQueue = defaultWriteQueue
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		ctx:     ctx,
		cancel:  cancel,
		raw:     raw,
		br:      br,
		inbox:   inbox,
		cfg:     cfg,
		writeCh: make(chan outbound, cfg.WriteQueue),
		done:    make(chan struct{}),
	}
	c.readEnabled.Store(true)
	c.open.Store(true)
	return c
}

// Start は読み書きの goroutine を起動します。2回目以降は何もしません。
func (c *Conn) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	var eg errgroup.Group
	eg.Go(func() error {
		c.readLoop()
		return nil
	})
	eg.Go(func() error {
		c.writeLoop()
		return nil
	})
	go func() {
		_ = eg.Wait()
		c.failPending()
		close(c.done)
	}()
}

func (c *Conn) IsOpen() bool         { return c.open.Load() }
func (c *Conn) IsLocal() bool        { return c.cfg.Local }
func (c *Conn) RemoteAddr() net.Addr { return c.raw.RemoteAddr() }
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) CloseReason() string {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	return c.reason
}

// Send は done をロックの外で呼ぶので、done から Close しても構いません。
func (c *Conn) Send(pkt domain.Packet, done func(error)) {
	if err := c.enqueue(outbound{pkt: pkt, done: done}); err != nil {
		finish(done, err)
	}
}

func (c *Conn) enqueue(out outbound) error {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.closing {
		return domain.ErrChannelClosed
	}
	select {
	case c.writeCh <- out:
		return nil
	default:
		return domain.ErrBackpressure
	}
}

func (c *Conn) DisableRead() {
	c.readEnabled.Store(false)
}

// Close は切断を開始してすぐに戻ります。最初の reason だけが残ります。
func (c *Conn) Close(reason string) {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.closing = true
		c.reason = reason
		c.sendMu.Unlock()

		c.open.Store(false)
		c.cancel()
		_ = c.raw.Close()
		slog.Debug("channel closed", "remote", c.raw.RemoteAddr(), "reason", reason)

		// Start 前に閉じた場合は誰も done を閉じないのでここで閉じる
		if c.started.CompareAndSwap(false, true) {
			c.failPending()
			close(c.done)
		}
	})
}

func (c *Conn) readLoop() {
	for c.readEnabled.Load() {
		if c.cfg.ReadTimeout > 0 {
			_ = c.raw.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}
		frame, err := ReadFrame(c.br)
		if err != nil {
			c.handleReadError(err)
			return
		}
		if !c.readEnabled.Load() {
			return
		}
		pkt, err := c.cfg.Codec.Decode(frame)
		if err != nil {
			// デコード失敗はキュー上の位置でハンドラ側に伝える
			c.inbox.EnqueueError(fmt.Errorf("decode: %w", err))
			continue
		}
		c.inbox.Enqueue(pkt)
	}
}

func (c *Conn) handleReadError(err error) {
	switch {
	case !c.IsOpen():
	case isTimeout(err):
		c.Close(ReasonTimedOut)
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		c.Close(ReasonEndOfStream)
	case errors.Is(err, ErrFrameTooLarge):
		// フレーム境界を見失ったので以降は読めない
		c.inbox.EnqueueError(fmt.Errorf("decode: %w", err))
	default:
		c.Close("Internal Exception: " + err.Error())
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case out := <-c.writeCh:
			err := c.write(out.pkt)
			finish(out.done, err)
			if err != nil {
				c.Close("Internal Exception: " + err.Error())
			}
		}
	}
}

func (c *Conn) write(pkt domain.Packet) error {
	body, err := c.cfg.Codec.Encode(pkt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", pkt, err)
	}
	frame, err := AppendFrame(nil, body)
	if err != nil {
		return err
	}
	_ = c.raw.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if _, err := c.raw.Write(frame); err != nil {
		return fmt.Errorf("write %s: %w", pkt, err)
	}
	return nil
}

// failPending は書き込まれなかった送信の done を全て呼びます。
func (c *Conn) failPending() {
	for {
		select {
		case out := <-c.writeCh:
			finish(out.done, domain.ErrChannelClosed)
		default:
			return
		}
	}
}

func finish(done func(error), err error) {
	if done != nil {
		done(err)
	}
}
