package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/google/uuid"
)

var (
	// ErrNoHandler はハンドラが紐付いていないセッションにパケットが届いた場合に返されるエラーです。
	ErrNoHandler = errors.New("session has no attached handler")
	// ErrChannelClosed は閉じたチャネルへ送信しようとした場合に返されるエラーです。
	ErrChannelClosed = errors.New("channel is closed")
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("write channel is full, apply backpressure")
	// ErrChannelAlreadyAttached はセッションに既にチャネルが紐付けられている場合に返されるエラーです。
	ErrChannelAlreadyAttached = errors.New("session already has an attached channel")
	// ErrHandlerPanic はハンドラが panic した場合に返されるエラーです。
	ErrHandlerPanic = errors.New("handler panicked")
)

const defaultDisconnectReason = "Disconnected"

type channelBox struct{ ch Channel }

type handlerBox struct{ h Handler }

// inbound はキューの1要素です。err が入っている場合はデコード失敗がその位置で起きたことを表します。
type inbound struct {
	pkt Packet
	err error
}

// Session は1接続の論理的な接続状態を表す構造体です。
type Session struct {
	id        string
	direction Direction
	createdAt time.Time

	channel atomic.Pointer[channelBox]
	handler atomic.Pointer[handlerBox]

	// queue はI/O goroutine が積み、tick goroutine が取り出します。
	mu    sync.Mutex
	queue *queue.Queue

	// activity
	lastRead atomic.Int64

	// lifecycle
	preparing     atomic.Bool
	readsDisabled atomic.Bool
	disconnected  atomic.Bool
}

// NewSession は preparing 状態の新しいセッションを生成します。
func NewSession(direction Direction) *Session {
	s := &Session{
		id:        uuid.NewString(),
		direction: direction,
		createdAt: time.Now(),
		queue:     queue.New(),
	}
	s.preparing.Store(true)
	s.lastRead.Store(s.createdAt.UnixNano())
	return s
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Direction() Direction { return s.direction }

func (s *Session) String() string {
	addr := "none"
	if ra := s.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return fmt.Sprintf("session{id=%s direction=%s state=%s remote=%s local=%t}",
		s.id, s.direction, s.State(), addr, s.IsLocal())
}

// AttachChannel はトランスポート側のチャネルを一度だけ紐付けます。
func (s *Session) AttachChannel(ch Channel) error {
	if !s.channel.CompareAndSwap(nil, &channelBox{ch: ch}) {
		return ErrChannelAlreadyAttached
	}
	return nil
}

// Channel は紐付いたチャネルを返します。未接続のプレースホルダーなら nil です。
func (s *Session) Channel() Channel {
	if b := s.channel.Load(); b != nil {
		return b.ch
	}
	return nil
}

func (s *Session) HasChannel() bool { return s.channel.Load() != nil }

func (s *Session) IsOpen() bool {
	ch := s.Channel()
	return ch != nil && ch.IsOpen()
}

func (s *Session) IsLocal() bool {
	ch := s.Channel()
	return ch != nil && ch.IsLocal()
}

func (s *Session) RemoteAddr() net.Addr {
	if ch := s.Channel(); ch != nil {
		return ch.RemoteAddr()
	}
	return nil
}

// SetHandler は現在のハンドラを差し替えます。コア層は呼びません。
func (s *Session) SetHandler(h Handler) {
	s.handler.Store(&handlerBox{h: h})
}

func (s *Session) Handler() Handler {
	if b := s.handler.Load(); b != nil {
		return b.h
	}
	return nil
}

// MarkReady はパイプラインの構築完了を記録し、preparing 状態を解除します。
func (s *Session) MarkReady() {
	s.preparing.Store(false)
}

func (s *Session) IsPreparing() bool { return s.preparing.Load() }

func (s *Session) State() State {
	if s.preparing.Load() {
		return StatePreparing
	}
	if s.IsOpen() {
		return StateOpen
	}
	return StateClosed
}

// Enqueue はI/O goroutine から受信パケットを積みます。
func (s *Session) Enqueue(pkt Packet) {
	s.push(inbound{pkt: pkt})
	s.TouchRead()
}

// EnqueueError はデコード失敗をキュー上の位置を保ったまま積みます。
func (s *Session) EnqueueError(err error) {
	s.push(inbound{err: err})
}

func (s *Session) push(in inbound) {
	s.mu.Lock()
	s.queue.Add(in)
	s.mu.Unlock()
}

func (s *Session) pop() (inbound, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Length() == 0 {
		return inbound{}, false
	}
	return s.queue.Remove().(inbound), true
}

// Pending はまだ処理されていないキューの長さを返します。
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Length()
}

// ProcessReceived は呼び出し時点でキューにあるパケットをFIFO順にハンドラへ渡します。
// 処理中に届いたパケットは次の呼び出しまで残ります。
func (s *Session) ProcessReceived(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()

	n := s.Pending()
	for i := 0; i < n && !s.readsDisabled.Load(); i++ {
		in, ok := s.pop()
		if !ok {
			break
		}
		if in.err != nil {
			return in.err
		}
		// ハンドシェイクで差し替えられる可能性があるので毎回読み直す
		h := s.Handler()
		if h == nil {
			return ErrNoHandler
		}
		if err := h.Receive(ctx, in.pkt); err != nil {
			return fmt.Errorf("handle %s: %w", in.pkt, err)
		}
	}

	// 受信を止めたセッションは切断待ちなので更新しない
	if s.readsDisabled.Load() {
		return nil
	}
	if t, ok := s.Handler().(Tickable); ok {
		t.Update(ctx)
	}
	return nil
}

// Send は pkt を非同期に送信します。done は nil でも構いません。
func (s *Session) Send(pkt Packet, done func(error)) {
	ch := s.Channel()
	if ch == nil {
		if done != nil {
			done(ErrChannelClosed)
		}
		return
	}
	ch.Send(pkt, done)
}

// DisableReads は以降の受信とドレインを止めます。
func (s *Session) DisableReads() {
	s.readsDisabled.Store(true)
	if ch := s.Channel(); ch != nil {
		ch.DisableRead()
	}
}

func (s *Session) ReadsDisabled() bool { return s.readsDisabled.Load() }

// Close はチャネルの切断を開始します。
func (s *Session) Close(reason string) {
	if ch := s.Channel(); ch != nil {
		ch.Close(reason)
	}
}

// CheckDisconnected はチャネルが閉じていれば切断処理を一度だけ実行します。
// 実行した場合は true を返します。
func (s *Session) CheckDisconnected(ctx context.Context) bool {
	ch := s.Channel()
	if ch == nil || ch.IsOpen() {
		return false
	}
	if !s.disconnected.CompareAndSwap(false, true) {
		return false
	}
	reason := ch.CloseReason()
	if reason == "" {
		reason = defaultDisconnectReason
	}
	if l, ok := s.Handler().(DisconnectListener); ok {
		l.OnDisconnect(ctx, reason)
	}
	return true
}

func (s *Session) IsDisconnected() bool { return s.disconnected.Load() }

func (s *Session) TouchRead() {
	s.lastRead.Store(time.Now().UnixNano())
}

func (s *Session) LastRead() time.Time {
	return time.Unix(0, s.lastRead.Load())
}
