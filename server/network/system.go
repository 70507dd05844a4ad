// Package network binds endpoints, tracks accepted sessions and drains them
// once per host tick.
package network

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"netsys/server/domain"
	"netsys/server/pipeline"
	"netsys/server/transport"
)

var (
	// ErrNotAlive は停止後にエンドポイントを追加しようとした場合に返されるエラーです。
	ErrNotAlive = errors.New("network system is not alive")
	// ErrTickInProgress は Tick が並行して呼ばれた場合に返されるエラーです。
	ErrTickInProgress = errors.New("tick already in progress")
	// ErrNoHandshake はハンドシェイクハンドラが指定されていない場合に返されるエラーです。
	ErrNoHandshake = errors.New("handshake handler factory is required")
)

const (
	ReasonInternalError = "Internal server error"
	ReasonServerClosed  = "Server closed"

	defaultLegacyTimeout = 5 * time.Second
)

// Options configures a System. Zero values disable the optional stages.
type Options struct {
	// NativeTransport allows the native backend where the platform has one.
	NativeTransport bool
	// ReadTimeout closes network connections that stay silent this long.
	ReadTimeout time.Duration
	// LegacyQuery answers legacy status pings ahead of the framing layer.
	LegacyQuery bool
	// LegacyTimeout bounds the wait for the first byte when ReadTimeout is 0.
	LegacyTimeout time.Duration
	Status        pipeline.StatusProvider
	Codec         pipeline.Codec

	Handshake      domain.HandlerFactory
	LocalHandshake domain.HandlerFactory

	// DisconnectNotice builds the packet sent before a failed session is closed.
	DisconnectNotice func(reason string) domain.Packet
	// ShuffleInterval reorders the registry every N ticks when positive.
	ShuffleInterval int

	Groups *transport.Groups
}

// System owns the endpoints and the session registry.
type System struct {
	opts     Options
	groups   *transport.Groups
	registry *domain.Registry

	alive atomic.Bool

	mu        sync.Mutex
	endpoints []*Endpoint

	ticking atomic.Bool
	ticks   uint64
}

func New(opts Options) (*System, error) {
	if opts.Handshake == nil {
		return nil, ErrNoHandshake
	}
	if opts.LocalHandshake == nil {
		opts.LocalHandshake = opts.Handshake
	}
	if opts.LegacyTimeout <= 0 {
		opts.LegacyTimeout = defaultLegacyTimeout
	}
	if opts.Codec == nil {
		opts.Codec = pipeline.PacketCodec{}
	}
	if opts.Status == nil {
		opts.Status = pipeline.StaticStatus{MOTD: "A Minecraft Server"}
	}
	if opts.DisconnectNotice == nil {
		opts.DisconnectNotice = DisconnectPacket
	}
	if opts.Groups == nil {
		opts.Groups = transport.NewGroups()
	}
	s := &System{
		opts:     opts,
		groups:   opts.Groups,
		registry: domain.NewRegistry(),
	}
	s.alive.Store(true)
	return s, nil
}

// DisconnectPacket is the default notice: packet 0x00 carrying the reason as a
// JSON text component.
func DisconnectPacket(reason string) domain.Packet {
	return domain.Packet{ID: 0x00, Data: pipeline.AppendChat(nil, reason)}
}

func (s *System) Alive() bool                 { return s.alive.Load() }
func (s *System) SessionCount() int           { return s.registry.Len() }
func (s *System) Sessions() []*domain.Session { return s.registry.Sessions() }

func (s *System) Endpoints() []*Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Endpoint, len(s.endpoints))
	copy(out, s.endpoints)
	return out
}
