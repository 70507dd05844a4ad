// Package application は接続層に差し込む既定のハンドラ群です。
// ハンドシェイクからログインを経てプレイ状態に移るまでの最小限の状態遷移を持ちます。
package application

import (
	"sync/atomic"

	"netsys/server/domain"
	"netsys/server/pipeline"
)

const (
	defaultLoginTimeoutTicks = 600
	defaultKeepAliveTicks    = 300
)

type Config struct {
	Protocol   int32
	Version    string
	MOTD       string
	MaxPlayers int
	// LoginTimeoutTicks はログイン完了までに許す tick 数です。
	LoginTimeoutTicks int
	// KeepAliveTicks は keep-alive の送信間隔です。応答がないまま次の送信時期が来ると切断します。
	KeepAliveTicks int
}

// Host はハンドラ間で共有されるサーバー側の状態です。
type Host struct {
	cfg    Config
	online atomic.Int64
}

func NewHost(cfg Config) *Host {
	if cfg.LoginTimeoutTicks <= 0 {
		cfg.LoginTimeoutTicks = defaultLoginTimeoutTicks
	}
	if cfg.KeepAliveTicks <= 0 {
		cfg.KeepAliveTicks = defaultKeepAliveTicks
	}
	return &Host{cfg: cfg}
}

// Handshake は network.Options.Handshake に渡すファクトリです。
func (h *Host) Handshake(s *domain.Session) domain.Handler {
	return &HandshakeHandler{session: s, host: h}
}

// MemoryHandshake は network.Options.LocalHandshake に渡すファクトリです。
func (h *Host) MemoryHandshake(s *domain.Session) domain.Handler {
	return &MemoryHandshakeHandler{session: s, host: h}
}

func (h *Host) Online() int { return int(h.online.Load()) }

func (h *Host) LegacyStatus() pipeline.LegacyStatus {
	return pipeline.LegacyStatus{
		Protocol:   int(h.cfg.Protocol),
		Version:    h.cfg.Version,
		MOTD:       h.cfg.MOTD,
		Online:     h.Online(),
		MaxPlayers: h.cfg.MaxPlayers,
	}
}
