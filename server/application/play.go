package application

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"netsys/server/domain"
	"netsys/server/pipeline"

	"github.com/google/uuid"
)

// PlayHandler はログイン後のプレイヤー接続です。パケットの中身には関与せず、keep-alive だけを管理します。
type PlayHandler struct {
	session *domain.Session
	host    *Host
	name    string
	id      uuid.UUID

	ticks     int
	pendingID int32
	pending   bool
}

func newPlayHandler(s *domain.Session, host *Host, name string, id uuid.UUID) *PlayHandler {
	return &PlayHandler{session: s, host: host, name: name, id: id}
}

func (h *PlayHandler) Receive(ctx context.Context, pkt domain.Packet) error {
	if pkt.ID != PacketKeepAlive {
		slog.DebugContext(ctx, "play packet", "sessionID", h.session.ID(), "packet", pkt)
		return nil
	}
	id, err := pipeline.ReadVarInt(bytes.NewReader(pkt.Data), pipeline.MaxVarIntBytes)
	if err != nil {
		return fmt.Errorf("keep alive: %w", err)
	}
	if h.pending && id == h.pendingID {
		h.pending = false
	}
	return nil
}

// Update は keep-alive を一定間隔で送り、前回の応答がなければ切断します。
func (h *PlayHandler) Update(ctx context.Context) {
	h.ticks++
	if h.ticks%h.host.cfg.KeepAliveTicks != 0 {
		return
	}
	if h.pending {
		slog.InfoContext(ctx, "keep alive timed out", "sessionID", h.session.ID(), "name", h.name)
		disconnect(h.session, PacketPlayDisconnect, "Timed out")
		return
	}
	h.pendingID = rand.Int32()
	h.pending = true
	h.session.Send(KeepAlive(h.pendingID), nil)
}

func (h *PlayHandler) OnDisconnect(ctx context.Context, reason string) {
	h.host.online.Add(-1)
	slog.InfoContext(ctx, "player left", "sessionID", h.session.ID(), "name", h.name, "reason", reason)
}

func KeepAlive(id int32) domain.Packet {
	return domain.Packet{ID: PacketKeepAlive, Data: pipeline.AppendVarInt(nil, id)}
}
