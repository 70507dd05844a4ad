package application

import (
	"context"
	"fmt"
	"log/slog"

	"netsys/server/domain"
)

// HandshakeHandler はネットワーク接続の最初のパケットを受け取り、要求された状態のハンドラに差し替えます。
type HandshakeHandler struct {
	session *domain.Session
	host    *Host
}

func (h *HandshakeHandler) Receive(ctx context.Context, pkt domain.Packet) error {
	if pkt.ID != PacketHandshake {
		return unexpected("handshake", pkt)
	}
	hs, err := ParseHandshake(pkt.Data)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	slog.DebugContext(ctx, "handshake received",
		"sessionID", h.session.ID(),
		"protocol", hs.ProtocolVersion,
		"intent", hs.Intent,
	)

	switch hs.Intent {
	case IntentStatus:
		h.session.SetHandler(&StatusHandler{session: h.session, host: h.host})
	case IntentLogin:
		h.session.SetHandler(newLoginHandler(h.session, h.host))
		if hs.ProtocolVersion != h.host.cfg.Protocol {
			reason := "Outdated server! I'm still on " + h.host.cfg.Version
			if hs.ProtocolVersion < h.host.cfg.Protocol {
				reason = "Outdated client! Please use " + h.host.cfg.Version
			}
			disconnect(h.session, PacketLoginDisconnect, reason)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownIntent, hs.Intent)
	}
	return nil
}

// MemoryHandshakeHandler はプロセス内接続用で、バージョン確認をせずにログインへ進みます。
type MemoryHandshakeHandler struct {
	session *domain.Session
	host    *Host
}

func (h *MemoryHandshakeHandler) Receive(ctx context.Context, pkt domain.Packet) error {
	if pkt.ID != PacketHandshake {
		return unexpected("memory handshake", pkt)
	}
	hs, err := ParseHandshake(pkt.Data)
	if err != nil {
		return fmt.Errorf("memory handshake: %w", err)
	}
	if hs.Intent != IntentLogin {
		return fmt.Errorf("memory handshake: %w: %d", ErrUnknownIntent, hs.Intent)
	}
	h.session.SetHandler(newLoginHandler(h.session, h.host))
	return nil
}
