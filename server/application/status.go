package application

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"netsys/server/domain"
	"netsys/server/pipeline"
)

type statusResponse struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int32  `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
}

// StatusHandler はサーバーリストの問い合わせに答えます。ping に応答した後に接続を閉じます。
type StatusHandler struct {
	session   *domain.Session
	host      *Host
	requested bool
}

func (h *StatusHandler) Receive(ctx context.Context, pkt domain.Packet) error {
	switch pkt.ID {
	case PacketStatusRequest:
		if h.requested {
			return fmt.Errorf("status: duplicate request")
		}
		h.requested = true
		body, err := h.response()
		if err != nil {
			return err
		}
		h.session.Send(domain.Packet{ID: PacketStatusResponse, Data: body}, nil)
		return nil
	case PacketStatusPing:
		payload, err := readInt64(pkt.Data)
		if err != nil {
			return fmt.Errorf("status ping: %w", err)
		}
		pong := domain.Packet{ID: PacketStatusPong, Data: binary.BigEndian.AppendUint64(nil, uint64(payload))}
		h.session.Send(pong, func(error) {
			h.session.Close("Status request has been handled")
		})
		return nil
	default:
		return unexpected("status", pkt)
	}
}

func (h *StatusHandler) response() ([]byte, error) {
	var resp statusResponse
	resp.Version.Name = h.host.cfg.Version
	resp.Version.Protocol = h.host.cfg.Protocol
	resp.Players.Max = h.host.cfg.MaxPlayers
	resp.Players.Online = h.host.Online()
	resp.Description.Text = h.host.cfg.MOTD
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode status: %w", err)
	}
	return pipeline.AppendString(nil, string(b)), nil
}
