package application

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"

	"netsys/server/domain"
	"netsys/server/pipeline"

	"github.com/google/uuid"
)

// LoginHandler はログイン開始を受け取り、オフラインUUIDを割り当ててプレイ状態へ移ります。
type LoginHandler struct {
	session *domain.Session
	host    *Host
	ticks   int
	done    bool
}

func newLoginHandler(s *domain.Session, host *Host) *LoginHandler {
	return &LoginHandler{session: s, host: host}
}

// OfflineUUID はユーザー名から決まるUUIDを返します。
// 名前空間なしの MD5 に version 3 と variant のビットを立てたもので、既存サーバーと同じ値になります。
func OfflineUUID(name string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	sum[6] = sum[6]&0x0f | 0x30
	sum[8] = sum[8]&0x3f | 0x80
	return uuid.UUID(sum)
}

func (h *LoginHandler) Receive(ctx context.Context, pkt domain.Packet) error {
	if pkt.ID != PacketLoginStart || h.done {
		return unexpected("login", pkt)
	}
	name, err := parseLoginStart(pkt.Data)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if limit := h.host.cfg.MaxPlayers; limit > 0 && h.host.Online() >= limit {
		disconnect(h.session, PacketLoginDisconnect, "The server is full!")
		return nil
	}

	id := OfflineUUID(name)
	body := pipeline.AppendString(nil, id.String())
	body = pipeline.AppendString(body, name)
	h.session.Send(domain.Packet{ID: PacketLoginSuccess, Data: body}, nil)
	h.done = true

	h.host.online.Add(1)
	h.session.SetHandler(newPlayHandler(h.session, h.host, name, id))
	slog.InfoContext(ctx, "player logged in", "sessionID", h.session.ID(), "name", name, "uuid", id)
	return nil
}

// Update はログインが時間内に終わらなかった接続を切断します。
func (h *LoginHandler) Update(ctx context.Context) {
	if h.done {
		return
	}
	h.ticks++
	if h.ticks == h.host.cfg.LoginTimeoutTicks {
		slog.DebugContext(ctx, "login timed out", "sessionID", h.session.ID())
		disconnect(h.session, PacketLoginDisconnect, "Took too long to log in")
	}
}
