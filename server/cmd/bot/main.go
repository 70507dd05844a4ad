package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"

	"netsys/server/application"
	"netsys/server/domain"
	"netsys/server/pipeline"
	"netsys/utils"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "25565")
	mode := utils.GetEnvDefault("BOT_TRANSPORT", "tcp")
	botCount, err := utils.GetEnvInt("BOT_COUNT", 3)
	if err != nil {
		slog.Error("invalid BOT_COUNT", "err", err)
		os.Exit(1)
	}
	protocol, err := utils.GetEnvInt("BOT_PROTOCOL", 47)
	if err != nil {
		slog.Error("invalid BOT_PROTOCOL", "err", err)
		os.Exit(1)
	}

	target := net.JoinHostPort(addr, port)
	slog.Info("starting bots", "count", botCount, "server", target, "transport", mode)

	var wg sync.WaitGroup
	for i := range botCount {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runBot(ctx, mode, target, int32(protocol), id)
		}(i)
	}

	wg.Wait()
	slog.Info("all bots stopped")
}

func runBot(ctx context.Context, mode, target string, protocol int32, id int) {
	logger := slog.With("botID", id)

	for {
		if ctx.Err() != nil {
			return
		}
		err := botSession(ctx, mode, target, protocol, fmt.Sprintf("bot%d", id), logger)
		if err != nil && ctx.Err() == nil {
			logger.Warn("bot session ended, reconnecting", "err", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func dial(ctx context.Context, mode, target string) (net.Conn, error) {
	if mode == "ws" {
		conn, _, err := websocket.Dial(ctx, "ws://"+target+"/ws", nil)
		if err != nil {
			return nil, err
		}
		conn.SetReadLimit(-1)
		return websocket.NetConn(context.WithoutCancel(ctx), conn, websocket.MessageBinary), nil
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", target)
}

func botSession(ctx context.Context, mode, target string, protocol int32, name string, logger *slog.Logger) error {
	raw, err := dial(ctx, mode, target)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	session := domain.NewSession(domain.DirectionClientbound)
	conn := pipeline.NewConn(raw, nil, session, pipeline.Config{})
	if err := session.AttachChannel(conn); err != nil {
		conn.Close(err.Error())
		return err
	}
	session.SetHandler(&botHandler{session: session, logger: logger})
	conn.Start()
	session.MarkReady()
	defer func() {
		conn.Close("Quitting")
		<-conn.Done()
	}()
	logger.Info("connected")

	host, portStr, _ := net.SplitHostPort(target)
	port, _ := strconv.Atoi(portStr)
	session.Send(application.Handshake{
		ProtocolVersion: protocol,
		ServerAddress:   host,
		ServerPort:      uint16(port),
		Intent:          application.IntentLogin,
	}.Packet(), nil)
	session.Send(application.LoginStart(name), nil)

	// 受信処理 (20TPS相当)
	ticker := time.NewTicker(time.Second / 20)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-conn.Done():
			return fmt.Errorf("disconnected: %s", conn.CloseReason())
		case <-ticker.C:
			if err := session.ProcessReceived(ctx); err != nil {
				return err
			}
		}
	}
}

// botHandler はログインを済ませ、keep-alive に応答し続けるだけのクライアントです。
type botHandler struct {
	session  *domain.Session
	logger   *slog.Logger
	loggedIn bool
}

func (h *botHandler) Receive(ctx context.Context, pkt domain.Packet) error {
	if !h.loggedIn {
		switch pkt.ID {
		case application.PacketLoginSuccess:
			r := bytes.NewReader(pkt.Data)
			id, _ := pipeline.ReadString(r)
			h.loggedIn = true
			h.logger.InfoContext(ctx, "logged in", "uuid", id)
		case application.PacketLoginDisconnect:
			reason, _ := pipeline.ReadString(bytes.NewReader(pkt.Data))
			return fmt.Errorf("login rejected: %s", reason)
		}
		return nil
	}

	switch pkt.ID {
	case application.PacketKeepAlive:
		h.session.Send(pkt, nil)
	case application.PacketPlayDisconnect:
		reason, _ := pipeline.ReadString(bytes.NewReader(pkt.Data))
		return fmt.Errorf("kicked: %s", reason)
	}
	return nil
}
