package network

import (
	"context"
	"log/slog"
)

// TerminateEndpoints は新しいエンドポイントの追加を止め、全てのエンドポイントを閉じます。
// 待機中の中断はログに残すだけで、残りのエンドポイントの処理は続けます。
func (s *System) TerminateEndpoints(ctx context.Context) {
	s.mu.Lock()
	s.alive.Store(false)
	endpoints := s.endpoints
	s.endpoints = nil
	s.mu.Unlock()

	for _, ep := range endpoints {
		if err := ep.shutdown(ctx); err != nil {
			slog.ErrorContext(ctx, "interrupted whilst closing endpoint", "endpoint", ep.Addr(), "err", err)
		}
	}
}

// Shutdown はエンドポイントを閉じた後、全てのセッションのチャネルを閉じて完了を待ちます。
// 2回目以降の呼び出しでは何も起きません。
func (s *System) Shutdown(ctx context.Context) {
	s.TerminateEndpoints(ctx)

	for _, session := range s.registry.Sessions() {
		ch := session.Channel()
		if ch == nil {
			continue
		}
		ch.Close(ReasonServerClosed)
		select {
		case <-ch.Done():
		case <-ctx.Done():
			slog.ErrorContext(ctx, "interrupted whilst closing channel", "sessionID", session.ID(), "err", ctx.Err())
		}
	}
}
