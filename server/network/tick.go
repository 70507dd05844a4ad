package network

import (
	"context"
	"log/slog"

	"netsys/server/domain"
)

// Tick は登録済みの各セッションの受信キューを1回ずつ処理します。
// ホストの tick goroutine から呼ばれる前提で、並行呼び出しは ErrTickInProgress を返します。
// ループバック接続の失敗は *domain.CrashReport として返され、ホストはプロセスを終了させます。
func (s *System) Tick(ctx context.Context) error {
	if !s.ticking.CompareAndSwap(false, true) {
		return ErrTickInProgress
	}
	defer s.ticking.Store(false)

	s.ticks++
	if n := s.opts.ShuffleInterval; n > 0 && s.ticks%uint64(n) == 0 {
		s.registry.Shuffle()
	}

	return s.registry.Sweep(func(session *domain.Session) (bool, error) {
		return s.tickSession(ctx, session)
	})
}

// tickSession は1セッション分の処理です。true を返したセッションは登録から外されます。
func (s *System) tickSession(ctx context.Context, session *domain.Session) (bool, error) {
	ch := session.Channel()
	if ch == nil {
		return false, nil
	}

	if ch.IsOpen() {
		if err := session.ProcessReceived(ctx); err != nil {
			if ch.IsLocal() {
				return false, tickingCrash(session, err)
			}
			s.disconnectOnError(ctx, session, err)
		}
		return false, nil
	}

	// pipeline 構築中の接続はまだ閉じたとみなさない
	if session.IsPreparing() {
		return false, nil
	}
	session.CheckDisconnected(ctx)
	return true, nil
}

func (s *System) disconnectOnError(ctx context.Context, session *domain.Session, err error) {
	slog.WarnContext(ctx, "failed to handle packet", "remote", session.RemoteAddr(), "err", err)

	notice := s.opts.DisconnectNotice(ReasonInternalError)
	session.Send(notice, func(error) {
		session.Close(ReasonInternalError)
	})
	session.DisableReads()
}

func tickingCrash(session *domain.Session, err error) *domain.CrashReport {
	report := domain.NewCrashReport("Ticking memory connection", err)
	report.Category("Ticking connection").AddDetail("Connection", func() (string, error) {
		return session.String(), nil
	})
	return report
}
