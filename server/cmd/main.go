package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"netsys/internal/config"
	"netsys/internal/logging"
	"netsys/internal/loop"
	"netsys/server/application"
	"netsys/server/domain"
	"netsys/server/network"

	"github.com/spf13/cobra"
)

const crashReportDir = "crash-reports"

var rootCmd = &cobra.Command{
	Use:          "netsysd",
	Short:        "Tick-synchronized connection server",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().String("config", "", "path to a YAML config file (default: NETSYS_CONFIG or ./netsys.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logger, logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	host := application.NewHost(application.Config{
		Protocol:   int32(cfg.Status.Protocol),
		Version:    cfg.Status.Version,
		MOTD:       cfg.Status.MOTD,
		MaxPlayers: cfg.Status.MaxPlayers,
	})
	sys, err := network.New(network.Options{
		NativeTransport: cfg.Server.NativeTransport,
		ReadTimeout:     cfg.Server.ReadTimeout,
		LegacyQuery:     cfg.Server.LegacyQuery,
		Status:          host,
		Handshake:       host.Handshake,
		LocalHandshake:  host.MemoryHandshake,
		ShuffleInterval: cfg.Tick.ShuffleInterval,
	})
	if err != nil {
		return err
	}

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sys.Shutdown(shutdownCtx)
	}

	if _, err := sys.AddEndpoint(ctx, cfg.Server.Host, cfg.Server.Port); err != nil {
		shutdown()
		return err
	}
	if cfg.Server.Local {
		addr, err := sys.AddLocalEndpoint(ctx)
		if err != nil {
			shutdown()
			return err
		}
		slog.InfoContext(ctx, "local endpoint ready", "addr", addr)
	}
	if cfg.WebSocket.Enable {
		if _, err := sys.AddWebSocketEndpoint(ctx, cfg.WebSocket.Addr, cfg.WebSocket.Path); err != nil {
			shutdown()
			return err
		}
	}

	ticker, err := loop.New(loop.Config{Ticker: sys, Rate: cfg.Tick.Rate, Logger: logger})
	if err != nil {
		shutdown()
		return err
	}
	if err := ticker.Start(ctx); err != nil {
		shutdown()
		return err
	}
	slog.InfoContext(ctx, "server started", "tick_rate", cfg.Tick.Rate)

	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutdown initiated")
	case <-ticker.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ticker.Stop(stopCtx); err != nil {
		slog.ErrorContext(ctx, "tick loop stop failed", "err", err)
	}
	shutdown()

	if err := ticker.Err(); err != nil {
		var report *domain.CrashReport
		if errors.As(err, &report) {
			if file, werr := writeCrashReport(crashReportDir, report); werr != nil {
				slog.Error("could not save crash report", "err", werr)
				fmt.Fprintln(os.Stderr, report)
			} else {
				slog.Error("this crash report has been saved", "path", file)
			}
		}
		return err
	}
	slog.InfoContext(ctx, "server shutdown complete")
	return nil
}

func writeCrashReport(dir string, report *domain.CrashReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("crash-%s-server.txt", report.Time.Format("2006-01-02_15.04.05"))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := report.WriteTo(f); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}
