// Command chatserver runs the chat endpoint as its own process, for
// deployments that split it out from accountserver. See DESIGN.md for
// the tradeoff this standalone mode accepts: a reconnecting client's
// CONNECT(token) can only be matched if the token was deposited by a
// chat.Server running in the same process as the account endpoint;
// cmd/accountserver does this by default, so this binary is only needed
// when that combined process is split for independent scaling.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wyrmwatch/worldserver/internal/chat"
	"github.com/wyrmwatch/worldserver/internal/config"
	"github.com/wyrmwatch/worldserver/internal/storage"
)

const ConfigPath = "config/chatserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
	slog.Info("worldserver chatserver starting")

	cfgPath := ConfigPath
	if p := os.Getenv("WORLDSERVER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadChatServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "bind", cfg.BindAddress, "port", cfg.Port)

	db, err := storage.Open(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()
	slog.Info("database connected")

	if err := storage.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	srv := chat.NewServer(cfg, db)
	return srv.Run(ctx)
}
