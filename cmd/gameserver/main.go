// Command gameserver runs one map-shard process: it dials the account
// server's GameServerLink listener, registers the maps configured in
// config.GameServer.OwnedMaps, and takes custody of players handed off to
// it (spec.md §4.4, §4.6). The combat/ECS simulation a real shard would
// run on top of this link is out of scope (spec.md §1); this process
// exists to exercise and keep alive the game-server side of the link
// itself.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wyrmwatch/worldserver/internal/config"
	"github.com/wyrmwatch/worldserver/internal/gameserver"
)

const ConfigPath = "config/gameserver.yaml"

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
	slog.Info("worldserver gameserver starting")

	cfgPath := ConfigPath
	if p := os.Getenv("WORLDSERVER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadGameServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "name", cfg.Name, "accountServer", cfg.AccountServerAddr, "ownedMaps", cfg.OwnedMaps)

	client := gameserver.New(cfg)
	return client.Run(ctx)
}
