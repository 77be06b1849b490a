// Command accountserver runs the account endpoint, its GameServerLink
// listener, and the chat endpoint together in one process (spec.md §4.3,
// §4.4, §4.5). Splitting chat out to its own deployment is supported by
// cmd/chatserver, at the cost of the in-process CONNECT-priming fast
// path described in DESIGN.md.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/wyrmwatch/worldserver/internal/account"
	"github.com/wyrmwatch/worldserver/internal/chat"
	"github.com/wyrmwatch/worldserver/internal/config"
	"github.com/wyrmwatch/worldserver/internal/gslink"
	"github.com/wyrmwatch/worldserver/internal/registry"
	"github.com/wyrmwatch/worldserver/internal/storage"
)

const ConfigPath = "config/accountserver.yaml"

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
	slog.Info("worldserver accountserver starting")

	cfgPath := ConfigPath
	if p := os.Getenv("WORLDSERVER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadAccountServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "bind", cfg.BindAddress, "port", cfg.Port, "gsPort", cfg.GSListenPort)

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

	if err := db.ClearOnlineList(ctx); err != nil {
		return fmt.Errorf("clearing online list: %w", err)
	}

	reg := registry.New[string]()

	chatCfg := config.DefaultChatServer()
	chatCfg.BindAddress = cfg.BindAddress
	chatCfg.Port = int(cfg.ChatPort)
	chatSrv := chat.NewServer(chatCfg, db)

	accountSrv := account.NewServer(cfg, db, reg, nil, chatSrv)
	gslinkSrv := gslink.NewServer(cfg, db, reg, accountSrv.Tokens(), chatSrv)
	accountSrv.SetGameLink(gslinkSrv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return accountSrv.Run(gctx) })
	g.Go(func() error { return gslinkSrv.Run(gctx) })
	g.Go(func() error { return chatSrv.Run(gctx) })

	return g.Wait()
}
