// Package gslink implements the GameServerLink of spec.md §4.4: the
// persistent server-to-server connection between the account process and
// each game-server shard.
//
// Grounded on internal/login (server.go accept-loop shape) generalized
// from a player-facing listener to a peer listener, and on
// internal/gameserver.GameServerTable for the registered-peer bookkeeping
// now expressed through internal/registry.
package gslink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/wyrmwatch/worldserver/internal/config"
	"github.com/wyrmwatch/worldserver/internal/model"
	"github.com/wyrmwatch/worldserver/internal/registry"
	"github.com/wyrmwatch/worldserver/internal/token"
	"github.com/wyrmwatch/worldserver/internal/wire"
)

// Server is the account-side half of every GameServerLink, holding the
// shared map registry and one active *link per connected game server.
type Server struct {
	cfg  config.AccountServer
	repo Repository

	registry *registry.Registry[string]
	tokens   *token.Collector
	chat     ChatForwarder

	mu    sync.Mutex
	links map[string]*link // by registered name, for fan-out and redirect
}

// NewServer wires a GameServerLink listener. tokens is the same Collector
// an account.Server exposes via Tokens(), so PLAYER_RECONNECT can prime
// the side a reconnecting client will match against.
func NewServer(cfg config.AccountServer, repo Repository, reg *registry.Registry[string], tokens *token.Collector, chat ChatForwarder) *Server {
	return &Server{
		cfg:      cfg,
		repo:     repo,
		registry: reg,
		tokens:   tokens,
		chat:     chat,
		links:    make(map[string]*link),
	}
}

// Run listens on cfg.GSListenHost:cfg.GSListenPort until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.GSListenHost, s.cfg.GSListenPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gslink: listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on an already-bound listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			slog.Error("gslink: accept failed", "err", err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
	wg.Wait()
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	l, err := newLink(conn, s)
	if err != nil {
		slog.Error("gslink: new link", "err", err)
		return
	}
	defer s.onDisconnect(l)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		payload, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}
		if len(payload) < 2 {
			return
		}
		msgID := wire.MsgID(payload[0]) | wire.MsgID(payload[1])<<8
		reply, ok := dispatch(ctx, s, l, msgID, wire.NewReader(payload[2:]))
		if reply != nil {
			if err := l.send(reply); err != nil {
				return
			}
		}
		if !ok {
			return
		}
	}
}

// onDisconnect releases every map owned by l, drops any players staged for
// handoff to it with a time-out reply, and removes it from the fan-out set
// (spec.md §4.4: "On game-server disconnect...").
func (s *Server) onDisconnect(l *link) {
	handle := l.handle()
	if handle == "" {
		return
	}
	freed := s.registry.Release(handle)
	slog.Info("gslink: game server disconnected", "name", handle, "freedMaps", freed)

	for _, tok := range l.drainTokens() {
		if client, ok := s.tokens.DeletePendingClient(tok); ok {
			client.OnTimeout()
		}
	}

	s.mu.Lock()
	delete(s.links, handle)
	s.mu.Unlock()
}

func (s *Server) addLink(l *link) {
	s.mu.Lock()
	s.links[l.handle()] = l
	s.mu.Unlock()
}

// fanoutVarWorld sends a world variable to every connected game server
// except the one named by except, in Go map iteration order, which is not
// fixed from one call to the next (spec.md §5: "no global barrier").
func (s *Server) fanoutVarWorld(payload []byte, except string) {
	s.mu.Lock()
	targets := make([]*link, 0, len(s.links))
	for name, l := range s.links {
		if name == except {
			continue
		}
		targets = append(targets, l)
	}
	s.mu.Unlock()

	for _, l := range targets {
		if err := l.send(payload); err != nil {
			slog.Error("gslink: world-var fanout failed", "target", l.handle(), "err", err)
		}
	}
}

// PlayerEnter implements account.GameLinkSender: pushes a character
// handoff to the game server currently owning its map.
func (s *Server) PlayerEnter(ctx context.Context, serverHandle, tok string, level model.AccessLevel, c *model.Character) error {
	s.mu.Lock()
	l, ok := s.links[serverHandle]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("gslink: no active link for server %q", serverHandle)
	}
	l.trackToken(tok)
	return l.send(playerEnterPayload(tok, level, c))
}
