// Package account implements the AccountEndpoint of spec.md §4.3: the
// per-connection login/register/reconnect/character-management state
// machine terminating player TCP connections.
//
// Grounded on internal/login (server.go accept-loop shape, handler.go
// dispatch style) generalized from the teacher's fixed GameGuard/RSA/
// Blowfish handshake to the spec's cleartext wire.Reader/Writer framing
// and three-state machine.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/wyrmwatch/worldserver/internal/config"
	"github.com/wyrmwatch/worldserver/internal/registry"
	"github.com/wyrmwatch/worldserver/internal/token"
	"github.com/wyrmwatch/worldserver/internal/wire"
)

// Server is the account endpoint: one instance per process, owning the
// listener, storage handle, map registry, and reconnect token collector.
// Replaces the teacher's package-level singletons with explicit
// dependency wiring (spec.md §9).
type Server struct {
	cfg  config.AccountServer
	repo Repository

	registry *registry.Registry[string]
	tokens   *token.Collector
	limiter  *loginLimiter

	gameLink GameLinkSender
	chat     ChatNotifier

	mu         sync.Mutex
	listener   net.Listener
	clientsNow int
}

// NewServer wires an account endpoint. gameLink and chat may be nil in
// tests that don't exercise CharSelect's handoff.
func NewServer(cfg config.AccountServer, repo Repository, reg *registry.Registry[string], gameLink GameLinkSender, chat ChatNotifier) *Server {
	minGap, err := time.ParseDuration(cfg.LoginMinInterval)
	if err != nil || minGap <= 0 {
		minGap = time.Second
	}
	return &Server{
		cfg:      cfg,
		repo:     repo,
		registry: reg,
		tokens:   token.NewCollector(token.DefaultDeadline),
		limiter:  newLoginLimiter(minGap),
		gameLink: gameLink,
		chat:     chat,
	}
}

// Tokens exposes the reconnect token collector so gslink's
// PLAYER_RECONNECT handler can prime it (spec.md §4.4).
func (s *Server) Tokens() *token.Collector {
	return s.tokens
}

// SetGameLink wires the GameServerLink sender after construction, breaking
// the startup cycle between account.NewServer (which needs a GameLinkSender)
// and gslink.NewServer (which needs account's token collector).
func (s *Server) SetGameLink(gl GameLinkSender) {
	s.gameLink = gl
}

// Addr returns the listener's address, or nil before Run starts it.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run listens on cfg.BindAddress:cfg.Port and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("account: listening on %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return s.Serve(ctx, ln)
}

// Serve accepts connections on an already-bound listener (used directly
// by tests with an ephemeral port).
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	go s.sweepLoop(ctx)

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			slog.Error("account: accept failed", "err", err)
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

func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tokens.Sweep(now)
		}
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	client, err := newClient(conn, s)
	if err != nil {
		slog.Error("account: new client", "err", err)
		return
	}

	s.mu.Lock()
	s.clientsNow++
	over := s.cfg.MaxClients > 0 && s.clientsNow > s.cfg.MaxClients
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.clientsNow--
		s.mu.Unlock()
	}()

	if over {
		slog.Warn("account: server full, rejecting connection", "ip", client.ip)
		return
	}

	slog.Info("account: client connected", "ip", client.ip)

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
			return // malformed: no message id
		}
		msgID := wire.MsgID(payload[0]) | wire.MsgID(payload[1])<<8
		reply, ok := dispatch(ctx, s, client, msgID, wire.NewReader(payload[2:]))
		if reply != nil {
			if err := client.send(reply); err != nil {
				return
			}
		}
		if !ok {
			return
		}
	}
}
