// Package chat implements the ChatEndpoint of spec.md §4.5: a player's
// post-handoff connection carrying channels, guild chat, private
// messages, and party invitations.
//
// Grounded on internal/login (server.go accept-loop shape), generalized
// to the chat endpoint's CONNECT-then-authenticated lifecycle, and on
// internal/account's narrow-interface wiring style for its two outward
// dependencies (account.ChatNotifier, gslink.ChatForwarder).
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/wyrmwatch/worldserver/internal/chat/proto"
	"github.com/wyrmwatch/worldserver/internal/config"
	"github.com/wyrmwatch/worldserver/internal/model"
	"github.com/wyrmwatch/worldserver/internal/token"
	"github.com/wyrmwatch/worldserver/internal/wire"
)

// Server is the ChatEndpoint process: one token collector (matched from
// the account side via PendingConnect), the live channel table, party
// invite FIFO, and the name->client directory needed for private
// messages and guild/party broadcasts.
type Server struct {
	cfg  config.ChatServer
	repo Repository

	tokens   *token.Collector
	channels *channelTable
	invites  *partyInvites
	groups   *partyGroups

	mu            sync.Mutex
	clients       map[string]*Client         // name -> client, once authenticated
	guildMembers  map[int64]map[string]*Client // guildId -> name -> client, online guild members
}

// NewServer wires a ChatEndpoint listener.
func NewServer(cfg config.ChatServer, repo Repository) *Server {
	deadline, err := time.ParseDuration(cfg.PartyInviteDeadline)
	if err != nil || deadline <= 0 {
		deadline = DefaultPartyInviteDeadline
	}
	return &Server{
		cfg:          cfg,
		repo:         repo,
		tokens:       token.NewCollector(0),
		channels:     newChannelTable(),
		invites:      newPartyInvites(deadline),
		groups:       newPartyGroups(),
		clients:      make(map[string]*Client),
		guildMembers: make(map[int64]map[string]*Client),
	}
}

// Run listens on cfg.BindAddress:cfg.Port until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("chat: listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on an already-bound listener, sweeping
// expired tokens and party invites on a fixed tick alongside it.
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
			slog.Error("chat: accept failed", "err", err)
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
			s.invites.sweep(now)
		}
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	c, err := newClient(conn, s)
	if err != nil {
		slog.Error("chat: new client", "err", err)
		return
	}
	defer s.onDisconnect(c)

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
		reply, ok := dispatch(ctx, s, c, msgID, wire.NewReader(payload[2:]))
		if reply != nil {
			if err := c.send(reply); err != nil {
				return
			}
		}
		if !ok {
			return
		}
	}
}

func (s *Server) addClient(c *Client) {
	name, _ := c.identity()
	s.mu.Lock()
	s.clients[name] = c
	if c.guildID != 0 {
		set, ok := s.guildMembers[c.guildID]
		if !ok {
			set = make(map[string]*Client)
			s.guildMembers[c.guildID] = set
		}
		set[name] = c
	}
	s.mu.Unlock()
}

func (s *Server) lookupClient(name string) (*Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[name]
	return c, ok
}

// onDisconnect implements spec.md §4.5's disconnect cascade: remove from
// every channel (broadcasting LEAVING_PLAYER on each), remove from the
// current party, and drop the client from the online guild directory.
// Guild members learn of the disconnect only through the LEAVING_PLAYER
// event on the guild's sticky channel, if the client had joined it; no
// separate guild offline message is sent.
func (s *Server) onDisconnect(c *Client) {
	name, _ := c.identity()
	if name == "" {
		return
	}

	for _, chID := range c.joinedChannels() {
		ch, ok := s.channels.get(chID)
		if !ok {
			continue
		}
		s.channels.leave(ch, name)
		s.broadcastChannel(ch, proto.WriteChannelEvent(ch.id, proto.ChannelEventLeavingPlayer, name))
	}

	s.groups.quit(name)

	c.mu.Lock()
	guildID := c.guildID
	c.mu.Unlock()

	s.mu.Lock()
	delete(s.clients, name)
	if guildID != 0 {
		if set, ok := s.guildMembers[guildID]; ok {
			delete(set, name)
		}
	}
	s.mu.Unlock()

	slog.Info("chat: client disconnected", "name", name)
}

func (s *Server) broadcastChannel(ch *channel, payload []byte) {
	for _, name := range s.channels.members(ch) {
		if c, ok := s.lookupClient(name); ok {
			if err := c.send(payload); err != nil {
				slog.Error("chat: channel broadcast failed", "to", name, "err", err)
			}
		}
	}
}

func (s *Server) broadcastGuild(guildID int64, payload []byte, except string) {
	s.mu.Lock()
	targets := make([]*Client, 0, len(s.guildMembers[guildID]))
	for name, c := range s.guildMembers[guildID] {
		if name == except {
			continue
		}
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		if err := c.send(payload); err != nil {
			slog.Error("chat: guild broadcast failed", "err", err)
		}
	}
}

// PendingConnect implements account.ChatNotifier: primes the chat token
// collector with the character identity a client will soon present via
// CONNECT(token) (spec.md §4.3, §4.5).
func (s *Server) PendingConnect(ctx context.Context, tok string, characterName string, level model.AccessLevel) error {
	s.tokens.AddPendingConnect(tok, pendingIdentity{characterName: characterName, level: level})
	return nil
}

// Announce implements gslink.ChatForwarder: relays a GM/system broadcast
// to every currently authenticated client (spec.md §4.4 ANNOUNCE).
func (s *Server) Announce(ctx context.Context, message, senderName string) error {
	payload := proto.WriteAnnounceOut(message, senderName)
	s.mu.Lock()
	targets := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		if err := c.send(payload); err != nil {
			slog.Error("chat: announce delivery failed", "err", err)
		}
	}
	return nil
}
