package chat

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/wyrmwatch/worldserver/internal/account/status"
	"github.com/wyrmwatch/worldserver/internal/chat/proto"
	"github.com/wyrmwatch/worldserver/internal/model"
	"github.com/wyrmwatch/worldserver/internal/wire"
)

// clientState mirrors spec.md §4.5's two-state ChatEndpoint connection
// lifecycle: {Unknown, Authenticated}.
type clientState int

const (
	stateUnknown clientState = iota
	stateAuthenticated
)

// Client is one player connection to the chat endpoint. Grounded on
// internal/account.Client, generalized from the three-state login
// machine to the chat endpoint's CONNECT-then-authenticated shape.
type Client struct {
	conn net.Conn
	ip   string
	srv  *Server

	writeMu sync.Mutex

	mu       sync.Mutex
	state    clientState
	name     string
	level    model.AccessLevel
	charID   int64
	guildID  int64
	channels map[int32]struct{}
}

func newClient(conn net.Conn, srv *Server) (*Client, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return nil, fmt.Errorf("chat: splitting host port: %w", err)
	}
	return &Client{conn: conn, ip: host, srv: srv, state: stateUnknown, channels: make(map[int32]struct{})}, nil
}

func (c *Client) send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wire.WriteFrame(c.conn, payload)
}

func (c *Client) authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateAuthenticated
}

func (c *Client) identity() (name string, level model.AccessLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name, c.level
}

func (c *Client) bind(name string, level model.AccessLevel, charID, guildID int64) {
	c.mu.Lock()
	c.state = stateAuthenticated
	c.name, c.level, c.charID, c.guildID = name, level, charID, guildID
	c.mu.Unlock()
}

func (c *Client) trackChannel(id int32) {
	c.mu.Lock()
	c.channels[id] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) untrackChannel(id int32) {
	c.mu.Lock()
	delete(c.channels, id)
	c.mu.Unlock()
}

func (c *Client) joinedChannels() []int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int32, 0, len(c.channels))
	for id := range c.channels {
		out = append(out, id)
	}
	return out
}

// OnMatch implements token.Client for CONNECT(token): payload is the
// (characterName, accountLevel) pair deposited by the account endpoint's
// character-select algorithm (spec.md §4.3, §4.5).
func (c *Client) OnMatch(payload any) {
	p, ok := payload.(pendingIdentity)
	if !ok {
		slog.Error("chat: connect match with unexpected payload type", "payload", payload)
		return
	}

	ctx := context.Background()
	charID, err := c.srv.repo.GetCharacterID(ctx, p.characterName)
	if err != nil {
		slog.Error("chat: connect character lookup failed", "name", p.characterName, "err", err)
		_ = c.send(proto.WriteGenericResponse(status.Failure))
		return
	}
	var guildID int64
	if id, ok, err := c.srv.repo.GetGuildIDForMember(ctx, charID); err == nil && ok {
		guildID = id
	}

	c.bind(p.characterName, p.level, charID, guildID)
	c.srv.addClient(c)

	if guildID != 0 {
		guildName := p.characterName
		if guild, err := c.srv.repo.GetGuild(ctx, guildID); err == nil {
			guildName = guild.Name
		}
		ch := c.srv.channels.getOrCreateGuildChannel(guildID, guildName)
		c.srv.channels.join(ch, p.characterName, false)
		c.trackChannel(ch.id)
	}

	slog.Info("chat: client authenticated", "name", p.characterName, "ip", c.ip)
	_ = c.send(proto.WriteGenericResponse(status.Ok))
}

// OnTimeout implements token.Client: no CONNECT arrived before the
// deadline.
func (c *Client) OnTimeout() {
	slog.Info("chat: connect token expired", "ip", c.ip)
	_ = c.send(proto.WriteGenericResponse(status.TimeOut))
}

// pendingIdentity is the payload account.ChatNotifier.PendingConnect
// deposits into the chat token collector.
type pendingIdentity struct {
	characterName string
	level         model.AccessLevel
}
