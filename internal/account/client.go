package account

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/wyrmwatch/worldserver/internal/account/proto"
	"github.com/wyrmwatch/worldserver/internal/account/status"
	"github.com/wyrmwatch/worldserver/internal/model"
	"github.com/wyrmwatch/worldserver/internal/wire"
)

// Client is one player connection to the account endpoint, owning the
// {Login, Queued, Connected} state machine of spec.md §4.3.
//
// Grounded on internal/login.Client; generalized from its fixed
// Connected/AuthedGG/AuthedLogin states to the spec's three states and
// carrying the bound *model.Account directly rather than just a username.
type Client struct {
	conn net.Conn
	ip   string
	srv  *Server

	writeMu sync.Mutex

	mu              sync.Mutex
	state           ConnState
	account         *model.Account
	pendingUsername string
	pendingSalt     []byte
	lastLoginAt     int64 // unix nanos, for the per-IP rate limit
}

// newClient wraps conn in the initial Login state.
func newClient(conn net.Conn, srv *Server) (*Client, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return nil, fmt.Errorf("account: splitting host port: %w", err)
	}
	return &Client{conn: conn, ip: host, srv: srv, state: StateLogin}, nil
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Account returns the bound account, or nil if not Connected.
func (c *Client) Account() *model.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account
}

func (c *Client) bindAccount(a *model.Account) {
	c.mu.Lock()
	c.account = a
	c.state = StateConnected
	c.mu.Unlock()
}

func (c *Client) unbindAccount() {
	c.mu.Lock()
	c.account = nil
	c.state = StateLogin
	c.mu.Unlock()
}

func (c *Client) stashPending(username string, salt []byte) {
	c.mu.Lock()
	c.pendingUsername = username
	c.pendingSalt = salt
	c.mu.Unlock()
}

func (c *Client) pending() (string, []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingUsername, c.pendingSalt
}

// send writes one framed, already-serialised message to the client.
// net.Conn writes are not inherently safe for concurrent callers, and
// OnMatch (below) can fire from a foreign goroutine, so every write is
// serialised through writeMu.
func (c *Client) send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wire.WriteFrame(c.conn, payload)
}

// OnMatch implements token.Client for the Reconnect flow (spec.md §4.3,
// §4.6 step 3): payload is the account id tunneled through the token by
// whichever side primed the pending connect (e.g. gslink's
// PLAYER_RECONNECT). Called from whatever goroutine completed the match,
// not necessarily this client's own read-loop goroutine.
func (c *Client) OnMatch(payload any) {
	accountID, ok := payload.(int64)
	if !ok {
		slog.Error("account: reconnect match with unexpected payload type", "payload", payload)
		return
	}
	ctx := context.Background()
	acc, err := c.srv.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		slog.Error("account: reconnect account lookup failed", "accountId", accountID, "err", err)
		_ = c.send(proto.WriteGenericResponse(status.Failure))
		return
	}
	c.bindAccount(acc)
	slog.Info("account: reconnect matched", "username", acc.Username, "ip", c.ip)
	_ = c.send(proto.WriteLoginResponse(proto.LoginResponse{
		Status:     status.Ok,
		UpdateHost: c.srv.cfg.DefaultUpdateHost,
		DataURL:    c.srv.cfg.ClientDataURL,
		MaxChars:   int8(c.srv.cfg.Character.MaxCharacters),
		Characters: rosterRecords(acc),
	}))
}

// OnTimeout implements token.Client: no Connect arrived before the
// deadline, so the connection reverts to Login and is told TimeOut.
func (c *Client) OnTimeout() {
	c.mu.Lock()
	if c.state == StateQueued {
		c.state = StateLogin
	}
	c.mu.Unlock()
	slog.Info("account: reconnect token expired", "ip", c.ip)
	_ = c.send(proto.WriteGenericResponse(status.TimeOut))
}

func rosterRecords(a *model.Account) []proto.CharacterRecord {
	slots := a.Slots()
	recs := make([]proto.CharacterRecord, 0, len(slots))
	for _, slot := range slots {
		recs = append(recs, proto.CharacterRecordFromModel(a.Characters[slot]))
	}
	return recs
}
