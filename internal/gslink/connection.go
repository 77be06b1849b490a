package gslink

import (
	"net"
	"sync"

	"github.com/wyrmwatch/worldserver/internal/wire"
)

// linkState mirrors the account endpoint's Client state machine but with
// only two members: a link has no identity until REGISTER succeeds.
type linkState int

const (
	linkUnregistered linkState = iota
	linkActive
)

// link is one connected game server (spec.md §4.4). Grounded on
// internal/login.Client generalized from a player connection to a
// server-to-server one.
type link struct {
	conn net.Conn
	ip   string
	srv  *Server

	writeMu sync.Mutex

	mu      sync.Mutex
	state   linkState
	name    string // registry handle once registered
	address string
	port    int16

	pendingTokens map[string]struct{} // tokens sent via PLAYER_ENTER, awaiting the client's re-dial
}

func newLink(conn net.Conn, srv *Server) (*link, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return nil, err
	}
	return &link{
		conn:          conn,
		ip:            host,
		srv:           srv,
		state:         linkUnregistered,
		pendingTokens: make(map[string]struct{}),
	}, nil
}

func (l *link) send(payload []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return wire.WriteFrame(l.conn, payload)
}

func (l *link) markRegistered(name, address string, port int16) {
	l.mu.Lock()
	l.state = linkActive
	l.name, l.address, l.port = name, address, port
	l.mu.Unlock()
}

func (l *link) handle() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.name
}

func (l *link) trackToken(tok string) {
	l.mu.Lock()
	l.pendingTokens[tok] = struct{}{}
	l.mu.Unlock()
}

func (l *link) untrackToken(tok string) {
	l.mu.Lock()
	delete(l.pendingTokens, tok)
	l.mu.Unlock()
}

// drainTokens returns and clears every token still awaiting a client
// re-dial, for timeout notification on disconnect (spec.md §4.4: "any
// player currently staged for handoff to it is dropped from the token
// collector with a timeout reply").
func (l *link) drainTokens() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.pendingTokens))
	for tok := range l.pendingTokens {
		out = append(out, tok)
	}
	l.pendingTokens = make(map[string]struct{})
	return out
}
