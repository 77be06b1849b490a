// Package token implements the generic two-sided rendezvous described in
// spec.md §4.1: one endpoint deposits a pending client awaiting a token,
// another deposits a pending value carrying the same token. When both
// sides are present they are matched exactly once; each side also carries
// its own expiry.
//
// Grounded on internal/login.SessionManager (a single-sided account->token
// map) generalized to the two-sided collector the spec requires.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// TokenLength is the byte length of a generated token (spec.md §3: "fixed
// length, unguessable").
const TokenLength = 16

// DefaultDeadline is how long a side waits before it is swept.
const DefaultDeadline = 8 * time.Second

// New returns a fresh cryptographically unpredictable token, hex-encoded.
func New() (string, error) {
	buf := make([]byte, TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: generating token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Client is the pending side deposited by the endpoint the player will
// (re)connect to. On expiry or successful match the collector invokes
// exactly one of OnMatch / OnTimeout.
type Client interface {
	// OnMatch is called with the payload once a matching Connect arrives.
	OnMatch(payload any)
	// OnTimeout is called if no Connect arrives before the deadline.
	OnTimeout()
}

type pendingClient struct {
	client   Client
	deadline time.Time
}

type pendingConnect struct {
	payload  any
	deadline time.Time
}

// Collector is a generic token rendezvous. It is safe for concurrent use:
// spec.md's single-event-loop confinement is reinterpreted here for Go's
// goroutine-per-connection model with a mutex, per SPEC_FULL.md §5.
type Collector struct {
	mu       sync.Mutex
	clients  map[string]pendingClient
	connects map[string]pendingConnect
	deadline time.Duration
}

// NewCollector constructs a Collector with the given per-side deadline. A zero
// deadline uses DefaultDeadline.
func NewCollector(deadline time.Duration) *Collector {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	return &Collector{
		clients:  make(map[string]pendingClient),
		connects: make(map[string]pendingConnect),
		deadline: deadline,
	}
}

// AddPendingClient parks client under token. If a matching pending connect
// is already present, both are matched immediately and removed; otherwise
// client waits until AddPendingConnect or the sweep deadline.
func (c *Collector) AddPendingClient(tok string, client Client) {
	c.mu.Lock()
	if pc, ok := c.connects[tok]; ok {
		delete(c.connects, tok)
		c.mu.Unlock()
		client.OnMatch(pc.payload)
		return
	}
	c.clients[tok] = pendingClient{client: client, deadline: time.Now().Add(c.deadline)}
	c.mu.Unlock()
}

// AddPendingConnect parks payload under token, mirroring AddPendingClient.
func (c *Collector) AddPendingConnect(tok string, payload any) {
	c.mu.Lock()
	if pc, ok := c.clients[tok]; ok {
		delete(c.clients, tok)
		c.mu.Unlock()
		pc.client.OnMatch(payload)
		return
	}
	c.connects[tok] = pendingConnect{payload: payload, deadline: time.Now().Add(c.deadline)}
	c.mu.Unlock()
}

// DeletePendingClient removes and returns the pending client under token,
// if any, without notifying it. Used when an endpoint tears itself down.
func (c *Collector) DeletePendingClient(tok string) (Client, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pc, ok := c.clients[tok]
	if !ok {
		return nil, false
	}
	delete(c.clients, tok)
	return pc.client, true
}

// DeletePendingConnect removes and discards the pending payload under
// token, if any.
func (c *Collector) DeletePendingConnect(tok string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pc, ok := c.connects[tok]
	if !ok {
		return nil, false
	}
	delete(c.connects, tok)
	return pc.payload, true
}

// Sweep removes every entry past its deadline, invoking OnTimeout on each
// expired pending client. Expired pending connects are simply freed — the
// spec's "frees payload" side has no notification target. Call this
// periodically (e.g. once per second) from the owning endpoint's loop.
func (c *Collector) Sweep(now time.Time) {
	var timedOut []Client

	c.mu.Lock()
	for tok, pc := range c.clients {
		if now.After(pc.deadline) {
			timedOut = append(timedOut, pc.client)
			delete(c.clients, tok)
		}
	}
	for tok, pc := range c.connects {
		if now.After(pc.deadline) {
			delete(c.connects, tok)
		}
	}
	c.mu.Unlock()

	for _, cl := range timedOut {
		cl.OnTimeout()
	}
}

// PendingClientCount reports the number of clients currently parked,
// for diagnostics.
func (c *Collector) PendingClientCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// PendingConnectCount reports the number of connect payloads currently
// parked, for diagnostics.
func (c *Collector) PendingConnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.connects)
}
