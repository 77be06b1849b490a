// Package gameserver implements the game-server side of the
// GameServerLink (spec.md §4.4, §4.6): the per-shard process that dials
// the account process, registers the maps it owns, and takes custody of
// players handed off to it. Per spec.md §1 "Deliberately excluded", the
// combat/ECS/scripting simulation a real map shard would run on top of
// this link is out of scope; this package owns only the link itself and
// the bookkeeping (claimed maps, staged handoffs, world/map variables)
// spec.md §4.6 assigns to the game-server side.
//
// Grounded on internal/gslink for the wire shape and accept/dispatch
// style, mirrored here for the dialing side of the same protocol, and on
// internal/login's reconnect posture generalized from a client reconnect
// to a server-to-server one.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/wyrmwatch/worldserver/internal/config"
	"github.com/wyrmwatch/worldserver/internal/gslink/proto"
	"github.com/wyrmwatch/worldserver/internal/wire"
)

// MapHandoff is a player handed off to this shard by PLAYER_ENTER
// (spec.md §4.4 step 5). The combat simulation that would actually seat
// the player into the map is out of scope; Client only records the
// handoff and exposes it via Handoffs.
type MapHandoff struct {
	Token        string
	CharID       int32
	Name         string
	AccountLevel int32
}

// Client is one game-server shard's persistent connection to the account
// process's GameServerLink listener. instanceID disambiguates successive
// processes registering under the same cfg.Name (e.g. across a restart
// mid-handoff), for correlating log lines rather than for any wire field
// the protocol itself carries.
type Client struct {
	cfg        config.GameServer
	instanceID uuid.UUID

	conn    net.Conn
	writeMu sync.Mutex

	mu         sync.Mutex
	registered bool
	worldVars  map[string]string
	mapVars    map[int16]map[string]string
	floorItems map[int16][]proto.FloorItemOp
	handoffs   []MapHandoff

	onceConnected chan struct{}
}

// New wires a game-server shard client from its process config.
func New(cfg config.GameServer) *Client {
	return &Client{
		cfg:        cfg,
		instanceID: uuid.New(),
		worldVars:  make(map[string]string),
		mapVars:    make(map[int16]map[string]string),
		floorItems: make(map[int16][]proto.FloorItemOp),
	}
}

// InstanceID identifies this process instance across reconnects, for logs.
func (c *Client) InstanceID() uuid.UUID {
	return c.instanceID
}

// Run dials the account server and serves the link until ctx is done,
// reconnecting with exponential backoff on any failure (spec.md §4.6:
// "a game server that loses its link ... must re-register on
// reconnect"). Grounded on cenkalti/backoff/v4's WithContext pattern, the
// natural fit for an indefinite retry loop under caller cancellation.
func (c *Client) Run(ctx context.Context) error {
	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = 0 // never stop on elapsed time; only ctx ends the loop
	bo := backoff.WithContext(eb, ctx)
	for {
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("gameserver: giving up reconnecting: %w", err)
		}
		slog.Warn("gameserver: link lost, reconnecting", "instance", c.instanceID, "err", err, "in", wait)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	conn, err := net.Dial("tcp", c.cfg.AccountServerAddr)
	if err != nil {
		return fmt.Errorf("gameserver: dialing account server: %w", err)
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.registered = false
	c.mu.Unlock()

	if err := c.register(); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		payload, err := wire.ReadFrame(conn)
		if err != nil {
			return fmt.Errorf("gameserver: reading frame: %w", err)
		}
		if len(payload) < 2 {
			return errors.New("gameserver: malformed frame: no message id")
		}
		msgID := wire.MsgID(payload[0]) | wire.MsgID(payload[1])<<8
		if err := c.handle(ctx, msgID, wire.NewReader(payload[2:])); err != nil {
			return err
		}
	}
}

func (c *Client) send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wire.WriteFrame(c.conn, payload)
}

func (c *Client) register() error {
	payload := wire.NewWriter(64).WriteMsgID(proto.MsgRegister).
		String(c.cfg.Name).String(c.cfg.ExternalHost).I16(int16(c.cfg.ExternalPort)).
		String(c.cfg.NetPassword).I32(c.cfg.ItemDBVersion).Payload()
	if err := c.send(payload); err != nil {
		return fmt.Errorf("gameserver: sending REGISTER: %w", err)
	}

	reply, err := wire.ReadFrame(c.conn)
	if err != nil {
		return fmt.Errorf("gameserver: reading REGISTER_RESPONSE: %w", err)
	}
	if len(reply) < 2 {
		return errors.New("gameserver: malformed REGISTER_RESPONSE")
	}
	r := wire.NewReader(reply[2:])
	dbStatus, err := r.I16()
	if err != nil {
		return err
	}
	pwStatus, err := r.I16()
	if err != nil {
		return err
	}
	if pwStatus != 0 {
		return fmt.Errorf("gameserver: REGISTER rejected: bad shared password")
	}
	if dbStatus != 0 {
		slog.Warn("gameserver: item db version mismatch reported by account server", "instance", c.instanceID)
	}

	n, err := r.I16()
	if err != nil {
		return err
	}
	vars := make(map[string]string, n)
	for i := int16(0); i < n; i++ {
		name, err := r.String()
		if err != nil {
			return err
		}
		value, err := r.String()
		if err != nil {
			return err
		}
		vars[name] = value
	}

	c.mu.Lock()
	c.registered = true
	c.worldVars = vars
	c.mu.Unlock()

	slog.Info("gameserver: registered with account server", "name", c.cfg.Name, "instance", c.instanceID, "maps", c.cfg.OwnedMaps)
	return nil
}

// Handoffs drains the players handed to this shard since the last call.
func (c *Client) Handoffs() []MapHandoff {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.handoffs
	c.handoffs = nil
	return out
}

// WorldVar returns the current value of a world-scope variable as last
// pushed by REGISTER_RESPONSE or fanned out via SET_VAR_WORLD.
func (c *Client) WorldVar(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.worldVars[name]
	return v, ok
}
