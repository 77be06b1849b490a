package gameserver

import (
	"context"
	"log/slog"

	"github.com/wyrmwatch/worldserver/internal/gslink/proto"
	"github.com/wyrmwatch/worldserver/internal/wire"
)

// handle dispatches one account->gameserver message (spec.md §4.4's
// second half: ACTIVE_MAP, PLAYER_ENTER, GET_VAR_CHR_RESPONSE,
// REDIRECT_RESPONSE, REQUEST_POST_RESPONSE), mirroring internal/gslink's
// dispatch-table shape for the opposite direction of the same link.
func (c *Client) handle(ctx context.Context, id wire.MsgID, r *wire.Reader) error {
	switch id {
	case proto.MsgActiveMap:
		return c.handleActiveMap(r)
	case proto.MsgPlayerEnter:
		return c.handlePlayerEnter(r)
	case proto.MsgGetVarChrResponse:
		return c.handleGetVarChrResponse(r)
	case proto.MsgRedirectResponse:
		return c.handleRedirectResponse(r)
	case proto.MsgRequestPostResponse:
		return c.handleRequestPostResponse(r)
	case proto.MsgSetVarWorld:
		return c.handleSetVarWorld(r)
	default:
		slog.Warn("gameserver: unknown message id from account server", "id", id)
		return nil
	}
}

// handleActiveMap records a claimed map's vars and persistent floor items
// (spec.md §4.4 step 3: "account ... sends the map's variables and
// persisted floor items").
func (c *Client) handleActiveMap(r *wire.Reader) error {
	mapID, err := r.I16()
	if err != nil {
		return err
	}
	varCount, err := r.I16()
	if err != nil {
		return err
	}
	vars := make(map[string]string, varCount)
	for i := int16(0); i < varCount; i++ {
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
	itemCount, err := r.I16()
	if err != nil {
		return err
	}
	items := make([]proto.FloorItemOp, 0, itemCount)
	for i := int16(0); i < itemCount; i++ {
		itemID, err := r.I32()
		if err != nil {
			return err
		}
		amount, err := r.I16()
		if err != nil {
			return err
		}
		x, err := r.I16()
		if err != nil {
			return err
		}
		y, err := r.I16()
		if err != nil {
			return err
		}
		items = append(items, proto.FloorItemOp{MapID: mapID, ItemID: itemID, Amount: amount, X: x, Y: y})
	}

	c.mu.Lock()
	c.mapVars[mapID] = vars
	c.floorItems[mapID] = items
	c.mu.Unlock()

	slog.Info("gameserver: map activated", "instance", c.instanceID, "mapId", mapID, "floorItems", len(items))
	return nil
}

// handlePlayerEnter records a character handoff (spec.md §4.4 step 5).
// The character snapshot itself is consumed and discarded here: seating a
// player into the running simulation is the out-of-scope combat/ECS layer
// spec.md §1 excludes, so only the token/identity surface this package
// owns is kept.
func (c *Client) handlePlayerEnter(r *wire.Reader) error {
	tok, err := r.String()
	if err != nil {
		return err
	}
	charID, err := r.I32()
	if err != nil {
		return err
	}
	name, err := r.String()
	if err != nil {
		return err
	}
	snap, err := proto.DecodeCharacterSnapshot(r)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.handoffs = append(c.handoffs, MapHandoff{
		Token: tok, CharID: charID, Name: name, AccountLevel: snap.AccountLevel,
	})
	c.mu.Unlock()

	slog.Info("gameserver: player handed off", "instance", c.instanceID, "charId", charID, "name", name, "mapId", snap.MapID)
	return nil
}

func (c *Client) handleGetVarChrResponse(r *wire.Reader) error {
	_, err := r.String()
	return err
}

func (c *Client) handleRedirectResponse(r *wire.Reader) error {
	found, err := r.I8()
	if err != nil {
		return err
	}
	if found == 0 {
		return nil
	}
	if _, err := r.String(); err != nil { // token
		return err
	}
	if _, err := r.String(); err != nil { // address
		return err
	}
	_, err = r.I16() // port
	return err
}

func (c *Client) handleRequestPostResponse(r *wire.Reader) error {
	n, err := r.I16()
	if err != nil {
		return err
	}
	for i := int16(0); i < n; i++ {
		if _, err := r.I64(); err != nil { // senderId
			return err
		}
		if _, err := r.I8(); err != nil { // type
			return err
		}
		if _, err := r.String(); err != nil { // text
			return err
		}
		attachCount, err := r.I16()
		if err != nil {
			return err
		}
		for j := int16(0); j < attachCount; j++ {
			if _, err := r.I32(); err != nil { // itemId
				return err
			}
			if _, err := r.I32(); err != nil { // amount
				return err
			}
		}
	}
	return nil
}

// handleSetVarWorld applies a world-variable fan-out (spec.md §4.4:
// SET_VAR_WORLD has "no ack expected" on this side).
func (c *Client) handleSetVarWorld(r *wire.Reader) error {
	v, err := proto.DecodeSetVarWorld(r)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.worldVars[v.Name] = v.Value
	c.mu.Unlock()
	return nil
}
