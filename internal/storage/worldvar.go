package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/wyrmwatch/worldserver/internal/model"
)

// GetQuestVar returns one per-character quest variable, or "" if unset
// (spec.md §4.4 GET_VAR_CHR).
func (d *DB) GetQuestVar(ctx context.Context, ownerID int64, name string) (string, error) {
	var value string
	err := d.pool.QueryRow(ctx, `SELECT value FROM quest_vars WHERE owner_id = $1 AND name = $2`,
		ownerID, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", wrapErr("GetQuestVar", err)
	}
	return value, nil
}

// SetQuestVar replaces a quest variable, deleting the row when value is
// empty (spec.md §6: "replace on write, delete on empty").
func (d *DB) SetQuestVar(ctx context.Context, ownerID int64, name, value string) error {
	if value == "" {
		_, err := d.pool.Exec(ctx, `DELETE FROM quest_vars WHERE owner_id = $1 AND name = $2`, ownerID, name)
		if err != nil {
			return wrapErr("SetQuestVar:delete", err)
		}
		return nil
	}
	_, err := d.pool.Exec(ctx,
		`INSERT INTO quest_vars (owner_id, name, value) VALUES ($1,$2,$3)
		 ON CONFLICT (owner_id, name) DO UPDATE SET value = $3`,
		ownerID, name, value)
	if err != nil {
		return wrapErr("SetQuestVar", err)
	}
	return nil
}

// GetWorldStateVar returns one (scope, name) variable, or "" if unset.
// scope follows model.ScopeWorld / model.ScopeSystem / a map id.
func (d *DB) GetWorldStateVar(ctx context.Context, scope int32, name string) (string, error) {
	var value string
	err := d.pool.QueryRow(ctx, `SELECT value FROM world_state_vars WHERE scope = $1 AND name = $2`,
		scope, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", wrapErr("GetWorldStateVar", err)
	}
	return value, nil
}

// SetWorldStateVar replaces a world/system/map variable (spec.md §4.4
// SET_VAR_WORLD / SET_VAR_MAP persist identically; fan-out to other game
// servers for SET_VAR_WORLD is the caller's responsibility, not storage's).
func (d *DB) SetWorldStateVar(ctx context.Context, scope int32, name, value string) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO world_state_vars (scope, name, value, mod_date) VALUES ($1,$2,$3,now())
		 ON CONFLICT (scope, name) DO UPDATE SET value = $3, mod_date = now()`,
		scope, name, value)
	if err != nil {
		return wrapErr("SetWorldStateVar", err)
	}
	return nil
}

// GetAllWorldStateVars returns every variable for one scope, used to
// transmit world-scope variables to a newly registered game server
// (spec.md §4.4).
func (d *DB) GetAllWorldStateVars(ctx context.Context, scope int32) ([]model.WorldStateVar, error) {
	rows, err := d.pool.Query(ctx, `SELECT scope, name, value FROM world_state_vars WHERE scope = $1`, scope)
	if err != nil {
		return nil, wrapErr("GetAllWorldStateVars", err)
	}
	defer rows.Close()

	var out []model.WorldStateVar
	for rows.Next() {
		var v model.WorldStateVar
		if err := rows.Scan(&v.Scope, &v.Name, &v.Value); err != nil {
			return nil, wrapErr("GetAllWorldStateVars", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("GetAllWorldStateVars", err)
	}
	return out, nil
}

// AddFloorItem persists a dropped item stack (spec.md §4.4
// CREATE_ITEM_ON_MAP).
func (d *DB) AddFloorItem(ctx context.Context, it model.FloorItem) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO floor_items (map_id, item_id, amount, x, y) VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (map_id, item_id, amount, x, y) DO NOTHING`,
		it.MapID, it.ItemID, it.Amount, it.X, it.Y)
	if err != nil {
		return wrapErr("AddFloorItem", err)
	}
	return nil
}

// RemoveFloorItem deletes a dropped item stack (spec.md §4.4
// REMOVE_ITEM_ON_MAP). Identity is the full tuple (spec.md §9 Open
// Questions).
func (d *DB) RemoveFloorItem(ctx context.Context, it model.FloorItem) error {
	_, err := d.pool.Exec(ctx,
		`DELETE FROM floor_items WHERE map_id=$1 AND item_id=$2 AND amount=$3 AND x=$4 AND y=$5`,
		it.MapID, it.ItemID, it.Amount, it.X, it.Y)
	if err != nil {
		return wrapErr("RemoveFloorItem", err)
	}
	return nil
}

// GetFloorItemsFromMap returns every persisted floor item on mapID, sent
// to a game server as it activates that map (spec.md §4.4 ACTIVE_MAP).
func (d *DB) GetFloorItemsFromMap(ctx context.Context, mapID int16) ([]model.FloorItem, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT map_id, item_id, amount, x, y FROM floor_items WHERE map_id = $1`, mapID)
	if err != nil {
		return nil, wrapErr("GetFloorItemsFromMap", err)
	}
	defer rows.Close()

	var out []model.FloorItem
	for rows.Next() {
		var it model.FloorItem
		if err := rows.Scan(&it.MapID, &it.ItemID, &it.Amount, &it.X, &it.Y); err != nil {
			return nil, wrapErr("GetFloorItemsFromMap", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("GetFloorItemsFromMap", err)
	}
	return out, nil
}
