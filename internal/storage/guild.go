package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/wyrmwatch/worldserver/internal/model"
)

// CreateGuild persists a new guild with owner as its sole member, filling
// its generated id (spec.md §3: "exactly one owner").
func (d *DB) CreateGuild(ctx context.Context, g *model.Guild) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return wrapErr("CreateGuild:begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx,
		`INSERT INTO guilds (name, owner_id) VALUES ($1, $2) RETURNING id`,
		g.Name, g.OwnerID).Scan(&g.ID); err != nil {
		return wrapErr("CreateGuild", err)
	}
	for memberID, rights := range g.Members {
		if _, err := tx.Exec(ctx,
			`INSERT INTO guild_members (guild_id, member_id, rights) VALUES ($1,$2,$3)`,
			g.ID, memberID, rights); err != nil {
			return wrapErr("CreateGuild:member", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapErr("CreateGuild:commit", err)
	}
	return nil
}

// GetGuild loads a guild and its members, or ErrNotFound.
func (d *DB) GetGuild(ctx context.Context, id int64) (*model.Guild, error) {
	g := &model.Guild{Members: map[int64]model.GuildRight{}}
	err := d.pool.QueryRow(ctx, `SELECT id, name, owner_id FROM guilds WHERE id = $1`, id).
		Scan(&g.ID, &g.Name, &g.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("GetGuild", err)
	}

	rows, err := d.pool.Query(ctx, `SELECT member_id, rights FROM guild_members WHERE guild_id = $1`, id)
	if err != nil {
		return nil, wrapErr("GetGuild:members", err)
	}
	defer rows.Close()
	for rows.Next() {
		var memberID int64
		var rights model.GuildRight
		if err := rows.Scan(&memberID, &rights); err != nil {
			return nil, wrapErr("GetGuild:members", err)
		}
		g.Members[memberID] = rights
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("GetGuild:members", err)
	}
	return g, nil
}

// AddGuildMember inserts a member row, used by guild invite/accept
// (spec.md §4.5).
func (d *DB) AddGuildMember(ctx context.Context, guildID, memberID int64, rights model.GuildRight) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO guild_members (guild_id, member_id, rights) VALUES ($1,$2,$3)`,
		guildID, memberID, rights)
	if err != nil {
		return wrapErr("AddGuildMember", err)
	}
	return nil
}

// RemoveGuildMember deletes a member row. If the removed member was the
// last one, the guild (and by migration-level FK cascade, its membership
// table) is deleted too (spec.md §3: "deleting last member deletes
// guild").
func (d *DB) RemoveGuildMember(ctx context.Context, guildID, memberID int64) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return wrapErr("RemoveGuildMember:begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM guild_members WHERE guild_id = $1 AND member_id = $2`,
		guildID, memberID); err != nil {
		return wrapErr("RemoveGuildMember", err)
	}

	var remaining int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM guild_members WHERE guild_id = $1`, guildID).
		Scan(&remaining); err != nil {
		return wrapErr("RemoveGuildMember:count", err)
	}
	if remaining == 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM guilds WHERE id = $1`, guildID); err != nil {
			return wrapErr("RemoveGuildMember:deleteguild", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapErr("RemoveGuildMember:commit", err)
	}
	return nil
}

// SetGuildMemberRights updates one member's rights bitmask (promote/demote).
func (d *DB) SetGuildMemberRights(ctx context.Context, guildID, memberID int64, rights model.GuildRight) error {
	_, err := d.pool.Exec(ctx,
		`UPDATE guild_members SET rights = $3 WHERE guild_id = $1 AND member_id = $2`,
		guildID, memberID, rights)
	if err != nil {
		return wrapErr("SetGuildMemberRights", err)
	}
	return nil
}

// DoesGuildNameExist reports whether name is already taken (spec.md §4.5
// channel-enter naming rule also checks this to avoid colliding with a
// guild name).
func (d *DB) DoesGuildNameExist(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM guilds WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, wrapErr("DoesGuildNameExist", err)
	}
	return exists, nil
}

// GetGuildIDForMember returns the guild a character currently belongs to,
// or ok=false if it belongs to none. Used by the chat endpoint to recover
// guild membership on CONNECT without the client having to resubmit it.
func (d *DB) GetGuildIDForMember(ctx context.Context, characterID int64) (int64, bool, error) {
	var guildID int64
	err := d.pool.QueryRow(ctx, `SELECT guild_id FROM guild_members WHERE member_id = $1`, characterID).Scan(&guildID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrapErr("GetGuildIDForMember", err)
	}
	return guildID, true, nil
}
