package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"

	"github.com/wyrmwatch/worldserver/internal/model"
)

// flushRetryBackoff bounds FlushAccount's retry of transient connection
// failures (spec.md §4.7: a flush failure must not silently drop an
// account's character set). Grounded on internal/db's own
// begin/rollback/commit shape for FlushAccount, extended with go-retry
// since a pooled connection can be closed out from under a transaction by
// the server without any caller-visible precondition to check first.
func flushRetryBackoff() retry.Backoff {
	return retry.WithMaxRetries(3, retry.NewExponential(50*time.Millisecond))
}

// isTransientFlushErr reports whether err is a connection-level failure
// worth retrying, as opposed to a constraint violation or bad input that
// retrying would only repeat.
func isTransientFlushErr(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}
	return errors.Is(err, pgx.ErrTxClosed) || pgconn.SafeToRetry(err)
}

// GetCharacterByID loads a character with all of its sub-tables populated,
// or ErrNotFound.
func (d *DB) GetCharacterByID(ctx context.Context, id int64) (*model.Character, error) {
	return d.getCharacter(ctx, `id = $1`, id)
}

// GetCharacterByName mirrors GetCharacterByID keyed by name.
func (d *DB) GetCharacterByName(ctx context.Context, name string) (*model.Character, error) {
	return d.getCharacter(ctx, `name = $1`, name)
}

// GetCharacterID resolves a character's id from its name without loading
// the full record, used by chat name lookups (spec.md §4.5).
func (d *DB) GetCharacterID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := d.pool.QueryRow(ctx, `SELECT id FROM characters WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, wrapErr("GetCharacterID", err)
	}
	return id, nil
}

// DoesCharacterNameExist reports whether name is already taken.
func (d *DB) DoesCharacterNameExist(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM characters WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, wrapErr("DoesCharacterNameExist", err)
	}
	return exists, nil
}

func (d *DB) getCharacter(ctx context.Context, whereClause string, arg any) (*model.Character, error) {
	c := &model.Character{
		Attributes:   map[int16]model.Attribute{},
		StatusEffect: map[int16]int32{},
		KillCount:    map[int16]int32{},
		Abilities:    map[int32]struct{}{},
	}
	query := fmt.Sprintf(
		`SELECT id, account_id, name, gender, hair_style, hair_color,
		        char_pts, corr_pts, x, y, map_id, slot
		 FROM characters WHERE %s AND deleted_at IS NULL`, whereClause)
	err := d.pool.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.AccountID, &c.Name, &c.Gender, &c.HairStyle, &c.HairColor,
		&c.AttrPoints, &c.CorrPoints, &c.Position.X, &c.Position.Y, &c.Position.MapID, &c.Slot,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("getCharacter", err)
	}

	if err := d.loadCharacterSubTables(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (d *DB) loadCharacterSubTables(ctx context.Context, c *model.Character) error {
	attrRows, err := d.pool.Query(ctx, `SELECT attr_id, base, mod FROM char_attributes WHERE char_id = $1`, c.ID)
	if err != nil {
		return wrapErr("loadCharacterSubTables:attributes", err)
	}
	for attrRows.Next() {
		var id int16
		var a model.Attribute
		if err := attrRows.Scan(&id, &a.Base, &a.Modified); err != nil {
			attrRows.Close()
			return wrapErr("loadCharacterSubTables:attributes", err)
		}
		c.Attributes[id] = a
	}
	attrRows.Close()
	if err := attrRows.Err(); err != nil {
		return wrapErr("loadCharacterSubTables:attributes", err)
	}

	statusRows, err := d.pool.Query(ctx, `SELECT status_id, ticks FROM char_status_effects WHERE char_id = $1`, c.ID)
	if err != nil {
		return wrapErr("loadCharacterSubTables:status", err)
	}
	for statusRows.Next() {
		var id int16
		var ticks int32
		if err := statusRows.Scan(&id, &ticks); err != nil {
			statusRows.Close()
			return wrapErr("loadCharacterSubTables:status", err)
		}
		c.StatusEffect[id] = ticks
	}
	statusRows.Close()
	if err := statusRows.Err(); err != nil {
		return wrapErr("loadCharacterSubTables:status", err)
	}

	killRows, err := d.pool.Query(ctx, `SELECT monster_id, kills FROM char_kill_count WHERE char_id = $1`, c.ID)
	if err != nil {
		return wrapErr("loadCharacterSubTables:kills", err)
	}
	for killRows.Next() {
		var id int16
		var kills int32
		if err := killRows.Scan(&id, &kills); err != nil {
			killRows.Close()
			return wrapErr("loadCharacterSubTables:kills", err)
		}
		c.KillCount[id] = kills
	}
	killRows.Close()
	if err := killRows.Err(); err != nil {
		return wrapErr("loadCharacterSubTables:kills", err)
	}

	abilityRows, err := d.pool.Query(ctx, `SELECT ability_id FROM char_abilities WHERE char_id = $1`, c.ID)
	if err != nil {
		return wrapErr("loadCharacterSubTables:abilities", err)
	}
	for abilityRows.Next() {
		var id int32
		if err := abilityRows.Scan(&id); err != nil {
			abilityRows.Close()
			return wrapErr("loadCharacterSubTables:abilities", err)
		}
		c.Abilities[id] = struct{}{}
	}
	abilityRows.Close()
	if err := abilityRows.Err(); err != nil {
		return wrapErr("loadCharacterSubTables:abilities", err)
	}

	questRows, err := d.pool.Query(ctx,
		`SELECT quest_id, state, title, desc FROM quest_log WHERE char_id = $1 ORDER BY quest_id`, c.ID)
	if err != nil {
		return wrapErr("loadCharacterSubTables:quests", err)
	}
	for questRows.Next() {
		var q model.QuestEntry
		if err := questRows.Scan(&q.QuestID, &q.State, &q.Title, &q.Description); err != nil {
			questRows.Close()
			return wrapErr("loadCharacterSubTables:quests", err)
		}
		c.QuestLog = append(c.QuestLog, q)
	}
	questRows.Close()
	if err := questRows.Err(); err != nil {
		return wrapErr("loadCharacterSubTables:quests", err)
	}

	invRows, err := d.pool.Query(ctx,
		`SELECT slot, item_id, amount, equipped_slot FROM inventory WHERE char_id = $1 ORDER BY slot`, c.ID)
	if err != nil {
		return wrapErr("loadCharacterSubTables:inventory", err)
	}
	for invRows.Next() {
		var it model.InventoryItem
		if err := invRows.Scan(&it.Slot, &it.ItemID, &it.Amount, &it.EquipSlot); err != nil {
			invRows.Close()
			return wrapErr("loadCharacterSubTables:inventory", err)
		}
		c.Inventory = append(c.Inventory, it)
	}
	invRows.Close()
	if err := invRows.Err(); err != nil {
		return wrapErr("loadCharacterSubTables:inventory", err)
	}

	return nil
}

// FlushAccount upserts the account row, inserts new characters, updates
// existing ones, and deletes characters present in storage but absent
// from account.Characters — all inside one transaction (spec.md §4.7:
// "flush(account) is atomic at the granularity of one account").
//
// Grounded on internal/db.PlayerPersistenceService.SavePlayer's
// begin/defer-rollback/commit shape, generalized from one player's
// item/skill/recipe tables to one account's character set.
func (d *DB) FlushAccount(ctx context.Context, a *model.Account) error {
	return retry.Do(ctx, flushRetryBackoff(), func(ctx context.Context) error {
		err := d.flushAccountOnce(ctx, a)
		if err != nil && isTransientFlushErr(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (d *DB) flushAccountOnce(ctx context.Context, a *model.Account) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return wrapErr("FlushAccount:begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, email_hash = $3, level = $4,
		        banned_until = $5, prior_level = $6, last_login = $7
		 WHERE id = $1`,
		a.ID, a.PasswordHash, a.EmailHash, a.Level, nullTime(a.BannedUntil), a.PriorLevel, a.LastLogin,
	)
	if err != nil {
		return wrapErr("FlushAccount:update", err)
	}

	existingRows, err := tx.Query(ctx, `SELECT id FROM characters WHERE account_id = $1 AND deleted_at IS NULL`, a.ID)
	if err != nil {
		return wrapErr("FlushAccount:existing", err)
	}
	existing := map[int64]struct{}{}
	for existingRows.Next() {
		var id int64
		if err := existingRows.Scan(&id); err != nil {
			existingRows.Close()
			return wrapErr("FlushAccount:existing", err)
		}
		existing[id] = struct{}{}
	}
	existingRows.Close()
	if err := existingRows.Err(); err != nil {
		return wrapErr("FlushAccount:existing", err)
	}

	kept := map[int64]struct{}{}
	for _, c := range a.Characters {
		if c.ID == 0 {
			if err := insertCharacterTx(ctx, tx, c, a.ID); err != nil {
				return err
			}
		} else {
			if err := updateCharacterTx(ctx, tx, c); err != nil {
				return err
			}
			kept[c.ID] = struct{}{}
		}
	}
	for id := range existing {
		if _, ok := kept[id]; !ok {
			if _, err := tx.Exec(ctx, `DELETE FROM characters WHERE id = $1`, id); err != nil {
				return wrapErr("FlushAccount:delete", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapErr("FlushAccount:commit", err)
	}
	return nil
}

func insertCharacterTx(ctx context.Context, tx pgx.Tx, c *model.Character, accountID int64) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO characters (account_id, name, gender, hair_style, hair_color,
		        char_pts, corr_pts, x, y, map_id, slot)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		accountID, c.Name, c.Gender, c.HairStyle, c.HairColor,
		c.AttrPoints, c.CorrPoints, c.Position.X, c.Position.Y, c.Position.MapID, c.Slot,
	).Scan(&c.ID)
	if err != nil {
		return wrapErr("insertCharacterTx", err)
	}
	c.AccountID = accountID
	return writeCharacterSubTablesTx(ctx, tx, c)
}

func updateCharacterTx(ctx context.Context, tx pgx.Tx, c *model.Character) error {
	_, err := tx.Exec(ctx,
		`UPDATE characters SET name=$2, gender=$3, hair_style=$4, hair_color=$5,
		        char_pts=$6, corr_pts=$7, x=$8, y=$9, map_id=$10, slot=$11
		 WHERE id = $1`,
		c.ID, c.Name, c.Gender, c.HairStyle, c.HairColor,
		c.AttrPoints, c.CorrPoints, c.Position.X, c.Position.Y, c.Position.MapID, c.Slot,
	)
	if err != nil {
		return wrapErr("updateCharacterTx", err)
	}
	return writeCharacterSubTablesTx(ctx, tx, c)
}

// writeCharacterSubTablesTx replaces every sub-table row for c.ID:
// attributes, status effects, kill counts, abilities, quest log, and
// inventory/equipment are deleted and re-inserted on every flush, per
// spec.md §6's "inventory ... deleted and re-inserted on every flush" —
// applied here to every per-character child table for the same reason
// (the in-memory snapshot is always the source of truth at flush time).
func writeCharacterSubTablesTx(ctx context.Context, tx pgx.Tx, c *model.Character) error {
	if _, err := tx.Exec(ctx, `DELETE FROM char_attributes WHERE char_id = $1`, c.ID); err != nil {
		return wrapErr("writeCharacterSubTablesTx:attributes", err)
	}
	for id, a := range c.Attributes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO char_attributes (char_id, attr_id, base, mod) VALUES ($1,$2,$3,$4)`,
			c.ID, id, a.Base, a.Modified); err != nil {
			return wrapErr("writeCharacterSubTablesTx:attributes", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM char_status_effects WHERE char_id = $1`, c.ID); err != nil {
		return wrapErr("writeCharacterSubTablesTx:status", err)
	}
	for id, ticks := range c.StatusEffect {
		if _, err := tx.Exec(ctx,
			`INSERT INTO char_status_effects (char_id, status_id, ticks) VALUES ($1,$2,$3)`,
			c.ID, id, ticks); err != nil {
			return wrapErr("writeCharacterSubTablesTx:status", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM char_kill_count WHERE char_id = $1`, c.ID); err != nil {
		return wrapErr("writeCharacterSubTablesTx:kills", err)
	}
	for id, kills := range c.KillCount {
		if _, err := tx.Exec(ctx,
			`INSERT INTO char_kill_count (char_id, monster_id, kills) VALUES ($1,$2,$3)`,
			c.ID, id, kills); err != nil {
			return wrapErr("writeCharacterSubTablesTx:kills", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM char_abilities WHERE char_id = $1`, c.ID); err != nil {
		return wrapErr("writeCharacterSubTablesTx:abilities", err)
	}
	for id := range c.Abilities {
		if _, err := tx.Exec(ctx,
			`INSERT INTO char_abilities (char_id, ability_id) VALUES ($1,$2)`, c.ID, id); err != nil {
			return wrapErr("writeCharacterSubTablesTx:abilities", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM quest_log WHERE char_id = $1`, c.ID); err != nil {
		return wrapErr("writeCharacterSubTablesTx:quests", err)
	}
	for _, q := range c.QuestLog {
		if _, err := tx.Exec(ctx,
			`INSERT INTO quest_log (char_id, quest_id, state, title, desc) VALUES ($1,$2,$3,$4,$5)`,
			c.ID, q.QuestID, q.State, q.Title, q.Description); err != nil {
			return wrapErr("writeCharacterSubTablesTx:quests", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM inventory WHERE char_id = $1`, c.ID); err != nil {
		return wrapErr("writeCharacterSubTablesTx:inventory", err)
	}
	for _, it := range c.Inventory {
		if _, err := tx.Exec(ctx,
			`INSERT INTO inventory (char_id, slot, item_id, amount, equipped_slot) VALUES ($1,$2,$3,$4,$5)`,
			c.ID, it.Slot, it.ItemID, it.Amount, it.EquipSlot); err != nil {
			return wrapErr("writeCharacterSubTablesTx:inventory", err)
		}
	}

	return nil
}

// UpdateCharacter applies a full game-server character upload
// (PLAYER_DATA, spec.md §4.4): it replaces the full character row and
// every sub-table in one transaction. PLAYER_SYNC deltas use the narrower
// UpdateCharacterPoints, UpdateAttribute and SetOnlineStatus instead.
func (d *DB) UpdateCharacter(ctx context.Context, c *model.Character) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return wrapErr("UpdateCharacter:begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := updateCharacterTx(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapErr("UpdateCharacter:commit", err)
	}
	return nil
}

// UpdateCharacterPoints updates only the attribute/correction point
// budgets, used by PLAYER_SYNC deltas (spec.md §4.4).
func (d *DB) UpdateCharacterPoints(ctx context.Context, charID int64, attrPts, corrPts int32) error {
	_, err := d.pool.Exec(ctx,
		`UPDATE characters SET char_pts = $2, corr_pts = $3 WHERE id = $1`, charID, attrPts, corrPts)
	if err != nil {
		return wrapErr("UpdateCharacterPoints", err)
	}
	return nil
}

// UpdateAttribute upserts one (charID, attrID) attribute row.
func (d *DB) UpdateAttribute(ctx context.Context, charID int64, attrID int16, base, modified float64) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO char_attributes (char_id, attr_id, base, mod) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (char_id, attr_id) DO UPDATE SET base = $3, mod = $4`,
		charID, attrID, base, modified)
	if err != nil {
		return wrapErr("UpdateAttribute", err)
	}
	return nil
}

// UpdateKillCount upserts one (charID, monsterID) kill-count row.
func (d *DB) UpdateKillCount(ctx context.Context, charID int64, monsterID int16, kills int32) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO char_kill_count (char_id, monster_id, kills) VALUES ($1,$2,$3)
		 ON CONFLICT (char_id, monster_id) DO UPDATE SET kills = $3`,
		charID, monsterID, kills)
	if err != nil {
		return wrapErr("UpdateKillCount", err)
	}
	return nil
}

// InsertStatusEffect upserts one status-effect row.
func (d *DB) InsertStatusEffect(ctx context.Context, charID int64, statusID int16, ticks int32) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO char_status_effects (char_id, status_id, ticks) VALUES ($1,$2,$3)
		 ON CONFLICT (char_id, status_id) DO UPDATE SET ticks = $3`,
		charID, statusID, ticks)
	if err != nil {
		return wrapErr("InsertStatusEffect", err)
	}
	return nil
}

// MarkCharacterDeleted implements the supplemented soft-delete grace
// window from SPEC_FULL.md: CharDelete stamps deleted_at rather than
// cascading immediately.
func (d *DB) MarkCharacterDeleted(ctx context.Context, charID int64, when int64) error {
	_, err := d.pool.Exec(ctx, `UPDATE characters SET deleted_at = to_timestamp($2) WHERE id = $1`, charID, when)
	if err != nil {
		return wrapErr("MarkCharacterDeleted", err)
	}
	return nil
}

// PurgeExpiredDeletes cascades the delete (spec.md §3) for every character
// whose soft-delete grace window, measured from deleted_at, has elapsed.
func (d *DB) PurgeExpiredDeletes(ctx context.Context, olderThanSeconds int64) (int64, error) {
	tag, err := d.pool.Exec(ctx,
		`DELETE FROM characters WHERE deleted_at IS NOT NULL AND deleted_at <= now() - ($1 || ' seconds')::interval`,
		olderThanSeconds)
	if err != nil {
		return 0, wrapErr("PurgeExpiredDeletes", err)
	}
	return tag.RowsAffected(), nil
}

func nullTime(t any) any {
	type zeroer interface{ IsZero() bool }
	if z, ok := t.(zeroer); ok && z.IsZero() {
		return nil
	}
	return t
}
