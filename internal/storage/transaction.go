package storage

import (
	"context"

	"github.com/wyrmwatch/worldserver/internal/model"
)

// AddTransaction appends one audit row (spec.md §3: "append-only").
func (d *DB) AddTransaction(ctx context.Context, t model.Transaction) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO transactions (char_id, action, message, time) VALUES ($1,$2,$3,$4)`,
		t.CharID, t.Action, t.Message, t.Timestamp)
	if err != nil {
		return wrapErr("AddTransaction", err)
	}
	return nil
}

// GetTransactions returns the audit trail for one character, most recent
// first, for admin diagnostics.
func (d *DB) GetTransactions(ctx context.Context, charID int64, limit int) ([]model.Transaction, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, char_id, action, message, time FROM transactions
		 WHERE char_id = $1 ORDER BY time DESC LIMIT $2`, charID, limit)
	if err != nil {
		return nil, wrapErr("GetTransactions", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.CharID, &t.Action, &t.Message, &t.Timestamp); err != nil {
			return nil, wrapErr("GetTransactions", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("GetTransactions", err)
	}
	return out, nil
}

// SetOnlineStatus records or clears a character's presence in the online
// list (spec.md §6: cleared on server start).
func (d *DB) SetOnlineStatus(ctx context.Context, charID int64, online bool) error {
	if online {
		_, err := d.pool.Exec(ctx,
			`INSERT INTO online_list (char_id, since) VALUES ($1, now()) ON CONFLICT (char_id) DO NOTHING`,
			charID)
		if err != nil {
			return wrapErr("SetOnlineStatus:set", err)
		}
		return nil
	}
	_, err := d.pool.Exec(ctx, `DELETE FROM online_list WHERE char_id = $1`, charID)
	if err != nil {
		return wrapErr("SetOnlineStatus:clear", err)
	}
	return nil
}

// ClearOnlineList wipes the whole online list, called once at process
// startup (spec.md §6).
func (d *DB) ClearOnlineList(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, `DELETE FROM online_list`)
	if err != nil {
		return wrapErr("ClearOnlineList", err)
	}
	return nil
}
