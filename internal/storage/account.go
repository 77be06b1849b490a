package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wyrmwatch/worldserver/internal/model"
)

// GetAccountByUsername returns the account with its character map populated,
// or ErrNotFound. Mirrors internal/db.DB.GetAccount's "nil, nil if absent"
// contract but as a sentinel error, following spec.md §4.7's result-value
// error policy over exceptions (spec.md §9).
func (d *DB) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	var a model.Account
	var bannedUntil, priorLevel any
	err := d.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, login_verifier, email_hash, level, banned_until,
		        prior_level, registration_date, last_login
		 FROM accounts WHERE username = $1`, username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.LoginVerifier, &a.EmailHash, &a.Level, &bannedUntil,
		&priorLevel, &a.RegistrationDate, &a.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("GetAccountByUsername", err)
	}
	if t, ok := bannedUntil.(time.Time); ok {
		a.BannedUntil = t
	}
	if lvl, ok := priorLevel.(int16); ok {
		a.PriorLevel = model.AccessLevel(lvl)
	}

	chars, err := d.loadCharactersForAccount(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Characters = chars
	return &a, nil
}

// GetAccountByID mirrors GetAccountByUsername keyed by id (spec.md §4.7).
func (d *DB) GetAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	var a model.Account
	var bannedUntil, priorLevel any
	err := d.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, login_verifier, email_hash, level, banned_until,
		        prior_level, registration_date, last_login
		 FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.LoginVerifier, &a.EmailHash, &a.Level, &bannedUntil,
		&priorLevel, &a.RegistrationDate, &a.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("GetAccountByID", err)
	}
	if t, ok := bannedUntil.(time.Time); ok {
		a.BannedUntil = t
	}
	if lvl, ok := priorLevel.(int16); ok {
		a.PriorLevel = model.AccessLevel(lvl)
	}

	chars, err := d.loadCharactersForAccount(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Characters = chars
	return &a, nil
}

// AddAccount persists a new account, filling its generated id.
func (d *DB) AddAccount(ctx context.Context, a *model.Account) error {
	err := d.pool.QueryRow(ctx,
		`INSERT INTO accounts (username, password_hash, login_verifier, email_hash, level, registration_date, last_login)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		a.Username, a.PasswordHash, a.LoginVerifier, a.EmailHash, a.Level, a.RegistrationDate, a.LastLogin,
	).Scan(&a.ID)
	if err != nil {
		return wrapErr("AddAccount", err)
	}
	return nil
}

// DelAccount deletes the account row; its characters, and through them
// their guild memberships, received mail and online flag, are removed by
// foreign-key ON DELETE CASCADE. Floor items carry no owning character and
// are not removed.
func (d *DB) DelAccount(ctx context.Context, id int64) error {
	_, err := d.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return wrapErr("DelAccount", err)
	}
	return nil
}

// UpdateLastLogin stamps last_login to now for id.
func (d *DB) UpdateLastLogin(ctx context.Context, id int64, when time.Time) error {
	_, err := d.pool.Exec(ctx, `UPDATE accounts SET last_login = $2 WHERE id = $1`, id, when)
	if err != nil {
		return wrapErr("UpdateLastLogin", err)
	}
	return nil
}

// DoesUsernameExist reports whether username is already taken.
func (d *DB) DoesUsernameExist(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, wrapErr("DoesUsernameExist", err)
	}
	return exists, nil
}

// DoesEmailAddressExist reports whether emailHash is already registered.
func (d *DB) DoesEmailAddressExist(ctx context.Context, emailHash string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email_hash = $1)`, emailHash).Scan(&exists)
	if err != nil {
		return false, wrapErr("DoesEmailAddressExist", err)
	}
	return exists, nil
}

// UpdatePassword replaces both stored password representations
// (PasswordChange, spec.md §4.3).
func (d *DB) UpdatePassword(ctx context.Context, id int64, bcryptHash, loginVerifier string) error {
	_, err := d.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, login_verifier = $3 WHERE id = $1`,
		id, bcryptHash, loginVerifier)
	if err != nil {
		return wrapErr("UpdatePassword", err)
	}
	return nil
}

// UpdateEmailHash replaces the stored email hash (EmailChange, spec.md §4.3).
func (d *DB) UpdateEmailHash(ctx context.Context, id int64, emailHash string) error {
	_, err := d.pool.Exec(ctx, `UPDATE accounts SET email_hash = $2 WHERE id = $1`, id, emailHash)
	if err != nil {
		return wrapErr("UpdateEmailHash", err)
	}
	return nil
}

// SetAccountLevel updates an account's access level directly (used by
// CHANGE_ACCOUNT_LEVEL, spec.md §4.4).
func (d *DB) SetAccountLevel(ctx context.Context, id int64, level model.AccessLevel) error {
	_, err := d.pool.Exec(ctx, `UPDATE accounts SET level = $2 WHERE id = $1`, id, level)
	if err != nil {
		return wrapErr("SetAccountLevel", err)
	}
	return nil
}

// BanAccount flips the account's level to Banned, recording the prior
// level and the ban's end instant (spec.md §4.7, BAN_PLAYER, invariant 6).
func (d *DB) BanAccount(ctx context.Context, id int64, until time.Time) error {
	_, err := d.pool.Exec(ctx,
		`UPDATE accounts
		 SET prior_level = level, level = $2, banned_until = $3
		 WHERE id = $1 AND level != $2`,
		id, model.AccessBanned, until,
	)
	if err != nil {
		return wrapErr("BanAccount", err)
	}
	return nil
}

// CheckBannedAccounts reverts every account whose ban has expired back to
// its recorded prior level (spec.md §9 Open Questions: this implementation
// chooses to persist and restore the prior level rather than reset to
// Player, see DESIGN.md).
func (d *DB) CheckBannedAccounts(ctx context.Context, now time.Time) (int64, error) {
	tag, err := d.pool.Exec(ctx,
		`UPDATE accounts
		 SET level = prior_level, banned_until = NULL
		 WHERE level = $1 AND banned_until IS NOT NULL AND banned_until <= $2`,
		model.AccessBanned, now,
	)
	if err != nil {
		return 0, wrapErr("CheckBannedAccounts", err)
	}
	return tag.RowsAffected(), nil
}

// AccountIDForCharacter resolves the owning account id for a character,
// used by BAN_PLAYER and CHANGE_ACCOUNT_LEVEL (spec.md §4.4) which name a
// character but must act on its account.
func (d *DB) AccountIDForCharacter(ctx context.Context, charID int64) (int64, error) {
	var accID int64
	err := d.pool.QueryRow(ctx, `SELECT account_id FROM characters WHERE id = $1`, charID).Scan(&accID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, wrapErr("AccountIDForCharacter", err)
	}
	return accID, nil
}

func (d *DB) loadCharactersForAccount(ctx context.Context, accountID int64) (map[int]*model.Character, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id FROM characters WHERE account_id = $1 AND deleted_at IS NULL`, accountID)
	if err != nil {
		return nil, wrapErr("loadCharactersForAccount", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, wrapErr("loadCharactersForAccount", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrapErr("loadCharactersForAccount", err)
	}

	out := make(map[int]*model.Character, len(ids))
	for _, id := range ids {
		c, err := d.GetCharacterByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("storage: loading character %d for account %d: %w", id, accountID, err)
		}
		out[c.Slot] = c
	}
	return out, nil
}
