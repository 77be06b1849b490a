package storage

import (
	"context"

	"github.com/wyrmwatch/worldserver/internal/model"
)

// StoreLetter persists a new letter with its attachments atomically,
// enforcing no caps itself. The gslink STORE_POST handler checks
// mail_maxAttachments before calling; no caller checks mail_maxLetters,
// so an inbox's letter count is not capped.
func (d *DB) StoreLetter(ctx context.Context, l *model.Letter) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return wrapErr("StoreLetter:begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx,
		`INSERT INTO post (sender_id, receiver_id, type, expiry, sent, text)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		l.SenderID, l.ReceiverID, l.Type, l.Expiry, l.Sent, l.Text).Scan(&l.ID); err != nil {
		return wrapErr("StoreLetter", err)
	}
	for _, att := range l.Attachments {
		if _, err := tx.Exec(ctx,
			`INSERT INTO post_attachments (post_id, item_id, amount) VALUES ($1,$2,$3)`,
			l.ID, att.ItemID, att.Amount); err != nil {
			return wrapErr("StoreLetter:attachment", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapErr("StoreLetter:commit", err)
	}
	return nil
}

// GetStoredPost returns every letter addressed to receiverID (the
// REQUEST_POST reply body, spec.md §4.4).
func (d *DB) GetStoredPost(ctx context.Context, receiverID int64) ([]model.Letter, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, sender_id, receiver_id, type, expiry, sent, text
		 FROM post WHERE receiver_id = $1 ORDER BY sent`, receiverID)
	if err != nil {
		return nil, wrapErr("GetStoredPost", err)
	}
	defer rows.Close()

	var letters []model.Letter
	for rows.Next() {
		var l model.Letter
		if err := rows.Scan(&l.ID, &l.SenderID, &l.ReceiverID, &l.Type, &l.Expiry, &l.Sent, &l.Text); err != nil {
			return nil, wrapErr("GetStoredPost", err)
		}
		letters = append(letters, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("GetStoredPost", err)
	}

	for i := range letters {
		attRows, err := d.pool.Query(ctx,
			`SELECT item_id, amount FROM post_attachments WHERE post_id = $1`, letters[i].ID)
		if err != nil {
			return nil, wrapErr("GetStoredPost:attachments", err)
		}
		for attRows.Next() {
			var a model.Attachment
			if err := attRows.Scan(&a.ItemID, &a.Amount); err != nil {
				attRows.Close()
				return nil, wrapErr("GetStoredPost:attachments", err)
			}
			letters[i].Attachments = append(letters[i].Attachments, a)
		}
		attRows.Close()
		if err := attRows.Err(); err != nil {
			return nil, wrapErr("GetStoredPost:attachments", err)
		}
	}
	return letters, nil
}

// DeletePost consumes a letter (REQUEST_POST clears the inbox as it
// returns it, spec.md §4.4); attachments cascade via FK.
func (d *DB) DeletePost(ctx context.Context, letterID int64) error {
	_, err := d.pool.Exec(ctx, `DELETE FROM post WHERE id = $1`, letterID)
	if err != nil {
		return wrapErr("DeletePost", err)
	}
	return nil
}

// CountInbox reports how many letters receiverID currently holds.
func (d *DB) CountInbox(ctx context.Context, receiverID int64) (int, error) {
	var n int
	err := d.pool.QueryRow(ctx, `SELECT count(*) FROM post WHERE receiver_id = $1`, receiverID).Scan(&n)
	if err != nil {
		return 0, wrapErr("CountInbox", err)
	}
	return n, nil
}
