package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ReserveStorage charges size bytes against the user's quota. The
// charge is a single conditional update, so two concurrent writers can
// never push usage past the limit: whichever lands second sees the
// already raised counter and fails the predicate. On failure the
// current usage and limit are fetched to build the error detail.
func (q *Queries) ReserveStorage(ctx context.Context, userID int64, size int64) error {
	if size < 0 {
		return ErrValidation
	}
	if size == 0 {
		return nil
	}

	query := `
		UPDATE users
		SET storage_used_bytes = storage_used_bytes + $1
		WHERE id = $2 AND storage_used_bytes + $1 <= storage_limit_bytes
	`
	res, err := q.db.Exec(ctx, query, size, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() > 0 {
		return nil
	}

	var used, limit int64
	err = q.db.QueryRow(ctx, `SELECT storage_used_bytes, storage_limit_bytes FROM users WHERE id = $1`, userID).Scan(&used, &limit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	return &QuotaExceededError{Used: used, Limit: limit, Required: size}
}

// ReleaseStorage credits size bytes back to the user. The counter is
// clamped at zero so a stray double release cannot drive it negative.
func (q *Queries) ReleaseStorage(ctx context.Context, userID int64, size int64) error {
	if size <= 0 {
		return nil
	}

	query := `
		UPDATE users
		SET storage_used_bytes = GREATEST(storage_used_bytes - $1, 0)
		WHERE id = $2
	`
	res, err := q.db.Exec(ctx, query, size, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AdjustStorage applies a signed delta, reserving on growth and
// releasing on shrink. Overwriting a file's content funnels through
// here so only the difference is charged.
func (q *Queries) AdjustStorage(ctx context.Context, userID int64, delta int64) error {
	if delta > 0 {
		return q.ReserveStorage(ctx, userID, delta)
	}
	return q.ReleaseStorage(ctx, userID, -delta)
}
