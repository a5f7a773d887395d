package database

import (
	"context"
	"errors"
	"time"

	"github.com/09samuel/codekeeper-api-backend/internal/models"
	"github.com/jackc/pgx/v5"
)

type CreateAccountTokenParams struct {
	UserID    int64
	Purpose   string
	TokenHash string
	ExpiresAt time.Time
}

// CreateAccountToken stores a hashed verification or reset token.
// Any earlier token of the same purpose for the user is discarded so
// only the most recently issued one can be redeemed.
func (q *Queries) CreateAccountToken(ctx context.Context, arg CreateAccountTokenParams) (*models.AccountToken, error) {
	_, err := q.db.Exec(ctx, `DELETE FROM account_tokens WHERE user_id = $1 AND purpose = $2`, arg.UserID, arg.Purpose)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO account_tokens (user_id, purpose, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, purpose, token_hash, expires_at, created_at
	`
	var token models.AccountToken
	err = q.db.QueryRow(ctx, query, arg.UserID, arg.Purpose, arg.TokenHash, arg.ExpiresAt, time.Now()).Scan(
		&token.ID,
		&token.UserID,
		&token.Purpose,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &token, nil
}

// ConsumeAccountToken redeems a token in one statement: the row is
// deleted as it is read, so a token can never be used twice. Expired
// and unknown tokens both come back as ErrInvalidToken.
func (q *Queries) ConsumeAccountToken(ctx context.Context, purpose string, tokenHash string) (*models.AccountToken, error) {
	query := `
		DELETE FROM account_tokens
		WHERE purpose = $1 AND token_hash = $2 AND expires_at > now()
		RETURNING id, user_id, purpose, token_hash, expires_at, created_at
	`
	var token models.AccountToken
	err := q.db.QueryRow(ctx, query, purpose, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.Purpose,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return &token, nil
}
