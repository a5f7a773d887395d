package database

import (
	"context"
	"errors"
	"time"

	"github.com/09samuel/codekeeper-api-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CreateSessionParams struct {
	ID               uuid.UUID
	UserID           int64
	RefreshTokenHash string
	UserAgent        string
	ClientIP         string
	ExpiresAt        time.Time
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (*models.Session, error) {
	query := `
		INSERT INTO sessions (id, user_id, refresh_token_hash, user_agent, client_ip, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, user_id, refresh_token_hash, user_agent, client_ip, expires_at, created_at
	`
	var session models.Session
	err := q.db.QueryRow(ctx, query,
		arg.ID, arg.UserID, arg.RefreshTokenHash, arg.UserAgent, arg.ClientIP, arg.ExpiresAt, time.Now(),
	).Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshTokenHash,
		&session.UserAgent,
		&session.ClientIP,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// GetSessionByTokenHash looks a session up by the hash of its refresh
// token. Presenting the raw token never touches the database.
func (q *Queries) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	query := `
		SELECT id, user_id, refresh_token_hash, user_agent, client_ip, expires_at, created_at
		FROM sessions
		WHERE refresh_token_hash = $1
	`
	var session models.Session
	err := q.db.QueryRow(ctx, query, tokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshTokenHash,
		&session.UserAgent,
		&session.ClientIP,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &session, nil
}

// RotateSessionToken swaps the stored hash for a new one, invalidating
// the presented refresh token in the same statement that issues its
// replacement.
func (q *Queries) RotateSessionToken(ctx context.Context, sessionID uuid.UUID, newHash string, expiresAt time.Time) error {
	query := `
		UPDATE sessions
		SET refresh_token_hash = $1, expires_at = $2
		WHERE id = $3
	`
	res, err := q.db.Exec(ctx, query, newHash, expiresAt, sessionID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrInvalidToken
	}
	return nil
}

func (q *Queries) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	return err
}

// DeleteUserSessions revokes every refresh token a user holds. Run
// after a password reset.
func (q *Queries) DeleteUserSessions(ctx context.Context, userID int64) (int64, error) {
	res, err := q.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func (q *Queries) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := q.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}
