package database

import (
	"context"
	"errors"
	"time"

	"github.com/09samuel/codekeeper-api-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (*models.User, error) {
	if arg.Name == "" || arg.Email == "" || arg.PasswordHash == "" {
		return nil, ErrValidation
	}

	query := `
		INSERT INTO users (name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, password_hash, is_verified, created_at, storage_limit_bytes, storage_used_bytes
	`
	var user models.User
	err := q.db.QueryRow(ctx, query, arg.Name, arg.Email, arg.PasswordHash, time.Now()).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.IsVerified,
		&user.CreatedAt,
		&user.StorageLimitBytes,
		&user.StorageUsedBytes,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	return &user, nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, is_verified, created_at, storage_limit_bytes, storage_used_bytes
		FROM users
		WHERE email = $1
	`
	var user models.User
	err := q.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.IsVerified,
		&user.CreatedAt,
		&user.StorageLimitBytes,
		&user.StorageUsedBytes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, is_verified, created_at, storage_limit_bytes, storage_used_bytes
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := q.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.IsVerified,
		&user.CreatedAt,
		&user.StorageLimitBytes,
		&user.StorageUsedBytes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (q *Queries) MarkUserVerified(ctx context.Context, id int64) error {
	res, err := q.db.Exec(ctx, `UPDATE users SET is_verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := q.db.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
