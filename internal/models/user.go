package models

import "time"

type User struct {
	ID                int64     `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Email             string    `json:"email" db:"email"`
	PasswordHash      string    `json:"-" db:"password_hash"`
	IsVerified        bool      `json:"is_verified" db:"is_verified"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	StorageLimitBytes int64     `json:"storage_limit_bytes" db:"storage_limit_bytes"`
	StorageUsedBytes  int64     `json:"storage_used_bytes" db:"storage_used_bytes"`
}
