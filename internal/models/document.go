package models

import "time"

const (
	DocTypeFile   = "file"
	DocTypeFolder = "folder"
)

type Document struct {
	ID          string    `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	ParentID    *string   `json:"parent_id"`
	Title       string    `json:"title"`
	DocType     string    `json:"doc_type"`
	ContentKey  *string   `json:"content_key,omitempty"`
	ContentSize int64     `json:"content_size"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
	ModifiedBy  *int64    `json:"modified_by,omitempty"`
}

type Collaborator struct {
	DocumentID string    `json:"document_id"`
	UserID     int64     `json:"user_id"`
	Permission string    `json:"permission"`
	AddedAt    time.Time `json:"added_at"`
	AddedBy    *int64    `json:"added_by,omitempty"`
}

// CollaboratorInfo is a collaborator entry joined with user profile data,
// the shape returned by the collaborator listing endpoints.
type CollaboratorInfo struct {
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Permission string    `json:"permission"`
	AddedAt    time.Time `json:"added_at"`
	AddedBy    *int64    `json:"added_by,omitempty"`
}
