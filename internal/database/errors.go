package database

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrDuplicateEmail      = errors.New("a user with that email already exists")
	ErrParentNotFound      = errors.New("parent folder does not exist")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrValidation          = errors.New("validation failed")
	ErrCollaboratorIsOwner = errors.New("the owner cannot be added as a collaborator")
)

// QuotaExceededError is returned when a reservation would push an
// owner's storage usage above their limit. It carries the figures the
// client needs to report the failure meaningfully.
type QuotaExceededError struct {
	Used     int64 `json:"used"`
	Limit    int64 `json:"limit"`
	Required int64 `json:"required"`
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("storage limit exceeded: used %d of %d bytes, %d more required", e.Used, e.Limit, e.Required)
}
