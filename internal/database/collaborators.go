package database

import (
	"context"
	"errors"
	"time"

	"github.com/09samuel/codekeeper-api-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type AddCollaboratorParams struct {
	UserID     int64
	Permission string
	AddedBy    int64
}

// AddCollaborator inserts a collaborator entry on a single document.
// It reports whether an entry was actually inserted; an existing entry
// for the same user is a no-op, not an error.
func (q *Queries) AddCollaborator(ctx context.Context, documentID string, arg AddCollaboratorParams) (bool, error) {
	query := `
		INSERT INTO collaborators (document_id, user_id, permission, added_at, added_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (document_id, user_id) DO NOTHING
	`
	res, err := q.db.Exec(ctx, query, documentID, arg.UserID, arg.Permission, time.Now(), arg.AddedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, ErrUserNotFound
		}
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

// UpdateCollaboratorPermission overwrites the permission of an existing
// collaborator entry. It reports whether a matching entry was present.
func (q *Queries) UpdateCollaboratorPermission(ctx context.Context, documentID string, userID int64, permission string) (bool, error) {
	query := `
		UPDATE collaborators
		SET permission = $1
		WHERE document_id = $2 AND user_id = $3
	`
	res, err := q.db.Exec(ctx, query, permission, documentID, userID)
	if err != nil {
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

// RemoveCollaborator deletes the entry for userID if present. Removal
// is idempotent: a missing entry is reported as false, never an error.
func (q *Queries) RemoveCollaborator(ctx context.Context, documentID string, userID int64) (bool, error) {
	query := `DELETE FROM collaborators WHERE document_id = $1 AND user_id = $2`
	res, err := q.db.Exec(ctx, query, documentID, userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) ListCollaborators(ctx context.Context, documentID string) ([]models.CollaboratorInfo, error) {
	query := `
		SELECT c.user_id, u.name, u.email, c.permission, c.added_at, c.added_by
		FROM collaborators c
		JOIN users u ON u.id = c.user_id
		WHERE c.document_id = $1
		ORDER BY c.added_at
	`
	rows, err := q.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collaborators []models.CollaboratorInfo
	for rows.Next() {
		var c models.CollaboratorInfo
		if err := rows.Scan(&c.UserID, &c.Name, &c.Email, &c.Permission, &c.AddedAt, &c.AddedBy); err != nil {
			return nil, err
		}
		collaborators = append(collaborators, c)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if collaborators == nil {
		return []models.CollaboratorInfo{}, nil
	}

	return collaborators, nil
}

// ResolvePermission computes the effective access level of userID on a
// document: owners resolve to owner, collaborators to their granted
// permission, everyone else to none. This is the single source of truth
// consulted by every gated operation.
func (q *Queries) ResolvePermission(ctx context.Context, doc *models.Document, userID int64) (models.Permission, error) {
	if doc.OwnerID == userID {
		return models.PermissionOwner, nil
	}

	var permission string
	query := `SELECT permission FROM collaborators WHERE document_id = $1 AND user_id = $2`
	err := q.db.QueryRow(ctx, query, doc.ID, userID).Scan(&permission)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PermissionNone, nil
		}
		return models.PermissionNone, err
	}

	return models.Permission(permission), nil
}

// GetDocumentRecipients returns the user ids that should receive events
// about a document: its owner plus every current collaborator.
func (q *Queries) GetDocumentRecipients(ctx context.Context, documentID string) ([]int64, error) {
	query := `
		SELECT owner_id FROM documents WHERE id = $1
		UNION
		SELECT user_id FROM collaborators WHERE document_id = $1
	`
	rows, err := q.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		recipients = append(recipients, id)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return recipients, nil
}

// AddCollaboratorToTree inserts a collaborator on the target document
// and, when the target is a folder, on every descendant file. A file is
// skipped when the grantee already owns it: a document's owner is never
// also listed among its collaborators. The returned slice holds the ids
// of the documents into which an entry was actually inserted; only
// those are notified.
func (s *Store) AddCollaboratorToTree(ctx context.Context, target *models.Document, arg AddCollaboratorParams) ([]string, error) {
	if arg.UserID == target.OwnerID {
		return nil, ErrCollaboratorIsOwner
	}

	var affected []string

	added, err := s.AddCollaborator(ctx, target.ID, arg)
	if err != nil {
		return affected, err
	}
	if added {
		affected = append(affected, target.ID)
	}

	if target.DocType != models.DocTypeFolder {
		return affected, nil
	}

	files, err := s.FindDescendantFiles(ctx, target.ID)
	if err != nil {
		return affected, err
	}

	for _, file := range files {
		if file.OwnerID == arg.UserID {
			continue
		}
		added, err := s.AddCollaborator(ctx, file.ID, arg)
		if err != nil {
			return affected, err
		}
		if added {
			affected = append(affected, file.ID)
		}
	}

	return affected, nil
}

// UpdateCollaboratorInTree overwrites the grantee's permission on the
// target and, for folders, on every descendant file that shares the
// folder's owner. Files owned by someone else keep their own grant
// record untouched; the folder owner has no say over those. Affected
// documents are the ones that had a matching entry.
func (s *Store) UpdateCollaboratorInTree(ctx context.Context, target *models.Document, collaboratorID int64, permission string, modifiedBy int64) ([]string, error) {
	var affected []string

	updated, err := s.UpdateCollaboratorPermission(ctx, target.ID, collaboratorID, permission)
	if err != nil {
		return affected, err
	}
	if updated {
		if err := s.TouchDocument(ctx, target.ID, modifiedBy); err != nil {
			return affected, err
		}
		affected = append(affected, target.ID)
	}

	if target.DocType != models.DocTypeFolder {
		return affected, nil
	}

	files, err := s.FindDescendantFiles(ctx, target.ID)
	if err != nil {
		return affected, err
	}

	for _, file := range files {
		if file.OwnerID != target.OwnerID {
			continue
		}
		updated, err := s.UpdateCollaboratorPermission(ctx, file.ID, collaboratorID, permission)
		if err != nil {
			return affected, err
		}
		if updated {
			if err := s.TouchDocument(ctx, file.ID, modifiedBy); err != nil {
				return affected, err
			}
			affected = append(affected, file.ID)
		}
	}

	return affected, nil
}

// RemoveCollaboratorFromTree deletes the grantee's entry on the target
// and on every same-owner descendant file. The target id is always in
// the returned slice regardless of whether an entry existed there, so
// its removal event is emitted unconditionally; descendants are only
// included when an entry was actually removed.
func (s *Store) RemoveCollaboratorFromTree(ctx context.Context, target *models.Document, collaboratorID int64) ([]string, error) {
	affected := []string{target.ID}

	if _, err := s.RemoveCollaborator(ctx, target.ID, collaboratorID); err != nil {
		return affected, err
	}

	if target.DocType != models.DocTypeFolder {
		return affected, nil
	}

	files, err := s.FindDescendantFiles(ctx, target.ID)
	if err != nil {
		return affected, err
	}

	for _, file := range files {
		if file.OwnerID != target.OwnerID {
			continue
		}
		removed, err := s.RemoveCollaborator(ctx, file.ID, collaboratorID)
		if err != nil {
			return affected, err
		}
		if removed {
			affected = append(affected, file.ID)
		}
	}

	return affected, nil
}
