package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/09samuel/codekeeper-api-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type CreateDocumentParams struct {
	ID       string
	OwnerID  int64
	ParentID *string
	Title    string
	DocType  string
}

func (q *Queries) CreateDocument(ctx context.Context, arg CreateDocumentParams) (*models.Document, error) {
	if strings.TrimSpace(arg.Title) == "" {
		return nil, ErrValidation
	}
	if arg.OwnerID == 0 {
		return nil, ErrValidation
	}
	if arg.DocType != models.DocTypeFile && arg.DocType != models.DocTypeFolder {
		return nil, ErrValidation
	}

	query := `
		INSERT INTO documents (id, owner_id, parent_id, title, doc_type, created_at, modified_at, modified_by)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $2)
		RETURNING id, owner_id, parent_id, title, doc_type, content_key, content_size, created_at, modified_at, modified_by
	`
	now := time.Now()

	row := q.db.QueryRow(ctx, query,
		arg.ID,
		arg.OwnerID,
		arg.ParentID,
		arg.Title,
		arg.DocType,
		now,
	)

	var doc models.Document
	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.ParentID,
		&doc.Title,
		&doc.DocType,
		&doc.ContentKey,
		&doc.ContentSize,
		&doc.CreatedAt,
		&doc.ModifiedAt,
		&doc.ModifiedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrParentNotFound
		}
		return nil, err
	}

	return &doc, nil
}

func (q *Queries) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	query := `
		SELECT id, owner_id, parent_id, title, doc_type, content_key, content_size, created_at, modified_at, modified_by
		FROM documents
		WHERE id = $1
	`
	var doc models.Document
	err := q.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.ParentID,
		&doc.Title,
		&doc.DocType,
		&doc.ContentKey,
		&doc.ContentSize,
		&doc.CreatedAt,
		&doc.ModifiedAt,
		&doc.ModifiedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &doc, nil
}

func (q *Queries) DocumentExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM documents WHERE id = $1)"
	err := q.db.QueryRow(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ListChildren returns the direct children of a folder, folders first.
// It is the building block for subtree traversal; callers that need the
// whole subtree iterate explicitly (see walk.go).
func (q *Queries) ListChildren(ctx context.Context, parentID string) ([]models.Document, error) {
	query := `
		SELECT id, owner_id, parent_id, title, doc_type, content_key, content_size, created_at, modified_at, modified_by
		FROM documents
		WHERE parent_id = $1
		ORDER BY doc_type DESC, title
	`
	rows, err := q.db.Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// ListVisibleDocuments returns the documents under parentID (root level
// when parentID is nil) that userID either owns or collaborates on.
func (q *Queries) ListVisibleDocuments(ctx context.Context, userID int64, parentID *string) ([]models.Document, error) {
	var rows pgx.Rows
	var err error

	if parentID == nil {
		query := `
			SELECT DISTINCT d.id, d.owner_id, d.parent_id, d.title, d.doc_type, d.content_key, d.content_size, d.created_at, d.modified_at, d.modified_by
			FROM documents d
			LEFT JOIN collaborators c ON c.document_id = d.id
			WHERE d.parent_id IS NULL AND (d.owner_id = $1 OR c.user_id = $1)
			ORDER BY d.doc_type DESC, d.title
		`
		rows, err = q.db.Query(ctx, query, userID)
	} else {
		query := `
			SELECT DISTINCT d.id, d.owner_id, d.parent_id, d.title, d.doc_type, d.content_key, d.content_size, d.created_at, d.modified_at, d.modified_by
			FROM documents d
			LEFT JOIN collaborators c ON c.document_id = d.id
			WHERE d.parent_id = $2 AND (d.owner_id = $1 OR c.user_id = $1)
			ORDER BY d.doc_type DESC, d.title
		`
		rows, err = q.db.Query(ctx, query, userID, *parentID)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func (q *Queries) RenameDocument(ctx context.Context, id string, newTitle string, modifiedBy int64) (bool, error) {
	if strings.TrimSpace(newTitle) == "" {
		return false, ErrValidation
	}

	query := `
		UPDATE documents
		SET title = $1, modified_at = $2, modified_by = $3
		WHERE id = $4
	`
	res, err := q.db.Exec(ctx, query, newTitle, time.Now(), modifiedBy, id)
	if err != nil {
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

// SetDocumentContent records the content reference and size after the
// content store confirmed the write.
func (q *Queries) SetDocumentContent(ctx context.Context, id string, contentKey string, contentSize int64, modifiedBy int64) (bool, error) {
	query := `
		UPDATE documents
		SET content_key = $1, content_size = $2, modified_at = $3, modified_by = $4
		WHERE id = $5 AND doc_type = 'file'
	`
	res, err := q.db.Exec(ctx, query, contentKey, contentSize, time.Now(), modifiedBy, id)
	if err != nil {
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

func (q *Queries) TouchDocument(ctx context.Context, id string, modifiedBy int64) error {
	query := `UPDATE documents SET modified_at = $1, modified_by = $2 WHERE id = $3`
	_, err := q.db.Exec(ctx, query, time.Now(), modifiedBy, id)
	return err
}

// DeleteDocument removes a single document record. Deleting a folder
// does not remove its children; subtree deletion walks children first
// (see DeleteDocumentTree).
func (q *Queries) DeleteDocument(ctx context.Context, id string) (bool, error) {
	res, err := q.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func scanDocuments(rows pgx.Rows) ([]models.Document, error) {
	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		err := rows.Scan(
			&doc.ID,
			&doc.OwnerID,
			&doc.ParentID,
			&doc.Title,
			&doc.DocType,
			&doc.ContentKey,
			&doc.ContentSize,
			&doc.CreatedAt,
			&doc.ModifiedAt,
			&doc.ModifiedBy,
		)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if docs == nil {
		return []models.Document{}, nil
	}

	return docs, nil
}
