package database

import (
	"context"

	"github.com/09samuel/codekeeper-api-backend/internal/models"
)

// DeletedFile describes a file row removed by DeleteDocumentTree. The
// caller uses the key to delete the stored content and the size to
// release the owner's quota.
type DeletedFile struct {
	ID          string
	ContentKey  *string
	ContentSize int64
}

// DeleteDocumentTree removes the target document and, for folders, its
// entire subtree. Children are deleted before their parents so the
// parent_id reference never dangles mid-walk. It returns the file rows
// that were removed along with the total bytes they occupied; content
// cleanup and quota release are the caller's responsibility.
func (q *Queries) DeleteDocumentTree(ctx context.Context, target *models.Document) ([]DeletedFile, int64, error) {
	var files []DeletedFile
	var reclaimed int64

	record := func(doc *models.Document) {
		if doc.DocType != models.DocTypeFile {
			return
		}
		files = append(files, DeletedFile{ID: doc.ID, ContentKey: doc.ContentKey, ContentSize: doc.ContentSize})
		reclaimed += doc.ContentSize
	}

	if target.DocType == models.DocTypeFolder {
		subtree, err := q.CollectSubtree(ctx, target.ID)
		if err != nil {
			return files, reclaimed, err
		}
		for i := len(subtree) - 1; i >= 0; i-- {
			doc := subtree[i]
			if _, err := q.DeleteDocument(ctx, doc.ID); err != nil {
				return files, reclaimed, err
			}
			record(&doc)
		}
	}

	if _, err := q.DeleteDocument(ctx, target.ID); err != nil {
		return files, reclaimed, err
	}
	record(target)

	return files, reclaimed, nil
}

// InheritParentCollaborators copies the parent folder's collaborator
// set onto a freshly created document, minus the creator's own entry.
// When the creator is not the folder's owner, the owner is added as an
// edit collaborator so the folder owner keeps access to everything that
// appears inside their folder. Returns the ids of users granted access.
func (q *Queries) InheritParentCollaborators(ctx context.Context, doc *models.Document, parent *models.Document, creatorID int64) ([]int64, error) {
	var granted []int64

	parentCollaborators, err := q.ListCollaborators(ctx, parent.ID)
	if err != nil {
		return granted, err
	}

	for _, c := range parentCollaborators {
		if c.UserID == creatorID || c.UserID == doc.OwnerID {
			continue
		}
		added, err := q.AddCollaborator(ctx, doc.ID, AddCollaboratorParams{
			UserID:     c.UserID,
			Permission: c.Permission,
			AddedBy:    creatorID,
		})
		if err != nil {
			return granted, err
		}
		if added {
			granted = append(granted, c.UserID)
		}
	}

	if parent.OwnerID != creatorID && parent.OwnerID != doc.OwnerID {
		added, err := q.AddCollaborator(ctx, doc.ID, AddCollaboratorParams{
			UserID:     parent.OwnerID,
			Permission: string(models.PermissionEdit),
			AddedBy:    creatorID,
		})
		if err != nil {
			return granted, err
		}
		if added {
			granted = append(granted, parent.OwnerID)
		}
	}

	return granted, nil
}
