package database

import (
	"context"

	"github.com/09samuel/codekeeper-api-backend/internal/models"
)

// FindDescendantFiles returns every file transitively under folderID,
// at any depth. The traversal uses an explicit worklist of folder ids
// rather than native recursion, so stack usage stays flat on deep trees
// and a cancelled context stops the walk between levels.
func (q *Queries) FindDescendantFiles(ctx context.Context, folderID string) ([]models.Document, error) {
	var files []models.Document

	pending := []string{folderID}
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := pending[0]
		pending = pending[1:]

		children, err := q.ListChildren(ctx, id)
		if err != nil {
			return nil, err
		}

		for _, child := range children {
			if child.DocType == models.DocTypeFolder {
				pending = append(pending, child.ID)
			} else {
				files = append(files, child)
			}
		}
	}

	return files, nil
}

// CollectSubtree returns every descendant of folderID (files and
// folders) in breadth-first order, shallowest first. Deleting the slice
// in reverse therefore removes children before their parents.
func (q *Queries) CollectSubtree(ctx context.Context, folderID string) ([]models.Document, error) {
	var subtree []models.Document

	pending := []string{folderID}
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := pending[0]
		pending = pending[1:]

		children, err := q.ListChildren(ctx, id)
		if err != nil {
			return nil, err
		}

		for _, child := range children {
			subtree = append(subtree, child)
			if child.DocType == models.DocTypeFolder {
				pending = append(pending, child.ID)
			}
		}
	}

	return subtree, nil
}
