package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/09samuel/codekeeper-api-backend/internal/database"
	"github.com/09samuel/codekeeper-api-backend/internal/models"
	"github.com/09samuel/codekeeper-api-backend/internal/notify"
	"github.com/go-chi/chi/v5"
	"github.com/jaevor/go-nanoid"
)

func (s *Server) generateUniqueID(ctx context.Context) (string, error) {
	maxRetries := 10

	generateID, err := nanoid.Standard(21)
	if err != nil {
		return "", fmt.Errorf("failed to initialize nanoid generator: %w", err)
	}

	for i := 0; i < maxRetries; i++ {
		id := generateID()
		exists, err := s.store.DocumentExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check for document existence: %w", err)
		}
		if !exists {
			return id, nil
		}
	}

	return "", fmt.Errorf("failed to generate a unique ID after %d attempts", maxRetries)
}

// contentKeyFor derives the storage key of a file from its id and
// title. The title's extension is kept so editors can detect language;
// files without one fall back to .txt.
func contentKeyFor(id, title string) string {
	ext := path.Ext(title)
	if ext == "" || ext == "." {
		ext = ".txt"
	}
	return "files/" + id + ext
}

func (s *Server) eventActor(ctx context.Context) notify.Actor {
	claims := GetUserFromContext(ctx)
	actor := notify.Actor{ID: claims.UserID, Email: claims.Email}
	if user, err := s.store.GetUserByID(ctx, claims.UserID); err == nil && user != nil {
		actor.Name = user.Name
	}
	return actor
}

func enqueueEvent(ctx context.Context, q *database.Queries, docID, eventType string, recipients []int64, detail map[string]any) error {
	payload, err := notify.BuildPayload(docID, recipients, detail)
	if err != nil {
		return err
	}
	_, err = q.EnqueueEvent(ctx, docID, eventType, payload)
	return err
}

func writeQuotaError(w http.ResponseWriter, qErr *database.QuotaExceededError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusRequestEntityTooLarge)
	json.NewEncoder(w).Encode(map[string]any{
		"error":    "Storage limit exceeded",
		"used":     qErr.Used,
		"limit":    qErr.Limit,
		"required": qErr.Required,
	})
}

// loadDocumentWithAccess fetches a document and resolves the caller's
// permission on it. Documents the caller cannot see are reported as not
// found rather than forbidden, so ids cannot be probed.
func (s *Server) loadDocumentWithAccess(w http.ResponseWriter, r *http.Request, docID string) (*models.Document, models.Permission, bool) {
	claims := GetUserFromContext(r.Context())

	doc, err := s.store.GetDocumentByID(r.Context(), docID)
	if err != nil {
		http.Error(w, "Failed to retrieve document", http.StatusInternalServerError)
		return nil, models.PermissionNone, false
	}
	if doc == nil {
		http.Error(w, "Document not found", http.StatusNotFound)
		return nil, models.PermissionNone, false
	}

	perm, err := s.store.ResolvePermission(r.Context(), doc, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to resolve permission", http.StatusInternalServerError)
		return nil, models.PermissionNone, false
	}
	if !perm.CanView() {
		http.Error(w, "Document not found", http.StatusNotFound)
		return nil, models.PermissionNone, false
	}

	return doc, perm, true
}

type CreateFileRequest struct {
	Title    string  `json:"title" example:"main.go"`
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id"`
}

// @Summary      Create a file
// @Description  Creates a file document, stores its initial content and charges the owner's quota. Files created inside a shared folder inherit the folder's collaborators.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        createFileRequest   body      CreateFileRequest  true  "File data"
// @Success      201  {object}  models.Document
// @Failure      400  {string}  string "Invalid request"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Parent folder not found"
// @Failure      413  {object}  map[string]interface{} "Storage limit exceeded"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /documents/file [post]
func (s *Server) CreateFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req CreateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		http.Error(w, "Title cannot be empty", http.StatusBadRequest)
		return
	}

	var parent *models.Document
	if req.ParentID != nil {
		if len(*req.ParentID) != 21 {
			http.Error(w, "Invalid ParentID format", http.StatusBadRequest)
			return
		}
		var ok bool
		parent, _, ok = s.loadDocumentWithAccess(w, r, *req.ParentID)
		if !ok {
			return
		}
		if parent.DocType != models.DocTypeFolder {
			http.Error(w, "Parent must be a folder", http.StatusBadRequest)
			return
		}
	}

	size := int64(len(req.Content))
	if err := s.store.ReserveStorage(r.Context(), claims.UserID, size); err != nil {
		var qErr *database.QuotaExceededError
		if errors.As(err, &qErr) {
			writeQuotaError(w, qErr)
			return
		}
		http.Error(w, "Failed to reserve storage", http.StatusInternalServerError)
		return
	}

	docID, err := s.generateUniqueID(r.Context())
	if err != nil {
		s.releaseReserved(r.Context(), claims.UserID, size)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	contentKey := contentKeyFor(docID, req.Title)
	if err := s.storage.Put(contentKey, strings.NewReader(req.Content)); err != nil {
		log.Printf("ERROR: Failed to store content for %s: %v", docID, err)
		s.releaseReserved(r.Context(), claims.UserID, size)
		http.Error(w, "Failed to store file content", http.StatusInternalServerError)
		return
	}

	var doc *models.Document

	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		doc, err = q.CreateDocument(r.Context(), database.CreateDocumentParams{
			ID:       docID,
			OwnerID:  claims.UserID,
			ParentID: req.ParentID,
			Title:    req.Title,
			DocType:  models.DocTypeFile,
		})
		if err != nil {
			return err
		}

		if _, err := q.SetDocumentContent(r.Context(), docID, contentKey, size, claims.UserID); err != nil {
			return err
		}
		doc.ContentKey = &contentKey
		doc.ContentSize = size

		if parent != nil {
			if _, err := q.InheritParentCollaborators(r.Context(), doc, parent, claims.UserID); err != nil {
				return err
			}

			recipients, err := q.GetDocumentRecipients(r.Context(), parent.ID)
			if err != nil {
				return err
			}
			return enqueueEvent(r.Context(), q, parent.ID, notify.EventDocumentCreated, recipients, map[string]any{
				"document":  doc,
				"createdBy": s.eventActor(r.Context()),
			})
		}

		return nil
	})

	if txErr != nil {
		if err := s.storage.Delete(contentKey); err != nil {
			log.Printf("WARN: Failed to remove content %s after rollback: %v", contentKey, err)
		}
		s.releaseReserved(r.Context(), claims.UserID, size)

		if errors.Is(txErr, database.ErrParentNotFound) {
			http.Error(w, "Parent folder does not exist", http.StatusBadRequest)
			return
		}
		log.Printf("ERROR: Failed to create file: %v", txErr)
		http.Error(w, "Failed to create file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(doc)
}

// releaseReserved undoes a quota reservation after a failed create.
// Failure here only logs: the counter drifts high rather than negative
// and the next successful delete corrects it.
func (s *Server) releaseReserved(ctx context.Context, userID, size int64) {
	if err := s.store.ReleaseStorage(ctx, userID, size); err != nil {
		log.Printf("WARN: Failed to release %d reserved bytes for user %d: %v", size, userID, err)
	}
}

type CreateFolderRequest struct {
	Title    string  `json:"title" example:"projects"`
	ParentID *string `json:"parent_id"`
}

// @Summary      Create a folder
// @Description  Creates a folder document. Folders occupy no storage quota.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        createFolderRequest   body      CreateFolderRequest  true  "Folder data"
// @Success      201  {object}  models.Document
// @Failure      400  {string}  string "Invalid request"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Parent folder not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /documents/folder [post]
func (s *Server) CreateFolderHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		http.Error(w, "Folder title is required", http.StatusBadRequest)
		return
	}

	var parent *models.Document
	if req.ParentID != nil {
		if len(*req.ParentID) != 21 {
			http.Error(w, "Invalid ParentID format", http.StatusBadRequest)
			return
		}
		var ok bool
		parent, _, ok = s.loadDocumentWithAccess(w, r, *req.ParentID)
		if !ok {
			return
		}
		if parent.DocType != models.DocTypeFolder {
			http.Error(w, "Parent must be a folder", http.StatusBadRequest)
			return
		}
	}

	docID, err := s.generateUniqueID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var doc *models.Document

	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		doc, err = q.CreateDocument(r.Context(), database.CreateDocumentParams{
			ID:       docID,
			OwnerID:  claims.UserID,
			ParentID: req.ParentID,
			Title:    req.Title,
			DocType:  models.DocTypeFolder,
		})
		if err != nil {
			return err
		}

		if parent != nil {
			recipients, err := q.GetDocumentRecipients(r.Context(), parent.ID)
			if err != nil {
				return err
			}
			return enqueueEvent(r.Context(), q, parent.ID, notify.EventDocumentCreated, recipients, map[string]any{
				"document":  doc,
				"createdBy": s.eventActor(r.Context()),
			})
		}

		return nil
	})

	if txErr != nil {
		if errors.Is(txErr, database.ErrParentNotFound) {
			http.Error(w, "Parent folder does not exist", http.StatusBadRequest)
			return
		}
		log.Printf("ERROR: Failed to create folder: %v", txErr)
		http.Error(w, "Failed to create folder", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(doc)
}

type DocumentResponse struct {
	models.Document
	IsOwner        bool    `json:"is_owner"`
	UserPermission string  `json:"user_permission"`
	SharedBy       *string `json:"shared_by,omitempty"`
}

// @Summary      List documents
// @Description  Lists the documents visible to the caller in a folder, or at the root when no folder is given. Folders sort before files.
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        folder  query     string  false  "Folder ID"
// @Success      200  {array}   DocumentResponse
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /documents [get]
func (s *Server) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	folderIDStr := r.URL.Query().Get("folder")
	var folderID *string
	if folderIDStr != "" {
		folderID = &folderIDStr
	}

	docs, err := s.store.ListVisibleDocuments(r.Context(), claims.UserID, folderID)
	if err != nil {
		http.Error(w, "Failed to list documents", http.StatusInternalServerError)
		return
	}

	response := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		doc := docs[i]
		perm, err := s.store.ResolvePermission(r.Context(), &doc, claims.UserID)
		if err != nil {
			http.Error(w, "Failed to resolve permissions", http.StatusInternalServerError)
			return
		}

		entry := DocumentResponse{
			Document:       doc,
			IsOwner:        perm == models.PermissionOwner,
			UserPermission: string(perm),
		}
		if perm != models.PermissionOwner {
			if owner, err := s.store.GetUserByID(r.Context(), doc.OwnerID); err == nil && owner != nil {
				entry.SharedBy = &owner.Name
			}
		}
		response = append(response, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

type DocumentDetailResponse struct {
	models.Document
	Content        string `json:"content"`
	UserPermission string `json:"user_permission"`
}

// @Summary      Get a document
// @Description  Retrieves a document with its content and the caller's effective permission.
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        docId  path      string  true  "Document ID"
// @Success      200  {object}  DocumentDetailResponse
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Document not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /documents/{docId} [get]
func (s *Server) GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docId")

	doc, perm, ok := s.loadDocumentWithAccess(w, r, docID)
	if !ok {
		return
	}

	var content string
	if doc.DocType == models.DocTypeFile && doc.ContentKey != nil {
		stream, err := s.storage.Get(*doc.ContentKey)
		if err != nil {
			// A missing object behind a valid row reads as empty
			// content rather than an error.
			log.Printf("WARN: Content %s for document %s unavailable: %v", *doc.ContentKey, doc.ID, err)
		} else {
			data, err := io.ReadAll(stream)
			stream.Close()
			if err != nil {
				http.Error(w, "Failed to read document content", http.StatusInternalServerError)
				return
			}
			content = string(data)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DocumentDetailResponse{
		Document:       *doc,
		Content:        content,
		UserPermission: string(perm),
	})
}

// @Summary      Get effective permission
// @Description  Reports the caller's effective permission on a document.
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        docId  path      string  true  "Document ID"
// @Success      200  {object}  map[string]string
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Document not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /documents/{docId}/permission [get]
func (s *Server) GetPermissionHandler(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docId")

	_, perm, ok := s.loadDocumentWithAccess(w, r, docID)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"permission": string(perm)})
}

// @Summary      Check ownership
// @Description  Reports whether the caller owns a document. Unknown or invisible documents report not owned with a 404 status.
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        docId  path      string  true  "Document ID"
// @Success      200  {object}  map[string]bool
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {object}  map[string]bool
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /documents/{docId}/ownership [get]
func (s *Server) CheckOwnershipHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	docID := chi.URLParam(r, "docId")

	w.Header().Set("Content-Type", "application/json")

	doc, err := s.store.GetDocumentByID(r.Context(), docID)
	if err != nil {
		http.Error(w, "Failed to retrieve document", http.StatusInternalServerError)
		return
	}
	if doc == nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]bool{"is_owner": false})
		return
	}

	perm, err := s.store.ResolvePermission(r.Context(), doc, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to resolve permission", http.StatusInternalServerError)
		return
	}
	if !perm.CanView() {
		// Invisible documents look like missing ones here too.
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]bool{"is_owner": false})
		return
	}

	json.NewEncoder(w).Encode(map[string]bool{"is_owner": perm.CanManage()})
}

type RenameDocumentRequest struct {
	Title string `json:"title" example:"renamed.go"`
}

// @Summary      Rename a document
// @Description  Renames a file or folder. Requires edit permission. The stored content key keeps the original extension.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        docId                  path      string                 true  "Document ID"
// @Param        renameDocumentRequest  body      RenameDocumentRequest  true  "New title"
// @Success      200  {object}  models.Document
// @Failure      400  {string}  string "Invalid request"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Insufficient permission"
// @Failure      404  {string}  string "Document not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /documents/{docId} [patch]
func (s *Server) RenameDocumentHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	docID := chi.URLParam(r, "docId")

	var req RenameDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		http.Error(w, "Title cannot be empty", http.StatusBadRequest)
		return
	}

	doc, perm, ok := s.loadDocumentWithAccess(w, r, docID)
	if !ok {
		return
	}
	if !perm.CanEdit() {
		http.Error(w, "You don't have permission to edit this document", http.StatusForbidden)
		return
	}

	oldTitle := doc.Title

	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		renamed, err := q.RenameDocument(r.Context(), docID, req.Title, claims.UserID)
		if err != nil {
			return err
		}
		if !renamed {
			return database.ErrDocumentNotFound
		}

		recipients, err := q.GetDocumentRecipients(r.Context(), docID)
		if err != nil {
			return err
		}
		return enqueueEvent(r.Context(), q, docID, notify.EventDocumentRenamed, recipients, map[string]any{
			"oldTitle":  oldTitle,
			"newTitle":  req.Title,
			"renamedBy": s.eventActor(r.Context()),
		})
	})

	if txErr != nil {
		if errors.Is(txErr, database.ErrDocumentNotFound) {
			http.Error(w, "Document not found", http.StatusNotFound)
			return
		}
		log.Printf("ERROR: Failed to rename document %s: %v", docID, txErr)
		http.Error(w, "Failed to rename document", http.StatusInternalServerError)
		return
	}

	doc.Title = req.Title
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

type SaveContentRequest struct {
	Content string `json:"content"`
}

// @Summary      Save file content
// @Description  Overwrites a file's content. Only the size difference against the previous content is charged to the owner's quota.
// @Tags         documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        docId               path      string              true  "Document ID"
// @Param        saveContentRequest  body      SaveContentRequest  true  "New content"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {string}  string "Invalid request"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Insufficient permission"
// @Failure      404  {string}  string "Document not found"
// @Failure      413  {object}  map[string]interface{} "Storage limit exceeded"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /documents/{docId}/content [put]
func (s *Server) SaveContentHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	docID := chi.URLParam(r, "docId")

	var req SaveContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, perm, ok := s.loadDocumentWithAccess(w, r, docID)
	if !ok {
		return
	}
	if doc.DocType != models.DocTypeFile {
		http.Error(w, "Cannot save content on a folder", http.StatusBadRequest)
		return
	}
	if !perm.CanEdit() {
		http.Error(w, "You don't have permission to edit this document", http.StatusForbidden)
		return
	}

	newSize := int64(len(req.Content))
	delta := newSize - doc.ContentSize

	// Quota is charged against the document owner, not the editor.
	if err := s.store.AdjustStorage(r.Context(), doc.OwnerID, delta); err != nil {
		var qErr *database.QuotaExceededError
		if errors.As(err, &qErr) {
			writeQuotaError(w, qErr)
			return
		}
		http.Error(w, "Failed to adjust storage", http.StatusInternalServerError)
		return
	}

	contentKey := contentKeyFor(docID, doc.Title)
	if err := s.storage.Put(contentKey, strings.NewReader(req.Content)); err != nil {
		log.Printf("ERROR: Failed to store content for %s: %v", docID, err)
		if err := s.store.AdjustStorage(r.Context(), doc.OwnerID, -delta); err != nil {
			log.Printf("WARN: Failed to revert storage adjustment for user %d: %v", doc.OwnerID, err)
		}
		http.Error(w, "Failed to save content", http.StatusInternalServerError)
		return
	}

	if _, err := s.store.SetDocumentContent(r.Context(), docID, contentKey, newSize, claims.UserID); err != nil {
		log.Printf("ERROR: Failed to update document %s after content save: %v", docID, err)
		http.Error(w, "Failed to save content", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "size": newSize})
}

// @Summary      Delete a document
// @Description  Deletes a file, or a folder with its entire subtree. Only the owner may delete. Reclaimed bytes are credited back to the owner's quota.
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        docId  path      string  true  "Document ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Only the owner can delete this document"
// @Failure      404  {string}  string "Document not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /documents/{docId} [delete]
func (s *Server) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	docID := chi.URLParam(r, "docId")

	doc, perm, ok := s.loadDocumentWithAccess(w, r, docID)
	if !ok {
		return
	}
	if !perm.CanManage() {
		http.Error(w, "Only the owner can delete this document", http.StatusForbidden)
		return
	}

	// Recipient snapshot is taken before the rows go away so the delete
	// event still reaches everyone who could see the document.
	recipients, err := s.store.GetDocumentRecipients(r.Context(), docID)
	if err != nil {
		http.Error(w, "Failed to resolve recipients", http.StatusInternalServerError)
		return
	}

	var parentRecipients []int64
	if doc.ParentID != nil {
		parentRecipients, err = s.store.GetDocumentRecipients(r.Context(), *doc.ParentID)
		if err != nil {
			http.Error(w, "Failed to resolve recipients", http.StatusInternalServerError)
			return
		}
	}

	actor := s.eventActor(r.Context())

	var deletedFiles []database.DeletedFile
	var reclaimed int64

	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		deletedFiles, reclaimed, err = q.DeleteDocumentTree(r.Context(), doc)
		if err != nil {
			return err
		}

		detail := map[string]any{
			"title":     doc.Title,
			"type":      doc.DocType,
			"deletedBy": actor,
		}
		if err := enqueueEvent(r.Context(), q, docID, notify.EventDocumentDeleted, recipients, detail); err != nil {
			return err
		}

		if doc.ParentID != nil {
			return enqueueEvent(r.Context(), q, *doc.ParentID, notify.EventDocumentDeleted, parentRecipients, detail)
		}
		return nil
	})

	if txErr != nil {
		log.Printf("ERROR: Failed to delete document %s: %v", docID, txErr)
		http.Error(w, "Failed to delete document", http.StatusInternalServerError)
		return
	}

	// The rows are gone; everything below is cleanup that must not fail
	// the request.
	if reclaimed > 0 {
		if err := s.store.ReleaseStorage(r.Context(), claims.UserID, reclaimed); err != nil {
			log.Printf("WARN: Failed to reclaim %d bytes for user %d: %v", reclaimed, claims.UserID, err)
		}
	}

	for _, file := range deletedFiles {
		if file.ContentKey == nil {
			continue
		}
		if err := s.storage.Delete(*file.ContentKey); err != nil {
			log.Printf("WARN: Failed to delete content %s during tree delete: %v", *file.ContentKey, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "reclaimed_bytes": reclaimed})
}
