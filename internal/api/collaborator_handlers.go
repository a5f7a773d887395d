package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/09samuel/codekeeper-api-backend/internal/database"
	"github.com/09samuel/codekeeper-api-backend/internal/models"
	"github.com/09samuel/codekeeper-api-backend/internal/notify"
	"github.com/go-chi/chi/v5"
)

type CollaboratorListResponse struct {
	Collaborators []models.CollaboratorInfo `json:"collaborators"`
	Owner         OwnerInfo                 `json:"owner"`
}

type OwnerInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// @Summary      List collaborators
// @Description  Lists the collaborators of a document together with its owner. Any user who can view the document may list them.
// @Tags         collaborators
// @Produce      json
// @Security     BearerAuth
// @Param        docId  path      string  true  "Document ID"
// @Success      200  {object}  CollaboratorListResponse
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Document not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /documents/{docId}/collaborators [get]
func (s *Server) GetCollaboratorsHandler(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docId")

	doc, _, ok := s.loadDocumentWithAccess(w, r, docID)
	if !ok {
		return
	}

	collaborators, err := s.store.ListCollaborators(r.Context(), docID)
	if err != nil {
		http.Error(w, "Failed to list collaborators", http.StatusInternalServerError)
		return
	}

	owner, err := s.store.GetUserByID(r.Context(), doc.OwnerID)
	if err != nil || owner == nil {
		http.Error(w, "Failed to retrieve document owner", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(CollaboratorListResponse{
		Collaborators: collaborators,
		Owner:         OwnerInfo{ID: owner.ID, Name: owner.Name, Email: owner.Email},
	})
}

// enqueueCascadeEvents records one event per document touched by a
// collaborator cascade. The cascade itself has already been applied, so
// a failed enqueue is logged rather than surfaced to the client.
func (s *Server) enqueueCascadeEvents(ctx context.Context, affected []string, eventType string, detail map[string]any) {
	for _, docID := range affected {
		recipients, err := s.store.GetDocumentRecipients(ctx, docID)
		if err != nil {
			log.Printf("WARN: Failed to resolve recipients for %s: %v", docID, err)
			continue
		}
		payload, err := notify.BuildPayload(docID, recipients, detail)
		if err != nil {
			log.Printf("WARN: Failed to build %s payload for %s: %v", eventType, docID, err)
			continue
		}
		if _, err := s.store.EnqueueEvent(ctx, docID, eventType, payload); err != nil {
			log.Printf("WARN: Failed to enqueue %s for %s: %v", eventType, docID, err)
		}
	}
}

type AddCollaboratorRequest struct {
	Email      string `json:"email" example:"bob@example.com"`
	Permission string `json:"permission" example:"view"`
}

// @Summary      Add a collaborator
// @Description  Grants a user access to a document. On folders the grant cascades to every descendant file, skipping files the grantee already owns. Only the owner may add collaborators.
// @Tags         collaborators
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        docId                   path      string                  true  "Document ID"
// @Param        addCollaboratorRequest  body      AddCollaboratorRequest  true  "Collaborator data"
// @Success      200  {object}  models.CollaboratorInfo
// @Failure      400  {string}  string "Invalid request"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Only the owner can add collaborators"
// @Failure      404  {string}  string "Document or user not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /documents/{docId}/collaborators [post]
func (s *Server) AddCollaboratorHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	docID := chi.URLParam(r, "docId")

	var req AddCollaboratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Permission == "" {
		req.Permission = string(models.PermissionView)
	}
	if !models.ValidGrant(req.Permission) {
		http.Error(w, "Invalid permission value", http.StatusBadRequest)
		return
	}

	doc, perm, ok := s.loadDocumentWithAccess(w, r, docID)
	if !ok {
		return
	}
	if !perm.CanManage() {
		http.Error(w, "Only the owner can add collaborators", http.StatusForbidden)
		return
	}

	userToAdd, err := s.store.GetUserByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if userToAdd == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if userToAdd.ID == claims.UserID {
		http.Error(w, "Cannot add yourself as collaborator", http.StatusBadRequest)
		return
	}

	affected, err := s.store.AddCollaboratorToTree(r.Context(), doc, database.AddCollaboratorParams{
		UserID:     userToAdd.ID,
		Permission: req.Permission,
		AddedBy:    claims.UserID,
	})

	// A cascade that fails partway still granted access to the nodes in
	// affected, so their events go out regardless of err.
	s.enqueueCascadeEvents(r.Context(), affected, notify.EventCollaboratorAdded, map[string]any{
		"_id":        userToAdd.ID,
		"name":       userToAdd.Name,
		"email":      userToAdd.Email,
		"permission": req.Permission,
		"addedBy":    claims.UserID,
	})

	if err != nil {
		if errors.Is(err, database.ErrCollaboratorIsOwner) {
			http.Error(w, "Cannot add the document owner as collaborator", http.StatusBadRequest)
			return
		}
		if errors.Is(err, database.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		log.Printf("ERROR: Failed to add collaborator to %s: %v", docID, err)
		http.Error(w, "Failed to add collaborator", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.CollaboratorInfo{
		UserID:     userToAdd.ID,
		Name:       userToAdd.Name,
		Email:      userToAdd.Email,
		Permission: req.Permission,
		AddedBy:    &claims.UserID,
	})
}

type UpdateCollaboratorRequest struct {
	Permission string `json:"permission" example:"edit"`
}

// @Summary      Update a collaborator's permission
// @Description  Changes the permission of an existing collaborator. On folders the change cascades to descendant files that share the folder's owner. Only the owner may modify collaborators.
// @Tags         collaborators
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        docId                      path      string                     true  "Document ID"
// @Param        collaboratorId             path      int                        true  "Collaborator user ID"
// @Param        updateCollaboratorRequest  body      UpdateCollaboratorRequest  true  "New permission"
// @Success      200  {object}  map[string]string
// @Failure      400  {string}  string "Invalid permission value"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Only owner can modify collaborators"
// @Failure      404  {string}  string "Document not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /documents/{docId}/collaborators/{collaboratorId} [patch]
func (s *Server) UpdateCollaboratorHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	docID := chi.URLParam(r, "docId")

	collaboratorID, err := strconv.ParseInt(chi.URLParam(r, "collaboratorId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid collaborator ID", http.StatusBadRequest)
		return
	}

	var req UpdateCollaboratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !models.ValidGrant(req.Permission) {
		http.Error(w, "Invalid permission value", http.StatusBadRequest)
		return
	}

	doc, perm, ok := s.loadDocumentWithAccess(w, r, docID)
	if !ok {
		return
	}
	if !perm.CanManage() {
		http.Error(w, "Only owner can modify collaborators", http.StatusForbidden)
		return
	}

	affected, err := s.store.UpdateCollaboratorInTree(r.Context(), doc, collaboratorID, req.Permission, claims.UserID)

	s.enqueueCascadeEvents(r.Context(), affected, notify.EventCollaboratorPermissionUpdate, map[string]any{
		"_id":        collaboratorID,
		"permission": req.Permission,
	})

	if err != nil {
		log.Printf("ERROR: Failed to update collaborator %d on %s: %v", collaboratorID, docID, err)
		http.Error(w, "Failed to update collaborator", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Permission updated successfully"})
}

// @Summary      Remove a collaborator
// @Description  Revokes a user's access to a document. On folders the removal cascades to descendant files that share the folder's owner. Removal is idempotent; the event for the target document is emitted regardless. Only the owner may remove collaborators.
// @Tags         collaborators
// @Produce      json
// @Security     BearerAuth
// @Param        docId           path      string  true  "Document ID"
// @Param        collaboratorId  path      int     true  "Collaborator user ID"
// @Success      200  {object}  map[string]string
// @Failure      400  {string}  string "Invalid collaborator ID"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      403  {string}  string "Only owner can remove collaborators"
// @Failure      404  {string}  string "Document not found"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /documents/{docId}/collaborators/{collaboratorId} [delete]
func (s *Server) RemoveCollaboratorHandler(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docId")

	collaboratorID, err := strconv.ParseInt(chi.URLParam(r, "collaboratorId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid collaborator ID", http.StatusBadRequest)
		return
	}

	doc, perm, ok := s.loadDocumentWithAccess(w, r, docID)
	if !ok {
		return
	}
	if !perm.CanManage() {
		http.Error(w, "Only owner can remove collaborators", http.StatusForbidden)
		return
	}

	affected, err := s.store.RemoveCollaboratorFromTree(r.Context(), doc, collaboratorID)

	s.enqueueCascadeEvents(r.Context(), affected, notify.EventCollaboratorRemoved, map[string]any{
		"_id": collaboratorID,
	})

	if err != nil {
		log.Printf("ERROR: Failed to remove collaborator %d from %s: %v", collaboratorID, docID, err)
		http.Error(w, "Failed to remove collaborator", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Collaborator removed successfully"})
}
