package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/09samuel/codekeeper-api-backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func collaboratorRouter() *chi.Mux {
	router := chi.NewRouter()
	router.Get("/api/v1/documents/{docId}/collaborators", testServer.GetCollaboratorsHandler)
	router.Post("/api/v1/documents/{docId}/collaborators", testServer.AddCollaboratorHandler)
	router.Patch("/api/v1/documents/{docId}/collaborators/{collaboratorId}", testServer.UpdateCollaboratorHandler)
	router.Delete("/api/v1/documents/{docId}/collaborators/{collaboratorId}", testServer.RemoveCollaboratorHandler)
	return router
}

func TestAddCollaboratorHandler(t *testing.T) {
	ctx := context.Background()
	invitee, _ := newCollaboratorUser(ctx)

	doc := createTestDocumentAPI(t, "share me.txt", models.DocTypeFile, nil, testUserClaims.UserID)

	payload := AddCollaboratorRequest{Email: invitee.Email, Permission: "edit"}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/documents/"+doc.ID+"/collaborators", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	collaboratorRouter().ServeHTTP(rr, asUser(req, testUserClaims))

	require.Equal(t, http.StatusOK, rr.Code)
	var added models.CollaboratorInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &added))
	require.Equal(t, invitee.ID, added.UserID)
	require.Equal(t, "edit", added.Permission)

	perm, err := testServer.store.ResolvePermission(ctx, doc, invitee.ID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionEdit, perm)

	require.Equal(t, []string{"collaborator-added"}, pendingEventTypes(t, doc.ID))
}

func TestAddCollaboratorHandler_DefaultsToView(t *testing.T) {
	ctx := context.Background()
	invitee, _ := newCollaboratorUser(ctx)

	doc := createTestDocumentAPI(t, "default perm.txt", models.DocTypeFile, nil, testUserClaims.UserID)

	payload := AddCollaboratorRequest{Email: invitee.Email}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/documents/"+doc.ID+"/collaborators", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	collaboratorRouter().ServeHTTP(rr, asUser(req, testUserClaims))

	require.Equal(t, http.StatusOK, rr.Code)

	perm, err := testServer.store.ResolvePermission(ctx, doc, invitee.ID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionView, perm)
}

func TestAddCollaboratorHandler_UnknownEmail(t *testing.T) {
	doc := createTestDocumentAPI(t, "no such user.txt", models.DocTypeFile, nil, testUserClaims.UserID)

	payload := AddCollaboratorRequest{Email: "nobody@example.com"}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/documents/"+doc.ID+"/collaborators", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	collaboratorRouter().ServeHTTP(rr, asUser(req, testUserClaims))

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAddCollaboratorHandler_SelfRejected(t *testing.T) {
	doc := createTestDocumentAPI(t, "self share.txt", models.DocTypeFile, nil, testUserClaims.UserID)

	payload := AddCollaboratorRequest{Email: "api_test_user@example.com"}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/documents/"+doc.ID+"/collaborators", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	collaboratorRouter().ServeHTTP(rr, asUser(req, testUserClaims))

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddCollaboratorHandler_NonOwnerForbidden(t *testing.T) {
	ctx := context.Background()
	editor, editorClaims := newCollaboratorUser(ctx)
	invitee, _ := newCollaboratorUser(ctx)

	doc := createTestDocumentAPI(t, "owner only.txt", models.DocTypeFile, nil, testUserClaims.UserID)

	addBody, _ := json.Marshal(AddCollaboratorRequest{Email: editor.Email, Permission: "edit"})
	req := httptest.NewRequest("POST", "/api/v1/documents/"+doc.ID+"/collaborators", bytes.NewReader(addBody))
	rr := httptest.NewRecorder()
	collaboratorRouter().ServeHTTP(rr, asUser(req, testUserClaims))
	require.Equal(t, http.StatusOK, rr.Code)

	payload := AddCollaboratorRequest{Email: invitee.Email}
	body, _ := json.Marshal(payload)
	req = httptest.NewRequest("POST", "/api/v1/documents/"+doc.ID+"/collaborators", bytes.NewReader(body))
	rr = httptest.NewRecorder()

	collaboratorRouter().ServeHTTP(rr, asUser(req, editorClaims))

	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAddCollaboratorHandler_CascadesToFolderFiles(t *testing.T) {
	ctx := context.Background()
	invitee, _ := newCollaboratorUser(ctx)

	folder := createTestDocumentAPI(t, "cascade root", models.DocTypeFolder, nil, testUserClaims.UserID)
	sub := createTestDocumentAPI(t, "cascade sub", models.DocTypeFolder, &folder.ID, testUserClaims.UserID)
	file := createTestDocumentAPI(t, "cascade file.txt", models.DocTypeFile, &sub.ID, testUserClaims.UserID)

	payload := AddCollaboratorRequest{Email: invitee.Email, Permission: "view"}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/documents/"+folder.ID+"/collaborators", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	collaboratorRouter().ServeHTTP(rr, asUser(req, testUserClaims))

	require.Equal(t, http.StatusOK, rr.Code)

	// The grant lands on the folder and every descendant file, but not
	// on intermediate folders.
	permFolder, err := testServer.store.ResolvePermission(ctx, folder, invitee.ID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionView, permFolder)

	permFile, err := testServer.store.ResolvePermission(ctx, file, invitee.ID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionView, permFile)

	permSub, err := testServer.store.ResolvePermission(ctx, sub, invitee.ID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionNone, permSub)

	require.Equal(t, []string{"collaborator-added"}, pendingEventTypes(t, folder.ID))
	require.Equal(t, []string{"collaborator-added"}, pendingEventTypes(t, file.ID))
}

func TestGetCollaboratorsHandler(t *testing.T) {
	ctx := context.Background()
	invitee, _ := newCollaboratorUser(ctx)

	doc := createTestDocumentAPI(t, "roster.txt", models.DocTypeFile, nil, testUserClaims.UserID)

	payload := AddCollaboratorRequest{Email: invitee.Email, Permission: "view"}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/documents/"+doc.ID+"/collaborators", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	collaboratorRouter().ServeHTTP(rr, asUser(req, testUserClaims))
	require.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest("GET", "/api/v1/documents/"+doc.ID+"/collaborators", nil)
	rr = httptest.NewRecorder()
	collaboratorRouter().ServeHTTP(rr, asUser(req, testUserClaims))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp CollaboratorListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, testUserClaims.UserID, resp.Owner.ID)
	require.Len(t, resp.Collaborators, 1)
	require.Equal(t, invitee.ID, resp.Collaborators[0].UserID)
}

func TestUpdateCollaboratorHandler(t *testing.T) {
	ctx := context.Background()
	invitee, _ := newCollaboratorUser(ctx)

	doc := createTestDocumentAPI(t, "promote.txt", models.DocTypeFile, nil, testUserClaims.UserID)

	addBody, _ := json.Marshal(AddCollaboratorRequest{Email: invitee.Email, Permission: "view"})
	req := httptest.NewRequest("POST", "/api/v1/documents/"+doc.ID+"/collaborators", bytes.NewReader(addBody))
	rr := httptest.NewRecorder()
	collaboratorRouter().ServeHTTP(rr, asUser(req, testUserClaims))
	require.Equal(t, http.StatusOK, rr.Code)

	updateBody, _ := json.Marshal(UpdateCollaboratorRequest{Permission: "edit"})
	url := fmt.Sprintf("/api/v1/documents/%s/collaborators/%d", doc.ID, invitee.ID)
	req = httptest.NewRequest("PATCH", url, bytes.NewReader(updateBody))
	rr = httptest.NewRecorder()
	collaboratorRouter().ServeHTTP(rr, asUser(req, testUserClaims))

	require.Equal(t, http.StatusOK, rr.Code)

	perm, err := testServer.store.ResolvePermission(ctx, doc, invitee.ID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionEdit, perm)

	require.Equal(t, []string{"collaborator-added", "collaborator-permission-updated"}, pendingEventTypes(t, doc.ID))
}

func TestUpdateCollaboratorHandler_InvalidPermission(t *testing.T) {
	doc := createTestDocumentAPI(t, "bad perm.txt", models.DocTypeFile, nil, testUserClaims.UserID)

	updateBody, _ := json.Marshal(UpdateCollaboratorRequest{Permission: "owner"})
	url := fmt.Sprintf("/api/v1/documents/%s/collaborators/%d", doc.ID, testUserClaims.UserID)
	req := httptest.NewRequest("PATCH", url, bytes.NewReader(updateBody))
	rr := httptest.NewRecorder()
	collaboratorRouter().ServeHTTP(rr, asUser(req, testUserClaims))

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRemoveCollaboratorHandler(t *testing.T) {
	ctx := context.Background()
	invitee, _ := newCollaboratorUser(ctx)

	doc := createTestDocumentAPI(t, "revoke.txt", models.DocTypeFile, nil, testUserClaims.UserID)

	addBody, _ := json.Marshal(AddCollaboratorRequest{Email: invitee.Email, Permission: "edit"})
	req := httptest.NewRequest("POST", "/api/v1/documents/"+doc.ID+"/collaborators", bytes.NewReader(addBody))
	rr := httptest.NewRecorder()
	collaboratorRouter().ServeHTTP(rr, asUser(req, testUserClaims))
	require.Equal(t, http.StatusOK, rr.Code)

	url := fmt.Sprintf("/api/v1/documents/%s/collaborators/%d", doc.ID, invitee.ID)
	req = httptest.NewRequest("DELETE", url, nil)
	rr = httptest.NewRecorder()
	collaboratorRouter().ServeHTTP(rr, asUser(req, testUserClaims))

	require.Equal(t, http.StatusOK, rr.Code)

	perm, err := testServer.store.ResolvePermission(ctx, doc, invitee.ID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionNone, perm)

	require.Equal(t, []string{"collaborator-added", "collaborator-removed"}, pendingEventTypes(t, doc.ID))
}

func TestRemoveCollaboratorHandler_Idempotent(t *testing.T) {
	ctx := context.Background()
	outsider, _ := newCollaboratorUser(ctx)

	doc := createTestDocumentAPI(t, "never shared.txt", models.DocTypeFile, nil, testUserClaims.UserID)

	url := fmt.Sprintf("/api/v1/documents/%s/collaborators/%d", doc.ID, outsider.ID)
	req := httptest.NewRequest("DELETE", url, nil)
	rr := httptest.NewRecorder()
	collaboratorRouter().ServeHTTP(rr, asUser(req, testUserClaims))

	// Removing a user who was never a collaborator still succeeds and
	// still emits the removal event for the target document.
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []string{"collaborator-removed"}, pendingEventTypes(t, doc.ID))
}
