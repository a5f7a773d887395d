package database

import (
	"context"
	"testing"

	"github.com/09samuel/codekeeper-api-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func TestAddCollaborator(t *testing.T) {
	ownerID := createTestUser(t, "add_collab_owner@test.dev")
	collabID := createTestUser(t, "add_collab_user@test.dev")
	doc := createTestDocument(t, CreateDocumentParams{
		ID:      testDocID("add_collab_doc"),
		OwnerID: ownerID,
		Title:   "shared.txt",
		DocType: models.DocTypeFile,
	})

	added, err := testStore.AddCollaborator(context.Background(), doc.ID, AddCollaboratorParams{
		UserID:     collabID,
		Permission: "view",
		AddedBy:    ownerID,
	})
	require.NoError(t, err)
	require.True(t, added)

	// A second grant for the same user is a no-op, not an error.
	added, err = testStore.AddCollaborator(context.Background(), doc.ID, AddCollaboratorParams{
		UserID:     collabID,
		Permission: "edit",
		AddedBy:    ownerID,
	})
	require.NoError(t, err)
	require.False(t, added)

	// The original permission is untouched by the ignored insert.
	perm, err := testStore.ResolvePermission(context.Background(), doc, collabID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionView, perm)
}

func TestResolvePermission(t *testing.T) {
	ownerID := createTestUser(t, "resolve_owner@test.dev")
	editorID := createTestUser(t, "resolve_editor@test.dev")
	viewerID := createTestUser(t, "resolve_viewer@test.dev")
	strangerID := createTestUser(t, "resolve_stranger@test.dev")

	doc := createTestDocument(t, CreateDocumentParams{
		ID:      testDocID("resolve_doc"),
		OwnerID: ownerID,
		Title:   "perm.txt",
		DocType: models.DocTypeFile,
	})

	_, err := testStore.AddCollaborator(context.Background(), doc.ID, AddCollaboratorParams{UserID: editorID, Permission: "edit", AddedBy: ownerID})
	require.NoError(t, err)
	_, err = testStore.AddCollaborator(context.Background(), doc.ID, AddCollaboratorParams{UserID: viewerID, Permission: "view", AddedBy: ownerID})
	require.NoError(t, err)

	cases := []struct {
		userID int64
		want   models.Permission
	}{
		{ownerID, models.PermissionOwner},
		{editorID, models.PermissionEdit},
		{viewerID, models.PermissionView},
		{strangerID, models.PermissionNone},
	}
	for _, tc := range cases {
		perm, err := testStore.ResolvePermission(context.Background(), doc, tc.userID)
		require.NoError(t, err)
		require.Equal(t, tc.want, perm)
	}
}

func TestGetDocumentRecipients(t *testing.T) {
	ownerID := createTestUser(t, "recipients_owner@test.dev")
	collabID := createTestUser(t, "recipients_collab@test.dev")
	doc := createTestDocument(t, CreateDocumentParams{
		ID:      testDocID("recipients_doc"),
		OwnerID: ownerID,
		Title:   "r.txt",
		DocType: models.DocTypeFile,
	})

	_, err := testStore.AddCollaborator(context.Background(), doc.ID, AddCollaboratorParams{UserID: collabID, Permission: "view", AddedBy: ownerID})
	require.NoError(t, err)

	recipients, err := testStore.GetDocumentRecipients(context.Background(), doc.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{ownerID, collabID}, recipients)
}

// buildSharedTree creates the canonical cascade fixture: a folder owned
// by owner containing a nested subfolder, a file owned by owner inside
// each, and one file owned by somebody else inside the folder.
func buildSharedTree(t *testing.T, prefix string, ownerID, otherOwnerID int64) (folder *models.Document, ownFile, nestedFile, foreignFile *models.Document) {
	t.Helper()

	folder = createTestDocument(t, CreateDocumentParams{
		ID:      testDocID(prefix + "_dir"),
		OwnerID: ownerID,
		Title:   "shared",
		DocType: models.DocTypeFolder,
	})
	sub := createTestDocument(t, CreateDocumentParams{
		ID:       testDocID(prefix + "_sub"),
		OwnerID:  ownerID,
		ParentID: &folder.ID,
		Title:    "nested",
		DocType:  models.DocTypeFolder,
	})
	ownFile = createTestDocument(t, CreateDocumentParams{
		ID:       testDocID(prefix + "_f1"),
		OwnerID:  ownerID,
		ParentID: &folder.ID,
		Title:    "own.txt",
		DocType:  models.DocTypeFile,
	})
	nestedFile = createTestDocument(t, CreateDocumentParams{
		ID:       testDocID(prefix + "_f2"),
		OwnerID:  ownerID,
		ParentID: &sub.ID,
		Title:    "deep.txt",
		DocType:  models.DocTypeFile,
	})
	foreignFile = createTestDocument(t, CreateDocumentParams{
		ID:       testDocID(prefix + "_f3"),
		OwnerID:  otherOwnerID,
		ParentID: &folder.ID,
		Title:    "foreign.txt",
		DocType:  models.DocTypeFile,
	})
	return folder, ownFile, nestedFile, foreignFile
}

func TestAddCollaboratorToTree(t *testing.T) {
	ownerID := createTestUser(t, "cascade_add_owner@test.dev")
	otherOwnerID := createTestUser(t, "cascade_add_other@test.dev")
	granteeID := createTestUser(t, "cascade_add_grantee@test.dev")

	folder, ownFile, nestedFile, foreignFile := buildSharedTree(t, "cas_add", ownerID, otherOwnerID)

	affected, err := testStore.AddCollaboratorToTree(context.Background(), folder, AddCollaboratorParams{
		UserID:     granteeID,
		Permission: "view",
		AddedBy:    ownerID,
	})
	require.NoError(t, err)

	// The grant lands on the folder and every descendant file, even the
	// one owned by someone else. Subfolders carry no entry of their own.
	require.ElementsMatch(t, []string{folder.ID, ownFile.ID, nestedFile.ID, foreignFile.ID}, affected)

	for _, doc := range []*models.Document{folder, ownFile, nestedFile, foreignFile} {
		perm, err := testStore.ResolvePermission(context.Background(), doc, granteeID)
		require.NoError(t, err)
		require.Equal(t, models.PermissionView, perm, "grantee should see %s", doc.Title)
	}
}

func TestAddCollaboratorToTreeSkipsGranteeOwnedFiles(t *testing.T) {
	ownerID := createTestUser(t, "cascade_skip_owner@test.dev")
	granteeID := createTestUser(t, "cascade_skip_grantee@test.dev")

	// The grantee owns one of the files inside the shared folder; an
	// owner is never also a collaborator on their own document.
	folder, _, _, granteeFile := buildSharedTree(t, "cas_skip", ownerID, granteeID)

	affected, err := testStore.AddCollaboratorToTree(context.Background(), folder, AddCollaboratorParams{
		UserID:     granteeID,
		Permission: "edit",
		AddedBy:    ownerID,
	})
	require.NoError(t, err)
	require.NotContains(t, affected, granteeFile.ID)

	perm, err := testStore.ResolvePermission(context.Background(), granteeFile, granteeID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionOwner, perm)
}

func TestAddCollaboratorToTreeRejectsOwner(t *testing.T) {
	ownerID := createTestUser(t, "cascade_self_owner@test.dev")
	folder := createTestDocument(t, CreateDocumentParams{
		ID:      testDocID("cas_self_dir"),
		OwnerID: ownerID,
		Title:   "mine",
		DocType: models.DocTypeFolder,
	})

	_, err := testStore.AddCollaboratorToTree(context.Background(), folder, AddCollaboratorParams{
		UserID:     ownerID,
		Permission: "edit",
		AddedBy:    ownerID,
	})
	require.ErrorIs(t, err, ErrCollaboratorIsOwner)
}

func TestUpdateCollaboratorInTree(t *testing.T) {
	ownerID := createTestUser(t, "cascade_upd_owner@test.dev")
	otherOwnerID := createTestUser(t, "cascade_upd_other@test.dev")
	granteeID := createTestUser(t, "cascade_upd_grantee@test.dev")

	folder, ownFile, nestedFile, foreignFile := buildSharedTree(t, "cas_upd", ownerID, otherOwnerID)

	_, err := testStore.AddCollaboratorToTree(context.Background(), folder, AddCollaboratorParams{
		UserID:     granteeID,
		Permission: "view",
		AddedBy:    ownerID,
	})
	require.NoError(t, err)

	affected, err := testStore.UpdateCollaboratorInTree(context.Background(), folder, granteeID, "edit", ownerID)
	require.NoError(t, err)

	// The cascade only touches descendant files that share the folder's
	// owner; the foreign file keeps its independent grant.
	require.ElementsMatch(t, []string{folder.ID, ownFile.ID, nestedFile.ID}, affected)

	for _, doc := range []*models.Document{folder, ownFile, nestedFile} {
		perm, err := testStore.ResolvePermission(context.Background(), doc, granteeID)
		require.NoError(t, err)
		require.Equal(t, models.PermissionEdit, perm)
	}

	perm, err := testStore.ResolvePermission(context.Background(), foreignFile, granteeID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionView, perm)
}

func TestRemoveCollaboratorFromTree(t *testing.T) {
	ownerID := createTestUser(t, "cascade_rm_owner@test.dev")
	otherOwnerID := createTestUser(t, "cascade_rm_other@test.dev")
	granteeID := createTestUser(t, "cascade_rm_grantee@test.dev")

	folder, ownFile, nestedFile, foreignFile := buildSharedTree(t, "cas_rm", ownerID, otherOwnerID)

	_, err := testStore.AddCollaboratorToTree(context.Background(), folder, AddCollaboratorParams{
		UserID:     granteeID,
		Permission: "view",
		AddedBy:    ownerID,
	})
	require.NoError(t, err)

	affected, err := testStore.RemoveCollaboratorFromTree(context.Background(), folder, granteeID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{folder.ID, ownFile.ID, nestedFile.ID}, affected)

	for _, doc := range []*models.Document{folder, ownFile, nestedFile} {
		perm, err := testStore.ResolvePermission(context.Background(), doc, granteeID)
		require.NoError(t, err)
		require.Equal(t, models.PermissionNone, perm)
	}

	// Access granted through the folder cascade but held on a file with
	// a different owner survives the removal.
	perm, err := testStore.ResolvePermission(context.Background(), foreignFile, granteeID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionView, perm)
}

func TestRemoveCollaboratorFromTreeIsIdempotent(t *testing.T) {
	ownerID := createTestUser(t, "cascade_rm2_owner@test.dev")
	strangerID := createTestUser(t, "cascade_rm2_stranger@test.dev")

	folder := createTestDocument(t, CreateDocumentParams{
		ID:      testDocID("cas_rm2_dir"),
		OwnerID: ownerID,
		Title:   "empty",
		DocType: models.DocTypeFolder,
	})

	// Removing a user who was never a collaborator still reports the
	// target document so its removal event goes out regardless.
	affected, err := testStore.RemoveCollaboratorFromTree(context.Background(), folder, strangerID)
	require.NoError(t, err)
	require.Equal(t, []string{folder.ID}, affected)
}

func TestInheritParentCollaborators(t *testing.T) {
	folderOwnerID := createTestUser(t, "inherit_folder_owner@test.dev")
	creatorID := createTestUser(t, "inherit_creator@test.dev")
	viewerID := createTestUser(t, "inherit_viewer@test.dev")

	parent := createTestDocument(t, CreateDocumentParams{
		ID:      testDocID("inherit_dir"),
		OwnerID: folderOwnerID,
		Title:   "team",
		DocType: models.DocTypeFolder,
	})

	for _, grant := range []struct {
		userID int64
		perm   string
	}{
		{creatorID, "edit"},
		{viewerID, "view"},
	} {
		_, err := testStore.AddCollaborator(context.Background(), parent.ID, AddCollaboratorParams{
			UserID:     grant.userID,
			Permission: grant.perm,
			AddedBy:    folderOwnerID,
		})
		require.NoError(t, err)
	}

	// The creator, an edit collaborator on the folder, creates a file
	// inside it.
	file := createTestDocument(t, CreateDocumentParams{
		ID:       testDocID("inherit_file"),
		OwnerID:  creatorID,
		ParentID: &parent.ID,
		Title:    "new.txt",
		DocType:  models.DocTypeFile,
	})

	granted, err := testStore.InheritParentCollaborators(context.Background(), file, parent, creatorID)
	require.NoError(t, err)

	// The file inherits the folder's collaborators minus the creator,
	// plus the folder owner with edit so nothing in their folder is
	// invisible to them.
	require.ElementsMatch(t, []int64{viewerID, folderOwnerID}, granted)

	perm, err := testStore.ResolvePermission(context.Background(), file, viewerID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionView, perm)

	perm, err = testStore.ResolvePermission(context.Background(), file, folderOwnerID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionEdit, perm)

	perm, err = testStore.ResolvePermission(context.Background(), file, creatorID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionOwner, perm)
}
