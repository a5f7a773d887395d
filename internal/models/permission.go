package models

// Permission is the effective access level of a user on a document,
// as computed by the permission resolver.
type Permission string

const (
	PermissionOwner Permission = "owner"
	PermissionEdit  Permission = "edit"
	PermissionView  Permission = "view"
	PermissionNone  Permission = "none"
)

// CanManage reports whether the level allows structural mutation:
// collaborator changes, deletion and creating items inside a folder
// someone else cannot touch. Only the owner qualifies.
func (p Permission) CanManage() bool {
	return p == PermissionOwner
}

// CanEdit reports whether the level allows content or title mutation.
func (p Permission) CanEdit() bool {
	return p == PermissionOwner || p == PermissionEdit
}

// CanView reports whether the level allows reading the document at all.
func (p Permission) CanView() bool {
	return p != PermissionNone && p != ""
}

// ValidGrant reports whether s is a permission value that can be stored
// in a collaborator entry. Ownership is implied by the document record
// and is never granted through the collaborator list.
func ValidGrant(s string) bool {
	return s == string(PermissionView) || s == string(PermissionEdit)
}
