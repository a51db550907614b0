package rbac

import "github.com/notenpfad/notenpfad/internal/notes"

// CanAccessStudent reports whether viewer may read or change the records of
// the student account account. Students see themselves, parents their own
// children, admins everyone.
func CanAccessStudent(viewer, account notes.User) bool {
	switch viewer.Role {
	case notes.RoleAdmin:
		return true
	case notes.RoleStudent:
		return viewer.ID == account.ID
	case notes.RoleParent:
		return account.ParentID != "" && account.ParentID == viewer.ID
	}
	return false
}

// CanManageUser allows users to act on their own account; admins on any.
func CanManageUser(viewer notes.User, userID string) bool {
	return viewer.Role == notes.RoleAdmin || viewer.ID == userID
}

// CanManageChild allows a parent to act on its own children.
func CanManageChild(viewer, child notes.User) bool {
	if child.Role != notes.RoleStudent {
		return false
	}
	return viewer.Role == notes.RoleAdmin || (child.ParentID != "" && child.ParentID == viewer.ID)
}

// CanUseSubject reports whether sub belongs to the subject set viewer works with.
func CanUseSubject(viewer notes.User, sub notes.Subject) bool {
	return viewer.Role == notes.RoleAdmin || sub.OwnerID == viewer.OwnerID()
}
