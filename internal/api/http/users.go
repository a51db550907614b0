package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/notenpfad/notenpfad/internal/auth/middleware"
	"github.com/notenpfad/notenpfad/internal/audit"
	"github.com/notenpfad/notenpfad/internal/notes"
	"github.com/notenpfad/notenpfad/internal/rbac"
	"github.com/notenpfad/notenpfad/internal/validate"
)

type createChildReq struct {
	Username string `json:"username" validate:"notblank,max=64"`
	Password string `json:"password" validate:"required,min=4"`
	Name     string `json:"name" validate:"notblank"`
	ParentID string `json:"parent_id"`
}

// POST /users/children creates a student account with its profile. The
// parent defaults to the caller.
func CreateChildHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := viewer(w, r)
		if !ok {
			return
		}
		var req createChildReq
		if err := validate.Decode(r, &req); err != nil {
			validate.WriteError(w, err)
			return
		}
		if req.ParentID == "" {
			req.ParentID = me.ID
		}
		if !rbac.CanManageUser(me, req.ParentID) {
			http.Error(w, "Not authorized to create child for this user", http.StatusForbidden)
			return
		}
		ctx := r.Context()
		if _, err := d.Store.GetUser(ctx, req.ParentID); err != nil {
			d.storeError(w, r, err, "Parent")
			return
		}
		hash, err := authmw.HashPassword(req.Password)
		if err != nil {
			http.Error(w, "hash password", http.StatusInternalServerError)
			return
		}
		u, err := d.Store.CreateUser(ctx, notes.User{
			Username:     req.Username,
			PasswordHash: hash,
			Role:         notes.RoleStudent,
			ParentID:     req.ParentID,
		})
		if errors.Is(err, notes.ErrConflict) {
			http.Error(w, "Username taken", http.StatusBadRequest)
			return
		}
		if err != nil {
			d.storeError(w, r, err, "User")
			return
		}
		if _, err := d.Store.CreateStudent(ctx, notes.Student{UserID: u.ID, Name: req.Name, TargetSchool: notes.DefaultTarget}); err != nil {
			d.storeError(w, r, err, "Student")
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// GET /users/{userID}/children
func ListChildrenHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := viewer(w, r)
		if !ok {
			return
		}
		id := chi.URLParam(r, "userID")
		if !rbac.CanManageUser(me, id) {
			http.Error(w, "Not authorized", http.StatusForbidden)
			return
		}
		kids, err := d.Store.ListChildren(r.Context(), id)
		if err != nil {
			d.storeError(w, r, err, "User")
			return
		}
		writeJSON(w, http.StatusOK, kids)
	}
}

// DELETE /users/children/{childID} removes the account, its profile and grades.
func DeleteChildHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := viewer(w, r)
		if !ok {
			return
		}
		ctx := r.Context()
		child, err := d.Store.GetUser(ctx, chi.URLParam(r, "childID"))
		if err != nil {
			d.storeError(w, r, err, "User")
			return
		}
		if child.Role != notes.RoleStudent {
			http.Error(w, "Cannot delete non-student user via this endpoint", http.StatusBadRequest)
			return
		}
		if !rbac.CanManageChild(me, child) {
			http.Error(w, "Not authorized to delete this user", http.StatusForbidden)
			return
		}
		st, stErr := d.Store.GetStudentByUser(ctx, child.ID)
		if err := d.Store.DeleteUser(ctx, child.ID); err != nil {
			d.storeError(w, r, err, "User")
			return
		}
		if stErr == nil {
			d.Cache.Invalidate(ctx, st.ID)
		}
		d.Audit.Record(ctx, audit.ChildDeleted, child.ID, me.ID, map[string]string{"username": child.Username})
		message(w, "Child deleted successfully")
	}
}

// PUT /users/{userID}/password
func ChangePasswordHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := viewer(w, r)
		if !ok {
			return
		}
		id := chi.URLParam(r, "userID")
		if !rbac.CanManageUser(me, id) {
			http.Error(w, "Not authorized", http.StatusForbidden)
			return
		}
		var req struct {
			Password string `json:"password" validate:"required,min=4"`
		}
		if err := validate.Decode(r, &req); err != nil {
			validate.WriteError(w, err)
			return
		}
		hash, err := authmw.HashPassword(req.Password)
		if err != nil {
			http.Error(w, "hash password", http.StatusInternalServerError)
			return
		}
		if err := d.Store.SetPassword(r.Context(), id, hash); err != nil {
			d.storeError(w, r, err, "User")
			return
		}
		message(w, "Password updated successfully")
	}
}
