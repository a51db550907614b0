package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/notenpfad/notenpfad/internal/audit"
	"github.com/notenpfad/notenpfad/internal/cache"
	"github.com/notenpfad/notenpfad/internal/gradecalc"
	"github.com/notenpfad/notenpfad/internal/notes"
	"github.com/notenpfad/notenpfad/internal/rbac"
)

// Deps are the collaborators shared by all handlers. Cache and Audit may be nil.
type Deps struct {
	Store  notes.Store
	Engine *gradecalc.Engine
	Cache  *cache.Composites
	Audit  *audit.EventRepo
	Log    *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Log == nil {
		return slog.Default()
	}
	return d.Log
}

// writeJSON encodes before writing the header so an unencodable value
// (a non-finite average, say) turns into a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	buf, err := json.Marshal(v)
	if err != nil {
		slog.Default().Error("encode response", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(buf, '\n'))
}

func message(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// storeError maps store errors to a status and writes it.
func (d Deps) storeError(w http.ResponseWriter, r *http.Request, err error, what string) {
	switch {
	case errors.Is(err, notes.ErrNotFound):
		http.Error(w, what+" not found", http.StatusNotFound)
	case errors.Is(err, notes.ErrConflict):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		d.logger().Error("store", "path", r.URL.Path, "what", what, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func viewer(w http.ResponseWriter, r *http.Request) (notes.User, bool) {
	u, ok := rbac.ViewerFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return u, ok
}

// target is a student profile the viewer may act on, plus its account.
type target struct {
	Student notes.Student
	Account notes.User
}

// resolveStudent reads ?student_id= and enforces access. Students may omit
// it to address their own profile.
func (d Deps) resolveStudent(w http.ResponseWriter, r *http.Request) (notes.User, target, bool) {
	me, ok := viewer(w, r)
	if !ok {
		return notes.User{}, target{}, false
	}
	ctx := r.Context()
	id := strings.TrimSpace(r.URL.Query().Get("student_id"))

	var (
		st  notes.Student
		err error
	)
	switch {
	case id != "":
		st, err = d.Store.GetStudent(ctx, id)
	case me.Role == notes.RoleStudent:
		st, err = d.Store.GetStudentByUser(ctx, me.ID)
	default:
		http.Error(w, "student_id required", http.StatusBadRequest)
		return notes.User{}, target{}, false
	}
	if err != nil {
		d.storeError(w, r, err, "Student")
		return notes.User{}, target{}, false
	}
	return d.authorizeStudent(w, r, me, st)
}

func (d Deps) authorizeStudent(w http.ResponseWriter, r *http.Request, me notes.User, st notes.Student) (notes.User, target, bool) {
	acct, err := d.Store.GetUser(r.Context(), st.UserID)
	if err != nil {
		d.storeError(w, r, err, "Student")
		return notes.User{}, target{}, false
	}
	if !rbac.CanAccessStudent(me, acct) {
		http.Error(w, "Not authorized for this student", http.StatusForbidden)
		return notes.User{}, target{}, false
	}
	return me, target{Student: st, Account: acct}, true
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}
