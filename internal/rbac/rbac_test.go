package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notenpfad/notenpfad/internal/notes"
)

func TestChecker_Has(t *testing.T) {
	c := NewChecker(nil)
	assert.True(t, c.Has("parent", "grades:create"))
	assert.True(t, c.Has("parent", "children:delete"))
	assert.True(t, c.Has("student", "topics:toggle"))
	assert.False(t, c.Has("student", "demo:reset"))
	assert.False(t, c.Has("student", "subjects:create"))
	assert.True(t, c.Has("admin", "anything:at_all"))
	assert.False(t, c.Has("tutor", "grades:view"))

	assert.True(t, c.Any("student", "demo:reset", "grades:view"))
	assert.False(t, c.Any("student", "demo:reset", "subjects:delete"))
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require("demo:reset")(ok)

	for role, want := range map[string]int{
		"":        http.StatusForbidden,
		"student": http.StatusForbidden,
		"parent":  http.StatusNoContent,
		"admin":   http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodPost, "/reset", nil)
		req = req.WithContext(WithRole(req.Context(), role))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, want, rr.Code, "role %q", role)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	RequireAny("demo:reset", "grades:view")(ok).ServeHTTP(rr, req.WithContext(WithRole(req.Context(), "student")))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	RequireAny("demo:reset", "subjects:delete")(ok).ServeHTTP(rr, req.WithContext(WithRole(req.Context(), "student")))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	RequireAny("summary:view")(ok).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code, "no role")
}

func TestCanAccessStudent(t *testing.T) {
	admin := notes.User{ID: "a", Role: notes.RoleAdmin}
	mama := notes.User{ID: "p1", Role: notes.RoleParent}
	other := notes.User{ID: "p2", Role: notes.RoleParent}
	kid := notes.User{ID: "k1", Role: notes.RoleStudent, ParentID: "p1"}
	sibling := notes.User{ID: "k2", Role: notes.RoleStudent, ParentID: "p1"}
	orphan := notes.User{ID: "k3", Role: notes.RoleStudent}

	assert.True(t, CanAccessStudent(admin, kid))
	assert.True(t, CanAccessStudent(mama, kid))
	assert.False(t, CanAccessStudent(other, kid))
	assert.True(t, CanAccessStudent(kid, kid))
	assert.False(t, CanAccessStudent(kid, sibling))
	assert.False(t, CanAccessStudent(other, orphan))
	assert.False(t, CanAccessStudent(notes.User{ID: "x"}, kid))
}

func TestCanManage(t *testing.T) {
	admin := notes.User{ID: "a", Role: notes.RoleAdmin}
	mama := notes.User{ID: "p1", Role: notes.RoleParent}
	kid := notes.User{ID: "k1", Role: notes.RoleStudent, ParentID: "p1"}

	assert.True(t, CanManageUser(mama, "p1"))
	assert.False(t, CanManageUser(mama, "k1"))
	assert.True(t, CanManageUser(admin, "k1"))

	assert.True(t, CanManageChild(mama, kid))
	assert.False(t, CanManageChild(mama, mama))
	assert.False(t, CanManageChild(notes.User{ID: "p2", Role: notes.RoleParent}, kid))

	own := notes.Subject{ID: "s1", OwnerID: "p1"}
	foreign := notes.Subject{ID: "s2", OwnerID: "p2"}
	assert.True(t, CanUseSubject(mama, own))
	assert.True(t, CanUseSubject(kid, own))
	assert.False(t, CanUseSubject(kid, foreign))
	assert.True(t, CanUseSubject(admin, foreign))
}

func TestViewerContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := ViewerFromContext(req.Context())
	assert.False(t, ok)

	ctx := WithViewer(req.Context(), notes.User{ID: "p1", Role: notes.RoleParent})
	u, ok := ViewerFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "p1", u.ID)
	assert.Equal(t, "parent", RoleFromContext(ctx))
}
