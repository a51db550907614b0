package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notenpfad/notenpfad/internal/audit"
	authmw "github.com/notenpfad/notenpfad/internal/auth/middleware"
	"github.com/notenpfad/notenpfad/internal/cache"
	"github.com/notenpfad/notenpfad/internal/db"
	"github.com/notenpfad/notenpfad/internal/gradecalc"
	"github.com/notenpfad/notenpfad/internal/notes"
)

type fixture struct {
	t      *testing.T
	store  *notes.SQLStore
	events *audit.EventRepo
	mem    *cache.Memory
	srv    http.Handler
	auth   *authmw.AuthService

	admin, sole, other notes.User
	soleStudent        notes.Student
	math, german       notes.Subject
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	dbh, err := db.Open(ctx, db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { dbh.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := notes.NewSQLStore(dbh)
	plain := func(p string) (string, error) { return p, nil }
	require.NoError(t, notes.Seeder{Store: store, Hash: plain, Log: log}.EnsureDefaults(ctx, "1234", "sun26"))

	f := &fixture{t: t, store: store, mem: cache.NewMemory(), auth: authmw.NewAuthService("test", time.Hour)}
	f.events = audit.NewEventRepo(dbh, log)
	d := Deps{
		Store:  store,
		Engine: gradecalc.NewEngine(),
		Cache:  cache.NewComposites(f.mem, time.Minute, log),
		Audit:  f.events,
		Log:    log,
	}
	r := chi.NewRouter()
	r.Get("/", RootHandler())
	r.Get("/status", StatusHandler(dbh))
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(f.auth), authmw.AttachViewer(store, log))
		Mount(pr, d)
	})
	f.srv = r

	f.admin, err = store.GetUserByUsername(ctx, notes.AdminUsername)
	require.NoError(t, err)
	f.sole, err = store.GetUserByUsername(ctx, notes.StudentUsername)
	require.NoError(t, err)
	f.soleStudent, err = store.GetStudentByUser(ctx, f.sole.ID)
	require.NoError(t, err)
	f.other, err = store.CreateUser(ctx, notes.User{Username: "fremd", Role: notes.RoleParent})
	require.NoError(t, err)

	subs, err := store.ListSubjects(ctx, notes.ListOpts{OwnerID: f.admin.ID})
	require.NoError(t, err)
	for _, s := range subs {
		switch s.Name {
		case gradecalc.SubjectMath:
			f.math = s
		case gradecalc.SubjectGerman:
			f.german = s
		}
	}
	return f
}

func (f *fixture) token(u notes.User) string {
	tok, err := f.auth.IssueJWT(u)
	require.NoError(f.t, err)
	return tok
}

func (f *fixture) do(u *notes.User, method, path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(f.t, err)
		rd = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, rd)
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+f.token(*u))
	}
	rr := httptest.NewRecorder()
	f.srv.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (f *fixture) addGrade(u *notes.User, studentID string, sub notes.Subject, typ string, v float64) notes.Grade {
	f.t.Helper()
	path := "/grades"
	if studentID != "" {
		path += "?student_id=" + studentID
	}
	rr := f.do(u, http.MethodPost, path, map[string]any{"value": v, "subject_id": sub.ID, "type": typ})
	require.Equal(f.t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[notes.Grade](f.t, rr)
}

func TestRootAndStatus(t *testing.T) {
	f := newFixture(t)
	rr := f.do(nil, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "running")

	rr = f.do(nil, http.MethodGet, "/status", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","db":"ok"}`, rr.Body.String())
}

func TestUnauthenticated(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(nil, http.MethodGet, "/average", nil).Code)

	ghost := notes.User{ID: "ghost", Role: notes.RoleAdmin}
	assert.Equal(t, http.StatusUnauthorized, f.do(&ghost, http.MethodGet, "/subjects", nil).Code)
}

func TestAverage_StudentOwnGrades(t *testing.T) {
	f := newFixture(t)

	rr := f.do(&f.sole, http.MethodGet, "/average", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"average":0,"details":{"vornote":{"value":null,"math":null,"deutsch":null},
		"exam":{"value":null,"math":null,"deutsch":{"value":null,"aufsatz":null,"sprachbetrachtung":null}}},"passed":false}`,
		rr.Body.String())

	f.addGrade(&f.sole, "", f.math, "Vornote", 5.0)
	f.addGrade(&f.sole, "", f.german, "Vornote", 5.0)
	f.addGrade(&f.sole, "", f.math, "Prüfung", 4.5)
	f.addGrade(&f.sole, "", f.german, "Aufsatz", 4.5)
	f.addGrade(&f.sole, "", f.german, "Sprachbetrachtung", 5.0)

	rr = f.do(&f.sole, http.MethodGet, "/average?student_id="+f.soleStudent.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	c := decode[gradecalc.Composite](t, rr)
	assert.Equal(t, 4.81, c.Average)
	assert.True(t, c.Passed)
	assert.Equal(t, gradecalc.Some(4.62), c.Details.Exam.Value)
	assert.Equal(t, gradecalc.Some(4.75), c.Details.Exam.Deutsch.Value)

	_, hit := cache.NewComposites(f.mem, time.Minute, nil).Get(context.Background(), f.soleStudent.ID)
	assert.True(t, hit, "average is cached")

	// a new grade invalidates the cached composite
	f.addGrade(&f.admin, f.soleStudent.ID, f.math, "Vornote", 6.0)
	c = decode[gradecalc.Composite](t, f.do(&f.admin, http.MethodGet, "/average?student_id="+f.soleStudent.ID, nil))
	assert.Equal(t, gradecalc.Some(5.5), c.Details.Vornote.Math)
}

func TestAverage_UnencodableIsServerError(t *testing.T) {
	f := newFixture(t)
	f.addGrade(&f.sole, "", f.math, "Vornote", 1e308)
	f.addGrade(&f.sole, "", f.math, "Vornote", 1e308)

	rr := f.do(&f.sole, http.MethodGet, "/average", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Header().Get("Content-Type"), "application/json")
}

func TestStudentAccess(t *testing.T) {
	f := newFixture(t)
	path := "/grades?student_id=" + f.soleStudent.ID

	assert.Equal(t, http.StatusOK, f.do(&f.sole, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(&f.admin, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(&f.other, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(&f.other, http.MethodGet, "/average?student_id="+f.soleStudent.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(&f.admin, http.MethodGet, "/grades?student_id=nope", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(&f.other, http.MethodGet, "/grades", nil).Code)

	// a foreign parent cannot use the admin's subjects either
	rr := f.do(&f.other, http.MethodPost, path, map[string]any{"value": 5, "subject_id": f.math.ID})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestGrades_CreateListDelete(t *testing.T) {
	f := newFixture(t)
	g := f.addGrade(&f.sole, "", f.math, "Vornote", 5.5)
	assert.Equal(t, f.soleStudent.ID, g.StudentID)
	assert.NotEmpty(t, g.Date)

	list := decode[[]notes.Grade](t, f.do(&f.sole, http.MethodGet, "/grades", nil))
	require.Len(t, list, 1)

	assert.Equal(t, http.StatusForbidden, f.do(&f.other, http.MethodDelete, "/grades/"+g.ID, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(&f.sole, http.MethodDelete, "/grades/"+g.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(&f.sole, http.MethodDelete, "/grades/"+g.ID, nil).Code)

	rr := f.do(&f.sole, http.MethodPost, "/grades", map[string]any{"value": 5})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "subject_id")

	rr = f.do(&f.sole, http.MethodPost, "/grades", map[string]any{"value": 5, "subject_id": "missing"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	evs, err := f.events.List(context.Background(), f.soleStudent.ID, 0)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, audit.GradeRecorded, evs[0].Type)
	assert.Equal(t, audit.GradeDeleted, evs[1].Type)
}

func TestPrediction(t *testing.T) {
	f := newFixture(t)

	rr := f.do(&f.sole, http.MethodPost, "/prediction", map[string]any{"target_average": 5.0})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"required_grade":5,"message":"Noch keine Noten vorhanden."}`, rr.Body.String())

	f.addGrade(&f.sole, "", f.math, "Vornote", 4.5)
	f.addGrade(&f.sole, "", f.german, "Vornote", 4.5)

	rr = f.do(&f.sole, http.MethodPost, "/prediction", map[string]any{"target_average": 5.0, "next_exam_weight": 1.0})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"required_grade":6,"current_weight":2,"next_weight":1}`, rr.Body.String())

	rr = f.do(&f.sole, http.MethodPost, "/prediction", map[string]any{"target_average": 5.0, "next_exam_weight": 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(&f.sole, http.MethodPost, "/prediction", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(&f.other, http.MethodPost, "/prediction?student_id="+f.soleStudent.ID, map[string]any{"target_average": 5.0})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestSubjectsAndTopics(t *testing.T) {
	f := newFixture(t)

	subs := decode[[]notes.Subject](t, f.do(&f.sole, http.MethodGet, "/subjects", nil))
	assert.Len(t, subs, 2, "students see their parent's subjects")
	assert.Empty(t, decode[[]notes.Subject](t, f.do(&f.other, http.MethodGet, "/subjects", nil)))

	assert.Equal(t, http.StatusForbidden, f.do(&f.sole, http.MethodPost, "/subjects", map[string]any{"name": "Englisch"}).Code)
	rr := f.do(&f.other, http.MethodPost, "/subjects", map[string]any{"name": "Englisch", "weighting": 2})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	eng := decode[notes.Subject](t, rr)
	assert.Equal(t, f.other.ID, eng.OwnerID)
	assert.Equal(t, 2.0, eng.Weighting)
	assert.Equal(t, http.StatusBadRequest, f.do(&f.other, http.MethodPost, "/subjects", map[string]any{"name": " "}).Code)
	rr = f.do(&f.other, http.MethodPost, "/subjects", map[string]any{"name": "Englisch", "weighting": 3})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "already exists")

	topics := decode[[]notes.Topic](t, f.do(&f.sole, http.MethodGet, "/subjects/"+f.math.ID+"/topics", nil))
	require.Len(t, topics, 3)
	assert.Equal(t, http.StatusForbidden, f.do(&f.other, http.MethodGet, "/subjects/"+f.math.ID+"/topics", nil).Code)

	rr = f.do(&f.sole, http.MethodPut, "/topics/"+topics[0].ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[notes.Topic](t, rr).Completed)
	assert.Equal(t, http.StatusForbidden, f.do(&f.other, http.MethodPut, "/topics/"+topics[0].ID+"/toggle", nil).Code)

	rr = f.do(&f.admin, http.MethodPost, "/topics", map[string]any{"name": "Brüche", "subject_id": f.math.ID})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]notes.Topic](t, f.do(&f.admin, http.MethodGet, "/subjects/"+f.math.ID+"/topics", nil)), 4)
}

func TestDeleteSubject_InvalidatesAverage(t *testing.T) {
	f := newFixture(t)
	f.addGrade(&f.sole, "", f.math, "Vornote", 5.0)
	c := decode[gradecalc.Composite](t, f.do(&f.sole, http.MethodGet, "/average", nil))
	assert.Equal(t, gradecalc.Some(5.0), c.Details.Vornote.Math)

	assert.Equal(t, http.StatusForbidden, f.do(&f.other, http.MethodDelete, "/subjects/"+f.math.ID, nil).Code)
	require.Equal(t, http.StatusOK, f.do(&f.admin, http.MethodDelete, "/subjects/"+f.math.ID, nil).Code)

	c = decode[gradecalc.Composite](t, f.do(&f.sole, http.MethodGet, "/average", nil))
	assert.False(t, c.Details.Vornote.Math.Present)
	assert.Empty(t, decode[[]notes.Grade](t, f.do(&f.sole, http.MethodGet, "/grades", nil)))
	assert.Equal(t, http.StatusNotFound, f.do(&f.admin, http.MethodDelete, "/subjects/"+f.math.ID, nil).Code)
}

func TestChildren(t *testing.T) {
	f := newFixture(t)

	rr := f.do(&f.other, http.MethodPost, "/users/children", map[string]any{"username": "lea", "password": "geheim", "name": "Lea"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	lea := decode[notes.User](t, rr)
	assert.Equal(t, notes.RoleStudent, lea.Role)
	assert.Equal(t, f.other.ID, lea.ParentID)

	rr = f.do(&f.other, http.MethodPost, "/users/children", map[string]any{"username": "lea", "password": "geheim", "name": "Lea"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = f.do(&f.other, http.MethodPost, "/users/children", map[string]any{"username": "x", "password": "geheim", "name": "X", "parent_id": f.admin.ID})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	kids := decode[[]notes.Child](t, f.do(&f.other, http.MethodGet, "/users/"+f.other.ID+"/children", nil))
	require.Len(t, kids, 1)
	require.NotNil(t, kids[0].StudentProfile)
	assert.Equal(t, "Lea", kids[0].StudentProfile.Name)
	assert.Equal(t, http.StatusForbidden, f.do(&f.other, http.MethodGet, "/users/"+f.admin.ID+"/children", nil).Code)

	assert.Equal(t, http.StatusForbidden, f.do(&f.other, http.MethodDelete, "/users/children/"+f.sole.ID, nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(&f.admin, http.MethodDelete, "/users/children/"+f.other.ID, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(&f.other, http.MethodDelete, "/users/children/"+lea.ID, nil).Code)
	assert.Empty(t, decode[[]notes.Child](t, f.do(&f.other, http.MethodGet, "/users/"+f.other.ID+"/children", nil)))
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	rr := f.do(&f.sole, http.MethodPut, "/users/"+f.sole.ID+"/password", map[string]any{"password": "neu123"})
	require.Equal(t, http.StatusOK, rr.Code)

	u, err := f.store.GetUser(context.Background(), f.sole.ID)
	require.NoError(t, err)
	assert.True(t, authmw.CheckPassword(u.PasswordHash, "neu123"))

	assert.Equal(t, http.StatusForbidden, f.do(&f.sole, http.MethodPut, "/users/"+f.admin.ID+"/password", map[string]any{"password": "neu123"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(&f.sole, http.MethodPut, "/users/"+f.sole.ID+"/password", map[string]any{"password": "x"}).Code)
}

func TestResetAndSummary(t *testing.T) {
	f := newFixture(t)
	f.addGrade(&f.sole, "", f.math, "Vornote", 5.0)
	topics := decode[[]notes.Topic](t, f.do(&f.sole, http.MethodGet, "/subjects/"+f.math.ID+"/topics", nil))
	f.do(&f.sole, http.MethodPut, "/topics/"+topics[0].ID+"/toggle", nil)

	rr := f.do(&f.sole, http.MethodGet, "/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Student Name: Sole Iovanna")
	assert.Contains(t, rr.Body.String(), "- Mathematik: Average 5.00 (Grades: [5.0])")
	assert.Contains(t, rr.Body.String(), "[x] ")

	assert.Equal(t, http.StatusForbidden, f.do(&f.sole, http.MethodPost, "/reset", nil).Code)
	rr = f.do(&f.admin, http.MethodPost, "/reset?student_id="+f.soleStudent.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Demo reset successful")

	assert.Empty(t, decode[[]notes.Grade](t, f.do(&f.sole, http.MethodGet, "/grades", nil)))
	rr = f.do(&f.sole, http.MethodGet, "/summary", nil)
	assert.NotContains(t, rr.Body.String(), "[x] ")

	rr = f.do(&f.other, http.MethodGet, "/summary", nil)
	assert.Equal(t, "No children linked to this parent account.", rr.Body.String())
}
