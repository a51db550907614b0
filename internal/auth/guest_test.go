package auth

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmw "github.com/notenpfad/notenpfad/internal/auth/middleware"
	"github.com/notenpfad/notenpfad/internal/config"
	"github.com/notenpfad/notenpfad/internal/db"
	"github.com/notenpfad/notenpfad/internal/notes"
)

func TestGuestLogin(t *testing.T) {
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	dbh, err := db.Open(ctx, db.DriverSQLite, dsn)
	require.NoError(t, err)
	defer dbh.Close()

	store := notes.NewSQLStore(dbh)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	seeder := notes.Seeder{Store: store, Hash: authmw.HashPassword, Log: log}
	a := authmw.NewAuthService("secret", time.Hour)

	h := GuestLoginHandler(a, store, seeder, config.Config{EnableGuestAuth: true}, log)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/guest-login", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var out authmw.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "parent", out.Role)
	assert.True(t, strings.HasPrefix(out.Username, "guest_"))
	assert.NotEmpty(t, out.AccessToken)

	kids, err := store.ListChildren(ctx, out.UserID)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	require.NotNil(t, kids[0].StudentProfile)
	grades, err := store.ListGrades(ctx, kids[0].StudentProfile.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, grades)

	off := GuestLoginHandler(a, store, seeder, config.Config{}, log)
	rr = httptest.NewRecorder()
	off.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/guest-login", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
