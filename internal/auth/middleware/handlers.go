package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/notenpfad/notenpfad/internal/notes"
	"github.com/notenpfad/notenpfad/internal/validate"
)

type TokenResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	UserID      string  `json:"user_id"`
	Username    string  `json:"username"`
	Role        string  `json:"role"`
	StudentID   *string `json:"student_id"`
}

// NewTokenResponse issues a token for u and looks up its student profile.
func NewTokenResponse(ctx context.Context, a *AuthService, store notes.Store, u notes.User) (TokenResponse, error) {
	tok, err := a.IssueJWT(u)
	if err != nil {
		return TokenResponse{}, err
	}
	out := TokenResponse{
		AccessToken: tok,
		TokenType:   "bearer",
		UserID:      u.ID,
		Username:    u.Username,
		Role:        string(u.Role),
	}
	st, err := store.GetStudentByUser(ctx, u.ID)
	switch {
	case err == nil:
		out.StudentID = &st.ID
	case !errors.Is(err, notes.ErrNotFound):
		return TokenResponse{}, err
	}
	return out, nil
}

type credentials struct {
	Username string `json:"username" validate:"notblank,max=64"`
	Password string `json:"password" validate:"required"`
}

// POST /login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService, store notes.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := validate.Decode(r, &req); err != nil {
			validate.WriteError(w, err)
			return
		}
		u, err := store.GetUserByUsername(r.Context(), req.Username)
		if err != nil && !errors.Is(err, notes.ErrNotFound) {
			log.Error("login lookup", "username", req.Username, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if err != nil || !CheckPassword(u.PasswordHash, req.Password) {
			http.Error(w, "Incorrect username or password", http.StatusUnauthorized)
			return
		}
		out, err := NewTokenResponse(r.Context(), a, store, u)
		if err != nil {
			log.Error("issue token", "user", u.ID, "err", err)
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// POST /register creates a parent account.
func RegisterHandler(store notes.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username" validate:"notblank,max=64"`
			Password string `json:"password" validate:"required,min=4"`
		}
		if err := validate.Decode(r, &req); err != nil {
			validate.WriteError(w, err)
			return
		}
		hash, err := HashPassword(req.Password)
		if err != nil {
			http.Error(w, "hash password", http.StatusInternalServerError)
			return
		}
		u, err := store.CreateUser(r.Context(), notes.User{Username: req.Username, PasswordHash: hash, Role: notes.RoleParent})
		if errors.Is(err, notes.ErrConflict) {
			http.Error(w, "Username already registered", http.StatusBadRequest)
			return
		}
		if err != nil {
			log.Error("register", "username", req.Username, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		log.Info("user registered", "user", u.ID)
		writeJSON(w, http.StatusOK, u)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
