package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/notenpfad/notenpfad/internal/notes"
	"github.com/notenpfad/notenpfad/internal/rbac"
)

// AttachViewer loads the token subject from the store and makes the stored
// account, with its stored role, the request viewer. Tokens of deleted
// accounts are rejected.
func AttachViewer(store notes.Store, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)
			u, err := store.GetUser(ctx, sub)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(rbac.WithViewer(ctx, u)))
			case errors.Is(err, notes.ErrNotFound):
				http.Error(w, "unknown user", http.StatusUnauthorized)
			default:
				log.Error("load viewer", "sub", sub, "err", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		})
	}
}
