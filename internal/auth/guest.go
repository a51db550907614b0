package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	authmw "github.com/notenpfad/notenpfad/internal/auth/middleware"
	"github.com/notenpfad/notenpfad/internal/config"
	"github.com/notenpfad/notenpfad/internal/notes"
)

// GuestLoginHandler provisions a fresh guest parent with demo data and logs
// it in. Every call creates a new, isolated guest.
func GuestLoginHandler(a *authmw.AuthService, store notes.Store, seeder notes.Seeder, cfg config.Config, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.EnableGuestAuth {
			http.Error(w, "guest auth disabled", http.StatusForbidden)
			return
		}
		g, err := seeder.CreateGuest(r.Context())
		if err != nil {
			log.Error("create guest", "err", err)
			http.Error(w, "create guest", http.StatusInternalServerError)
			return
		}
		out, err := authmw.NewTokenResponse(r.Context(), a, store, g.Parent)
		if err != nil {
			log.Error("issue token", "user", g.Parent.ID, "err", err)
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}
