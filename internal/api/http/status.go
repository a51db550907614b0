package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"
)

func RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		message(w, "Notenpfad API is running")
	}
}

// StatusHandler reports liveness and, when db is set, database reachability.
func StatusHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := map[string]string{"status": "ok"}
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				out["status"] = "degraded"
				out["db"] = "unreachable"
				writeJSON(w, http.StatusServiceUnavailable, out)
				return
			}
			out["db"] = "ok"
		}
		writeJSON(w, http.StatusOK, out)
	}
}
