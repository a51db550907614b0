package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/notenpfad/notenpfad/internal/api/http"
	"github.com/notenpfad/notenpfad/internal/audit"
	"github.com/notenpfad/notenpfad/internal/auth"
	authmw "github.com/notenpfad/notenpfad/internal/auth/middleware"
	"github.com/notenpfad/notenpfad/internal/cache"
	"github.com/notenpfad/notenpfad/internal/config"
	"github.com/notenpfad/notenpfad/internal/db"
	"github.com/notenpfad/notenpfad/internal/gradecalc"
	"github.com/notenpfad/notenpfad/internal/notes"
)

func main() {
	cfg := config.Load()
	log := setupLogger(cfg)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.ParseDriver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return err
	}
	defer dbh.Close()
	store := notes.NewSQLStore(dbh)

	seeder := notes.Seeder{Store: store, Hash: authmw.HashPassword, Log: log}
	if cfg.SeedDefaults {
		// seeding problems must not keep the API down
		if err := seeder.EnsureDefaults(ctx, cfg.AdminPassword, cfg.StudentPassword); err != nil {
			log.Error("seed defaults", "err", err)
		}
	}

	// --- Cache (optional) ---
	var composites *cache.Composites
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cache.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			log.Warn("redis unavailable, composite cache disabled", "addr", cfg.RedisAddr, "err", err)
		} else {
			defer rc.Close()
			composites = cache.NewComposites(rc, cfg.CacheTTL, log)
			log.Info("composite cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		}
	}

	authSvc := authmw.NewAuthService(cfg.SecretKey, cfg.TokenTTL)
	deps := api.Deps{
		Store:  store,
		Engine: gradecalc.NewEngine(),
		Cache:  composites,
		Audit:  audit.NewEventRepo(dbh, log),
		Log:    log,
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.FrontendOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: cfg.AllowCredentials(),
		MaxAge:           300,
	}))

	r.Get("/", api.RootHandler())
	r.Get("/status", api.StatusHandler(dbh))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	r.Post("/register", authmw.RegisterHandler(store, log))
	r.Post("/login", authmw.LoginHandler(authSvc, store, log))
	r.Post("/guest-login", auth.GuestLoginHandler(authSvc, store, seeder, cfg, log))

	// Protected API (JWT → stored account → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc), authmw.AttachViewer(store, log))
		api.Mount(pr, deps)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "env", cfg.Env, "db", cfg.DBDriver)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

func setupLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Env == config.EnvProduction {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
