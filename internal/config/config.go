package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Env string

const (
	EnvDevelopment Env = "development"
	EnvProduction  Env = "production"
)

type Config struct {
	Env             Env
	Debug           bool
	HTTPAddr        string
	ShutdownTimeout time.Duration

	DBDriver string
	DBDSN    string

	SecretKey string
	TokenTTL  time.Duration

	FrontendOrigins []string

	SeedDefaults    bool
	AdminPassword   string
	StudentPassword string
	EnableGuestAuth bool

	RedisAddr     string // empty disables the composite cache
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(files ...string) Config {
	_ = godotenv.Load(files...)
	return FromEnv()
}

func FromEnv() Config {
	env := Env(envOr("APP_ENV", string(EnvDevelopment)))
	driver, dsn := dbFromEnv()
	return Config{
		Env:             env,
		Debug:           envBool("APP_DEBUG", false),
		HTTPAddr:        envOr("HTTP_ADDR", ":8000"),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 15*time.Second),

		DBDriver: driver,
		DBDSN:    dsn,

		SecretKey: envOr("SECRET_KEY", "super-secret-key-change-me"),
		TokenTTL:  time.Duration(envInt("TOKEN_TTL_MIN", 60*24)) * time.Minute,

		FrontendOrigins: csvOr("FRONTEND_URL", "http://localhost:5173,http://localhost:3000"),

		SeedDefaults:    envBool("SEED_DEFAULTS", true),
		AdminPassword:   envOr("ADMIN_PASSWORD", "1234"),
		StudentPassword: envOr("STUDENT_PASSWORD", "sun26"),
		EnableGuestAuth: envBool("ENABLE_GUEST_AUTH", true),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		CacheTTL:      envDuration("CACHE_TTL", 5*time.Minute),
	}
}

// AllowCredentials reports whether CORS may send credentials. Browsers
// reject credentialed responses for a wildcard origin.
func (c Config) AllowCredentials() bool {
	for _, o := range c.FrontendOrigins {
		if o == "*" {
			return false
		}
	}
	return len(c.FrontendOrigins) > 0
}

// dbFromEnv accepts DB_DRIVER/DB_DSN, or a DATABASE_URL as handed out by
// hosting platforms. postgres:// URLs select the postgres driver.
func dbFromEnv() (driver, dsn string) {
	driver = os.Getenv("DB_DRIVER")
	dsn = os.Getenv("DB_DSN")
	if url := os.Getenv("DATABASE_URL"); dsn == "" && url != "" {
		dsn = url
		if driver == "" && (strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")) {
			driver = "postgres"
		}
	}
	if driver == "" {
		driver = "sqlite"
	}
	return driver, dsn
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}
func envDuration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
