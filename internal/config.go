package internal

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Port           string
	Storage        string
	DatabaseURL    string
	DBMaxConns     int32
	MigrateOnStart bool
	MigrationsDir  string
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	JWTTTL         time.Duration
	CookieSecure   bool
	AdminUsername  string
	AdminPassword  string
	NotifyQueue    int
	LogLevel       slog.Level
}

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func DefaultConfig() Config {
	return Config{
		Port:           "8080",
		Storage:        StoragePostgres,
		DBMaxConns:     10,
		MigrateOnStart: true,
		MigrationsDir:  "db/migrations",
		JWTTTL:         24 * time.Hour,
		NotifyQueue:    64,
		LogLevel:       slog.LevelInfo,
	}
}

func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	if raw := strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE"))); raw != "" {
		cfg.Storage = raw
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if raw := os.Getenv("DB_MAX_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxConns = int32(value)
		}
	}
	cfg.MigrateOnStart = envBool("MIGRATE_ON_START", cfg.MigrateOnStart)
	if raw := os.Getenv("MIGRATIONS_DIR"); raw != "" {
		cfg.MigrationsDir = raw
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.JWTIssuer = os.Getenv("JWT_ISSUER")
	cfg.JWTAudience = os.Getenv("JWT_AUDIENCE")
	if raw := os.Getenv("JWT_TTL_HOURS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.JWTTTL = time.Duration(value) * time.Hour
		}
	}
	cfg.CookieSecure = envBool("COOKIE_SECURE", false)
	cfg.AdminUsername = os.Getenv("ADMIN_USERNAME")
	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	if raw := os.Getenv("NOTIFY_QUEUE_SIZE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.NotifyQueue = value
		}
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			slog.Warn("invalid LOG_LEVEL, using info", "value", raw, "error", err)
			cfg.LogLevel = slog.LevelInfo
		}
	}

	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required")
	}
	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return cfg, errors.New("DATABASE_URL is required")
		}
	case StorageMemory:
	default:
		return cfg, errors.New("STORAGE must be postgres or memory")
	}
	return cfg, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
