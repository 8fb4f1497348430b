package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverSupabase = "supabase"
	DriverSQLite   = "sqlite"
)

// Duration parses "10s", "5m" or a bare number of seconds.
type Duration time.Duration

// SetValue implements cleanenv.Setter.
func (d *Duration) SetValue(data string) error {
	v, err := parseDuration(data)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func parseDuration(s string) (time.Duration, error) {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duration must be like 10s, 5m or a number of seconds: %w", err)
	}
	return d, nil
}

// Config is the complete runtime configuration.
type Config struct {
	HTTP      HTTPConfig
	Storage   StorageConfig
	Supabase  SupabaseConfig
	Auth      AuthConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type HTTPConfig struct {
	Addr         string   `env:"TASKBOARD_ADDR" env-default:":4000"`
	StaticDir    string   `env:"TASKBOARD_STATIC_DIR" env-default:""`
	AllowOrigins []string `env:"TASKBOARD_ALLOW_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
	ReadTimeout  Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout  Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type StorageConfig struct {
	Driver     string `env:"TASKBOARD_DRIVER" env-default:"supabase"`
	SQLitePath string `env:"TASKBOARD_DB_PATH" env-default:"data/taskboard.db"`
}

type SupabaseConfig struct {
	URL        string   `env:"SUPABASE_URL"`
	AnonKey    string   `env:"SUPABASE_ANON_KEY"`
	ServiceKey string   `env:"SUPABASE_SERVICE_KEY,SUPABASE_SERVICE_ROLE_KEY"`
	Timeout    Duration `env:"SUPABASE_TIMEOUT" env-default:"30s"`
}

type AuthConfig struct {
	// JWTSecret verifies bearer tokens and signs tokens issued by the sqlite driver.
	JWTSecret    string   `env:"JWT_SECRET"`
	RequireToken bool     `env:"AUTH_REQUIRE_TOKEN" env-default:"false"`
	TokenTTL     Duration `env:"AUTH_TOKEN_TTL" env-default:"1h"`
	RefreshTTL   Duration `env:"AUTH_REFRESH_TTL" env-default:"720h"`
}

type RedisConfig struct {
	// URL enables the lookup cache when set, e.g. redis://localhost:6379/0.
	URL string   `env:"REDIS_URL" env-default:""`
	TTL Duration `env:"REDIS_LOOKUP_TTL" env-default:"5m"`
}

type RateLimitConfig struct {
	AuthRPS   float64 `env:"AUTH_RATE_LIMIT_RPS" env-default:"5"`
	AuthBurst int     `env:"AUTH_RATE_LIMIT_BURST" env-default:"10"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings the selected driver depends on.
func (c Config) Validate() error {
	var problems []string
	switch c.Storage.Driver {
	case DriverSupabase:
		if c.Supabase.URL == "" {
			problems = append(problems, "SUPABASE_URL is required")
		}
		if c.Supabase.AnonKey == "" {
			problems = append(problems, "SUPABASE_ANON_KEY is required")
		}
		if c.Supabase.ServiceKey == "" {
			problems = append(problems, "SUPABASE_SERVICE_KEY (or SUPABASE_SERVICE_ROLE_KEY) is required")
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			problems = append(problems, "TASKBOARD_DB_PATH is required")
		}
		if c.Auth.JWTSecret == "" {
			problems = append(problems, "JWT_SECRET is required for the sqlite driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown driver %q", c.Storage.Driver))
	}

	if c.Auth.RequireToken && c.Auth.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required when AUTH_REQUIRE_TOKEN is set")
	}
	if c.RateLimit.AuthRPS <= 0 || c.RateLimit.AuthBurst <= 0 {
		problems = append(problems, "auth rate limit must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LogLevel maps the configured level name onto slog.
func (c LogConfig) LogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger from the log settings.
func (c LogConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel()}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
