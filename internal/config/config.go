package config

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Photo modes.
const (
	PhotoModeFile   = "file"
	PhotoModeInline = "inline"
)

// Progress stores.
const (
	ProgressMemory = "memory"
	ProgressRedis  = "redis"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"photo-hunt"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:3000"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`
	ReadHeaderTimeout       time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`
	// zero leaves slow photo uploads unbounded
	ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"0s"`

	Storage    Storage
	Limits     Limits
	Submission Submission
	Hunt       Hunt
	Redis      Redis
	Postgres   Postgres
	Admin      Admin
}

// Storage selects where submissions and photos live.
type Storage struct {
	Backend         string `env:"STORAGE_BACKEND" envDefault:"file"`
	DataDir         string `env:"DATA_DIR" envDefault:"data"`
	SubmissionsFile string `env:"SUBMISSIONS_FILE" envDefault:""`
	UploadsDir      string `env:"UPLOADS_DIR" envDefault:"uploads"`
	// empty picks file for the file backend and inline otherwise
	PhotoMode string `env:"PHOTO_MODE" envDefault:""`
}

// Limits bounds request bodies.
type Limits struct {
	BodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"15728640"`
	FileBytes int64 `env:"MAX_FILE_BYTES" envDefault:"10485760"`
	Fields    int   `env:"MAX_FIELDS" envDefault:"20"`
}

// Submission tunes decoding and grading.
type Submission struct {
	MultipartParser string `env:"SUBMISSION_MULTIPART_PARSER" envDefault:"library"`
	VerifyAnswers   bool   `env:"VERIFY_ANSWERS" envDefault:"false"`
}

// Hunt configures the clue pool, roster and progress persistence.
type Hunt struct {
	PoolFile           string        `env:"HUNT_POOL_FILE" envDefault:""`
	Pool               string        `env:"HUNT_POOL" envDefault:"campus"`
	RosterFile         string        `env:"ROSTER_FILE" envDefault:"credentials.yaml"`
	DefaultTeamCount   int           `env:"DEFAULT_TEAM_COUNT" envDefault:"50"`
	ProgressStore      string        `env:"PROGRESS_STORE" envDefault:"memory"`
	ProgressVersion    string        `env:"PROGRESS_VERSION" envDefault:"2026-02-20-v2"`
	ProgressPrefix     string        `env:"PROGRESS_REDIS_PREFIX" envDefault:"hunt"`
	ProgressSessionTTL time.Duration `env:"PROGRESS_SESSION_TTL" envDefault:"12h"`
	StaticDir          string        `env:"STATIC_DIR" envDefault:"public"`
}

// Redis holds connection info for the redis backend and progress store.
type Redis struct {
	Addr              string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password          string `env:"REDIS_PASSWORD" envDefault:""`
	DB                int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize          int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
	SubmissionsPrefix string `env:"REDIS_SUBMISSIONS_PREFIX" envDefault:"hunt:submissions"`
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:"hunt"`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:"hunt"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int32  `env:"PG_MAX_CONNS" envDefault:"10"`
}

// Admin guards destructive endpoints. An empty token leaves reset open.
type Admin struct {
	ResetToken string `env:"ADMIN_RESET_TOKEN" envDefault:""`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and non-positive limits.
func (c *App) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("config: unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	switch c.Storage.PhotoMode {
	case "", PhotoModeFile, PhotoModeInline:
	default:
		return fmt.Errorf("config: unknown PHOTO_MODE %q", c.Storage.PhotoMode)
	}
	switch c.Submission.MultipartParser {
	case "library", "manual":
	default:
		return fmt.Errorf("config: unknown SUBMISSION_MULTIPART_PARSER %q", c.Submission.MultipartParser)
	}
	switch c.Hunt.ProgressStore {
	case ProgressMemory, ProgressRedis:
	default:
		return fmt.Errorf("config: unknown PROGRESS_STORE %q", c.Hunt.ProgressStore)
	}
	if c.Limits.BodyBytes <= 0 || c.Limits.FileBytes <= 0 || c.Limits.Fields <= 0 {
		return fmt.Errorf("config: limits must be positive")
	}
	if c.Limits.FileBytes > c.Limits.BodyBytes {
		return fmt.Errorf("config: MAX_FILE_BYTES exceeds MAX_BODY_BYTES")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *App) IsProduction() bool { return c.Env == "production" }

// NeedsRedis reports whether any component talks to redis.
func (c *App) NeedsRedis() bool {
	return c.Storage.Backend == BackendRedis || c.Hunt.ProgressStore == ProgressRedis
}

// ResolvedPhotoMode returns the effective photo mode.
func (s Storage) ResolvedPhotoMode() string {
	if s.PhotoMode != "" {
		return s.PhotoMode
	}
	if s.Backend == BackendFile {
		return PhotoModeFile
	}
	return PhotoModeInline
}

// SubmissionsPath is the file backend's JSON array.
func (s Storage) SubmissionsPath() string {
	if s.SubmissionsFile != "" {
		return s.SubmissionsFile
	}
	return filepath.Join(s.DataDir, "submissions.json")
}

// DSN renders a postgres connection URL.
func (p Postgres) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.Database,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}
