package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "photo-hunt", cfg.Name)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, PhotoModeFile, cfg.Storage.ResolvedPhotoMode())
	assert.Equal(t, filepath.Join("data", "submissions.json"), cfg.Storage.SubmissionsPath())
	assert.Equal(t, int64(15<<20), cfg.Limits.BodyBytes)
	assert.Equal(t, int64(10<<20), cfg.Limits.FileBytes)
	assert.Equal(t, 20, cfg.Limits.Fields)
	assert.Equal(t, "library", cfg.Submission.MultipartParser)
	assert.False(t, cfg.Submission.VerifyAnswers)
	assert.Equal(t, ProgressMemory, cfg.Hunt.ProgressStore)
	assert.Equal(t, 12*time.Hour, cfg.Hunt.ProgressSessionTTL)
	assert.Equal(t, time.Duration(0), cfg.ReadTimeout)
	assert.False(t, cfg.NeedsRedis())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("PROGRESS_STORE", "redis")
	t.Setenv("VERIFY_ANSWERS", "true")
	t.Setenv("SUBMISSION_MULTIPART_PARSER", "manual")
	t.Setenv("MAX_FILE_BYTES", "1024")
	t.Setenv("ADMIN_RESET_TOKEN", "s3cret")

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhotoModeInline, cfg.Storage.ResolvedPhotoMode())
	assert.True(t, cfg.NeedsRedis())
	assert.True(t, cfg.Submission.VerifyAnswers)
	assert.Equal(t, "manual", cfg.Submission.MultipartParser)
	assert.Equal(t, int64(1024), cfg.Limits.FileBytes)
	assert.Equal(t, "s3cret", cfg.Admin.ResetToken)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"STORAGE_BACKEND":             "mongo",
		"PHOTO_MODE":                  "s3",
		"SUBMISSION_MULTIPART_PARSER": "busboy",
		"PROGRESS_STORE":              "cookie",
		"MAX_FIELDS":                  "0",
		"MAX_FILE_BYTES":              "999999999",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := Postgres{Host: "db", Port: 5433, User: "hunt", Password: "p@ss", Database: "hunt", SSLMode: "disable"}
	assert.Equal(t, "postgres://hunt:p%40ss@db:5433/hunt?sslmode=disable", p.DSN())
}
