package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("EVIDENCE_BACKEND", "")

	cfg := Load()
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, EvidenceCloudinary, cfg.EvidenceBackend)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, int64(8<<20), cfg.MaxUploadBytes)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("DB_MAX_OPEN", "50")
	t.Setenv("DB_MAX_LIFETIME", "5m")
	t.Setenv("FACE_SKIP", "false")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("EVIDENCE_BACKEND", "Supabase")
	t.Setenv("RATE_LIMIT_PER_MIN", "not-a-number")

	cfg := Load()
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 50, cfg.DBMaxOpen)
	assert.Equal(t, 5*time.Minute, cfg.DBMaxLifetime)
	assert.False(t, cfg.FaceSkip)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, EvidenceSupabase, cfg.EvidenceBackend)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
}

func TestValidate(t *testing.T) {
	cfg := App{
		Env:                 "prod",
		JWTSigningKey:       devSigningKey,
		EvidenceBackend:     EvidenceCloudinary,
		CloudinaryCloudName: "demo",
		QueueBackend:        "kafka",
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SIGNING_KEY")
	assert.Contains(t, err.Error(), "CLOUDINARY_API_KEY")
	assert.Contains(t, err.Error(), "QUEUE_BACKEND")

	ok := App{
		Env:                "prod",
		JWTSigningKey:      "s3cret",
		EvidenceBackend:    EvidenceSupabase,
		SupabaseURL:        "https://x.supabase.co",
		SupabaseServiceKey: "key",
		QueueBackend:       "memory",
	}
	assert.NoError(t, ok.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SATPAM_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("SATPAM_TEST_DOTENV", "")
	os.Unsetenv("SATPAM_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("SATPAM_TEST_DOTENV"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
