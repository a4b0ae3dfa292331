package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, UploadBackendLocal, cfg.Uploads.Backend)
	assert.Equal(t, "urban-system", cfg.Geocoder.UserAgent)
	assert.Equal(t, 5*time.Second, cfg.Geocoder.Timeout)
	assert.False(t, cfg.Geocoder.ApplyHemisphere)
	assert.Equal(t, 0, cfg.Complaints.DailySubmissionLimit)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GEOCODER_BASE_URL", "http://geo.local/")
	t.Setenv("GEOCODER_TIMEOUT", "bogus")
	t.Setenv("COMPLAINTS_DAILY_LIMIT", "3")
	t.Setenv("UPLOADS_BACKEND", "MinIO")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://geo.local", cfg.Geocoder.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Geocoder.Timeout)
	assert.Equal(t, 3, cfg.Complaints.DailySubmissionLimit)
	assert.Equal(t, UploadBackendMinIO, cfg.Uploads.Backend)
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Host: "db", Port: 5432, User: "civic", Password: "p@ss", Name: "complaints", SSLMode: "disable"}}
	assert.Equal(t, "postgres://civic:p%40ss@db:5432/complaints?sslmode=disable", cfg.DatabaseURL())
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
