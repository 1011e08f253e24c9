package config

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"LIGHTSHADE_BACKEND", "LIGHTSHADE_API_URL", "LIGHTSHADE_LISTEN", "LIGHTSHADE_LOG_LEVEL",
		"LIGHTSHADE_MAX_DIM", "LIGHTSHADE_RELEASE", "LIGHTSHADE_UPLOAD_LIMIT_MB",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	c := New()

	assert.Equal(t, "cpu", c.Backend)
	assert.Equal(t, "http://localhost:10000", c.APIURL)
	assert.Equal(t, ":8081", c.Listen)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 0, c.MaxDim)
	assert.False(t, c.Release)
	assert.Equal(t, int64(32<<20), c.UploadLimit())
	assert.NoError(t, c.Validate())
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIGHTSHADE_API_URL", "https://api.example.com/")
	t.Setenv("LIGHTSHADE_MAX_DIM", "1024")
	t.Setenv("LIGHTSHADE_RELEASE", "true")
	t.Setenv("LIGHTSHADE_UPLOAD_LIMIT_MB", "abc")

	c := New()
	assert.Equal(t, "https://api.example.com", c.APIURL)
	assert.Equal(t, 1024, c.MaxDim)
	assert.True(t, c.Release)
	assert.Equal(t, 32, c.UploadLimitMB)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	c := New()
	c.MaxDim = -1
	assert.Error(t, c.Validate())

	c = New()
	c.LogLevel = "loud"
	assert.Error(t, c.Validate())

	c = New()
	c.UploadLimitMB = 0
	assert.Error(t, c.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LIGHTSHADE_LISTEN=:9999\n"), 0o644))

	// godotenv does not override variables that are already set.
	require.NoError(t, os.Unsetenv("LIGHTSHADE_LISTEN"))
	c := Load(path)
	assert.Equal(t, ":9999", c.Listen)
}

func TestApplyLogLevel(t *testing.T) {
	prev := log.GetLevel()
	defer log.SetLevel(prev)

	(&Config{LogLevel: "debug"}).ApplyLogLevel()
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	(&Config{LogLevel: "nope"}).ApplyLogLevel()
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}
