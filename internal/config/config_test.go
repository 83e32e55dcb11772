package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vocalless/vocalless/internal/config"
)

// setEnv is a helper that sets environment variables for a test and restores them after.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
}

// validEnv returns the minimum set of valid environment variables.
func validEnv() map[string]string {
	return map[string]string{
		"REDIS_URL":         "redis://localhost:6379",
		"METADATA_PROVIDER": "ollama",
		"OLLAMA_BASE_URL":   "http://localhost:11434",
		"UPLOAD_BASE_URL":   "",
		"UPLOAD_TOKEN":      "",
		"OPENAI_API_KEY":    "",
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	assert.Equal(t, "ollama", cfg.Metadata.Provider)
	assert.Equal(t, "llama3.2:3b", cfg.Metadata.Ollama.Model)
	assert.Equal(t, "htdemucs", cfg.Pipeline.DemucsModel)
	assert.Equal(t, -14.0, cfg.Pipeline.TargetLoudness)
	assert.Equal(t, 180*time.Second, cfg.Pipeline.DefaultItemTime)
}

func TestLoad_WorkspaceLayout(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("VOCALLESS_DATA_DIR", "/srv/vocalless")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/vocalless", cfg.Workspace.Root)
	assert.Equal(t, filepath.Join("/srv/vocalless", "output"), cfg.Workspace.Output)
	assert.Equal(t, filepath.Join("/srv/vocalless", "uploads"), cfg.Workspace.Uploads)
	assert.Equal(t, filepath.Join("/srv/vocalless", "temp"), cfg.Workspace.Temp)
}

func TestLoad_CustomPort(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("VOCALLESS_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_InvalidPort(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("VOCALLESS_PORT", "70000")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VOCALLESS_PORT")
}

func TestLoad_MissingRedisURL(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("REDIS_URL", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
}

func TestLoad_UnknownMetadataProvider(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("METADATA_PROVIDER", "bard")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "METADATA_PROVIDER")
}

func TestLoad_OpenAIRequiresKey(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("METADATA_PROVIDER", "openai")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoad_OpenAIWithKey(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("METADATA_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Metadata.Provider)
}

func TestLoad_UploadTokenRequiresBaseURL(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("UPLOAD_TOKEN", "tok")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPLOAD_BASE_URL")
}

func TestLoad_UploadBaseURLMustBeHTTP(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("UPLOAD_TOKEN", "tok")
	t.Setenv("UPLOAD_BASE_URL", "ftp://media.example.com")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPLOAD_BASE_URL")
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("VOCALLESS_RATE_LIMIT", "not-a-number")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Server.RequestsPerMinute)
}

func TestLoad_PositiveLoudnessRejected(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("TARGET_LOUDNESS_LUFS", "3")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TARGET_LOUDNESS_LUFS")
}
