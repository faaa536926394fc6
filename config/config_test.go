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
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 168*time.Hour, cfg.JWTExpire)
	assert.Equal(t, int64(10<<20), cfg.ScanMaxImageBytes)
	assert.Equal(t, 20*time.Second, cfg.ClassifierTimeout)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.NarrativeAPIKey())
}

func TestLoad_EnvFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FERN_TEST_ONLY=1\nOPENAI_KEY='sk-from-file'\n"), 0o600))
	os.Unsetenv("OPENAI_KEY")
	t.Cleanup(func() {
		os.Unsetenv("FERN_TEST_ONLY")
		os.Unsetenv("OPENAI_KEY")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", cfg.NarrativeAPIKey())
}

func TestNarrativeAPIKey_Precedence(t *testing.T) {
	cfg := &Config{OpenAIAPIKey: " primary ", OpenAIKey: "fallback"}
	assert.Equal(t, "primary", cfg.NarrativeAPIKey())

	cfg.OpenAIAPIKey = ""
	assert.Equal(t, "fallback", cfg.NarrativeAPIKey())
}
