package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GOOGLE_API_KEY", "GEMINI_API_KEY", "EMOLYZER_DB", "EMOLYZER_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Oracle.Provider)
	assert.Equal(t, 10, cfg.History.MoodDays)
	assert.Equal(t, 365, cfg.History.RewardDays)
	assert.Equal(t, 60, cfg.History.LeaveDays)
	assert.Equal(t, 3, cfg.Policy.TrailingWindow)
	assert.Equal(t, 3, cfg.Policy.MaxFollowupsPerReason)
	assert.Equal(t, 30*time.Second, cfg.GetOracleTimeout())
	assert.Equal(t, 5*time.Second, cfg.GetStoreTimeout())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("oracle:\n  model: gemini-2.5-flash\n  timeout: 5s\npolicy:\n  max_followups_per_reason: 2\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-flash", cfg.Oracle.Model)
	assert.Equal(t, 5*time.Second, cfg.GetOracleTimeout())
	assert.Equal(t, 2, cfg.Policy.MaxFollowupsPerReason)
	assert.Equal(t, 3, cfg.Policy.TrailingWindow, "untouched keys keep defaults")
	assert.Equal(t, 20, cfg.Policy.TranscriptWindow)
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("oracle: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Policy.TrailingWindow = 5
	cfg.Database.Path = "/tmp/x.db"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Policy.TrailingWindow)
	assert.Equal(t, "/tmp/x.db", loaded.Database.Path)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("GOOGLE_API_KEY sets key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GOOGLE_API_KEY", "google")

		cfg := &Config{}
		cfg.applyEnvOverrides()
		assert.Equal(t, "google", cfg.Oracle.APIKey)
	})

	t.Run("GEMINI_API_KEY wins over GOOGLE_API_KEY", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GOOGLE_API_KEY", "google")
		t.Setenv("GEMINI_API_KEY", "gemini")

		cfg := &Config{}
		cfg.applyEnvOverrides()
		assert.Equal(t, "gemini", cfg.Oracle.APIKey)
	})

	t.Run("database and log level", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("EMOLYZER_DB", "/data/e.db")
		t.Setenv("EMOLYZER_LOG_LEVEL", "DEBUG")

		cfg := &Config{}
		cfg.applyEnvOverrides()
		assert.Equal(t, "/data/e.db", cfg.Database.Path)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})
}

func TestTimeoutFallbacks(t *testing.T) {
	cfg := &Config{}
	cfg.Oracle.Timeout = "soon"
	cfg.Database.Timeout = "-1s"

	assert.Equal(t, 30*time.Second, cfg.GetOracleTimeout())
	assert.Equal(t, 5*time.Second, cfg.GetStoreTimeout())
}

func TestHistoryWindows(t *testing.T) {
	h := HistoryConfig{MoodDays: 10, RewardDays: 365, LeaveDays: 60}
	assert.Equal(t, 240*time.Hour, h.MoodWindow())
	assert.Equal(t, 365*24*time.Hour, h.RewardWindow())
	assert.Equal(t, 60*24*time.Hour, h.LeaveWindow())
}
