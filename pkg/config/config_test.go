package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "PUSH_MAX_TOKENS", "GROUP_REPUSH_THROTTLE", "SWEEP_GRACE", "DIAGNOSTIC_WINDOW", "PUSH_DRY_RUN", "AUTH_MODE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 500, cfg.PushMaxTokens)
	assert.Equal(t, 10*time.Minute, cfg.GroupRepushThrottle)
	assert.Equal(t, 30*time.Second, cfg.SweepGrace)
	assert.Equal(t, 60*time.Second, cfg.DiagnosticWindow)
	assert.Equal(t, "*/15 * * * * *", cfg.SweepSchedule)
	assert.False(t, cfg.PushDryRun)
	assert.Equal(t, AuthModeFirebase, cfg.AuthMode)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("PUSH_MAX_TOKENS", "100")
	t.Setenv("GROUP_REPUSH_THROTTLE", "5m")
	t.Setenv("PUSH_DRY_RUN", "true")
	t.Setenv("ENV", "production")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 100, cfg.PushMaxTokens)
	assert.Equal(t, 5*time.Minute, cfg.GroupRepushThrottle)
	assert.True(t, cfg.PushDryRun)
	assert.True(t, cfg.IsProduction())
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("SWEEP_BATCH", "lots")
	t.Setenv("SWEEP_GRACE", "30")
	t.Setenv("PUSH_DRY_RUN", "maybe")

	cfg := Load()
	assert.Equal(t, 100, cfg.SweepBatch)
	assert.Equal(t, 30*time.Second, cfg.SweepGrace)
	assert.False(t, cfg.PushDryRun)
}

func TestLoadReportsMissingDotEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SWEEP_WATCH", "false")

	cfg := Load()
	assert.False(t, cfg.DotEnvLoaded)
	assert.False(t, cfg.SweepWatch)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NATS_STREAM=CAMPUS\n"), 0o600))
	chdir(t, dir)
	// .env never overrides a variable that is already set, even to empty
	t.Setenv("NATS_STREAM", "")
	require.NoError(t, os.Unsetenv("NATS_STREAM"))

	cfg := Load()
	assert.True(t, cfg.DotEnvLoaded)
	assert.Equal(t, "CAMPUS", cfg.NATSStream)
	assert.True(t, cfg.SweepWatch)
}
