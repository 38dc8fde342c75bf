package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchOptions_Validate(t *testing.T) {
	opts := MatchOptions{Threshold: 0.6, AcceptThreshold: 0.75, AttendeeThreshold: 0.7}
	require.NoError(t, opts.Validate())

	opts.Threshold = 1.5
	require.Error(t, opts.Validate())

	opts = MatchOptions{Threshold: 0.6, AcceptThreshold: -0.1, AttendeeThreshold: 0.7}
	require.Error(t, opts.Validate())
}

func TestConfiguration_LoadDefaults(t *testing.T) {
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(oldwd) })

	c := &Configuration{}
	require.NoError(t, c.load(nil))

	require.Equal(t, "engage-state.json", c.StatePath)
	require.Equal(t, "backups", c.BackupDir)
	require.InDelta(t, 0.6, c.Match.Threshold, 1e-9)
	require.InDelta(t, 0.75, c.Match.AcceptThreshold, 1e-9)
	require.InDelta(t, 0.7, c.Match.AttendeeThreshold, 1e-9)
	require.NotNil(t, c.Logger())
}

func TestConfiguration_LoadEnvOverride(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "0.8")
	t.Setenv("LOG_LEVEL", "debug")

	c := &Configuration{}
	require.NoError(t, c.load(nil))
	require.InDelta(t, 0.8, c.Match.Threshold, 1e-9)
	require.Equal(t, "debug", c.LogLevel)
}

func TestConfiguration_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "engage.log")
	t.Setenv("LOG_FILE", path)

	c := &Configuration{}
	require.NoError(t, c.load(nil))
	require.NotNil(t, c.Logger())

	c.Logger().Error("boom")
	require.NoError(t, c.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "boom")
}
