package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudorandom/attack-map/pkg/geo"
	"github.com/sudorandom/attack-map/pkg/scheduler"
)

func TestDefaultIsValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, scheduler.ModeSequential, cfg.Playback.Mode)
	assert.Equal(t, 5, cfg.Playback.SpeedLevel)
	assert.Equal(t, 300, cfg.Limits.MaxActiveElements)
	assert.Equal(t, 800, cfg.Map.Width)
	assert.Equal(t, 500, cfg.Map.Height)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attackmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
playback:
  mode: simultaneous
  speed_level: 9
  attack_type_filter: DDoS
limits:
  simultaneous_batch: 4
  replay_buffer: 2s
map:
  projection: mollweide
  width: 1920
  height: 1080
theme:
  light: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, scheduler.ModeSimultaneous, cfg.Playback.Mode)
	assert.Equal(t, 9, cfg.Playback.SpeedLevel)
	assert.Equal(t, "DDoS", cfg.Playback.AttackTypeFilter)
	assert.Equal(t, 4, cfg.Limits.SimultaneousBatch)
	assert.Equal(t, 50, cfg.Limits.SequentialBatch, "unset fields keep their defaults")
	assert.Equal(t, 2*time.Second, cfg.Limits.ReplayBuffer)
	assert.Equal(t, geo.KindMollweide, cfg.Map.Projection)
	assert.True(t, cfg.Theme.Light)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"speed too high", "playback:\n  speed_level: 11\n", "SpeedLevel"},
		{"speed too low", "playback:\n  speed_level: 0\n", "SpeedLevel"},
		{"bad mode", "playback:\n  mode: bursty\n", "Mode"},
		{"bad filter", "playback:\n  attack_type_filter: Spam\n", "Spam"},
		{"bad projection", "map:\n  projection: robinson\n", "Projection"},
		{"zero width", "map:\n  width: 0\n", "Width"},
		{"unknown key", "playback:\n  turbo: true\n", "turbo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "error %q should mention %q", err, tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalid))
}

func TestValidatePlayback(t *testing.T) {
	assert.NoError(t, ValidatePlayback(scheduler.DefaultPlaybackConfig()))
	p := scheduler.DefaultPlaybackConfig()
	p.AttackTypeFilter = "Brute Force"
	assert.NoError(t, ValidatePlayback(p))
	p.SpeedLevel = 42
	assert.ErrorIs(t, ValidatePlayback(p), ErrInvalid)
}
