package reminder_config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "08:00", cfg.Sched.At)
	assert.Equal(t, "Europe/Moscow", cfg.Sched.Location)
	assert.Equal(t, []int{10, 7, 4, 1}, cfg.Sched.Thresholds)
	assert.False(t, cfg.Sched.RunOnStart)
}

func TestLoad_RejectsBadTime(t *testing.T) {
	t.Setenv("SCHED_AT", "25:99")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_RejectsBadLocation(t *testing.T) {
	t.Setenv("SCHED_LOCATION", "Mars/Olympus")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_RealtimeBackend(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Realtime.Backend)

	t.Setenv("REALTIME_BACKEND", "carrier-pigeon")
	_, err = Load("")
	require.Error(t, err)
}
