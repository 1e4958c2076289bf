package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Default(t *testing.T) {
	t.Run("Should return valid default configuration", func(t *testing.T) {
		cfg := Default()

		require.NotNil(t, cfg)
		assert.Equal(t, 9, cfg.Calendar.WorkStartHour)
		assert.Equal(t, 17, cfg.Calendar.WorkEndHour)
		assert.Equal(t, 100, cfg.Calendar.ScaleFactor)
		assert.Equal(t, 60, cfg.Calendar.HorizonDays)
		assert.Equal(t, 8, cfg.Calendar.WorkHoursPerDay())
		assert.Equal(t, 800, cfg.Calendar.UnitsPerDay())
		assert.Equal(t, 48000, cfg.Calendar.Horizon())

		assert.Equal(t, 120*time.Second, cfg.Solver.AbsoluteCap)
		assert.Equal(t, 60*time.Second, cfg.Solver.StagnationCap)

		assert.Equal(t, 30, cfg.Thresholds.ShortBreakMinutes)
		assert.Equal(t, 30, cfg.Thresholds.CumulativeBreakMinutes)

		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, "rso", cfg.Database.DBName)
	})
}

func TestManager_Load(t *testing.T) {
	t.Run("Should load defaults when no overrides are present", func(t *testing.T) {
		m := NewManager(NewService())
		cfg, err := m.Load(t.Context(), NewDefaultProvider())
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, Default().Calendar, cfg.Calendar)
		assert.Equal(t, cfg, m.Get())
	})

	t.Run("Should apply environment overrides over defaults", func(t *testing.T) {
		t.Setenv("RSO_CALENDAR_HORIZON_DAYS", "90")
		m := NewManager(NewService())
		cfg, err := m.Load(t.Context(), NewDefaultProvider(), NewEnvProvider())
		require.NoError(t, err)
		assert.Equal(t, 90, cfg.Calendar.HorizonDays)
	})

	t.Run("Should close without error", func(t *testing.T) {
		m := NewManager(NewService())
		_, err := m.Load(t.Context(), NewDefaultProvider())
		require.NoError(t, err)
		assert.NoError(t, m.Close(t.Context()))
	})
}
