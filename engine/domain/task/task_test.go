package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsReserved(t *testing.T) {
	t.Run("Should flag reserved prefixes", func(t *testing.T) {
		assert.True(t, IsReserved("SUMMARY.1"))
		assert.True(t, IsReserved("MILESTONE.foo"))
	})

	t.Run("Should pass through ordinary codes", func(t *testing.T) {
		assert.False(t, IsReserved("1.2.3"))
	})
}

func TestFilterSchedulable(t *testing.T) {
	t.Run("Should drop reserved tasks and keep the rest", func(t *testing.T) {
		in := []*Config{
			{ID: 1, WBSCode: "1.1"},
			{ID: 2, WBSCode: "HEADER.1"},
			{ID: 3, WBSCode: "1.2"},
		}
		out := FilterSchedulable(in)
		assert.Len(t, out, 2)
		assert.Equal(t, int64(1), out[0].ID)
		assert.Equal(t, int64(3), out[1].ID)
	})
}

func TestConfig_DurationUnits(t *testing.T) {
	t.Run("Should scale hours into WTU", func(t *testing.T) {
		c := &Config{EstimatedHours: 2.5}
		assert.Equal(t, 250, c.DurationUnits(100))
	})

	t.Run("Should round to nearest unit", func(t *testing.T) {
		c := &Config{EstimatedHours: 1.004}
		assert.Equal(t, 100, c.DurationUnits(100))
	})
}
