package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfile_NextFeasibleStart(t *testing.T) {
	t.Run("Should return the requested time when nothing is busy", func(t *testing.T) {
		p := NewProfile(nil)
		assert.Equal(t, 100, p.NextFeasibleStart(100, 50, 1, 2))
	})

	t.Run("Should skip past a fully occupied interval", func(t *testing.T) {
		p := NewProfile([]Interval{{Start: 0, End: 100, Demand: 2}})
		assert.Equal(t, 100, p.NextFeasibleStart(0, 50, 1, 2))
	})

	t.Run("Should pack alongside an interval when capacity allows", func(t *testing.T) {
		p := NewProfile([]Interval{{Start: 0, End: 100, Demand: 1}})
		assert.Equal(t, 0, p.NextFeasibleStart(0, 50, 1, 2))
	})

	t.Run("Should allow a back-to-back boundary as non-conflicting", func(t *testing.T) {
		p := NewProfile([]Interval{{Start: 0, End: 100, Demand: 1}})
		assert.True(t, p.FitsAt(100, 50, 1, 1))
	})
}

func TestNextAvailableAfter(t *testing.T) {
	t.Run("Should find the first gap after a busy span", func(t *testing.T) {
		busy := []Interval{{Start: 0, End: 200, Demand: 1}}
		assert.Equal(t, 200, NextAvailableAfter(50, 10, busy))
	})
}
