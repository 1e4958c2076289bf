package pause

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsShortBreak(t *testing.T) {
	t.Run("Should treat a brief pause under both thresholds as short", func(t *testing.T) {
		assert.True(t, IsShortBreak(10, 10))
	})

	t.Run("Should treat a long single pause as not short", func(t *testing.T) {
		assert.False(t, IsShortBreak(45, 0))
	})

	t.Run("Should treat a pause pushing cumulative minutes over threshold as not short", func(t *testing.T) {
		assert.False(t, IsShortBreak(10, 25))
	})
}
