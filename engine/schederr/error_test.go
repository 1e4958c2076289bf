package schederr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Fatal(t *testing.T) {
	t.Run("Should classify fatal kinds", func(t *testing.T) {
		for _, k := range []Kind{CycleDetected, CapacityViolation, InfeasibleModel, SolverTimeout, InvalidEventTransition} {
			assert.True(t, k.Fatal(), "%s should be fatal", k)
		}
	})

	t.Run("Should classify non-fatal kinds", func(t *testing.T) {
		for _, k := range []Kind{CandidateUnavailable, DependencyWarning} {
			assert.False(t, k.Fatal(), "%s should not be fatal", k)
		}
	})
}

func TestError_Unwrap(t *testing.T) {
	t.Run("Should unwrap to the original cause", func(t *testing.T) {
		cause := errors.New("boom")
		err := New(cause, InfeasibleModel, nil)
		assert.ErrorIs(t, err, cause)
	})
}

func TestError_AsMap(t *testing.T) {
	t.Run("Should render a populated map", func(t *testing.T) {
		err := New(errors.New("no capacity"), CapacityViolation, map[string]any{"pool": "engineering"})
		m := err.AsMap()
		require.NotNil(t, m)
		assert.Equal(t, "CapacityViolation", m["code"])
	})

	t.Run("Should return nil for a nil error", func(t *testing.T) {
		var err *Error
		assert.Nil(t, err.AsMap())
	})
}
