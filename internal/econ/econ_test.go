package econ

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnsquash(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		a        float64
		max      float64
		expected float64
	}{
		{"lower bound maps to zero", -1, 0.6, 0},
		{"upper bound maps to max", 1, 0.6, 0.6},
		{"midpoint maps to half max", 0, 0.6, 0.3},
		{"quarter point", -0.5, 1, 0.25},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.expected, Unsquash(tc.a, tc.max), 1e-12)
		})
	}
}

func TestUnsquashVec(t *testing.T) {
	t.Parallel()

	in := []float64{-1, 0, 1}
	out := UnsquashVec(in, 2)
	assert.Equal(t, []float64{0, 1, 2}, out)
	assert.Equal(t, []float64{-1, 0, 1}, in, "input must not be mutated")
}

func TestProjectBudget(t *testing.T) {
	t.Parallel()

	t.Run("feasible vector is untouched", func(t *testing.T) {
		t.Parallel()
		s := []float64{0.2, 0.3}
		applied := ProjectBudget(s)
		assert.False(t, applied)
		assert.Equal(t, []float64{0.2, 0.3}, s)
	})

	t.Run("sum of exactly one is untouched", func(t *testing.T) {
		t.Parallel()
		s := []float64{0.4, 0.6}
		applied := ProjectBudget(s)
		assert.False(t, applied)
		assert.Equal(t, []float64{0.4, 0.6}, s)
	})

	t.Run("infeasible vector binds at one", func(t *testing.T) {
		t.Parallel()
		s := []float64{0.9, 0.9}
		applied := ProjectBudget(s)
		assert.True(t, applied)
		sum := s[0] + s[1]
		assert.InDelta(t, 1, sum, 1e-12)
		assert.InDelta(t, 0.5, s[0], 1e-12, "relative shares must be preserved")
	})
}

func TestCobbDouglas(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 4, CobbDouglas([]float64{4}), 1e-12)
	assert.InDelta(t, math.Sqrt(2*8), CobbDouglas([]float64{2, 8}), 1e-12)
	assert.InDelta(t, 1, CobbDouglas([]float64{1, 1, 1}), 1e-12)
}

func TestTransition(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.96, Transition(1, 0.04, 0), 1e-12)
	assert.InDelta(t, 1.2, Transition(1, 0, 0.2), 1e-12)

	// More investment never yields less capital.
	assert.Greater(t, Transition(1, 0.04, 0.5), Transition(1, 0.04, 0.1))
}

func TestLogUtility(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0, LogUtility(1, 5), 1e-12)
	assert.InDelta(t, math.Log(2), LogUtility(2, 5), 1e-12)
	assert.Equal(t, -5.0, LogUtility(0, 5))
	assert.Equal(t, -5.0, LogUtility(-0.3, 5))
}

func TestCRRA(t *testing.T) {
	t.Parallel()

	t.Run("coefficient one is log", func(t *testing.T) {
		t.Parallel()
		u := CRRA{Coeff: 1}
		assert.InDelta(t, math.Log(3), u.Utility(3), 1e-12)
	})

	t.Run("coefficient two", func(t *testing.T) {
		t.Parallel()
		u := CRRA{Coeff: 2}
		// c^(1-2)/(1-2) = -1/c
		assert.InDelta(t, -0.5, u.Utility(2), 1e-12)
	})

	t.Run("monotone in consumption", func(t *testing.T) {
		t.Parallel()
		u := CRRA{Coeff: 2}
		assert.Greater(t, u.Utility(2), u.Utility(1))
	})
}

func TestLogitShares(t *testing.T) {
	t.Parallel()

	t.Run("symmetric firms split evenly", func(t *testing.T) {
		t.Parallel()
		shares := LogitShares([]float64{2, 2}, []float64{1.5, 1.5}, 0, 0.25)
		require.Len(t, shares, 2)
		assert.InDelta(t, shares[0], shares[1], 1e-12)
	})

	t.Run("hand computed two firm case", func(t *testing.T) {
		t.Parallel()
		// Both price at value: weights e^0 = 1, denominator e^0 + 1 + 1.
		shares := LogitShares([]float64{2, 2}, []float64{2, 2}, 0, 0.25)
		assert.InDelta(t, 1.0/3.0, shares[0], 1e-12)
		assert.InDelta(t, 1.0/3.0, shares[1], 1e-12)
	})

	t.Run("cheaper firm sells more", func(t *testing.T) {
		t.Parallel()
		shares := LogitShares([]float64{2, 2}, []float64{1.2, 1.8}, 0, 0.25)
		assert.Greater(t, shares[0], shares[1])
	})

	t.Run("shares sum below one with outside option", func(t *testing.T) {
		t.Parallel()
		shares := LogitShares([]float64{2, 2}, []float64{1.5, 1.5}, 0, 0.25)
		assert.Less(t, shares[0]+shares[1], 1.0)
	})
}
