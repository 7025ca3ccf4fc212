// Package shock provides the exogenous shock processes driving the
// market environments: finite Markov chains for discrete shocks, AR(1)
// dynamics for continuous ones, and precomputed deterministic schedules
// for evaluation and analysis runs.
package shock

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
)

// Chain is a finite Markov chain over shock values. State i transitions
// according to row i of the transition matrix.
type Chain struct {
	Values     []float64
	Transition [][]float64
}

const rowSumTol = 1e-9

// Validate checks that the transition matrix is square, matches the
// value count, and has rows summing to one.
func (c Chain) Validate() error {
	n := len(c.Values)
	if n == 0 {
		return fmt.Errorf("chain has no values")
	}
	if len(c.Transition) != n {
		return fmt.Errorf("transition matrix has %d rows, want %d", len(c.Transition), n)
	}
	for i, row := range c.Transition {
		if len(row) != n {
			return fmt.Errorf("transition row %d has %d entries, want %d", i, len(row), n)
		}
		sum := 0.0
		for _, p := range row {
			if p < 0 {
				return fmt.Errorf("transition row %d has negative probability %v", i, p)
			}
			sum += p
		}
		if math.Abs(sum-1) > rowSumTol {
			return fmt.Errorf("transition row %d sums to %v, want 1", i, sum)
		}
	}
	return nil
}

// Next draws the successor state of cur from its transition row.
func (c Chain) Next(rng *rand.Rand, cur int) int {
	u := rng.Float64()
	acc := 0.0
	for j, p := range c.Transition[cur] {
		acc += p
		if u < acc {
			return j
		}
	}
	return len(c.Transition[cur]) - 1
}

// Value maps a state index to its shock value.
func (c Chain) Value(state int) float64 {
	return c.Values[state]
}

// States returns the number of chain states.
func (c Chain) States() int {
	return len(c.Values)
}
