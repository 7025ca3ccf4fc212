package shock

import (
	"math"

	"golang.org/x/exp/rand"
)

// Deterministic shock schedules for evaluation and analysis runs. Each
// schedule is computed once at construction, covers timesteps 0 through
// horizon inclusive, and is read-only for the lifetime of the episode.

// alternPhase reports which half of the alternation cycle timestep t
// falls in, where the cycle length is the expected dwell time 1/p of a
// persistence probability p.
func alternPhase(t int, p float64) bool {
	return (int(math.Floor(float64(t)/(1/p)))+1)%2 == 0
}

// AlternatingAgg builds the aggregate-shock schedule used in both
// evaluation and analysis runs: state 0 at t=0, then alternating
// between states 1 and 0 with dwell time 1/switchProb.
func AlternatingAgg(horizon int, switchProb float64) []int {
	sched := make([]int, horizon+1)
	for t := 1; t <= horizon; t++ {
		if alternPhase(t, switchProb) {
			sched[t] = 1
		}
	}
	return sched
}

// AlternatingIdtc builds the evaluation schedule for idiosyncratic
// shocks: agents start staggered by parity and the whole pattern flips
// with dwell time 1/switchProb.
func AlternatingIdtc(horizon, agents int, switchProb float64) [][]int {
	sched := make([][]int, horizon+1)
	sched[0] = make([]int, agents)
	for i := 0; i < agents; i++ {
		sched[0][i] = 1 - i%2
	}
	for t := 1; t <= horizon; t++ {
		row := make([]int, agents)
		flipped := alternPhase(t, switchProb)
		for i := 0; i < agents; i++ {
			if flipped {
				row[i] = i % 2
			} else {
				row[i] = 1 - i%2
			}
		}
		sched[t] = row
	}
	return sched
}

// ConstantIdtc builds the analysis schedule for idiosyncratic shocks:
// every agent held at the neutral state for the whole horizon.
func ConstantIdtc(horizon, agents, state int) [][]int {
	sched := make([][]int, horizon+1)
	for t := range sched {
		row := make([]int, agents)
		for i := range row {
			row[i] = state
		}
		sched[t] = row
	}
	return sched
}

// GaussianSchedule holds seeded normal draws for a full horizon: one
// aggregate innovation and one idiosyncratic draw per agent per period.
type GaussianSchedule struct {
	Agg  []float64
	Idtc [][]float64
}

// SeedGaussian precomputes a deterministic Gaussian schedule from a
// seed. The same seed, horizon and agent count always reproduce the
// same draws, which makes evaluation runs comparable across policies.
func SeedGaussian(seed uint64, horizon, agents int, sigmaAgg, sigmaIdtc float64) GaussianSchedule {
	rng := rand.New(rand.NewSource(seed))
	sched := GaussianSchedule{
		Agg:  make([]float64, horizon+1),
		Idtc: make([][]float64, horizon+1),
	}
	for t := 0; t <= horizon; t++ {
		sched.Agg[t] = Normal(rng, sigmaAgg)
		row := make([]float64, agents)
		for i := range row {
			row[i] = Normal(rng, sigmaIdtc)
		}
		sched.Idtc[t] = row
	}
	return sched
}
