package shock

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// Mode selects how an environment's shocks evolve. Exactly one variant
// is constructed per environment instance; no mode ever re-samples a
// past timestep's draw within an episode.
type Mode int

const (
	// Random draws fresh transitions every step (training default).
	Random Mode = iota
	// Evaluation follows a deterministic precomputed schedule.
	Evaluation
	// Analysis follows a neutral precomputed schedule to isolate
	// deterministic dynamics.
	Analysis
)

// ParseMode maps a mode name from configuration to its variant.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "random":
		return Random, nil
	case "evaluation", "eval":
		return Evaluation, nil
	case "analysis":
		return Analysis, nil
	}
	return Random, fmt.Errorf("unknown shock mode %q", s)
}

// String returns the mode name for logs and persisted run metadata.
func (m Mode) String() string {
	switch m {
	case Evaluation:
		return "evaluation"
	case Analysis:
		return "analysis"
	default:
		return "random"
	}
}

// DiscreteSource yields idiosyncratic-per-agent and aggregate shock
// state indices. Implementations are the tagged variants of Mode.
type DiscreteSource interface {
	// Initial returns the shock states at timestep 0.
	Initial() (idtc []int, agg int)
	// Next returns the shock states at timestep t, given the states
	// carried from the previous period.
	Next(t int, idtc []int, agg int) ([]int, int)
}

// RandomDiscrete evolves shocks through idiosyncratic and aggregate
// Markov chains.
type RandomDiscrete struct {
	Idtc   Chain
	Agg    Chain
	Agents int
	Rng    *rand.Rand
}

func (s *RandomDiscrete) Initial() ([]int, int) {
	idtc := make([]int, s.Agents)
	for i := range idtc {
		idtc[i] = s.Rng.Intn(s.Idtc.States())
	}
	return idtc, s.Rng.Intn(s.Agg.States())
}

func (s *RandomDiscrete) Next(_ int, idtc []int, agg int) ([]int, int) {
	next := make([]int, len(idtc))
	for i, cur := range idtc {
		next[i] = s.Idtc.Next(s.Rng, cur)
	}
	return next, s.Agg.Next(s.Rng, agg)
}

// ScheduledDiscrete replays precomputed schedules indexed by timestep.
type ScheduledDiscrete struct {
	Idtc [][]int
	Agg  []int
}

func (s *ScheduledDiscrete) Initial() ([]int, int) {
	return append([]int(nil), s.Idtc[0]...), s.Agg[0]
}

func (s *ScheduledDiscrete) Next(t int, _ []int, _ int) ([]int, int) {
	return append([]int(nil), s.Idtc[t]...), s.Agg[t]
}

// GaussianSource yields continuous idiosyncratic draws and aggregate
// innovations for environments with AR(1) aggregate dynamics.
type GaussianSource interface {
	// At returns the idiosyncratic draws and the aggregate innovation
	// for timestep t.
	At(t int) (idtc []float64, agg float64)
}

// RandomGaussian draws fresh normals each period.
type RandomGaussian struct {
	SigmaIdtc float64
	SigmaAgg  float64
	Agents    int
	Rng       *rand.Rand
}

func (s *RandomGaussian) At(_ int) ([]float64, float64) {
	idtc := make([]float64, s.Agents)
	for i := range idtc {
		idtc[i] = Normal(s.Rng, s.SigmaIdtc)
	}
	return idtc, Normal(s.Rng, s.SigmaAgg)
}

// ScheduledGaussian replays a seeded schedule.
type ScheduledGaussian struct {
	Schedule GaussianSchedule
}

func (s *ScheduledGaussian) At(t int) ([]float64, float64) {
	return append([]float64(nil), s.Schedule.Idtc[t]...), s.Schedule.Agg[t]
}
