// Package runner drives environments through full episodes: a policy
// picks actions each period, the trajectory is collected, and the
// result is optionally recorded to the episode store.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"github.com/ssandler/econgym/internal/env"
	"github.com/ssandler/econgym/internal/persistence"
)

// Policy chooses an action for one agent given its observation.
type Policy interface {
	Action(agent string, obs []float64) []float64
}

// RandomPolicy samples uniformly from each agent's action space.
type RandomPolicy struct {
	Env env.Multi
	Rng *rand.Rand
}

func (p *RandomPolicy) Action(agent string, _ []float64) []float64 {
	return p.Env.ActionSpace(agent).Sample(p.Rng)
}

// Runner executes episodes of one environment instance.
type Runner struct {
	Env     env.Multi
	EnvName string
	Mode    string
	Seed    uint64
	Policy  Policy
	DB      *persistence.DB // optional: record trajectories when set

	// MaxSteps bounds non-terminating environments. Zero means run
	// until the environment reports done.
	MaxSteps int
}

// Result summarizes one finished episode.
type Result struct {
	EpisodeID   string
	Steps       int
	TotalReward float64
	Rewards     map[string]float64 // cumulative, per agent
	Done        bool               // environment-reported termination
}

// RunEpisode resets the environment and steps it until termination,
// MaxSteps, or context cancellation.
func (r *Runner) RunEpisode(ctx context.Context) (*Result, error) {
	if r.Env == nil || r.Policy == nil {
		return nil, errors.New("runner: env and policy are required")
	}

	episodeID := uuid.NewString()
	agents := r.Env.Agents()
	obs := r.Env.Reset()

	cum := make(map[string]float64, len(agents))
	var recorded []persistence.Step
	steps := 0
	envDone := false

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if r.MaxSteps > 0 && steps >= r.MaxSteps {
			break
		}

		actions := make(map[string][]float64, len(agents))
		for _, a := range agents {
			actions[a] = r.Policy.Action(a, obs[a])
		}

		nextObs, rewards, done, info := r.Env.Step(actions)

		if r.DB != nil {
			for _, a := range agents {
				recorded = append(recorded, persistence.Step{
					T:      steps,
					Agent:  a,
					Action: actions[a],
					Obs:    nextObs[a],
					Reward: rewards[a],
					Info:   info[a],
				})
			}
		}

		for _, a := range agents {
			cum[a] += rewards[a]
		}
		obs = nextObs
		steps++

		if done.All() {
			envDone = true
			break
		}
		if r.MaxSteps == 0 && steps >= defaultStepCap {
			slog.Warn("episode hit the default step cap without terminating",
				"env", r.EnvName, "steps", steps)
			break
		}
	}

	total := 0.0
	for _, v := range cum {
		total += v
	}

	if r.DB != nil {
		ep := persistence.Episode{
			ID:          episodeID,
			Env:         r.EnvName,
			Mode:        r.Mode,
			Seed:        r.Seed,
			Agents:      len(agents),
			Steps:       steps,
			TotalReward: total,
			CreatedAtMs: time.Now().UnixMilli(),
		}
		if err := r.DB.SaveEpisode(ep, recorded); err != nil {
			return nil, err
		}
	}

	return &Result{
		EpisodeID:   episodeID,
		Steps:       steps,
		TotalReward: total,
		Rewards:     cum,
		Done:        envDone,
	}, nil
}

// defaultStepCap stops runaway episodes in never-terminating
// environments when no MaxSteps was configured.
const defaultStepCap = 100000
