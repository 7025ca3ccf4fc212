// Package diffdemand implements a differentiated-demand price-setting
// market with discrete price grids. Firms post prices; quantity sold is
// the logit market share of each firm against the others and an outside
// option; reward is the per-unit margin times that share. The market is
// stateless beyond a step counter, so the environment is a pure
// function of the joint action.
//
// Unlike the horizon-driven markets, a finite-period run checks the
// step counter before advancing it, so termination is reported on the
// step after NPeriods rather than exactly at it. This matches the
// trajectory layout of recorded runs that downstream tooling expects.
package diffdemand

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"github.com/ssandler/econgym/internal/econ"
	"github.com/ssandler/econgym/internal/env"
)

const agentPrefix = "agent"

// Config holds the construction options. Per-agent slices (costs,
// values, price bounds) default to symmetric firms when left nil.
type Config struct {
	NAgents       int  `mapstructure:"n_agents"`
	Gridpoints    int  `mapstructure:"gridpoints"`
	FinitePeriods bool `mapstructure:"finite_periods"`
	NPeriods      int  `mapstructure:"n_periods"`

	Cost         []float64 `mapstructure:"cost"`
	Values       []float64 `mapstructure:"values"`
	ExtDemand    float64   `mapstructure:"ext_demand"`
	Substitution float64   `mapstructure:"substitution"`

	// Price grid bounds per agent; default to cost and values.
	LowerPrice  []float64 `mapstructure:"lower_price"`
	HigherPrice []float64 `mapstructure:"higher_price"`

	Seed uint64 `mapstructure:"seed"`
}

// Default returns a symmetric two-firm market on a 16-point grid with
// an infinite horizon.
func Default() Config {
	return Config{
		NAgents:      2,
		Gridpoints:   16,
		NPeriods:     1000,
		Cost:         []float64{1, 1},
		Values:       []float64{2, 2},
		ExtDemand:    0,
		Substitution: 0.25,
	}
}

// Env is a differentiated-demand market.
type Env struct {
	cfg      Config
	agents   []string
	rng      *rand.Rand
	numSteps int

	// Last joint action, kept for the next observation.
	lastActions []int
}

// New validates the configuration and builds a market.
func New(cfg Config) (*Env, error) {
	if cfg.NAgents < 1 {
		return nil, fmt.Errorf("n_agents must be positive, got %d", cfg.NAgents)
	}
	if cfg.Gridpoints < 2 {
		return nil, fmt.Errorf("gridpoints must be at least 2, got %d", cfg.Gridpoints)
	}
	if cfg.Substitution <= 0 {
		return nil, fmt.Errorf("substitution must be positive, got %v", cfg.Substitution)
	}
	if cfg.FinitePeriods && cfg.NPeriods < 1 {
		return nil, fmt.Errorf("n_periods must be positive, got %d", cfg.NPeriods)
	}
	if cfg.Cost == nil {
		cfg.Cost = fill(cfg.NAgents, 1)
	}
	if cfg.Values == nil {
		cfg.Values = fill(cfg.NAgents, 2)
	}
	if cfg.LowerPrice == nil {
		cfg.LowerPrice = append([]float64(nil), cfg.Cost...)
	}
	if cfg.HigherPrice == nil {
		cfg.HigherPrice = append([]float64(nil), cfg.Values...)
	}
	for _, s := range [][]float64{cfg.Cost, cfg.Values, cfg.LowerPrice, cfg.HigherPrice} {
		if len(s) != cfg.NAgents {
			return nil, fmt.Errorf("per-agent parameter has %d entries, want %d", len(s), cfg.NAgents)
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	e := &Env{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		agents: make([]string, cfg.NAgents),
	}
	for i := range e.agents {
		e.agents[i] = env.AgentID(agentPrefix, i)
	}
	return e, nil
}

func fill(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// Agents returns the firm IDs in index order.
func (e *Env) Agents() []string { return append([]string(nil), e.agents...) }

// ActionSpace is one discrete price choice on the grid.
func (e *Env) ActionSpace(string) env.Space {
	return env.NewDiscrete(e.cfg.Gridpoints)
}

// ObservationSpace carries every firm's last grid choice, self first.
func (e *Env) ObservationSpace(string) env.Space {
	ns := make([]int, e.cfg.NAgents)
	for i := range ns {
		ns[i] = e.cfg.Gridpoints
	}
	return env.NewMultiDiscrete(ns)
}

// Reset starts every firm at the middle of its grid.
func (e *Env) Reset() map[string][]float64 {
	e.numSteps = 0
	mid := e.cfg.Gridpoints / 2
	e.lastActions = make([]int, e.cfg.NAgents)
	for i := range e.lastActions {
		e.lastActions[i] = mid
	}
	return e.observe()
}

func (e *Env) observe() map[string][]float64 {
	obs := make(map[string][]float64, len(e.agents))
	for i, name := range e.agents {
		view := env.SelfFirst(e.lastActions, i)
		v := make([]float64, len(view))
		for j, a := range view {
			v[j] = float64(a)
		}
		obs[name] = v
	}
	return obs
}

// Price maps a grid index to the price level for agent i.
func (e *Env) Price(i, gridIndex int) float64 {
	lo, hi := e.cfg.LowerPrice[i], e.cfg.HigherPrice[i]
	return lo + (hi-lo)*float64(gridIndex)/float64(e.cfg.Gridpoints-1)
}

// StepInfo carries the realized price for one firm.
type StepInfo struct {
	Price float64 `json:"price"`
}

// Step resolves one pricing round: prices from the grid choices, logit
// market shares against the outside option, margin-times-share rewards.
func (e *Env) Step(actions map[string][]float64) (map[string][]float64, map[string]float64, env.Done, map[string]any) {
	n := e.cfg.NAgents
	choices := make([]int, n)
	prices := make([]float64, n)
	for i, name := range e.agents {
		a, ok := actions[name]
		if !ok || len(a) != 1 {
			panic(fmt.Sprintf("diffdemand: action for %s must have 1 entry", name))
		}
		choices[i] = int(a[0])
		if choices[i] < 0 || choices[i] >= e.cfg.Gridpoints {
			panic(fmt.Sprintf("diffdemand: action for %s out of grid range: %d", name, choices[i]))
		}
		prices[i] = e.Price(i, choices[i])
	}

	shares := econ.LogitShares(e.cfg.Values, prices, e.cfg.ExtDemand, e.cfg.Substitution)

	rewards := make(map[string]float64, n)
	info := make(map[string]any, n)
	for i, name := range e.agents {
		rewards[name] = (prices[i] - e.cfg.Cost[i]) * shares[i]
		info[name] = StepInfo{Price: prices[i]}
	}

	e.lastActions = choices

	var done env.Done
	if e.cfg.FinitePeriods {
		reached := e.numSteps >= e.cfg.NPeriods
		done = env.Done{env.AllKey: reached}
		for _, name := range e.agents {
			done[name] = reached
		}
	} else {
		done = env.DoneAll(false)
	}

	e.numSteps++

	return e.observe(), rewards, done, info
}
