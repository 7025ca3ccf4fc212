// Package capital implements a collaborative capital-accumulation
// market. Households allocate a share of production to investment in
// durable capital goods each period; the rest is consumed for log
// utility. Production is a Cobb-Douglas bundle of all capital goods,
// scaled by an idiosyncratic and an aggregate TFP shock, each following
// its own Markov chain. The problem is fully cooperative: every
// household receives the mean utility across households as its reward.
package capital

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"github.com/ssandler/econgym/internal/econ"
	"github.com/ssandler/econgym/internal/env"
	"github.com/ssandler/econgym/internal/shock"
)

// agentPrefix keys households in action, observation and info maps.
const agentPrefix = "hh"

// Config holds the construction options. Every field has a default so
// that Default() yields a runnable single-household instance.
type Config struct {
	Horizon    int        `mapstructure:"horizon"`
	NHH        int        `mapstructure:"n_hh"`
	NCapital   int        `mapstructure:"n_capital"`
	Mode       shock.Mode `mapstructure:"-"`
	MaxSavings float64    `mapstructure:"max_savings"`
	BgtPenalty float64    `mapstructure:"bgt_penalty"`

	ShockIdtcValues     []float64   `mapstructure:"shock_idtc_values"`
	ShockIdtcTransition [][]float64 `mapstructure:"shock_idtc_transition"`
	ShockAggValues      []float64   `mapstructure:"shock_agg_values"`
	ShockAggTransition  [][]float64 `mapstructure:"shock_agg_transition"`

	// Economic parameters.
	Delta float64 `mapstructure:"delta"` // depreciation
	Alpha float64 `mapstructure:"alpha"` // capital share
	Phi   float64 `mapstructure:"phi"`   // adjustment cost
	Beta  float64 `mapstructure:"beta"`  // discount factor

	// Seed fixes the random-mode draws. Zero seeds from the clock.
	Seed uint64 `mapstructure:"seed"`
}

// Default returns the baseline configuration: one household, one
// capital good, thousand-period horizon, random shocks.
func Default() Config {
	return Config{
		Horizon:             1000,
		NHH:                 1,
		NCapital:            1,
		Mode:                shock.Random,
		MaxSavings:          0.6,
		BgtPenalty:          1,
		ShockIdtcValues:     []float64{0.9, 1.1},
		ShockIdtcTransition: [][]float64{{0.9, 0.1}, {0.1, 0.9}},
		ShockAggValues:      []float64{0.8, 1.2},
		ShockAggTransition:  [][]float64{{0.95, 0.05}, {0.05, 0.95}},
		Delta:               0.04,
		Alpha:               0.3,
		Phi:                 0.5,
		Beta:                0.98,
	}
}

// Env is a capital-accumulation episode. Not safe for concurrent use;
// each instance owns its state and is driven strictly by Reset/Step.
type Env struct {
	cfg      Config
	idtc     shock.Chain
	agg      shock.Chain
	shocks   shock.DiscreteSource
	rng      *rand.Rand
	kSS      float64
	maxSIJ   float64
	agents   []string
	timestep int

	// Global state in index order. Stocks are NHH groups of NCapital.
	kij    [][]float64
	idtcID []int
	aggID  int
}

// New validates the configuration and builds an environment.
func New(cfg Config) (*Env, error) {
	if cfg.NHH < 1 {
		return nil, fmt.Errorf("n_hh must be positive, got %d", cfg.NHH)
	}
	if cfg.NCapital < 1 {
		return nil, fmt.Errorf("n_capital must be positive, got %d", cfg.NCapital)
	}
	if cfg.Horizon < 1 {
		return nil, fmt.Errorf("horizon must be positive, got %d", cfg.Horizon)
	}
	idtc := shock.Chain{Values: cfg.ShockIdtcValues, Transition: cfg.ShockIdtcTransition}
	if err := idtc.Validate(); err != nil {
		return nil, fmt.Errorf("idiosyncratic shock: %w", err)
	}
	agg := shock.Chain{Values: cfg.ShockAggValues, Transition: cfg.ShockAggTransition}
	if err := agg.Validate(); err != nil {
		return nil, fmt.Errorf("aggregate shock: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewSource(seed))

	e := &Env{
		cfg:    cfg,
		idtc:   idtc,
		agg:    agg,
		rng:    rng,
		kSS:    steadyState(cfg),
		maxSIJ: cfg.MaxSavings / float64(cfg.NCapital) * 1.5,
		agents: make([]string, cfg.NHH),
	}
	for i := range e.agents {
		e.agents[i] = env.AgentID(agentPrefix, i)
	}

	switch cfg.Mode {
	case shock.Evaluation:
		e.shocks = &shock.ScheduledDiscrete{
			Idtc: shock.AlternatingIdtc(cfg.Horizon, cfg.NHH, cfg.ShockIdtcTransition[0][1]),
			Agg:  shock.AlternatingAgg(cfg.Horizon, cfg.ShockAggTransition[0][1]),
		}
	case shock.Analysis:
		e.shocks = &shock.ScheduledDiscrete{
			Idtc: shock.ConstantIdtc(cfg.Horizon, cfg.NHH, 0),
			Agg:  shock.AlternatingAgg(cfg.Horizon, cfg.ShockAggTransition[0][1]),
		}
	default:
		e.shocks = &shock.RandomDiscrete{Idtc: idtc, Agg: agg, Agents: cfg.NHH, Rng: rng}
	}
	return e, nil
}

// steadyState solves the deterministic steady-state capital level used
// to anchor initial stocks.
func steadyState(cfg Config) float64 {
	base := cfg.Phi * cfg.Delta * float64(cfg.NHH) * float64(cfg.NCapital) *
		((1-cfg.Beta*(1-cfg.Delta))/(cfg.Alpha*cfg.Beta) +
			cfg.Delta*float64(cfg.NCapital-1)/float64(cfg.NCapital))
	return math.Pow(base, 1/(cfg.Alpha-2))
}

// SteadyState returns the anchor capital level k_ss.
func (e *Env) SteadyState() float64 { return e.kSS }

// Agents returns the household IDs in index order.
func (e *Env) Agents() []string { return append([]string(nil), e.agents...) }

// ActionSpace is a Box in [-1,1] with one entry per capital good: the
// squashed share of production to invest in each good.
func (e *Env) ActionSpace(string) env.Space {
	return env.NewBox(-1, 1, e.cfg.NCapital)
}

// ObservationSpace is the flattened self-first view: all stocks, then
// all idiosyncratic shock indices, then the aggregate shock index.
func (e *Env) ObservationSpace(string) env.Space {
	nStocks := e.cfg.NHH * e.cfg.NCapital
	dim := nStocks + e.cfg.NHH + 1
	s := env.NewBox(0, math.Inf(1), dim)
	for i := 0; i < e.cfg.NHH; i++ {
		s.High[nStocks+i] = float64(e.idtc.States() - 1)
	}
	s.High[dim-1] = float64(e.agg.States() - 1)
	return s
}

// Reset re-initializes stocks and shocks and returns the initial
// observation per household. Evaluation and analysis runs pin stocks
// near the steady state; random runs draw them uniformly around it.
func (e *Env) Reset() map[string][]float64 {
	e.timestep = 0

	flat := make([]float64, e.cfg.NHH*e.cfg.NCapital)
	if e.cfg.Mode == shock.Evaluation || e.cfg.Mode == shock.Analysis {
		for i := range flat {
			if i%2 == 0 {
				flat[i] = e.kSS * 0.9
			} else {
				flat[i] = e.kSS * 0.8
			}
		}
	} else {
		for i := range flat {
			flat[i] = e.kSS*0.5 + e.rng.Float64()*e.kSS*0.75
		}
	}
	e.kij = make([][]float64, e.cfg.NHH)
	for i := range e.kij {
		e.kij[i] = flat[i*e.cfg.NCapital : (i+1)*e.cfg.NCapital]
	}
	e.idtcID, e.aggID = e.shocks.Initial()

	return e.observe()
}

// observe assembles the self-first observation for every household.
func (e *Env) observe() map[string][]float64 {
	obs := make(map[string][]float64, e.cfg.NHH)
	idtcVals := make([]float64, e.cfg.NHH)
	for i, id := range e.idtcID {
		idtcVals[i] = float64(id)
	}
	for i, name := range e.agents {
		v := env.SelfFirstFlat(e.kij, i)
		v = append(v, env.SelfFirst(idtcVals, i)...)
		v = append(v, float64(e.aggID))
		obs[name] = v
	}
	return obs
}

// StepInfo carries one household's diagnostics in analysis mode.
type StepInfo struct {
	Savings       []float64 `json:"savings"`
	Reward        float64   `json:"reward"`
	Income        float64   `json:"income"`
	Consumption   float64   `json:"consumption"`
	BudgetPenalty bool      `json:"bgt_penalty"`
	Capital       []float64 `json:"capital"`
	CapitalNew    []float64 `json:"capital_new"`
}

// GlobalInfo is attached to hh_0 in analysis mode and carries the
// cross-household aggregates.
type GlobalInfo struct {
	Savings       [][]float64 `json:"savings"`
	Reward        float64     `json:"reward"`
	Income        []float64   `json:"income"`
	Consumption   []float64   `json:"consumption"`
	BudgetPenalty []bool      `json:"bgt_penalty"`
	Capital       [][]float64 `json:"capital"`
	CapitalNew    [][]float64 `json:"capital_new"`
}

// Step advances one period. Savings actions are unsquashed into
// [0, max_s_ij] per capital good, projected onto the budget when their
// sum exceeds disposable income, and turned into investment through the
// square-root adjustment technology. Investment expenditure across
// households buys new capital in proportion to each household's share.
func (e *Env) Step(actions map[string][]float64) (map[string][]float64, map[string]float64, env.Done, map[string]any) {
	e.timestep++

	nHH, nCap := e.cfg.NHH, e.cfg.NCapital

	// Resolve shock values for this period from the carried state.
	idtcVal := make([]float64, nHH)
	for i, id := range e.idtcID {
		idtcVal[i] = e.idtc.Value(id)
	}
	aggVal := e.agg.Value(e.aggID)

	// Unsquash savings shares and project onto the budget.
	sij := make([][]float64, nHH)
	penalty := make([]bool, nHH)
	for i, name := range e.agents {
		a, ok := actions[name]
		if !ok || len(a) != nCap {
			panic(fmt.Sprintf("capital: action for %s must have %d entries", name, nCap))
		}
		sij[i] = econ.UnsquashVec(a, e.maxSIJ)
		penalty[i] = econ.ProjectBudget(sij[i])
	}

	// Production and consumption.
	y := make([]float64, nHH)
	c := make([]float64, nHH)
	utility := make([]float64, nHH)
	for i := 0; i < nHH; i++ {
		y[i] = idtcVal[i] * aggVal * math.Pow(econ.CobbDouglas(e.kij[i]), e.cfg.Alpha)
		sSum := 0.0
		for _, s := range sij[i] {
			sSum += s
		}
		c[i] = y[i] * (1 - sSum)
		utility[i] = econ.LogUtility(c[i], e.cfg.BgtPenalty)
	}

	// Aggregate investment per capital good through the square-root
	// adjustment technology, then split it back by expenditure share.
	invExp := make([][]float64, nHH)
	for i := 0; i < nHH; i++ {
		invExp[i] = make([]float64, nCap)
		for j := 0; j < nCap; j++ {
			invExp[i][j] = sij[i][j] * y[i]
		}
	}
	kNew := make([][]float64, nHH)
	for i := range kNew {
		kNew[i] = make([]float64, nCap)
	}
	for j := 0; j < nCap; j++ {
		expJ := 0.0
		for i := 0; i < nHH; i++ {
			expJ += invExp[i][j]
		}
		invJ := math.Sqrt(2 / e.cfg.Phi * expJ)
		for i := 0; i < nHH; i++ {
			inv := invExp[i][j] / math.Max(expJ, 1e-4) * invJ
			kNew[i][j] = econ.Transition(e.kij[i][j], e.cfg.Delta, inv)
		}
	}

	kOld := e.kij
	e.kij = kNew
	e.idtcID, e.aggID = e.shocks.Next(e.timestep, e.idtcID, e.aggID)

	// Cooperative reward: everyone receives the mean utility.
	meanU := stat.Mean(utility, nil)
	rewards := make(map[string]float64, nHH)
	for _, name := range e.agents {
		rewards[name] = meanU
	}

	done := env.DoneAll(e.timestep >= e.cfg.Horizon)

	info := map[string]any{}
	if e.cfg.Mode == shock.Analysis {
		info[e.agents[0]] = GlobalInfo{
			Savings:       sij,
			Reward:        meanU,
			Income:        y,
			Consumption:   c,
			BudgetPenalty: penalty,
			Capital:       kOld,
			CapitalNew:    kNew,
		}
		for i := 1; i < nHH; i++ {
			info[e.agents[i]] = StepInfo{
				Savings:       sij[i],
				Reward:        meanU,
				Income:        y[i],
				Consumption:   c[i],
				BudgetPenalty: penalty[i],
				Capital:       kOld[i],
				CapitalNew:    kNew[i],
			}
		}
	}

	return e.observe(), rewards, done, info
}
