// Package townsend implements the Townsend (1983) industry investment
// model. Each industry rents capital, sells output at a price set by a
// linear inverse demand curve shifted by a persistent aggregate demand
// shock plus idiosyncratic noise, and pays a quadratic cost on capital
// adjustment. Rewards are individual and optionally normalized by
// sampled moments.
package townsend

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

const agentPrefix = "firm"

// Config holds the construction options.
type Config struct {
	Horizon      int        `mapstructure:"horizon"`
	NIndustries  int        `mapstructure:"n_industries"`
	RentalShock  bool       `mapstructure:"rental_shock"`
	Mode         shock.Mode `mapstructure:"-"`
	SeedEval     uint64     `mapstructure:"seed_eval"`
	SeedAnalysis uint64     `mapstructure:"seed_analysis"`
	SimulMode    bool       `mapstructure:"simul_mode"`
	MaxSavings   float64    `mapstructure:"max_savings"`
	KSS          float64    `mapstructure:"k_ss"`
	MaxPrice     float64    `mapstructure:"max_price"`
	MaxCap       float64    `mapstructure:"max_cap"`
	RewMean      float64    `mapstructure:"rew_mean"`
	RewStd       float64    `mapstructure:"rew_std"`
	Normalize    bool       `mapstructure:"normalize"`

	// Economic parameters.
	Delta      float64 `mapstructure:"delta"`
	Alpha      float64 `mapstructure:"alpha"`
	Beta       float64 `mapstructure:"beta"`
	Phi        float64 `mapstructure:"phi"` // adjustment cost
	A          float64 `mapstructure:"a"`   // demand slope
	TFP        float64 `mapstructure:"tfp"`
	Rho        float64 `mapstructure:"rho"`         // demand persistence
	Theta0     float64 `mapstructure:"theta_0"`     // initial demand level
	SigmaRent  float64 `mapstructure:"var_w"`       // rental shock scale
	SigmaIdtc  float64 `mapstructure:"var_epsilon"` // idiosyncratic scale
	SigmaTheta float64 `mapstructure:"var_theta"`   // aggregate scale

	Seed uint64 `mapstructure:"seed"`
}

// Default returns the baseline single-industry configuration.
func Default() Config {
	return Config{
		Horizon:      200,
		NIndustries:  1,
		Mode:         shock.Random,
		SeedEval:     10,
		SeedAnalysis: 20,
		MaxSavings:   0.6,
		KSS:          1,
		MaxPrice:     60,
		MaxCap:       100,
		RewMean:      0,
		RewStd:       1,
		Delta:        0,
		Alpha:        1,
		Beta:         0.99,
		Phi:          1,
		A:            1,
		TFP:          1,
		Rho:          0.8,
		Theta0:       0,
		SigmaRent:    1,
		SigmaIdtc:    1,
		SigmaTheta:   1,
	}
}

// Env is a Townsend episode.
type Env struct {
	cfg      Config
	shocks   shock.GaussianSource
	ar       shock.AR1
	rng      *rand.Rand
	agents   []string
	timestep int

	// Normalization bounds, set from defaults or from Calibrate.
	maxCap   float64
	maxPrice float64
	rewMean  float64
	rewStd   float64

	// Global state in index order.
	k      []float64
	prices []float64
	theta  float64
}

// New validates the configuration and builds an environment.
func New(cfg Config) (*Env, error) {
	if cfg.NIndustries < 1 {
		return nil, fmt.Errorf("n_industries must be positive, got %d", cfg.NIndustries)
	}
	if cfg.Horizon < 1 {
		return nil, fmt.Errorf("horizon must be positive, got %d", cfg.Horizon)
	}
	if cfg.SigmaIdtc < 0 || cfg.SigmaTheta < 0 || cfg.SigmaRent < 0 {
		return nil, fmt.Errorf("shock scales must be non-negative")
	}
	if cfg.RewStd == 0 {
		return nil, fmt.Errorf("rew_std must be non-zero")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewSource(seed))

	e := &Env{
		cfg:      cfg,
		ar:       shock.AR1{Rho: cfg.Rho, Sigma: cfg.SigmaTheta},
		rng:      rng,
		agents:   make([]string, cfg.NIndustries),
		maxCap:   cfg.MaxCap,
		maxPrice: cfg.MaxPrice,
		rewMean:  cfg.RewMean,
		rewStd:   cfg.RewStd,
	}
	for i := range e.agents {
		e.agents[i] = env.AgentID(agentPrefix, i)
	}

	switch cfg.Mode {
	case shock.Evaluation:
		e.shocks = &shock.ScheduledGaussian{
			Schedule: shock.SeedGaussian(cfg.SeedEval, cfg.Horizon, cfg.NIndustries, cfg.SigmaTheta, cfg.SigmaIdtc),
		}
	case shock.Analysis:
		e.shocks = &shock.ScheduledGaussian{
			Schedule: shock.SeedGaussian(cfg.SeedAnalysis, cfg.Horizon, cfg.NIndustries, cfg.SigmaTheta, cfg.SigmaIdtc),
		}
	default:
		e.shocks = &shock.RandomGaussian{
			SigmaIdtc: cfg.SigmaIdtc,
			SigmaAgg:  cfg.SigmaTheta,
			Agents:    cfg.NIndustries,
			Rng:       rng,
		}
	}

	if cfg.Normalize {
		stats := e.Calibrate(10000)
		e.maxCap = stats.Capital.Max
		e.maxPrice = stats.Price.Max
		e.rewMean = stats.Reward.Mean
		e.rewStd = stats.Reward.Std
	}
	return e, nil
}

// Agents returns the industry IDs in index order.
func (e *Env) Agents() []string { return append([]string(nil), e.agents...) }

// ActionSpace is a single squashed savings rate in [-1,1].
func (e *Env) ActionSpace(string) env.Space {
	return env.NewBox(-1, 1, 1)
}

// ObservationSpace is [own stock, own price, other prices...].
func (e *Env) ObservationSpace(string) env.Space {
	return env.NewBox(0, math.Inf(1), 1+e.cfg.NIndustries)
}

// Reset re-initializes stocks, prices and the demand level. Evaluation
// and analysis runs pin stocks near k_ss and replay seeded shocks;
// random runs draw stocks uniformly on [0.5 k_ss, 30 k_ss].
func (e *Env) Reset() map[string][]float64 {
	e.timestep = 0
	n := e.cfg.NIndustries

	e.k = make([]float64, n)
	var idtc []float64
	if e.cfg.Mode == shock.Evaluation || e.cfg.Mode == shock.Analysis {
		for i := range e.k {
			if i%2 == 0 {
				e.k[i] = e.cfg.KSS * 0.9
			} else {
				e.k[i] = e.cfg.KSS * 0.8
			}
		}
		idtc, _ = e.shocks.At(0)
	} else {
		for i := range e.k {
			e.k[i] = e.cfg.KSS*0.5 + e.rng.Float64()*e.cfg.KSS*29.5
		}
		idtc, _ = e.shocks.At(0)
	}

	e.theta = e.cfg.Theta0
	e.prices = make([]float64, n)
	for i := 0; i < n; i++ {
		y := e.cfg.TFP * math.Pow(e.k[i], e.cfg.Alpha)
		u := e.theta + idtc[i]
		e.prices[i] = math.Max(e.maxPrice-e.cfg.A*y+u, 0)
	}

	return e.observe()
}

func (e *Env) observe() map[string][]float64 {
	obs := make(map[string][]float64, len(e.agents))
	for i, name := range e.agents {
		v := make([]float64, 0, 1+len(e.prices))
		v = append(v, e.k[i])
		v = append(v, env.SelfFirst(e.prices, i)...)
		obs[name] = v
	}
	return obs
}

// StepInfo carries one industry's diagnostics.
type StepInfo struct {
	Savings    float64 `json:"savings"`
	Reward     float64 `json:"reward"`
	Income     float64 `json:"income"`
	Capital    float64 `json:"capital"`
	CapitalNew float64 `json:"capital_new"`
	Price      float64 `json:"prices"`
}

// GlobalInfo is attached to firm_0 and carries the cross-industry
// slices.
type GlobalInfo struct {
	Savings    []float64 `json:"savings"`
	Reward     []float64 `json:"reward"`
	Income     []float64 `json:"income"`
	Capital    []float64 `json:"capital"`
	CapitalNew []float64 `json:"capital_new"`
	Prices     []float64 `json:"prices"`
}

// Step advances one period. The aggregate demand level follows
// theta' = rho*theta + v; industry prices are the inverse demand at
// current output plus the demand shock, floored at zero; capital
// accumulates saved output and is capped at max_cap.
func (e *Env) Step(actions map[string][]float64) (map[string][]float64, map[string]float64, env.Done, map[string]any) {
	e.timestep++
	n := e.cfg.NIndustries

	idtc, aggInnov := e.shocks.At(e.timestep)
	e.theta = e.ar.Apply(e.theta, aggInnov)

	rent := make([]float64, n)
	if e.cfg.RentalShock {
		for i := range rent {
			rent[i] = shock.Normal(e.rng, e.cfg.SigmaRent)
		}
	}

	s := make([]float64, n)
	for i, name := range e.agents {
		a, ok := actions[name]
		if !ok || len(a) != 1 {
			panic(fmt.Sprintf("townsend: action for %s must have 1 entry", name))
		}
		s[i] = econ.Unsquash(a[0], e.cfg.MaxSavings)
	}

	y := make([]float64, n)
	kNew := make([]float64, n)
	prices := make([]float64, n)
	for i := 0; i < n; i++ {
		y[i] = e.cfg.TFP * math.Pow(e.k[i], e.cfg.Alpha)
		u := e.theta + idtc[i]
		prices[i] = math.Max(e.maxPrice-e.cfg.A*y[i]+u, 0)
		kNew[i] = math.Min(econ.Transition(e.k[i], e.cfg.Delta, s[i]*y[i]), e.maxCap)
	}

	utility := make([]float64, n)
	rewards := make(map[string]float64, n)
	for i, name := range e.agents {
		utility[i] = prices[i]*(1-s[i])*y[i] -
			rent[i]*e.k[i] -
			e.cfg.Phi*math.Pow(kNew[i]-e.k[i], 2)
		rewards[name] = (utility[i] - e.rewMean) / e.rewStd
	}

	kOld := e.k
	e.k = kNew
	e.prices = prices

	done := env.DoneAll(e.timestep >= e.cfg.Horizon)

	info := map[string]any{}
	if e.cfg.Mode == shock.Analysis || e.cfg.SimulMode {
		info[e.agents[0]] = GlobalInfo{
			Savings:    s,
			Reward:     utility,
			Income:     y,
			Capital:    kOld,
			CapitalNew: kNew,
			Prices:     prices,
		}
		for i := 1; i < n; i++ {
			info[e.agents[i]] = StepInfo{
				Savings:    s[i],
				Reward:     utility[i],
				Income:     y[i],
				Capital:    kOld[i],
				CapitalNew: kNew[i],
				Price:      prices[i],
			}
		}
	}

	return e.observe(), rewards, done, info
}

// Moments summarizes a sampled series.
type Moments struct {
	Max  float64 `json:"max"`
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Stats holds the calibration moments collected by Calibrate.
type Stats struct {
	Capital Moments `json:"capital"`
	Price   Moments `json:"price"`
	Reward  Moments `json:"reward"`
}

// Calibrate runs a random policy for the given number of periods,
// resetting every 1000 steps, and returns capital, price and reward
// moments. Used by normalize mode to pick observation bounds and
// reward scaling.
func (e *Env) Calibrate(periods int) Stats {
	simul := e.cfg.SimulMode
	e.cfg.SimulMode = true
	defer func() { e.cfg.SimulMode = simul }()

	var caps, prices, rews []float64
	space := e.ActionSpace(e.agents[0])
	needReset := true
	for t := 0; t < periods; t++ {
		if needReset || t%1000 == 0 {
			e.Reset()
			needReset = false
		}
		actions := make(map[string][]float64, len(e.agents))
		for _, name := range e.agents {
			actions[name] = space.Sample(e.rng)
		}
		_, rew, done, info := e.Step(actions)
		needReset = done.All()
		global := info[e.agents[0]].(GlobalInfo)
		caps = append(caps, global.Capital...)
		prices = append(prices, global.Prices...)
		for _, name := range e.agents {
			rews = append(rews, rew[name])
		}
	}
	return Stats{
		Capital: moments(caps),
		Price:   moments(prices),
		Reward:  moments(rews),
	}
}

func moments(xs []float64) Moments {
	m := Moments{Max: math.Inf(-1), Min: math.Inf(1)}
	for _, x := range xs {
		m.Max = math.Max(m.Max, x)
		m.Min = math.Min(m.Min, x)
	}
	m.Mean = stat.Mean(xs, nil)
	m.Std = stat.StdDev(xs, nil)
	return m
}
