// Package durable implements a single-agent durable-good consumption
// and production problem. The agent chooses how much to save each
// period; savings accumulate directly into the durable stock, and
// consumption of current output yields CRRA utility. Episodes never
// terminate; the caller decides when to stop.
package durable

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"

	"github.com/ssandler/econgym/internal/econ"
	"github.com/ssandler/econgym/internal/env"
)

// incomeFloor keeps output and consumption away from zero before the
// utility evaluation.
const incomeFloor = 1e-5

// rewardFloor caps how negative a single-period reward can get.
const rewardFloor = -1000

// Config holds the construction options.
type Config struct {
	MaxSaving    float64 `mapstructure:"max_saving"`
	Depreciation float64 `mapstructure:"depreciation"`
	Alpha        float64 `mapstructure:"alpha"`
	TFP          float64 `mapstructure:"tfp"`
	// CRRACoeff parameterizes the utility curvature; 1 is log.
	CRRACoeff float64 `mapstructure:"crra_coeff"`
	Seed      uint64  `mapstructure:"seed"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		MaxSaving:    0.2,
		Depreciation: 0.04,
		Alpha:        0.33,
		TFP:          1,
		CRRACoeff:    2,
	}
}

// initialStocks is the weighted support the initial durable stock is
// drawn from.
var (
	initialStocks  = []float64{0.01, 5, 7, 9, 11, 15}
	initialWeights = []float64{0.3, 0.15, 0.15, 0.15, 0.15, 0.1}
)

// Env is a durable-good episode.
type Env struct {
	cfg     Config
	rng     *rand.Rand
	utility econ.CRRA
	k       float64
}

// New validates the configuration and builds an environment.
func New(cfg Config) (*Env, error) {
	if cfg.MaxSaving <= 0 {
		return nil, fmt.Errorf("max_saving must be positive, got %v", cfg.MaxSaving)
	}
	if cfg.Depreciation < 0 || cfg.Depreciation > 1 {
		return nil, fmt.Errorf("depreciation must be in [0,1], got %v", cfg.Depreciation)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Env{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
		utility: econ.CRRA{Coeff: cfg.CRRACoeff},
	}, nil
}

// ActionSpace is a single squashed saving rate in [-1,1].
func (e *Env) ActionSpace() env.Space {
	return env.NewBox(-1, 1, 1)
}

// ObservationSpace is the non-negative durable stock.
func (e *Env) ObservationSpace() env.Space {
	return env.NewBox(0, math.Inf(1), 1)
}

// Reset draws the initial durable stock from the weighted support.
func (e *Env) Reset() []float64 {
	u := e.rng.Float64()
	acc := 0.0
	e.k = initialStocks[len(initialStocks)-1]
	for i, w := range initialWeights {
		acc += w
		if u < acc {
			e.k = initialStocks[i]
			break
		}
	}
	return []float64{e.k}
}

// StepInfo carries the period's diagnostics; always populated.
type StepInfo struct {
	SavingsRate float64 `json:"savings_rate"`
	Reward      float64 `json:"reward"`
	Income      float64 `json:"income"`
	CapitalOld  float64 `json:"capital_old"`
	CapitalNew  float64 `json:"capital_new"`
}

// Step advances one period. Episodes never terminate: done is always
// false and no horizon is consumed.
func (e *Env) Step(action []float64) ([]float64, float64, bool, StepInfo) {
	if len(action) != 1 {
		panic("durable: action must have 1 entry")
	}
	kOld := e.k

	s := econ.Unsquash(action[0], e.cfg.MaxSaving)
	y := math.Max(e.cfg.TFP*math.Pow(kOld, e.cfg.Alpha), incomeFloor)

	// Savings accumulate into the stock directly.
	e.k = econ.Transition(kOld, e.cfg.Depreciation, s)

	c := math.Max(y*(1-s), incomeFloor)
	rew := math.Max(e.utility.Utility(c)+1, rewardFloor)

	info := StepInfo{
		SavingsRate: s,
		Reward:      rew,
		Income:      y,
		CapitalOld:  kOld,
		CapitalNew:  e.k,
	}
	return []float64{e.k}, rew, false, info
}
