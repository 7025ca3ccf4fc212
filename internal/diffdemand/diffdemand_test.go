package diffdemand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssandler/econgym/internal/env"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "zero agents",
			mutate:  func(c *Config) { c.NAgents = 0 },
			wantErr: "n_agents",
		},
		{
			name:    "one gridpoint",
			mutate:  func(c *Config) { c.Gridpoints = 1 },
			wantErr: "gridpoints",
		},
		{
			name:    "zero substitution",
			mutate:  func(c *Config) { c.Substitution = 0 },
			wantErr: "substitution",
		},
		{
			name: "finite horizon needs periods",
			mutate: func(c *Config) {
				c.FinitePeriods = true
				c.NPeriods = 0
			},
			wantErr: "n_periods",
		},
		{
			name: "cost length mismatch",
			mutate: func(c *Config) {
				c.Cost = []float64{1}
			},
			wantErr: "per-agent parameter",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			cfg.Seed = 1
			tc.mutate(&cfg)
			_, err := New(cfg)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDefaultsFillSymmetricFirms(t *testing.T) {
	t.Parallel()

	cfg := Config{
		NAgents:      3,
		Gridpoints:   10,
		Substitution: 0.25,
		Seed:         1,
	}
	e, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 1, 1}, e.cfg.Cost)
	assert.Equal(t, []float64{2, 2, 2}, e.cfg.Values)
	assert.Equal(t, e.cfg.Cost, e.cfg.LowerPrice)
	assert.Equal(t, e.cfg.Values, e.cfg.HigherPrice)
}

func newTestEnv(t *testing.T, mutate func(*Config)) *Env {
	t.Helper()
	cfg := Default()
	cfg.Seed = 1
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func TestPriceGridMapping(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil) // grid [1, 2] over 16 points

	assert.InDelta(t, 1, e.Price(0, 0), 1e-12)
	assert.InDelta(t, 2, e.Price(0, 15), 1e-12)
	assert.InDelta(t, 1+1.0/15.0, e.Price(0, 1), 1e-12)
}

func TestResetStartsAtGridMiddle(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	obs := e.Reset()

	require.Len(t, obs, 2)
	assert.Equal(t, []float64{8, 8}, obs["agent_0"])
	assert.Equal(t, []float64{8, 8}, obs["agent_1"])
}

func TestObservationIsSelfFirst(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, func(c *Config) {
		c.NAgents = 3
		c.Cost = nil
		c.Values = nil
	})
	e.Reset()

	actions := map[string][]float64{
		"agent_0": {3},
		"agent_1": {5},
		"agent_2": {7},
	}
	obs, _, _, _ := e.Step(actions)

	assert.Equal(t, []float64{3, 5, 7}, obs["agent_0"])
	assert.Equal(t, []float64{5, 3, 7}, obs["agent_1"])
	assert.Equal(t, []float64{7, 3, 5}, obs["agent_2"])
}

func TestStepHandComputedRewards(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	e.Reset()

	t.Run("pricing at cost earns nothing", func(t *testing.T) {
		_, rewards, _, _ := e.Step(map[string][]float64{
			"agent_0": {0},
			"agent_1": {0},
		})
		assert.InDelta(t, 0, rewards["agent_0"], 1e-12)
		assert.InDelta(t, 0, rewards["agent_1"], 1e-12)
	})

	t.Run("pricing at value splits with the outside option", func(t *testing.T) {
		// Price 2 at value 2: every logit weight is e^0 = 1, so each
		// firm's share is 1/3 and the margin is 1.
		_, rewards, _, _ := e.Step(map[string][]float64{
			"agent_0": {15},
			"agent_1": {15},
		})
		assert.InDelta(t, 1.0/3.0, rewards["agent_0"], 1e-12)
		assert.InDelta(t, 1.0/3.0, rewards["agent_1"], 1e-12)
	})
}

func TestStepInfoCarriesPrices(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	e.Reset()
	_, _, _, info := e.Step(map[string][]float64{
		"agent_0": {0},
		"agent_1": {15},
	})

	require.Len(t, info, 2)
	assert.Equal(t, StepInfo{Price: 1}, info["agent_0"])
	assert.Equal(t, StepInfo{Price: 2}, info["agent_1"])
}

func TestInfiniteHorizonNeverTerminates(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	e.Reset()
	actions := map[string][]float64{"agent_0": {0}, "agent_1": {0}}
	for i := 0; i < 100; i++ {
		_, _, done, _ := e.Step(actions)
		require.False(t, done.All())
	}
}

func TestFiniteHorizonTerminatesAllAgents(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, func(c *Config) {
		c.FinitePeriods = true
		c.NPeriods = 1
	})
	e.Reset()
	actions := map[string][]float64{"agent_0": {0}, "agent_1": {0}}

	_, _, done, _ := e.Step(actions)
	require.False(t, done.All())

	_, _, done, _ = e.Step(actions)
	assert.True(t, done.All())
	assert.True(t, done["agent_0"])
	assert.True(t, done["agent_1"])
}

func TestStepPanicsOnInvalidAction(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	e.Reset()

	assert.Panics(t, func() {
		e.Step(map[string][]float64{"agent_0": {16}, "agent_1": {0}})
	})
	assert.Panics(t, func() {
		e.Step(map[string][]float64{"agent_0": {-1}, "agent_1": {0}})
	})
	assert.Panics(t, func() {
		e.Step(map[string][]float64{"agent_0": {0}})
	})
}

func TestSpaces(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)

	action := e.ActionSpace("agent_0")
	assert.Equal(t, env.Discrete, action.Type)
	assert.Equal(t, []int{16}, action.N)

	obs := e.ObservationSpace("agent_0")
	assert.Equal(t, env.MultiDiscrete, obs.Type)
	assert.Equal(t, []int{16, 16}, obs.N)
}
