package capital

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssandler/econgym/internal/env"
	"github.com/ssandler/econgym/internal/shock"
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
			name:    "zero households",
			mutate:  func(c *Config) { c.NHH = 0 },
			wantErr: "n_hh",
		},
		{
			name:    "zero capital goods",
			mutate:  func(c *Config) { c.NCapital = 0 },
			wantErr: "n_capital",
		},
		{
			name:    "zero horizon",
			mutate:  func(c *Config) { c.Horizon = 0 },
			wantErr: "horizon",
		},
		{
			name: "bad idiosyncratic chain",
			mutate: func(c *Config) {
				c.ShockIdtcTransition = [][]float64{{0.5, 0.4}, {0.1, 0.9}}
			},
			wantErr: "idiosyncratic shock",
		},
		{
			name: "bad aggregate chain",
			mutate: func(c *Config) {
				c.ShockAggTransition = [][]float64{{1, 0}}
			},
			wantErr: "aggregate shock",
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

func zeroActions(e *Env) map[string][]float64 {
	actions := make(map[string][]float64)
	for _, name := range e.Agents() {
		actions[name] = make([]float64, e.ActionSpace(name).Dim())
	}
	return actions
}

func TestAgentsAndSpaces(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, func(c *Config) { c.NHH = 3; c.NCapital = 2 })

	assert.Equal(t, []string{"hh_0", "hh_1", "hh_2"}, e.Agents())

	action := e.ActionSpace("hh_0")
	assert.Equal(t, 2, action.Dim())
	assert.True(t, action.Contains([]float64{-1, 1}))

	// Stocks (3*2) + idiosyncratic states (3) + aggregate state (1).
	obs := e.ObservationSpace("hh_0")
	assert.Equal(t, 10, obs.Dim())
}

func TestResetObservationShape(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, func(c *Config) { c.NHH = 2; c.NCapital = 2 })
	obs := e.Reset()

	require.Len(t, obs, 2)
	for _, name := range e.Agents() {
		require.Len(t, obs[name], e.ObservationSpace(name).Dim())
	}
}

func TestResetPinsStocksInEvaluation(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, func(c *Config) {
		c.NHH = 2
		c.Mode = shock.Evaluation
	})
	obs := e.Reset()
	kSS := e.SteadyState()

	// Flat stock layout alternates 0.9 and 0.8 of steady state; hh_0's
	// own stock comes first in its view.
	assert.InDelta(t, 0.9*kSS, obs["hh_0"][0], 1e-12)
	assert.InDelta(t, 0.8*kSS, obs["hh_0"][1], 1e-12)

	// hh_1 sees its own stock first.
	assert.InDelta(t, 0.8*kSS, obs["hh_1"][0], 1e-12)
	assert.InDelta(t, 0.9*kSS, obs["hh_1"][1], 1e-12)
}

func TestResetDrawsAroundSteadyStateInRandomMode(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	kSS := e.SteadyState()
	for i := 0; i < 20; i++ {
		obs := e.Reset()
		k := obs["hh_0"][0]
		assert.GreaterOrEqual(t, k, 0.5*kSS)
		assert.LessOrEqual(t, k, 1.25*kSS)
	}
}

func TestStepRewardIsSharedMeanUtility(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, func(c *Config) { c.NHH = 3 })
	e.Reset()
	_, rewards, _, _ := e.Step(zeroActions(e))

	require.Len(t, rewards, 3)
	assert.Equal(t, rewards["hh_0"], rewards["hh_1"])
	assert.Equal(t, rewards["hh_1"], rewards["hh_2"])
}

func TestDoneExactlyAtHorizon(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, func(c *Config) { c.Horizon = 5 })
	e.Reset()

	for i := 0; i < 4; i++ {
		_, _, done, _ := e.Step(zeroActions(e))
		require.False(t, done.All(), "step %d must not terminate", i+1)
	}
	_, _, done, _ := e.Step(zeroActions(e))
	assert.True(t, done.All())
}

func TestEvaluationRunIsDeterministic(t *testing.T) {
	t.Parallel()

	build := func() *Env {
		return newTestEnv(t, func(c *Config) {
			c.Horizon = 5
			c.Mode = shock.Evaluation
		})
	}
	a, b := build(), build()

	obsA, obsB := a.Reset(), b.Reset()
	require.Equal(t, obsA, obsB)

	for i := 0; i < 5; i++ {
		oA, rA, dA, _ := a.Step(zeroActions(a))
		oB, rB, dB, _ := b.Step(zeroActions(b))
		require.Equal(t, oA, oB, "step %d observations diverged", i+1)
		require.Equal(t, rA, rB)
		require.Equal(t, dA, dB)
	}
}

func TestZeroActionCapitalPathStaysPositive(t *testing.T) {
	t.Parallel()

	// Action 0 unsquashes to half the per-good savings cap, so the
	// stock keeps receiving investment and never degenerates.
	e := newTestEnv(t, func(c *Config) {
		c.Horizon = 5
		c.Mode = shock.Evaluation
	})
	obs := e.Reset()
	prev := obs["hh_0"][0]

	for i := 0; i < 5; i++ {
		obs, rewards, _, _ := e.Step(zeroActions(e))
		k := obs["hh_0"][0]
		require.Greater(t, k, 0.0)
		require.NotEqual(t, prev, k, "stock must move under nonzero investment")
		require.False(t, rewards["hh_0"] == 0)
		prev = k
	}
}

func TestAnalysisModeInfo(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, func(c *Config) {
		c.NHH = 2
		c.Mode = shock.Analysis
	})
	e.Reset()
	_, rewards, _, info := e.Step(zeroActions(e))

	global, ok := info["hh_0"].(GlobalInfo)
	require.True(t, ok, "hh_0 must carry the global diagnostics")
	assert.Len(t, global.Income, 2)
	assert.Len(t, global.Capital, 2)
	assert.Equal(t, rewards["hh_0"], global.Reward)

	step, ok := info["hh_1"].(StepInfo)
	require.True(t, ok, "other households carry per-agent diagnostics")
	assert.Equal(t, rewards["hh_1"], step.Reward)
}

func TestRandomModeOmitsInfo(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	e.Reset()
	_, _, _, info := e.Step(zeroActions(e))
	assert.Empty(t, info)
}

func TestStepPanicsOnMalformedAction(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, func(c *Config) { c.NCapital = 2 })
	e.Reset()

	assert.Panics(t, func() {
		e.Step(map[string][]float64{"hh_0": {0}}) // one entry, want two
	})
	assert.Panics(t, func() {
		e.Step(map[string][]float64{}) // missing agent
	})
}

func TestObservationIsSelfFirst(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, func(c *Config) {
		c.NHH = 3
		c.Mode = shock.Evaluation
	})
	obs := e.Reset()
	kSS := e.SteadyState()

	// Stocks flat layout: [0.9, 0.8, 0.9] * kSS for three households.
	wantOwn := []float64{0.9 * kSS, 0.8 * kSS, 0.9 * kSS}
	for i, name := range e.Agents() {
		assert.InDelta(t, wantOwn[i], obs[name][0], 1e-12,
			"agent %s must see its own stock first", name)
	}
}

func TestDoneMapUsesAllKey(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, func(c *Config) { c.Horizon = 1 })
	e.Reset()
	_, _, done, _ := e.Step(zeroActions(e))
	assert.Equal(t, env.DoneAll(true), done)
}
