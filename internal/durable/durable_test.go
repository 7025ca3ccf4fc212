package durable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func TestNewValidation(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Seed = 1
	cfg.MaxSaving = 0
	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_saving")

	cfg = Default()
	cfg.Seed = 1
	cfg.Depreciation = 1.5
	_, err = New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depreciation")
}

func TestResetDrawsFromSupport(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	for i := 0; i < 50; i++ {
		obs := e.Reset()
		require.Len(t, obs, 1)
		assert.Contains(t, initialStocks, obs[0])
	}
}

func TestNeverTerminates(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	e.Reset()
	for i := 0; i < 200; i++ {
		_, _, done, _ := e.Step([]float64{0})
		require.False(t, done)
	}
}

func TestStepAccumulatesSavings(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, func(c *Config) { c.Depreciation = 0 })
	e.Reset()
	kOld := e.k

	// Action 1 unsquashes to the full saving cap.
	obs, _, _, info := e.Step([]float64{1})
	assert.InDelta(t, kOld+e.cfg.MaxSaving, obs[0], 1e-12)
	assert.Equal(t, kOld, info.CapitalOld)
	assert.Equal(t, obs[0], info.CapitalNew)
	assert.InDelta(t, e.cfg.MaxSaving, info.SavingsRate, 1e-12)
}

func TestRewardFloorBinds(t *testing.T) {
	t.Parallel()

	// Zero TFP pushes consumption onto the income floor, where CRRA
	// utility is far below the floor.
	e := newTestEnv(t, func(c *Config) { c.TFP = 0 })
	e.Reset()
	_, rew, _, info := e.Step([]float64{0})
	assert.Equal(t, -1000.0, rew)
	assert.Equal(t, -1000.0, info.Reward)
}

func TestIncomeFloorKeepsOutputPositive(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, func(c *Config) { c.TFP = 0 })
	e.Reset()
	_, _, _, info := e.Step([]float64{0})
	assert.Equal(t, 1e-5, info.Income)
}

func TestStepPanicsOnMalformedAction(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	e.Reset()
	assert.Panics(t, func() { e.Step([]float64{0, 0}) })
	assert.Panics(t, func() { e.Step(nil) })
}

func TestMultiAdapter(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t, nil)
	m := e.Multi()

	assert.Equal(t, []string{"agent_0"}, m.Agents())
	assert.Equal(t, 1, m.ActionSpace("agent_0").Dim())
	assert.Equal(t, 1, m.ObservationSpace("agent_0").Dim())

	obs := m.Reset()
	require.Len(t, obs["agent_0"], 1)

	nextObs, rewards, done, info := m.Step(map[string][]float64{"agent_0": {0}})
	require.Len(t, nextObs["agent_0"], 1)
	require.Contains(t, rewards, "agent_0")
	assert.False(t, done.All())

	_, ok := info["agent_0"].(StepInfo)
	assert.True(t, ok, "adapter must pass diagnostics through")
}
