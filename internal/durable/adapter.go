package durable

import "github.com/ssandler/econgym/internal/env"

// agentID is the seat name used when the single-agent problem is
// driven through the multi-agent contract.
const agentID = "agent_0"

// Multi adapts the single-agent environment to the shared multi-agent
// contract so the runner and session API can drive it uniformly.
func (e *Env) Multi() env.Multi {
	return multiAdapter{e}
}

type multiAdapter struct {
	e *Env
}

func (m multiAdapter) Agents() []string { return []string{agentID} }

func (m multiAdapter) ActionSpace(string) env.Space { return m.e.ActionSpace() }

func (m multiAdapter) ObservationSpace(string) env.Space { return m.e.ObservationSpace() }

func (m multiAdapter) Reset() map[string][]float64 {
	return map[string][]float64{agentID: m.e.Reset()}
}

func (m multiAdapter) Step(actions map[string][]float64) (map[string][]float64, map[string]float64, env.Done, map[string]any) {
	obs, rew, done, info := m.e.Step(actions[agentID])
	return map[string][]float64{agentID: obs},
		map[string]float64{agentID: rew},
		env.DoneAll(done),
		map[string]any{agentID: info}
}
