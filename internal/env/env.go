// Package env defines the shared multi-agent environment contract:
// the reset/step interface, action and observation space descriptions,
// and the self-first observation assembly every environment follows.
package env

import "fmt"

// AllKey is the aggregate termination key in a Done map. An episode is
// over when the entry under this key is true.
const AllKey = "__all__"

// Done maps agent IDs to termination flags, plus the AllKey aggregate.
type Done map[string]bool

// All reports whether the episode as a whole has terminated.
func (d Done) All() bool { return d[AllKey] }

// DoneAll builds a Done map carrying only the aggregate flag.
func DoneAll(v bool) Done { return Done{AllKey: v} }

// Multi is the environment contract every market in the family satisfies.
// Observations and actions are flat float64 vectors keyed by agent ID;
// discrete components are encoded as their index value. A Step call
// advances exactly one period and never blocks.
type Multi interface {
	// Agents returns the agent IDs in index order.
	Agents() []string
	// Reset re-initializes state and the timestep and returns the
	// initial observation per agent.
	Reset() map[string][]float64
	// Step advances one period given an action per agent.
	Step(actions map[string][]float64) (map[string][]float64, map[string]float64, Done, map[string]any)
	// ActionSpace describes the action layout for one agent.
	ActionSpace(id string) Space
	// ObservationSpace describes the observation layout for one agent.
	ObservationSpace(id string) Space
}

// AgentID formats the conventional agent key for an index, e.g. "hh_0".
func AgentID(prefix string, i int) string {
	return fmt.Sprintf("%s_%d", prefix, i)
}
