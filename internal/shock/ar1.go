package shock

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// AR1 is a first-order autoregressive process x' = rho*x + e, with
// Gaussian innovations e ~ N(0, sigma).
type AR1 struct {
	Rho   float64
	Sigma float64
}

// Next advances the process one period using an innovation drawn from rng.
func (p AR1) Next(rng *rand.Rand, x float64) float64 {
	return p.Rho*x + Normal(rng, p.Sigma)
}

// Apply advances the process with an externally supplied innovation,
// used when innovations come from a precomputed schedule.
func (p AR1) Apply(x, innovation float64) float64 {
	return p.Rho*x + innovation
}

// Normal draws from N(0, sigma) using the given source.
func Normal(rng *rand.Rand, sigma float64) float64 {
	d := distuv.Normal{Mu: 0, Sigma: sigma, Src: rng}
	return d.Rand()
}
