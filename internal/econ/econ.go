// Package econ provides the closed-form economic primitives shared by
// the market environments: action unsquashing, budget projection,
// production bundling, capital transitions, and utility functions.
package econ

import "math"

// Unsquash maps a bounded action value in [-1, 1] to [0, max].
func Unsquash(a, max float64) float64 {
	return (a + 1) / 2 * max
}

// UnsquashVec unsquashes each element of a into [0, max].
func UnsquashVec(a []float64, max float64) []float64 {
	out := make([]float64, len(a))
	for i, x := range a {
		out[i] = Unsquash(x, max)
	}
	return out
}

// ProjectBudget rescales a decision vector in place so its sum binds at
// exactly 1 when it exceeds 1, and reports whether the projection was
// applied. Vectors already inside the budget are left untouched. This
// is a silent feasibility projection: the flag is informational and no
// error is ever raised.
func ProjectBudget(s []float64) bool {
	sum := 0.0
	for _, x := range s {
		sum += x
	}
	if sum <= 1 {
		return false
	}
	for i := range s {
		s[i] /= sum
	}
	return true
}

// CobbDouglas bundles n capital goods with equal exponents 1/n.
func CobbDouglas(ks []float64) float64 {
	bundle := 1.0
	exp := 1.0 / float64(len(ks))
	for _, k := range ks {
		bundle *= math.Pow(k, exp)
	}
	return bundle
}

// Transition advances a capital stock one period:
// k' = k(1-depreciation) + investment.
func Transition(k, depreciation, investment float64) float64 {
	return k*(1-depreciation) + investment
}

// LogUtility returns ln(c), substituting the negative penalty whenever
// consumption is non-positive. The logarithm is never evaluated on a
// degenerate value.
func LogUtility(c, penalty float64) float64 {
	if c <= 0 {
		return -penalty
	}
	return math.Log(c)
}

// CRRA is a constant-relative-risk-aversion utility function. A
// coefficient of 1 degenerates to log utility.
type CRRA struct {
	Coeff float64
}

// Utility evaluates the CRRA utility of consumption c.
func (u CRRA) Utility(c float64) float64 {
	if u.Coeff == 1 {
		return math.Log(c)
	}
	return math.Pow(c, 1-u.Coeff) / (1 - u.Coeff)
}

// LogitShares computes the market share of each firm under logit demand
// with an outside option: share_i = e^((v_i-p_i)/mu) / (e^(a0/mu) + sum_j
// e^((v_j-p_j)/mu)).
//
// TODO: guard the exponentials against overflow when (v-p)/mu gets
// extreme; the current form matches the model as specified and can
// produce Inf shares for pathological price grids.
func LogitShares(values, prices []float64, extDemand, substitution float64) []float64 {
	weights := make([]float64, len(prices))
	denom := math.Exp(extDemand / substitution)
	for i := range prices {
		weights[i] = math.Exp((values[i] - prices[i]) / substitution)
		denom += weights[i]
	}
	shares := make([]float64, len(prices))
	for i := range shares {
		shares[i] = weights[i] / denom
	}
	return shares
}
