package env

import (
	"math"

	"golang.org/x/exp/rand"
)

// SpaceType discriminates the layout of a Space.
type SpaceType int

const (
	// Box is a continuous vector bounded element-wise by Low and High.
	Box SpaceType = iota
	// Discrete is a single integer choice in [0, N[0]).
	Discrete
	// MultiDiscrete is a vector of integer choices, element i in [0, N[i]).
	MultiDiscrete
)

// Space describes the shape and bounds of an action or observation
// vector. Discrete components are carried as float64 index values so
// that every space samples into a flat []float64.
type Space struct {
	Type SpaceType
	Low  []float64 // Box only
	High []float64 // Box only
	N    []int     // Discrete (len 1) and MultiDiscrete cardinalities
}

// NewBox builds a Box space with the same bounds on every element.
func NewBox(low, high float64, dim int) Space {
	l := make([]float64, dim)
	h := make([]float64, dim)
	for i := range l {
		l[i] = low
		h[i] = high
	}
	return Space{Type: Box, Low: l, High: h}
}

// NewDiscrete builds a single-choice space over n values.
func NewDiscrete(n int) Space {
	return Space{Type: Discrete, N: []int{n}}
}

// NewMultiDiscrete builds a vector space with the given cardinalities.
func NewMultiDiscrete(ns []int) Space {
	return Space{Type: MultiDiscrete, N: ns}
}

// Dim returns the flat vector length of the space.
func (s Space) Dim() int {
	switch s.Type {
	case Box:
		return len(s.Low)
	default:
		return len(s.N)
	}
}

// Contains reports whether v is a valid point in the space.
func (s Space) Contains(v []float64) bool {
	if len(v) != s.Dim() {
		return false
	}
	switch s.Type {
	case Box:
		for i, x := range v {
			if x < s.Low[i] || x > s.High[i] {
				return false
			}
		}
	default:
		for i, x := range v {
			if x != math.Trunc(x) || x < 0 || int(x) >= s.N[i] {
				return false
			}
		}
	}
	return true
}

// Sample draws a uniform random point from the space.
func (s Space) Sample(rng *rand.Rand) []float64 {
	v := make([]float64, s.Dim())
	switch s.Type {
	case Box:
		for i := range v {
			v[i] = s.Low[i] + rng.Float64()*(s.High[i]-s.Low[i])
		}
	default:
		for i := range v {
			v[i] = float64(rng.Intn(s.N[i]))
		}
	}
	return v
}
