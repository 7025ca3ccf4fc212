package env

// SelfFirst reorders a per-agent slice into agent i's view: i's own
// entry first, then the remaining entries in original index order.
// Every environment in the family presents state this way so that one
// policy can control any agent seat.
func SelfFirst[T any](vals []T, i int) []T {
	out := make([]T, 0, len(vals))
	out = append(out, vals[i])
	for z, x := range vals {
		if z != i {
			out = append(out, x)
		}
	}
	return out
}

// SelfFirstFlat reorders per-agent groups of values into agent i's view
// and flattens the result. Used for stocks held as n_agents groups of
// n_goods entries.
func SelfFirstFlat(groups [][]float64, i int) []float64 {
	ordered := SelfFirst(groups, i)
	out := make([]float64, 0, len(groups)*len(groups[0]))
	for _, g := range ordered {
		out = append(out, g...)
	}
	return out
}
