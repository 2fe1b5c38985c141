package optimize

import "sort"

// ProjectSimplex projects v onto the probability simplex
// Δ = {x ∈ ℝⁿ : x ≥ 0, Σxᵢ = 1} using the O(n log n) algorithm of
// Duchi et al. (2008), "Efficient projections onto the l1-ball".
// Modifies v in place.
func ProjectSimplex(v []float64) {
	n := len(v)
	if n == 0 {
		return
	}

	u := make([]float64, n)
	copy(u, v)
	sort.Sort(sort.Reverse(sort.Float64Slice(u)))

	// ρ: largest j (0-based) with u[j] - (Σ_{i<=j} u[i] - 1)/(j+1) > 0.
	cumSum, rhoSum := 0.0, 0.0
	rho := 0
	for j := 0; j < n; j++ {
		cumSum += u[j]
		if u[j]-(cumSum-1)/float64(j+1) > 0 {
			rho, rhoSum = j, cumSum
		}
	}
	theta := (rhoSum - 1) / float64(rho+1)

	for i := range v {
		v[i] -= theta
		if v[i] < 0 {
			v[i] = 0
		}
	}
}

func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}
