// Package optimize solves the long-only maximum return/volatility portfolio:
//
//	maximize (wᵀμ) / √(wᵀΣw)   subject to   Σwᵢ = 1,  0 ≤ wᵢ ≤ 1
//
// The feasible set is the probability simplex, so the solver is a spectral
// projected-gradient method (Birgin, Martínez & Raydan, 2000): each iterate is
// projected onto the simplex, which enforces the bounds and the budget
// constraint together and implicitly tracks the active set of zero weights.
package optimize

import (
	"fmt"
	"math"

	"portfolio-backtest/internal/model"
)

const (
	defaultMaxIter   = 5000
	defaultTolerance = 1e-7

	// nonmonotone line-search memory and sufficient-increase factor
	memory = 10
	gamma  = 1e-4

	minSpectral = 1e-10
	maxSpectral = 1e10
	minStep     = 1e-20

	// weights at or below activeEps are treated as bound-active
	activeEps = 1e-12
)

// Options tunes the solver. Zero values select defaults.
type Options struct {
	MaxIter   int
	Tolerance float64
}

// Result is the solver output. Weights always lie on the simplex.
type Result struct {
	Weights    []float64
	Ratio      float64
	Iterations int
	Converged  bool
}

// MaxRatio maximizes the return/volatility ratio starting from equal weights.
// A point with zero volatility scores -Inf, so it is never preferred and never
// produces NaN. If the optimality conditions are not met within MaxIter the
// best point found is returned together with an error wrapping
// model.ErrNonConvergence.
func MaxRatio(mu []float64, cov [][]float64, opts Options) (Result, error) {
	n := len(mu)
	if err := validate(mu, cov); err != nil {
		return Result{}, err
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = defaultMaxIter
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = defaultTolerance
	}

	w := equalWeights(n)
	f := Ratio(w, mu, cov)
	res := Result{Weights: append([]float64(nil), w...), Ratio: f}
	if math.IsInf(f, -1) {
		return res, fmt.Errorf("%w: zero volatility at the equal-weight start", model.ErrNonConvergence)
	}

	g := gradient(w, mu, cov)
	history := []float64{f}
	lambda := 1.0
	cand := make([]float64, n)
	d := make([]float64, n)

	for iter := 1; iter <= opts.MaxIter; iter++ {
		res.Iterations = iter
		if kktResidual(w, g) <= opts.Tolerance {
			res.Weights = append(res.Weights[:0], w...)
			res.Ratio = f
			res.Converged = true
			return res, nil
		}

		// Spectral step, projected back onto the simplex.
		for i := range cand {
			cand[i] = w[i] + lambda*g[i]
		}
		ProjectSimplex(cand)
		slope := 0.0
		for i := range d {
			d[i] = cand[i] - w[i]
			slope += g[i] * d[i]
		}

		ref := history[0]
		for _, h := range history {
			ref = math.Min(ref, h)
		}

		alpha := 1.0
		var fc float64
		for {
			for i := range cand {
				cand[i] = w[i] + alpha*d[i]
			}
			fc = Ratio(cand, mu, cov)
			if !math.IsInf(fc, -1) && fc >= ref+gamma*alpha*slope {
				break
			}
			alpha /= 2
			if alpha < minStep {
				return res, fmt.Errorf("%w: line search failed after %d iterations", model.ErrNonConvergence, iter)
			}
		}

		gc := gradient(cand, mu, cov)
		// BB1 step for the minimization of -f: sᵀs / sᵀ(-Δg).
		ss, sy := 0.0, 0.0
		for i := range cand {
			s := cand[i] - w[i]
			ss += s * s
			sy -= s * (gc[i] - g[i])
		}
		if sy <= 0 {
			lambda = maxSpectral
		} else {
			lambda = math.Max(minSpectral, math.Min(maxSpectral, ss/sy))
		}

		copy(w, cand)
		f, g = fc, gc
		if f > res.Ratio {
			res.Weights = append(res.Weights[:0], w...)
			res.Ratio = f
		}
		history = append(history, f)
		if len(history) > memory {
			history = history[1:]
		}
	}
	return res, fmt.Errorf("%w: %d iterations exhausted", model.ErrNonConvergence, opts.MaxIter)
}

// Ratio is (wᵀμ)/√(wᵀΣw), or -Inf when the volatility is zero or undefined.
func Ratio(w, mu []float64, cov [][]float64) float64 {
	v := PortfolioVariance(w, cov)
	if !(v > 0) || math.IsInf(v, 0) {
		return math.Inf(-1)
	}
	r := PortfolioReturn(w, mu) / math.Sqrt(v)
	if math.IsNaN(r) {
		return math.Inf(-1)
	}
	return r
}

func PortfolioReturn(w, mu []float64) float64 {
	r := 0.0
	for i := range w {
		r += w[i] * mu[i]
	}
	return r
}

func PortfolioVariance(w []float64, cov [][]float64) float64 {
	v := 0.0
	for i := range w {
		for j := range w {
			v += w[i] * w[j] * cov[i][j]
		}
	}
	return v
}

// gradient of the ratio: μ/σ - (wᵀμ) Σw / σ³. Zero when σ is zero.
func gradient(w, mu []float64, cov [][]float64) []float64 {
	n := len(w)
	sw := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sw[i] += cov[i][j] * w[j]
		}
	}
	v := PortfolioVariance(w, cov)
	g := make([]float64, n)
	if !(v > 0) {
		return g
	}
	s := math.Sqrt(v)
	r := PortfolioReturn(w, mu)
	for i := range g {
		g[i] = mu[i]/s - r*sw[i]/(v*s)
	}
	return g
}

// kktResidual measures first-order optimality on the simplex. The ratio is
// scale invariant, so wᵀ∇f = 0 and the budget multiplier is zero: the gradient
// must vanish on the support and be non-positive on bound-active weights.
func kktResidual(w, g []float64) float64 {
	res := 0.0
	for i := range w {
		if w[i] > activeEps {
			res = math.Max(res, math.Abs(g[i]))
		} else {
			res = math.Max(res, g[i])
		}
	}
	return res
}

func validate(mu []float64, cov [][]float64) error {
	n := len(mu)
	if n == 0 {
		return fmt.Errorf("%w: empty return vector", model.ErrInsufficientData)
	}
	if len(cov) != n {
		return fmt.Errorf("covariance has %d rows, want %d", len(cov), n)
	}
	for i := range cov {
		if len(cov[i]) != n {
			return fmt.Errorf("covariance row %d has %d columns, want %d", i, len(cov[i]), n)
		}
		if math.IsNaN(mu[i]) || math.IsInf(mu[i], 0) {
			return fmt.Errorf("%w: non-finite mean return for column %d", model.ErrInsufficientData, i)
		}
		for _, c := range cov[i] {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return fmt.Errorf("%w: non-finite covariance in row %d", model.ErrInsufficientData, i)
			}
		}
	}
	return nil
}
