package strategy

import (
	"fmt"
	"sort"
	"time"

	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/optimize"
	"portfolio-backtest/internal/universe"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MeanVariance takes the top K assets by market cap on the month's first day
// and weights them to maximize mean return over return volatility, estimated
// from daily returns in the trailing lookback window.
type MeanVariance struct {
	K            int
	LookbackDays int
	Options      optimize.Options
}

func (s *MeanVariance) Name() string { return NameMeanVariance }

func (s *MeanVariance) Policy() Policy {
	return Policy{
		Universe:     universe.TopByMarketCap{K: s.K, Source: universe.StartSnapshot},
		Source:       universe.StartSnapshot,
		Window:       WindowTrailing,
		LookbackDays: s.LookbackDays,
		Entry:        EntryWindowLast,
		Exit:         ExitMonthEndDay,
	}
}

func (s *MeanVariance) Weights(ctx Context) (model.Allocation, error) {
	cols, prices := PriceMatrix(ctx.Window, ctx.Candidates)
	if len(cols) < 2 {
		return nil, fmt.Errorf("%w: %d of %d candidates have a complete %d-day window",
			model.ErrInsufficientData, len(cols), len(ctx.Candidates), s.LookbackDays)
	}
	if len(prices) < 3 {
		return nil, fmt.Errorf("%w: %d price rows, need 3 for a covariance", model.ErrInsufficientData, len(prices))
	}

	mu, cov := Moments(prices)
	res, err := optimize.MaxRatio(mu, cov, s.Options)
	if err != nil {
		return nil, fmt.Errorf("mean-variance %s: %w", ctx.Period, err)
	}

	out := make(model.Allocation, len(cols))
	for j, w := range res.Weights {
		if w > 0 {
			out[cols[j]] = w
		}
	}
	return out.Normalized(), nil
}

// PriceMatrix pivots a time-ordered window into rows of calendar days and
// columns of assets, keeping only assets observed on every day of the window.
// The last observation of a day wins.
func PriceMatrix(window []model.Observation, candidates []model.AssetID) ([]model.AssetID, [][]float64) {
	want := make(map[model.AssetID]bool, len(candidates))
	for _, id := range candidates {
		want[id] = true
	}
	byDay := map[time.Time]map[model.AssetID]float64{}
	for _, o := range window {
		if !want[o.Asset] {
			continue
		}
		d := model.Day(o.Time)
		if byDay[d] == nil {
			byDay[d] = map[model.AssetID]float64{}
		}
		byDay[d][o.Asset] = o.Price
	}
	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var cols []model.AssetID
	for _, id := range candidates {
		complete := len(days) > 0
		for _, d := range days {
			if _, ok := byDay[d][id]; !ok {
				complete = false
				break
			}
		}
		if complete {
			cols = append(cols, id)
		}
	}

	prices := make([][]float64, len(days))
	for t, d := range days {
		prices[t] = make([]float64, len(cols))
		for j, id := range cols {
			prices[t][j] = byDay[d][id]
		}
	}
	return cols, prices
}

// Moments returns the sample mean and sample covariance (n-1) of the simple
// period-over-period returns of a price matrix.
func Moments(prices [][]float64) ([]float64, [][]float64) {
	k := len(prices[0])
	rets := mat.NewDense(len(prices)-1, k, nil)
	for t := 1; t < len(prices); t++ {
		for j := 0; j < k; j++ {
			rets.Set(t-1, j, prices[t][j]/prices[t-1][j]-1)
		}
	}

	mu := make([]float64, k)
	for j := range mu {
		mu[j] = stat.Mean(mat.Col(nil, j, rets), nil)
	}
	var sym mat.SymDense
	stat.CovarianceMatrix(&sym, rets, nil)
	cov := make([][]float64, k)
	for i := range cov {
		cov[i] = make([]float64, k)
		for j := range cov[i] {
			cov[i][j] = sym.At(i, j)
		}
	}
	return mu, cov
}
