// Package universe picks the candidate assets considered in a rebalancing period.
package universe

import (
	"sort"

	"portfolio-backtest/internal/data"
	"portfolio-backtest/internal/model"
)

// Source chooses which market-cap observation ranks an asset.
type Source int

const (
	// MonthFirst uses each asset's first observation inside the calendar month.
	MonthFirst Source = iota
	// StartSnapshot uses only observations on the period's first day.
	StartSnapshot
)

// Criterion selects candidates for a period.
type Criterion interface {
	Select(ds *data.Dataset, p model.Period) []model.AssetID
}

// TopByMarketCap keeps the K largest assets by market cap.
// Ties are broken by ascending AssetID so the order is reproducible.
type TopByMarketCap struct {
	K      int
	Source Source
}

func (c TopByMarketCap) Select(ds *data.Dataset, p model.Period) []model.AssetID {
	return TopK(Observations(ds, p, c.Source), c.K)
}

// SufficientHistory keeps every asset with at least MinObservations
// observations in the trailing Lookback days before the period start.
type SufficientHistory struct {
	LookbackDays    int
	MinObservations int
}

func (c SufficientHistory) Select(ds *data.Dataset, p model.Period) []model.AssetID {
	minObs := c.MinObservations
	if minObs <= 0 {
		minObs = 1
	}
	from, to := p.Lookback(c.LookbackDays)
	counts := map[model.AssetID]int{}
	for _, o := range ds.Slice(from, to) {
		counts[o.Asset]++
	}
	out := make([]model.AssetID, 0, len(counts))
	for id, n := range counts {
		if n >= minObs {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Observations returns the per-asset observation a Source ranks by.
func Observations(ds *data.Dataset, p model.Period, src Source) map[model.AssetID]model.Observation {
	if src == StartSnapshot {
		return ds.Snapshot(p.Start)
	}
	return data.FirstByAsset(ds.Slice(p.Start, p.End))
}

// TopK ranks obs by market cap descending and keeps at most k. k <= 0 keeps all.
func TopK(obs map[model.AssetID]model.Observation, k int) []model.AssetID {
	ids := make([]model.AssetID, 0, len(obs))
	for id := range obs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := obs[ids[i]].MarketCap, obs[ids[j]].MarketCap
		if a != b {
			return a > b
		}
		return ids[i] < ids[j]
	})
	if k > 0 && len(ids) > k {
		ids = ids[:k]
	}
	return ids
}
