package data

import (
	"fmt"
	"sort"
	"time"

	"portfolio-backtest/internal/model"
)

// Dataset is an immutable, time-ordered table of observations.
// It is safe for concurrent reads.
type Dataset struct {
	obs    []model.Observation
	assets []model.AssetID
}

// New validates and sorts observations. Rows with a missing or non-positive
// price, or a missing or negative market cap, are dropped.
func New(rows []model.Observation) (*Dataset, error) {
	obs := make([]model.Observation, 0, len(rows))
	seen := map[model.AssetID]bool{}
	for _, o := range rows {
		if !o.Valid() {
			continue
		}
		o.Time = o.Time.UTC()
		obs = append(obs, o)
		seen[o.Asset] = true
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: %d rows, none valid", model.ErrData, len(rows))
	}
	sort.SliceStable(obs, func(i, j int) bool {
		if !obs[i].Time.Equal(obs[j].Time) {
			return obs[i].Time.Before(obs[j].Time)
		}
		return obs[i].Asset < obs[j].Asset
	})

	assets := make([]model.AssetID, 0, len(seen))
	for id := range seen {
		assets = append(assets, id)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })

	return &Dataset{obs: obs, assets: assets}, nil
}

// Len is the number of observations kept.
func (d *Dataset) Len() int { return len(d.obs) }

// Assets returns every asset id in ascending order. The slice must not be modified.
func (d *Dataset) Assets() []model.AssetID { return d.assets }

// Bounds returns the first and last observation timestamps.
func (d *Dataset) Bounds() (first, last time.Time) {
	return d.obs[0].Time, d.obs[len(d.obs)-1].Time
}

// Slice returns observations with from <= Time < to, in time order.
// The returned slice shares storage with the dataset and must not be modified.
func (d *Dataset) Slice(from, to time.Time) []model.Observation {
	lo := sort.Search(len(d.obs), func(i int) bool { return !d.obs[i].Time.Before(from) })
	hi := sort.Search(len(d.obs), func(i int) bool { return !d.obs[i].Time.Before(to) })
	if hi < lo {
		hi = lo
	}
	return d.obs[lo:hi]
}

// Snapshot returns, per asset, the observation on the calendar day of day (UTC).
// When an asset has several observations that day the latest wins.
func (d *Dataset) Snapshot(day time.Time) map[model.AssetID]model.Observation {
	from := model.Day(day)
	return LastByAsset(d.Slice(from, from.AddDate(0, 0, 1)))
}

// Months enumerates month starts from the first month start on or after the
// dataset's first day up to its last timestamp, inclusive.
func (d *Dataset) Months() []model.Period {
	first, last := d.Bounds()
	m := model.MonthStart(first)
	if m.Before(model.Day(first)) {
		m = m.AddDate(0, 1, 0)
	}
	var out []model.Period
	for ; !m.After(last); m = m.AddDate(0, 1, 0) {
		out = append(out, model.NewPeriod(m))
	}
	return out
}

// Filter returns a dataset holding only the given assets. Unknown ids are ignored.
func (d *Dataset) Filter(assets []model.AssetID) (*Dataset, error) {
	keep := make(map[model.AssetID]bool, len(assets))
	for _, id := range assets {
		keep[id] = true
	}
	rows := make([]model.Observation, 0, len(d.obs))
	for _, o := range d.obs {
		if keep[o.Asset] {
			rows = append(rows, o)
		}
	}
	return New(rows)
}

// Counts returns the number of observations per asset.
func (d *Dataset) Counts() map[model.AssetID]int {
	out := make(map[model.AssetID]int, len(d.assets))
	for _, o := range d.obs {
		out[o.Asset]++
	}
	return out
}

// AssetStats summarizes one asset's history.
type AssetStats struct {
	Asset        model.AssetID
	Observations int
	First, Last  time.Time
}

// Stats returns one AssetStats per asset in ascending id order.
func (d *Dataset) Stats() []AssetStats {
	byAsset := make(map[model.AssetID]*AssetStats, len(d.assets))
	for _, o := range d.obs {
		s, ok := byAsset[o.Asset]
		if !ok {
			s = &AssetStats{Asset: o.Asset, First: o.Time}
			byAsset[o.Asset] = s
		}
		s.Observations++
		s.Last = o.Time
	}
	out := make([]AssetStats, 0, len(d.assets))
	for _, id := range d.assets {
		out = append(out, *byAsset[id])
	}
	return out
}

// FirstByAsset keeps the earliest observation of each asset in obs.
// obs must be time ordered.
func FirstByAsset(obs []model.Observation) map[model.AssetID]model.Observation {
	out := map[model.AssetID]model.Observation{}
	for _, o := range obs {
		if _, ok := out[o.Asset]; !ok {
			out[o.Asset] = o
		}
	}
	return out
}

// LastByAsset keeps the latest observation of each asset in obs.
// obs must be time ordered.
func LastByAsset(obs []model.Observation) map[model.AssetID]model.Observation {
	out := map[model.AssetID]model.Observation{}
	for _, o := range obs {
		out[o.Asset] = o
	}
	return out
}
