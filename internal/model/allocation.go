package model

import (
	"math"
	"sort"
	"time"
)

// WeightTolerance is the accepted deviation of an allocation's weight sum from 1.
const WeightTolerance = 1e-9

// Allocation maps assets to target weights for one period.
// Weights are in [0,1] and sum to 1 for a non-empty allocation.
type Allocation map[AssetID]float64

// Sum returns the total weight.
func (a Allocation) Sum() float64 {
	// Summation order is fixed so repeated runs are bit-identical.
	s := 0.0
	for _, id := range a.Assets() {
		s += a[id]
	}
	return s
}

// Assets returns the allocated assets in ascending id order.
func (a Allocation) Assets() []AssetID {
	out := make([]AssetID, 0, len(a))
	for id := range a {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Valid reports whether every weight is in [0,1] and the weights sum to 1.
func (a Allocation) Valid() bool {
	if len(a) == 0 {
		return false
	}
	for _, w := range a {
		if math.IsNaN(w) || w < -WeightTolerance || w > 1+WeightTolerance {
			return false
		}
	}
	return math.Abs(a.Sum()-1) <= WeightTolerance
}

// Normalized returns a copy of a rescaled so its weights sum to 1.
// It returns nil when the total weight is not positive.
func (a Allocation) Normalized() Allocation {
	total := a.Sum()
	if total <= 0 || math.IsNaN(total) {
		return nil
	}
	out := make(Allocation, len(a))
	for id, w := range a {
		out[id] = w / total
	}
	return out
}

// EqualWeights gives every asset 1/len(assets).
func EqualWeights(assets []AssetID) Allocation {
	out := make(Allocation, len(assets))
	if len(assets) == 0 {
		return out
	}
	w := 1.0 / float64(len(assets))
	for _, id := range assets {
		out[id] = w
	}
	return out
}

// Position is the quantity of one asset bought at the start of a period.
type Position struct {
	Units      float64
	EntryPrice float64
}

// EntryValue is the capital spent on the position.
func (p Position) EntryValue() float64 { return p.Units * p.EntryPrice }

// Holding is the set of positions held during one period.
type Holding map[AssetID]Position

// Assets returns the held assets in ascending id order.
func (h Holding) Assets() []AssetID {
	out := make([]AssetID, 0, len(h))
	for id := range h {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PortfolioState is the value carried from one period to the next.
type PortfolioState struct {
	Value float64
}

// PerformanceRecord is one row of backtest output.
// Keep these field names stable; they are intended for CSV and JSON output.
type PerformanceRecord struct {
	Period time.Time `json:"date"`
	Value  float64   `json:"portfolio_value"`
	Assets int       `json:"assets"`
}

// SkippedPeriod explains why a month has no PerformanceRecord.
type SkippedPeriod struct {
	Period time.Time
	Reason error
}
