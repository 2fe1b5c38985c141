package model

import (
	"math"
	"time"
)

// AssetID identifies one asset (a coin, a ticker) across every file of a dataset.
type AssetID string

// Observation is one row of market data for a single asset.
// Units:
// - Price: quote currency per unit, > 0
// - MarketCap: quote currency, >= 0
// - Volume: 24h traded value in quote currency, only meaningful when HasVolume is set
type Observation struct {
	Asset     AssetID   `json:"coin_name"`
	Time      time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	MarketCap float64   `json:"market_cap"`
	Volume    float64   `json:"volume_24h,omitempty"`
	HasVolume bool      `json:"-"`
}

// Valid reports whether the observation carries a usable price and market cap.
func (o Observation) Valid() bool {
	if o.Asset == "" || o.Time.IsZero() {
		return false
	}
	if math.IsNaN(o.Price) || math.IsInf(o.Price, 0) || o.Price <= 0 {
		return false
	}
	if math.IsNaN(o.MarketCap) || math.IsInf(o.MarketCap, 0) || o.MarketCap < 0 {
		return false
	}
	return true
}

// Day truncates t to 00:00 UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns 00:00 UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// Period is one calendar month: [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

func NewPeriod(monthStart time.Time) Period {
	s := MonthStart(monthStart)
	return Period{Start: s, End: s.AddDate(0, 1, 0)}
}

// LastDay is the final calendar day of the month, used for month-end snapshots.
func (p Period) LastDay() time.Time {
	return p.End.AddDate(0, 0, -1)
}

// Lookback returns the trailing window [Start-days, Start).
func (p Period) Lookback(days int) (from, to time.Time) {
	return p.Start.AddDate(0, 0, -days), p.Start
}

func (p Period) String() string {
	return p.Start.Format("2006-01")
}
