package data

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"portfolio-backtest/internal/model"
)

// SyntheticParams configures a deterministic random-walk market.
type SyntheticParams struct {
	Assets int
	Start  time.Time
	Days   int
	Seed   int64

	// DailyDrift and DailyVol are the mean and std dev of daily log returns.
	DailyDrift float64
	DailyVol   float64
}

// Synthetic builds a dataset of daily observations where each asset follows a
// geometric random walk. The same params always produce the same dataset.
func Synthetic(p SyntheticParams) (*Dataset, error) {
	if p.Assets <= 0 || p.Days <= 0 {
		return nil, fmt.Errorf("%w: synthetic market needs assets and days", model.ErrData)
	}
	if p.Start.IsZero() {
		p.Start = time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if p.DailyVol == 0 {
		p.DailyVol = 0.03
	}
	rng := rand.New(rand.NewSource(p.Seed))

	rows := make([]model.Observation, 0, p.Assets*p.Days)
	for a := 0; a < p.Assets; a++ {
		id := model.AssetID(fmt.Sprintf("asset-%02d", a))
		price := 1 + rng.Float64()*99
		supply := math.Pow(10, 6+rng.Float64()*3)
		drift := p.DailyDrift + (rng.Float64()-0.5)*0.002
		turnover := 0.01 + rng.Float64()*0.2
		for d := 0; d < p.Days; d++ {
			mc := price * supply
			rows = append(rows, model.Observation{
				Asset:     id,
				Time:      model.Day(p.Start).AddDate(0, 0, d),
				Price:     price,
				MarketCap: mc,
				Volume:    mc * turnover * (0.5 + rng.Float64()),
				HasVolume: true,
			})
			price *= math.Exp(drift + p.DailyVol*rng.NormFloat64())
		}
	}
	return New(rows)
}
