package data

import (
	"io"
	"math"

	"portfolio-backtest/internal/model"

	"github.com/goccy/go-json"
)

// jsonRow matches one element of a JSON observation file.
//
// Example:
// [
//   {"coin_name": "bitcoin", "timestamp": "2021-01-01T00:00:00Z",
//    "price": 29374.15, "market_cap": 546000000000, "volume_24h": 40730301359}
// ]
type jsonRow struct {
	Asset     string   `json:"coin_name"`
	Timestamp string   `json:"timestamp"`
	Price     *float64 `json:"price"`
	MarketCap *float64 `json:"market_cap"`
	Volume    *float64 `json:"volume_24h"`
}

// ReadJSON parses a JSON array of observations. Missing numeric fields are
// treated like empty CSV cells.
func ReadJSON(r io.Reader, defaultAsset model.AssetID) ([]model.Observation, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var rows []jsonRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	out := make([]model.Observation, 0, len(rows))
	for _, row := range rows {
		ts, err := parseTime(row.Timestamp)
		if err != nil {
			continue
		}
		o := model.Observation{
			Asset:     defaultAsset,
			Time:      ts,
			Price:     deref(row.Price),
			MarketCap: deref(row.MarketCap),
		}
		if row.Asset != "" {
			o.Asset = model.AssetID(row.Asset)
		}
		if row.Volume != nil && *row.Volume >= 0 {
			o.Volume, o.HasVolume = *row.Volume, true
		}
		out = append(out, o)
	}
	return out, nil
}

func deref(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
