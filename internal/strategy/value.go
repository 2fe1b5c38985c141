package strategy

import (
	"fmt"

	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/universe"
)

// Value takes the UniverseSize largest assets on the month's first day and
// equal-weights the PortfolioSize "cheapest" ones, where cheap means a low
// market cap to 24h volume ratio.
type Value struct {
	UniverseSize  int
	PortfolioSize int
}

func (s *Value) Name() string { return NameValue }

func (s *Value) Policy() Policy {
	return Policy{
		Universe: universe.TopByMarketCap{K: s.UniverseSize, Source: universe.StartSnapshot},
		Source:   universe.StartSnapshot,
		Window:   WindowMonth,
		Entry:    EntryStartDay,
		Exit:     ExitMonthEndDay,
	}
}

func (s *Value) Weights(ctx Context) (model.Allocation, error) {
	scores := make(map[model.AssetID]float64, len(ctx.Candidates))
	ids := make([]model.AssetID, 0, len(ctx.Candidates))
	for _, id := range ctx.Candidates {
		o, ok := ctx.Snapshot[id]
		// Score is undefined without a positive volume.
		if !ok || !o.HasVolume || o.Volume <= 0 {
			continue
		}
		scores[id] = o.MarketCap / o.Volume
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no candidate has a 24h volume", model.ErrInsufficientData)
	}
	return model.EqualWeights(rankTop(ids, scores, s.PortfolioSize, true)), nil
}
