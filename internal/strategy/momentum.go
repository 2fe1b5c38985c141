package strategy

import (
	"fmt"

	"portfolio-backtest/internal/data"
	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/universe"
)

// Momentum ranks assets by their simple return over the trailing lookback
// window and equal-weights the TopN.
type Momentum struct {
	TopN         int
	LookbackDays int
	MinHistory   int
}

func (s *Momentum) Name() string { return NameMomentum }

func (s *Momentum) Policy() Policy {
	return Policy{
		Universe:     universe.SufficientHistory{LookbackDays: s.LookbackDays, MinObservations: s.MinHistory},
		Source:       universe.StartSnapshot,
		Window:       WindowTrailing,
		LookbackDays: s.LookbackDays,
		Entry:        EntryStartDay,
		Exit:         ExitMonthEndDay,
	}
}

func (s *Momentum) Weights(ctx Context) (model.Allocation, error) {
	returns := Returns(ctx.Window)
	ids := make([]model.AssetID, 0, len(returns))
	for _, id := range ctx.Candidates {
		if _, ok := returns[id]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no asset has a %d-day return", model.ErrInsufficientData, s.LookbackDays)
	}
	return model.EqualWeights(rankTop(ids, returns, s.TopN, false)), nil
}

// Returns computes (last - first) / first per asset over a time-ordered window.
func Returns(window []model.Observation) map[model.AssetID]float64 {
	first, last := data.FirstByAsset(window), data.LastByAsset(window)
	out := make(map[model.AssetID]float64, len(first))
	for id, f := range first {
		l, ok := last[id]
		if !ok || f.Price <= 0 {
			continue
		}
		out[id] = (l.Price - f.Price) / f.Price
	}
	return out
}
