package strategy

import (
	"fmt"

	"portfolio-backtest/internal/model"
)

// CapWeighted holds the top K assets by market cap in proportion to their cap.
type CapWeighted struct {
	K int
}

func (s *CapWeighted) Name() string { return NameCapWeighted }

func (s *CapWeighted) Policy() Policy { return monthSpan(s.K) }

func (s *CapWeighted) Weights(ctx Context) (model.Allocation, error) {
	total := 0.0
	for _, id := range ctx.Candidates {
		total += ctx.Snapshot[id].MarketCap
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: total market cap of %d candidates is zero", model.ErrInsufficientData, len(ctx.Candidates))
	}
	out := make(model.Allocation, len(ctx.Candidates))
	for _, id := range ctx.Candidates {
		out[id] = ctx.Snapshot[id].MarketCap / total
	}
	return out, nil
}
