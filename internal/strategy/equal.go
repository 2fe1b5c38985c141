package strategy

import (
	"fmt"

	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/universe"
)

// monthSpan is the policy of the buy-and-hold style strategies: rank on the
// first observation of the month, buy at it and sell at the month's last one.
func monthSpan(k int) Policy {
	return Policy{
		Universe: universe.TopByMarketCap{K: k, Source: universe.MonthFirst},
		Source:   universe.MonthFirst,
		Window:   WindowMonth,
		Entry:    EntryMonthFirst,
		Exit:     ExitMonthLast,
	}
}

// Equal holds the top K assets by market cap with weight 1/K each.
type Equal struct {
	K int
}

func (s *Equal) Name() string { return NameEqual }

func (s *Equal) Policy() Policy { return monthSpan(s.K) }

func (s *Equal) Weights(ctx Context) (model.Allocation, error) {
	if len(ctx.Candidates) == 0 {
		return nil, fmt.Errorf("%w: equal weight needs at least one asset", model.ErrInsufficientData)
	}
	return model.EqualWeights(ctx.Candidates), nil
}
