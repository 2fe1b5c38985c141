package backtest

import (
	"fmt"
	"strings"
	"time"

	"portfolio-backtest/internal/model"
)

// MissingPricePolicy decides what happens to capital allocated to an asset
// that has no usable entry or exit price in a period.
type MissingPricePolicy string

const (
	// PolicyDrop discards the capital of unpriced assets.
	PolicyDrop MissingPricePolicy = "drop"
	// PolicyRedistribute spreads it over the priced assets at entry and
	// carries assets without an exit price at their entry value.
	PolicyRedistribute MissingPricePolicy = "redistribute"
)

func ParseMissingPricePolicy(s string) (MissingPricePolicy, error) {
	switch MissingPricePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyDrop:
		return PolicyDrop, nil
	case PolicyRedistribute:
		return PolicyRedistribute, nil
	default:
		return "", fmt.Errorf("unknown missing price policy %q (want drop or redistribute)", s)
	}
}

// Result is the output of one backtest run.
// Records holds one entry per processed month in increasing date order;
// months absent from Records appear in Skipped with the reason.
type Result struct {
	Strategy        string
	StartingCapital float64
	FinalValue      float64

	Records []model.PerformanceRecord
	Skipped []model.SkippedPeriod
}

// Span returns the first and last recorded month, or zero times when nothing was recorded.
func (r *Result) Span() (first, last time.Time) {
	if len(r.Records) == 0 {
		return time.Time{}, time.Time{}
	}
	return r.Records[0].Period, r.Records[len(r.Records)-1].Period
}
