// Package analysis turns backtest results into comparable performance figures.
package analysis

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"portfolio-backtest/internal/backtest"
)

// Summary is the headline performance of one run. Returns are fractions,
// not percentages. Monthly figures are per recorded month.
type Summary struct {
	Strategy string `json:"strategy"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	StartingCapital float64 `json:"starting_capital"`
	FinalValue      float64 `json:"final_value"`

	TotalReturn float64 `json:"total_return"`
	CAGR        float64 `json:"cagr"`
	MaxDrawdown float64 `json:"max_drawdown"`

	MeanMonthly   float64 `json:"mean_monthly_return"`
	StdDevMonthly float64 `json:"stddev_monthly_return"`
	// AnnualizedRatio is mean/stddev of monthly returns scaled by √12.
	AnnualizedRatio float64 `json:"annualized_ratio"`

	BestMonth  float64 `json:"best_month"`
	WorstMonth float64 `json:"worst_month"`
	P05Monthly float64 `json:"p05_monthly_return"`
	P95Monthly float64 `json:"p95_monthly_return"`

	Recorded int `json:"recorded_months"`
	Skipped  int `json:"skipped_months"`
}

func Summarize(res *backtest.Result) Summary {
	s := Summary{}
	if res == nil {
		return s
	}
	s.Strategy = res.Strategy
	s.StartingCapital = res.StartingCapital
	s.FinalValue = res.FinalValue
	s.Recorded = len(res.Records)
	s.Skipped = len(res.Skipped)
	if res.StartingCapital > 0 {
		s.TotalReturn = res.FinalValue/res.StartingCapital - 1
	}
	if len(res.Records) == 0 {
		return s
	}

	first, last := res.Span()
	s.Start = first
	s.End = last.AddDate(0, 1, 0)
	if years := s.End.Sub(s.Start).Hours() / 24 / 365.25; years > 0 && res.StartingCapital > 0 {
		s.CAGR = math.Pow(res.FinalValue/res.StartingCapital, 1/years) - 1
	}

	rets := make([]float64, 0, len(res.Records))
	prev, peak := res.StartingCapital, res.StartingCapital
	for _, r := range res.Records {
		if prev > 0 {
			rets = append(rets, r.Value/prev-1)
		}
		prev = r.Value
		if r.Value > peak {
			peak = r.Value
		}
		if peak > 0 {
			s.MaxDrawdown = math.Max(s.MaxDrawdown, (peak-r.Value)/peak)
		}
	}
	if len(rets) == 0 {
		return s
	}

	if len(rets) > 1 {
		s.MeanMonthly, s.StdDevMonthly = stat.MeanStdDev(rets, nil)
	} else {
		s.MeanMonthly = rets[0]
	}
	if s.StdDevMonthly > 0 {
		s.AnnualizedRatio = s.MeanMonthly / s.StdDevMonthly * math.Sqrt(12)
	}

	sorted := append([]float64(nil), rets...)
	sort.Float64s(sorted)
	s.WorstMonth = sorted[0]
	s.BestMonth = sorted[len(sorted)-1]
	s.P05Monthly = stat.Quantile(0.05, stat.LinInterp, sorted, nil)
	s.P95Monthly = stat.Quantile(0.95, stat.LinInterp, sorted, nil)
	return s
}
