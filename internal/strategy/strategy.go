package strategy

import (
	"fmt"
	"sort"
	"strings"

	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/optimize"
	"portfolio-backtest/internal/universe"
)

// Window selects the price observations handed to Weights.
type Window int

const (
	// WindowMonth is the rebalancing month itself.
	WindowMonth Window = iota
	// WindowTrailing is [start - LookbackDays, start).
	WindowTrailing
)

// EntryPrice selects the price at which a period's holding is bought.
type EntryPrice int

const (
	// EntryMonthFirst buys at each asset's first observation in the month.
	EntryMonthFirst EntryPrice = iota
	// EntryStartDay buys at the observation on the month's first day.
	EntryStartDay
	// EntryWindowLast buys at the last price of the lookback window.
	EntryWindowLast
)

// ExitPrice selects the price at which a holding is revalued.
type ExitPrice int

const (
	// ExitMonthLast uses each asset's last observation in the month.
	ExitMonthLast ExitPrice = iota
	// ExitMonthEndDay uses only observations on the month's last day.
	ExitMonthEndDay
)

// Policy tells the engine how to prepare a period for a strategy.
type Policy struct {
	Universe     universe.Criterion
	Source       universe.Source
	Window       Window
	LookbackDays int
	Entry        EntryPrice
	Exit         ExitPrice
}

// Context is everything a strategy sees when weighting one period.
type Context struct {
	Period     model.Period
	Candidates []model.AssetID
	// Window holds the candidates' observations in the policy window, time ordered.
	Window []model.Observation
	// Snapshot holds each candidate's ranking observation (market cap, volume).
	Snapshot map[model.AssetID]model.Observation
}

// Strategy turns a period's candidates into target weights.
// Weights returns an error wrapping model.ErrInsufficientData when too few
// assets qualify, or model.ErrNonConvergence when an optimizer fails.
type Strategy interface {
	Name() string
	Policy() Policy
	Weights(ctx Context) (model.Allocation, error)
}

// Params are the tunables shared by the built-in strategies.
type Params struct {
	PortfolioSize int
	UniverseSize  int
	LookbackDays  int
	MinHistory    int
	Optimizer     optimize.Options
}

// DefaultParams mirrors the defaults of the run configuration.
func DefaultParams() Params {
	return Params{
		PortfolioSize: 10,
		UniverseSize:  150,
		LookbackDays:  30,
		MinHistory:    2,
	}
}

const (
	NameEqual        = "equal"
	NameCapWeighted  = "cap-weighted"
	NameMomentum     = "momentum"
	NameValue        = "value"
	NameMeanVariance = "mean-variance"
)

// Names lists the built-in strategies in presentation order.
func Names() []string {
	return []string{NameEqual, NameCapWeighted, NameMomentum, NameValue, NameMeanVariance}
}

// New builds a built-in strategy by name. Zero params fall back to DefaultParams.
func New(name string, p Params) (Strategy, error) {
	d := DefaultParams()
	if p.PortfolioSize <= 0 {
		p.PortfolioSize = d.PortfolioSize
	}
	if p.UniverseSize <= 0 {
		p.UniverseSize = d.UniverseSize
	}
	if p.LookbackDays <= 0 {
		p.LookbackDays = d.LookbackDays
	}
	if p.MinHistory <= 0 {
		p.MinHistory = d.MinHistory
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameEqual, "equal-weight":
		return &Equal{K: p.PortfolioSize}, nil
	case NameCapWeighted, "cap", "value-weighted":
		return &CapWeighted{K: p.PortfolioSize}, nil
	case NameMomentum:
		return &Momentum{TopN: p.PortfolioSize, LookbackDays: p.LookbackDays, MinHistory: p.MinHistory}, nil
	case NameValue:
		return &Value{UniverseSize: p.UniverseSize, PortfolioSize: p.PortfolioSize}, nil
	case NameMeanVariance, "mean-variance-optimal", "mvo":
		return &MeanVariance{K: p.PortfolioSize, LookbackDays: p.LookbackDays, Options: p.Optimizer}, nil
	default:
		return nil, fmt.Errorf("unsupported strategy: %q", name)
	}
}

// rankTop sorts ids by score (descending unless ascending is set), breaking
// ties by id, and keeps at most n.
func rankTop(ids []model.AssetID, score map[model.AssetID]float64, n int, ascending bool) []model.AssetID {
	out := append([]model.AssetID(nil), ids...)
	sort.Slice(out, func(i, j int) bool {
		a, b := score[out[i]], score[out[j]]
		if a != b {
			if ascending {
				return a < b
			}
			return a > b
		}
		return out[i] < out[j]
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
