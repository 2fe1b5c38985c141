package models

// BacktestRequest represents the request body for running a backtest
type BacktestRequest struct {
	Config  BacktestConfig  `json:"config" binding:"required"`
	Assets  []string        `json:"assets,omitempty"` // restrict the dataset to these assets
	Options BacktestOptions `json:"options,omitempty"`
}

// BacktestConfig mirrors the YAML run configuration. Zero fields fall back to
// the server's defaults.
type BacktestConfig struct {
	WeightingStrategy  string          `json:"weighting_strategy"`
	StartingCapital    float64         `json:"starting_capital,omitempty"`
	PortfolioSize      int             `json:"portfolio_size,omitempty"`
	UniverseSize       int             `json:"universe_size,omitempty"`
	LookbackDays       int             `json:"lookback_days,omitempty"`
	MinHistory         int             `json:"min_history,omitempty"`
	MissingPricePolicy string          `json:"missing_price_policy,omitempty"` // "drop" or "redistribute"
	Optimizer          OptimizerConfig `json:"optimizer,omitempty"`
}

type OptimizerConfig struct {
	MaxIter   int     `json:"max_iter,omitempty"`
	Tolerance float64 `json:"tolerance,omitempty"`
}

// BacktestOptions contains optional response parameters
type BacktestOptions struct {
	OmitRecords bool `json:"omit_records,omitempty"` // default: records included
}

// CompareBacktestRequest represents a request to compare multiple backtests
type CompareBacktestRequest struct {
	Assets     []string            `json:"assets,omitempty"`
	BaseConfig BacktestConfig      `json:"base_config"`
	Variations []BacktestVariation `json:"variations" binding:"required,min=1,dive"`
}

// BacktestVariation defines a variation to test
type BacktestVariation struct {
	Name   string         `json:"name" binding:"required"`
	Config BacktestConfig `json:"config"`
}

// RankRequest represents a request to rank the built-in strategies
type RankRequest struct {
	Limit int `form:"limit,omitempty"` // default: all
}
