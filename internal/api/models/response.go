package models

import (
	"time"

	"github.com/shopspring/decimal"

	"portfolio-backtest/internal/analysis"
)

// BacktestResponse represents the response from a backtest run
type BacktestResponse struct {
	ID      string           `json:"id,omitempty"`
	Status  string           `json:"status"`
	Summary analysis.Summary `json:"summary"`
	Records []Record         `json:"records,omitempty"`
	Skipped []SkippedMonth   `json:"skipped,omitempty"`
}

// Record is one month of portfolio value, rendered to cents.
type Record struct {
	Date           string          `json:"date"` // YYYY-MM-DD, first day of the month
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	Assets         int             `json:"assets"`
}

// SkippedMonth explains a month missing from Records.
type SkippedMonth struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// CompareBacktestResponse represents the response from a comparison
type CompareBacktestResponse struct {
	Comparison []ComparisonResult `json:"comparison"`
}

// ComparisonResult contains results for one variation
type ComparisonResult struct {
	Name    string            `json:"name"`
	Summary *analysis.Summary `json:"summary,omitempty"`
	Error   *ErrorDetail      `json:"error,omitempty"`
}

// RankResponse represents the response from ranking strategies
type RankResponse struct {
	Rankings []analysis.Ranked `json:"rankings"`
}

// StrategyInfo represents information about a strategy
type StrategyInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a strategy parameter
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "float", "int", "string"
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

// AssetInfo describes one asset of the loaded dataset
type AssetInfo struct {
	ID           string    `json:"id"`
	Observations int       `json:"observations"`
	First        time.Time `json:"first"`
	Last         time.Time `json:"last"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
