package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"portfolio-backtest/internal/analysis"
	"portfolio-backtest/internal/api/models"
	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/config"
	"portfolio-backtest/internal/data"
	"portfolio-backtest/internal/model"
)

const dateLayout = "2006-01-02"

// BacktestHandler handles backtest-related requests
type BacktestHandler struct {
	loader *DatasetLoader
	base   config.Config
	runs   *data.Cache
	logger *zap.Logger
}

// NewBacktestHandler creates a new backtest handler. base backs every zero
// field of a request config.
func NewBacktestHandler(loader *DatasetLoader, base config.Config, runs *data.Cache, logger *zap.Logger) *BacktestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestHandler{loader: loader, base: base, runs: runs, logger: logger}
}

// RunBacktest handles POST /api/v1/backtest
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req models.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, CodeInvalidRequest, err)
		return
	}

	cfg, err := h.buildConfig(req.Config)
	if err != nil {
		writeError(c, http.StatusBadRequest, CodeInvalidConfig, err)
		return
	}

	ds, err := h.loader.LoadAssets(req.Assets)
	if err != nil {
		dataError(c, err)
		return
	}

	result, err := h.run(c, ds, cfg)
	if err != nil {
		writeError(c, http.StatusInternalServerError, CodeBacktestError, err)
		return
	}

	response := buildResponse(result, !req.Options.OmitRecords)
	response.ID = uuid.NewString()
	h.runs.Set(runKey(response.ID), response)

	c.JSON(http.StatusOK, response)
}

// GetBacktest handles GET /api/v1/backtest/:id
func (h *BacktestHandler) GetBacktest(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(c, http.StatusBadRequest, CodeInvalidRequest, fmt.Errorf("invalid run id %q", id))
		return
	}
	v, ok := h.runs.Get(runKey(id))
	if !ok {
		writeError(c, http.StatusNotFound, CodeNotFound, fmt.Errorf("run %s not found or expired", id))
		return
	}
	c.JSON(http.StatusOK, v)
}

// CompareBacktests handles POST /api/v1/backtest/compare
func (h *BacktestHandler) CompareBacktests(c *gin.Context) {
	var req models.CompareBacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, CodeInvalidRequest, err)
		return
	}

	// Load data once
	ds, err := h.loader.LoadAssets(req.Assets)
	if err != nil {
		dataError(c, err)
		return
	}

	comparison := make([]models.ComparisonResult, 0, len(req.Variations))
	for _, variation := range req.Variations {
		out := models.ComparisonResult{Name: variation.Name}

		cfg, err := h.buildConfig(mergeRequest(req.BaseConfig, variation.Config))
		if err != nil {
			out.Error = &models.ErrorDetail{Code: CodeInvalidConfig, Message: err.Error()}
			comparison = append(comparison, out)
			continue
		}

		result, err := h.run(c, ds, cfg)
		if err != nil {
			out.Error = &models.ErrorDetail{Code: CodeBacktestError, Message: err.Error()}
			comparison = append(comparison, out)
			continue
		}

		summary := analysis.Summarize(result)
		out.Summary = &summary
		comparison = append(comparison, out)
	}

	c.JSON(http.StatusOK, models.CompareBacktestResponse{
		Comparison: comparison,
	})
}

// Helper methods

func (h *BacktestHandler) run(c *gin.Context, ds *data.Dataset, cfg config.Config) (*backtest.Result, error) {
	opts := append(cfg.EngineOptions(), backtest.WithLogger(h.logger))
	engine, err := backtest.New(ds, cfg.WeightingStrategy, opts...)
	if err != nil {
		return nil, err
	}
	return engine.Run(c.Request.Context())
}

func (h *BacktestHandler) buildConfig(req models.BacktestConfig) (config.Config, error) {
	cfg := config.Merge(h.base, config.Config{
		WeightingStrategy: req.WeightingStrategy,
		StartingCapital:   req.StartingCapital,
		PortfolioSize:     req.PortfolioSize,
		UniverseSize:      req.UniverseSize,
		LookbackDays:      req.LookbackDays,
		MinHistory:        req.MinHistory,
		MissingPrice:      req.MissingPricePolicy,
		Optimizer: config.OptimizerConfig{
			MaxIter:   req.Optimizer.MaxIter,
			Tolerance: req.Optimizer.Tolerance,
		},
	})
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// mergeRequest overlays the non-zero fields of a variation onto the base request config.
func mergeRequest(base, override models.BacktestConfig) models.BacktestConfig {
	merged := base
	if override.WeightingStrategy != "" {
		merged.WeightingStrategy = override.WeightingStrategy
	}
	if override.StartingCapital != 0 {
		merged.StartingCapital = override.StartingCapital
	}
	if override.PortfolioSize != 0 {
		merged.PortfolioSize = override.PortfolioSize
	}
	if override.UniverseSize != 0 {
		merged.UniverseSize = override.UniverseSize
	}
	if override.LookbackDays != 0 {
		merged.LookbackDays = override.LookbackDays
	}
	if override.MinHistory != 0 {
		merged.MinHistory = override.MinHistory
	}
	if override.MissingPricePolicy != "" {
		merged.MissingPricePolicy = override.MissingPricePolicy
	}
	if override.Optimizer.MaxIter != 0 {
		merged.Optimizer.MaxIter = override.Optimizer.MaxIter
	}
	if override.Optimizer.Tolerance != 0 {
		merged.Optimizer.Tolerance = override.Optimizer.Tolerance
	}
	return merged
}

func buildResponse(result *backtest.Result, includeRecords bool) models.BacktestResponse {
	response := models.BacktestResponse{
		Status:  "completed",
		Summary: analysis.Summarize(result),
	}
	if includeRecords {
		response.Records = convertRecords(result.Records)
	}
	for _, s := range result.Skipped {
		response.Skipped = append(response.Skipped, models.SkippedMonth{
			Date:   s.Period.Format(dateLayout),
			Reason: skipReason(s.Reason),
		})
	}
	return response
}

func convertRecords(records []model.PerformanceRecord) []models.Record {
	out := make([]models.Record, len(records))
	for i, r := range records {
		out[i] = models.Record{
			Date:           r.Period.Format(dateLayout),
			PortfolioValue: decimal.NewFromFloat(r.Value).Round(2),
			Assets:         r.Assets,
		}
	}
	return out
}

func skipReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrNonConvergence):
		return "non_convergence: " + err.Error()
	case errors.Is(err, model.ErrMissingPrice):
		return "missing_price: " + err.Error()
	default:
		return "insufficient_data: " + err.Error()
	}
}

func runKey(id string) string { return data.GenerateCacheKey("run", id) }
