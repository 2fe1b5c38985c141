package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio-backtest/internal/analysis"
	"portfolio-backtest/internal/api/models"
	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/config"
	"portfolio-backtest/internal/data"
	"portfolio-backtest/internal/strategy"
)

// RankHandler handles ranking-related requests
type RankHandler struct {
	loader *DatasetLoader
	base   config.Config
	cache  *data.Cache
	logger *zap.Logger
}

// NewRankHandler creates a new rank handler
func NewRankHandler(loader *DatasetLoader, base config.Config, cache *data.Cache, logger *zap.Logger) *RankHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankHandler{loader: loader, base: base, cache: cache, logger: logger}
}

// RankStrategies handles GET /api/v1/rank
func (h *RankHandler) RankStrategies(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, http.StatusBadRequest, CodeInvalidRequest, err)
		return
	}

	ranked, err := h.rank(c)
	if err != nil {
		if _, ok := err.(dataErr); ok {
			dataError(c, err)
			return
		}
		writeError(c, http.StatusInternalServerError, CodeBacktestError, err)
		return
	}

	// Apply limit
	if req.Limit > 0 && req.Limit < len(ranked) {
		ranked = ranked[:req.Limit]
	}
	c.JSON(http.StatusOK, models.RankResponse{Rankings: ranked})
}

type dataErr struct{ error }

func (h *RankHandler) rank(c *gin.Context) ([]analysis.Ranked, error) {
	key := data.GenerateCacheKey("rank", h.loader.Dir())
	if v, ok := h.cache.Get(key); ok {
		if ranked, ok := v.([]analysis.Ranked); ok {
			return ranked, nil
		}
	}

	ds, err := h.loader.Load()
	if err != nil {
		return nil, dataErr{err}
	}

	byName := make(map[string]analysis.Summary, len(strategy.Names()))
	for _, name := range strategy.Names() {
		cfg := h.base
		cfg.WeightingStrategy = name
		opts := append(cfg.EngineOptions(), backtest.WithLogger(h.logger))
		engine, err := backtest.New(ds, name, opts...)
		if err != nil {
			return nil, err
		}
		result, err := engine.Run(c.Request.Context())
		if err != nil {
			return nil, err
		}
		byName[name] = analysis.Summarize(result)
	}

	ranked := analysis.RankByTotalReturn(byName)
	h.cache.Set(key, ranked)
	return ranked, nil
}
