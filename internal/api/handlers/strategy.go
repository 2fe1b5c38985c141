package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-backtest/internal/api/models"
	"portfolio-backtest/internal/strategy"
)

// StrategyHandler handles strategy-related requests
type StrategyHandler struct{}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler() *StrategyHandler {
	return &StrategyHandler{}
}

// ListStrategies handles GET /api/v1/strategies
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	infos := strategy.Describe()
	strategies := make([]models.StrategyInfo, len(infos))
	for i, info := range infos {
		params := make([]models.ParameterInfo, len(info.Params))
		for j, p := range info.Params {
			params[j] = models.ParameterInfo{
				Name:        p.Name,
				Type:        p.Type,
				Description: p.Description,
				Default:     p.Default,
			}
		}
		strategies[i] = models.StrategyInfo{
			Name:        info.Name,
			Description: info.Description,
			Parameters:  params,
		}
	}
	c.JSON(http.StatusOK, gin.H{"strategies": strategies})
}
