package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-backtest/internal/api/models"
)

const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInvalidConfig  = "INVALID_CONFIG"
	CodeDataError      = "DATA_ERROR"
	CodeBacktestError  = "BACKTEST_ERROR"
	CodeNotFound       = "NOT_FOUND"
)

func writeError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}

func dataError(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    CodeDataError,
			Message: err.Error(),
		},
	})
}
