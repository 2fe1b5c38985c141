// Package api wires the HTTP handlers into a gin router.
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio-backtest/internal/api/handlers"
	"portfolio-backtest/internal/api/middleware"
	"portfolio-backtest/internal/config"
	"portfolio-backtest/internal/data"
)

// Deps are the shared resources of the HTTP surface.
type Deps struct {
	Server config.ServerConfig
	// Base backs every zero field of a request config.
	Base   config.Config
	Cache  *data.Cache
	Logger *zap.Logger
}

// NewRouter builds the router with middleware, API routes and optional static files.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	router := gin.New()

	// Apply middleware
	router.Use(middleware.Logger(d.Logger))
	router.Use(middleware.ErrorHandler(d.Logger))
	router.Use(middleware.CORS(d.Server.Origins()...))

	loader := handlers.NewDatasetLoader(d.Server.DataDir, d.Cache, d.Logger)
	backtestHandler := handlers.NewBacktestHandler(loader, d.Base, d.Cache, d.Logger)
	rankHandler := handlers.NewRankHandler(loader, d.Base, d.Cache, d.Logger)
	strategyHandler := handlers.NewStrategyHandler()
	assetsHandler := handlers.NewAssetsHandler(loader)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "data_dir": loader.Dir()})
		})

		v1.POST("/backtest", backtestHandler.RunBacktest)
		v1.GET("/backtest/:id", backtestHandler.GetBacktest)
		v1.POST("/backtest/compare", backtestHandler.CompareBacktests)

		v1.GET("/rank", rankHandler.RankStrategies)
		v1.GET("/strategies", strategyHandler.ListStrategies)
		v1.GET("/assets", assetsHandler.ListAssets)
	}

	serveStatic(router, d.Server.StaticDir, d.Logger)
	return router
}

// serveStatic serves a built frontend from dir, if it exists, with SPA fallback.
func serveStatic(router *gin.Engine, dir string, logger *zap.Logger) {
	notFound := func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": handlers.CodeNotFound, "message": "Not found"}})
	}
	if dir == "" {
		router.NoRoute(notFound)
		return
	}
	if _, err := os.Stat(dir); err != nil {
		logger.Info("static directory not found, skipping static file serving", zap.String("dir", dir))
		router.NoRoute(notFound)
		return
	}

	router.Static("/assets", filepath.Join(dir, "assets"))
	router.StaticFile("/favicon.ico", filepath.Join(dir, "favicon.ico"))
	router.NoRoute(func(c *gin.Context) {
		// Don't serve index.html for API routes
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			notFound(c)
			return
		}
		c.File(filepath.Join(dir, "index.html"))
	})
	logger.Info("serving static files", zap.String("dir", dir))
}
