package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"portfolio-backtest/internal/api"
	"portfolio-backtest/internal/config"
	"portfolio-backtest/internal/data"
)

func main() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	base := config.Defaults()
	if cfg.DefaultConfig != "" {
		loaded, err := config.LoadUnchecked(cfg.DefaultConfig)
		if err != nil {
			logger.Fatal("default run config", zap.String("path", cfg.DefaultConfig), zap.Error(err))
		}
		base = config.Merge(base, *loaded)
	}

	cache, err := data.NewCache(256, cfg.CacheTTL)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	defer cache.Close()

	router := api.NewRouter(api.Deps{
		Server: cfg,
		Base:   base,
		Cache:  cache,
		Logger: logger,
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		logger.Info("http listening", zap.String("port", cfg.Port), zap.String("data_dir", cfg.DataDir))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http", zap.Error(err))
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = server.Shutdown(ctxShut)
	logger.Info("shutdown complete")
}
