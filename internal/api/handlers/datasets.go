package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio-backtest/internal/api/models"
	"portfolio-backtest/internal/data"
	"portfolio-backtest/internal/model"
)

// DatasetLoader loads the market data directory once per cache TTL.
type DatasetLoader struct {
	dir    string
	cache  *data.Cache
	logger *zap.Logger
	mu     sync.Mutex
}

func NewDatasetLoader(dir string, cache *data.Cache, logger *zap.Logger) *DatasetLoader {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatasetLoader{dir: dir, cache: cache, logger: logger}
}

func (l *DatasetLoader) Dir() string { return l.dir }

// Load returns the cached dataset or reads the directory.
func (l *DatasetLoader) Load() (*data.Dataset, error) {
	key := data.GenerateCacheKey("dataset", l.dir)
	if ds, ok := l.cache.Dataset(key); ok {
		return ds, nil
	}
	// One reader at a time; later callers find the cached copy.
	l.mu.Lock()
	defer l.mu.Unlock()
	if ds, ok := l.cache.Dataset(key); ok {
		return ds, nil
	}
	ds, err := data.LoadDir(l.dir, l.logger)
	if err != nil {
		return nil, err
	}
	l.cache.Set(key, ds)
	return ds, nil
}

// LoadAssets returns the dataset restricted to assets, or all of it when assets is empty.
func (l *DatasetLoader) LoadAssets(assets []string) (*data.Dataset, error) {
	ds, err := l.Load()
	if err != nil || len(assets) == 0 {
		return ds, err
	}
	ids := make([]model.AssetID, len(assets))
	for i, a := range assets {
		ids[i] = model.AssetID(a)
	}
	sub, err := ds.Filter(ids)
	if err != nil {
		return nil, fmt.Errorf("assets %v: %w", assets, err)
	}
	return sub, nil
}

// AssetsHandler handles dataset inspection requests
type AssetsHandler struct {
	loader *DatasetLoader
}

func NewAssetsHandler(loader *DatasetLoader) *AssetsHandler {
	return &AssetsHandler{loader: loader}
}

// ListAssets handles GET /api/v1/assets
func (h *AssetsHandler) ListAssets(c *gin.Context) {
	ds, err := h.loader.Load()
	if err != nil {
		dataError(c, err)
		return
	}
	stats := ds.Stats()
	assets := make([]models.AssetInfo, len(stats))
	for i, s := range stats {
		assets[i] = models.AssetInfo{
			ID:           string(s.Asset),
			Observations: s.Observations,
			First:        s.First,
			Last:         s.Last,
		}
	}
	first, last := ds.Bounds()
	c.JSON(http.StatusOK, gin.H{
		"assets": assets,
		"count":  len(assets),
		"first":  first,
		"last":   last,
		"months": len(ds.Months()),
	})
}
