package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"portfolio-backtest/internal/model"

	"go.uber.org/zap"
)

// Column aliases accepted in input headers (lower-cased, trimmed).
var (
	assetColumns     = []string{"coin_name", "asset", "symbol", "name"}
	timestampColumns = []string{"timestamp", "date", "time"}
	priceColumns     = []string{"price", "close"}
	marketCapColumns = []string{"market_cap", "marketcap"}
	volumeColumns    = []string{"volume_24h", "volume"}
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LoadDir loads every .csv and .json file in dir into one Dataset.
// Files that cannot be parsed are skipped with a warning; if no file yields a
// valid row the error wraps model.ErrData.
func LoadDir(dir string, logger *zap.Logger) (*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read dir %s: %v", model.ErrData, dir, err)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".json":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return LoadFiles(paths, logger)
}

// LoadFiles loads an explicit list of CSV or JSON files.
func LoadFiles(paths []string, logger *zap.Logger) (*Dataset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var rows []model.Observation
	loaded := 0
	for _, p := range paths {
		obs, err := loadFile(p)
		if err != nil {
			logger.Warn("skipping input file", zap.String("path", p), zap.Error(err))
			continue
		}
		loaded++
		rows = append(rows, obs...)
	}
	if loaded == 0 {
		return nil, fmt.Errorf("%w: no readable input files among %d", model.ErrData, len(paths))
	}
	ds, err := New(rows)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded",
		zap.Int("files", loaded),
		zap.Int("rows", len(rows)),
		zap.Int("observations", ds.Len()),
		zap.Int("assets", len(ds.Assets())),
	)
	return ds, nil
}

func loadFile(path string) ([]model.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	base := filepath.Base(path)
	asset := model.AssetID(strings.TrimSuffix(base, filepath.Ext(base)))
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ReadJSON(f, asset)
	}
	return ReadCSV(f, asset)
}

// ReadCSV parses observations from r. When the header has no asset column,
// every row is attributed to defaultAsset. Rows with an unparseable timestamp
// are dropped; empty numeric cells become NaN and are dropped by New.
func ReadCSV(r io.Reader, defaultAsset model.AssetID) ([]model.Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	col := func(names []string) int {
		for _, n := range names {
			if i, ok := idx[n]; ok {
				return i
			}
		}
		return -1
	}
	tsCol, priceCol, mcCol := col(timestampColumns), col(priceColumns), col(marketCapColumns)
	assetCol, volCol := col(assetColumns), col(volumeColumns)
	if tsCol < 0 || priceCol < 0 || mcCol < 0 {
		return nil, fmt.Errorf("missing required column (need timestamp, price, market_cap), header=%v", header)
	}

	var out []model.Observation
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		field := func(i int) string {
			if i < 0 || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		ts, err := parseTime(field(tsCol))
		if err != nil {
			continue
		}
		o := model.Observation{
			Asset:     defaultAsset,
			Time:      ts,
			Price:     parseFloat(field(priceCol)),
			MarketCap: parseFloat(field(mcCol)),
		}
		if a := field(assetCol); a != "" {
			o.Asset = model.AssetID(a)
		}
		if v := parseFloat(field(volCol)); !math.IsNaN(v) && v >= 0 {
			o.Volume, o.HasVolume = v, true
		}
		out = append(out, o)
	}
	return out, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func parseFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// WriteCSV writes obs in the per-asset layout ReadCSV accepts. Volume is left
// empty for rows without one.
func WriteCSV(w io.Writer, obs []model.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "price", "market_cap", "volume_24h"}); err != nil {
		return err
	}
	for _, o := range obs {
		vol := ""
		if o.HasVolume {
			vol = strconv.FormatFloat(o.Volume, 'f', -1, 64)
		}
		rec := []string{
			o.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(o.Price, 'f', -1, 64),
			strconv.FormatFloat(o.MarketCap, 'f', -1, 64),
			vol,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDir writes one <asset>.csv per asset of ds into dir, creating it if needed.
func WriteDir(dir string, ds *Dataset) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	first, last := ds.Bounds()
	byAsset := map[model.AssetID][]model.Observation{}
	for _, o := range ds.Slice(first, last.AddDate(0, 0, 1)) {
		byAsset[o.Asset] = append(byAsset[o.Asset], o)
	}
	for _, a := range ds.Assets() {
		if err := writeAssetFile(filepath.Join(dir, string(a)+".csv"), byAsset[a]); err != nil {
			return fmt.Errorf("write %s: %w", a, err)
		}
	}
	return nil
}

func writeAssetFile(path string, obs []model.Observation) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteCSV(f, obs); err != nil {
		return err
	}
	return f.Close()
}
