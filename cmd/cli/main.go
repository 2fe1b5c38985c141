package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"portfolio-backtest/internal/analysis"
	"portfolio-backtest/internal/backtest"
	"portfolio-backtest/internal/config"
	"portfolio-backtest/internal/data"
	"portfolio-backtest/internal/strategy"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "backtest":
		cmdBacktest(os.Args[2:])
	case "compare":
		cmdCompare(os.Args[2:])
	case "assets":
		cmdAssets(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli backtest --data data/ --config examples/momentum.yaml --out results/momentum.csv")
	fmt.Println("  cli compare  --data data/ [--config examples/base.yaml] [--strategies equal,value]")
	fmt.Println("  cli assets   --data data/")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - data is a directory of per-asset CSV/JSON files (timestamp, price, market_cap[, volume_24h])")
	fmt.Println("  - backtest writes date,portfolio_value,assets per recorded month")
	fmt.Println("  - compare runs every strategy on the same data and ranks them by total return")
}

func cmdBacktest(args []string) {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	dataDir := fs.String("data", "", "Directory of per-asset files (overrides data_dir)")
	cfgPath := fs.String("config", "", "Path to YAML run config")
	strat := fs.String("strategy", "", "Optional: override weighting_strategy")
	policy := fs.String("missing-price", "", "Optional: drop or redistribute")
	outPath := fs.String("out", "", "Output CSV path (overrides output)")
	verbose := fs.Bool("v", false, "Log skipped months")
	_ = fs.Parse(args)

	if *cfgPath == "" && *strat == "" {
		fmt.Println("--config or --strategy is required")
		os.Exit(2)
	}

	cfg := loadConfig(*cfgPath, config.Config{
		DataDir:           *dataDir,
		WeightingStrategy: *strat,
		MissingPrice:      *policy,
		Output:            *outPath,
	})
	logger := newLogger(*verbose)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ds := loadData(cfg.DataDir, logger)
	res, err := run(ctx, ds, cfg, logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}

	s := analysis.Summarize(res)
	fmt.Printf("Strategy=%s  months=%d  skipped=%d\n", res.Strategy, s.Recorded, s.Skipped)
	fmt.Printf("Start=$%s  Final=$%s  Total=%.2f%%  CAGR=%.2f%%  MaxDD=%.2f%%\n",
		backtest.Money(res.StartingCapital), backtest.Money(res.FinalValue),
		100*s.TotalReturn, 100*s.CAGR, 100*s.MaxDrawdown)
	for _, sk := range res.Skipped {
		fmt.Printf("  skipped %s: %v\n", sk.Period.Format("2006-01"), sk.Reason)
	}

	out, err := writeResult(res, cfg.Output)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Wrote %d rows to %s\n", len(res.Records), out)
}

// writeResult writes the performance CSV to out, or results/<strategy>.csv.
func writeResult(res *backtest.Result, out string) (string, error) {
	if out == "" {
		out = filepath.Join("results", res.Strategy+".csv")
	}
	// ensure output dir exists
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	return out, backtest.WritePerformanceCSV(out, res.Records)
}

func cmdCompare(args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	dataDir := fs.String("data", "", "Directory of per-asset files (overrides data_dir)")
	cfgPath := fs.String("config", "", "Optional: YAML run config used as the base")
	names := fs.String("strategies", strings.Join(strategy.Names(), ","), "Comma-separated strategies")
	verbose := fs.Bool("v", false, "Log skipped months")
	_ = fs.Parse(args)

	logger := newLogger(*verbose)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	base := loadConfig(*cfgPath, config.Config{DataDir: *dataDir, WeightingStrategy: strategy.NameEqual})
	ds := loadData(base.DataDir, logger)

	byName := map[string]analysis.Summary{}
	for _, name := range splitList(*names) {
		cfg := base
		cfg.WeightingStrategy = name
		if err := cfg.Validate(); err != nil {
			panic(err)
		}
		res, err := run(ctx, ds, cfg, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			panic(err)
		}
		byName[name] = analysis.Summarize(res)
		if err != nil {
			break
		}
	}

	ranked := analysis.RankByTotalReturn(byName)
	fmt.Printf("%-4s %-14s %-12s %-9s %-9s %-9s %-7s %-7s\n", "rank", "strategy", "final$", "total%", "cagr%", "maxdd%", "ratio", "months")
	for _, r := range ranked {
		fmt.Printf(
			"%-4d %-14s %-12s %-9.2f %-9.2f %-9.2f %-7.2f %d/%d\n",
			r.Rank,
			r.Name,
			backtest.Money(r.FinalValue),
			100*r.TotalReturn,
			100*r.CAGR,
			100*r.MaxDrawdown,
			r.AnnualizedRatio,
			r.Recorded,
			r.Recorded+r.Skipped,
		)
	}
}

func cmdAssets(args []string) {
	fs := flag.NewFlagSet("assets", flag.ExitOnError)
	dataDir := fs.String("data", "data", "Directory of per-asset files")
	_ = fs.Parse(args)

	ds := loadData(*dataDir, zap.NewNop())
	first, last := ds.Bounds()
	fmt.Printf("%d observations, %d assets, %s .. %s, %d months\n",
		ds.Len(), len(ds.Assets()), first.Format("2006-01-02"), last.Format("2006-01-02"), len(ds.Months()))
	fmt.Printf("%-24s %-8s %-10s %-10s\n", "asset", "rows", "first", "last")
	for _, s := range ds.Stats() {
		fmt.Printf("%-24s %-8d %-10s %-10s\n", s.Asset, s.Observations, s.First.Format("2006-01-02"), s.Last.Format("2006-01-02"))
	}
}

// loadConfig reads path (if set) over the defaults and applies flag overrides.
func loadConfig(path string, flags config.Config) config.Config {
	cfg := config.Defaults()
	if path != "" {
		loaded, err := config.LoadUnchecked(path)
		if err != nil {
			panic(err)
		}
		cfg = config.Merge(cfg, *loaded)
	}
	cfg = config.Merge(cfg, flags)
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("invalid config: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

func loadData(dir string, logger *zap.Logger) *data.Dataset {
	ds, err := data.LoadDir(dir, logger)
	if err != nil {
		fmt.Printf("load %s: %v\n", dir, err)
		os.Exit(1)
	}
	return ds
}

// run executes one backtest. On interrupt it returns the months completed so
// far together with context.Canceled.
func run(ctx context.Context, ds *data.Dataset, cfg config.Config, logger *zap.Logger) (*backtest.Result, error) {
	engine, err := backtest.New(ds, cfg.WeightingStrategy, append(cfg.EngineOptions(), backtest.WithLogger(logger))...)
	if err != nil {
		return nil, err
	}
	res, err := engine.Run(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Printf("interrupted: keeping %d completed months of %s\n", len(res.Records), res.Strategy)
	}
	return res, err
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return l
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
