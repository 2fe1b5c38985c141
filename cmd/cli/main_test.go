package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"portfolio-backtest/internal/config"
	"portfolio-backtest/internal/data"
)

func TestRun_InterruptKeepsPartialResult(t *testing.T) {
	ds, err := data.Synthetic(data.SyntheticParams{Assets: 4, Days: 120, Seed: 5})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	cfg.WeightingStrategy = "equal"
	cfg.PortfolioSize = 2

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := run(ctx, ds, cfg, zap.NewNop())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res == nil || res.Strategy != "equal" || res.FinalValue != cfg.StartingCapital {
		t.Fatalf("partial result = %+v", res)
	}

	out := filepath.Join(t.TempDir(), "nested", "equal.csv")
	path, err := writeResult(res, out)
	if err != nil {
		t.Fatalf("writeResult: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "date,portfolio_value,assets\n") {
		t.Errorf("csv = %q", b)
	}
}

func TestRun_CompletesWithoutInterrupt(t *testing.T) {
	ds, err := data.Synthetic(data.SyntheticParams{Assets: 4, Days: 120, Seed: 5})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	cfg.WeightingStrategy = "equal"
	cfg.PortfolioSize = 2

	res, err := run(context.Background(), ds, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Records) == 0 {
		t.Errorf("no records; skipped %v", res.Skipped)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" equal, ,value,")
	if len(got) != 2 || got[0] != "equal" || got[1] != "value" {
		t.Errorf("splitList = %q", got)
	}
}
