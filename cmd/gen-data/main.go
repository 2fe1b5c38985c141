package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"portfolio-backtest/internal/data"
)

// gen-data writes a deterministic synthetic market as one CSV per asset, in
// the layout the cli and api load from a data directory.
func main() {
	var (
		outputDir = flag.String("output", "./data", "Directory to write <asset>.csv files into")
		assets    = flag.Int("assets", 50, "Number of assets")
		days      = flag.Int("days", 3*365, "Number of daily observations per asset")
		start     = flag.String("start", "2021-01-01", "First observation date (YYYY-MM-DD)")
		seed      = flag.Int64("seed", 1, "Random seed")
		drift     = flag.Float64("drift", 0.0005, "Mean daily log return")
		vol       = flag.Float64("vol", 0.03, "Std dev of daily log returns")
	)
	flag.Parse()

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		log.Fatalf("Invalid --start: %v", err)
	}

	ds, err := data.Synthetic(data.SyntheticParams{
		Assets:     *assets,
		Start:      startDate,
		Days:       *days,
		Seed:       *seed,
		DailyDrift: *drift,
		DailyVol:   *vol,
	})
	if err != nil {
		log.Fatalf("Failed to generate market: %v", err)
	}

	if err := data.WriteDir(*outputDir, ds); err != nil {
		log.Fatalf("Failed to write market: %v", err)
	}

	first, last := ds.Bounds()
	fmt.Printf("Wrote %d assets (%d rows, %s .. %s) to %s\n",
		len(ds.Assets()), ds.Len(), first.Format("2006-01-02"), last.Format("2006-01-02"), *outputDir)
}
