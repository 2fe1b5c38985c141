package backtest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"portfolio-backtest/internal/model"
)

const dateLayout = "2006-01-02"

func WritePerformanceCSV(path string, records []model.PerformanceRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WritePerformance(f, records); err != nil {
		return err
	}
	return f.Close()
}

// WritePerformance writes records as date,portfolio_value,assets with values
// rounded to cents.
func WritePerformance(out io.Writer, records []model.PerformanceRecord) error {
	w := csv.NewWriter(out)

	if err := w.Write([]string{"date", "portfolio_value", "assets"}); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Period.Format(dateLayout),
			Money(r.Value),
			strconv.Itoa(r.Assets),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// Money renders a value rounded half away from zero to two decimals.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
