package backtest

import (
	"bytes"
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"portfolio-backtest/internal/data"
	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/strategy"
	"portfolio-backtest/internal/universe"
)

func utc(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// price grows linearly from base by step per day since Jan 1 2021.
func price(base, step float64, t time.Time) float64 {
	days := t.Sub(utc(2021, 1, 1)).Hours() / 24
	return base * (1 + step*days)
}

type series struct {
	id         model.AssetID
	base, step float64
	mc         float64
}

func daily(from, to time.Time, assets ...series) []model.Observation {
	var rows []model.Observation
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		for _, s := range assets {
			rows = append(rows, model.Observation{
				Asset:     s.id,
				Time:      d,
				Price:     price(s.base, s.step, d),
				MarketCap: s.mc,
				Volume:    s.mc / 10,
				HasVolume: true,
			})
		}
	}
	return rows
}

var (
	assetA = series{"a", 10, 0.002, 300}
	assetB = series{"b", 20, -0.001, 200}
	assetC = series{"c", 5, 0.004, 100}
)

func mustDataset(t *testing.T, rows []model.Observation) *data.Dataset {
	t.Helper()
	ds, err := data.New(rows)
	if err != nil {
		t.Fatalf("data.New: %v", err)
	}
	return ds
}

func growth(s series, from, to time.Time) float64 {
	return price(s.base, s.step, to) / price(s.base, s.step, from)
}

func TestRun_EqualWeightEndToEnd(t *testing.T) {
	ds := mustDataset(t, daily(utc(2021, 1, 1), utc(2021, 3, 31), assetA, assetB, assetC))
	e, err := New(ds, strategy.NameEqual, WithStartingCapital(10000), WithPortfolioSize(2))
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Records) != 3 {
		t.Fatalf("records = %d, want 3 (skipped %v)", len(res.Records), res.Skipped)
	}
	for i, r := range res.Records {
		if !(r.Value > 0) {
			t.Errorf("record %d value = %v", i, r.Value)
		}
		if r.Assets != 2 {
			t.Errorf("record %d holds %d assets, want 2", i, r.Assets)
		}
		if i > 0 && !res.Records[i-1].Period.Before(r.Period) {
			t.Errorf("record %d date %v not after %v", i, r.Period, res.Records[i-1].Period)
		}
	}

	jan := 5000*growth(assetA, utc(2021, 1, 1), utc(2021, 1, 31)) +
		5000*growth(assetB, utc(2021, 1, 1), utc(2021, 1, 31))
	if math.Abs(res.Records[0].Value-jan) > 1e-6 {
		t.Errorf("January value = %v, want %v", res.Records[0].Value, jan)
	}
	if res.FinalValue != res.Records[2].Value {
		t.Errorf("FinalValue = %v, want last record %v", res.FinalValue, res.Records[2].Value)
	}
}

func TestRun_Idempotent(t *testing.T) {
	ds, err := data.Synthetic(data.SyntheticParams{Assets: 12, Start: utc(2020, 1, 1), Days: 400, Seed: 7})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range strategy.Names() {
		t.Run(name, func(t *testing.T) {
			run := func() *Result {
				e, err := New(ds, name, WithPortfolioSize(5), WithUniverseSize(10))
				if err != nil {
					t.Fatal(err)
				}
				res, err := e.Run(context.Background())
				if err != nil {
					t.Fatalf("Run: %v", err)
				}
				return res
			}
			a, b := run(), run()
			if len(a.Records) == 0 {
				t.Fatalf("no records; skipped %v", a.Skipped)
			}
			if !reflect.DeepEqual(a.Records, b.Records) {
				t.Error("records differ between identical runs")
			}
			for _, r := range a.Records {
				if !(r.Value > 0) || math.IsInf(r.Value, 0) {
					t.Errorf("%s value %v", r.Period.Format("2006-01"), r.Value)
				}
			}
		})
	}
}

func TestRun_SkipAndResume(t *testing.T) {
	rows := daily(utc(2021, 1, 1), utc(2021, 1, 31), assetA, assetB)
	rows = append(rows, daily(utc(2021, 3, 1), utc(2021, 3, 31), assetA, assetB)...)
	ds := mustDataset(t, rows)

	e, err := New(ds, strategy.NameEqual, WithPortfolioSize(2))
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}
	if len(res.Skipped) != 1 || !res.Skipped[0].Period.Equal(utc(2021, 2, 1)) {
		t.Fatalf("skipped = %v, want February", res.Skipped)
	}
	if !errors.Is(res.Skipped[0].Reason, model.ErrInsufficientData) {
		t.Errorf("skip reason = %v, want ErrInsufficientData", res.Skipped[0].Reason)
	}

	jan := res.Records[0].Value
	mar := jan/2*growth(assetA, utc(2021, 3, 1), utc(2021, 3, 31)) +
		jan/2*growth(assetB, utc(2021, 3, 1), utc(2021, 3, 31))
	if math.Abs(res.Records[1].Value-mar) > 1e-6 {
		t.Errorf("March value = %v, want %v (resumed from %v)", res.Records[1].Value, mar, jan)
	}
}

func TestStep_ErrorKeepsState(t *testing.T) {
	ds := mustDataset(t, daily(utc(2021, 1, 1), utc(2021, 1, 31), assetA))
	e, err := New(ds, strategy.NameEqual)
	if err != nil {
		t.Fatal(err)
	}
	in := model.PortfolioState{Value: 1234.5}
	out, rec, err := e.Step(in, model.NewPeriod(utc(2021, 6, 1)))
	if !errors.Is(err, model.ErrNoCandidates) {
		t.Fatalf("err = %v, want ErrNoCandidates", err)
	}
	if rec != nil || out != in {
		t.Errorf("Step on error returned %v, %v", out, rec)
	}
}

// fixed always allocates the same weights, whatever the candidates.
type fixed struct {
	alloc model.Allocation
	exit  strategy.ExitPrice
	err   error
}

func (f *fixed) Name() string { return "fixed" }

func (f *fixed) Policy() strategy.Policy {
	return strategy.Policy{
		Universe: universe.TopByMarketCap{Source: universe.MonthFirst},
		Source:   universe.MonthFirst,
		Window:   strategy.WindowMonth,
		Entry:    strategy.EntryMonthFirst,
		Exit:     f.exit,
	}
}

func (f *fixed) Weights(strategy.Context) (model.Allocation, error) { return f.alloc, f.err }

func TestStep_MissingEntryPrice(t *testing.T) {
	ds := mustDataset(t, daily(utc(2021, 1, 1), utc(2021, 1, 31), assetA))
	jan := model.NewPeriod(utc(2021, 1, 1))
	want := growth(assetA, utc(2021, 1, 1), utc(2021, 1, 31))

	testCases := []struct {
		policy MissingPricePolicy
		want   float64
	}{
		{PolicyDrop, 5000 * want},
		{PolicyRedistribute, 10000 * want},
	}
	for _, tc := range testCases {
		t.Run(string(tc.policy), func(t *testing.T) {
			e, err := New(ds, "", WithMissingPricePolicy(tc.policy),
				WithStrategy(&fixed{alloc: model.Allocation{"a": 0.5, "ghost": 0.5}}))
			if err != nil {
				t.Fatal(err)
			}
			out, rec, err := e.Step(model.PortfolioState{Value: 10000}, jan)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(out.Value-tc.want) > 1e-6 || rec.Assets != 1 {
				t.Errorf("value = %v assets = %d, want %v and 1", out.Value, rec.Assets, tc.want)
			}
		})
	}
}

func TestStep_MissingExitPrice(t *testing.T) {
	rows := daily(utc(2021, 1, 1), utc(2021, 1, 31), assetA)
	rows = append(rows, daily(utc(2021, 1, 1), utc(2021, 1, 20), assetB)...)
	ds := mustDataset(t, rows)
	jan := model.NewPeriod(utc(2021, 1, 1))
	ga := growth(assetA, utc(2021, 1, 1), utc(2021, 1, 31))

	testCases := []struct {
		policy MissingPricePolicy
		want   float64
	}{
		{PolicyDrop, 5000 * ga},
		{PolicyRedistribute, 5000*ga + 5000},
	}
	for _, tc := range testCases {
		t.Run(string(tc.policy), func(t *testing.T) {
			e, err := New(ds, "", WithMissingPricePolicy(tc.policy),
				WithStrategy(&fixed{alloc: model.Allocation{"a": 0.5, "b": 0.5}, exit: strategy.ExitMonthEndDay}))
			if err != nil {
				t.Fatal(err)
			}
			out, _, err := e.Step(model.PortfolioState{Value: 10000}, jan)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(out.Value-tc.want) > 1e-6 {
				t.Errorf("value = %v, want %v", out.Value, tc.want)
			}
		})
	}
}

func TestStep_EmptyHoldingIsSkipped(t *testing.T) {
	ds := mustDataset(t, daily(utc(2021, 1, 1), utc(2021, 1, 31), assetA))
	e, err := New(ds, "", WithStrategy(&fixed{alloc: model.Allocation{"ghost": 1}}))
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = e.Step(model.PortfolioState{Value: 10000}, model.NewPeriod(utc(2021, 1, 1)))
	if !errors.Is(err, model.ErrMissingPrice) {
		t.Fatalf("err = %v, want ErrMissingPrice", err)
	}
}

func TestRun_FatalStrategyErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	ds := mustDataset(t, daily(utc(2021, 1, 1), utc(2021, 2, 28), assetA))
	e, err := New(ds, "", WithStrategy(&fixed{err: boom}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ds := mustDataset(t, daily(utc(2021, 1, 1), utc(2021, 3, 31), assetA, assetB))
	e, err := New(ds, strategy.NameEqual)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := e.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(res.Records) != 0 || res.FinalValue != DefaultStartingCapital {
		t.Errorf("cancelled run produced %+v", res)
	}
}

func TestNew_Validation(t *testing.T) {
	ds := mustDataset(t, daily(utc(2021, 1, 1), utc(2021, 1, 2), assetA))
	if _, err := New(nil, strategy.NameEqual); !errors.Is(err, model.ErrData) {
		t.Errorf("nil dataset: err = %v, want ErrData", err)
	}
	if _, err := New(ds, strategy.NameEqual, WithStartingCapital(0)); err == nil {
		t.Error("zero capital: expected error")
	}
	if _, err := New(ds, strategy.NameEqual, WithMissingPricePolicy("borrow")); err == nil {
		t.Error("unknown policy: expected error")
	}
	if _, err := New(ds, "lottery"); err == nil {
		t.Error("unknown strategy: expected error")
	}
}

func TestWritePerformance(t *testing.T) {
	var buf bytes.Buffer
	err := WritePerformance(&buf, []model.PerformanceRecord{
		{Period: utc(2021, 1, 1), Value: 10123.456, Assets: 2},
		{Period: utc(2021, 3, 1), Value: 9999.994, Assets: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "date,portfolio_value,assets\n2021-01-01,10123.46,2\n2021-03-01,9999.99,3\n"
	if buf.String() != want {
		t.Errorf("csv =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestRun_MomentumPricing(t *testing.T) {
	// Data stops mid-March, so March has no month-end price.
	ds := mustDataset(t, daily(utc(2021, 1, 1), utc(2021, 3, 15), assetA, assetB, assetC))
	e, err := New(ds, strategy.NameMomentum, WithPortfolioSize(1), WithLookbackDays(20))
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Records) != 1 || !res.Records[0].Period.Equal(utc(2021, 2, 1)) {
		t.Fatalf("records = %+v, want February only (skipped %v)", res.Records, res.Skipped)
	}

	// c has the steepest trailing return; bought on Feb 1, sold on Feb 28.
	want := 10000 * growth(assetC, utc(2021, 2, 1), utc(2021, 2, 28))
	if got := res.Records[0].Value; math.Abs(got-want) > 1e-6 {
		t.Errorf("February value = %v, want %v", got, want)
	}
	if res.Records[0].Assets != 1 {
		t.Errorf("February holds %d assets, want 1", res.Records[0].Assets)
	}

	if len(res.Skipped) != 2 {
		t.Fatalf("skipped = %v, want January and March", res.Skipped)
	}
	if !errors.Is(res.Skipped[0].Reason, model.ErrNoCandidates) {
		t.Errorf("January reason = %v, want ErrNoCandidates", res.Skipped[0].Reason)
	}
	if !errors.Is(res.Skipped[1].Reason, model.ErrMissingPrice) {
		t.Errorf("March reason = %v, want ErrMissingPrice", res.Skipped[1].Reason)
	}
	if res.FinalValue != res.Records[0].Value {
		t.Errorf("FinalValue = %v, want %v", res.FinalValue, res.Records[0].Value)
	}
}

func TestRun_MeanVariancePricing(t *testing.T) {
	ds := mustDataset(t, daily(utc(2021, 1, 1), utc(2021, 2, 28), assetA, assetB))
	e, err := New(ds, strategy.NameMeanVariance, WithPortfolioSize(2), WithLookbackDays(20))
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Skipped) != 1 || !errors.Is(res.Skipped[0].Reason, model.ErrInsufficientData) {
		t.Fatalf("skipped = %v, want January without a lookback window", res.Skipped)
	}
	if len(res.Records) != 1 {
		t.Fatalf("records = %+v, want February only", res.Records)
	}

	// b only adds correlated downside, so the optimum is all of a, bought at
	// the last price of the window (Jan 31) and sold on Feb 28.
	want := 10000 * growth(assetA, utc(2021, 1, 31), utc(2021, 2, 28))
	if got := res.Records[0].Value; math.Abs(got-want) > 1e-6 {
		t.Errorf("February value = %v, want %v", got, want)
	}
	if res.Records[0].Assets != 1 {
		t.Errorf("February holds %d assets, want 1", res.Records[0].Assets)
	}
}

func TestRun_ValueScoringAndMissingFirstDay(t *testing.T) {
	rows := daily(utc(2021, 1, 1), utc(2021, 1, 31), assetA, assetB, assetC)
	rows = append(rows, daily(utc(2021, 2, 2), utc(2021, 2, 28), assetA, assetB, assetC)...)
	for i := range rows {
		switch rows[i].Asset {
		case "b":
			rows[i].Volume = rows[i].MarketCap // score 1
		case "c":
			rows[i].Volume = rows[i].MarketCap * 100 // cheapest, but outside the top 2 by cap
		}
	}
	ds := mustDataset(t, rows)
	e, err := New(ds, strategy.NameValue, WithPortfolioSize(1), WithUniverseSize(2))
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("records = %+v, want January only (skipped %v)", res.Records, res.Skipped)
	}
	want := 10000 * growth(assetB, utc(2021, 1, 1), utc(2021, 1, 31))
	if got := res.Records[0].Value; math.Abs(got-want) > 1e-6 {
		t.Errorf("January value = %v, want %v", got, want)
	}

	// No observation on Feb 1 means no universe for February.
	if len(res.Skipped) != 1 || !res.Skipped[0].Period.Equal(utc(2021, 2, 1)) ||
		!errors.Is(res.Skipped[0].Reason, model.ErrNoCandidates) {
		t.Errorf("skipped = %v, want February with ErrNoCandidates", res.Skipped)
	}
	if math.Abs(res.FinalValue-want) > 1e-6 {
		t.Errorf("FinalValue = %v, want January value %v", res.FinalValue, want)
	}
}

// cancelling cancels the run after weighting its first period.
type cancelling struct {
	strategy.Strategy
	cancel context.CancelFunc
}

func (c *cancelling) Weights(ctx strategy.Context) (model.Allocation, error) {
	c.cancel()
	return c.Strategy.Weights(ctx)
}

func TestRun_CancelledKeepsCompletedMonths(t *testing.T) {
	ds := mustDataset(t, daily(utc(2021, 1, 1), utc(2021, 3, 31), assetA, assetB))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e, err := New(ds, "", WithStrategy(&cancelling{Strategy: &strategy.Equal{K: 2}, cancel: cancel}))
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("records = %+v, want January only", res.Records)
	}
	if res.FinalValue != res.Records[0].Value {
		t.Errorf("FinalValue = %v, want completed January value %v", res.FinalValue, res.Records[0].Value)
	}
}
