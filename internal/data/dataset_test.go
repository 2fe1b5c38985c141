package data

import (
	"errors"
	"math"
	"testing"
	"time"

	"portfolio-backtest/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func obs(asset string, t time.Time, price, mc float64) model.Observation {
	return model.Observation{Asset: model.AssetID(asset), Time: t, Price: price, MarketCap: mc}
}

func TestNew_DropsInvalidRows(t *testing.T) {
	ds, err := New([]model.Observation{
		obs("a", day(2021, 1, 2), 10, 100),
		obs("a", day(2021, 1, 1), 9, 90),
		obs("b", day(2021, 1, 1), math.NaN(), 100),
		obs("b", day(2021, 1, 2), 5, -1),
		obs("c", day(2021, 1, 1), 0, 10),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ds.Len())
	}
	if got := ds.Assets(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Assets = %v, want [a]", got)
	}
	first, last := ds.Bounds()
	if !first.Equal(day(2021, 1, 1)) || !last.Equal(day(2021, 1, 2)) {
		t.Errorf("Bounds = %v..%v", first, last)
	}
}

func TestNew_NoValidRows(t *testing.T) {
	_, err := New([]model.Observation{obs("a", day(2021, 1, 1), -1, 1)})
	if !errors.Is(err, model.ErrData) {
		t.Fatalf("err = %v, want ErrData", err)
	}
}

func TestSliceAndSnapshot(t *testing.T) {
	ds, err := New([]model.Observation{
		obs("a", day(2021, 1, 1), 1, 10),
		obs("b", day(2021, 1, 1), 2, 20),
		obs("a", day(2021, 1, 2).Add(12*time.Hour), 3, 30),
		obs("a", day(2021, 1, 2).Add(23*time.Hour), 4, 40),
		obs("a", day(2021, 1, 3), 5, 50),
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := ds.Slice(day(2021, 1, 1), day(2021, 1, 3)); len(got) != 4 {
		t.Errorf("Slice half-open len = %d, want 4", len(got))
	}
	if got := ds.Slice(day(2021, 1, 5), day(2021, 1, 9)); len(got) != 0 {
		t.Errorf("Slice past end len = %d, want 0", len(got))
	}

	snap := ds.Snapshot(day(2021, 1, 2))
	if len(snap) != 1 || snap["a"].Price != 4 {
		t.Errorf("Snapshot = %+v, want latest observation of a on Jan 2", snap)
	}
	if snap := ds.Snapshot(day(2021, 1, 4)); len(snap) != 0 {
		t.Errorf("Snapshot of empty day = %+v", snap)
	}
}

func TestMonths(t *testing.T) {
	testCases := []struct {
		name  string
		first time.Time
		last  time.Time
		want  []time.Time
	}{
		{
			name:  "starts on the first",
			first: day(2021, 1, 1),
			last:  day(2021, 3, 31),
			want:  []time.Time{day(2021, 1, 1), day(2021, 2, 1), day(2021, 3, 1)},
		},
		{
			name:  "starts mid month",
			first: day(2021, 1, 15),
			last:  day(2021, 3, 1),
			want:  []time.Time{day(2021, 2, 1), day(2021, 3, 1)},
		},
		{
			name:  "intraday first timestamp on the first",
			first: day(2021, 1, 1).Add(23 * time.Hour),
			last:  day(2021, 1, 20),
			want:  []time.Time{day(2021, 1, 1)},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ds, err := New([]model.Observation{obs("a", tc.first, 1, 1), obs("a", tc.last, 1, 1)})
			if err != nil {
				t.Fatal(err)
			}
			got := ds.Months()
			if len(got) != len(tc.want) {
				t.Fatalf("Months() = %v, want %v", got, tc.want)
			}
			for i := range got {
				if !got[i].Start.Equal(tc.want[i]) {
					t.Errorf("Months()[%d] = %v, want %v", i, got[i].Start, tc.want[i])
				}
				if !got[i].End.Equal(tc.want[i].AddDate(0, 1, 0)) {
					t.Errorf("Months()[%d].End = %v", i, got[i].End)
				}
			}
		})
	}
}

func TestFirstLastByAsset(t *testing.T) {
	rows := []model.Observation{
		obs("a", day(2021, 1, 1), 1, 1),
		obs("b", day(2021, 1, 1), 7, 1),
		obs("a", day(2021, 1, 2), 2, 1),
	}
	first, last := FirstByAsset(rows), LastByAsset(rows)
	if first["a"].Price != 1 || last["a"].Price != 2 {
		t.Errorf("a first/last = %v/%v, want 1/2", first["a"].Price, last["a"].Price)
	}
	if first["b"].Price != 7 || last["b"].Price != 7 {
		t.Errorf("b first/last = %v/%v, want 7/7", first["b"].Price, last["b"].Price)
	}
}

func TestSynthetic_Deterministic(t *testing.T) {
	p := SyntheticParams{Assets: 3, Days: 40, Seed: 7}
	a, err := Synthetic(p)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Synthetic(p)
	if err != nil {
		t.Fatal(err)
	}
	if a.Len() != 120 || b.Len() != 120 {
		t.Fatalf("Len = %d/%d, want 120", a.Len(), b.Len())
	}
	for i := range a.obs {
		if a.obs[i] != b.obs[i] {
			t.Fatalf("observation %d differs: %+v vs %+v", i, a.obs[i], b.obs[i])
		}
	}
}

func TestFilter(t *testing.T) {
	ds, err := New([]model.Observation{
		obs("a", day(2021, 1, 1), 1, 10),
		obs("b", day(2021, 1, 1), 2, 20),
		obs("c", day(2021, 1, 2), 3, 30),
	})
	if err != nil {
		t.Fatal(err)
	}
	sub, err := ds.Filter([]model.AssetID{"c", "a", "zzz"})
	if err != nil {
		t.Fatal(err)
	}
	if got := sub.Assets(); len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("Assets = %v, want [a c]", got)
	}
	if _, err := ds.Filter([]model.AssetID{"zzz"}); !errors.Is(err, model.ErrData) {
		t.Errorf("err = %v, want ErrData", err)
	}
}

func TestStats(t *testing.T) {
	ds, err := New([]model.Observation{
		obs("b", day(2021, 1, 3), 1, 10),
		obs("a", day(2021, 1, 1), 1, 10),
		obs("a", day(2021, 1, 5), 1, 10),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := ds.Stats()
	if len(got) != 2 || got[0].Asset != "a" || got[0].Observations != 2 ||
		!got[0].First.Equal(day(2021, 1, 1)) || !got[0].Last.Equal(day(2021, 1, 5)) {
		t.Errorf("Stats = %+v", got)
	}
}
