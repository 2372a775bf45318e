package internaldefs

import (
	"strings"
	"testing"

	goExpense "github.com/MrEthical07/goExpense"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := map[goExpense.MetricID]bool{}
	names := map[string]bool{}
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate id %d", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate name %s", def.Name)
		}
		if !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %s must end in _total", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}
	for _, def := range HistogramDefs {
		seen[def.ID] = true
	}
	for id := goExpense.MetricID(0); int(id) < goExpense.MetricIDCount; id++ {
		if !seen[id] {
			t.Fatalf("metric id %d has no exported definition", id)
		}
	}
}

func TestBuckets(t *testing.T) {
	bounds := BucketBounds()
	if len(bounds) != 7 {
		t.Fatalf("expected 7 finite bounds, got %d", len(bounds))
	}
	if bounds[0] != 0.005 || bounds[len(bounds)-1] != 0.5 {
		t.Fatalf("unexpected bounds %v", bounds)
	}

	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("cumulative = %v, want %v", got, want)
	}
}
