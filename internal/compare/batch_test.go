package compare

import (
	"math"
	"testing"
	"time"

	"github.com/danishbarkat/mrfcompare/internal/mrfmodel"
	"github.com/danishbarkat/mrfcompare/internal/store"
)

func entry(rate float64, class string) mrfmodel.RateRecord {
	return mrfmodel.RateRecord{NegotiatedRate: rate, HasRate: true, BillingClass: class, NegotiatedType: "negotiated"}
}

// Scenario 1 (spec §8): two sources each with CPT 99213, rule max.
func TestBatchScenario1MaxHigherInSource1(t *testing.T) {
	st := store.New()
	st.InsertOrMerge("A", "99213", "Office visit", []mrfmodel.RateRecord{entry(150.00, "professional")})
	st.InsertOrMerge("B", "99213", "Office visit", []mrfmodel.RateRecord{entry(120.00, "professional")})

	report, err := Batch(st, "A", "B", Options{Rule: "max"})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.HigherInSource1) != 1 {
		t.Fatalf("expected 1 higher_in_source1 entry, got %d", len(report.HigherInSource1))
	}
	got := report.HigherInSource1[0]
	if got.Difference != 30 {
		t.Fatalf("expected difference=30, got %v", got.Difference)
	}
	if math.Abs(got.PercentDifference-20.0) > 1e-9 {
		t.Fatalf("expected percent_difference~=20, got %v", got.PercentDifference)
	}
}

// Scenario 2 (spec §8): avg rule.
func TestBatchScenario2Avg(t *testing.T) {
	st := store.New()
	st.InsertOrMerge("A", "70450", "CT head", []mrfmodel.RateRecord{entry(100, "professional"), entry(120, "professional"), entry(90, "professional")})
	st.InsertOrMerge("B", "70450", "CT head", []mrfmodel.RateRecord{entry(100, "professional"), entry(100, "professional")})

	report, err := Batch(st, "A", "B", Options{Rule: "avg"})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.HigherInSource1) != 1 {
		t.Fatalf("expected 1 higher_in_source1 entry, got %d", len(report.HigherInSource1))
	}
	got := report.HigherInSource1[0]
	wantDiff := 310.0/3.0 - 100.0
	if math.Abs(got.Difference-wantDiff) > 1e-6 {
		t.Fatalf("expected diff~=%v, got %v", wantDiff, got.Difference)
	}
}

// Scenario 4 (spec §8): all_classes buckets the class present on both sides
// and surfaces classes present on only one side in the only_in lists instead
// of silently dropping them.
func TestBatchScenario4AllClassesSurfacesUnmatchedClasses(t *testing.T) {
	st := store.New()
	st.InsertOrMerge("A", "99213", "Office visit", []mrfmodel.RateRecord{
		entry(150, "professional"), entry(200, "institutional"),
	})
	st.InsertOrMerge("B", "99213", "Office visit", []mrfmodel.RateRecord{
		entry(120, "professional"), entry(200, "facility"),
	})

	report, err := Batch(st, "A", "B", Options{Rule: "all_classes"})
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalCompared != 1 {
		t.Fatalf("expected 1 matched code-class pair, got %d", report.TotalCompared)
	}
	if len(report.HigherInSource1) != 1 || report.HigherInSource1[0].Class1 != "professional" {
		t.Fatalf("expected the professional pair in higher_in_source1, got %+v", report.HigherInSource1)
	}
	if len(report.OnlyInSource1) != 1 || report.OnlyInSource1[0].Class != "institutional" {
		t.Fatalf("expected institutional class in only_in_source1, got %+v", report.OnlyInSource1)
	}
	if len(report.OnlyInSource2) != 1 || report.OnlyInSource2[0].Class != "facility" {
		t.Fatalf("expected facility class in only_in_source2, got %+v", report.OnlyInSource2)
	}
}

// Scenario 5 (spec §8): exclude_expired filtering.
func TestBatchScenario5ExcludeExpired(t *testing.T) {
	st := store.New()
	asOf := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	st.InsertOrMerge("A", "99213", "Office visit", []mrfmodel.RateRecord{
		{NegotiatedRate: 999, HasRate: true, BillingClass: "professional", NegotiatedType: "negotiated", ExpirationDate: "2024-12-31"},
		{NegotiatedRate: 150, HasRate: true, BillingClass: "professional", NegotiatedType: "negotiated", ExpirationDate: "2025-01-01"},
	})
	st.InsertOrMerge("B", "99213", "Office visit", []mrfmodel.RateRecord{
		{NegotiatedRate: 120, HasRate: true, BillingClass: "professional", NegotiatedType: "negotiated"},
	})

	report, err := Batch(st, "A", "B", Options{Rule: "max", ExcludeExpired: true, AsOf: asOf})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.HigherInSource1) != 1 || report.HigherInSource1[0].Rate1 != 150 {
		t.Fatalf("expected the expired 999 rate excluded, got %+v", report.HigherInSource1)
	}
}

// context mirrors all_classes: a context key present on only one side of a
// matched code surfaces in the only_in lists rather than being dropped.
func TestBatchContextSurfacesUnmatchedContextKeys(t *testing.T) {
	st := store.New()
	st.InsertOrMerge("A", "99213", "Office visit", []mrfmodel.RateRecord{
		entry(150, "professional"), entry(200, "institutional"),
	})
	st.InsertOrMerge("B", "99213", "Office visit", []mrfmodel.RateRecord{
		entry(120, "professional"),
	})

	report, err := Batch(st, "A", "B", Options{Rule: "context"})
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalCompared != 1 {
		t.Fatalf("expected 1 matched context pair, got %d", report.TotalCompared)
	}
	if len(report.OnlyInSource1) != 1 {
		t.Fatalf("expected 1 only_in_source1 context entry, got %+v", report.OnlyInSource1)
	}
	if len(report.OnlyInSource2) != 0 {
		t.Fatalf("expected 0 only_in_source2 context entries, got %+v", report.OnlyInSource2)
	}
}

func TestBatchOnlyInOneSource(t *testing.T) {
	st := store.New()
	st.InsertOrMerge("A", "11111", "Only in A", []mrfmodel.RateRecord{entry(10, "professional")})
	st.InsertOrMerge("B", "22222", "Only in B", []mrfmodel.RateRecord{entry(20, "professional")})

	report, err := Batch(st, "A", "B", Options{Rule: "max"})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.OnlyInSource1) != 1 || len(report.OnlyInSource2) != 1 {
		t.Fatalf("expected one only-in-each, got %+v / %+v", report.OnlyInSource1, report.OnlyInSource2)
	}
	if report.TotalCompared != 0 {
		t.Fatalf("expected 0 matched codes, got %d", report.TotalCompared)
	}
}

func TestBatchMissingSource(t *testing.T) {
	st := store.New()
	st.InsertOrMerge("A", "11111", "x", []mrfmodel.RateRecord{entry(10, "professional")})
	if _, err := Batch(st, "A", "nonexistent", Options{Rule: "max"}); err == nil {
		t.Fatal("expected MissingSource error")
	}
}

func TestBatchInvariantCountsSumToUnion(t *testing.T) {
	st := store.New()
	st.InsertOrMerge("A", "99213", "x", []mrfmodel.RateRecord{entry(150, "professional")})
	st.InsertOrMerge("A", "99214", "x", []mrfmodel.RateRecord{entry(80, "professional")})
	st.InsertOrMerge("B", "99213", "x", []mrfmodel.RateRecord{entry(120, "professional")})
	st.InsertOrMerge("B", "33333", "y", []mrfmodel.RateRecord{entry(50, "professional")})

	report, err := Batch(st, "A", "B", Options{Rule: "max"})
	if err != nil {
		t.Fatal(err)
	}
	bucketSum := len(report.HigherInSource1) + len(report.HigherInSource2) + len(report.Equal)
	if bucketSum != report.TotalCompared {
		t.Fatalf("bucket sum %d != total_compared %d", bucketSum, report.TotalCompared)
	}
	union := report.TotalCompared + len(report.OnlyInSource1) + len(report.OnlyInSource2)
	if union != 3 {
		t.Fatalf("expected union of 3 keys, got %d", union)
	}
}

func TestBatchIdempotent(t *testing.T) {
	st := store.New()
	st.InsertOrMerge("A", "99213", "x", []mrfmodel.RateRecord{entry(150, "professional")})
	st.InsertOrMerge("B", "99213", "x", []mrfmodel.RateRecord{entry(120, "professional")})

	r1, err := Batch(st, "A", "B", Options{Rule: "max"})
	if err != nil {
		t.Fatal(err)
	}
	r2, err := Batch(st, "A", "B", Options{Rule: "max"})
	if err != nil {
		t.Fatal(err)
	}
	if r1.HigherInSource1[0] != r2.HigherInSource1[0] {
		t.Fatalf("expected identical reports across runs")
	}
}
