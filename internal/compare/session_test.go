package compare

import (
	"strings"
	"testing"

	"github.com/danishbarkat/mrfcompare/internal/mrfmodel"
	"github.com/danishbarkat/mrfcompare/internal/store"
)

// Scenario 3 (spec §8): incremental max session across two parts flips buckets.
func TestSessionScenario3IncrementalMaxFlipsBucket(t *testing.T) {
	st := store.New()
	st.InsertOrMerge("baseline", "99213", "Office visit", []mrfmodel.RateRecord{
		{NegotiatedRate: 100, HasRate: true, BillingClass: "professional"},
	})
	mgr := NewManager(st)

	sess, err := mgr.BeginOrResume("", "source1", "baseline")
	if err != nil {
		t.Fatal(err)
	}

	snap1, err := mgr.ProcessPart(sess.ID, strings.NewReader(`{"in_network":[{"billing_code_type":"CPT","billing_code":"99213","description":"d","negotiated_rates":[{"negotiated_prices":[{"negotiated_type":"negotiated","negotiated_rate":90,"billing_class":"professional"}]}]}]}`), "part1.json", Options{Rule: "max"})
	if err != nil {
		t.Fatal(err)
	}
	if snap1.HigherInSource2Count != 1 || snap1.TotalHigherInSource2Amount != 10 {
		t.Fatalf("after part1: expected higher_in_source2_count=1 amount=10, got %+v", snap1)
	}
	if snap1.HigherInSource1Count != 0 {
		t.Fatalf("after part1: expected higher_in_source1_count=0, got %d", snap1.HigherInSource1Count)
	}

	snap2, err := mgr.ProcessPart(sess.ID, strings.NewReader(`{"in_network":[{"billing_code_type":"CPT","billing_code":"99213","description":"d","negotiated_rates":[{"negotiated_prices":[{"negotiated_type":"negotiated","negotiated_rate":110,"billing_class":"professional"}]}]}]}`), "part2.json", Options{Rule: "max"})
	if err != nil {
		t.Fatal(err)
	}
	if snap2.HigherInSource1Count != 1 || snap2.TotalHigherInSource1Amount != 10 {
		t.Fatalf("after part2: expected higher_in_source1_count=1 amount=10, got %+v", snap2)
	}
	if snap2.HigherInSource2Count != 0 || snap2.TotalHigherInSource2Amount != 0 {
		t.Fatalf("after part2: expected higher_in_source2_count=0 amount=0, got %+v", snap2)
	}
}

func TestSessionRejectsMismatchedParams(t *testing.T) {
	st := store.New()
	st.InsertOrMerge("baseline", "99213", "d", []mrfmodel.RateRecord{{NegotiatedRate: 100, HasRate: true, BillingClass: "professional"}})
	mgr := NewManager(st)
	sess, err := mgr.BeginOrResume("", "source1", "baseline")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.ProcessPart(sess.ID, strings.NewReader(`{"in_network":[]}`), "p1.json", Options{Rule: "max"}); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.ProcessPart(sess.ID, strings.NewReader(`{"in_network":[]}`), "p2.json", Options{Rule: "min"}); err == nil {
		t.Fatal("expected SessionParamMismatch for a changed rule")
	}
}

func TestSessionBeginOrResumeRejectsBaselineChange(t *testing.T) {
	st := store.New()
	st.InsertOrMerge("baseline1", "99213", "d", []mrfmodel.RateRecord{{NegotiatedRate: 100, HasRate: true}})
	st.InsertOrMerge("baseline2", "99213", "d", []mrfmodel.RateRecord{{NegotiatedRate: 100, HasRate: true}})
	mgr := NewManager(st)
	sess, err := mgr.BeginOrResume("fixed-id", "source1", "baseline1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.BeginOrResume(sess.ID, "source1", "baseline2"); err == nil {
		t.Fatal("expected SessionBaselineChanged")
	}
}

func TestSessionStatusUnknownID(t *testing.T) {
	mgr := NewManager(store.New())
	if _, err := mgr.Status("missing"); err == nil {
		t.Fatal("expected SessionNotFound")
	}
}
