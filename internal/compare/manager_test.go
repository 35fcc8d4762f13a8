package compare

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danishbarkat/mrfcompare/internal/mrfmodel"
	"github.com/danishbarkat/mrfcompare/internal/store"
)

func TestManagerFinalizeReplaysPartsAgainstBaseline(t *testing.T) {
	st := store.New()
	st.InsertOrMerge("baseline", "99213", "Office visit", []mrfmodel.RateRecord{
		{NegotiatedRate: 100, HasRate: true, BillingClass: "professional"},
	})
	mgr := NewManager(st)

	sess, err := mgr.BeginOrResume("", "source1", "baseline")
	if err != nil {
		t.Fatal(err)
	}

	partPath := filepath.Join(t.TempDir(), "part1.json")
	part1 := `{"in_network":[{"billing_code_type":"CPT","billing_code":"99213","description":"d","negotiated_rates":[{"negotiated_prices":[{"negotiated_type":"negotiated","negotiated_rate":150,"billing_class":"professional"}]}]}]}`
	if err := os.WriteFile(partPath, []byte(part1), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.ProcessPart(sess.ID, strings.NewReader(part1), partPath, Options{Rule: "max"}); err != nil {
		t.Fatal(err)
	}

	report, err := mgr.Finalize(sess.ID, "baseline")
	if err != nil {
		t.Fatal(err)
	}
	if len(report.HigherInSource1) != 1 || report.HigherInSource1[0].Difference != 50 {
		t.Fatalf("expected replayed source1 (150) vs baseline (100) to land higher_in_source1 diff=50, got %+v", report.HigherInSource1)
	}
}

func TestManagerFinalizeRejectsBaselineMismatch(t *testing.T) {
	st := store.New()
	st.InsertOrMerge("baseline1", "99213", "d", []mrfmodel.RateRecord{{NegotiatedRate: 100, HasRate: true}})
	st.InsertOrMerge("baseline2", "99213", "d", []mrfmodel.RateRecord{{NegotiatedRate: 100, HasRate: true}})
	mgr := NewManager(st)
	sess, err := mgr.BeginOrResume("", "source1", "baseline1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Finalize(sess.ID, "baseline2"); err == nil {
		t.Fatal("expected SessionBaselineChanged")
	}
}
