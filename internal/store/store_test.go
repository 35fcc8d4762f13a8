package store

import (
	"testing"

	"github.com/danishbarkat/mrfcompare/internal/mrferrors"
	"github.com/danishbarkat/mrfcompare/internal/mrfmodel"
)

func TestInsertOrMergeAppendsRatesAndUpgradesDescription(t *testing.T) {
	s := New()
	s.InsertOrMerge("a", "99213", "No description", []mrfmodel.RateRecord{{NegotiatedRate: 100}})
	s.InsertOrMerge("a", "99213", "Office visit", []mrfmodel.RateRecord{{NegotiatedRate: 120}})
	s.InsertOrMerge("a", "99213", "", []mrfmodel.RateRecord{{NegotiatedRate: 130}})

	src, ok := s.Lookup("a")
	if !ok {
		t.Fatal("expected source a to exist")
	}
	entry := src["99213"]
	if entry.Description != "Office visit" {
		t.Fatalf("expected description to stay upgraded, got %q", entry.Description)
	}
	if len(entry.Rates) != 3 {
		t.Fatalf("expected rates to append without dedup, got %d", len(entry.Rates))
	}
}

func TestMustLookupMissingSource(t *testing.T) {
	s := New()
	_, err := s.MustLookup("nope")
	var target *mrferrors.Error
	if !okAs(err, &target) {
		t.Fatalf("expected *mrferrors.Error, got %v", err)
	}
	if target.Kind != mrferrors.KindMissingSource {
		t.Fatalf("expected KindMissingSource, got %v", target.Kind)
	}
}

func okAs(err error, target **mrferrors.Error) bool {
	e, ok := err.(*mrferrors.Error)
	if !ok {
		return false
	}
	*target = e
	return true
}

func TestReplaceInFullReplacesWholeSource(t *testing.T) {
	s := New()
	s.InsertOrMerge("a", "99213", "x", []mrfmodel.RateRecord{{NegotiatedRate: 1}})
	s.ReplaceInFull("a", mrfmodel.Source{"70450": &mrfmodel.CptEntry{Description: "y"}})
	src, _ := s.Lookup("a")
	if _, ok := src["99213"]; ok {
		t.Fatal("expected 99213 to be gone after replace-in-full")
	}
	if _, ok := src["70450"]; !ok {
		t.Fatal("expected 70450 to be present")
	}
}

func TestListNamesAndDelete(t *testing.T) {
	s := New()
	s.InsertOrMerge("a", "1", "", nil)
	s.InsertOrMerge("b", "1", "", nil)
	names := s.ListNames()
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d", len(names))
	}
	s.Delete("a")
	if _, ok := s.Lookup("a"); ok {
		t.Fatal("expected a to be deleted")
	}
}
