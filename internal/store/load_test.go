package store

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "part.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromPartsIngestsInNetworkDocument(t *testing.T) {
	doc := `{"in_network":[
		{"billing_code_type":"CPT","billing_code":"99213","description":"Office visit",
		 "negotiated_rates":[{"negotiated_prices":[{"negotiated_rate":150,"billing_class":"professional"}]}]}
	]}`
	path := writeTempFile(t, doc)

	s := New()
	report, idx, err := s.LoadFromParts("source1", []string{path})
	if err != nil {
		t.Fatal(err)
	}
	if idx != nil {
		t.Fatalf("expected an in-network load, got an index report: %+v", idx)
	}
	if report.CodeCount != 1 || report.ItemCount != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	src, ok := s.Lookup("source1")
	if !ok {
		t.Fatal("source1 not loaded")
	}
	entry, ok := src["99213"]
	if !ok || len(entry.Rates) != 1 || entry.Rates[0].NegotiatedRate != 150 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestLoadFromPartsWithProgressReportsItemCount(t *testing.T) {
	doc := `{"in_network":[
		{"billing_code_type":"CPT","billing_code":"99213","description":"Office visit",
		 "negotiated_rates":[{"negotiated_prices":[{"negotiated_rate":150,"billing_class":"professional"}]}]},
		{"billing_code_type":"CPT","billing_code":"99214","description":"Office visit, extended",
		 "negotiated_rates":[{"negotiated_prices":[{"negotiated_rate":200,"billing_class":"professional"}]}]}
	]}`
	path := writeTempFile(t, doc)

	s := New()
	var seen []int
	report, idx, err := s.LoadFromPartsWithProgress("source1", []string{path}, func(n int) {
		seen = append(seen, n)
	})
	if err != nil {
		t.Fatal(err)
	}
	if idx != nil {
		t.Fatalf("expected an in-network load, got an index report: %+v", idx)
	}
	if report.ItemCount != 2 {
		t.Fatalf("unexpected item count: %+v", report)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("expected onItem called with 1 then 2, got %v", seen)
	}
}

func TestLoadFromPartsReturnsIndexURLs(t *testing.T) {
	doc := `{"reporting_structure":[
		{"in_network_files":[{"location":"https://example.com/a.json.gz","description":"a"}]}
	]}`
	path := writeTempFile(t, doc)

	s := New()
	report, idx, err := s.LoadFromParts("source1", []string{path})
	if err != nil {
		t.Fatal(err)
	}
	if report != nil {
		t.Fatalf("expected an index load, got an in-network report: %+v", report)
	}
	if len(idx.SourceURLs) != 1 || idx.SourceURLs[0] != "https://example.com/a.json.gz" {
		t.Fatalf("unexpected index report: %+v", idx)
	}
	if _, ok := s.Lookup("source1"); ok {
		t.Fatal("an index file must not register a source")
	}
}
