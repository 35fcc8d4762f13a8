package mrfstream

import (
	"io"
	"strings"
	"testing"

	"github.com/danishbarkat/mrfcompare/internal/mrfmodel"
)

func TestExtractorEachYieldsAcceptedCPTItemsOnly(t *testing.T) {
	doc := `{
		"reporting_entity_name": "Acme",
		"in_network": [
			{"billing_code_type": "CPT", "billing_code": "99213", "description": "Office visit",
			 "negotiated_rates": [{"negotiated_prices": [{"negotiated_rate": 150.0, "billing_class": "professional"}]}]},
			{"billing_code_type": "HCPCS", "billing_code": "J1234", "description": "ignored"},
			{"billing_code_type": "CPT", "billing_code": "  ", "description": "blank code ignored"},
			{"billing_code_type": "CPT", "billing_code": "70450", "description": "CT head",
			 "negotiated_rates": [{"negotiated_prices": [{"negotiated_rate": 100.0, "billing_class": "institutional"}]}]}
		]
	}`

	ex := NewExtractor(strings.NewReader(doc))
	var items []mrfmodel.InNetworkItem
	if err := ex.Each(func(item mrfmodel.InNetworkItem) error {
		items = append(items, item)
		return nil
	}); err != nil {
		t.Fatalf("Each returned error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 accepted items, got %d", len(items))
	}
	if BillingCodeString(items[0].BillingCode) != "99213" {
		t.Fatalf("expected first item 99213, got %v", items[0].BillingCode)
	}
	if BillingCodeString(items[1].BillingCode) != "70450" {
		t.Fatalf("expected second item 70450, got %v", items[1].BillingCode)
	}
}

func TestExtractorSkipsUnrelatedTopLevelKeys(t *testing.T) {
	doc := `{
		"reporting_entity_name": "Acme",
		"reporting_entity_type": "payer",
		"version": "1.0.0",
		"nested": {"a": [1,2,{"b": "c"}], "d": null},
		"in_network": []
	}`
	ex := NewExtractor(strings.NewReader(doc))
	count := 0
	if err := ex.Each(func(item mrfmodel.InNetworkItem) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 items, got %d", count)
	}
}

func TestExtractIndexURLsDedupesInDocumentOrder(t *testing.T) {
	doc := `{
		"reporting_entity_name": "Acme",
		"reporting_structure": [
			{"in_network_files": [{"location": "https://a.example/1.json", "description": "x"}]},
			{"in_network_files": [
				{"location": "https://b.example/2.json", "description": "y"},
				{"location": "https://a.example/1.json", "description": "dup"}
			]}
		]
	}`
	ex := NewExtractor(strings.NewReader(doc))
	urls, err := ex.ExtractIndexURLs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"https://a.example/1.json", "https://b.example/2.json"}
	if len(urls) != len(want) {
		t.Fatalf("got %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Fatalf("got %v, want %v", urls, want)
		}
	}
}

func TestExtractorToleratesBoundaryInsideNumberAcrossConcatenatedReaders(t *testing.T) {
	// Simulates a multi-part byte-exact concatenation that splits a numeric
	// token mid-digit (spec §9 "part boundary inside a number").
	part1 := `{"in_network": [{"billing_code_type": "CPT", "billing_code": "99213", "negotiated_rates": [{"negotiated_prices": [{"negotiated_rate": 15`
	part2 := `0.5, "billing_class": "professional"}]}]}]}`
	r := io.MultiReader(strings.NewReader(part1), strings.NewReader(part2))

	ex := NewExtractor(r)
	var got float64
	if err := ex.Each(func(item mrfmodel.InNetworkItem) error {
		got, _ = mrfmodel.ToFloat(item.NegotiatedRates[0].NegotiatedPrices[0].NegotiatedRate)
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 150.5 {
		t.Fatalf("expected 150.5, got %v", got)
	}
}
