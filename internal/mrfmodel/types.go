// Package mrfmodel holds the rate data model (spec §3) and the wire-level
// JSON shapes an MRF in_network item is decoded into (spec §4.2).
package mrfmodel

// RateRecord is a single negotiated price line (spec §3).
type RateRecord struct {
	NegotiatedRate      float64
	HasRate             bool // false when the source rate was non-finite/absent
	BillingClass        string
	BillingCodeModifier []string
	ServiceCode         []string
	NegotiatedType      string
	ExpirationDate      string // raw YYYY-MM-DD, unparsed; "" if absent
}

// CptEntry is keyed by CPT code (spec §3).
type CptEntry struct {
	Description string
	Rates       []RateRecord
}

// Source is a named mapping cpt_code -> CptEntry (spec §3).
type Source map[string]*CptEntry

// NegotiatedPrice is the raw wire shape of one negotiated_prices[*] entry.
type NegotiatedPrice struct {
	NegotiatedRate      interface{} `json:"negotiated_rate"` // number or string
	NegotiatedType      string      `json:"negotiated_type"`
	BillingClass        string      `json:"billing_class"`
	ExpirationDate      string      `json:"expiration_date"`
	ServiceCode         []string    `json:"service_code"`
	BillingCodeModifier []string    `json:"billing_code_modifier"`
}

// NegotiatedRateGroup is one negotiated_rates[*] entry.
type NegotiatedRateGroup struct {
	NegotiatedPrices []NegotiatedPrice `json:"negotiated_prices"`
}

// InNetworkItem is a single in_network[*] array entry, restricted to the
// fields spec §4.2 says are used.
type InNetworkItem struct {
	BillingCodeType string                `json:"billing_code_type"`
	BillingCode     interface{}           `json:"billing_code"` // usually string, occasionally number
	Description     string                `json:"description"`
	NegotiatedRates []NegotiatedRateGroup `json:"negotiated_rates"`
}

// IndexFile is one reporting_structure[*].in_network_files[*] entry.
type IndexFile struct {
	Location    string `json:"location"`
	Description string `json:"description"`
}

// ReportingStructure is one reporting_structure[*] entry in an index file.
type ReportingStructure struct {
	InNetworkFiles []IndexFile `json:"in_network_files"`
}

// UpgradeDescription returns the description to keep given the current one
// (cur) and a newly observed one (newDesc), per spec §3:
// "upgraded from 'No description'/empty when a later item provides a
// non-empty description" — once a real description is set, it is never
// overwritten by an empty/placeholder one.
func UpgradeDescription(cur, newDesc string) string {
	if isPlaceholderDescription(cur) && !isPlaceholderDescription(newDesc) {
		return newDesc
	}
	return cur
}

func isPlaceholderDescription(d string) bool {
	return d == "" || d == "No description"
}
