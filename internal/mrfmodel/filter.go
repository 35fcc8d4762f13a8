package mrfmodel

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ToFloat coerces a decoded JSON value (number, numeric string, or anything
// else) to a finite float64. ok is false for non-numeric strings, nil, bools,
// NaN and +/-Inf — those rates are excluded from every aggregation, never
// treated as zero.
func ToFloat(v interface{}) (f float64, ok bool) {
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseDate parses a YYYY-MM-DD string. ok is false for "", malformed, or
// unparsable dates, which callers treat as "no expiration information".
func ParseDate(s string) (t time.Time, ok bool) {
	if s == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// FilterRates returns the subset of rates matching negotiatedType (ignored
// when empty) and, when excludeExpired is true, excludes any rate whose
// ExpirationDate parses and is strictly before asOf. Rates with an
// unparsable or absent ExpirationDate are never excluded on that basis.
func FilterRates(rates []RateRecord, negotiatedType string, excludeExpired bool, asOf time.Time) []RateRecord {
	wantType := strings.ToLower(negotiatedType)
	out := make([]RateRecord, 0, len(rates))
	for _, r := range rates {
		if wantType != "" && strings.ToLower(r.NegotiatedType) != wantType {
			continue
		}
		if excludeExpired {
			if exp, ok := ParseDate(r.ExpirationDate); ok && exp.Before(asOf) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// SortedModifiers returns a copy of mods sorted ascending, used as the
// modifier-set half of a context key (spec §4.4 "context" rule: keyed by
// (billing_class, sorted modifier set)).
func SortedModifiers(mods []string) []string {
	out := make([]string, len(mods))
	copy(out, mods)
	sort.Strings(out)
	return out
}

// RatesFromItem flattens every negotiated_prices entry across an
// in_network item's negotiated_rates groups into RateRecord values, with no
// filtering applied (spec §4.2: "only the following fields are used").
// billing_class normalizes to "unknown" when empty or missing.
func RatesFromItem(item InNetworkItem) []RateRecord {
	var out []RateRecord
	for _, group := range item.NegotiatedRates {
		for _, p := range group.NegotiatedPrices {
			class := p.BillingClass
			if class == "" {
				class = "unknown"
			}
			out = append(out, RateRecord{
				NegotiatedRate:      0, // placeholder; real value set below
				BillingClass:        class,
				BillingCodeModifier: p.BillingCodeModifier,
				ServiceCode:         p.ServiceCode,
				NegotiatedType:      p.NegotiatedType,
				ExpirationDate:      p.ExpirationDate,
			})
			rate := &out[len(out)-1]
			if v, ok := ToFloat(p.NegotiatedRate); ok {
				rate.NegotiatedRate = v
				rate.HasRate = true
			}
		}
	}
	return out
}

// ContextKey builds the string key used by the "context" compare rule:
// billing class joined with the sorted, comma-separated modifier set.
func ContextKey(billingClass string, mods []string) string {
	return billingClass + "|" + strings.Join(SortedModifiers(mods), ",")
}
