package aggregate

import "github.com/danishbarkat/mrfcompare/internal/mrfmodel"

// Reduce computes the scalar reduction for rule over a finite, already
// filtered rate list (spec §4.6 batch comparator). Batch mode has no
// concept of extractor-item boundaries — CptEntry.Rates is already a flat,
// insertion-ordered list — so per_occurrence degenerates to a single running
// max over the whole list, exactly as spec §4.6 states ("per_occurrence
// treats each source's code as a single scalar via max").
func Reduce(rates []mrfmodel.RateRecord, rule string) Result {
	s := NewSummary(rule)
	s.Update(rates)
	return s.Finalize()
}

// ReduceAllClasses computes the all_classes rule's per-class max (spec
// §4.4/§4.6).
func ReduceAllClasses(rates []mrfmodel.RateRecord) map[string]Result {
	s := &allClassesSummary{classes: map[string]*ClassStats{}}
	s.Update(rates)
	return s.FinalizeMulti()
}

// ReduceClassMeta computes max_avg_by_billing_class's full per-class
// breakdown alongside its scalar Finalize result.
func ReduceClassMeta(rates []mrfmodel.RateRecord) (Result, map[string]ClassStats) {
	s := &classSummary{classes: map[string]*ClassStats{}}
	s.Update(rates)
	return s.Finalize(), s.ClassMeta()
}

// ReduceContext computes the context rule (spec §4.4: batch-only,
// keyed by (billing_class, sorted modifier set) -> max rate).
func ReduceContext(rates []mrfmodel.RateRecord) map[string]Result {
	out := map[string]*ClassStats{}
	keyClass := map[string]string{}
	for _, r := range rates {
		v, ok := r.NegotiatedRate, r.HasRate
		if !ok {
			continue
		}
		c := normalizeClass(r.BillingClass)
		key := mrfmodel.ContextKey(c, r.BillingCodeModifier)
		cs, ok := out[key]
		if !ok {
			cs = &ClassStats{Max: v}
			keyClass[key] = c
			out[key] = cs
		}
		if v > cs.Max || cs.Count == 0 {
			cs.Max = v
		}
		cs.Count++
	}
	result := make(map[string]Result, len(out))
	for key, cs := range out {
		result[key] = Result{Value: cs.Max, Class: keyClass[key], Count: cs.Count}
	}
	return result
}
