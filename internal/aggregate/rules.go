package aggregate

import "github.com/danishbarkat/mrfcompare/internal/mrfmodel"

// maxSummary tracks a running max and the billing class it was observed at.
type maxSummary struct {
	has   bool
	value float64
	class string
	count int
}

func (s *maxSummary) Update(rates []mrfmodel.RateRecord) {
	for _, r := range rates {
		v, ok := r.NegotiatedRate, r.HasRate
		if !ok {
			continue
		}
		s.count++
		if !s.has || v > s.value {
			s.has = true
			s.value = v
			s.class = normalizeClass(r.BillingClass)
		}
	}
}

func (s *maxSummary) Finalize() Result {
	if !s.has {
		return Result{Value: 0, Class: "unknown", Count: s.count}
	}
	return Result{Value: s.value, Class: s.class, Count: s.count}
}

func (s *maxSummary) Clone() RuleSummary {
	cp := *s
	return &cp
}

// minSummary is the mirror image of maxSummary.
type minSummary struct {
	has   bool
	value float64
	class string
	count int
}

func (s *minSummary) Update(rates []mrfmodel.RateRecord) {
	for _, r := range rates {
		v, ok := r.NegotiatedRate, r.HasRate
		if !ok {
			continue
		}
		s.count++
		if !s.has || v < s.value {
			s.has = true
			s.value = v
			s.class = normalizeClass(r.BillingClass)
		}
	}
}

func (s *minSummary) Finalize() Result {
	if !s.has {
		return Result{Value: 0, Class: "unknown", Count: s.count}
	}
	return Result{Value: s.value, Class: s.class, Count: s.count}
}

func (s *minSummary) Clone() RuleSummary {
	cp := *s
	return &cp
}

// avgSummary tracks a running sum and count.
type avgSummary struct {
	sum   float64
	count int
}

func (s *avgSummary) Update(rates []mrfmodel.RateRecord) {
	for _, r := range rates {
		v, ok := r.NegotiatedRate, r.HasRate
		if !ok {
			continue
		}
		s.sum += v
		s.count++
	}
}

func (s *avgSummary) Finalize() Result {
	if s.count == 0 {
		return Result{Value: 0, Class: "unknown", Count: 0}
	}
	return Result{Value: s.sum / float64(s.count), Class: "unknown", Count: s.count}
}

func (s *avgSummary) Clone() RuleSummary {
	cp := *s
	return &cp
}

// medianSummary wraps a P2Quantile streaming estimator.
type medianSummary struct {
	p2 *P2Quantile
}

func (s *medianSummary) Update(rates []mrfmodel.RateRecord) {
	for _, r := range rates {
		v, ok := r.NegotiatedRate, r.HasRate
		if !ok {
			continue
		}
		s.p2.Update(v)
	}
}

func (s *medianSummary) Finalize() Result {
	v, count := s.p2.Median()
	return Result{Value: v, Class: "unknown", Count: count}
}

func (s *medianSummary) Clone() RuleSummary {
	return &medianSummary{p2: s.p2.Clone()}
}

// classSummary backs max_avg_by_billing_class: per-class running
// {sum,count,min,max}, finalizing to the average of the "representative"
// class — the non-unknown class with the greatest average, falling back to
// unknown only if it is the sole class observed. order records each class's
// first-seen position so a tie on average breaks deterministically (the
// first-seen class wins) instead of depending on Go's randomized map
// iteration order (spec §8 idempotence: identical inputs must yield an
// identical report on every run).
type classSummary struct {
	classes map[string]*ClassStats
	order   []string
}

func (s *classSummary) Update(rates []mrfmodel.RateRecord) {
	for _, r := range rates {
		v, ok := r.NegotiatedRate, r.HasRate
		if !ok {
			continue
		}
		c := normalizeClass(r.BillingClass)
		cs, ok := s.classes[c]
		if !ok {
			cs = &ClassStats{}
			s.classes[c] = cs
			s.order = append(s.order, c)
		}
		cs.add(v)
	}
}

func (s *classSummary) Finalize() Result {
	repClass := ""
	bestAvg := 0.0
	totalCount := 0
	for _, cs := range s.classes {
		totalCount += cs.Count
	}
	for _, c := range s.order {
		if c == "unknown" {
			continue
		}
		cs := s.classes[c]
		if repClass == "" || cs.Avg() > bestAvg {
			repClass = c
			bestAvg = cs.Avg()
		}
	}
	if repClass == "" {
		if cs, ok := s.classes["unknown"]; ok {
			return Result{Value: cs.Avg(), Class: "unknown", Count: totalCount}
		}
		return Result{Value: 0, Class: "unknown", Count: 0}
	}
	return Result{Value: bestAvg, Class: repClass, Count: totalCount}
}

// ClassMeta exposes the per-class {sum,count,min,max,avg} breakdown (spec
// §4.4's "meta" output for max_avg_by_billing_class), for callers that want
// it beyond the scalar Finalize result.
func (s *classSummary) ClassMeta() map[string]ClassStats {
	out := make(map[string]ClassStats, len(s.classes))
	for c, cs := range s.classes {
		out[c] = *cs
	}
	return out
}

func (s *classSummary) Clone() RuleSummary {
	cp := &classSummary{
		classes: make(map[string]*ClassStats, len(s.classes)),
		order:   append([]string(nil), s.order...),
	}
	for c, cs := range s.classes {
		v := *cs
		cp.classes[c] = &v
	}
	return cp
}

// allClassesSummary tracks a running max per billing class.
type allClassesSummary struct {
	classes map[string]*ClassStats
}

func (s *allClassesSummary) Update(rates []mrfmodel.RateRecord) {
	for _, r := range rates {
		v, ok := r.NegotiatedRate, r.HasRate
		if !ok {
			continue
		}
		c := normalizeClass(r.BillingClass)
		cs, ok := s.classes[c]
		if !ok {
			cs = &ClassStats{Max: v}
			s.classes[c] = cs
		}
		if v > cs.Max || cs.Count == 0 {
			cs.Max = v
		}
		cs.Count++
	}
}

// Finalize is not meaningful for a multi-valued rule; present for interface
// conformance only. Callers of all_classes must use FinalizeMulti.
func (s *allClassesSummary) Finalize() Result {
	return Result{}
}

func (s *allClassesSummary) FinalizeMulti() map[string]Result {
	out := make(map[string]Result, len(s.classes))
	for c, cs := range s.classes {
		out[c] = Result{Value: cs.Max, Class: c, Count: cs.Count}
	}
	return out
}

func (s *allClassesSummary) Clone() RuleSummary {
	cp := &allClassesSummary{classes: make(map[string]*ClassStats, len(s.classes))}
	for c, cs := range s.classes {
		v := *cs
		cp.classes[c] = &v
	}
	return cp
}

// occurrenceSummary implements the rule the spec's Design Notes rename
// internally to per_code_highest_occurrence: each Update call represents
// one extractor item, so the per-item max is computed first and only the
// largest such per-item max survives across items — a code repeated many
// times in one item does not inflate the result.
type occurrenceSummary struct {
	has   bool
	value float64
	class string
	count int
}

func (s *occurrenceSummary) Update(rates []mrfmodel.RateRecord) {
	itemHas := false
	var itemMax float64
	var itemClass string
	for _, r := range rates {
		v, ok := r.NegotiatedRate, r.HasRate
		if !ok {
			continue
		}
		s.count++
		if !itemHas || v > itemMax {
			itemHas = true
			itemMax = v
			itemClass = normalizeClass(r.BillingClass)
		}
	}
	if itemHas && (!s.has || itemMax > s.value) {
		s.has = true
		s.value = itemMax
		s.class = itemClass
	}
}

func (s *occurrenceSummary) Finalize() Result {
	if !s.has {
		return Result{Value: 0, Class: "unknown", Count: s.count}
	}
	return Result{Value: s.value, Class: s.class, Count: s.count}
}

func (s *occurrenceSummary) Clone() RuleSummary {
	cp := *s
	return &cp
}
