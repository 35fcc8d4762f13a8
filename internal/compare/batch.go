// Package compare implements the Batch Comparator and Incremental
// Comparator (spec §4.6, §4.7).
package compare

import (
	"strings"
	"time"

	"github.com/danishbarkat/mrfcompare/internal/aggregate"
	"github.com/danishbarkat/mrfcompare/internal/mrferrors"
	"github.com/danishbarkat/mrfcompare/internal/mrfmodel"
	"github.com/danishbarkat/mrfcompare/internal/store"
)

// Bucket is one of the three buckets a matched key lands in.
type Bucket string

const (
	BucketHigherSource1 Bucket = "higher_in_source1"
	BucketHigherSource2 Bucket = "higher_in_source2"
	BucketEqual         Bucket = "equal"
)

// ClassifyDiff returns the bucket a signed (value1 - value2) diff belongs
// to.
func ClassifyDiff(diff float64) Bucket {
	switch {
	case diff > 0:
		return BucketHigherSource1
	case diff < 0:
		return BucketHigherSource2
	default:
		return BucketEqual
	}
}

// PercentDifference is |r1-r2| / max(r1,r2) * 100, or 0 when max(r1,r2) is
// 0 (spec §4.6).
func PercentDifference(r1, r2 float64) float64 {
	m := r1
	if r2 > m {
		m = r2
	}
	if m == 0 {
		return 0
	}
	diff := r1 - r2
	if diff < 0 {
		diff = -diff
	}
	return diff / m * 100
}

// Entry is one matched comparison at whatever key granularity the rule
// uses: the CPT code itself for scalar rules, "code|class" for
// all_classes, or a context key for context.
type Entry struct {
	Key               string
	Code              string
	Class1            string
	Class2            string
	Rate1             float64
	Rate2             float64
	Difference        float64
	PercentDifference float64
	DescriptionsMatch bool
	Bucket            Bucket
}

// OnlyEntry is a key present in exactly one source.
type OnlyEntry struct {
	Key   string
	Code  string
	Rate  float64
	Class string
}

// Options parameterizes a comparison, shared by Batch and Session.
type Options struct {
	Rule           string
	NegotiatedType string
	ExcludeExpired bool
	AsOf           time.Time
}

// ComparisonReport is the Batch Comparator's output (spec §4.6).
type ComparisonReport struct {
	Source1, Source2 string
	Rule             string

	HigherInSource1 []Entry
	HigherInSource2 []Entry
	Equal           []Entry

	OnlyInSource1 []OnlyEntry
	OnlyInSource2 []OnlyEntry

	TotalCompared              int
	TotalHigherInSource1Amount float64
	TotalHigherInSource2Amount float64
}

func (r *ComparisonReport) record(e Entry) {
	switch e.Bucket {
	case BucketHigherSource1:
		r.HigherInSource1 = append(r.HigherInSource1, e)
		r.TotalHigherInSource1Amount += e.Difference
	case BucketHigherSource2:
		r.HigherInSource2 = append(r.HigherInSource2, e)
		r.TotalHigherInSource2Amount += -e.Difference
	default:
		r.Equal = append(r.Equal, e)
	}
	r.TotalCompared++
}

// Batch compares source1 against source2 under rule (spec §4.6). Fails with
// MissingSource if either source is unloaded, BadRule for an unrecognized
// token.
func Batch(st *store.Store, source1, source2 string, opts Options) (*ComparisonReport, error) {
	src1, err := st.MustLookup(source1)
	if err != nil {
		return nil, err
	}
	src2, err := st.MustLookup(source2)
	if err != nil {
		return nil, err
	}
	return BatchSources(src1, src2, source1, source2, opts)
}

// BatchSources runs the same bucketing logic as Batch directly against two
// in-memory sources, without requiring either to be registered in a Store.
// session_finalize (spec §4.7, operation 9) uses this to re-run a full-stream
// comparison of a replayed Source 1 against the Store-resident baseline.
func BatchSources(src1, src2 mrfmodel.Source, name1, name2 string, opts Options) (*ComparisonReport, error) {
	switch opts.Rule {
	case aggregate.RuleAllClasses:
		return batchAllClasses(src1, src2, name1, name2, opts), nil
	case aggregate.RuleContext:
		return batchContext(src1, src2, name1, name2, opts), nil
	case aggregate.RuleMax, aggregate.RuleMin, aggregate.RuleAvg, aggregate.RuleMedian,
		aggregate.RuleClassAvg, aggregate.RulePerOccurrence:
		return batchScalar(src1, src2, name1, name2, opts), nil
	default:
		return nil, mrferrors.BadRule(opts.Rule)
	}
}

func codeUnion(a, b mrfmodel.Source) []string {
	seen := map[string]bool{}
	var codes []string
	for c := range a {
		if !seen[c] {
			seen[c] = true
			codes = append(codes, c)
		}
	}
	for c := range b {
		if !seen[c] {
			seen[c] = true
			codes = append(codes, c)
		}
	}
	return codes
}

func descriptionsMatch(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

func batchScalar(src1, src2 mrfmodel.Source, name1, name2 string, opts Options) *ComparisonReport {
	report := &ComparisonReport{Source1: name1, Source2: name2, Rule: opts.Rule}

	for _, code := range codeUnion(src1, src2) {
		e1, ok1 := src1[code]
		e2, ok2 := src2[code]

		switch {
		case ok1 && ok2:
			rates1 := mrfmodel.FilterRates(e1.Rates, opts.NegotiatedType, opts.ExcludeExpired, opts.AsOf)
			rates2 := mrfmodel.FilterRates(e2.Rates, opts.NegotiatedType, opts.ExcludeExpired, opts.AsOf)
			r1 := aggregate.Reduce(rates1, opts.Rule)
			r2 := aggregate.Reduce(rates2, opts.Rule)
			diff := r1.Value - r2.Value
			report.record(Entry{
				Key: code, Code: code,
				Class1: r1.Class, Class2: r2.Class,
				Rate1: r1.Value, Rate2: r2.Value,
				Difference:        diff,
				PercentDifference: PercentDifference(r1.Value, r2.Value),
				DescriptionsMatch: descriptionsMatch(e1.Description, e2.Description),
				Bucket:            ClassifyDiff(diff),
			})
		case ok1:
			rates1 := mrfmodel.FilterRates(e1.Rates, opts.NegotiatedType, opts.ExcludeExpired, opts.AsOf)
			r1 := aggregate.Reduce(rates1, opts.Rule)
			report.OnlyInSource1 = append(report.OnlyInSource1, OnlyEntry{Key: code, Code: code, Rate: r1.Value, Class: r1.Class})
		case ok2:
			rates2 := mrfmodel.FilterRates(e2.Rates, opts.NegotiatedType, opts.ExcludeExpired, opts.AsOf)
			r2 := aggregate.Reduce(rates2, opts.Rule)
			report.OnlyInSource2 = append(report.OnlyInSource2, OnlyEntry{Key: code, Code: code, Rate: r2.Value, Class: r2.Class})
		}
	}
	return report
}

func batchAllClasses(src1, src2 mrfmodel.Source, name1, name2 string, opts Options) *ComparisonReport {
	report := &ComparisonReport{Source1: name1, Source2: name2, Rule: opts.Rule}

	for _, code := range codeUnion(src1, src2) {
		e1, ok1 := src1[code]
		e2, ok2 := src2[code]

		switch {
		case ok1 && ok2:
			rates1 := mrfmodel.FilterRates(e1.Rates, opts.NegotiatedType, opts.ExcludeExpired, opts.AsOf)
			rates2 := mrfmodel.FilterRates(e2.Rates, opts.NegotiatedType, opts.ExcludeExpired, opts.AsOf)
			classes1 := aggregate.ReduceAllClasses(rates1)
			classes2 := aggregate.ReduceAllClasses(rates2)
			for class, r1 := range classes1 {
				r2, ok := classes2[class]
				if !ok {
					// Class present only on Source 1 for this matched code:
					// surfaces in only_in_source1, not bucketed (spec §4.7).
					key := code + "|" + class
					report.OnlyInSource1 = append(report.OnlyInSource1, OnlyEntry{Key: key, Code: code, Rate: r1.Value, Class: class})
					continue
				}
				diff := r1.Value - r2.Value
				key := code + "|" + class
				report.record(Entry{
					Key: key, Code: code,
					Class1: class, Class2: class,
					Rate1: r1.Value, Rate2: r2.Value,
					Difference:        diff,
					PercentDifference: PercentDifference(r1.Value, r2.Value),
					DescriptionsMatch: descriptionsMatch(e1.Description, e2.Description),
					Bucket:            ClassifyDiff(diff),
				})
			}
			for class, r2 := range classes2 {
				if _, ok := classes1[class]; ok {
					continue
				}
				// Class present only on Source 2 for this matched code.
				key := code + "|" + class
				report.OnlyInSource2 = append(report.OnlyInSource2, OnlyEntry{Key: key, Code: code, Rate: r2.Value, Class: class})
			}
		case ok1:
			rates1 := mrfmodel.FilterRates(e1.Rates, opts.NegotiatedType, opts.ExcludeExpired, opts.AsOf)
			for class, r := range aggregate.ReduceAllClasses(rates1) {
				key := code + "|" + class
				report.OnlyInSource1 = append(report.OnlyInSource1, OnlyEntry{Key: key, Code: code, Rate: r.Value, Class: class})
			}
		case ok2:
			rates2 := mrfmodel.FilterRates(e2.Rates, opts.NegotiatedType, opts.ExcludeExpired, opts.AsOf)
			for class, r := range aggregate.ReduceAllClasses(rates2) {
				key := code + "|" + class
				report.OnlyInSource2 = append(report.OnlyInSource2, OnlyEntry{Key: key, Code: code, Rate: r.Value, Class: class})
			}
		}
	}
	return report
}

func batchContext(src1, src2 mrfmodel.Source, name1, name2 string, opts Options) *ComparisonReport {
	report := &ComparisonReport{Source1: name1, Source2: name2, Rule: opts.Rule}

	for _, code := range codeUnion(src1, src2) {
		e1, ok1 := src1[code]
		e2, ok2 := src2[code]
		if !ok1 || !ok2 {
			// Context is defined only for matched codes (spec §4.4: batch-only,
			// comparators join per (code, context)); unmatched codes surface
			// in the only_in lists keyed by the code, with their max rate,
			// instead of a context breakdown.
			if ok1 {
				r1 := aggregate.Reduce(mrfmodel.FilterRates(e1.Rates, opts.NegotiatedType, opts.ExcludeExpired, opts.AsOf), aggregate.RuleMax)
				report.OnlyInSource1 = append(report.OnlyInSource1, OnlyEntry{Key: code, Code: code, Rate: r1.Value, Class: r1.Class})
			} else {
				r2 := aggregate.Reduce(mrfmodel.FilterRates(e2.Rates, opts.NegotiatedType, opts.ExcludeExpired, opts.AsOf), aggregate.RuleMax)
				report.OnlyInSource2 = append(report.OnlyInSource2, OnlyEntry{Key: code, Code: code, Rate: r2.Value, Class: r2.Class})
			}
			continue
		}
		rates1 := mrfmodel.FilterRates(e1.Rates, opts.NegotiatedType, opts.ExcludeExpired, opts.AsOf)
		rates2 := mrfmodel.FilterRates(e2.Rates, opts.NegotiatedType, opts.ExcludeExpired, opts.AsOf)
		ctx1 := aggregate.ReduceContext(rates1)
		ctx2 := aggregate.ReduceContext(rates2)
		for ctxKey, r1 := range ctx1 {
			r2, ok := ctx2[ctxKey]
			if !ok {
				// Context key present only on Source 1 for this matched
				// code: surfaces in only_in_source1, not bucketed.
				key := code + "|" + ctxKey
				report.OnlyInSource1 = append(report.OnlyInSource1, OnlyEntry{Key: key, Code: code, Rate: r1.Value, Class: r1.Class})
				continue
			}
			diff := r1.Value - r2.Value
			key := code + "|" + ctxKey
			report.record(Entry{
				Key: key, Code: code,
				Class1: r1.Class, Class2: r2.Class,
				Rate1: r1.Value, Rate2: r2.Value,
				Difference:        diff,
				PercentDifference: PercentDifference(r1.Value, r2.Value),
				DescriptionsMatch: descriptionsMatch(e1.Description, e2.Description),
				Bucket:            ClassifyDiff(diff),
			})
		}
		for ctxKey, r2 := range ctx2 {
			if _, ok := ctx1[ctxKey]; ok {
				continue
			}
			// Context key present only on Source 2 for this matched code.
			key := code + "|" + ctxKey
			report.OnlyInSource2 = append(report.OnlyInSource2, OnlyEntry{Key: key, Code: code, Rate: r2.Value, Class: r2.Class})
		}
	}
	return report
}
