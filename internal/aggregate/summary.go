// Package aggregate implements the reduction rules over rate records (spec
// §4.4): a finite-list batch reducer and an O(1)-per-update streaming
// summary for each rule, replacing a single loosely-typed payload with one
// concrete type per rule (spec §9 "Dynamic per-rule payloads").
package aggregate

import "github.com/danishbarkat/mrfcompare/internal/mrfmodel"

// Rule name tokens accepted by the public operations.
const (
	RuleMax         = "max"
	RuleMin         = "min"
	RuleAvg         = "avg"
	RuleMedian      = "median"
	RuleClassAvg    = "max_avg_by_billing_class"
	RuleAllClasses  = "all_classes"
	RulePerOccurrence = "per_occurrence"
	RuleContext     = "context" // batch-only
)

// ValidRule reports whether token is one of the eight canonical rule names.
func ValidRule(token string) bool {
	switch token {
	case RuleMax, RuleMin, RuleAvg, RuleMedian, RuleClassAvg, RuleAllClasses, RulePerOccurrence, RuleContext:
		return true
	default:
		return false
	}
}

// ClassStats is the per-class running state behind max_avg_by_billing_class.
type ClassStats struct {
	Sum   float64
	Count int
	Min   float64
	Max   float64
}

func (c *ClassStats) add(v float64) {
	if c.Count == 0 {
		c.Min = v
		c.Max = v
	} else {
		if v < c.Min {
			c.Min = v
		}
		if v > c.Max {
			c.Max = v
		}
	}
	c.Sum += v
	c.Count++
}

// Avg returns the class's running average, 0 if no values were seen.
func (c *ClassStats) Avg() float64 {
	if c.Count == 0 {
		return 0
	}
	return c.Sum / float64(c.Count)
}

// Result is the scalar finalize shape shared by the single-valued rules
// (max, min, avg, median, max_avg_by_billing_class).
type Result struct {
	Value float64
	Class string
	Count int
}

// RuleSummary is the per-code running state for one compare rule. Update is
// called once per extractor item's filtered rate slice — this is what lets
// per_occurrence distinguish "largest single item" from "largest rate seen
// across all items" (spec §4.7). Finalize returns the scalar reduction;
// multi-valued rules (all_classes) additionally implement
// MultiRuleSummary. Clone returns an independent copy, letting the
// incremental comparator stage a part's updates against a copy and discard
// them on a mid-part error without touching the committed summary (spec §9
// "staging and commit for a part").
type RuleSummary interface {
	Update(rates []mrfmodel.RateRecord)
	Finalize() Result
	Clone() RuleSummary
}

// MultiRuleSummary is implemented by rules whose natural output is a map
// rather than a single scalar.
type MultiRuleSummary interface {
	FinalizeMulti() map[string]Result
}

// NewSummary constructs the streaming RuleSummary for rule. It panics on an
// unrecognized token and on RuleContext, which has no streaming summary
// (use ReduceContext); callers must validate the rule first, since a bad
// rule is an operation-boundary error, not an internal one.
func NewSummary(rule string) RuleSummary {
	switch rule {
	case RuleMax:
		return &maxSummary{}
	case RuleMin:
		return &minSummary{}
	case RuleAvg:
		return &avgSummary{}
	case RuleMedian:
		return &medianSummary{p2: NewP2Quantile()}
	case RuleClassAvg:
		return &classSummary{classes: map[string]*ClassStats{}}
	case RuleAllClasses:
		return &allClassesSummary{classes: map[string]*ClassStats{}}
	case RulePerOccurrence:
		return &occurrenceSummary{}
	default:
		panic("aggregate: unknown rule " + rule)
	}
}

func normalizeClass(c string) string {
	if c == "" {
		return "unknown"
	}
	return c
}
