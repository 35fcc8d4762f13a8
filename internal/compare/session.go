package compare

import (
	"io"
	"time"

	"github.com/danishbarkat/mrfcompare/internal/aggregate"
	"github.com/danishbarkat/mrfcompare/internal/mrferrors"
	"github.com/danishbarkat/mrfcompare/internal/mrfmodel"
	"github.com/danishbarkat/mrfcompare/internal/mrfstream"
	"github.com/danishbarkat/mrfcompare/internal/store"
)

// Bounded-memory limits for incremental session state (spec §3).
const (
	IncrementalSampleLimit  = 2000
	OnlyInSource1SampleCap  = 100
	OnlyInSource2SampleCap  = 50
)

// State is the incremental session's lifecycle state (spec §4.7).
type State string

const (
	StateFresh        State = "Fresh"
	StateAccumulating State = "Accumulating"
	StateSnapshotted  State = "Snapshotted"
)

// Session is one incremental comparison against a fixed baseline (spec
// §4.7). Not safe for concurrent use by multiple callers; the caller must
// serialize calls against the same session (spec §5).
type Session struct {
	ID             string
	BaselineSource string
	Source1Name    string

	Rule           string
	NegotiatedType string
	ExcludeExpired bool
	AsOf           time.Time
	paramsSet      bool

	baseline mrfmodel.Source

	seenSource1Codes     map[string]bool
	matchedBaselineCodes map[string]bool
	onlyInSource1Codes   map[string]bool
	onlyInSource1Sample  []OnlyEntry

	source1Summary      map[string]aggregate.RuleSummary
	source1Description  map[string]string
	baselineCache       map[string]aggregate.Result
	baselineClassCache  map[string]map[string]aggregate.Result

	codeBucket     map[string]Bucket
	codeDiff       map[string]float64
	sampleByBucket map[Bucket]map[string]Entry

	higherInSource1Count int
	higherInSource2Count int
	equalCount           int

	totalHigherInSource1Amount float64
	totalHigherInSource2Amount float64

	partPaths      []string
	partsProcessed int
	lastPart       string
	updatedAt      time.Time
	state          State
}

// NewSession constructs a Fresh session. baseline is captured at creation
// time, per spec §3 ("baseline_source fixed at creation"); later
// replace-in-full calls against the store do not retroactively change a
// live session's view of the baseline.
func NewSession(id, source1Name, baselineName string, baseline mrfmodel.Source) *Session {
	return &Session{
		ID:             id,
		BaselineSource: baselineName,
		Source1Name:    source1Name,
		baseline:       baseline,

		seenSource1Codes:     map[string]bool{},
		matchedBaselineCodes: map[string]bool{},
		onlyInSource1Codes:   map[string]bool{},

		source1Summary:     map[string]aggregate.RuleSummary{},
		source1Description: map[string]string{},
		baselineCache:      map[string]aggregate.Result{},
		baselineClassCache: map[string]map[string]aggregate.Result{},

		codeBucket: map[string]Bucket{},
		codeDiff:   map[string]float64{},
		sampleByBucket: map[Bucket]map[string]Entry{
			BucketHigherSource1: {},
			BucketHigherSource2: {},
			BucketEqual:         {},
		},

		state: StateFresh,
	}
}

// ProcessPart runs one part's items against the session (spec §4.7). The
// part's items are staged in a partDelta and applied only once the
// extractor reaches a clean EOF; any error mid-part leaves the session's
// committed state untouched (spec §9 "staging and commit for a part").
func (s *Session) ProcessPart(r io.Reader, partPath string, opts Options) (*Snapshot, error) {
	firstPart := !s.paramsSet
	if s.paramsSet {
		if opts.Rule != s.Rule || opts.NegotiatedType != s.NegotiatedType || opts.ExcludeExpired != s.ExcludeExpired {
			return nil, mrferrors.SessionParamMismatch(s.ID, "compare_rule/negotiated_type/exclude_expired must match the session's first part")
		}
	} else {
		if !aggregate.ValidRule(opts.Rule) || opts.Rule == aggregate.RuleContext {
			return nil, mrferrors.BadRule(opts.Rule)
		}
		s.Rule = opts.Rule
		s.NegotiatedType = opts.NegotiatedType
		s.ExcludeExpired = opts.ExcludeExpired
		s.AsOf = opts.AsOf
		s.paramsSet = true
	}

	delta := newPartDelta()
	ex := mrfstream.NewExtractor(r)
	if err := ex.Each(func(item mrfmodel.InNetworkItem) error {
		return s.applyItem(item, delta)
	}); err != nil {
		if firstPart {
			s.Rule, s.NegotiatedType, s.ExcludeExpired, s.AsOf = "", "", false, time.Time{}
			s.paramsSet = false
		}
		return nil, err
	}

	s.commit(delta)
	s.partPaths = append(s.partPaths, partPath)
	s.partsProcessed++
	s.lastPart = partPath
	s.updatedAt = time.Now()
	if s.state == StateFresh {
		s.state = StateAccumulating
	}
	s.state = StateSnapshotted
	return s.Snapshot(), nil
}

func (s *Session) applyItem(item mrfmodel.InNetworkItem, delta *partDelta) error {
	code := store.NormalizeCode(mrfstream.BillingCodeString(item.BillingCode))
	if code == "" {
		return nil
	}

	if !s.seenSource1Codes[code] {
		delta.seenSource1Codes[code] = true
	}

	_, inBaseline := s.baseline[code]
	if !inBaseline {
		if !s.onlyInSource1Codes[code] && !delta.onlyInSource1Codes[code] {
			delta.onlyInSource1Codes[code] = true
			if len(s.onlyInSource1Sample)+len(delta.onlyInSource1SampleAdd) < OnlyInSource1SampleCap {
				delta.onlyInSource1SampleAdd = append(delta.onlyInSource1SampleAdd, OnlyEntry{Key: code, Code: code})
			}
		}
		return nil
	}

	rates := mrfmodel.FilterRates(mrfmodel.RatesFromItem(item), s.NegotiatedType, s.ExcludeExpired, s.AsOf)

	prevDesc, ok := delta.source1Description[code]
	if !ok {
		prevDesc = s.source1Description[code]
	}
	delta.source1Description[code] = mrfmodel.UpgradeDescription(prevDesc, item.Description)

	summary, ok := delta.source1Summary[code]
	if !ok {
		if existing, ok2 := s.source1Summary[code]; ok2 {
			summary = existing.Clone()
		} else {
			summary = aggregate.NewSummary(s.Rule)
		}
		delta.source1Summary[code] = summary
	}
	summary.Update(rates)
	delta.matchedBaselineCodes[code] = true
	return nil
}

func (s *Session) commit(delta *partDelta) {
	for code := range delta.seenSource1Codes {
		s.seenSource1Codes[code] = true
	}
	for code := range delta.onlyInSource1Codes {
		s.onlyInSource1Codes[code] = true
	}
	remaining := OnlyInSource1SampleCap - len(s.onlyInSource1Sample)
	if remaining > 0 {
		add := delta.onlyInSource1SampleAdd
		if len(add) > remaining {
			add = add[:remaining]
		}
		s.onlyInSource1Sample = append(s.onlyInSource1Sample, add...)
	}

	for code, summary := range delta.source1Summary {
		s.source1Summary[code] = summary
	}
	for code, desc := range delta.source1Description {
		s.source1Description[code] = desc
	}
	for code := range delta.matchedBaselineCodes {
		s.matchedBaselineCodes[code] = true
	}

	for code := range delta.matchedBaselineCodes {
		s.reassignForCode(code)
	}
}

func (s *Session) baselineResult(code string) aggregate.Result {
	if r, ok := s.baselineCache[code]; ok {
		return r
	}
	entry := s.baseline[code]
	rates := mrfmodel.FilterRates(entry.Rates, s.NegotiatedType, s.ExcludeExpired, s.AsOf)
	r := aggregate.Reduce(rates, s.Rule)
	s.baselineCache[code] = r
	return r
}

func (s *Session) baselineClasses(code string) map[string]aggregate.Result {
	if m, ok := s.baselineClassCache[code]; ok {
		return m
	}
	entry := s.baseline[code]
	rates := mrfmodel.FilterRates(entry.Rates, s.NegotiatedType, s.ExcludeExpired, s.AsOf)
	m := aggregate.ReduceAllClasses(rates)
	s.baselineClassCache[code] = m
	return m
}

func (s *Session) reassignForCode(code string) {
	descMatch := descriptionsMatch(s.source1Description[code], s.baseline[code].Description)

	if s.Rule == aggregate.RuleAllClasses {
		multi, ok := s.source1Summary[code].(aggregate.MultiRuleSummary)
		if !ok {
			return
		}
		source1Classes := multi.FinalizeMulti()
		baselineClasses := s.baselineClasses(code)
		for class, r1 := range source1Classes {
			r2, ok := baselineClasses[class]
			if !ok {
				continue // class present on one side only: ignored for bucketing (spec §4.7)
			}
			diff := r1.Value - r2.Value
			key := code + "|" + class
			entry := Entry{
				Key: key, Code: code,
				Class1: class, Class2: class,
				Rate1: r1.Value, Rate2: r2.Value,
				Difference:        diff,
				PercentDifference: PercentDifference(r1.Value, r2.Value),
				DescriptionsMatch: descMatch,
				Bucket:            ClassifyDiff(diff),
			}
			s.reassignBucket(key, entry.Bucket, diff, entry)
		}
		return
	}

	r1 := s.source1Summary[code].Finalize()
	r2 := s.baselineResult(code)
	diff := r1.Value - r2.Value
	entry := Entry{
		Key: code, Code: code,
		Class1: r1.Class, Class2: r2.Class,
		Rate1: r1.Value, Rate2: r2.Value,
		Difference:        diff,
		PercentDifference: PercentDifference(r1.Value, r2.Value),
		DescriptionsMatch: descMatch,
		Bucket:            ClassifyDiff(diff),
	}
	s.reassignBucket(code, entry.Bucket, diff, entry)
}

// reassignBucket centralizes every bucket-membership change (spec §9): a
// key lives in exactly one of the three bucket maps at a time, and its
// counts/amounts contribution is subtracted before the new one is added.
func (s *Session) reassignBucket(key string, newBucket Bucket, newDiff float64, sample Entry) {
	if prevBucket, had := s.codeBucket[key]; had {
		s.addContribution(prevBucket, s.codeDiff[key], -1)
		if prevBucket != newBucket {
			delete(s.sampleByBucket[prevBucket], key)
		}
	}
	s.addContribution(newBucket, newDiff, 1)
	s.codeBucket[key] = newBucket
	s.codeDiff[key] = newDiff

	bucketSamples := s.sampleByBucket[newBucket]
	if _, exists := bucketSamples[key]; exists {
		bucketSamples[key] = sample
	} else if len(bucketSamples) < IncrementalSampleLimit {
		bucketSamples[key] = sample
	}
}

func (s *Session) addContribution(bucket Bucket, diff float64, sign int) {
	switch bucket {
	case BucketHigherSource1:
		s.higherInSource1Count += sign
		s.totalHigherInSource1Amount += float64(sign) * diff
	case BucketHigherSource2:
		s.higherInSource2Count += sign
		s.totalHigherInSource2Amount += float64(sign) * -diff
	case BucketEqual:
		s.equalCount += sign
	}
}
