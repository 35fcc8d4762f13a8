package compare

import "github.com/danishbarkat/mrfcompare/internal/aggregate"

// partDelta stages one part's effect on a Session before it is committed.
// Nothing here is visible through Status/Snapshot until commit succeeds
// (spec §9: a part either applies in full or not at all).
type partDelta struct {
	seenSource1Codes       map[string]bool
	onlyInSource1Codes     map[string]bool
	onlyInSource1SampleAdd []OnlyEntry

	matchedBaselineCodes map[string]bool
	source1Summary       map[string]aggregate.RuleSummary
	source1Description   map[string]string
}

func newPartDelta() *partDelta {
	return &partDelta{
		seenSource1Codes:     map[string]bool{},
		onlyInSource1Codes:   map[string]bool{},
		matchedBaselineCodes: map[string]bool{},
		source1Summary:       map[string]aggregate.RuleSummary{},
		source1Description:   map[string]string{},
	}
}
