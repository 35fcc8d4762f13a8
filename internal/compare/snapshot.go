package compare

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Snapshot is the JSON-serializable view of a Session's progress (spec §6
// "Persisted state layout"): running counts, amounts, and bounded samples,
// excluding the live per-code working state that only the Session itself
// needs.
type Snapshot struct {
	SessionID      string    `json:"session_id"`
	BaselineSource string    `json:"baseline_source"`
	Source1Name    string    `json:"source1_name"`
	Rule           string    `json:"compare_rule"`
	NegotiatedType string    `json:"negotiated_type,omitempty"`
	ExcludeExpired bool      `json:"exclude_expired"`
	State          State     `json:"state"`
	PartsProcessed int       `json:"parts_processed"`
	LastPart       string    `json:"last_part,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`

	TotalCompared              int     `json:"total_compared"`
	HigherInSource1Count       int     `json:"higher_in_source1_count"`
	HigherInSource2Count       int     `json:"higher_in_source2_count"`
	EqualCount                 int     `json:"equal_count"`
	TotalHigherInSource1Amount float64 `json:"total_higher_in_source1_amount"`
	TotalHigherInSource2Amount float64 `json:"total_higher_in_source2_amount"`

	OnlyInSource2Count int `json:"only_in_source2_count"`
	TotalSource1Count  int `json:"total_source1_count"`

	HigherInSource1Sample []Entry     `json:"higher_in_source1_sample"`
	HigherInSource2Sample []Entry     `json:"higher_in_source2_sample"`
	EqualSample           []Entry     `json:"equal_sample"`
	OnlyInSource1Sample   []OnlyEntry `json:"only_in_source1_sample"`
}

// Snapshot renders the session's current committed state. It never reflects
// an in-flight, uncommitted part (spec §9).
func (s *Session) Snapshot() *Snapshot {
	total := len(s.codeBucket)
	snap := &Snapshot{
		SessionID:      s.ID,
		BaselineSource: s.BaselineSource,
		Source1Name:    s.Source1Name,
		Rule:           s.Rule,
		NegotiatedType: s.NegotiatedType,
		ExcludeExpired: s.ExcludeExpired,
		State:          s.state,
		PartsProcessed: s.partsProcessed,
		LastPart:       s.lastPart,
		UpdatedAt:      s.updatedAt,

		TotalCompared:              total,
		HigherInSource1Count:       s.higherInSource1Count,
		HigherInSource2Count:       s.higherInSource2Count,
		EqualCount:                 s.equalCount,
		TotalHigherInSource1Amount: s.totalHigherInSource1Amount,
		TotalHigherInSource2Amount: s.totalHigherInSource2Amount,

		OnlyInSource2Count: len(s.baseline) - len(s.matchedBaselineCodes),
		TotalSource1Count:  len(s.seenSource1Codes),

		OnlyInSource1Sample: append([]OnlyEntry(nil), s.onlyInSource1Sample...),
	}
	for _, e := range s.sampleByBucket[BucketHigherSource1] {
		snap.HigherInSource1Sample = append(snap.HigherInSource1Sample, e)
	}
	for _, e := range s.sampleByBucket[BucketHigherSource2] {
		snap.HigherInSource2Sample = append(snap.HigherInSource2Sample, e)
	}
	for _, e := range s.sampleByBucket[BucketEqual] {
		snap.EqualSample = append(snap.EqualSample, e)
	}
	return snap
}

// WriteSnapshot persists snap to path as indented JSON, grounded on the
// module's one other JSON-to-disk writer.
func WriteSnapshot(path string, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a Snapshot previously written by WriteSnapshot. Manager
// keeps sessions in memory only and does not read snapshots back.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &snap, nil
}
