package compare

import (
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/danishbarkat/mrfcompare/internal/mrferrors"
	"github.com/danishbarkat/mrfcompare/internal/mrfmodel"
	"github.com/danishbarkat/mrfcompare/internal/mrfstream"
	"github.com/danishbarkat/mrfcompare/internal/store"
)

// Manager owns every live incremental Session, keyed by session ID (spec
// §4.7, §5: sessions are independent of each other and of Batch).
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	store    *store.Store
}

// NewManager returns a Manager backed by st for baseline lookups.
func NewManager(st *store.Store) *Manager {
	return &Manager{sessions: map[string]*Session{}, store: st}
}

// BeginOrResume starts a new session (generating a session ID via uuid when
// sessionID is empty) or returns the existing one for sessionID. Resuming
// with a different baselineName than the session was created with fails
// with SessionBaselineChanged (spec §3: "baseline_source fixed at
// creation").
func (m *Manager) BeginOrResume(sessionID, source1Name, baselineName string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessionID != "" {
		if sess, ok := m.sessions[sessionID]; ok {
			if sess.BaselineSource != baselineName {
				return nil, mrferrors.SessionBaselineChanged(sessionID)
			}
			return sess, nil
		}
	} else {
		sessionID = uuid.NewString()
	}

	baseline, err := m.store.MustLookup(baselineName)
	if err != nil {
		return nil, err
	}
	sess := NewSession(sessionID, source1Name, baselineName, baseline)
	m.sessions[sessionID] = sess
	return sess, nil
}

// ProcessPart runs one part through sessionID's session (spec §4.7).
func (m *Manager) ProcessPart(sessionID string, r io.Reader, partPath string, opts Options) (*Snapshot, error) {
	sess, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.ProcessPart(r, partPath, opts)
}

// Status returns sessionID's current snapshot.
func (m *Manager) Status(sessionID string) (*Snapshot, error) {
	sess, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// Finalize re-runs a full-stream comparison of sessionID's accumulated parts
// against the Store-resident baseline (spec §4.7 operation 9): every part
// path the session has successfully processed is replayed through a fresh
// extractor into a temporary in-memory source, which is never written back
// into the Store, then compared with the same bucketing logic Batch uses.
func (m *Manager) Finalize(sessionID, baselineName string) (*ComparisonReport, error) {
	sess, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.BaselineSource != baselineName {
		return nil, mrferrors.SessionBaselineChanged(sessionID)
	}

	baseline, err := m.store.MustLookup(baselineName)
	if err != nil {
		return nil, err
	}

	replayed, err := replaySource(sess.partPaths)
	if err != nil {
		return nil, err
	}

	opts := Options{
		Rule:           sess.Rule,
		NegotiatedType: sess.NegotiatedType,
		ExcludeExpired: sess.ExcludeExpired,
		AsOf:           sess.AsOf,
	}
	return BatchSources(replayed, baseline, sess.Source1Name, baselineName, opts)
}

func (m *Manager) get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, mrferrors.SessionNotFound(sessionID)
	}
	return sess, nil
}

// replaySource rebuilds an in-memory source from a session's recorded part
// paths, reading each part as its own document exactly as ProcessPart did,
// but without ever registering it in the Store (spec §4.7: Source 1 in an
// incremental session is never a named store entry).
func replaySource(partPaths []string) (mrfmodel.Source, error) {
	src := mrfmodel.Source{}
	for _, partPath := range partPaths {
		r := mrfstream.Open([]string{partPath})
		ex := mrfstream.NewExtractor(r)
		err := ex.Each(func(item mrfmodel.InNetworkItem) error {
			code := store.NormalizeCode(mrfstream.BillingCodeString(item.BillingCode))
			if code == "" {
				return nil
			}
			entry, ok := src[code]
			if !ok {
				entry = &mrfmodel.CptEntry{Description: item.Description}
				src[code] = entry
			} else {
				entry.Description = mrfmodel.UpgradeDescription(entry.Description, item.Description)
			}
			entry.Rates = append(entry.Rates, mrfmodel.RatesFromItem(item)...)
			return nil
		})
		r.Close()
		if err != nil {
			return nil, err
		}
	}
	return src, nil
}
