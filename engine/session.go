package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Config carries everything a session needs up front. There is no global
// state: every session is independently constructed and testable.
type Config struct {
	// PageURL is the page whose resources are being captured. Its host
	// anchors first-party vs third-party classification.
	PageURL string

	// Thresholds used when the host asks for a baseline comparison without
	// supplying its own. Zero value falls back to DefaultThresholds.
	Thresholds Thresholds

	// Logger receives debug-level notices (dropped duplicates, ignored
	// attaches). Nil means silent.
	Logger *slog.Logger

	// MaxSnapshots caps the session's baseline store; 0 uses the store
	// default.
	MaxSnapshots int
}

// Session owns the live record set for one capture. Ingestion, filtering,
// snapshotting and annotation all operate on this one state; a mutex keeps
// asynchronous annotation completions from interleaving with ingestion.
type Session struct {
	mu sync.RWMutex

	id       string
	pageURL  string
	pageHost string
	logger   *slog.Logger

	strings *internTable
	seen    map[RequestKey]int // key -> index into records
	records []*RequestRecord
	nav     NavigationMetrics

	thresholds Thresholds
	baselines  *BaselineStore

	// annotation tasks started for this session are bound to ctx; Close
	// cancels them and late completions are dropped
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// NewSession creates an empty capture session for the configured page.
func NewSession(cfg Config) *Session {
	thresholds := cfg.Thresholds
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		id:         uuid.NewString(),
		pageURL:    cfg.PageURL,
		pageHost:   hostOf(cfg.PageURL),
		logger:     cfg.Logger,
		strings:    newInternTable(),
		seen:       make(map[RequestKey]int),
		thresholds: thresholds,
		baselines:  NewBaselineStore(cfg.MaxSnapshots),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// PageURL returns the page this session is capturing.
func (s *Session) PageURL() string { return s.pageURL }

// Thresholds returns the session's configured comparison thresholds.
func (s *Session) Thresholds() Thresholds { return s.thresholds }

// Baselines exposes the session's snapshot store.
func (s *Session) Baselines() *BaselineStore { return s.baselines }

// Context is cancelled when the session closes. Annotation providers should
// derive their work from it so teardown abandons them cleanly.
func (s *Session) Context() context.Context { return s.ctx }

// Ingest normalizes a batch of raw events into the live record set. Events
// whose RequestKey is already present are dropped silently — re-delivery is
// a capture-source quirk, not an error — so feeding the same batch twice
// yields an empty second result. Returns only the genuinely new records, in
// the order received.
func (s *Session) Ingest(events []RawTimingEvent) []*RequestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	var added []*RequestRecord
	for _, ev := range events {
		ev.Name = s.strings.Intern(ev.Name)
		ev.InitiatorType = s.strings.Intern(ev.InitiatorType)
		ev.Protocol = s.strings.Intern(ev.Protocol)

		key := RequestKey{Name: ev.Name, StartTime: ev.StartTime}
		if _, dup := s.seen[key]; dup {
			if s.logger != nil {
				s.logger.Debug("dropping duplicate event", "key", key.String())
			}
			continue
		}

		rec := Enrich(ev, s.pageHost)
		s.seen[key] = len(s.records)
		s.records = append(s.records, rec)
		added = append(added, rec)
	}

	return added
}

// Records returns a snapshot copy of the live record slice. The records
// themselves are shared — their annotation slots may still grow — but the
// slice is the caller's own.
func (s *Session) Records() []*RequestRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*RequestRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the current record count.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Replace swaps in an entirely new record set, as an import does. Nothing
// from the previous live set survives.
func (s *Session) Replace(records []*RequestRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make([]*RequestRecord, 0, len(records))
	s.seen = make(map[RequestKey]int, len(records))
	for _, rec := range records {
		if _, dup := s.seen[rec.Key]; dup {
			continue
		}
		s.seen[rec.Key] = len(s.records)
		s.records = append(s.records, rec)
	}
}

// SetNavigationMetrics records the page-level timings for this capture.
func (s *Session) SetNavigationMetrics(nav NavigationMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav = nav
}

// NavigationMetrics returns the page-level timings recorded so far.
func (s *Session) NavigationMetrics() NavigationMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nav
}

// Close ends the session: pending annotation work is cancelled and any
// completions that still arrive are ignored. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// lookupLocked returns the record for key, or nil. Caller holds s.mu.
func (s *Session) lookupLocked(key RequestKey) *RequestRecord {
	idx, ok := s.seen[key]
	if !ok {
		return nil
	}
	return s.records[idx]
}
