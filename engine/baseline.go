package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultMaxSnapshots bounds how many named baselines a store keeps before
// evicting the least recently touched one.
const DefaultMaxSnapshots = 32

// durationMetric names the metric every baseline comparison is computed
// over: the record's total load duration.
const durationMetric = "totalDuration"

// improvementBar is the fixed percentage drop below which a delta counts as
// an improvement.
const improvementBar = -10.0

// snapshot is one stored baseline: a deep copy of the records at save time.
type snapshot struct {
	id      string
	records []*RequestRecord
	savedAt time.Time
	hash    uint64
}

// SnapshotInfo describes a stored baseline without exposing its records.
type SnapshotInfo struct {
	ID      string
	Records int
	SavedAt time.Time
	Hash    uint64
}

// BaselineStore holds named immutable snapshots of a record set. Records go
// in as deep copies and come out as deep copies, so no stored snapshot is
// ever aliased by the live set — a capture continuing mid-save cannot
// corrupt what was stored.
type BaselineStore struct {
	mu        sync.Mutex
	snapshots map[string]*snapshot
	order     []string // least recently touched first
	max       int
}

// NewBaselineStore creates a store keeping at most max snapshots
// (DefaultMaxSnapshots when max <= 0).
func NewBaselineStore(max int) *BaselineStore {
	if max <= 0 {
		max = DefaultMaxSnapshots
	}
	return &BaselineStore{
		snapshots: make(map[string]*snapshot),
		max:       max,
	}
}

// Save deep-copies records and stores them under id, overwriting any prior
// snapshot with that id. Mutating the live set afterwards does not change
// what Load returns.
func (b *BaselineStore) Save(id string, records []*RequestRecord) {
	copied := make([]*RequestRecord, len(records))
	digest := xxhash.New()
	for i, rec := range records {
		copied[i] = rec.clone()
		fmt.Fprintf(digest, "%016x", rec.Key.Hash())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.snapshots[id]; exists {
		b.order = removeID(b.order, id)
	} else if len(b.order) >= b.max {
		oldest := b.order[0]
		delete(b.snapshots, oldest)
		b.order = b.order[1:]
	}

	b.snapshots[id] = &snapshot{
		id:      id,
		records: copied,
		savedAt: time.Now(),
		hash:    digest.Sum64(),
	}
	b.order = append(b.order, id)
}

// Load returns a deep copy of the snapshot stored under id, never the
// stored records themselves. The second return is false when no snapshot
// with that id exists.
func (b *BaselineStore) Load(id string) ([]*RequestRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, ok := b.snapshots[id]
	if !ok {
		return nil, false
	}

	b.order = removeID(b.order, id)
	b.order = append(b.order, id)

	out := make([]*RequestRecord, len(snap.records))
	for i, rec := range snap.records {
		out[i] = rec.clone()
	}
	return out, true
}

// List describes the stored snapshots, least recently touched first.
func (b *BaselineStore) List() []SnapshotInfo {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]SnapshotInfo, 0, len(b.order))
	for _, id := range b.order {
		snap := b.snapshots[id]
		out = append(out, SnapshotInfo{
			ID:      snap.id,
			Records: len(snap.records),
			SavedAt: snap.savedAt,
			Hash:    snap.hash,
		})
	}
	return out
}

// Compare diffs live records against the snapshot stored under baselineID,
// setting BaselineComparison on every live record that has a baseline
// counterpart. Records without a counterpart keep a nil comparison — an
// unmatched record is expected, not an error.
//
// Matching is by (name, initiatorType). When several records share that key
// (repeated calls to the same endpoint), pairing is positional: the nth
// live occurrence is compared against the nth baseline occurrence in
// encounter order, and leftovers on either side stay unmatched.
func (b *BaselineStore) Compare(live []*RequestRecord, baselineID string, thresholds Thresholds) error {
	b.mu.Lock()
	snap, ok := b.snapshots[baselineID]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("no baseline snapshot named %q", baselineID)
	}

	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds
	}

	byKey := make(map[BaselineKey][]*RequestRecord)
	for _, rec := range snap.records {
		k := rec.BaselineMatchKey()
		byKey[k] = append(byKey[k], rec)
	}

	cursor := make(map[BaselineKey]int)
	for _, rec := range live {
		k := rec.BaselineMatchKey()
		candidates := byKey[k]
		n := cursor[k]
		if n >= len(candidates) {
			continue // no counterpart left for this occurrence
		}
		cursor[k] = n + 1
		rec.BaselineComparison = compareRecord(rec, candidates[n], baselineID, thresholds)
	}

	return nil
}

// compareRecord computes the regression classification of one live record
// against its baseline counterpart.
func compareRecord(live, baseline *RequestRecord, baselineID string, thresholds Thresholds) *RegressionResult {
	current := live.Timing.Total
	base := baseline.Timing.Total
	difference := current - base

	result := &RegressionResult{
		BaselineVersion: baselineID,
		Metric:          durationMetric,
		CurrentValue:    current,
		BaselineValue:   base,
		Difference:      difference,
		Status:          StatusNeutral,
	}

	if base != 0 {
		pct := difference / base * 100
		result.PercentageChange = &pct

		switch {
		case difference > thresholds.Duration:
			result.Status = StatusRegressed
		case pct <= improvementBar:
			result.Status = StatusImproved
		}
	}

	sizeDelta := live.Raw.TransferSize - baseline.Raw.TransferSize
	result.ThresholdExceeded = abs(difference) > thresholds.Duration ||
		absInt64(sizeDelta) > thresholds.Size

	switch {
	case result.ThresholdExceeded && result.Status == StatusRegressed:
		result.AlertLevel = AlertCritical
	case result.ThresholdExceeded:
		result.AlertLevel = AlertWarning
	default:
		result.AlertLevel = AlertNone
	}

	return result
}

// clone deep-copies a record, including pointer-valued optional fields and
// annotation slices, so snapshots and loads never share mutable state with
// the source.
func (r *RequestRecord) clone() *RequestRecord {
	out := *r

	if r.StatusCode != nil {
		v := *r.StatusCode
		out.StatusCode = &v
	}
	if r.CacheHit != nil {
		v := *r.CacheHit
		out.CacheHit = &v
	}
	if r.Raw.StatusCode != nil {
		v := *r.Raw.StatusCode
		out.Raw.StatusCode = &v
	}
	if r.Raw.FromCache != nil {
		v := *r.Raw.FromCache
		out.Raw.FromCache = &v
	}
	if r.Raw.RequestHeaders != nil {
		out.Raw.RequestHeaders = append([]Header(nil), r.Raw.RequestHeaders...)
	}
	if r.Raw.ResponseHeaders != nil {
		out.Raw.ResponseHeaders = append([]Header(nil), r.Raw.ResponseHeaders...)
	}

	if r.Insights != nil {
		out.Insights = make([]Insight, len(r.Insights))
		for i, ins := range r.Insights {
			out.Insights[i] = ins
			if ins.CostEstimate != nil {
				v := *ins.CostEstimate
				out.Insights[i].CostEstimate = &v
			}
		}
	}
	if r.SecurityFindings != nil {
		out.SecurityFindings = append([]SecurityFinding(nil), r.SecurityFindings...)
	}
	if r.BaselineComparison != nil {
		cmp := *r.BaselineComparison
		if cmp.PercentageChange != nil {
			v := *cmp.PercentageChange
			cmp.PercentageChange = &v
		}
		out.BaselineComparison = &cmp
	}

	return &out
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
