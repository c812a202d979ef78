package engine

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey names a sortable record attribute.
type SortKey string

const (
	SortByName      SortKey = "name"
	SortByType      SortKey = "type"
	SortByDomain    SortKey = "domain"
	SortByStartTime SortKey = "startTime"
	SortByDuration  SortKey = "duration"
	SortByTTFB      SortKey = "ttfb"
	SortBySize      SortKey = "size"
	SortByStatus    SortKey = "status"
)

// SortDirection orders ascending or descending.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// Sorter sorts record sets. String keys compare through a collator so
// ordering follows locale rules rather than raw byte order; numeric keys
// compare numerically. Construct one and reuse it — collators are not cheap.
type Sorter struct {
	collator *collate.Collator
}

// NewSorter creates a sorter collating in the given language tag
// (language.Und for locale-neutral ordering).
func NewSorter(tag language.Tag) *Sorter {
	return &Sorter{collator: collate.New(tag)}
}

// Sort returns records ordered by key. The sort is stable — records that
// compare equal keep their relative input order, so re-sorting an already
// sorted slice by the same key changes nothing — and the input slice is
// never mutated.
func (s *Sorter) Sort(records []*RequestRecord, key SortKey, direction SortDirection) []*RequestRecord {
	out := make([]*RequestRecord, len(records))
	copy(out, records)

	less := s.lessFunc(key)
	if direction == Descending {
		inner := less
		less = func(a, b *RequestRecord) int { return -inner(a, b) }
	}

	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j]) < 0
	})

	return out
}

// SortRecords sorts with a locale-neutral collator. Callers sorting
// repeatedly should hold a Sorter instead.
func SortRecords(records []*RequestRecord, key SortKey, direction SortDirection) []*RequestRecord {
	return NewSorter(language.Und).Sort(records, key, direction)
}

// lessFunc returns a three-way comparator for the key. Unknown keys fall
// back to start time, the capture's natural order.
func (s *Sorter) lessFunc(key SortKey) func(a, b *RequestRecord) int {
	switch key {
	case SortByName:
		return func(a, b *RequestRecord) int {
			return s.collator.CompareString(a.Raw.Name, b.Raw.Name)
		}
	case SortByType:
		return func(a, b *RequestRecord) int {
			return s.collator.CompareString(a.Raw.InitiatorType, b.Raw.InitiatorType)
		}
	case SortByDomain:
		return func(a, b *RequestRecord) int {
			return s.collator.CompareString(hostOf(a.Raw.Name), hostOf(b.Raw.Name))
		}
	case SortByDuration:
		return func(a, b *RequestRecord) int {
			return compareFloat(a.Timing.Total, b.Timing.Total)
		}
	case SortByTTFB:
		return func(a, b *RequestRecord) int {
			return compareFloat(a.Timing.TimeToFirstByte, b.Timing.TimeToFirstByte)
		}
	case SortBySize:
		return func(a, b *RequestRecord) int {
			return compareInt64(a.Raw.TransferSize, b.Raw.TransferSize)
		}
	case SortByStatus:
		return func(a, b *RequestRecord) int {
			return compareInt(statusOrZero(a), statusOrZero(b))
		}
	default:
		return func(a, b *RequestRecord) int {
			return compareFloat(a.Raw.StartTime, b.Raw.StartTime)
		}
	}
}

func statusOrZero(r *RequestRecord) int {
	if r.StatusCode == nil {
		return 0
	}
	return *r.StatusCode
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
