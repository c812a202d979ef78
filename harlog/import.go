package harlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pagelens/pagelens/engine"
)

// Import validation errors. A structurally broken document is the one
// failure this boundary must surface: silently accepting it would replace
// the live record set with garbage.
var (
	ErrMissingLog     = errors.New("document has no log object")
	ErrMissingVersion = errors.New("log has no version")
	ErrMissingEntries = errors.New("log has no entries array")
)

// ImportResult is a reconstructed capture, ready for Session.Replace.
type ImportResult struct {
	Records    []*engine.RequestRecord
	Navigation engine.NavigationMetrics
	PageURL    string
}

// Read parses and imports an interchange document from r.
func Read(r io.Reader) (*ImportResult, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("malformed interchange document: %w", err)
	}
	return Import(&doc)
}

// Import reconstructs the record set an interchange document carries.
// Values are trusted as given — they already represent enriched data, so
// nothing is re-derived. The result is a full replacement for a live
// record set, not a merge.
func Import(doc *Document) (*ImportResult, error) {
	if err := validate(doc); err != nil {
		return nil, err
	}

	result := &ImportResult{
		Records: make([]*engine.RequestRecord, 0, len(doc.Log.Entries)),
	}

	if len(doc.Log.Pages) > 0 {
		page := doc.Log.Pages[0]
		result.PageURL = page.Title
		result.Navigation = engine.NavigationMetrics{
			DOMContentLoaded:       page.PageTimings.OnContentLoad,
			Load:                   page.PageTimings.OnLoad,
			FirstContentfulPaint:   page.FirstContentfulPaint,
			LargestContentfulPaint: page.LargestContentfulPaint,
			TimeToFirstByte:        page.TimeToFirstByte,
			DOMInteractive:         page.DOMInteractive,
		}
	}

	for i := range doc.Log.Entries {
		result.Records = append(result.Records, importEntry(&doc.Log.Entries[i]))
	}

	return result, nil
}

func validate(doc *Document) error {
	if doc == nil || doc.Log == nil {
		return ErrMissingLog
	}
	if doc.Log.Version == "" {
		return ErrMissingVersion
	}
	if doc.Log.Entries == nil {
		return ErrMissingEntries
	}
	return nil
}

func importEntry(entry *Entry) *engine.RequestRecord {
	raw := engine.RawTimingEvent{
		Name:            entry.Request.URL,
		InitiatorType:   entry.InitiatorType,
		StartTime:       entry.StartTime,
		TransferSize:    entry.TransferSize,
		EncodedBodySize: entry.EncodedBodySize,
		DecodedBodySize: entry.DecodedBodySize,
		Protocol:        entry.Request.HTTPVersion,
		Priority:        entry.Priority,
		RequestHeaders:  fromPairs(entry.Request.Headers),
		ResponseHeaders: fromPairs(entry.Response.Headers),
	}
	if entry.Response.StatusCode > 0 {
		code := entry.Response.StatusCode
		raw.StatusCode = &code
	}
	if entry.FromCache != nil {
		v := *entry.FromCache
		raw.FromCache = &v
	}

	rec := &engine.RequestRecord{
		Key:        engine.RequestKey{Name: raw.Name, StartTime: raw.StartTime},
		Raw:        raw,
		ThirdParty: entry.ThirdParty,
		Protocol:   raw.Protocol,
		Priority:   raw.Priority,
		Timing: engine.PhaseTiming{
			DNSLookup:       nonNegative(entry.Timings.DNS),
			TCPHandshake:    nonNegative(entry.Timings.Connect),
			SSLHandshake:    nonNegative(entry.Timings.SSL),
			TimeToFirstByte: nonNegative(entry.Timings.Wait),
			Download:        nonNegative(entry.Timings.Receive),
			Total:           nonNegative(entry.Time),
		},
	}
	if raw.StatusCode != nil {
		code := *raw.StatusCode
		rec.StatusCode = &code
	}
	if raw.FromCache != nil {
		v := *raw.FromCache
		rec.CacheHit = &v
	}

	if len(entry.Insights) > 0 {
		rec.Insights = append([]engine.Insight(nil), entry.Insights...)
	}
	if len(entry.SecurityFindings) > 0 {
		rec.SecurityFindings = append([]engine.SecurityFinding(nil), entry.SecurityFindings...)
	}
	if entry.BaselineComparison != nil {
		cmp := *entry.BaselineComparison
		rec.BaselineComparison = &cmp
	}

	return rec
}

func fromPairs(pairs []NameValuePair) []engine.Header {
	if len(pairs) == 0 {
		return nil
	}
	out := make([]engine.Header, len(pairs))
	for i, p := range pairs {
		out[i] = engine.Header{Name: p.Name, Value: p.Value}
	}
	return out
}

// nonNegative maps HAR's -1 "not available" marker (and any other junk a
// foreign tool wrote) to zero.
func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
