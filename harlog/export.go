package harlog

import (
	"encoding/json"
	"io"
	"time"

	"github.com/pagelens/pagelens/engine"
)

const pageID = "page_1"

// Export renders the record set and its navigation metrics as a
// self-contained interchange document. The records are read, never
// modified; annotation slots are copied as they stand at call time.
func Export(records []*engine.RequestRecord, nav engine.NavigationMetrics, pageURL, creatorName string) *Document {
	epoch := time.Now().UTC()

	doc := &Document{
		Log: &Log{
			Version: Version,
			Creator: Creator{Name: creatorName, Version: Version},
			Pages: []Page{{
				Start: epoch.Format(time.RFC3339Nano),
				ID:    pageID,
				Title: pageURL,
				PageTimings: PageTiming{
					OnContentLoad: nav.DOMContentLoaded,
					OnLoad:        nav.Load,
				},
				FirstContentfulPaint:   nav.FirstContentfulPaint,
				LargestContentfulPaint: nav.LargestContentfulPaint,
				TimeToFirstByte:        nav.TimeToFirstByte,
				DOMInteractive:         nav.DOMInteractive,
			}},
			Entries: make([]Entry, 0, len(records)),
		},
	}

	for _, rec := range records {
		doc.Log.Entries = append(doc.Log.Entries, exportEntry(rec, epoch))
	}

	return doc
}

// Write marshals the document as indented JSON.
func Write(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func exportEntry(rec *engine.RequestRecord, epoch time.Time) Entry {
	started := epoch.Add(time.Duration(rec.Raw.StartTime * float64(time.Millisecond)))

	entry := Entry{
		PageRef: pageID,
		Start:   started.Format(time.RFC3339Nano),
		Time:    rec.Timing.Total,
		Request: Request{
			Method:      "GET",
			URL:         rec.Raw.Name,
			HTTPVersion: rec.Protocol,
			Headers:     toPairs(rec.Raw.RequestHeaders),
			HeadersSize: notObservable,
			BodySize:    notObservable,
		},
		Response: Response{
			HTTPVersion: rec.Protocol,
			Headers:     toPairs(rec.Raw.ResponseHeaders),
			Body: BodyInfo{
				Size:        rec.Raw.DecodedBodySize,
				Compression: compressionSaved(rec.Raw),
			},
			HeadersSize: notObservable,
			BodySize:    notObservable,
		},
		Timings: Timings{
			Blocked: notObservable,
			DNS:     rec.Timing.DNSLookup,
			Connect: rec.Timing.TCPHandshake,
			SSL:     rec.Timing.SSLHandshake,
			Send:    notObservable,
			Wait:    rec.Timing.TimeToFirstByte,
			Receive: rec.Timing.Download,
		},
		StartTime:       rec.Raw.StartTime,
		InitiatorType:   rec.Raw.InitiatorType,
		Priority:        rec.Priority,
		ThirdParty:      rec.ThirdParty,
		TransferSize:    rec.Raw.TransferSize,
		EncodedBodySize: rec.Raw.EncodedBodySize,
		DecodedBodySize: rec.Raw.DecodedBodySize,
	}

	if rec.StatusCode != nil {
		entry.Response.StatusCode = *rec.StatusCode
	}
	if rec.CacheHit != nil {
		v := *rec.CacheHit
		entry.FromCache = &v
	}

	if len(rec.Insights) > 0 {
		entry.Insights = append([]engine.Insight(nil), rec.Insights...)
	}
	if len(rec.SecurityFindings) > 0 {
		entry.SecurityFindings = append([]engine.SecurityFinding(nil), rec.SecurityFindings...)
	}
	if rec.BaselineComparison != nil {
		cmp := *rec.BaselineComparison
		entry.BaselineComparison = &cmp
	}

	return entry
}

func toPairs(headers []engine.Header) []NameValuePair {
	out := make([]NameValuePair, len(headers))
	for i, h := range headers {
		out[i] = NameValuePair{Name: h.Name, Value: h.Value}
	}
	return out
}

func compressionSaved(raw engine.RawTimingEvent) int64 {
	if raw.EncodedBodySize > 0 && raw.DecodedBodySize > raw.EncodedBodySize {
		return raw.DecodedBodySize - raw.EncodedBodySize
	}
	return 0
}
