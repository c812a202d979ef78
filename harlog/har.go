// Package harlog is the interchange boundary of the engine: it renders an
// enriched record set as an HTTP Archive (HAR 1.2) document with
// vendor-extension fields for the enrichment data, and reconstructs a
// record set from such a document.
//
// W3C Spec: https://w3c.github.io/web-performance/specs/HAR/Overview.html
package harlog

// Version of the HAR format this package writes.
const Version = "1.2"

// Document is the root of an interchange document.
type Document struct {
	Log *Log `json:"log"`
}

// Log holds the capture: one page, its navigation timings and every
// request entry.
type Log struct {
	// Version of the HAR format, "1.2".
	Version string `json:"version"`

	// Creator of this document.
	Creator Creator `json:"creator"`

	// Pages contains the single captured page and its navigation metrics.
	Pages []Page `json:"pages,omitempty"`

	// Entries contains one entry per enriched request record.
	Entries []Entry `json:"entries"`

	// Comment can be added to describe the particulars of this capture.
	Comment string `json:"comment,omitempty"`
}

// Creator describes the software that produced the document.
type Creator struct {
	// Name of the producing tool.
	Name string `json:"name"`

	// Version of the producing tool.
	Version string `json:"version"`
}

// Page is the captured page, carrying the navigation metrics alongside the
// standard HAR page timings.
type Page struct {
	// Start of the page load (ISO 8601).
	Start string `json:"startedDateTime"`

	// ID referenced by Entry.PageRef.
	ID string `json:"id"`

	// Title holds the page URL.
	Title string `json:"title"`

	// PageTimings contains the standard DOM timing pair.
	PageTimings PageTiming `json:"pageTimings"`

	// Non-standard navigation metrics this engine adds.
	FirstContentfulPaint   float64 `json:"_firstContentfulPaint,omitempty"`
	LargestContentfulPaint float64 `json:"_largestContentfulPaint,omitempty"`
	TimeToFirstByte        float64 `json:"_timeToFirstByte,omitempty"`
	DOMInteractive         float64 `json:"_domInteractive,omitempty"`
}

// PageTiming contains DOM-related page timing information.
type PageTiming struct {
	// OnContentLoad is milliseconds since Start until DOMContentLoaded.
	OnContentLoad float64 `json:"onContentLoad,omitempty"`

	// OnLoad is milliseconds since Start until the load event.
	OnLoad float64 `json:"onLoad,omitempty"`
}
