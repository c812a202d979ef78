package harlog

import "github.com/pagelens/pagelens/engine"

// Entry describes one request-response pair. Fields prefixed with an
// underscore in their JSON names are vendor extensions carrying the
// enrichment and annotation data this engine adds beyond plain HAR.
type Entry struct {
	// PageRef references the parent Page.ID.
	PageRef string `json:"pageref,omitempty"`

	// Start of the request (ISO 8601).
	Start string `json:"startedDateTime"`

	// Time is the total duration in milliseconds.
	Time float64 `json:"time"`

	// Request details.
	Request Request `json:"request"`

	// Response details.
	Response Response `json:"response"`

	// Timings contains the phase breakdown of the round trip.
	Timings Timings `json:"timings"`

	// StartTime is the raw start offset (ms since navigation start); HAR
	// has no field for it, and without it record identity is lost.
	StartTime float64 `json:"_startTime"`

	// InitiatorType tags what triggered the load.
	InitiatorType string `json:"_initiatorType,omitempty"`

	// Priority is the browser's fetch priority, if reported.
	Priority string `json:"_priority,omitempty"`

	// FromCache is the capture source's cache verdict, absent if unknown.
	FromCache *bool `json:"_fromCache,omitempty"`

	// ThirdParty is the engine's first/third-party classification.
	ThirdParty bool `json:"_thirdParty,omitempty"`

	// Wire and body sizes from resource timing.
	TransferSize    int64 `json:"_transferSize"`
	EncodedBodySize int64 `json:"_encodedBodySize,omitempty"`
	DecodedBodySize int64 `json:"_decodedBodySize,omitempty"`

	// Annotations attached while the record was live.
	Insights         []engine.Insight         `json:"_insights,omitempty"`
	SecurityFindings []engine.SecurityFinding `json:"_securityFindings,omitempty"`

	// BaselineComparison is the regression verdict, if a compare ran.
	BaselineComparison *engine.RegressionResult `json:"_baselineComparison,omitempty"`
}

// Request contains the request description.
type Request struct {
	// Method of the HTTP request. Resource timing does not observe the
	// method; GET is recorded unless the capture source knew better.
	Method string `json:"method"`

	// URL of the request (absolute).
	URL string `json:"url"`

	// HTTPVersion carries the negotiated protocol when reported.
	HTTPVersion string `json:"httpVersion"`

	// Headers sent with the request, when the capture source saw them.
	Headers []NameValuePair `json:"headers"`

	// HeadersSize in bytes, -1 when not captured.
	HeadersSize int `json:"headersSize"`

	// BodySize in bytes, -1 when not captured.
	BodySize int `json:"bodySize"`
}

// Response contains the response description.
type Response struct {
	// StatusCode of the response, 0 when the capture source did not
	// report one.
	StatusCode int `json:"status"`

	// StatusText describes the status; left empty when unreported.
	StatusText string `json:"statusText"`

	// HTTPVersion of the response.
	HTTPVersion string `json:"httpVersion"`

	// Headers sent with the response, when captured.
	Headers []NameValuePair `json:"headers"`

	// Body describes the response body content sizes.
	Body BodyInfo `json:"content"`

	// HeadersSize in bytes, -1 when not captured.
	HeadersSize int `json:"headersSize"`

	// BodySize of the response body as sent, -1 when not captured.
	BodySize int `json:"bodySize"`
}

// BodyInfo holds what resource timing knows about the response body.
type BodyInfo struct {
	// Size of the decompressed content in bytes.
	Size int64 `json:"size"`

	// Compression is the number of bytes saved by transfer encoding.
	Compression int64 `json:"compression,omitempty"`

	// MIMEType of the content; resource timing does not expose it.
	MIMEType string `json:"mimeType"`
}

// NameValuePair is a name and value, paired.
type NameValuePair struct {
	// Name of the parameter.
	Name string `json:"name"`

	// Value of the parameter.
	Value string `json:"value"`
}

// Timings contains the phase breakdown in the HAR vocabulary. A value of
// -1 means the phase does not apply or was not observable — resource
// timing cannot see queueing (blocked) or request write (send).
type Timings struct {
	// Blocked is time queued waiting for a connection.
	Blocked float64 `json:"blocked"`

	// DNS is the domain-name resolution time.
	DNS float64 `json:"dns"`

	// Connect is the time to establish the TCP connection.
	Connect float64 `json:"connect"`

	// SSL is the TLS negotiation time, included in Connect.
	SSL float64 `json:"ssl"`

	// Send is the time writing the request.
	Send float64 `json:"send"`

	// Wait is the time to first byte of the response.
	Wait float64 `json:"wait"`

	// Receive is the time reading the response body.
	Receive float64 `json:"receive"`
}

// notObservable marks HAR timing phases resource timing cannot supply.
const notObservable = -1
