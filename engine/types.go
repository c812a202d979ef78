package engine

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// RawTimingEvent is one observed resource load as reported by the capture
// source (the browser's PerformanceResourceTiming API). All timestamps are
// milliseconds relative to navigation start. Produced once, never mutated.
type RawTimingEvent struct {
	// Name is the full URL of the resource.
	Name string `json:"name"`

	// InitiatorType tags what triggered the load: "script", "css", "img",
	// "fetch", "xmlhttprequest", etc.
	InitiatorType string `json:"initiatorType"`

	StartTime             float64 `json:"startTime"`
	DomainLookupStart     float64 `json:"domainLookupStart"`
	DomainLookupEnd       float64 `json:"domainLookupEnd"`
	ConnectStart          float64 `json:"connectStart"`
	ConnectEnd            float64 `json:"connectEnd"`
	SecureConnectionStart float64 `json:"secureConnectionStart"`
	RequestStart          float64 `json:"requestStart"`
	ResponseStart         float64 `json:"responseStart"`
	ResponseEnd           float64 `json:"responseEnd"`

	// TransferSize is bytes moved over the wire, 0 for cache hits.
	TransferSize    int64 `json:"transferSize"`
	EncodedBodySize int64 `json:"encodedBodySize"`
	DecodedBodySize int64 `json:"decodedBodySize"`

	// Optional metadata some capture sources supply. Nil/empty means the
	// source did not report it; it is never guessed.
	Protocol   string `json:"protocol,omitempty"`
	StatusCode *int   `json:"statusCode,omitempty"`
	Priority   string `json:"priority,omitempty"`
	FromCache  *bool  `json:"fromCache,omitempty"`

	// Headers are present only when the capture source intercepts them;
	// plain resource-timing observation does not.
	RequestHeaders  []Header `json:"requestHeaders,omitempty"`
	ResponseHeaders []Header `json:"responseHeaders,omitempty"`
}

// Header is one captured request or response header.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RequestKey identifies one resource load within a capture session.
// Two loads of the same URL get distinct keys because their start times
// differ; re-delivery of the same load collides and is dropped.
type RequestKey struct {
	Name      string
	StartTime float64
}

// Hash returns a stable 64-bit digest of the key, used for intern shard
// selection and snapshot content hashing.
func (k RequestKey) Hash() uint64 {
	d := xxhash.New()
	d.WriteString(k.Name)
	d.WriteString("|")
	d.WriteString(strconv.FormatFloat(k.StartTime, 'f', -1, 64))
	return d.Sum64()
}

func (k RequestKey) String() string {
	return fmt.Sprintf("%s@%.3f", k.Name, k.StartTime)
}

// BaselineKey is the looser identity used to match records across capture
// runs, where exact start times never line up.
type BaselineKey struct {
	Name          string
	InitiatorType string
}

// PhaseTiming holds the durations derived from a raw event's timestamps.
// All values are clamped non-negative milliseconds.
type PhaseTiming struct {
	DNSLookup       float64 `json:"dnsLookup"`
	TCPHandshake    float64 `json:"tcpHandshake"`
	SSLHandshake    float64 `json:"sslHandshake"`
	TimeToFirstByte float64 `json:"timeToFirstByte"`
	Download        float64 `json:"download"`

	// Total is the wall-clock duration of the load (start to response end).
	Total float64 `json:"total"`
}

// RequestRecord is the enriched form of one raw event. Derived fields are a
// pure function of Raw; the annotation slots (Insights, SecurityFindings,
// BaselineComparison) are the only parts that grow after creation.
type RequestRecord struct {
	Key RequestKey     `json:"-"`
	Raw RawTimingEvent `json:"raw"`

	Timing     PhaseTiming `json:"timing"`
	ThirdParty bool        `json:"thirdParty"`

	// Carried through from the raw event when the capture source supplied
	// them, absent otherwise.
	Protocol   string `json:"protocol,omitempty"`
	StatusCode *int   `json:"statusCode,omitempty"`
	Priority   string `json:"priority,omitempty"`
	CacheHit   *bool  `json:"cacheHit,omitempty"`

	Insights           []Insight         `json:"insights,omitempty"`
	SecurityFindings   []SecurityFinding `json:"securityFindings,omitempty"`
	BaselineComparison *RegressionResult `json:"baselineComparison,omitempty"`
}

// BaselineMatchKey returns the cross-run identity of the record.
func (r *RequestRecord) BaselineMatchKey() BaselineKey {
	return BaselineKey{Name: r.Raw.Name, InitiatorType: r.Raw.InitiatorType}
}

// InsightKind tags what an insight is about, so consumers can switch
// exhaustively instead of sniffing free-form payloads.
type InsightKind string

const (
	InsightMedia    InsightKind = "media"
	InsightDocument InsightKind = "document"
	InsightCode     InsightKind = "code"
	InsightLink     InsightKind = "link"
	InsightCost     InsightKind = "cost"
)

// Insight is an asynchronously produced annotation for one record.
// (Provider, ID) is the idempotency key: re-attaching the same insight is
// a no-op.
type Insight struct {
	Provider     string      `json:"provider"`
	ID           string      `json:"id"`
	Kind         InsightKind `json:"kind"`
	Summary      string      `json:"summary"`
	CostEstimate *float64    `json:"costEstimate,omitempty"`
}

// FindingSeverity grades a security finding.
type FindingSeverity string

const (
	SeverityInfo     FindingSeverity = "info"
	SeverityWarning  FindingSeverity = "warning"
	SeverityCritical FindingSeverity = "critical"
)

// SecurityFinding is a scanner-produced annotation, attached with the same
// (Provider, ID) idempotency as insights.
type SecurityFinding struct {
	Provider string          `json:"provider"`
	ID       string          `json:"id"`
	Severity FindingSeverity `json:"severity"`
	Rule     string          `json:"rule"`
	Detail   string          `json:"detail,omitempty"`
}

// ComparisonStatus classifies a live metric against its baseline.
type ComparisonStatus string

const (
	StatusImproved  ComparisonStatus = "improved"
	StatusRegressed ComparisonStatus = "regressed"
	StatusNeutral   ComparisonStatus = "neutral"
)

// AlertLevel grades how loudly a comparison should be surfaced.
type AlertLevel string

const (
	AlertNone     AlertLevel = "none"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Thresholds configures when a baseline delta counts as significant.
type Thresholds struct {
	// Duration is the absolute total-duration delta, in milliseconds.
	Duration float64 `json:"durationMs" mapstructure:"duration_ms"`

	// Size is the absolute transfer-size delta, in bytes.
	Size int64 `json:"sizeBytes" mapstructure:"size_bytes"`
}

// DefaultThresholds are used when the caller supplies none.
var DefaultThresholds = Thresholds{
	Duration: 100,
	Size:     50 * 1024,
}

// RegressionResult is the outcome of diffing one live record against its
// baseline counterpart.
type RegressionResult struct {
	BaselineVersion string  `json:"baselineVersion"`
	Metric          string  `json:"metric"`
	CurrentValue    float64 `json:"currentValue"`
	BaselineValue   float64 `json:"baselineValue"`
	Difference      float64 `json:"difference"`

	// PercentageChange is nil when the baseline value is zero; there is no
	// meaningful percentage against a zero baseline.
	PercentageChange *float64 `json:"percentageChange,omitempty"`

	Status            ComparisonStatus `json:"status"`
	ThresholdExceeded bool             `json:"thresholdExceeded"`
	AlertLevel        AlertLevel       `json:"alertLevel"`
}

// NavigationMetrics are the page-level timings that accompany a capture.
// Zero means unreported.
type NavigationMetrics struct {
	DOMContentLoaded       float64 `json:"domContentLoaded,omitempty"`
	Load                   float64 `json:"load,omitempty"`
	FirstContentfulPaint   float64 `json:"firstContentfulPaint,omitempty"`
	LargestContentfulPaint float64 `json:"largestContentfulPaint,omitempty"`
	TimeToFirstByte        float64 `json:"timeToFirstByte,omitempty"`
	DOMInteractive         float64 `json:"domInteractive,omitempty"`
}
