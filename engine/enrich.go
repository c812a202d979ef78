package engine

import (
	"net/url"
	"strings"

	"github.com/Motmedel/utils_go/pkg/net/domain_breakdown"
)

// Enrich derives a RequestRecord from one raw timing event. It is a pure
// function of its inputs: the same event and page host always produce the
// same derived fields. It never fails — malformed timing data degrades to
// zeroed phases and a conservative third-party classification, because a
// missing metric must not hide the resource.
func Enrich(raw RawTimingEvent, pageHost string) *RequestRecord {
	rec := &RequestRecord{
		Key:        RequestKey{Name: raw.Name, StartTime: raw.StartTime},
		Raw:        raw,
		Timing:     derivePhases(raw),
		ThirdParty: classifyThirdParty(raw.Name, pageHost),
		Protocol:   raw.Protocol,
		Priority:   raw.Priority,
	}

	// optional metadata is copied, never fabricated
	if raw.StatusCode != nil {
		code := *raw.StatusCode
		rec.StatusCode = &code
	}
	if raw.FromCache != nil {
		hit := *raw.FromCache
		rec.CacheHit = &hit
	}

	return rec
}

// derivePhases computes the sub-phase durations. Browsers report coalesced
// or zeroed phases for cached and cross-origin resources, so every
// difference is clamped at zero rather than propagated negative.
func derivePhases(raw RawTimingEvent) PhaseTiming {
	t := PhaseTiming{
		DNSLookup:       clamp(raw.DomainLookupEnd - raw.DomainLookupStart),
		TCPHandshake:    clamp(raw.ConnectEnd - raw.ConnectStart),
		TimeToFirstByte: clamp(raw.ResponseStart - raw.RequestStart),
		Download:        clamp(raw.ResponseEnd - raw.ResponseStart),
		Total:           clamp(raw.ResponseEnd - raw.StartTime),
	}

	// secureConnectionStart is 0 when no TLS negotiation happened
	if raw.SecureConnectionStart > 0 {
		t.SSLHandshake = clamp(raw.ConnectEnd - raw.SecureConnectionStart)
	}

	return t
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// classifyThirdParty reports whether resource does not belong to the page's
// own site. Hosts sharing the page's registered domain (including
// subdomains) are first-party; anything else, including unparseable URLs,
// is conservatively third-party.
func classifyThirdParty(resource, pageHost string) bool {
	if pageHost == "" {
		return true
	}

	parsed, err := url.Parse(resource)
	if err != nil || parsed.Hostname() == "" {
		return true
	}
	resourceHost := strings.ToLower(parsed.Hostname())
	pageHost = strings.ToLower(pageHost)

	if resourceHost == pageHost {
		return false
	}

	resourceBreakdown := domain_breakdown.GetDomainBreakdown(resourceHost)
	pageBreakdown := domain_breakdown.GetDomainBreakdown(pageHost)
	if resourceBreakdown != nil && pageBreakdown != nil {
		return resourceBreakdown.RegisteredDomain != pageBreakdown.RegisteredDomain
	}

	// breakdown fails for IPs, localhost and private suffixes; fall back to
	// a plain subdomain check
	return !strings.HasSuffix(resourceHost, "."+pageHost)
}

// hostOf extracts the hostname of a page URL, or "" if it has none.
func hostOf(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
