package engine

import "strings"

// TriState is a three-valued filter field: unconstrained, must-be-true or
// must-be-false.
type TriState int

const (
	Any TriState = iota
	Yes
	No
)

// matches reports whether a boolean value satisfies the tri-state. An
// absent underlying value (nil) only satisfies Any.
func (t TriState) matches(v *bool) bool {
	switch t {
	case Yes:
		return v != nil && *v
	case No:
		return v != nil && !*v
	default:
		return true
	}
}

// FilterCriteria narrows a record set. Every zero-valued field means "no
// constraint"; all present fields must hold simultaneously.
type FilterCriteria struct {
	// Search matches case-insensitively against the URL, initiator type
	// and protocol.
	Search string

	// InitiatorType requires an exact type match ("script", "img", ...).
	InitiatorType string

	// Domain requires the resource host to equal the given host or be one
	// of its subdomains.
	Domain string

	// StatusBucket is a coarse status class: "2xx", "3xx", "4xx" or "5xx".
	// Records without a captured status never match a bucket.
	StatusBucket string

	MinDuration *float64
	MaxDuration *float64
	MinSize     *int64
	MaxSize     *int64

	ThirdParty TriState
	Cached     TriState
}

// ApplyFilters returns the records satisfying every present criterion. The
// input slice is never mutated and the result is always a fresh slice, so
// repeated application is safe and composes: filtering by {a, b} equals
// filtering by {a} then {b}.
func ApplyFilters(records []*RequestRecord, criteria FilterCriteria) []*RequestRecord {
	out := make([]*RequestRecord, 0, len(records))
	for _, rec := range records {
		if matchesCriteria(rec, criteria) {
			out = append(out, rec)
		}
	}
	return out
}

func matchesCriteria(rec *RequestRecord, c FilterCriteria) bool {
	if c.Search != "" && !matchesSearch(rec, c.Search) {
		return false
	}
	if c.InitiatorType != "" && rec.Raw.InitiatorType != c.InitiatorType {
		return false
	}
	if c.Domain != "" && !matchesDomain(rec.Raw.Name, c.Domain) {
		return false
	}
	if c.StatusBucket != "" && !matchesStatusBucket(rec.StatusCode, c.StatusBucket) {
		return false
	}

	if c.MinDuration != nil && rec.Timing.Total < *c.MinDuration {
		return false
	}
	if c.MaxDuration != nil && rec.Timing.Total > *c.MaxDuration {
		return false
	}
	if c.MinSize != nil && rec.Raw.TransferSize < *c.MinSize {
		return false
	}
	if c.MaxSize != nil && rec.Raw.TransferSize > *c.MaxSize {
		return false
	}

	thirdParty := rec.ThirdParty
	if !c.ThirdParty.matches(&thirdParty) {
		return false
	}
	if !c.Cached.matches(rec.CacheHit) {
		return false
	}

	return true
}

func matchesSearch(rec *RequestRecord, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(rec.Raw.Name), term) ||
		strings.Contains(strings.ToLower(rec.Raw.InitiatorType), term) ||
		strings.Contains(strings.ToLower(rec.Protocol), term)
}

func matchesDomain(resource, domain string) bool {
	host := hostOf(resource)
	if host == "" {
		return false
	}
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func matchesStatusBucket(status *int, bucket string) bool {
	if status == nil || len(bucket) != 3 {
		return false
	}
	switch bucket[0] {
	case '2':
		return *status >= 200 && *status < 300
	case '3':
		return *status >= 300 && *status < 400
	case '4':
		return *status >= 400 && *status < 500
	case '5':
		return *status >= 500 && *status < 600
	default:
		return false
	}
}
