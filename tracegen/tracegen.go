// Package tracegen generates deterministic synthetic resource-timing
// captures. Tests and the gen command use it so nothing in this repository
// ever needs a live browser to produce data.
package tracegen

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/pagelens/pagelens/engine"
	"github.com/pagelens/pagelens/harlog"
)

// GenerateOptions configures capture generation.
type GenerateOptions struct {
	// EventCount is the number of resource loads to generate.
	EventCount int

	// Seed makes generation reproducible; 0 seeds from the clock.
	Seed int64

	// PageURL is the captured page; defaults to https://example.com/.
	PageURL string

	// ThirdPartyRatio is the approximate fraction of events pointing at
	// foreign hosts (0..1, default 0.3).
	ThirdPartyRatio float64

	// CachedRatio is the approximate fraction of cache hits (0..1,
	// default 0.2).
	CachedRatio float64

	// WithMetadata adds protocol/status/priority/cache metadata to every
	// event, as a capture source with devtools access would.
	WithMetadata bool
}

// DefaultGenerateOptions provides sensible defaults.
var DefaultGenerateOptions = GenerateOptions{
	EventCount:      25,
	PageURL:         "https://example.com/",
	ThirdPartyRatio: 0.3,
	CachedRatio:     0.2,
	WithMetadata:    true,
}

// GenerateResult is a synthetic capture.
type GenerateResult struct {
	PageURL    string
	Events     []engine.RawTimingEvent
	Navigation engine.NavigationMetrics
}

var initiatorTypes = []string{"script", "css", "img", "fetch", "xmlhttprequest", "link", "font"}

var pathWords = []string{
	"assets", "static", "media", "api", "cdn", "fonts", "img", "js", "css",
	"vendor", "chunk", "bundle", "main", "app", "shared", "widget", "data",
	"analytics", "track", "pixel", "session", "profile", "search", "feed",
}

var thirdPartyHosts = []string{
	"cdn.jsdelivr.net", "fonts.gstatic.com", "www.google-analytics.com",
	"static.adhost.example", "metrics.vendor.example",
}

var protocols = []string{"h2", "http/1.1", "h3"}
var priorities = []string{"VeryHigh", "High", "Medium", "Low"}

// Generate creates a synthetic capture in memory.
func Generate(opts GenerateOptions) *GenerateResult {
	if opts.EventCount <= 0 {
		opts.EventCount = DefaultGenerateOptions.EventCount
	}
	if opts.PageURL == "" {
		opts.PageURL = DefaultGenerateOptions.PageURL
	}
	if opts.ThirdPartyRatio == 0 {
		opts.ThirdPartyRatio = DefaultGenerateOptions.ThirdPartyRatio
	}
	if opts.CachedRatio == 0 {
		opts.CachedRatio = DefaultGenerateOptions.CachedRatio
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	pageHost := hostFromURL(opts.PageURL)

	result := &GenerateResult{
		PageURL: opts.PageURL,
		Events:  make([]engine.RawTimingEvent, 0, opts.EventCount),
	}

	for i := 0; i < opts.EventCount; i++ {
		result.Events = append(result.Events, generateEvent(rng, i, pageHost, opts))
	}

	result.Navigation = generateNavigation(rng)

	return result
}

// WriteCapture generates a capture and writes it to path as an interchange
// document.
func WriteCapture(path string, opts GenerateOptions) (*GenerateResult, error) {
	result := Generate(opts)

	session := engine.NewSession(engine.Config{PageURL: result.PageURL})
	defer session.Close()
	session.Ingest(result.Events)
	session.SetNavigationMetrics(result.Navigation)

	doc := harlog.Export(session.Records(), result.Navigation, result.PageURL, "tracegen")

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file: %w", err)
	}
	defer f.Close()

	if err := harlog.Write(f, doc); err != nil {
		return nil, fmt.Errorf("failed to write capture file: %w", err)
	}

	return result, nil
}

func generateEvent(rng *rand.Rand, index int, pageHost string, opts GenerateOptions) engine.RawTimingEvent {
	host := pageHost
	if rng.Float64() < opts.ThirdPartyRatio {
		host = thirdPartyHosts[rng.Intn(len(thirdPartyHosts))]
	}

	cached := rng.Float64() < opts.CachedRatio

	// stagger loads so keys never collide
	start := float64(index)*rng.Float64()*40 + float64(index)

	ev := engine.RawTimingEvent{
		Name:            generateURL(rng, host),
		InitiatorType:   initiatorTypes[rng.Intn(len(initiatorTypes))],
		StartTime:       start,
		DecodedBodySize: int64(rng.Intn(250_000) + 500),
	}

	if cached {
		// cached loads report zeroed network phases and no transfer
		ev.DomainLookupStart = start
		ev.DomainLookupEnd = start
		ev.ConnectStart = start
		ev.ConnectEnd = start
		ev.RequestStart = start
		ev.ResponseStart = start + rng.Float64()*2
		ev.ResponseEnd = ev.ResponseStart + rng.Float64()*3
	} else {
		dns := rng.Float64() * 40
		connect := rng.Float64() * 60
		ssl := rng.Float64() * connect * 0.6
		wait := rng.Float64() * 300
		download := rng.Float64() * 150

		ev.DomainLookupStart = start + 1
		ev.DomainLookupEnd = ev.DomainLookupStart + dns
		ev.ConnectStart = ev.DomainLookupEnd
		ev.ConnectEnd = ev.ConnectStart + connect
		ev.SecureConnectionStart = ev.ConnectEnd - ssl
		ev.RequestStart = ev.ConnectEnd
		ev.ResponseStart = ev.RequestStart + wait
		ev.ResponseEnd = ev.ResponseStart + download

		ev.EncodedBodySize = ev.DecodedBodySize * int64(40+rng.Intn(60)) / 100
		ev.TransferSize = ev.EncodedBodySize + int64(rng.Intn(800))
	}

	if opts.WithMetadata {
		status := pickStatus(rng)
		ev.Protocol = protocols[rng.Intn(len(protocols))]
		ev.StatusCode = &status
		ev.Priority = priorities[rng.Intn(len(priorities))]
		hit := cached
		ev.FromCache = &hit
	}

	return ev
}

func generateURL(rng *rand.Rand, host string) string {
	a := pathWords[rng.Intn(len(pathWords))]
	b := pathWords[rng.Intn(len(pathWords))]
	return fmt.Sprintf("https://%s/%s/%s-%04d.%s", host, a, b, rng.Intn(10000), pickExtension(rng))
}

func pickExtension(rng *rand.Rand) string {
	exts := []string{"js", "css", "png", "woff2", "json", "svg"}
	return exts[rng.Intn(len(exts))]
}

func pickStatus(rng *rand.Rand) int {
	// mostly 200s with a sprinkling of redirects and failures
	switch v := rng.Intn(20); {
	case v < 15:
		return 200
	case v < 17:
		return 304
	case v < 18:
		return 302
	case v < 19:
		return 404
	default:
		return 500
	}
}

func generateNavigation(rng *rand.Rand) engine.NavigationMetrics {
	ttfb := 50 + rng.Float64()*200
	dcl := ttfb + 200 + rng.Float64()*800
	return engine.NavigationMetrics{
		TimeToFirstByte:        ttfb,
		DOMContentLoaded:       dcl,
		DOMInteractive:         dcl - rng.Float64()*100,
		FirstContentfulPaint:   dcl + rng.Float64()*300,
		LargestContentfulPaint: dcl + 200 + rng.Float64()*900,
		Load:                   dcl + 400 + rng.Float64()*1200,
	}
}

func hostFromURL(pageURL string) string {
	// tolerate bare hosts in options
	for i := 0; i+2 < len(pageURL); i++ {
		if pageURL[i] == ':' && pageURL[i+1] == '/' && pageURL[i+2] == '/' {
			rest := pageURL[i+3:]
			for j := 0; j < len(rest); j++ {
				if rest[j] == '/' {
					return rest[:j]
				}
			}
			return rest
		}
	}
	return pageURL
}
