package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachInsight_Idempotent(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	added := s.Ingest([]RawTimingEvent{eventAt("https://example.com/a.js", 10)})
	require.Len(t, added, 1)
	key := added[0].Key

	insight := Insight{Provider: "summarizer", ID: "a1", Kind: InsightCode, Summary: "minified bundle"}
	assert.True(t, s.AttachInsight(key, insight))
	assert.True(t, s.AttachInsight(key, insight)) // redelivery
	assert.True(t, s.AttachInsight(key, insight))

	records := s.Records()
	assert.Len(t, records[0].Insights, 1)
}

func TestAttachInsight_DistinctIDsAccumulate(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	added := s.Ingest([]RawTimingEvent{eventAt("https://example.com/a.js", 10)})
	key := added[0].Key

	s.AttachInsight(key, Insight{Provider: "summarizer", ID: "a1", Kind: InsightCode})
	s.AttachInsight(key, Insight{Provider: "summarizer", ID: "a2", Kind: InsightCost})
	s.AttachInsight(key, Insight{Provider: "tagger", ID: "a1", Kind: InsightMedia}) // same id, other provider

	assert.Len(t, s.Records()[0].Insights, 3)
}

func TestAttachInsight_UnknownKeyIsIgnored(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	ok := s.AttachInsight(RequestKey{Name: "https://example.com/ghost.js", StartTime: 1}, Insight{Provider: "x", ID: "1"})
	assert.False(t, ok)
}

func TestAttachInsight_AfterCloseIsIgnored(t *testing.T) {
	s := newTestSession()

	added := s.Ingest([]RawTimingEvent{eventAt("https://example.com/a.js", 10)})
	key := added[0].Key
	s.Close()

	// a late completion lands on a torn-down session: dropped, not an error
	assert.False(t, s.AttachInsight(key, Insight{Provider: "x", ID: "1"}))
}

func TestAttachSecurityFinding_Idempotent(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	added := s.Ingest([]RawTimingEvent{eventAt("http://example.com/a.js", 10)})
	key := added[0].Key

	finding := SecurityFinding{Provider: "scanner", ID: "mixed-1", Severity: SeverityWarning, Rule: "mixed-content"}
	assert.True(t, s.AttachSecurityFinding(key, finding))
	assert.True(t, s.AttachSecurityFinding(key, finding))

	assert.Len(t, s.Records()[0].SecurityFindings, 1)
}

// staticProvider annotates every record with one fixed insight.
type staticProvider struct {
	name string
	err  error
}

func (p *staticProvider) Name() string { return p.name }

func (p *staticProvider) Annotate(ctx context.Context, view RecordView) (Insight, error) {
	if p.err != nil {
		return Insight{}, p.err
	}
	return Insight{ID: view.Key.String(), Kind: InsightCode, Summary: "noted"}, nil
}

// slowScanner blocks until its context is cancelled.
type slowScanner struct{}

func (s *slowScanner) Name() string { return "slow" }

func (s *slowScanner) Scan(ctx context.Context, view RecordView) ([]SecurityFinding, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(30 * time.Second):
		return []SecurityFinding{{ID: "late", Severity: SeverityInfo, Rule: "never"}}, nil
	}
}

func TestPipeline_AttachesProviderResults(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	records := s.Ingest([]RawTimingEvent{
		eventAt("https://example.com/a.js", 10),
		eventAt("https://example.com/b.js", 20),
	})

	pipeline := NewAnnotationPipeline()
	pipeline.RegisterProvider(&staticProvider{name: "summarizer"})

	stats := pipeline.Run(s.Context(), s, records)

	assert.Equal(t, int64(2), stats.Dispatched)
	assert.Equal(t, int64(2), stats.Attached)
	for _, rec := range s.Records() {
		require.Len(t, rec.Insights, 1)
		assert.Equal(t, "summarizer", rec.Insights[0].Provider)
	}
}

func TestPipeline_RerunDoesNotDuplicate(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	records := s.Ingest([]RawTimingEvent{eventAt("https://example.com/a.js", 10)})

	pipeline := NewAnnotationPipeline()
	pipeline.RegisterProvider(&staticProvider{name: "summarizer"})

	pipeline.Run(s.Context(), s, records)
	pipeline.Run(s.Context(), s, records)

	assert.Len(t, s.Records()[0].Insights, 1)
}

func TestPipeline_ProviderErrorsAreDropped(t *testing.T) {
	s := newTestSession()
	defer s.Close()

	records := s.Ingest([]RawTimingEvent{eventAt("https://example.com/a.js", 10)})

	pipeline := NewAnnotationPipeline()
	pipeline.RegisterProvider(&staticProvider{name: "flaky", err: errors.New("model unavailable")})

	stats := pipeline.Run(s.Context(), s, records)

	assert.Equal(t, int64(1), stats.Failed)
	assert.Empty(t, s.Records()[0].Insights)
}

func TestPipeline_CancellationAbandonsWork(t *testing.T) {
	s := newTestSession()

	records := s.Ingest([]RawTimingEvent{
		eventAt("https://example.com/a.js", 10),
		eventAt("https://example.com/b.js", 20),
	})

	pipeline := NewAnnotationPipeline()
	pipeline.RegisterScanner(&slowScanner{})

	done := make(chan PipelineStats, 1)
	go func() {
		done <- pipeline.RunWith(s.Context(), s, records, PipelineOptions{WorkerCount: 2})
	}()

	// teardown while scans are in flight
	time.Sleep(20 * time.Millisecond)
	s.Close()

	select {
	case stats := <-done:
		assert.Zero(t, stats.Attached)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop after session close")
	}

	for _, rec := range s.Records() {
		assert.Empty(t, rec.SecurityFindings)
	}
}

func TestCollectAlerts_OnlyNonNoneLevels(t *testing.T) {
	pct := 150.0
	records := []*RequestRecord{
		{Raw: RawTimingEvent{Name: "a"}},
		{Raw: RawTimingEvent{Name: "b"}, BaselineComparison: &RegressionResult{AlertLevel: AlertNone}},
		{Raw: RawTimingEvent{Name: "c"}, BaselineComparison: &RegressionResult{
			AlertLevel: AlertCritical, Status: StatusRegressed, PercentageChange: &pct,
		}},
	}

	alerts := CollectAlerts(records)
	require.Len(t, alerts, 1)
	assert.Equal(t, "c", alerts[0].Name)
	assert.Equal(t, AlertCritical, alerts[0].Result.AlertLevel)
}

func TestExportMetricPoints_FlattensTimings(t *testing.T) {
	records := []*RequestRecord{
		{
			Raw:    RawTimingEvent{Name: "https://example.com/a.js", InitiatorType: "script", TransferSize: 1234},
			Timing: PhaseTiming{Total: 120, TimeToFirstByte: 80},
		},
	}

	points := ExportMetricPoints(records)
	require.Len(t, points, 7)

	byName := map[string]MetricPoint{}
	for _, p := range points {
		byName[p.Name] = p
	}
	assert.Equal(t, 120.0, byName["request.duration"].Value)
	assert.Equal(t, 80.0, byName["request.ttfb"].Value)
	assert.Equal(t, 1234.0, byName["request.transfer_size"].Value)
	assert.Equal(t, "script", byName["request.duration"].Tags["type"])
}
