package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordWithDuration builds a record whose total duration and identity are
// exactly what the comparison math needs.
func recordWithDuration(name, initiator string, start, total float64) *RequestRecord {
	return Enrich(RawTimingEvent{
		Name:          name,
		InitiatorType: initiator,
		StartTime:     start,
		ResponseEnd:   start + total,
	}, "example.com")
}

func TestCompare_RegressionMath(t *testing.T) {
	store := NewBaselineStore(0)

	baseline := recordWithDuration("https://example.com/app.js", "script", 5, 100)
	store.Save("v1", []*RequestRecord{baseline})

	live := recordWithDuration("https://example.com/app.js", "script", 42, 250)
	err := store.Compare([]*RequestRecord{live}, "v1", Thresholds{Duration: 100, Size: 1 << 20})
	require.NoError(t, err)

	cmp := live.BaselineComparison
	require.NotNil(t, cmp)
	assert.Equal(t, "v1", cmp.BaselineVersion)
	assert.Equal(t, 250.0, cmp.CurrentValue)
	assert.Equal(t, 100.0, cmp.BaselineValue)
	assert.Equal(t, 150.0, cmp.Difference)
	require.NotNil(t, cmp.PercentageChange)
	assert.Equal(t, 150.0, *cmp.PercentageChange)
	assert.Equal(t, StatusRegressed, cmp.Status)
	assert.True(t, cmp.ThresholdExceeded)
	assert.Equal(t, AlertCritical, cmp.AlertLevel)
}

func TestCompare_ImprovementBar(t *testing.T) {
	store := NewBaselineStore(0)
	store.Save("v1", []*RequestRecord{recordWithDuration("https://example.com/app.js", "script", 5, 200)})

	live := recordWithDuration("https://example.com/app.js", "script", 9, 150)
	require.NoError(t, store.Compare([]*RequestRecord{live}, "v1", Thresholds{Duration: 100, Size: 1 << 20}))

	cmp := live.BaselineComparison
	require.NotNil(t, cmp)
	assert.Equal(t, StatusImproved, cmp.Status) // -25% clears the -10% bar
	assert.False(t, cmp.ThresholdExceeded)
	assert.Equal(t, AlertNone, cmp.AlertLevel)
}

func TestCompare_SmallDeltaIsNeutral(t *testing.T) {
	store := NewBaselineStore(0)
	store.Save("v1", []*RequestRecord{recordWithDuration("https://example.com/app.js", "script", 5, 100)})

	live := recordWithDuration("https://example.com/app.js", "script", 9, 105)
	require.NoError(t, store.Compare([]*RequestRecord{live}, "v1", Thresholds{Duration: 100, Size: 1 << 20}))

	cmp := live.BaselineComparison
	require.NotNil(t, cmp)
	assert.Equal(t, StatusNeutral, cmp.Status)
	assert.Equal(t, AlertNone, cmp.AlertLevel)
}

func TestCompare_ZeroBaselineDurationStaysNeutral(t *testing.T) {
	store := NewBaselineStore(0)
	store.Save("v1", []*RequestRecord{recordWithDuration("https://example.com/app.js", "script", 5, 0)})

	live := recordWithDuration("https://example.com/app.js", "script", 9, 500)
	require.NoError(t, store.Compare([]*RequestRecord{live}, "v1", Thresholds{Duration: 100, Size: 1 << 20}))

	cmp := live.BaselineComparison
	require.NotNil(t, cmp)
	// no meaningful percentage against a zero baseline
	assert.Nil(t, cmp.PercentageChange)
	assert.Equal(t, StatusNeutral, cmp.Status)
	// the absolute delta still counts toward threshold noise
	assert.True(t, cmp.ThresholdExceeded)
	assert.Equal(t, AlertWarning, cmp.AlertLevel)
}

func TestCompare_NoMatchLeavesComparisonNil(t *testing.T) {
	store := NewBaselineStore(0)
	store.Save("v1", []*RequestRecord{recordWithDuration("https://example.com/other.js", "script", 5, 100)})

	live := recordWithDuration("https://example.com/app.js", "script", 9, 250)
	require.NoError(t, store.Compare([]*RequestRecord{live}, "v1", Thresholds{Duration: 100, Size: 1 << 20}))

	// absence of a counterpart is not an error and fabricates nothing
	assert.Nil(t, live.BaselineComparison)
}

func TestCompare_MissingBaselineIsAnError(t *testing.T) {
	store := NewBaselineStore(0)

	err := store.Compare(nil, "nope", Thresholds{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestCompare_SizeDeltaAloneTriggersWarning(t *testing.T) {
	store := NewBaselineStore(0)

	baseline := recordWithDuration("https://example.com/app.js", "script", 5, 100)
	baseline.Raw.TransferSize = 10_000
	store.Save("v1", []*RequestRecord{baseline})

	live := recordWithDuration("https://example.com/app.js", "script", 9, 110)
	live.Raw.TransferSize = 500_000
	require.NoError(t, store.Compare([]*RequestRecord{live}, "v1", Thresholds{Duration: 100, Size: 100_000}))

	cmp := live.BaselineComparison
	require.NotNil(t, cmp)
	assert.Equal(t, StatusNeutral, cmp.Status)
	assert.True(t, cmp.ThresholdExceeded)
	assert.Equal(t, AlertWarning, cmp.AlertLevel)
}

func TestCompare_PositionalPairingForRepeatedKeys(t *testing.T) {
	store := NewBaselineStore(0)

	// two baseline calls to the same endpoint, in encounter order
	store.Save("v1", []*RequestRecord{
		recordWithDuration("https://example.com/api/data", "fetch", 5, 100),
		recordWithDuration("https://example.com/api/data", "fetch", 60, 400),
	})

	// three live calls: first pairs with 100, second with 400, third unmatched
	live := []*RequestRecord{
		recordWithDuration("https://example.com/api/data", "fetch", 9, 110),
		recordWithDuration("https://example.com/api/data", "fetch", 70, 410),
		recordWithDuration("https://example.com/api/data", "fetch", 130, 999),
	}
	require.NoError(t, store.Compare(live, "v1", Thresholds{Duration: 100, Size: 1 << 20}))

	require.NotNil(t, live[0].BaselineComparison)
	assert.Equal(t, 100.0, live[0].BaselineComparison.BaselineValue)
	require.NotNil(t, live[1].BaselineComparison)
	assert.Equal(t, 400.0, live[1].BaselineComparison.BaselineValue)
	assert.Nil(t, live[2].BaselineComparison)
}

func TestSnapshot_IsolatedFromLiveMutation(t *testing.T) {
	store := NewBaselineStore(0)

	rec := recordWithDuration("https://example.com/app.js", "script", 5, 100)
	store.Save("base", []*RequestRecord{rec})

	// mutate the live record after saving
	rec.Timing.Total = 9999
	rec.Insights = append(rec.Insights, Insight{Provider: "ai", ID: "1"})

	loaded, ok := store.Load("base")
	require.True(t, ok)
	require.Len(t, loaded, 1)
	assert.Equal(t, 100.0, loaded[0].Timing.Total)
	assert.Empty(t, loaded[0].Insights)
}

func TestLoad_ReturnsFreshCopyEachTime(t *testing.T) {
	store := NewBaselineStore(0)
	store.Save("base", []*RequestRecord{recordWithDuration("https://example.com/app.js", "script", 5, 100)})

	first, ok := store.Load("base")
	require.True(t, ok)
	first[0].Timing.Total = 1

	second, ok := store.Load("base")
	require.True(t, ok)
	assert.Equal(t, 100.0, second[0].Timing.Total)
}

func TestLoad_UnknownIDReportsNotFound(t *testing.T) {
	store := NewBaselineStore(0)

	records, ok := store.Load("missing")
	assert.False(t, ok)
	assert.Nil(t, records)
}

func TestSave_OverwritesExistingID(t *testing.T) {
	store := NewBaselineStore(0)

	store.Save("base", []*RequestRecord{recordWithDuration("https://example.com/a.js", "script", 5, 100)})
	store.Save("base", []*RequestRecord{recordWithDuration("https://example.com/b.js", "script", 5, 200)})

	loaded, ok := store.Load("base")
	require.True(t, ok)
	require.Len(t, loaded, 1)
	assert.Equal(t, "https://example.com/b.js", loaded[0].Raw.Name)
}

func TestStore_EvictsLeastRecentlyTouched(t *testing.T) {
	store := NewBaselineStore(2)

	store.Save("one", nil)
	store.Save("two", nil)

	// touch "one" so "two" becomes the eviction candidate
	_, ok := store.Load("one")
	require.True(t, ok)

	store.Save("three", nil)

	_, ok = store.Load("two")
	assert.False(t, ok)
	_, ok = store.Load("one")
	assert.True(t, ok)

	infos := store.List()
	assert.Len(t, infos, 2)
}
