package usage

import (
	"context"
	"testing"
	"time"

	"github.com/ScriptSmith/hadrian/tenant"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tenant.UsageRecord{}))
	return New(db, zap.NewNop())
}

func record(requestID, orgID string, recordedAt time.Time, costMicrocents int64) *tenant.UsageRecord {
	org := orgID
	return &tenant.UsageRecord{
		ID: requestID, RequestID: requestID, OrgID: &org,
		Model: "gpt-4", Provider: "openai",
		InputTokens: 10, OutputTokens: 20, TotalTokens: 30,
		CostMicrocents: costMicrocents, RecordedAt: recordedAt,
	}
}

func TestLedger_Log_DedupesByRequestID(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, l.Log(ctx, record("req-1", "org-1", now, 100)))
	require.NoError(t, l.Log(ctx, record("req-1", "org-1", now, 999))) // duplicate submission

	stats, err := l.Summary(ctx, DimensionOrg, OwnerFilter{}, DateRange{Start: now.Add(-time.Hour), End: now.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].RequestCount)
	assert.Equal(t, int64(100), stats[0].CostMicrocents)
}

func TestLedger_LogBatch_InsertsAndCountsOnlyNewRows(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	now := time.Now()

	entries := []tenant.UsageRecord{
		*record("req-1", "org-1", now, 10),
		*record("req-2", "org-1", now, 20),
	}
	n, err := l.LogBatch(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Re-submitting the same batch plus one new row inserts only the new one.
	entries = append(entries, *record("req-3", "org-1", now, 30))
	n, err = l.LogBatch(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLedger_LogBatch_Empty(t *testing.T) {
	l := testLedger(t)
	n, err := l.LogBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestLedger_Summary_FiltersByOwnerAndDateRange(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	inRange := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	outOfRange := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, l.Log(ctx, record("req-1", "org-1", inRange, 100)))
	require.NoError(t, l.Log(ctx, record("req-2", "org-2", inRange, 200)))
	require.NoError(t, l.Log(ctx, record("req-3", "org-1", outOfRange, 300)))

	rng := DateRange{Start: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)}
	buckets, err := l.Summary(ctx, DimensionOrg, OwnerFilter{Column: DimensionOrg, Value: "org-1"}, rng)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "org-1", buckets[0].DimKey)
	assert.Equal(t, int64(100), buckets[0].CostMicrocents)
}

func TestLedger_Breakdown_GroupsByDay(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	day1 := time.Date(2026, 6, 15, 1, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 6, 16, 1, 0, 0, 0, time.UTC)

	require.NoError(t, l.Log(ctx, record("req-1", "org-1", day1, 100)))
	require.NoError(t, l.Log(ctx, record("req-2", "org-1", day2, 200)))

	rng := DateRange{Start: day1, End: day2}
	buckets, err := l.Breakdown(ctx, DimensionOrg, OwnerFilter{}, rng)
	require.NoError(t, err)
	assert.Len(t, buckets, 2)
}

func TestLedger_GetUsageStats_ComputesMeanAndStdDev(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, cost := range []int64{100, 200, 300} {
		day := base.AddDate(0, 0, i)
		require.NoError(t, l.Log(ctx, record(string(rune('a'+i)), "org-1", day, cost)))
	}

	rng := DateRange{Start: base, End: base.AddDate(0, 0, 2)}
	stats, err := l.GetUsageStats(ctx, OwnerFilter{Column: DimensionOrg, Value: "org-1"}, rng)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.SampleDays)
	assert.InDelta(t, 200, stats.AvgDailySpendMicrocents, 0.001)
	assert.InDelta(t, 100, stats.StdDevDailySpendMicrocents, 0.001)
}

func TestLedger_GetUsageStats_NoRowsReturnsZeroValue(t *testing.T) {
	l := testLedger(t)
	stats, err := l.GetUsageStats(context.Background(), OwnerFilter{}, DateRange{Start: time.Now(), End: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.SampleDays)
}

// TestLedger_GetCurrentPeriodSpend_DailyUsesLocalMidnight guards against the
// regression where "daily" summed from now.Truncate(24*time.Hour) (a UTC
// epoch-aligned boundary) instead of the caller's local midnight: a record
// from earlier today but before UTC midnight would be silently excluded in
// any timezone east of UTC.
func TestLedger_GetCurrentPeriodSpend_DailyUsesLocalMidnight(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	now := time.Now()

	todayEarly := time.Date(now.Year(), now.Month(), now.Day(), 0, 30, 0, 0, now.Location())
	require.NoError(t, l.Log(ctx, record("req-today", "org-1", todayEarly, 500)))

	yesterday := todayEarly.AddDate(0, 0, -1)
	require.NoError(t, l.Log(ctx, record("req-yesterday", "org-1", yesterday, 999)))

	total, err := l.GetCurrentPeriodSpend(ctx, OwnerFilter{Column: DimensionOrg, Value: "org-1"}, "daily")
	require.NoError(t, err)
	assert.Equal(t, int64(500), total)
}

func TestLedger_GetCurrentPeriodSpend_Monthly(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	now := time.Now()

	thisMonth := time.Date(now.Year(), now.Month(), 1, 12, 0, 0, 0, now.Location())
	lastMonth := thisMonth.AddDate(0, -1, 0)
	require.NoError(t, l.Log(ctx, record("req-this", "org-1", thisMonth, 50)))
	require.NoError(t, l.Log(ctx, record("req-last", "org-1", lastMonth, 999)))

	total, err := l.GetCurrentPeriodSpend(ctx, OwnerFilter{Column: DimensionOrg, Value: "org-1"}, "monthly")
	require.NoError(t, err)
	assert.Equal(t, int64(50), total)
}

func TestLedger_GetCurrentPeriodSpend_UnknownPeriodReturnsZero(t *testing.T) {
	l := testLedger(t)
	total, err := l.GetCurrentPeriodSpend(context.Background(), OwnerFilter{}, "weekly")
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestLedger_DeleteUsageRecordsBefore_ZeroMaxDeletesIsNoop(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Log(ctx, record("req-1", "org-1", time.Now().Add(-48*time.Hour), 10)))

	n, err := l.DeleteUsageRecordsBefore(ctx, time.Now(), 100, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
