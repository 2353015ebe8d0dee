// Package usage implements the UsageLedger: an append-only, idempotent
// per-request log with aggregations across the ownership graph and a
// retention sweep.
package usage

import (
	"context"
	"math"
	"time"

	"github.com/ScriptSmith/hadrian/tenant"
	"github.com/ScriptSmith/hadrian/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// batchChunkSize bounds each LogBatch INSERT's placeholder count well under
// the lowest-common-denominator dialect parameter limit (SQLite's default
// is 999 bind variables; a UsageRecord has ~25 columns).
const batchChunkSize = 35

// Ledger is the UsageLedger.
type Ledger struct {
	db     *gorm.DB
	logger *zap.Logger
}

func New(db *gorm.DB, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{db: db, logger: logger}
}

// Log inserts a single entry, silently skipping it if request_id already
// exists (retry-by-client or exactly-once-consumer duplicate submission).
func (l *Ledger) Log(ctx context.Context, entry *tenant.UsageRecord) error {
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "request_id"}}, DoNothing: true}).
		Create(entry).Error
	if err != nil {
		return types.DatabaseError("log usage failed", err)
	}
	return nil
}

// LogBatch inserts entries in chunks of batchChunkSize inside one
// transaction, accumulating rows actually inserted (duplicates don't count).
// A failure at any chunk rolls back the whole batch so the caller can safely
// retry it in full.
func (l *Ledger) LogBatch(ctx context.Context, entries []tenant.UsageRecord) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	var inserted int64
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(entries); start += batchChunkSize {
			end := start + batchChunkSize
			if end > len(entries) {
				end = len(entries)
			}
			chunk := entries[start:end]
			res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "request_id"}}, DoNothing: true}).
				Create(&chunk)
			if res.Error != nil {
				return types.DatabaseError("log usage batch failed", res.Error)
			}
			inserted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// DateRange is inclusive of Start and exclusive of End+1day, so every
// aggregation can use a half-open `recorded_at >= start AND recorded_at <
// end+1day` predicate that stays sargable against an index on recorded_at.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (d DateRange) halfOpenEnd() time.Time {
	return d.End.Truncate(24 * time.Hour).AddDate(0, 0, 1)
}

// Dimension names a grouping column for an aggregation.
type Dimension string

const (
	DimensionAPIKey        Dimension = "api_key_id"
	DimensionUser          Dimension = "user_id"
	DimensionProject       Dimension = "project_id"
	DimensionTeam          Dimension = "team_id"
	DimensionOrg           Dimension = "org_id"
	DimensionProvider      Dimension = "provider"
	DimensionModel         Dimension = "model"
	DimensionPricingSource Dimension = "pricing_source"
	DimensionReferer       Dimension = "http_referer"
)

// Bucket is one row of a dimension×bucket aggregation.
type Bucket struct {
	DimKey         string    `gorm:"column:dim_key" json:"key"`
	Day            time.Time `json:"day,omitempty"`
	RequestCount   int64     `json:"request_count"`
	InputTokens    int64     `json:"input_tokens"`
	OutputTokens   int64     `json:"output_tokens"`
	TotalTokens    int64     `json:"total_tokens"`
	CostMicrocents int64     `json:"cost_microcents"`
}

// Summary aggregates entirely within DateRange, grouped only by dimension.
func (l *Ledger) Summary(ctx context.Context, dim Dimension, owner OwnerFilter, rng DateRange) ([]Bucket, error) {
	return l.aggregate(ctx, dim, owner, rng, false)
}

// Breakdown aggregates by dimension AND calendar day within DateRange.
func (l *Ledger) Breakdown(ctx context.Context, dim Dimension, owner OwnerFilter, rng DateRange) ([]Bucket, error) {
	return l.aggregate(ctx, dim, owner, rng, true)
}

// OwnerFilter narrows an aggregation to rows attributed to one owner column;
// an empty Column means "no additional filter" (global aggregation).
type OwnerFilter struct {
	Column Dimension
	Value  string
}

func (l *Ledger) aggregate(ctx context.Context, dim Dimension, owner OwnerFilter, rng DateRange, byDay bool) ([]Bucket, error) {
	q := l.db.WithContext(ctx).Model(&tenant.UsageRecord{}).
		Where("recorded_at >= ? AND recorded_at < ?", rng.Start, rng.halfOpenEnd())
	if owner.Column != "" && owner.Value != "" {
		q = q.Where(string(owner.Column)+" = ?", owner.Value)
	}

	selectCols := []string{
		string(dim) + " AS dim_key",
		"COUNT(*) AS request_count",
		"COALESCE(SUM(input_tokens),0) AS input_tokens",
		"COALESCE(SUM(output_tokens),0) AS output_tokens",
		"COALESCE(SUM(total_tokens),0) AS total_tokens",
		"COALESCE(SUM(cost_microcents),0) AS cost_microcents",
	}
	groupCols := []string{string(dim)}

	if byDay {
		dayExpr := dayTruncExpr(l.db, "recorded_at")
		selectCols = append(selectCols, dayExpr+" AS day")
		groupCols = append(groupCols, dayExpr)
	}

	var rows []Bucket
	err := q.Select(selectCols).Group(joinComma(groupCols)).Scan(&rows).Error
	if err != nil {
		return nil, types.DatabaseError("aggregate usage failed", err)
	}
	return rows, nil
}

// Stats is the reduced statistics GetUsageStats* returns.
type Stats struct {
	AvgDailySpendMicrocents float64 `json:"avg_daily_spend_microcents"`
	StdDevDailySpendMicrocents float64 `json:"std_dev_daily_spend_microcents"`
	SampleDays int `json:"sample_days"`
}

// GetUsageStats computes per-day cost sums for owner within rng, then
// reduces in-process to mean and Bessel-corrected (n-1 denominator, valid
// for n>1) sample standard deviation.
func (l *Ledger) GetUsageStats(ctx context.Context, owner OwnerFilter, rng DateRange) (*Stats, error) {
	daily, err := l.Breakdown(ctx, dimensionFor(owner), owner, rng)
	if err != nil {
		return nil, err
	}

	n := len(daily)
	if n == 0 {
		return &Stats{}, nil
	}

	var sum float64
	for _, b := range daily {
		sum += float64(b.CostMicrocents)
	}
	mean := sum / float64(n)

	var variance float64
	if n > 1 {
		var sqDiff float64
		for _, b := range daily {
			d := float64(b.CostMicrocents) - mean
			sqDiff += d * d
		}
		variance = sqDiff / float64(n-1)
	}

	return &Stats{
		AvgDailySpendMicrocents:    mean,
		StdDevDailySpendMicrocents: math.Sqrt(variance),
		SampleDays:                 n,
	}, nil
}

func dimensionFor(owner OwnerFilter) Dimension {
	if owner.Column != "" {
		return owner.Column
	}
	return DimensionOrg
}

// GetCurrentPeriodSpend sums cost_microcents for owner within the current
// calendar day or month, using the dialect's date-truncation semantics.
// Unknown periods return 0.
func (l *Ledger) GetCurrentPeriodSpend(ctx context.Context, owner OwnerFilter, period string) (int64, error) {
	var start time.Time
	now := time.Now()
	switch period {
	case "daily":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case "monthly":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return 0, nil
	}

	q := l.db.WithContext(ctx).Model(&tenant.UsageRecord{}).
		Where("recorded_at >= ?", start)
	if owner.Column != "" && owner.Value != "" {
		q = q.Where(string(owner.Column)+" = ?", owner.Value)
	}

	var total int64
	if err := q.Select("COALESCE(SUM(cost_microcents),0)").Scan(&total).Error; err != nil {
		return 0, types.DatabaseError("current period spend failed", err)
	}
	return total, nil
}

// DeleteUsageRecordsBefore iterates deleting up to batchSize rows whose
// recorded_at < cutoff, stopping when maxDeletes is reached or a batch
// returns fewer rows than requested (i.e. the table is exhausted).
func (l *Ledger) DeleteUsageRecordsBefore(ctx context.Context, cutoff time.Time, batchSize, maxDeletes int) (int64, error) {
	var total int64
	for total < int64(maxDeletes) {
		remaining := int64(maxDeletes) - total
		limit := int64(batchSize)
		if remaining < limit {
			limit = remaining
		}

		res := l.db.WithContext(ctx).Exec(
			subqueryDelete(l.db),
			cutoff, limit,
		)
		if res.Error != nil {
			return total, types.DatabaseError("retention delete failed", res.Error)
		}
		total += res.RowsAffected
		if res.RowsAffected < limit {
			break
		}
	}
	return total, nil
}

func joinComma(cols []string) string {
	out := cols[0]
	for _, c := range cols[1:] {
		out += ", " + c
	}
	return out
}
