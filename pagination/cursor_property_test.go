package pagination

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_BuildPageNeverExceedsLimit checks the has-more/trim invariant
// every RepositoryKernel list method relies on: however many rows the
// fetch-limit+1 query returns, BuildPage never hands back more than
// params.Limit, and HasMore is set exactly when the fetch over-fetched.
func TestProperty_BuildPageNeverExceedsLimit(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("BuildPage trims to limit and reports HasMore correctly", prop.ForAll(
		func(limit, rowCount int) bool {
			if limit <= 0 {
				limit = 1
			}
			if rowCount < 0 {
				rowCount = 0
			}

			params := ListParams{Limit: limit}.Normalize()
			plan := PlanFor(params.SortOrder, params.Direction)

			start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			page, cursors := BuildPage(rows(rowCount, start), params, plan)

			if len(page) > params.Limit {
				return false
			}
			wantHasMore := rowCount > params.Limit
			return cursors.HasMore == wantHasMore
		},
		gen.IntRange(1, 50),
		gen.IntRange(0, 60),
	))

	properties.Property("Cursor encode/decode round-trips for any timestamp and id", prop.ForAll(
		func(unixSeconds int64, id string) bool {
			c := Cursor{CreatedAt: time.Unix(unixSeconds, 0).UTC(), ID: id}
			decoded, err := DecodeCursor(c.Encode())
			if err != nil || decoded == nil {
				return false
			}
			return decoded.ID == c.ID && decoded.CreatedAt.Equal(c.CreatedAt)
		},
		gen.Int64Range(0, 4102444800), // 1970..2100
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
