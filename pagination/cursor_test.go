package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	createdAt time.Time
	id        string
}

func (r row) CursorCreatedAt() time.Time { return r.createdAt }
func (r row) CursorID() string           { return r.id }

func rows(n int, start time.Time) []row {
	out := make([]row, n)
	for i := 0; i < n; i++ {
		out[i] = row{createdAt: start.Add(time.Duration(i) * time.Second), id: string(rune('a' + i))}
	}
	return out
}

func TestCursor_EncodeDecodeRoundTrip(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), ID: "abc-123"}
	token := c.Encode()
	assert.NotEmpty(t, token)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, c.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, c.ID, decoded.ID)
}

func TestDecodeCursor_Empty(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	_, err := DecodeCursor("not-valid-base64!!")
	assert.Error(t, err)
}

func TestListParams_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListParams
		want ListParams
	}{
		{
			name: "zero value gets defaults",
			in:   ListParams{},
			want: ListParams{Limit: 20, Direction: Forward, SortOrder: SortDesc},
		},
		{
			name: "limit over ceiling is clamped",
			in:   ListParams{Limit: 10000},
			want: ListParams{Limit: 200, Direction: Forward, SortOrder: SortDesc},
		},
		{
			name: "negative limit falls back to default",
			in:   ListParams{Limit: -5},
			want: ListParams{Limit: 20, Direction: Forward, SortOrder: SortDesc},
		},
		{
			name: "explicit values are preserved",
			in:   ListParams{Limit: 50, Direction: Backward, SortOrder: SortAsc},
			want: ListParams{Limit: 50, Direction: Backward, SortOrder: SortAsc},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestPlanFor(t *testing.T) {
	tests := []struct {
		sortOrder SortOrder
		direction Direction
		want      Plan
	}{
		{SortDesc, Forward, Plan{CompareOp: "<", QueryOrder: SortDesc, ReverseItems: false}},
		{SortDesc, Backward, Plan{CompareOp: ">", QueryOrder: SortAsc, ReverseItems: true}},
		{SortAsc, Forward, Plan{CompareOp: ">", QueryOrder: SortAsc, ReverseItems: false}},
		{SortAsc, Backward, Plan{CompareOp: "<", QueryOrder: SortDesc, ReverseItems: true}},
	}
	for _, tt := range tests {
		t.Run(string(tt.sortOrder)+"_"+string(tt.direction), func(t *testing.T) {
			assert.Equal(t, tt.want, PlanFor(tt.sortOrder, tt.direction))
		})
	}
}

func TestBuildPage_ForwardNoMore(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	params := ListParams{Limit: 5}.Normalize()
	plan := PlanFor(params.SortOrder, params.Direction)

	page, cursors := BuildPage(rows(3, start), params, plan)
	assert.Len(t, page, 3)
	assert.False(t, cursors.HasMore)
	assert.Nil(t, cursors.Next)
}

func TestBuildPage_ForwardHasMoreTrimsToLimit(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	params := ListParams{Limit: 3}.Normalize()
	plan := PlanFor(params.SortOrder, params.Direction)

	// Fetch-limit+1 convention: caller passes Limit+1 rows to signal more exist.
	page, cursors := BuildPage(rows(4, start), params, plan)
	assert.Len(t, page, 3)
	assert.True(t, cursors.HasMore)
	require.NotNil(t, cursors.Next)
	assert.Equal(t, page[len(page)-1].CursorID(), cursors.Next.ID)
}

func TestBuildPage_BackwardReversesAndEmitsBothCursors(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	params := ListParams{Limit: 3, Direction: Backward, SortOrder: SortDesc}.Normalize()
	plan := PlanFor(params.SortOrder, params.Direction)

	// Query plan for Backward+Desc orders ASC; BuildPage must reverse back to DESC.
	page, cursors := BuildPage(rows(3, start), params, plan)
	require.Len(t, page, 3)
	assert.True(t, page[0].CursorCreatedAt().After(page[1].CursorCreatedAt()))
	require.NotNil(t, cursors.Next)
	require.NotNil(t, cursors.Prev)
}

func TestBuildPage_Empty(t *testing.T) {
	params := ListParams{}.Normalize()
	plan := PlanFor(params.SortOrder, params.Direction)
	page, cursors := BuildPage([]row{}, params, plan)
	assert.Empty(t, page)
	assert.False(t, cursors.HasMore)
	assert.Nil(t, cursors.Next)
	assert.Nil(t, cursors.Prev)
}
