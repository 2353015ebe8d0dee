// Package pagination implements keyset (cursor) pagination shared by every
// RepositoryKernel list operation: stable ordering under concurrent inserts,
// no OFFSET scans, and a PageCursors pair usable for forward/backward paging.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// SortOrder is the stored ordering of the list's natural key.
type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// Direction is which side of the cursor the caller wants the next page from.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// Cursor is the boundary row's ordering key: (created_at, id).
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// Encode renders the cursor as an opaque, URL-safe token.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token produced by Cursor.Encode.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("pagination: invalid cursor: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("pagination: invalid cursor: %w", err)
	}
	return &c, nil
}

// ListParams is the common input to every RepositoryKernel list method.
type ListParams struct {
	Limit          int
	Cursor         *Cursor
	Direction      Direction
	SortOrder      SortOrder
	IncludeDeleted bool
}

// Normalize fills in defaults for a zero-value ListParams.
func (p ListParams) Normalize() ListParams {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 200 {
		p.Limit = 200
	}
	if p.Direction == "" {
		p.Direction = Forward
	}
	if p.SortOrder == "" {
		p.SortOrder = SortDesc
	}
	return p
}

// PageCursors is returned alongside a page's items.
type PageCursors struct {
	Next    *Cursor
	Prev    *Cursor
	HasMore bool
}

// Plan is the derived (comparison operator, query order, reverse-in-memory)
// triple for a given sort_order × direction combination, per the table:
//
//	Forward  + DESC -> <, DESC, no reverse
//	Backward + DESC -> >, ASC,  reverse
//	Forward  + ASC  -> >, ASC,  no reverse
//	Backward + ASC  -> <, DESC, reverse
type Plan struct {
	CompareOp    string // "<" or ">"
	QueryOrder   SortOrder
	ReverseItems bool
}

// PlanFor derives the query plan for a sort_order × direction combination.
func PlanFor(sortOrder SortOrder, direction Direction) Plan {
	switch {
	case direction == Forward && sortOrder == SortDesc:
		return Plan{CompareOp: "<", QueryOrder: SortDesc, ReverseItems: false}
	case direction == Backward && sortOrder == SortDesc:
		return Plan{CompareOp: ">", QueryOrder: SortAsc, ReverseItems: true}
	case direction == Forward && sortOrder == SortAsc:
		return Plan{CompareOp: ">", QueryOrder: SortAsc, ReverseItems: false}
	default: // Backward + Asc
		return Plan{CompareOp: "<", QueryOrder: SortDesc, ReverseItems: true}
	}
}

// CursorPair is implemented by anything a page can derive a boundary Cursor from.
type CursorPair interface {
	CursorCreatedAt() time.Time
	CursorID() string
}

// BuildPage applies the has-more / trim / reverse / cursor-emission algorithm
// shared by every list operation. rows is the fetch-limit+1 result set already
// ordered per Plan.QueryOrder; BuildPage trims it to params.Limit and derives
// PageCursors without touching the caller's row type directly.
func BuildPage[T CursorPair](rows []T, params ListParams, plan Plan) ([]T, PageCursors) {
	hasMore := len(rows) > params.Limit
	if hasMore {
		rows = rows[:params.Limit]
	}
	if plan.ReverseItems {
		reversed := make([]T, len(rows))
		for i, r := range rows {
			reversed[len(rows)-1-i] = r
		}
		rows = reversed
	}

	var cursors PageCursors
	cursors.HasMore = hasMore
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		first := rows[0]
		switch params.Direction {
		case Backward:
			next := Cursor{CreatedAt: last.CursorCreatedAt(), ID: last.CursorID()}
			cursors.Next = &next
			prev := Cursor{CreatedAt: first.CursorCreatedAt(), ID: first.CursorID()}
			cursors.Prev = &prev
		default: // Forward
			if hasMore {
				next := Cursor{CreatedAt: last.CursorCreatedAt(), ID: last.CursorID()}
				cursors.Next = &next
			}
			if params.Cursor != nil {
				prev := Cursor{CreatedAt: first.CursorCreatedAt(), ID: first.CursorID()}
				cursors.Prev = &prev
			}
		}
	}
	return rows, cursors
}
