// Package repo implements the RepositoryKernel: typed, cursor-paginated,
// soft-delete/versioned CRUD over the tenant ownership graph, backed by
// GORM. Soft-delete and optimistic locking are expressed as explicit WHERE
// clauses rather than GORM's built-in DeletedAt hook, because the
// version-column conflict check needs the zero-rows-affected signal a raw
// UPDATE gives that the hook doesn't surface directly.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ScriptSmith/hadrian/pagination"
	"github.com/ScriptSmith/hadrian/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// softDeletable is implemented by every entity the base repository manages.
type softDeletable interface {
	pagination.CursorPair
}

// base is embedded by every entity-specific repository. It is not exported;
// callers go through the entity-specific wrappers in entities.go/apikeys.go.
type base[T softDeletable] struct {
	db     *gorm.DB
	logger *zap.Logger
}

func newBase[T softDeletable](db *gorm.DB, logger *zap.Logger) base[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base[T]{db: db, logger: logger}
}

func (b base[T]) create(ctx context.Context, row *T) error {
	if err := b.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return types.Conflict("resource already exists").WithCause(err)
		}
		return types.DatabaseError("create failed", err)
	}
	return nil
}

func (b base[T]) getByID(ctx context.Context, id string) (*T, error) {
	var row T
	err := b.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("resource")
	}
	if err != nil {
		return nil, types.DatabaseError("get failed", err)
	}
	return &row, nil
}

// list runs the keyset-pagination algorithm against scope (a func applying
// parent/tenant filters) and returns the page plus PageCursors.
func (b base[T]) list(ctx context.Context, params pagination.ListParams, scope func(*gorm.DB) *gorm.DB) ([]T, pagination.PageCursors, error) {
	params = params.Normalize()
	plan := pagination.PlanFor(params.SortOrder, params.Direction)

	q := b.db.WithContext(ctx).Model(new(T))
	if scope != nil {
		q = scope(q)
	}
	if !params.IncludeDeleted {
		q = q.Where("deleted_at IS NULL")
	}

	if params.Cursor != nil {
		op := plan.CompareOp
		q = q.Where(
			"created_at "+op+" ? OR (created_at = ? AND id "+op+" ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	order := "created_at " + plan.QueryOrder + ", id " + plan.QueryOrder
	var rows []T
	if err := q.Order(order).Limit(params.Limit + 1).Find(&rows).Error; err != nil {
		return nil, pagination.PageCursors{}, types.DatabaseError("list failed", err)
	}

	page, cursors := pagination.BuildPage(rows, params, plan)
	return page, cursors, nil
}

func (b base[T]) count(ctx context.Context, scope func(*gorm.DB) *gorm.DB) (int64, error) {
	q := b.db.WithContext(ctx).Model(new(T)).Where("deleted_at IS NULL")
	if scope != nil {
		q = scope(q)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, types.DatabaseError("count failed", err)
	}
	return n, nil
}

// softDelete sets deleted_at=now() only when currently NULL.
func (b base[T]) softDelete(ctx context.Context, id string) error {
	res := b.db.WithContext(ctx).Model(new(T)).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		return types.DatabaseError("delete failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NotFound("resource")
	}
	return nil
}

// updateVersioned applies updates via UPDATE ... WHERE id=? AND version=? AND
// deleted_at IS NULL, returning Conflict on zero rows affected.
func (b base[T]) updateVersioned(ctx context.Context, id string, version int, updates map[string]interface{}) error {
	res := b.db.WithContext(ctx).Model(new(T)).
		Where("id = ? AND version = ? AND deleted_at IS NULL", id, version).
		Updates(updates)
	if res.Error != nil {
		return types.DatabaseError("update failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.Conflict("concurrent modification")
	}
	return nil
}

// update applies updates unconditionally by id (for entities without a
// version column), returning NotFound on zero rows affected.
func (b base[T]) update(ctx context.Context, id string, updates map[string]interface{}) error {
	res := b.db.WithContext(ctx).Model(new(T)).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return types.DatabaseError("update failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NotFound("resource")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// Dialect-agnostic substring check: sqlite/mysql/postgres drivers each
	// surface their own wrapped error type, but all mention the same words.
	msg := err.Error()
	for _, marker := range []string{"UNIQUE constraint", "Duplicate entry", "duplicate key value", "violates unique constraint"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
