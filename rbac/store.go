// Package rbac implements the PolicyStore: optimistic-locked, versioned RBAC
// policies with rollback to any prior version and preserved version history
// across soft-deletes.
package rbac

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ScriptSmith/hadrian/pagination"
	"github.com/ScriptSmith/hadrian/tenant"
	"github.com/ScriptSmith/hadrian/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateInput is the caller-supplied content for a new policy.
type CreateInput struct {
	Name      string
	Resource  string
	Action    string
	Condition string
	Effect    tenant.Effect
	Priority  int
	Enabled   bool
}

// UpdatePatch carries only the fields the caller wants changed; nil fields
// are left untouched.
type UpdatePatch struct {
	Resource  *string
	Action    *string
	Condition *string
	Effect    *tenant.Effect
	Priority  *int
	Enabled   *bool
}

// Store is the PolicyStore.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Create inserts a policy at version=1 and appends the matching version
// record, in one transaction.
func (s *Store) Create(ctx context.Context, orgID string, in CreateInput, createdBy string) (*tenant.OrgRbacPolicy, error) {
	policy := &tenant.OrgRbacPolicy{
		ID:        uuid.NewString(),
		OrgID:     orgID,
		Name:      in.Name,
		Resource:  in.Resource,
		Action:    in.Action,
		Condition: in.Condition,
		Effect:    in.Effect,
		Priority:  in.Priority,
		Enabled:   in.Enabled,
		Version:   1,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(policy).Error; err != nil {
			if isUniqueViolation(err) {
				return types.Conflict("policy name already exists in organization").WithCause(err)
			}
			return types.DatabaseError("create policy failed", err)
		}
		return tx.Create(versionOf(policy, createdBy, "")).Error
	})
	if err != nil {
		return nil, err
	}
	return policy, nil
}

// Update reads the current row, merges non-nil patch fields, increments
// version under an optimistic lock on the row's original version, and
// appends a version record.
func (s *Store) Update(ctx context.Context, id string, patch UpdatePatch, updatedBy, reason string) (*tenant.OrgRbacPolicy, error) {
	var updated tenant.OrgRbacPolicy
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current tenant.OrgRbacPolicy
		if err := tx.Where("id = ? AND deleted_at IS NULL", id).First(&current).Error; err != nil {
			return translateNotFound(err)
		}

		apply(&current, patch)
		res := tx.Model(&tenant.OrgRbacPolicy{}).
			Where("id = ? AND version = ? AND deleted_at IS NULL", id, current.Version).
			Updates(map[string]interface{}{
				"resource":  current.Resource,
				"action":    current.Action,
				"condition": current.Condition,
				"effect":    current.Effect,
				"priority":  current.Priority,
				"enabled":   current.Enabled,
				"version":   current.Version + 1,
			})
		if res.Error != nil {
			return types.DatabaseError("update policy failed", res.Error)
		}
		if res.RowsAffected == 0 {
			return types.Conflict("concurrent modification")
		}
		current.Version++
		if err := tx.Create(versionOf(&current, updatedBy, reason)).Error; err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Rollback reads targetVersion's content and writes it as a new
// version = current+1, appending a version record whose reason defaults to
// "Rolled back to version N".
func (s *Store) Rollback(ctx context.Context, id string, targetVersion int, rolledBackBy string) (*tenant.OrgRbacPolicy, error) {
	var updated tenant.OrgRbacPolicy
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current tenant.OrgRbacPolicy
		if err := tx.Where("id = ? AND deleted_at IS NULL", id).First(&current).Error; err != nil {
			return translateNotFound(err)
		}

		var target tenant.OrgRbacPolicyVersion
		if err := tx.Where("policy_id = ? AND version = ?", id, targetVersion).First(&target).Error; err != nil {
			return translateNotFound(err)
		}

		current.Resource = target.Resource
		current.Action = target.Action
		current.Condition = target.Condition
		current.Effect = target.Effect
		current.Priority = target.Priority
		current.Enabled = target.Enabled

		res := tx.Model(&tenant.OrgRbacPolicy{}).
			Where("id = ? AND version = ? AND deleted_at IS NULL", id, current.Version).
			Updates(map[string]interface{}{
				"resource":  current.Resource,
				"action":    current.Action,
				"condition": current.Condition,
				"effect":    current.Effect,
				"priority":  current.Priority,
				"enabled":   current.Enabled,
				"version":   current.Version + 1,
			})
		if res.Error != nil {
			return types.DatabaseError("rollback policy failed", res.Error)
		}
		if res.RowsAffected == 0 {
			return types.Conflict("concurrent modification")
		}
		current.Version++
		reason := fmt.Sprintf("Rolled back to version %d", targetVersion)
		if err := tx.Create(versionOf(&current, rolledBackBy, reason)).Error; err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete soft-deletes the policy. Version history rows survive untouched.
func (s *Store) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&tenant.OrgRbacPolicy{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		return types.DatabaseError("delete policy failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NotFound("policy")
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*tenant.OrgRbacPolicy, error) {
	var p tenant.OrgRbacPolicy
	if err := s.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).First(&p).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &p, nil
}

// ListEnabledByOrg returns every active, enabled policy for orgID ordered by
// priority descending, the order evaluation walks them in.
func (s *Store) ListEnabledByOrg(ctx context.Context, orgID string) ([]tenant.OrgRbacPolicy, error) {
	var rows []tenant.OrgRbacPolicy
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND enabled = ? AND deleted_at IS NULL", orgID, true).
		Order("priority DESC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, types.DatabaseError("list policies failed", err)
	}
	return rows, nil
}

func (s *Store) ListByOrg(ctx context.Context, orgID string, params pagination.ListParams) ([]tenant.OrgRbacPolicy, pagination.PageCursors, error) {
	params = params.Normalize()
	plan := pagination.PlanFor(params.SortOrder, params.Direction)

	q := s.db.WithContext(ctx).Model(&tenant.OrgRbacPolicy{}).
		Where("org_id = ? AND deleted_at IS NULL", orgID)
	if params.Cursor != nil {
		op := plan.CompareOp
		q = q.Where("created_at "+op+" ? OR (created_at = ? AND id "+op+" ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}
	order := "created_at " + string(plan.QueryOrder) + ", id " + string(plan.QueryOrder)

	var rows []tenant.OrgRbacPolicy
	if err := q.Order(order).Limit(params.Limit + 1).Find(&rows).Error; err != nil {
		return nil, pagination.PageCursors{}, types.DatabaseError("list policies failed", err)
	}
	page, cursors := pagination.BuildPage(rows, params, plan)
	return page, cursors, nil
}

// ListVersions returns every version record for a policy, newest first.
func (s *Store) ListVersions(ctx context.Context, policyID string) ([]tenant.OrgRbacPolicyVersion, error) {
	var rows []tenant.OrgRbacPolicyVersion
	err := s.db.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Order("version DESC").
		Find(&rows).Error
	if err != nil {
		return nil, types.DatabaseError("list policy versions failed", err)
	}
	return rows, nil
}

func apply(p *tenant.OrgRbacPolicy, patch UpdatePatch) {
	if patch.Resource != nil {
		p.Resource = *patch.Resource
	}
	if patch.Action != nil {
		p.Action = *patch.Action
	}
	if patch.Condition != nil {
		p.Condition = *patch.Condition
	}
	if patch.Effect != nil {
		p.Effect = *patch.Effect
	}
	if patch.Priority != nil {
		p.Priority = *patch.Priority
	}
	if patch.Enabled != nil {
		p.Enabled = *patch.Enabled
	}
}

func versionOf(p *tenant.OrgRbacPolicy, createdBy, reason string) *tenant.OrgRbacPolicyVersion {
	return &tenant.OrgRbacPolicyVersion{
		ID:        uuid.NewString(),
		PolicyID:  p.ID,
		Version:   p.Version,
		Resource:  p.Resource,
		Action:    p.Action,
		Condition: p.Condition,
		Effect:    p.Effect,
		Priority:  p.Priority,
		Enabled:   p.Enabled,
		CreatedBy: createdBy,
		Reason:    reason,
	}
}

func translateNotFound(err error) error {
	if err == gorm.ErrRecordNotFound {
		return types.NotFound("policy")
	}
	return types.DatabaseError("query failed", err)
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	for _, marker := range []string{"UNIQUE constraint", "Duplicate entry", "duplicate key value", "violates unique constraint"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
