package repo

import (
	"context"
	"time"

	"github.com/ScriptSmith/hadrian/pagination"
	"github.com/ScriptSmith/hadrian/tenant"
	"github.com/ScriptSmith/hadrian/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APIKeyRepo is the RepositoryKernel contract for APIKey, including the
// rotation chain and the owner-enriched GetByHash lookup consulted on every
// authenticated request.
type APIKeyRepo struct{ base[tenant.APIKey] }

func NewAPIKeyRepo(db *gorm.DB, logger *zap.Logger) *APIKeyRepo {
	return &APIKeyRepo{newBase[tenant.APIKey](db, logger)}
}

// Create inserts key with keyPrefix derived from the first 8 characters of
// keyHash (or the whole hash if shorter). A hash collision surfaces Conflict.
func (r *APIKeyRepo) Create(ctx context.Context, key *tenant.APIKey, keyHash string) error {
	prefix := keyHash
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	key.KeyHash = keyHash
	key.KeyPrefix = prefix
	return r.create(ctx, key)
}

func (r *APIKeyRepo) GetByID(ctx context.Context, id string) (*tenant.APIKey, error) {
	return r.getByID(ctx, id)
}

// GetByHash resolves an active key by its hash, enriching it with the
// owner-chain IDs resolved from the OwnerRef, filtering out revoked and
// expired-rotation keys.
func (r *APIKeyRepo) GetByHash(ctx context.Context, hash string) (*tenant.APIKeyWithOwner, error) {
	var key tenant.APIKey
	err := r.db.WithContext(ctx).
		Where(`key_hash = ? AND deleted_at IS NULL AND revoked_at IS NULL
			AND (rotation_grace_until IS NULL OR rotation_grace_until > ?)`, hash, time.Now()).
		First(&key).Error
	if err != nil {
		return nil, translateNotFound(err)
	}

	enriched := &tenant.APIKeyWithOwner{APIKey: key}
	switch tenant.OwnerType(key.OwnerType) {
	case tenant.OwnerOrganization:
		enriched.OrgID = key.OwnerID
	case tenant.OwnerTeam:
		enriched.TeamID = key.OwnerID
		var team tenant.Team
		if err := r.db.WithContext(ctx).Select("org_id").Where("id = ?", key.OwnerID).First(&team).Error; err == nil {
			enriched.OrgID = team.OrgID
		}
	case tenant.OwnerProject:
		enriched.ProjectID = key.OwnerID
		var project tenant.Project
		if err := r.db.WithContext(ctx).Select("org_id").Where("id = ?", key.OwnerID).First(&project).Error; err == nil {
			enriched.OrgID = project.OrgID
		}
	case tenant.OwnerUser:
		enriched.UserID = key.OwnerID
	case tenant.OwnerServiceAccount:
		enriched.ServiceAccountID = key.OwnerID
		var sa tenant.ServiceAccount
		if err := r.db.WithContext(ctx).Where("id = ?", key.OwnerID).First(&sa).Error; err == nil {
			enriched.OrgID = sa.OrgID
			enriched.ServiceAccountRoles = []string(sa.Roles)
		}
	}
	return enriched, nil
}

// Rotate performs the atomic two-step rotation: the old key is stamped with
// rotation_grace_until, and a new row is inserted pointing back at it via
// RotatedFromKeyID. A uniqueness conflict on newHash rolls back both steps.
func (r *APIKeyRepo) Rotate(ctx context.Context, oldID string, newKey *tenant.APIKey, newHash string, graceUntil time.Time) (*tenant.APIKey, error) {
	var created tenant.APIKey
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&tenant.APIKey{}).
			Where("id = ? AND deleted_at IS NULL", oldID).
			Update("rotation_grace_until", graceUntil)
		if res.Error != nil {
			return types.DatabaseError("rotate: stamp grace period failed", res.Error)
		}
		if res.RowsAffected == 0 {
			return types.NotFound("api key")
		}

		prefix := newHash
		if len(prefix) > 8 {
			prefix = prefix[:8]
		}
		now := time.Now()
		newKey.KeyHash = newHash
		newKey.KeyPrefix = prefix
		newKey.RotatedFromKeyID = &oldID
		newKey.LastRotatedAt = &now
		if err := tx.Create(newKey).Error; err != nil {
			if isUniqueViolation(err) {
				return types.Conflict("api key hash collision").WithCause(err)
			}
			return types.DatabaseError("rotate: insert new key failed", err)
		}
		created = *newKey
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// RevokeByUser bulk-revokes all of a user's currently-active keys, returning
// the count affected.
func (r *APIKeyRepo) RevokeByUser(ctx context.Context, userID string) (int64, error) {
	return r.revokeByOwner(ctx, string(tenant.OwnerUser), userID)
}

// RevokeByServiceAccount bulk-revokes all of a service account's
// currently-active keys, returning the count affected.
func (r *APIKeyRepo) RevokeByServiceAccount(ctx context.Context, serviceAccountID string) (int64, error) {
	return r.revokeByOwner(ctx, string(tenant.OwnerServiceAccount), serviceAccountID)
}

// Revoke revokes a single active key by id.
func (r *APIKeyRepo) Revoke(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&tenant.APIKey{}).
		Where("id = ? AND revoked_at IS NULL AND deleted_at IS NULL", id).
		Update("revoked_at", time.Now())
	if res.Error != nil {
		return types.DatabaseError("revoke failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NotFound("api key")
	}
	return nil
}

func (r *APIKeyRepo) revokeByOwner(ctx context.Context, ownerType, ownerID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&tenant.APIKey{}).
		Where("owner_type = ? AND owner_id = ? AND revoked_at IS NULL AND deleted_at IS NULL", ownerType, ownerID).
		Update("revoked_at", time.Now())
	if res.Error != nil {
		return 0, types.DatabaseError("revoke failed", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *APIKeyRepo) ListByOwner(ctx context.Context, ownerType, ownerID string, params pagination.ListParams) ([]tenant.APIKey, pagination.PageCursors, error) {
	return r.list(ctx, params, func(q *gorm.DB) *gorm.DB {
		return q.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID)
	})
}

func (r *APIKeyRepo) TouchLastUsed(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&tenant.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", time.Now()).Error
}
