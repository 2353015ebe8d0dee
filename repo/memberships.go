package repo

import (
	"context"

	"github.com/ScriptSmith/hadrian/tenant"
	"github.com/ScriptSmith/hadrian/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MembershipRepo manages TeamMembership rows, including the JIT/SCIM
// reconciliation primitive RemoveMembershipsBySource.
type MembershipRepo struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewMembershipRepo(db *gorm.DB, logger *zap.Logger) *MembershipRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipRepo{db: db, logger: logger}
}

// Add inserts a membership row; a duplicate (team, user, source) is not an
// error since upstream syncs may re-assert the same claim repeatedly.
func (r *MembershipRepo) Add(ctx context.Context, teamID, userID string, source tenant.MembershipSource) (*tenant.TeamMembership, error) {
	m := &tenant.TeamMembership{
		ID:     uuid.NewString(),
		TeamID: teamID,
		UserID: userID,
		Source: source,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, types.DatabaseError("add membership failed", err)
	}
	return m, nil
}

func (r *MembershipRepo) Remove(ctx context.Context, teamID, userID string) error {
	res := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&tenant.TeamMembership{})
	if res.Error != nil {
		return types.DatabaseError("remove membership failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NotFound("team membership")
	}
	return nil
}

// RemoveMembershipsBySource deletes every membership of userID established
// via source, except those in exceptTeamIDs. JIT/SCIM syncs call this after
// asserting the caller's current group claims, so memberships the last sync
// granted but the current one no longer claims are dropped — without
// touching memberships added manually or by a different source.
func (r *MembershipRepo) RemoveMembershipsBySource(ctx context.Context, userID string, source tenant.MembershipSource, exceptTeamIDs []string) (int64, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND source = ?", userID, source)
	if len(exceptTeamIDs) > 0 {
		q = q.Where("team_id NOT IN ?", exceptTeamIDs)
	}
	res := q.Delete(&tenant.TeamMembership{})
	if res.Error != nil {
		return 0, types.DatabaseError("reconcile memberships failed", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *MembershipRepo) ListTeamsForUser(ctx context.Context, userID string) ([]tenant.TeamMembership, error) {
	var rows []tenant.TeamMembership
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, types.DatabaseError("list memberships failed", err)
	}
	return rows, nil
}

func (r *MembershipRepo) ListUsersForTeam(ctx context.Context, teamID string) ([]tenant.TeamMembership, error) {
	var rows []tenant.TeamMembership
	if err := r.db.WithContext(ctx).Where("team_id = ?", teamID).Find(&rows).Error; err != nil {
		return nil, types.DatabaseError("list memberships failed", err)
	}
	return rows, nil
}
