package rbac

import (
	"context"
	"testing"

	"github.com/ScriptSmith/hadrian/pagination"
	"github.com/ScriptSmith/hadrian/tenant"
	"github.com/ScriptSmith/hadrian/types"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tenant.OrgRbacPolicy{}, &tenant.OrgRbacPolicyVersion{}))
	return New(db, zap.NewNop())
}

func TestStore_Create_StartsAtVersionOneWithHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p, err := s.Create(ctx, "org-1", CreateInput{
		Name: "allow-chat", Resource: "chat", Action: "read", Effect: tenant.EffectAllow, Priority: 10, Enabled: true,
	}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Version)

	versions, err := s.ListVersions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "alice", versions[0].CreatedBy)
}

func TestStore_Create_DuplicateNameInOrgIsConflict(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	in := CreateInput{Name: "allow-chat", Resource: "chat", Action: "read", Effect: tenant.EffectAllow}
	_, err := s.Create(ctx, "org-1", in, "alice")
	require.NoError(t, err)

	_, err = s.Create(ctx, "org-1", in, "bob")
	require.Error(t, err)
	assert.True(t, types.IsConflict(err))

	// Same name in a different org is not a conflict.
	_, err = s.Create(ctx, "org-2", in, "bob")
	assert.NoError(t, err)
}

func TestStore_Update_IncrementsVersionAndAppendsHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p, err := s.Create(ctx, "org-1", CreateInput{Name: "p1", Resource: "chat", Action: "read", Effect: tenant.EffectAllow, Priority: 1}, "alice")
	require.NoError(t, err)

	newPriority := 5
	updated, err := s.Update(ctx, p.ID, UpdatePatch{Priority: &newPriority}, "bob", "raise priority")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, 5, updated.Priority)

	versions, err := s.ListVersions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "raise priority", versions[0].Reason) // newest first
}

func TestStore_Rollback_RestoresPriorContentAsNewVersion(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p, err := s.Create(ctx, "org-1", CreateInput{Name: "p1", Resource: "chat", Action: "read", Effect: tenant.EffectAllow, Priority: 1}, "alice")
	require.NoError(t, err)

	newPriority := 99
	_, err = s.Update(ctx, p.ID, UpdatePatch{Priority: &newPriority}, "bob", "bump")
	require.NoError(t, err)

	rolledBack, err := s.Rollback(ctx, p.ID, 1, "carol")
	require.NoError(t, err)
	assert.Equal(t, 3, rolledBack.Version)
	assert.Equal(t, 1, rolledBack.Priority)

	versions, err := s.ListVersions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Contains(t, versions[0].Reason, "Rolled back to version 1")
}

func TestStore_Rollback_UnknownTargetVersionIsNotFound(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p, err := s.Create(ctx, "org-1", CreateInput{Name: "p1", Resource: "chat", Action: "read", Effect: tenant.EffectAllow}, "alice")
	require.NoError(t, err)

	_, err = s.Rollback(ctx, p.ID, 7, "carol")
	assert.True(t, types.IsNotFound(err))
}

func TestStore_Delete_SoftDeletesButKeepsVersionHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p, err := s.Create(ctx, "org-1", CreateInput{Name: "p1", Resource: "chat", Action: "read", Effect: tenant.EffectAllow}, "alice")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, p.ID))
	_, err = s.GetByID(ctx, p.ID)
	assert.True(t, types.IsNotFound(err))

	versions, err := s.ListVersions(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	err = s.Delete(ctx, p.ID)
	assert.True(t, types.IsNotFound(err))
}

func TestStore_ListEnabledByOrg_OrdersByPriorityDescending(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "org-1", CreateInput{Name: "low", Resource: "chat", Action: "read", Effect: tenant.EffectAllow, Priority: 1, Enabled: true}, "alice")
	require.NoError(t, err)
	_, err = s.Create(ctx, "org-1", CreateInput{Name: "high", Resource: "chat", Action: "read", Effect: tenant.EffectAllow, Priority: 10, Enabled: true}, "alice")
	require.NoError(t, err)
	_, err = s.Create(ctx, "org-1", CreateInput{Name: "disabled", Resource: "chat", Action: "read", Effect: tenant.EffectAllow, Priority: 99, Enabled: false}, "alice")
	require.NoError(t, err)

	policies, err := s.ListEnabledByOrg(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Equal(t, "high", policies[0].Name)
	assert.Equal(t, "low", policies[1].Name)
}

func TestStore_ListByOrg_Paginates(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, "org-1", CreateInput{Name: string(rune('a' + i)), Resource: "chat", Action: "read", Effect: tenant.EffectAllow}, "alice")
		require.NoError(t, err)
	}

	page, cursors, err := s.ListByOrg(ctx, "org-1", pagination.ListParams{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.True(t, cursors.HasMore)
}
