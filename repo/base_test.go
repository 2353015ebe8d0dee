package repo

import (
	"context"
	"testing"
	"time"

	"github.com/ScriptSmith/hadrian/pagination"
	"github.com/ScriptSmith/hadrian/tenant"
	"github.com/ScriptSmith/hadrian/types"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&tenant.Organization{},
		&tenant.Team{},
		&tenant.Project{},
		&tenant.ServiceAccount{},
		&tenant.User{},
		&tenant.TeamMembership{},
		&tenant.APIKey{},
		&tenant.DynamicProvider{},
	))
	return db
}

func TestOrganizationRepo_CreateGetList(t *testing.T) {
	db := testDB(t)
	repo := NewOrganizationRepo(db, zap.NewNop())
	ctx := context.Background()

	org := &tenant.Organization{ID: "org-1", Name: "Acme", Slug: "acme"}
	require.NoError(t, repo.Create(ctx, org))

	got, err := repo.GetByID(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)

	bySlug, err := repo.GetBySlug(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "org-1", bySlug.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, types.IsNotFound(err))
}

func TestOrganizationRepo_DuplicateSlugIsConflict(t *testing.T) {
	db := testDB(t)
	repo := NewOrganizationRepo(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &tenant.Organization{ID: "org-1", Name: "Acme", Slug: "acme"}))
	err := repo.Create(ctx, &tenant.Organization{ID: "org-2", Name: "Acme Two", Slug: "acme"})
	require.Error(t, err)
	assert.True(t, types.IsConflict(err))
}

func TestOrganizationRepo_UpdateAndDelete(t *testing.T) {
	db := testDB(t)
	repo := NewOrganizationRepo(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &tenant.Organization{ID: "org-1", Name: "Acme", Slug: "acme"}))
	require.NoError(t, repo.Update(ctx, "org-1", map[string]interface{}{"name": "Acme Corp"}))

	got, err := repo.GetByID(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Name)

	require.NoError(t, repo.Delete(ctx, "org-1"))
	_, err = repo.GetByID(ctx, "org-1")
	assert.True(t, types.IsNotFound(err))

	// Deleting an already-deleted (or missing) row is NotFound, not a silent success.
	err = repo.Delete(ctx, "org-1")
	assert.True(t, types.IsNotFound(err))
}

func TestOrganizationRepo_ListPaginatesByKeyset(t *testing.T) {
	db := testDB(t)
	repo := NewOrganizationRepo(db, zap.NewNop())
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		org := &tenant.Organization{ID: idFor(i), Name: idFor(i), Slug: idFor(i)}
		require.NoError(t, repo.Create(ctx, org))
		// Force distinct, known CreatedAt values so keyset ordering is deterministic;
		// GORM's autoCreateTime hook would otherwise collide within the same second.
		require.NoError(t, db.Model(&tenant.Organization{}).Where("id = ?", org.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	page1, cursors1, err := repo.List(ctx, pagination.ListParams{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page1, 2)
	assert.True(t, cursors1.HasMore)
	require.NotNil(t, cursors1.Next)

	page2, cursors2, err := repo.List(ctx, pagination.ListParams{Limit: 2, Cursor: cursors1.Next})
	require.NoError(t, err)
	assert.Len(t, page2, 2)
	assert.True(t, cursors2.HasMore)

	page3, cursors3, err := repo.List(ctx, pagination.ListParams{Limit: 2, Cursor: cursors2.Next})
	require.NoError(t, err)
	assert.Len(t, page3, 1)
	assert.False(t, cursors3.HasMore)

	// The three pages partition all five rows with no overlap or omission.
	seen := map[string]bool{}
	for _, p := range [][]tenant.Organization{page1, page2, page3} {
		for _, o := range p {
			assert.False(t, seen[o.ID], "duplicate row %s across pages", o.ID)
			seen[o.ID] = true
		}
	}
	assert.Len(t, seen, 5)
}

func TestOrganizationRepo_ListExcludesSoftDeleted(t *testing.T) {
	db := testDB(t)
	repo := NewOrganizationRepo(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &tenant.Organization{ID: "org-1", Name: "Acme", Slug: "acme"}))
	require.NoError(t, repo.Create(ctx, &tenant.Organization{ID: "org-2", Name: "Beta", Slug: "beta"}))
	require.NoError(t, repo.Delete(ctx, "org-1"))

	page, _, err := repo.List(ctx, pagination.ListParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "org-2", page[0].ID)
}

func TestTeamRepo_ScopedToOrg(t *testing.T) {
	db := testDB(t)
	orgs := NewOrganizationRepo(db, zap.NewNop())
	teams := NewTeamRepo(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, orgs.Create(ctx, &tenant.Organization{ID: "org-1", Name: "Acme", Slug: "acme"}))
	require.NoError(t, orgs.Create(ctx, &tenant.Organization{ID: "org-2", Name: "Beta", Slug: "beta"}))
	require.NoError(t, teams.Create(ctx, &tenant.Team{ID: "team-1", OrgID: "org-1", Name: "Eng", Slug: "eng"}))
	require.NoError(t, teams.Create(ctx, &tenant.Team{ID: "team-2", OrgID: "org-2", Name: "Eng", Slug: "eng"}))

	page, _, err := teams.ListByOrg(ctx, "org-1", pagination.ListParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "team-1", page[0].ID)

	count, err := teams.CountByOrg(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUserRepo_GetByExternalID(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepo(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &tenant.User{ID: "user-1", ExternalID: "ext-1"}))

	got, err := repo.GetByExternalID(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.ID)

	_, err = repo.GetByExternalID(ctx, "missing")
	assert.True(t, types.IsNotFound(err))
}

func TestDynamicProviderRepo_ListEnabledByOrg(t *testing.T) {
	db := testDB(t)
	orgs := NewOrganizationRepo(db, zap.NewNop())
	providers := NewDynamicProviderRepo(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, orgs.Create(ctx, &tenant.Organization{ID: "org-1", Name: "Acme", Slug: "acme"}))
	require.NoError(t, providers.Create(ctx, &tenant.DynamicProvider{ID: "p-1", OrgID: "org-1", ProviderType: "openai", IsEnabled: true}))
	require.NoError(t, providers.Create(ctx, &tenant.DynamicProvider{ID: "p-2", OrgID: "org-1", ProviderType: "anthropic", IsEnabled: false}))

	enabled, err := providers.ListEnabledByOrg(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "p-1", enabled[0].ID)
}

func idFor(i int) string {
	return string(rune('a' + i))
}
