package repo

import (
	"context"

	"github.com/ScriptSmith/hadrian/pagination"
	"github.com/ScriptSmith/hadrian/tenant"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrganizationRepo is the RepositoryKernel contract for Organization.
type OrganizationRepo struct{ base[tenant.Organization] }

func NewOrganizationRepo(db *gorm.DB, logger *zap.Logger) *OrganizationRepo {
	return &OrganizationRepo{newBase[tenant.Organization](db, logger)}
}

func (r *OrganizationRepo) Create(ctx context.Context, org *tenant.Organization) error {
	return r.create(ctx, org)
}
func (r *OrganizationRepo) GetByID(ctx context.Context, id string) (*tenant.Organization, error) {
	return r.getByID(ctx, id)
}
func (r *OrganizationRepo) GetBySlug(ctx context.Context, slug string) (*tenant.Organization, error) {
	var org tenant.Organization
	err := r.db.WithContext(ctx).Where("slug = ? AND deleted_at IS NULL", slug).First(&org).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &org, nil
}
func (r *OrganizationRepo) List(ctx context.Context, params pagination.ListParams) ([]tenant.Organization, pagination.PageCursors, error) {
	return r.list(ctx, params, nil)
}
func (r *OrganizationRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.update(ctx, id, updates)
}
func (r *OrganizationRepo) Delete(ctx context.Context, id string) error {
	return r.softDelete(ctx, id)
}

// TeamRepo is the RepositoryKernel contract for Team, scoped by org_id.
type TeamRepo struct{ base[tenant.Team] }

func NewTeamRepo(db *gorm.DB, logger *zap.Logger) *TeamRepo {
	return &TeamRepo{newBase[tenant.Team](db, logger)}
}

func (r *TeamRepo) Create(ctx context.Context, team *tenant.Team) error { return r.create(ctx, team) }
func (r *TeamRepo) GetByID(ctx context.Context, id string) (*tenant.Team, error) {
	return r.getByID(ctx, id)
}
func (r *TeamRepo) GetByOrgSlug(ctx context.Context, orgID, slug string) (*tenant.Team, error) {
	var team tenant.Team
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND slug = ? AND deleted_at IS NULL", orgID, slug).
		First(&team).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &team, nil
}
func (r *TeamRepo) ListByOrg(ctx context.Context, orgID string, params pagination.ListParams) ([]tenant.Team, pagination.PageCursors, error) {
	return r.list(ctx, params, func(q *gorm.DB) *gorm.DB { return q.Where("org_id = ?", orgID) })
}
func (r *TeamRepo) CountByOrg(ctx context.Context, orgID string) (int64, error) {
	return r.count(ctx, func(q *gorm.DB) *gorm.DB { return q.Where("org_id = ?", orgID) })
}
func (r *TeamRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.update(ctx, id, updates)
}
func (r *TeamRepo) Delete(ctx context.Context, id string) error { return r.softDelete(ctx, id) }

// ProjectRepo is the RepositoryKernel contract for Project, scoped by org_id.
type ProjectRepo struct{ base[tenant.Project] }

func NewProjectRepo(db *gorm.DB, logger *zap.Logger) *ProjectRepo {
	return &ProjectRepo{newBase[tenant.Project](db, logger)}
}

func (r *ProjectRepo) Create(ctx context.Context, p *tenant.Project) error { return r.create(ctx, p) }
func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*tenant.Project, error) {
	return r.getByID(ctx, id)
}
func (r *ProjectRepo) ListByOrg(ctx context.Context, orgID string, params pagination.ListParams) ([]tenant.Project, pagination.PageCursors, error) {
	return r.list(ctx, params, func(q *gorm.DB) *gorm.DB { return q.Where("org_id = ?", orgID) })
}
func (r *ProjectRepo) CountByOrg(ctx context.Context, orgID string) (int64, error) {
	return r.count(ctx, func(q *gorm.DB) *gorm.DB { return q.Where("org_id = ?", orgID) })
}
func (r *ProjectRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.update(ctx, id, updates)
}
func (r *ProjectRepo) Delete(ctx context.Context, id string) error { return r.softDelete(ctx, id) }

// ServiceAccountRepo is the RepositoryKernel contract for ServiceAccount.
type ServiceAccountRepo struct{ base[tenant.ServiceAccount] }

func NewServiceAccountRepo(db *gorm.DB, logger *zap.Logger) *ServiceAccountRepo {
	return &ServiceAccountRepo{newBase[tenant.ServiceAccount](db, logger)}
}

func (r *ServiceAccountRepo) Create(ctx context.Context, sa *tenant.ServiceAccount) error {
	return r.create(ctx, sa)
}
func (r *ServiceAccountRepo) GetByID(ctx context.Context, id string) (*tenant.ServiceAccount, error) {
	return r.getByID(ctx, id)
}
func (r *ServiceAccountRepo) ListByOrg(ctx context.Context, orgID string, params pagination.ListParams) ([]tenant.ServiceAccount, pagination.PageCursors, error) {
	return r.list(ctx, params, func(q *gorm.DB) *gorm.DB { return q.Where("org_id = ?", orgID) })
}
func (r *ServiceAccountRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.update(ctx, id, updates)
}
func (r *ServiceAccountRepo) Delete(ctx context.Context, id string) error {
	return r.softDelete(ctx, id)
}

// UserRepo is the RepositoryKernel contract for User.
type UserRepo struct{ base[tenant.User] }

func NewUserRepo(db *gorm.DB, logger *zap.Logger) *UserRepo {
	return &UserRepo{newBase[tenant.User](db, logger)}
}

func (r *UserRepo) Create(ctx context.Context, u *tenant.User) error { return r.create(ctx, u) }
func (r *UserRepo) GetByID(ctx context.Context, id string) (*tenant.User, error) {
	return r.getByID(ctx, id)
}
func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (*tenant.User, error) {
	var u tenant.User
	err := r.db.WithContext(ctx).
		Where("external_id = ? AND deleted_at IS NULL", externalID).
		First(&u).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &u, nil
}
func (r *UserRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.update(ctx, id, updates)
}
func (r *UserRepo) Delete(ctx context.Context, id string) error { return r.softDelete(ctx, id) }

// DynamicProviderRepo is the RepositoryKernel contract for DynamicProvider.
type DynamicProviderRepo struct{ base[tenant.DynamicProvider] }

func NewDynamicProviderRepo(db *gorm.DB, logger *zap.Logger) *DynamicProviderRepo {
	return &DynamicProviderRepo{newBase[tenant.DynamicProvider](db, logger)}
}

func (r *DynamicProviderRepo) Create(ctx context.Context, p *tenant.DynamicProvider) error {
	return r.create(ctx, p)
}
func (r *DynamicProviderRepo) GetByID(ctx context.Context, id string) (*tenant.DynamicProvider, error) {
	return r.getByID(ctx, id)
}
func (r *DynamicProviderRepo) ListByOrg(ctx context.Context, orgID string, params pagination.ListParams) ([]tenant.DynamicProvider, pagination.PageCursors, error) {
	return r.list(ctx, params, func(q *gorm.DB) *gorm.DB { return q.Where("org_id = ?", orgID) })
}
func (r *DynamicProviderRepo) ListEnabledByOrg(ctx context.Context, orgID string) ([]tenant.DynamicProvider, error) {
	var rows []tenant.DynamicProvider
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND is_enabled = ? AND deleted_at IS NULL", orgID, true).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translateDBError("list enabled providers failed", err)
	}
	return rows, nil
}
func (r *DynamicProviderRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.update(ctx, id, updates)
}
func (r *DynamicProviderRepo) Delete(ctx context.Context, id string) error {
	return r.softDelete(ctx, id)
}

// PromptRepo is the RepositoryKernel contract for Prompt.
type PromptRepo struct{ base[tenant.Prompt] }

func NewPromptRepo(db *gorm.DB, logger *zap.Logger) *PromptRepo {
	return &PromptRepo{newBase[tenant.Prompt](db, logger)}
}

func (r *PromptRepo) Create(ctx context.Context, p *tenant.Prompt) error { return r.create(ctx, p) }
func (r *PromptRepo) GetByID(ctx context.Context, id string) (*tenant.Prompt, error) {
	return r.getByID(ctx, id)
}
func (r *PromptRepo) GetByOwnerName(ctx context.Context, ownerType, ownerID, name string) (*tenant.Prompt, error) {
	var p tenant.Prompt
	err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ? AND name = ? AND deleted_at IS NULL", ownerType, ownerID, name).
		First(&p).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &p, nil
}
func (r *PromptRepo) ListByOwner(ctx context.Context, ownerType, ownerID string, params pagination.ListParams) ([]tenant.Prompt, pagination.PageCursors, error) {
	return r.list(ctx, params, func(q *gorm.DB) *gorm.DB {
		return q.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID)
	})
}
func (r *PromptRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.update(ctx, id, updates)
}
func (r *PromptRepo) Delete(ctx context.Context, id string) error { return r.softDelete(ctx, id) }

// FileRepo is the RepositoryKernel contract for File.
type FileRepo struct{ base[tenant.File] }

func NewFileRepo(db *gorm.DB, logger *zap.Logger) *FileRepo {
	return &FileRepo{newBase[tenant.File](db, logger)}
}

func (r *FileRepo) Create(ctx context.Context, f *tenant.File) error { return r.create(ctx, f) }
func (r *FileRepo) GetByID(ctx context.Context, id string) (*tenant.File, error) {
	return r.getByID(ctx, id)
}
func (r *FileRepo) GetByContentHash(ctx context.Context, ownerType, ownerID, hash string) (*tenant.File, error) {
	var f tenant.File
	err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ? AND content_hash = ? AND deleted_at IS NULL", ownerType, ownerID, hash).
		First(&f).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &f, nil
}
func (r *FileRepo) ListByOwner(ctx context.Context, ownerType, ownerID string, params pagination.ListParams) ([]tenant.File, pagination.PageCursors, error) {
	return r.list(ctx, params, func(q *gorm.DB) *gorm.DB {
		return q.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID)
	})
}
func (r *FileRepo) UpdateStatus(ctx context.Context, id string, status tenant.FileStatus, details string) error {
	return r.update(ctx, id, map[string]interface{}{"status": status, "status_details": details})
}
func (r *FileRepo) Delete(ctx context.Context, id string) error { return r.softDelete(ctx, id) }

// VectorStoreRepo is the RepositoryKernel contract for VectorStore.
type VectorStoreRepo struct{ base[tenant.VectorStore] }

func NewVectorStoreRepo(db *gorm.DB, logger *zap.Logger) *VectorStoreRepo {
	return &VectorStoreRepo{newBase[tenant.VectorStore](db, logger)}
}

func (r *VectorStoreRepo) Create(ctx context.Context, v *tenant.VectorStore) error {
	return r.create(ctx, v)
}
func (r *VectorStoreRepo) GetByID(ctx context.Context, id string) (*tenant.VectorStore, error) {
	return r.getByID(ctx, id)
}
func (r *VectorStoreRepo) ListByOwner(ctx context.Context, ownerType, ownerID string, params pagination.ListParams) ([]tenant.VectorStore, pagination.PageCursors, error) {
	return r.list(ctx, params, func(q *gorm.DB) *gorm.DB {
		return q.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID)
	})
}
func (r *VectorStoreRepo) UpdateStats(ctx context.Context, id string, usageBytes int64, counts tenant.VectorStoreFileCounts) error {
	return r.update(ctx, id, map[string]interface{}{"usage_bytes": usageBytes, "file_counts": counts})
}
func (r *VectorStoreRepo) Delete(ctx context.Context, id string) error { return r.softDelete(ctx, id) }

// VectorStoreFileRepo is the RepositoryKernel contract for VectorStoreFile.
type VectorStoreFileRepo struct{ base[tenant.VectorStoreFile] }

func NewVectorStoreFileRepo(db *gorm.DB, logger *zap.Logger) *VectorStoreFileRepo {
	return &VectorStoreFileRepo{newBase[tenant.VectorStoreFile](db, logger)}
}

func (r *VectorStoreFileRepo) Create(ctx context.Context, v *tenant.VectorStoreFile) error {
	return r.create(ctx, v)
}
func (r *VectorStoreFileRepo) GetByID(ctx context.Context, id string) (*tenant.VectorStoreFile, error) {
	return r.getByID(ctx, id)
}

// GetByDedupKey finds an active row sharing (vector_store_id, content_hash,
// owner), used to skip re-ingesting a file already attached to the store.
func (r *VectorStoreFileRepo) GetByDedupKey(ctx context.Context, vectorStoreID, contentHash, ownerType, ownerID string) (*tenant.VectorStoreFile, error) {
	var v tenant.VectorStoreFile
	err := r.db.WithContext(ctx).
		Where(`vector_store_id = ? AND content_hash = ? AND owner_type = ? AND owner_id = ? AND deleted_at IS NULL`,
			vectorStoreID, contentHash, ownerType, ownerID).
		First(&v).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &v, nil
}
func (r *VectorStoreFileRepo) ListByVectorStore(ctx context.Context, vectorStoreID string, params pagination.ListParams) ([]tenant.VectorStoreFile, pagination.PageCursors, error) {
	return r.list(ctx, params, func(q *gorm.DB) *gorm.DB { return q.Where("vector_store_id = ?", vectorStoreID) })
}
func (r *VectorStoreFileRepo) UpdateStatus(ctx context.Context, id string, status tenant.VectorStoreFileStatus, lastError string) error {
	return r.update(ctx, id, map[string]interface{}{"status": status, "last_error": lastError})
}

// BumpProcessingVersion increments processing_version, used to invalidate
// in-flight ingestion when a file is re-uploaded before the previous pass
// finishes: workers compare their captured version before writing results.
func (r *VectorStoreFileRepo) BumpProcessingVersion(ctx context.Context, id string) (int64, error) {
	var v tenant.VectorStoreFile
	if err := r.db.WithContext(ctx).
		Model(&v).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("processing_version", gorm.Expr("processing_version + 1")).Error; err != nil {
		return 0, translateDBError("bump processing version failed", err)
	}
	row, err := r.getByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return row.ProcessingVersion, nil
}
func (r *VectorStoreFileRepo) Delete(ctx context.Context, id string) error { return r.softDelete(ctx, id) }

func translateNotFound(err error) error {
	if err == gorm.ErrRecordNotFound {
		return notFoundErr()
	}
	return translateDBError("query failed", err)
}
