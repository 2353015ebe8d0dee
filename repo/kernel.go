package repo

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Kernel bundles every entity repository behind a single constructor, the
// way cmd/agentflow wires internal/database.PoolManager once and hands the
// *gorm.DB to every consumer.
type Kernel struct {
	Organizations    *OrganizationRepo
	Teams            *TeamRepo
	Projects         *ProjectRepo
	ServiceAccounts  *ServiceAccountRepo
	Users            *UserRepo
	Memberships      *MembershipRepo
	APIKeys          *APIKeyRepo
	DynamicProviders *DynamicProviderRepo
	Prompts          *PromptRepo
	Files            *FileRepo
	VectorStores     *VectorStoreRepo
	VectorStoreFiles *VectorStoreFileRepo
}

func NewKernel(db *gorm.DB, logger *zap.Logger) *Kernel {
	return &Kernel{
		Organizations:    NewOrganizationRepo(db, logger),
		Teams:            NewTeamRepo(db, logger),
		Projects:         NewProjectRepo(db, logger),
		ServiceAccounts:  NewServiceAccountRepo(db, logger),
		Users:            NewUserRepo(db, logger),
		Memberships:      NewMembershipRepo(db, logger),
		APIKeys:          NewAPIKeyRepo(db, logger),
		DynamicProviders: NewDynamicProviderRepo(db, logger),
		Prompts:          NewPromptRepo(db, logger),
		Files:            NewFileRepo(db, logger),
		VectorStores:     NewVectorStoreRepo(db, logger),
		VectorStoreFiles: NewVectorStoreFileRepo(db, logger),
	}
}
