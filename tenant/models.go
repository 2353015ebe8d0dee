// Package tenant defines the ownership graph GORM models backed by the
// RepositoryKernel: organizations and everything rooted under them (teams,
// projects, service accounts, users, API keys, RBAC policies, prompts,
// files, vector stores, usage records).
package tenant

import "time"

// Organization is the root of the ownership graph.
type Organization struct {
	ID        string     `gorm:"column:id;primaryKey" json:"id"`
	Slug      string     `gorm:"column:slug;uniqueIndex:idx_gw_orgs_slug_active,where:deleted_at IS NULL" json:"slug"`
	Name      string     `gorm:"column:name" json:"name"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (Organization) TableName() string { return "gw_organizations" }

func (o Organization) CursorCreatedAt() time.Time { return o.CreatedAt }
func (o Organization) CursorID() string           { return o.ID }

// Team belongs to exactly one Organization; (org_id, slug) is unique among
// active siblings.
type Team struct {
	ID        string     `gorm:"column:id;primaryKey" json:"id"`
	OrgID     string     `gorm:"column:org_id;index" json:"org_id"`
	Slug      string     `gorm:"column:slug;uniqueIndex:idx_gw_teams_org_slug_active,where:deleted_at IS NULL" json:"slug"`
	Name      string     `gorm:"column:name" json:"name"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (Team) TableName() string { return "gw_teams" }

func (t Team) CursorCreatedAt() time.Time { return t.CreatedAt }
func (t Team) CursorID() string           { return t.ID }

// Project belongs to exactly one Organization.
type Project struct {
	ID        string     `gorm:"column:id;primaryKey" json:"id"`
	OrgID     string     `gorm:"column:org_id;index" json:"org_id"`
	Slug      string     `gorm:"column:slug;uniqueIndex:idx_gw_projects_org_slug_active,where:deleted_at IS NULL" json:"slug"`
	Name      string     `gorm:"column:name" json:"name"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (Project) TableName() string { return "gw_projects" }

func (p Project) CursorCreatedAt() time.Time { return p.CreatedAt }
func (p Project) CursorID() string           { return p.ID }

// ServiceAccount belongs to exactly one Organization and carries a static role set.
type ServiceAccount struct {
	ID        string     `gorm:"column:id;primaryKey" json:"id"`
	OrgID     string     `gorm:"column:org_id;index" json:"org_id"`
	Slug      string     `gorm:"column:slug;uniqueIndex:idx_gw_sa_org_slug_active,where:deleted_at IS NULL" json:"slug"`
	Name      string     `gorm:"column:name" json:"name"`
	Roles     JSONStrings `gorm:"column:roles;type:text" json:"roles"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (ServiceAccount) TableName() string { return "gw_service_accounts" }

func (s ServiceAccount) CursorCreatedAt() time.Time { return s.CreatedAt }
func (s ServiceAccount) CursorID() string           { return s.ID }

// MembershipSource distinguishes how a team membership was established, so
// JIT/SCIM syncs can reconcile without disturbing manually-assigned rows.
type MembershipSource string

const (
	MembershipManual MembershipSource = "manual"
	MembershipJIT    MembershipSource = "jit"
	MembershipSCIM   MembershipSource = "scim"
)

// User is identified by an upstream IDP's external_id.
type User struct {
	ID         string     `gorm:"column:id;primaryKey" json:"id"`
	ExternalID string     `gorm:"column:external_id;uniqueIndex" json:"external_id"`
	Email      *string    `gorm:"column:email;uniqueIndex:idx_gw_users_email,where:email IS NOT NULL" json:"email,omitempty"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt  *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "gw_users" }

func (u User) CursorCreatedAt() time.Time { return u.CreatedAt }
func (u User) CursorID() string           { return u.ID }

// TeamMembership links a User to a Team, labeled by how it was established.
type TeamMembership struct {
	ID        string           `gorm:"column:id;primaryKey" json:"id"`
	TeamID    string           `gorm:"column:team_id;index" json:"team_id"`
	UserID    string           `gorm:"column:user_id;index" json:"user_id"`
	Source    MembershipSource `gorm:"column:source" json:"source"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (TeamMembership) TableName() string { return "gw_team_memberships" }

// BudgetPeriod is the reset cadence for an APIKey's spend cap.
type BudgetPeriod string

const (
	BudgetDaily   BudgetPeriod = "daily"
	BudgetMonthly BudgetPeriod = "monthly"
)

// APIKey is rooted at any OwnerRef variant and forms a rotation chain via
// RotatedFromKeyID + RotationGraceUntil.
type APIKey struct {
	ID                 string       `gorm:"column:id;primaryKey" json:"id"`
	KeyPrefix          string       `gorm:"column:key_prefix;index" json:"key_prefix"`
	KeyHash            string       `gorm:"column:key_hash;uniqueIndex" json:"-"`
	OwnerType          string       `gorm:"column:owner_type;index:idx_gw_keys_owner" json:"owner_type"`
	OwnerID            string       `gorm:"column:owner_id;index:idx_gw_keys_owner" json:"owner_id"`
	Name               string       `gorm:"column:name" json:"name"`
	BudgetLimitCents   *int64       `gorm:"column:budget_limit_cents" json:"budget_limit_cents,omitempty"`
	BudgetPeriod       *BudgetPeriod `gorm:"column:budget_period" json:"budget_period,omitempty"`
	ExpiresAt          *time.Time   `gorm:"column:expires_at" json:"expires_at,omitempty"`
	RevokedAt          *time.Time   `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
	LastUsedAt         *time.Time   `gorm:"column:last_used_at" json:"last_used_at,omitempty"`
	LastRotatedAt      *time.Time   `gorm:"column:last_rotated_at" json:"last_rotated_at,omitempty"`
	Scopes             JSONStrings  `gorm:"column:scopes;type:text" json:"scopes,omitempty"`
	AllowedModels      JSONStrings  `gorm:"column:allowed_models;type:text" json:"allowed_models,omitempty"`
	IPAllowlist        JSONStrings  `gorm:"column:ip_allowlist;type:text" json:"ip_allowlist,omitempty"`
	RateLimitRPM       *int         `gorm:"column:rate_limit_rpm" json:"rate_limit_rpm,omitempty"`
	RateLimitTPM       *int         `gorm:"column:rate_limit_tpm" json:"rate_limit_tpm,omitempty"`
	RotatedFromKeyID   *string      `gorm:"column:rotated_from_key_id" json:"rotated_from_key_id,omitempty"`
	RotationGraceUntil *time.Time   `gorm:"column:rotation_grace_until" json:"rotation_grace_until,omitempty"`
	CreatedAt          time.Time    `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (APIKey) TableName() string { return "gw_api_keys" }

func (k APIKey) CursorCreatedAt() time.Time { return k.CreatedAt }
func (k APIKey) CursorID() string           { return k.ID }

// APIKeyWithOwner enriches an APIKey with the owner-chain IDs resolved by
// GetByHash, plus a service account's roles when the owner is one.
type APIKeyWithOwner struct {
	APIKey
	OrgID                string   `json:"org_id,omitempty"`
	TeamID               string   `json:"team_id,omitempty"`
	ProjectID            string   `json:"project_id,omitempty"`
	UserID               string   `json:"user_id,omitempty"`
	ServiceAccountID     string   `json:"service_account_id,omitempty"`
	ServiceAccountRoles  []string `json:"service_account_roles,omitempty"`
}

// DynamicProvider is a tenant-owned upstream provider definition.
type DynamicProvider struct {
	ID               string      `gorm:"column:id;primaryKey" json:"id"`
	OrgID            string      `gorm:"column:org_id;index" json:"org_id"`
	ProviderType     string      `gorm:"column:provider_type" json:"provider_type"`
	BaseURL          string      `gorm:"column:base_url" json:"base_url"`
	APIKeySecretRef  string      `gorm:"column:api_key_secret_ref" json:"api_key_secret_ref"`
	Config           JSONObject  `gorm:"column:config;type:text" json:"config,omitempty"`
	Models           JSONStrings `gorm:"column:models;type:text" json:"models,omitempty"`
	IsEnabled        bool        `gorm:"column:is_enabled" json:"is_enabled"`
	CreatedAt        time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt        *time.Time  `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (DynamicProvider) TableName() string { return "gw_dynamic_providers" }

func (d DynamicProvider) CursorCreatedAt() time.Time { return d.CreatedAt }
func (d DynamicProvider) CursorID() string           { return d.ID }

// Effect is the outcome an RBAC policy applies when it matches.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// OrgRbacPolicy is an optimistic-locked, versioned policy row.
type OrgRbacPolicy struct {
	ID        string     `gorm:"column:id;primaryKey" json:"id"`
	OrgID     string     `gorm:"column:org_id;uniqueIndex:idx_gw_policies_org_name_active,where:deleted_at IS NULL" json:"org_id"`
	Name      string     `gorm:"column:name;uniqueIndex:idx_gw_policies_org_name_active,where:deleted_at IS NULL" json:"name"`
	Resource  string     `gorm:"column:resource" json:"resource"`
	Action    string     `gorm:"column:action" json:"action"`
	Condition string     `gorm:"column:condition" json:"condition,omitempty"`
	Effect    Effect     `gorm:"column:effect" json:"effect"`
	Priority  int        `gorm:"column:priority" json:"priority"`
	Enabled   bool       `gorm:"column:enabled" json:"enabled"`
	Version   int        `gorm:"column:version" json:"version"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (OrgRbacPolicy) TableName() string { return "gw_org_rbac_policies" }

func (p OrgRbacPolicy) CursorCreatedAt() time.Time { return p.CreatedAt }
func (p OrgRbacPolicy) CursorID() string           { return p.ID }

// OrgRbacPolicyVersion is an immutable snapshot appended on every policy
// mutation or rollback; rows survive soft-deletion of the parent policy.
type OrgRbacPolicyVersion struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	PolicyID  string    `gorm:"column:policy_id;index" json:"policy_id"`
	Version   int       `gorm:"column:version" json:"version"`
	Resource  string    `gorm:"column:resource" json:"resource"`
	Action    string    `gorm:"column:action" json:"action"`
	Condition string    `gorm:"column:condition" json:"condition,omitempty"`
	Effect    Effect    `gorm:"column:effect" json:"effect"`
	Priority  int       `gorm:"column:priority" json:"priority"`
	Enabled   bool      `gorm:"column:enabled" json:"enabled"`
	CreatedBy string    `gorm:"column:created_by" json:"created_by"`
	Reason    string    `gorm:"column:reason" json:"reason,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (OrgRbacPolicyVersion) TableName() string { return "gw_org_rbac_policy_versions" }

// Prompt is unique per (owner, name).
type Prompt struct {
	ID        string     `gorm:"column:id;primaryKey" json:"id"`
	OwnerType string     `gorm:"column:owner_type;uniqueIndex:idx_gw_prompts_owner_name_active,where:deleted_at IS NULL" json:"owner_type"`
	OwnerID   string     `gorm:"column:owner_id;uniqueIndex:idx_gw_prompts_owner_name_active,where:deleted_at IS NULL" json:"owner_id"`
	Name      string     `gorm:"column:name;uniqueIndex:idx_gw_prompts_owner_name_active,where:deleted_at IS NULL" json:"name"`
	Content   string     `gorm:"column:content" json:"content"`
	Metadata  JSONObject `gorm:"column:metadata;type:text" json:"metadata,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (Prompt) TableName() string { return "gw_prompts" }

func (p Prompt) CursorCreatedAt() time.Time { return p.CreatedAt }
func (p Prompt) CursorID() string           { return p.ID }

// FileStatus is the processing state of an uploaded File.
type FileStatus string

const (
	FileStatusUploaded  FileStatus = "uploaded"
	FileStatusProcessed FileStatus = "processed"
	FileStatusError     FileStatus = "error"
)

// File is either stored externally (StoragePath) or proxied verbatim.
type File struct {
	ID            string     `gorm:"column:id;primaryKey" json:"id"`
	OwnerType     string     `gorm:"column:owner_type;index" json:"owner_type"`
	OwnerID       string     `gorm:"column:owner_id;index" json:"owner_id"`
	StoragePath   string     `gorm:"column:storage_path" json:"storage_path,omitempty"`
	ContentHash   string     `gorm:"column:content_hash;index" json:"content_hash"`
	Purpose       string     `gorm:"column:purpose" json:"purpose"`
	SizeBytes     int64      `gorm:"column:size_bytes" json:"size_bytes"`
	Status        FileStatus `gorm:"column:status" json:"status"`
	StatusDetails string     `gorm:"column:status_details" json:"status_details,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt     *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (File) TableName() string { return "gw_files" }

func (f File) CursorCreatedAt() time.Time { return f.CreatedAt }
func (f File) CursorID() string           { return f.ID }

// VectorStoreFileCounts is the per-status aggregate maintained by
// UpdateVectorStoreStats.
type VectorStoreFileCounts struct {
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}

// VectorStore is owner-scoped and backs one pair of physical vector
// collections (cache + chunks) in the VectorSubstrate.
type VectorStore struct {
	ID                  string                `gorm:"column:id;primaryKey" json:"id"`
	OwnerType           string                `gorm:"column:owner_type;index" json:"owner_type"`
	OwnerID             string                `gorm:"column:owner_id;index" json:"owner_id"`
	Name                string                `gorm:"column:name" json:"name"`
	EmbeddingModel      string                `gorm:"column:embedding_model" json:"embedding_model"`
	EmbeddingDimensions int                   `gorm:"column:embedding_dimensions" json:"embedding_dimensions"`
	UsageBytes          int64                 `gorm:"column:usage_bytes" json:"usage_bytes"`
	FileCounts          VectorStoreFileCounts `gorm:"column:file_counts;type:text;serializer:json" json:"file_counts"`
	ExpiresAfterDays    *int                  `gorm:"column:expires_after_days" json:"expires_after_days,omitempty"`
	ExpiresAt           *time.Time            `gorm:"column:expires_at" json:"expires_at,omitempty"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt           *time.Time            `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (VectorStore) TableName() string { return "gw_vector_stores" }

func (v VectorStore) CursorCreatedAt() time.Time { return v.CreatedAt }
func (v VectorStore) CursorID() string           { return v.ID }

// VectorStoreFileStatus is the ingestion state machine for a VectorStoreFile.
type VectorStoreFileStatus string

const (
	VSFileInProgress VectorStoreFileStatus = "in_progress"
	VSFileCompleted  VectorStoreFileStatus = "completed"
	VSFileFailed     VectorStoreFileStatus = "failed"
	VSFileCancelled  VectorStoreFileStatus = "cancelled"
)

// ChunkingStrategy names the algorithm used to split a File into chunks.
type ChunkingStrategy string

const (
	ChunkingFixed     ChunkingStrategy = "fixed"
	ChunkingRecursive ChunkingStrategy = "recursive"
	ChunkingSemantic  ChunkingStrategy = "semantic"
	ChunkingDocument  ChunkingStrategy = "document"
)

// VectorStoreFile links a VectorStore to a File. Dedup key is
// (vector_store_id, content_hash, owner) among non-deleted rows.
type VectorStoreFile struct {
	ID                string                 `gorm:"column:id;primaryKey" json:"id"`
	VectorStoreID     string                 `gorm:"column:vector_store_id;index:idx_gw_vsf_dedup" json:"vector_store_id"`
	FileID            string                 `gorm:"column:file_id" json:"file_id"`
	ContentHash       string                 `gorm:"column:content_hash;index:idx_gw_vsf_dedup" json:"content_hash"`
	OwnerType         string                 `gorm:"column:owner_type;index:idx_gw_vsf_dedup" json:"owner_type"`
	OwnerID           string                 `gorm:"column:owner_id;index:idx_gw_vsf_dedup" json:"owner_id"`
	Status            VectorStoreFileStatus  `gorm:"column:status" json:"status"`
	ChunkingStrategy  ChunkingStrategy       `gorm:"column:chunking_strategy" json:"chunking_strategy"`
	Attributes        JSONObject             `gorm:"column:attributes;type:text" json:"attributes,omitempty"`
	UsageBytes        int64                  `gorm:"column:usage_bytes" json:"usage_bytes"`
	ProcessingVersion int64                  `gorm:"column:processing_version" json:"processing_version"`
	LastError         string                 `gorm:"column:last_error" json:"last_error,omitempty"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt         *time.Time             `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (VectorStoreFile) TableName() string { return "gw_vector_store_files" }

func (v VectorStoreFile) CursorCreatedAt() time.Time { return v.CreatedAt }
func (v VectorStoreFile) CursorID() string           { return v.ID }

// PricingSource identifies the price table that produced a UsageRecord's cost.
type PricingSource string

const (
	PricingStatic           PricingSource = "static_catalog"
	PricingProviderReported  PricingSource = "provider_reported"
	PricingOverride          PricingSource = "override"
)

// UsageRecord is the append-only, idempotent (by RequestID) per-request log.
type UsageRecord struct {
	ID                 string        `gorm:"column:id;primaryKey" json:"id"`
	RequestID          string        `gorm:"column:request_id;uniqueIndex" json:"request_id"`
	APIKeyID           *string       `gorm:"column:api_key_id;index" json:"api_key_id,omitempty"`
	UserID             *string       `gorm:"column:user_id;index" json:"user_id,omitempty"`
	OrgID              *string       `gorm:"column:org_id;index" json:"org_id,omitempty"`
	ProjectID          *string       `gorm:"column:project_id;index" json:"project_id,omitempty"`
	TeamID             *string       `gorm:"column:team_id;index" json:"team_id,omitempty"`
	ServiceAccountID   *string       `gorm:"column:service_account_id;index" json:"service_account_id,omitempty"`
	Model              string        `gorm:"column:model;index" json:"model"`
	Provider           string        `gorm:"column:provider;index" json:"provider"`
	ProviderSource     string        `gorm:"column:provider_source" json:"provider_source,omitempty"`
	InputTokens        int64         `gorm:"column:input_tokens" json:"input_tokens"`
	OutputTokens       int64         `gorm:"column:output_tokens" json:"output_tokens"`
	CachedTokens       int64         `gorm:"column:cached_tokens" json:"cached_tokens"`
	ReasoningTokens     int64         `gorm:"column:reasoning_tokens" json:"reasoning_tokens"`
	TotalTokens        int64         `gorm:"column:total_tokens" json:"total_tokens"`
	CostMicrocents     int64         `gorm:"column:cost_microcents" json:"cost_microcents"`
	PricingSource      PricingSource `gorm:"column:pricing_source" json:"pricing_source"`
	ImageCount         int           `gorm:"column:image_count" json:"image_count,omitempty"`
	AudioSeconds       float64       `gorm:"column:audio_seconds" json:"audio_seconds,omitempty"`
	CharacterCount     int64         `gorm:"column:character_count" json:"character_count,omitempty"`
	LatencyMs          int64         `gorm:"column:latency_ms" json:"latency_ms"`
	Streamed           bool          `gorm:"column:streamed" json:"streamed"`
	FinishReason       string        `gorm:"column:finish_reason" json:"finish_reason,omitempty"`
	Cancelled          bool          `gorm:"column:cancelled" json:"cancelled"`
	StatusCode         int           `gorm:"column:status_code" json:"status_code"`
	HTTPReferer        string        `gorm:"column:http_referer" json:"http_referer,omitempty"`
	RecordedAt         time.Time     `gorm:"column:recorded_at;index" json:"recorded_at"`
}

func (UsageRecord) TableName() string { return "gw_usage_records" }

// AuditLog is an append-only record of control-plane mutations. Additive:
// its absence must never block the mutation it records.
type AuditLog struct {
	ID           string     `gorm:"column:id;primaryKey" json:"id"`
	ActorID      string     `gorm:"column:actor_id" json:"actor_id"`
	Action       string     `gorm:"column:action" json:"action"`
	ResourceType string     `gorm:"column:resource_type;index" json:"resource_type"`
	ResourceID   string     `gorm:"column:resource_id;index" json:"resource_id"`
	Before       JSONObject `gorm:"column:before_state;type:text" json:"before,omitempty"`
	After        JSONObject `gorm:"column:after_state;type:text" json:"after,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (AuditLog) TableName() string { return "gw_audit_logs" }
