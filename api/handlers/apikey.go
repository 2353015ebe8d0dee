package handlers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ScriptSmith/hadrian/pagination"
	"github.com/ScriptSmith/hadrian/repo"
	"github.com/ScriptSmith/hadrian/tenant"
	"github.com/ScriptSmith/hadrian/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// APIKeyHandler serves CRUD over tenant.APIKey and tenant.DynamicProvider,
// the control-plane surface in front of the RepositoryKernel.
type APIKeyHandler struct {
	kernel *repo.Kernel
	logger *zap.Logger
}

func NewAPIKeyHandler(kernel *repo.Kernel, logger *zap.Logger) *APIKeyHandler {
	return &APIKeyHandler{kernel: kernel, logger: logger}
}

func maskAPIKey(prefix string) string {
	return prefix + strings.Repeat("*", 24)
}

// HandleListProviders GET /api/v1/orgs/{orgId}/providers
func (h *APIKeyHandler) HandleListProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}
	orgID := r.PathValue("orgId")
	if orgID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "org id is required", h.logger)
		return
	}

	rows, cursors, err := h.kernel.DynamicProviders.ListByOrg(r.Context(), orgID, pagination.ListParams{
		Limit:  parseLimit(r),
		Cursor: parseCursor(r),
	})
	if err != nil {
		writeRepoError(w, err, h.logger)
		return
	}
	WriteSuccess(w, listResponse[tenant.DynamicProvider]{Items: rows, Cursors: cursors})
}

type createProviderRequest struct {
	ProviderType    string   `json:"provider_type"`
	BaseURL         string   `json:"base_url"`
	APIKeySecretRef string   `json:"api_key_secret_ref"`
	Models          []string `json:"models"`
	IsEnabled       *bool    `json:"is_enabled"`
}

// HandleCreateProvider POST /api/v1/orgs/{orgId}/providers
func (h *APIKeyHandler) HandleCreateProvider(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}
	orgID := r.PathValue("orgId")
	if orgID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "org id is required", h.logger)
		return
	}

	var req createProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "invalid request body", h.logger)
		return
	}
	if strings.TrimSpace(req.ProviderType) == "" || !ValidateURL(req.BaseURL) {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "provider_type and a valid base_url are required", h.logger)
		return
	}

	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}
	provider := &tenant.DynamicProvider{
		ID:              uuid.NewString(),
		OrgID:           orgID,
		ProviderType:    req.ProviderType,
		BaseURL:         strings.TrimRight(req.BaseURL, "/"),
		APIKeySecretRef: req.APIKeySecretRef,
		Models:          tenant.JSONStrings(req.Models),
		IsEnabled:       enabled,
	}
	if err := h.kernel.DynamicProviders.Create(r.Context(), provider); err != nil {
		writeRepoError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusCreated, Response{Success: true, Data: provider})
}

// HandleDeleteProvider DELETE /api/v1/orgs/{orgId}/providers/{providerId}
func (h *APIKeyHandler) HandleDeleteProvider(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}
	id := r.PathValue("providerId")
	if err := h.kernel.DynamicProviders.Delete(r.Context(), id); err != nil {
		writeRepoError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]string{"message": "provider deleted"})
}

type createAPIKeyRequest struct {
	OwnerType        string   `json:"owner_type"`
	OwnerID          string   `json:"owner_id"`
	Name             string   `json:"name"`
	Scopes           []string `json:"scopes"`
	AllowedModels    []string `json:"allowed_models"`
	RateLimitRPM     *int     `json:"rate_limit_rpm"`
	RateLimitTPM     *int     `json:"rate_limit_tpm"`
	BudgetLimitCents *int64   `json:"budget_limit_cents"`
}

type createAPIKeyResponse struct {
	Key    tenant.APIKey `json:"key"`
	Secret string        `json:"secret"`
}

// HandleCreateAPIKey POST /api/v1/api-keys
// The plaintext secret is returned exactly once; only its SHA-256 hash and
// 8-character prefix are persisted.
func (h *APIKeyHandler) HandleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	var req createAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "invalid request body", h.logger)
		return
	}
	owner := tenant.OwnerRef{Type: tenant.OwnerType(req.OwnerType), ID: req.OwnerID}
	if err := owner.Validate(); err != nil {
		WriteError(w, err.(*types.Error), h.logger)
		return
	}

	secret, err := generateAPIKeySecret()
	if err != nil {
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError, "failed to generate key", h.logger)
		return
	}
	hash := hashAPIKeySecret(secret)

	key := &tenant.APIKey{
		ID:            uuid.NewString(),
		OwnerType:     string(owner.Type),
		OwnerID:       owner.ID,
		Name:          req.Name,
		Scopes:        tenant.JSONStrings(req.Scopes),
		AllowedModels: tenant.JSONStrings(req.AllowedModels),
		RateLimitRPM:  req.RateLimitRPM,
		RateLimitTPM:  req.RateLimitTPM,
	}
	if req.BudgetLimitCents != nil {
		key.BudgetLimitCents = req.BudgetLimitCents
		monthly := tenant.BudgetMonthly
		key.BudgetPeriod = &monthly
	}

	if err := h.kernel.APIKeys.Create(r.Context(), key, hash); err != nil {
		writeRepoError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    createAPIKeyResponse{Key: *key, Secret: "sk-" + secret},
	})
}

// HandleListAPIKeys GET /api/v1/owners/{ownerType}/{ownerId}/api-keys
func (h *APIKeyHandler) HandleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}
	ownerType := r.PathValue("ownerType")
	ownerID := r.PathValue("ownerId")

	rows, cursors, err := h.kernel.APIKeys.ListByOwner(r.Context(), ownerType, ownerID, pagination.ListParams{
		Limit:  parseLimit(r),
		Cursor: parseCursor(r),
	})
	if err != nil {
		writeRepoError(w, err, h.logger)
		return
	}
	for i := range rows {
		rows[i].KeyHash = ""
	}
	WriteSuccess(w, listResponse[tenant.APIKey]{Items: rows, Cursors: cursors})
}

// HandleRevokeAPIKey POST /api/v1/api-keys/{keyId}/revoke
func (h *APIKeyHandler) HandleRevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}
	keyID := r.PathValue("keyId")
	if err := h.kernel.APIKeys.Revoke(r.Context(), keyID); err != nil {
		writeRepoError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]string{"message": "api key revoked"})
}

type rotateAPIKeyRequest struct {
	GracePeriodSeconds int `json:"grace_period_seconds"`
}

// HandleRotateAPIKey POST /api/v1/api-keys/{keyId}/rotate
func (h *APIKeyHandler) HandleRotateAPIKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}
	oldID := r.PathValue("keyId")

	var req rotateAPIKeyRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	grace := req.GracePeriodSeconds
	if grace <= 0 {
		grace = 86400
	}

	old, err := h.kernel.APIKeys.GetByID(r.Context(), oldID)
	if err != nil {
		writeRepoError(w, err, h.logger)
		return
	}

	secret, err := generateAPIKeySecret()
	if err != nil {
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError, "failed to generate key", h.logger)
		return
	}
	hash := hashAPIKeySecret(secret)

	newKey := &tenant.APIKey{
		ID:            uuid.NewString(),
		OwnerType:     old.OwnerType,
		OwnerID:       old.OwnerID,
		Name:          old.Name,
		Scopes:        old.Scopes,
		AllowedModels: old.AllowedModels,
		RateLimitRPM:  old.RateLimitRPM,
		RateLimitTPM:  old.RateLimitTPM,
	}

	created, err := h.kernel.APIKeys.Rotate(r.Context(), oldID, newKey, hash, nowPlusSeconds(grace))
	if err != nil {
		writeRepoError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    createAPIKeyResponse{Key: *created, Secret: "sk-" + secret},
	})
}

func generateAPIKeySecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashAPIKeySecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func nowPlusSeconds(seconds int) time.Time {
	return time.Now().Add(time.Duration(seconds) * time.Second)
}

type listResponse[T any] struct {
	Items   []T                    `json:"items"`
	Cursors pagination.PageCursors `json:"cursors"`
}

func parseLimit(r *http.Request) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func parseCursor(r *http.Request) *pagination.Cursor {
	token := r.URL.Query().Get("cursor")
	if token == "" {
		return nil
	}
	c, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil
	}
	return c
}

func writeRepoError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if te, ok := err.(*types.Error); ok {
		WriteError(w, te, logger)
		return
	}
	WriteError(w, types.Internal(err.Error()).WithCause(err), logger)
}
