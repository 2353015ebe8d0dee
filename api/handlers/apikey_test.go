package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ScriptSmith/hadrian/repo"
	"github.com/ScriptSmith/hadrian/tenant"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestKernel(t *testing.T) *repo.Kernel {
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
	return repo.NewKernel(db, zap.NewNop())
}

func seedOrg(t *testing.T, k *repo.Kernel) string {
	t.Helper()
	org := &tenant.Organization{ID: "org-1", Name: "Acme", Slug: "acme"}
	require.NoError(t, k.Organizations.Create(context.Background(), org))
	return org.ID
}

func TestMaskAPIKey(t *testing.T) {
	masked := maskAPIKey("abcd1234")
	assert.True(t, strings.HasPrefix(masked, "abcd1234"))
	assert.True(t, strings.HasSuffix(masked, strings.Repeat("*", 24)))
}

func TestHandleListProviders(t *testing.T) {
	k := setupTestKernel(t)
	orgID := seedOrg(t, k)
	h := NewAPIKeyHandler(k, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/"+orgID+"/providers", nil)
	req.SetPathValue("orgId", orgID)
	w := httptest.NewRecorder()
	h.HandleListProviders(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestHandleCreateAndDeleteProvider(t *testing.T) {
	k := setupTestKernel(t)
	orgID := seedOrg(t, k)
	h := NewAPIKeyHandler(k, zap.NewNop())

	body, _ := json.Marshal(createProviderRequest{
		ProviderType: "openai",
		BaseURL:      "https://api.openai.com/v1",
		Models:       []string{"gpt-4o"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orgs/"+orgID+"/providers", bytes.NewReader(body))
	req.SetPathValue("orgId", orgID)
	w := httptest.NewRecorder()
	h.HandleCreateProvider(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var createResp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &createResp))
	data, _ := json.Marshal(createResp.Data)
	var provider tenant.DynamicProvider
	require.NoError(t, json.Unmarshal(data, &provider))
	assert.Equal(t, "https://api.openai.com/v1", provider.BaseURL)

	delReq := httptest.NewRequest(http.MethodDelete, "/api/v1/orgs/"+orgID+"/providers/"+provider.ID, nil)
	delReq.SetPathValue("providerId", provider.ID)
	delW := httptest.NewRecorder()
	h.HandleDeleteProvider(delW, delReq)
	assert.Equal(t, http.StatusOK, delW.Code)
}

func TestHandleCreateProvider_InvalidURL(t *testing.T) {
	k := setupTestKernel(t)
	orgID := seedOrg(t, k)
	h := NewAPIKeyHandler(k, zap.NewNop())

	body, _ := json.Marshal(createProviderRequest{ProviderType: "openai", BaseURL: "not-a-url"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orgs/"+orgID+"/providers", bytes.NewReader(body))
	req.SetPathValue("orgId", orgID)
	w := httptest.NewRecorder()
	h.HandleCreateProvider(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCreateAndListAPIKeys(t *testing.T) {
	k := setupTestKernel(t)
	orgID := seedOrg(t, k)
	h := NewAPIKeyHandler(k, zap.NewNop())

	body, _ := json.Marshal(createAPIKeyRequest{
		OwnerType: string(tenant.OwnerOrganization),
		OwnerID:   orgID,
		Name:      "ci key",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/api-keys", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleCreateAPIKey(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var createResp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &createResp))
	assert.True(t, createResp.Success)

	data, _ := json.Marshal(createResp.Data)
	var keyResp createAPIKeyResponse
	require.NoError(t, json.Unmarshal(data, &keyResp))
	assert.True(t, strings.HasPrefix(keyResp.Secret, "sk-"))
	assert.Len(t, keyResp.Key.KeyPrefix, 8)

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/owners/"+string(tenant.OwnerOrganization)+"/"+orgID+"/api-keys", nil)
	listReq.SetPathValue("ownerType", string(tenant.OwnerOrganization))
	listReq.SetPathValue("ownerId", orgID)
	listW := httptest.NewRecorder()
	h.HandleListAPIKeys(listW, listReq)
	assert.Equal(t, http.StatusOK, listW.Code)

	var listResp Response
	require.NoError(t, json.Unmarshal(listW.Body.Bytes(), &listResp))
	listData, _ := json.Marshal(listResp.Data)
	var page listResponse[tenant.APIKey]
	require.NoError(t, json.Unmarshal(listData, &page))
	require.Len(t, page.Items, 1)
	assert.Empty(t, page.Items[0].KeyHash)
}

func TestHandleCreateAPIKey_InvalidOwner(t *testing.T) {
	k := setupTestKernel(t)
	h := NewAPIKeyHandler(k, zap.NewNop())

	body, _ := json.Marshal(createAPIKeyRequest{OwnerType: "bogus", OwnerID: "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/api-keys", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleCreateAPIKey(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRevokeAPIKey(t *testing.T) {
	k := setupTestKernel(t)
	orgID := seedOrg(t, k)
	h := NewAPIKeyHandler(k, zap.NewNop())

	body, _ := json.Marshal(createAPIKeyRequest{OwnerType: string(tenant.OwnerOrganization), OwnerID: orgID, Name: "revoke-me"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/api-keys", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleCreateAPIKey(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var createResp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &createResp))
	data, _ := json.Marshal(createResp.Data)
	var keyResp createAPIKeyResponse
	require.NoError(t, json.Unmarshal(data, &keyResp))

	revReq := httptest.NewRequest(http.MethodPost, "/api/v1/api-keys/"+keyResp.Key.ID+"/revoke", nil)
	revReq.SetPathValue("keyId", keyResp.Key.ID)
	revW := httptest.NewRecorder()
	h.HandleRevokeAPIKey(revW, revReq)
	assert.Equal(t, http.StatusOK, revW.Code)

	// revoking again is a not-found: the row no longer matches the active predicate.
	revW2 := httptest.NewRecorder()
	h.HandleRevokeAPIKey(revW2, revReq)
	assert.Equal(t, http.StatusNotFound, revW2.Code)
}

func TestHandleRotateAPIKey(t *testing.T) {
	k := setupTestKernel(t)
	orgID := seedOrg(t, k)
	h := NewAPIKeyHandler(k, zap.NewNop())

	body, _ := json.Marshal(createAPIKeyRequest{OwnerType: string(tenant.OwnerOrganization), OwnerID: orgID, Name: "rotate-me"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/api-keys", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleCreateAPIKey(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var createResp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &createResp))
	data, _ := json.Marshal(createResp.Data)
	var keyResp createAPIKeyResponse
	require.NoError(t, json.Unmarshal(data, &keyResp))

	rotBody, _ := json.Marshal(rotateAPIKeyRequest{GracePeriodSeconds: 3600})
	rotReq := httptest.NewRequest(http.MethodPost, "/api/v1/api-keys/"+keyResp.Key.ID+"/rotate", bytes.NewReader(rotBody))
	rotReq.SetPathValue("keyId", keyResp.Key.ID)
	rotW := httptest.NewRecorder()
	h.HandleRotateAPIKey(rotW, rotReq)
	require.Equal(t, http.StatusCreated, rotW.Code)

	var rotResp Response
	require.NoError(t, json.Unmarshal(rotW.Body.Bytes(), &rotResp))
	rotData, _ := json.Marshal(rotResp.Data)
	var rotated createAPIKeyResponse
	require.NoError(t, json.Unmarshal(rotData, &rotated))
	assert.NotEqual(t, keyResp.Key.ID, rotated.Key.ID)
	require.NotNil(t, rotated.Key.RotatedFromKeyID)
	assert.Equal(t, keyResp.Key.ID, *rotated.Key.RotatedFromKeyID)
}

func TestHandleRevokeAPIKey_NotFound(t *testing.T) {
	k := setupTestKernel(t)
	h := NewAPIKeyHandler(k, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/api-keys/does-not-exist/revoke", nil)
	req.SetPathValue("keyId", "does-not-exist")
	w := httptest.NewRecorder()
	h.HandleRevokeAPIKey(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
