package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/internal/storage"
)

func testAsset() *models.Asset {
	return &models.Asset{
		ID:         "asset-1",
		UserID:     "user-1",
		Platform:   "testplatform",
		ExternalID: "ext-1",
		AssetType:  "adset",
		Budget:     40,
		BudgetType: BudgetDaily,
		IsActive:   true,
		Status:     models.AssetStatusEnabled,
	}
}

func TestRegistry_ForAsset(t *testing.T) {
	creds := &storage.MockCredentialStore{Credentials: map[string]*models.Credential{
		"testplatform:user-1": {Platform: "testplatform", UserID: "user-1", AccessToken: "tok"},
	}}
	mock := NewMockProvider(nil)
	registry := NewRegistry(creds, Config{})
	registry.Register("testplatform", mock.Factory())

	p, err := registry.ForAsset(context.Background(), testAsset())
	require.NoError(t, err)
	assert.Same(t, mock, p)
	assert.Equal(t, []string{PlatformFacebook, "testplatform"}, registry.Platforms())
}

func TestRegistry_MissingCredential(t *testing.T) {
	registry := NewRegistry(&storage.MockCredentialStore{}, Config{})
	registry.Register("testplatform", NewMockProvider(nil).Factory())

	_, err := registry.ForAsset(context.Background(), testAsset())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrActionExecution))
	assert.Contains(t, err.Error(), "no testplatform credential")
}

func TestRegistry_CredentialLookupError(t *testing.T) {
	registry := NewRegistry(&storage.MockCredentialStore{Err: errors.New("db down")}, Config{})
	registry.Register("testplatform", NewMockProvider(nil).Factory())

	_, err := registry.ForAsset(context.Background(), testAsset())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrActionExecution))
}

func TestRegistry_UnsupportedPlatform(t *testing.T) {
	registry := NewRegistry(&storage.MockCredentialStore{}, Config{})

	asset := testAsset()
	asset.Platform = "myspace"
	_, err := registry.ForAsset(context.Background(), asset)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
	assert.True(t, errors.Is(err, models.ErrActionExecution))
}

func TestRegistry_DryRun(t *testing.T) {
	registry := NewRegistry(&storage.MockCredentialStore{}, Config{DryRun: true})

	p, err := registry.ForAsset(context.Background(), testAsset())
	require.NoError(t, err)
	_, ok := p.(*DryRunProvider)
	assert.True(t, ok, "dry run must not need a credential")
}

func TestDryRunProvider(t *testing.T) {
	p := NewDryRunProvider(testAsset())
	ctx := context.Background()

	info, err := p.GetBudget(ctx, "ext-1", "adset")
	require.NoError(t, err)
	assert.Equal(t, 40.0, info.Budget)
	assert.Equal(t, BudgetDaily, info.BudgetType)

	require.NoError(t, p.UpdateBudget(ctx, "ext-1", "adset", 48, BudgetDaily))
	info, err = p.GetBudget(ctx, "ext-1", "adset")
	require.NoError(t, err)
	assert.Equal(t, 48.0, info.Budget)

	require.NoError(t, p.PauseAsset(ctx, "ext-1", "adset"))
	assert.True(t, p.Paused())

	_, err = p.GetBudget(ctx, "ext-1", "ad")
	assert.ErrorIs(t, err, ErrNoBudget)
}
