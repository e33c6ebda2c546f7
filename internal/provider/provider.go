package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
	"github.com/mohamedkhairy/ad-autoscaler/internal/storage"
)

// Budget types reported by providers
const (
	BudgetDaily    = "daily"
	BudgetLifetime = "lifetime"
)

var (
	// ErrNoBudget is returned when an asset has no budget of its own (e.g. an ad under a budgeted ad set)
	ErrNoBudget = errors.New("asset has no budget")
	// ErrUnsupportedPlatform is returned when no factory is registered for a platform
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// AdProvider controls budgets and delivery of assets on one ad platform
type AdProvider interface {
	// GetBudget returns the current budget of an asset
	GetBudget(ctx context.Context, assetID, assetType string) (*BudgetInfo, error)

	// UpdateBudget sets a new budget, in major currency units
	UpdateBudget(ctx context.Context, assetID, assetType string, newBudget float64, budgetType string) error

	// PauseAsset stops delivery of an asset
	PauseAsset(ctx context.Context, assetID, assetType string) error
}

// BudgetInfo is the budget of an asset as reported by the platform
type BudgetInfo struct {
	Budget     float64 `json:"budget"`
	BudgetType string  `json:"budget_type"`
}

// Config holds settings shared by platform providers
type Config struct {
	Timeout time.Duration
	DryRun  bool
}

// Factory builds a provider from a stored credential
type Factory func(cred *models.Credential, cfg Config) (AdProvider, error)

// Registry builds providers for assets, keyed by platform
type Registry struct {
	factories   map[string]Factory
	credentials storage.CredentialStore
	config      Config
	mu          sync.RWMutex
}

// NewRegistry creates a registry with the built-in platforms registered
func NewRegistry(credentials storage.CredentialStore, cfg Config) *Registry {
	r := &Registry{
		factories:   make(map[string]Factory),
		credentials: credentials,
		config:      cfg,
	}

	r.Register(PlatformFacebook, NewGraphProvider)

	return r
}

// Register registers a factory for a platform, replacing any previous one
func (r *Registry) Register(platform string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[platform] = factory
}

// Platforms returns the registered platforms, sorted
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	platforms := make([]string, 0, len(r.factories))
	for p := range r.factories {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	return platforms
}

// ForAsset returns the provider that controls the asset.
// Any failure is an action execution error.
func (r *Registry) ForAsset(ctx context.Context, asset *models.Asset) (AdProvider, error) {
	if asset == nil {
		return nil, fmt.Errorf("%w: asset cannot be nil", models.ErrActionExecution)
	}

	if r.config.DryRun {
		return NewDryRunProvider(asset), nil
	}

	r.mu.RLock()
	factory, ok := r.factories[asset.Platform]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q", models.ErrActionExecution, ErrUnsupportedPlatform, asset.Platform)
	}

	cred, err := r.credentials.GetCredential(ctx, asset.Platform, asset.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load %s credential: %v", models.ErrActionExecution, asset.Platform, err)
	}
	if cred == nil {
		return nil, fmt.Errorf("%w: no %s credential for user %s", models.ErrActionExecution, asset.Platform, asset.UserID)
	}

	p, err := factory(cred, r.config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrActionExecution, err)
	}
	return p, nil
}
