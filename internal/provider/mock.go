package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// BudgetUpdate is one UpdateBudget call recorded by MockProvider
type BudgetUpdate struct {
	AssetID    string
	Budget     float64
	BudgetType string
}

// MockProvider is a mock implementation of AdProvider for testing
type MockProvider struct {
	mu         sync.Mutex
	Budgets    map[string]*BudgetInfo // by asset ID
	Updates    []BudgetUpdate
	Paused     []string
	GetErr     error
	UpdateErr  error
	PauseErr   error
	PanicOnGet bool
}

// NewMockProvider creates a mock provider holding one daily budget per asset
func NewMockProvider(budgets map[string]float64) *MockProvider {
	m := &MockProvider{Budgets: make(map[string]*BudgetInfo)}
	for id, b := range budgets {
		m.Budgets[id] = &BudgetInfo{Budget: b, BudgetType: BudgetDaily}
	}
	return m
}

func (m *MockProvider) GetBudget(ctx context.Context, assetID, assetType string) (*BudgetInfo, error) {
	if m.PanicOnGet {
		panic("mock provider panic")
	}
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Budgets[assetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoBudget, assetID)
	}
	copied := *b
	return &copied, nil
}

func (m *MockProvider) UpdateBudget(ctx context.Context, assetID, assetType string, newBudget float64, budgetType string) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates = append(m.Updates, BudgetUpdate{AssetID: assetID, Budget: newBudget, BudgetType: budgetType})
	if m.Budgets == nil {
		m.Budgets = make(map[string]*BudgetInfo)
	}
	m.Budgets[assetID] = &BudgetInfo{Budget: newBudget, BudgetType: budgetType}
	return nil
}

func (m *MockProvider) PauseAsset(ctx context.Context, assetID, assetType string) error {
	if m.PauseErr != nil {
		return m.PauseErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Paused = append(m.Paused, assetID)
	return nil
}

// Factory returns a registry factory that always hands out this mock
func (m *MockProvider) Factory() Factory {
	return func(cred *models.Credential, cfg Config) (AdProvider, error) {
		return m, nil
	}
}
