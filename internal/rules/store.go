package rules

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// InMemoryRuleStore is an in-memory implementation of RuleStore
type InMemoryRuleStore struct {
	mu    sync.RWMutex
	rules map[string]*models.RuleRecord
}

// NewInMemoryRuleStore creates a new in-memory rule store
func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{
		rules: make(map[string]*models.RuleRecord),
	}
}

// GetRule retrieves a rule by ID
func (s *InMemoryRuleStore) GetRule(ctx context.Context, id string) (*models.RuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.rules[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", models.ErrRuleNotFound, id)
	}

	// Return a copy to prevent external modifications
	return copyRecord(rec), nil
}

// ListActiveRules retrieves all active rules ordered by creation time
func (s *InMemoryRuleStore) ListActiveRules(ctx context.Context) ([]*models.RuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.RuleRecord, 0, len(s.rules))
	for _, rec := range s.rules {
		if IsActive(rec) {
			out = append(out, copyRecord(rec))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

// AddRule encodes and stores a rule
func (s *InMemoryRuleStore) AddRule(rule *models.Rule) error {
	rec, err := EncodeRule(rule)
	if err != nil {
		return err
	}
	return s.AddRecord(rec)
}

// AddRecord stores a raw rule record without validating its config.
// Used to seed malformed configs.
func (s *InMemoryRuleStore) AddRecord(rec *models.RuleRecord) error {
	if rec == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if rec.ID == "" {
		return fmt.Errorf("rule ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rec.ID]; exists {
		return fmt.Errorf("rule already exists: %s", rec.ID)
	}

	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	s.rules[rec.ID] = copyRecord(rec)
	return nil
}

func copyRecord(rec *models.RuleRecord) *models.RuleRecord {
	copied := *rec
	copied.Config = append([]byte(nil), rec.Config...)
	return &copied
}
