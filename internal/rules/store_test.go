package rules

import (
	"context"
	"testing"
	"time"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

func TestInMemoryRuleStore_AddAndGet(t *testing.T) {
	store := NewInMemoryRuleStore()
	ctx := context.Background()

	if err := store.AddRule(validRule()); err != nil {
		t.Fatalf("AddRule() error = %v", err)
	}
	if err := store.AddRule(validRule()); err == nil {
		t.Error("Expected error when adding duplicate rule")
	}

	rec, err := store.GetRule(ctx, "rule-1")
	if err != nil {
		t.Fatalf("GetRule() error = %v", err)
	}
	if rec.AssetID != "asset-1" {
		t.Errorf("Expected asset-1, got %s", rec.AssetID)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}

	// mutating the copy must not touch the store
	rec.Config = []byte("garbage")
	again, _ := store.GetRule(ctx, "rule-1")
	if _, err := DecodeRule(again); err != nil {
		t.Errorf("Stored rule was modified through a copy: %v", err)
	}

	if _, err := store.GetRule(ctx, "missing"); err == nil {
		t.Error("Expected error for missing rule")
	}
}

func TestInMemoryRuleStore_ListActiveRules(t *testing.T) {
	store := NewInMemoryRuleStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"rule-b", "rule-a", "rule-c"} {
		r := validRule()
		r.ID = id
		r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		r.IsActive = id != "rule-a"
		if err := store.AddRule(r); err != nil {
			t.Fatalf("AddRule() error = %v", err)
		}
	}
	if err := store.AddRecord(&models.RuleRecord{ID: "rule-d", AssetID: "asset-1", IsActive: true, Status: 0, Config: []byte(`{}`)}); err != nil {
		t.Fatalf("AddRecord() error = %v", err)
	}

	active, err := store.ListActiveRules(ctx)
	if err != nil {
		t.Fatalf("ListActiveRules() error = %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("Expected 2 active rules, got %d", len(active))
	}
	if active[0].ID != "rule-b" || active[1].ID != "rule-c" {
		t.Errorf("Unexpected order: %s, %s", active[0].ID, active[1].ID)
	}
}
