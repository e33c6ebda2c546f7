package rules

import (
	"testing"

	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

func selectorBlocks() []models.ConditionBlock {
	return []models.ConditionBlock{
		{
			Name:   "high roas",
			Logic:  models.LogicAndOrAnd,
			Groups: []models.ConditionGroup{{Conditions: []models.Condition{cond("roas", ">", 3, models.RangeToday)}}},
			Actions: []models.Action{
				{Type: models.ActionIncreaseBudget, ChangeBy: 20, ChangeType: models.ChangePercent, TimePeriod: models.PeriodDaily},
			},
		},
		{
			Name:   "low roas",
			Logic:  models.LogicAndOrAnd,
			Groups: []models.ConditionGroup{{Conditions: []models.Condition{cond("roas", "<", 1, models.RangeToday)}}},
			Actions: []models.Action{
				{Type: models.ActionDecreaseBudget, ChangeBy: 20, ChangeType: models.ChangePercent, TimePeriod: models.PeriodDaily},
			},
		},
		{
			Name:   "losing money",
			Logic:  models.LogicAndOrAnd,
			Groups: []models.ConditionGroup{{Conditions: []models.Condition{cond("profit", "<", 0, models.RangeToday)}}},
			Actions: []models.Action{
				{Type: models.ActionPause, TimePeriod: models.PeriodOnce},
			},
		},
	}
}

func TestSelectBlock_FirstMatchWins(t *testing.T) {
	c := newTestCompiler(t)
	blocks := selectorBlocks()

	sel := c.SelectBlock(blocks, models.MetricSnapshot{"roas_today": 0.5, "profit_today": -10})

	if !sel.Met() {
		t.Fatal("Expected a block to be selected")
	}
	if *sel.Index != 1 {
		t.Errorf("Expected block 1 to be selected, got %d", *sel.Index)
	}
	if sel.Block.Name != "low roas" {
		t.Errorf("Expected low roas block, got %s", sel.Block.Name)
	}
	if len(sel.Blocks) != 3 {
		t.Fatalf("Expected 3 block entries, got %d", len(sel.Blocks))
	}

	first := sel.Blocks[0]
	if first.Met == nil || *first.Met {
		t.Errorf("Block 0 should be evaluated and not met: %+v", first)
	}
	if first.Evaluation == nil {
		t.Error("Block 0 should carry its evaluation")
	}

	if !sel.Blocks[1].Executed {
		t.Error("Block 1 should be marked executed")
	}

	// the third block also holds but was never checked
	last := sel.Blocks[2]
	if last.Met != nil || last.Evaluation != nil {
		t.Errorf("Block after the match must be not evaluated, got %+v", last)
	}
	if last.Executed {
		t.Error("Block after the match must not be executed")
	}
}

func TestSelectBlock_AtMostOneMet(t *testing.T) {
	c := newTestCompiler(t)
	blocks := selectorBlocks()

	snapshots := []models.MetricSnapshot{
		{"roas_today": 5, "profit_today": 100},
		{"roas_today": 0.2, "profit_today": -40},
		{"roas_today": 2, "profit_today": -1},
		{"roas_today": 2, "profit_today": 10},
	}

	for _, metrics := range snapshots {
		sel := c.SelectBlock(blocks, metrics)
		met := 0
		for _, b := range sel.Blocks {
			if b.Met != nil && *b.Met {
				met++
			}
		}
		if met > 1 {
			t.Errorf("Expected at most one met block for %v, got %d", metrics, met)
		}
		if sel.Met() != (met == 1) {
			t.Errorf("Selection.Met() = %v with %d met blocks", sel.Met(), met)
		}
	}
}

func TestSelectBlock_NoMatch(t *testing.T) {
	c := newTestCompiler(t)

	sel := c.SelectBlock(selectorBlocks(), models.MetricSnapshot{"roas_today": 2, "profit_today": 10})

	if sel.Met() {
		t.Fatalf("Expected no block selected, got %d", *sel.Index)
	}
	for _, b := range sel.Blocks {
		if b.Met == nil || *b.Met {
			t.Errorf("Every block should be evaluated as not met: %+v", b)
		}
	}
}

func TestSelectBlock_ErrorDoesNotStopWalk(t *testing.T) {
	c := newTestCompiler(t)
	blocks := []models.ConditionBlock{
		block(models.LogicAndOrAnd, cond("roas", "<", 1, models.RangeLast7d)),
		block(models.LogicAndOrAnd, cond("roas", "<", 1, models.RangeToday)),
	}

	sel := c.SelectBlock(blocks, models.MetricSnapshot{"roas_today": 0.5})

	if sel.Blocks[0].Error == "" {
		t.Error("Expected block 0 to record the missing metric")
	}
	if sel.Blocks[0].Met == nil || *sel.Blocks[0].Met {
		t.Error("Block 0 should be recorded as not met")
	}
	if !sel.Met() || *sel.Index != 1 {
		t.Errorf("Expected block 1 to be selected")
	}
}

func TestSelectBlock_Idempotent(t *testing.T) {
	c := newTestCompiler(t)
	blocks := selectorBlocks()
	metrics := models.MetricSnapshot{"roas_today": 0.5, "profit_today": -10}

	a := c.SelectBlock(blocks, metrics)
	b := c.SelectBlock(blocks, metrics)

	if a.Met() != b.Met() || *a.Index != *b.Index {
		t.Errorf("Selections differ: %v vs %v", *a.Index, *b.Index)
	}
}
