package rules

import (
	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// Selection is the outcome of walking a rule's condition blocks
type Selection struct {
	// Blocks holds one entry per block, in order
	Blocks []models.BlockEvaluation
	// Index of the selected block, nil when no block was met
	Index *int
	// Block is the selected block, nil when no block was met
	Block *models.ConditionBlock
}

// Met reports whether a block was selected
func (s *Selection) Met() bool {
	return s.Index != nil
}

// SelectBlock evaluates blocks in order and stops at the first one whose expression holds.
// Blocks after the selected one are recorded with a nil result (not evaluated).
// A block that fails to compile or evaluate counts as not met and keeps the walk going.
func (c *Compiler) SelectBlock(blocks []models.ConditionBlock, metrics models.MetricSnapshot) *Selection {
	sel := &Selection{
		Blocks: make([]models.BlockEvaluation, 0, len(blocks)),
	}

	for i := range blocks {
		block := &blocks[i]
		entry := models.BlockEvaluation{
			Index: i,
			Name:  block.Name,
		}

		if sel.Met() {
			sel.Blocks = append(sel.Blocks, entry)
			continue
		}

		met := false
		compiled, err := c.CompileBlock(block)
		if err != nil {
			entry.Error = err.Error()
		} else {
			trace, err := compiled.Evaluate(metrics)
			entry.Evaluation = trace
			if err != nil {
				entry.Error = err.Error()
			} else {
				met = trace.Result
			}
		}
		entry.Met = &met

		if met {
			idx := i
			sel.Index = &idx
			sel.Block = block
			entry.Executed = true
		}
		sel.Blocks = append(sel.Blocks, entry)
	}

	return sel
}
