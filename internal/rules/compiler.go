package rules

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/mohamedkhairy/ad-autoscaler/internal/models"
)

// metricsVar is the CEL variable holding the metric snapshot
const metricsVar = "m"

// costLimit bounds evaluation of a single block expression
const costLimit = 100000

// Compiler turns condition blocks into CEL programs and caches them by expression
type Compiler struct {
	env      *cel.Env
	programs map[string]cel.Program // expression -> compiled program
	mu       sync.RWMutex
}

// CompiledBlock is a condition block paired with its compiled boolean expression
type CompiledBlock struct {
	Block      *models.ConditionBlock
	Expression string
	program    cel.Program
}

// NewCompiler creates a new block compiler
func NewCompiler() (*Compiler, error) {
	env, err := cel.NewEnv(
		cel.Variable(metricsVar, cel.MapType(cel.StringType, cel.DoubleType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Compiler{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// CompileBlock compiles a condition block into an executable program
func (c *Compiler) CompileBlock(block *models.ConditionBlock) (*CompiledBlock, error) {
	if block == nil {
		return nil, fmt.Errorf("block cannot be nil")
	}

	expr, err := BuildExpression(block)
	if err != nil {
		return nil, err
	}

	prog, err := c.program(expr)
	if err != nil {
		return nil, err
	}

	return &CompiledBlock{
		Block:      block,
		Expression: expr,
		program:    prog,
	}, nil
}

// program returns the cached program for an expression, compiling it on first use
func (c *Compiler) program(expr string) (cel.Program, error) {
	c.mu.RLock()
	prog, exists := c.programs[expr]
	c.mu.RUnlock()
	if exists {
		return prog, nil
	}

	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	prog, err := c.env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}

	c.mu.Lock()
	c.programs[expr] = prog
	c.mu.Unlock()

	return prog, nil
}

// Evaluate runs the block against a metric snapshot and returns the audit trace
func (cb *CompiledBlock) Evaluate(metrics models.MetricSnapshot) (*models.BlockTrace, error) {
	logic := cb.Block.Logic
	if logic == "" {
		logic = models.LogicAndOrAnd
	}
	trace := &models.BlockTrace{
		Logic:      logic,
		Expression: cb.Expression,
	}

	groups, combined, err := evaluateGroups(cb.Block, metrics)
	if err != nil {
		return trace, err
	}
	trace.Groups = groups

	for _, g := range groups {
		for _, ct := range g.Conditions {
			if !ct.Found {
				return trace, fmt.Errorf("metric %q not available", ct.Key)
			}
		}
	}

	out, _, err := cb.program.Eval(map[string]any{
		metricsVar: map[string]float64(metrics),
	})
	if err != nil {
		return trace, fmt.Errorf("evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return trace, fmt.Errorf("expression did not evaluate to a boolean: %v", out.Value())
	}
	if result != combined {
		return trace, fmt.Errorf("compiled expression returned %t but condition trace returned %t", result, combined)
	}
	trace.Result = result

	return trace, nil
}

// BuildExpression renders a block as a CEL boolean expression.
// and_or_and renders "(a && b) || (c && d)"; or_and_or renders "(a || b) && (c || d)".
func BuildExpression(block *models.ConditionBlock) (string, error) {
	if len(block.Groups) == 0 {
		return "", fmt.Errorf("block %q has no condition groups", block.Name)
	}

	inner, outer := " && ", " || "
	if block.Logic == models.LogicOrAndOr {
		inner, outer = " || ", " && "
	}

	groups := make([]string, 0, len(block.Groups))
	for gi, group := range block.Groups {
		if len(group.Conditions) == 0 {
			return "", fmt.Errorf("block %q group %d has no conditions", block.Name, gi)
		}
		terms := make([]string, 0, len(group.Conditions))
		for ci := range group.Conditions {
			term, err := conditionTerm(&group.Conditions[ci])
			if err != nil {
				return "", fmt.Errorf("block %q group %d condition %d: %w", block.Name, gi, ci, err)
			}
			terms = append(terms, term)
		}
		groups = append(groups, "("+strings.Join(terms, inner)+")")
	}

	return strings.Join(groups, outer), nil
}

func conditionTerm(cond *models.Condition) (string, error) {
	if err := ValidateOperator(cond.Operator); err != nil {
		return "", err
	}

	ref := fmt.Sprintf("%s[%s]", metricsVar, strconv.Quote(string(ConditionKey(cond))))
	threshold := doubleLiteral(cond.Value)
	eps := doubleLiteral(FloatEpsilon)

	switch cond.Operator {
	case "==":
		return fmt.Sprintf("(%s - %s < %s && %s - %s < %s)", ref, threshold, eps, threshold, ref, eps), nil
	case "!=":
		return fmt.Sprintf("!(%s - %s < %s && %s - %s < %s)", ref, threshold, eps, threshold, ref, eps), nil
	default:
		return fmt.Sprintf("%s %s %s", ref, cond.Operator, threshold), nil
	}
}

// doubleLiteral formats a float so CEL parses it as a double, never an int
func doubleLiteral(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
