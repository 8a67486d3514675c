// Package expression evaluates per-step boolean skip conditions against
// workflow parameters and prior step outputs.
package expression

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Evaluator compiles and runs boolean step conditions. Compiled programs
// are cached and reused across goroutines.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewEvaluator creates a condition evaluator with an empty program cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		cache: make(map[string]*vm.Program),
	}
}

// Evaluate runs a condition against the merged workflow parameters and the
// outputs produced by completed steps. An empty condition is true. The
// expression must produce a boolean; anything else is an evaluation error.
// Reference validity is checked at DAG-validation time, not here.
func (e *Evaluator) Evaluate(condition string, params map[string]any, stepOutputs map[string]map[string]any) (bool, error) {
	if condition == "" {
		return true, nil
	}

	prg, err := e.getOrCompile(condition)
	if err != nil {
		return false, err
	}

	env := map[string]any{
		"params": params,
		"steps":  stepOutputs,
	}

	out, err := vm.Run(prg, env)
	if err != nil {
		return false, fmt.Errorf("condition %q evaluation failed: %w", condition, err)
	}

	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q evaluated to %T, want bool", condition, out)
	}

	return result, nil
}

func (e *Evaluator) getOrCompile(condition string) (*vm.Program, error) {
	e.mu.RLock()
	if prg, ok := e.cache[condition]; ok {
		e.mu.RUnlock()

		return prg, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.cache[condition]; ok {
		return prg, nil
	}

	prg, err := expr.Compile(condition, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("condition %q compile failed: %w", condition, err)
	}

	e.cache[condition] = prg

	return prg, nil
}
