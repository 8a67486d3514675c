// Package dag parses workflow definitions into validated dependency graphs
// and answers ordering, reachability and parallelism queries over them.
package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse indicates a structurally malformed definition.
	ErrParse = errors.New("workflow definition parse error")

	// ErrValidation indicates a referentially invalid definition: unknown
	// depends_on ids, self-dependencies, dangling param or condition
	// references. Rejected before any persistence.
	ErrValidation = errors.New("workflow definition validation error")

	// ErrCyclicDependency indicates the step graph contains a cycle and
	// no execution order exists.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrNotExecutable indicates a draft (zero-step) definition was
	// submitted for execution.
	ErrNotExecutable = errors.New("workflow is a draft and cannot be executed")

	// ErrUnknownStep is returned by graph queries for undeclared step ids.
	ErrUnknownStep = errors.New("unknown step")
)

// ValidationError aggregates every reference problem found in one pass so
// callers see the full list, not just the first.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrValidation, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// CycleError reports the step ids left unscheduled when order resolution
// stalled, i.e. the nodes participating in (or downstream of) a cycle.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: unresolvable steps %s", ErrCyclicDependency, strings.Join(e.Remaining, ", "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCyclicDependency
}
