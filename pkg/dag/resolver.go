package dag

import (
	"fmt"
	"sort"

	"github.com/stratoml/strato/pkg/models"
)

// Resolver answers ordering and reachability queries over a step graph.
// It is read-only after construction and safe for concurrent use.
type Resolver struct {
	order      []string                       // declaration order, for determinism
	dependsOn  map[string]map[string]struct{} // step -> direct upstream
	dependents map[string]map[string]struct{} // step -> direct downstream
}

// NewResolver builds adjacency structures over the given steps. The steps
// are assumed to have passed Parse validation (existing, non-self deps).
func NewResolver(steps []*models.Step) *Resolver {
	r := &Resolver{
		order:      make([]string, 0, len(steps)),
		dependsOn:  make(map[string]map[string]struct{}, len(steps)),
		dependents: make(map[string]map[string]struct{}, len(steps)),
	}

	for _, step := range steps {
		r.order = append(r.order, step.ID)
		r.dependsOn[step.ID] = make(map[string]struct{}, len(step.DependsOn))

		if _, ok := r.dependents[step.ID]; !ok {
			r.dependents[step.ID] = make(map[string]struct{})
		}
	}

	for _, step := range steps {
		for _, dep := range step.DependsOn {
			r.dependsOn[step.ID][dep] = struct{}{}

			if _, ok := r.dependents[dep]; !ok {
				r.dependents[dep] = make(map[string]struct{})
			}

			r.dependents[dep][step.ID] = struct{}{}
		}
	}

	return r
}

// ExecutionOrder returns the steps layered into batches: each batch is the
// maximal set of not-yet-scheduled steps whose dependencies all sit in
// earlier batches, so everything inside a batch may run concurrently.
// Kahn's algorithm by repeated removal of in-degree-zero nodes; if a round
// schedules nothing while steps remain, those steps form or depend on a
// cycle and a CycleError is returned. Batch contents are sorted by id for
// deterministic output.
func (r *Resolver) ExecutionOrder() ([][]string, error) {
	remaining := make(map[string]int, len(r.order))
	for id, deps := range r.dependsOn {
		remaining[id] = len(deps)
	}

	scheduled := make(map[string]struct{}, len(r.order))
	batches := make([][]string, 0)

	for len(scheduled) < len(r.order) {
		batch := make([]string, 0)

		for _, id := range r.order {
			if _, done := scheduled[id]; done {
				continue
			}

			if remaining[id] == 0 {
				batch = append(batch, id)
			}
		}

		if len(batch) == 0 {
			var stuck []string

			for _, id := range r.order {
				if _, done := scheduled[id]; !done {
					stuck = append(stuck, id)
				}
			}

			sort.Strings(stuck)

			return nil, &CycleError{Remaining: stuck}
		}

		sort.Strings(batch)

		for _, id := range batch {
			scheduled[id] = struct{}{}

			for dependent := range r.dependents[id] {
				remaining[dependent]--
			}
		}

		batches = append(batches, batch)
	}

	return batches, nil
}

// Dependencies returns the direct upstream steps of id.
func (r *Resolver) Dependencies(id string) ([]string, error) {
	deps, ok := r.dependsOn[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, id)
	}

	return sortedKeys(deps), nil
}

// AllDependencies returns every transitive upstream step of id.
func (r *Resolver) AllDependencies(id string) ([]string, error) {
	if _, ok := r.dependsOn[id]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, id)
	}

	return sortedKeys(r.closure(id, r.dependsOn)), nil
}

// Dependents returns the direct downstream steps of id.
func (r *Resolver) Dependents(id string) ([]string, error) {
	deps, ok := r.dependents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, id)
	}

	return sortedKeys(deps), nil
}

// AllDependents returns every transitive downstream step of id.
func (r *Resolver) AllDependents(id string) ([]string, error) {
	if _, ok := r.dependents[id]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, id)
	}

	return sortedKeys(r.closure(id, r.dependents)), nil
}

// IsDependencyOf reports whether a is a transitive upstream of b, i.e.
// whether b is reachable from a along dependency edges.
func (r *Resolver) IsDependencyOf(a, b string) (bool, error) {
	if _, ok := r.dependsOn[a]; !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownStep, a)
	}

	if _, ok := r.dependsOn[b]; !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownStep, b)
	}

	_, reachable := r.closure(b, r.dependsOn)[a]

	return reachable, nil
}

// CanRunParallel reports whether neither step is transitively reachable
// from the other, making them safe to execute concurrently.
func (r *Resolver) CanRunParallel(a, b string) (bool, error) {
	aUpstreamOfB, err := r.IsDependencyOf(a, b)
	if err != nil {
		return false, err
	}

	bUpstreamOfA, err := r.IsDependencyOf(b, a)
	if err != nil {
		return false, err
	}

	return !aUpstreamOfB && !bUpstreamOfA, nil
}

// ReadySteps returns the steps whose full dependency set is contained in
// the completed set and which are not themselves completed. Correct for
// disconnected components and multi-level dependencies; monotonically
// non-decreasing as completed grows.
func (r *Resolver) ReadySteps(completed map[string]struct{}) []string {
	var ready []string

	for _, id := range r.order {
		if _, done := completed[id]; done {
			continue
		}

		if r.depsSatisfied(id, completed) {
			ready = append(ready, id)
		}
	}

	sort.Strings(ready)

	return ready
}

// IsStepReady reports whether every dependency of id is completed.
func (r *Resolver) IsStepReady(id string, completed map[string]struct{}) (bool, error) {
	if _, ok := r.dependsOn[id]; !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownStep, id)
	}

	if _, done := completed[id]; done {
		return false, nil
	}

	return r.depsSatisfied(id, completed), nil
}

// RootSteps returns the steps with no dependencies.
func (r *Resolver) RootSteps() []string {
	var roots []string

	for _, id := range r.order {
		if len(r.dependsOn[id]) == 0 {
			roots = append(roots, id)
		}
	}

	sort.Strings(roots)

	return roots
}

// LeafSteps returns the steps no other step depends on.
func (r *Resolver) LeafSteps() []string {
	var leaves []string

	for _, id := range r.order {
		if len(r.dependents[id]) == 0 {
			leaves = append(leaves, id)
		}
	}

	sort.Strings(leaves)

	return leaves
}

func (r *Resolver) depsSatisfied(id string, completed map[string]struct{}) bool {
	for dep := range r.dependsOn[id] {
		if _, done := completed[dep]; !done {
			return false
		}
	}

	return true
}

// closure walks edges breadth-first and returns every node reachable from
// start, excluding start itself.
func (r *Resolver) closure(start string, edges map[string]map[string]struct{}) map[string]struct{} {
	visited := make(map[string]struct{})
	frontier := []string{start}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		for next := range edges[current] {
			if _, seen := visited[next]; seen {
				continue
			}

			visited[next] = struct{}{}
			frontier = append(frontier, next)
		}
	}

	return visited
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
