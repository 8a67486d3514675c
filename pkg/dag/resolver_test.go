package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratoml/strato/pkg/models"
)

func resolver(steps ...*models.Step) *Resolver {
	return NewResolver(steps)
}

func TestExecutionOrder_LinearChain(t *testing.T) {
	r := resolver(step("s1"), step("s2", "s1"), step("s3", "s2"))

	batches, err := r.ExecutionOrder()
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"s1"}, {"s2"}, {"s3"}}, batches)
}

func TestExecutionOrder_Diamond(t *testing.T) {
	r := resolver(step("a"), step("b", "a"), step("c", "a"), step("d", "b", "c"))

	batches, err := r.ExecutionOrder()
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a"}, {"b", "c"}, {"d"}}, batches)
}

func TestExecutionOrder_FanOutFanIn(t *testing.T) {
	r := resolver(
		step("prepare"),
		step("eval-a", "prepare"),
		step("eval-b", "prepare"),
		step("eval-c", "prepare"),
		step("report", "eval-a", "eval-b", "eval-c"),
	)

	batches, err := r.ExecutionOrder()
	require.NoError(t, err)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 1)
	assert.Len(t, batches[1], 3)
	assert.Len(t, batches[2], 1)
}

func TestExecutionOrder_DisconnectedComponents(t *testing.T) {
	r := resolver(step("a"), step("b", "a"), step("x"), step("y", "x"))

	batches, err := r.ExecutionOrder()
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "x"}, {"b", "y"}}, batches)
}

func TestExecutionOrder_Cycle(t *testing.T) {
	r := resolver(step("a", "c"), step("b", "a"), step("c", "b"))

	_, err := r.ExecutionOrder()
	require.ErrorIs(t, err, ErrCyclicDependency)

	var cycleErr *CycleError

	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"a", "b", "c"}, cycleErr.Remaining)
}

func TestExecutionOrder_PartialCycle(t *testing.T) {
	// The root is schedulable; the cycle behind it is not.
	r := resolver(step("root"), step("a", "root", "b"), step("b", "a"))

	_, err := r.ExecutionOrder()
	require.ErrorIs(t, err, ErrCyclicDependency)

	var cycleErr *CycleError

	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"a", "b"}, cycleErr.Remaining)
}

func TestDependencies(t *testing.T) {
	r := resolver(step("a"), step("b", "a"), step("c", "a", "b"))

	deps, err := r.Dependencies("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, deps)

	deps, err = r.Dependencies("a")
	require.NoError(t, err)
	assert.Empty(t, deps)

	_, err = r.Dependencies("ghost")
	require.ErrorIs(t, err, ErrUnknownStep)
}

func TestAllDependencies_Transitive(t *testing.T) {
	r := resolver(step("a"), step("b", "a"), step("c", "b"), step("d", "c"))

	all, err := r.AllDependencies("d")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, all)
}

func TestDependents(t *testing.T) {
	r := resolver(step("a"), step("b", "a"), step("c", "a"))

	direct, err := r.Dependents("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, direct)

	all, err := r.AllDependents("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, all)
}

func TestIsDependencyOf(t *testing.T) {
	r := resolver(step("a"), step("b", "a"), step("c", "b"))

	yes, err := r.IsDependencyOf("a", "c")
	require.NoError(t, err)
	assert.True(t, yes)

	no, err := r.IsDependencyOf("c", "a")
	require.NoError(t, err)
	assert.False(t, no)
}

func TestCanRunParallel(t *testing.T) {
	r := resolver(step("a"), step("b", "a"), step("c", "a"))

	parallel, err := r.CanRunParallel("b", "c")
	require.NoError(t, err)
	assert.True(t, parallel)

	parallel, err = r.CanRunParallel("a", "b")
	require.NoError(t, err)
	assert.False(t, parallel)
}

func TestReadySteps_Monotonic(t *testing.T) {
	r := resolver(step("a"), step("b", "a"), step("c", "a"), step("d", "b", "c"))

	completed := map[string]struct{}{}
	assert.Equal(t, []string{"a"}, r.ReadySteps(completed))

	completed["a"] = struct{}{}
	assert.Equal(t, []string{"b", "c"}, r.ReadySteps(completed))

	completed["b"] = struct{}{}
	assert.Equal(t, []string{"c"}, r.ReadySteps(completed))

	completed["c"] = struct{}{}
	assert.Equal(t, []string{"d"}, r.ReadySteps(completed))

	completed["d"] = struct{}{}
	assert.Empty(t, r.ReadySteps(completed))
}

func TestIsStepReady(t *testing.T) {
	r := resolver(step("a"), step("b", "a"))

	ready, err := r.IsStepReady("b", map[string]struct{}{})
	require.NoError(t, err)
	assert.False(t, ready)

	ready, err = r.IsStepReady("b", map[string]struct{}{"a": {}})
	require.NoError(t, err)
	assert.True(t, ready)

	// A completed step is never ready again.
	ready, err = r.IsStepReady("a", map[string]struct{}{"a": {}})
	require.NoError(t, err)
	assert.False(t, ready)
}

func TestRootAndLeafSteps(t *testing.T) {
	r := resolver(step("a"), step("b", "a"), step("c", "a"), step("d", "b"))

	assert.Equal(t, []string{"a"}, r.RootSteps())
	assert.Equal(t, []string{"c", "d"}, r.LeafSteps())
}
