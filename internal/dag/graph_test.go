package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGraph(t *testing.T, ids []string, edges [][2]string) *Graph {
	t.Helper()

	graph := NewGraph()
	for _, id := range ids {
		require.NoError(t, graph.AddTask(newNoopTask(id)))
	}
	for _, edge := range edges {
		require.NoError(t, graph.AddDependency(edge[0], edge[1]))
	}
	return graph
}

func TestNewGraph(t *testing.T) {
	graph := NewGraph()
	assert.NotNil(t, graph)
	assert.Equal(t, 0, graph.Size())
}

func TestAddTask(t *testing.T) {
	graph := NewGraph()

	require.NoError(t, graph.AddTask(newNoopTask("a")))
	assert.Equal(t, 1, graph.Size())

	err := graph.AddTask(newNoopTask("a"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	assert.Error(t, graph.AddTask(nil))
}

func TestAddDependencyUnknownTask(t *testing.T) {
	graph := NewGraph()
	require.NoError(t, graph.AddTask(newNoopTask("a")))

	err := graph.AddDependency("a", "missing")
	require.Error(t, err)

	var unknownErr *UnknownTaskError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "missing", unknownErr.TaskID)
}

func TestAddDependencySelfEdge(t *testing.T) {
	graph := NewGraph()
	require.NoError(t, graph.AddTask(newNoopTask("a")))

	assert.Error(t, graph.AddDependency("a", "a"))
}

func TestDependenciesAndDependents(t *testing.T) {
	graph := buildGraph(t,
		[]string{"a", "b", "c", "d"},
		[][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}},
	)

	assert.ElementsMatch(t, []string{"b", "c"}, graph.Dependents("a"))
	assert.ElementsMatch(t, []string{"b", "c"}, graph.Dependencies("d"))
	assert.Empty(t, graph.Dependencies("a"))
	assert.Empty(t, graph.Dependents("d"))
	assert.Equal(t, []string{"a"}, graph.Roots())
}

func TestReady(t *testing.T) {
	graph := buildGraph(t,
		[]string{"a", "b", "c"},
		[][2]string{{"a", "c"}, {"b", "c"}},
	)

	// Roots are ready immediately
	assert.True(t, graph.Ready("a"))
	assert.True(t, graph.Ready("b"))
	assert.False(t, graph.Ready("c"))

	a, err := graph.Task("a")
	require.NoError(t, err)
	require.True(t, a.transition(StatusRunning))
	require.True(t, a.transition(StatusSucceeded))

	// Fan-in: c waits for its full predecessor set
	assert.False(t, graph.Ready("c"))

	b, err := graph.Task("b")
	require.NoError(t, err)
	require.True(t, b.transition(StatusRunning))
	require.True(t, b.transition(StatusSucceeded))

	assert.True(t, graph.Ready("c"))
}

func TestUnreachable(t *testing.T) {
	graph := buildGraph(t,
		[]string{"a", "b", "c"},
		[][2]string{{"a", "c"}, {"b", "c"}},
	)

	assert.False(t, graph.Unreachable("c"))

	a, err := graph.Task("a")
	require.NoError(t, err)
	require.True(t, a.transition(StatusRunning))
	require.True(t, a.transition(StatusFailed))

	assert.True(t, graph.Unreachable("c"))
}

func TestValidateDetectsCycle(t *testing.T) {
	graph := buildGraph(t,
		[]string{"a", "b", "c"},
		[][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}},
	)

	err := graph.Validate()
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.NotEmpty(t, cycleErr.Path)
}

func TestValidateAcyclic(t *testing.T) {
	graph := buildGraph(t,
		[]string{"a", "b", "c", "d"},
		[][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}},
	)

	assert.NoError(t, graph.Validate())
}

func TestDuplicateEdgeIsIdempotent(t *testing.T) {
	graph := buildGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})

	require.NoError(t, graph.AddDependency("a", "b"))
	assert.Equal(t, []string{"b"}, graph.Dependents("a"))
	assert.Equal(t, []string{"a"}, graph.Dependencies("b"))
}
