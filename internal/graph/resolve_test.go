package graph

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodes(ids ...string) []Node {
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = Node{ID: id, Label: "node " + id}
	}
	return out
}

func childIDs(n *TreeNode) []string {
	ids := make([]string, len(n.Children))
	for i, c := range n.Children {
		ids[i] = c.ID
	}
	return ids
}

func TestResolve_EmptyReturnsNil(t *testing.T) {
	assert.Nil(t, Resolve(nil, nil))
	assert.Nil(t, Resolve([]Node{}, []Edge{}))
	assert.Nil(t, Resolve(nil, []Edge{{From: "a", To: "b"}}))
}

func TestResolve_RootIsFirstZeroInDegree(t *testing.T) {
	tree := Resolve(nodes("b", "a", "c"), []Edge{
		{From: "a", To: "b"},
		{From: "a", To: "c"},
	})
	require.NotNil(t, tree)

	assert.Equal(t, "a", tree.Root.ID)
	assert.Equal(t, []string{"b", "c"}, childIDs(tree.Root))
}

func TestResolve_FirstOfSeveralRoots(t *testing.T) {
	// Two components; the first zero in-degree node in input order wins and
	// the other component is not reachable.
	tree := Resolve(nodes("x", "y", "p", "q"), []Edge{
		{From: "p", To: "q"},
		{From: "x", To: "y"},
	})
	require.NotNil(t, tree)

	assert.Equal(t, "x", tree.Root.ID)
	assert.Equal(t, 2, tree.Root.Count())
	assert.Nil(t, tree.Root.Find("p"))
}

func TestResolve_AllCyclicFallsBackToFirstNode(t *testing.T) {
	tree := Resolve(nodes("a", "b"), []Edge{
		{From: "a", To: "b"},
		{From: "b", To: "a"},
	})
	require.NotNil(t, tree)

	assert.Equal(t, "a", tree.Root.ID)
	assert.Equal(t, []string{"b"}, childIDs(tree.Root))
	assert.Empty(t, tree.Root.Children[0].Children)
	assert.Equal(t, []Edge{{From: "b", To: "a"}}, tree.Cut)
	assert.Equal(t, [][]string{{"a", "b"}}, tree.Cycles)
}

func TestResolve_SelfLoop(t *testing.T) {
	tree := Resolve(nodes("a"), []Edge{{From: "a", To: "a"}})
	require.NotNil(t, tree)

	assert.Equal(t, "a", tree.Root.ID)
	assert.Empty(t, tree.Root.Children)
	assert.Equal(t, []Edge{{From: "a", To: "a"}}, tree.Cut)
	assert.Equal(t, [][]string{{"a"}}, tree.Cycles)
}

func TestResolve_DropsUnknownEdgesWithoutSideEffects(t *testing.T) {
	ns := nodes("root", "a", "b")
	clean := []Edge{{From: "root", To: "a"}, {From: "a", To: "b"}}
	noisy := []Edge{
		{From: "ghost", To: "root"},
		{From: "root", To: "a"},
		{From: "a", To: "nowhere"},
		{From: "a", To: "b"},
		{From: "", To: ""},
	}

	want := Resolve(ns, clean)
	got := Resolve(ns, noisy)
	require.NotNil(t, want)
	require.NotNil(t, got)

	assert.Equal(t, want.Root, got.Root)
	assert.Len(t, got.Dropped, 3)
	assert.Equal(t, "root", got.Root.ID, "an edge from an unknown id must not raise the root's in-degree")
}

func TestResolve_SharedNodeClonedPerParent(t *testing.T) {
	tree := Resolve(nodes("r", "a", "b", "c"), []Edge{
		{From: "r", To: "a"},
		{From: "r", To: "b"},
		{From: "a", To: "c"},
		{From: "b", To: "c"},
	})
	require.NotNil(t, tree)

	assert.Equal(t, 5, tree.Root.Count())
	assert.Equal(t, []string{"c"}, tree.Shared)

	first := tree.Root.Children[0].Children[0]
	second := tree.Root.Children[1].Children[0]
	assert.Equal(t, "c", first.ID)
	assert.Equal(t, "c", second.ID)
	assert.NotSame(t, first, second, "each appearance is owned by its own parent")
	assert.Empty(t, tree.Cycles)
}

func TestResolve_DuplicateEdgeAppearsTwice(t *testing.T) {
	tree := Resolve(nodes("a", "b"), []Edge{
		{From: "a", To: "b"},
		{From: "a", To: "b"},
	})
	require.NotNil(t, tree)

	assert.Equal(t, []string{"b", "b"}, childIDs(tree.Root))
	assert.Equal(t, []string{"b"}, tree.Shared)
}

func TestResolve_DuplicateNodeIDLastWins(t *testing.T) {
	tree := Resolve([]Node{
		{ID: "a", Label: "first"},
		{ID: "b", Label: "child"},
		{ID: "a", Label: "second"},
	}, []Edge{{From: "a", To: "b"}})
	require.NotNil(t, tree)

	assert.Equal(t, "second", tree.Root.Label)
	assert.Equal(t, 2, tree.Root.Count())
}

func TestResolve_CopiesFields(t *testing.T) {
	minutes := 30.0
	in := []Node{{ID: "a", Label: "A", Depth: 0, TimeEstimate: &minutes}, {ID: "b", Label: "B", Depth: 1}}

	tree := Resolve(in, []Edge{{From: "a", To: "b"}})
	require.NotNil(t, tree)
	minutes = 99

	require.NotNil(t, tree.Root.TimeEstimate)
	assert.Equal(t, 30.0, *tree.Root.TimeEstimate)
	assert.Equal(t, 1, tree.Root.Children[0].Depth)
	assert.Nil(t, tree.Root.Children[0].TimeEstimate)
}

func TestResolve_Deterministic(t *testing.T) {
	ns := nodes("a", "b", "c", "d", "e")
	es := []Edge{
		{From: "a", To: "c"},
		{From: "a", To: "b"},
		{From: "c", To: "d"},
		{From: "b", To: "d"},
		{From: "d", To: "a"},
		{From: "e", To: "e"},
	}
	assert.Equal(t, Resolve(ns, es), Resolve(ns, es))
}

func TestResolve_TruncatesExponentialExpansion(t *testing.T) {
	// Each layer is a diamond, doubling the number of paths.
	const layers = 24
	var ns []Node
	var es []Edge
	for i := 0; i < layers; i++ {
		s := fmt.Sprintf("s%d", i)
		a := fmt.Sprintf("a%d", i)
		b := fmt.Sprintf("b%d", i)
		next := fmt.Sprintf("s%d", i+1)
		ns = append(ns, Node{ID: s}, Node{ID: a}, Node{ID: b})
		es = append(es, Edge{From: s, To: a}, Edge{From: s, To: b}, Edge{From: a, To: next}, Edge{From: b, To: next})
	}
	ns = append(ns, Node{ID: fmt.Sprintf("s%d", layers)})

	tree := Resolve(ns, es)
	require.NotNil(t, tree)

	assert.True(t, tree.Truncated)
	assert.LessOrEqual(t, tree.Root.Count(), MaxAppearances)
	assert.Equal(t, "s0", tree.Root.ID)
}

func TestResolve_CyclesAcrossComponents(t *testing.T) {
	ns := nodes("a", "b", "c", "d", "e", "f")
	es := []Edge{
		{From: "a", To: "b"}, {From: "b", To: "a"},
		{From: "b", To: "c"}, {From: "c", To: "d"}, {From: "d", To: "c"},
		{From: "d", To: "e"}, {From: "e", To: "e"},
		{From: "f", To: "e"},
	}

	tree := Resolve(ns, es)
	require.NotNil(t, tree)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, tree.Cycles)
}

func TestResolve_LongCycleDoesNotRecursePerNode(t *testing.T) {
	const n = 200_000
	ns := make([]Node, n)
	es := make([]Edge, n)
	for i := range ns {
		ns[i] = Node{ID: fmt.Sprintf("n%d", i)}
		es[i] = Edge{From: fmt.Sprintf("n%d", i), To: fmt.Sprintf("n%d", (i+1)%n)}
	}

	tree := Resolve(ns, es)
	require.NotNil(t, tree)
	require.Len(t, tree.Cycles, 1)
	assert.Len(t, tree.Cycles[0], n)
	assert.Equal(t, "n0", tree.Cycles[0][0])
	assert.Equal(t, "n0", tree.Root.ID)
	assert.True(t, tree.Truncated)
}

// TestResolve_RootProperty checks, over random graphs whose edges all
// reference known ids, that the root has in-degree zero when such a node
// exists (and then every node appears), and is the first node otherwise.
func TestResolve_RootProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(10)
		ns := nodes()
		for i := 0; i < n; i++ {
			ns = append(ns, Node{ID: fmt.Sprintf("n%d", i)})
		}
		var es []Edge
		// Spanning edges from n0 make every node reachable from n0.
		for i := 1; i < n; i++ {
			es = append(es, Edge{From: fmt.Sprintf("n%d", rng.Intn(i)), To: fmt.Sprintf("n%d", i)})
		}
		for k := rng.Intn(4); k > 0; k-- {
			es = append(es, Edge{From: fmt.Sprintf("n%d", rng.Intn(n)), To: fmt.Sprintf("n%d", rng.Intn(n))})
		}

		inDegree := map[string]int{}
		for _, e := range es {
			inDegree[e.To]++
		}

		tree := Resolve(ns, es)
		require.NotNil(t, tree)

		if inDegree["n0"] == 0 {
			assert.Equal(t, "n0", tree.Root.ID, "iter %d", iter)
			assert.Zero(t, inDegree[tree.Root.ID])
			assert.GreaterOrEqual(t, tree.Root.Count(), len(ns), "iter %d", iter)
		} else {
			assert.Equal(t, ns[0].ID, tree.Root.ID, "iter %d", iter)
		}
	}
}

func TestTreeNode_WalkSkipsChildren(t *testing.T) {
	tree := Resolve(nodes("a", "b", "c"), []Edge{{From: "a", To: "b"}, {From: "b", To: "c"}})
	require.NotNil(t, tree)

	var seen []string
	tree.Root.Walk(func(n *TreeNode, level int) bool {
		seen = append(seen, fmt.Sprintf("%s@%d", n.ID, level))
		return n.ID != "b"
	})
	assert.Equal(t, []string{"a@0", "b@1"}, seen)
}
