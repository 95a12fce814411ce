package graph

// MaxAppearances bounds how many TreeNodes a single Resolve call may
// materialise. Chains of diamonds double the number of appearances per
// layer, so an unbounded expansion is an easy way to exhaust memory.
const MaxAppearances = 1 << 16

// Tree is the result of a Resolve call. The caller owns it exclusively.
type Tree struct {
	Root *TreeNode `json:"root"`

	// Shared lists ids with more than one incoming edge, in input order.
	// Such nodes are cloned under every parent.
	Shared []string `json:"shared,omitempty"`

	// Dropped holds edges that referenced an unknown id.
	Dropped []Edge `json:"dropped,omitempty"`

	// Cut holds edges that pointed back to an ancestor and were left out of
	// the materialised tree.
	Cut []Edge `json:"cut,omitempty"`

	// Cycles lists strongly connected components of the retained edges.
	Cycles [][]string `json:"cycles,omitempty"`

	// Truncated is set when materialisation stopped at MaxAppearances.
	Truncated bool `json:"truncated,omitempty"`
}

// index is the id-keyed view of the input built in one pass over the edges.
type index struct {
	order    []string // distinct ids, first-seen order
	nodes    map[string]Node
	children map[string][]string
	inDegree map[string]int
	dropped  []Edge
}

func buildIndex(nodes []Node, edges []Edge) *index {
	ix := &index{
		order:    make([]string, 0, len(nodes)),
		nodes:    make(map[string]Node, len(nodes)),
		children: make(map[string][]string, len(nodes)),
		inDegree: make(map[string]int, len(nodes)),
	}
	for _, n := range nodes {
		if _, seen := ix.nodes[n.ID]; !seen {
			ix.order = append(ix.order, n.ID)
		}
		// A repeated id replaces the earlier node.
		ix.nodes[n.ID] = n
	}

	for _, e := range edges {
		_, fromOK := ix.nodes[e.From]
		_, toOK := ix.nodes[e.To]
		if !fromOK || !toOK {
			ix.dropped = append(ix.dropped, e)
			continue
		}
		ix.children[e.From] = append(ix.children[e.From], e.To)
		ix.inDegree[e.To]++
	}
	return ix
}

// rootID picks the first node in input order with in-degree zero, falling
// back to the first node.
func (ix *index) rootID(nodes []Node) string {
	for _, n := range nodes {
		if ix.inDegree[n.ID] == 0 {
			return n.ID
		}
	}
	return nodes[0].ID
}

// Resolve converts a node/edge list into a rooted tree. It returns nil when
// nodes is empty and never fails otherwise.
func Resolve(nodes []Node, edges []Edge) *Tree {
	if len(nodes) == 0 {
		return nil
	}

	ix := buildIndex(nodes, edges)
	t := &Tree{Dropped: ix.dropped}

	for _, id := range ix.order {
		if ix.inDegree[id] > 1 {
			t.Shared = append(t.Shared, id)
		}
	}
	t.Cycles = stronglyConnected(ix)
	ix.materialize(ix.rootID(nodes), t)
	return t
}

// materialize expands the index from rootID into owning TreeNodes.
func (ix *index) materialize(rootID string, t *Tree) {
	var (
		appearances int
		onPath      = make(map[string]bool)
		cut         = make(map[Edge]bool)
	)

	var build func(id string) *TreeNode
	build = func(id string) *TreeNode {
		appearances++
		n := ix.nodes[id]
		kids := ix.children[id]
		tn := &TreeNode{
			ID:           n.ID,
			Label:        n.Label,
			Depth:        n.Depth,
			TimeEstimate: cloneFloat(n.TimeEstimate),
			Children:     make([]*TreeNode, 0, len(kids)),
		}

		onPath[id] = true
		for _, child := range kids {
			if onPath[child] {
				e := Edge{From: id, To: child}
				if !cut[e] {
					cut[e] = true
					t.Cut = append(t.Cut, e)
				}
				continue
			}
			if appearances >= MaxAppearances {
				t.Truncated = true
				break
			}
			tn.Children = append(tn.Children, build(child))
		}
		onPath[id] = false
		return tn
	}

	t.Root = build(rootID)
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
