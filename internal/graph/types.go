package graph

// Node is one labeled vertex from the generator.
// Depth is advisory and never recomputed by the resolver.
type Node struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Depth        int      `json:"depth"`
	TimeEstimate *float64 `json:"timeEstimate,omitempty"` // minutes, nil when unknown
}

// Edge is a directed link between two node ids.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TreeNode is a node of a resolved tree. Each TreeNode is owned by exactly
// one parent.
type TreeNode struct {
	ID           string      `json:"id"`
	Label        string      `json:"label"`
	Depth        int         `json:"depth"`
	TimeEstimate *float64    `json:"timeEstimate,omitempty"`
	Children     []*TreeNode `json:"children"`
}

// Payload is the generator's response body.
type Payload struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Walk visits n and its descendants depth-first in child order. The level of
// the root is 0. Returning false from fn skips the node's children.
func (n *TreeNode) Walk(fn func(node *TreeNode, level int) bool) {
	if n == nil {
		return
	}
	n.walk(fn, 0)
}

func (n *TreeNode) walk(fn func(*TreeNode, int) bool, level int) {
	if !fn(n, level) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, level+1)
	}
}

// Count returns the number of nodes in the subtree rooted at n. A node cloned
// under several parents counts once per appearance.
func (n *TreeNode) Count() int {
	count := 0
	n.Walk(func(*TreeNode, int) bool {
		count++
		return true
	})
	return count
}

// Find returns the first node with the given id in depth-first order.
func (n *TreeNode) Find(id string) *TreeNode {
	var found *TreeNode
	n.Walk(func(node *TreeNode, _ int) bool {
		if found != nil {
			return false
		}
		if node.ID == id {
			found = node
			return false
		}
		return true
	})
	return found
}

// Role classifies a node for mindmap styling.
type Role string

const (
	RoleMain    Role = "main"
	RoleSub     Role = "sub"
	RoleContent Role = "content"
)

// RoleForDepth maps the generator's depth to a styling role: 0 is the central
// topic, 1 a subtopic, anything deeper is content.
func RoleForDepth(depth int) Role {
	switch depth {
	case 0:
		return RoleMain
	case 1:
		return RoleSub
	default:
		return RoleContent
	}
}
