package ast

// Inspect traverses the tree depth-first in pre-order. fn receives each node
// with its ancestors ordered from the root to the nearest parent; the slice
// is reused and must not be retained. Returning false skips the node's
// children.
func Inspect(root Node, fn func(n Node, parents []Node) bool) {
	var parents []Node
	var walk func(n Node)
	walk = func(n Node) {
		if !fn(n, parents) {
			return
		}
		parents = append(parents, n)
		for _, child := range n.Children() {
			walk(child)
		}
		parents = parents[:len(parents)-1]
	}
	walk(root)
}

// Any reports whether pred holds for some node of the tree.
func Any(root Node, pred func(Node) bool) bool {
	found := false
	Inspect(root, func(n Node, _ []Node) bool {
		if found {
			return false
		}
		if pred(n) {
			found = true
			return false
		}
		return true
	})
	return found
}

// FieldNames returns the distinct field names referenced under root, in
// first-occurrence order.
func FieldNames(root Node) []string {
	var out []string
	seen := make(map[string]bool)
	Inspect(root, func(n Node, _ []Node) bool {
		if f, ok := n.(*Field); ok && !seen[f.Name] {
			seen[f.Name] = true
			out = append(out, f.Name)
		}
		return true
	})
	return out
}
