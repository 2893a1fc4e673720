// Package mutation rewrites typed formula trees in ordered passes.
//
// Each pass is a Mutation: MatchNode selects nodes, MakeReplacement builds
// their replacements. Apply runs passes strictly in sequence. Within a pass
// every node is matched as it was before the pass started, its children are
// rebuilt bottom-up, and only then is the rebuilt node replaced.
// Replacements are not visited again by the pass that produced them.
//
// The window passes in window.go resolve WITHIN/AMONG grouping, inject
// default ordering and turn window calls into query forks.
package mutation

import (
	"slices"

	"github.com/datalens-tech/datalens-backend-sub013/internal/ast"
)

// Mutation is one rewrite pass.
type Mutation interface {
	// MatchNode reports whether node should be replaced. parents are the
	// ancestors of node ordered from the root.
	MatchNode(node ast.Node, parents []ast.Node) bool
	// MakeReplacement returns the replacement for a matched node whose
	// children have already been rewritten.
	MakeReplacement(node ast.Node, parents []ast.Node) (ast.Node, error)
}

// Apply runs the mutations over tree in order and returns the rewritten tree.
// The input tree is never modified. The first error aborts the rewrite.
func Apply(tree ast.Node, mutations ...Mutation) (ast.Node, error) {
	for _, m := range mutations {
		var err error
		tree, err = applyOne(tree, m)
		if err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func applyOne(root ast.Node, m Mutation) (ast.Node, error) {
	var visit func(n ast.Node, parents []ast.Node) (ast.Node, error)
	visit = func(n ast.Node, parents []ast.Node) (ast.Node, error) {
		matched := m.MatchNode(n, parents)

		children := n.Children()
		childParents := append(slices.Clip(parents), n)
		changed := false
		for i, child := range children {
			rewritten, err := visit(child, childParents)
			if err != nil {
				return nil, err
			}
			if rewritten != child {
				children[i] = rewritten
				changed = true
			}
		}

		rebuilt := n
		if changed {
			rebuilt = n.WithChildren(children)
		}
		if !matched {
			return rebuilt, nil
		}
		return m.MakeReplacement(rebuilt, parents)
	}
	return visit(root, nil)
}
