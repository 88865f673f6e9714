package grandpa

import (
	"github.com/go-grandpa/finality-import/primitives"
	"github.com/pkg/errors"
)

// changeTree tracks pending standard changes across forks, one root per
// fork, children placed in descendancy order beneath their parent change.
// Ancestry is decided entirely through the caller-supplied IsDescendantOf,
// never by walking a separately maintained chain index. The tree itself is
// never serialized directly; only the flattened AuthoritySet snapshot in
// aux_schema.go is persisted.
type changeTree struct {
	roots               []*changeTreeNode
	bestFinalizedNumber *primitives.BlockNumber
}

type changeTreeNode struct {
	change   PendingChange
	children []*changeTreeNode
}

var (
	errDuplicateChangeHash = errors.New("duplicate pending change hash")
	errUnfinalizedAncestor = errors.New("finalized descendant without finalizing its ancestor change first")
	errFinalizedPastRevert = errors.New("tried to finalize at or before the already-finalized number")
)

// pendingChanges does a pre-order traversal, returning every change in the
// tree across all forks.
func (ct *changeTree) pendingChanges() []PendingChange {
	var out []PendingChange
	for _, root := range ct.roots {
		collectPreOrder(&out, root)
	}
	return out
}

func collectPreOrder(out *[]PendingChange, node *changeTreeNode) {
	if node == nil {
		return
	}
	*out = append(*out, node.change)
	for _, child := range node.children {
		collectPreOrder(out, child)
	}
}

// insert places change under the appropriate fork root, descending through
// existing nodes to find the deepest ancestor it belongs beneath. Returns
// true if the change became a new root (no existing node is its ancestor).
//
// Assumes children on the same branch are imported in increasing number
// order.
func (ct *changeTree) insert(hash primitives.Hash, number primitives.BlockNumber, change PendingChange, isDescendantOf IsDescendantOf) (isRoot bool, err error) {
	for _, root := range ct.roots {
		imported, err := root.importNode(hash, number, change, isDescendantOf)
		if err != nil {
			return false, err
		}
		if imported {
			return false, nil
		}
	}

	ct.roots = append(ct.roots, &changeTreeNode{change: change})
	return true, nil
}

func (n *changeTreeNode) importNode(hash primitives.Hash, number primitives.BlockNumber, change PendingChange, isDescendantOf IsDescendantOf) (bool, error) {
	if hash == n.change.CanonHash {
		return false, errors.Wrapf(errDuplicateChangeHash, "%v", hash)
	}

	descends, err := isDescendantOf(n.change.CanonHash, hash)
	if err != nil {
		return false, errors.Wrap(err, "cannot check ancestry")
	}
	if !descends || number <= n.change.CanonHeight {
		return false, nil
	}

	for _, child := range n.children {
		imported, err := child.importNode(hash, number, change, isDescendantOf)
		if err != nil {
			return false, err
		}
		if imported {
			return true, nil
		}
	}

	n.children = append(n.children, &changeTreeNode{change: change})
	return true, nil
}

// finalizationOutcome reports what finalizing past (hash, number) did to the
// tree: nothing, some unrelated roots were pruned, or a specific root change
// was enacted.
type finalizationOutcome struct {
	changed bool
	enacted *PendingChange
}

// enactsWithDescendantIf reports, without mutating the tree, whether
// finalizing (hash, number) would enact some root's change: *true if that
// root is already a root today, *false if it is a dependent
// change blocked behind an earlier undischarged root, nil if nothing in the
// tree is finalized by this block.
func (ct *changeTree) enactsWithDescendantIf(hash primitives.Hash, number primitives.BlockNumber, isDescendantOf IsDescendantOf, predicate func(*PendingChange) bool) (*bool, error) {
	if ct.bestFinalizedNumber != nil && number <= *ct.bestFinalizedNumber {
		return nil, errFinalizedPastRevert
	}

	nodes := ct.preOrderNodes()
	for _, node := range nodes {
		descends, err := isDescendantOf(node.change.CanonHash, hash)
		if err != nil {
			return nil, err
		}
		if !predicate(&node.change) || !(node.change.CanonHash == hash || descends) {
			continue
		}

		for _, child := range node.children {
			childDescends, err := isDescendantOf(child.change.CanonHash, hash)
			if err != nil {
				return nil, err
			}
			if child.change.CanonHeight <= number && (child.change.CanonHash == hash || childDescends) {
				return nil, errUnfinalizedAncestor
			}
		}

		isRoot := false
		for _, root := range ct.roots {
			if root.change.CanonHash == node.change.CanonHash {
				isRoot = true
				break
			}
		}
		return &isRoot, nil
	}

	return nil, nil
}

func (ct *changeTree) preOrderNodes() []*changeTreeNode {
	var out []*changeTreeNode
	for _, root := range ct.roots {
		collectNodesPreOrder(&out, root)
	}
	return out
}

func collectNodesPreOrder(out *[]*changeTreeNode, node *changeTreeNode) {
	if node == nil {
		return
	}
	*out = append(*out, node)
	for _, child := range node.children {
		collectNodesPreOrder(out, child)
	}
}

// finalizeWithDescendantIf finalizes a root (by finalizing it directly, or a
// descendant of it not itself in the tree) and prunes every root that is now
// provably stale, i.e. on a dead fork: a root at or below the finalized number
// that is not an ancestor of the finalized block, or a root above it that is
// not a descendant of it.
func (ct *changeTree) finalizeWithDescendantIf(hash primitives.Hash, number primitives.BlockNumber, isDescendantOf IsDescendantOf, predicate func(*PendingChange) bool) (finalizationOutcome, error) {
	var outcome finalizationOutcome
	if ct.bestFinalizedNumber != nil && number <= *ct.bestFinalizedNumber {
		return outcome, errFinalizedPastRevert
	}

	position := -1
	for i, root := range ct.roots {
		descends, err := isDescendantOf(root.change.CanonHash, hash)
		if err != nil {
			return outcome, err
		}
		if !predicate(&root.change) || !(root.change.CanonHash == hash || descends) {
			continue
		}
		for _, child := range root.children {
			childDescends, err := isDescendantOf(child.change.CanonHash, hash)
			if err != nil {
				return outcome, err
			}
			if child.change.CanonHeight <= number && (child.change.CanonHash == hash || childDescends) {
				return outcome, errUnfinalizedAncestor
			}
		}
		position = i
		break
	}

	var enacted *PendingChange
	if position >= 0 {
		node := ct.roots[position]
		ct.roots = append(ct.roots[:position], ct.roots[position+1:]...)
		ct.roots = append(ct.roots, node.children...)
		change := node.change
		enacted = &change
	}

	retained := ct.roots[:0:0]
	changed := false
	for _, root := range ct.roots {
		var retain bool
		switch {
		case root.change.CanonHeight > number:
			descends, err := isDescendantOf(hash, root.change.CanonHash)
			if err != nil {
				return outcome, err
			}
			retain = descends
		case root.change.CanonHeight == number && root.change.CanonHash == hash:
			retain = true
		default:
			descends, err := isDescendantOf(root.change.CanonHash, hash)
			if err != nil {
				return outcome, err
			}
			retain = descends
		}
		if retain {
			retained = append(retained, root)
		} else {
			changed = true
		}
	}
	ct.roots = retained
	ct.bestFinalizedNumber = &number

	outcome.enacted = enacted
	outcome.changed = enacted != nil || changed
	return outcome, nil
}
