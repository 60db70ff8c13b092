package collide

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/impulse/geom"
)

const nilNode = -1

// node is a tree node in the arena. Leaves hold an entity and its fattened
// bound; internal nodes hold the union of their children.
type node struct {
	bound   geom.AABB
	parent  int
	left    int
	right   int
	entity  ecs.Entity
	leaf    bool
	pending geom.AABB // latest tight bound, applied on Reindex
	stale   bool
}

// BoundsTree is a dynamic bounding-volume tree: one fattened AABB leaf per
// collidable entity, internal nodes formed by least-growth insertion. Moves
// take effect immediately; restoring tree locality is deferred to Reindex,
// which reinserts all escaped leaves in one batch, once per tick. Queries
// against the fattened bounds give O(m log^2 n) broad-phase work for m dirty
// shapes.
type BoundsTree struct {
	nodes  []node
	free   []int
	root   int
	leaves map[ecs.Entity]int
	margin float64
}

// NewBoundsTree returns an empty tree. Leaf bounds are fattened by margin on
// every side so small motions do not force reinsertion.
func NewBoundsTree(margin float64) *BoundsTree {
	return &BoundsTree{
		root:   nilNode,
		leaves: make(map[ecs.Entity]int),
		margin: margin,
	}
}

// Len returns the number of stored entities.
func (t *BoundsTree) Len() int {
	return len(t.leaves)
}

// Contains reports whether the entity has a leaf in the tree.
func (t *BoundsTree) Contains(e ecs.Entity) bool {
	_, ok := t.leaves[e]
	return ok
}

// Insert adds a leaf for the entity with the given tight bound.
func (t *BoundsTree) Insert(e ecs.Entity, bound geom.AABB) {
	if _, ok := t.leaves[e]; ok {
		t.Update(e, bound)
		return
	}
	idx := t.alloc()
	n := &t.nodes[idx]
	n.bound = bound.Fattened(t.margin)
	n.entity = e
	n.leaf = true
	n.pending = bound
	n.stale = false
	t.leaves[e] = idx
	t.insertLeaf(idx)
}

// Remove deletes the entity's leaf, if present.
func (t *BoundsTree) Remove(e ecs.Entity) {
	idx, ok := t.leaves[e]
	if !ok {
		return
	}
	delete(t.leaves, e)
	t.removeLeaf(idx)
	t.release(idx)
}

// Update records a new tight bound for the entity. If the bound escaped the
// leaf's fattened bound, the leaf bound is regrown in place and ancestors
// refitted, so queries see the move immediately; the leaf is also marked
// stale for locality-restoring reinsertion on the next Reindex.
func (t *BoundsTree) Update(e ecs.Entity, bound geom.AABB) {
	idx, ok := t.leaves[e]
	if !ok {
		t.Insert(e, bound)
		return
	}
	n := &t.nodes[idx]
	n.pending = bound
	if !n.bound.Contains(bound) {
		n.bound = bound.Fattened(t.margin)
		n.stale = true
		t.refit(n.parent)
	}
}

// Reindex reinserts every stale leaf, restoring tree locality after a tick's
// worth of motion. Called once per tick by the orchestrator.
func (t *BoundsTree) Reindex() {
	for _, idx := range t.staleLeaves() {
		n := &t.nodes[idx]
		t.removeLeaf(idx)
		n.bound = n.pending.Fattened(t.margin)
		n.stale = false
		t.insertLeaf(idx)
	}
}

func (t *BoundsTree) staleLeaves() []int {
	var stale []int
	for _, idx := range t.leaves {
		if t.nodes[idx].stale {
			stale = append(stale, idx)
		}
	}
	return stale
}

// Query visits every stored entity whose bound overlaps the given bound,
// including entities whose pending update has not been reindexed yet.
func (t *BoundsTree) Query(bound geom.AABB, visit func(e ecs.Entity)) {
	if t.root == nilNode {
		return
	}
	stack := []int{t.root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[idx]
		if !n.bound.Overlaps(bound) {
			continue
		}
		if n.leaf {
			if n.pending.Overlaps(bound) {
				visit(n.entity)
			}
			continue
		}
		stack = append(stack, n.left, n.right)
	}
}

// Each visits every stored entity with its current tight bound, for broad
// phase implementations that want the full bound snapshot.
func (t *BoundsTree) Each(visit func(e ecs.Entity, bound geom.AABB)) {
	for e, idx := range t.leaves {
		visit(e, t.nodes[idx].pending)
	}
}

func (t *BoundsTree) alloc() int {
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		t.nodes[idx] = node{parent: nilNode, left: nilNode, right: nilNode}
		return idx
	}
	t.nodes = append(t.nodes, node{parent: nilNode, left: nilNode, right: nilNode})
	return len(t.nodes) - 1
}

func (t *BoundsTree) release(idx int) {
	t.nodes[idx] = node{parent: nilNode, left: nilNode, right: nilNode}
	t.free = append(t.free, idx)
}

// insertLeaf descends by least surface-area growth and splices the leaf in
// next to the best sibling.
func (t *BoundsTree) insertLeaf(leaf int) {
	if t.root == nilNode {
		t.root = leaf
		t.nodes[leaf].parent = nilNode
		return
	}

	leafBound := t.nodes[leaf].bound
	idx := t.root
	for !t.nodes[idx].leaf {
		n := &t.nodes[idx]
		combined := n.bound.Union(leafBound).SurfaceArea()
		// Cost of making this node the sibling vs descending.
		cost := 2 * combined
		inherit := 2 * (combined - n.bound.SurfaceArea())

		costLeft := t.descendCost(n.left, leafBound) + inherit
		costRight := t.descendCost(n.right, leafBound) + inherit
		if cost < costLeft && cost < costRight {
			break
		}
		if costLeft < costRight {
			idx = n.left
		} else {
			idx = n.right
		}
	}

	sibling := idx
	oldParent := t.nodes[sibling].parent
	newParent := t.alloc()
	p := &t.nodes[newParent]
	p.parent = oldParent
	p.bound = leafBound.Union(t.nodes[sibling].bound)
	p.left = sibling
	p.right = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent == nilNode {
		t.root = newParent
	} else if t.nodes[oldParent].left == sibling {
		t.nodes[oldParent].left = newParent
	} else {
		t.nodes[oldParent].right = newParent
	}

	t.refit(newParent)
}

func (t *BoundsTree) descendCost(idx int, leafBound geom.AABB) float64 {
	n := &t.nodes[idx]
	grown := n.bound.Union(leafBound).SurfaceArea()
	if n.leaf {
		return grown
	}
	return grown - n.bound.SurfaceArea()
}

// removeLeaf detaches the leaf and collapses its parent into the sibling.
func (t *BoundsTree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nilNode
		return
	}
	parent := t.nodes[leaf].parent
	var sibling int
	if t.nodes[parent].left == leaf {
		sibling = t.nodes[parent].right
	} else {
		sibling = t.nodes[parent].left
	}
	grand := t.nodes[parent].parent
	t.nodes[sibling].parent = grand
	if grand == nilNode {
		t.root = sibling
	} else {
		if t.nodes[grand].left == parent {
			t.nodes[grand].left = sibling
		} else {
			t.nodes[grand].right = sibling
		}
		t.refit(grand)
	}
	t.release(parent)
	t.nodes[leaf].parent = nilNode
}

// refit walks up from idx recomputing internal bounds.
func (t *BoundsTree) refit(idx int) {
	for idx != nilNode {
		n := &t.nodes[idx]
		n.bound = t.nodes[n.left].bound.Union(t.nodes[n.right].bound)
		idx = n.parent
	}
}
