// Package spatial provides the adaptive octree used for agent neighbor
// and culling queries.
package spatial

import (
	"github.com/pthm-cable/parklife/geom"
)

// Entry is an agent reference stored in the tree: a stable id plus the
// bounds it was inserted with. The id is resolved back to agent state
// through the ECS, never through pointers held here.
type Entry struct {
	ID     uint32
	Bounds geom.AABB
}

// node is one octree cell: either a list of entries (leaf) or exactly
// eight children.
type node struct {
	bounds   geom.AABB
	depth    int
	entries  []Entry
	children *[8]node
}

// Octree subdivides world space for bounded queries over agent AABBs.
//
// A leaf splits as soon as it holds at least one entry, provided it is
// above the depth cap and its shortest edge is larger than the minimum
// cell size. There is no entry-count threshold and no merging of empty
// nodes, so the tree builds a near-maximal grid eagerly; query
// granularity depends on this.
type Octree struct {
	root     node
	maxDepth int
	minSize  float32
}

// NewOctree creates an empty octree over the given root bounds.
func NewOctree(bounds geom.AABB, maxDepth int, minSize float32) *Octree {
	return &Octree{
		root:     node{bounds: bounds, depth: 0},
		maxDepth: maxDepth,
		minSize:  minSize,
	}
}

// Bounds returns the root bounds.
func (o *Octree) Bounds() geom.AABB {
	return o.root.bounds
}

// Insert adds an entry to every leaf its bounds intersect. Degenerate
// bounds and bounds outside the root are silently dropped.
func (o *Octree) Insert(e Entry) {
	if !e.Bounds.Valid() || !e.Bounds.Intersects(o.root.bounds) {
		return
	}
	o.insert(&o.root, e)
}

func (o *Octree) insert(n *node, e Entry) {
	if !e.Bounds.Intersects(n.bounds) {
		return
	}
	if n.children == nil {
		n.entries = append(n.entries, e)
		if n.depth < o.maxDepth && minEdge(n.bounds) > o.minSize {
			o.subdivide(n)
		}
		return
	}
	for i := range n.children {
		o.insert(&n.children[i], e)
	}
}

// minEdge returns the shortest edge of a box. Non-cubic roots stop
// subdividing once any axis reaches the minimum cell size.
func minEdge(b geom.AABB) float32 {
	s := b.Size()
	m := s.X()
	if s.Y() < m {
		m = s.Y()
	}
	if s.Z() < m {
		m = s.Z()
	}
	return m
}

// subdivide splits a leaf into eight children and pushes its entries
// down into every intersecting child.
func (o *Octree) subdivide(n *node) {
	min := n.bounds.Min
	half := n.bounds.Size().Mul(0.5)

	var children [8]node
	idx := 0
	for zi := 0; zi < 2; zi++ {
		for yi := 0; yi < 2; yi++ {
			for xi := 0; xi < 2; xi++ {
				lo := min
				lo[0] += float32(xi) * half.X()
				lo[1] += float32(yi) * half.Y()
				lo[2] += float32(zi) * half.Z()
				children[idx] = node{
					bounds: geom.NewAABB(lo, lo.Add(half)),
					depth:  n.depth + 1,
				}
				idx++
			}
		}
	}

	entries := n.entries
	n.entries = nil
	n.children = &children
	for _, e := range entries {
		for i := range n.children {
			o.insert(&n.children[i], e)
		}
	}
}

// QueryBounds returns every entry whose leaf intersects box. Entries that
// span multiple leaves appear once per leaf: callers that need unique ids
// must dedupe themselves. QueryFrustum is the deduplicating counterpart;
// the asymmetry is deliberate and relied upon.
func (o *Octree) QueryBounds(box geom.AABB) []Entry {
	return o.QueryBoundsInto(nil, box)
}

// QueryBoundsInto appends matches to dst and returns the updated slice.
// Reuse dst across ticks to avoid allocations.
func (o *Octree) QueryBoundsInto(dst []Entry, box geom.AABB) []Entry {
	if !box.Valid() {
		return dst
	}
	return o.queryBounds(&o.root, box, dst)
}

func (o *Octree) queryBounds(n *node, box geom.AABB, dst []Entry) []Entry {
	if !n.bounds.Intersects(box) {
		return dst
	}
	if n.children == nil {
		return append(dst, n.entries...)
	}
	for i := range n.children {
		dst = o.queryBounds(&n.children[i], box, dst)
	}
	return dst
}

// QueryFrustum returns the entries of all leaves intersecting the
// frustum, deduplicated by id.
func (o *Octree) QueryFrustum(f geom.Frustum) []Entry {
	seen := make(map[uint32]struct{})
	return o.queryFrustum(&o.root, f, seen, nil)
}

func (o *Octree) queryFrustum(n *node, f geom.Frustum, seen map[uint32]struct{}, dst []Entry) []Entry {
	if !f.IntersectsAABB(n.bounds) {
		return dst
	}
	if n.children == nil {
		for _, e := range n.entries {
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = struct{}{}
			dst = append(dst, e)
		}
		return dst
	}
	for i := range n.children {
		dst = o.queryFrustum(&n.children[i], f, seen, dst)
	}
	return dst
}

// Remove deletes the entry with the given id from every leaf containing
// it. Removing an id that was never inserted is a no-op.
func (o *Octree) Remove(id uint32) {
	o.remove(&o.root, id)
}

func (o *Octree) remove(n *node, id uint32) {
	if n.children == nil {
		kept := n.entries[:0]
		for _, e := range n.entries {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		n.entries = kept
		return
	}
	for i := range n.children {
		o.remove(&n.children[i], id)
	}
}

// Clear empties every node without changing the tree structure.
func (o *Octree) Clear() {
	o.clear(&o.root)
}

func (o *Octree) clear(n *node) {
	n.entries = n.entries[:0]
	if n.children != nil {
		for i := range n.children {
			o.clear(&n.children[i])
		}
	}
}

// Cells returns the bounds of every leaf, for debug visualization.
func (o *Octree) Cells() []geom.AABB {
	return o.cells(&o.root, nil)
}

func (o *Octree) cells(n *node, dst []geom.AABB) []geom.AABB {
	if n.children == nil {
		return append(dst, n.bounds)
	}
	for i := range n.children {
		dst = o.cells(&n.children[i], dst)
	}
	return dst
}
