package systems

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/parklife/components"
	"github.com/pthm-cable/parklife/geom"
	"github.com/pthm-cable/parklife/spatial"
)

// EntityIndex maps stable agent ids back to live ECS entities, so octree
// query results can be resolved to components.
type EntityIndex struct {
	m map[uint32]ecs.Entity
}

// NewEntityIndex creates an empty id registry.
func NewEntityIndex() *EntityIndex {
	return &EntityIndex{m: make(map[uint32]ecs.Entity)}
}

// Register records the entity behind an agent id.
func (ix *EntityIndex) Register(id uint32, e ecs.Entity) { ix.m[id] = e }

// Unregister forgets an agent id.
func (ix *EntityIndex) Unregister(id uint32) { delete(ix.m, id) }

// Get resolves an agent id to its entity.
func (ix *EntityIndex) Get(id uint32) (ecs.Entity, bool) {
	e, ok := ix.m[id]
	return e, ok
}

// IndexSystem keeps the octree in sync with agent positions. Entries are
// refreshed incrementally: only agents that moved more than epsilon since
// their last indexing are removed and reinserted. Agents inside an
// attraction are dropped from the index entirely.
type IndexSystem struct {
	walkers ecs.Filter2[components.Position, components.Walker]
	flyers  ecs.Filter2[components.Position, components.Flyer]
	tree    *spatial.Octree
	epsilon float32
}

// NewIndexSystem creates the octree refresh system.
func NewIndexSystem(w *ecs.World, tree *spatial.Octree, epsilon float32) *IndexSystem {
	return &IndexSystem{
		walkers: *ecs.NewFilter2[components.Position, components.Walker](w),
		flyers:  *ecs.NewFilter2[components.Position, components.Flyer](w),
		tree:    tree,
		epsilon: epsilon,
	}
}

// Update refreshes stale octree entries.
func (s *IndexSystem) Update(w *ecs.World) {
	epsSq := s.epsilon * s.epsilon

	query := s.walkers.Query()
	for query.Next() {
		pos, wk := query.Get()
		if wk.State == components.StateInside {
			if wk.Indexed {
				s.tree.Remove(wk.ID)
				wk.Indexed = false
			}
			continue
		}
		s.refresh(pos.Vec3, wk.ID, walkerBounds(pos.Vec3, wk), &wk.Indexed, &wk.LastIndexed, epsSq)
	}

	fq := s.flyers.Query()
	for fq.Next() {
		pos, fl := fq.Get()
		s.refresh(pos.Vec3, fl.ID, flyerBounds(pos.Vec3), &fl.Indexed, &fl.LastIndexed, epsSq)
	}
}

func (s *IndexSystem) refresh(pos mgl32.Vec3, id uint32, bounds geom.AABB, indexed *bool, last *mgl32.Vec3, epsSq float32) {
	if *indexed {
		d := pos.Sub(*last)
		if d.Dot(d) <= epsSq {
			return
		}
		s.tree.Remove(id)
	}
	s.tree.Insert(spatial.Entry{ID: id, Bounds: bounds})
	*indexed = true
	*last = pos
}

func walkerBounds(pos mgl32.Vec3, wk *components.Walker) geom.AABB {
	center := mgl32.Vec3{pos.X(), pos.Y() + wk.Height/2, pos.Z()}
	return geom.AABBAround(center, wk.Radius, wk.Height/2, wk.Radius)
}

func flyerBounds(pos mgl32.Vec3) geom.AABB {
	const half = 0.5
	return geom.AABBAround(pos, half, half, half)
}
