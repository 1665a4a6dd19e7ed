package systems

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/parklife/components"
	"github.com/pthm-cable/parklife/config"
)

// LODSystem buckets agents into render tiers by distance to the
// viewpoint and signals the render collaborator on tier changes. It owns
// no render resources, only the promote/demote decision.
type LODSystem struct {
	walkers ecs.Filter2[components.Position, components.Walker]
	flyers  ecs.Filter2[components.Position, components.Flyer]
	hooks   RenderHooks

	viewpoint mgl32.Vec3
	nearSq    float32
	midSq     float32
}

// NewLODSystem creates the tier bucketing system.
func NewLODSystem(w *ecs.World, cfg *config.Config, hooks RenderHooks) *LODSystem {
	near := float32(cfg.LOD.NearDistance)
	mid := float32(cfg.LOD.MidDistance)
	return &LODSystem{
		walkers: *ecs.NewFilter2[components.Position, components.Walker](w),
		flyers:  *ecs.NewFilter2[components.Position, components.Flyer](w),
		hooks:   hooks,
		nearSq:  near * near,
		midSq:   mid * mid,
	}
}

// SetViewpoint moves the reference point tiers are measured from.
func (s *LODSystem) SetViewpoint(p mgl32.Vec3) { s.viewpoint = p }

// Viewpoint returns the current reference point.
func (s *LODSystem) Viewpoint() mgl32.Vec3 { return s.viewpoint }

// Update reclassifies every agent and fires attach/detach hooks on tier
// changes. Agents inside an attraction are always detached.
func (s *LODSystem) Update(w *ecs.World) {
	query := s.walkers.Query()
	for query.Next() {
		pos, wk := query.Get()
		if wk.State == components.StateInside {
			if wk.Tier != components.TierCulled {
				s.hooks.Detach(wk.ID)
				wk.Tier = components.TierCulled
			}
			continue
		}
		s.reclassify(pos.Vec3, wk.ID, &wk.Tier)
	}

	fq := s.flyers.Query()
	for fq.Next() {
		pos, fl := fq.Get()
		s.reclassify(pos.Vec3, fl.ID, &fl.Tier)
	}
}

func (s *LODSystem) reclassify(pos mgl32.Vec3, id uint32, tier *components.Tier) {
	next := s.classify(pos)
	if next == *tier {
		return
	}
	if *tier != components.TierCulled {
		s.hooks.Detach(id)
	}
	if next != components.TierCulled {
		s.hooks.Attach(id, next)
	}
	*tier = next
}

func (s *LODSystem) classify(pos mgl32.Vec3) components.Tier {
	d := pos.Sub(s.viewpoint)
	dSq := d.Dot(d)
	switch {
	case dSq <= s.nearSq:
		return components.TierNear
	case dSq <= s.midSq:
		return components.TierMid
	default:
		return components.TierCulled
	}
}
