package systems

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/parklife/components"
	"github.com/pthm-cable/parklife/config"
	"github.com/pthm-cable/parklife/geom"
	"github.com/pthm-cable/parklife/spatial"
	"github.com/pthm-cable/parklife/surface"
)

// snapDamping slows an agent to a stop while it holds the camera pose.
const snapDamping = 0.7

// SteeringSystem moves ground agents: flocking against octree neighbors,
// obstacle avoidance, goal seeking or wander, then re-projection onto
// the walkable surface. Surface queries are the only environment
// constraint; there is no collision geometry.
type SteeringSystem struct {
	filter  ecs.Filter3[components.Position, components.Velocity, components.Walker]
	posMap  *ecs.Map[components.Position]
	velMap  *ecs.Map[components.Velocity]
	wkMap   *ecs.Map[components.Walker]
	tree    *spatial.Octree
	reg     *EntityIndex
	scene   *Scene
	sampler *surface.Sampler
	rng     *rand.Rand

	flockRadius    float32
	maxNeighbors   int
	separation     bool
	alignment      bool
	cohesion       bool
	separationWt   float32
	alignmentWt    float32
	cohesionWt     float32
	arrivalRadius  float32
	wanderStrength float32
	boundaryMargin float32
	boundaryWt     float32
	avoidRadius    float32
	avoidWt        float32
	reflectDamping float32
	footOffset     float32
	physicsEvery   int64
	resample       [3]int64 // resample interval in ticks, indexed by tier

	// scratch buffers, reused across agents
	entries []spatial.Entry
	seen    []uint32
}

// NewSteeringSystem creates the ground steering system.
func NewSteeringSystem(w *ecs.World, cfg *config.Config, tree *spatial.Octree, reg *EntityIndex, scene *Scene, sampler *surface.Sampler, rng *rand.Rand) *SteeringSystem {
	cr := cfg.Crowd
	return &SteeringSystem{
		filter:         *ecs.NewFilter3[components.Position, components.Velocity, components.Walker](w),
		posMap:         ecs.NewMap[components.Position](w),
		velMap:         ecs.NewMap[components.Velocity](w),
		wkMap:          ecs.NewMap[components.Walker](w),
		tree:           tree,
		reg:            reg,
		scene:          scene,
		sampler:        sampler,
		rng:            rng,
		flockRadius:    float32(cr.FlockRadius),
		maxNeighbors:   cr.MaxNeighbors,
		separation:     cr.Separation,
		alignment:      cr.Alignment,
		cohesion:       cr.Cohesion,
		separationWt:   float32(cr.SeparationWt),
		alignmentWt:    float32(cr.AlignmentWt),
		cohesionWt:     float32(cr.CohesionWt),
		arrivalRadius:  float32(cr.ArrivalRadius),
		wanderStrength: float32(cr.WanderStrength),
		boundaryMargin: float32(cr.BoundaryMargin),
		boundaryWt:     float32(cr.BoundaryWt),
		avoidRadius:    float32(cr.AvoidRadius),
		avoidWt:        float32(cr.AvoidWt),
		reflectDamping: float32(cr.ReflectDamping),
		footOffset:     float32(cfg.Surface.FootOffset),
		physicsEvery:   int64(cr.PhysicsEvery),
		resample: [3]int64{
			int64(cfg.LOD.ResampleNear),
			int64(cfg.LOD.ResampleMid),
			int64(cfg.LOD.ResampleCulled),
		},
	}
}

// Update advances every active ground agent by one tick.
func (s *SteeringSystem) Update(w *ecs.World, tick int64) {
	integrate := s.physicsEvery <= 1 || tick%s.physicsEvery == 0

	query := s.filter.Query()
	for query.Next() {
		pos, vel, wk := query.Get()

		switch wk.State {
		case components.StateInside:
			continue
		case components.StateSnapping:
			vel.Vec3 = vel.Mul(snapDamping)
			continue
		}
		if !integrate {
			continue
		}

		force := s.flockForce(pos.Vec3, vel.Vec3, wk)
		force = force.Add(s.avoidForce(pos.Vec3, wk.Radius))
		if wk.HasTarget {
			force = force.Add(s.seekForce(pos.Vec3, vel.Vec3, wk))
		} else {
			force = force.Add(s.wanderForce(pos.Vec3))
		}
		force[1] = 0
		force = limit(force, wk.MaxForce)

		vel.Vec3 = vel.Add(force)
		vel.Vec3[1] = 0
		vel.Vec3 = limit(vel.Vec3, wk.MaxSpeed)

		old := pos.Vec3
		pos.Vec3 = pos.Add(vel.Vec3)

		// Re-project onto the walkable surface. Sampling is throttled by
		// render tier; between samples the last known height is reused.
		if tick-wk.SurfaceTick >= s.resample[wk.Tier] {
			info := s.sampler.Sample(pos.X(), pos.Z(), &wk.Cache)
			if info.Inside {
				wk.GroundHeight = info.Height
				wk.SurfaceTick = tick
				pos.Vec3[1] = info.Height + s.footOffset
			} else {
				// Stepped off the surface: bounce back and stay put.
				vel.Vec3 = vel.Mul(-s.reflectDamping)
				pos.Vec3 = old
			}
		} else {
			pos.Vec3[1] = wk.GroundHeight + s.footOffset
		}
	}
}

// flockForce computes separation, alignment and cohesion against octree
// neighbors. All three sums are always accumulated; the toggles only
// gate whether a sum contributes to the returned force.
func (s *SteeringSystem) flockForce(pos, vel mgl32.Vec3, wk *components.Walker) mgl32.Vec3 {
	var sep, ali, coh mgl32.Vec3
	count := 0

	q := geom.AABBAround(pos, s.flockRadius, s.flockRadius, s.flockRadius)
	s.entries = s.tree.QueryBoundsInto(s.entries[:0], q)
	s.seen = s.seen[:0]

	radiusSq := s.flockRadius * s.flockRadius
	for _, e := range s.entries {
		if e.ID == wk.ID || containsID(s.seen, e.ID) {
			continue
		}
		s.seen = append(s.seen, e.ID)
		ent, ok := s.reg.Get(e.ID)
		if !ok || !s.wkMap.Has(ent) {
			continue
		}
		npos := s.posMap.Get(ent).Vec3
		d := pos.Sub(npos)
		dSq := d.Dot(d)
		if dSq > radiusSq || dSq == 0 {
			continue
		}
		sep = sep.Add(d.Mul(1 / dSq))
		ali = ali.Add(s.velMap.Get(ent).Vec3)
		coh = coh.Add(npos)
		count++
		if count >= s.maxNeighbors {
			break
		}
	}
	if count == 0 {
		return mgl32.Vec3{}
	}

	var force mgl32.Vec3
	if s.separation {
		force = force.Add(sep.Mul(s.separationWt))
	}
	if s.alignment {
		avg := ali.Mul(1 / float32(count))
		force = force.Add(avg.Sub(vel).Mul(s.alignmentWt))
	}
	if s.cohesion {
		center := coh.Mul(1 / float32(count))
		force = force.Add(center.Sub(pos).Mul(s.cohesionWt))
	}
	return force
}

// avoidForce pushes away from circular exclusion zones, proportional to
// penetration depth into the avoidance band.
func (s *SteeringSystem) avoidForce(pos mgl32.Vec3, radius float32) mgl32.Vec3 {
	var force mgl32.Vec3
	for _, c := range s.scene.Obstacles {
		d := c.DistXZ(pos.X(), pos.Z())
		band := c.Radius + radius + s.avoidRadius
		if d >= band || d == 0 {
			continue
		}
		dir := mgl32.Vec3{pos.X() - c.X, 0, pos.Z() - c.Z}.Mul(1 / d)
		force = force.Add(dir.Mul((band - d) / band * s.avoidWt))
	}
	return force
}

// seekForce steers toward the target, decelerating inside the arrival
// radius.
func (s *SteeringSystem) seekForce(pos, vel mgl32.Vec3, wk *components.Walker) mgl32.Vec3 {
	to := mgl32.Vec3{wk.Target.X() - pos.X(), 0, wk.Target.Z() - pos.Z()}
	dist := to.Len()
	if dist < 1e-5 {
		return vel.Mul(-1)
	}
	speed := wk.MaxSpeed
	if dist < s.arrivalRadius {
		speed *= dist / s.arrivalRadius
	}
	desired := to.Mul(speed / dist)
	return limit(desired.Sub(vel), wk.MaxForce)
}

// wanderForce is low-magnitude random drift plus a soft push back from
// the world rim.
func (s *SteeringSystem) wanderForce(pos mgl32.Vec3) mgl32.Vec3 {
	force := mgl32.Vec3{
		(s.rng.Float32()*2 - 1) * s.wanderStrength,
		0,
		(s.rng.Float32()*2 - 1) * s.wanderStrength,
	}
	dist, normal := s.sampler.BoundaryInfo(pos.X(), pos.Z())
	if dist < s.boundaryMargin {
		push := (s.boundaryMargin - dist) / s.boundaryMargin * s.boundaryWt
		force = force.Sub(normal.Mul(push))
	}
	return force
}

func containsID(ids []uint32, id uint32) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// limit clamps a vector to the given magnitude.
func limit(v mgl32.Vec3, max float32) mgl32.Vec3 {
	lSq := v.Dot(v)
	if lSq <= max*max || lSq == 0 {
		return v
	}
	return v.Mul(max / sqrt32(lSq))
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}
