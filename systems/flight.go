package systems

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/parklife/components"
	"github.com/pthm-cable/parklife/config"
	"github.com/pthm-cable/parklife/geom"
	"github.com/pthm-cable/parklife/nav"
	"github.com/pthm-cable/parklife/spatial"
)

// bankGain scales horizontal turn rate into a target roll angle.
const bankGain = 4

// FlightSystem drives airborne agents. No state machine: separation,
// sphere-obstacle avoidance, soft containment in the flight volume, and
// either waypoint following or a wander circle. Heading and bank are
// exponentially smoothed from the velocity direction.
type FlightSystem struct {
	filter  ecs.Filter3[components.Position, components.Velocity, components.Flyer]
	posMap  *ecs.Map[components.Position]
	flMap   *ecs.Map[components.Flyer]
	tree    *spatial.Octree
	reg     *EntityIndex
	scene   *Scene
	planner *nav.PathFinder
	rng     *rand.Rand

	separationRadius float32
	separationWt     float32
	avoidRadius      float32
	avoidWt          float32
	containWt        float32
	containMargin    float32
	wanderRadius     float32
	wanderJitter     float32
	headingSmoothing float32
	bankSmoothing    float32
	maxBank          float32
	waypointReach    float32
	repathEvery      int64

	entries []spatial.Entry
	seen    []uint32
}

// NewFlightSystem creates the flyer steering system. planner may be nil,
// in which case flyers only wander.
func NewFlightSystem(w *ecs.World, cfg *config.Config, tree *spatial.Octree, reg *EntityIndex, scene *Scene, planner *nav.PathFinder, rng *rand.Rand) *FlightSystem {
	fl := cfg.Flyers
	return &FlightSystem{
		filter:           *ecs.NewFilter3[components.Position, components.Velocity, components.Flyer](w),
		posMap:           ecs.NewMap[components.Position](w),
		flMap:            ecs.NewMap[components.Flyer](w),
		tree:             tree,
		reg:              reg,
		scene:            scene,
		planner:          planner,
		rng:              rng,
		separationRadius: float32(fl.SeparationRadius),
		separationWt:     float32(fl.SeparationWt),
		avoidRadius:      float32(fl.AvoidRadius),
		avoidWt:          float32(fl.AvoidWt),
		containWt:        float32(fl.ContainWt),
		containMargin:    float32(fl.ContainMargin),
		wanderRadius:     float32(fl.WanderRadius),
		wanderJitter:     float32(fl.WanderJitter),
		headingSmoothing: float32(fl.HeadingSmoothing),
		bankSmoothing:    float32(fl.BankSmoothing),
		maxBank:          float32(fl.MaxBank),
		waypointReach:    float32(cfg.Nav.WaypointReach),
		repathEvery:      int64(fl.RepathEvery),
	}
}

// Update advances every flyer by one tick.
func (s *FlightSystem) Update(w *ecs.World, tick int64) {
	query := s.filter.Query()
	for query.Next() {
		pos, vel, fl := query.Get()

		force := s.separationForce(pos.Vec3, fl.ID)
		force = force.Add(s.sphereAvoidForce(pos.Vec3))
		force = force.Add(s.containForce(pos.Vec3))
		force = force.Add(s.travelForce(pos.Vec3, vel.Vec3, fl, tick))
		force = limit(force, fl.MaxForce)

		vel.Vec3 = limit(vel.Add(force), fl.MaxSpeed)
		pos.Vec3 = pos.Add(vel.Vec3)

		s.smoothPose(vel.Vec3, fl)
	}
}

func (s *FlightSystem) separationForce(pos mgl32.Vec3, self uint32) mgl32.Vec3 {
	var force mgl32.Vec3
	q := geom.AABBAround(pos, s.separationRadius, s.separationRadius, s.separationRadius)
	s.entries = s.tree.QueryBoundsInto(s.entries[:0], q)
	s.seen = s.seen[:0]

	radiusSq := s.separationRadius * s.separationRadius
	for _, e := range s.entries {
		if e.ID == self || containsID(s.seen, e.ID) {
			continue
		}
		s.seen = append(s.seen, e.ID)
		ent, ok := s.reg.Get(e.ID)
		if !ok || !s.flMap.Has(ent) {
			continue
		}
		d := pos.Sub(s.posMap.Get(ent).Vec3)
		dSq := d.Dot(d)
		if dSq > radiusSq || dSq == 0 {
			continue
		}
		force = force.Add(d.Mul(1 / dSq))
	}
	return force.Mul(s.separationWt)
}

func (s *FlightSystem) sphereAvoidForce(pos mgl32.Vec3) mgl32.Vec3 {
	var force mgl32.Vec3
	for _, sp := range s.scene.Spheres {
		d := pos.Sub(sp.Center)
		dist := d.Len()
		band := sp.Radius + s.avoidRadius
		if dist >= band || dist == 0 {
			continue
		}
		force = force.Add(d.Mul((band - dist) / (band * dist) * s.avoidWt))
	}
	return force
}

// containForce pushes back from each face of the flight volume once the
// agent is within the containment margin.
func (s *FlightSystem) containForce(pos mgl32.Vec3) mgl32.Vec3 {
	var force mgl32.Vec3
	min := s.scene.Bounds.Min
	max := s.scene.Bounds.Max
	for axis := 0; axis < 3; axis++ {
		if d := pos[axis] - min[axis]; d < s.containMargin {
			force[axis] += (s.containMargin - d) / s.containMargin * s.containWt
		}
		if d := max[axis] - pos[axis]; d < s.containMargin {
			force[axis] -= (s.containMargin - d) / s.containMargin * s.containWt
		}
	}
	return force
}

// travelForce steers toward the follow target when one is pinned, else
// follows the current path, else toward a jittered point on the wander
// circle.
func (s *FlightSystem) travelForce(pos, vel mgl32.Vec3, fl *components.Flyer, tick int64) mgl32.Vec3 {
	if fl.HasTarget {
		return s.steerToward(pos, vel, fl.Target, fl.MaxSpeed, fl.MaxForce)
	}
	if s.planner != nil && (tick-fl.RepathTick >= s.repathEvery || (fl.HasPath && fl.Path.Done())) {
		s.replan(pos, fl, tick)
	}
	if fl.HasPath {
		fl.Path.Advance(pos, s.waypointReach)
		if wp, ok := fl.Path.Current(); ok {
			return s.steerToward(pos, vel, wp, fl.MaxSpeed, fl.MaxForce)
		}
		fl.HasPath = false
	}

	// Wander circle: project ahead along the heading, jitter an angle on
	// a fixed-radius circle, steer toward that point.
	fl.WanderAngle += (s.rng.Float32()*2 - 1) * s.wanderJitter
	ahead := pos.Add(fl.Heading.Mul(s.wanderRadius * 2))
	offset := mgl32.Vec3{
		float32(math.Cos(float64(fl.WanderAngle))),
		0,
		float32(math.Sin(float64(fl.WanderAngle))),
	}.Mul(s.wanderRadius)
	return s.steerToward(pos, vel, ahead.Add(offset), fl.MaxSpeed, fl.MaxForce)
}

// SetTarget pins a flyer to an externally driven follow point, taking
// priority over path following and wandering until cleared. Reports
// whether the id resolved to a flyer.
func (s *FlightSystem) SetTarget(id uint32, target mgl32.Vec3) bool {
	fl, ok := s.flyerByID(id)
	if !ok {
		return false
	}
	fl.Target = target
	fl.HasTarget = true
	return true
}

// ClearTarget releases a pinned flyer back to path following.
func (s *FlightSystem) ClearTarget(id uint32) {
	if fl, ok := s.flyerByID(id); ok {
		fl.HasTarget = false
	}
}

func (s *FlightSystem) flyerByID(id uint32) (*components.Flyer, bool) {
	ent, ok := s.reg.Get(id)
	if !ok || !s.flMap.Has(ent) {
		return nil, false
	}
	return s.flMap.Get(ent), true
}

func (s *FlightSystem) replan(pos mgl32.Vec3, fl *components.Flyer, tick int64) {
	fl.RepathTick = tick
	target := s.randomFlightPoint()
	wp := s.planner.FindPath(pos, target)
	if len(wp) == 0 {
		fl.HasPath = false
		return
	}
	fl.Path = nav.Path{Waypoints: wp}
	fl.HasPath = true
}

func (s *FlightSystem) randomFlightPoint() mgl32.Vec3 {
	min := s.scene.Bounds.Min
	size := s.scene.Bounds.Size()
	m := s.containMargin
	return mgl32.Vec3{
		min.X() + m + s.rng.Float32()*(size.X()-2*m),
		min.Y() + m + s.rng.Float32()*(size.Y()-2*m),
		min.Z() + m + s.rng.Float32()*(size.Z()-2*m),
	}
}

func (s *FlightSystem) steerToward(pos, vel, target mgl32.Vec3, maxSpeed, maxForce float32) mgl32.Vec3 {
	to := target.Sub(pos)
	dist := to.Len()
	if dist < 1e-5 {
		return mgl32.Vec3{}
	}
	desired := to.Mul(maxSpeed / dist)
	return limit(desired.Sub(vel), maxForce)
}

// smoothPose updates the exponentially smoothed heading and bank angle
// from the current velocity.
func (s *FlightSystem) smoothPose(vel mgl32.Vec3, fl *components.Flyer) {
	speed := vel.Len()
	if speed < 1e-4 {
		return
	}
	dir := vel.Mul(1 / speed)

	// Signed horizontal turn drives the roll target.
	turn := fl.Heading.X()*dir.Z() - fl.Heading.Z()*dir.X()
	target := clampf(turn*bankGain, -s.maxBank, s.maxBank)
	fl.Bank += (target - fl.Bank) * s.bankSmoothing

	blended := fl.Heading.Add(dir.Sub(fl.Heading).Mul(s.headingSmoothing))
	if l := blended.Len(); l > 1e-6 {
		fl.Heading = blended.Mul(1 / l)
	}
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
