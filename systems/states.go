package systems

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/parklife/components"
	"github.com/pthm-cable/parklife/config"
	"github.com/pthm-cable/parklife/surface"
)

// StateSystem resolves behavior-state transitions for ground agents.
// Transition probabilities are per-tick random checks, so behavior is
// reproducible only at a fixed tick rate.
type StateSystem struct {
	filter  ecs.Filter3[components.Position, components.Velocity, components.Walker]
	scene   *Scene
	sampler *surface.Sampler
	hooks   RenderHooks
	rng     *rand.Rand

	maxRings int

	seekChance  float64
	flowChance  float64
	queueChance float64

	captureRadius float32
	targetJitter  float32
	doorRadius    float32

	gestureTick int64
	endTick     int64
	cooldown    int64
	insideTicks int64

	// event counters since the last Take*, for telemetry windows
	gestures int
	visits   int
}

// TakeGestures returns and resets the fired-gesture count.
func (s *StateSystem) TakeGestures() int {
	n := s.gestures
	s.gestures = 0
	return n
}

// TakeVisits returns and resets the attraction-entry count.
func (s *StateSystem) TakeVisits() int {
	n := s.visits
	s.visits = 0
	return n
}

// NewStateSystem creates the transition system.
func NewStateSystem(w *ecs.World, cfg *config.Config, scene *Scene, sampler *surface.Sampler, hooks RenderHooks, rng *rand.Rand) *StateSystem {
	st := cfg.States
	return &StateSystem{
		filter:        *ecs.NewFilter3[components.Position, components.Velocity, components.Walker](w),
		scene:         scene,
		sampler:       sampler,
		hooks:         hooks,
		rng:           rng,
		maxRings:      cfg.Surface.MaxClampRings,
		seekChance:    st.SeekChance,
		flowChance:    st.FlowChance,
		queueChance:   st.QueueChance,
		captureRadius: float32(st.CaptureRadius),
		targetJitter:  float32(st.TargetJitter),
		doorRadius:    float32(st.DoorRadius),
		gestureTick:   int64(st.SnapGestureTick),
		endTick:       int64(st.SnapEndTick),
		cooldown:      int64(st.SnapCooldown),
		insideTicks:   int64(st.InsideTicks),
	}
}

// Update resolves transitions for the given tick.
func (s *StateSystem) Update(w *ecs.World, tick int64) {
	query := s.filter.Query()
	for query.Next() {
		pos, vel, wk := query.Get()

		switch wk.State {
		case components.StateWander:
			s.fromWander(wk, pos.Vec3, tick)

		case components.StateSeek:
			if distXZSq(pos.Vec3, wk.Target) < s.captureRadius*s.captureRadius {
				wk.State = components.StateSnapping
				wk.HasTarget = false
				wk.SnapStart = tick
				wk.GestureFired = false
			}

		case components.StateSnapping:
			if !wk.GestureFired && tick >= wk.SnapStart+s.gestureTick {
				s.hooks.Gesture(wk.ID)
				wk.GestureFired = true
				s.gestures++
			}
			if tick >= wk.SnapStart+s.endTick {
				wk.State = components.StateWander
				wk.LastSnapEnd = tick
			}

		case components.StateFlow:
			if distXZSq(pos.Vec3, wk.Target) < s.captureRadius*s.captureRadius {
				wk.State = components.StateWander
				wk.HasTarget = false
			}

		case components.StateQueuing:
			if distXZSq(pos.Vec3, wk.Target) < s.doorRadius*s.doorRadius {
				wk.State = components.StateInside
				wk.HasTarget = false
				wk.RespawnTick = tick + s.insideTicks
				s.visits++
			}

		case components.StateInside:
			if tick >= wk.RespawnTick {
				q := s.scene.Queues[wk.QueueIndex]
				exit := q.Exit
				// Re-ground at the door; clamp to the nearest walkable
				// point if the exit sits off the surface.
				if info := s.sampler.Sample(exit.X(), exit.Z(), nil); info.Inside {
					exit[1] = info.Height
				} else if p, ok := s.sampler.NearestWalkable(exit.X(), exit.Z(), s.maxRings); ok {
					exit = p
				}
				pos.Vec3 = exit
				vel.Vec3 = q.ExitDir.Mul(wk.MaxSpeed * 0.5)
				wk.GroundHeight = exit.Y()
				wk.State = components.StateWander
			}
		}
	}
}

func (s *StateSystem) fromWander(wk *components.Walker, pos mgl32.Vec3, tick int64) {
	if len(s.scene.PhotoSpots) > 0 && tick-wk.LastSnapEnd >= s.cooldown && s.rng.Float64() < s.seekChance {
		spot := s.scene.PhotoSpots[s.rng.Intn(len(s.scene.PhotoSpots))]
		wk.Target = mgl32.Vec3{
			spot.X() + (s.rng.Float32()*2-1)*s.targetJitter,
			spot.Y(),
			spot.Z() + (s.rng.Float32()*2-1)*s.targetJitter,
		}
		wk.HasTarget = true
		wk.State = components.StateSeek
		return
	}
	if len(s.scene.FlowPoints) > 0 && s.rng.Float64() < s.flowChance {
		wk.Target = s.scene.FlowPoints[s.rng.Intn(len(s.scene.FlowPoints))]
		wk.HasTarget = true
		wk.State = components.StateFlow
		return
	}
	if len(s.scene.Queues) > 0 && s.rng.Float64() < s.queueChance {
		wk.QueueIndex = s.rng.Intn(len(s.scene.Queues))
		wk.Target = s.scene.Queues[wk.QueueIndex].Waypoint
		wk.HasTarget = true
		wk.State = components.StateQueuing
	}
}

func distXZSq(a, b mgl32.Vec3) float32 {
	dx := a.X() - b.X()
	dz := a.Z() - b.Z()
	return dx*dx + dz*dz
}
