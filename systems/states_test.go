package systems

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/parklife/components"
	"github.com/pthm-cable/parklife/config"
	"github.com/pthm-cable/parklife/geom"
	"github.com/pthm-cable/parklife/surface"
)

// recorder captures render hook invocations.
type recorder struct {
	gestures []uint32
	attaches []uint32
	tiers    []components.Tier
	detaches []uint32
}

func (r *recorder) Attach(id uint32, tier components.Tier) {
	r.attaches = append(r.attaches, id)
	r.tiers = append(r.tiers, tier)
}
func (r *recorder) Detach(id uint32)  { r.detaches = append(r.detaches, id) }
func (r *recorder) Gesture(id uint32) { r.gestures = append(r.gestures, id) }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg
}

// flatScene is a 100x100 park at ground level with one queue.
func flatScene(t *testing.T) (*Scene, *surface.Sampler) {
	t.Helper()
	deck, err := surface.NewDeck("ground", geom.Rect{MinX: 0, MinZ: 0, MaxX: 100, MaxZ: 100}, 0, 0, 0, 0)
	if err != nil {
		t.Fatalf("deck: %v", err)
	}
	sampler := surface.NewSampler(geom.Rect{MinX: 0, MinZ: 0, MaxX: 100, MaxZ: 100}, deck)
	scene := &Scene{
		Bounds: geom.NewAABB(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{100, 40, 100}),
		PhotoSpots: []mgl32.Vec3{
			{20, 0, 20},
		},
		Queues: []Queue{
			{Waypoint: mgl32.Vec3{60, 0, 60}, Exit: mgl32.Vec3{62, 0, 62}, ExitDir: mgl32.Vec3{0, 0, 1}},
		},
	}
	return scene, sampler
}

func spawnWalker(m *ecs.Map3[components.Position, components.Velocity, components.Walker], pos mgl32.Vec3, wk components.Walker) ecs.Entity {
	p := components.Position{Vec3: pos}
	v := components.Velocity{}
	return m.NewEntity(&p, &v, &wk)
}

// TestSnappingDeterminism verifies that an agent entering the camera
// pose at tick T fires the gesture exactly once at the designated tick
// and resumes wandering at exactly T plus the snap duration.
func TestSnappingDeterminism(t *testing.T) {
	cfg := testConfig(t)
	scene, sampler := flatScene(t)
	world := ecs.NewWorld()
	mapper := ecs.NewMap3[components.Position, components.Velocity, components.Walker](world)
	rec := &recorder{}
	sys := NewStateSystem(world, cfg, scene, sampler, rec, rand.New(rand.NewSource(1)))

	// Agent already at its photo target: the next update flips it to
	// snapping.
	e := spawnWalker(mapper, mgl32.Vec3{20, 0, 20}, components.Walker{
		ID: 7, MaxSpeed: 1.4, State: components.StateSeek,
		Target: mgl32.Vec3{20, 0, 20}, HasTarget: true,
	})
	wkMap := ecs.NewMap[components.Walker](world)

	const enterTick = int64(100)
	sys.Update(world, enterTick)
	wk := wkMap.Get(e)
	if wk.State != components.StateSnapping {
		t.Fatalf("expected snapping, got %v", wk.State)
	}
	if wk.SnapStart != enterTick {
		t.Fatalf("snap start = %d, want %d", wk.SnapStart, enterTick)
	}

	gestureTick := enterTick + int64(cfg.States.SnapGestureTick)
	endTick := enterTick + int64(cfg.States.SnapEndTick)
	for tick := enterTick + 1; tick < endTick; tick++ {
		sys.Update(world, tick)
		if wk := wkMap.Get(e); wk.State != components.StateSnapping {
			t.Fatalf("tick %d: left snapping early", tick)
		}
		if tick >= gestureTick && len(rec.gestures) == 0 {
			t.Fatalf("tick %d: gesture not fired", tick)
		}
		if tick < gestureTick && len(rec.gestures) != 0 {
			t.Fatalf("tick %d: gesture fired early", tick)
		}
	}

	sys.Update(world, endTick)
	wk = wkMap.Get(e)
	if wk.State != components.StateWander {
		t.Fatalf("expected wander at tick %d, got %v", endTick, wk.State)
	}
	if wk.LastSnapEnd != endTick {
		t.Errorf("last snap end = %d, want %d", wk.LastSnapEnd, endTick)
	}
	if len(rec.gestures) != 1 || rec.gestures[0] != 7 {
		t.Errorf("expected exactly one gesture for id 7, got %v", rec.gestures)
	}
	if sys.TakeGestures() != 1 {
		t.Error("expected one counted gesture")
	}
}

// TestSeekCooldown verifies the photo cooldown gates re-entry into the
// seek state.
func TestSeekCooldown(t *testing.T) {
	cfg := testConfig(t)
	cfg.States.SeekChance = 1 // transition is certain when eligible
	cfg.States.FlowChance = 0
	cfg.States.QueueChance = 0
	scene, sampler := flatScene(t)
	world := ecs.NewWorld()
	mapper := ecs.NewMap3[components.Position, components.Velocity, components.Walker](world)
	sys := NewStateSystem(world, cfg, scene, sampler, NopHooks{}, rand.New(rand.NewSource(1)))
	wkMap := ecs.NewMap[components.Walker](world)

	cooldown := int64(cfg.States.SnapCooldown)
	e := spawnWalker(mapper, mgl32.Vec3{50, 0, 50}, components.Walker{
		ID: 1, State: components.StateWander, LastSnapEnd: 100,
	})

	sys.Update(world, 100+cooldown-1)
	if wk := wkMap.Get(e); wk.State != components.StateWander {
		t.Fatalf("seek allowed before cooldown elapsed")
	}
	sys.Update(world, 100+cooldown)
	if wk := wkMap.Get(e); wk.State != components.StateSeek || !wk.HasTarget {
		t.Fatalf("expected seek with target after cooldown, got %v", wk.State)
	}
}

// TestQueueIntoAttraction verifies the queue -> inside -> respawn cycle.
func TestQueueIntoAttraction(t *testing.T) {
	cfg := testConfig(t)
	scene, sampler := flatScene(t)
	world := ecs.NewWorld()
	mapper := ecs.NewMap3[components.Position, components.Velocity, components.Walker](world)
	sys := NewStateSystem(world, cfg, scene, sampler, NopHooks{}, rand.New(rand.NewSource(1)))
	wkMap := ecs.NewMap[components.Walker](world)
	posMap := ecs.NewMap[components.Position](world)
	velMap := ecs.NewMap[components.Velocity](world)

	q := scene.Queues[0]
	e := spawnWalker(mapper, q.Waypoint, components.Walker{
		ID: 3, MaxSpeed: 1.4, State: components.StateQueuing,
		QueueIndex: 0, Target: q.Waypoint, HasTarget: true,
	})

	sys.Update(world, 500)
	wk := wkMap.Get(e)
	if wk.State != components.StateInside {
		t.Fatalf("expected inside at the door, got %v", wk.State)
	}
	want := int64(500 + cfg.States.InsideTicks)
	if wk.RespawnTick != want {
		t.Fatalf("respawn tick = %d, want %d", wk.RespawnTick, want)
	}
	if sys.TakeVisits() != 1 {
		t.Error("expected one counted visit")
	}

	// Still inside one tick before the scheduled respawn.
	sys.Update(world, want-1)
	if wk := wkMap.Get(e); wk.State != components.StateInside {
		t.Fatal("left the attraction early")
	}

	sys.Update(world, want)
	wk = wkMap.Get(e)
	if wk.State != components.StateWander {
		t.Fatalf("expected wander after respawn, got %v", wk.State)
	}
	pos := posMap.Get(e)
	if pos.Vec3 != q.Exit {
		t.Errorf("respawned at %v, want %v", pos.Vec3, q.Exit)
	}
	vel := velMap.Get(e)
	if vel.Z() <= 0 {
		t.Errorf("expected outward exit velocity, got %v", vel.Vec3)
	}
}
