package systems

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/parklife/components"
	"github.com/pthm-cable/parklife/config"
	"github.com/pthm-cable/parklife/spatial"
)

type flightFixture struct {
	world  *ecs.World
	mapper *ecs.Map3[components.Position, components.Velocity, components.Flyer]
	posMap *ecs.Map[components.Position]
	velMap *ecs.Map[components.Velocity]
	flMap  *ecs.Map[components.Flyer]
	tree   *spatial.Octree
	reg    *EntityIndex
	index  *IndexSystem
	sys    *FlightSystem
}

func newFlightFixture(t *testing.T, cfg *config.Config) *flightFixture {
	t.Helper()
	scene, _ := flatScene(t)
	world := ecs.NewWorld()
	tree := spatial.NewOctree(scene.Bounds, 4, 2)
	reg := NewEntityIndex()
	return &flightFixture{
		world:  world,
		mapper: ecs.NewMap3[components.Position, components.Velocity, components.Flyer](world),
		posMap: ecs.NewMap[components.Position](world),
		velMap: ecs.NewMap[components.Velocity](world),
		flMap:  ecs.NewMap[components.Flyer](world),
		tree:   tree,
		reg:    reg,
		index:  NewIndexSystem(world, tree, float32(cfg.LOD.IndexEpsilon)),
		sys:    NewFlightSystem(world, cfg, tree, reg, scene, nil, rand.New(rand.NewSource(1))),
	}
}

func (f *flightFixture) spawn(pos mgl32.Vec3, fl components.Flyer) ecs.Entity {
	p := components.Position{Vec3: pos}
	v := components.Velocity{}
	e := f.mapper.NewEntity(&p, &v, &fl)
	f.reg.Register(fl.ID, e)
	return e
}

// TestFlyerContainment verifies a flyer drifting low gets pushed back up
// into the flight volume.
func TestFlyerContainment(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flyers.WanderJitter = 0
	cfg.Flyers.WanderRadius = 0
	f := newFlightFixture(t, cfg)

	e := f.spawn(mgl32.Vec3{50, 1, 50}, components.Flyer{
		ID: 1, MaxSpeed: 6, MaxForce: 4, Heading: mgl32.Vec3{1, 0, 0},
	})

	f.index.Update(f.world)
	f.sys.Update(f.world, 0)

	if v := f.velMap.Get(e); v.Y() <= 0 {
		t.Errorf("expected upward push near the floor, vel %v", v.Vec3)
	}
}

func TestFlyerSeparation(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flyers.WanderJitter = 0
	cfg.Flyers.WanderRadius = 0
	f := newFlightFixture(t, cfg)

	// Mid-volume, away from all containment margins.
	a := f.spawn(mgl32.Vec3{49, 20, 50}, components.Flyer{
		ID: 1, MaxSpeed: 6, MaxForce: 4, Heading: mgl32.Vec3{1, 0, 0},
	})
	b := f.spawn(mgl32.Vec3{51, 20, 50}, components.Flyer{
		ID: 2, MaxSpeed: 6, MaxForce: 4, Heading: mgl32.Vec3{1, 0, 0},
	})

	f.index.Update(f.world)
	f.sys.Update(f.world, 0)

	if v := f.velMap.Get(a); v.X() >= 0 {
		t.Errorf("left flyer should be pushed -X, vel %v", v.Vec3)
	}
	if v := f.velMap.Get(b); v.X() <= 0 {
		t.Errorf("right flyer should be pushed +X, vel %v", v.Vec3)
	}
}

// TestFlyerPoseSmoothing verifies heading stays unit length and bank
// stays within the configured limit while turning.
func TestFlyerPoseSmoothing(t *testing.T) {
	cfg := testConfig(t)
	f := newFlightFixture(t, cfg)

	e := f.spawn(mgl32.Vec3{50, 20, 50}, components.Flyer{
		ID: 1, MaxSpeed: 6, MaxForce: 4, Heading: mgl32.Vec3{1, 0, 0},
	})

	f.index.Update(f.world)
	maxBank := float32(cfg.Flyers.MaxBank)
	for tick := int64(0); tick < 50; tick++ {
		f.sys.Update(f.world, tick)
		fl := f.flMap.Get(e)
		if l := fl.Heading.Len(); math.Abs(float64(l-1)) > 1e-3 {
			t.Fatalf("tick %d: heading length %g", tick, l)
		}
		if fl.Bank < -maxBank-1e-3 || fl.Bank > maxBank+1e-3 {
			t.Fatalf("tick %d: bank %g outside [-%g,%g]", tick, fl.Bank, maxBank, maxBank)
		}
	}
}

// TestFlyerPathFollowing verifies a flyer with a path steers toward the
// active waypoint and advances past reached ones.
func TestFlyerPathFollowing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flyers.RepathEvery = 1 << 30 // no replanning during the test
	f := newFlightFixture(t, cfg)

	e := f.spawn(mgl32.Vec3{50, 20, 50}, components.Flyer{
		ID: 1, MaxSpeed: 6, MaxForce: 4, Heading: mgl32.Vec3{1, 0, 0},
	})
	fl := f.flMap.Get(e)
	fl.HasPath = true
	fl.Path.Waypoints = []mgl32.Vec3{{50.2, 20, 50}, {70, 20, 50}}

	f.index.Update(f.world)
	f.sys.Update(f.world, 0)

	fl = f.flMap.Get(e)
	if fl.Path.Index != 1 {
		t.Fatalf("expected first waypoint consumed, index %d", fl.Path.Index)
	}
	if v := f.velMap.Get(e); v.X() <= 0 {
		t.Errorf("expected motion toward the next waypoint, vel %v", v.Vec3)
	}
}

// TestFlyerTargetFollowing verifies a pinned follow point overrides an
// active path and that clearing it resumes path following.
func TestFlyerTargetFollowing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flyers.WanderJitter = 0
	cfg.Flyers.WanderRadius = 0
	f := newFlightFixture(t, cfg)

	e := f.spawn(mgl32.Vec3{50, 20, 50}, components.Flyer{
		ID: 1, MaxSpeed: 6, MaxForce: 4, Heading: mgl32.Vec3{1, 0, 0},
	})
	fl := f.flMap.Get(e)
	fl.HasPath = true
	fl.Path.Waypoints = []mgl32.Vec3{{20, 20, 50}} // path points -X

	f.index.Update(f.world)
	if !f.sys.SetTarget(1, mgl32.Vec3{80, 20, 50}) {
		t.Fatal("target not accepted for a known flyer id")
	}
	if f.sys.SetTarget(99, mgl32.Vec3{}) {
		t.Error("target accepted for an unknown id")
	}

	f.sys.Update(f.world, 0)
	if v := f.velMap.Get(e); v.X() <= 0 {
		t.Fatalf("expected motion toward the follow point, vel %v", v.Vec3)
	}

	// Clearing the target hands control back to the path.
	f.sys.ClearTarget(1)
	f.sys.Update(f.world, 1)
	f.sys.Update(f.world, 2)
	if v := f.velMap.Get(e); v.X() >= 0 {
		t.Errorf("expected motion toward the waypoint after clearing, vel %v", v.Vec3)
	}
}
