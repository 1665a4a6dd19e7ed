package systems

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/parklife/components"
	"github.com/pthm-cable/parklife/geom"
	"github.com/pthm-cable/parklife/spatial"
)

func treeContains(tree *spatial.Octree, pos mgl32.Vec3, id uint32) bool {
	for _, e := range tree.QueryBounds(geom.AABBAround(pos, 1, 2, 1)) {
		if e.ID == id {
			return true
		}
	}
	return false
}

// TestIndexSkipsInsideAgents verifies agents inside an attraction are
// dropped from spatial queries and reappear after they come back out.
func TestIndexSkipsInsideAgents(t *testing.T) {
	scene, _ := flatScene(t)
	world := ecs.NewWorld()
	tree := spatial.NewOctree(scene.Bounds, 4, 2)
	mapper := ecs.NewMap3[components.Position, components.Velocity, components.Walker](world)
	wkMap := ecs.NewMap[components.Walker](world)
	sys := NewIndexSystem(world, tree, 0.05)

	pos := mgl32.Vec3{50, 0, 50}
	e := spawnWalker(mapper, pos, components.Walker{
		ID: 9, Radius: 0.35, Height: 1.8, State: components.StateWander,
	})

	sys.Update(world)
	if !treeContains(tree, pos, 9) {
		t.Fatal("expected walker in the index")
	}

	wkMap.Get(e).State = components.StateInside
	sys.Update(world)
	if treeContains(tree, pos, 9) {
		t.Fatal("inside agent still visible to spatial queries")
	}

	wkMap.Get(e).State = components.StateWander
	sys.Update(world)
	if !treeContains(tree, pos, 9) {
		t.Fatal("expected walker re-indexed after coming back out")
	}
}

// TestIndexEpsilon verifies entries are only refreshed after moving
// more than the index epsilon.
func TestIndexEpsilon(t *testing.T) {
	scene, _ := flatScene(t)
	world := ecs.NewWorld()
	tree := spatial.NewOctree(scene.Bounds, 4, 2)
	mapper := ecs.NewMap3[components.Position, components.Velocity, components.Walker](world)
	posMap := ecs.NewMap[components.Position](world)
	wkMap := ecs.NewMap[components.Walker](world)
	sys := NewIndexSystem(world, tree, 0.5)

	start := mgl32.Vec3{50, 0, 50}
	e := spawnWalker(mapper, start, components.Walker{
		ID: 4, Radius: 0.35, Height: 1.8,
	})

	sys.Update(world)
	if wk := wkMap.Get(e); wk.LastIndexed != start {
		t.Fatalf("last indexed = %v, want %v", wk.LastIndexed, start)
	}

	// A tiny move must not refresh the entry.
	posMap.Get(e).Vec3 = mgl32.Vec3{50.1, 0, 50}
	sys.Update(world)
	if wk := wkMap.Get(e); wk.LastIndexed != start {
		t.Fatal("entry refreshed below epsilon")
	}

	// A real move must.
	moved := mgl32.Vec3{55, 0, 50}
	posMap.Get(e).Vec3 = moved
	sys.Update(world)
	if wk := wkMap.Get(e); wk.LastIndexed != moved {
		t.Fatal("entry not refreshed above epsilon")
	}
	if !treeContains(tree, moved, 4) {
		t.Fatal("moved walker not found at its new position")
	}
}
