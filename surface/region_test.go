package surface

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/parklife/geom"
)

func TestDeckHeightInterpolation(t *testing.T) {
	// Bridge deck sloping from y=0 at MinX to y=2 at MaxX.
	d, err := NewDeck("bridge", geom.Rect{MinX: 0, MinZ: 0, MaxX: 10, MaxZ: 4}, 0, 2, 0, 2)
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}

	cases := []struct {
		x, z, want float32
	}{
		{0, 2, 0},
		{10, 2, 2},
		{5, 2, 1},
		{2.5, 0, 0.5},
	}
	for _, c := range cases {
		h, ok := d.HeightAt(c.x, c.z)
		if !ok {
			t.Errorf("(%g,%g): expected on deck", c.x, c.z)
			continue
		}
		if math.Abs(float64(h-c.want)) > 1e-5 {
			t.Errorf("(%g,%g): height %g, want %g", c.x, c.z, h, c.want)
		}
	}

	if d.Contains(11, 2) || d.Contains(5, -0.1) {
		t.Error("expected points outside the footprint to be off-deck")
	}
}

func TestDeckConstructorRejectsDegenerate(t *testing.T) {
	if _, err := NewDeck("bad", geom.Rect{MinX: 5, MinZ: 0, MaxX: 5, MaxZ: 4}, 0, 0, 0, 0); err == nil {
		t.Error("expected error for zero-width deck")
	}
}

func TestPolygonContainsAndHeight(t *testing.T) {
	// A tilted quad: height rises along X.
	verts := []mgl32.Vec3{
		{0, 0, 0}, {8, 2, 0}, {8, 2, 6}, {0, 0, 6},
	}
	p, err := NewPolygon("grass", verts)
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}

	if !p.Contains(4, 3) {
		t.Error("expected centroid inside")
	}
	if p.Contains(9, 3) || p.Contains(4, -1) {
		t.Error("expected outside points rejected")
	}

	h, ok := p.HeightAt(4, 3)
	if !ok {
		t.Fatal("expected height at centroid")
	}
	if math.Abs(float64(h-1)) > 1e-4 {
		t.Errorf("expected height 1 at x=4, got %g", h)
	}
}

func TestPolygonConstructorRejectsTooFewVerts(t *testing.T) {
	if _, err := NewPolygon("bad", []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}); err == nil {
		t.Error("expected error for 2 vertices")
	}
}

func TestPolygonRandomPointInside(t *testing.T) {
	verts := []mgl32.Vec3{
		{0, 0, 0}, {8, 0, 0}, {8, 0, 6}, {0, 0, 6},
	}
	p, err := NewPolygon("grass", verts)
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		pt := p.RandomPoint(rng)
		if !p.Contains(pt.X(), pt.Z()) {
			t.Fatalf("random point %v outside polygon", pt)
		}
	}
}

func TestRampHeightAlongSegment(t *testing.T) {
	// Staircase from ground level up to the bridge deck.
	r, err := NewRamp("stairs", mgl32.Vec3{0, 0, 0}, mgl32.Vec3{6, 3, 0}, 1)
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}

	h, ok := r.HeightAt(3, 0)
	if !ok {
		t.Fatal("expected midpoint on ramp")
	}
	if math.Abs(float64(h-1.5)) > 1e-5 {
		t.Errorf("expected height 1.5 at midpoint, got %g", h)
	}

	if !r.Contains(3, 0.9) {
		t.Error("expected point within half-width")
	}
	if r.Contains(3, 1.5) {
		t.Error("expected point beyond half-width rejected")
	}
	if r.Contains(-1, 0) || r.Contains(7, 0) {
		t.Error("expected points beyond segment ends rejected")
	}
}

func TestRampConstructorRejectsDegenerate(t *testing.T) {
	if _, err := NewRamp("bad", mgl32.Vec3{1, 0, 1}, mgl32.Vec3{1, 5, 1}, 1); err == nil {
		t.Error("expected error for vertical segment")
	}
	if _, err := NewRamp("bad", mgl32.Vec3{0, 0, 0}, mgl32.Vec3{5, 0, 0}, 0); err == nil {
		t.Error("expected error for zero half-width")
	}
}
