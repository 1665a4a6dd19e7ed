package surface

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// flatGrid returns a 4x4 control grid spanning [0,10]x[0,10] on XZ with
// all points at the given height.
func flatGrid(y float32) []mgl32.Vec3 {
	pts := make([]mgl32.Vec3, 0, 16)
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			pts = append(pts, mgl32.Vec3{float32(i) * 10 / 3, y, float32(j) * 10 / 3})
		}
	}
	return pts
}

// bumpGrid returns a curved control grid: a hill in the middle.
func bumpGrid() []mgl32.Vec3 {
	pts := flatGrid(0)
	pts[5][1] = 3
	pts[6][1] = 3
	pts[9][1] = 3
	pts[10][1] = 2
	return pts
}

func TestBezierPatchFlat(t *testing.T) {
	p, err := NewBezierPatch("road", flatGrid(0))
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}

	if !p.Contains(5, 5) {
		t.Error("expected (5,5) on patch")
	}
	if p.Contains(-1, -1) {
		t.Error("expected (-1,-1) off patch")
	}
	h, ok := p.HeightAt(5, 5)
	if !ok {
		t.Fatal("expected height at (5,5)")
	}
	if math.Abs(float64(h)) > 1e-4 {
		t.Errorf("expected height 0 at (5,5), got %g", h)
	}
}

func TestBezierPatchRoundTrip(t *testing.T) {
	p, err := NewBezierPatch("hill", bumpGrid())
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}

	for _, uv := range [][2]float32{
		{0.1, 0.1}, {0.5, 0.5}, {0.9, 0.2}, {0.25, 0.75}, {0.5, 0.05},
	} {
		pt := p.Point(uv[0], uv[1])
		u, v, on := p.ProjectToSurface(pt.X(), pt.Z())
		if !on {
			t.Errorf("uv=%v: projection reported off-surface", uv)
			continue
		}
		if math.Abs(float64(u-uv[0])) > 1e-4 || math.Abs(float64(v-uv[1])) > 1e-4 {
			t.Errorf("uv=%v: recovered (%g,%g)", uv, u, v)
		}
	}
}

func TestBSplinePatchRoundTrip(t *testing.T) {
	p, err := NewBSplinePatch("lawn", bumpGrid())
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}

	for _, uv := range [][2]float32{{0.2, 0.3}, {0.5, 0.5}, {0.8, 0.7}} {
		pt := p.Point(uv[0], uv[1])
		u, v, on := p.ProjectToSurface(pt.X(), pt.Z())
		if !on {
			t.Errorf("uv=%v: projection reported off-surface", uv)
			continue
		}
		if math.Abs(float64(u-uv[0])) > 1e-4 || math.Abs(float64(v-uv[1])) > 1e-4 {
			t.Errorf("uv=%v: recovered (%g,%g)", uv, u, v)
		}
	}
}

func TestPatchConstructorRejectsBadGrid(t *testing.T) {
	if _, err := NewBezierPatch("bad", flatGrid(0)[:9]); err == nil {
		t.Error("expected error for 9 control points")
	}
	if _, err := NewBSplinePatch("bad", nil); err == nil {
		t.Error("expected error for nil control points")
	}
}

func TestPatchOffSurfaceNeverPanics(t *testing.T) {
	p, err := NewBezierPatch("hill", bumpGrid())
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}
	// Way outside the footprint: must degrade, not panic or lie.
	if h, ok := p.HeightAt(100, 100); ok {
		t.Errorf("expected off-surface at (100,100), got height %g", h)
	}
	if _, _, on := p.ProjectToSurface(9.99, -50); on {
		t.Error("expected off-surface projection for unreachable target")
	}
}
