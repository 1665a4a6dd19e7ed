package surface

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/parklife/geom"
)

// Newton projection constants. A point counts as on-surface only when the
// converged parameters stay in [0,1]^2 and the ground-plane residual is
// below onSurfaceTol. Evaluation and iteration run in float64: the
// tolerances are finer than float32 resolution at park coordinates.
const (
	newtonMaxIter = 10
	newtonEps     = 1e-5
	newtonTol     = 1e-6
	onSurfaceTol  = 10 * newtonTol
)

// patch is the shared core of the two parametric variants: a (u,v) ->
// point evaluator plus the Newton inverse mapping over it.
type patch struct {
	name string
	pts  [16][3]float64 // 4x4 control grid, row-major (v rows, u columns)
	rect geom.Rect      // XZ bounds of the control grid
	eval func(u, v float64) (x, y, z float64)
}

func newPatch(name string, pts []mgl32.Vec3) (*patch, error) {
	if len(pts) != 16 {
		return nil, fmt.Errorf("surface: patch %q needs a 4x4 control grid (16 points), got %d", name, len(pts))
	}
	p := &patch{name: name}
	for i, v := range pts {
		p.pts[i] = [3]float64{float64(v.X()), float64(v.Y()), float64(v.Z())}
	}
	p.rect = geom.Rect{MinX: pts[0].X(), MaxX: pts[0].X(), MinZ: pts[0].Z(), MaxZ: pts[0].Z()}
	for _, v := range pts[1:] {
		if v.X() < p.rect.MinX {
			p.rect.MinX = v.X()
		}
		if v.X() > p.rect.MaxX {
			p.rect.MaxX = v.X()
		}
		if v.Z() < p.rect.MinZ {
			p.rect.MinZ = v.Z()
		}
		if v.Z() > p.rect.MaxZ {
			p.rect.MaxZ = v.Z()
		}
	}
	return p, nil
}

func (p *patch) Name() string         { return p.name }
func (p *patch) Footprint() geom.Rect { return p.rect }

// Point evaluates the surface at parameters (u,v) in [0,1]^2.
func (p *patch) Point(u, v float32) mgl32.Vec3 {
	x, y, z := p.eval(float64(u), float64(v))
	return mgl32.Vec3{float32(x), float32(y), float32(z)}
}

// ProjectToSurface inverse-maps a ground position to patch parameters by
// Newton iteration on the XZ residual. It never errors: failure to
// converge reports on=false with the best estimate.
func (p *patch) ProjectToSurface(x, z float32) (u, v float32, on bool) {
	uu, vv, rx, rz, ok := p.project(float64(x), float64(z))
	return float32(uu), float32(vv), ok && rx*rx+rz*rz < onSurfaceTol*onSurfaceTol
}

// project runs the Newton iteration, returning the final parameters and
// residual. ok is false only on a near-singular Jacobian.
func (p *patch) project(x, z float64) (u, v, rx, rz float64, ok bool) {
	// Bounding-box-normalized initial guess.
	u = clamp01((x - float64(p.rect.MinX)) / float64(p.rect.Width()))
	v = clamp01((z - float64(p.rect.MinZ)) / float64(p.rect.Depth()))

	for i := 0; i < newtonMaxIter; i++ {
		px, _, pz := p.eval(u, v)
		rx = px - x
		rz = pz - z
		if rx*rx+rz*rz < newtonTol*newtonTol {
			return u, v, rx, rz, true
		}

		// Central-difference Jacobian of (X,Z) with respect to (u,v).
		xu1, _, zu1 := p.eval(u+newtonEps, v)
		xu0, _, zu0 := p.eval(u-newtonEps, v)
		xv1, _, zv1 := p.eval(u, v+newtonEps)
		xv0, _, zv0 := p.eval(u, v-newtonEps)
		jxu := (xu1 - xu0) / (2 * newtonEps)
		jzu := (zu1 - zu0) / (2 * newtonEps)
		jxv := (xv1 - xv0) / (2 * newtonEps)
		jzv := (zv1 - zv0) / (2 * newtonEps)

		det := jxu*jzv - jxv*jzu
		if math.Abs(det) < 1e-12 {
			// Near-singular Jacobian: stop instead of dividing into noise.
			return u, v, rx, rz, false
		}

		du := (rx*jzv - rz*jxv) / det
		dv := (rz*jxu - rx*jzu) / det
		u = clamp01(u - du)
		v = clamp01(v - dv)
	}

	px, _, pz := p.eval(u, v)
	rx = px - x
	rz = pz - z
	return u, v, rx, rz, true
}

func (p *patch) Contains(x, z float32) bool {
	if !p.rect.Contains(x, z) {
		return false
	}
	_, _, on := p.ProjectToSurface(x, z)
	return on
}

func (p *patch) HeightAt(x, z float32) (float32, bool) {
	if !p.rect.Contains(x, z) {
		return 0, false
	}
	u, v, rx, rz, ok := p.project(float64(x), float64(z))
	if !ok || rx*rx+rz*rz >= onSurfaceTol*onSurfaceTol {
		return 0, false
	}
	_, y, _ := p.eval(u, v)
	return float32(y), true
}

func (p *patch) RandomPoint(rng *rand.Rand) mgl32.Vec3 {
	x, y, z := p.eval(float64(rng.Float32()), float64(rng.Float32()))
	return mgl32.Vec3{float32(x), float32(y), float32(z)}
}

func (p *patch) sum(bu, bv [4]float64) (x, y, z float64) {
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			w := bu[i] * bv[j]
			pt := p.pts[j*4+i]
			x += pt[0] * w
			y += pt[1] * w
			z += pt[2] * w
		}
	}
	return x, y, z
}

// BezierPatch is a bicubic Bezier surface over a 4x4 control grid,
// typically a curved road or pavement section.
type BezierPatch struct {
	*patch
}

// NewBezierPatch creates a bicubic Bezier patch from 16 control points
// in row-major order.
func NewBezierPatch(name string, pts []mgl32.Vec3) (*BezierPatch, error) {
	p, err := newPatch(name, pts)
	if err != nil {
		return nil, err
	}
	b := &BezierPatch{patch: p}
	p.eval = func(u, v float64) (float64, float64, float64) {
		return p.sum(bernstein3(u), bernstein3(v))
	}
	return b, nil
}

// bernstein3 returns the four cubic Bernstein basis values at t.
func bernstein3(t float64) [4]float64 {
	s := 1 - t
	return [4]float64{s * s * s, 3 * s * s * t, 3 * s * t * t, t * t * t}
}

// BSplinePatch is a single uniform cubic B-spline segment over a 4x4
// control grid. Unlike the Bezier variant it does not interpolate its
// corner control points.
type BSplinePatch struct {
	*patch
}

// NewBSplinePatch creates a uniform cubic B-spline patch from 16 control
// points in row-major order.
func NewBSplinePatch(name string, pts []mgl32.Vec3) (*BSplinePatch, error) {
	p, err := newPatch(name, pts)
	if err != nil {
		return nil, err
	}
	b := &BSplinePatch{patch: p}
	p.eval = func(u, v float64) (float64, float64, float64) {
		return p.sum(bsplineBasis3(u), bsplineBasis3(v))
	}
	return b, nil
}

// bsplineBasis3 returns the four uniform cubic B-spline basis values at t.
func bsplineBasis3(t float64) [4]float64 {
	t2 := t * t
	t3 := t2 * t
	return [4]float64{
		(1 - 3*t + 3*t2 - t3) / 6,
		(4 - 6*t2 + 3*t3) / 6,
		(1 + 3*t + 3*t2 - 3*t3) / 6,
		t3 / 6,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}
