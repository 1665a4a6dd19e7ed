// Package surface answers "is (x,z) walkable, and at what height?" for a
// heterogeneous set of walkable regions: curved parametric patches, flat
// polygons, decks and ramps. Patches are inverted numerically; flat
// variants use closed-form containment and interpolation.
package surface

import (
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/parklife/geom"
)

// Region is one named walkable area.
type Region interface {
	// Name identifies the region in debug output and sampler metadata.
	Name() string
	// Contains reports whether the vertical line at (x,z) hits the region.
	Contains(x, z float32) bool
	// HeightAt returns the walkable height at (x,z). ok is false when the
	// point is off the region; the height is then meaningless.
	HeightAt(x, z float32) (h float32, ok bool)
	// RandomPoint returns a uniform-ish point on the region surface.
	RandomPoint(rng *rand.Rand) mgl32.Vec3
	// Footprint returns the XZ rectangle enclosing the region.
	Footprint() geom.Rect
}

// Projectable is the optional capability of parametric patch regions:
// inverse-map a ground position to surface parameters.
type Projectable interface {
	// ProjectToSurface finds (u,v) whose surface point lies over (x,z).
	// on is false when the iteration failed to land on the patch.
	ProjectToSurface(x, z float32) (u, v float32, on bool)
}

// Deck is an axis-aligned walkable rectangle (a bridge deck, a terrace)
// with bilinear height interpolation between its four corners.
type Deck struct {
	name string
	rect geom.Rect
	// Corner heights: y00 at (MinX,MinZ), y10 at (MaxX,MinZ),
	// y01 at (MinX,MaxZ), y11 at (MaxX,MaxZ).
	y00, y10, y01, y11 float32
}

// NewDeck creates an axis-aligned deck. The rectangle must have positive
// extent on both axes.
func NewDeck(name string, rect geom.Rect, y00, y10, y01, y11 float32) (*Deck, error) {
	if rect.Width() <= 0 || rect.Depth() <= 0 {
		return nil, fmt.Errorf("surface: deck %q has degenerate footprint %+v", name, rect)
	}
	return &Deck{name: name, rect: rect, y00: y00, y10: y10, y01: y01, y11: y11}, nil
}

func (d *Deck) Name() string { return d.name }

func (d *Deck) Contains(x, z float32) bool {
	return d.rect.Contains(x, z)
}

func (d *Deck) HeightAt(x, z float32) (float32, bool) {
	if !d.rect.Contains(x, z) {
		return 0, false
	}
	tx := (x - d.rect.MinX) / d.rect.Width()
	tz := (z - d.rect.MinZ) / d.rect.Depth()
	h0 := d.y00 + (d.y10-d.y00)*tx
	h1 := d.y01 + (d.y11-d.y01)*tx
	return h0 + (h1-h0)*tz, true
}

func (d *Deck) RandomPoint(rng *rand.Rand) mgl32.Vec3 {
	x := d.rect.MinX + rng.Float32()*d.rect.Width()
	z := d.rect.MinZ + rng.Float32()*d.rect.Depth()
	h, _ := d.HeightAt(x, z)
	return mgl32.Vec3{x, h, z}
}

func (d *Deck) Footprint() geom.Rect { return d.rect }

// Polygon is a flat convex walkable area (a grass patch, a plaza slab).
// Containment is a same-side test over the XZ projection; height comes
// from barycentric interpolation on the triangle fan around vertex 0.
type Polygon struct {
	name  string
	verts []mgl32.Vec3
	rect  geom.Rect
	areas []float32 // fan triangle areas, for weighted random sampling
	total float32
}

// NewPolygon creates a convex polygon region from at least three
// vertices, ordered consistently around the boundary.
func NewPolygon(name string, verts []mgl32.Vec3) (*Polygon, error) {
	if len(verts) < 3 {
		return nil, fmt.Errorf("surface: polygon %q needs >= 3 vertices, got %d", name, len(verts))
	}
	p := &Polygon{name: name, verts: verts}
	p.rect = geom.Rect{MinX: verts[0].X(), MaxX: verts[0].X(), MinZ: verts[0].Z(), MaxZ: verts[0].Z()}
	for _, v := range verts[1:] {
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
	for i := 1; i < len(verts)-1; i++ {
		a := triAreaXZ(verts[0], verts[i], verts[i+1])
		p.areas = append(p.areas, a)
		p.total += a
	}
	if p.total <= 0 {
		return nil, fmt.Errorf("surface: polygon %q has zero area", name)
	}
	return p, nil
}

func (p *Polygon) Name() string { return p.name }

func (p *Polygon) Contains(x, z float32) bool {
	sign := float32(0)
	n := len(p.verts)
	for i := 0; i < n; i++ {
		a := p.verts[i]
		b := p.verts[(i+1)%n]
		cross := (b.X()-a.X())*(z-a.Z()) - (b.Z()-a.Z())*(x-a.X())
		if cross != 0 {
			if sign == 0 {
				sign = cross
			} else if (cross > 0) != (sign > 0) {
				return false
			}
		}
	}
	return true
}

func (p *Polygon) HeightAt(x, z float32) (float32, bool) {
	if !p.Contains(x, z) {
		return 0, false
	}
	// Find the fan triangle containing the point and interpolate.
	for i := 1; i < len(p.verts)-1; i++ {
		a, b, c := p.verts[0], p.verts[i], p.verts[i+1]
		u, v, w, ok := baryXZ(a, b, c, x, z)
		if ok {
			return u*a.Y() + v*b.Y() + w*c.Y(), true
		}
	}
	// Boundary rounding can leave a contained point outside every fan
	// triangle; fall back to the first vertex height.
	return p.verts[0].Y(), true
}

func (p *Polygon) RandomPoint(rng *rand.Rand) mgl32.Vec3 {
	pick := rng.Float32() * p.total
	tri := len(p.areas) - 1
	for i, a := range p.areas {
		if pick < a {
			tri = i
			break
		}
		pick -= a
	}
	a, b, c := p.verts[0], p.verts[tri+1], p.verts[tri+2]
	r1 := rng.Float32()
	r2 := rng.Float32()
	if r1+r2 > 1 {
		r1 = 1 - r1
		r2 = 1 - r2
	}
	return a.Add(b.Sub(a).Mul(r1)).Add(c.Sub(a).Mul(r2))
}

func (p *Polygon) Footprint() geom.Rect { return p.rect }

// Ramp is a sloped walkway (a staircase approximated as a plane): a line
// segment with a perpendicular half-width, height interpolated along the
// segment.
type Ramp struct {
	name       string
	start, end mgl32.Vec3
	halfWidth  float32
	rect       geom.Rect
}

// NewRamp creates a ramp along start->end with the given half-width. The
// segment must have nonzero length on the ground plane.
func NewRamp(name string, start, end mgl32.Vec3, halfWidth float32) (*Ramp, error) {
	dx := end.X() - start.X()
	dz := end.Z() - start.Z()
	if dx*dx+dz*dz == 0 {
		return nil, fmt.Errorf("surface: ramp %q has zero ground length", name)
	}
	if halfWidth <= 0 {
		return nil, fmt.Errorf("surface: ramp %q needs positive half-width", name)
	}
	r := &Ramp{name: name, start: start, end: end, halfWidth: halfWidth}
	r.rect = geom.Rect{
		MinX: min32(start.X(), end.X()) - halfWidth,
		MaxX: max32(start.X(), end.X()) + halfWidth,
		MinZ: min32(start.Z(), end.Z()) - halfWidth,
		MaxZ: max32(start.Z(), end.Z()) + halfWidth,
	}
	return r, nil
}

func (r *Ramp) Name() string { return r.name }

// project returns the segment parameter t and squared perpendicular
// distance of (x,z) from the ramp axis.
func (r *Ramp) project(x, z float32) (t, perpSq float32) {
	dx := r.end.X() - r.start.X()
	dz := r.end.Z() - r.start.Z()
	lenSq := dx*dx + dz*dz
	t = ((x-r.start.X())*dx + (z-r.start.Z())*dz) / lenSq
	px := r.start.X() + t*dx
	pz := r.start.Z() + t*dz
	ex := x - px
	ez := z - pz
	return t, ex*ex + ez*ez
}

func (r *Ramp) Contains(x, z float32) bool {
	t, perpSq := r.project(x, z)
	return t >= 0 && t <= 1 && perpSq <= r.halfWidth*r.halfWidth
}

func (r *Ramp) HeightAt(x, z float32) (float32, bool) {
	t, perpSq := r.project(x, z)
	if t < 0 || t > 1 || perpSq > r.halfWidth*r.halfWidth {
		return 0, false
	}
	return r.start.Y() + t*(r.end.Y()-r.start.Y()), true
}

func (r *Ramp) RandomPoint(rng *rand.Rand) mgl32.Vec3 {
	t := rng.Float32()
	s := (rng.Float32()*2 - 1) * r.halfWidth
	dx := r.end.X() - r.start.X()
	dz := r.end.Z() - r.start.Z()
	l := sqrt32(dx*dx + dz*dz)
	// Perpendicular on the ground plane.
	nx := -dz / l
	nz := dx / l
	return mgl32.Vec3{
		r.start.X() + t*dx + s*nx,
		r.start.Y() + t*(r.end.Y()-r.start.Y()),
		r.start.Z() + t*dz + s*nz,
	}
}

func (r *Ramp) Footprint() geom.Rect { return r.rect }

// triAreaXZ returns the (positive) area of a triangle projected to XZ.
func triAreaXZ(a, b, c mgl32.Vec3) float32 {
	v := (b.X()-a.X())*(c.Z()-a.Z()) - (b.Z()-a.Z())*(c.X()-a.X())
	if v < 0 {
		v = -v
	}
	return v * 0.5
}

// baryXZ computes barycentric coordinates of (x,z) in triangle abc on the
// ground plane. ok is false when the point is outside the triangle.
func baryXZ(a, b, c mgl32.Vec3, x, z float32) (u, v, w float32, ok bool) {
	det := (b.Z()-c.Z())*(a.X()-c.X()) + (c.X()-b.X())*(a.Z()-c.Z())
	if det == 0 {
		return 0, 0, 0, false
	}
	u = ((b.Z()-c.Z())*(x-c.X()) + (c.X()-b.X())*(z-c.Z())) / det
	v = ((c.Z()-a.Z())*(x-c.X()) + (a.X()-c.X())*(z-c.Z())) / det
	w = 1 - u - v
	const slack = 1e-4
	if u < -slack || v < -slack || w < -slack {
		return 0, 0, 0, false
	}
	return u, v, w, true
}
