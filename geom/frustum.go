package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

// Plane is a half-space in the form dot(N, p) + D >= 0.
type Plane struct {
	N mgl32.Vec3
	D float32
}

// Frustum is six inward-facing planes extracted from a view-projection
// matrix. Order: left, right, bottom, top, near, far.
type Frustum struct {
	Planes [6]Plane
}

// FrustumFromMatrix extracts clip planes from a view-projection matrix
// using the Gribb-Hartmann method. Plane normals point into the frustum.
func FrustumFromMatrix(vp mgl32.Mat4) Frustum {
	row := func(i int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(i, 0), vp.At(i, 1), vp.At(i, 2), vp.At(i, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes := [6]mgl32.Vec4{
		r3.Add(r0), // left
		r3.Sub(r0), // right
		r3.Add(r1), // bottom
		r3.Sub(r1), // top
		r3.Add(r2), // near
		r3.Sub(r2), // far
	}

	var f Frustum
	for i, p := range planes {
		n := mgl32.Vec3{p.X(), p.Y(), p.Z()}
		l := n.Len()
		if l > 0 {
			f.Planes[i] = Plane{N: n.Mul(1 / l), D: p.W() / l}
		}
	}
	return f
}

// IntersectsAABB reports whether the box is at least partially inside the
// frustum, using the positive-vertex test per plane.
func (f Frustum) IntersectsAABB(b AABB) bool {
	for _, pl := range f.Planes {
		// Pick the box corner furthest along the plane normal.
		p := mgl32.Vec3{b.Min.X(), b.Min.Y(), b.Min.Z()}
		if pl.N.X() >= 0 {
			p[0] = b.Max.X()
		}
		if pl.N.Y() >= 0 {
			p[1] = b.Max.Y()
		}
		if pl.N.Z() >= 0 {
			p[2] = b.Max.Z()
		}
		if pl.N.Dot(p)+pl.D < 0 {
			return false
		}
	}
	return true
}
