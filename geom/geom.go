// Package geom provides the spatial primitives shared by the index,
// surface sampler and pathfinder: axis-aligned boxes, spheres, XZ
// rectangles/circles and view frustums.
package geom

import (
	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// NewAABB returns the box spanning min..max.
func NewAABB(min, max mgl32.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// AABBAround returns the box of the given half-extents centered on p.
func AABBAround(p mgl32.Vec3, halfX, halfY, halfZ float32) AABB {
	return AABB{
		Min: mgl32.Vec3{p.X() - halfX, p.Y() - halfY, p.Z() - halfZ},
		Max: mgl32.Vec3{p.X() + halfX, p.Y() + halfY, p.Z() + halfZ},
	}
}

// Center returns the box center.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the box extents along each axis.
func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Valid reports whether the box has non-negative extent on every axis.
func (b AABB) Valid() bool {
	return b.Min.X() <= b.Max.X() && b.Min.Y() <= b.Max.Y() && b.Min.Z() <= b.Max.Z()
}

// Intersects reports whether two boxes overlap (touching counts).
func (b AABB) Intersects(o AABB) bool {
	return !(b.Max.X() < o.Min.X() || b.Min.X() > o.Max.X() ||
		b.Max.Y() < o.Min.Y() || b.Min.Y() > o.Max.Y() ||
		b.Max.Z() < o.Min.Z() || b.Min.Z() > o.Max.Z())
}

// Contains reports whether p lies inside the box (inclusive).
func (b AABB) Contains(p mgl32.Vec3) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() &&
		p.Y() >= b.Min.Y() && p.Y() <= b.Max.Y() &&
		p.Z() >= b.Min.Z() && p.Z() <= b.Max.Z()
}

// Sphere is a center plus radius, used for static flight obstacles.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// Contains reports whether p lies inside the sphere.
func (s Sphere) Contains(p mgl32.Vec3) bool {
	d := p.Sub(s.Center)
	return d.Dot(d) <= s.Radius*s.Radius
}

// Circle is a circular exclusion zone on the ground plane (XZ).
type Circle struct {
	X, Z   float32
	Radius float32
}

// DistXZ returns the distance from (x,z) to the circle center.
func (c Circle) DistXZ(x, z float32) float32 {
	dx := x - c.X
	dz := z - c.Z
	return sqrt32(dx*dx + dz*dz)
}

// Rect is an axis-aligned rectangle on the XZ plane.
type Rect struct {
	MinX, MinZ float32
	MaxX, MaxZ float32
}

// Contains reports whether (x,z) lies inside the rectangle (inclusive).
func (r Rect) Contains(x, z float32) bool {
	return x >= r.MinX && x <= r.MaxX && z >= r.MinZ && z <= r.MaxZ
}

// Width returns the X extent.
func (r Rect) Width() float32 { return r.MaxX - r.MinX }

// Depth returns the Z extent.
func (r Rect) Depth() float32 { return r.MaxZ - r.MinZ }
