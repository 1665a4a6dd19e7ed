package nav

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/parklife/geom"
)

// Grid is a dense voxel occupancy grid over a world-space box. Each cell
// is a cube of cellSize; a cell is blocked when its center falls inside
// an obstacle sphere or the caller's predicate rejects it.
type Grid struct {
	bounds     geom.AABB
	cellSize   float32
	nx, ny, nz int
	blocked    []bool
}

// BuildGrid rasterizes the blocked predicate and the obstacle spheres
// into a voxel grid. isBlocked may be nil.
func BuildGrid(bounds geom.AABB, cellSize float32, isBlocked func(mgl32.Vec3) bool, obstacles []geom.Sphere) *Grid {
	size := bounds.Size()
	g := &Grid{
		bounds:   bounds,
		cellSize: cellSize,
		nx:       maxi(1, int(size.X()/cellSize)),
		ny:       maxi(1, int(size.Y()/cellSize)),
		nz:       maxi(1, int(size.Z()/cellSize)),
	}
	g.blocked = make([]bool, g.nx*g.ny*g.nz)
	for iz := 0; iz < g.nz; iz++ {
		for iy := 0; iy < g.ny; iy++ {
			for ix := 0; ix < g.nx; ix++ {
				c := g.CellCenter(ix, iy, iz)
				b := isBlocked != nil && isBlocked(c)
				if !b {
					for _, s := range obstacles {
						if s.Contains(c) {
							b = true
							break
						}
					}
				}
				g.blocked[g.index(ix, iy, iz)] = b
			}
		}
	}
	return g
}

// Dims returns the cell counts per axis.
func (g *Grid) Dims() (nx, ny, nz int) { return g.nx, g.ny, g.nz }

// Bounds returns the world-space box the grid covers.
func (g *Grid) Bounds() geom.AABB { return g.bounds }

// CellSize returns the edge length of one voxel.
func (g *Grid) CellSize() float32 { return g.cellSize }

func (g *Grid) index(ix, iy, iz int) int {
	return (iz*g.ny+iy)*g.nx + ix
}

// IsBlocked reports whether the cell at the given coordinates is
// impassable. Coordinates outside the grid count as blocked.
func (g *Grid) IsBlocked(ix, iy, iz int) bool {
	if ix < 0 || iy < 0 || iz < 0 || ix >= g.nx || iy >= g.ny || iz >= g.nz {
		return true
	}
	return g.blocked[g.index(ix, iy, iz)]
}

// WorldToCell maps a world position to cell coordinates. ok is false
// when the position lies outside the grid bounds.
func (g *Grid) WorldToCell(p mgl32.Vec3) (ix, iy, iz int, ok bool) {
	fx := (p.X() - g.bounds.Min.X()) / g.cellSize
	fy := (p.Y() - g.bounds.Min.Y()) / g.cellSize
	fz := (p.Z() - g.bounds.Min.Z()) / g.cellSize
	if fx < 0 || fy < 0 || fz < 0 {
		return 0, 0, 0, false
	}
	ix, iy, iz = int(fx), int(fy), int(fz)
	if ix >= g.nx || iy >= g.ny || iz >= g.nz {
		return 0, 0, 0, false
	}
	return ix, iy, iz, true
}

// CellCenter returns the world-space center of the given cell.
func (g *Grid) CellCenter(ix, iy, iz int) mgl32.Vec3 {
	return mgl32.Vec3{
		g.bounds.Min.X() + (float32(ix)+0.5)*g.cellSize,
		g.bounds.Min.Y() + (float32(iy)+0.5)*g.cellSize,
		g.bounds.Min.Z() + (float32(iz)+0.5)*g.cellSize,
	}
}

// BlockedCells returns the bounds of every blocked voxel, for debug
// rendering.
func (g *Grid) BlockedCells() []geom.AABB {
	var out []geom.AABB
	half := g.cellSize / 2
	for iz := 0; iz < g.nz; iz++ {
		for iy := 0; iy < g.ny; iy++ {
			for ix := 0; ix < g.nx; ix++ {
				if g.blocked[g.index(ix, iy, iz)] {
					c := g.CellCenter(ix, iy, iz)
					out = append(out, geom.AABBAround(c, half, half, half))
				}
			}
		}
	}
	return out
}

func maxi(a, b int) int {
	if a > b {
		return a
	}
	return b
}
