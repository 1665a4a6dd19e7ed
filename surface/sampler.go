package surface

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/parklife/geom"
)

// Info is the result of a combined surface query.
type Info struct {
	Inside bool
	Height float32
	// Region is the region that answered, when the slow path ran. The
	// height-grid fast path leaves it nil.
	Region Region
}

// Cache is a per-agent query cache. Agents move little between ticks, so
// the region that answered last time almost always answers again. The
// cache is only updated on positive results: a stale "outside" answer
// must never stick.
type Cache struct {
	cell   int
	region Region
	valid  bool
}

// Sampler unifies an ordered list of walkable regions behind one query
// interface, with an optional precomputed height grid as an O(1) fast
// path over the fully covered interior.
type Sampler struct {
	regions []Region
	world   geom.Rect
	grid    *heightGrid
}

// heightGrid stores heights sampled at regular grid nodes. NaN marks a
// node with no walkable surface under it.
type heightGrid struct {
	rect     geom.Rect
	cellSize float32
	nx, nz   int // node counts per axis
	heights  []float32
}

// NewSampler creates a combined sampler over the given world bounds.
func NewSampler(world geom.Rect, regions ...Region) *Sampler {
	return &Sampler{regions: regions, world: world}
}

// Regions returns the region list in scan order.
func (s *Sampler) Regions() []Region { return s.regions }

// World returns the world bounds used for boundary queries.
func (s *Sampler) World() geom.Rect { return s.world }

// BuildHeightGrid precomputes the accelerated height field at the given
// cell size. Call once at setup; queries work without it, just slower.
func (s *Sampler) BuildHeightGrid(cellSize float32) {
	nx := int(s.world.Width()/cellSize) + 2
	nz := int(s.world.Depth()/cellSize) + 2
	g := &heightGrid{
		rect:     s.world,
		cellSize: cellSize,
		nx:       nx,
		nz:       nz,
		heights:  make([]float32, nx*nz),
	}
	nan := float32(math.NaN())
	for iz := 0; iz < nz; iz++ {
		for ix := 0; ix < nx; ix++ {
			x := s.world.MinX + float32(ix)*cellSize
			z := s.world.MinZ + float32(iz)*cellSize
			g.heights[iz*nx+ix] = nan
			for _, r := range s.regions {
				if h, ok := r.HeightAt(x, z); ok {
					g.heights[iz*nx+ix] = h
					break
				}
			}
		}
	}
	s.grid = g
}

// Sample answers the walkability query at (x,z). cache may be nil; when
// given it is consulted before the region scan and refreshed on positive
// results.
func (s *Sampler) Sample(x, z float32, cache *Cache) Info {
	if s.grid != nil {
		if info, ok := s.grid.sample(x, z); ok {
			return info
		}
	}
	return s.scan(x, z, cache)
}

// sample tries the bilinear fast path. ok is false when the point is off
// the grid or any of the four surrounding nodes is invalid, in which
// case the caller must fall back to the region scan.
func (g *heightGrid) sample(x, z float32) (Info, bool) {
	fx := (x - g.rect.MinX) / g.cellSize
	fz := (z - g.rect.MinZ) / g.cellSize
	ix := int(fx)
	iz := int(fz)
	if fx < 0 || fz < 0 || ix >= g.nx-1 || iz >= g.nz-1 {
		return Info{}, false
	}
	h00 := g.heights[iz*g.nx+ix]
	h10 := g.heights[iz*g.nx+ix+1]
	h01 := g.heights[(iz+1)*g.nx+ix]
	h11 := g.heights[(iz+1)*g.nx+ix+1]
	if isNaN32(h00) || isNaN32(h10) || isNaN32(h01) || isNaN32(h11) {
		return Info{}, false
	}
	tx := fx - float32(ix)
	tz := fz - float32(iz)
	h0 := h00 + (h10-h00)*tx
	h1 := h01 + (h11-h01)*tx
	return Info{Inside: true, Height: h0 + (h1-h0)*tz}, true
}

// scan walks the region list, preferring the region that answered the
// previous query from the same cell.
func (s *Sampler) scan(x, z float32, cache *Cache) Info {
	cell := s.cellIndex(x, z)
	if cache != nil && cache.valid && cache.cell == cell && cache.region != nil {
		if h, ok := cache.region.HeightAt(x, z); ok {
			return Info{Inside: true, Height: h, Region: cache.region}
		}
	}
	for _, r := range s.regions {
		if cache != nil && cache.valid && r == cache.region && cache.cell == cell {
			continue // already tried above
		}
		if h, ok := r.HeightAt(x, z); ok {
			if cache != nil {
				cache.cell = cell
				cache.region = r
				cache.valid = true
			}
			return Info{Inside: true, Height: h, Region: r}
		}
	}
	return Info{}
}

// cellIndex quantizes a position for cache keying.
func (s *Sampler) cellIndex(x, z float32) int {
	cs := float32(2)
	if s.grid != nil {
		cs = s.grid.cellSize
	}
	ix := int((x - s.world.MinX) / cs)
	iz := int((z - s.world.MinZ) / cs)
	cols := int(s.world.Width()/cs) + 1
	return iz*cols + ix
}

// RandomPoint picks a region uniformly at random and samples a point on
// it. Returns false when the sampler has no regions.
func (s *Sampler) RandomPoint(rng *rand.Rand) (mgl32.Vec3, bool) {
	if len(s.regions) == 0 {
		return mgl32.Vec3{}, false
	}
	r := s.regions[rng.Intn(len(s.regions))]
	return r.RandomPoint(rng), true
}

// NearestWalkable clamps an off-surface position to the closest walkable
// height-grid node, searching outward ring by ring up to maxRings. When
// no grid was built it falls back to a direct containment test.
func (s *Sampler) NearestWalkable(x, z float32, maxRings int) (mgl32.Vec3, bool) {
	if info := s.Sample(x, z, nil); info.Inside {
		return mgl32.Vec3{x, info.Height, z}, true
	}
	g := s.grid
	if g == nil {
		return mgl32.Vec3{}, false
	}
	cx := int((x - g.rect.MinX) / g.cellSize)
	cz := int((z - g.rect.MinZ) / g.cellSize)

	bestDist := float32(math.MaxFloat32)
	var best mgl32.Vec3
	found := false
	for ring := 1; ring <= maxRings; ring++ {
		for dz := -ring; dz <= ring; dz++ {
			for dx := -ring; dx <= ring; dx++ {
				if absInt(dx) != ring && absInt(dz) != ring {
					continue // perimeter only
				}
				ix := cx + dx
				iz := cz + dz
				if ix < 0 || iz < 0 || ix >= g.nx || iz >= g.nz {
					continue
				}
				h := g.heights[iz*g.nx+ix]
				if isNaN32(h) {
					continue
				}
				nx := g.rect.MinX + float32(ix)*g.cellSize
				nz := g.rect.MinZ + float32(iz)*g.cellSize
				ddx := nx - x
				ddz := nz - z
				d := ddx*ddx + ddz*ddz
				if d < bestDist {
					bestDist = d
					best = mgl32.Vec3{nx, h, nz}
					found = true
				}
			}
		}
		if found {
			return best, true
		}
	}
	return mgl32.Vec3{}, false
}

// BoundaryInfo reports the signed distance from (x,z) to the nearest
// world edge (positive inside) and the outward normal of that edge, used
// to push agents back from the map rim.
func (s *Sampler) BoundaryInfo(x, z float32) (dist float32, normal mgl32.Vec3) {
	dist = x - s.world.MinX
	normal = mgl32.Vec3{-1, 0, 0}
	if d := s.world.MaxX - x; d < dist {
		dist = d
		normal = mgl32.Vec3{1, 0, 0}
	}
	if d := z - s.world.MinZ; d < dist {
		dist = d
		normal = mgl32.Vec3{0, 0, -1}
	}
	if d := s.world.MaxZ - z; d < dist {
		dist = d
		normal = mgl32.Vec3{0, 0, 1}
	}
	return dist, normal
}

func isNaN32(v float32) bool { return v != v }

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
