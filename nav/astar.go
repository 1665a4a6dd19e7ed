package nav

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const defaultMaxIterations = 2000

// neighbor offsets for 26-connected movement, with the step cost in
// cell units (sqrt of the number of axes moved).
var neighbors = buildNeighbors()

type neighborStep struct {
	dx, dy, dz int
	cost       float32
}

func buildNeighbors() []neighborStep {
	steps := make([]neighborStep, 0, 26)
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				axes := absi(dx) + absi(dy) + absi(dz)
				steps = append(steps, neighborStep{dx, dy, dz, float32(math.Sqrt(float64(axes)))})
			}
		}
	}
	return steps
}

// PathFinder plans paths over a voxel grid with 26-connected A*. The
// open list is a plain slice scanned linearly for the lowest f score.
type PathFinder struct {
	grid    *Grid
	maxIter int

	// scratch buffers, reused across searches
	gScore []float32
	parent []int32
	state  []uint8 // 0 unseen, 1 open, 2 closed

	// running totals since the last TakeSearchStats
	searches   int
	iterations int
}

// NewPathFinder creates a planner over the given grid. maxIter caps the
// number of node expansions per search; <=0 selects the default.
func NewPathFinder(grid *Grid, maxIter int) *PathFinder {
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	n := grid.nx * grid.ny * grid.nz
	return &PathFinder{
		grid:    grid,
		maxIter: maxIter,
		gScore:  make([]float32, n),
		parent:  make([]int32, n),
		state:   make([]uint8, n),
	}
}

// SetGrid swaps in a rebuilt grid, resizing the scratch buffers.
func (p *PathFinder) SetGrid(grid *Grid) {
	p.grid = grid
	n := grid.nx * grid.ny * grid.nz
	if cap(p.gScore) < n {
		p.gScore = make([]float32, n)
		p.parent = make([]int32, n)
		p.state = make([]uint8, n)
	} else {
		p.gScore = p.gScore[:n]
		p.parent = p.parent[:n]
		p.state = p.state[:n]
	}
}

// FindPath plans a waypoint path from start to goal. Degraded cases:
// a blocked or out-of-bounds start returns nil, a blocked goal or an
// exhausted search returns the goal as a single waypoint so the caller
// can steer straight at it.
func (p *PathFinder) FindPath(start, goal mgl32.Vec3) []mgl32.Vec3 {
	p.searches++
	g := p.grid
	sx, sy, sz, ok := g.WorldToCell(start)
	if !ok || g.IsBlocked(sx, sy, sz) {
		return nil
	}
	gx, gy, gz, ok := g.WorldToCell(goal)
	if !ok || g.IsBlocked(gx, gy, gz) {
		return []mgl32.Vec3{goal}
	}
	if sx == gx && sy == gy && sz == gz {
		return []mgl32.Vec3{goal}
	}

	for i := range p.state {
		p.state[i] = 0
	}
	startIdx := g.index(sx, sy, sz)
	goalIdx := g.index(gx, gy, gz)
	p.gScore[startIdx] = 0
	p.parent[startIdx] = -1
	p.state[startIdx] = 1
	open := []int32{int32(startIdx)}

	for iter := 0; iter < p.maxIter && len(open) > 0; iter++ {
		p.iterations++
		// Pick the open node with the lowest f by linear scan.
		best := 0
		bestF := p.fScore(int(open[0]), gx, gy, gz)
		for i := 1; i < len(open); i++ {
			if f := p.fScore(int(open[i]), gx, gy, gz); f < bestF {
				best = i
				bestF = f
			}
		}
		cur := int(open[best])
		open[best] = open[len(open)-1]
		open = open[:len(open)-1]
		p.state[cur] = 2

		if cur == goalIdx {
			return p.reconstruct(cur, goal)
		}

		cx, cy, cz := p.cellCoords(cur)
		for _, n := range neighbors {
			nx, ny, nz := cx+n.dx, cy+n.dy, cz+n.dz
			if g.IsBlocked(nx, ny, nz) {
				continue
			}
			idx := g.index(nx, ny, nz)
			if p.state[idx] == 2 {
				continue
			}
			tentative := p.gScore[cur] + n.cost*g.cellSize
			if p.state[idx] == 1 && tentative >= p.gScore[idx] {
				continue
			}
			p.gScore[idx] = tentative
			p.parent[idx] = int32(cur)
			if p.state[idx] != 1 {
				p.state[idx] = 1
				open = append(open, int32(idx))
			}
		}
	}

	// Cap hit or goal unreachable: degrade to a straight-line target.
	return []mgl32.Vec3{goal}
}

// TakeSearchStats returns and resets the number of searches and node
// expansions since the last call.
func (p *PathFinder) TakeSearchStats() (searches, iterations int) {
	searches, iterations = p.searches, p.iterations
	p.searches = 0
	p.iterations = 0
	return searches, iterations
}

func (p *PathFinder) cellCoords(idx int) (ix, iy, iz int) {
	ix = idx % p.grid.nx
	iy = (idx / p.grid.nx) % p.grid.ny
	iz = idx / (p.grid.nx * p.grid.ny)
	return ix, iy, iz
}

func (p *PathFinder) fScore(idx, gx, gy, gz int) float32 {
	ix, iy, iz := p.cellCoords(idx)
	dx := float32(gx - ix)
	dy := float32(gy - iy)
	dz := float32(gz - iz)
	h := float32(math.Sqrt(float64(dx*dx+dy*dy+dz*dz))) * p.grid.cellSize
	return p.gScore[idx] + h
}

// reconstruct walks the parent chain back to the start and emits cell
// centers, replacing the final waypoint with the exact goal position.
func (p *PathFinder) reconstruct(idx int, goal mgl32.Vec3) []mgl32.Vec3 {
	var rev []int
	for cur := idx; cur != -1; cur = int(p.parent[cur]) {
		rev = append(rev, cur)
	}
	// rev runs goal..start; drop the start cell.
	out := make([]mgl32.Vec3, 0, len(rev)-1)
	for i := len(rev) - 2; i >= 0; i-- {
		ix, iy, iz := p.cellCoords(rev[i])
		out = append(out, p.grid.CellCenter(ix, iy, iz))
	}
	out[len(out)-1] = goal
	return out
}

// Path is a waypoint sequence with a progress cursor.
type Path struct {
	Waypoints []mgl32.Vec3
	Index     int
}

// Done reports whether every waypoint has been consumed.
func (p *Path) Done() bool { return p.Index >= len(p.Waypoints) }

// Current returns the active waypoint.
func (p *Path) Current() (mgl32.Vec3, bool) {
	if p.Done() {
		return mgl32.Vec3{}, false
	}
	return p.Waypoints[p.Index], true
}

// Advance moves the cursor past every waypoint within reach of pos.
func (p *Path) Advance(pos mgl32.Vec3, reach float32) {
	for !p.Done() {
		d := p.Waypoints[p.Index].Sub(pos)
		if d.Dot(d) > reach*reach {
			return
		}
		p.Index++
	}
}

func absi(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
