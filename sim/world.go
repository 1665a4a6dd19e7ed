// Package sim wires the spatial index, surface sampler, pathfinder and
// agent systems into a single tick-driven world.
package sim

import (
	"log/slog"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/parklife/components"
	"github.com/pthm-cable/parklife/config"
	"github.com/pthm-cable/parklife/geom"
	"github.com/pthm-cable/parklife/nav"
	"github.com/pthm-cable/parklife/spatial"
	"github.com/pthm-cable/parklife/surface"
	"github.com/pthm-cable/parklife/systems"
	"github.com/pthm-cable/parklife/telemetry"
)

// groundClearance is the vertical margin above walkable surfaces that
// the flight nav grid treats as blocked.
const groundClearance = 2.0

// World owns all simulation state and advances it one fixed tick at a
// time. Single-threaded; all systems share one rng stream, so runs with
// the same seed and scene are reproducible.
type World struct {
	cfg   *config.Config
	world *ecs.World
	rng   *rand.Rand
	tick  int64

	scene   *systems.Scene
	sampler *surface.Sampler
	tree    *spatial.Octree
	grid    *nav.Grid
	planner *nav.PathFinder
	reg     *systems.EntityIndex

	walkerMapper *ecs.Map3[components.Position, components.Velocity, components.Walker]
	flyerMapper  *ecs.Map3[components.Position, components.Velocity, components.Flyer]
	walkerFilter *ecs.Filter3[components.Position, components.Velocity, components.Walker]
	flyerFilter  *ecs.Filter3[components.Position, components.Velocity, components.Flyer]

	index    *systems.IndexSystem
	states   *systems.StateSystem
	steering *systems.SteeringSystem
	flight   *systems.FlightSystem
	lod      *systems.LODSystem

	collector *telemetry.Collector
	output    *telemetry.OutputManager
	logStats  bool

	walkerEntities []ecs.Entity
	flyerEntities  []ecs.Entity
	nextID         uint32
}

// New creates a world over the given scene and sampler. hooks may be
// nil for headless runs.
func New(cfg *config.Config, scene *systems.Scene, sampler *surface.Sampler, hooks systems.RenderHooks, seed int64) *World {
	if hooks == nil {
		hooks = systems.NopHooks{}
	}
	world := ecs.NewWorld()
	rng := rand.New(rand.NewSource(seed))

	w := &World{
		cfg:     cfg,
		world:   world,
		rng:     rng,
		scene:   scene,
		sampler: sampler,
		reg:     systems.NewEntityIndex(),
		walkerMapper: ecs.NewMap3[
			components.Position,
			components.Velocity,
			components.Walker,
		](world),
		flyerMapper: ecs.NewMap3[
			components.Position,
			components.Velocity,
			components.Flyer,
		](world),
		walkerFilter: ecs.NewFilter3[
			components.Position,
			components.Velocity,
			components.Walker,
		](world),
		flyerFilter: ecs.NewFilter3[
			components.Position,
			components.Velocity,
			components.Flyer,
		](world),
	}

	w.tree = spatial.NewOctree(scene.Bounds, cfg.Spatial.MaxDepth, float32(cfg.Spatial.MinCellSize))
	if cfg.Surface.GridCellSize > 0 {
		sampler.BuildHeightGrid(float32(cfg.Surface.GridCellSize))
	}
	w.rebuildNav()

	w.index = systems.NewIndexSystem(world, w.tree, float32(cfg.LOD.IndexEpsilon))
	w.states = systems.NewStateSystem(world, cfg, scene, sampler, hooks, rng)
	w.steering = systems.NewSteeringSystem(world, cfg, w.tree, w.reg, scene, sampler, rng)
	w.flight = systems.NewFlightSystem(world, cfg, w.tree, w.reg, scene, w.planner, rng)
	w.lod = systems.NewLODSystem(world, cfg, hooks)

	if cfg.Telemetry.Enabled {
		w.collector = telemetry.NewCollector(int64(cfg.Telemetry.WindowSize))
	}
	return w
}

// rebuildNav rasterizes the flight nav grid from the current scene. The
// blocked predicate keeps flyers clear of walkable surfaces and the low
// band of the world where no surface exists.
func (w *World) rebuildNav() {
	minY := float32(w.cfg.World.MinY)
	isBlocked := func(p mgl32.Vec3) bool {
		if info := w.sampler.Sample(p.X(), p.Z(), nil); info.Inside {
			return p.Y() < info.Height+groundClearance
		}
		return p.Y() < minY+groundClearance
	}
	w.grid = nav.BuildGrid(w.scene.Bounds, float32(w.cfg.Nav.CellSize), isBlocked, w.scene.Spheres)
	if w.planner == nil {
		w.planner = nav.NewPathFinder(w.grid, w.cfg.Nav.MaxIterations)
	} else {
		w.planner.SetGrid(w.grid)
	}
}

// Tick returns the current tick counter.
func (w *World) Tick() int64 { return w.tick }

// SetViewpoint moves the LOD reference point.
func (w *World) SetViewpoint(p mgl32.Vec3) { w.lod.SetViewpoint(p) }

// SetOutput attaches CSV output for telemetry windows. logStats also
// mirrors each window to the log.
func (w *World) SetOutput(out *telemetry.OutputManager, logStats bool) {
	w.output = out
	w.logStats = logStats
}

// Step advances the simulation by one tick.
func (w *World) Step() {
	t := w.tick
	w.index.Update(w.world)
	w.states.Update(w.world, t)
	w.steering.Update(w.world, t)
	w.flight.Update(w.world, t)
	w.lod.Update(w.world)

	if w.collector != nil && w.collector.Due(t) {
		w.flushWindow(t)
	}
	if every := int64(w.cfg.Nav.RebuildEvery); every > 0 && t > 0 && t%every == 0 {
		w.rebuildNav()
	}
	w.tick++
}

// Run advances the simulation by n ticks.
func (w *World) Run(n int64) {
	for i := int64(0); i < n; i++ {
		w.Step()
	}
}

// flushWindow closes the current telemetry window.
func (w *World) flushWindow(tick int64) {
	counts := make([]int, components.StateCount())
	var tiers [3]int
	var speeds []float64

	query := w.walkerFilter.Query()
	for query.Next() {
		_, vel, wk := query.Get()
		counts[wk.State]++
		tiers[wk.Tier]++
		if wk.State != components.StateInside {
			speeds = append(speeds, float64(vel.Len()))
		}
	}
	flyers := 0
	fq := w.flyerFilter.Query()
	for fq.Next() {
		_, _, fl := fq.Get()
		tiers[fl.Tier]++
		flyers++
	}

	// Fold the per-system event counters into the collector.
	for i := w.states.TakeGestures(); i > 0; i-- {
		w.collector.CountGesture()
	}
	for i := w.states.TakeVisits(); i > 0; i-- {
		w.collector.CountVisit()
	}
	w.collector.AddSearches(w.planner.TakeSearchStats())

	stats := w.collector.EndWindow(tick, counts, tiers, flyers, speeds)
	if w.logStats {
		stats.LogStats()
	}
	if err := w.output.WriteTelemetry(stats); err != nil {
		slog.Error("telemetry write failed", "error", err)
	}
}

// Populate spawns the initial crowd at random walkable positions and
// flyers at random points in the flight volume.
func (w *World) Populate(walkers, flyers int) {
	for i := 0; i < walkers; i++ {
		w.spawnWalker()
	}
	for i := 0; i < flyers; i++ {
		w.spawnFlyer()
	}
}

// Resize grows or shrinks the crowd to the requested sizes. Shrinking
// removes the most recently spawned agents first.
func (w *World) Resize(walkers, flyers int) {
	for len(w.walkerEntities) < walkers {
		w.spawnWalker()
	}
	for len(w.walkerEntities) > walkers {
		w.removeLastWalker()
	}
	for len(w.flyerEntities) < flyers {
		w.spawnFlyer()
	}
	for len(w.flyerEntities) > flyers {
		w.removeLastFlyer()
	}
}

// WalkerCount returns the number of ground agents, including those
// inside attractions.
func (w *World) WalkerCount() int { return len(w.walkerEntities) }

// FlyerCount returns the number of airborne agents.
func (w *World) FlyerCount() int { return len(w.flyerEntities) }

func (w *World) spawnWalker() ecs.Entity {
	id := w.nextID
	w.nextID++

	p, ok := w.sampler.RandomPoint(w.rng)
	if !ok {
		p = w.scene.Bounds.Center()
	}
	cr := w.cfg.Crowd
	pos := components.Position{Vec3: mgl32.Vec3{p.X(), p.Y() + float32(w.cfg.Surface.FootOffset), p.Z()}}
	vel := components.Velocity{}
	wk := components.Walker{
		ID:           id,
		Radius:       0.35,
		Height:       1.8,
		MaxSpeed:     float32(cr.MaxSpeed),
		MaxForce:     float32(cr.MaxForce),
		State:        components.StateWander,
		LastSnapEnd:  -int64(w.cfg.States.SnapCooldown),
		GroundHeight: p.Y(),
		Tier:         components.TierCulled,
	}

	e := w.walkerMapper.NewEntity(&pos, &vel, &wk)
	w.reg.Register(id, e)
	w.walkerEntities = append(w.walkerEntities, e)
	return e
}

func (w *World) spawnFlyer() ecs.Entity {
	id := w.nextID
	w.nextID++

	min := w.scene.Bounds.Min
	size := w.scene.Bounds.Size()
	fl := w.cfg.Flyers
	pos := components.Position{Vec3: mgl32.Vec3{
		min.X() + w.rng.Float32()*size.X(),
		min.Y() + size.Y()*0.5 + w.rng.Float32()*size.Y()*0.4,
		min.Z() + w.rng.Float32()*size.Z(),
	}}
	vel := components.Velocity{}
	f := components.Flyer{
		ID:          id,
		MaxSpeed:    float32(fl.MaxSpeed),
		MaxForce:    float32(fl.MaxForce),
		Heading:     mgl32.Vec3{1, 0, 0},
		WanderAngle: w.rng.Float32() * 2 * 3.14159265,
		RepathTick:  -int64(w.rng.Intn(fl.RepathEvery + 1)),
		Tier:        components.TierCulled,
	}

	e := w.flyerMapper.NewEntity(&pos, &vel, &f)
	w.reg.Register(id, e)
	w.flyerEntities = append(w.flyerEntities, e)
	return e
}

func (w *World) removeLastWalker() {
	e := w.walkerEntities[len(w.walkerEntities)-1]
	w.walkerEntities = w.walkerEntities[:len(w.walkerEntities)-1]
	_, _, wk := w.walkerMapper.Get(e)
	if wk.Indexed {
		w.tree.Remove(wk.ID)
	}
	w.reg.Unregister(wk.ID)
	w.walkerMapper.Remove(e)
}

func (w *World) removeLastFlyer() {
	e := w.flyerEntities[len(w.flyerEntities)-1]
	w.flyerEntities = w.flyerEntities[:len(w.flyerEntities)-1]
	_, _, fl := w.flyerMapper.Get(e)
	if fl.Indexed {
		w.tree.Remove(fl.ID)
	}
	w.reg.Unregister(fl.ID)
	w.flyerMapper.Remove(e)
}

// SetFlyerTarget pins a flyer to a follow point, overriding its path
// and wander behavior until cleared. Reports whether the id resolved to
// a flyer.
func (w *World) SetFlyerTarget(id uint32, target mgl32.Vec3) bool {
	return w.flight.SetTarget(id, target)
}

// ClearFlyerTarget releases a pinned flyer.
func (w *World) ClearFlyerTarget(id uint32) { w.flight.ClearTarget(id) }

// EachWalker calls fn for every ground agent, including those inside
// attractions.
func (w *World) EachWalker(fn func(pos, vel mgl32.Vec3, wk *components.Walker)) {
	query := w.walkerFilter.Query()
	for query.Next() {
		p, v, wk := query.Get()
		fn(p.Vec3, v.Vec3, wk)
	}
}

// EachFlyer calls fn for every airborne agent.
func (w *World) EachFlyer(fn func(pos, vel mgl32.Vec3, fl *components.Flyer)) {
	query := w.flyerFilter.Query()
	for query.Next() {
		p, v, fl := query.Get()
		fn(p.Vec3, v.Vec3, fl)
	}
}

// QuerySphere returns the ids of indexed agents whose bounds intersect
// the given sphere's enclosing box.
func (w *World) QuerySphere(s geom.Sphere) []uint32 {
	box := geom.AABBAround(s.Center, s.Radius, s.Radius, s.Radius)
	entries := w.tree.QueryBounds(box)
	ids := make([]uint32, 0, len(entries))
	for _, e := range entries {
		if !containsID(ids, e.ID) {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// VisibleAgents returns the ids of indexed agents inside the view
// frustum extracted from the given view-projection matrix.
func (w *World) VisibleAgents(viewProjection mgl32.Mat4) []uint32 {
	frustum := geom.FrustumFromMatrix(viewProjection)
	entries := w.tree.QueryFrustum(frustum)
	ids := make([]uint32, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// DebugOctreeCells returns the bounds of every octree node, for debug
// rendering. Computed on request only.
func (w *World) DebugOctreeCells() []geom.AABB { return w.tree.Cells() }

// DebugNavCells returns the bounds of every blocked nav voxel, for
// debug rendering. Computed on request only.
func (w *World) DebugNavCells() []geom.AABB { return w.grid.BlockedCells() }

func containsID(ids []uint32, id uint32) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
