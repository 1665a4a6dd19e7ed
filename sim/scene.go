package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/parklife/config"
	"github.com/pthm-cable/parklife/geom"
	"github.com/pthm-cable/parklife/surface"
	"github.com/pthm-cable/parklife/systems"
)

// DefaultScene builds the stock park layout inside the configured world
// bounds: a rolling lawn, a raised plaza with a connecting ramp, a flat
// meadow, two buildings with queues, and a handful of flower beds.
func DefaultScene(cfg *config.Config) (*systems.Scene, *surface.Sampler, error) {
	minX := float32(cfg.World.MinX)
	minZ := float32(cfg.World.MinZ)
	wdt := cfg.Derived.WorldWidth32
	dep := cfg.Derived.WorldDepth32

	// Rolling lawn over the western half.
	lawn, err := surface.NewBezierPatch("lawn", lawnControlGrid(minX, minZ, wdt*0.55, dep))
	if err != nil {
		return nil, nil, fmt.Errorf("building lawn: %w", err)
	}

	// Raised plaza in the north east.
	plazaRect := geom.Rect{
		MinX: minX + wdt*0.62, MinZ: minZ + dep*0.08,
		MaxX: minX + wdt*0.92, MaxZ: minZ + dep*0.40,
	}
	plaza, err := surface.NewDeck("plaza", plazaRect, 2, 2, 2, 2)
	if err != nil {
		return nil, nil, fmt.Errorf("building plaza: %w", err)
	}

	// Ramp from the lawn edge up to the plaza.
	rampStart := mgl32.Vec3{minX + wdt*0.55, 0, minZ + dep*0.24}
	rampEnd := mgl32.Vec3{plazaRect.MinX, 2, minZ + dep*0.24}
	ramp, err := surface.NewRamp("plaza-ramp", rampStart, rampEnd, 2)
	if err != nil {
		return nil, nil, fmt.Errorf("building ramp: %w", err)
	}

	// Flat meadow in the south east.
	meadow, err := surface.NewPolygon("meadow", []mgl32.Vec3{
		{minX + wdt*0.58, 0, minZ + dep*0.55},
		{minX + wdt*0.95, 0, minZ + dep*0.50},
		{minX + wdt*0.95, 0, minZ + dep*0.95},
		{minX + wdt*0.60, 0, minZ + dep*0.92},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building meadow: %w", err)
	}

	world := geom.Rect{
		MinX: minX, MinZ: minZ,
		MaxX: minX + wdt, MaxZ: minZ + dep,
	}
	sampler := surface.NewSampler(world, lawn, plaza, ramp, meadow)

	bounds := geom.NewAABB(
		mgl32.Vec3{minX, float32(cfg.World.MinY), minZ},
		mgl32.Vec3{minX + wdt, float32(cfg.World.MaxY), minZ + dep},
	)

	// Two attractions on the plaza, queues leading to their doors.
	teaHouse := mgl32.Vec3{plazaRect.MinX + 8, 2, plazaRect.MinZ + 8}
	pavilion := mgl32.Vec3{plazaRect.MaxX - 8, 2, plazaRect.MaxZ - 8}

	scene := &systems.Scene{
		Bounds: bounds,
		Obstacles: []geom.Circle{
			{X: teaHouse.X(), Z: teaHouse.Z(), Radius: 4},
			{X: pavilion.X(), Z: pavilion.Z(), Radius: 4},
			// Keep-out rings around the flower beds.
			{X: minX + wdt*0.20, Z: minZ + dep*0.30, Radius: 1.5},
			{X: minX + wdt*0.35, Z: minZ + dep*0.60, Radius: 1.5},
			{X: minX + wdt*0.72, Z: minZ + dep*0.75, Radius: 1.5},
		},
		Spheres: []geom.Sphere{
			{Center: mgl32.Vec3{teaHouse.X(), 6, teaHouse.Z()}, Radius: 6},
			{Center: mgl32.Vec3{pavilion.X(), 6, pavilion.Z()}, Radius: 6},
		},
		PhotoSpots: []mgl32.Vec3{
			{minX + wdt*0.20, 0, minZ + dep*0.30},
			{minX + wdt*0.35, 0, minZ + dep*0.60},
			{minX + wdt*0.72, 0, minZ + dep*0.75},
		},
		FlowPoints: []mgl32.Vec3{
			{minX + wdt*0.30, 0, minZ + dep*0.45},
			{plazaRect.MinX + 4, 2, plazaRect.MinZ + 16},
			{minX + wdt*0.75, 0, minZ + dep*0.70},
		},
		Queues: []systems.Queue{
			queueAt(teaHouse, mgl32.Vec3{0, 0, 1}),
			queueAt(pavilion, mgl32.Vec3{0, 0, -1}),
		},
	}
	return scene, sampler, nil
}

// queueAt lays a queue waypoint and exit around a building center, with
// the given outward direction at the exit.
func queueAt(center, outward mgl32.Vec3) systems.Queue {
	return systems.Queue{
		Waypoint: center.Add(outward.Mul(6)),
		Exit:     center.Add(outward.Mul(5.5)),
		ExitDir:  outward,
	}
}

// lawnControlGrid returns a 4x4 control grid with gentle hills over the
// given footprint.
func lawnControlGrid(minX, minZ, width, depth float32) []mgl32.Vec3 {
	heights := [16]float32{
		0, 0, 0, 0,
		0, 1.2, 0.8, 0,
		0, 0.6, 1.5, 0,
		0, 0, 0, 0,
	}
	pts := make([]mgl32.Vec3, 0, 16)
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			pts = append(pts, mgl32.Vec3{
				minX + float32(i)*width/3,
				heights[j*4+i],
				minZ + float32(j)*depth/3,
			})
		}
	}
	return pts
}
