// Package systems provides ECS systems for the simulation.
package systems

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/parklife/components"
	"github.com/pthm-cable/parklife/geom"
)

// Queue describes one attraction entrance: where agents line up, where
// the door opens, and where they come back out.
type Queue struct {
	Waypoint mgl32.Vec3 // where queuing agents walk to; the door opens within a radius of it
	Exit     mgl32.Vec3 // respawn position after the visit
	ExitDir  mgl32.Vec3 // initial walking direction on respawn
}

// Scene holds the static world geometry supplied once at setup. Systems
// read it, never write it.
type Scene struct {
	Bounds     geom.AABB     // full world box, including the flight volume
	Obstacles  []geom.Circle // building footprints and keep-out rings on the ground
	Spheres    []geom.Sphere // 3D obstacle volumes for flyers and the nav grid
	PhotoSpots []mgl32.Vec3  // flower beds agents stop to photograph
	FlowPoints []mgl32.Vec3  // landmarks agents drift toward
	Queues     []Queue
}

// RenderHooks receives notifications for an external render collaborator.
// The simulation owns no render resources; it only signals.
type RenderHooks interface {
	// Attach is called when an agent enters a rendered tier, or moves
	// between rendered tiers.
	Attach(id uint32, tier components.Tier)
	// Detach is called when an agent leaves all rendered tiers.
	Detach(id uint32)
	// Gesture fires once per photo at the designated tick.
	Gesture(id uint32)
}

// NopHooks is a RenderHooks that does nothing, for headless runs.
type NopHooks struct{}

func (NopHooks) Attach(uint32, components.Tier) {}
func (NopHooks) Detach(uint32)                  {}
func (NopHooks) Gesture(uint32)                 {}
