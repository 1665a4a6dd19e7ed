// Package components defines ECS components for the simulation.
package components

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/parklife/nav"
	"github.com/pthm-cable/parklife/surface"
)

// State is the behavior state of a ground agent.
type State uint8

const (
	StateWander State = iota // default free roaming
	StateSeek                // walking toward a picked point of interest
	StateSnapping            // stopped, playing the photo gesture
	StateFlow                // drifting toward a flow point across the park
	StateQueuing             // walking toward an attraction door
	StateInside              // inside an attraction, not simulated
)

// String returns the display name for a State.
func (s State) String() string {
	names := StateNames()
	if int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// StateNames returns the display names for all states, in constant order.
func StateNames() []string {
	return []string{"Wander", "Seek", "Snapping", "Flow", "Queuing", "Inside"}
}

// StateCount returns the number of behavior states.
func StateCount() int {
	return len(StateNames())
}

// Tier is a level-of-detail bucket assigned by camera distance.
type Tier uint8

const (
	TierNear Tier = iota
	TierMid
	TierCulled
)

// Position is an entity's world position.
type Position struct {
	mgl32.Vec3
}

// Velocity is an entity's velocity in world units per tick.
type Velocity struct {
	mgl32.Vec3
}

// Walker holds per-agent state for ground agents.
type Walker struct {
	ID       uint32 // stable handle used by the spatial index and render hooks
	Radius   float32
	Height   float32
	MaxSpeed float32
	MaxForce float32

	State     State
	Target    mgl32.Vec3
	HasTarget bool

	// Snap timing, in absolute ticks
	SnapStart    int64
	GestureFired bool
	LastSnapEnd  int64

	// Queuing / inside
	QueueIndex  int
	RespawnTick int64

	// Spatial index bookkeeping
	Indexed     bool
	LastIndexed mgl32.Vec3

	// Surface query state
	Cache        surface.Cache
	SurfaceTick  int64 // tick of the last successful resample
	GroundHeight float32

	Tier Tier
}

// Flyer holds per-agent state for airborne agents.
type Flyer struct {
	ID       uint32
	MaxSpeed float32
	MaxForce float32

	Heading mgl32.Vec3 // smoothed facing direction, unit length
	Bank    float32    // roll angle in radians

	// Externally driven follow point; overrides path and wander while set
	Target    mgl32.Vec3
	HasTarget bool

	WanderAngle float32
	Path        nav.Path
	HasPath     bool
	RepathTick  int64

	Indexed     bool
	LastIndexed mgl32.Vec3
	Tier        Tier
}
