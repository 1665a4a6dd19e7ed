// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Spatial    SpatialConfig    `yaml:"spatial"`
	Surface    SurfaceConfig    `yaml:"surface"`
	Crowd      CrowdConfig      `yaml:"crowd"`
	States     StatesConfig     `yaml:"states"`
	Flyers     FlyersConfig     `yaml:"flyers"`
	Nav        NavConfig        `yaml:"nav"`
	LOD        LODConfig        `yaml:"lod"`
	Population PopulationConfig `yaml:"population"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the park's world-space bounds in meters.
type WorldConfig struct {
	MinX float64 `yaml:"min_x"`
	MinZ float64 `yaml:"min_z"`
	MaxX float64 `yaml:"max_x"`
	MaxZ float64 `yaml:"max_z"`
	MinY float64 `yaml:"min_y"` // vertical extent for flyers and the nav grid
	MaxY float64 `yaml:"max_y"`
}

// SpatialConfig holds octree parameters.
type SpatialConfig struct {
	MaxDepth    int     `yaml:"max_depth"`
	MinCellSize float64 `yaml:"min_cell_size"` // leaves never subdivide below this edge length
}

// SurfaceConfig holds walkable-surface sampling parameters.
type SurfaceConfig struct {
	GridCellSize  float64 `yaml:"grid_cell_size"`  // height-grid resolution; 0 disables the grid
	FootOffset    float64 `yaml:"foot_offset"`     // agent origin height above the surface
	MaxClampRings int     `yaml:"max_clamp_rings"` // search radius when pulling strays back on-surface
}

// CrowdConfig holds steering parameters shared by all ground agents.
type CrowdConfig struct {
	FlockRadius    float64 `yaml:"flock_radius"`
	MaxNeighbors   int     `yaml:"max_neighbors"`
	Separation     bool    `yaml:"separation"`
	Alignment      bool    `yaml:"alignment"`
	Cohesion       bool    `yaml:"cohesion"`
	SeparationWt   float64 `yaml:"separation_weight"`
	AlignmentWt    float64 `yaml:"alignment_weight"`
	CohesionWt     float64 `yaml:"cohesion_weight"`
	ArrivalRadius  float64 `yaml:"arrival_radius"`
	WanderStrength float64 `yaml:"wander_strength"`
	BoundaryMargin float64 `yaml:"boundary_margin"` // distance from the rim where the push-back starts
	BoundaryWt     float64 `yaml:"boundary_weight"`
	AvoidRadius    float64 `yaml:"avoid_radius"` // obstacle look-ahead distance
	AvoidWt        float64 `yaml:"avoid_weight"`
	MaxSpeed       float64 `yaml:"max_speed"`
	MaxForce       float64 `yaml:"max_force"`
	ReflectDamping float64 `yaml:"reflect_damping"` // velocity kept after bouncing off a surface edge
	PhysicsEvery   int     `yaml:"physics_every"`   // force integration runs every Nth tick
}

// StatesConfig holds the behavior state machine parameters. All timing
// values are in ticks.
type StatesConfig struct {
	SeekChance      float64 `yaml:"seek_chance"`       // per-tick probability of wander -> seek
	FlowChance      float64 `yaml:"flow_chance"`       // per-tick probability of wander -> flow
	QueueChance     float64 `yaml:"queue_chance"`      // per-tick probability of wander -> queue
	CaptureRadius   float64 `yaml:"capture_radius"`    // distance at which a sought target counts as reached
	TargetJitter    float64 `yaml:"target_jitter"`     // random offset applied to picked photo spots
	SnapGestureTick int     `yaml:"snap_gesture_tick"` // tick within the snap at which the gesture fires
	SnapEndTick     int     `yaml:"snap_end_tick"`     // snap duration; agent resumes wandering after this
	SnapCooldown    int     `yaml:"snap_cooldown"`     // minimum ticks between snaps per agent
	InsideTicks     int     `yaml:"inside_ticks"`      // dwell time inside an attraction
	DoorRadius      float64 `yaml:"door_radius"`
}

// FlyersConfig holds steering parameters for airborne agents.
type FlyersConfig struct {
	SeparationRadius float64 `yaml:"separation_radius"`
	SeparationWt     float64 `yaml:"separation_weight"`
	AvoidRadius      float64 `yaml:"avoid_radius"`
	AvoidWt          float64 `yaml:"avoid_weight"`
	ContainWt        float64 `yaml:"contain_weight"`
	ContainMargin    float64 `yaml:"contain_margin"`
	WanderRadius     float64 `yaml:"wander_radius"` // wander circle radius
	WanderJitter     float64 `yaml:"wander_jitter"`
	MaxSpeed         float64 `yaml:"max_speed"`
	MaxForce         float64 `yaml:"max_force"`
	HeadingSmoothing float64 `yaml:"heading_smoothing"` // exponential smoothing factor per tick
	BankSmoothing    float64 `yaml:"bank_smoothing"`
	MaxBank          float64 `yaml:"max_bank"` // radians
	RepathEvery      int     `yaml:"repath_every"`
}

// NavConfig holds voxel pathfinding parameters.
type NavConfig struct {
	CellSize      float64 `yaml:"cell_size"`
	MaxIterations int     `yaml:"max_iterations"`
	WaypointReach float64 `yaml:"waypoint_reach"`
	RebuildEvery  int     `yaml:"rebuild_every"` // grid rebuild interval in ticks; 0 disables
}

// LODConfig holds level-of-detail and work-skipping parameters.
type LODConfig struct {
	NearDistance   float64 `yaml:"near_distance"`
	MidDistance    float64 `yaml:"mid_distance"`
	IndexEpsilon   float64 `yaml:"index_epsilon"` // minimum movement before the spatial index is refreshed
	ResampleNear   int     `yaml:"resample_near"` // surface resample interval in ticks, near tier
	ResampleMid    int     `yaml:"resample_mid"`
	ResampleCulled int     `yaml:"resample_culled"`
}

// PopulationConfig holds spawn counts.
type PopulationConfig struct {
	Walkers int `yaml:"walkers"`
	Flyers  int `yaml:"flyers"`
}

// TelemetryConfig holds stats collection parameters.
type TelemetryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WindowSize int    `yaml:"window_size"` // ticks per aggregation window
	OutputDir  string `yaml:"output_dir"`
}

// DerivedConfig holds values computed from the loaded configuration.
type DerivedConfig struct {
	WorldWidth32  float32
	WorldDepth32  float32
	WorldHeight32 float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.WorldWidth32 = float32(c.World.MaxX - c.World.MinX)
	c.Derived.WorldDepth32 = float32(c.World.MaxZ - c.World.MinZ)
	c.Derived.WorldHeight32 = float32(c.World.MaxY - c.World.MinY)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
