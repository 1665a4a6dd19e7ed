package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/parklife/camera"
	"github.com/pthm-cable/parklife/config"
	"github.com/pthm-cable/parklife/sim"
	"github.com/pthm-cable/parklife/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	if *outputDir != "" {
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.OutputDir = *outputDir
	}
	if *logStats {
		cfg.Telemetry.Enabled = true
	}

	scene, sampler, err := sim.DefaultScene(cfg)
	if err != nil {
		slog.Error("failed to build scene", "error", err)
		os.Exit(1)
	}

	world := sim.New(cfg, scene, sampler, nil, rngSeed)

	var output *telemetry.OutputManager
	if cfg.Telemetry.Enabled && cfg.Telemetry.OutputDir != "" {
		output, err = telemetry.NewOutputManager(cfg.Telemetry.OutputDir)
		if err != nil {
			slog.Error("failed to create output", "error", err)
			os.Exit(1)
		}
		defer output.Close()
		if err := output.WriteConfig(cfg); err != nil {
			slog.Error("failed to snapshot config", "error", err)
		}
	}
	world.SetOutput(output, *logStats)

	// Overview camera above the southern rim, looking at the middle of
	// the grounds. Its position drives LOD distances, its frustum the
	// visibility queries.
	center := mgl32.Vec3{
		float32((cfg.World.MinX + cfg.World.MaxX) / 2),
		0,
		float32((cfg.World.MinZ + cfg.World.MaxZ) / 2),
	}
	viewer := camera.New(mgl32.Vec3{
		center.X(),
		float32(cfg.World.MinY) + cfg.Derived.WorldHeight32,
		float32(cfg.World.MinZ) - cfg.Derived.WorldDepth32*0.25,
	}, center, 16.0/9.0)
	world.SetViewpoint(viewer.Position)

	world.Populate(cfg.Population.Walkers, cfg.Population.Flyers)

	slog.Info("starting simulation",
		"seed", rngSeed,
		"walkers", cfg.Population.Walkers,
		"flyers", cfg.Population.Flyers,
		"max_ticks", *maxTicks,
	)

	window := int64(cfg.Telemetry.WindowSize)
	for {
		world.Step()
		if *logStats && window > 0 && world.Tick()%window == 0 {
			slog.Info("visibility",
				"tick", world.Tick(),
				"visible", len(world.VisibleAgents(viewer.ViewProjection())),
			)
		}
		if *maxTicks > 0 && world.Tick() >= *maxTicks {
			slog.Info("max ticks reached", "tick", world.Tick())
			return
		}
	}
}
