// Command bounce runs a headless physics demo: a box of circles under
// gravity, stepped for a fixed number of ticks with telemetry output.
package main

import (
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/impulse/collide"
	"github.com/pthm-cable/impulse/components"
	"github.com/pthm-cable/impulse/config"
	"github.com/pthm-cable/impulse/geom"
	"github.com/pthm-cable/impulse/sim"
	"github.com/pthm-cable/impulse/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	ticks := flag.Int("ticks", 600, "Number of ticks to simulate")
	bodies := flag.Int("bodies", 0, "Number of bodies (0 = use config)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs")
	logEvery := flag.Int("log-every", 60, "Log window stats every N ticks")

	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(rngSeed))

	n := cfg.Demo.Bodies
	if *bodies > 0 {
		n = *bodies
	}

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to open output", "error", err)
		os.Exit(1)
	}
	defer output.Close()

	s := sim.New(cfg).UseNarrowPhase(collide.PrimitiveNarrowPhase{})
	spawnWorld(s, cfg, rng, n)

	slog.Info("starting simulation", "bodies", n, "ticks", *ticks, "seed", rngSeed)

	gravity := r2.Vec{Y: -cfg.Demo.Gravity}
	for i := 0; i < *ticks; i++ {
		s.ApplyGravity(gravity)
		s.Step()

		if err := output.WriteTick(s.Collector().Last()); err != nil {
			slog.Error("telemetry write failed", "error", err)
			os.Exit(1)
		}
		if *logEvery > 0 && s.Tick()%int64(*logEvery) == 0 {
			s.Collector().LogWindow(s.Tick())
		}
	}

	ticksRun, contacts, dropped := s.Collector().Totals()
	slog.Info("simulation finished", "ticks", ticksRun, "contacts", contacts, "events_dropped", dropped)
}

// spawnWorld creates four immovable walls and n circles with random
// positions and velocities.
func spawnWorld(s *sim.Sim, cfg *config.Config, rng *rand.Rand, n int) {
	w, h := cfg.Demo.WorldWidth, cfg.Demo.WorldHeight
	wall := components.RigidBody{Restitution: cfg.Demo.Restitution, Friction: cfg.Demo.Friction}

	// Floor, ceiling, left and right walls.
	s.SpawnBody(r2.Vec{X: w / 2, Y: -1}, r2.Vec{}, geom.Rectangle{HalfWidth: w / 2, HalfHeight: 1}, 0, wall)
	s.SpawnBody(r2.Vec{X: w / 2, Y: h + 1}, r2.Vec{}, geom.Rectangle{HalfWidth: w / 2, HalfHeight: 1}, 0, wall)
	s.SpawnBody(r2.Vec{X: -1, Y: h / 2}, r2.Vec{}, geom.Rectangle{HalfWidth: 1, HalfHeight: h / 2}, 0, wall)
	s.SpawnBody(r2.Vec{X: w + 1, Y: h / 2}, r2.Vec{}, geom.Rectangle{HalfWidth: 1, HalfHeight: h / 2}, 0, wall)

	material := components.RigidBody{Restitution: cfg.Demo.Restitution, Friction: cfg.Demo.Friction}
	for i := 0; i < n; i++ {
		pos := r2.Vec{X: rng.Float64() * w, Y: rng.Float64() * h}
		vel := r2.Vec{
			X: (rng.Float64()*2 - 1) * cfg.Demo.MaxSpeed,
			Y: (rng.Float64()*2 - 1) * cfg.Demo.MaxSpeed,
		}
		s.SpawnBody(pos, vel, geom.Circle{Radius: cfg.Demo.BodyRadius}, cfg.Demo.BodyMass, material)
	}
}
