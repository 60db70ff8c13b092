// Package sim is the host-side harness for the physics core: it owns the
// ECS world, the shared tick resources (bounds tree, contact buffer, event
// stream, delta time), and runs the collision and solver systems in order
// once per Step. It stands in for the scheduler a real host engine would
// provide, threading every shared resource explicitly.
package sim

import (
	"time"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/impulse/collide"
	"github.com/pthm-cable/impulse/components"
	"github.com/pthm-cable/impulse/config"
	"github.com/pthm-cable/impulse/events"
	"github.com/pthm-cable/impulse/geom"
	"github.com/pthm-cable/impulse/systems"
	"github.com/pthm-cable/impulse/telemetry"
)

// Sim ties the physics systems to an ark world.
type Sim struct {
	world *ecs.World

	bodyMapper *ecs.Map8[
		components.Pose,
		components.Velocity,
		components.NextFrame[components.Pose],
		components.NextFrame[components.Velocity],
		components.CollisionShape,
		components.Mass,
		components.RigidBody,
		components.ForceAccumulator,
	]
	boundFilter ecs.Filter2[components.Pose, components.CollisionShape]
	gravFilter  ecs.Filter2[components.Mass, components.ForceAccumulator]

	poseMap  *ecs.Map[components.Pose]
	velMap   *ecs.Map[components.Velocity]
	shapeMap *ecs.Map[components.CollisionShape]
	forceMap *ecs.Map[components.ForceAccumulator]
	nextPose *ecs.Map[components.NextFrame[components.Pose]]
	nextVel  *ecs.Map[components.NextFrame[components.Velocity]]

	tree     *collide.BoundsTree
	contacts *collide.Contacts
	stream   *events.Log[collide.ContactSet]
	dt       components.DeltaTime

	collision *systems.SpatialCollisionSystem
	solver    *systems.LinearSolverSystem
	collector *telemetry.Collector

	tick        int64
	lastDropped uint64 // solver drop total at the previous tick
}

// New creates a simulation from the given configuration.
func New(cfg *config.Config) *Sim {
	world := ecs.NewWorld()

	s := &Sim{
		world: world,
		bodyMapper: ecs.NewMap8[
			components.Pose,
			components.Velocity,
			components.NextFrame[components.Pose],
			components.NextFrame[components.Velocity],
			components.CollisionShape,
			components.Mass,
			components.RigidBody,
			components.ForceAccumulator,
		](world),
		boundFilter: *ecs.NewFilter2[components.Pose, components.CollisionShape](world),
		gravFilter:  *ecs.NewFilter2[components.Mass, components.ForceAccumulator](world),
		poseMap:     ecs.NewMap[components.Pose](world),
		velMap:      ecs.NewMap[components.Velocity](world),
		shapeMap:    ecs.NewMap[components.CollisionShape](world),
		forceMap:    ecs.NewMap[components.ForceAccumulator](world),
		nextPose:    ecs.NewMap[components.NextFrame[components.Pose]](world),
		nextVel:     ecs.NewMap[components.NextFrame[components.Velocity]](world),
		tree:        collide.NewBoundsTree(cfg.Tree.FatMargin),
		contacts:    &collide.Contacts{},
		stream:      events.NewLog[collide.ContactSet](cfg.Stream.Capacity),
		dt:          components.DeltaTime{Seconds: cfg.Tick.DT},
		collector:   telemetry.NewCollector(60),
	}

	s.collision = systems.NewSpatialCollisionSystem(world, s.tree, s.contacts, s.stream)
	s.solver = systems.NewLinearSolverSystem(world, s.stream, systems.SolverParams{
		Slop:              cfg.Solver.Slop,
		CorrectionPercent: cfg.Solver.CorrectionPercent,
	})
	return s
}

// UseNarrowPhase configures exact intersection testing for the orchestrator.
func (s *Sim) UseNarrowPhase(n collide.NarrowPhase) *Sim {
	s.collision.WithNarrowPhase(n)
	return s
}

// UseBroadPhase overrides the default tree-driven broad phase.
func (s *Sim) UseBroadPhase(b collide.BroadPhase) *Sim {
	s.collision.WithBroadPhase(b)
	return s
}

// World exposes the underlying ECS world.
func (s *Sim) World() *ecs.World {
	return s.world
}

// Contacts returns this tick's contact output buffer.
func (s *Sim) Contacts() *collide.Contacts {
	return s.contacts
}

// Stream returns the contact event log, for additional consumers.
func (s *Sim) Stream() *events.Log[collide.ContactSet] {
	return s.stream
}

// Collector returns the telemetry collector.
func (s *Sim) Collector() *telemetry.Collector {
	return s.collector
}

// Tick returns the number of completed steps.
func (s *Sim) Tick() int64 {
	return s.tick
}

// SpawnBody creates a dynamic body with double-buffered pose and velocity,
// so the solver integrates it from the first tick. A non-positive mass
// spawns an immovable body.
func (s *Sim) SpawnBody(pos, vel r2.Vec, prim geom.Primitive, mass float64, material components.RigidBody) ecs.Entity {
	pose := components.NewPose(pos, 0)
	velocity := components.Velocity{Linear: vel}
	nextPose := components.NextFrame[components.Pose]{Value: pose}
	nextVel := components.NextFrame[components.Velocity]{Value: velocity}
	shape := components.NewCollisionShape(prim, pos, 0)
	m := components.Immovable()
	if mass > 0 {
		m = components.NewMass(mass)
	}
	force := components.ForceAccumulator{}
	return s.bodyMapper.NewEntity(&pose, &velocity, &nextPose, &nextVel, &shape, &m, &material, &force)
}

// RemoveBody drops a body from the world and the spatial index.
func (s *Sim) RemoveBody(e ecs.Entity) {
	s.tree.Remove(e)
	s.bodyMapper.Remove(e)
}

// MoveBody teleports a body, flagging its pose dirty and refreshing its
// cached bound. The next-frame pose is rewritten too, so the pending frame
// does not undo the teleport at the next promotion.
func (s *Sim) MoveBody(e ecs.Entity, pos r2.Vec, rot float64) {
	pose := s.poseMap.Get(e)
	pose.Position = pos
	pose.Rotation = rot
	pose.Dirty = true
	if s.nextPose.Has(e) {
		np := s.nextPose.Get(e)
		np.Value.Position = pos
		np.Value.Rotation = rot
	}
	s.shapeMap.Get(e).UpdateBound(pos, rot)
}

// SetVelocity overwrites a body's current and pending velocity.
func (s *Sim) SetVelocity(e ecs.Entity, v r2.Vec) {
	s.velMap.Get(e).Linear = v
	if s.nextVel.Has(e) {
		s.nextVel.Get(e).Value.Linear = v
	}
}

// ApplyForce accumulates an external force on a body for this tick.
func (s *Sim) ApplyForce(e ecs.Entity, force r2.Vec) {
	s.forceMap.Get(e).AddForce(force)
}

// ApplyGravity accumulates a uniform acceleration on every movable body.
func (s *Sim) ApplyGravity(accel r2.Vec) {
	query := s.gravFilter.Query()
	for query.Next() {
		mass, force := query.Get()
		if mass.InverseMass == 0 {
			continue
		}
		force.AddForce(r2.Scale(1/mass.InverseMass, accel))
	}
}

// Velocity returns a body's current-frame velocity.
func (s *Sim) Velocity(e ecs.Entity) components.Velocity {
	return *s.velMap.Get(e)
}

// Pose returns a body's current-frame pose.
func (s *Sim) Pose(e ecs.Entity) components.Pose {
	return *s.poseMap.Get(e)
}

// Step runs one full tick: collision detection, then the dynamics solver,
// then the bound refresh an external geometry collaborator would perform for
// every pose the solver moved.
func (s *Sim) Step() {
	start := time.Now()
	s.collision.Update(s.world)
	collisionDur := time.Since(start)

	solverStart := time.Now()
	s.solver.Update(s.world, s.dt)
	solverDur := time.Since(solverStart)

	s.refreshBounds()
	s.tick++

	dropped := s.solver.EventsDropped()
	s.collector.Record(telemetry.TickStats{
		Tick:          s.tick,
		PairsTested:   s.collision.PairsTested(),
		Contacts:      s.contacts.Len(),
		EventsDropped: int64(dropped - s.lastDropped),
		CollisionUS:   collisionDur.Microseconds(),
		SolverUS:      solverDur.Microseconds(),
	})
	s.lastDropped = dropped
}

// refreshBounds recomputes cached shape bounds for poses the solver dirtied
// during promotion, keeping bounds authoritative for the next tick.
func (s *Sim) refreshBounds() {
	query := s.boundFilter.Query()
	for query.Next() {
		pose, shape := query.Get()
		if pose.Dirty {
			shape.UpdateBound(pose.Position, pose.Rotation)
		}
	}
}
