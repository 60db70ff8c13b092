package systems

import (
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/impulse/collide"
	"github.com/pthm-cable/impulse/components"
	"github.com/pthm-cable/impulse/events"
)

// LinearSolverSystem resolves contacts into impulses, promotes next-frame
// state to current, and integrates accumulated forces into the next frame.
// Linear quantities only; angular velocity and rotation pass through
// untouched.
//
// Per tick, strictly after the collision orchestrator:
//  1. drain new contact events (lossy if this consumer fell behind)
//  2. resolve each contact against next-frame state, creating next-frame
//     slots on demand
//  3. promote next-frame pose/velocity to current (exact copy)
//  4. integrate forces semi-implicitly: velocity first, then position from
//     the new velocity
type LinearSolverSystem struct {
	log    *events.Log[collide.ContactSet]
	reader events.ReaderID
	params SolverParams

	massMap    *ecs.Map[components.Mass]
	bodyMap    *ecs.Map[components.RigidBody]
	poseMap    *ecs.Map[components.Pose]
	velMap     *ecs.Map[components.Velocity]
	nextPose   *ecs.Map[components.NextFrame[components.Pose]]
	nextVel    *ecs.Map[components.NextFrame[components.Velocity]]
	promoteVel ecs.Filter2[components.Velocity, components.NextFrame[components.Velocity]]
	promotePos ecs.Filter2[components.Pose, components.NextFrame[components.Pose]]
	integrate  ecs.Filter3[components.NextFrame[components.Velocity], components.Mass, components.ForceAccumulator]
	advance    ecs.Filter3[components.NextFrame[components.Velocity], components.Pose, components.NextFrame[components.Pose]]

	eventsDropped uint64 // running total across ticks
}

// NewLinearSolverSystem creates a solver reading contacts from the given
// event log. The solver registers its own cursor, so it sees only events
// appended after construction.
func NewLinearSolverSystem(w *ecs.World, log *events.Log[collide.ContactSet], params SolverParams) *LinearSolverSystem {
	return &LinearSolverSystem{
		log:        log,
		reader:     log.Register(),
		params:     params,
		massMap:    ecs.NewMap[components.Mass](w),
		bodyMap:    ecs.NewMap[components.RigidBody](w),
		poseMap:    ecs.NewMap[components.Pose](w),
		velMap:     ecs.NewMap[components.Velocity](w),
		nextPose:   ecs.NewMap[components.NextFrame[components.Pose]](w),
		nextVel:    ecs.NewMap[components.NextFrame[components.Velocity]](w),
		promoteVel: *ecs.NewFilter2[components.Velocity, components.NextFrame[components.Velocity]](w),
		promotePos: *ecs.NewFilter2[components.Pose, components.NextFrame[components.Pose]](w),
		integrate:  *ecs.NewFilter3[components.NextFrame[components.Velocity], components.Mass, components.ForceAccumulator](w),
		advance:    *ecs.NewFilter3[components.NextFrame[components.Velocity], components.Pose, components.NextFrame[components.Pose]](w),
	}
}

// EventsDropped returns the total number of contact events this solver
// missed because its cursor lagged past the log's retention window.
func (s *LinearSolverSystem) EventsDropped() uint64 {
	return s.eventsDropped
}

// Update runs one solver tick.
func (s *LinearSolverSystem) Update(w *ecs.World, dt components.DeltaTime) {
	s.resolveContacts()
	s.promoteFrame()
	s.integrateForces(dt)
}

// resolveContacts drains the event stream and applies impulse resolution to
// every contacted body pair.
func (s *LinearSolverSystem) resolveContacts() {
	contacts, dropped := s.log.ReadLossy(s.reader)
	if dropped > 0 {
		s.eventsDropped += dropped
		slog.Warn("contact stream desync, events dropped", "dropped", dropped)
	}
	for _, set := range contacts {
		a := s.resolveData(set.Pair.A)
		b := s.resolveData(set.Pair.B)
		changeA, changeB := resolveLinearContact(set, a, b, s.params)
		s.applyChange(set.Pair.A, changeA)
		s.applyChange(set.Pair.B, changeB)
	}
}

// resolveData gathers a body's effective state: next-frame pose and velocity
// when present this tick, current otherwise. Contacted bodies must carry
// Mass and RigidBody; their absence means the host registered a collidable
// without dynamics, which cannot be resolved.
func (s *LinearSolverSystem) resolveData(e ecs.Entity) ResolveData {
	if !s.massMap.Has(e) || !s.bodyMap.Has(e) {
		panic(fmt.Sprintf("linear solver: contacted entity %d lacks mass or rigid body", e.ID()))
	}

	data := ResolveData{
		InverseMass: s.massMap.Get(e).InverseMass,
		Material:    *s.bodyMap.Get(e),
	}

	switch {
	case s.nextPose.Has(e):
		data.Pose = s.nextPose.Get(e).Value
	case s.poseMap.Has(e):
		data.Pose = *s.poseMap.Get(e)
	default:
		panic(fmt.Sprintf("linear solver: contacted entity %d lacks a pose", e.ID()))
	}

	switch {
	case s.nextVel.Has(e):
		data.Velocity = s.nextVel.Get(e).Value
	case s.velMap.Has(e):
		data.Velocity = *s.velMap.Get(e)
	}
	return data
}

// applyChange writes the change set into the body's next-frame slots,
// creating them from current state when absent.
func (s *LinearSolverSystem) applyChange(e ecs.Entity, change ChangeSet) {
	if change.IsZero() {
		return
	}

	if !s.nextVel.Has(e) {
		seed := components.NextFrame[components.Velocity]{}
		if s.velMap.Has(e) {
			seed.Value = *s.velMap.Get(e)
		}
		s.nextVel.Add(e, &seed)
	}
	nv := s.nextVel.Get(e)
	nv.Value.Linear = r2.Add(nv.Value.Linear, change.VelocityDelta)

	if change.PositionDelta != (r2.Vec{}) {
		if !s.nextPose.Has(e) {
			seed := components.NextFrame[components.Pose]{}
			if s.poseMap.Has(e) {
				seed.Value = *s.poseMap.Get(e)
			}
			s.nextPose.Add(e, &seed)
		}
		np := s.nextPose.Get(e)
		np.Value.Position = r2.Add(np.Value.Position, change.PositionDelta)
	}
}

// promoteFrame copies next-frame values into the current frame. Exact copy,
// no interpolation. Promoted poses that actually moved are flagged dirty so
// the next broad phase pass requeries them.
func (s *LinearSolverSystem) promoteFrame() {
	query := s.promotePos.Query()
	for query.Next() {
		pose, next := query.Get()
		moved := pose.Position != next.Value.Position || pose.Rotation != next.Value.Rotation
		pose.Position = next.Value.Position
		pose.Rotation = next.Value.Rotation
		if moved {
			pose.Dirty = true
		}
	}

	vquery := s.promoteVel.Query()
	for vquery.Next() {
		vel, next := vquery.Get()
		*vel = next.Value
	}
}

// integrateForces is semi-implicit Euler: accumulated force becomes
// acceleration into next-frame velocity, then next-frame position advances
// by the new velocity. The force accumulator is drained exactly once here.
func (s *LinearSolverSystem) integrateForces(dt components.DeltaTime) {
	query := s.integrate.Query()
	for query.Next() {
		next, mass, force := query.Get()
		accel := r2.Scale(mass.InverseMass, force.Consume())
		next.Value.Linear = r2.Add(next.Value.Linear, r2.Scale(dt.Seconds, accel))
	}

	aquery := s.advance.Query()
	for aquery.Next() {
		nextVel, pose, nextPose := aquery.Get()
		nextPose.Value.Position = r2.Add(pose.Position, r2.Scale(dt.Seconds, nextVel.Value.Linear))
		// Rotation carries through unchanged; no angular integration.
		nextPose.Value.Rotation = pose.Rotation
	}
}
