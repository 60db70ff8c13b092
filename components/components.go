// Package components defines the ECS components consumed and produced by the
// collision and dynamics systems. All state lives here as plain structs; the
// systems hold no per-entity data of their own.
package components

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Pose is an entity's world transform. The dirty flag marks poses that
// changed since the last tick; it gates broad-phase requery work and is set
// by whoever moved the entity (the host, or frame promotion in the solver).
type Pose struct {
	Position r2.Vec
	Rotation float64 // radians
	Dirty    bool
}

// NewPose returns a dirty pose, so freshly spawned entities are picked up by
// the next broad phase pass.
func NewPose(pos r2.Vec, rot float64) Pose {
	return Pose{Position: pos, Rotation: rot, Dirty: true}
}

// Velocity is an entity's current-frame velocity. Angular is carried for
// hosts that integrate rotation themselves; the linear solver never touches
// it.
type Velocity struct {
	Linear  r2.Vec
	Angular float64
}

// NextFrame holds the predicted value of a component for the upcoming frame.
// The solver writes these and promotes them to the current frame exactly
// once per tick; nothing else reads them mid-tick.
type NextFrame[T any] struct {
	Value T
}

// Mass holds an entity's inverse mass. Zero inverse mass marks an immovable
// body: impulses and forces leave it untouched. InverseInertia is a
// placeholder for angular solvers and is unused here.
type Mass struct {
	InverseMass    float64
	InverseInertia float64
}

// NewMass returns the Mass component for a body weighing m. m must be
// positive; use Immovable for infinite mass.
func NewMass(m float64) Mass {
	return Mass{InverseMass: 1 / m}
}

// Immovable returns the Mass component of an infinite-mass body.
func Immovable() Mass {
	return Mass{}
}

// RigidBody holds the material parameters consulted during contact
// resolution.
type RigidBody struct {
	Restitution float64 // 0 = perfectly inelastic, 1 = perfectly elastic
	Friction    float64 // Coulomb friction coefficient
}

// ForceAccumulator collects external forces applied to an entity during a
// tick. The solver drains it to zero exactly once per tick when integrating.
type ForceAccumulator struct {
	Force  r2.Vec
	Torque float64 // unused by the linear solver, carried for hosts
}

// AddForce accumulates a force for the current tick.
func (f *ForceAccumulator) AddForce(force r2.Vec) {
	f.Force = r2.Add(f.Force, force)
}

// Consume returns the accumulated force and resets the accumulator.
func (f *ForceAccumulator) Consume() r2.Vec {
	force := f.Force
	f.Force = r2.Vec{}
	f.Torque = 0
	return force
}

// DeltaTime is the externally supplied tick duration, threaded into the
// solver by the host.
type DeltaTime struct {
	Seconds float64
}
