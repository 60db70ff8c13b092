package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/impulse/collide"
	"github.com/pthm-cable/impulse/components"
)

// SolverParams tunes contact resolution. Zero values are valid and disable
// positional correction.
type SolverParams struct {
	// Slop is the penetration depth tolerated before positional
	// correction kicks in.
	Slop float64
	// CorrectionPercent is the fraction of the remaining penetration
	// corrected per tick.
	CorrectionPercent float64
}

// ResolveData is one body's effective state going into contact resolution:
// next-frame values when they exist this tick, current values otherwise.
type ResolveData struct {
	Velocity    components.Velocity
	Pose        components.Pose
	InverseMass float64
	Material    components.RigidBody
}

// ChangeSet is the state delta contact resolution computed for one body.
type ChangeSet struct {
	VelocityDelta r2.Vec
	PositionDelta r2.Vec
}

// IsZero reports whether the change set would leave the body untouched.
func (c ChangeSet) IsZero() bool {
	return c.VelocityDelta == (r2.Vec{}) && c.PositionDelta == (r2.Vec{})
}

// resolveLinearContact computes impulse-based change sets for both bodies of
// a contact. The contact normal points from body a toward body b. Bodies
// with zero inverse mass receive zero change; if both are immovable nothing
// happens.
func resolveLinearContact(set collide.ContactSet, a, b ResolveData, params SolverParams) (ChangeSet, ChangeSet) {
	if set.Strategy == collide.CollisionOnly || len(set.Contacts) == 0 {
		return ChangeSet{}, ChangeSet{}
	}
	totalInv := a.InverseMass + b.InverseMass
	if totalInv == 0 {
		return ChangeSet{}, ChangeSet{}
	}

	contact := set.Contacts[0]
	n := contact.Normal

	var changeA, changeB ChangeSet

	// Closing speed along the normal; positive means a moves into b.
	relVel := r2.Sub(a.Velocity.Linear, b.Velocity.Linear)
	closing := r2.Dot(relVel, n)
	if closing > 0 {
		// Materials mix geometrically, like friction below.
		e := math.Sqrt(a.Material.Restitution * b.Material.Restitution)
		j := (1 + e) * closing / totalInv
		changeA.VelocityDelta = r2.Scale(-j*a.InverseMass, n)
		changeB.VelocityDelta = r2.Scale(j*b.InverseMass, n)

		// Coulomb friction against the tangential relative velocity,
		// clamped by the normal impulse.
		tangential := r2.Sub(relVel, r2.Scale(closing, n))
		if t := r2.Norm(tangential); t > 1e-12 {
			tHat := r2.Scale(1/t, tangential)
			jt := t / totalInv
			mu := math.Sqrt(a.Material.Friction * b.Material.Friction)
			if jt > mu*j {
				jt = mu * j
			}
			changeA.VelocityDelta = r2.Add(changeA.VelocityDelta, r2.Scale(-jt*a.InverseMass, tHat))
			changeB.VelocityDelta = r2.Add(changeB.VelocityDelta, r2.Scale(jt*b.InverseMass, tHat))
		}
	}

	// Positional correction pushes overlapping bodies apart in proportion
	// to their inverse masses.
	if pen := contact.Penetration - params.Slop; pen > 0 && params.CorrectionPercent > 0 {
		corr := params.CorrectionPercent * pen / totalInv
		changeA.PositionDelta = r2.Scale(-corr*a.InverseMass, n)
		changeB.PositionDelta = r2.Scale(corr*b.InverseMass, n)
	}

	return changeA, changeB
}
