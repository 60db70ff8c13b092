package systems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/impulse/collide"
	"github.com/pthm-cable/impulse/components"
)

func body(vel r2.Vec, invMass, restitution, friction float64) ResolveData {
	return ResolveData{
		Velocity:    components.Velocity{Linear: vel},
		InverseMass: invMass,
		Material:    components.RigidBody{Restitution: restitution, Friction: friction},
	}
}

func fullContact(normal r2.Vec, pen float64) collide.ContactSet {
	return collide.NewSingleContact(collide.Pair{}, normal, pen)
}

func TestResolveHeadOnInelastic(t *testing.T) {
	// Equal masses, zero restitution, approaching head-on: both bodies
	// end up at rest.
	a := body(r2.Vec{X: 2}, 1, 0, 0)
	b := body(r2.Vec{X: -2}, 1, 0, 0)
	set := fullContact(r2.Vec{X: 1}, 0.1)

	ca, cb := resolveLinearContact(set, a, b, SolverParams{})
	va := r2.Add(a.Velocity.Linear, ca.VelocityDelta)
	vb := r2.Add(b.Velocity.Linear, cb.VelocityDelta)
	if math.Abs(va.X) > 1e-9 || math.Abs(vb.X) > 1e-9 {
		t.Errorf("post velocities = %v, %v, want both zero", va, vb)
	}
}

func TestResolveElasticBounce(t *testing.T) {
	// Restitution 1 against an immovable body reflects the velocity.
	a := body(r2.Vec{X: 3}, 1, 1, 0)
	wall := body(r2.Vec{}, 0, 1, 0)
	set := fullContact(r2.Vec{X: 1}, 0.05)

	ca, cw := resolveLinearContact(set, a, wall, SolverParams{})
	va := r2.Add(a.Velocity.Linear, ca.VelocityDelta)
	if math.Abs(va.X+3) > 1e-9 {
		t.Errorf("post velocity = %v, want x = -3", va)
	}
	if !cw.IsZero() {
		t.Errorf("immovable body changed: %+v", cw)
	}
}

func TestResolveRestitutionMixing(t *testing.T) {
	// Unequal materials mix as the geometric mean: 1 and 0.25 give an
	// effective restitution of 0.5.
	a := body(r2.Vec{X: 2}, 1, 1, 0)
	wall := body(r2.Vec{}, 0, 0.25, 0)
	set := fullContact(r2.Vec{X: 1}, 0.05)

	ca, _ := resolveLinearContact(set, a, wall, SolverParams{})
	va := r2.Add(a.Velocity.Linear, ca.VelocityDelta)
	if math.Abs(va.X+1) > 1e-9 {
		t.Errorf("post velocity = %v, want x = -1", va)
	}

	// A perfectly inelastic material dominates the pair.
	dead := body(r2.Vec{}, 0, 0, 0)
	ca, _ = resolveLinearContact(set, a, dead, SolverParams{})
	va = r2.Add(a.Velocity.Linear, ca.VelocityDelta)
	if math.Abs(va.X) > 1e-9 {
		t.Errorf("post velocity = %v, want at rest", va)
	}
}

func TestResolveSeparating(t *testing.T) {
	// Bodies already moving apart receive no impulse, only positional
	// correction.
	a := body(r2.Vec{X: -1}, 1, 0.5, 0)
	b := body(r2.Vec{X: 1}, 1, 0.5, 0)
	set := fullContact(r2.Vec{X: 1}, 0.1)

	ca, cb := resolveLinearContact(set, a, b, SolverParams{})
	if ca.VelocityDelta != (r2.Vec{}) || cb.VelocityDelta != (r2.Vec{}) {
		t.Errorf("separating bodies got impulses: %+v, %+v", ca, cb)
	}
}

func TestResolvePositionalCorrection(t *testing.T) {
	a := body(r2.Vec{}, 1, 0, 0)
	b := body(r2.Vec{}, 1, 0, 0)
	set := fullContact(r2.Vec{X: 1}, 0.105)
	params := SolverParams{Slop: 0.005, CorrectionPercent: 0.4}

	ca, cb := resolveLinearContact(set, a, b, params)
	// 0.4 * (0.105 - 0.005) / 2 split equally by inverse mass.
	want := 0.02
	if math.Abs(ca.PositionDelta.X+want) > 1e-9 {
		t.Errorf("a position delta = %v, want %v", ca.PositionDelta.X, -want)
	}
	if math.Abs(cb.PositionDelta.X-want) > 1e-9 {
		t.Errorf("b position delta = %v, want %v", cb.PositionDelta.X, want)
	}

	// Penetration within slop corrects nothing.
	ca, cb = resolveLinearContact(fullContact(r2.Vec{X: 1}, 0.004), a, b, params)
	if !ca.IsZero() || !cb.IsZero() {
		t.Errorf("slop-deep contact produced changes: %+v, %+v", ca, cb)
	}
}

func TestResolveFriction(t *testing.T) {
	// Body sliding along the normal's tangent while closing loses
	// tangential speed, clamped by mu * normal impulse.
	a := body(r2.Vec{X: 1, Y: 4}, 1, 0, 0.25)
	b := body(r2.Vec{}, 0, 0, 0.25)
	set := fullContact(r2.Vec{X: 1}, 0.01)

	ca, _ := resolveLinearContact(set, a, b, SolverParams{})
	va := r2.Add(a.Velocity.Linear, ca.VelocityDelta)
	if math.Abs(va.X) > 1e-9 {
		t.Errorf("normal speed = %v, want 0", va.X)
	}
	// mu = sqrt(0.25*0.25) = 0.25, normal impulse j = 1, so the
	// tangential impulse is clamped at 0.25.
	if math.Abs(va.Y-3.75) > 1e-9 {
		t.Errorf("tangential speed = %v, want 3.75", va.Y)
	}
}

func TestResolveImmovablePair(t *testing.T) {
	a := body(r2.Vec{X: 1}, 0, 1, 1)
	b := body(r2.Vec{X: -1}, 0, 1, 1)
	ca, cb := resolveLinearContact(fullContact(r2.Vec{X: 1}, 1), a, b, SolverParams{Slop: 0.005, CorrectionPercent: 0.4})
	if !ca.IsZero() || !cb.IsZero() {
		t.Errorf("immovable pair changed: %+v, %+v", ca, cb)
	}
}

func TestResolveCollisionOnlyNoop(t *testing.T) {
	a := body(r2.Vec{X: 1}, 1, 1, 0)
	b := body(r2.Vec{X: -1}, 1, 1, 0)
	ca, cb := resolveLinearContact(collide.NewCollisionOnly(collide.Pair{}), a, b, SolverParams{CorrectionPercent: 1})
	if !ca.IsZero() || !cb.IsZero() {
		t.Errorf("detection-only contact changed bodies: %+v, %+v", ca, cb)
	}
}
