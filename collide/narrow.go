package collide

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/impulse/components"
	"github.com/pthm-cable/impulse/geom"
)

// Collider is one side of a narrow phase test: an entity with its exact
// shape and pose.
type Collider struct {
	Entity ecs.Entity
	Shape  *components.CollisionShape
	Pose   *components.Pose
}

// NarrowPhase decides true intersection for a candidate pair and produces a
// contact manifold. Returning false is the normal non-intersection outcome,
// not an error. A nil NarrowPhase is a valid configuration: the orchestrator
// then runs in detection-only mode.
type NarrowPhase interface {
	Collide(left, right Collider) (ContactSet, bool)
}

// PrimitiveNarrowPhase performs exact intersection tests between the geom
// primitives (circles and rectangles), producing a single-point manifold
// with normal and penetration depth.
type PrimitiveNarrowPhase struct{}

// Collide dispatches on the primitive types of both colliders. The returned
// normal points from left toward right.
func (PrimitiveNarrowPhase) Collide(left, right Collider) (ContactSet, bool) {
	pair := NewPair(left.Entity, right.Entity)
	// Canonical order may swap the sides; keep the normal pointing from
	// pair.A toward pair.B.
	a, b := left, right
	if pair.A != left.Entity {
		a, b = right, left
	}

	normal, depth, hit := collidePrimitives(
		a.Shape.Primitive, a.Pose.Position, a.Pose.Rotation,
		b.Shape.Primitive, b.Pose.Position, b.Pose.Rotation,
	)
	if !hit {
		return ContactSet{}, false
	}
	return NewSingleContact(pair, normal, depth), true
}

func collidePrimitives(pa geom.Primitive, posA r2.Vec, rotA float64, pb geom.Primitive, posB r2.Vec, rotB float64) (r2.Vec, float64, bool) {
	switch sa := pa.(type) {
	case geom.Circle:
		switch sb := pb.(type) {
		case geom.Circle:
			return circleCircle(sa, posA, sb, posB)
		case geom.Rectangle:
			n, d, ok := circleRect(sa, posA, sb, posB, rotB)
			return n, d, ok
		}
	case geom.Rectangle:
		switch sb := pb.(type) {
		case geom.Circle:
			n, d, ok := circleRect(sb, posB, sa, posA, rotA)
			// Flip: circleRect's normal points circle->rect.
			return r2.Scale(-1, n), d, ok
		case geom.Rectangle:
			return rectRect(sa, posA, rotA, sb, posB, rotB)
		}
	}
	return r2.Vec{}, 0, false
}

// circleCircle returns the normal from a toward b and the overlap depth.
func circleCircle(a geom.Circle, posA r2.Vec, b geom.Circle, posB r2.Vec) (r2.Vec, float64, bool) {
	delta := r2.Sub(posB, posA)
	dist := r2.Norm(delta)
	sum := a.Radius + b.Radius
	if dist >= sum {
		return r2.Vec{}, 0, false
	}
	if dist == 0 {
		// Coincident centers; pick an arbitrary separation axis.
		return r2.Vec{X: 1}, sum, true
	}
	return r2.Scale(1/dist, delta), sum - dist, true
}

// circleRect tests a circle against a rotated rectangle. The returned normal
// points from the circle toward the rectangle.
func circleRect(c geom.Circle, posC r2.Vec, r geom.Rectangle, posR r2.Vec, rotR float64) (r2.Vec, float64, bool) {
	// Bring the circle center into the rectangle's local frame.
	local := rotate(r2.Sub(posC, posR), -rotR)
	clamped := r2.Vec{
		X: clamp(local.X, -r.HalfWidth, r.HalfWidth),
		Y: clamp(local.Y, -r.HalfHeight, r.HalfHeight),
	}
	delta := r2.Sub(clamped, local)
	dist := r2.Norm(delta)

	if dist == 0 {
		// Center inside the rectangle: push out along the closest face.
		dx := r.HalfWidth - math.Abs(local.X)
		dy := r.HalfHeight - math.Abs(local.Y)
		var n r2.Vec
		var depth float64
		if dx < dy {
			n = r2.Vec{X: -math.Copysign(1, local.X)}
			depth = dx + c.Radius
		} else {
			n = r2.Vec{Y: -math.Copysign(1, local.Y)}
			depth = dy + c.Radius
		}
		return rotate(n, rotR), depth, true
	}
	if dist >= c.Radius {
		return r2.Vec{}, 0, false
	}
	return rotate(r2.Scale(1/dist, delta), rotR), c.Radius - dist, true
}

// rectRect runs a SAT test over the face axes of both rectangles, returning
// the least-overlap axis as the normal from a toward b.
func rectRect(a geom.Rectangle, posA r2.Vec, rotA float64, b geom.Rectangle, posB r2.Vec, rotB float64) (r2.Vec, float64, bool) {
	axes := [4]r2.Vec{
		rotate(r2.Vec{X: 1}, rotA),
		rotate(r2.Vec{Y: 1}, rotA),
		rotate(r2.Vec{X: 1}, rotB),
		rotate(r2.Vec{Y: 1}, rotB),
	}
	delta := r2.Sub(posB, posA)

	bestDepth := math.Inf(1)
	var bestAxis r2.Vec
	for _, axis := range axes {
		ra := projectRect(a, rotA, axis)
		rb := projectRect(b, rotB, axis)
		sep := math.Abs(r2.Dot(delta, axis))
		overlap := ra + rb - sep
		if overlap <= 0 {
			return r2.Vec{}, 0, false
		}
		if overlap < bestDepth {
			bestDepth = overlap
			bestAxis = axis
		}
	}
	// Orient the normal from a toward b.
	if r2.Dot(delta, bestAxis) < 0 {
		bestAxis = r2.Scale(-1, bestAxis)
	}
	return bestAxis, bestDepth, true
}

// projectRect returns the half-length of the rectangle's projection onto the
// unit axis.
func projectRect(r geom.Rectangle, rot float64, axis r2.Vec) float64 {
	ex := rotate(r2.Vec{X: r.HalfWidth}, rot)
	ey := rotate(r2.Vec{Y: r.HalfHeight}, rot)
	return math.Abs(r2.Dot(ex, axis)) + math.Abs(r2.Dot(ey, axis))
}

func rotate(v r2.Vec, angle float64) r2.Vec {
	c, s := math.Cos(angle), math.Sin(angle)
	return r2.Vec{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
