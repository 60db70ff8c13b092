package components

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/impulse/geom"
)

// CollisionShape pairs a collision primitive with its cached world-space
// bound. The bound is recomputed whenever the owning entity's pose changes;
// the collision systems only ever read it.
type CollisionShape struct {
	Primitive geom.Primitive
	bound     geom.AABB
}

// NewCollisionShape returns a shape with its bound computed for the given
// pose.
func NewCollisionShape(p geom.Primitive, pos r2.Vec, rot float64) CollisionShape {
	return CollisionShape{Primitive: p, bound: p.Bound(pos, rot)}
}

// Bound returns the cached world-space AABB.
func (s *CollisionShape) Bound() geom.AABB {
	return s.bound
}

// UpdateBound recomputes the cached bound for a new pose.
func (s *CollisionShape) UpdateBound(pos r2.Vec, rot float64) {
	s.bound = s.Primitive.Bound(pos, rot)
}
