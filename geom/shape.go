package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Primitive is a collision primitive that can project its bounding box under
// a world transform. Exact intersection between primitives is handled by the
// narrow phase; primitives themselves only know their extent.
type Primitive interface {
	// Bound returns the world-space AABB of the primitive placed at pos
	// with the given rotation (radians).
	Bound(pos r2.Vec, rot float64) AABB
}

// Circle is a circle primitive centered on the owning entity's position.
type Circle struct {
	Radius float64
}

// Bound returns the circle's world-space AABB. Rotation has no effect.
func (c Circle) Bound(pos r2.Vec, _ float64) AABB {
	r := r2.Vec{X: c.Radius, Y: c.Radius}
	return AABB{Min: r2.Sub(pos, r), Max: r2.Add(pos, r)}
}

// Rectangle is a box primitive given by half-extents, centered on the owning
// entity's position and rotated with it.
type Rectangle struct {
	HalfWidth, HalfHeight float64
}

// Bound returns the AABB of the rotated rectangle.
func (r Rectangle) Bound(pos r2.Vec, rot float64) AABB {
	c := math.Abs(math.Cos(rot))
	s := math.Abs(math.Sin(rot))
	ext := r2.Vec{
		X: r.HalfWidth*c + r.HalfHeight*s,
		Y: r.HalfWidth*s + r.HalfHeight*c,
	}
	return AABB{Min: r2.Sub(pos, ext), Max: r2.Add(pos, ext)}
}
