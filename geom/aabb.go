// Package geom provides the minimal 2D geometry used by the collision core:
// axis-aligned bounding boxes and the collision primitives they are derived
// from. Vectors are gonum's spatial/r2 type throughout.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max r2.Vec
}

// NewAABB returns the box spanning the two corner points.
func NewAABB(minX, minY, maxX, maxY float64) AABB {
	return AABB{Min: r2.Vec{X: minX, Y: minY}, Max: r2.Vec{X: maxX, Y: maxY}}
}

// Union returns the smallest box containing both a and b.
func (a AABB) Union(b AABB) AABB {
	return AABB{
		Min: r2.Vec{X: math.Min(a.Min.X, b.Min.X), Y: math.Min(a.Min.Y, b.Min.Y)},
		Max: r2.Vec{X: math.Max(a.Max.X, b.Max.X), Y: math.Max(a.Max.Y, b.Max.Y)},
	}
}

// Overlaps reports whether the two boxes intersect, boundaries included.
func (a AABB) Overlaps(b AABB) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y
}

// Contains reports whether b lies entirely inside a.
func (a AABB) Contains(b AABB) bool {
	return a.Min.X <= b.Min.X && a.Min.Y <= b.Min.Y &&
		b.Max.X <= a.Max.X && b.Max.Y <= a.Max.Y
}

// SurfaceArea returns the box perimeter, the 2D analogue of surface area
// used by tree insertion heuristics.
func (a AABB) SurfaceArea() float64 {
	return 2 * ((a.Max.X - a.Min.X) + (a.Max.Y - a.Min.Y))
}

// Center returns the box midpoint.
func (a AABB) Center() r2.Vec {
	return r2.Scale(0.5, r2.Add(a.Min, a.Max))
}

// Fattened returns the box grown by margin on every side.
func (a AABB) Fattened(margin float64) AABB {
	m := r2.Vec{X: margin, Y: margin}
	return AABB{Min: r2.Sub(a.Min, m), Max: r2.Add(a.Max, m)}
}

// ContainsPoint reports whether p lies inside the box, boundaries included.
func (a AABB) ContainsPoint(p r2.Vec) bool {
	return a.Min.X <= p.X && p.X <= a.Max.X && a.Min.Y <= p.Y && p.Y <= a.Max.Y
}
