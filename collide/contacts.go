// Package collide provides the spatial collision pipeline: a dynamic
// bounding-volume tree over entity bounds, pluggable broad and narrow phases,
// and the contact records they produce.
package collide

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// CollisionStrategy tags how much contact detail a ContactSet carries.
type CollisionStrategy uint8

const (
	// CollisionOnly reports that two entities collide, with no manifold
	// data. Produced when no narrow phase is configured.
	CollisionOnly CollisionStrategy = iota
	// FullResolution carries a contact normal and penetration depth
	// suitable for impulse resolution.
	FullResolution
)

func (s CollisionStrategy) String() string {
	switch s {
	case CollisionOnly:
		return "collision-only"
	case FullResolution:
		return "full-resolution"
	default:
		return "unknown"
	}
}

// Pair is a canonicalized candidate pair: the entity with the lower ID is
// always A. Ordering is used only for dedup, it carries no meaning.
type Pair struct {
	A, B ecs.Entity
}

// NewPair returns the canonical pair for two entities.
func NewPair(a, b ecs.Entity) Pair {
	if b.ID() < a.ID() {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Less orders pairs lexicographically by entity ID, matching the ordered
// insert the default broad phase uses for dedup.
func (p Pair) Less(q Pair) bool {
	if p.A.ID() != q.A.ID() {
		return p.A.ID() < q.A.ID()
	}
	return p.B.ID() < q.B.ID()
}

// Contact is a single contact point of a manifold.
type Contact struct {
	// Normal points from the pair's first entity toward the second.
	Normal r2.Vec
	// Penetration is the overlap depth along the normal.
	Penetration float64
}

// ContactSet records one detected collision between a pair of entities.
// ContactSets double as the event-stream transport form.
type ContactSet struct {
	Pair     Pair
	Strategy CollisionStrategy
	Contacts []Contact
}

// NewCollisionOnly returns a detection-only contact record with no manifold.
func NewCollisionOnly(p Pair) ContactSet {
	return ContactSet{Pair: p, Strategy: CollisionOnly}
}

// NewSingleContact returns a full-resolution record with one contact point.
func NewSingleContact(p Pair, normal r2.Vec, penetration float64) ContactSet {
	return ContactSet{
		Pair:     p,
		Strategy: FullResolution,
		Contacts: []Contact{{Normal: normal, Penetration: penetration}},
	}
}

// Contacts is the per-tick contact output buffer. The orchestrator clears
// and refills it every tick; downstream systems read it for the remainder of
// the tick.
type Contacts struct {
	sets []ContactSet
}

// Clear empties the buffer, keeping capacity.
func (c *Contacts) Clear() {
	c.sets = c.sets[:0]
}

// Push appends a contact record.
func (c *Contacts) Push(cs ContactSet) {
	c.sets = append(c.sets, cs)
}

// All returns the records detected this tick. The slice is valid until the
// next Clear.
func (c *Contacts) All() []ContactSet {
	return c.sets
}

// Len returns the number of records detected this tick.
func (c *Contacts) Len() int {
	return len(c.sets)
}
