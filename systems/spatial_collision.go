// Package systems provides the two per-tick ECS systems of the physics
// core: spatial collision detection and the linear dynamics solver. The host
// runs them in that order, exactly once per tick, single-threaded.
package systems

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/impulse/collide"
	"github.com/pthm-cable/impulse/components"
	"github.com/pthm-cable/impulse/events"
)

// SpatialCollisionSystem detects colliding entity pairs once per tick and
// publishes them to the contact buffer and the contact event log.
//
// Without an injected broad phase it runs a bounding-volume-tree broad phase
// that only issues queries for entities whose pose is dirty, O(m log^2 n) in
// the number m of dirty shapes. Settled bodies are still discoverable
// through the tree, they just never initiate queries themselves. Without a
// narrow phase every candidate pair is reported as CollisionOnly.
type SpatialCollisionSystem struct {
	broad  collide.BroadPhase
	narrow collide.NarrowPhase

	tree     *collide.BoundsTree
	contacts *collide.Contacts
	log      *events.Log[collide.ContactSet]

	filter   ecs.Filter2[components.Pose, components.CollisionShape]
	poseMap  *ecs.Map[components.Pose]
	shapeMap *ecs.Map[components.CollisionShape]

	pairs    []collide.Pair
	snapshot []collide.EntityBound

	pairsTested int // candidate count of the last run
}

// NewSpatialCollisionSystem creates an orchestrator with no broad or narrow
// phase configured: the default tree-driven broad phase and detection-only
// contacts.
func NewSpatialCollisionSystem(w *ecs.World, tree *collide.BoundsTree, contacts *collide.Contacts, log *events.Log[collide.ContactSet]) *SpatialCollisionSystem {
	return &SpatialCollisionSystem{
		tree:     tree,
		contacts: contacts,
		log:      log,
		filter:   *ecs.NewFilter2[components.Pose, components.CollisionShape](w),
		poseMap:  ecs.NewMap[components.Pose](w),
		shapeMap: ecs.NewMap[components.CollisionShape](w),
	}
}

// WithBroadPhase overrides the default tree-driven broad phase.
func (s *SpatialCollisionSystem) WithBroadPhase(b collide.BroadPhase) *SpatialCollisionSystem {
	s.broad = b
	return s
}

// WithNarrowPhase configures exact intersection testing.
func (s *SpatialCollisionSystem) WithNarrowPhase(n collide.NarrowPhase) *SpatialCollisionSystem {
	s.narrow = n
	return s
}

// PairsTested returns the candidate pair count of the last Update.
func (s *SpatialCollisionSystem) PairsTested() int {
	return s.pairsTested
}

// Update runs one tick of collision detection.
func (s *SpatialCollisionSystem) Update(w *ecs.World) {
	s.contacts.Clear()
	s.syncTree()

	if s.broad != nil {
		s.pairs = s.broad.ComputePairs(s.boundSnapshot())
	} else {
		s.pairs = s.defaultBroadPhase()
	}
	// Keep the tree consistent for the next tick regardless of which
	// broad phase ran.
	s.tree.Reindex()
	s.clearDirtyFlags()

	s.pairsTested = len(s.pairs)
	for _, pair := range s.pairs {
		s.testPair(pair)
	}
}

// syncTree registers shapes the tree has not seen and records moved bounds
// for everything dirty. The external collaborator keeps CollisionShape
// bounds current with the pose, so the cached bound is authoritative here.
func (s *SpatialCollisionSystem) syncTree() {
	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		pose, shape := query.Get()
		if !s.tree.Contains(entity) {
			s.tree.Insert(entity, shape.Bound())
		} else if pose.Dirty {
			s.tree.Update(entity, shape.Bound())
		}
	}
}

// defaultBroadPhase queries the tree for every dirty entity and accumulates
// canonical pairs through ordered dedup insertion. Non-dirty vs non-dirty
// pairs are never re-examined; the reindexed tree already reflects their
// bounds.
func (s *SpatialCollisionSystem) defaultBroadPhase() []collide.Pair {
	pairs := s.pairs[:0]
	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		pose, shape := query.Get()
		if !pose.Dirty {
			continue
		}
		s.tree.Query(shape.Bound(), func(other ecs.Entity) {
			if other != entity {
				pairs = collide.InsertPair(pairs, collide.NewPair(entity, other))
			}
		})
	}
	return pairs
}

// boundSnapshot collects the full current bound set for an injected broad
// phase; overridden strategies see everything, not just dirty entities.
func (s *SpatialCollisionSystem) boundSnapshot() []collide.EntityBound {
	s.snapshot = s.snapshot[:0]
	query := s.filter.Query()
	for query.Next() {
		entity := query.Entity()
		_, shape := query.Get()
		s.snapshot = append(s.snapshot, collide.EntityBound{Entity: entity, Bound: shape.Bound()})
	}
	return s.snapshot
}

func (s *SpatialCollisionSystem) clearDirtyFlags() {
	query := s.filter.Query()
	for query.Next() {
		pose, _ := query.Get()
		pose.Dirty = false
	}
}

// testPair runs the narrow phase for one candidate pair, or emits a
// CollisionOnly record when none is configured. Candidates can only have
// come from entities registered with both a pose and a shape, so a missing
// component is a host integration bug, not a runtime condition.
func (s *SpatialCollisionSystem) testPair(pair collide.Pair) {
	var set collide.ContactSet
	if s.narrow != nil {
		left := s.collider(pair.A)
		right := s.collider(pair.B)
		cs, hit := s.narrow.Collide(left, right)
		if !hit {
			return
		}
		set = cs
	} else {
		set = collide.NewCollisionOnly(pair)
	}
	s.contacts.Push(set)
	s.log.Append(set)
}

func (s *SpatialCollisionSystem) collider(e ecs.Entity) collide.Collider {
	if !s.shapeMap.Has(e) || !s.poseMap.Has(e) {
		panic(fmt.Sprintf("spatial collision: candidate entity %d lacks pose or collision shape", e.ID()))
	}
	return collide.Collider{Entity: e, Shape: s.shapeMap.Get(e), Pose: s.poseMap.Get(e)}
}
