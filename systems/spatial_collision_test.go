package systems

import (
	"strings"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/impulse/collide"
	"github.com/pthm-cable/impulse/components"
	"github.com/pthm-cable/impulse/events"
	"github.com/pthm-cable/impulse/geom"
)

type collisionFixture struct {
	world    *ecs.World
	tree     *collide.BoundsTree
	contacts *collide.Contacts
	log      *events.Log[collide.ContactSet]
	system   *SpatialCollisionSystem
	mapper   *ecs.Map2[components.Pose, components.CollisionShape]
}

func newCollisionFixture(t *testing.T) *collisionFixture {
	t.Helper()
	w := ecs.NewWorld()
	f := &collisionFixture{
		world:    w,
		tree:     collide.NewBoundsTree(0.1),
		contacts: &collide.Contacts{},
		log:      events.NewLog[collide.ContactSet](64),
		mapper:   ecs.NewMap2[components.Pose, components.CollisionShape](w),
	}
	f.system = NewSpatialCollisionSystem(w, f.tree, f.contacts, f.log)
	return f
}

func (f *collisionFixture) spawnCircle(pos r2.Vec, radius float64) ecs.Entity {
	pose := components.NewPose(pos, 0)
	shape := components.NewCollisionShape(geom.Circle{Radius: radius}, pos, 0)
	return f.mapper.NewEntity(&pose, &shape)
}

func TestCollisionOnlyDetection(t *testing.T) {
	f := newCollisionFixture(t)
	a := f.spawnCircle(r2.Vec{}, 1)
	b := f.spawnCircle(r2.Vec{X: 1.5}, 1)

	f.system.Update(f.world)

	sets := f.contacts.All()
	if len(sets) != 1 {
		t.Fatalf("got %d contact sets, want 1", len(sets))
	}
	if sets[0].Strategy != collide.CollisionOnly {
		t.Errorf("strategy = %v, want collision-only", sets[0].Strategy)
	}
	if want := collide.NewPair(a, b); sets[0].Pair != want {
		t.Errorf("pair = %+v, want %+v", sets[0].Pair, want)
	}
	if len(sets[0].Contacts) != 0 {
		t.Errorf("detection-only record carries %d contacts", len(sets[0].Contacts))
	}
}

func TestSettledBodiesSkipped(t *testing.T) {
	f := newCollisionFixture(t)
	f.spawnCircle(r2.Vec{}, 1)
	f.spawnCircle(r2.Vec{X: 1.5}, 1)

	f.system.Update(f.world)
	if f.contacts.Len() != 1 {
		t.Fatalf("first tick found %d contacts, want 1", f.contacts.Len())
	}

	// Nothing moved: no dirty poses, so the default broad phase issues no
	// queries and the still-overlapping pair is not re-reported.
	f.system.Update(f.world)
	if f.contacts.Len() != 0 {
		t.Errorf("second tick found %d contacts, want 0", f.contacts.Len())
	}
	if f.system.PairsTested() != 0 {
		t.Errorf("second tick tested %d pairs, want 0", f.system.PairsTested())
	}
}

func TestOneDirtySideSuffices(t *testing.T) {
	f := newCollisionFixture(t)
	mover := f.spawnCircle(r2.Vec{X: -5}, 1)
	f.spawnCircle(r2.Vec{}, 1)

	f.system.Update(f.world)
	if f.contacts.Len() != 0 {
		t.Fatalf("bodies apart, got %d contacts", f.contacts.Len())
	}

	// Move one body into the other; only its pose goes dirty, yet the
	// pair is found because the settled body is still in the tree.
	pose := ecs.NewMap[components.Pose](f.world).Get(mover)
	shape := ecs.NewMap[components.CollisionShape](f.world).Get(mover)
	pose.Position = r2.Vec{X: -1.5}
	pose.Dirty = true
	shape.UpdateBound(pose.Position, pose.Rotation)

	f.system.Update(f.world)
	if f.contacts.Len() != 1 {
		t.Errorf("got %d contacts after move, want 1", f.contacts.Len())
	}
}

func TestNarrowPhaseFiltersAndFillsManifold(t *testing.T) {
	f := newCollisionFixture(t)
	f.system.WithNarrowPhase(collide.PrimitiveNarrowPhase{})

	// Bounds overlap but the circles do not: corner neighbors.
	f.spawnCircle(r2.Vec{}, 1)
	f.spawnCircle(r2.Vec{X: 1.9, Y: 1.9}, 1)
	f.system.Update(f.world)
	if f.system.PairsTested() == 0 {
		t.Fatal("broad phase proposed no candidates")
	}
	if f.contacts.Len() != 0 {
		t.Errorf("narrow phase passed a non-intersecting pair: %d contacts", f.contacts.Len())
	}

	g := newCollisionFixture(t)
	g.system.WithNarrowPhase(collide.PrimitiveNarrowPhase{})
	g.spawnCircle(r2.Vec{}, 1)
	g.spawnCircle(r2.Vec{X: 1.5}, 1)
	g.system.Update(g.world)

	sets := g.contacts.All()
	if len(sets) != 1 {
		t.Fatalf("got %d contact sets, want 1", len(sets))
	}
	if sets[0].Strategy != collide.FullResolution {
		t.Errorf("strategy = %v, want full-resolution", sets[0].Strategy)
	}
	if len(sets[0].Contacts) != 1 {
		t.Fatalf("manifold has %d contacts, want 1", len(sets[0].Contacts))
	}
	if got := sets[0].Contacts[0].Penetration; got < 0.49 || got > 0.51 {
		t.Errorf("penetration = %v, want 0.5", got)
	}
}

func TestContactsMirroredToLog(t *testing.T) {
	f := newCollisionFixture(t)
	reader := f.log.Register()
	f.spawnCircle(r2.Vec{}, 1)
	f.spawnCircle(r2.Vec{X: 1}, 1)

	f.system.Update(f.world)

	items, dropped := f.log.ReadLossy(reader)
	if dropped != 0 {
		t.Errorf("dropped = %d, want 0", dropped)
	}
	if len(items) != f.contacts.Len() {
		t.Fatalf("log has %d events, contacts has %d", len(items), f.contacts.Len())
	}
	if items[0].Pair != f.contacts.All()[0].Pair {
		t.Errorf("log and buffer disagree: %+v vs %+v", items[0], f.contacts.All()[0])
	}
}

// stubBroadPhase returns a fixed pair list regardless of bounds.
type stubBroadPhase struct{ pairs []collide.Pair }

func (s stubBroadPhase) ComputePairs([]collide.EntityBound) []collide.Pair {
	return s.pairs
}

func TestInjectedBroadPhase(t *testing.T) {
	f := newCollisionFixture(t)
	a := f.spawnCircle(r2.Vec{}, 1)
	b := f.spawnCircle(r2.Vec{X: 100}, 1)

	// The injected strategy proposes the far-apart pair; detection-only
	// mode trusts it.
	f.system.WithBroadPhase(stubBroadPhase{pairs: []collide.Pair{collide.NewPair(a, b)}})
	f.system.Update(f.world)
	if f.contacts.Len() != 1 {
		t.Errorf("got %d contacts, want the injected pair reported", f.contacts.Len())
	}
}

func TestCandidateMissingComponentsPanics(t *testing.T) {
	f := newCollisionFixture(t)
	f.system.WithNarrowPhase(collide.PrimitiveNarrowPhase{})
	a := f.spawnCircle(r2.Vec{}, 1)

	// An entity with a pose but no collision shape must never reach the
	// narrow phase; an injected broad phase that proposes it is a host
	// integration bug.
	pose := components.NewPose(r2.Vec{X: 0.5}, 0)
	bare := ecs.NewMap1[components.Pose](f.world).NewEntity(&pose)
	f.system.WithBroadPhase(stubBroadPhase{pairs: []collide.Pair{collide.NewPair(a, bare)}})

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for candidate lacking a collision shape")
		}
		if msg, ok := r.(string); !ok || !strings.Contains(msg, "lacks pose or collision shape") {
			t.Fatalf("unexpected panic value: %v", r)
		}
	}()
	f.system.Update(f.world)
}
