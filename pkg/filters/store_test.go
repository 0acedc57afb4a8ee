package filters

import (
	"testing"
	"time"
)

func TestStoreApplyNotifiesSubscribers(t *testing.T) {
	store := NewStore(Default(time.Now()))

	var got []Filters
	unsubscribe := store.Subscribe(func(f Filters) {
		got = append(got, f)
	})
	defer unsubscribe()

	courseIDs := []string{"c1"}
	store.Apply(Patch{CourseIDs: &courseIDs})

	if len(got) != 1 {
		t.Fatalf("got %d notifications, want 1", len(got))
	}
	if len(got[0].CourseIDs) != 1 || got[0].CourseIDs[0] != "c1" {
		t.Errorf("notified CourseIDs = %v, want [c1]", got[0].CourseIDs)
	}
}

func TestStoreUnsubscribe(t *testing.T) {
	store := NewStore(Default(time.Now()))

	calls := 0
	unsubscribe := store.Subscribe(func(Filters) { calls++ })

	archived := true
	store.Apply(Patch{IncludeArchived: &archived})
	unsubscribe()
	unsubscribe() // second call must be harmless
	store.Apply(Patch{IncludeArchived: &archived})

	if calls != 1 {
		t.Errorf("got %d calls after unsubscribe, want 1", calls)
	}
}

func TestStoreSnapshotIsolation(t *testing.T) {
	store := NewStore(Filters{CourseIDs: []string{"c1", "c2"}})

	snap := store.Snapshot()
	snap.CourseIDs[0] = "mutated"
	snap.Custom = map[string]any{"x": 1}

	if fresh := store.Snapshot(); fresh.CourseIDs[0] != "c1" {
		t.Errorf("store state mutated through snapshot: %v", fresh.CourseIDs)
	}
}

func TestStoreComparisonInvariant(t *testing.T) {
	store := NewStore(Default(time.Now()))

	// Baseline set to a course already in the comparison set: the
	// duplicate must be dropped from the comparison list.
	comparison := Comparison{
		Enabled:             true,
		BaselineCourseID:    "c2",
		ComparisonCourseIDs: []string{"c1", "c2", "c3"},
	}
	result := store.Apply(Patch{Comparison: &comparison})

	for _, id := range result.Comparison.ComparisonCourseIDs {
		if id == "c2" {
			t.Fatalf("baseline c2 still present in comparison set %v", result.Comparison.ComparisonCourseIDs)
		}
	}
	if len(result.Comparison.ComparisonCourseIDs) != 2 {
		t.Errorf("comparison set = %v, want [c1 c3]", result.Comparison.ComparisonCourseIDs)
	}
}

func TestStoreRevisionBumps(t *testing.T) {
	store := NewStore(Default(time.Now()))
	if store.Revision() != 0 {
		t.Fatalf("initial revision = %d, want 0", store.Revision())
	}

	archived := true
	store.Apply(Patch{IncludeArchived: &archived})
	store.Apply(Patch{})

	if store.Revision() != 2 {
		t.Errorf("revision = %d, want 2", store.Revision())
	}
}

func TestStoreSubscriberCanReadBack(t *testing.T) {
	store := NewStore(Default(time.Now()))

	// A subscriber calling back into the store must not deadlock.
	done := make(chan struct{})
	store.Subscribe(func(Filters) {
		_ = store.Snapshot()
		close(done)
	})

	archived := true
	store.Apply(Patch{IncludeArchived: &archived})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscriber blocked calling Snapshot")
	}
}
