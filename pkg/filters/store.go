package filters

import (
	"sort"
	"sync"
)

// Store is the single shared mutable filter state. All mutation goes through
// Apply; reads are snapshots. Subscribers are notified synchronously with
// the post-patch snapshot, in subscription order.
type Store struct {
	mu          sync.Mutex
	current     Filters
	revision    uint64
	subscribers map[uint64]func(Filters)
	nextSubID   uint64
}

// NewStore creates a store seeded with initial state. The initial value is
// normalized so the comparison invariant holds from the first read.
func NewStore(initial Filters) *Store {
	initial = initial.clone()
	initial.normalize()
	return &Store{
		current:     initial,
		subscribers: make(map[uint64]func(Filters)),
	}
}

// Snapshot returns a deep copy of the current filter state.
func (s *Store) Snapshot() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

// Revision returns a counter bumped on every applied patch. Embeds compare
// revisions to detect that their cached key predates the latest change.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Apply shallow-merges a patch into the current state, re-establishes the
// comparison invariant, and notifies subscribers with the new snapshot.
// Notification runs outside the lock; a subscriber may call Snapshot or
// Apply again without deadlocking.
func (s *Store) Apply(patch Patch) Filters {
	s.mu.Lock()
	if patch.CourseIDs != nil {
		s.current.CourseIDs = append([]string(nil), *patch.CourseIDs...)
	}
	if patch.DateRange != nil {
		s.current.DateRange = *patch.DateRange
	}
	if patch.IncludeArchived != nil {
		s.current.IncludeArchived = *patch.IncludeArchived
	}
	if patch.Comparison != nil {
		comparison := *patch.Comparison
		comparison.ComparisonCourseIDs = append([]string(nil), comparison.ComparisonCourseIDs...)
		s.current.Comparison = comparison
	}
	if patch.Custom != nil {
		custom := make(map[string]any, len(*patch.Custom))
		for k, v := range *patch.Custom {
			custom[k] = v
		}
		s.current.Custom = custom
	}
	s.current.normalize()
	s.revision++

	snapshot := s.current.clone()
	notify := make([]func(Filters), 0, len(s.subscribers))
	order := make([]uint64, 0, len(s.subscribers))
	for id := range s.subscribers {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	for _, id := range order {
		notify = append(notify, s.subscribers[id])
	}
	s.mu.Unlock()

	for _, fn := range notify {
		fn(snapshot.clone())
	}
	return snapshot
}

// Subscribe registers fn to receive every post-Apply snapshot. The returned
// function unsubscribes; calling it more than once is safe.
func (s *Store) Subscribe(fn func(Filters)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}
