package browser

import (
	"sync"
	"time"
)

// SnapshotStore is the bounded monotonic ring buffer of
// PageRepresentations. Only the engine writes it; ids are never reused.
type SnapshotStore struct {
	mu     sync.Mutex
	depth  int
	nextID int
	byID   map[int]*Snapshot
	order  []int // ids currently held, oldest first
}

func NewSnapshotStore(depth int) *SnapshotStore {
	return &SnapshotStore{
		depth:  clampSnapshotDepth(depth),
		nextID: 1,
		byID:   make(map[int]*Snapshot),
	}
}

// Push assigns the next monotonic id, stamps the representation, and
// stores it, evicting the oldest entry if the ring is full.
func (s *SnapshotStore) Push(rep *PageRepresentation) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	now := time.Now()
	rep.SnapshotID = id
	rep.Timestamp = now

	s.byID[id] = &Snapshot{ID: id, Timestamp: now, Representation: rep}
	s.order = append(s.order, id)

	if len(s.order) > s.depth {
		evictID := s.order[0]
		s.order = s.order[1:]
		delete(s.byID, evictID)
	}

	return id
}

func (s *SnapshotStore) Get(id int) (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.byID[id]
	return snap, ok
}

func (s *SnapshotStore) GetLatest() (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return nil, false
	}
	return s.byID[s.order[len(s.order)-1]], true
}

// GetPrevious returns the second-most-recent snapshot, if one exists.
func (s *SnapshotStore) GetPrevious() (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) < 2 {
		return nil, false
	}
	return s.byID[s.order[len(s.order)-2]], true
}

func (s *SnapshotStore) GetOldestID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return 0
	}
	return s.order[0]
}

func (s *SnapshotStore) GetLatestID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return 0
	}
	return s.order[len(s.order)-1]
}

func (s *SnapshotStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// SetDepth clamps n to [MinSnapshotDepth, MaxSnapshotDepth] and evicts any
// overflow immediately.
func (s *SnapshotStore) SetDepth(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.depth = clampSnapshotDepth(n)
	for len(s.order) > s.depth {
		evictID := s.order[0]
		s.order = s.order[1:]
		delete(s.byID, evictID)
	}
}

// Clear resets the store and the id counter to 1.
func (s *SnapshotStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[int]*Snapshot)
	s.order = nil
	s.nextID = 1
}

// ShouldAutoPush reports whether a render from the given source should
// be pushed under policy. A forced snapshot always pushes; otherwise
// every_action pushes everything and observe_only pushes only observe
// renders.
func ShouldAutoPush(policy AutoSnapshotPolicy, source string, force bool) bool {
	if force {
		return true
	}
	switch policy {
	case AutoSnapshotEveryAction:
		return true
	case AutoSnapshotObserveOnly:
		return source == "observe"
	default: // AutoSnapshotManual
		return false
	}
}
