package donation

import "sync"

// Store is the shared donation list. It is replaced wholesale only by a full
// refetch; every other change goes through PatchByID, which swaps a single
// element and leaves the others referentially untouched. Stored values are
// never mutated in place.
type Store struct {
	mu     sync.RWMutex
	items  []*Donation
	index  map[int64]int
	loaded bool
	stale  bool
	gen    uint64
}

func NewStore() *Store {
	return &Store{index: make(map[int64]int)}
}

// Replace installs a freshly fetched list.
func (s *Store) Replace(items []*Donation) {
	s.mu.Lock()
	s.installLocked(items)
	s.stale = false
	s.mu.Unlock()
}

// Generation identifies the current invalidation epoch. Read it before a
// fetch and pass it to ReplaceAt.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// ReplaceAt installs a list fetched during generation gen. If the store was
// invalidated meanwhile the list is kept but stays stale.
func (s *Store) ReplaceAt(gen uint64, items []*Donation) {
	s.mu.Lock()
	s.installLocked(items)
	s.stale = s.gen != gen
	s.mu.Unlock()
}

func (s *Store) installLocked(items []*Donation) {
	index := make(map[int64]int, len(items))
	cp := make([]*Donation, len(items))
	for i, d := range items {
		cp[i] = d
		index[d.ID] = i
	}

	s.items = cp
	s.index = index
	s.loaded = true
}

// Snapshot returns the current list. The slice is a copy; the elements are shared.
func (s *Store) Snapshot() []*Donation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Donation, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Get(id int64) (*Donation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.items[i], true
}

// PatchByID replaces the donation with the given id by fn's result.
func (s *Store) PatchByID(id int64, fn func(Donation) Donation) (*Donation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	next := fn(*s.items[i])
	next.ID = id
	s.items[i] = &next
	return &next, true
}

// Invalidate marks the list for refetch on next read.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.stale = true
	s.gen++
	s.mu.Unlock()
}

// NeedsRefresh reports whether the list was never loaded or was invalidated.
func (s *Store) NeedsRefresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.loaded || s.stale
}

// Filter narrows items by delivery state: "Entregado", "No Entregado" or "Todos".
func Filter(items []*Donation, filter string) []*Donation {
	if filter == "" || filter == "Todos" {
		return items
	}
	out := make([]*Donation, 0, len(items))
	for _, d := range items {
		state := "No Entregado"
		if d.DeliveredAt != nil {
			state = "Entregado"
		}
		if state == filter {
			out = append(out, d)
		}
	}
	return out
}
