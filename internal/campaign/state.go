package campaign

import "sync"

// ContactedSet is a read-only view of the phones already messaged.
type ContactedSet map[string]bool

func (c ContactedSet) Has(key string) bool {
	return c[key]
}

// State tracks, per tenant, which guests this process has messaged. It is
// not persisted: a restart forgets prior contact.
type State struct {
	mu        sync.Mutex
	contacted map[string]map[string]bool
}

func NewState() *State {
	return &State{contacted: make(map[string]map[string]bool)}
}

// Contacted returns a snapshot of the tenant's contacted set.
func (s *State) Contacted(tenantID string) ContactedSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(ContactedSet, len(s.contacted[tenantID]))
	for key := range s.contacted[tenantID] {
		out[key] = true
	}
	return out
}

func (s *State) MarkContacted(tenantID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.contacted[tenantID]
	if !ok {
		set = make(map[string]bool)
		s.contacted[tenantID] = set
	}
	set[key] = true
}

// Count returns how many guests of the tenant were messaged.
func (s *State) Count(tenantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contacted[tenantID])
}
