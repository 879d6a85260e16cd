package memory

import (
	"context"
	"sort"
	"sync"

	audit "carreg/pkg/platform/audit"
)

// InMemoryStore keeps audit events per subject. Used when no database is configured.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.Subject] = append(s.events[event.Subject], event)
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[subject]...), nil
}

// ListRecent returns the most recent limit events across all subjects, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	var all []audit.Event
	for _, events := range s.events {
		all = append(all, events...)
	}
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
