// Package store persists vehicle registration records and their history.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"carreg/internal/registration/models"
	"carreg/pkg/platform/sentinel"
)

// InMemoryStore keeps vehicles and history in process memory. It returns
// clones so callers never share state with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	vehicles map[string]*models.Vehicle
	history  map[string][]models.HistoryEntry
	nextID   int64
	nextHist int64
	now      func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		vehicles: make(map[string]*models.Vehicle),
		history:  make(map[string][]models.HistoryEntry),
		now:      time.Now,
	}
}

// WithClock replaces the clock that stamps history entries.
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	s.now = now
	return s
}

func (s *InMemoryStore) GetRecords(_ context.Context, vins []string) ([]*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Vehicle, 0, len(vins))
	for _, vin := range vins {
		if v, ok := s.vehicles[models.NormalizeVIN(vin)]; ok {
			out = append(out, v.Clone())
		}
	}
	return out, nil
}

func (s *InMemoryStore) GetRecordByID(_ context.Context, id int64) (*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.vehicles {
		if v.ID == id {
			return v.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) GetRecordsByRegistrationID(_ context.Context, registrationID string) ([]*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Vehicle
	for _, v := range s.vehicles {
		if v.RegistrationID == registrationID {
			out = append(out, v.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) UpdateRecord(_ context.Context, v *models.Vehicle, actor string, withHistory bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.vehicles[v.VIN]
	if !ok || (v.ID != 0 && existing.ID != v.ID) {
		return sentinel.ErrNotFound
	}
	stored := v.Clone()
	stored.ID = existing.ID
	stored.IsExisting = false
	s.vehicles[v.VIN] = stored
	if withHistory {
		s.appendHistoryLocked(stored, actor, "", "")
	}
	return nil
}

// SaveRegistrations upserts vehicles. Cars in MissingData are stored but not
// reported as saved.
func (s *InMemoryStore) SaveRegistrations(_ context.Context, vehicles []*models.Vehicle, actor string, forced bool) (models.SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !forced && s.allRegisteredLocked(vehicles) {
		return models.SaveResult{AlreadyRegistered: true}, nil
	}

	result := models.SaveResult{Saved: make([]string, 0, len(vehicles))}
	for _, v := range vehicles {
		stored := v.Clone()
		if existing, ok := s.vehicles[v.VIN]; ok {
			stored = mergeRegistration(existing, v)
		} else {
			s.nextID++
			stored.ID = s.nextID
		}
		stored.IsExisting = false
		s.vehicles[stored.VIN] = stored
		s.appendHistoryLocked(stored, actor, "", "")
		if stored.TransactionState != models.StateMissingData {
			result.Saved = append(result.Saved, stored.VIN)
		}
	}
	return result, nil
}

func (s *InMemoryStore) allRegisteredLocked(vehicles []*models.Vehicle) bool {
	if len(vehicles) == 0 {
		return false
	}
	for _, v := range vehicles {
		existing, ok := s.vehicles[v.VIN]
		if !ok || existing.TransactionState != models.StateRegistered || existing.CompanyID != v.CompanyID {
			return false
		}
	}
	return true
}

func (s *InMemoryStore) AppendHistory(_ context.Context, v *models.Vehicle, actor, stateLabel, typeLabel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.vehicles[v.VIN]
	if !ok {
		return sentinel.ErrNotFound
	}
	snapshot := v.Clone()
	snapshot.ID = existing.ID
	s.appendHistoryLocked(snapshot, actor, stateLabel, typeLabel)
	return nil
}

// appendHistoryLocked stamps entries with microsecond precision, strictly
// increasing per VIN, so a timestamp always identifies one entry.
func (s *InMemoryStore) appendHistoryLocked(v *models.Vehicle, actor, stateLabel, typeLabel string) {
	createdAt := s.now().UTC().Truncate(time.Microsecond)
	entries := s.history[v.VIN]
	if n := len(entries); n > 0 && !createdAt.After(entries[n-1].CreatedAt) {
		createdAt = entries[n-1].CreatedAt.Add(time.Microsecond)
	}
	s.nextHist++
	entry := models.NewHistoryEntry(v, actor, stateLabel, typeLabel, createdAt)
	entry.ID = s.nextHist
	s.history[v.VIN] = append(entries, entry)
}

func (s *InMemoryStore) GetHistory(_ context.Context, vin string) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.HistoryEntry{}, s.history[models.NormalizeVIN(vin)]...), nil
}

func (s *InMemoryStore) GetLatestHistoryEntry(_ context.Context, vin string) (*models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[models.NormalizeVIN(vin)]
	if len(entries) == 0 {
		return nil, sentinel.ErrNotFound
	}
	latest := entries[len(entries)-1]
	return &latest, nil
}

func (s *InMemoryStore) GetHistoryEntry(_ context.Context, vin string, createdAt time.Time) (*models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.history[models.NormalizeVIN(vin)] {
		if h.CreatedAt.Equal(createdAt) {
			entry := h
			return &entry, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// mergeRegistration applies the registration fields of incoming to a copy
// of existing. The stored state is kept unless incoming flags MissingData.
func mergeRegistration(existing, incoming *models.Vehicle) *models.Vehicle {
	merged := existing.Clone()
	merged.CompanyID = incoming.CompanyID
	merged.CustomerID = incoming.CustomerID
	merged.CarPool = incoming.CarPool
	merged.CarPoolNumber = incoming.CarPoolNumber
	merged.RegistrationID = incoming.RegistrationID
	merged.ErpRegistrationNumber = incoming.ErpRegistrationNumber
	merged.ErpDeliveryNumber = incoming.ErpDeliveryNumber
	if incoming.DeliveryDate != nil {
		merged.DeliveryDate = incoming.DeliveryDate
	}
	if incoming.RegistrationDate != nil {
		merged.RegistrationDate = incoming.RegistrationDate
	}
	merged.EmailAddresses = incoming.EmailAddresses
	merged.CustomerRegistrationReference = incoming.CustomerRegistrationReference
	if incoming.Source != "" {
		merged.Source = incoming.Source
	}
	switch {
	case incoming.TransactionState == models.StateMissingData:
		merged.TransactionState = models.StateMissingData
	case merged.TransactionState == models.StateMissingData:
		merged.TransactionState = models.StateNone
	}
	return merged
}
