// Package memstore provides a mutex-guarded in-memory domain.Store used by
// tests and STORAGE_DRIVER=memory.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/couchcryptid/location-import-service/internal/domain"
	"github.com/google/uuid"
)

var _ domain.Store = (*Store)(nil)

// Store keeps every record in process memory. Contents are lost on exit.
type Store struct {
	mu        sync.RWMutex
	statuses  map[string]domain.Status
	types     map[string]domain.LocationType
	locations map[string]domain.Location
	jobs      map[string]domain.JobResult
	logs      map[string][]domain.JobLogEntry
	nextLogID int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		statuses:  make(map[string]domain.Status),
		types:     make(map[string]domain.LocationType),
		locations: make(map[string]domain.Location),
		jobs:      make(map[string]domain.JobResult),
		logs:      make(map[string][]domain.JobLogEntry),
	}
}

func newID() string { return uuid.NewString() }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// GetOrCreateStatus implements domain.LocationStore.
func (s *Store) GetOrCreateStatus(_ context.Context, name string) (domain.Status, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.statuses {
		if st.Name == name {
			return st, false, nil
		}
	}
	st := domain.Status{ID: newID(), Name: name, CreatedAt: domain.Now()}
	s.statuses[st.ID] = st
	return st, true, nil
}

// GetLocationType implements domain.LocationStore.
func (s *Store) GetLocationType(_ context.Context, name string) (domain.LocationType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if lt, ok := s.typeByName(name); ok {
		return lt, nil
	}
	return domain.LocationType{}, fmt.Errorf("location type %q: %w", name, domain.ErrNotFound)
}

// GetOrCreateLocationType implements domain.LocationStore.
func (s *Store) GetOrCreateLocationType(_ context.Context, name string, parentID *string) (domain.LocationType, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lt, ok := s.typeByName(name); ok {
		return lt, false, nil
	}
	if parentID != nil {
		if _, ok := s.types[*parentID]; !ok {
			return domain.LocationType{}, false, fmt.Errorf("parent location type %q: %w", *parentID, domain.ErrNotFound)
		}
	}
	lt := domain.LocationType{
		ID:        newID(),
		Name:      name,
		ParentID:  parentID,
		CreatedAt: domain.Now(),
	}
	s.types[lt.ID] = lt
	return lt, true, nil
}

func (s *Store) typeByName(name string) (domain.LocationType, bool) {
	for _, lt := range s.types {
		if lt.Name == name {
			return lt, true
		}
	}
	return domain.LocationType{}, false
}

// GetOrCreateLocation implements domain.LocationStore.
func (s *Store) GetOrCreateLocation(_ context.Context, key domain.LocationKey, defaults domain.LocationFields) (domain.Location, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found, err := s.match(key)
	if err != nil || found {
		return existing, false, err
	}
	loc, err := s.create(key, defaults)
	if err != nil {
		return domain.Location{}, false, err
	}
	return loc, true, nil
}

// UpdateOrCreateLocation implements domain.LocationStore.
func (s *Store) UpdateOrCreateLocation(_ context.Context, key domain.LocationKey, fields domain.LocationFields) (domain.Location, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found, err := s.match(key)
	if err != nil {
		return domain.Location{}, false, err
	}
	if !found {
		loc, err := s.create(key, fields)
		if err != nil {
			return domain.Location{}, false, err
		}
		return loc, true, nil
	}

	if err := s.apply(&existing, key, fields); err != nil {
		return domain.Location{}, false, err
	}
	existing.UpdatedAt = domain.Now()
	s.locations[existing.ID] = existing
	return existing, false, nil
}

// SetLocationCoordinates implements domain.LocationStore.
func (s *Store) SetLocationCoordinates(_ context.Context, id string, lat, lon float64) (domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := s.locations[id]
	if !ok {
		return domain.Location{}, fmt.Errorf("location %q: %w", id, domain.ErrNotFound)
	}
	loc.Latitude = &lat
	loc.Longitude = &lon
	loc.UpdatedAt = domain.Now()
	s.locations[id] = loc
	return loc, nil
}

// ListLocations implements domain.LocationStore.
func (s *Store) ListLocations(_ context.Context, filter domain.LocationFilter) ([]domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Location, 0, len(s.locations))
	for _, loc := range s.locations {
		if filter.LocationType != "" && loc.LocationType != filter.LocationType {
			continue
		}
		if filter.ParentID != "" && (loc.ParentID == nil || *loc.ParentID != filter.ParentID) {
			continue
		}
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) match(key domain.LocationKey) (domain.Location, bool, error) {
	var (
		found domain.Location
		n     int
	)
	for _, loc := range s.locations {
		if key.Matches(loc) {
			found = loc
			n++
		}
	}
	switch {
	case n > 1:
		return domain.Location{}, false, fmt.Errorf("location %q: %w", key.Name, domain.ErrMultipleMatches)
	case n == 1:
		return found, true, nil
	default:
		return domain.Location{}, false, nil
	}
}

func (s *Store) create(key domain.LocationKey, fields domain.LocationFields) (domain.Location, error) {
	now := domain.Now()
	loc := domain.Location{
		ID:        newID(),
		Name:      key.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(&loc, key, fields); err != nil {
		return domain.Location{}, err
	}
	s.locations[loc.ID] = loc
	return loc, nil
}

// apply copies fields onto loc after checking the referenced records exist.
func (s *Store) apply(loc *domain.Location, key domain.LocationKey, fields domain.LocationFields) error {
	lt, ok := s.types[fields.LocationTypeID]
	if !ok {
		return fmt.Errorf("location type %q: %w", fields.LocationTypeID, domain.ErrNotFound)
	}
	st, ok := s.statuses[fields.StatusID]
	if !ok {
		return fmt.Errorf("status %q: %w", fields.StatusID, domain.ErrNotFound)
	}
	parent := key.ResolveParent(fields)
	if parent != nil {
		if *parent == loc.ID {
			return fmt.Errorf("location %q: %w", loc.Name, domain.ErrSelfParent)
		}
		if _, ok := s.locations[*parent]; !ok {
			return fmt.Errorf("parent location %q: %w", *parent, domain.ErrNotFound)
		}
		p := *parent
		parent = &p
	}

	loc.LocationTypeID = lt.ID
	loc.LocationType = lt.Name
	loc.StatusID = st.ID
	loc.Status = st.Name
	loc.ParentID = parent
	return nil
}
