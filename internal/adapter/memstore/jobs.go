package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/couchcryptid/location-import-service/internal/domain"
)

// CreateJobResult implements domain.JobStore. An empty ID is assigned.
func (s *Store) CreateJobResult(_ context.Context, job domain.JobResult) (domain.JobResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		job.ID = newID()
	}
	if _, exists := s.jobs[job.ID]; exists {
		return domain.JobResult{}, fmt.Errorf("job result %q already exists", job.ID)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = domain.Now()
	}
	s.jobs[job.ID] = job
	return job, nil
}

// UpdateJobResult implements domain.JobStore. The mutator runs under the
// store lock and its changes are discarded if it returns an error.
func (s *Store) UpdateJobResult(_ context.Context, id string, mutator func(*domain.JobResult) error) (domain.JobResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.JobResult{}, fmt.Errorf("job result %q: %w", id, domain.ErrNotFound)
	}
	if err := mutator(&job); err != nil {
		return domain.JobResult{}, err
	}
	job.ID = id
	s.jobs[id] = job
	return job, nil
}

// GetJobResult implements domain.JobStore.
func (s *Store) GetJobResult(_ context.Context, id string) (domain.JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.JobResult{}, fmt.Errorf("job result %q: %w", id, domain.ErrNotFound)
	}
	return job, nil
}

// ListJobResults implements domain.JobStore.
func (s *Store) ListJobResults(_ context.Context, status domain.JobStatus) ([]domain.JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.JobResult{}
	for _, job := range s.jobs {
		if job.Status == status {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// AppendJobLog implements domain.JobStore.
func (s *Store) AppendJobLog(_ context.Context, entry domain.JobLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[entry.JobID]; !ok {
		return fmt.Errorf("job result %q: %w", entry.JobID, domain.ErrNotFound)
	}
	s.nextLogID++
	entry.ID = s.nextLogID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = domain.Now()
	}
	s.logs[entry.JobID] = append(s.logs[entry.JobID], entry)
	return nil
}

// ListJobLogs implements domain.JobStore. Entries are returned in append order.
func (s *Store) ListJobLogs(_ context.Context, jobID string) ([]domain.JobLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.JobLogEntry, len(s.logs[jobID]))
	copy(out, s.logs[jobID])
	return out, nil
}
