package domain

import "context"

// LocationStore is the host data store contract the importer consumes.
// Implementations must make every method safe for concurrent use.
type LocationStore interface {
	// GetOrCreateStatus returns the status with the given name, creating it if absent.
	GetOrCreateStatus(ctx context.Context, name string) (Status, bool, error)

	// GetLocationType returns the named type or an error wrapping ErrNotFound.
	GetLocationType(ctx context.Context, name string) (LocationType, error)

	// GetOrCreateLocationType returns the named type, creating it under parentID if absent.
	GetOrCreateLocationType(ctx context.Context, name string, parentID *string) (LocationType, bool, error)

	// GetOrCreateLocation returns the location matching key, creating it from defaults if absent.
	// Existing records are returned untouched.
	GetOrCreateLocation(ctx context.Context, key LocationKey, defaults LocationFields) (Location, bool, error)

	// UpdateOrCreateLocation writes fields onto the location matching key, creating it if absent.
	UpdateOrCreateLocation(ctx context.Context, key LocationKey, fields LocationFields) (Location, bool, error)

	// SetLocationCoordinates stores latitude and longitude on an existing location.
	SetLocationCoordinates(ctx context.Context, id string, lat, lon float64) (Location, error)

	// ListLocations returns locations matching filter ordered by name.
	ListLocations(ctx context.Context, filter LocationFilter) ([]Location, error)
}

// JobStore persists job results and their log entries.
type JobStore interface {
	CreateJobResult(ctx context.Context, job JobResult) (JobResult, error)
	UpdateJobResult(ctx context.Context, id string, mutator func(*JobResult) error) (JobResult, error)
	GetJobResult(ctx context.Context, id string) (JobResult, error)
	// ListJobResults returns jobs in the given status, oldest first.
	ListJobResults(ctx context.Context, status JobStatus) ([]JobResult, error)
	AppendJobLog(ctx context.Context, entry JobLogEntry) error
	ListJobLogs(ctx context.Context, jobID string) ([]JobLogEntry, error)
}

// Store is a complete persistence backend.
type Store interface {
	LocationStore
	JobStore
	Ping(ctx context.Context) error
	Close() error
}
