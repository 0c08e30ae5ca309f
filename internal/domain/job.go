package domain

import "time"

// Job metadata recorded on location import results.
const (
	ImportJobName        = "Import Locations"
	ImportJobDescription = "Import locations into the location store from a CSV file"
)

// JobStatus is the lifecycle state of a job result.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Finished reports whether the status is terminal.
func (s JobStatus) Finished() bool {
	return s == JobCompleted || s == JobFailed
}

// Summary counts the outcomes of one import run.
type Summary struct {
	Rows          int `json:"rows"`
	Skipped       int `json:"skipped"`
	StatesCreated int `json:"states_created"`
	CitiesCreated int `json:"cities_created"`
	SitesCreated  int `json:"sites_created"`
	SitesUpdated  int `json:"sites_updated"`
	Geocoded      int `json:"geocoded"`
}

// JobResult records one execution of an import job.
type JobResult struct {
	ID          string     `json:"id"`
	JobName     string     `json:"job_name"`
	Status      JobStatus  `json:"status"`
	FileName    string     `json:"file_name"`
	FileKey     string     `json:"file_key"`
	FileSize    int64      `json:"file_size"`
	Summary     Summary    `json:"summary"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobLogEntry is one log line captured while a job ran.
type JobLogEntry struct {
	ID        int64     `json:"id"`
	JobID     string    `json:"job_id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Attrs     string    `json:"attrs,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
