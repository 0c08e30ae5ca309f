package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/location-import-service/internal/domain"
)

const jobColumns = `id, job_name, status, file_name, file_key, file_size, summary, error,
	created_at, started_at, completed_at`

const selectJob = `SELECT ` + jobColumns + ` FROM job_results WHERE id = ?`

// CreateJobResult implements domain.JobStore.
func (s *Store) CreateJobResult(ctx context.Context, job domain.JobResult) (domain.JobResult, error) {
	if job.ID == "" {
		job.ID = newID()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = domain.Now()
	}
	summary, err := json.Marshal(job.Summary)
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("marshal summary: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO job_results
		(id, job_name, status, file_name, file_key, file_size, summary, error, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		job.ID, job.JobName, string(job.Status), job.FileName, job.FileKey, job.FileSize, string(summary), job.Error,
		job.CreatedAt, nullTime(job.StartedAt), nullTime(job.CompletedAt))
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("insert job result %q: %w", job.ID, err)
	}
	return job, nil
}

// UpdateJobResult implements domain.JobStore. The read, mutation and write
// happen in one transaction.
func (s *Store) UpdateJobResult(ctx context.Context, id string, mutator func(*domain.JobResult) error) (result domain.JobResult, retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	job, err := s.getJob(ctx, tx, id)
	if err != nil {
		return domain.JobResult{}, err
	}
	if err := mutator(&job); err != nil {
		return domain.JobResult{}, err
	}
	summary, err := json.Marshal(job.Summary)
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("marshal summary: %w", err)
	}
	_, err = tx.ExecContext(ctx, s.rebind(`UPDATE job_results SET
		job_name = ?, status = ?, file_name = ?, file_key = ?, file_size = ?, summary = ?, error = ?,
		started_at = ?, completed_at = ? WHERE id = ?`),
		job.JobName, string(job.Status), job.FileName, job.FileKey, job.FileSize, string(summary), job.Error,
		nullTime(job.StartedAt), nullTime(job.CompletedAt), id)
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("update job result %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.JobResult{}, fmt.Errorf("commit: %w", err)
	}
	job.ID = id
	return job, nil
}

// GetJobResult implements domain.JobStore.
func (s *Store) GetJobResult(ctx context.Context, id string) (domain.JobResult, error) {
	return s.getJob(ctx, s.db, id)
}

func (s *Store) getJob(ctx context.Context, q queryer, id string) (domain.JobResult, error) {
	job, err := scanJob(q.QueryRowContext(ctx, s.rebind(selectJob), id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.JobResult{}, fmt.Errorf("job result %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("select job result %q: %w", id, err)
	}
	return job, nil
}

// ListJobResults implements domain.JobStore.
func (s *Store) ListJobResults(ctx context.Context, status domain.JobStatus) ([]domain.JobResult, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT `+jobColumns+` FROM job_results WHERE status = ? ORDER BY created_at, id`),
		string(status))
	if err != nil {
		return nil, fmt.Errorf("select %s job results: %w", status, err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.JobResult{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job result: %w", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job results: %w", err)
	}
	return out, nil
}

func scanJob(row scanner) (domain.JobResult, error) {
	var (
		job                  domain.JobResult
		status, summary      string
		startedAt, completed sql.NullTime
	)
	err := row.Scan(
		&job.ID, &job.JobName, &status, &job.FileName, &job.FileKey, &job.FileSize, &summary, &job.Error,
		&job.CreatedAt, &startedAt, &completed)
	if err != nil {
		return domain.JobResult{}, err
	}
	job.Status = domain.JobStatus(status)
	if summary != "" {
		if err := json.Unmarshal([]byte(summary), &job.Summary); err != nil {
			return domain.JobResult{}, fmt.Errorf("decode summary: %w", err)
		}
	}
	job.StartedAt = timePtr(startedAt)
	job.CompletedAt = timePtr(completed)
	return job, nil
}

// AppendJobLog implements domain.JobStore.
func (s *Store) AppendJobLog(ctx context.Context, entry domain.JobLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = domain.Now()
	}
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO job_log_entries (job_id, level, message, attrs, created_at) VALUES (?, ?, ?, ?, ?)`),
		entry.JobID, entry.Level, entry.Message, entry.Attrs, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert job log for %q: %w", entry.JobID, err)
	}
	return nil
}

// ListJobLogs implements domain.JobStore.
func (s *Store) ListJobLogs(ctx context.Context, jobID string) ([]domain.JobLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, job_id, level, message, attrs, created_at FROM job_log_entries WHERE job_id = ? ORDER BY id`),
		jobID)
	if err != nil {
		return nil, fmt.Errorf("select job logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.JobLogEntry{}
	for rows.Next() {
		var e domain.JobLogEntry
		if err := rows.Scan(&e.ID, &e.JobID, &e.Level, &e.Message, &e.Attrs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job log: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job logs: %w", err)
	}
	return out, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time
	return &v
}
