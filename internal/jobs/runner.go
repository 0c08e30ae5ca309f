// Package jobs runs location imports as background jobs: uploads are kept in
// blob storage, tracked as JobResults, and executed one at a time.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/location-import-service/internal/adapter/blob/core"
	"github.com/couchcryptid/location-import-service/internal/domain"
	"github.com/couchcryptid/location-import-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
)

// ErrQueueFull is returned by Submit when the job queue has no room.
var ErrQueueFull = errors.New("job queue is full")

var errNotPending = errors.New("job is not pending")

// errInterrupted is recorded on jobs that were running when a previous
// worker stopped.
var errInterrupted = errors.New("job interrupted: worker stopped before it finished")

const (
	uploadPrefix   = "uploads/"
	storeAttempts  = 3
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// Importer runs one import for a job.
type Importer interface {
	RunJob(ctx context.Context, jobID string, payload io.Reader, logger *slog.Logger) (domain.Summary, error)
}

// Store persists job results and logs.
type Store interface {
	domain.JobStore
	Ping(ctx context.Context) error
}

// Options tunes a Runner.
type Options struct {
	QueueSize     int
	RetainUploads bool
}

// Runner accepts uploads and executes import jobs on a single worker.
type Runner struct {
	store    Store
	importer Importer
	blobs    core.Store
	logger   *slog.Logger
	metrics  *observability.Metrics
	queue    chan string
	retain   bool
	running  atomic.Bool
}

// New creates a Runner.
func New(store Store, importer Importer, blobs core.Store, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Runner {
	size := opts.QueueSize
	if size < 1 {
		size = 1
	}
	return &Runner{
		store:    store,
		importer: importer,
		blobs:    blobs,
		logger:   logger,
		metrics:  metrics,
		queue:    make(chan string, size),
		retain:   opts.RetainUploads,
	}
}

// CheckReadiness returns nil when the worker loop is running and the store
// answers, or an error describing why the service is not ready.
func (r *Runner) CheckReadiness(ctx context.Context) error {
	if !r.running.Load() {
		return errors.New("job worker is not running")
	}
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	return nil
}

// Submit stores the upload, records a pending job, and queues it.
func (r *Runner) Submit(ctx context.Context, fileName string, body io.Reader) (domain.JobResult, error) {
	job, err := r.create(ctx, fileName, body)
	if err != nil {
		return domain.JobResult{}, err
	}

	select {
	case r.queue <- job.ID:
		r.metrics.JobsSubmitted.Inc()
		r.logger.Info("job queued", "job_id", job.ID, "file_name", job.FileName, "file_size", job.FileSize)
		return job, nil
	default:
	}

	r.logger.Warn("job queue full, rejecting job", "job_id", job.ID, "queue_size", cap(r.queue))
	failed, err := r.finish(ctx, job.ID, domain.Summary{}, ErrQueueFull)
	if err != nil {
		r.logger.Error("mark rejected job failed", "job_id", job.ID, "error", err)
		failed = job
	}
	r.discardUpload(ctx, job)
	return failed, ErrQueueFull
}

// RunFile records and executes a job synchronously.
func (r *Runner) RunFile(ctx context.Context, fileName string, body io.Reader) (domain.JobResult, error) {
	job, err := r.create(ctx, fileName, body)
	if err != nil {
		return domain.JobResult{}, err
	}
	r.metrics.JobsSubmitted.Inc()
	return r.Execute(ctx, job.ID)
}

// Run executes queued jobs one at a time until the context is cancelled.
// On start it fails jobs a previous worker left running and executes jobs
// still pending in the store.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("job worker started", "queue_size", cap(r.queue))
	r.running.Store(true)
	r.metrics.WorkerRunning.Set(1)
	defer func() {
		r.running.Store(false)
		r.metrics.WorkerRunning.Set(0)
	}()

	backlog, err := r.recoverJobs(ctx)
	if err != nil {
		r.logger.Error("job recovery failed", "error", err)
	}
	for _, id := range backlog {
		if ctx.Err() != nil {
			r.logger.Info("job worker stopping", "reason", ctx.Err())
			return nil
		}
		r.execute(ctx, id)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("job worker stopping", "reason", ctx.Err())
			return nil
		case id := <-r.queue:
			r.execute(ctx, id)
		}
	}
}

func (r *Runner) execute(ctx context.Context, id string) {
	_, err := r.Execute(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, errNotPending):
		r.logger.Debug("job already handled", "job_id", id)
	default:
		r.logger.Warn("job execution ended with error", "job_id", id, "error", err)
	}
}

// recoverJobs marks jobs left running as failed and returns the IDs of pending
// jobs, oldest first.
func (r *Runner) recoverJobs(ctx context.Context) ([]string, error) {
	stale, err := r.store.ListJobResults(ctx, domain.JobRunning)
	if err != nil {
		return nil, fmt.Errorf("list running jobs: %w", err)
	}
	for _, job := range stale {
		final, err := r.finish(ctx, job.ID, job.Summary, errInterrupted)
		if err != nil {
			r.logger.Error("mark interrupted job failed", "job_id", job.ID, "error", err)
			continue
		}
		r.logger.Warn("job interrupted", "job_id", job.ID, "file_name", job.FileName)
		r.metrics.JobsFinished.WithLabelValues(string(final.Status)).Inc()
		if !r.retain {
			r.discardUpload(ctx, final)
		}
	}

	pending, err := r.store.ListJobResults(ctx, domain.JobPending)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	ids := make([]string, 0, len(pending))
	for _, job := range pending {
		ids = append(ids, job.ID)
	}
	if len(ids) > 0 {
		r.logger.Info("resuming pending jobs", "count", len(ids))
	}
	return ids, nil
}

// Execute runs a pending job and records its outcome. The returned error is
// the import's fatal error, if any.
func (r *Runner) Execute(ctx context.Context, jobID string) (domain.JobResult, error) {
	start := time.Now()

	var job domain.JobResult
	err := r.withRetry(ctx, func() error {
		var err error
		job, err = r.store.UpdateJobResult(ctx, jobID, func(j *domain.JobResult) error {
			if j.Status != domain.JobPending {
				return fmt.Errorf("%w: %s is %s", errNotPending, j.ID, j.Status)
			}
			now := domain.Now()
			j.Status = domain.JobRunning
			j.StartedAt = &now
			return nil
		})
		return err
	})
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("start job %s: %w", jobID, err)
	}

	r.metrics.JobsRunning.Inc()
	defer r.metrics.JobsRunning.Dec()

	logger := slog.New(newJobLogHandler(r.logger.Handler(), r.store, jobID))
	logger.Info("job started", "job_name", job.JobName, "file_name", job.FileName)

	summary, runErr := r.runImport(ctx, job, logger)
	if runErr != nil {
		logger.Error("job failed", "error", runErr)
	} else {
		logger.Info("job completed",
			"rows", summary.Rows,
			"skipped", summary.Skipped,
			"sites_created", summary.SitesCreated,
			"sites_updated", summary.SitesUpdated,
		)
	}

	// Record the outcome even when the worker is shutting down.
	finishCtx := context.WithoutCancel(ctx)
	final, err := r.finish(finishCtx, jobID, summary, runErr)
	if err != nil {
		return job, fmt.Errorf("record job %s outcome: %w", jobID, err)
	}
	r.metrics.JobsFinished.WithLabelValues(string(final.Status)).Inc()
	r.metrics.JobDuration.Observe(time.Since(start).Seconds())

	if !r.retain {
		r.discardUpload(finishCtx, final)
	}
	return final, runErr
}

func (r *Runner) runImport(ctx context.Context, job domain.JobResult, logger *slog.Logger) (domain.Summary, error) {
	_, rc, err := r.blobs.Get(ctx, job.FileKey)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = rc.Close() }()

	return r.importer.RunJob(ctx, job.ID, rc, logger)
}

func (r *Runner) create(ctx context.Context, fileName string, body io.Reader) (domain.JobResult, error) {
	id := uuid.NewString()
	name := baseName(fileName)
	key := uploadPrefix + id + "/" + name

	info, err := r.blobs.Put(ctx, key, body, core.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"job_id": id},
	})
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("store upload: %w", err)
	}

	job, err := r.store.CreateJobResult(ctx, domain.JobResult{
		ID:       id,
		JobName:  domain.ImportJobName,
		Status:   domain.JobPending,
		FileName: name,
		FileKey:  key,
		FileSize: info.Size,
	})
	if err != nil {
		r.discardUpload(ctx, domain.JobResult{ID: id, FileKey: key})
		return domain.JobResult{}, fmt.Errorf("create job result: %w", err)
	}
	return job, nil
}

func (r *Runner) finish(ctx context.Context, jobID string, summary domain.Summary, runErr error) (domain.JobResult, error) {
	var final domain.JobResult
	err := r.withRetry(ctx, func() error {
		var err error
		final, err = r.store.UpdateJobResult(ctx, jobID, func(j *domain.JobResult) error {
			now := domain.Now()
			j.Summary = summary
			j.CompletedAt = &now
			if runErr != nil {
				j.Status = domain.JobFailed
				j.Error = runErr.Error()
				return nil
			}
			j.Status = domain.JobCompleted
			j.Error = ""
			return nil
		})
		return err
	})
	return final, err
}

func (r *Runner) discardUpload(ctx context.Context, job domain.JobResult) {
	if job.FileKey == "" {
		return
	}
	if _, err := r.blobs.Delete(ctx, job.FileKey); err != nil {
		r.logger.Warn("delete upload failed", "job_id", job.ID, "key", job.FileKey, "error", err)
	}
}

// withRetry retries op with exponential backoff unless the error is permanent.
func (r *Runner) withRetry(ctx context.Context, op func() error) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= storeAttempts; attempt++ {
		if err = op(); err == nil || permanent(err) || attempt == storeAttempts {
			return err
		}
		r.logger.Warn("job store call failed, retrying", "attempt", attempt, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return err
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return err
}

func permanent(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, errNotPending) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// baseName strips any directory part a client sent with the file name.
func baseName(fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "upload.csv"
	}
	return name
}
