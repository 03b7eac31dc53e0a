package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmulder/clearcat/internal/db"
	"github.com/jmulder/clearcat/internal/models"
)

// JobStatus represents the state of a background job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job types.
const (
	JobTypeProcess = "process"
	JobTypeEnrich  = "enrich"
)

// Job represents a background processing job: either reconciling one batch
// ("process") or running bulk enrichment ("enrich").
type Job struct {
	ID          string
	Type        string
	Status      JobStatus
	BatchID     string // process jobs
	RunID       string // enrich jobs
	Progress    int
	Total       int
	Result      map[string]any
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time

	// Internal fields
	mu                 sync.RWMutex
	lastProgressUpdate time.Time // For debouncing DB writes
}

// JobManager tracks and manages background jobs.
type JobManager struct {
	jobs        map[string]*Job
	mu          sync.RWMutex
	concurrency int
	db          *db.Client
}

// NewJobManager creates a new job manager.
func NewJobManager(concurrency int, dbClient *db.Client) *JobManager {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &JobManager{
		jobs:        make(map[string]*Job),
		concurrency: concurrency,
		db:          dbClient,
	}
}

// Concurrency returns the configured concurrency level.
func (m *JobManager) Concurrency() int {
	return m.concurrency
}

// CreateJob creates a new pending job with persistence. batchID and runID are
// optional depending on the job type.
func (m *JobManager) CreateJob(ctx context.Context, jobType string, batchID, runID *string, total int) (*Job, error) {
	job := &Job{
		ID:        uuid.New().String()[:8], // Short ID for convenience
		Type:      jobType,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		Total:     total,
	}
	if batchID != nil {
		job.BatchID = *batchID
	}
	if runID != nil {
		job.RunID = *runID
	}

	// Persist to database
	if m.db != nil {
		if err := m.db.CreateJob(ctx, job.ID, jobType, batchID, runID, total); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	slog.Info("job created", "job_id", job.ID, "type", jobType, "total", total)
	return job, nil
}

// RegisterJob adds an existing job to the in-memory map (for resume).
func (m *JobManager) RegisterJob(job *Job) {
	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ListJobs returns all jobs, most recent first.
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}

	// Sort by start time descending (most recent first)
	slices.SortFunc(jobs, func(a, b *Job) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	return jobs
}

// UpdateProgress updates job progress with debounced DB persistence.
func (m *JobManager) UpdateProgress(ctx context.Context, job *Job, current, total int) {
	job.mu.Lock()
	job.Progress = current
	job.Total = total
	if job.Status == JobStatusPending {
		job.Status = JobStatusRunning
	}

	// Debounce DB updates - only persist every 5 seconds or every 10 rows
	shouldPersist := m.db != nil && (time.Since(job.lastProgressUpdate) > 5*time.Second ||
		current%10 == 0 || current == total)
	if shouldPersist {
		job.lastProgressUpdate = time.Now()
	}
	job.mu.Unlock()

	if shouldPersist {
		if err := m.db.UpdateJobProgress(ctx, job.ID, current); err != nil {
			slog.Warn("failed to persist job progress", "job_id", job.ID, "error", err)
		}
	}
}

// SetRunning marks job as running in DB.
func (m *JobManager) SetRunning(ctx context.Context, job *Job) {
	job.mu.Lock()
	job.Status = JobStatusRunning
	job.mu.Unlock()

	if m.db != nil {
		if err := m.db.UpdateJobStatus(ctx, job.ID, string(JobStatusRunning)); err != nil {
			slog.Warn("failed to set job running", "job_id", job.ID, "error", err)
		}
	}
}

// Complete marks job as completed with result.
func (m *JobManager) Complete(ctx context.Context, job *Job, result map[string]any) {
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.Result = result
	now := time.Now()
	job.CompletedAt = &now
	job.mu.Unlock()

	if m.db != nil {
		if err := m.db.CompleteJob(ctx, job.ID, result); err != nil {
			slog.Warn("failed to persist job completion", "job_id", job.ID, "error", err)
		}
	}

	slog.Info("job completed", "job_id", job.ID, "type", job.Type)
}

// Fail marks job as failed with error.
func (m *JobManager) Fail(ctx context.Context, job *Job, err error) {
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = err.Error()
	now := time.Now()
	job.CompletedAt = &now
	job.mu.Unlock()

	if m.db != nil {
		if dbErr := m.db.FailJob(ctx, job.ID, err.Error()); dbErr != nil {
			slog.Warn("failed to persist job failure", "job_id", job.ID, "error", dbErr)
		}
	}

	slog.Error("job failed", "job_id", job.ID, "error", err)
}

// Run executes fn in a background goroutine with panic recovery, moving the
// job through running and into completed or failed.
func (m *JobManager) Run(job *Job, fn func(ctx context.Context) (map[string]any, error)) {
	go func() {
		bgCtx := context.Background()

		defer func() {
			if r := recover(); r != nil {
				slog.Error("job goroutine panicked", "job_id", job.ID, "panic", r)
				m.Fail(bgCtx, job, fmt.Errorf("internal panic: %v", r))
			}
		}()

		m.SetRunning(bgCtx, job)

		result, err := fn(bgCtx)
		if err != nil {
			m.Fail(bgCtx, job, err)
			return
		}
		m.Complete(bgCtx, job, result)
	}()
}

// ResumeIncompleteJobs restarts jobs that were pending or running when the
// process last stopped. Process jobs re-run their batch only if it is still
// reconcilable; enrich jobs re-trigger, which is safe because enrichment is
// state-driven and already-completed items are filtered out.
func (m *JobManager) ResumeIncompleteJobs(ctx context.Context, reconcile *ReconcileService, enrich *EnrichService) error {
	if m.db == nil {
		return nil
	}

	incomplete, err := m.db.GetIncompleteJobs(ctx)
	if err != nil {
		return err
	}
	if len(incomplete) == 0 {
		slog.Info("no incomplete jobs to resume")
		return nil
	}

	slog.Info("found incomplete jobs", "count", len(incomplete))

	for _, dbJob := range incomplete {
		jobID, err := models.RecordIDString(dbJob.ID)
		if err != nil {
			slog.Warn("failed to get job ID", "error", err)
			continue
		}

		job := &Job{
			ID:        jobID,
			Type:      dbJob.JobType,
			Status:    JobStatusRunning,
			Progress:  dbJob.Progress,
			Total:     dbJob.Total,
			StartedAt: dbJob.StartedAt,
		}
		if dbJob.BatchID != nil {
			if id, err := models.RecordIDString(*dbJob.BatchID); err == nil {
				job.BatchID = id
			}
		}
		if dbJob.RunID != nil {
			if id, err := models.RecordIDString(*dbJob.RunID); err == nil {
				job.RunID = id
			}
		}

		switch job.Type {
		case JobTypeProcess:
			batch, err := m.db.GetBatch(ctx, job.BatchID)
			if err != nil {
				slog.Warn("cannot resume process job, batch lookup failed", "job_id", jobID, "error", err)
				continue
			}
			// An interrupted run left the batch PROCESSING; move it back is
			// not allowed, so mark the job failed for the operator to re-stage.
			if batch.Status != models.BatchStaged {
				m.RegisterJob(job)
				m.Fail(ctx, job, fmt.Errorf("batch %s is %s, re-upload to retry", job.BatchID, batch.Status))
				continue
			}

			m.RegisterJob(job)
			slog.Info("resuming process job", "job_id", jobID, "batch_id", job.BatchID)
			m.Run(job, func(runCtx context.Context) (map[string]any, error) {
				res, err := reconcile.Process(runCtx, job.BatchID, func(cur, total int) {
					m.UpdateProgress(runCtx, job, cur, total)
				})
				if err != nil {
					return nil, err
				}
				return processResultMap(res), nil
			})

		case JobTypeEnrich:
			m.RegisterJob(job)
			slog.Info("resuming enrich job", "job_id", jobID)
			m.Run(job, func(runCtx context.Context) (map[string]any, error) {
				res, err := enrich.RunBulk(runCtx, func(cur, total int) {
					m.UpdateProgress(runCtx, job, cur, total)
				})
				if err != nil {
					return nil, err
				}
				return enrichResultMap(res), nil
			})

		default:
			slog.Warn("unknown job type, skipping", "job_id", jobID, "type", job.Type)
		}
	}

	return nil
}

// StartProcess launches a background job reconciling one staged batch.
func (m *JobManager) StartProcess(ctx context.Context, reconcile *ReconcileService, batchID string, total int) (*Job, error) {
	job, err := m.CreateJob(ctx, JobTypeProcess, &batchID, nil, total)
	if err != nil {
		return nil, err
	}
	m.Run(job, func(runCtx context.Context) (map[string]any, error) {
		res, err := reconcile.Process(runCtx, batchID, func(cur, total int) {
			m.UpdateProgress(runCtx, job, cur, total)
		})
		if err != nil {
			return nil, err
		}
		return processResultMap(res), nil
	})
	return job, nil
}

// StartEnrich launches a background bulk-enrichment job. The total is not
// known until the candidate scan completes, so it starts at zero and is
// corrected by the first progress callback.
func (m *JobManager) StartEnrich(ctx context.Context, enrich *EnrichService) (*Job, error) {
	job, err := m.CreateJob(ctx, JobTypeEnrich, nil, nil, 0)
	if err != nil {
		return nil, err
	}
	m.Run(job, func(runCtx context.Context) (map[string]any, error) {
		res, err := enrich.RunBulk(runCtx, func(cur, total int) {
			m.UpdateProgress(runCtx, job, cur, total)
		})
		if err != nil {
			return nil, err
		}
		return enrichResultMap(res), nil
	})
	return job, nil
}

func processResultMap(res *ProcessResult) map[string]any {
	return map[string]any{
		"created": res.Created,
		"updated": res.Updated,
		"skipped": res.Skipped,
		"failed":  res.Failed,
	}
}

func enrichResultMap(res *EnrichResult) map[string]any {
	return map[string]any{
		"total":     res.Total,
		"completed": res.Completed,
		"failed":    res.Failed,
		"skipped":   res.Skipped,
	}
}

// Snapshot returns a thread-safe copy of job state.
func (j *Job) Snapshot() Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Job{
		ID:          j.ID,
		Type:        j.Type,
		Status:      j.Status,
		BatchID:     j.BatchID,
		RunID:       j.RunID,
		Progress:    j.Progress,
		Total:       j.Total,
		Result:      j.Result,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
