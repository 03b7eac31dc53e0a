package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmulder/clearcat/internal/models"
)

// CreateJob persists a new background job record.
func (c *Client) CreateJob(ctx context.Context, id, jobType string, batchID, runID *string, total int) error {
	vars := map[string]any{
		"id":     id,
		"type":   jobType,
		"total":  total,
		"batch":  nil,
		"run":    nil,
		"status": "pending",
	}
	if batchID != nil {
		vars["batch"] = *batchID
	}
	if runID != nil {
		vars["run"] = *runID
	}

	_, err := query[any](ctx, c, `
		CREATE type::record("job", $id) CONTENT {
			job_type: $type,
			status: $status,
			batch_id: IF $batch != NONE THEN type::record("ingestion_batch", $batch) ELSE NONE END,
			run_id: IF $run != NONE THEN type::record("enrichment_run", $run) ELSE NONE END,
			total: $total
		}
	`, vars)
	if err != nil {
		return fmt.Errorf("create job: %w", wrapQueryError(err))
	}
	return nil
}

// UpdateJobProgress persists the current progress counter.
func (c *Client) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	_, err := query[any](ctx, c, `
		UPDATE type::record("job", $id) SET progress = $progress
	`, map[string]any{"id": id, "progress": progress})
	if err != nil {
		return fmt.Errorf("update job progress: %w", wrapQueryError(err))
	}
	return nil
}

// UpdateJobStatus persists a status change.
func (c *Client) UpdateJobStatus(ctx context.Context, id, status string) error {
	_, err := query[any](ctx, c, `
		UPDATE type::record("job", $id) SET status = $status
	`, map[string]any{"id": id, "status": status})
	if err != nil {
		return fmt.Errorf("update job status: %w", wrapQueryError(err))
	}
	return nil
}

// CompleteJob marks a job completed with its result summary.
func (c *Client) CompleteJob(ctx context.Context, id string, result map[string]any) error {
	_, err := query[any](ctx, c, `
		UPDATE type::record("job", $id) SET
			status = "completed",
			result = $result,
			completed_at = $now
	`, map[string]any{"id": id, "result": result, "now": time.Now()})
	if err != nil {
		return fmt.Errorf("complete job: %w", wrapQueryError(err))
	}
	return nil
}

// FailJob marks a job failed with the error message.
func (c *Client) FailJob(ctx context.Context, id, errMsg string) error {
	_, err := query[any](ctx, c, `
		UPDATE type::record("job", $id) SET
			status = "failed",
			error = $error,
			completed_at = $now
	`, map[string]any{"id": id, "error": errMsg, "now": time.Now()})
	if err != nil {
		return fmt.Errorf("fail job: %w", wrapQueryError(err))
	}
	return nil
}

// GetIncompleteJobs returns jobs that were pending or running when the
// process last stopped, oldest first.
func (c *Client) GetIncompleteJobs(ctx context.Context) ([]models.PersistedJob, error) {
	results, err := query[[]models.PersistedJob](ctx, c, `
		SELECT * FROM job
		WHERE status IN ["pending", "running"]
		ORDER BY started_at ASC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("get incomplete jobs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.PersistedJob{}, nil
	}
	return (*results)[0].Result, nil
}

// GetJob retrieves a persisted job by ID. Returns nil (no error) if absent.
func (c *Client) GetJob(ctx context.Context, id string) (*models.PersistedJob, error) {
	results, err := query[[]models.PersistedJob](ctx, c, `
		SELECT * FROM type::record("job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// ListJobs returns recent jobs, most recent first.
func (c *Client) ListJobs(ctx context.Context, limit int) ([]models.PersistedJob, error) {
	if limit <= 0 {
		limit = 50
	}
	results, err := query[[]models.PersistedJob](ctx, c, `
		SELECT * FROM job ORDER BY started_at DESC LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.PersistedJob{}, nil
	}
	return (*results)[0].Result, nil
}
