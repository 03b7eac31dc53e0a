// Package db provides SurrealDB query functions for batch operations.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmulder/clearcat/internal/models"
)

// CreateBatch registers a new ingestion batch in UPLOADED state.
func (c *Client) CreateBatch(ctx context.Context, kind models.SourceKind, sourceFile, uploadedBy string) (*models.IngestionBatch, error) {
	results, err := query[[]models.IngestionBatch](ctx, c, `
		CREATE ingestion_batch CONTENT {
			source_kind: $kind,
			source_file: $file,
			uploaded_by: $by,
			status: "uploaded"
		}
	`, map[string]any{"kind": string(kind), "file": sourceFile, "by": uploadedBy})
	if err != nil {
		return nil, fmt.Errorf("create batch: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create batch: empty result")
	}
	return &(*results)[0].Result[0], nil
}

// GetBatch retrieves a batch by ID. Returns ErrNotFound if it does not exist.
func (c *Client) GetBatch(ctx context.Context, id string) (*models.IngestionBatch, error) {
	results, err := query[[]models.IngestionBatch](ctx, c, `
		SELECT * FROM type::record("ingestion_batch", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// ListBatches returns batches, most recent first.
func (c *Client) ListBatches(ctx context.Context, limit int) ([]models.IngestionBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	results, err := query[[]models.IngestionBatch](ctx, c, `
		SELECT * FROM ingestion_batch ORDER BY created_at DESC LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.IngestionBatch{}, nil
	}
	return (*results)[0].Result, nil
}

// transitionBatch applies a guarded status transition. The WHERE clause makes
// the check atomic with the update so two workers cannot both move the batch.
// extra fields are merged into the same UPDATE statement.
func (c *Client) transitionBatch(ctx context.Context, id string, from []models.BatchStatus, to models.BatchStatus, extra map[string]any) (*models.IngestionBatch, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	vars := map[string]any{
		"id":   id,
		"to":   string(to),
		"from": fromStrs,
	}
	set := `status = $to`
	for k, v := range extra {
		set += fmt.Sprintf(", %s = $%s", k, k)
		vars[k] = v
	}

	sql := fmt.Sprintf(`
		UPDATE type::record("ingestion_batch", $id)
		SET %s
		WHERE status IN $from
		RETURN AFTER
	`, set)

	results, err := query[[]models.IngestionBatch](ctx, c, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("transition batch to %s: %w", to, wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("batch %s to %s: %w", id, to, ErrInvalidTransition)
	}
	return &(*results)[0].Result[0], nil
}

// MarkBatchStaged transitions UPLOADED -> STAGED recording the staged row count.
func (c *Client) MarkBatchStaged(ctx context.Context, id string, rowsStaged int) (*models.IngestionBatch, error) {
	return c.transitionBatch(ctx, id, []models.BatchStatus{models.BatchUploaded}, models.BatchStaged, map[string]any{
		"rows_staged": rowsStaged,
		"total_rows":  rowsStaged,
	})
}

// MarkBatchProcessing transitions STAGED -> PROCESSING stamping started_at.
func (c *Client) MarkBatchProcessing(ctx context.Context, id string) (*models.IngestionBatch, error) {
	return c.transitionBatch(ctx, id, []models.BatchStatus{models.BatchStaged}, models.BatchProcessing, map[string]any{
		"started_at": time.Now(),
	})
}

// CompleteBatch transitions PROCESSING -> COMPLETED with the final counters.
// Partial success is a valid terminal state; even all-rows-failed completes,
// distinguished by the failed counter.
func (c *Client) CompleteBatch(ctx context.Context, id string, created, updated, skipped, failed int, rowErrors []string) (*models.IngestionBatch, error) {
	if rowErrors == nil {
		rowErrors = []string{}
	}
	return c.transitionBatch(ctx, id, []models.BatchStatus{models.BatchProcessing}, models.BatchCompleted, map[string]any{
		"items_created": created,
		"items_updated": updated,
		"items_skipped": skipped,
		"items_failed":  failed,
		"row_errors":    rowErrors,
		"finished_at":   time.Now(),
	})
}

// FailBatch moves any non-terminal batch to FAILED with a descriptive error.
func (c *Client) FailBatch(ctx context.Context, id string, errMsg string) (*models.IngestionBatch, error) {
	return c.transitionBatch(ctx, id,
		[]models.BatchStatus{models.BatchUploaded, models.BatchStaged, models.BatchProcessing},
		models.BatchFailed, map[string]any{
			"error":       errMsg,
			"finished_at": time.Now(),
		})
}

// BulkInsertStagedItems inserts one staged_item per row inside a single
// transaction. The insert is all-or-nothing for the batch.
func (c *Client) BulkInsertStagedItems(ctx context.Context, batchID string, rows []map[string]any) error {
	payload := make([]map[string]any, len(rows))
	for i, row := range rows {
		payload[i] = map[string]any{"seq": i, "payload": row}
	}

	_, err := query[any](ctx, c, `
		BEGIN;
		FOR $row IN $rows {
			CREATE staged_item CONTENT {
				batch_id: type::record("ingestion_batch", $batch),
				seq: $row.seq,
				payload: $row.payload
			};
		};
		COMMIT;
	`, map[string]any{"batch": batchID, "rows": payload})
	if err != nil {
		return fmt.Errorf("bulk insert staged items: %w", wrapQueryError(err))
	}
	return nil
}

// ListStagedItems returns all staged rows for a batch in insertion order.
func (c *Client) ListStagedItems(ctx context.Context, batchID string) ([]models.StagedItem, error) {
	results, err := query[[]models.StagedItem](ctx, c, `
		SELECT * FROM staged_item
		WHERE batch_id = type::record("ingestion_batch", $batch)
		ORDER BY seq ASC
	`, map[string]any{"batch": batchID})
	if err != nil {
		return nil, fmt.Errorf("list staged items: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.StagedItem{}, nil
	}
	return (*results)[0].Result, nil
}
