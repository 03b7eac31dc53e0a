// Package db provides SurrealDB query functions for enrichment state.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmulder/clearcat/internal/models"
)

// CreateEnrichmentRun records a new enrichment trigger covering total items.
func (c *Client) CreateEnrichmentRun(ctx context.Context, total int) (*models.EnrichmentRun, error) {
	results, err := query[[]models.EnrichmentRun](ctx, c, `
		CREATE enrichment_run CONTENT { total: $total }
	`, map[string]any{"total": total})
	if err != nil {
		return nil, fmt.Errorf("create enrichment run: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create enrichment run: empty result")
	}
	return &(*results)[0].Result[0], nil
}

// CreateEnrichmentResult records a pending per-item result within a run.
// Created before any work is enqueued so a crashed run leaves a trace.
func (c *Client) CreateEnrichmentResult(ctx context.Context, runID, itemID string) (*models.EnrichmentResult, error) {
	results, err := query[[]models.EnrichmentResult](ctx, c, `
		CREATE enrichment_result CONTENT {
			run_id: type::record("enrichment_run", $run),
			item_id: type::record("catalog_item", $item),
			status: "pending"
		}
	`, map[string]any{"run": runID, "item": itemID})
	if err != nil {
		return nil, fmt.Errorf("create enrichment result: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create enrichment result: empty result")
	}
	return &(*results)[0].Result[0], nil
}

// UpdateEnrichmentResult moves a per-item result to a new status with an
// optional error detail.
func (c *Client) UpdateEnrichmentResult(ctx context.Context, resultID string, status models.EnrichmentStatus, errMsg *string) error {
	_, err := query[any](ctx, c, `
		UPDATE type::record("enrichment_result", $id)
		SET status = $status, error = $error
	`, map[string]any{"id": resultID, "status": string(status), "error": errMsg})
	if err != nil {
		return fmt.Errorf("update enrichment result: %w", wrapQueryError(err))
	}
	return nil
}

// ClaimEnrichment atomically transitions an item to RUNNING. The state check
// is part of the UPDATE's WHERE clause, which is what upholds the
// at-most-one-concurrent invariant: of two concurrent claims exactly one sees
// a non-running item. An item stuck RUNNING longer than staleAfter is
// reclaimable (TTL recovery).
func (c *Client) ClaimEnrichment(ctx context.Context, itemID string, staleAfter time.Duration) (*models.CatalogItem, error) {
	staleBefore := time.Now().Add(-staleAfter)

	results, err := query[[]models.CatalogItem](ctx, c, `
		UPDATE type::record("catalog_item", $id)
		SET enrichment_status = "running", enrichment_started_at = time::now()
		WHERE enrichment_status != "running"
			OR enrichment_started_at = NONE
			OR enrichment_started_at < $stale_before
		RETURN AFTER
	`, map[string]any{"id": itemID, "stale_before": staleBefore})
	if err != nil {
		return nil, fmt.Errorf("claim enrichment: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("item %s: %w", itemID, ErrAlreadyRunning)
	}
	return &(*results)[0].Result[0], nil
}

// CompleteEnrichmentItem merges enrichment output into the item and marks it
// COMPLETED, stamping last_enriched_at.
func (c *Client) CompleteEnrichmentItem(ctx context.Context, itemID string, fields map[string]any) (*models.CatalogItem, error) {
	merge := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		merge[k] = v
	}
	merge["enrichment_status"] = string(models.EnrichmentCompleted)
	merge["last_enriched_at"] = time.Now()
	merge["updated_at"] = time.Now()

	results, err := query[[]models.CatalogItem](ctx, c, `
		UPDATE type::record("catalog_item", $id) MERGE $fields RETURN AFTER
	`, map[string]any{"id": itemID, "fields": merge})
	if err != nil {
		return nil, fmt.Errorf("complete enrichment: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("catalog item %s: %w", itemID, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// FailEnrichmentItem marks the item FAILED. Only used when an unrecoverable
// error escapes all sub-steps.
func (c *Client) FailEnrichmentItem(ctx context.Context, itemID string) error {
	_, err := query[any](ctx, c, `
		UPDATE type::record("catalog_item", $id)
		SET enrichment_status = "failed", updated_at = time::now()
	`, map[string]any{"id": itemID})
	if err != nil {
		return fmt.Errorf("fail enrichment: %w", wrapQueryError(err))
	}
	return nil
}

// ListEnrichmentCandidates returns items whose enrichment state makes them
// potential trigger targets: everything except items currently RUNNING within
// the TTL window. Stale RUNNING items stay eligible so a crashed worker's
// claim expires. The caller applies the full needs-enrichment decision.
func (c *Client) ListEnrichmentCandidates(ctx context.Context, staleAfter time.Duration, limit int) ([]models.CatalogItem, error) {
	if limit <= 0 {
		limit = 500
	}
	staleBefore := time.Now().Add(-staleAfter)

	results, err := query[[]models.CatalogItem](ctx, c, `
		SELECT * FROM catalog_item
		WHERE enrichment_status != "running"
			OR enrichment_started_at = NONE
			OR enrichment_started_at < $stale_before
		ORDER BY material_id ASC
		LIMIT $limit
	`, map[string]any{"limit": limit, "stale_before": staleBefore})
	if err != nil {
		return nil, fmt.Errorf("list enrichment candidates: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.CatalogItem{}, nil
	}
	return (*results)[0].Result, nil
}

// UpsertCourse stores a course registry record keyed by its lowercased code.
// The record-id derived key makes concurrent writes an atomic upsert.
func (c *Client) UpsertCourse(ctx context.Context, course models.Course) (*models.Course, error) {
	results, err := query[[]models.Course](ctx, c, `
		UPSERT type::thing("course", string::lowercase($code)) CONTENT {
			code: $code,
			name: $name,
			faculty: $faculty,
			student_count: $students,
			academic_year: $year,
			fetched_at: time::now()
		} RETURN AFTER
	`, map[string]any{
		"code":     course.Code,
		"name":     course.Name,
		"faculty":  course.Faculty,
		"students": course.StudentCount,
		"year":     course.AcademicYear,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert course: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("upsert course: empty result")
	}
	return &(*results)[0].Result[0], nil
}

// UpsertPerson stores a personnel directory record keyed by a slug of the name.
func (c *Client) UpsertPerson(ctx context.Context, person models.Person) (*models.Person, error) {
	results, err := query[[]models.Person](ctx, c, `
		UPSERT type::thing("person", string::slug($name)) CONTENT {
			name: $name,
			email: $email,
			department: $department,
			fetched_at: time::now()
		} RETURN AFTER
	`, map[string]any{
		"name":       person.Name,
		"email":      person.Email,
		"department": person.Department,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert person: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("upsert person: empty result")
	}
	return &(*results)[0].Result[0], nil
}
