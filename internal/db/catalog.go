// Package db provides SurrealDB query functions for catalog operations.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmulder/clearcat/internal/models"
)

// GetItemByMaterialID looks up a catalog item by its natural identifier.
// Returns nil (no error) if absent.
func (c *Client) GetItemByMaterialID(ctx context.Context, materialID int) (*models.CatalogItem, error) {
	results, err := query[[]models.CatalogItem](ctx, c, `
		SELECT * FROM catalog_item WHERE material_id = $mid
	`, map[string]any{"mid": materialID})
	if err != nil {
		return nil, fmt.Errorf("get item by material id: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// GetItem retrieves a catalog item by record ID. Returns ErrNotFound if absent.
func (c *Client) GetItem(ctx context.Context, id string) (*models.CatalogItem, error) {
	results, err := query[[]models.CatalogItem](ctx, c, `
		SELECT * FROM type::record("catalog_item", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("catalog item %s: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// ChangeLogInput carries the audit entry written together with a catalog
// mutation.
type ChangeLogInput struct {
	Source  models.ChangeSource
	Summary string
	Deltas  []models.FieldDelta
	BatchID *string
}

func (in ChangeLogInput) vars() map[string]any {
	deltas := make([]map[string]any, 0, len(in.Deltas))
	for _, d := range in.Deltas {
		deltas = append(deltas, map[string]any{"field": d.Field, "old": d.Old, "new": d.New})
	}
	return map[string]any{
		"source":  string(in.Source),
		"summary": in.Summary,
		"deltas":  deltas,
		"batch":   in.BatchID,
	}
}

// CreateItemWithLog creates a catalog item and its change-log entry in a
// single transaction so a partial failure never leaves the audit log
// inconsistent with the catalog.
func (c *Client) CreateItemWithLog(ctx context.Context, content map[string]any, log ChangeLogInput) (*models.CatalogItem, error) {
	vars := log.vars()
	vars["content"] = content

	_, err := query[any](ctx, c, `
		BEGIN;
		LET $item = (CREATE ONLY catalog_item CONTENT $content);
		CREATE change_log CONTENT {
			item_id: $item.id,
			source: $source,
			summary: $summary,
			deltas: $deltas,
			batch_id: IF $batch != NONE THEN type::record("ingestion_batch", $batch) ELSE NONE END
		};
		COMMIT;
	`, vars)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", wrapQueryError(err))
	}

	mid, ok := content["material_id"].(int)
	if !ok {
		return nil, fmt.Errorf("create item: content missing material_id")
	}
	item, err := c.GetItemByMaterialID(ctx, mid)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("create item %d: %w", mid, ErrNotFound)
	}
	return item, nil
}

// UpdateItemWithLog applies a field-level diff to a catalog item and appends
// its change-log entry in the same transaction.
func (c *Client) UpdateItemWithLog(ctx context.Context, itemID string, fields map[string]any, log ChangeLogInput) (*models.CatalogItem, error) {
	merge := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		merge[k] = v
	}
	merge["updated_at"] = time.Now()

	vars := log.vars()
	vars["id"] = itemID
	vars["fields"] = merge

	_, err := query[any](ctx, c, `
		BEGIN;
		UPDATE type::record("catalog_item", $id) MERGE $fields;
		CREATE change_log CONTENT {
			item_id: type::record("catalog_item", $id),
			source: $source,
			summary: $summary,
			deltas: $deltas,
			batch_id: IF $batch != NONE THEN type::record("ingestion_batch", $batch) ELSE NONE END
		};
		COMMIT;
	`, vars)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", wrapQueryError(err))
	}

	return c.GetItem(ctx, itemID)
}

// ListItemChanges returns the change history for an item, oldest first.
func (c *Client) ListItemChanges(ctx context.Context, itemID string) ([]models.ChangeLogEntry, error) {
	results, err := query[[]models.ChangeLogEntry](ctx, c, `
		SELECT * FROM change_log
		WHERE item_id = type::record("catalog_item", $id)
		ORDER BY created_at ASC
	`, map[string]any{"id": itemID})
	if err != nil {
		return nil, fmt.Errorf("list item changes: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.ChangeLogEntry{}, nil
	}
	return (*results)[0].Result, nil
}

// countResult is the shape of a GROUP ALL count() query.
type countResult struct {
	Count int `json:"count"`
}

// CountBatchChanges counts change-log entries attributed to a batch.
func (c *Client) CountBatchChanges(ctx context.Context, batchID string) (int, error) {
	results, err := query[[]countResult](ctx, c, `
		SELECT count() FROM change_log
		WHERE batch_id = type::record("ingestion_batch", $batch)
		GROUP ALL
	`, map[string]any{"batch": batchID})
	if err != nil {
		return 0, fmt.Errorf("count batch changes: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

// CountItems returns the total number of catalog items.
func (c *Client) CountItems(ctx context.Context) (int, error) {
	results, err := query[[]countResult](ctx, c, `
		SELECT count() FROM catalog_item GROUP ALL
	`, nil)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

// FacultyCount represents a faculty with its item count.
type FacultyCount struct {
	FacultyCode string `json:"faculty_code"`
	Count       int    `json:"count"`
}

// CountItemsByFaculty returns per-faculty item counts, largest first.
func (c *Client) CountItemsByFaculty(ctx context.Context) ([]FacultyCount, error) {
	results, err := query[[]FacultyCount](ctx, c, `
		SELECT faculty_code, count() AS count FROM catalog_item
		GROUP BY faculty_code ORDER BY count DESC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("count items by faculty: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []FacultyCount{}, nil
	}
	return (*results)[0].Result, nil
}

// StatusCount represents an enrichment status with its item count.
type StatusCount struct {
	EnrichmentStatus string `json:"enrichment_status"`
	Count            int    `json:"count"`
}

// CountItemsByEnrichmentStatus returns per-status item counts.
func (c *Client) CountItemsByEnrichmentStatus(ctx context.Context) ([]StatusCount, error) {
	results, err := query[[]StatusCount](ctx, c, `
		SELECT enrichment_status, count() AS count FROM catalog_item
		GROUP BY enrichment_status ORDER BY count DESC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("count items by enrichment status: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []StatusCount{}, nil
	}
	return (*results)[0].Result, nil
}

// ClassificationCount represents a classification with its item count.
type ClassificationCount struct {
	Classification string `json:"classification"`
	Count          int    `json:"count"`
}

// CountItemsByClassification returns per-classification item counts.
func (c *Client) CountItemsByClassification(ctx context.Context) ([]ClassificationCount, error) {
	results, err := query[[]ClassificationCount](ctx, c, `
		SELECT classification, count() AS count FROM catalog_item
		GROUP BY classification ORDER BY count DESC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("count items by classification: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []ClassificationCount{}, nil
	}
	return (*results)[0].Result, nil
}
