// Package models defines data structures for the clearcat compliance catalog.
package models

import (
	"fmt"
	"strings"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// BatchStatus is the lifecycle state of an ingestion batch.
type BatchStatus string

const (
	BatchUploaded   BatchStatus = "uploaded"
	BatchStaged     BatchStatus = "staged"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// ParseBatchStatus parses an accepted string form of BatchStatus,
// case-insensitively. Unknown values return an error.
func ParseBatchStatus(s string) (BatchStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uploaded":
		return BatchUploaded, nil
	case "staged":
		return BatchStaged, nil
	case "processing":
		return BatchProcessing, nil
	case "completed":
		return BatchCompleted, nil
	case "failed":
		return BatchFailed, nil
	default:
		return "", fmt.Errorf("unknown batch status: %q", s)
	}
}

// Terminal reports whether the status allows no further transitions.
func (s BatchStatus) Terminal() bool {
	return s == BatchCompleted || s == BatchFailed
}

// CanTransitionTo reports whether the forward-only lifecycle allows moving
// from s to next. FAILED is reachable from any non-terminal state.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == BatchFailed {
		return true
	}
	switch s {
	case BatchUploaded:
		return next == BatchStaged
	case BatchStaged:
		return next == BatchProcessing
	case BatchProcessing:
		return next == BatchCompleted
	default:
		return false
	}
}

// SourceKind identifies the spreadsheet format of an ingestion batch.
type SourceKind string

const (
	// SourceRegistry is the wide per-material-id export from the course
	// material registry.
	SourceRegistry SourceKind = "registry_export"
	// SourceWorkflow is the narrower per-faculty workflow sheet with
	// inbox/in-progress/done tabs.
	SourceWorkflow SourceKind = "faculty_workflow"
)

// ParseSourceKind parses an accepted string form of SourceKind. Unknown
// kinds are rejected at the boundary, not deep in reconciliation.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "registry_export", "registry", "registry-export":
		return SourceRegistry, nil
	case "faculty_workflow", "workflow", "faculty-workflow":
		return SourceWorkflow, nil
	default:
		return "", fmt.Errorf("unknown source kind: %q", s)
	}
}

// IngestionBatch is one ingestion attempt of a source file. Batches are
// never deleted; they double as the audit record of what was ingested when.
type IngestionBatch struct {
	ID         surrealmodels.RecordID `json:"id,omitempty"`
	SourceKind SourceKind             `json:"source_kind"`
	SourceFile string                 `json:"source_file"`
	UploadedBy string                 `json:"uploaded_by,omitempty"`
	Status     BatchStatus            `json:"status"`

	TotalRows  int `json:"total_rows"`
	RowsStaged int `json:"rows_staged"`
	Created    int `json:"items_created"`
	Updated    int `json:"items_updated"`
	Skipped    int `json:"items_skipped"`
	Failed     int `json:"items_failed"`

	// Row-level error descriptions, capped by the reconciler.
	RowErrors []string `json:"row_errors,omitempty"`
	Error     *string  `json:"error,omitempty"`

	CreatedAt  time.Time  `json:"created_at,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StagedItem is one raw row exactly as extracted from a source file, tagged
// with its batch. Read-only after staging; retained for replay.
type StagedItem struct {
	ID      surrealmodels.RecordID `json:"id,omitempty"`
	BatchID surrealmodels.RecordID `json:"batch_id"`
	// Seq preserves insertion order within the batch. Order is not
	// semantically significant but must be stable for reproducible logs
	// and for the last-write-wins tie-break.
	Seq     int            `json:"seq"`
	Payload map[string]any `json:"payload"`
}
