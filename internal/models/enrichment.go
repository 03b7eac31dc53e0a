package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// EnrichmentRun tracks one enrichment trigger, either a single item or a
// bulk run over many items.
type EnrichmentRun struct {
	ID        surrealmodels.RecordID `json:"id,omitempty"`
	Total     int                    `json:"total"`
	StartedAt time.Time              `json:"started_at,omitempty"`
}

// EnrichmentResult is the per-item outcome within an enrichment run. It is
// created pending before any work is enqueued so a crashed run leaves an
// accountable trace.
type EnrichmentResult struct {
	ID        surrealmodels.RecordID `json:"id,omitempty"`
	RunID     surrealmodels.RecordID `json:"run_id"`
	ItemID    surrealmodels.RecordID `json:"item_id"`
	Status    EnrichmentStatus       `json:"status"`
	Error     *string                `json:"error,omitempty"`
	CreatedAt time.Time              `json:"created_at,omitempty"`
}

// Course is a record fetched from the external course registry.
type Course struct {
	ID           surrealmodels.RecordID `json:"id,omitempty"`
	Code         string                 `json:"code"`
	Name         string                 `json:"name"`
	Faculty      string                 `json:"faculty,omitempty"`
	StudentCount int                    `json:"student_count"`
	AcademicYear string                 `json:"academic_year,omitempty"`
	FetchedAt    time.Time              `json:"fetched_at,omitempty"`
}

// Person is a record fetched from the personnel directory.
type Person struct {
	ID         surrealmodels.RecordID `json:"id,omitempty"`
	Name       string                 `json:"name"`
	Email      string                 `json:"email,omitempty"`
	Department string                 `json:"department,omitempty"`
	FetchedAt  time.Time              `json:"fetched_at,omitempty"`
}
