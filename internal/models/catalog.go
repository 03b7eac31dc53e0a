package models

import (
	"fmt"
	"strings"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// FacultyUnmapped is the sentinel faculty code assigned to items whose
// department does not resolve against the mapping table. Items are never
// left without a faculty.
const FacultyUnmapped = "UNMAPPED"

// Classification is the copyright assessment of a catalog item.
type Classification string

const (
	ClassificationUnanalyzed  Classification = "unanalyzed"
	ClassificationOwnWork     Classification = "own_work"
	ClassificationOpenLicense Classification = "open_license"
	ClassificationEasyAccess  Classification = "easy_access"
	ClassificationCited       Classification = "cited"
	ClassificationUnknown     Classification = "unknown"
)

// ParseClassification parses an accepted string form of Classification,
// case-insensitively.
func ParseClassification(s string) (Classification, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unanalyzed", "":
		return ClassificationUnanalyzed, nil
	case "own_work", "own work":
		return ClassificationOwnWork, nil
	case "open_license", "open license", "open access":
		return ClassificationOpenLicense, nil
	case "easy_access", "easy access":
		return ClassificationEasyAccess, nil
	case "cited", "citation":
		return ClassificationCited, nil
	case "unknown":
		return ClassificationUnknown, nil
	default:
		return "", fmt.Errorf("unknown classification: %q", s)
	}
}

// WorkflowStatus tracks where an item sits in the faculty review workflow.
type WorkflowStatus string

const (
	WorkflowInbox      WorkflowStatus = "inbox"
	WorkflowInProgress WorkflowStatus = "in_progress"
	WorkflowDone       WorkflowStatus = "done"
)

// ParseWorkflowStatus parses an accepted string form of WorkflowStatus.
func ParseWorkflowStatus(s string) (WorkflowStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inbox", "new":
		return WorkflowInbox, nil
	case "in_progress", "in progress", "in-progress":
		return WorkflowInProgress, nil
	case "done", "closed", "afgehandeld":
		return WorkflowDone, nil
	default:
		return "", fmt.Errorf("unknown workflow status: %q", s)
	}
}

// EnrichmentStatus is the per-item enrichment state machine.
type EnrichmentStatus string

const (
	EnrichmentPending   EnrichmentStatus = "pending"
	EnrichmentRunning   EnrichmentStatus = "running"
	EnrichmentCompleted EnrichmentStatus = "completed"
	EnrichmentFailed    EnrichmentStatus = "failed"
)

// ParseEnrichmentStatus parses an accepted string form of EnrichmentStatus.
func ParseEnrichmentStatus(s string) (EnrichmentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "":
		return EnrichmentPending, nil
	case "running":
		return EnrichmentRunning, nil
	case "completed":
		return EnrichmentCompleted, nil
	case "failed":
		return EnrichmentFailed, nil
	default:
		return "", fmt.Errorf("unknown enrichment status: %q", s)
	}
}

// CatalogItem is one compliance record, uniquely keyed by the material id
// assigned by the source registry. The material id is immutable once created.
type CatalogItem struct {
	ID         surrealmodels.RecordID `json:"id,omitempty"`
	MaterialID int                    `json:"material_id"`

	Title      string `json:"title"`
	Filename   string `json:"filename,omitempty"`
	Department string `json:"department,omitempty"`
	// FacultyCode is derived from Department via the mapping table;
	// FacultyUnmapped when the department does not resolve.
	FacultyCode string `json:"faculty_code"`

	CourseCode   string `json:"course_code,omitempty"`
	LecturerName string `json:"lecturer_name,omitempty"`
	FileURL      string `json:"file_url,omitempty"`
	AcademicYear string `json:"academic_year,omitempty"`

	Classification Classification `json:"classification"`
	WorkflowStatus WorkflowStatus `json:"workflow_status"`

	// Enrichment-owned fields. Never written by reconciliation.
	EnrichmentStatus         EnrichmentStatus        `json:"enrichment_status"`
	EnrichmentStartedAt      *time.Time              `json:"enrichment_started_at,omitempty"`
	CourseID                 *surrealmodels.RecordID `json:"course_id,omitempty"`
	LecturerID               *surrealmodels.RecordID `json:"lecturer_id,omitempty"`
	StudentCount             *int                    `json:"student_count,omitempty"`
	FileExists               *bool                   `json:"file_exists,omitempty"`
	FileCheckedAt            *time.Time              `json:"file_checked_at,omitempty"`
	DocumentKey              *string                 `json:"document_key,omitempty"`
	DocumentPages            *int                    `json:"document_pages,omitempty"`
	TextQuality              *float64                `json:"text_quality,omitempty"`
	ClassificationSuggestion *string                 `json:"classification_suggestion,omitempty"`
	LastEnrichedAt           *time.Time              `json:"last_enriched_at,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ChangeSource tags the originating cause of a change-log entry.
type ChangeSource string

const (
	ChangeMigration ChangeSource = "migration"
	ChangeBatch     ChangeSource = "batch"
	ChangeManual    ChangeSource = "manual"
)

// ParseChangeSource parses an accepted string form of ChangeSource.
func ParseChangeSource(s string) (ChangeSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "migration":
		return ChangeMigration, nil
	case "batch":
		return ChangeBatch, nil
	case "manual":
		return ChangeManual, nil
	default:
		return "", fmt.Errorf("unknown change source: %q", s)
	}
}

// FieldDelta is one field-level change recorded in the change log.
type FieldDelta struct {
	Field string `json:"field"`
	Old   string `json:"old,omitempty"`
	New   string `json:"new,omitempty"`
}

// ChangeLogEntry is one append-only audit record of an effective catalog
// mutation. Entries are never edited or deleted.
type ChangeLogEntry struct {
	ID      surrealmodels.RecordID  `json:"id,omitempty"`
	ItemID  surrealmodels.RecordID  `json:"item_id"`
	Source  ChangeSource            `json:"source"`
	Summary string                  `json:"summary"`
	Deltas  []FieldDelta            `json:"deltas,omitempty"`
	BatchID *surrealmodels.RecordID `json:"batch_id,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}
