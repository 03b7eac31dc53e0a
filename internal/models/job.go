package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// PersistedJob is the stored form of a background job, used to resume
// incomplete work after a restart.
type PersistedJob struct {
	ID          surrealmodels.RecordID  `json:"id,omitempty"`
	JobType     string                  `json:"job_type"`
	Status      string                  `json:"status"`
	BatchID     *surrealmodels.RecordID `json:"batch_id,omitempty"`
	RunID       *surrealmodels.RecordID `json:"run_id,omitempty"`
	Progress    int                     `json:"progress"`
	Total       int                     `json:"total"`
	Result      map[string]any          `json:"result,omitempty"`
	Error       *string                 `json:"error,omitempty"`
	StartedAt   time.Time               `json:"started_at,omitempty"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
}
