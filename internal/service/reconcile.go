package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmulder/clearcat/internal/cache"
	"github.com/jmulder/clearcat/internal/db"
	"github.com/jmulder/clearcat/internal/metrics"
	"github.com/jmulder/clearcat/internal/models"
	"github.com/jmulder/clearcat/internal/parser"
)

// maxRowErrors caps how many row-level error descriptions are stored on the
// batch record. The failed counter remains exact.
const maxRowErrors = 50

// maxConsecutiveFailures aborts the batch after this many storage failures in
// a row, such as an unreachable database. Broken row content never counts
// toward it: a batch where every row fails to parse still completes.
const maxConsecutiveFailures = 5

// storageErr marks a row failure caused by the database rather than by the
// row's own content. Only these count toward the consecutive-failure abort.
type storageErr struct{ err error }

func (e storageErr) Error() string { return e.err.Error() }
func (e storageErr) Unwrap() error { return e.err }

// ReconcileService diffs staged rows against the catalog and applies
// create/update decisions.
type ReconcileService struct {
	db         *db.Client
	faculty    *FacultyMapper
	dispatcher *Dispatcher
	cache      cache.Cache
	log        *slog.Logger
	mc         *metrics.Collector
}

// NewReconcileService creates a reconciliation service. cache may be nil.
func NewReconcileService(dbClient *db.Client, faculty *FacultyMapper, dispatcher *Dispatcher, c cache.Cache, log *slog.Logger, mc *metrics.Collector) *ReconcileService {
	return &ReconcileService{
		db:         dbClient,
		faculty:    faculty,
		dispatcher: dispatcher,
		cache:      c,
		log:        log,
		mc:         mc,
	}
}

// ProcessResult summarizes a reconciliation run. Every staged row lands in
// exactly one of the four counters.
type ProcessResult struct {
	Created   int
	Updated   int
	Skipped   int
	Failed    int
	RowErrors []string
}

// Process reconciles all staged rows of a batch against the catalog. Rows are
// handled in staging order, so a later row for the same material id wins.
// Row-level failures increment the failed counter and continue; a systemic
// failure aborts the batch and moves it to FAILED.
func (s *ReconcileService) Process(ctx context.Context, batchID string, progress func(current, total int)) (*ProcessResult, error) {
	start := time.Now()
	defer func() {
		if s.mc != nil {
			s.mc.RecordTiming(metrics.OpReconcile, time.Since(start))
		}
	}()

	batch, err := s.db.MarkBatchProcessing(ctx, batchID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.ListStagedItems(ctx, batchID)
	if err != nil {
		s.abort(ctx, batchID, err)
		return nil, err
	}

	var (
		result      ProcessResult
		consecutive int
		tags        = map[string]struct{}{}
		events      []ItemChanged
	)

	for i, row := range rows {
		if ctx.Err() != nil {
			s.abort(ctx, batchID, ctx.Err())
			return nil, ctx.Err()
		}
		if progress != nil {
			progress(i+1, len(rows))
		}

		outcome, ev, itemTags, rowErr := s.reconcileRow(ctx, batchID, batch.SourceKind, row)
		if rowErr != nil {
			result.Failed++
			if len(result.RowErrors) < maxRowErrors {
				result.RowErrors = append(result.RowErrors, fmt.Sprintf("row %d: %v", row.Seq, rowErr))
			}
			s.log.Warn("row failed", "batch_id", batchID, "seq", row.Seq, "error", rowErr)

			var se storageErr
			if errors.As(rowErr, &se) {
				consecutive++
				if consecutive >= maxConsecutiveFailures {
					err := fmt.Errorf("aborting after %d consecutive storage failures, last: %w", consecutive, rowErr)
					s.abort(ctx, batchID, err)
					return nil, err
				}
			}
			continue
		}
		consecutive = 0

		switch outcome {
		case rowCreated:
			result.Created++
		case rowUpdated:
			result.Updated++
		case rowSkipped:
			result.Skipped++
		}
		if ev != nil {
			events = append(events, *ev)
		}
		for _, t := range itemTags {
			tags[t] = struct{}{}
		}
	}

	if _, err := s.db.CompleteBatch(ctx, batchID, result.Created, result.Updated, result.Skipped, result.Failed, result.RowErrors); err != nil {
		return nil, err
	}

	if len(tags) > 0 {
		all := make([]string, 0, len(tags)+1)
		all = append(all, cache.TagCatalog)
		for t := range tags {
			all = append(all, t)
		}
		cache.Invalidate(ctx, s.cache, all...)
	}

	// Fire-and-forget: enrichment decides on its own whether to act.
	for _, ev := range events {
		s.dispatcher.Publish(ev)
	}

	s.log.Info("batch processed", "batch_id", batchID,
		"created", result.Created, "updated", result.Updated,
		"skipped", result.Skipped, "failed", result.Failed)
	return &result, nil
}

type rowOutcome int

const (
	rowCreated rowOutcome = iota
	rowUpdated
	rowSkipped
)

func (s *ReconcileService) reconcileRow(ctx context.Context, batchID string, kind models.SourceKind, row models.StagedItem) (rowOutcome, *ItemChanged, []string, error) {
	materialID, err := parser.ExtractMaterialID(row.Payload)
	if err != nil {
		return 0, nil, nil, err
	}

	fields, err := parser.MapRow(kind, row.Payload)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("material %d: %w", materialID, err)
	}
	facultyCode := s.faculty.Resolve(fields.Department)

	existing, err := s.db.GetItemByMaterialID(ctx, materialID)
	if err != nil {
		return 0, nil, nil, storageErr{err}
	}

	if existing == nil {
		content := buildItemContent(fields, facultyCode)
		deltas := contentDeltas(content)
		item, err := s.db.CreateItemWithLog(ctx, content, db.ChangeLogInput{
			Source:  models.ChangeBatch,
			Summary: fmt.Sprintf("created from batch %s", batchID),
			Deltas:  deltas,
			BatchID: &batchID,
		})
		if err != nil {
			return 0, nil, nil, storageErr{fmt.Errorf("material %d: %w", materialID, err)}
		}
		itemID, err := models.RecordIDString(item.ID)
		if err != nil {
			return 0, nil, nil, err
		}
		ev := &ItemChanged{ItemID: itemID, MaterialID: materialID, Created: true}
		return rowCreated, ev, []string{cache.TagFaculty(facultyCode)}, nil
	}

	diff, deltas := diffItem(existing, fields, facultyCode)
	if len(diff) == 0 {
		return rowSkipped, nil, nil, nil
	}

	itemID, err := models.RecordIDString(existing.ID)
	if err != nil {
		return 0, nil, nil, err
	}
	if _, err := s.db.UpdateItemWithLog(ctx, itemID, diff, db.ChangeLogInput{
		Source:  models.ChangeBatch,
		Summary: fmt.Sprintf("updated from batch %s (%d fields)", batchID, len(deltas)),
		Deltas:  deltas,
		BatchID: &batchID,
	}); err != nil {
		return 0, nil, nil, storageErr{fmt.Errorf("material %d: %w", materialID, err)}
	}

	itemTags := []string{cache.TagFaculty(facultyCode)}
	if existing.FacultyCode != facultyCode {
		itemTags = append(itemTags, cache.TagFaculty(existing.FacultyCode))
	}
	ev := &ItemChanged{ItemID: itemID, MaterialID: materialID, Created: false}
	return rowUpdated, ev, itemTags, nil
}

// buildItemContent assembles the document for a newly created catalog item.
func buildItemContent(f parser.ItemFields, facultyCode string) map[string]any {
	content := map[string]any{
		"material_id":       f.MaterialID,
		"title":             f.Title,
		"filename":          f.Filename,
		"department":        f.Department,
		"faculty_code":      facultyCode,
		"course_code":       f.CourseCode,
		"lecturer_name":     f.LecturerName,
		"file_url":          f.FileURL,
		"academic_year":     f.AcademicYear,
		"classification":    string(models.ClassificationUnanalyzed),
		"workflow_status":   string(models.WorkflowInbox),
		"enrichment_status": string(models.EnrichmentPending),
	}
	if f.Workflow != nil {
		content["workflow_status"] = string(*f.Workflow)
	}
	return content
}

// contentDeltas records the non-empty initial values of a created item.
func contentDeltas(content map[string]any) []models.FieldDelta {
	var deltas []models.FieldDelta
	for _, field := range []string{"title", "filename", "department", "faculty_code", "course_code", "lecturer_name", "file_url", "academic_year"} {
		if v, ok := content[field].(string); ok && v != "" {
			deltas = append(deltas, models.FieldDelta{Field: field, New: v})
		}
	}
	return deltas
}

// diffItem computes the field-level diff between a staged row and an existing
// item, restricted to the fields ingestion owns. Enrichment-owned fields
// (enrichment_status, file_exists, student_count, ...) and classification are
// never touched, so a batch cannot silently undo manual or enriched state.
// workflow_status is owned only when the row carries one, which only faculty
// workflow sheets do.
func diffItem(existing *models.CatalogItem, f parser.ItemFields, facultyCode string) (map[string]any, []models.FieldDelta) {
	diff := map[string]any{}
	var deltas []models.FieldDelta

	set := func(field, oldVal, newVal string) {
		diff[field] = newVal
		deltas = append(deltas, models.FieldDelta{Field: field, Old: oldVal, New: newVal})
	}

	if f.Title != "" && f.Title != existing.Title {
		set("title", existing.Title, f.Title)
	}
	if f.Filename != "" && f.Filename != existing.Filename {
		set("filename", existing.Filename, f.Filename)
	}
	if f.Department != "" && f.Department != existing.Department {
		set("department", existing.Department, f.Department)
	}
	if f.Department != "" && facultyCode != existing.FacultyCode {
		set("faculty_code", existing.FacultyCode, facultyCode)
	}
	if f.CourseCode != "" && f.CourseCode != existing.CourseCode {
		set("course_code", existing.CourseCode, f.CourseCode)
	}
	if f.LecturerName != "" && f.LecturerName != existing.LecturerName {
		set("lecturer_name", existing.LecturerName, f.LecturerName)
	}
	if f.FileURL != "" && f.FileURL != existing.FileURL {
		set("file_url", existing.FileURL, f.FileURL)
	}
	if f.AcademicYear != "" && f.AcademicYear != existing.AcademicYear {
		set("academic_year", existing.AcademicYear, f.AcademicYear)
	}
	if f.Workflow != nil && *f.Workflow != existing.WorkflowStatus {
		set("workflow_status", string(existing.WorkflowStatus), string(*f.Workflow))
	}

	return diff, deltas
}

func (s *ReconcileService) abort(ctx context.Context, batchID string, cause error) {
	if _, err := s.db.FailBatch(ctx, batchID, cause.Error()); err != nil {
		s.log.Error("failed to mark batch failed", "batch_id", batchID, "error", err)
	}
}

// VerifyResult is the outcome of the read-only batch consistency check.
type VerifyResult struct {
	Consistent bool
	Problems   []string

	RowsStaged int
	Accounted  int
	LogEntries int
	Mutations  int
}

// Verify compares a completed batch's counters against the staged row count
// and its attributed change-log entries. Read-only; it never mutates state.
func (s *ReconcileService) Verify(ctx context.Context, batchID string) (*VerifyResult, error) {
	batch, err := s.db.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != models.BatchCompleted {
		return nil, fmt.Errorf("batch %s is %s, expected %s", batchID, batch.Status, models.BatchCompleted)
	}

	logCount, err := s.db.CountBatchChanges(ctx, batchID)
	if err != nil {
		return nil, err
	}

	res := &VerifyResult{
		RowsStaged: batch.RowsStaged,
		Accounted:  batch.Created + batch.Updated + batch.Skipped + batch.Failed,
		LogEntries: logCount,
		Mutations:  batch.Created + batch.Updated,
	}

	if res.Accounted != res.RowsStaged {
		res.Problems = append(res.Problems, fmt.Sprintf(
			"counter sum %d does not match rows_staged %d", res.Accounted, res.RowsStaged))
	}
	if res.LogEntries != res.Mutations {
		res.Problems = append(res.Problems, fmt.Sprintf(
			"change-log entries %d do not match created+updated %d", res.LogEntries, res.Mutations))
	}

	res.Consistent = len(res.Problems) == 0
	return res, nil
}
