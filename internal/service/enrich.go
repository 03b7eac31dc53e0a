package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jmulder/clearcat/internal/cache"
	"github.com/jmulder/clearcat/internal/db"
	"github.com/jmulder/clearcat/internal/llm"
	"github.com/jmulder/clearcat/internal/metrics"
	"github.com/jmulder/clearcat/internal/models"
	"github.com/jmulder/clearcat/internal/providers"
)

// EnrichService drives the per-item enrichment state machine. Each item moves
// PENDING -> RUNNING -> COMPLETED or FAILED; FAILED and stale COMPLETED items
// are eligible again. The RUNNING claim is an atomic conditional update in the
// database, so the same item is never enriched twice concurrently even across
// processes.
type EnrichService struct {
	db         *db.Client
	provider   providers.Provider
	classifier *llm.Classifier
	cache      cache.Cache
	log        *slog.Logger
	mc         *metrics.Collector

	concurrency  int
	runningTTL   time.Duration
	completedTTL time.Duration

	// sem bounds concurrent enrichment across bulk runs and event-driven
	// triggers together.
	sem chan struct{}

	// classifierDown is set after a fatal LLM API error (billing, auth).
	// Further items enrich without suggestions instead of repeating the
	// failing call.
	classifierDown atomic.Bool
}

// NewEnrichService creates the enrichment orchestrator. classifier and cache
// may be nil.
func NewEnrichService(dbClient *db.Client, provider providers.Provider, classifier *llm.Classifier, c cache.Cache, log *slog.Logger, mc *metrics.Collector, concurrency int, runningTTL, completedTTL time.Duration) *EnrichService {
	if concurrency <= 0 {
		concurrency = 4
	}
	if runningTTL <= 0 {
		runningTTL = 30 * time.Minute
	}
	return &EnrichService{
		db:           dbClient,
		provider:     provider,
		classifier:   classifier,
		cache:        c,
		log:          log,
		mc:           mc,
		concurrency:  concurrency,
		runningTTL:   runningTTL,
		completedTTL: completedTTL,
		sem:          make(chan struct{}, concurrency),
	}
}

// NeedsEnrichment decides whether an item should be (re-)enriched. RUNNING
// items are never re-triggered unless they exceeded the running TTL, which
// recovers items wedged by a crashed worker.
func NeedsEnrichment(item *models.CatalogItem, now time.Time, runningTTL, completedTTL time.Duration) bool {
	switch item.EnrichmentStatus {
	case models.EnrichmentRunning:
		if item.EnrichmentStartedAt == nil {
			return true
		}
		return now.Sub(*item.EnrichmentStartedAt) > runningTTL

	case models.EnrichmentFailed, models.EnrichmentPending:
		return true

	case models.EnrichmentCompleted:
		if item.CourseCode != "" && item.CourseID == nil {
			return true
		}
		if item.StudentCount == nil && item.CourseCode != "" {
			return true
		}
		if item.FileURL != "" && item.FileExists == nil {
			return true
		}
		if item.FileURL != "" && item.DocumentKey == nil {
			return true
		}
		if completedTTL > 0 && (item.LastEnrichedAt == nil || now.Sub(*item.LastEnrichedAt) > completedTTL) {
			return true
		}
		return false

	default:
		return true
	}
}

// EnrichResult aggregates the outcome of an enrichment run.
type EnrichResult struct {
	Total     int
	Completed int
	Failed    int
	Skipped   int
}

// RunBulk enriches every item that currently needs it. Run records are
// created before any work starts, so a crashed run leaves a trace, and items
// flip to RUNNING only inside the worker that claimed them.
func (s *EnrichService) RunBulk(ctx context.Context, progress func(current, total int)) (*EnrichResult, error) {
	candidates, err := s.db.ListEnrichmentCandidates(ctx, s.runningTTL, 0)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	targets := make([]models.CatalogItem, 0, len(candidates))
	for _, item := range candidates {
		if NeedsEnrichment(&item, now, s.runningTTL, s.completedTTL) {
			targets = append(targets, item)
		}
	}
	if len(targets) == 0 {
		s.log.Info("no items need enrichment")
		return &EnrichResult{}, nil
	}

	run, err := s.db.CreateEnrichmentRun(ctx, len(targets))
	if err != nil {
		return nil, err
	}
	runID, err := models.RecordIDString(run.ID)
	if err != nil {
		return nil, err
	}

	type target struct {
		itemID   string
		resultID string
	}
	work := make([]target, 0, len(targets))
	for _, item := range targets {
		itemID, err := models.RecordIDString(item.ID)
		if err != nil {
			return nil, err
		}
		res, err := s.db.CreateEnrichmentResult(ctx, runID, itemID)
		if err != nil {
			return nil, err
		}
		resultID, err := models.RecordIDString(res.ID)
		if err != nil {
			return nil, err
		}
		work = append(work, target{itemID: itemID, resultID: resultID})
	}

	s.log.Info("enrichment run started", "run_id", runID, "items", len(work), "concurrency", s.concurrency)

	var (
		completed atomic.Int32
		failed    atomic.Int32
		skipped   atomic.Int32
		done      atomic.Int32
	)

	workChan := make(chan target, len(work))
	var wg sync.WaitGroup
	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range workChan {
				if ctx.Err() != nil {
					return
				}
				switch s.enrichOne(ctx, t.itemID, t.resultID) {
				case enrichCompleted:
					completed.Add(1)
				case enrichFailed:
					failed.Add(1)
				case enrichSkipped:
					skipped.Add(1)
				}
				if progress != nil {
					progress(int(done.Add(1)), len(work))
				}
			}
		}()
	}
	for _, t := range work {
		workChan <- t
	}
	close(workChan)
	wg.Wait()

	result := &EnrichResult{
		Total:     len(work),
		Completed: int(completed.Load()),
		Failed:    int(failed.Load()),
		Skipped:   int(skipped.Load()),
	}
	s.log.Info("enrichment run finished", "run_id", runID,
		"completed", result.Completed, "failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

// ConsumeEvents reacts to item-changed notifications from reconciliation.
// Each qualifying item gets its own single-item run; the shared semaphore
// keeps total concurrency bounded. Blocks until ctx is done.
func (s *EnrichService) ConsumeEvents(ctx context.Context, events <-chan ItemChanged) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.TriggerItem(ctx, ev.ItemID); err != nil {
				s.log.Warn("enrichment trigger failed", "item_id", ev.ItemID, "error", err)
			}
		}
	}
}

// TriggerItem enriches one item asynchronously if it needs it. The run and
// result records are created before the work goroutine starts; a failure in
// record creation means nothing was enqueued and the item status is
// untouched.
func (s *EnrichService) TriggerItem(ctx context.Context, itemID string) error {
	item, err := s.db.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !NeedsEnrichment(item, time.Now(), s.runningTTL, s.completedTTL) {
		return nil
	}

	run, err := s.db.CreateEnrichmentRun(ctx, 1)
	if err != nil {
		return err
	}
	runID, err := models.RecordIDString(run.ID)
	if err != nil {
		return err
	}
	res, err := s.db.CreateEnrichmentResult(ctx, runID, itemID)
	if err != nil {
		return err
	}
	resultID, err := models.RecordIDString(res.ID)
	if err != nil {
		return err
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("enrichment goroutine panicked", "item_id", itemID, "panic", r)
			}
		}()
		s.enrichOne(context.Background(), itemID, resultID)
	}()
	return nil
}

type enrichOutcome int

const (
	enrichCompleted enrichOutcome = iota
	enrichFailed
	enrichSkipped
)

// enrichOne claims and enriches a single item. Sub-steps are independently
// best-effort: one provider failing does not stop the others, and the item
// completes with whatever data was gathered. The item only fails when the
// final catalog write itself fails.
func (s *EnrichService) enrichOne(ctx context.Context, itemID, resultID string) enrichOutcome {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	start := time.Now()
	defer func() {
		if s.mc != nil {
			s.mc.RecordTiming(metrics.OpEnrichment, time.Since(start))
		}
	}()

	item, err := s.db.ClaimEnrichment(ctx, itemID, s.runningTTL)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyRunning) {
			s.log.Debug("enrichment claim lost", "item_id", itemID)
			s.updateResult(ctx, resultID, models.EnrichmentFailed, strPtr("claim lost: enrichment already running"))
			return enrichSkipped
		}
		s.log.Warn("enrichment claim failed", "item_id", itemID, "error", err)
		s.updateResult(ctx, resultID, models.EnrichmentFailed, strPtr(err.Error()))
		return enrichFailed
	}

	fields, stepErrs := s.runSubSteps(ctx, item)

	if _, err := s.db.CompleteEnrichmentItem(ctx, itemID, fields); err != nil {
		s.log.Error("failed to persist enrichment", "item_id", itemID, "error", err)
		if failErr := s.db.FailEnrichmentItem(ctx, itemID); failErr != nil {
			s.log.Error("failed to mark enrichment failed", "item_id", itemID, "error", failErr)
		}
		s.updateResult(ctx, resultID, models.EnrichmentFailed, strPtr(err.Error()))
		return enrichFailed
	}

	var note *string
	if len(stepErrs) > 0 {
		note = strPtr(strings.Join(stepErrs, "; "))
	}
	s.updateResult(ctx, resultID, models.EnrichmentCompleted, note)

	cache.Invalidate(ctx, s.cache,
		cache.TagCatalog, cache.TagCourses, cache.TagPersons, cache.TagFaculty(item.FacultyCode))

	s.log.Info("item enriched", "item_id", itemID, "material_id", item.MaterialID,
		"fields", len(fields), "substep_errors", len(stepErrs))
	return enrichCompleted
}

// runSubSteps executes the provider lookups for one claimed item. Returns the
// catalog fields to merge and descriptions of sub-step failures.
func (s *EnrichService) runSubSteps(ctx context.Context, item *models.CatalogItem) (map[string]any, []string) {
	fields := map[string]any{}
	var stepErrs []string

	// Course registry lookup.
	if item.CourseCode != "" {
		details, err := s.provider.FetchCourseDetails(ctx, item.CourseCode, item.AcademicYear)
		switch {
		case err != nil && providers.NotFound(err):
			s.log.Debug("course not in registry", "course_code", item.CourseCode)
		case err != nil:
			stepErrs = append(stepErrs, fmt.Sprintf("course lookup: %v", err))
		default:
			course, err := s.db.UpsertCourse(ctx, models.Course{
				Code:         details.Code,
				Name:         details.Name,
				Faculty:      details.Faculty,
				StudentCount: details.StudentCount,
				AcademicYear: details.AcademicYear,
			})
			if err != nil {
				stepErrs = append(stepErrs, fmt.Sprintf("course upsert: %v", err))
			} else {
				fields["course_id"] = course.ID
				fields["student_count"] = details.StudentCount
			}
		}
	}

	// Personnel directory lookup.
	if item.LecturerName != "" {
		details, err := s.provider.FetchPersonData(ctx, item.LecturerName)
		switch {
		case err != nil && providers.NotFound(err):
			s.log.Debug("lecturer not in directory", "name", item.LecturerName)
		case err != nil:
			stepErrs = append(stepErrs, fmt.Sprintf("person lookup: %v", err))
		default:
			person, err := s.db.UpsertPerson(ctx, models.Person{
				Name:       details.Name,
				Email:      details.Email,
				Department: details.Department,
			})
			if err != nil {
				stepErrs = append(stepErrs, fmt.Sprintf("person upsert: %v", err))
			} else {
				fields["lecturer_id"] = person.ID
			}
		}
	}

	// File host check, download, text extraction.
	if item.FileURL != "" {
		exists, err := s.provider.CheckFileExists(ctx, item.FileURL)
		if err != nil {
			stepErrs = append(stepErrs, fmt.Sprintf("file check: %v", err))
		} else {
			fields["file_exists"] = exists
			fields["file_checked_at"] = time.Now()

			if exists && item.DocumentKey == nil {
				if docFields, errStr := s.fetchDocument(ctx, item); errStr != "" {
					stepErrs = append(stepErrs, errStr)
				} else {
					for k, v := range docFields {
						fields[k] = v
					}
				}
			}
		}
	}

	return fields, stepErrs
}

// fetchDocument downloads and extracts text from the item's file, optionally
// asking the classifier for a suggestion.
func (s *EnrichService) fetchDocument(ctx context.Context, item *models.CatalogItem) (map[string]any, string) {
	data, err := s.provider.DownloadFile(ctx, item.FileURL)
	if err != nil {
		return nil, fmt.Sprintf("file download: %v", err)
	}

	extracted, err := s.provider.ExtractText(ctx, item.Filename, data)
	if err != nil {
		return nil, fmt.Sprintf("text extraction: %v", err)
	}

	fields := map[string]any{
		"document_key":   uuid.New().String(),
		"document_pages": extracted.Pages,
		"text_quality":   extracted.Quality,
	}

	if s.classifier != nil && !s.classifierDown.Load() && item.Classification == models.ClassificationUnanalyzed {
		suggestion, err := s.classifier.Suggest(ctx, item.Title, extracted.Text)
		switch {
		case errors.Is(err, llm.ErrFatalAPI):
			s.classifierDown.Store(true)
			s.log.Error("disabling classification suggestions", "error", err)
		case err != nil:
			s.log.Warn("classification suggestion failed", "material_id", item.MaterialID, "error", err)
		default:
			fields["classification_suggestion"] = string(suggestion)
		}
	}

	return fields, ""
}

func (s *EnrichService) updateResult(ctx context.Context, resultID string, status models.EnrichmentStatus, errMsg *string) {
	if err := s.db.UpdateEnrichmentResult(ctx, resultID, status, errMsg); err != nil {
		s.log.Warn("failed to update enrichment result", "result_id", resultID, "error", err)
	}
}

func strPtr(s string) *string {
	return &s
}
