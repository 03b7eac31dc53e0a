// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jmulder/clearcat/internal/models"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

// resetDB wipes all tables so a test starts from a known-empty state.
func resetDB(t *testing.T) {
	t.Helper()
	if err := testDB.WipeData(context.Background()); err != nil {
		t.Fatalf("WipeData failed: %v", err)
	}
}

// createTestItem inserts a catalog item (with its creation log entry) and
// returns it.
func createTestItem(t *testing.T, materialID int, fields map[string]any) *models.CatalogItem {
	t.Helper()
	content := map[string]any{
		"material_id":       materialID,
		"title":             fmt.Sprintf("Material %d", materialID),
		"faculty_code":      "ET",
		"classification":    "unanalyzed",
		"workflow_status":   "inbox",
		"enrichment_status": "pending",
	}
	for k, v := range fields {
		content[k] = v
	}

	item, err := testDB.CreateItemWithLog(context.Background(), content, ChangeLogInput{
		Source:  models.ChangeBatch,
		Summary: "created in test",
	})
	if err != nil {
		t.Fatalf("CreateItemWithLog failed: %v", err)
	}
	return item
}

// =============================================================================
// BATCH LIFECYCLE TESTS
// =============================================================================

func TestBatchLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	batch, err := testDB.CreateBatch(ctx, models.SourceRegistry, "/tmp/export.xlsx", "jdoe")
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	if batch.Status != models.BatchUploaded {
		t.Errorf("Expected status uploaded, got %s", batch.Status)
	}
	batchID := models.MustRecordIDString(batch.ID)

	staged, err := testDB.MarkBatchStaged(ctx, batchID, 12)
	if err != nil {
		t.Fatalf("MarkBatchStaged failed: %v", err)
	}
	if staged.Status != models.BatchStaged || staged.RowsStaged != 12 {
		t.Errorf("Expected staged/12, got %s/%d", staged.Status, staged.RowsStaged)
	}

	processing, err := testDB.MarkBatchProcessing(ctx, batchID)
	if err != nil {
		t.Fatalf("MarkBatchProcessing failed: %v", err)
	}
	if processing.Status != models.BatchProcessing {
		t.Errorf("Expected processing, got %s", processing.Status)
	}
	if processing.StartedAt == nil {
		t.Error("Expected started_at to be stamped")
	}

	completed, err := testDB.CompleteBatch(ctx, batchID, 8, 2, 1, 1, []string{"row 5: no material id"})
	if err != nil {
		t.Fatalf("CompleteBatch failed: %v", err)
	}
	if completed.Status != models.BatchCompleted {
		t.Errorf("Expected completed, got %s", completed.Status)
	}
	if completed.Created != 8 || completed.Updated != 2 || completed.Skipped != 1 || completed.Failed != 1 {
		t.Errorf("Counter mismatch: %+v", completed)
	}
	if len(completed.RowErrors) != 1 {
		t.Errorf("Expected 1 row error, got %d", len(completed.RowErrors))
	}
}

func TestBatchTransitionsAreForwardOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	batch, err := testDB.CreateBatch(ctx, models.SourceWorkflow, "/tmp/wf.csv", "")
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	batchID := models.MustRecordIDString(batch.ID)

	// Cannot process an UPLOADED batch
	if _, err := testDB.MarkBatchProcessing(ctx, batchID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}

	if _, err := testDB.MarkBatchStaged(ctx, batchID, 3); err != nil {
		t.Fatalf("MarkBatchStaged failed: %v", err)
	}

	// Cannot stage twice
	if _, err := testDB.MarkBatchStaged(ctx, batchID, 3); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition on double stage, got %v", err)
	}

	// FAILED is terminal
	if _, err := testDB.FailBatch(ctx, batchID, "boom"); err != nil {
		t.Fatalf("FailBatch failed: %v", err)
	}
	if _, err := testDB.MarkBatchProcessing(ctx, batchID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition after FAILED, got %v", err)
	}
}

func TestBulkInsertStagedItemsPreservesOrder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	batch, err := testDB.CreateBatch(ctx, models.SourceRegistry, "/tmp/rows.csv", "")
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	batchID := models.MustRecordIDString(batch.ID)

	rows := []map[string]any{
		{"material id": "101", "titel": "Alpha"},
		{"material id": "102", "titel": "Beta"},
		{"material id": "103", "titel": "Gamma"},
	}
	if err := testDB.BulkInsertStagedItems(ctx, batchID, rows); err != nil {
		t.Fatalf("BulkInsertStagedItems failed: %v", err)
	}

	staged, err := testDB.ListStagedItems(ctx, batchID)
	if err != nil {
		t.Fatalf("ListStagedItems failed: %v", err)
	}
	if len(staged) != 3 {
		t.Fatalf("Expected 3 staged items, got %d", len(staged))
	}
	for i, item := range staged {
		if item.Seq != i {
			t.Errorf("Row %d has seq %d, order not preserved", i, item.Seq)
		}
	}
	// Payload is stored verbatim, original column names included
	if staged[0].Payload["titel"] != "Alpha" {
		t.Errorf("Expected verbatim payload, got %v", staged[0].Payload)
	}
}

// =============================================================================
// CATALOG ITEM TESTS
// =============================================================================

func TestCreateItemWithLog(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	item := createTestItem(t, 48213, map[string]any{"title": "Thermodynamics reader"})
	if item.MaterialID != 48213 {
		t.Errorf("Expected material id 48213, got %d", item.MaterialID)
	}
	if item.Title != "Thermodynamics reader" {
		t.Errorf("Expected title, got %q", item.Title)
	}
	if item.EnrichmentStatus != models.EnrichmentPending {
		t.Errorf("Expected pending enrichment, got %s", item.EnrichmentStatus)
	}

	changes, err := testDB.ListItemChanges(ctx, models.MustRecordIDString(item.ID))
	if err != nil {
		t.Fatalf("ListItemChanges failed: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("Expected 1 change entry, got %d", len(changes))
	}
	if changes[0].Source != models.ChangeBatch {
		t.Errorf("Expected batch source, got %s", changes[0].Source)
	}
}

func TestMaterialIDUnique(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	createTestItem(t, 555, nil)

	// A second insert with the same material id must fail on the unique
	// index, and the transaction must not leave a change-log entry behind.
	_, err := testDB.CreateItemWithLog(ctx, map[string]any{
		"material_id":  555,
		"title":        "Duplicate",
		"faculty_code": "TNW",
	}, ChangeLogInput{Source: models.ChangeBatch, Summary: "dup"})
	if err == nil {
		t.Fatal("Expected unique index violation")
	}

	item, err := testDB.GetItemByMaterialID(ctx, 555)
	if err != nil {
		t.Fatalf("GetItemByMaterialID failed: %v", err)
	}
	changes, err := testDB.ListItemChanges(ctx, models.MustRecordIDString(item.ID))
	if err != nil {
		t.Fatalf("ListItemChanges failed: %v", err)
	}
	if len(changes) != 1 {
		t.Errorf("Expected 1 change entry after failed duplicate, got %d", len(changes))
	}
}

func TestGetItemByMaterialID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	created := createTestItem(t, 777, nil)

	item, err := testDB.GetItemByMaterialID(ctx, 777)
	if err != nil {
		t.Fatalf("GetItemByMaterialID failed: %v", err)
	}
	if item == nil {
		t.Fatal("Expected item, got nil")
	}
	if item.ID != created.ID {
		t.Errorf("ID mismatch")
	}

	// Absent material id returns nil without error
	missing, err := testDB.GetItemByMaterialID(ctx, 999999)
	if err != nil {
		t.Errorf("Lookup of absent material id should not error: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for absent material id")
	}
}

func TestUpdateItemWithLog(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	item := createTestItem(t, 800, map[string]any{"title": "Old title"})
	itemID := models.MustRecordIDString(item.ID)

	updated, err := testDB.UpdateItemWithLog(ctx, itemID, map[string]any{
		"title":         "New title",
		"lecturer_name": "J. de Vries",
	}, ChangeLogInput{
		Source:  models.ChangeBatch,
		Summary: "updated from batch x (2 fields)",
		Deltas: []models.FieldDelta{
			{Field: "title", Old: "Old title", New: "New title"},
			{Field: "lecturer_name", Old: "", New: "J. de Vries"},
		},
	})
	if err != nil {
		t.Fatalf("UpdateItemWithLog failed: %v", err)
	}
	if updated.Title != "New title" || updated.LecturerName != "J. de Vries" {
		t.Errorf("Fields not applied: %+v", updated)
	}

	changes, err := testDB.ListItemChanges(ctx, itemID)
	if err != nil {
		t.Fatalf("ListItemChanges failed: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("Expected 2 change entries (create + update), got %d", len(changes))
	}
	last := changes[len(changes)-1]
	if len(last.Deltas) != 2 {
		t.Errorf("Expected 2 deltas, got %d", len(last.Deltas))
	}
	if last.Deltas[0].Field != "title" || last.Deltas[0].New != "New title" {
		t.Errorf("Delta mismatch: %+v", last.Deltas[0])
	}
}

func TestCountBatchChanges(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	batch, err := testDB.CreateBatch(ctx, models.SourceRegistry, "/tmp/b.csv", "")
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	batchID := models.MustRecordIDString(batch.ID)

	for mid := 1; mid <= 3; mid++ {
		_, err := testDB.CreateItemWithLog(ctx, map[string]any{
			"material_id":  mid,
			"title":        fmt.Sprintf("Item %d", mid),
			"faculty_code": "BMS",
		}, ChangeLogInput{Source: models.ChangeBatch, Summary: "created", BatchID: &batchID})
		if err != nil {
			t.Fatalf("CreateItemWithLog failed: %v", err)
		}
	}

	count, err := testDB.CountBatchChanges(ctx, batchID)
	if err != nil {
		t.Fatalf("CountBatchChanges failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 change entries for batch, got %d", count)
	}
}

// =============================================================================
// ENRICHMENT CLAIM TESTS
// =============================================================================

func TestClaimEnrichment(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	item := createTestItem(t, 910, nil)
	itemID := models.MustRecordIDString(item.ID)

	claimed, err := testDB.ClaimEnrichment(ctx, itemID, 30*time.Minute)
	if err != nil {
		t.Fatalf("First claim failed: %v", err)
	}
	if claimed.EnrichmentStatus != models.EnrichmentRunning {
		t.Errorf("Expected running, got %s", claimed.EnrichmentStatus)
	}
	if claimed.EnrichmentStartedAt == nil {
		t.Error("Expected enrichment_started_at to be stamped")
	}

	// Second claim on a fresh RUNNING item loses
	if _, err := testDB.ClaimEnrichment(ctx, itemID, 30*time.Minute); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Expected ErrAlreadyRunning, got %v", err)
	}

	// A zero TTL makes the claim immediately stale and reclaimable
	if _, err := testDB.ClaimEnrichment(ctx, itemID, 0); err != nil {
		t.Errorf("Stale claim should be reclaimable: %v", err)
	}
}

func TestClaimEnrichmentAtMostOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	item := createTestItem(t, 911, nil)
	itemID := models.MustRecordIDString(item.ID)

	const claimers = 8
	var wins int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := testDB.ClaimEnrichment(ctx, itemID, 30*time.Minute); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("Expected exactly one winning claim, got %d", wins)
	}
}

func TestCompleteEnrichmentItem(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	item := createTestItem(t, 920, nil)
	itemID := models.MustRecordIDString(item.ID)

	if _, err := testDB.ClaimEnrichment(ctx, itemID, 30*time.Minute); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	students := 140
	done, err := testDB.CompleteEnrichmentItem(ctx, itemID, map[string]any{
		"student_count": students,
		"file_exists":   true,
	})
	if err != nil {
		t.Fatalf("CompleteEnrichmentItem failed: %v", err)
	}
	if done.EnrichmentStatus != models.EnrichmentCompleted {
		t.Errorf("Expected completed, got %s", done.EnrichmentStatus)
	}
	if done.StudentCount == nil || *done.StudentCount != 140 {
		t.Errorf("Expected student count 140, got %v", done.StudentCount)
	}
	if done.LastEnrichedAt == nil {
		t.Error("Expected last_enriched_at to be stamped")
	}

	// A completed item is claimable again (re-enrichment)
	if _, err := testDB.ClaimEnrichment(ctx, itemID, 30*time.Minute); err != nil {
		t.Errorf("Completed item should be claimable: %v", err)
	}
}

func TestListEnrichmentCandidates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	pendingItem := createTestItem(t, 930, nil)
	runningItem := createTestItem(t, 931, nil)
	failedItem := createTestItem(t, 932, nil)

	if _, err := testDB.ClaimEnrichment(ctx, models.MustRecordIDString(runningItem.ID), 30*time.Minute); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := testDB.FailEnrichmentItem(ctx, models.MustRecordIDString(failedItem.ID)); err != nil {
		t.Fatalf("FailEnrichmentItem failed: %v", err)
	}

	candidates, err := testDB.ListEnrichmentCandidates(ctx, 30*time.Minute, 0)
	if err != nil {
		t.Fatalf("ListEnrichmentCandidates failed: %v", err)
	}

	found := make(map[int]bool)
	for _, c := range candidates {
		found[c.MaterialID] = true
	}
	if !found[pendingItem.MaterialID] {
		t.Error("Pending item should be a candidate")
	}
	if !found[failedItem.MaterialID] {
		t.Error("Failed item should be a candidate")
	}
	if found[runningItem.MaterialID] {
		t.Error("Freshly running item should not be a candidate")
	}

	// With a zero TTL the running claim counts as stale
	candidates, err = testDB.ListEnrichmentCandidates(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListEnrichmentCandidates (stale) failed: %v", err)
	}
	found = make(map[int]bool)
	for _, c := range candidates {
		found[c.MaterialID] = true
	}
	if !found[runningItem.MaterialID] {
		t.Error("Stale running item should be a candidate")
	}
}

func TestEnrichmentRunAndResult(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	item := createTestItem(t, 940, nil)
	itemID := models.MustRecordIDString(item.ID)

	run, err := testDB.CreateEnrichmentRun(ctx, 1)
	if err != nil {
		t.Fatalf("CreateEnrichmentRun failed: %v", err)
	}
	if run.Total != 1 {
		t.Errorf("Expected total 1, got %d", run.Total)
	}

	result, err := testDB.CreateEnrichmentResult(ctx, models.MustRecordIDString(run.ID), itemID)
	if err != nil {
		t.Fatalf("CreateEnrichmentResult failed: %v", err)
	}
	if result.Status != models.EnrichmentPending {
		t.Errorf("Expected pending result, got %s", result.Status)
	}

	note := "course lookup: not found"
	err = testDB.UpdateEnrichmentResult(ctx, models.MustRecordIDString(result.ID), models.EnrichmentCompleted, &note)
	if err != nil {
		t.Fatalf("UpdateEnrichmentResult failed: %v", err)
	}
}

// =============================================================================
// COURSE / PERSON UPSERT TESTS
// =============================================================================

func TestUpsertCourse(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	first, err := testDB.UpsertCourse(ctx, models.Course{
		Code: "ME-101", Name: "Thermodynamics", Faculty: "ET", StudentCount: 120, AcademicYear: "2025-2026",
	})
	if err != nil {
		t.Fatalf("First UpsertCourse failed: %v", err)
	}

	// Same code (case-insensitive) updates in place
	second, err := testDB.UpsertCourse(ctx, models.Course{
		Code: "me-101", Name: "Thermodynamics", Faculty: "ET", StudentCount: 135, AcademicYear: "2025-2026",
	})
	if err != nil {
		t.Fatalf("Second UpsertCourse failed: %v", err)
	}
	if first.ID != second.ID {
		t.Error("Upsert should reuse the same record for the same code")
	}
	if second.StudentCount != 135 {
		t.Errorf("Expected updated student count 135, got %d", second.StudentCount)
	}
}

func TestUpsertPerson(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	first, err := testDB.UpsertPerson(ctx, models.Person{
		Name: "J. de Vries", Email: "j.devries@example.edu", Department: "Mechanical Engineering",
	})
	if err != nil {
		t.Fatalf("First UpsertPerson failed: %v", err)
	}

	second, err := testDB.UpsertPerson(ctx, models.Person{
		Name: "J. de Vries", Email: "jdv@example.edu",
	})
	if err != nil {
		t.Fatalf("Second UpsertPerson failed: %v", err)
	}
	if first.ID != second.ID {
		t.Error("Upsert should reuse the same record for the same name")
	}
	if second.Email != "jdv@example.edu" {
		t.Errorf("Expected updated email, got %q", second.Email)
	}
}

// =============================================================================
// JOB PERSISTENCE TESTS
// =============================================================================

func TestJobPersistence(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	batch, err := testDB.CreateBatch(ctx, models.SourceRegistry, "/tmp/j.csv", "")
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	batchID := models.MustRecordIDString(batch.ID)

	if err := testDB.CreateJob(ctx, "abc12345", "process", &batchID, nil, 10); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	if err := testDB.UpdateJobStatus(ctx, "abc12345", "running"); err != nil {
		t.Fatalf("UpdateJobStatus failed: %v", err)
	}
	if err := testDB.UpdateJobProgress(ctx, "abc12345", 5); err != nil {
		t.Fatalf("UpdateJobProgress failed: %v", err)
	}

	incomplete, err := testDB.GetIncompleteJobs(ctx)
	if err != nil {
		t.Fatalf("GetIncompleteJobs failed: %v", err)
	}
	if len(incomplete) != 1 {
		t.Fatalf("Expected 1 incomplete job, got %d", len(incomplete))
	}
	if incomplete[0].Progress != 5 || incomplete[0].Total != 10 {
		t.Errorf("Progress mismatch: %d/%d", incomplete[0].Progress, incomplete[0].Total)
	}
	if incomplete[0].BatchID == nil {
		t.Error("Expected batch link on process job")
	}

	if err := testDB.CompleteJob(ctx, "abc12345", map[string]any{"created": 10}); err != nil {
		t.Fatalf("CompleteJob failed: %v", err)
	}

	job, err := testDB.GetJob(ctx, "abc12345")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job == nil {
		t.Fatal("GetJob returned nil")
	}
	if job.Status != "completed" {
		t.Errorf("Expected completed, got %s", job.Status)
	}
	if job.CompletedAt == nil {
		t.Error("Expected completed_at to be stamped")
	}

	incomplete, err = testDB.GetIncompleteJobs(ctx)
	if err != nil {
		t.Fatalf("GetIncompleteJobs failed: %v", err)
	}
	if len(incomplete) != 0 {
		t.Errorf("Expected no incomplete jobs, got %d", len(incomplete))
	}
}

func TestFailJob(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	if err := testDB.CreateJob(ctx, "fail0001", "enrich", nil, nil, 0); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if err := testDB.FailJob(ctx, "fail0001", "provider unreachable"); err != nil {
		t.Fatalf("FailJob failed: %v", err)
	}

	job, err := testDB.GetJob(ctx, "fail0001")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Status != "failed" {
		t.Errorf("Expected failed, got %s", job.Status)
	}
	if job.Error == nil || *job.Error != "provider unreachable" {
		t.Errorf("Expected error message, got %v", job.Error)
	}
}

// =============================================================================
// AGGREGATE COUNT TESTS
// =============================================================================

func TestCatalogCounts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	resetDB(t)
	ctx := context.Background()

	createTestItem(t, 1001, map[string]any{"faculty_code": "ET"})
	createTestItem(t, 1002, map[string]any{"faculty_code": "ET"})
	createTestItem(t, 1003, map[string]any{"faculty_code": "UNMAPPED"})

	total, err := testDB.CountItems(ctx)
	if err != nil {
		t.Fatalf("CountItems failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected 3 items, got %d", total)
	}

	byFaculty, err := testDB.CountItemsByFaculty(ctx)
	if err != nil {
		t.Fatalf("CountItemsByFaculty failed: %v", err)
	}
	counts := make(map[string]int)
	for _, f := range byFaculty {
		counts[f.FacultyCode] = f.Count
	}
	if counts["ET"] != 2 || counts["UNMAPPED"] != 1 {
		t.Errorf("Faculty counts mismatch: %v", counts)
	}

	byStatus, err := testDB.CountItemsByEnrichmentStatus(ctx)
	if err != nil {
		t.Fatalf("CountItemsByEnrichmentStatus failed: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].EnrichmentStatus != "pending" || byStatus[0].Count != 3 {
		t.Errorf("Enrichment counts mismatch: %v", byStatus)
	}
}
