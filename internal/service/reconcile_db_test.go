package service

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jmulder/clearcat/internal/db"
	"github.com/jmulder/clearcat/internal/models"
)

var testDB *db.Client
var testContainer testcontainers.Container

// TestMain sets up the SurrealDB container shared by the reconciliation
// tests. Short mode runs only the in-memory tests and needs no database.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

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

	testDB, err = db.NewClient(ctx, db.Config{
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

func newTestReconciler(t *testing.T) *ReconcileService {
	t.Helper()
	mapper, err := NewFacultyMapper("")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewReconcileService(testDB, mapper, NewDispatcher(), nil, logger, nil)
}

// stageRows creates a batch and stages the raw rows directly, returning the
// batch id. Bypasses file parsing so tests control row content exactly.
func stageRows(t *testing.T, rows []map[string]any) string {
	t.Helper()
	ctx := context.Background()

	batch, err := testDB.CreateBatch(ctx, models.SourceRegistry, "/tmp/export.csv", "jdoe")
	require.NoError(t, err)
	batchID := models.MustRecordIDString(batch.ID)

	require.NoError(t, testDB.BulkInsertStagedItems(ctx, batchID, rows))
	_, err = testDB.MarkBatchStaged(ctx, batchID, len(rows))
	require.NoError(t, err)
	return batchID
}

func registryRow(materialID int, title, department string) map[string]any {
	return map[string]any{
		"material_id": fmt.Sprint(materialID),
		"title":       title,
		"department":  department,
		"course_code": "ME-101",
	}
}

func TestProcessBrokenRowsStillComplete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	require.NoError(t, testDB.WipeData(context.Background()))
	ctx := context.Background()

	// Six rows without a usable material id: more than the consecutive
	// storage-failure threshold, but content problems must never abort.
	rows := []map[string]any{
		{"title": "no id at all"},
		{"material_id": "", "title": "empty id"},
		{"material_id": "abc", "title": "non-numeric"},
		{"material_id": "-1", "title": "negative"},
		{"material_id": "0", "title": "zero"},
		{"title": "still no id"},
	}
	batchID := stageRows(t, rows)

	svc := newTestReconciler(t)
	result, err := svc.Process(ctx, batchID, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, len(rows), result.Failed)
	assert.Len(t, result.RowErrors, len(rows))

	batch, err := testDB.GetBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchCompleted, batch.Status)
	assert.Equal(t, len(rows), batch.Failed)

	logCount, err := testDB.CountBatchChanges(ctx, batchID)
	require.NoError(t, err)
	assert.Zero(t, logCount, "failed rows must not write change-log entries")
}

func TestProcessAccountingIdentity(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	require.NoError(t, testDB.WipeData(context.Background()))
	ctx := context.Background()

	rows := []map[string]any{
		registryRow(801, "Reader week 1", "Engineering Technology"),
		registryRow(802, "Slides week 1", "Engineering Technology"),
		registryRow(803, "Exam 2025", "Science and Technology"),
		{"material_id": "nope", "title": "broken row"},
	}
	batchID := stageRows(t, rows)

	svc := newTestReconciler(t)
	result, err := svc.Process(ctx, batchID, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 1, result.Failed)

	// Every staged row is accounted for, and every mutation left a log entry.
	batch, err := testDB.GetBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, batch.RowsStaged, batch.Created+batch.Updated+batch.Skipped+batch.Failed)

	logCount, err := testDB.CountBatchChanges(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, result.Created+result.Updated, logCount)

	verify, err := svc.Verify(ctx, batchID)
	require.NoError(t, err)
	assert.True(t, verify.Consistent, "problems: %v", verify.Problems)
}

func TestProcessUnchangedRowsSkip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	require.NoError(t, testDB.WipeData(context.Background()))
	ctx := context.Background()

	rows := []map[string]any{
		registryRow(811, "Reader week 1", "Engineering Technology"),
		registryRow(812, "Slides week 1", "Science and Technology"),
	}
	first := stageRows(t, rows)

	svc := newTestReconciler(t)
	result, err := svc.Process(ctx, first, nil)
	require.NoError(t, err)
	require.Equal(t, 2, result.Created)

	// Re-uploading the identical export must be a pure no-op: all rows
	// skipped, no new change-log entries anywhere.
	second := stageRows(t, rows)
	result, err = svc.Process(ctx, second, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 0, result.Failed)

	logCount, err := testDB.CountBatchChanges(ctx, second)
	require.NoError(t, err)
	assert.Zero(t, logCount)

	verify, err := svc.Verify(ctx, second)
	require.NoError(t, err)
	assert.True(t, verify.Consistent, "problems: %v", verify.Problems)
}

func TestProcessEmptyDepartmentKeepsFaculty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	require.NoError(t, testDB.WipeData(context.Background()))
	ctx := context.Background()

	first := stageRows(t, []map[string]any{
		registryRow(821, "Reader week 1", "Engineering Technology"),
	})
	svc := newTestReconciler(t)
	_, err := svc.Process(ctx, first, nil)
	require.NoError(t, err)

	item, err := testDB.GetItemByMaterialID(ctx, 821)
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Equal(t, "ET", item.FacultyCode)

	// A later export without a department column must not push the item
	// back to the unmapped faculty.
	second := stageRows(t, []map[string]any{
		{"material_id": "821", "title": "Reader week 1 (revised)"},
	})
	result, err := svc.Process(ctx, second, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	item, err = testDB.GetItemByMaterialID(ctx, 821)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "ET", item.FacultyCode)
	assert.Equal(t, "Reader week 1 (revised)", item.Title)
	assert.Equal(t, "Engineering Technology", item.Department)
}
