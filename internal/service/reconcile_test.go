package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmulder/clearcat/internal/models"
	"github.com/jmulder/clearcat/internal/parser"
)

func existingItem() *models.CatalogItem {
	count := 120
	return &models.CatalogItem{
		MaterialID:       500,
		Title:            "Reader week 1",
		Filename:         "reader1.pdf",
		Department:       "Engineering Technology",
		FacultyCode:      "ET",
		CourseCode:       "ME-101",
		LecturerName:     "J. Jansen",
		FileURL:          "https://files.example/reader1.pdf",
		AcademicYear:     "2025",
		Classification:   models.ClassificationEasyAccess,
		WorkflowStatus:   models.WorkflowInProgress,
		EnrichmentStatus: models.EnrichmentCompleted,
		StudentCount:     &count,
	}
}

func TestDiffItemNoChanges(t *testing.T) {
	item := existingItem()
	fields := parser.ItemFields{
		MaterialID:   500,
		Title:        "Reader week 1",
		Filename:     "reader1.pdf",
		Department:   "Engineering Technology",
		CourseCode:   "ME-101",
		LecturerName: "J. Jansen",
		FileURL:      "https://files.example/reader1.pdf",
		AcademicYear: "2025",
	}

	diff, deltas := diffItem(item, fields, "ET")
	assert.Empty(t, diff, "identical row must be a no-op")
	assert.Empty(t, deltas)
}

func TestDiffItemChangedFields(t *testing.T) {
	item := existingItem()
	fields := parser.ItemFields{
		MaterialID:   500,
		Title:        "Reader week 1 (revised)",
		Department:   "Science and Technology",
		CourseCode:   "ME-101",
		AcademicYear: "2026",
	}

	diff, deltas := diffItem(item, fields, "TNW")

	assert.Equal(t, "Reader week 1 (revised)", diff["title"])
	assert.Equal(t, "Science and Technology", diff["department"])
	assert.Equal(t, "TNW", diff["faculty_code"])
	assert.Equal(t, "2026", diff["academic_year"])
	assert.Len(t, deltas, 4)

	// Old values are recorded for the audit trail.
	for _, d := range deltas {
		if d.Field == "faculty_code" {
			assert.Equal(t, "ET", d.Old)
			assert.Equal(t, "TNW", d.New)
		}
	}
}

func TestDiffItemEmptyRowValuesDoNotClear(t *testing.T) {
	item := existingItem()
	fields := parser.ItemFields{MaterialID: 500, Department: "Engineering Technology"}

	diff, _ := diffItem(item, fields, "ET")
	assert.Empty(t, diff, "empty row values must not blank existing fields")
}

func TestDiffItemEmptyDepartmentKeepsFaculty(t *testing.T) {
	item := existingItem()
	fields := parser.ItemFields{MaterialID: 500}

	// A row without a department resolves to the unmapped faculty; that must
	// not overwrite the faculty an earlier batch established.
	diff, deltas := diffItem(item, fields, models.FacultyUnmapped)
	assert.NotContains(t, diff, "faculty_code")
	assert.Empty(t, deltas)
	assert.Equal(t, "ET", item.FacultyCode)
}

func TestDiffItemNeverTouchesEnrichmentFields(t *testing.T) {
	item := existingItem()
	fields := parser.ItemFields{
		MaterialID: 500,
		Title:      "New title",
		Department: "Engineering Technology",
	}

	diff, _ := diffItem(item, fields, "ET")

	for _, forbidden := range []string{
		"enrichment_status", "file_exists", "student_count", "course_id",
		"lecturer_id", "classification", "document_key", "last_enriched_at",
	} {
		assert.NotContains(t, diff, forbidden)
	}
}

func TestDiffItemWorkflowOnlyWhenRowCarriesIt(t *testing.T) {
	item := existingItem()

	fields := parser.ItemFields{MaterialID: 500, Department: "Engineering Technology"}
	diff, _ := diffItem(item, fields, "ET")
	assert.NotContains(t, diff, "workflow_status", "registry rows never touch workflow status")

	done := models.WorkflowDone
	fields.Workflow = &done
	diff, deltas := diffItem(item, fields, "ET")
	assert.Equal(t, "done", diff["workflow_status"])
	assert.Len(t, deltas, 1)
}

func TestBuildItemContentDefaults(t *testing.T) {
	fields := parser.ItemFields{
		MaterialID: 500,
		Title:      "Reader",
		Department: "Mechanical Engineering",
	}

	content := buildItemContent(fields, models.FacultyUnmapped)

	assert.Equal(t, 500, content["material_id"])
	assert.Equal(t, models.FacultyUnmapped, content["faculty_code"])
	assert.Equal(t, "unanalyzed", content["classification"])
	assert.Equal(t, "inbox", content["workflow_status"])
	assert.Equal(t, "pending", content["enrichment_status"])
}

func TestContentDeltasRecordInitialValues(t *testing.T) {
	content := buildItemContent(parser.ItemFields{
		MaterialID: 7,
		Title:      "Slides",
		CourseCode: "EE-201",
	}, "EEMCS")

	deltas := contentDeltas(content)

	fieldSet := map[string]string{}
	for _, d := range deltas {
		fieldSet[d.Field] = d.New
	}
	assert.Equal(t, "Slides", fieldSet["title"])
	assert.Equal(t, "EE-201", fieldSet["course_code"])
	assert.Equal(t, "EEMCS", fieldSet["faculty_code"])
	assert.NotContains(t, fieldSet, "filename", "empty initial values are omitted")
}
