package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmulder/clearcat/internal/models"
)

// ItemFields is the fixed column-to-attribute mapping of one staged row.
// These are the ingestion-owned catalog fields; nothing else is ever written
// to the catalog from a spreadsheet.
type ItemFields struct {
	MaterialID   int
	Title        string
	Filename     string
	Department   string
	CourseCode   string
	LecturerName string
	FileURL      string
	AcademicYear string

	// Workflow is only set for faculty workflow rows, derived from the tab
	// the row came from. Applied on create only; existing workflow state is
	// manually maintained.
	Workflow *models.WorkflowStatus
}

// Column aliases per attribute, in normalized form. Mapping tables are fixed
// and hard-coded; source files are not runtime-configurable.
var (
	materialIDColumns = []string{"material_id", "materiaal_id", "id"}
	titleColumns      = []string{"title", "titel", "material_title"}
	filenameColumns   = []string{"filename", "file", "file_name", "bestandsnaam"}
	departmentColumns = []string{"department", "afdeling", "opleiding"}
	courseColumns     = []string{"course_code", "course", "vakcode"}
	lecturerColumns   = []string{"lecturer", "teacher", "docent", "uploaded_by"}
	fileURLColumns    = []string{"url", "file_url", "link", "locatie"}
	yearColumns       = []string{"academic_year", "collegejaar", "year"}
)

// ExtractMaterialID finds and parses the natural identifier of a row.
// A missing or non-numeric identifier is a row-level failure.
func ExtractMaterialID(payload map[string]any) (int, error) {
	raw, ok := firstValue(payload, materialIDColumns)
	if !ok || raw == "" {
		return 0, fmt.Errorf("row has no material id")
	}
	// Registry exports format ids as floats ("500.0") depending on the tool
	// that produced them.
	raw = strings.TrimSuffix(raw, ".0")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("malformed material id %q", raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("material id %d out of range", id)
	}
	return id, nil
}

// MapRow applies the fixed column->attribute mapping for the batch's source
// kind. The material id must already have been validated.
func MapRow(kind models.SourceKind, payload map[string]any) (ItemFields, error) {
	id, err := ExtractMaterialID(payload)
	if err != nil {
		return ItemFields{}, err
	}

	fields := ItemFields{
		MaterialID:   id,
		Title:        stringValue(payload, titleColumns),
		Filename:     stringValue(payload, filenameColumns),
		Department:   stringValue(payload, departmentColumns),
		CourseCode:   stringValue(payload, courseColumns),
		LecturerName: stringValue(payload, lecturerColumns),
		FileURL:      stringValue(payload, fileURLColumns),
		AcademicYear: stringValue(payload, yearColumns),
	}

	if kind == models.SourceWorkflow {
		if raw, ok := payload[workflowStatusColumn]; ok {
			if status, err := models.ParseWorkflowStatus(fmt.Sprint(raw)); err == nil {
				fields.Workflow = &status
			}
		}
	}

	return fields, nil
}

// firstValue returns the first non-empty value among the aliased columns.
func firstValue(payload map[string]any, columns []string) (string, bool) {
	for _, col := range columns {
		if v, ok := payload[col]; ok {
			s := strings.TrimSpace(fmt.Sprint(v))
			if s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func stringValue(payload map[string]any, columns []string) string {
	v, _ := firstValue(payload, columns)
	return v
}
