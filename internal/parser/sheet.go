package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jmulder/clearcat/internal/models"
)

// Workflow sheet tab names. The overview tab is a rendered summary, not data.
var workflowSheets = map[string]models.WorkflowStatus{
	"inbox":       models.WorkflowInbox,
	"in progress": models.WorkflowInProgress,
	"done":        models.WorkflowDone,
}

// workflowStatusColumn is the pseudo-column injected into workflow-sheet rows
// carrying the tab the row came from.
const workflowStatusColumn = "workflow_status"

// ParseFile reads a source file into raw rows with normalized column keys.
// Registry exports are a single wide table (.xlsx first sheet, or .csv).
// Faculty workflow sheets are .xlsx files with inbox/in progress/done tabs;
// each row gets a workflow_status pseudo-column from its tab.
//
// Returns an error for unreadable files, zero readable rows, or a workflow
// file with none of the required tabs.
func ParseFile(path string, kind models.SourceKind) ([]map[string]any, error) {
	switch kind {
	case models.SourceRegistry:
		return parseRegistryFile(path)
	case models.SourceWorkflow:
		return parseWorkflowFile(path)
	default:
		return nil, fmt.Errorf("unknown source kind: %q", kind)
	}
}

func parseRegistryFile(path string) ([]map[string]any, error) {
	var table [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		table, err = readCSV(path)
	case ".xlsx":
		table, err = readFirstSheet(path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	rows := tableToRows(table, nil)
	if len(rows) == 0 {
		return nil, fmt.Errorf("no readable rows in %s", filepath.Base(path))
	}
	return rows, nil
}

func parseWorkflowFile(path string) ([]map[string]any, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var rows []map[string]any
	found := false
	for _, sheet := range f.GetSheetList() {
		status, ok := workflowSheets[strings.ToLower(strings.TrimSpace(sheet))]
		if !ok {
			continue
		}
		found = true

		table, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		extra := map[string]any{workflowStatusColumn: string(status)}
		rows = append(rows, tableToRows(table, extra)...)
	}

	if !found {
		return nil, fmt.Errorf("workbook %s has no inbox/in progress/done sheets", filepath.Base(path))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no readable rows in %s", filepath.Base(path))
	}
	return rows, nil
}

func readFirstSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", filepath.Base(path))
	}
	table, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return table, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows are tolerated, header decides width

	var table [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		table = append(table, record)
	}
	return table, nil
}

// tableToRows converts a header+data table into payload maps, skipping blank
// rows. extra entries are merged into every payload.
func tableToRows(table [][]string, extra map[string]any) []map[string]any {
	if len(table) < 2 {
		return nil
	}
	header := table[0]

	rows := make([]map[string]any, 0, len(table)-1)
	for _, cells := range table[1:] {
		if rowEmpty(cells) {
			continue
		}
		payload := normalizeRow(header, cells)
		for k, v := range extra {
			payload[k] = v
		}
		rows = append(rows, payload)
	}
	return rows
}
