package models

import "testing"

func TestBatchStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from BatchStatus
		to   BatchStatus
		want bool
	}{
		{"uploaded to staged", BatchUploaded, BatchStaged, true},
		{"staged to processing", BatchStaged, BatchProcessing, true},
		{"processing to completed", BatchProcessing, BatchCompleted, true},
		{"uploaded to failed", BatchUploaded, BatchFailed, true},
		{"staged to failed", BatchStaged, BatchFailed, true},
		{"processing to failed", BatchProcessing, BatchFailed, true},
		// No regressions
		{"staged to uploaded", BatchStaged, BatchUploaded, false},
		{"processing to staged", BatchProcessing, BatchStaged, false},
		{"uploaded to processing skips staged", BatchUploaded, BatchProcessing, false},
		// Terminal states
		{"completed is terminal", BatchCompleted, BatchFailed, false},
		{"failed is terminal", BatchFailed, BatchStaged, false},
		{"failed stays failed", BatchFailed, BatchFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestParseSourceKind(t *testing.T) {
	tests := []struct {
		in      string
		want    SourceKind
		wantErr bool
	}{
		{"registry_export", SourceRegistry, false},
		{"Registry", SourceRegistry, false},
		{" faculty_workflow ", SourceWorkflow, false},
		{"workflow", SourceWorkflow, false},
		{"csv", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseSourceKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSourceKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSourceKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseEnrichmentStatus(t *testing.T) {
	for _, valid := range []string{"pending", "RUNNING", "completed", "Failed", ""} {
		if _, err := ParseEnrichmentStatus(valid); err != nil {
			t.Errorf("ParseEnrichmentStatus(%q) unexpected error: %v", valid, err)
		}
	}
	if _, err := ParseEnrichmentStatus("in_flight"); err == nil {
		t.Error("ParseEnrichmentStatus(\"in_flight\") expected error, got nil")
	}
}

func TestParseClassification(t *testing.T) {
	got, err := ParseClassification("")
	if err != nil {
		t.Fatalf("ParseClassification(\"\") error = %v", err)
	}
	if got != ClassificationUnanalyzed {
		t.Errorf("empty classification = %q, want %q", got, ClassificationUnanalyzed)
	}

	if _, err := ParseClassification("fair_use"); err == nil {
		t.Error("ParseClassification(\"fair_use\") expected error, got nil")
	}
}
