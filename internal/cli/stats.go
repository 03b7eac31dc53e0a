package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmulder/clearcat/internal/metrics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics",
	Long: `Show catalog-wide counts by faculty, enrichment state and
classification.

Examples:
  clearcat stats`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	summary, err := reporter.CatalogSummary(ctx)
	if err != nil {
		return fmt.Errorf("catalog summary: %w", err)
	}

	fmt.Printf("Catalog (%d items)\n", summary.TotalItems)
	fmt.Printf("═══════════════════════════════════\n")

	if len(summary.ByFaculty) > 0 {
		fmt.Printf("\nBy faculty:\n")
		for _, f := range summary.ByFaculty {
			fmt.Printf("  %-12s %6d\n", f.FacultyCode, f.Count)
		}
	}

	if len(summary.ByEnrichment) > 0 {
		fmt.Printf("\nBy enrichment state:\n")
		for _, s := range summary.ByEnrichment {
			fmt.Printf("  %-12s %6d\n", s.EnrichmentStatus, s.Count)
		}
	}

	if len(summary.ByClassification) > 0 {
		fmt.Printf("\nBy classification:\n")
		for _, c := range summary.ByClassification {
			fmt.Printf("  %-12s %6d\n", c.Classification, c.Count)
		}
	}

	return nil
}

// printTimings displays per-operation timing stats collected during this
// invocation. Shown after long-running commands in verbose mode.
func printTimings(snap metrics.Snapshot) {
	type entry struct {
		name string
		op   *metrics.OperationSnapshot
	}
	entries := []entry{
		{"Staging", snap.Staging},
		{"Reconcile", snap.Reconcile},
		{"Enrichment", snap.Enrichment},
		{"Provider calls", snap.ProviderCall},
		{"LLM generate", snap.LLMGenerate},
		{"DB queries", snap.DBQuery},
	}

	fmt.Printf("\nTimings:\n")
	for _, e := range entries {
		if e.op == nil {
			continue
		}
		fmt.Printf("  %-15s %d calls, avg %.1fms, min %dms, max %dms\n",
			e.name, e.op.Count, e.op.AvgTimeMs, e.op.MinTimeMs, e.op.MaxTimeMs)
	}
}
