package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var stageCmd = &cobra.Command{
	Use:   "stage <batch-id>",
	Short: "Parse a batch's source file into staged rows",
	Long: `Parse the source file of an uploaded batch and store every row
verbatim as a staged item. Staging is all-or-nothing: a parse failure
moves the batch to FAILED and leaves no partial rows.

Examples:
  clearcat stage 01jm3k...`,
	Args: cobra.ExactArgs(1),
	RunE: runStage,
}

func runStage(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	result, err := stagingSvc.Stage(ctx, args[0])
	if err != nil {
		return fmt.Errorf("stage batch: %w", err)
	}

	fmt.Printf("Staged %d rows.\n", result.RowsStaged)
	fmt.Printf("Run 'clearcat process %s' to reconcile.\n", args[0])
	return nil
}
