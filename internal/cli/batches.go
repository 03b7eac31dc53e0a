package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmulder/clearcat/internal/models"
)

var batchesLimit int

var batchesCmd = &cobra.Command{
	Use:   "batches [batch-id]",
	Short: "List or inspect ingestion batches",
	Long: `List ingestion batches or inspect a specific batch by ID.

Examples:
  clearcat batches            # List recent batches
  clearcat batches 01jm3k...  # Show details for one batch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatches,
}

func init() {
	batchesCmd.Flags().IntVarP(&batchesLimit, "limit", "n", 20, "max results")
}

func runBatches(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		return showBatch(ctx, args[0])
	}

	batches, err := dbClient.ListBatches(ctx, batchesLimit)
	if err != nil {
		return fmt.Errorf("list batches: %w", err)
	}

	if len(batches) == 0 {
		fmt.Println("No batches found")
		return nil
	}

	fmt.Printf("%-28s %-18s %-12s %-8s %s\n", "ID", "KIND", "STATUS", "ROWS", "UPLOADED")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, b := range batches {
		id, err := models.RecordIDString(b.ID)
		if err != nil {
			continue
		}
		fmt.Printf("%-28s %-18s %-12s %-8d %s\n",
			id, b.SourceKind, b.Status, b.RowsStaged, b.CreatedAt.Format("2006-01-02 15:04"))
	}

	return nil
}

func showBatch(ctx context.Context, id string) error {
	batch, err := dbClient.GetBatch(ctx, id)
	if err != nil {
		return fmt.Errorf("get batch: %w", err)
	}

	fmt.Printf("Batch: %s\n", id)
	fmt.Printf("  Kind:   %s\n", batch.SourceKind)
	fmt.Printf("  File:   %s\n", filepath.Base(batch.SourceFile))
	if batch.UploadedBy != "" {
		fmt.Printf("  By:     %s\n", batch.UploadedBy)
	}
	fmt.Printf("  Status: %s\n", batch.Status)
	fmt.Printf("  Rows:   %d staged\n", batch.RowsStaged)

	if batch.Status == models.BatchCompleted {
		fmt.Printf("\nResult:\n")
		fmt.Printf("  Created: %d\n", batch.Created)
		fmt.Printf("  Updated: %d\n", batch.Updated)
		fmt.Printf("  Skipped: %d\n", batch.Skipped)
		fmt.Printf("  Failed:  %d\n", batch.Failed)
	}

	fmt.Printf("\n  Uploaded: %s\n", batch.CreatedAt.Format(time.RFC3339))
	if batch.FinishedAt != nil {
		fmt.Printf("  Finished: %s\n", batch.FinishedAt.Format(time.RFC3339))
	}

	if batch.Error != nil && *batch.Error != "" {
		fmt.Printf("\n  Error: %s\n", *batch.Error)
	}

	if len(batch.RowErrors) > 0 {
		fmt.Printf("\nRow errors (%d):\n", len(batch.RowErrors))
		for _, e := range batch.RowErrors {
			fmt.Printf("  - %s\n", e)
		}
	}

	return nil
}
