package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmulder/clearcat/internal/models"
)

var (
	processNoUI   bool
	processEnrich bool
)

var processCmd = &cobra.Command{
	Use:   "process <batch-id>",
	Short: "Reconcile a staged batch against the catalog",
	Long: `Reconcile every staged row of a batch against the catalog: new
material ids create items, changed rows update the fields the batch
owns, and unchanged rows are skipped. Every effective change is
recorded in the audit log.

With --enrich, created and updated items are enriched in the same
invocation: live triggers fire as rows land, and a bulk sweep after
the batch completes picks up anything the triggers missed.

Examples:
  clearcat process 01jm3k...
  clearcat process 01jm3k... --enrich
  clearcat process 01jm3k... --no-ui`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().BoolVar(&processNoUI, "no-ui", false, "plain output without the progress display")
	processCmd.Flags().BoolVar(&processEnrich, "enrich", false, "enrich changed items after reconciling")
}

func runProcess(cmd *cobra.Command, args []string) error {
	batchID := args[0]
	ctx := context.Background()

	batch, err := dbClient.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("get batch: %w", err)
	}
	if batch.Status != models.BatchStaged {
		return fmt.Errorf("batch is %s, expected %s", batch.Status, models.BatchStaged)
	}

	// Subscribing before reconciliation starts means no change event is
	// published without a consumer attached.
	if processEnrich {
		if _, err := getEnricher(ctx); err != nil {
			return err
		}
	}

	job, err := jobManager.StartProcess(ctx, reconciler, batchID, batch.RowsStaged)
	if err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	if err := watchJob(job, processNoUI); err != nil {
		return err
	}

	if processEnrich {
		svc, err := getEnricher(ctx)
		if err != nil {
			return err
		}
		fmt.Println("\nEnriching changed items...")
		enrichJob, err := jobManager.StartEnrich(ctx, svc)
		if err != nil {
			return fmt.Errorf("start enrich job: %w", err)
		}
		if err := watchJob(enrichJob, processNoUI); err != nil {
			return err
		}
	}

	if verbose {
		printTimings(mc.Snapshot())
	}
	return nil
}
