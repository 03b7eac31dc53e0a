package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmulder/clearcat/internal/models"
)

var enrichNoUI bool

var enrichCmd = &cobra.Command{
	Use:   "enrich [material-id]",
	Short: "Enrich catalog items with external data",
	Long: `Fetch course details, lecturer identity, file availability and
document text for catalog items that need it. Without arguments every
eligible item is enriched; with a material id only that item is.

Items already being enriched elsewhere are skipped, so concurrent runs
are safe.

Examples:
  clearcat enrich
  clearcat enrich 48213
  clearcat enrich --no-ui`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichNoUI, "no-ui", false, "plain output without the progress display")
}

func runEnrich(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, err := getEnricher(ctx)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		return enrichSingle(ctx, args[0])
	}

	job, err := jobManager.StartEnrich(ctx, svc)
	if err != nil {
		return fmt.Errorf("start job: %w", err)
	}

	if err := watchJob(job, enrichNoUI); err != nil {
		return err
	}
	if verbose {
		printTimings(mc.Snapshot())
	}
	return nil
}

// enrichSingle triggers one item and waits for it to settle.
func enrichSingle(ctx context.Context, arg string) error {
	materialID, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("invalid material id: %s", arg)
	}

	item, err := dbClient.GetItemByMaterialID(ctx, materialID)
	if err != nil {
		return fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return fmt.Errorf("no catalog item with material id %d", materialID)
	}

	itemID, err := models.RecordIDString(item.ID)
	if err != nil {
		return fmt.Errorf("get item ID: %w", err)
	}

	svc, err := getEnricher(ctx)
	if err != nil {
		return err
	}

	if err := svc.TriggerItem(ctx, itemID); err != nil {
		return fmt.Errorf("trigger enrichment: %w", err)
	}

	fmt.Printf("Enriching item %d...\n", materialID)

	for {
		time.Sleep(time.Second)
		current, err := dbClient.GetItem(ctx, itemID)
		if err != nil {
			return fmt.Errorf("poll item: %w", err)
		}
		switch current.EnrichmentStatus {
		case models.EnrichmentCompleted:
			fmt.Println("Completed")
			printEnrichedFields(current)
			return nil
		case models.EnrichmentFailed:
			return fmt.Errorf("enrichment failed for item %d", materialID)
		}
	}
}

func printEnrichedFields(item *models.CatalogItem) {
	if item.StudentCount != nil {
		fmt.Printf("  Student count: %d\n", *item.StudentCount)
	}
	if item.FileExists != nil {
		fmt.Printf("  File exists:   %v\n", *item.FileExists)
	}
	if item.DocumentPages != nil {
		fmt.Printf("  Pages:         %d\n", *item.DocumentPages)
	}
	if item.TextQuality != nil {
		fmt.Printf("  Text quality:  %.2f\n", *item.TextQuality)
	}
	if item.ClassificationSuggestion != nil {
		fmt.Printf("  Suggested:     %s\n", *item.ClassificationSuggestion)
	}
}
