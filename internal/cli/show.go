package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmulder/clearcat/internal/models"
)

var showHistory bool

var showCmd = &cobra.Command{
	Use:   "show <material-id>",
	Short: "Show a catalog item",
	Long: `Show a catalog item by its material id, optionally with its full
change history.

Examples:
  clearcat show 48213
  clearcat show 48213 --history`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showHistory, "history", false, "include the change history")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	materialID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid material id: %s", args[0])
	}

	item, err := dbClient.GetItemByMaterialID(ctx, materialID)
	if err != nil {
		return fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return fmt.Errorf("no catalog item with material id %d", materialID)
	}

	printItem(item)

	if !showHistory {
		return nil
	}

	itemID, err := models.RecordIDString(item.ID)
	if err != nil {
		return fmt.Errorf("get item ID: %w", err)
	}
	changes, err := dbClient.ListItemChanges(ctx, itemID)
	if err != nil {
		return fmt.Errorf("list changes: %w", err)
	}

	fmt.Printf("\nHistory (%d):\n", len(changes))
	for _, ch := range changes {
		fmt.Printf("  %s [%s] %s\n", ch.CreatedAt.Format("2006-01-02 15:04"), ch.Source, ch.Summary)
		if verbose {
			for _, d := range ch.Deltas {
				fmt.Printf("    %s: %q -> %q\n", d.Field, d.Old, d.New)
			}
		}
	}

	return nil
}

func printItem(item *models.CatalogItem) {
	fmt.Printf("Material %d: %s\n", item.MaterialID, item.Title)
	if item.Filename != "" {
		fmt.Printf("  File:       %s\n", item.Filename)
	}
	fmt.Printf("  Faculty:    %s", item.FacultyCode)
	if item.Department != "" {
		fmt.Printf(" (%s)", item.Department)
	}
	fmt.Println()
	if item.CourseCode != "" {
		fmt.Printf("  Course:     %s", item.CourseCode)
		if item.AcademicYear != "" {
			fmt.Printf(" (%s)", item.AcademicYear)
		}
		fmt.Println()
	}
	if item.LecturerName != "" {
		fmt.Printf("  Lecturer:   %s\n", item.LecturerName)
	}
	fmt.Printf("  Class:      %s", item.Classification)
	if item.ClassificationSuggestion != nil {
		fmt.Printf(" (suggested: %s)", *item.ClassificationSuggestion)
	}
	fmt.Println()
	fmt.Printf("  Workflow:   %s\n", item.WorkflowStatus)
	fmt.Printf("  Enrichment: %s", item.EnrichmentStatus)
	if item.LastEnrichedAt != nil {
		fmt.Printf(" (last %s)", item.LastEnrichedAt.Format(time.RFC3339))
	}
	fmt.Println()

	if verbose {
		if item.StudentCount != nil {
			fmt.Printf("  Students:   %d\n", *item.StudentCount)
		}
		if item.FileExists != nil {
			fmt.Printf("  File OK:    %v\n", *item.FileExists)
		}
		if item.DocumentPages != nil {
			fmt.Printf("  Pages:      %d\n", *item.DocumentPages)
		}
		if item.TextQuality != nil {
			fmt.Printf("  Text qual:  %.2f\n", *item.TextQuality)
		}
	}
}
