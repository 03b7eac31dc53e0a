package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jmulder/clearcat/internal/db"
	"github.com/jmulder/clearcat/internal/models"
)

var (
	editClassification string
	editWorkflow       string
	editTitle          string
	editLecturer       string
	editSummary        string
)

var editCmd = &cobra.Command{
	Use:   "edit <material-id>",
	Short: "Manually edit a catalog item",
	Long: `Manually edit a catalog item. Every change is recorded in the audit
log as a manual change with its field-level before/after values.

Examples:
  clearcat edit 48213 --classification own_work
  clearcat edit 48213 --workflow done --summary "cleared by faculty"
  clearcat edit 48213 --title "Corrected title"`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editClassification, "classification", "", "set the copyright classification")
	editCmd.Flags().StringVar(&editWorkflow, "workflow", "", "set the workflow status")
	editCmd.Flags().StringVar(&editTitle, "title", "", "set the title")
	editCmd.Flags().StringVar(&editLecturer, "lecturer", "", "set the lecturer name")
	editCmd.Flags().StringVarP(&editSummary, "summary", "s", "", "audit log summary")
}

func runEdit(cmd *cobra.Command, args []string) error {
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

	fields := map[string]any{}
	var deltas []models.FieldDelta

	if editClassification != "" {
		class, err := models.ParseClassification(editClassification)
		if err != nil {
			return err
		}
		if class != item.Classification {
			fields["classification"] = string(class)
			deltas = append(deltas, models.FieldDelta{
				Field: "classification", Old: string(item.Classification), New: string(class),
			})
		}
	}

	if editWorkflow != "" {
		wf, err := models.ParseWorkflowStatus(editWorkflow)
		if err != nil {
			return err
		}
		if wf != item.WorkflowStatus {
			fields["workflow_status"] = string(wf)
			deltas = append(deltas, models.FieldDelta{
				Field: "workflow_status", Old: string(item.WorkflowStatus), New: string(wf),
			})
		}
	}

	if editTitle != "" && editTitle != item.Title {
		fields["title"] = editTitle
		deltas = append(deltas, models.FieldDelta{Field: "title", Old: item.Title, New: editTitle})
	}

	if editLecturer != "" && editLecturer != item.LecturerName {
		fields["lecturer_name"] = editLecturer
		deltas = append(deltas, models.FieldDelta{Field: "lecturer_name", Old: item.LecturerName, New: editLecturer})
	}

	if len(fields) == 0 {
		fmt.Println("No changes.")
		return nil
	}

	summary := editSummary
	if summary == "" {
		summary = fmt.Sprintf("manual edit (%d fields)", len(fields))
	}

	itemID, err := models.RecordIDString(item.ID)
	if err != nil {
		return fmt.Errorf("get item ID: %w", err)
	}

	updated, err := dbClient.UpdateItemWithLog(ctx, itemID, fields, db.ChangeLogInput{
		Source:  models.ChangeManual,
		Summary: summary,
		Deltas:  deltas,
	})
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	fmt.Printf("Updated material %d (%d fields)\n", updated.MaterialID, len(fields))
	return nil
}
