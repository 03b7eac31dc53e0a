package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <batch-id>",
	Short: "Check a completed batch's accounting",
	Long: `Check that a completed batch accounts for every staged row and that
the audit log matches the number of effective mutations.

Examples:
  clearcat verify 01jm3k...`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	result, err := reconciler.Verify(ctx, args[0])
	if err != nil {
		return fmt.Errorf("verify batch: %w", err)
	}

	fmt.Printf("Rows staged:  %d\n", result.RowsStaged)
	fmt.Printf("Accounted:    %d\n", result.Accounted)
	fmt.Printf("Mutations:    %d\n", result.Mutations)
	fmt.Printf("Log entries:  %d\n", result.LogEntries)

	if result.Consistent {
		fmt.Println("\nConsistent")
		return nil
	}

	fmt.Printf("\nInconsistent (%d problems):\n", len(result.Problems))
	for _, p := range result.Problems {
		fmt.Printf("  - %s\n", p)
	}
	exitWithError("batch %s failed verification", args[0])
	return nil
}
