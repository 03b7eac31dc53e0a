package cli

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmulder/clearcat/internal/models"
)

var (
	uploadKind       string
	uploadUploadedBy string
	uploadStage      bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Register a spreadsheet for ingestion",
	Long: `Register a source spreadsheet as a new ingestion batch.

The file is not parsed yet; staging happens as a separate step so a
bad file never leaves half-ingested rows behind.

Supported kinds:
  registry    wide per-material export from the course material registry
  workflow    per-faculty workflow sheet

Examples:
  clearcat upload ./export-2026.xlsx --kind registry
  clearcat upload ./et-inbox.csv --kind workflow --stage`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadKind, "kind", "k", "registry", "source kind: registry or workflow")
	uploadCmd.Flags().StringVar(&uploadUploadedBy, "uploaded-by", "", "who uploaded the file (defaults to current user)")
	uploadCmd.Flags().BoolVar(&uploadStage, "stage", false, "immediately stage the batch after upload")
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx := context.Background()

	kind, err := models.ParseSourceKind(uploadKind)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("invalid file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory: %s", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	uploadedBy := uploadUploadedBy
	if uploadedBy == "" {
		if u, err := user.Current(); err == nil {
			uploadedBy = u.Username
		}
	}

	batch, err := dbClient.CreateBatch(ctx, kind, abs, uploadedBy)
	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}

	batchID, err := models.RecordIDString(batch.ID)
	if err != nil {
		return fmt.Errorf("get batch ID: %w", err)
	}

	fmt.Printf("Created batch %s (%s, %s)\n", batchID, batch.SourceKind, filepath.Base(abs))

	if !uploadStage {
		fmt.Printf("Run 'clearcat stage %s' to parse the file.\n", batchID)
		return nil
	}

	result, err := stagingSvc.Stage(ctx, batchID)
	if err != nil {
		return fmt.Errorf("stage batch: %w", err)
	}
	fmt.Printf("Staged %d rows. Run 'clearcat process %s' to reconcile.\n", result.RowsStaged, batchID)

	return nil
}
