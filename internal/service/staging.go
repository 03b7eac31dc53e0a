package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmulder/clearcat/internal/db"
	"github.com/jmulder/clearcat/internal/metrics"
	"github.com/jmulder/clearcat/internal/models"
	"github.com/jmulder/clearcat/internal/parser"
)

// StagingService parses uploaded spreadsheets into raw staged rows.
type StagingService struct {
	db  *db.Client
	log *slog.Logger
	mc  *metrics.Collector
}

// NewStagingService creates a staging service.
func NewStagingService(dbClient *db.Client, log *slog.Logger, mc *metrics.Collector) *StagingService {
	return &StagingService{db: dbClient, log: log, mc: mc}
}

// StageResult summarizes a staging operation.
type StageResult struct {
	RowsStaged int
}

// Stage parses the batch's source file and bulk-inserts every non-empty row
// as a staged item, preserving spreadsheet order. The insert is
// all-or-nothing: a parse or insert failure moves the batch to FAILED and no
// partial rows remain. Rows are stored verbatim; validation happens during
// reconciliation.
func (s *StagingService) Stage(ctx context.Context, batchID string) (*StageResult, error) {
	start := time.Now()
	defer func() {
		if s.mc != nil {
			s.mc.RecordTiming(metrics.OpStaging, time.Since(start))
		}
	}()

	batch, err := s.db.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != models.BatchUploaded {
		return nil, fmt.Errorf("batch %s is %s: %w", batchID, batch.Status, db.ErrInvalidTransition)
	}

	rows, err := parser.ParseFile(batch.SourceFile, batch.SourceKind)
	if err != nil {
		s.fail(ctx, batchID, fmt.Errorf("parse %s: %w", batch.SourceFile, err))
		return nil, fmt.Errorf("parse %s: %w", batch.SourceFile, err)
	}
	if len(rows) == 0 {
		err := fmt.Errorf("no data rows in %s", batch.SourceFile)
		s.fail(ctx, batchID, err)
		return nil, err
	}

	if err := s.db.BulkInsertStagedItems(ctx, batchID, rows); err != nil {
		s.fail(ctx, batchID, err)
		return nil, err
	}

	if _, err := s.db.MarkBatchStaged(ctx, batchID, len(rows)); err != nil {
		return nil, err
	}

	s.log.Info("batch staged", "batch_id", batchID, "rows", len(rows), "source", batch.SourceFile)
	return &StageResult{RowsStaged: len(rows)}, nil
}

func (s *StagingService) fail(ctx context.Context, batchID string, cause error) {
	if _, err := s.db.FailBatch(ctx, batchID, cause.Error()); err != nil {
		s.log.Error("failed to mark batch failed", "batch_id", batchID, "error", err)
	}
}
