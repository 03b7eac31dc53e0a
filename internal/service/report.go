package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jmulder/clearcat/internal/cache"
	"github.com/jmulder/clearcat/internal/db"
)

const summaryCacheKey = "report:catalog-summary"

// CatalogSummary aggregates catalog-wide counts for reporting.
type CatalogSummary struct {
	TotalItems       int                      `json:"total_items"`
	ByFaculty        []db.FacultyCount        `json:"by_faculty"`
	ByEnrichment     []db.StatusCount         `json:"by_enrichment"`
	ByClassification []db.ClassificationCount `json:"by_classification"`
	GeneratedAt      time.Time                `json:"generated_at"`
}

// ReportService serves aggregate views of the catalog. Summaries are cached
// under the catalog tag, so any reconciliation or enrichment that touches an
// item invalidates them.
type ReportService struct {
	db    *db.Client
	cache cache.Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewReportService creates a report service. cache may be nil.
func NewReportService(dbClient *db.Client, c cache.Cache, ttl time.Duration, log *slog.Logger) *ReportService {
	if log == nil {
		log = slog.Default()
	}
	return &ReportService{db: dbClient, cache: c, ttl: ttl, log: log}
}

// CatalogSummary returns catalog-wide counts, served from cache when fresh.
func (s *ReportService) CatalogSummary(ctx context.Context) (*CatalogSummary, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, summaryCacheKey); err != nil {
			s.log.Warn("summary cache read failed", "error", err)
		} else if ok {
			var summary CatalogSummary
			if err := json.Unmarshal(data, &summary); err == nil {
				return &summary, nil
			}
			s.log.Warn("discarding undecodable cached summary")
		}
	}

	total, err := s.db.CountItems(ctx)
	if err != nil {
		return nil, err
	}
	byFaculty, err := s.db.CountItemsByFaculty(ctx)
	if err != nil {
		return nil, err
	}
	byEnrichment, err := s.db.CountItemsByEnrichmentStatus(ctx)
	if err != nil {
		return nil, err
	}
	byClassification, err := s.db.CountItemsByClassification(ctx)
	if err != nil {
		return nil, err
	}

	summary := &CatalogSummary{
		TotalItems:       total,
		ByFaculty:        byFaculty,
		ByEnrichment:     byEnrichment,
		ByClassification: byClassification,
		GeneratedAt:      time.Now(),
	}

	if s.cache != nil {
		if data, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, summaryCacheKey, data, s.ttl, cache.TagCatalog); err != nil {
				s.log.Warn("summary cache write failed", "error", err)
			}
		}
	}

	return summary, nil
}
