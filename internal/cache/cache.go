// Package cache provides a tag-invalidated read cache for derived catalog
// views (aggregate counts, per-faculty queries).
//
// Writers do not track exact keys: every cached entry is associated with one
// or more logical tags, and a mutation drops everything tagged with the tags
// it returns. That trades some cache-miss cost for correctness simplicity.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Well-known tags. Faculty-scoped entries additionally use TagFaculty(code).
const (
	TagCatalog = "catalog"
	TagCourses = "courses"
	TagPersons = "persons"
)

// TagFaculty returns the invalidation tag scoped to one faculty.
func TagFaculty(code string) string {
	return "faculty:" + code
}

// Cache is a byte cache with tag-based invalidation.
type Cache interface {
	// Get returns the cached value, or ok=false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value under the given tags with a TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error
	// InvalidateTags drops every entry associated with any of the tags.
	InvalidateTags(ctx context.Context, tags ...string) error
}

// Invalidate drops the given tags, logging and swallowing any failure.
// Cache invalidation must never fail the mutation that triggered it.
func Invalidate(ctx context.Context, c Cache, tags ...string) {
	if c == nil || len(tags) == 0 {
		return
	}
	if err := c.InvalidateTags(ctx, tags...); err != nil {
		slog.Warn("cache invalidation failed", "tags", tags, "error", err)
	}
}
