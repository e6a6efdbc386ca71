// Package extraction turns crawled business content into knowledge snapshots.
// It defines the data-source abstraction the extraction stage fans out over.
package extraction

import (
	"context"

	"github.com/voxlane/voxlane/internal/knowledge"
)

// Source is one provider of business knowledge. Each source returns a
// complete snapshot (all categories present, unsupported ones empty); the
// extraction stage merges snapshots across sources.
type Source interface {
	// Name identifies the source in logs and provenance diagnostics.
	Name() string
	// Extract produces a snapshot for the business at businessURL.
	Extract(ctx context.Context, businessURL, industry string) (*knowledge.Snapshot, error)
}
