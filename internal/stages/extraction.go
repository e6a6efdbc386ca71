package stages

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/voxlane/voxlane/internal/extraction"
	"github.com/voxlane/voxlane/internal/knowledge"
	"github.com/voxlane/voxlane/internal/types"
)

// ExtractionStage fans out over all knowledge sources concurrently and merges
// their snapshots into one. A partial source failure is retryable as long as
// at least one source produced a snapshot; only a total failure is fatal.
type ExtractionStage struct {
	sources []extraction.Source
}

// NewExtractionStage creates the extraction executor over the given sources.
func NewExtractionStage(sources []extraction.Source) *ExtractionStage {
	return &ExtractionStage{sources: sources}
}

// Stage identifies this executor.
func (s *ExtractionStage) Stage() types.Stage { return types.StageExtracting }

// Execute runs every source against the business URL and merges the results.
// The merged snapshot always contains every category; categories no source
// could fill stay empty.
func (s *ExtractionStage) Execute(ctx context.Context, sc *Context) (*Result, error) {
	if len(s.sources) == 0 {
		return nil, &FatalError{Stage: s.Stage(), Cause: fmt.Errorf("no knowledge sources configured")}
	}
	if sc.Classification == nil {
		return nil, &FatalError{Stage: s.Stage(), Cause: fmt.Errorf("missing classification result")}
	}

	snapshots := make([]*knowledge.Snapshot, len(s.sources))
	failures := make([]error, len(s.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, source := range s.sources {
		g.Go(func() error {
			snap, err := source.Extract(gctx, sc.Workflow.BusinessURL, sc.Classification.Industry)
			if err != nil {
				log.Printf("extraction source %s failed for workflow %s: %v", source.Name(), sc.Workflow.ID, err)
				failures[i] = fmt.Errorf("source %s: %w", source.Name(), err)
				return nil
			}
			snapshots[i] = snap
			return nil
		})
	}
	// Goroutines record failures into their slot instead of returning them,
	// so Wait only fails on context cancellation.
	if err := g.Wait(); err != nil {
		return nil, &RetryableError{Stage: s.Stage(), Cause: err}
	}

	merged := knowledge.NewEmptySnapshot()
	succeeded := 0
	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		succeeded++
		knowledge.Merge(merged, snap)
	}

	if succeeded == 0 {
		return nil, &FatalError{Stage: s.Stage(), Cause: joinFailures(failures)}
	}
	if succeeded < len(s.sources) {
		return nil, &RetryableError{Stage: s.Stage(), Cause: joinFailures(failures)}
	}

	return &Result{Payload: merged}, nil
}

func joinFailures(failures []error) error {
	var first error
	count := 0
	for _, err := range failures {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		}
		count++
	}
	if count <= 1 {
		return first
	}
	return fmt.Errorf("%d sources failed, first: %w", count, first)
}
