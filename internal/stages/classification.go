package stages

import (
	"context"
	"errors"

	"github.com/voxlane/voxlane/internal/classify"
	"github.com/voxlane/voxlane/internal/fetch"
	"github.com/voxlane/voxlane/internal/types"
)

// Classifier determines the industry of the business behind a URL.
type Classifier interface {
	Classify(ctx context.Context, businessURL string) (*classify.Result, error)
}

// ClassificationStage resolves the business URL to an industry label.
type ClassificationStage struct {
	classifier Classifier
}

// NewClassificationStage creates the classification executor.
func NewClassificationStage(classifier Classifier) *ClassificationStage {
	return &ClassificationStage{classifier: classifier}
}

// Stage identifies this executor.
func (s *ClassificationStage) Stage() types.Stage { return types.StageClassifying }

// Execute classifies the workflow's business URL. Unreachable hosts and
// server errors are retryable; non-HTML content and other permanent fetch
// failures are fatal.
func (s *ClassificationStage) Execute(ctx context.Context, sc *Context) (*Result, error) {
	result, err := s.classifier.Classify(ctx, sc.Workflow.BusinessURL)
	if err != nil {
		return nil, s.classifyFailure(err)
	}
	return &Result{Payload: result}, nil
}

func (s *ClassificationStage) classifyFailure(err error) error {
	var notHTML *classify.NotHTMLError
	if errors.As(err, &notHTML) {
		return &FatalError{Stage: s.Stage(), Cause: err}
	}

	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		if fetchErr.Transient {
			return &RetryableError{Stage: s.Stage(), Cause: err}
		}
		return &FatalError{Stage: s.Stage(), Cause: err}
	}

	// Model and parsing hiccups are worth another attempt.
	return &RetryableError{Stage: s.Stage(), Cause: err}
}
