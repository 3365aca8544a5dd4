package http

import (
	"context"

	"fcig/internal/pipeline"
)

// RunService is the run state the handlers read and drive. *pipeline.Manager implements it.
type RunService interface {
	Execute(ctx context.Context) (*pipeline.Run, error)
	Latest() *pipeline.Run
	Running() bool
	History() []pipeline.Summary
}
