package cluster

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"
)

// AssignerBuilderOption is a function that configures an Assigner instance during construction.
type AssignerBuilderOption func(*assignerImpl)

// WithWorkers is an option builder that sets the size of the worker pool the
// assigner creates. Ignored when WithWorkerPool is also given.
//
// Parameters:
//   - n: the number of workers
//
// Returns:
//   - AssignerBuilderOption: a function that applies the workers option to an assignerImpl
func WithWorkers(n int) AssignerBuilderOption {
	return func(a *assignerImpl) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithWorkerPool is an option builder that shares an existing worker pool.
// The assigner never stops a pool it did not create.
//
// Parameters:
//   - pool: the worker pool
//
// Returns:
//   - AssignerBuilderOption: a function that applies the pool option to an assignerImpl
func WithWorkerPool(pool worker.DynamicWorkerPool) AssignerBuilderOption {
	return func(a *assignerImpl) {
		a.pool = pool
	}
}

// WithLogger is an option builder that sets the logger used by the assigner.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - AssignerBuilderOption: a function that applies the logger option to an assignerImpl
func WithLogger(logger *zap.Logger) AssignerBuilderOption {
	return func(a *assignerImpl) {
		a.logger = logger
	}
}
