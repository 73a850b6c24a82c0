package frame

import (
	"github.com/Carmen-Shannon/oxy-clustered/engine/profiler"
	"go.uber.org/zap"
)

// OrchestratorBuilderOption is a functional option for configuring an Orchestrator.
type OrchestratorBuilderOption func(*orchestratorImpl)

// WithProfiler records per-stage timings and ticks the profiler once per presented frame.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - OrchestratorBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) OrchestratorBuilderOption {
	return func(o *orchestratorImpl) {
		o.profiler = p
	}
}

// WithLogger sets the logger used by the orchestrator.
//
// Parameters:
//   - l: the logger; nil falls back to the global logger
//
// Returns:
//   - OrchestratorBuilderOption: option function to apply
func WithLogger(l *zap.Logger) OrchestratorBuilderOption {
	return func(o *orchestratorImpl) {
		o.logger = l
	}
}
