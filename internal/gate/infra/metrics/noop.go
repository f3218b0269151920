package metrics

import (
	"time"

	"github.com/quellen/codegate/internal/gate/services/evaluator"
)

// Noop is a no-op implementation of evaluator.Metrics.
// Use this when metrics collection is disabled.
type Noop struct{}

// NewNoop creates a new no-op metrics collector.
func NewNoop() *Noop {
	return &Noop{}
}

func (Noop) IncEvaluation(string)              {}
func (Noop) IncRuleMatch(string)               {}
func (Noop) IncGuardError(string)              {}
func (Noop) ObserveEvalDuration(time.Duration) {}

var _ evaluator.Metrics = (*Noop)(nil)
