package evaluator

import (
	"time"

	"github.com/quellen/codegate/internal/gate/domain"
)

// RuleSource provides the ordered, immutable rule set.
type RuleSource interface {
	All() []domain.Rule
	Len() int
	Version() uint64
}

// Prefilter screens submissions before full evaluation. A false return is
// authoritative: no rule can match, the submission is allowed outright.
type Prefilter interface {
	MightMatch(code string) bool
}

// DecisionCache caches decisions by submission content key with basic metrics.
type DecisionCache interface {
	Get(key string) (domain.Decision, bool)
	Put(key string, d domain.Decision)
	Len() int
	Purge()
	Stats() (hits, misses, evictions uint64)
}

// AuditLog journals refuse decisions for later review.
type AuditLog interface {
	Append(e domain.AuditEntry) error
}

// Metrics records evaluation outcomes. Implementations must be safe for
// concurrent use.
type Metrics interface {
	IncEvaluation(verdict string)
	IncRuleMatch(ruleID string)
	IncGuardError(kind string)
	ObserveEvalDuration(d time.Duration)
}
