// Package evaluator implements the evaluation pipeline: guard checks, the
// decision cache, the anchor prefilter, full rule matching, and aggregation
// into a single allow/refuse decision.
package evaluator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/quellen/codegate/internal/gate/common/clock"
	"github.com/quellen/codegate/internal/gate/common/log"
	"github.com/quellen/codegate/internal/gate/domain"
)

// Evaluator evaluates submissions against the loaded rule set. All inputs are
// immutable after construction, so evaluations are pure and may run fully in
// parallel with no locking here.
type Evaluator struct {
	rules     RuleSource
	cache     DecisionCache
	prefilter Prefilter
	audit     AuditLog
	metrics   Metrics
	logger    log.Logger
	clock     clock.Clock
	maxInput  int
	timeout   time.Duration
}

// Options configures a new Evaluator. Cache, Prefilter, Audit, and Metrics
// are optional; nil disables the corresponding stage.
type Options struct {
	Rules     RuleSource
	Cache     DecisionCache
	Prefilter Prefilter
	Audit     AuditLog
	Metrics   Metrics
	Logger    log.Logger
	Clock     clock.Clock
	MaxInput  int
	Timeout   time.Duration
}

// New constructs an Evaluator from the given options.
func New(opts Options) *Evaluator {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Evaluator{
		rules:     opts.Rules,
		cache:     opts.Cache,
		prefilter: opts.Prefilter,
		audit:     opts.Audit,
		metrics:   opts.Metrics,
		logger:    logger,
		clock:     clk,
		maxInput:  opts.MaxInput,
		timeout:   opts.Timeout,
	}
}

// Evaluate runs the full pipeline for one submission and returns its
// Decision. Per-call failures never propagate: they surface as refuse
// decisions carrying the cause (fail-closed).
func (e *Evaluator) Evaluate(ctx context.Context, code string) domain.Decision {
	start := time.Now()
	d := e.evaluate(ctx, code)
	if e.metrics != nil {
		e.metrics.ObserveEvalDuration(time.Since(start))
		e.metrics.IncEvaluation(d.Verdict.String())
	}
	return d
}

func (e *Evaluator) evaluate(ctx context.Context, code string) domain.Decision {
	// Guard: bound worst-case matching cost before touching any pattern.
	if e.maxInput > 0 && len(code) > e.maxInput {
		return e.failClosed(code, domain.ErrInputTooLarge)
	}

	key := ContentKey(code)
	if e.cache != nil {
		if d, ok := e.cache.Get(key); ok {
			return d
		}
	}

	// Prefilter: a definitive negative means no rule can match.
	if e.prefilter != nil && !e.prefilter.MightMatch(code) {
		d := domain.AllowDecision()
		e.putCache(key, d)
		return d
	}

	matches, err := e.matchAll(ctx, code)
	if err != nil {
		return e.failClosed(code, err)
	}

	d := decide(matches)
	// Guard refusals are never cached (transient); rule decisions are.
	e.putCache(key, d)

	if d.IsRefused() {
		e.recordRefusal(code, d)
	}
	return d
}

// matchAll evaluates every rule in registry order against the submission,
// bounded by the configured timeout. On timeout or cancellation the matching
// goroutine is abandoned; the buffered channel lets it finish and exit.
func (e *Evaluator) matchAll(ctx context.Context, code string) ([]domain.MatchResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	done := make(chan []domain.MatchResult, 1)
	go func() {
		var out []domain.MatchResult
		for _, r := range e.rules.All() {
			if m, ok := r.Match(code); ok {
				out = append(out, m)
			}
		}
		done <- out
	}()

	select {
	case out := <-done:
		return out, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrMatchTimeout
		}
		return nil, ctx.Err()
	}
}

// failClosed turns a per-call error into a refuse decision, journals it, and
// counts it. The decision is not cached.
func (e *Evaluator) failClosed(code string, err error) domain.Decision {
	d := domain.FailClosed(err)
	if e.metrics != nil {
		e.metrics.IncGuardError(guardKind(err))
	}
	e.logger.Warn(map[string]any{
		"error":       err.Error(),
		"content_len": len(code),
	}, "evaluation failed closed")
	e.recordRefusal(code, d)
	return d
}

// recordRefusal appends the refusal to the audit journal and bumps per-rule
// counters. Audit failures are logged, never surfaced to the caller.
func (e *Evaluator) recordRefusal(code string, d domain.Decision) {
	if e.metrics != nil {
		for _, m := range d.Matches {
			e.metrics.IncRuleMatch(m.RuleID)
		}
	}
	if e.audit == nil {
		return
	}
	entry := domain.AuditEntry{
		When:           e.clock.Now(),
		ContentHash:    ContentKey(code),
		ContentLen:     len(code),
		RuleIDs:        d.RuleIDs(),
		RuleSetVersion: e.rules.Version(),
	}
	if d.Err != nil {
		entry.Cause = d.Err.Error()
	}
	if err := e.audit.Append(entry); err != nil {
		e.logger.Error(map[string]any{"error": err.Error()}, "audit append failed")
	}
}

func (e *Evaluator) putCache(key string, d domain.Decision) {
	if e.cache != nil {
		e.cache.Put(key, d)
	}
}

// guardKind maps a per-call error to its metrics label.
func guardKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInputTooLarge):
		return "input_too_large"
	case errors.Is(err, domain.ErrMatchTimeout):
		return "match_timeout"
	default:
		return "canceled"
	}
}

// ContentKey returns the cache/audit key for a submission: the hex SHA-256
// of its content. The submission itself never leaves this process.
func ContentKey(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
