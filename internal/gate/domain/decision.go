package domain

import "fmt"

// Verdict is the binary outcome of evaluating a submission.
type Verdict uint8

const (
	// VerdictAllow means no rule matched and the submission may proceed.
	VerdictAllow Verdict = iota
	// VerdictRefuse means at least one rule matched, or a per-call guard
	// tripped and the evaluation failed closed.
	VerdictRefuse
)

// String returns a stable string representation of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictRefuse:
		return "refuse"
	default:
		return fmt.Sprintf("Verdict(%d)", v)
	}
}

// Span marks a half-open byte range [Start, End) within the submission.
type Span struct {
	Start int
	End   int
}

// MatchResult records one rule that fully matched the submission.
// Spans hold the first occurrence of each sub-pattern, in pattern order.
type MatchResult struct {
	RuleID      string
	Description string
	Spans       []Span
}

// Decision represents the outcome of evaluating a submission against the
// rule set. Pure value type, created once per evaluation and never mutated.
//
// Invariant: Verdict is refuse if and only if at least one rule fully
// matched (Matches non-empty) or a guard error occurred (Err non-nil).
type Decision struct {
	Verdict Verdict
	Matches []MatchResult // registry order
	Err     error         // non-nil only for fail-closed refusals
}

// AllowDecision returns an allow decision with no matches.
func AllowDecision() Decision { return Decision{Verdict: VerdictAllow} }

// RefuseDecision returns a refuse decision retaining all triggering matches
// in registry order.
func RefuseDecision(matches []MatchResult) Decision {
	return Decision{Verdict: VerdictRefuse, Matches: matches}
}

// FailClosed returns a refuse decision caused by a per-call error rather
// than a rule match. The cause is retained for audit and logging.
func FailClosed(err error) Decision {
	return Decision{Verdict: VerdictRefuse, Err: err}
}

// IsRefused is a convenience accessor.
func (d Decision) IsRefused() bool { return d.Verdict == VerdictRefuse }

// RuleIDs returns the identifiers of the triggering rules in registry order.
func (d Decision) RuleIDs() []string {
	if len(d.Matches) == 0 {
		return nil
	}
	ids := make([]string, 0, len(d.Matches))
	for _, m := range d.Matches {
		ids = append(ids, m.RuleID)
	}
	return ids
}
