package evaluator

import "github.com/quellen/codegate/internal/gate/domain"

// decide reduces a match sequence into a single Decision: no matches means
// allow, anything else means refuse with every triggering match retained in
// registry order. One pass is authoritative; there are no retries and no
// middle ground between the two verdicts.
func decide(matches []domain.MatchResult) domain.Decision {
	if len(matches) == 0 {
		return domain.AllowDecision()
	}
	return domain.RefuseDecision(matches)
}
