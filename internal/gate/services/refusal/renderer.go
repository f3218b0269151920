// Package refusal renders refuse decisions into the fixed user-facing
// message. The message embeds rule descriptions only: the submitted code is
// never echoed, no sanitized alternative is ever suggested, and nothing in
// the output hints at how to evade a rule.
package refusal

import (
	"fmt"
	"strings"

	"github.com/quellen/codegate/internal/gate/domain"
)

// messageTemplate is the fixed refusal wording. The only variable part is
// the cited reason, which comes from rule descriptions in the rule files.
const messageTemplate = "I cannot execute this request because %s. I will not execute this code or any modified version of it."

// guardReason is cited when the refusal was caused by a per-call guard
// (oversized input, timeout) rather than a rule match.
const guardReason = "the submission could not be safely evaluated"

// Renderer formats decisions. CiteAll controls verbosity: false cites the
// first triggering rule by registry order, true cites every triggering rule.
// Either way the choice is deterministic for a given decision.
type Renderer struct {
	citeAll bool
}

// New returns a Renderer with the given verbosity.
func New(citeAll bool) *Renderer {
	return &Renderer{citeAll: citeAll}
}

// Render turns a decision into its user-facing message. For allow decisions
// it returns ("", false): the caller proceeds with whatever execution means
// in its context.
func (r *Renderer) Render(d domain.Decision) (string, bool) {
	if !d.IsRefused() {
		return "", false
	}
	return fmt.Sprintf(messageTemplate, r.reason(d)), true
}

// reason picks the cited reason for a refuse decision.
func (r *Renderer) reason(d domain.Decision) string {
	if len(d.Matches) == 0 {
		return guardReason
	}
	if !r.citeAll {
		return d.Matches[0].Description
	}
	descs := make([]string, 0, len(d.Matches))
	for _, m := range d.Matches {
		descs = append(descs, m.Description)
	}
	return strings.Join(descs, "; ")
}
