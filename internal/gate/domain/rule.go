package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Rule represents a single refusal rule sourced from a rule file.
//
// Notes:
// - Patterns are AND-composed: every sub-pattern must match somewhere in the
//   submission for the rule to match. Sub-pattern order in the text is irrelevant.
// - Source should identify where the rule came from (file path or alias).
// - AddedAt records when the rule was loaded.
type Rule struct {
	ID              string           // unique rule identifier, e.g. "udp-exfil"
	Patterns        []*regexp.Regexp // compiled sub-patterns (AND composition)
	Raw             []string         // original pattern text, config order
	CaseInsensitive bool
	Description     string    // human-readable reason cited on refusal
	Source          string    // file/feed identifier
	AddedAt         time.Time // load timestamp
}

// NewRule compiles the given sub-patterns and constructs a validated Rule.
// Case-insensitive rules are compiled with the (?i) flag so matching cost is
// paid once at load time, not per evaluation.
func NewRule(id string, patterns []string, caseInsensitive bool, description, source string, addedAt time.Time) (Rule, error) {
	r := Rule{
		ID:              strings.TrimSpace(id),
		Raw:             patterns,
		CaseInsensitive: caseInsensitive,
		Description:     strings.TrimSpace(description),
		Source:          strings.TrimSpace(source),
		AddedAt:         addedAt,
	}
	if err := r.validateFields(); err != nil {
		return Rule{}, err
	}
	r.Patterns = make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return Rule{}, fmt.Errorf("rule %q: empty pattern", r.ID)
		}
		expr := p
		if caseInsensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: invalid pattern %q: %w", r.ID, p, err)
		}
		r.Patterns = append(r.Patterns, re)
	}
	return r, nil
}

// validateFields checks the Rule for required fields.
func (r Rule) validateFields() error {
	if r.ID == "" {
		return fmt.Errorf("rule id must not be empty")
	}
	if len(r.Raw) == 0 {
		return fmt.Errorf("rule %q: at least one pattern is required", r.ID)
	}
	if r.Description == "" {
		return fmt.Errorf("rule %q: description must not be empty", r.ID)
	}
	if r.Source == "" {
		return fmt.Errorf("rule %q: source must not be empty", r.ID)
	}
	if r.AddedAt.IsZero() {
		return fmt.Errorf("rule %q: addedAt must be set", r.ID)
	}
	return nil
}

// Match evaluates the rule against the submission. It returns a MatchResult
// and true only when every sub-pattern matches somewhere in code. Spans record
// the first occurrence of each sub-pattern, in pattern order.
func (r Rule) Match(code string) (MatchResult, bool) {
	spans := make([]Span, 0, len(r.Patterns))
	for _, re := range r.Patterns {
		loc := re.FindStringIndex(code)
		if loc == nil {
			return MatchResult{}, false
		}
		spans = append(spans, Span{Start: loc[0], End: loc[1]})
	}
	return MatchResult{RuleID: r.ID, Description: r.Description, Spans: spans}, true
}
