// Package prefilter builds a Bloom-filter screen that sits in front of full
// rule evaluation. Each rule contributes a literal anchor extracted from its
// patterns; a submission that definitely contains no anchor cannot match any
// anchored rule and can be allowed without running a single regex.
package prefilter

import (
	"strings"
	"unicode"

	"github.com/quellen/codegate/internal/gate/common/log"
	"github.com/quellen/codegate/internal/gate/domain"
)

// shingleWidth is the fixed width of the byte windows tested against the
// filter. Anchors shorter than this cannot be represented and leave their
// rule unanchored.
const shingleWidth = 8

// AnchorPrefilter answers "might any rule match this submission?".
// A false answer is authoritative (early allow); a true answer means full
// evaluation is required. When any rule lacks a usable anchor the prefilter
// degrades to always-true, which is safe but buys nothing for that rule set.
type AnchorPrefilter struct {
	bf       BloomFilter
	complete bool // every rule contributed an anchor
	anchored int  // rules that contributed an anchor
}

// Build constructs an AnchorPrefilter for the given rules. All keys are
// simple-case-folded so a single filter serves both case-sensitive and
// case-insensitive rules; folding can only widen the candidate set.
func Build(rules []domain.Rule, factory BloomFactory, fpRate float64, logger log.Logger) *AnchorPrefilter {
	grams := make([]string, 0, len(rules))
	complete := true
	for _, r := range rules {
		anchor := ruleAnchor(r)
		if anchor == "" {
			complete = false
			logger.Debug(map[string]any{"rule": r.ID}, "prefilter_rule_unanchored")
			continue
		}
		grams = append(grams, anchor[:shingleWidth])
	}

	bf := factory.New(uint64(len(grams)), fpRate)
	for _, g := range grams {
		bf.Add([]byte(g))
	}
	logger.Info(map[string]any{
		"rules":    len(rules),
		"anchored": len(grams),
		"complete": complete,
	}, "anchor prefilter built")
	return &AnchorPrefilter{bf: bf, complete: complete, anchored: len(grams)}
}

// ruleAnchor returns the folded anchor for a rule: the longest required
// literal across its sub-patterns, truncated semantics handled by the caller.
// Any sub-pattern works since all must match (AND composition); the longest
// gives the rarest shingle.
func ruleAnchor(r domain.Rule) string {
	best := ""
	for _, p := range r.Raw {
		if a := anchorForPattern(p); len(a) > len(best) {
			best = a
		}
	}
	folded := fold(best)
	if len(folded) < shingleWidth {
		return ""
	}
	return folded
}

// fold maps every rune to a canonical representative of its simple case-fold
// orbit, the same folding (?i) matching uses. ToLower alone is not enough:
// ſ and s, or ς and σ, are (?i)-equivalent but lowercase differently, and a
// divergence inside an anchor's first window would produce a false early
// allow.
func fold(s string) string {
	return strings.Map(foldRune, s)
}

func foldRune(r rune) rune {
	min := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < min {
			min = f
		}
	}
	return unicode.ToLower(min)
}

// MightMatch reports whether any rule could match the submission.
// It slides a fixed-width window over the folded submission and tests each
// window against the filter. No window present means no anchor is present,
// which is a definitive negative for a complete prefilter.
func (p *AnchorPrefilter) MightMatch(code string) bool {
	if !p.complete || p.bf == nil {
		return true
	}
	folded := fold(code)
	if len(folded) < shingleWidth {
		// Shorter than every anchor, so no anchored rule can match.
		return false
	}
	for i := 0; i+shingleWidth <= len(folded); i++ {
		if p.bf.MightContain([]byte(folded[i : i+shingleWidth])) {
			return true
		}
	}
	return false
}

// Anchored returns how many rules contributed an anchor.
func (p *AnchorPrefilter) Anchored() int { return p.anchored }

// Complete reports whether every rule contributed an anchor, i.e. whether a
// negative answer from MightMatch is authoritative.
func (p *AnchorPrefilter) Complete() bool { return p.complete }
