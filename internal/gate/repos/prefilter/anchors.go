package prefilter

import (
	"regexp/syntax"
)

// requiredLiterals collects literal substrings that must appear in any string
// the pattern matches. Literals under alternation, star, or quest are
// optional and therefore excluded; a plus contributes its first iteration.
func requiredLiterals(re *syntax.Regexp, out *[]string) {
	switch re.Op {
	case syntax.OpLiteral:
		*out = append(*out, string(re.Rune))
	case syntax.OpConcat:
		var run []rune
		flush := func() {
			if len(run) > 0 {
				*out = append(*out, string(run))
				run = nil
			}
		}
		for _, sub := range re.Sub {
			if sub.Op == syntax.OpLiteral {
				run = append(run, sub.Rune...)
				continue
			}
			flush()
			requiredLiterals(sub, out)
		}
		flush()
	case syntax.OpCapture:
		requiredLiterals(re.Sub[0], out)
	case syntax.OpPlus:
		// At least one iteration is required, so its required literals are too.
		requiredLiterals(re.Sub[0], out)
	}
}

// anchorForPattern returns the longest literal substring every match of the
// pattern must contain, or "" when no such literal exists (e.g. pure
// character classes or top-level alternation).
func anchorForPattern(pattern string) string {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return ""
	}
	var lits []string
	requiredLiterals(re, &lits)
	best := ""
	for _, l := range lits {
		if len(l) > len(best) {
			best = l
		}
	}
	return best
}
