// Package ruleset loads refusal rules from rule files in various formats and
// exposes them as an ordered, immutable Registry. It supports YAML, JSON, and
// TOML rule files.
package ruleset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	"github.com/quellen/codegate/internal/gate/common/clock"
	"github.com/quellen/codegate/internal/gate/domain"
)

// LoadDirectory walks the given directory, loading all supported rule files
// (YAML, JSON, TOML) into a single Registry. File order is the lexical walk
// order, and rule order within a file is preserved, so registry order is
// deterministic across loads.
//
// Any malformed file, invalid pattern, or duplicate rule ID aborts the load
// with a *domain.ConfigError: serving with a partial rule set is worse than
// not starting.
func LoadDirectory(dir string, clk clock.Clock) (*Registry, error) {
	now := clk.Now()
	var rules []domain.Rule
	seen := make(map[string]string) // rule ID -> file it came from

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		fileRules, err := loadRuleFile(path, now)
		if err != nil {
			return err
		}
		for _, r := range fileRules {
			if prev, dup := seen[r.ID]; dup {
				return &domain.ConfigError{
					Path: path,
					Err:  fmt.Errorf("duplicate rule id %q (first defined in %s)", r.ID, prev),
				}
			}
			seen[r.ID] = path
			rules = append(rules, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newRegistry(rules, now), nil
}

// ruleRecord is the on-disk shape of one rule entry.
type ruleRecord struct {
	ID              string
	Patterns        []string
	CaseInsensitive bool
	Description     string
}

// loadRuleFile loads and parses a single rule file at the given path, using
// the appropriate parser for the file extension. Unsupported extensions are
// skipped silently so rule directories can hold READMEs and the like.
func loadRuleFile(path string, now time.Time) ([]domain.Rule, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	case ".toml":
		parser = toml.Parser()
	default:
		return nil, nil // unsupported file type
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, &domain.ConfigError{Path: path, Err: fmt.Errorf("failed to load rule file: %w", err)}
	}

	// YAML and JSON parse rule entries as []any; the TOML parser yields
	// []map[string]any for arrays of tables. Accept both.
	var entries []any
	switch v := k.Raw()["rules"].(type) {
	case []any:
		entries = v
	case []map[string]any:
		entries = make([]any, len(v))
		for i := range v {
			entries[i] = v[i]
		}
	default:
		return nil, &domain.ConfigError{Path: path, Err: fmt.Errorf("rule file missing 'rules' list")}
	}

	out := make([]domain.Rule, 0, len(entries))
	for i, entry := range entries {
		rec, err := toRuleRecord(entry)
		if err != nil {
			return nil, &domain.ConfigError{Path: path, Err: fmt.Errorf("rule entry %d: %w", i, err)}
		}
		rule, err := domain.NewRule(rec.ID, rec.Patterns, rec.CaseInsensitive, rec.Description, path, now)
		if err != nil {
			return nil, &domain.ConfigError{Path: path, Err: err}
		}
		out = append(out, rule)
	}
	return out, nil
}

// toRuleRecord converts a raw koanf-parsed rule entry into a ruleRecord.
// `pattern` may be a single string or a list of strings (AND composition).
func toRuleRecord(entry any) (ruleRecord, error) {
	m, ok := entry.(map[string]any)
	if !ok {
		return ruleRecord{}, fmt.Errorf("rule entry must be a mapping")
	}

	rec := ruleRecord{}
	if v, ok := m["id"].(string); ok {
		rec.ID = v
	}
	if v, ok := m["description"].(string); ok {
		rec.Description = v
	}
	if v, ok := m["case_insensitive"].(bool); ok {
		rec.CaseInsensitive = v
	}
	patterns, err := patternStrings(m["pattern"])
	if err != nil {
		return ruleRecord{}, fmt.Errorf("rule %q: %w", rec.ID, err)
	}
	rec.Patterns = patterns
	return rec, nil
}

// patternStrings converts a raw koanf-parsed `pattern` value (string or list
// of strings) into a pattern slice. Any non-string or empty element is an
// error: dropping a sub-pattern would weaken the rule's conjunction, so the
// rule must not load at all. Pattern text is kept verbatim, leading and
// trailing whitespace included.
func patternStrings(val any) ([]string, error) {
	switch v := val.(type) {
	case nil:
		return nil, fmt.Errorf("missing pattern")
	case string:
		if v == "" {
			return nil, fmt.Errorf("empty pattern")
		}
		return []string{v}, nil
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty pattern list")
		}
		out := make([]string, 0, len(v))
		for i, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("pattern %d is %T, not a string", i, elem)
			}
			if s == "" {
				return nil, fmt.Errorf("pattern %d is empty", i)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("pattern must be a string or list of strings, got %T", val)
	}
}
