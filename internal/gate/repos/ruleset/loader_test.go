package ruleset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quellen/codegate/internal/gate/common/clock"
	"github.com/quellen/codegate/internal/gate/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testClock() *clock.MockClock {
	clk := &clock.MockClock{}
	clk.Set(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return clk
}

func TestLoadDirectory_YAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "net.yaml", `
rules:
  - id: udp-exfil
    description: UDP exfiltration
    pattern:
      - socket\.SOCK_DGRAM
      - sendto\(
  - id: rev-shell
    description: reverse shell invocation
    pattern: /bin/sh -i
    case_insensitive: true
`)

	reg, err := LoadDirectory(dir, testClock())
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())

	rules := reg.All()
	assert.Equal(t, "udp-exfil", rules[0].ID)
	assert.Len(t, rules[0].Patterns, 2)
	assert.False(t, rules[0].CaseInsensitive)
	assert.Equal(t, "rev-shell", rules[1].ID)
	assert.Len(t, rules[1].Patterns, 1)
	assert.True(t, rules[1].CaseInsensitive)
	assert.Equal(t, filepath.Join(dir, "net.yaml"), rules[0].Source)
	assert.False(t, rules[0].AddedAt.IsZero())
}

func TestLoadDirectory_JSONAndTOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"rules": [{"id": "weak-hash", "description": "weak hash algorithm", "pattern": "md5\\.New"}]}`)
	writeFile(t, dir, "b.toml", `
[[rules]]
id = "curl-pipe-sh"
description = "piping downloads into a shell"
pattern = "curl[^\\n]*\\| *sh"
`)

	reg, err := LoadDirectory(dir, testClock())
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())
	// Lexical walk order: a.json before b.toml.
	assert.Equal(t, "weak-hash", reg.All()[0].ID)
	assert.Equal(t, "curl-pipe-sh", reg.All()[1].ID)
}

func TestLoadDirectory_SkipsUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "README.md", "# not a rule file")
	writeFile(t, dir, "rules.yaml", `
rules:
  - id: one
    description: d
    pattern: x
`)

	reg, err := LoadDirectory(dir, testClock())
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
}

func TestLoadDirectory_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "rules:\n  - id: dup\n    description: d\n    pattern: x\n")
	writeFile(t, dir, "b.yaml", "rules:\n  - id: dup\n    description: d\n    pattern: y\n")

	_, err := LoadDirectory(dir, testClock())
	require.Error(t, err)
	var ce *domain.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Error(), "duplicate rule id")
}

func TestLoadDirectory_InvalidPattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "rules:\n  - id: broken\n    description: d\n    pattern: '('\n")

	_, err := LoadDirectory(dir, testClock())
	require.Error(t, err)
	var ce *domain.ConfigError
	assert.True(t, errors.As(err, &ce))
}

func TestLoadDirectory_MissingRulesList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "not_rules: true\n")

	_, err := LoadDirectory(dir, testClock())
	require.Error(t, err)
	var ce *domain.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Error(), "missing 'rules' list")
}

func TestLoadDirectory_EntryWithoutPattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "rules:\n  - id: nopat\n    description: d\n")

	_, err := LoadDirectory(dir, testClock())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing pattern")
}

func TestLoadDirectory_NonStringPatternElement(t *testing.T) {
	dir := t.TempDir()
	// An unquoted YAML number in the pattern list must abort the load:
	// dropping it would leave the rule with a weaker conjunction than authored.
	writeFile(t, dir, "a.yaml", `
rules:
  - id: udp-exfil
    description: UDP exfiltration
    pattern:
      - socket\.SOCK_DGRAM
      - 12345
`)

	_, err := LoadDirectory(dir, testClock())
	require.Error(t, err)
	var ce *domain.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Error(), "not a string")
}

func TestLoadDirectory_PreservesPatternWhitespace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "rules:\n  - id: rmrf\n    description: recursive delete\n    pattern: ' rm -rf'\n")

	reg, err := LoadDirectory(dir, testClock())
	require.NoError(t, err)
	r, ok := reg.Find("rmrf")
	require.True(t, ok)
	require.Equal(t, []string{" rm -rf"}, r.Raw)

	// The leading space is part of the regex.
	_, matched := r.Match("x; rm -rf /")
	assert.True(t, matched)
	_, matched = r.Match("xyzrm -rf /")
	assert.False(t, matched)
}

func TestLoadDirectory_EmptyDir(t *testing.T) {
	reg, err := LoadDirectory(t.TempDir(), testClock())
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestPatternStrings(t *testing.T) {
	got, err := patternStrings("x")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got)

	got, err = patternStrings([]any{"a", " b "})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", " b "}, got)

	_, err = patternStrings([]any{"a", 42})
	assert.ErrorContains(t, err, "not a string")

	_, err = patternStrings([]any{"a", ""})
	assert.ErrorContains(t, err, "empty")

	_, err = patternStrings([]any{})
	assert.ErrorContains(t, err, "empty pattern list")

	_, err = patternStrings("")
	assert.ErrorContains(t, err, "empty pattern")

	_, err = patternStrings(nil)
	assert.ErrorContains(t, err, "missing pattern")

	_, err = patternStrings(7)
	assert.ErrorContains(t, err, "must be a string")
}
