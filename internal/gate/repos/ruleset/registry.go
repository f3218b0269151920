package ruleset

import (
	"hash/fnv"
	"time"

	"github.com/quellen/codegate/internal/gate/domain"
)

// Registry holds the full, ordered rule set for the lifetime of the process.
// It is immutable after construction: no update or removal operations exist,
// mirroring the hand-maintained nature of the rule files. Safe for concurrent
// readers without locking.
type Registry struct {
	rules    []domain.Rule
	byID     map[string]int // rule ID -> index in rules
	version  uint64
	loadedAt time.Time
}

// newRegistry builds a Registry from an ordered rule slice. Callers must have
// already rejected duplicate IDs.
func newRegistry(rules []domain.Rule, loadedAt time.Time) *Registry {
	idx := make(map[string]int, len(rules))
	for i, r := range rules {
		idx[r.ID] = i
	}
	return &Registry{
		rules:    rules,
		byID:     idx,
		version:  fingerprint(rules),
		loadedAt: loadedAt,
	}
}

// All returns the ordered rule sequence. The slice is shared, not copied;
// Rules are immutable so a read-only view is sufficient.
func (r *Registry) All() []domain.Rule { return r.rules }

// Len returns the number of registered rules.
func (r *Registry) Len() int { return len(r.rules) }

// Find returns the rule with the given ID, if registered.
func (r *Registry) Find(id string) (domain.Rule, bool) {
	i, ok := r.byID[id]
	if !ok {
		return domain.Rule{}, false
	}
	return r.rules[i], true
}

// Version returns a fingerprint of the loaded rule content. Two registries
// loaded from identical rule definitions share a version.
func (r *Registry) Version() uint64 { return r.version }

// LoadedAt returns when the registry was constructed.
func (r *Registry) LoadedAt() time.Time { return r.loadedAt }

// fingerprint hashes rule IDs and raw pattern text in registry order.
// Load timestamps and sources are excluded so the version tracks content.
func fingerprint(rules []domain.Rule) uint64 {
	h := fnv.New64a()
	for _, r := range rules {
		h.Write([]byte(r.ID))
		h.Write([]byte{0})
		for _, p := range r.Raw {
			h.Write([]byte(p))
			h.Write([]byte{0})
		}
		if r.CaseInsensitive {
			h.Write([]byte{1})
		}
		h.Write([]byte(r.Description))
		h.Write([]byte{0xff})
	}
	return h.Sum64()
}
