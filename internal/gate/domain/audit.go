package domain

import "time"

// AuditEntry records one refuse decision for the audit journal. The
// submission itself is never stored, only its hash and length.
type AuditEntry struct {
	When           time.Time `json:"when"`
	ContentHash    string    `json:"content_hash"`
	ContentLen     int       `json:"content_len"`
	RuleIDs        []string  `json:"rule_ids,omitempty"`
	Cause          string    `json:"cause,omitempty"` // guard error text for fail-closed refusals
	RuleSetVersion uint64    `json:"rule_set_version"`
}
