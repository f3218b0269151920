// Package audit persists refuse decisions for later review.
package audit

import (
	"github.com/quellen/codegate/internal/gate/domain"
	"github.com/quellen/codegate/internal/gate/services/evaluator"
)

// NopLog discards all entries. Used when no audit path is configured.
type NopLog struct{}

func (n *NopLog) Append(domain.AuditEntry) error { return nil }

var _ evaluator.AuditLog = (*NopLog)(nil)
