package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%q} not found", name, label, value)
	return 0
}

func TestPrometheus_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.IncEvaluation("allow")
	p.IncEvaluation("allow")
	p.IncEvaluation("refuse")
	p.IncRuleMatch("udp-exfil")
	p.IncGuardError("input_too_large")

	if v := counterValue(t, reg, "codegate_evaluator_evaluations_total", "verdict", "allow"); v != 2 {
		t.Errorf("allow evaluations = %v, want 2", v)
	}
	if v := counterValue(t, reg, "codegate_evaluator_evaluations_total", "verdict", "refuse"); v != 1 {
		t.Errorf("refuse evaluations = %v, want 1", v)
	}
	if v := counterValue(t, reg, "codegate_evaluator_rule_matches_total", "rule", "udp-exfil"); v != 1 {
		t.Errorf("rule matches = %v, want 1", v)
	}
	if v := counterValue(t, reg, "codegate_evaluator_guard_errors_total", "kind", "input_too_large"); v != 1 {
		t.Errorf("guard errors = %v, want 1", v)
	}
}

func TestPrometheus_Histogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.ObserveEvalDuration(2 * time.Millisecond)
	p.ObserveEvalDuration(5 * time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var hist *dto.Histogram
	for _, fam := range families {
		if fam.GetName() == "codegate_evaluator_evaluation_duration_seconds" {
			hist = fam.GetMetric()[0].GetHistogram()
		}
	}
	if hist == nil {
		t.Fatalf("histogram not registered")
	}
	if hist.GetSampleCount() != 2 {
		t.Errorf("sample count = %d, want 2", hist.GetSampleCount())
	}
	if got := hist.GetSampleSum(); got < 0.006 || got > 0.008 {
		t.Errorf("sample sum = %v, want 0.007", got)
	}
}

func TestNoop_DoesNothing(t *testing.T) {
	var n Noop
	n.IncEvaluation("allow")
	n.IncRuleMatch("x")
	n.IncGuardError("y")
	n.ObserveEvalDuration(time.Second)
}
