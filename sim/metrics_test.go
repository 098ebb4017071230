package sim

import (
	"testing"
)

func TestNewMetrics_RegistersDiagnosticsCounters(t *testing.T) {
	// GIVEN a fresh metrics set
	m := NewMetrics()

	// WHEN a counted event is recorded
	m.promSteps.Inc()
	m.promSteps.Inc()
	m.promReactions.Inc()

	// THEN the private registry gathers every counter family
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	got := map[string]float64{}
	for _, f := range families {
		got[f.GetName()] = f.GetMetric()[0].GetCounter().GetValue()
	}
	want := map[string]float64{
		"molcom_sim_diffusion_steps_total": 2,
		"molcom_sim_reflections_total":     0,
		"molcom_sim_transmissions_total":   0,
		"molcom_sim_absorptions_total":     0,
		"molcom_sim_reactions_fired_total": 1,
		"molcom_sim_recursion_clamps_total": 0,
	}
	for name, val := range want {
		if got[name] != val {
			t.Errorf("%s: got %g, want %g", name, got[name], val)
		}
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	// GIVEN two metrics sets
	m1 := NewMetrics()
	m2 := NewMetrics()

	// WHEN one records events
	m1.promSteps.Inc()

	// THEN the other's registry is unaffected
	families, err := m2.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if v := f.GetMetric()[0].GetCounter().GetValue(); v != 0 {
			t.Errorf("%s: got %g, want 0", f.GetName(), v)
		}
	}
}
