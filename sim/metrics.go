package sim

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates statistics about the simulation
// for final reporting. Useful for evaluating boundary behavior
// and debugging molecule trajectories over time.
type Metrics struct {
	Steps           int64 // Microscopic diffusion steps resolved
	Reflections     int64 // Boundary reflections
	Transmissions   int64 // Region-to-region transmissions
	Absorptions     int64 // Molecules consumed by surface reactions
	Handoffs        int64 // Micro-to-meso boundary handoffs
	ReactionsFired  int64 // Zeroth/first/second order firings (micro + meso)
	MesoEvents      int64 // Mesoscopic SSA events executed
	RecursionClamps int64 // Paths clamped at the recursion depth limit
	FailedSteps     int64 // Paths that could not be resolved

	registry *prometheus.Registry

	promSteps           prometheus.Counter
	promReflections     prometheus.Counter
	promTransmissions   prometheus.Counter
	promAbsorptions     prometheus.Counter
	promReactions       prometheus.Counter
	promRecursionClamps prometheus.Counter
}

// NewMetrics creates a Metrics with its diagnostics counters registered on a
// private registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "molcom",
			Subsystem: "sim",
			Name:      name,
			Help:      help,
		})
		m.registry.MustRegister(c)
		return c
	}
	m.promSteps = counter("diffusion_steps_total", "Microscopic diffusion steps resolved.")
	m.promReflections = counter("reflections_total", "Boundary reflections.")
	m.promTransmissions = counter("transmissions_total", "Region-to-region transmissions.")
	m.promAbsorptions = counter("absorptions_total", "Molecules consumed by surface reactions.")
	m.promReactions = counter("reactions_fired_total", "Reaction firings, all orders.")
	m.promRecursionClamps = counter("recursion_clamps_total", "Paths clamped at the recursion depth limit.")
	return m
}

// Registry exposes the prometheus registry holding the diagnostics counters,
// for callers that serve or scrape them.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Print displays aggregated metrics at the end of the simulation.
// Includes boundary interaction counts and reaction totals.
func (m *Metrics) Print(elapsed float64) {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Simulated Time      : %g s\n", elapsed)
	fmt.Printf("Diffusion Steps     : %d\n", m.Steps)
	fmt.Printf("Reflections         : %d\n", m.Reflections)
	fmt.Printf("Transmissions       : %d\n", m.Transmissions)
	fmt.Printf("Absorptions         : %d\n", m.Absorptions)
	fmt.Printf("Meso Handoffs       : %d\n", m.Handoffs)
	fmt.Printf("Reactions Fired     : %d\n", m.ReactionsFired)
	fmt.Printf("Meso SSA Events     : %d\n", m.MesoEvents)
	if m.RecursionClamps > 0 {
		fmt.Printf("Recursion Clamps    : %d\n", m.RecursionClamps)
	}
	if m.FailedSteps > 0 {
		fmt.Printf("Failed Steps        : %d\n", m.FailedSteps)
	}
}
