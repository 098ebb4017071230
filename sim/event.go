package sim

import "github.com/sirupsen/logrus"

// Event defines the interface for all simulation events.
// Each event must have a Timestamp (in seconds) and an Execute method
// that advances simulation state when invoked.
type Event interface {
	Timestamp() float64
	Execute(*Simulator)
}

// RegionStepEvent advances one microscopic region by its time step:
// zeroth-order firings, diffusion of every molecule, then first-order
// reactions with recent-list rescanning.
type RegionStepEvent struct {
	time   float64
	Region RegionID
}

// Timestamp returns the scheduled time of the RegionStepEvent.
func (e *RegionStepEvent) Timestamp() float64 {
	return e.time
}

// Execute runs the region step and reschedules the next one.
func (e *RegionStepEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< RegionStep: region %d at %g s", e.Region, e.time)
	sim.StepMicroRegion(e.Region, e.time)
	next := e.time + sim.Arena.Regions[e.Region].Spec.Dt
	if next <= sim.Horizon {
		sim.Schedule(&RegionStepEvent{time: next, Region: e.Region})
	}
}

// MesoStepEvent advances one mesoscopic region's SSA to the event time.
type MesoStepEvent struct {
	time   float64
	Region RegionID
}

// Timestamp returns the scheduled time of the MesoStepEvent.
func (e *MesoStepEvent) Timestamp() float64 {
	return e.time
}

// Execute advances the region and reschedules the next window.
func (e *MesoStepEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< MesoStep: region %d at %g s", e.Region, e.time)
	sim.Meso[e.Region].Advance(e.time)
	next := e.time + sim.Arena.Regions[e.Region].Spec.Dt
	if next <= sim.Horizon {
		sim.Schedule(&MesoStepEvent{time: next, Region: e.Region})
	}
}

// ReleaseEvent injects molecules on behalf of a release actor.
type ReleaseEvent struct {
	time  float64
	Actor *ReleaseActor
}

// Timestamp returns the scheduled time of the ReleaseEvent.
func (e *ReleaseEvent) Timestamp() float64 {
	return e.time
}

// Execute performs the injection and schedules the actor's next release.
func (e *ReleaseEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< Release: actor %q at %g s", e.Actor.Label, e.time)
	e.Actor.Release(sim, e.time)
}

// ObserveEvent counts molecules on behalf of an observing actor.
type ObserveEvent struct {
	time  float64
	Actor *ObserveActor
}

// Timestamp returns the scheduled time of the ObserveEvent.
func (e *ObserveEvent) Timestamp() float64 {
	return e.time
}

// Execute records the observation and schedules the actor's next one.
func (e *ObserveEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< Observe: actor %q at %g s", e.Actor.Label, e.time)
	e.Actor.Observe(sim, e.time)
}
