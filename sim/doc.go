// Package sim provides the core hybrid stochastic reaction-diffusion engine
// for molcom-sim.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - region.go: the region arena (spatial hierarchy, adjacency, membership)
//   - reaction.go: the per-region reaction compiler and its probability tables
//   - diffusion.go: the path validator that resolves molecule displacements
//     against region boundaries
//
// # Architecture
//
// The engine is event driven: simulator.go owns the event queue and the
// microscopic step phases; event.go defines the event types (region steps,
// mesoscopic windows, actor releases and observations). Microscopic regions
// track individual molecules (molecule.go); mesoscopic regions track only
// subvolume populations advanced with the Gillespie direct method
// (subvolume.go). The two couple through boundary handoffs.
//
// Geometry lives in sim/geom: boundary shapes, pair operations
// (intersection, adjacency, containment), line crossings, and reflection.
// Observation records live in sim/record, a pure-data package with no
// dependency on sim.
//
// All randomness flows through PartitionedRNG (rng.go): one master seed,
// one derived stream per subsystem, so runs are reproducible bit for bit.
package sim
