// Package record provides observation recording for simulation output analysis.
// This package has no dependencies on sim/ — it stores pure data types.
package record

// Absorption captures one molecule consumed by a surface reaction.
type Absorption struct {
	Time     float64
	Species  int
	Region   int // surface region that consumed the molecule
	Reaction int
	Pos      [3]float64 // contact point
}

// ReactionEvent captures one reaction firing.
type ReactionEvent struct {
	Time     float64
	Region   int
	Reaction int
	Pos      [3]float64 // firing location; zero for mesoscopic firings
	Meso     bool
}

// Transfer captures one molecule crossing between regions.
type Transfer struct {
	Time    float64
	Species int
	From    int
	To      int
	Pos     [3]float64 // boundary crossing point
}

// Observation captures one timed molecule count by an observing actor.
type Observation struct {
	Time   float64
	Actor  string
	Counts []int // per species, within the actor's observation boundary
}
