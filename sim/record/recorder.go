package record

// Config controls which record streams are collected.
type Config struct {
	Absorptions  bool
	Reactions    bool
	Transfers    bool
	Observations bool
}

// Recorder collects simulation records. The kernel appends; callers own
// persistence and analysis of the collected slices.
type Recorder struct {
	Config       Config
	Absorptions  []Absorption
	Reactions    []ReactionEvent
	Transfers    []Transfer
	Observations []Observation
}

// NewRecorder creates a Recorder ready for appending.
func NewRecorder(config Config) *Recorder {
	return &Recorder{Config: config}
}

// RecordAbsorption appends an absorption record when the stream is enabled.
func (r *Recorder) RecordAbsorption(rec Absorption) {
	if r.Config.Absorptions {
		r.Absorptions = append(r.Absorptions, rec)
	}
}

// RecordReaction appends a reaction firing record when the stream is enabled.
func (r *Recorder) RecordReaction(rec ReactionEvent) {
	if r.Config.Reactions {
		r.Reactions = append(r.Reactions, rec)
	}
}

// RecordTransfer appends a region-crossing record when the stream is enabled.
func (r *Recorder) RecordTransfer(rec Transfer) {
	if r.Config.Transfers {
		r.Transfers = append(r.Transfers, rec)
	}
}

// RecordObservation appends an observation record. Observations are the
// primary output and are always collected.
func (r *Recorder) RecordObservation(rec Observation) {
	r.Observations = append(r.Observations, rec)
}
