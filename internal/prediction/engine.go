package prediction

// ChoicePick wraps the cascade with a reverse-bet final step and tracks its
// own win/loss record so callers can decide when a room has gone cold.
type ChoicePick struct {
	cascade   *Cascade
	lossLimit int

	wins              int
	losses            int
	consecutiveLosses int
}

// NewChoicePick builds an engine that recommends leaving the room after
// lossLimit consecutive losing picks. A lossLimit of zero disables the
// room-change recommendation.
func NewChoicePick(lossLimit int) *ChoicePick {
	return &ChoicePick{
		cascade:   NewCascade(),
		lossLimit: lossLimit,
	}
}

func (e *ChoicePick) Add(sym Symbol) {
	e.cascade.Add(sym)
}

func (e *ChoicePick) AddResults(syms []Symbol) {
	e.cascade.AddResults(syms)
}

func (e *ChoicePick) HasSufficientData() bool {
	return e.cascade.HasSufficientData()
}

// Predict returns the reverse of the cascade pick, or None when the window
// is not yet full.
func (e *ChoicePick) Predict() Symbol {
	pick := e.cascade.Predict()
	if pick == None {
		return None
	}
	return Opposite(pick)
}

// RecordOutcome updates the engine's own record after the predicted round
// settles. Ties should not be recorded.
func (e *ChoicePick) RecordOutcome(won bool) {
	if won {
		e.wins++
		e.consecutiveLosses = 0
		return
	}
	e.losses++
	e.consecutiveLosses++
}

// ShouldChangeRoom reports whether the configured consecutive-loss limit has
// been reached.
func (e *ChoicePick) ShouldChangeRoom() bool {
	return e.lossLimit > 0 && e.consecutiveLosses >= e.lossLimit
}

// ResetAfterRoomChange clears accumulated results and the consecutive-loss
// counter. Lifetime win/loss totals are kept.
func (e *ChoicePick) ResetAfterRoomChange() {
	e.cascade.Reset()
	e.consecutiveLosses = 0
}

func (e *ChoicePick) Stats() (wins, losses, consecutive int) {
	return e.wins, e.losses, e.consecutiveLosses
}
