// Package prediction implements the five-stage cascading next-outcome
// heuristic over the most recent 15 non-tie results. The stage formulas are
// deliberately preserved as-is, asymmetries included; parity with the known
// behavior matters more than tidiness here.
package prediction

import "lobbywatch/internal/history"

type Symbol byte

const (
	Player Symbol = 'P'
	Banker Symbol = 'B'
	// None is the "no pick" sentinel, returned when data is insufficient.
	None Symbol = 'N'
)

// WindowSize is the number of non-tie results the cascade operates over.
const WindowSize = 15

func Opposite(s Symbol) Symbol {
	switch s {
	case Player:
		return Banker
	case Banker:
		return Player
	default:
		return None
	}
}

func (s Symbol) String() string {
	return string(rune(s))
}

func safeGet(seq []Symbol, idx int) Symbol {
	if idx >= 0 && idx < len(seq) {
		return seq[idx]
	}
	return None
}

// stagePicks computes the final pick per virtual pick number (1-based,
// starting at 5) for the given result window. Stage arrays are appended one
// entry per pick number and back-referenced with raw result indices, exactly
// as the cascade has always done.
func stagePicks(results []Symbol) map[int]Symbol {
	var s1, s2, s3, s4, s5 []Symbol
	all := make(map[int]Symbol)

	for pickNumber := 5; pickNumber <= len(results)+1; pickNumber++ {
		pos := pickNumber - 1

		pick1 := safeGet(results, pos-4)
		pick2 := safeGet(results, pos-3)
		pick4 := safeGet(results, pos-1)

		var stage1 Symbol
		switch {
		case pick1 == pick2:
			stage1 = pick4
		case pick1 != None && pick2 != None && pick4 != None:
			stage1 = Opposite(pick4)
		default:
			stage1 = None
		}
		s1 = append(s1, stage1)

		var stage2 Symbol
		if pickNumber < 6 {
			stage2 = None
		} else {
			wins := 0
			for i := 1; i <= 4; i++ {
				prev := pickNumber - i - 1
				if prev >= 0 && prev < len(s1) && s1[prev] == safeGet(results, prev) {
					wins++
				}
			}
			if wins >= 2 {
				stage2 = stage1
			} else {
				stage2 = Opposite(stage1)
			}
		}
		s2 = append(s2, stage2)

		var stage3 Symbol
		switch {
		case pickNumber < 6:
			stage3 = None
		case pickNumber <= 8:
			stage3 = stage2
		default:
			prev := pickNumber - 2
			if safeGet(results, prev) == safeGet(s2, prev) {
				stage3 = stage2
			} else {
				stage3 = Opposite(stage2)
			}
		}
		s3 = append(s3, stage3)

		var stage4 Symbol
		switch {
		case pickNumber == 5:
			stage4 = None
		case pickNumber <= 10:
			stage4 = stage3
		default:
			prev := pickNumber - 2
			if safeGet(results, prev) == safeGet(s3, prev) {
				stage4 = stage3
			} else {
				stage4 = Opposite(stage3)
			}
		}
		s4 = append(s4, stage4)

		var stage5 Symbol
		switch {
		case pickNumber == 5:
			stage5 = None
		case pickNumber <= 11:
			stage5 = stage1
		default:
			wins := 0
			for i := 1; i <= 4; i++ {
				idx := pickNumber - i - 1
				if idx >= 0 && idx < len(s4) && s4[idx] == safeGet(results, idx) {
					wins++
				}
			}
			if wins >= 2 {
				stage5 = stage4
			} else {
				stage5 = Opposite(stage4)
			}
		}
		s5 = append(s5, stage5)

		final := None
		for _, p := range []Symbol{stage5, stage4, stage3, stage2, stage1} {
			if p != None {
				final = p
				break
			}
		}
		all[pickNumber] = final
	}

	return all
}

// Cascade accumulates non-tie results and predicts the next outcome once a
// full window is available.
type Cascade struct {
	results []Symbol
}

func NewCascade() *Cascade {
	return &Cascade{}
}

// Add appends one result; anything other than Player/Banker is discarded.
func (c *Cascade) Add(sym Symbol) {
	if sym != Player && sym != Banker {
		return
	}
	c.results = append(c.results, sym)
	if len(c.results) > WindowSize {
		c.results = c.results[len(c.results)-WindowSize:]
	}
}

func (c *Cascade) AddResults(syms []Symbol) {
	for _, sym := range syms {
		c.Add(sym)
	}
}

func (c *Cascade) Results() []Symbol {
	out := make([]Symbol, len(c.results))
	copy(out, c.results)
	return out
}

func (c *Cascade) Reset() {
	c.results = nil
}

func (c *Cascade) HasSufficientData() bool {
	return len(c.results) == WindowSize
}

// Predict returns the cascade pick for the next round, or None when fewer
// than a full window of results has accumulated. Deterministic for a fixed
// window.
func (c *Cascade) Predict() Symbol {
	if !c.HasSufficientData() {
		return None
	}
	picks := stagePicks(c.results)
	pick, ok := picks[len(c.results)+1]
	if !ok {
		return None
	}
	return pick
}

// Symbols converts table history records to cascade input, dropping ties.
func Symbols(records []history.Record) []Symbol {
	out := make([]Symbol, 0, len(records))
	for _, rec := range records {
		switch rec.Outcome {
		case history.OutcomePlayer:
			out = append(out, Player)
		case history.OutcomeBanker:
			out = append(out, Banker)
		}
	}
	return out
}
