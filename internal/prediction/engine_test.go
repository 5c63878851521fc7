package prediction

import "testing"

func TestChoicePickInvertsCascade(t *testing.T) {
	window := "PPPPPPPPPPPPPPP"

	c := NewCascade()
	fill(c, window)

	e := NewChoicePick(3)
	for _, r := range window {
		e.Add(Symbol(r))
	}
	if got, want := e.Predict(), Opposite(c.Predict()); got != want {
		t.Fatalf("engine pick = %c, want %c", got, want)
	}
}

func TestChoicePickNeedsFullWindow(t *testing.T) {
	e := NewChoicePick(3)
	e.Add(Player)
	e.Add(Banker)
	if e.HasSufficientData() {
		t.Fatalf("two results should not be sufficient")
	}
	if got := e.Predict(); got != None {
		t.Fatalf("pick = %c, want N", got)
	}
}

func TestLossLimitTriggersRoomChange(t *testing.T) {
	e := NewChoicePick(3)
	e.RecordOutcome(false)
	e.RecordOutcome(false)
	if e.ShouldChangeRoom() {
		t.Fatalf("two losses should not trigger a change")
	}
	e.RecordOutcome(false)
	if !e.ShouldChangeRoom() {
		t.Fatalf("three consecutive losses must trigger a change")
	}
}

func TestWinResetsConsecutiveLosses(t *testing.T) {
	e := NewChoicePick(2)
	e.RecordOutcome(false)
	e.RecordOutcome(true)
	e.RecordOutcome(false)
	if e.ShouldChangeRoom() {
		t.Fatalf("a win in between must reset the consecutive counter")
	}
	wins, losses, consecutive := e.Stats()
	if wins != 1 || losses != 2 || consecutive != 1 {
		t.Fatalf("stats = %d/%d/%d, want 1/2/1", wins, losses, consecutive)
	}
}

func TestResetAfterRoomChangeKeepsTotals(t *testing.T) {
	e := NewChoicePick(2)
	for i := 0; i < WindowSize; i++ {
		e.Add(Player)
	}
	e.RecordOutcome(false)
	e.RecordOutcome(false)
	e.ResetAfterRoomChange()

	if e.HasSufficientData() {
		t.Fatalf("window must be cleared after a room change")
	}
	if e.ShouldChangeRoom() {
		t.Fatalf("consecutive losses must be cleared after a room change")
	}
	wins, losses, _ := e.Stats()
	if wins != 0 || losses != 2 {
		t.Fatalf("lifetime totals = %d/%d, want 0/2", wins, losses)
	}
}

func TestZeroLossLimitNeverChangesRoom(t *testing.T) {
	e := NewChoicePick(0)
	for i := 0; i < 10; i++ {
		e.RecordOutcome(false)
	}
	if e.ShouldChangeRoom() {
		t.Fatalf("loss limit 0 disables room changes")
	}
}
