package monitor

import (
	"fmt"
	"strings"
	"testing"

	"lobbywatch/internal/client/evo"
	"lobbywatch/internal/history"
	"lobbywatch/internal/prediction"
	"lobbywatch/internal/streak"
)

// Runs one history frame through parse, merge, streak detection and
// prediction the way a live session does.
func TestFrameToStreakAndPrediction(t *testing.T) {
	items := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		code := "B"
		if i%2 == 1 {
			code = "R"
		}
		items = append(items, fmt.Sprintf(`{"pos": %d, "c": %q}`, i, code))
	}
	frame := fmt.Sprintf(
		`{"type": "lobby.historyUpdated", "args": {"table-1": {"results": [%s]}}}`,
		strings.Join(items, ","))

	env, err := evo.ParseEnvelope([]byte(frame))
	if err != nil {
		t.Fatalf("parse envelope: %v", err)
	}
	if env.Type != evo.EventHistoryUpdated {
		t.Fatalf("type = %q", env.Type)
	}

	store := history.NewStore()
	for tableID, records := range evo.ParseHistoryUpdated(env.Args) {
		if !store.Merge("u", tableID, records) {
			t.Fatalf("first merge of %s must report a change", tableID)
		}
	}
	if got := len(store.Get("u", "table-1")); got != 15 {
		t.Fatalf("stored records = %d, want 15", got)
	}

	data := streak.Compute(store.Snapshot("u"), streak.DefaultSettings(), nil)
	if len(data.PlayerStreakRooms) != 0 || len(data.BankerStreakRooms) != 0 {
		t.Fatalf("alternating results must not qualify: %+v", data)
	}

	c := prediction.NewCascade()
	c.AddResults(prediction.Symbols(store.Get("u", "table-1")))
	if !c.HasSufficientData() {
		t.Fatalf("15 non-tie results must fill the window")
	}
	if pick := c.Predict(); pick != prediction.Player && pick != prediction.Banker {
		t.Fatalf("pick = %c, want a real side", pick)
	}
}
