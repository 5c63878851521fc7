package evo

import (
	"encoding/json"
	"testing"

	"lobbywatch/internal/history"
)

func TestNormalizePosEncodings(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int
	}{
		{"array", `[2, 3]`, 17},
		{"object", `{"x": 2, "y": 3}`, 17},
		{"comma string", `"2,3"`, 17},
		{"colon string", `"2:3"`, 17},
		{"bare int", `17`, 17},
		{"zero pair", `[0, 0]`, 0},
	}
	for _, tc := range cases {
		got, ok := NormalizePos(json.RawMessage(tc.raw))
		if !ok {
			t.Fatalf("%s: not recognized", tc.name)
		}
		if got != tc.want {
			t.Fatalf("%s: pos = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestNormalizePosRejectsGarbage(t *testing.T) {
	for _, raw := range []string{``, `[1]`, `{"x": 1}`, `"nope"`, `"1;2"`, `true`} {
		if _, ok := NormalizePos(json.RawMessage(raw)); ok {
			t.Fatalf("%q should not normalize", raw)
		}
	}
}

func TestOutcomeFromCode(t *testing.T) {
	if outcomeFromCode("R") != history.OutcomeBanker {
		t.Fatalf("R must map to banker")
	}
	if outcomeFromCode("B") != history.OutcomePlayer {
		t.Fatalf("B must map to player")
	}
	for _, c := range []string{"T", "", "x"} {
		if outcomeFromCode(c) != history.OutcomeTie {
			t.Fatalf("%q must map to tie", c)
		}
	}
}

func TestParseHistoryUpdated(t *testing.T) {
	args := json.RawMessage(`{
		"table-1": {"results": [
			{"pos": [0, 1], "c": "R", "nat": 1},
			{"pos": "0:2", "c": "B", "pp": 1},
			{"pos": 3, "c": "T", "ties": 1}
		]},
		"table-2": {"results": [{"pos": [1, 0], "c": "B"}]},
		"table-3": {"noise": true}
	}`)

	tables := ParseHistoryUpdated(args)
	if len(tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(tables))
	}

	recs := tables["table-1"]
	if len(recs) != 3 {
		t.Fatalf("table-1 records = %d, want 3", len(recs))
	}
	if recs[0].Pos != 1 || recs[0].Outcome != history.OutcomeBanker || !recs[0].Natural {
		t.Fatalf("first record wrong: %+v", recs[0])
	}
	if recs[1].Pos != 2 || recs[1].Outcome != history.OutcomePlayer || !recs[1].PlayerPair {
		t.Fatalf("second record wrong: %+v", recs[1])
	}
	if recs[2].Pos != 3 || recs[2].Outcome != history.OutcomeTie || !recs[2].Tie {
		t.Fatalf("third record wrong: %+v", recs[2])
	}

	if got := tables["table-2"]; len(got) != 1 || got[0].Pos != 7 {
		t.Fatalf("table-2 wrong: %+v", got)
	}
}

func TestParseHistoryUpdatedSkipsMalformedItems(t *testing.T) {
	args := json.RawMessage(`{
		"t": {"results": [
			{"pos": "broken", "c": "R"},
			{"pos": [0, 0], "c": "B"}
		]}
	}`)
	tables := ParseHistoryUpdated(args)
	if got := tables["t"]; len(got) != 1 || got[0].Outcome != history.OutcomePlayer {
		t.Fatalf("malformed item must be skipped, got %+v", got)
	}
}

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type": "round.end", "args": {"result": {"winner": "Banker"}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if env.Type != EventRoundEnd {
		t.Fatalf("type = %q", env.Type)
	}
	winner, ok := RoundResult(env.Args)
	if !ok || winner != "Banker" {
		t.Fatalf("winner = %q, ok = %v", winner, ok)
	}
}

func TestRoundResultMissingWinner(t *testing.T) {
	if _, ok := RoundResult(json.RawMessage(`{"result": {}}`)); ok {
		t.Fatalf("empty winner must not report ok")
	}
	if _, ok := RoundResult(json.RawMessage(`not json`)); ok {
		t.Fatalf("garbage args must not report ok")
	}
}
