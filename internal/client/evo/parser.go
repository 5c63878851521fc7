package evo

import (
	"encoding/json"
	"strconv"
	"strings"

	"lobbywatch/internal/history"
)

// Frame types we route on. Anything else is ignored.
const (
	EventHistoryUpdated = "lobby.historyUpdated"
	EventRoundStart     = "round.start"
	EventRoundEnd       = "round.end"
	EventBettingOpened  = "round.betting.opened"
	EventBettingClosed  = "round.betting.closed"
)

// Envelope is the common frame shape. Args stays raw; each event type decodes
// it on its own terms.
type Envelope struct {
	Type string          `json:"type"`
	Args json.RawMessage `json:"args"`
}

// ParseEnvelope decodes the outer frame. A frame without a type field is not
// an error, it just routes nowhere.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// ParseHistoryUpdated extracts per-table result records from a
// lobby.historyUpdated args payload. The payload is loosely typed and shifts
// shape between client versions, so every field access tolerates absence or
// the wrong type: a malformed item is skipped, never fatal to the batch.
// Records keep payload order; the history store orders them on merge.
func ParseHistoryUpdated(args json.RawMessage) map[string][]history.Record {
	var tables map[string]json.RawMessage
	if err := json.Unmarshal(args, &tables); err != nil {
		return nil
	}

	out := make(map[string][]history.Record, len(tables))
	for tableID, rawTable := range tables {
		var table struct {
			Results []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(rawTable, &table); err != nil || len(table.Results) == 0 {
			continue
		}

		records := make([]history.Record, 0, len(table.Results))
		for _, rawItem := range table.Results {
			rec, ok := parseResultItem(rawItem)
			if !ok {
				continue
			}
			records = append(records, rec)
		}
		if len(records) > 0 {
			out[tableID] = records
		}
	}
	return out
}

type resultItem struct {
	Pos        json.RawMessage `json:"pos"`
	C          string          `json:"c"`
	Natural    int             `json:"nat"`
	Ties       int             `json:"ties"`
	PlayerPair int             `json:"pp"`
	BankerPair int             `json:"bp"`
}

func parseResultItem(raw []byte) (history.Record, bool) {
	var item resultItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return history.Record{}, false
	}
	pos, ok := NormalizePos(item.Pos)
	if !ok {
		return history.Record{}, false
	}
	return history.Record{
		Pos:        pos,
		Outcome:    outcomeFromCode(item.C),
		Natural:    item.Natural == 1,
		Tie:        item.Ties == 1,
		PlayerPair: item.PlayerPair == 1,
		BankerPair: item.BankerPair == 1,
	}, true
}

// outcomeFromCode maps the upstream color code to a winner. "R" marks a
// banker win and "B" a player win; anything else is treated as a tie.
func outcomeFromCode(c string) history.Outcome {
	switch c {
	case "R":
		return history.OutcomeBanker
	case "B":
		return history.OutcomePlayer
	default:
		return history.OutcomeTie
	}
}

// NormalizePos collapses the position field to the canonical x*7+y ordering
// key. Four encodings are seen in the wild: a two-element [x, y] array, an
// {x, y} object, an "x,y" or "x:y" string, and a bare integer that is already
// the collapsed key. Anything else is reported as unrecognized.
func NormalizePos(raw json.RawMessage) (int, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return 0, false
	}

	switch trimmed[0] {
	case '[':
		var pair []int
		if err := json.Unmarshal(raw, &pair); err != nil || len(pair) < 2 {
			return 0, false
		}
		return pair[0]*7 + pair[1], true
	case '{':
		var obj struct {
			X *int `json:"x"`
			Y *int `json:"y"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil || obj.X == nil || obj.Y == nil {
			return 0, false
		}
		return (*obj.X)*7 + (*obj.Y), true
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		sep := ","
		if !strings.Contains(s, sep) {
			sep = ":"
		}
		parts := strings.SplitN(s, sep, 2)
		if len(parts) != 2 {
			return 0, false
		}
		x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
		y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errX != nil || errY != nil {
			return 0, false
		}
		return x*7 + y, true
	default:
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, false
		}
		return n, true
	}
}

// RoundResult pulls the winner out of a round.end args payload.
func RoundResult(args json.RawMessage) (winner string, ok bool) {
	var payload struct {
		Result struct {
			Winner string `json:"winner"`
		} `json:"result"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return "", false
	}
	if payload.Result.Winner == "" {
		return "", false
	}
	return payload.Result.Winner, true
}
