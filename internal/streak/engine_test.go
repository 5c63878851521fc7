package streak

import (
	"testing"

	"lobbywatch/internal/history"
)

func table(id string, outcomes ...history.Outcome) history.TableHistory {
	records := make([]history.Record, len(outcomes))
	for i, o := range outcomes {
		records[i] = history.Record{Pos: i, Outcome: o}
	}
	return history.TableHistory{TableID: id, Records: records}
}

const (
	p  = history.OutcomePlayer
	b  = history.OutcomeBanker
	tt = history.OutcomeTie
)

func TestTrailingRunFullLength(t *testing.T) {
	settings := Settings{PlayerStreak: 3, BankerStreak: 3, MinResults: 5}
	data := Compute([]history.TableHistory{
		table("t1", p, p, p, b, p, p, p, p),
	}, settings, nil)

	if len(data.PlayerStreakRooms) != 1 {
		t.Fatalf("expected 1 player-streak room, got %d", len(data.PlayerStreakRooms))
	}
	if got := data.PlayerStreakRooms[0].Streak; got != 4 {
		t.Fatalf("trailing player run = %d, want 4", got)
	}
	if len(data.BankerStreakRooms) != 0 {
		t.Fatalf("expected no banker-streak rooms, got %d", len(data.BankerStreakRooms))
	}
}

func TestTieResetsCounters(t *testing.T) {
	settings := Settings{PlayerStreak: 3, BankerStreak: 3, MinResults: 5}
	// The tie cuts the sequence: the two newest results do not combine with
	// the older run, which qualifies on its own with length 3.
	data := Compute([]history.TableHistory{
		table("t1", p, p, p, tt, p, p),
	}, settings, nil)
	if len(data.PlayerStreakRooms) != 1 {
		t.Fatalf("expected 1 qualifying room, got %v", data.PlayerStreakRooms)
	}
	if got := data.PlayerStreakRooms[0].Streak; got != 3 {
		t.Fatalf("streak across tie = %d, want 3", got)
	}
}

func TestAllTiesNeverQualifies(t *testing.T) {
	settings := Settings{PlayerStreak: 1, BankerStreak: 1, MinResults: 3}
	data := Compute([]history.TableHistory{
		table("t1", tt, tt, tt, tt),
	}, settings, nil)
	if len(data.PlayerStreakRooms) != 0 || len(data.BankerStreakRooms) != 0 {
		t.Fatalf("all-tie table qualified: %+v", data)
	}
}

func TestMinResultsGate(t *testing.T) {
	settings := Settings{PlayerStreak: 3, BankerStreak: 3, MinResults: 10}
	data := Compute([]history.TableHistory{
		table("t1", p, p, p, p),
	}, settings, nil)
	if len(data.PlayerStreakRooms) != 0 {
		t.Fatalf("short history must be skipped, got %v", data.PlayerStreakRooms)
	}
}

func TestSortDescendingStable(t *testing.T) {
	settings := Settings{PlayerStreak: 2, BankerStreak: 2, MinResults: 3}
	data := Compute([]history.TableHistory{
		table("first", b, p, p),
		table("second", p, p, p),
		table("third", b, p, p),
	}, settings, nil)

	if len(data.PlayerStreakRooms) != 3 {
		t.Fatalf("expected 3 qualifying rooms, got %d", len(data.PlayerStreakRooms))
	}
	if data.PlayerStreakRooms[0].RoomID != "second" {
		t.Fatalf("longest streak should sort first, got %s", data.PlayerStreakRooms[0].RoomID)
	}
	// Equal-length streaks keep insertion order.
	if data.PlayerStreakRooms[1].RoomID != "first" || data.PlayerStreakRooms[2].RoomID != "third" {
		t.Fatalf("tie-break order wrong: %v", data.PlayerStreakRooms)
	}
}

func TestRoomNameMapping(t *testing.T) {
	settings := Settings{PlayerStreak: 2, BankerStreak: 2, MinResults: 2}
	data := Compute([]history.TableHistory{
		table("t1", p, p),
		table("t2", b, b),
	}, settings, map[string]string{"t1": "Speed Baccarat A"})

	if got := data.PlayerStreakRooms[0].RoomName; got != "Speed Baccarat A" {
		t.Fatalf("mapped room name = %q", got)
	}
	// Unmapped tables fall back to their id.
	if got := data.BankerStreakRooms[0].RoomName; got != "t2" {
		t.Fatalf("fallback room name = %q", got)
	}
}
