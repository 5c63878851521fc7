package history

import "testing"

func rec(pos int, outcome Outcome) Record {
	return Record{Pos: pos, Outcome: outcome}
}

func TestMergeSortsByPosition(t *testing.T) {
	s := NewStore()
	changed := s.Merge("u1", "t1", []Record{rec(14, OutcomeBanker), rec(0, OutcomePlayer), rec(7, OutcomeTie)})
	if !changed {
		t.Fatalf("first merge should report change")
	}
	got := s.Get("u1", "t1")
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, want := range []int{0, 7, 14} {
		if got[i].Pos != want {
			t.Fatalf("record %d: pos = %d, want %d", i, got[i].Pos, want)
		}
	}
}

func TestMergeIdenticalIsNoop(t *testing.T) {
	s := NewStore()
	batch := []Record{rec(0, OutcomePlayer), rec(1, OutcomeBanker)}
	if !s.Merge("u1", "t1", batch) {
		t.Fatalf("first merge should report change")
	}
	if s.Merge("u1", "t1", batch) {
		t.Fatalf("identical merge must be a no-op")
	}
	// Same records in a different submit order are still the same sequence.
	if s.Merge("u1", "t1", []Record{rec(1, OutcomeBanker), rec(0, OutcomePlayer)}) {
		t.Fatalf("reordered identical merge must be a no-op")
	}
}

func TestMergeUpsertsByPosition(t *testing.T) {
	s := NewStore()
	s.Merge("u1", "t1", []Record{rec(0, OutcomePlayer), rec(1, OutcomePlayer)})
	if !s.Merge("u1", "t1", []Record{rec(1, OutcomeBanker), rec(2, OutcomeTie)}) {
		t.Fatalf("overlapping merge should report change")
	}
	got := s.Get("u1", "t1")
	if len(got) != 3 {
		t.Fatalf("expected 3 records after upsert, got %d", len(got))
	}
	if got[1].Outcome != OutcomeBanker {
		t.Fatalf("pos 1 should be overwritten to banker, got %s", got[1].Outcome)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	s := NewStore()
	s.Merge("u1", "t1", []Record{rec(0, OutcomePlayer)})
	s.Merge("u2", "t1", []Record{rec(0, OutcomeBanker)})

	if got := s.Get("u1", "t1"); got[0].Outcome != OutcomePlayer {
		t.Fatalf("u1 data polluted: %v", got)
	}
	if got := s.Get("u2", "t1"); got[0].Outcome != OutcomeBanker {
		t.Fatalf("u2 data polluted: %v", got)
	}

	s.Drop("u1")
	if s.HasUser("u1") {
		t.Fatalf("u1 should be gone after drop")
	}
	if !s.HasUser("u2") {
		t.Fatalf("dropping u1 must not touch u2")
	}
}

func TestSnapshotKeepsInsertionOrder(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"c", "a", "b"} {
		s.Merge("u1", id, []Record{rec(0, OutcomePlayer)})
	}
	snap := s.Snapshot("u1")
	if len(snap) != 3 {
		t.Fatalf("expected 3 tables, got %d", len(snap))
	}
	for i, want := range []string{"c", "a", "b"} {
		if snap[i].TableID != want {
			t.Fatalf("snapshot[%d] = %s, want %s", i, snap[i].TableID, want)
		}
	}

	// Mutating the snapshot must not leak into the store.
	snap[0].Records[0].Outcome = OutcomeBanker
	if got := s.Get("u1", "c"); got[0].Outcome != OutcomePlayer {
		t.Fatalf("snapshot mutation leaked into store")
	}
}

func TestLatest(t *testing.T) {
	s := NewStore()
	s.Merge("u1", "t1", []Record{
		rec(0, OutcomePlayer), rec(1, OutcomeBanker), rec(2, OutcomePlayer), rec(3, OutcomeTie),
	})
	got := s.Latest("u1", "t1", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Pos != 2 || got[1].Pos != 3 {
		t.Fatalf("latest window wrong: %v", got)
	}
	if got := s.Latest("u1", "t1", 10); len(got) != 4 {
		t.Fatalf("oversized window should return all records, got %d", len(got))
	}
}

func TestPattern(t *testing.T) {
	records := []Record{
		rec(0, OutcomePlayer), rec(1, OutcomeBanker), rec(2, Outcome("X")), rec(3, OutcomePlayer),
	}
	if got := Pattern(records, 0); got != "PBTP" {
		t.Fatalf("Pattern = %q, want PBTP", got)
	}
	if got := Pattern(records, 2); got != "TP" {
		t.Fatalf("Pattern(2) = %q, want TP", got)
	}
}
