// Package history keeps the per-user, per-table result sequences that the
// streak and prediction engines read. The ingestion pipeline is the only
// writer; engines get copies and never mutate stored state.
package history

import (
	"sort"
	"strings"
	"sync"
)

type Outcome string

const (
	OutcomePlayer Outcome = "P"
	OutcomeBanker Outcome = "B"
	OutcomeTie    Outcome = "T"
)

// Record is one normalized table round result. Pos is the canonical ordering
// key (grid coordinate collapsed to x*7+y, or a bare sequence number).
type Record struct {
	Pos        int     `json:"pos"`
	Outcome    Outcome `json:"outcome"`
	Natural    bool    `json:"natural,omitempty"`
	Tie        bool    `json:"tie,omitempty"`
	PlayerPair bool    `json:"player_pair,omitempty"`
	BankerPair bool    `json:"banker_pair,omitempty"`
}

// TableHistory pairs a table id with its sorted records, preserving the
// per-user insertion order of tables for deterministic downstream iteration.
type TableHistory struct {
	TableID string
	Records []Record
}

type userTables struct {
	order  []string
	tables map[string][]Record
}

type Store struct {
	mu    sync.RWMutex
	users map[string]*userTables
}

func NewStore() *Store {
	return &Store{users: map[string]*userTables{}}
}

// Merge upserts records into the (user, table) sequence, keyed by position,
// and reports whether the stored sequence changed. An update identical to the
// stored state is a no-op so callers can skip redundant recomputes.
func (s *Store) Merge(userID, tableID string, records []Record) bool {
	if s == nil || len(records) == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ut := s.users[userID]
	if ut == nil {
		ut = &userTables{tables: map[string][]Record{}}
		s.users[userID] = ut
	}
	prev, known := ut.tables[tableID]

	byPos := make(map[int]Record, len(prev)+len(records))
	for _, rec := range prev {
		byPos[rec.Pos] = rec
	}
	for _, rec := range records {
		byPos[rec.Pos] = rec
	}
	merged := make([]Record, 0, len(byPos))
	for _, rec := range byPos {
		merged = append(merged, rec)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Pos < merged[j].Pos })

	if known && equalRecords(prev, merged) {
		return false
	}
	if !known {
		ut.order = append(ut.order, tableID)
	}
	ut.tables[tableID] = merged
	return true
}

// Get returns a copy of the table's records sorted by position ascending,
// or nil if the table is unknown.
func (s *Store) Get(userID, tableID string) []Record {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ut := s.users[userID]
	if ut == nil {
		return nil
	}
	recs, ok := ut.tables[tableID]
	if !ok {
		return nil
	}
	out := make([]Record, len(recs))
	copy(out, recs)
	return out
}

// Latest returns the last n records by position order (oldest first within
// the window).
func (s *Store) Latest(userID, tableID string, n int) []Record {
	recs := s.Get(userID, tableID)
	if n <= 0 || len(recs) <= n {
		return recs
	}
	return recs[len(recs)-n:]
}

// Snapshot returns all of a user's tables in insertion order with copied
// record slices.
func (s *Store) Snapshot(userID string) []TableHistory {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ut := s.users[userID]
	if ut == nil {
		return nil
	}
	out := make([]TableHistory, 0, len(ut.order))
	for _, tableID := range ut.order {
		recs := ut.tables[tableID]
		cp := make([]Record, len(recs))
		copy(cp, recs)
		out = append(out, TableHistory{TableID: tableID, Records: cp})
	}
	return out
}

// HasUser reports whether any table data exists for the user.
func (s *Store) HasUser(userID string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ut := s.users[userID]
	return ut != nil && len(ut.tables) > 0
}

// Drop discards all table data for a user.
func (s *Store) Drop(userID string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
}

func equalRecords(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Pattern renders the most recent n records as a past→recent symbol string,
// e.g. "PPBTP".
func Pattern(records []Record, n int) string {
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	var sb strings.Builder
	sb.Grow(len(records))
	for _, rec := range records {
		switch rec.Outcome {
		case OutcomePlayer, OutcomeBanker:
			sb.WriteString(string(rec.Outcome))
		default:
			sb.WriteString(string(OutcomeTie))
		}
	}
	return sb.String()
}
