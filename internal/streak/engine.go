// Package streak detects tables currently showing a run of consecutive
// same-side results at the newest end of their history.
package streak

import (
	"sort"
	"time"

	"lobbywatch/internal/history"
)

type Settings struct {
	PlayerStreak int `json:"player_streak"`
	BankerStreak int `json:"banker_streak"`
	MinResults   int `json:"min_results"`
}

func DefaultSettings() Settings {
	return Settings{PlayerStreak: 3, BankerStreak: 3, MinResults: 10}
}

type RoomStreak struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
	Streak   int    `json:"streak"`
}

type Data struct {
	PlayerStreakRooms []RoomStreak `json:"player_streak_rooms"`
	BankerStreakRooms []RoomStreak `json:"banker_streak_rooms"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Compute walks each table newest→oldest counting trailing runs. A tie or
// unrecognized result resets both counters. Once either counter reaches its
// threshold the run is extended to its full length and the walk stops.
// Buckets are sorted by streak length descending; equal lengths keep the
// tables' insertion order.
func Compute(tables []history.TableHistory, settings Settings, roomNames map[string]string) Data {
	data := Data{
		PlayerStreakRooms: []RoomStreak{},
		BankerStreakRooms: []RoomStreak{},
		UpdatedAt:         time.Now().UTC(),
	}

	for _, table := range tables {
		records := table.Records
		if len(records) < settings.MinResults {
			continue
		}

		playerRun := 0
		bankerRun := 0
		for i := len(records) - 1; i >= 0; i-- {
			outcome := records[i].Outcome
			switch outcome {
			case history.OutcomePlayer:
				playerRun++
				bankerRun = 0
			case history.OutcomeBanker:
				bankerRun++
				playerRun = 0
			default:
				playerRun = 0
				bankerRun = 0
			}
			if (settings.PlayerStreak > 0 && playerRun >= settings.PlayerStreak) ||
				(settings.BankerStreak > 0 && bankerRun >= settings.BankerStreak) {
				// Threshold met; report the run's full length, not just
				// the threshold, then stop.
				for j := i - 1; j >= 0 && records[j].Outcome == outcome; j-- {
					if outcome == history.OutcomePlayer {
						playerRun++
					} else {
						bankerRun++
					}
				}
				break
			}
		}

		name := table.TableID
		if mapped, ok := roomNames[table.TableID]; ok && mapped != "" {
			name = mapped
		}
		if settings.PlayerStreak > 0 && playerRun >= settings.PlayerStreak {
			data.PlayerStreakRooms = append(data.PlayerStreakRooms, RoomStreak{
				RoomID:   table.TableID,
				RoomName: name,
				Streak:   playerRun,
			})
		}
		if settings.BankerStreak > 0 && bankerRun >= settings.BankerStreak {
			data.BankerStreakRooms = append(data.BankerStreakRooms, RoomStreak{
				RoomID:   table.TableID,
				RoomName: name,
				Streak:   bankerRun,
			})
		}
	}

	sort.SliceStable(data.PlayerStreakRooms, func(i, j int) bool {
		return data.PlayerStreakRooms[i].Streak > data.PlayerStreakRooms[j].Streak
	})
	sort.SliceStable(data.BankerStreakRooms, func(i, j int) bool {
		return data.BankerStreakRooms[i].Streak > data.BankerStreakRooms[j].Streak
	})
	return data
}
