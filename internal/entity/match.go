package entity

import "time"

// MatchRecord is the archived result of a finished game.
type MatchRecord struct {
	RoomID     string    `json:"room_id"`
	Players    []string  `json:"players"`
	Winner     int       `json:"winner"`
	WinnerName string    `json:"winner_name"`
	Board      string    `json:"board"`
	FinishedAt time.Time `json:"finished_at"`
}
