package entity

import (
	"fmt"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
)

const (
	// MaxPlayers - a room seats exactly two players.
	MaxPlayers = 2

	// TurnBlack and TurnWhite are the 1-based turn indexes handed out at
	// join time: the first joiner plays black and moves first.
	TurnBlack = 1
	TurnWhite = 2

	// TurnNone signals "cannot play" to a client joining a full room.
	TurnNone = -1
)

// Room is one play session: the ordered player list (insertion order is
// turn order) and the board it owns.
type Room struct {
	ID      string
	Players []string

	board  *Board
	stones [MaxPlayers]int
}

func NewRoom(id string) *Room {
	return &Room{
		ID:    id,
		board: NewBoard(),
	}
}

func (that *Room) Board() *Board {
	return that.board
}

// Join - appends the player and returns its 1-based turn index, or
// ErrRoomFull once two players are seated.
func (that *Room) Join(playerName string) (int, error) {
	if len(that.Players) >= MaxPlayers {
		return TurnNone, fmt.Errorf("%w: %s", apperror.ErrRoomFull, that.ID)
	}

	that.Players = append(that.Players, playerName)

	return len(that.Players), nil
}

// Leave - removes the first occurrence of the player from the list.
func (that *Room) Leave(playerName string) {
	for i, name := range that.Players {
		if name == playerName {
			that.Players = append(that.Players[:i], that.Players[i+1:]...)
			return
		}
	}
}

func (that *Room) IsEmpty() bool {
	return len(that.Players) == 0
}

// StoneCounts - stones placed so far by black and by white.
func (that *Room) StoneCounts() (int, int) {
	return that.stones[0], that.stones[1]
}

// IsTurn - the count-derived turn check. There is no stored "whose turn"
// flag: black may move only when the counts are level, white only while
// behind. Anything else is not this player's turn.
func (that *Room) IsTurn(turnIndex int) bool {
	black, white := that.StoneCounts()

	switch turnIndex {
	case TurnBlack:
		return black == white
	case TurnWhite:
		return white < black
	default:
		return false
	}
}

// Place - applies one stone for the player at turnIndex if the move is
// legal. An out-of-turn or occupied-cell move returns applied=false with a
// nil error: the caller acknowledges it anyway and the board stays as-is.
func (that *Room) Place(turnIndex, row, col int) (bool, error) {
	if !that.IsTurn(turnIndex) {
		return false, nil
	}

	current, err := that.board.Get(row, col)
	if err != nil {
		return false, err
	}

	// Overwriting a stone would desync the counters, so an occupied cell
	// is a no-op like a wrong-turn move.
	if current != CellEmpty {
		return false, nil
	}

	if err := that.board.Set(row, col, Cell(turnIndex)); err != nil {
		return false, err
	}

	that.stones[turnIndex-1]++

	return true, nil
}

// RecountStones - rebuilds the counters from the board. The incremental
// counters make this redundant in normal operation; it is the
// self-correcting fallback after a board is restored from its serialized
// form.
func (that *Room) RecountStones() {
	that.stones = [MaxPlayers]int{}

	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			switch that.board.cells[row][col] {
			case CellBlack:
				that.stones[0]++
			case CellWhite:
				that.stones[1]++
			case CellEmpty:
			}
		}
	}
}
