package entity

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
)

// BoardSize is fixed by the protocol: the wire format carries exactly
// 15 rows of 15 digits.
const BoardSize = 15

// WinLength - contiguous stones of one color needed to win.
const WinLength = 5

type Cell int

const (
	CellEmpty Cell = iota
	CellBlack
	CellWhite
)

const rowSeparator = ";"

// Board is the 15x15 stone grid of one room. It is pure state: legality of
// a placement (turn order, occupancy) is enforced by the owning room, not
// here.
type Board struct {
	cells [BoardSize][BoardSize]Cell
}

func NewBoard() *Board {
	return &Board{}
}

func (that *Board) Get(row, col int) (Cell, error) {
	if !inRange(row, col) {
		return CellEmpty, fmt.Errorf("%w: (%d, %d)", apperror.ErrOutOfRange, row, col)
	}

	return that.cells[row][col], nil
}

func (that *Board) Set(row, col int, value Cell) error {
	if !inRange(row, col) {
		return fmt.Errorf("%w: (%d, %d)", apperror.ErrOutOfRange, row, col)
	}

	that.cells[row][col] = value

	return nil
}

// CheckWin - reports whether the stone just placed at (row, col) completes a
// run of five or more. It scans the four line directions, extending from the
// placed stone both ways and stopping at the first edge or foreign cell.
func (that *Board) CheckWin(row, col int, player Cell) bool {
	directions := [4][2]int{
		{0, 1},  // horizontal
		{1, 0},  // vertical
		{1, 1},  // diagonal down-right
		{1, -1}, // diagonal down-left
	}

	for _, dir := range directions {
		count := 1

		count += that.countRun(row, col, dir[0], dir[1], player)
		count += that.countRun(row, col, -dir[0], -dir[1], player)

		if count >= WinLength {
			return true
		}
	}

	return false
}

// countRun - counts contiguous player stones from (row, col) exclusive,
// stepping by (dRow, dCol) up to four cells.
func (that *Board) countRun(row, col, dRow, dCol int, player Cell) int {
	count := 0

	for step := 1; step < WinLength; step++ {
		r, c := row+dRow*step, col+dCol*step
		if !inRange(r, c) || that.cells[r][c] != player {
			break
		}
		count++
	}

	return count
}

// Serialize - renders the board in the wire format: rows joined by ";",
// each row 15 digit characters. The exact inverse of DeserializeBoard.
func (that *Board) Serialize() string {
	var sb strings.Builder
	sb.Grow(BoardSize*BoardSize + BoardSize - 1)

	for row := 0; row < BoardSize; row++ {
		if row > 0 {
			sb.WriteString(rowSeparator)
		}
		for col := 0; col < BoardSize; col++ {
			sb.WriteByte(byte('0') + byte(that.cells[row][col]))
		}
	}

	return sb.String()
}

// DeserializeBoard - parses the wire format back into a board.
func DeserializeBoard(raw string) (*Board, error) {
	rows := strings.Split(raw, rowSeparator)
	if len(rows) != BoardSize {
		return nil, fmt.Errorf("%w: expected %d rows, got %d", apperror.ErrBadBoardFormat, BoardSize, len(rows))
	}

	board := NewBoard()

	for i, rowStr := range rows {
		if len(rowStr) != BoardSize {
			return nil, fmt.Errorf("%w: row %d has %d cells", apperror.ErrBadBoardFormat, i, len(rowStr))
		}

		for j := 0; j < BoardSize; j++ {
			char := rowStr[j]
			if char < '0' || char > '2' {
				return nil, fmt.Errorf("%w: invalid cell %q at (%d, %d)", apperror.ErrBadBoardFormat, char, i, j)
			}
			board.cells[i][j] = Cell(char - '0')
		}
	}

	return board, nil
}

func inRange(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}
