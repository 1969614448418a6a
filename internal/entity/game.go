package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
	EmptyCell Mark = ""

	BoardSize = 3
)

var (
	ErrInvalidMark  = errors.New("invalid mark")
	ErrInvalidBoard = errors.New("invalid board dimensions")
)

// Mark is the content of a board cell, the player whose turn it is or the winner.
type Mark string

// Validate - checks that the mark belongs to the X / O / empty alphabet.
func (that Mark) Validate() error {
	switch that {
	case PlayerX, PlayerO, EmptyCell:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMark, string(that))
	}
}

func (that Mark) IsEmpty() bool {
	return that == EmptyCell
}

// Board is the 3x3 grid pushed by the server, indexed [row][col].
type Board [BoardSize][BoardSize]Mark

// Cell is a rendered board position, recomputed on every state push.
type Cell struct {
	Row  int
	Col  int
	Mark Mark
}

// Cells - returns the nine cells of the board in row-major order.
func (that *Board) Cells() []Cell {
	cells := make([]Cell, 0, BoardSize*BoardSize)

	for row := range BoardSize {
		for col := range BoardSize {
			cells = append(cells, Cell{Row: row, Col: col, Mark: that[row][col]})
		}
	}

	return cells
}

// IsFull - true when no cell is empty.
func (that *Board) IsFull() bool {
	for _, row := range that {
		for _, cell := range row {
			if cell.IsEmpty() {
				return false
			}
		}
	}

	return true
}

func (that *Board) Validate() error {
	for row := range that {
		for col, cell := range that[row] {
			if err := cell.Validate(); err != nil {
				return fmt.Errorf("cell %d,%d: %w", row, col, err)
			}
		}
	}

	return nil
}

// UnmarshalJSON - accepts exactly three rows of three cells; null cells are empty.
func (that *Board) UnmarshalJSON(data []byte) error {
	var rows [][]*string
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("failed to unmarshal board: %w", err)
	}

	if len(rows) != BoardSize {
		return fmt.Errorf("%w: %d rows", ErrInvalidBoard, len(rows))
	}

	var board Board
	for row, cells := range rows {
		if len(cells) != BoardSize {
			return fmt.Errorf("%w: row %d has %d cells", ErrInvalidBoard, row, len(cells))
		}

		for col, cell := range cells {
			if cell != nil {
				board[row][col] = Mark(*cell)
			}
		}
	}

	*that = board

	return nil
}

// InBounds - reports whether row and col address a cell of the board.
func InBounds(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

// GameState is the authoritative snapshot declared by the server. The client never mutates it.
type GameState struct {
	Board         Board `json:"board"`
	CurrentPlayer Mark  `json:"current_player"`
	Winner        Mark  `json:"winner"`
}

func (that *GameState) HasWinner() bool {
	return !that.Winner.IsEmpty()
}

func (that *GameState) Validate() error {
	if err := that.Board.Validate(); err != nil {
		return fmt.Errorf("board: %w", err)
	}

	if err := that.CurrentPlayer.Validate(); err != nil {
		return fmt.Errorf("current_player: %w", err)
	}

	if err := that.Winner.Validate(); err != nil {
		return fmt.Errorf("winner: %w", err)
	}

	return nil
}
