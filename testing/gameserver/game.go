package gameserver

import (
	"errors"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

var (
	ErrCellOccupied = errors.New("cell is already occupied")
	ErrGameFinished = errors.New("game is already finished")
	ErrInvalidCell  = errors.New("invalid cell index")
)

// Game is the server side of one board. The mark that joined first moves first, also after a reset.
type Game struct {
	board   entity.Board
	current entity.Mark
	winner  entity.Mark
	first   entity.Mark
}

func NewGame() *Game {
	return &Game{}
}

// Start - sets who moves first. Until then nobody's turn is set.
func (that *Game) Start(first entity.Mark) {
	that.first = first
	that.current = first
}

func (that *Game) Reset() {
	that.board = entity.Board{}
	that.winner = entity.EmptyCell
	that.current = that.first
}

// MakeMove - puts the current mark on the cell and passes the turn unless the move wins.
// A full board without a line is left for clients to call a draw.
func (that *Game) MakeMove(row, col int) error {
	if !entity.InBounds(row, col) {
		return ErrInvalidCell
	}

	if !that.winner.IsEmpty() {
		return ErrGameFinished
	}

	if !that.board[row][col].IsEmpty() {
		return ErrCellOccupied
	}

	that.board[row][col] = that.current

	if completesLine(&that.board, row, col) {
		that.winner = that.current
		return nil
	}

	that.current = toggleMark(that.current)

	return nil
}

func (that *Game) Occupied(row, col int) bool {
	return entity.InBounds(row, col) && !that.board[row][col].IsEmpty()
}

func (that *Game) Current() entity.Mark {
	return that.current
}

func (that *Game) State() entity.GameState {
	return entity.GameState{
		Board:         that.board,
		CurrentPlayer: that.current,
		Winner:        that.winner,
	}
}

// completesLine - whether the mark just placed at row, col finished its row, column or a diagonal.
func completesLine(board *entity.Board, row, col int) bool {
	mark := board[row][col]
	rowDone, colDone, diagDone, antiDone := true, true, row == col, row+col == entity.BoardSize-1

	for i := range entity.BoardSize {
		rowDone = rowDone && board[row][i] == mark
		colDone = colDone && board[i][col] == mark
		diagDone = diagDone && board[i][i] == mark
		antiDone = antiDone && board[i][entity.BoardSize-1-i] == mark
	}

	return rowDone || colDone || diagDone || antiDone
}

func toggleMark(currentMark entity.Mark) entity.Mark {
	if currentMark == entity.PlayerX {
		return entity.PlayerO
	}
	return entity.PlayerX
}
