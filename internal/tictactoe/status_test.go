package tictactoe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

const (
	x = entity.PlayerX
	o = entity.PlayerO
	e = entity.EmptyCell
)

func TestDescribe_Winner(t *testing.T) {
	state := &entity.GameState{
		Board: entity.Board{
			{x, x, x},
			{o, o, e},
			{e, e, e},
		},
		CurrentPlayer: x,
		Winner:        x,
	}

	t.Run("Winner equals my role", func(t *testing.T) {
		// When: X looks at a state X has won
		outcome := Describe(entity.RoleX, state)

		// Then: it reads "You Won!" and both controls show
		assert.Equal(t, Outcome{Phase: PhaseWon, Status: "You Won!", ShowControls: true}, outcome)
	})

	t.Run("Winner is the other player", func(t *testing.T) {
		outcome := Describe(entity.RoleO, state)

		assert.Equal(t, Outcome{Phase: PhaseLost, Status: "You lost :(", ShowControls: true}, outcome)
	})

	t.Run("Spectator sees who won", func(t *testing.T) {
		outcome := Describe(entity.RoleSpectator, state)

		assert.Equal(t, Outcome{Phase: PhaseWinnerAnnounced, Status: "Player X wins!", ShowControls: true}, outcome)
	})

	t.Run("Full board with a winner is a win, not a draw", func(t *testing.T) {
		// Given: the last move filled the board and won
		full := &entity.GameState{
			Board: entity.Board{
				{x, o, x},
				{o, x, o},
				{o, x, x},
			},
			CurrentPlayer: x,
			Winner:        x,
		}

		// When: O looks at it
		outcome := Describe(entity.RoleO, full)

		// Then: it is a loss
		assert.Equal(t, PhaseLost, outcome.Phase)
		assert.Equal(t, "You lost :(", outcome.Status)
	})
}

func TestDescribe_Draw(t *testing.T) {
	// Given: a full board without winner
	state := &entity.GameState{
		Board: entity.Board{
			{x, o, x},
			{x, o, o},
			{o, x, x},
		},
		CurrentPlayer: o,
	}

	for _, role := range []entity.Role{entity.RoleX, entity.RoleO, entity.RoleSpectator} {
		outcome := Describe(role, state)

		assert.Equal(t, Outcome{Phase: PhaseDraw, Status: "It's a draw!", ShowControls: true}, outcome, role)
	}
}

func TestDescribe_Ongoing(t *testing.T) {
	state := &entity.GameState{
		Board: entity.Board{
			{x, e, e},
			{e, o, e},
			{e, e, e},
		},
		CurrentPlayer: x,
	}

	t.Run("My turn", func(t *testing.T) {
		outcome := Describe(entity.RoleX, state)

		assert.Equal(t, Outcome{Phase: PhaseOngoing, Status: "Your turn!"}, outcome)
	})

	t.Run("Opponent's turn", func(t *testing.T) {
		outcome := Describe(entity.RoleO, state)

		assert.Equal(t, Outcome{Phase: PhaseOngoing, Status: "Waiting for player X..."}, outcome)
	})

	t.Run("Spectator waits too", func(t *testing.T) {
		outcome := Describe(entity.RoleSpectator, state)

		assert.Equal(t, "Waiting for player X...", outcome.Status)
		assert.False(t, outcome.ShowControls)
	})
}

func TestCanMove(t *testing.T) {
	ongoing := &entity.GameState{CurrentPlayer: o}

	t.Run("No state yet", func(t *testing.T) {
		assert.False(t, CanMove(entity.RoleO, nil))
	})

	t.Run("My turn, no winner", func(t *testing.T) {
		assert.True(t, CanMove(entity.RoleO, ongoing))
	})

	t.Run("Not my turn", func(t *testing.T) {
		assert.False(t, CanMove(entity.RoleX, ongoing))
	})

	t.Run("Spectator never moves", func(t *testing.T) {
		assert.False(t, CanMove(entity.RoleSpectator, ongoing))
	})

	t.Run("Game already won", func(t *testing.T) {
		won := &entity.GameState{CurrentPlayer: o, Winner: o}

		assert.False(t, CanMove(entity.RoleO, won))
	})
}

func TestAssignmentStatus(t *testing.T) {
	assert.Equal(t, "You are player: X", AssignmentStatus(entity.RoleX))
	assert.Equal(t, "You are player: O", AssignmentStatus(entity.RoleO))
	assert.Equal(t, "You are viewing as a spectator.", AssignmentStatus(entity.RoleSpectator))
}
