package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

type Phase int

const (
	PhaseOngoing Phase = iota
	PhaseWon
	PhaseLost
	PhaseWinnerAnnounced
	PhaseDraw
)

const (
	StatusWon       = "You Won!"
	StatusLost      = "You lost :("
	StatusDraw      = "It's a draw!"
	StatusYourTurn  = "Your turn!"
	StatusSpectator = "You are viewing as a spectator."
)

// Outcome is what the client shows for a game state.
type Outcome struct {
	Phase        Phase
	Status       string
	ShowControls bool
}

// Describe - derives status text and control visibility. A recorded winner is reported
// before a full board is considered, so a full board with a winner is never a draw.
func Describe(role entity.Role, state *entity.GameState) Outcome {
	switch {
	case state.HasWinner():
		return describeWinner(role, state.Winner)
	case state.Board.IsFull():
		return Outcome{Phase: PhaseDraw, Status: StatusDraw, ShowControls: true}
	case role.Plays(state.CurrentPlayer):
		return Outcome{Phase: PhaseOngoing, Status: StatusYourTurn}
	default:
		return Outcome{Phase: PhaseOngoing, Status: fmt.Sprintf("Waiting for player %s...", state.CurrentPlayer)}
	}
}

func describeWinner(role entity.Role, winner entity.Mark) Outcome {
	switch {
	case role.Plays(winner):
		return Outcome{Phase: PhaseWon, Status: StatusWon, ShowControls: true}
	case role.IsPlayer():
		return Outcome{Phase: PhaseLost, Status: StatusLost, ShowControls: true}
	default:
		return Outcome{Phase: PhaseWinnerAnnounced, Status: fmt.Sprintf("Player %s wins!", winner), ShowControls: true}
	}
}

// CanMove - the advisory gate for emitting a move: a state was received, it is the role's turn
// and nobody has won yet. The server stays authoritative.
func CanMove(role entity.Role, state *entity.GameState) bool {
	if state == nil {
		return false
	}

	return role.Plays(state.CurrentPlayer) && !state.HasWinner()
}

// AssignmentStatus - the status shown right after the server assigns a role.
func AssignmentStatus(role entity.Role) string {
	if role == entity.RoleSpectator {
		return StatusSpectator
	}

	return fmt.Sprintf("You are player: %s", role)
}
