package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/event"
	"github.com/rocketscienceinc/tictactoe-client/internal/tictactoe"
)

const DefaultThanksPath = "/thanks"

// View is the surface the session renders into.
type View interface {
	RenderCell(cell entity.Cell)
	SetStatus(status string)
	SetControlsVisible(visible bool)
	// Alert blocks until the user acknowledges the message or ctx is done.
	Alert(ctx context.Context, message string)
	Navigate(path string)
}

type emitter interface {
	Emit(ctx context.Context, out event.Outbound) error
}

// Session holds everything one connection knows: the assigned role and the last state pushed by the server.
// It is driven from a single goroutine by Run, so its fields need no locking.
type Session struct {
	logger     *slog.Logger
	view       View
	emitter    emitter
	thanksPath string

	role   entity.Role
	state  *entity.GameState
	closed bool
}

func NewSession(logger *slog.Logger, view View, emitter emitter, thanksPath string) *Session {
	if thanksPath == "" {
		thanksPath = DefaultThanksPath
	}

	return &Session{
		logger:     logger.With("component", "session"),
		view:       view,
		emitter:    emitter,
		thanksPath: thanksPath,
	}
}

// Run - the event loop. Inbound events and user input are handled one at a time, in arrival order.
// It returns nil when the user exits or ctx is done, and ErrConnectionClosed when the transport goes away.
func (that *Session) Run(ctx context.Context, inbound <-chan event.Inbound, input <-chan Input) error {
	log := that.logger.With("method", "Run")

	defer that.Close()

	for {
		select {
		case <-ctx.Done():
			log.Info("context canceled, leaving session")
			return nil
		case in, ok := <-inbound:
			if !ok {
				return apperror.ErrConnectionClosed
			}

			that.HandleEvent(ctx, in)
		case in := <-input:
			if err := that.HandleInput(ctx, in); err != nil {
				log.Error("failed to handle input", "error", err)
			}

			if that.closed {
				return nil
			}
		}
	}
}

// HandleEvent - applies one server event to the cache and the view.
func (that *Session) HandleEvent(ctx context.Context, in event.Inbound) {
	log := that.logger.With("method", "HandleEvent", "event", in.Name())

	if that.closed {
		log.Warn("event after session close ignored")
		return
	}

	switch in := in.(type) {
	case event.PlayerAssignment:
		that.role = in.Player
		that.view.SetStatus(tictactoe.AssignmentStatus(in.Player))
		log.Info("role assigned", "role", in.Player)
	case event.GameState:
		state := in.GameState
		that.state = &state
		that.render()
		log.Debug("state replaced", "current_player", state.CurrentPlayer, "winner", state.Winner)
	case event.Error:
		log.Info("server reported an error", "message", in.Message)
		that.view.Alert(ctx, in.Message)
	case event.StartGame:
		that.view.SetStatus(in.Message)
	case event.WaitingForOpponent:
		that.view.SetStatus(in.Message)
	default:
		log.Error("unhandled event type", "type", fmt.Sprintf("%T", in))
	}
}

// HandleInput - turns a user action into an outbound event or a navigation.
func (that *Session) HandleInput(ctx context.Context, in Input) error {
	if that.closed {
		return apperror.ErrSessionClosed
	}

	switch in := in.(type) {
	case CellClicked:
		return that.Click(ctx, in.Row, in.Col)
	case NewGameClicked:
		return that.NewGame(ctx)
	case ExitClicked:
		that.Exit()
		return nil
	default:
		return fmt.Errorf("unknown input %T", in)
	}
}

// Click - emits a move when the advisory preconditions hold; otherwise it does nothing.
func (that *Session) Click(ctx context.Context, row, col int) error {
	if !tictactoe.CanMove(that.role, that.state) {
		that.logger.Debug("click ignored", "row", row, "col", col, "role", that.role)
		return nil
	}

	if err := that.emitter.Emit(ctx, event.Move{Row: row, Col: col}); err != nil {
		return fmt.Errorf("failed to emit move: %w", err)
	}

	return nil
}

// NewGame - always asks the server for a reset.
func (that *Session) NewGame(ctx context.Context) error {
	if err := that.emitter.Emit(ctx, event.ResetGame{}); err != nil {
		return fmt.Errorf("failed to emit reset: %w", err)
	}

	return nil
}

// Exit - navigates to the thanks page and ends the session.
func (that *Session) Exit() {
	that.logger.Info("leaving game", "path", that.thanksPath)
	that.view.Navigate(that.thanksPath)
	that.Close()
}

// Close - drops the cached role and state. Further input is rejected.
func (that *Session) Close() {
	that.closed = true
	that.role = ""
	that.state = nil
}

func (that *Session) Role() entity.Role {
	return that.role
}

// State - the cached state, nil until the first game_state.
func (that *Session) State() *entity.GameState {
	return that.state
}

func (that *Session) render() {
	for _, cell := range that.state.Board.Cells() {
		that.view.RenderCell(cell)
	}

	outcome := tictactoe.Describe(that.role, that.state)
	that.view.SetStatus(outcome.Status)
	that.view.SetControlsVisible(outcome.ShowControls)
}

// IsConnectionClosed - reports whether Run ended because the transport went away.
func IsConnectionClosed(err error) bool {
	return errors.Is(err, apperror.ErrConnectionClosed)
}
