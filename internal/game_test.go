package application

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-client/internal/config"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/event"
	"github.com/rocketscienceinc/tictactoe-client/internal/lobby"
	"github.com/rocketscienceinc/tictactoe-client/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-client/internal/transport/websocket"
	"github.com/rocketscienceinc/tictactoe-client/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-client/testing/gameserver"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

// screen is a View safe to read from the test goroutine.
type screen struct {
	mutex           sync.Mutex
	cells           map[[2]int]entity.Mark
	status          string
	controlsVisible bool
	alerts          []string
	navigatedTo     string
}

func newScreen() *screen {
	return &screen{cells: make(map[[2]int]entity.Mark)}
}

func (that *screen) RenderCell(cell entity.Cell) {
	that.mutex.Lock()
	defer that.mutex.Unlock()
	that.cells[[2]int{cell.Row, cell.Col}] = cell.Mark
}

func (that *screen) SetStatus(status string) {
	that.mutex.Lock()
	defer that.mutex.Unlock()
	that.status = status
}

func (that *screen) SetControlsVisible(visible bool) {
	that.mutex.Lock()
	defer that.mutex.Unlock()
	that.controlsVisible = visible
}

func (that *screen) Alert(_ context.Context, message string) {
	that.mutex.Lock()
	defer that.mutex.Unlock()
	that.alerts = append(that.alerts, message)
}

func (that *screen) Navigate(path string) {
	that.mutex.Lock()
	defer that.mutex.Unlock()
	that.navigatedTo = path
}

func (that *screen) read(f func(*screen) bool) bool {
	that.mutex.Lock()
	defer that.mutex.Unlock()
	return f(that)
}

type player struct {
	screen *screen
	conn   *websocket.Client
	input  chan usecase.Input
	done   chan error
}

func joinAs(
	ctx context.Context,
	t *testing.T,
	logger *slog.Logger,
	gameLobby *lobby.Lobby,
	serverURL string,
	codec websocket.Codec,
	room, role string,
) *player {
	t.Helper()

	conn, err := websocket.Dial(ctx, logger, websocket.Options{
		ServerURL: serverURL,
		Codec:     codec,
		Referer:   gameLobby.GameURL(room, role),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	p := &player{
		screen: newScreen(),
		conn:   conn,
		input:  make(chan usecase.Input, 1),
		done:   make(chan error, 1),
	}

	inbound := make(chan event.Inbound, inboundBuffer)
	session := usecase.NewSession(logger, p.screen, conn, usecase.DefaultThanksPath)

	go func() { _ = conn.Listen(ctx, inbound) }()
	go func() { p.done <- session.Run(ctx, inbound, p.input) }()

	return p
}

func (that *player) waitStatus(t *testing.T, status string) {
	t.Helper()

	require.Eventually(t, func() bool {
		return that.screen.read(func(s *screen) bool { return s.status == status })
	}, waitFor, tick, "status never became %q", status)
}

func (that *player) waitCell(t *testing.T, row, col int, mark entity.Mark) {
	t.Helper()

	require.Eventually(t, func() bool {
		return that.screen.read(func(s *screen) bool { return s.cells[[2]int{row, col}] == mark })
	}, waitFor, tick)
}

func (that *player) waitControls(t *testing.T, visible bool) {
	t.Helper()

	require.Eventually(t, func() bool {
		return that.screen.read(func(s *screen) bool { return s.controlsVisible == visible })
	}, waitFor, tick)
}

func TestGame_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*waitFor)
	defer cancel()

	logger := newLogger()
	server := httptest.NewServer(gameserver.New(logger))
	defer server.Close()

	gameLobby, err := lobby.New(logger, server.URL)
	require.NoError(t, err)

	// Given: X opens a room and talks plain JSON
	room, role, err := enterRoom(ctx, gameLobby, config.Room{Role: lobby.RoleX})
	require.NoError(t, err)
	playerX := joinAs(ctx, t, logger, gameLobby, server.URL, websocket.JSONCodec{}, room, role)
	playerX.waitStatus(t, tictactoe.StatusYourTurn)

	// Given: O joins the same room over Socket.IO
	room, role, err = enterRoom(ctx, gameLobby, config.Room{ID: room, Role: lobby.RoleAuto})
	require.NoError(t, err)
	playerO := joinAs(ctx, t, logger, gameLobby, server.URL, websocket.SocketIOCodec{}, room, role)
	playerO.waitStatus(t, "Waiting for player X...")

	// Given: a latecomer can only watch
	watcher := joinAs(ctx, t, logger, gameLobby, server.URL, websocket.JSONCodec{}, room, lobby.RoleAuto)
	watcher.waitStatus(t, "Waiting for player X...")

	t.Run("The server rejects a move out of turn", func(t *testing.T) {
		// When: O bypasses the client check
		require.NoError(t, playerO.conn.Emit(ctx, event.Move{Row: 2, Col: 2}))

		// Then: O is alerted and the board is untouched
		require.Eventually(t, func() bool {
			return playerO.screen.read(func(s *screen) bool {
				return len(s.alerts) == 1 && s.alerts[0] == gameserver.MessageNotYourTurn
			})
		}, waitFor, tick)
		assert.True(t, playerO.screen.read(func(s *screen) bool { return s.cells[[2]int{2, 2}].IsEmpty() }))
	})

	t.Run("X wins the top row", func(t *testing.T) {
		moves := []struct {
			mover, other *player
			row, col     int
			mark         entity.Mark
		}{
			{playerX, playerO, 0, 0, entity.PlayerX},
			{playerO, playerX, 1, 0, entity.PlayerO},
			{playerX, playerO, 0, 1, entity.PlayerX},
			{playerO, playerX, 1, 1, entity.PlayerO},
			{playerX, playerO, 0, 2, entity.PlayerX},
		}

		for _, move := range moves {
			move.mover.waitStatus(t, tictactoe.StatusYourTurn)
			move.mover.input <- usecase.CellClicked{Row: move.row, Col: move.col}
			move.other.waitCell(t, move.row, move.col, move.mark)
		}

		// Then: each side reads the result and gets the controls
		playerX.waitStatus(t, tictactoe.StatusWon)
		playerO.waitStatus(t, tictactoe.StatusLost)
		watcher.waitStatus(t, "Player X wins!")
		playerX.waitControls(t, true)
		playerO.waitControls(t, true)
	})

	t.Run("New game clears the board for everyone", func(t *testing.T) {
		// When
		playerO.input <- usecase.NewGameClicked{}

		// Then: X moves first again
		playerX.waitStatus(t, tictactoe.StatusYourTurn)
		playerO.waitStatus(t, "Waiting for player X...")
		watcher.waitCell(t, 0, 0, entity.EmptyCell)
		playerX.waitControls(t, false)
	})

	t.Run("Exit leaves for the thanks page", func(t *testing.T) {
		playerX.input <- usecase.ExitClicked{}

		select {
		case err = <-playerX.done:
			require.NoError(t, err)
		case <-ctx.Done():
			t.Fatal("session did not end")
		}

		assert.True(t, playerX.screen.read(func(s *screen) bool {
			return s.navigatedTo == usecase.DefaultThanksPath
		}))
	})
}
