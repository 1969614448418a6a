// Package terminal renders the game in a terminal with tview.
package terminal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/usecase"
)

const (
	pageMain  = "main"
	pageAlert = "alert"

	inputBuffer = 16
	cellWidth   = 3
)

// View is the terminal counterpart of the game page: board, status line and the two controls.
// Mutations from other goroutines are queued onto the tview event loop.
type View struct {
	logger *slog.Logger

	app      *tview.Application
	pages    *tview.Pages
	board    *tview.Table
	status   *tview.TextView
	controls *tview.Flex
	newGame  *tview.Button
	exit     *tview.Button

	input   chan usecase.Input
	resolve func(path string) string
	queue   func(func())

	controlsVisible bool
	alertDone       chan struct{}

	navigateMutex sync.Mutex
	navigatedTo   string
}

// New - builds the widgets. resolve turns a server path into the address shown after navigation.
func New(logger *slog.Logger, resolve func(path string) string) *View {
	app := tview.NewApplication()

	view := newView(logger, app, resolve)
	view.queue = func(update func()) {
		app.QueueUpdateDraw(update)
	}

	app.SetRoot(view.pages, true).
		SetFocus(view.board).
		EnableMouse(true).
		SetInputCapture(view.captureKey)

	return view
}

func newView(logger *slog.Logger, app *tview.Application, resolve func(string) string) *View {
	view := &View{
		logger:  logger.With("component", "terminal"),
		app:     app,
		pages:   tview.NewPages(),
		board:   tview.NewTable(),
		status:  tview.NewTextView(),
		input:   make(chan usecase.Input, inputBuffer),
		resolve: resolve,
	}

	view.board.SetBorders(true).
		SetSelectable(true, true).
		SetSelectedFunc(func(row, col int) {
			view.send(usecase.CellClicked{Row: row, Col: col})
		})

	for row := range entity.BoardSize {
		for col := range entity.BoardSize {
			// a mouse click only selects, so clicks are sent from the cell itself
			view.board.SetCell(row, col, tview.NewTableCell("").
				SetAlign(tview.AlignCenter).
				SetMaxWidth(cellWidth).
				SetExpansion(1).
				SetClickedFunc(func() bool {
					view.send(usecase.CellClicked{Row: row, Col: col})
					return false
				}))
		}
	}

	view.status.SetTextAlign(tview.AlignCenter)

	view.newGame = tview.NewButton("New Game").SetSelectedFunc(func() {
		view.send(usecase.NewGameClicked{})
	})
	view.exit = tview.NewButton("Exit").SetSelectedFunc(func() {
		view.send(usecase.ExitClicked{})
	})
	view.controls = tview.NewFlex()

	title := tview.NewTextView().SetText("Tic Tac Toe").SetTextAlign(tview.AlignCenter)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(title, 1, 0, false).
		AddItem(view.board, 2*entity.BoardSize+1, 0, true).
		AddItem(view.status, 1, 0, false).
		AddItem(view.controls, 1, 0, false)

	view.pages.AddPage(pageMain, layout, true, true)

	return view
}

// Input - user actions, in the order they happened.
func (that *View) Input() <-chan usecase.Input {
	return that.input
}

// Run - blocks on the terminal event loop until Stop or Navigate.
func (that *View) Run() error {
	if err := that.app.Run(); err != nil {
		return fmt.Errorf("terminal failed: %w", err)
	}

	return nil
}

// Stop - ends Run. Queued, so a Stop that comes before Run still takes effect.
func (that *View) Stop() {
	that.app.QueueUpdate(that.app.Stop)
}

func (that *View) RenderCell(cell entity.Cell) {
	that.queue(func() {
		text, color := cellLook(cell.Mark)
		that.board.GetCell(cell.Row, cell.Col).
			SetText(text).
			SetTextColor(color)
	})
}

func (that *View) SetStatus(status string) {
	that.queue(func() {
		that.status.SetText(status)
	})
}

func (that *View) SetControlsVisible(visible bool) {
	that.queue(func() {
		if visible == that.controlsVisible {
			return
		}

		that.controlsVisible = visible
		that.controls.Clear()

		if visible {
			that.controls.
				AddItem(nil, 0, 1, false).
				AddItem(that.newGame, len("New Game")+4, 0, false).
				AddItem(nil, 2, 0, false).
				AddItem(that.exit, len("Exit")+4, 0, false).
				AddItem(nil, 0, 1, false)
		}
	})
}

// Alert - shows a modal and waits until it is dismissed or ctx is done.
func (that *View) Alert(ctx context.Context, message string) {
	done := make(chan struct{})

	that.queue(func() {
		that.alertDone = done

		modal := tview.NewModal().
			SetText(message).
			AddButtons([]string{"OK"}).
			SetDoneFunc(func(int, string) {
				that.dismissAlert()
			})

		that.pages.AddPage(pageAlert, modal, true, true)
		that.app.SetFocus(modal)
	})

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Navigate - leaves the game for path on the server and stops the terminal.
func (that *View) Navigate(path string) {
	target := path
	if that.resolve != nil {
		target = that.resolve(path)
	}

	that.navigateMutex.Lock()
	that.navigatedTo = target
	that.navigateMutex.Unlock()

	that.logger.Info("navigating away", "target", target)
	that.app.Stop()
}

// NavigatedTo - the address the user left for, empty if they did not exit.
func (that *View) NavigatedTo() string {
	that.navigateMutex.Lock()
	defer that.navigateMutex.Unlock()

	return that.navigatedTo
}

func (that *View) dismissAlert() {
	that.pages.RemovePage(pageAlert)
	that.app.SetFocus(that.board)

	if that.alertDone != nil {
		close(that.alertDone)
		that.alertDone = nil
	}
}

func (that *View) captureKey(ev *tcell.EventKey) *tcell.EventKey {
	if that.alertDone != nil || !that.controlsVisible {
		return ev
	}

	switch ev.Rune() {
	case 'n':
		that.send(usecase.NewGameClicked{})
		return nil
	case 'q':
		that.send(usecase.ExitClicked{})
		return nil
	}

	return ev
}

func (that *View) send(in usecase.Input) {
	select {
	case that.input <- in:
	default:
		that.logger.Warn("input dropped, session is busy", "input", fmt.Sprintf("%T", in))
	}
}

// cellLook - the text and colour standing in for the page's X / O cell classes.
func cellLook(mark entity.Mark) (string, tcell.Color) {
	switch mark {
	case entity.PlayerX:
		return string(mark), tcell.ColorRed
	case entity.PlayerO:
		return string(mark), tcell.ColorBlue
	default:
		return "", tview.Styles.PrimaryTextColor
	}
}
