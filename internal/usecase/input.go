package usecase

// Input is a user action coming from the view.
type Input interface {
	input()
}

type CellClicked struct {
	Row int
	Col int
}

type NewGameClicked struct{}

type ExitClicked struct{}

func (CellClicked) input()    {}
func (NewGameClicked) input() {}
func (ExitClicked) input()    {}
