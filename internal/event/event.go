// Package event defines the typed events exchanged with the game server.
//
// Inbound and Outbound are closed sets: only the types declared here implement them,
// so every handler can switch over them exhaustively.
package event

import (
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

const (
	NamePlayerAssignment   = "player_assignment"
	NameGameState          = "game_state"
	NameError              = "error"
	NameStartGame          = "start_game"
	NameWaitingForOpponent = "waiting_for_opponent"

	NameMove      = "move"
	NameResetGame = "reset_game"
)

// Inbound is an event pushed by the server.
type Inbound interface {
	Name() string
	inbound()
}

// Outbound is an event emitted by the client.
type Outbound interface {
	Name() string
	outbound()
}

type PlayerAssignment struct {
	Player entity.Role `json:"player"`
}

type GameState struct {
	entity.GameState
}

type Error struct {
	Message string `json:"message"`
}

type StartGame struct {
	Message string `json:"message"`
}

type WaitingForOpponent struct {
	Message string `json:"message"`
}

type Move struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// ResetGame carries no payload.
type ResetGame struct{}

func (PlayerAssignment) Name() string   { return NamePlayerAssignment }
func (GameState) Name() string          { return NameGameState }
func (Error) Name() string              { return NameError }
func (StartGame) Name() string          { return NameStartGame }
func (WaitingForOpponent) Name() string { return NameWaitingForOpponent }
func (Move) Name() string               { return NameMove }
func (ResetGame) Name() string          { return NameResetGame }

func (PlayerAssignment) inbound()   {}
func (GameState) inbound()          {}
func (Error) inbound()              {}
func (StartGame) inbound()          {}
func (WaitingForOpponent) inbound() {}

func (Move) outbound()      {}
func (ResetGame) outbound() {}
