package entity

import (
	"errors"
	"fmt"
)

const (
	RoleX         Role = "X"
	RoleO         Role = "O"
	RoleSpectator Role = "spectator"
)

var ErrInvalidRole = errors.New("invalid role")

// Role is assigned once per connection by the server.
type Role string

func (that Role) Validate() error {
	switch that {
	case RoleX, RoleO, RoleSpectator:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, string(that))
	}
}

// IsPlayer - true for X and O, false for spectators.
func (that Role) IsPlayer() bool {
	return that == RoleX || that == RoleO
}

// Plays - reports whether the role owns the given mark.
func (that Role) Plays(mark Mark) bool {
	return that.IsPlayer() && string(that) == string(mark)
}
