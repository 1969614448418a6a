package event

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

// DecodeInbound - builds a typed inbound event from its wire name and JSON payload.
func DecodeInbound(name string, data json.RawMessage) (Inbound, error) {
	switch name {
	case NamePlayerAssignment:
		var payload PlayerAssignment
		if err := unmarshal(name, data, &payload); err != nil {
			return nil, err
		}

		if err := payload.Player.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", apperror.ErrMalformedPayload, name, err)
		}

		return payload, nil
	case NameGameState:
		var payload GameState
		if err := unmarshal(name, data, &payload.GameState); err != nil {
			return nil, err
		}

		if err := payload.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", apperror.ErrMalformedPayload, name, err)
		}

		return payload, nil
	case NameError:
		var payload Error
		if err := unmarshal(name, data, &payload); err != nil {
			return nil, err
		}

		return payload, nil
	case NameStartGame:
		var payload StartGame
		if err := unmarshal(name, data, &payload); err != nil {
			return nil, err
		}

		return payload, nil
	case NameWaitingForOpponent:
		var payload WaitingForOpponent
		if err := unmarshal(name, data, &payload); err != nil {
			return nil, err
		}

		return payload, nil
	default:
		return nil, fmt.Errorf("%w: %q", apperror.ErrUnknownEvent, name)
	}
}

// EncodeOutbound - returns the wire name and JSON payload of an outbound event.
// The payload is nil for events without one.
func EncodeOutbound(out Outbound) (string, json.RawMessage, error) {
	switch out := out.(type) {
	case Move:
		if !entity.InBounds(out.Row, out.Col) {
			return "", nil, fmt.Errorf("%w: move %d,%d is off the board", apperror.ErrMalformedPayload, out.Row, out.Col)
		}

		data, err := json.Marshal(out)
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal %s: %w", out.Name(), err)
		}

		return out.Name(), data, nil
	case ResetGame:
		return out.Name(), nil, nil
	default:
		return "", nil, fmt.Errorf("%w: %T", apperror.ErrUnknownEvent, out)
	}
}

func unmarshal(name string, data json.RawMessage, payload any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: %s: empty payload", apperror.ErrMalformedPayload, name)
	}

	if err := json.Unmarshal(data, payload); err != nil {
		return fmt.Errorf("%w: %s: %w", apperror.ErrMalformedPayload, name, err)
	}

	return nil
}
