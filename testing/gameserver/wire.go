package gameserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-client/internal/event"
)

var errPeerLeft = errors.New("peer left")

// packet is one decoded client frame. Reply, when set, is written back before the action runs.
type packet struct {
	action  string
	payload json.RawMessage
	reply   []byte
}

// wire is the framing of one socket endpoint.
type wire interface {
	// greeting - the first frame after the upgrade, nil if there is none.
	greeting() []byte
	// connectsOnOpen - whether the peer is connected without asking.
	connectsOnOpen() bool
	encode(action string, payload any) ([]byte, error)
	decode(data []byte) (packet, error)
}

// jsonWire - {action, payload} envelopes on /ws.
type jsonWire struct{}

func (jsonWire) greeting() []byte { return nil }

func (jsonWire) connectsOnOpen() bool { return true }

func (jsonWire) encode(action string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return json.Marshal(event.Message{Action: action, Payload: data})
}

func (jsonWire) decode(data []byte) (packet, error) {
	msg, err := event.ParseMessage(data)
	if err != nil {
		return packet{}, err
	}

	return packet{action: msg.Action, payload: msg.Payload}, nil
}

// socketIOWire - the subset of Engine.IO v4 / Socket.IO v5 a browser client needs.
type socketIOWire struct {
	sid string
}

func newSocketIOWire() *socketIOWire {
	return &socketIOWire{sid: uuid.NewString()}
}

func (that *socketIOWire) greeting() []byte {
	return []byte(fmt.Sprintf(`0{"sid":%q,"upgrades":[],"pingInterval":25000,"pingTimeout":20000}`, that.sid))
}

func (*socketIOWire) connectsOnOpen() bool { return false }

func (*socketIOWire) encode(action string, payload any) ([]byte, error) {
	data, err := json.Marshal([]any{action, payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return append([]byte("42"), data...), nil
}

func (that *socketIOWire) decode(data []byte) (packet, error) {
	switch {
	case bytes.Equal(data, []byte("40")):
		return packet{
			action: event.ActionConnect,
			reply:  []byte(fmt.Sprintf(`40{"sid":%q}`, that.sid)),
		}, nil
	case bytes.HasPrefix(data, []byte("42")):
		var args []json.RawMessage
		if err := json.Unmarshal(data[2:], &args); err != nil || len(args) == 0 {
			return packet{}, fmt.Errorf("bad event packet %q", data)
		}

		var action string
		if err := json.Unmarshal(args[0], &action); err != nil {
			return packet{}, fmt.Errorf("bad event name: %w", err)
		}

		var payload json.RawMessage
		if len(args) > 1 {
			payload = args[1]
		}

		return packet{action: action, payload: payload}, nil
	case bytes.Equal(data, []byte("41")), bytes.Equal(data, []byte("1")):
		return packet{}, errPeerLeft
	default:
		// pongs and anything else carry nothing for the game
		return packet{}, nil
	}
}
