package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/event"
)

// Engine.IO v4 packet types.
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
	engineNoop    = '6'
)

// Socket.IO v5 packet types, carried inside an Engine.IO message.
const (
	socketConnect      = '0'
	socketDisconnect   = '1'
	socketEvent        = '2'
	socketConnectError = '4'
)

var (
	ErrEmptyPacket       = errors.New("empty packet")
	ErrUnsupportedPacket = errors.New("unsupported packet")
)

// SocketIOCodec speaks Socket.IO v5 over the Engine.IO v4 websocket transport, default namespace only.
type SocketIOCodec struct{}

func (SocketIOCodec) Endpoint() string {
	return "/socket.io/?EIO=4&transport=websocket"
}

// Encode - builds a 42["name",payload] event packet.
func (SocketIOCodec) Encode(out event.Outbound) ([]byte, error) {
	name, payload, err := event.EncodeOutbound(out)
	if err != nil {
		return nil, err
	}

	args := []any{name}
	if payload != nil {
		args = append(args, payload)
	}

	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", name, err)
	}

	return append([]byte{engineMessage, socketEvent}, data...), nil
}

func (that SocketIOCodec) Decode(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, ErrEmptyPacket
	}

	switch data[0] {
	case engineOpen:
		// join the default namespace
		return Frame{Reply: []byte{engineMessage, socketConnect}}, nil
	case enginePing:
		return Frame{Reply: append([]byte{enginePong}, data[1:]...)}, nil
	case engineClose:
		return Frame{Closed: true}, nil
	case enginePong, engineNoop:
		return Frame{}, nil
	case engineMessage:
		return that.decodeSocketPacket(data[1:])
	default:
		return Frame{}, fmt.Errorf("%w: engine type %q", ErrUnsupportedPacket, data[0])
	}
}

func (that SocketIOCodec) decodeSocketPacket(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, ErrEmptyPacket
	}

	body := skipNamespace(data[1:])

	switch data[0] {
	case socketConnect:
		return Frame{}, nil
	case socketDisconnect:
		return Frame{Closed: true}, nil
	case socketConnectError:
		var reason struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &reason)

		return Frame{}, fmt.Errorf("%w: %s", apperror.ErrConnectRefused, reason.Message)
	case socketEvent:
		in, err := that.decodeEvent(skipAckID(body))
		if err != nil {
			return Frame{}, err
		}

		return Frame{Event: in}, nil
	default:
		return Frame{}, fmt.Errorf("%w: socket type %q", ErrUnsupportedPacket, data[0])
	}
}

func (that SocketIOCodec) decodeEvent(body []byte) (event.Inbound, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(body, &args); err != nil {
		return nil, fmt.Errorf("%w: event arguments: %w", apperror.ErrMalformedPayload, err)
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("%w: event without name", apperror.ErrMalformedPayload)
	}

	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return nil, fmt.Errorf("%w: event name: %w", apperror.ErrMalformedPayload, err)
	}

	var payload json.RawMessage
	if len(args) > 1 {
		payload = args[1]
	}

	return event.DecodeInbound(name, payload)
}

// skipNamespace - drops a "/nsp," prefix.
func skipNamespace(body []byte) []byte {
	if len(body) == 0 || body[0] != '/' {
		return body
	}

	if i := bytes.IndexByte(body, ','); i >= 0 {
		return body[i+1:]
	}

	return nil
}

// skipAckID - drops the numeric ack id in front of the event arguments.
func skipAckID(body []byte) []byte {
	i := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}

	return body[i:]
}
