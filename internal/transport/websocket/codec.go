package websocket

import (
	"github.com/rocketscienceinc/tictactoe-client/internal/event"
)

// Codec maps outbound events to text frames and text frames to inbound events or control replies.
type Codec interface {
	// Endpoint - path and query of the socket endpoint on the server.
	Endpoint() string
	Encode(out event.Outbound) ([]byte, error)
	Decode(data []byte) (Frame, error)
}

// Frame is the result of decoding one text frame. Any combination of fields may be empty.
type Frame struct {
	Event event.Inbound
	// Reply is written back to the server as is.
	Reply []byte
	// Closed is set when the server ended the session inside the protocol.
	Closed bool
}

// JSONCodec speaks the {action, payload} envelope on /ws.
type JSONCodec struct{}

func (JSONCodec) Endpoint() string {
	return "/ws"
}

func (JSONCodec) Encode(out event.Outbound) ([]byte, error) {
	msg, err := event.NewMessage(out, "")
	if err != nil {
		return nil, err
	}

	return mustMarshal(msg), nil
}

func (JSONCodec) Decode(data []byte) (Frame, error) {
	msg, err := event.ParseMessage(data)
	if err != nil {
		return Frame{}, err
	}

	in, err := msg.Inbound()
	if err != nil {
		return Frame{}, err
	}

	return Frame{Event: in}, nil
}
