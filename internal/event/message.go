package event

import (
	"encoding/json"
	"fmt"
)

// ActionConnect announces a client on transports without a native handshake.
const ActionConnect = "connect"

// Message is the {action, payload} envelope used by the plain JSON transports.
type Message struct {
	Action   string          `json:"action"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	ClientID string          `json:"client_id,omitempty"`
}

// ConnectPayload is sent with ActionConnect.
type ConnectPayload struct {
	ChosenRole string `json:"chosen_role,omitempty"`
	Room       string `json:"room,omitempty"`
}

// NewMessage - wraps an outbound event into an envelope.
func NewMessage(out Outbound, clientID string) (*Message, error) {
	name, payload, err := EncodeOutbound(out)
	if err != nil {
		return nil, err
	}

	return &Message{Action: name, Payload: payload, ClientID: clientID}, nil
}

// Inbound - decodes the envelope into a typed inbound event.
func (that *Message) Inbound() (Inbound, error) {
	return DecodeInbound(that.Action, that.Payload)
}

// ParseMessage - unmarshals a raw envelope.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return &msg, nil
}
