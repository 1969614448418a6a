package apperror

import "errors"

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrConnectRefused   = errors.New("server refused the connection")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrMalformedPayload = errors.New("malformed event payload")
	ErrRoomNotFound     = errors.New("room not found")
	ErrInvalidRole      = errors.New("invalid role choice")
	ErrUnknownTransport = errors.New("unknown transport")
	ErrSessionClosed    = errors.New("session is closed")
)
