package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/event"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	writeWait               = 10 * time.Second
)

var ErrUnsupportedScheme = errors.New("unsupported server url scheme")

type Options struct {
	// ServerURL is the http(s) or ws(s) base address of the game server.
	ServerURL string
	Codec     Codec
	// Referer tells servers that derive room and role from the page URL which game to join.
	Referer          string
	Header           http.Header
	HandshakeTimeout time.Duration
}

// Client is one persistent connection to the game server.
type Client struct {
	logger *slog.Logger
	conn   *gorilla.Conn
	codec  Codec

	writeMutex sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// Dial - opens the connection. The returned client is not reading until Listen is called.
func Dial(ctx context.Context, logger *slog.Logger, opts Options) (*Client, error) {
	log := logger.With("component", "websocket")

	if opts.Codec == nil {
		opts.Codec = SocketIOCodec{}
	}

	endpoint, err := EndpointURL(opts.ServerURL, opts.Codec.Endpoint())
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	for key, values := range opts.Header {
		header[key] = append([]string(nil), values...)
	}

	if opts.Referer != "" {
		header.Set("Referer", opts.Referer)
	}

	timeout := opts.HandshakeTimeout
	if timeout == 0 {
		timeout = defaultHandshakeTimeout
	}

	dialer := gorilla.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}

	log.Info("WebSocket connection established", "endpoint", endpoint)

	return &Client{
		logger: log,
		conn:   conn,
		codec:  opts.Codec,
	}, nil
}

// Listen - reads frames until the connection ends or ctx is done, delivering inbound events to out
// in the order the server sent them. out is closed on return.
// Reading does not wait for out: events queue up while the consumer is busy, so pings keep
// being answered.
func (that *Client) Listen(ctx context.Context, out chan<- event.Inbound) error {
	defer close(out)

	stop := context.AfterFunc(ctx, func() {
		that.conn.Close()
	})
	defer stop()

	events := make(chan event.Inbound)
	readErr := make(chan error, 1)

	go func() {
		readErr <- that.read(ctx, events)
	}()

	var pending []event.Inbound

	for {
		var deliver chan<- event.Inbound
		var next event.Inbound
		if len(pending) > 0 {
			deliver, next = out, pending[0]
		}

		select {
		case in := <-events:
			pending = append(pending, in)
		case deliver <- next:
			pending = pending[1:]
		case err := <-readErr:
			return flush(ctx, out, pending, err)
		case <-ctx.Done():
			that.conn.Close()
			return nil
		}
	}
}

// read - the frame loop. Control replies are written here, events are handed to events.
func (that *Client) read(ctx context.Context, events chan<- event.Inbound) error {
	log := that.logger.With("method", "read")

	for {
		_, data, err := that.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("%w: %w", apperror.ErrConnectionClosed, err)
		}

		frame, err := that.codec.Decode(data)
		if errors.Is(err, apperror.ErrConnectRefused) {
			return err
		}

		if err != nil {
			log.Error("failed to decode frame", "error", err, "frame", string(data))
			continue
		}

		if frame.Reply != nil {
			if err = that.write(ctx, frame.Reply); err != nil {
				log.Error("failed to reply", "error", err)
			}
		}

		if frame.Closed {
			log.Info("server closed the session")
			return apperror.ErrConnectionClosed
		}

		if frame.Event == nil {
			continue
		}

		select {
		case events <- frame.Event:
		case <-ctx.Done():
			return nil
		}
	}
}

// flush - hands over what was read before the connection ended, then reports why it ended.
func flush(ctx context.Context, out chan<- event.Inbound, pending []event.Inbound, err error) error {
	for _, in := range pending {
		select {
		case out <- in:
		case <-ctx.Done():
			return nil
		}
	}

	return err
}

// Emit - sends an outbound event. There is no acknowledgement.
func (that *Client) Emit(ctx context.Context, out event.Outbound) error {
	data, err := that.codec.Encode(out)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", out.Name(), err)
	}

	if err = that.write(ctx, data); err != nil {
		return fmt.Errorf("failed to send %s: %w", out.Name(), err)
	}

	that.logger.Debug("event sent", "event", out.Name())

	return nil
}

// Close - sends a close frame and drops the connection. Safe to call again, and after Listen
// has already dropped it.
func (that *Client) Close() error {
	that.closeOnce.Do(func() {
		that.writeMutex.Lock()
		msg := gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, "")
		_ = that.conn.WriteControl(gorilla.CloseMessage, msg, time.Now().Add(writeWait))
		that.writeMutex.Unlock()

		if err := that.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			that.closeErr = fmt.Errorf("failed to close connection: %w", err)
		}
	})

	return that.closeErr
}

func (that *Client) write(ctx context.Context, data []byte) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}

	that.writeMutex.Lock()
	defer that.writeMutex.Unlock()

	if err := that.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := that.conn.WriteMessage(gorilla.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}

// EndpointURL - joins the server base address and a codec endpoint, switching http(s) to ws(s).
func EndpointURL(serverURL, endpoint string) (string, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse server url: %w", err)
	}

	switch base.Scheme {
	case "http", "ws":
		base.Scheme = "ws"
	case "https", "wss":
		base.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, base.Scheme)
	}

	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint: %w", err)
	}

	base.Path = strings.TrimSuffix(base.Path, "/") + ref.Path
	base.RawQuery = ref.RawQuery

	return base.String(), nil
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
