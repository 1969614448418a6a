package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/event"
)

const channelPrefix = "tictactoe:"

var ErrEmptyRoom = errors.New("room id is empty")

// Client relays events through redis pub/sub channels scoped to one room.
// The server publishes to the room broadcast channel or to the client's own channel
// and listens on the room server channel.
type Client struct {
	logger     *slog.Logger
	client     *redis.Client
	room       string
	chosenRole string
	clientID   string
}

func New(logger *slog.Logger, client *redis.Client, room, chosenRole string) (*Client, error) {
	if room == "" {
		return nil, ErrEmptyRoom
	}

	clientID := uuid.NewString()

	return &Client{
		logger:     logger.With("component", "redis", "clientID", clientID, "room", room),
		client:     client,
		room:       room,
		chosenRole: chosenRole,
		clientID:   clientID,
	}, nil
}

// Connect - dials redis and checks it answers.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return conn, nil
}

func (that *Client) ClientID() string {
	return that.clientID
}

func (that *Client) BroadcastChannel() string {
	return channelPrefix + that.room + ":broadcast"
}

func (that *Client) DirectChannel() string {
	return channelPrefix + that.room + ":client:" + that.clientID
}

func (that *Client) ServerChannel() string {
	return channelPrefix + that.room + ":server"
}

// Listen - subscribes to the room, announces the client and delivers inbound events to out
// until ctx is done or the subscription ends. out is closed on return.
func (that *Client) Listen(ctx context.Context, out chan<- event.Inbound) error {
	log := that.logger.With("method", "Listen")

	defer close(out)

	pubsub := that.client.Subscribe(ctx, that.BroadcastChannel(), that.DirectChannel())
	defer pubsub.Close()

	// wait for the subscription before announcing, so no reply is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	if err := that.announce(ctx); err != nil {
		return err
	}

	messages := pubsub.Channel()

	// events wait here while the consumer is busy, so the subscription keeps draining
	var pending []event.Inbound

	for {
		var deliver chan<- event.Inbound
		var next event.Inbound
		if len(pending) > 0 {
			deliver, next = out, pending[0]
		}

		select {
		case <-ctx.Done():
			return nil
		case deliver <- next:
			pending = pending[1:]
		case msg, ok := <-messages:
			if !ok {
				return apperror.ErrConnectionClosed
			}

			in, err := that.decode(msg.Payload)
			if err != nil {
				log.Error("failed to decode message", "error", err, "channel", msg.Channel)
				continue
			}

			pending = append(pending, in)
		}
	}
}

// Emit - publishes an outbound event on the room server channel.
func (that *Client) Emit(ctx context.Context, out event.Outbound) error {
	msg, err := event.NewMessage(out, that.clientID)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	if err = that.publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", out.Name(), err)
	}

	return nil
}

// Close - releases the redis connection.
func (that *Client) Close() error {
	if err := that.client.Close(); err != nil {
		return fmt.Errorf("could not close redis client: %w", err)
	}

	return nil
}

func (that *Client) announce(ctx context.Context) error {
	payload, err := json.Marshal(event.ConnectPayload{ChosenRole: that.chosenRole, Room: that.room})
	if err != nil {
		return fmt.Errorf("failed to marshal connect payload: %w", err)
	}

	msg := &event.Message{Action: event.ActionConnect, Payload: payload, ClientID: that.clientID}
	if err = that.publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to announce client: %w", err)
	}

	return nil
}

func (that *Client) publish(ctx context.Context, msg *event.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err = that.client.Publish(ctx, that.ServerChannel(), data).Err(); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

func (that *Client) decode(payload string) (event.Inbound, error) {
	msg, err := event.ParseMessage([]byte(payload))
	if err != nil {
		return nil, err
	}

	return msg.Inbound()
}
