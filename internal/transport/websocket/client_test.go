package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/event"
)

const testTimeout = 5 * time.Second

var upgrader = gorilla.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type serverSide struct {
	conn    *gorilla.Conn
	referer string
	path    string
}

// newTestServer - starts a websocket server and hands every accepted connection to the test.
func newTestServer(t *testing.T) (*httptest.Server, <-chan serverSide) {
	t.Helper()

	accepted := make(chan serverSide, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		accepted <- serverSide{conn: conn, referer: r.Header.Get("Referer"), path: r.URL.RequestURI()}
	}))
	t.Cleanup(srv.Close)

	return srv, accepted
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func readText(t *testing.T, conn *gorilla.Conn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(testTimeout)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	return string(data)
}

func writeText(t *testing.T, conn *gorilla.Conn, text string) {
	t.Helper()

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(text)))
}

func receive(t *testing.T, events <-chan event.Inbound) event.Inbound {
	t.Helper()

	select {
	case in := <-events:
		return in
	case <-time.After(testTimeout):
		t.Fatal("no event received")
		return nil
	}
}

func TestClient_SocketIO(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	srv, accepted := newTestServer(t)

	// Given: a client dialing with the game page as referer
	client, err := Dial(ctx, newLogger(), Options{
		ServerURL: srv.URL,
		Codec:     SocketIOCodec{},
		Referer:   srv.URL + "/game/room-1?chosen_role=X",
	})
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	defer server.conn.Close()

	assert.Equal(t, "/socket.io/?EIO=4&transport=websocket", server.path)
	assert.Equal(t, srv.URL+"/game/room-1?chosen_role=X", server.referer)

	events := make(chan event.Inbound, 4)
	listenErr := make(chan error, 1)
	go func() { listenErr <- client.Listen(ctx, events) }()

	// When: the server opens the engine session
	writeText(t, server.conn, `0{"sid":"s1","upgrades":[],"pingInterval":25000,"pingTimeout":20000}`)

	// Then: the client joins the default namespace
	assert.Equal(t, "40", readText(t, server.conn))

	writeText(t, server.conn, `40{"sid":"n1"}`)
	writeText(t, server.conn, "2")
	assert.Equal(t, "3", readText(t, server.conn))

	// When: events are pushed, one of them unknown
	writeText(t, server.conn, `42["waiting_for_opponent",{"message":"Waiting for your opponent..."}]`)
	writeText(t, server.conn, `42["chat",{}]`)
	writeText(t, server.conn, `42["player_assignment",{"player":"X"}]`)

	// Then: known events arrive in order, the unknown one is skipped
	assert.Equal(t, event.WaitingForOpponent{Message: "Waiting for your opponent..."}, receive(t, events))
	assert.Equal(t, event.PlayerAssignment{Player: entity.RoleX}, receive(t, events))

	// When: the client emits a move and a reset
	require.NoError(t, client.Emit(ctx, event.Move{Row: 1, Col: 2}))
	require.NoError(t, client.Emit(ctx, event.ResetGame{}))

	// Then: the server reads socket.io event packets
	assert.Equal(t, `42["move",{"row":1,"col":2}]`, readText(t, server.conn))
	assert.Equal(t, `42["reset_game"]`, readText(t, server.conn))

	// When: the server disconnects the namespace
	writeText(t, server.conn, "41")

	// Then: Listen reports a closed connection and closes the channel
	select {
	case err = <-listenErr:
		require.ErrorIs(t, err, apperror.ErrConnectionClosed)
	case <-ctx.Done():
		t.Fatal("listen did not return")
	}

	_, open := <-events
	assert.False(t, open)
}

func TestClient_JSON(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	srv, accepted := newTestServer(t)

	client, err := Dial(ctx, newLogger(), Options{ServerURL: srv.URL, Codec: JSONCodec{}})
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	assert.Equal(t, "/ws", server.path)

	events := make(chan event.Inbound, 1)
	listenErr := make(chan error, 1)
	go func() { listenErr <- client.Listen(ctx, events) }()

	writeText(t, server.conn, `{"action":"start_game","payload":{"message":"The game starts!"}}`)
	assert.Equal(t, event.StartGame{Message: "The game starts!"}, receive(t, events))

	require.NoError(t, client.Emit(ctx, event.Move{Row: 2, Col: 0}))
	assert.JSONEq(t, `{"action":"move","payload":{"row":2,"col":0}}`, readText(t, server.conn))

	// When: the server drops the connection
	require.NoError(t, server.conn.Close())

	// Then: Listen ends with ErrConnectionClosed
	select {
	case err = <-listenErr:
		require.ErrorIs(t, err, apperror.ErrConnectionClosed)
	case <-ctx.Done():
		t.Fatal("listen did not return")
	}
}

func TestClient_ListenStopsOnContext(t *testing.T) {
	srv, accepted := newTestServer(t)

	client, err := Dial(context.Background(), newLogger(), Options{ServerURL: srv.URL, Codec: JSONCodec{}})
	require.NoError(t, err)

	server := <-accepted
	defer server.conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	listenErr := make(chan error, 1)
	go func() { listenErr <- client.Listen(ctx, make(chan event.Inbound)) }()

	// When: the context is canceled
	cancel()

	// Then: Listen returns without error
	select {
	case err = <-listenErr:
		require.NoError(t, err)
	case <-time.After(testTimeout):
		t.Fatal("listen did not return")
	}
}

func TestClient_ConnectRefused(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	srv, accepted := newTestServer(t)

	client, err := Dial(ctx, newLogger(), Options{ServerURL: srv.URL})
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	defer server.conn.Close()

	writeText(t, server.conn, `44{"message":"Room is full"}`)

	err = client.Listen(ctx, make(chan event.Inbound))

	require.ErrorIs(t, err, apperror.ErrConnectRefused)
}

func TestDial_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	_, err := Dial(ctx, newLogger(), Options{ServerURL: "http://127.0.0.1:1", HandshakeTimeout: time.Second})

	require.Error(t, err)
}

func TestClient_AnswersPingsWhileEventsWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	srv, accepted := newTestServer(t)

	client, err := Dial(ctx, newLogger(), Options{ServerURL: srv.URL})
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	defer server.conn.Close()

	// Given: nobody is taking events off the channel, as while an alert is open
	events := make(chan event.Inbound)
	go func() { _ = client.Listen(ctx, events) }()

	const pushed = 100
	for i := range pushed {
		writeText(t, server.conn, fmt.Sprintf(`42["start_game",{"message":"m%d"}]`, i))
	}

	// When: the server pings
	writeText(t, server.conn, "2")

	// Then: the pong still comes back
	assert.Equal(t, "3", readText(t, server.conn))

	// Then: every event is delivered afterwards, in order
	for i := range pushed {
		assert.Equal(t, event.StartGame{Message: fmt.Sprintf("m%d", i)}, receive(t, events))
	}
}

func TestClient_Close(t *testing.T) {
	t.Run("Twice", func(t *testing.T) {
		srv, accepted := newTestServer(t)

		client, err := Dial(context.Background(), newLogger(), Options{ServerURL: srv.URL, Codec: JSONCodec{}})
		require.NoError(t, err)

		server := <-accepted
		defer server.conn.Close()

		require.NoError(t, client.Close())
		assert.NoError(t, client.Close())
	})

	t.Run("After Listen dropped the connection", func(t *testing.T) {
		srv, accepted := newTestServer(t)

		client, err := Dial(context.Background(), newLogger(), Options{ServerURL: srv.URL, Codec: JSONCodec{}})
		require.NoError(t, err)

		server := <-accepted
		defer server.conn.Close()

		// Given: Listen ended because its context did
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, client.Listen(ctx, make(chan event.Inbound)))

		// Then: closing on the way out is not an error
		assert.NoError(t, client.Close())
	})
}
