// Package gameserver is an in-process game server for tests: the lobby routes, room and role
// assignment and the game events, over the plain JSON socket and over Socket.IO.
package gameserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/event"
	"github.com/rocketscienceinc/tictactoe-client/internal/lobby"
)

const (
	MessageWaiting      = "Waiting for your opponent..."
	MessageStart        = "The game starts!"
	MessageCellOccupied = "Cell occupied! Choose another."
	MessageInvalidMove  = "Invalid move."
	MessageNotYourTurn  = "Not your turn or invalid player."
	MessageInvalidGame  = "Invalid game ID. Please try again."

	writeWait = 5 * time.Second
)

var ErrUnknownAction = errors.New("unknown action")

// Server keeps every room in memory. One mutex serializes all game handling.
type Server struct {
	logger   *slog.Logger
	mux      *http.ServeMux
	upgrader gorilla.Upgrader
	handlers map[string]func(peer *peer, payload json.RawMessage) error

	mutex sync.Mutex
	rooms map[string]*room
}

type room struct {
	id         string
	game       *Game
	slots      map[entity.Role]*peer
	peers      map[*peer]entity.Role
	inProgress bool
}

type peer struct {
	conn       *gorilla.Conn
	wire       wire
	writeMutex sync.Mutex
	room       *room
}

type gameStatePayload struct {
	Board         entity.Board `json:"board"`
	CurrentPlayer *entity.Mark `json:"current_player"`
	Winner        *entity.Mark `json:"winner"`
}

func New(logger *slog.Logger) *Server {
	server := &Server{
		logger:   logger.With("component", "gameserver"),
		mux:      http.NewServeMux(),
		handlers: make(map[string]func(*peer, json.RawMessage) error),
		rooms:    make(map[string]*room),
	}

	server.handlers[event.ActionConnect] = server.handleConnect
	server.handlers[event.NameMove] = server.handleMove
	server.handlers[event.NameResetGame] = server.handleReset

	server.mux.HandleFunc("GET /create_game/{role}", server.createGame)
	server.mux.HandleFunc("GET /join_game/{room}", server.joinGame)
	server.mux.HandleFunc("GET /game/{room}", server.gamePage)
	server.mux.HandleFunc("GET /thanks", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Thanks for playing!"))
	})
	server.mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		server.serveSocket(w, r, jsonWire{})
	})
	server.mux.HandleFunc("GET /socket.io/", func(w http.ResponseWriter, r *http.Request) {
		server.serveSocket(w, r, newSocketIOWire())
	})

	return server
}

func (that *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	that.mux.ServeHTTP(w, r)
}

// CreateRoom - opens an empty room without going through HTTP.
func (that *Server) CreateRoom() string {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	id := uuid.NewString()
	that.rooms[id] = &room{
		id:    id,
		game:  NewGame(),
		slots: make(map[entity.Role]*peer),
		peers: make(map[*peer]entity.Role),
	}

	return id
}

func (that *Server) createGame(w http.ResponseWriter, r *http.Request) {
	id := that.CreateRoom()
	target := "/game/" + id + "?" + url.Values{"chosen_role": {r.PathValue("role")}}.Encode()

	http.Redirect(w, r, target, http.StatusFound)
}

func (that *Server) joinGame(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("room")

	if !that.hasRoom(id) {
		_, _ = w.Write([]byte(MessageInvalidGame))
		return
	}

	http.Redirect(w, r, "/game/"+id+"?chosen_role="+lobby.RoleAuto, http.StatusFound)
}

func (that *Server) gamePage(w http.ResponseWriter, r *http.Request) {
	if !that.hasRoom(r.PathValue("room")) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	_, _ = w.Write([]byte("Tic Tac Toe"))
}

func (that *Server) hasRoom(id string) bool {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	_, ok := that.rooms[id]

	return ok
}

// serveSocket - upgrades and runs one peer until it leaves. Room and role come from the Referer.
func (that *Server) serveSocket(w http.ResponseWriter, r *http.Request, wire wire) {
	log := that.logger.With("method", "serveSocket")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	peer := &peer{conn: conn, wire: wire}
	defer that.leave(peer)

	referer := r.Header.Get("Referer")

	if greeting := wire.greeting(); greeting != nil {
		if err = peer.write(greeting); err != nil {
			log.Error("failed to greet", "error", err)
			return
		}
	}

	if wire.connectsOnOpen() {
		if err = that.dispatch(peer, event.ActionConnect, refererPayload(referer)); err != nil {
			log.Error("failed to connect peer", "error", err)
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		pkt, err := wire.decode(data)
		if errors.Is(err, errPeerLeft) {
			return
		}

		if err != nil {
			log.Error("failed to decode frame", "error", err)
			continue
		}

		if pkt.reply != nil {
			if err = peer.write(pkt.reply); err != nil {
				return
			}
		}

		if pkt.action == "" {
			continue
		}

		payload := pkt.payload
		if pkt.action == event.ActionConnect {
			payload = refererPayload(referer)
		}

		if err = that.dispatch(peer, pkt.action, payload); err != nil {
			log.Error("error processing message", "error", err, "action", pkt.action)
		}
	}
}

func (that *Server) dispatch(peer *peer, action string, payload json.RawMessage) error {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	if handler, ok := that.handlers[action]; ok {
		return handler(peer, payload)
	}

	return fmt.Errorf("%w: %s", ErrUnknownAction, action)
}

// handleConnect - puts the peer in its room, gives it the chosen role if free, any free role for
// "auto", and makes it a spectator once both roles are taken or the game has started.
func (that *Server) handleConnect(peer *peer, payload json.RawMessage) error {
	var connect event.ConnectPayload
	if err := json.Unmarshal(payload, &connect); err != nil {
		return fmt.Errorf("failed to unmarshal connect payload: %w", err)
	}

	room, ok := that.rooms[connect.Room]
	if !ok {
		return fmt.Errorf("no room %q", connect.Room)
	}

	peer.room = room
	role := room.assign(peer, connect.ChosenRole)

	switch {
	case role.IsPlayer() && len(room.slots) == 1:
		room.game.Start(entity.Mark(role))
		room.broadcast(event.NameWaitingForOpponent, map[string]string{"message": MessageWaiting})
	case role.IsPlayer():
		room.inProgress = true
		room.broadcast(event.NameStartGame, map[string]string{"message": MessageStart})
	}

	that.logger.Info("peer connected", "room", room.id, "role", role)

	if err := peer.send(event.NamePlayerAssignment, map[string]entity.Role{"player": role}); err != nil {
		return err
	}

	room.broadcastState()

	return nil
}

func (that *Server) handleMove(peer *peer, payload json.RawMessage) error {
	var move event.Move
	if err := json.Unmarshal(payload, &move); err != nil {
		return fmt.Errorf("failed to unmarshal move: %w", err)
	}

	room := peer.room
	if room == nil {
		return peer.sendError("Invalid room or not in a game.")
	}

	role := room.peers[peer]
	if !role.IsPlayer() || entity.Mark(role) != room.game.Current() {
		return peer.sendError(MessageNotYourTurn)
	}

	if room.game.Occupied(move.Row, move.Col) {
		return peer.sendError(MessageCellOccupied)
	}

	if err := room.game.MakeMove(move.Row, move.Col); err != nil {
		return peer.sendError(MessageInvalidMove)
	}

	room.broadcastState()

	return nil
}

func (that *Server) handleReset(peer *peer, _ json.RawMessage) error {
	if peer.room == nil {
		return nil
	}

	peer.room.game.Reset()
	peer.room.broadcastState()

	return nil
}

// leave - frees the peer's slot. The room stays.
func (that *Server) leave(peer *peer) {
	that.mutex.Lock()
	defer that.mutex.Unlock()

	_ = peer.conn.Close()

	if peer.room == nil {
		return
	}

	role := peer.room.peers[peer]
	delete(peer.room.peers, peer)

	if role.IsPlayer() && peer.room.slots[role] == peer {
		delete(peer.room.slots, role)
	}
}

func (that *room) assign(peer *peer, chosen string) entity.Role {
	role := entity.RoleSpectator

	if !that.inProgress {
		candidates := []entity.Role{entity.RoleX, entity.RoleO}
		if chosen == lobby.RoleO {
			candidates = []entity.Role{entity.RoleO, entity.RoleX}
		}

		for _, candidate := range candidates {
			if _, taken := that.slots[candidate]; !taken {
				that.slots[candidate] = peer
				role = candidate
				break
			}
		}
	}

	that.peers[peer] = role

	return role
}

func (that *room) broadcast(action string, payload any) {
	for peer := range that.peers {
		_ = peer.send(action, payload)
	}
}

func (that *room) broadcastState() {
	state := that.game.State()
	payload := gameStatePayload{Board: state.Board}

	if !state.CurrentPlayer.IsEmpty() {
		payload.CurrentPlayer = &state.CurrentPlayer
	}

	if state.HasWinner() {
		payload.Winner = &state.Winner
	}

	that.broadcast(event.NameGameState, payload)
}

func (that *peer) send(action string, payload any) error {
	data, err := that.wire.encode(action, payload)
	if err != nil {
		return err
	}

	return that.write(data)
}

func (that *peer) sendError(message string) error {
	return that.send(event.NameError, map[string]string{"message": message})
}

func (that *peer) write(data []byte) error {
	that.writeMutex.Lock()
	defer that.writeMutex.Unlock()

	_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := that.conn.WriteMessage(gorilla.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}

// refererPayload - room and chosen role from a /game/<room>?chosen_role=<role> page URL.
func refererPayload(referer string) json.RawMessage {
	var connect event.ConnectPayload

	if target, err := url.Parse(referer); err == nil {
		connect.Room, connect.ChosenRole, _ = lobby.ParseGameURL(target)
	}

	data, _ := json.Marshal(connect)

	return data
}
