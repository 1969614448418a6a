// Package lobby talks to the game server's HTTP routes that create and join rooms
// and builds the page URLs the socket handshake refers to.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
)

const (
	RoleX    = "X"
	RoleO    = "O"
	RoleAuto = "auto"

	requestTimeout = 10 * time.Second
)

var ErrUnexpectedRedirect = errors.New("unexpected redirect target")

// Lobby resolves rooms against one server.
type Lobby struct {
	logger *slog.Logger
	base   *url.URL
	client *http.Client
}

func New(logger *slog.Logger, serverURL string) (*Lobby, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server url: %w", err)
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", base.Scheme)
	}

	return &Lobby{
		logger: logger.With("component", "lobby"),
		base:   base,
		client: &http.Client{
			Timeout: requestTimeout,
			// the room id is in the redirect target, so redirects are read, not followed
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// ValidateRole - checks a role choice for create and join.
func ValidateRole(role string) error {
	switch role {
	case RoleX, RoleO, RoleAuto:
		return nil
	default:
		return fmt.Errorf("%w: %q", apperror.ErrInvalidRole, role)
	}
}

// CreateGame - opens a new room where the caller takes role. Returns the room id.
func (that *Lobby) CreateGame(ctx context.Context, role string) (string, error) {
	log := that.logger.With("method", "CreateGame")

	if role == RoleAuto {
		role = RoleX
	}

	if err := ValidateRole(role); err != nil {
		return "", err
	}

	room, _, err := that.followGameRedirect(ctx, "/create_game/"+role)
	if err != nil {
		return "", fmt.Errorf("failed to create game: %w", err)
	}

	log.Info("game created", "room", room, "role", role)

	return room, nil
}

// JoinGame - checks that the room exists and can be joined.
func (that *Lobby) JoinGame(ctx context.Context, room string) error {
	if room == "" {
		return fmt.Errorf("%w: empty room id", apperror.ErrRoomNotFound)
	}

	joined, _, err := that.followGameRedirect(ctx, "/join_game/"+room)
	if err != nil {
		return fmt.Errorf("failed to join game %s: %w", room, err)
	}

	if joined != room {
		return fmt.Errorf("%w: server redirected to room %s", ErrUnexpectedRedirect, joined)
	}

	that.logger.Info("game joined", "room", room)

	return nil
}

// GameURL - the page URL of a room, as the server routes it.
func (that *Lobby) GameURL(room, role string) string {
	target := that.resolve("/game/" + room)

	if role != "" {
		target.RawQuery = url.Values{"chosen_role": []string{role}}.Encode()
	}

	return target.String()
}

// ResolveURL - an absolute URL for a server path, used for navigation.
func (that *Lobby) ResolveURL(path string) string {
	return that.resolve(path).String()
}

func (that *Lobby) followGameRedirect(ctx context.Context, path string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, that.resolve(path).String(), nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := that.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusMultipleChoices || resp.StatusCode >= http.StatusBadRequest {
		// the server answers unknown rooms with the welcome page instead of a redirect
		return "", "", fmt.Errorf("%w: %s answered %d", apperror.ErrRoomNotFound, path, resp.StatusCode)
	}

	location, err := resp.Location()
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrUnexpectedRedirect, err)
	}

	return ParseGameURL(location)
}

// ParseGameURL - extracts room and chosen role from a /game/<room>?chosen_role=<role> URL.
func ParseGameURL(target *url.URL) (string, string, error) {
	parts := strings.Split(strings.Trim(target.Path, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-2] != "game" || parts[len(parts)-1] == "" {
		return "", "", fmt.Errorf("%w: %s", ErrUnexpectedRedirect, target.Path)
	}

	return parts[len(parts)-1], target.Query().Get("chosen_role"), nil
}

func (that *Lobby) resolve(path string) *url.URL {
	target := *that.base
	target.Path = strings.TrimSuffix(that.base.Path, "/") + path
	target.RawPath = ""
	target.RawQuery = ""

	return &target
}
