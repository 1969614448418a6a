package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/config"
	"github.com/rocketscienceinc/tictactoe-client/internal/event"
	"github.com/rocketscienceinc/tictactoe-client/internal/lobby"
	"github.com/rocketscienceinc/tictactoe-client/internal/transport/redis"
	"github.com/rocketscienceinc/tictactoe-client/internal/transport/websocket"
	"github.com/rocketscienceinc/tictactoe-client/internal/ui/terminal"
	"github.com/rocketscienceinc/tictactoe-client/internal/usecase"
)

const inboundBuffer = 32

var ErrAddrNotFound = errors.New("redis address string is empty")

type transport interface {
	Listen(ctx context.Context, out chan<- event.Inbound) error
	Emit(ctx context.Context, out event.Outbound) error
	Close() error
}

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	gameLobby, err := lobby.New(logger, conf.Server.URL)
	if err != nil {
		return fmt.Errorf("could not set up lobby: %w", err)
	}

	room, chosenRole, err := enterRoom(ctx, gameLobby, conf.Room)
	if err != nil {
		return err
	}

	log.Info("Entering room", "room", room, "role", chosenRole, "transport", conf.Transport)

	conn, err := openTransport(ctx, logger, conf, room, chosenRole, gameLobby.GameURL(room, chosenRole))
	if err != nil {
		return err
	}

	defer func() {
		if err := conn.Close(); err != nil {
			log.Error("could not close transport", "error", err)
		}
	}()

	view := terminal.New(logger, gameLobby.ResolveURL)
	session := usecase.NewSession(logger, view, conn, conf.ThanksPath)
	inbound := make(chan event.Inbound, inboundBuffer)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return conn.Listen(groupCtx, inbound)
	})

	group.Go(func() error {
		defer view.Stop()
		return session.Run(groupCtx, inbound, view.Input())
	})

	group.Go(func() error {
		stop := context.AfterFunc(groupCtx, view.Stop)
		defer stop()
		defer cancel()

		return view.Run()
	})

	err = group.Wait()

	switch {
	case usecase.IsConnectionClosed(err):
		log.Info("Connection to the server closed", "error", err)
		fmt.Fprintln(os.Stderr, "Connection to the game server was lost.")
	case err != nil:
		return fmt.Errorf("game session failed: %w", err)
	}

	if target := view.NavigatedTo(); target != "" {
		fmt.Fprintf(os.Stdout, "Thanks for playing! %s\n", target)
	}

	return nil
}

// enterRoom - creates a room when none is configured, otherwise checks the configured one.
// Returns the room id and the role to ask the server for.
func enterRoom(ctx context.Context, gameLobby *lobby.Lobby, conf config.Room) (string, string, error) {
	if conf.ID == "" {
		role := conf.Role
		if role == lobby.RoleAuto {
			role = lobby.RoleX
		}

		room, err := gameLobby.CreateGame(ctx, role)
		if err != nil {
			return "", "", err
		}

		return room, role, nil
	}

	if err := gameLobby.JoinGame(ctx, conf.ID); err != nil {
		return "", "", err
	}

	return conf.ID, conf.Role, nil
}

func openTransport(
	ctx context.Context,
	logger *slog.Logger,
	conf *config.Config,
	room, chosenRole, referer string,
) (transport, error) {
	switch conf.Transport {
	case config.TransportSocketIO, config.TransportJSON:
		var codec websocket.Codec = websocket.SocketIOCodec{}
		if conf.Transport == config.TransportJSON {
			codec = websocket.JSONCodec{}
		}

		client, err := websocket.Dial(ctx, logger, websocket.Options{
			ServerURL: conf.Server.URL,
			Codec:     codec,
			Referer:   referer,
		})
		if err != nil {
			return nil, fmt.Errorf("could not connect to game server: %w", err)
		}

		return client, nil
	case config.TransportRedis:
		redisAddrString := conf.Redis.GetRedisAddr()
		if conf.Redis.Host == "" {
			return nil, ErrAddrNotFound
		}

		redisClient, err := redis.Connect(ctx, redisAddrString)
		if err != nil {
			return nil, fmt.Errorf("could not connect to redis: %w", err)
		}

		client, err := redis.New(logger, redisClient, room, chosenRole)
		if err != nil {
			_ = redisClient.Close()
			return nil, err
		}

		return client, nil
	default:
		return nil, fmt.Errorf("%w: %q", apperror.ErrUnknownTransport, conf.Transport)
	}
}
