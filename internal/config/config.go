package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
)

const (
	TransportSocketIO = "socketio"
	TransportJSON     = "json"
	TransportRedis    = "redis"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env:"TICTACTOE_LOG_LEVEL" env-default:"info"`
	LogFile    string `yaml:"log-file" env:"TICTACTOE_LOG_FILE" env-default:"tictactoe-client.log"`
	Server     Server `yaml:"server"`
	Transport  string `yaml:"transport" env:"TICTACTOE_TRANSPORT" env-default:"socketio"`
	Room       Room   `yaml:"room"`
	ThanksPath string `yaml:"thanks-path" env:"TICTACTOE_THANKS_PATH" env-default:"/thanks"`
	Redis      Redis  `yaml:"redis"`
}

type Server struct {
	URL string `yaml:"url" env:"TICTACTOE_SERVER_URL" env-default:"http://localhost:5000"`
}

// Room - which game to play. An empty ID creates a new room.
type Room struct {
	ID   string `yaml:"id" env:"TICTACTOE_ROOM_ID"`
	Role string `yaml:"role" env:"TICTACTOE_ROOM_ROLE" env-default:"auto"`
}

type Redis struct {
	Host string `yaml:"host" env:"TICTACTOE_REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"TICTACTOE_REDIS_PORT" env-default:"6379"`
}

// MustLoad - load all configurations in config.yml file, environment variables take precedence.
// Without the file only the environment and defaults are used.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		if err = cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to load config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err = cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to read environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("unable to stat config file: %w", err)
	}

	return config, nil
}

// Validate - rejects settings that would only fail after a room was already created.
func (that *Config) Validate() error {
	switch that.Transport {
	case TransportSocketIO, TransportJSON, TransportRedis:
	default:
		return fmt.Errorf("%w: %q", apperror.ErrUnknownTransport, that.Transport)
	}

	switch that.Room.Role {
	case "X", "O", "auto":
	default:
		return fmt.Errorf("%w: %q", apperror.ErrInvalidRole, that.Room.Role)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
