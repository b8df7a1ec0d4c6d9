package env

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/luma/sci/protocol"
)

type Config struct {
	// Port is the serial device, e.g. /dev/ttyUSB0
	Port string `env:"SCI_PORT"`

	Baud    int           `env:"SCI_BAUD,default=115200"`
	Timeout time.Duration `env:"SCI_TIMEOUT,default=400ms"`

	// NumberFormat is hex or decimal
	NumberFormat string        `env:"SCI_NUMBER_FORMAT,default=hex"`
	MaxFrameSize int           `env:"SCI_MAX_FRAME_SIZE,default=128"`
	FrameDelay   time.Duration `env:"SCI_FRAME_DELAY,default=2ms"`

	// Catalog is a JSON file of named parameters and functions
	Catalog string `env:"SCI_CATALOG"`

	DebugHTTP bool   `env:"SCI_DEBUG_HTTP"`
	LogLevel  string `env:"SCI_LOG_LEVEL,default=info"`
}

// LoadConfig reads the config from the environment, after loading an
// optional .env.local file into it.
func LoadConfig(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("Failed to load .env.local: %w", err)
		}
	}

	return LoadConfigWith(ctx, envconfig.OsLookuper())
}

func LoadConfigWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	config := Config{}

	if err := envconfig.ProcessWith(ctx, &config, lookuper); err != nil {
		return nil, err
	}

	return &config, nil
}

// Protocol returns the codec configuration.
func (c *Config) Protocol() (protocol.Config, error) {
	format, err := protocol.ParseNumberFormat(c.NumberFormat)
	if err != nil {
		return protocol.Config{}, err
	}

	if c.MaxFrameSize < 0 {
		return protocol.Config{}, fmt.Errorf("Failed to read max frame size %d: %w", c.MaxFrameSize, protocol.ErrConfig)
	}

	return protocol.Config{
		Format:       format,
		MaxFrameSize: c.MaxFrameSize,
	}, nil
}
