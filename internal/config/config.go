package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid is returned (wrapped) by Validate for any rejected value.
var ErrInvalid = errors.New("invalid config")

// Config holds values shared by the web server and the relay listener.
type Config struct {
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
	HTTP  HTTPConfig  `mapstructure:"http" yaml:"http"`
	Relay RelayConfig `mapstructure:"relay" yaml:"relay"`
	Store StoreConfig `mapstructure:"store" yaml:"store"`
}

// LogConfig selects logger verbosity and output format (console, json).
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// HTTPConfig configures the static/form server.
type HTTPConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	StaticDir         string        `mapstructure:"static_dir" yaml:"static_dir"`
	SendPath          string        `mapstructure:"send_path" yaml:"send_path"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// RelayConfig configures the datagram channel between the two processes.
// Addr is the listener bind address and the sender's destination.
type RelayConfig struct {
	Addr          string        `mapstructure:"addr" yaml:"addr"`
	BufferSize    int           `mapstructure:"buffer_size" yaml:"buffer_size"`
	Encoding      string        `mapstructure:"encoding" yaml:"encoding"`
	InsertTimeout time.Duration `mapstructure:"insert_timeout" yaml:"insert_timeout"`
	MetricsAddr   string        `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

// StoreConfig selects and configures the persistence sink.
type StoreConfig struct {
	Driver     string        `mapstructure:"driver" yaml:"driver"`
	URI        string        `mapstructure:"uri" yaml:"uri"`
	Database   string        `mapstructure:"database" yaml:"database"`
	Collection string        `mapstructure:"collection" yaml:"collection"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	SQLitePath string        `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		HTTP: HTTPConfig{
			Addr:              "0.0.0.0:3000",
			StaticDir:         "static",
			SendPath:          "/send_message",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			MaxBodyBytes:      64 << 10,
		},
		Relay: RelayConfig{
			Addr:          "127.0.0.1:5000",
			BufferSize:    1024,
			Encoding:      "json",
			InsertTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver:     "mongo",
			URI:        "mongodb://mongodb:27017",
			Database:   "message_database",
			Collection: "messages",
			Timeout:    5 * time.Second,
			SQLitePath: "formrelay.db",
		},
	}
}

// Validate reports the first invalid value found.
func (c *Config) Validate() error {
	if err := validateHostPort("http.addr", c.HTTP.Addr); err != nil {
		return err
	}
	if c.HTTP.StaticDir == "" {
		return fmt.Errorf("%w: http.static_dir cannot be empty", ErrInvalid)
	}
	if !strings.HasPrefix(c.HTTP.SendPath, "/") {
		return fmt.Errorf("%w: http.send_path must start with '/', got %q", ErrInvalid, c.HTTP.SendPath)
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: http.max_body_bytes must be positive, got %d", ErrInvalid, c.HTTP.MaxBodyBytes)
	}

	if err := validateHostPort("relay.addr", c.Relay.Addr); err != nil {
		return err
	}
	if c.Relay.BufferSize < 64 || c.Relay.BufferSize > 65535 {
		return fmt.Errorf("%w: relay.buffer_size must be between 64 and 65535, got %d", ErrInvalid, c.Relay.BufferSize)
	}
	switch c.Relay.Encoding {
	case "json", "form":
	default:
		return fmt.Errorf("%w: relay.encoding must be json or form, got %q", ErrInvalid, c.Relay.Encoding)
	}
	if c.Relay.MetricsAddr != "" {
		if err := validateHostPort("relay.metrics_addr", c.Relay.MetricsAddr); err != nil {
			return err
		}
	}

	switch c.Store.Driver {
	case "mongo":
		if c.Store.URI == "" || c.Store.Database == "" || c.Store.Collection == "" {
			return fmt.Errorf("%w: store.uri, store.database and store.collection are required for mongo", ErrInvalid)
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("%w: store.sqlite_path is required for sqlite", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: store.driver must be mongo or sqlite, got %q", ErrInvalid, c.Store.Driver)
	}

	return nil
}

func validateHostPort(key, addr string) error {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("%w: %s port must be between 0 and 65535, got %q", ErrInvalid, key, portStr)
	}
	return nil
}
