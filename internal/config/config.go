package config

import (
	"fmt"
	"net"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable, e.g. PRECRASTINE_PORT.
const Prefix = "precrastine"

type Config struct {
	Host           string `envconfig:"HOST" default:"127.0.0.1"`
	Port           string `envconfig:"PORT" default:"8080"`
	DBPath         string `envconfig:"DB_PATH" default:"precrastine.db"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LoginRateLimit int    `envconfig:"LOGIN_RATE_LIMIT" default:"10"`

	// TrustProxy keys login rate limits on X-Forwarded-For. Enable only
	// behind a reverse proxy that sets the header.
	TrustProxy bool `envconfig:"TRUST_PROXY" default:"false"`

	// SnapshotPassphrase is used by export and import when no flag is given.
	SnapshotPassphrase string `envconfig:"SNAPSHOT_PASSPHRASE"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("config: port is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: db path is required")
	}
	if c.LoginRateLimit < 1 {
		return fmt.Errorf("config: login rate limit must be positive, got %d", c.LoginRateLimit)
	}
	return nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}
