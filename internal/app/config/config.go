package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Relay    RelayConfig    `yaml:"relay"`
	Client   ClientConfig   `yaml:"client"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type RelayConfig struct {
	Addr            string        `yaml:"addr"`
	BusIDPrefix     string        `yaml:"bus_id_prefix"`
	LogInterval     time.Duration `yaml:"log_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type ClientConfig struct {
	RelayURL       string        `yaml:"relay_url"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type PostgresConfig struct {
	ConnString  string `yaml:"conn_string"`
	FeedChannel string `yaml:"feed_channel"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Relay.Addr == "" {
		c.Relay.Addr = ":8080"
	}
	if c.Relay.BusIDPrefix == "" {
		c.Relay.BusIDPrefix = "BUS"
	}
	if c.Relay.LogInterval == 0 {
		c.Relay.LogInterval = time.Minute
	}
	if c.Relay.ShutdownTimeout == 0 {
		c.Relay.ShutdownTimeout = 10 * time.Second
	}
	if c.Client.ConnectTimeout == 0 {
		c.Client.ConnectTimeout = 10 * time.Second
	}
	if c.Postgres.FeedChannel == "" {
		c.Postgres.FeedChannel = "bus_locations_changes"
	}
}

func (c *Config) validate() error {
	if c.Relay.LogInterval < 0 {
		return fmt.Errorf("relay.log_interval must not be negative")
	}
	if c.Relay.ShutdownTimeout < 0 {
		return fmt.Errorf("relay.shutdown_timeout must not be negative")
	}
	if c.Client.ConnectTimeout <= 0 {
		return fmt.Errorf("client.connect_timeout must be positive")
	}
	return nil
}
