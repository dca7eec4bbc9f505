package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	utilsconfig "github.com/quantumauth-io/quantum-go-utils/config"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
)

type ClientSettings struct {
	LocalHost      string
	Port           string
	AllowedOrigins []string
	// NetworksFile replaces the built-in network catalog when set.
	NetworksFile     string
	InitialChain     string
	KeystorePath     string
	AutoApprove      bool
	OperationTimeout string
}

type CoordinatorSettings struct {
	URL                string
	Timeout            string
	RPS                float64
	Burst              int
	InstructionTimeout int
}

type PollingSettings struct {
	Interval string
	Deadline string
}

type Config struct {
	ClientSettings *ClientSettings
	Coordinator    *CoordinatorSettings
	Polling        *PollingSettings

	// Filled by Normalize.
	InitialChainID     catalog.ChainID `mapstructure:"-"`
	OperationTimeout   time.Duration   `mapstructure:"-"`
	CoordinatorTimeout time.Duration   `mapstructure:"-"`
	PollInterval       time.Duration   `mapstructure:"-"`
	PollDeadline       time.Duration   `mapstructure:"-"`

	// From the environment only.
	WalletKeyHex   string `mapstructure:"-"`
	WalletPassword string `mapstructure:"-"`
}

func Load() (*Config, error) {
	home, _ := os.UserHomeDir()
	paths := []string{
		filepath.Join(home, ".config", "bridge-client"),
		filepath.Join(home, "config"),
		".",
	}

	return utilsconfig.ParseConfigWithEmbedded[Config](paths, EmbeddedConfigYAML)
}

// Normalize fills defaults and parses the string-typed settings.
func (c *Config) Normalize() error {
	if c.ClientSettings == nil {
		c.ClientSettings = &ClientSettings{}
	}
	if c.Coordinator == nil {
		c.Coordinator = &CoordinatorSettings{}
	}
	if c.Polling == nil {
		c.Polling = &PollingSettings{}
	}

	cs := c.ClientSettings
	if strings.TrimSpace(cs.LocalHost) == "" {
		cs.LocalHost = "127.0.0.1"
	}
	if strings.TrimSpace(cs.Port) == "" {
		cs.Port = "6140"
	}

	var err error
	if strings.TrimSpace(cs.InitialChain) != "" {
		if c.InitialChainID, err = catalog.ParseChainID(cs.InitialChain); err != nil {
			return fmt.Errorf("ClientSettings.InitialChain: %w", err)
		}
	}
	if c.OperationTimeout, err = parseDuration("ClientSettings.OperationTimeout", cs.OperationTimeout, 5*time.Minute); err != nil {
		return err
	}
	if c.CoordinatorTimeout, err = parseDuration("Coordinator.Timeout", c.Coordinator.Timeout, 10*time.Second); err != nil {
		return err
	}
	if c.PollInterval, err = parseDuration("Polling.Interval", c.Polling.Interval, 5*time.Second); err != nil {
		return err
	}
	if c.PollDeadline, err = parseDuration("Polling.Deadline", c.Polling.Deadline, 120*time.Second); err != nil {
		return err
	}
	if c.PollInterval > c.PollDeadline {
		return fmt.Errorf("Polling.Interval %s exceeds Polling.Deadline %s", c.PollInterval, c.PollDeadline)
	}
	if c.Coordinator.InstructionTimeout <= 0 {
		c.Coordinator.InstructionTimeout = 120
	}
	return nil
}

func parseDuration(field, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, raw)
	}
	return d, nil
}

// ApplyEnv reads BRIDGE_ENV, BRIDGE_COORDINATOR_URL, BRIDGE_WALLET_KEY and
// BRIDGE_WALLET_PASSWORD. An explicit coordinator URL wins over BRIDGE_ENV.
func (c *Config) ApplyEnv() error {
	if c.Coordinator == nil {
		c.Coordinator = &CoordinatorSettings{}
	}

	raw := strings.TrimSpace(os.Getenv("BRIDGE_ENV"))
	switch strings.ToLower(raw) {
	case "":
		// keep the configured URL
	case "local":
		c.Coordinator.URL = "http://localhost:8000"
	case "docker":
		c.Coordinator.URL = "http://host.docker.internal:8000"
	default:
		return fmt.Errorf("invalid BRIDGE_ENV %q (allowed: local, docker, empty)", raw)
	}

	if u := strings.TrimSpace(os.Getenv("BRIDGE_COORDINATOR_URL")); u != "" {
		c.Coordinator.URL = u
	}
	if _, err := url.ParseRequestURI(c.Coordinator.URL); err != nil {
		return fmt.Errorf("coordinator url %q: %w", c.Coordinator.URL, err)
	}

	c.WalletKeyHex = strings.TrimSpace(os.Getenv("BRIDGE_WALLET_KEY"))
	c.WalletPassword = os.Getenv("BRIDGE_WALLET_PASSWORD")
	return nil
}
