package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/quantumauth-io/bridge-client/internal/bridge-client/catalog"
)

func TestNormalizeDefaults(t *testing.T) {
	var c Config
	require.NoError(t, c.Normalize())

	require.Equal(t, "127.0.0.1", c.ClientSettings.LocalHost)
	require.Equal(t, "6140", c.ClientSettings.Port)
	require.Equal(t, 5*time.Second, c.PollInterval)
	require.Equal(t, 120*time.Second, c.PollDeadline)
	require.Equal(t, 10*time.Second, c.CoordinatorTimeout)
	require.Equal(t, 120, c.Coordinator.InstructionTimeout)
	require.True(t, c.InitialChainID.IsZero())
}

func TestNormalizeParses(t *testing.T) {
	c := Config{
		ClientSettings: &ClientSettings{InitialChain: "0xAA37DC", OperationTimeout: "90s"},
		Polling:        &PollingSettings{Interval: "2s", Deadline: "1m"},
	}
	require.NoError(t, c.Normalize())
	require.Equal(t, catalog.ChainID(11155420), c.InitialChainID)
	require.Equal(t, 90*time.Second, c.OperationTimeout)
	require.Equal(t, time.Minute, c.PollDeadline)

	bad := Config{Polling: &PollingSettings{Interval: "5m", Deadline: "1m"}}
	require.Error(t, bad.Normalize())

	bad = Config{Polling: &PollingSettings{Interval: "soon"}}
	require.ErrorContains(t, bad.Normalize(), "Polling.Interval")

	bad = Config{ClientSettings: &ClientSettings{InitialChain: "mainnet"}}
	require.Error(t, bad.Normalize())
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("BRIDGE_ENV", "local")
	t.Setenv("BRIDGE_COORDINATOR_URL", "")
	t.Setenv("BRIDGE_WALLET_KEY", " abcd ")
	t.Setenv("BRIDGE_WALLET_PASSWORD", "pw")

	c := Config{Coordinator: &CoordinatorSettings{URL: "http://coordinator:9000"}}
	require.NoError(t, c.ApplyEnv())
	require.Equal(t, "http://localhost:8000", c.Coordinator.URL)
	require.Equal(t, "abcd", c.WalletKeyHex)
	require.Equal(t, "pw", c.WalletPassword)

	t.Setenv("BRIDGE_COORDINATOR_URL", "https://tasks.example.org")
	require.NoError(t, c.ApplyEnv())
	require.Equal(t, "https://tasks.example.org", c.Coordinator.URL)

	t.Setenv("BRIDGE_ENV", "staging")
	require.Error(t, c.ApplyEnv())
}

func TestEmbeddedDefaults(t *testing.T) {
	var raw map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(EmbeddedConfigYAML, &raw))
	require.Contains(t, raw, "ClientSettings")
	require.Equal(t, "http://localhost:8000", raw["Coordinator"]["URL"])
	require.Equal(t, "120s", raw["Polling"]["Deadline"])
}
