package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
tokens:
  ATOM:
    name: "Cosmos Hub"
    symbol: "ATOM"
    chainName: "cosmos"
    bech32Prefix: "cosmos"
    denom: "uatom"
    decimals: 6
    restEndpoints:
      - "https://cosmos-rest.publicnode.com"
    enabled: true
  NLS:
    name: "Nolus"
    symbol: "NLS"
    chainName: "nolus"
    bech32Prefix: "nolus"
    denom: "unls"
    decimals: 6
    restEndpoints:
      - "https://rest.cosmos.directory/nolus"
    enabled: true
    skipAprScraping: true
    fallbackApr: 12.0
  OLD:
    name: "Disabled"
    symbol: "OLD"
    chainName: "old"
    bech32Prefix: "old"
    denom: "uold"
    decimals: 6
    enabled: false
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Market.RefreshIntervalMinutes)
	assert.Equal(t, 5, cfg.Portfolio.MaxConcurrentFetches)
	assert.Equal(t, 3, cfg.Portfolio.MaxRetries)
	assert.Equal(t, 90, cfg.Portfolio.RequestTimeoutSeconds)
	assert.Equal(t, 64, cfg.Portfolio.EventBufferSize)
	assert.Equal(t, "https://osmosis.numia.xyz", cfg.Numia.BaseURL)
}

func TestLoadConfigTokens(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	enabled := cfg.EnabledTokens()
	require.Len(t, enabled, 2)
	// Sorted by symbol.
	assert.Equal(t, "ATOM", enabled[0].Symbol)
	assert.Equal(t, "NLS", enabled[1].Symbol)

	assert.True(t, enabled[1].SkipAPRScraping)
	assert.Equal(t, 12.0, enabled[1].FallbackAPR)

	assert.Equal(t, []string{"ATOM", "NLS"}, cfg.EnabledSymbols())

	atom, ok := cfg.TokenByChain("cosmos")
	require.True(t, ok)
	assert.Equal(t, "uatom", atom.Denom)

	_, ok = cfg.TokenByChain("old")
	assert.False(t, ok, "disabled tokens are not resolvable by chain")

	old, ok := cfg.TokenBySymbol("old")
	require.True(t, ok)
	assert.False(t, old.Enabled)
}

func TestLoadConfigRejectsEnabledTokenWithoutPrefix(t *testing.T) {
	broken := `
tokens:
  BAD:
    symbol: "BAD"
    chainName: "bad"
    denom: "ubad"
    enabled: true
`
	_, err := LoadConfig(writeConfig(t, broken))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bech32Prefix")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
