package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the overall configuration for the application.
type Config struct {
	Server    ServerConfig           `yaml:"server"`
	Logging   LoggingConfig          `yaml:"logging"`
	Market    MarketConfig           `yaml:"market"`
	Portfolio PortfolioConfig        `yaml:"portfolio"`
	Numia     NumiaConfig            `yaml:"numia"`
	Tokens    map[string]TokenConfig `yaml:"tokens"`
}

// ServerConfig holds the server-specific configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
}

// MarketConfig holds configuration for the market data cache and its
// background refresh jobs.
type MarketConfig struct {
	RefreshIntervalMinutes int   `yaml:"refreshIntervalMinutes"`
	RequestTimeoutMillis   int64 `yaml:"requestTimeoutMillis"`
}

// PortfolioConfig holds configuration for the calculation pipeline.
type PortfolioConfig struct {
	MaxConcurrentFetches  int   `yaml:"maxConcurrentFetches"`
	FetchTimeoutSeconds   int   `yaml:"fetchTimeoutSeconds"`
	RequestTimeoutSeconds int   `yaml:"requestTimeoutSeconds"`
	MaxRetries            int   `yaml:"maxRetries"`
	RetryDelayMs          int64 `yaml:"retryDelayMs"`
	RateLimit             int   `yaml:"rateLimit"`
	BurstLimit            int   `yaml:"burstLimit"`
	EventBufferSize       int   `yaml:"eventBufferSize"`
}

// NumiaConfig holds the configuration for the Numia market API client.
type NumiaConfig struct {
	BaseURL              string `yaml:"baseURL"`
	APIKey               string `yaml:"apiKey"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// TokenConfig describes one supported token and the chain it lives on.
type TokenConfig struct {
	Name            string   `yaml:"name"`
	Symbol          string   `yaml:"symbol"`
	ChainName       string   `yaml:"chainName"`
	Bech32Prefix    string   `yaml:"bech32Prefix"`
	Denom           string   `yaml:"denom"`
	Decimals        int      `yaml:"decimals"`
	RestEndpoints   []string `yaml:"restEndpoints"`
	Enabled         bool     `yaml:"enabled"`
	SkipAPRScraping bool     `yaml:"skipAprScraping"`
	FallbackAPR     float64  `yaml:"fallbackApr"`
	Color           string   `yaml:"color"`
	Logo            string   `yaml:"logo"`
}

// EnabledTokens returns the enabled token configs sorted by symbol.
func (c *Config) EnabledTokens() []TokenConfig {
	tokens := make([]TokenConfig, 0, len(c.Tokens))
	for _, tc := range c.Tokens {
		if tc.Enabled {
			tokens = append(tokens, tc)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Symbol < tokens[j].Symbol })
	return tokens
}

// EnabledSymbols returns the symbols of all enabled tokens, sorted.
func (c *Config) EnabledSymbols() []string {
	tokens := c.EnabledTokens()
	symbols := make([]string, 0, len(tokens))
	for _, tc := range tokens {
		symbols = append(symbols, tc.Symbol)
	}
	return symbols
}

// TokenByChain returns the enabled token config for a chain name.
func (c *Config) TokenByChain(chain string) (TokenConfig, bool) {
	for _, tc := range c.Tokens {
		if tc.Enabled && strings.EqualFold(tc.ChainName, chain) {
			return tc, true
		}
	}
	return TokenConfig{}, false
}

// TokenBySymbol returns the token config for a symbol, enabled or not.
func (c *Config) TokenBySymbol(symbol string) (TokenConfig, bool) {
	tc, ok := c.Tokens[strings.ToUpper(symbol)]
	return tc, ok
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	cfg.applyDefaults()

	for symbol, tc := range cfg.Tokens {
		if !tc.Enabled {
			continue
		}
		if tc.Bech32Prefix == "" {
			return nil, fmt.Errorf("token %s is enabled but has no bech32Prefix", symbol)
		}
		if len(tc.RestEndpoints) == 0 {
			logrus.Warnf("Token %s has no restEndpoints configured; balance fetching for it will fail", symbol)
		}
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8000"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 120 // streams stay open for the whole calculation
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Market.RefreshIntervalMinutes == 0 {
		c.Market.RefreshIntervalMinutes = 5
		logrus.Infof("Market refresh interval not set, defaulting to %d minutes", c.Market.RefreshIntervalMinutes)
	}
	if c.Market.RequestTimeoutMillis == 0 {
		c.Market.RequestTimeoutMillis = 15000
	}
	if c.Portfolio.MaxConcurrentFetches == 0 {
		c.Portfolio.MaxConcurrentFetches = 5
		logrus.Infof("MaxConcurrentFetches not set, defaulting to %d", c.Portfolio.MaxConcurrentFetches)
	}
	if c.Portfolio.FetchTimeoutSeconds == 0 {
		c.Portfolio.FetchTimeoutSeconds = 15
	}
	if c.Portfolio.RequestTimeoutSeconds == 0 {
		c.Portfolio.RequestTimeoutSeconds = 90
	}
	if c.Portfolio.MaxRetries == 0 {
		c.Portfolio.MaxRetries = 3
	}
	if c.Portfolio.RetryDelayMs == 0 {
		c.Portfolio.RetryDelayMs = 500
	}
	if c.Portfolio.RateLimit == 0 {
		c.Portfolio.RateLimit = 10
	}
	if c.Portfolio.BurstLimit == 0 {
		c.Portfolio.BurstLimit = 20
	}
	if c.Portfolio.EventBufferSize == 0 {
		c.Portfolio.EventBufferSize = 64
	}
	if c.Numia.BaseURL == "" {
		c.Numia.BaseURL = "https://osmosis.numia.xyz"
		logrus.Infof("Numia.BaseURL not set, defaulting to %s", c.Numia.BaseURL)
	}
	if c.Numia.APIKey == "" {
		c.Numia.APIKey = os.Getenv("NUMIA_API_KEY")
	}
	if c.Numia.RequestTimeoutMillis == 0 {
		c.Numia.RequestTimeoutMillis = 15000
	}
}
