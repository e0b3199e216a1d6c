// Package config loads resolver settings from the environment, an optional
// .env file, and an optional YAML naming-service table.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"xns-resolver/internal/domain"
	"xns-resolver/internal/logger"
	"xns-resolver/internal/resolver"
)

// Transport kinds for talking to the ledger node.
const (
	TransportHTTP = "http"
	TransportWS   = "ws"
)

// Config holds all runtime settings.
type Config struct {
	Network    string `env:"XNS_NETWORK,default=mainnet"`
	RPCURL     string `env:"XNS_RPC_URL"`
	WSURL      string `env:"XNS_WS_URL"`
	IndexerURL string `env:"XNS_INDEXER_URL"`
	Transport  string `env:"XNS_TRANSPORT,default=http"`

	CacheSize        int           `env:"XNS_CACHE_SIZE,default=1000"`
	CacheTTL         time.Duration `env:"XNS_CACHE_TTL,default=5m"`
	FetchConcurrency int           `env:"XNS_FETCH_CONCURRENCY,default=10"`
	ThrottleEvery    int           `env:"XNS_THROTTLE_EVERY,default=50"`
	ThrottlePause    time.Duration `env:"XNS_THROTTLE_PAUSE,default=100ms"`

	HTTPTimeout   time.Duration `env:"XNS_HTTP_TIMEOUT,default=30s"`
	RPCMaxRetries int           `env:"XNS_RPC_MAX_RETRIES,default=2"`
	Gateways      string        `env:"XNS_GATEWAYS"` // comma-separated base URLs
	ServicesFile  string        `env:"XNS_SERVICES_FILE"`
	ProfileRPS    float64       `env:"XNS_PROFILE_RPS,default=0"`

	ListenAddr string `env:"XNS_LISTEN_ADDR,default=:8080"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogOutput string `env:"LOG_OUTPUT,default=stderr"`
}

// Load reads envFile (when non-empty) into the process environment and
// decodes the configuration. Variables already set take precedence over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv decodes the configuration from the process environment.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that the decoder cannot.
func (c *Config) Validate() error {
	if _, err := domain.ParseNetwork(c.Network); err != nil {
		return fmt.Errorf("XNS_NETWORK: %w", err)
	}
	switch strings.ToLower(c.Transport) {
	case TransportHTTP, TransportWS:
	default:
		return fmt.Errorf("XNS_TRANSPORT: unknown transport %q (want http or ws)", c.Transport)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("XNS_CACHE_SIZE: must be positive, got %d", c.CacheSize)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("XNS_CACHE_TTL: must be positive, got %s", c.CacheTTL)
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("XNS_FETCH_CONCURRENCY: must be positive, got %d", c.FetchConcurrency)
	}
	if c.ThrottleEvery < 0 || c.ThrottlePause < 0 {
		return errors.New("XNS_THROTTLE_EVERY and XNS_THROTTLE_PAUSE must not be negative")
	}
	if c.RPCMaxRetries < 0 {
		return fmt.Errorf("XNS_RPC_MAX_RETRIES: must not be negative, got %d", c.RPCMaxRetries)
	}
	if c.ProfileRPS < 0 {
		return fmt.Errorf("XNS_PROFILE_RPS: must not be negative, got %v", c.ProfileRPS)
	}
	return nil
}

// NetworkValue returns the parsed network.
func (c *Config) NetworkValue() domain.Network {
	n, _ := domain.ParseNetwork(c.Network)
	return n
}

// UseWebSocket reports whether the node is reached over WebSocket.
func (c *Config) UseWebSocket() bool {
	return strings.EqualFold(c.Transport, TransportWS)
}

// NodeURL returns the JSON-RPC endpoint, defaulting to the network's public node.
func (c *Config) NodeURL() string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	return c.NetworkValue().RPCURL()
}

// NodeWSURL returns the WebSocket endpoint, defaulting to the network's public node.
func (c *Config) NodeWSURL() string {
	if c.WSURL != "" {
		return c.WSURL
	}
	return c.NetworkValue().WSURL()
}

// Indexer returns the Clio endpoint used for nft_info and nfts_by_issuer.
func (c *Config) Indexer() string {
	if c.IndexerURL != "" {
		return c.IndexerURL
	}
	return domain.DefaultIndexerURL
}

// GatewayList returns the configured IPFS gateways, or nil for the defaults.
func (c *Config) GatewayList() []string {
	if strings.TrimSpace(c.Gateways) == "" {
		return nil
	}
	var out []string
	for _, g := range strings.Split(c.Gateways, ",") {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if !strings.HasSuffix(g, "/") {
			g += "/"
		}
		out = append(out, g)
	}
	return out
}

// Resolver builds the engine settings, loading the services file when set.
func (c *Config) Resolver() (resolver.Config, error) {
	rc := resolver.DefaultConfig(c.NetworkValue())
	rc.CacheSize = c.CacheSize
	rc.CacheTTL = c.CacheTTL
	rc.FetchConcurrency = c.FetchConcurrency
	rc.ThrottleEvery = c.ThrottleEvery
	rc.ThrottlePause = c.ThrottlePause

	if c.ServicesFile != "" {
		data, err := os.ReadFile(c.ServicesFile)
		if err != nil {
			return resolver.Config{}, fmt.Errorf("read services file: %w", err)
		}
		services, err := ParseServices(data)
		if err != nil {
			return resolver.Config{}, fmt.Errorf("services file %s: %w", c.ServicesFile, err)
		}
		rc.Services = services
	}
	return rc, nil
}

// Logger returns the logging settings.
func (c *Config) Logger() logger.Config {
	return logger.Config{Level: c.LogLevel, Output: c.LogOutput}
}
