package resolver

import (
	"fmt"
	"time"

	"xns-resolver/internal/domain"
)

// Default engine settings.
const (
	DefaultCacheSize        = 1000
	DefaultCacheTTL         = 5 * time.Minute
	DefaultFetchConcurrency = 10
	DefaultThrottleEvery    = 50
	DefaultThrottlePause    = 100 * time.Millisecond
)

// Config holds engine settings. Zero ThrottleEvery or ThrottlePause disables the pause.
type Config struct {
	Network  domain.Network
	Services []domain.ServiceDescriptor // tried in order

	CacheSize int
	CacheTTL  time.Duration

	FetchConcurrency int
	ThrottleEvery    int
	ThrottlePause    time.Duration
}

// DefaultConfig returns the default settings for network with the built-in naming services.
func DefaultConfig(network domain.Network) Config {
	return Config{
		Network:          network,
		Services:         domain.DefaultServices(),
		CacheSize:        DefaultCacheSize,
		CacheTTL:         DefaultCacheTTL,
		FetchConcurrency: DefaultFetchConcurrency,
		ThrottleEvery:    DefaultThrottleEvery,
		ThrottlePause:    DefaultThrottlePause,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if !c.Network.IsValid() {
		return fmt.Errorf("%w: unknown network %q", domain.ErrInternal, c.Network)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("%w: cache size must be positive, got %d", domain.ErrInternal, c.CacheSize)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("%w: cache ttl must be positive, got %s", domain.ErrInternal, c.CacheTTL)
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("%w: fetch concurrency must be positive, got %d", domain.ErrInternal, c.FetchConcurrency)
	}
	if c.ThrottleEvery < 0 || c.ThrottlePause < 0 {
		return fmt.Errorf("%w: throttle settings must not be negative", domain.ErrInternal)
	}
	return nil
}
