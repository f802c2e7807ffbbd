package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the public event response cache.
// When Enabled is false or no Redis client is configured, caching is
// disabled.  Entries are namespaced by Prefix and a generation counter that
// booking and admin writes bump, so seat counts shown to browsers never lag
// a committed booking by more than one request.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       strings.TrimSuffix(envStr("CACHE_PREFIX", "cache:events"), ":"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
