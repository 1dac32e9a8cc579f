package config // response cache settings

import (
	"strings" // strings trims and normalises text
	"time"    // time for timestamps and timeouts
)

// CacheConfig drives the response cache. Only GET/HEAD style methods listed
// in Methods are served from Redis, and only under one of Paths. Anything
// else is treated as a write and bumps the cache generation on success.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	Paths        []string // cacheable path prefixes; empty caches every path
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables. Parcel listings and role lookups
// are cached by default; payment history is never cached because it is
// served to bearer-authenticated callers.
func LoadCacheConfig() CacheConfig {
	methods := map[string]bool{}
	for _, m := range envList("CACHE_METHODS", "GET") {
		methods[strings.ToUpper(m)] = true
	}
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      methods,
		Paths:        envList("CACHE_PATHS", "/parcels,/users"),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "parcel-cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return cfg
}

// Cacheable reports whether path falls under one of the configured prefixes.
func (c CacheConfig) Cacheable(path string) bool {
	return matchPrefix(c.Paths, path, true)
}

func matchPrefix(prefixes []string, path string, emptyMatches bool) bool {
	if len(prefixes) == 0 {
		return emptyMatches
	}
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}
