package redis

import (
	"time"

	"github.com/Alijeyrad/notifyhub/config"
)

// Config holds Redis connection settings
type Config struct {
	Addr     string
	DB       int
	Username string
	Password string

	PoolSize     int
	MinIdleConns int

	DialTimeoutSeconds  int
	ReadTimeoutSeconds  int
	WriteTimeoutSeconds int

	GraphCacheTTLSeconds int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:                 "localhost:6379",
		PoolSize:             10,
		MinIdleConns:         2,
		DialTimeoutSeconds:   5,
		ReadTimeoutSeconds:   3,
		WriteTimeoutSeconds:  3,
		GraphCacheTTLSeconds: 60,
	}
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

func (c Config) DialTimeout() time.Duration  { return seconds(c.DialTimeoutSeconds, 5) }
func (c Config) ReadTimeout() time.Duration  { return seconds(c.ReadTimeoutSeconds, 3) }
func (c Config) WriteTimeout() time.Duration { return seconds(c.WriteTimeoutSeconds, 3) }

// GraphCacheTTL bounds how long a cached relationship lookup is served.
func (c Config) GraphCacheTTL() time.Duration { return seconds(c.GraphCacheTTLSeconds, 60) }

// FromCentralConfig converts central config.RedisConfig to package Config.
// Unset numeric fields fall back to DefaultConfig.
func FromCentralConfig(c config.RedisConfig) Config {
	def := DefaultConfig()
	pick := func(v, d int) int {
		if v > 0 {
			return v
		}
		return d
	}
	return Config{
		Addr:                 c.Addr,
		DB:                   c.DB,
		Username:             c.Username,
		Password:             c.Password,
		PoolSize:             pick(c.PoolSize, def.PoolSize),
		MinIdleConns:         pick(c.MinIdleConns, def.MinIdleConns),
		DialTimeoutSeconds:   pick(c.DialTimeoutSeconds, def.DialTimeoutSeconds),
		ReadTimeoutSeconds:   pick(c.ReadTimeoutSeconds, def.ReadTimeoutSeconds),
		WriteTimeoutSeconds:  pick(c.WriteTimeoutSeconds, def.WriteTimeoutSeconds),
		GraphCacheTTLSeconds: pick(c.GraphCacheTTLSeconds, def.GraphCacheTTLSeconds),
	}
}
