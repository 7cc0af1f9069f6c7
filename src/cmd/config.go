package cmd

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration values for commands.
type Config struct {
	// Port is the TCP port the proxy listens on.
	Port string

	// UpstreamServers is an ordered, comma-separated list of
	// "http://host:port" entries.
	UpstreamServers string

	// ConnectTimeout bounds upstream connection establishment.
	ConnectTimeout time.Duration

	// ResponseTimeout bounds the wait for upstream response headers.
	ResponseTimeout time.Duration

	// IdleTimeout bounds idle keep-alive client connections.
	IdleTimeout time.Duration

	// ReadHeaderTimeout bounds how long a client may take to send request
	// headers.
	ReadHeaderTimeout time.Duration

	// HealthFailureThreshold is the number of consecutive failures after
	// which an upstream is skipped. Zero disables health tracking.
	HealthFailureThreshold int

	// HealthCooldown is how long a failing upstream is skipped before it is
	// probed again.
	HealthCooldown time.Duration

	// RedisAddress, when set, shares upstream health state between proxy
	// instances via redis.
	RedisAddress string

	// ProxyProtocol enables PROXY protocol parsing on the listener.
	ProxyProtocol bool

	StatsDAddress  string
	StatsDPrefix   string
	StatsDInterval time.Duration
}

// GetConfigFromEnvironment creates a Config object based on the shell
// environment.
func GetConfigFromEnvironment() *Config {
	return &Config{
		Port:            env("LISTEN_PORT", "8080"),
		UpstreamServers: env("UPSTREAM_SERVERS", "http://localhost:8080"),
		ConnectTimeout:  envDuration("CONNECT_TIMEOUT", 5*time.Second),
		ResponseTimeout: envDuration("RESPONSE_TIMEOUT", 30*time.Second),
		IdleTimeout:     envDuration("IDLE_TIMEOUT", 60*time.Second),

		ReadHeaderTimeout: envDuration("READ_HEADER_TIMEOUT", 10*time.Second),

		HealthFailureThreshold: int(envInt("HEALTH_FAILURE_THRESHOLD", 0)),
		HealthCooldown:         envDuration("HEALTH_COOLDOWN", 30*time.Second),
		RedisAddress:           env("REDIS_ADDRESS", ""),

		ProxyProtocol: envBool("PROXY_PROTOCOL", false),

		StatsDAddress:  env("STATSD_ADDRESS", ""),
		StatsDPrefix:   env("STATSD_PREFIX", "riffy."),
		StatsDInterval: envDuration("STATSD_INTERVAL", 0),
	}
}

func env(key string, def string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return def
}

func envInt(key string, def int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		i, _ := strconv.ParseInt(value, 10, 64)
		return i
	}

	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}

	return def
}

func envBool(key string, def bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		b, _ := strconv.ParseBool(value)
		return b
	}

	return def
}
