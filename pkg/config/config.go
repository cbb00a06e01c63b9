// Package config loads detector and service settings from defaults, an optional
// YAML file and VPNSENSE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gokaycavdar/go-vpnsense/pkg/engine"
	"github.com/gokaycavdar/go-vpnsense/pkg/httpclient"
	"github.com/gokaycavdar/go-vpnsense/pkg/probes"
	"github.com/gokaycavdar/go-vpnsense/pkg/storage"
)

// History backends.
const (
	HistoryNone   = "none"
	HistoryMemory = "memory"
	HistoryRedis  = "redis"
)

type Config struct {
	Threshold int    `yaml:"threshold"`
	LogLevel  string `yaml:"log_level"`

	Probes  ProbesConfig  `yaml:"probes"`
	HTTP    HTTPConfig    `yaml:"http"`
	Server  ServerConfig  `yaml:"server"`
	GeoIP   GeoIPConfig   `yaml:"geoip"`
	History HistoryConfig `yaml:"history"`

	Reputation ReputationConfig `yaml:"reputation"`
}

type ProbesConfig struct {
	// DefaultCeiling bounds any probe without its own ceiling.
	DefaultCeiling time.Duration `yaml:"default_ceiling"`

	WebRTC  WebRTCConfig  `yaml:"webrtc"`
	Latency LatencyConfig `yaml:"latency"`
	Network NetworkConfig `yaml:"network"`
}

type WebRTCConfig struct {
	// Enabled=false makes host mode report the capability as absent.
	Enabled     bool          `yaml:"enabled"`
	STUNServers []string      `yaml:"stun_servers"`
	Window      time.Duration `yaml:"window"`
}

type LatencyConfig struct {
	URLs        []string      `yaml:"urls"`
	Rounds      int           `yaml:"rounds"`
	PerRound    int           `yaml:"per_round"`
	CallTimeout time.Duration `yaml:"call_timeout"`
	Pause       time.Duration `yaml:"pause"`
}

type NetworkConfig struct {
	ReachabilityURLs []string      `yaml:"reachability_urls"`
	EchoURLs         []string      `yaml:"echo_urls"`
	CallTimeout      time.Duration `yaml:"call_timeout"`
	SlowAfter        time.Duration `yaml:"slow_after"`
}

type HTTPConfig struct {
	UserAgent string `yaml:"user_agent"`
	Proxy     string `yaml:"proxy"`
	Insecure  bool   `yaml:"insecure"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// GeoIPConfig points at MaxMind databases. Either path may be empty.
type GeoIPConfig struct {
	CityDB string `yaml:"city_db"`
	ASNDB  string `yaml:"asn_db"`
}

// ReputationConfig points at an optional known-proxy list (IPsum, FireHOL, Tor exits).
type ReputationConfig struct {
	ProxyList string `yaml:"proxy_list"`
}

type HistoryConfig struct {
	Backend  string `yaml:"backend"`
	Capacity int    `yaml:"capacity"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisKey      string `yaml:"redis_key"`
}

// Default returns the built-in configuration.
func Default() Config {
	latency := probes.NewLatencyProbe(nil)
	network := probes.NewNetworkProbe(nil)

	return Config{
		Threshold: engine.DefaultThreshold,
		LogLevel:  "info",
		Probes: ProbesConfig{
			DefaultCeiling: engine.DefaultCeiling,
			WebRTC: WebRTCConfig{
				Enabled:     true,
				STUNServers: append([]string(nil), probes.DefaultSTUNServers...),
				Window:      probes.DefaultCollectionWindow,
			},
			Latency: LatencyConfig{
				URLs:        append([]string(nil), latency.URLs...),
				Rounds:      latency.Rounds,
				PerRound:    latency.PerRound,
				CallTimeout: latency.CallTimeout,
				Pause:       latency.Pause,
			},
			Network: NetworkConfig{
				ReachabilityURLs: append([]string(nil), network.ReachabilityURLs...),
				EchoURLs:         append([]string(nil), network.EchoURLs...),
				CallTimeout:      network.CallTimeout,
				SlowAfter:        network.SlowAfter,
			},
		},
		HTTP:   HTTPConfig{UserAgent: httpclient.DefaultUserAgent},
		Server: ServerConfig{Addr: ":8080"},
		History: HistoryConfig{
			Backend:  HistoryMemory,
			Capacity: storage.DefaultCapacity,
			RedisKey: storage.DefaultRedisKey,
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("VPNSENSE_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("VPNSENSE_THRESHOLD: %w", err)
		}
		c.Threshold = n
	}
	c.LogLevel = envOr(getenv, "VPNSENSE_LOG_LEVEL", c.LogLevel)
	c.Server.Addr = envOr(getenv, "VPNSENSE_ADDR", c.Server.Addr)
	c.History.RedisAddr = envOr(getenv, "VPNSENSE_REDIS_ADDR", c.History.RedisAddr)
	c.History.RedisPassword = envOr(getenv, "VPNSENSE_REDIS_PASSWORD", c.History.RedisPassword)
	return nil
}

// Validate checks every setting and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Threshold > 0, "threshold must be positive, got %d", c.Threshold)
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}

	// Host mode fingerprints this user agent.
	check(!probes.HasVPNKeyword(c.HTTP.UserAgent), "http.user_agent %q would be scored as a vpn client", c.HTTP.UserAgent)

	p := c.Probes
	check(p.DefaultCeiling > 0, "probes.default_ceiling must be positive")
	check(p.WebRTC.Window > 0, "probes.webrtc.window must be positive")
	check(len(p.Latency.URLs) > 0, "probes.latency.urls must not be empty")
	check(p.Latency.Rounds > 0, "probes.latency.rounds must be positive")
	check(p.Latency.PerRound > 0, "probes.latency.per_round must be positive")
	check(p.Latency.CallTimeout > 0, "probes.latency.call_timeout must be positive")
	check(p.Latency.Pause >= 0, "probes.latency.pause must not be negative")
	check(p.Network.CallTimeout > 0, "probes.network.call_timeout must be positive")
	check(p.Network.SlowAfter > 0, "probes.network.slow_after must be positive")

	switch c.History.Backend {
	case HistoryNone, HistoryMemory:
	case HistoryRedis:
		check(c.History.RedisAddr != "", "history.redis_addr is required for the redis backend")
	default:
		errs = append(errs, fmt.Errorf("unknown history backend %q", c.History.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// EngineConfig returns the detector settings.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{Threshold: c.Threshold, DefaultCeiling: c.Probes.DefaultCeiling}
}
