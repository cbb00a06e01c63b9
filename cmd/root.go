package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gokaycavdar/go-vpnsense/pkg/config"
	"github.com/gokaycavdar/go-vpnsense/pkg/geoip"
	"github.com/gokaycavdar/go-vpnsense/pkg/logging"
	"github.com/gokaycavdar/go-vpnsense/pkg/reputation"
	"github.com/gokaycavdar/go-vpnsense/pkg/storage"
)

var (
	cfgFile  string
	logLevel string
)

// errVPNDetected makes `detect --fail-on-vpn` exit with status 2.
var errVPNDetected = errors.New("vpn detected")

var rootCmd = &cobra.Command{
	Use:           "vpnsense",
	Short:         "Heuristic VPN and proxy detection",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errVPNDetected) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	rootCmd.AddCommand(detectCmd, serveCmd)
}

// loadConfig resolves defaults, file, environment and global flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel)
}

// openGeo returns nil when no database is configured.
func openGeo(cfg config.Config) (*geoip.Service, error) {
	if cfg.GeoIP.CityDB == "" && cfg.GeoIP.ASNDB == "" {
		return nil, nil
	}
	return geoip.Open(cfg.GeoIP.CityDB, cfg.GeoIP.ASNDB)
}

// openProxyList returns nil when no list is configured.
func openProxyList(cfg config.Config, logger *zap.Logger) (*reputation.ProxyList, error) {
	if cfg.Reputation.ProxyList == "" {
		return nil, nil
	}
	l, err := reputation.Load(cfg.Reputation.ProxyList)
	if err != nil {
		return nil, err
	}
	logger.Info("proxy list loaded",
		zap.String("path", cfg.Reputation.ProxyList),
		zap.Int("prefixes", l.Count()))
	return l, nil
}

// openHistory returns the configured store and a function releasing it.
func openHistory(ctx context.Context, cfg config.Config) (storage.HistoryStore, func(), error) {
	h := cfg.History
	switch h.Backend {
	case config.HistoryMemory:
		return storage.NewMemoryStore(h.Capacity), func() {}, nil
	case config.HistoryRedis:
		client, err := storage.DialRedis(ctx, h.RedisAddr, h.RedisPassword, h.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedisStore(client, h.RedisKey, h.Capacity), func() { _ = client.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}
