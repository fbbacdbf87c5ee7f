package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "DAISI_GW"

// ServerConfig holds server-related configurations.
// Note: Fields should be exported (start with uppercase) to be unmarshalled by Viper.
type ServerConfig struct {
	HTTPPort int `mapstructure:"http_port"`
}

// LogConfig holds logging-related configurations.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// RedisConfig holds Redis-related configurations, used when the cache backend
// is "redis".
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"` // Optional
	DB       int    `mapstructure:"db"`       // Optional
}

// NATSConfig holds NATS-related configurations for the mutation event
// publisher. An empty URL disables event publishing.
type NATSConfig struct {
	URL        string `mapstructure:"url"`
	StreamName string `mapstructure:"stream_name"`
	Subject    string `mapstructure:"subject_prefix"`
}

// CacheConfig holds the cache-aside policy knobs.
type CacheConfig struct {
	// Backend selects the CacheStore adapter: "http" (portal cache service)
	// or "redis" (direct connection). Defaults to "http".
	Backend string `mapstructure:"backend"`

	DefaultTTLSeconds int `mapstructure:"default_ttl_seconds"` // baseline TTL for composed payloads
	BusyTTLSeconds    int `mapstructure:"busy_ttl_seconds"`    // TTL for post-shaped payloads with comments
}

// DownstreamConfig holds the per-call timeouts for downstream traffic.
type DownstreamConfig struct {
	RequestTimeoutMs    int `mapstructure:"request_timeout_ms"`
	ProbeTimeoutMs      int `mapstructure:"probe_timeout_ms"`
	EnrichmentTimeoutMs int `mapstructure:"enrichment_timeout_ms"`
}

// ServiceEndpoint describes one downstream service's address and liveness path.
type ServiceEndpoint struct {
	BaseURL    string `mapstructure:"base_url"`
	HealthPath string `mapstructure:"health_path"`
}

// ServicesConfig maps each logical downstream service to its endpoint. The
// set is static configuration, read once at startup into the service registry.
type ServicesConfig struct {
	Auth    ServiceEndpoint `mapstructure:"auth"`
	Profile ServiceEndpoint `mapstructure:"profile"`
	Posts   ServiceEndpoint `mapstructure:"posts"`
	Forum   ServiceEndpoint `mapstructure:"forum"`
	Gallery ServiceEndpoint `mapstructure:"gallery"`
	Cache   ServiceEndpoint `mapstructure:"cache"`
}

// AppConfig holds application-specific configurations.
type AppConfig struct {
	ServiceName            string `mapstructure:"service_name"`
	Version                string `mapstructure:"version"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	DefaultPageSize        int    `mapstructure:"default_page_size"`
	MaxPageSize            int    `mapstructure:"max_page_size"`
}

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Downstream DownstreamConfig `mapstructure:"downstream"`
	Services   ServicesConfig   `mapstructure:"services"`
	App        AppConfig        `mapstructure:"app"`
}

// Provider defines an interface for accessing application configuration.
// This allows for easy mocking in tests and decouples the app from Viper.
type Provider interface {
	Get() *Config
}

// viperProvider implements the Provider interface using Viper.
type viperProvider struct {
	config *Config
	logger *zap.Logger // Using zap.Logger directly for config internal logging, not domain.Logger to avoid circular deps
}

// NewViperProvider creates and initializes a new configuration provider using Viper.
// It loads configuration from file and environment variables, and sets up hot-reloading
// via SIGHUP and file-watch events. appCtx is the application lifecycle context used
// for graceful shutdown of the reload goroutine.
func NewViperProvider(appCtx context.Context, logger *zap.Logger) (Provider, error) {
	cfg := &Config{}
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(getEnv("VIPER_CONFIG_NAME", "config"))
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnv("VIPER_CONFIG_PATH", "/app/config"))
	v.AddConfigPath(".") // Also look in current directory for local dev

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")) // e.g., server.http_port becomes SERVER_HTTP_PORT

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Warn("Config file not found; relying on defaults and environment variables", zap.Error(err))
		} else {
			logger.Error("Failed to read config file", zap.Error(err))
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		logger.Error("Failed to unmarshal config", zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	p := &viperProvider{
		config: cfg,
		logger: logger,
	}

	// SIGHUP triggers a config reload, matching the deployment's reload hook.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in SIGHUP handler goroutine",
					zap.String("goroutine_name", "SIGHUPConfigReloader"),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		for {
			select {
			case sig := <-sigChan:
				p.logger.Info("SIGHUP received, attempting to reload configuration...", zap.String("signal", sig.String()))
				if err := v.ReadInConfig(); err != nil {
					p.logger.Error("Failed to re-read config file on SIGHUP", zap.Error(err))
				} else {
					newCfg := &Config{}
					if err := v.Unmarshal(newCfg); err != nil {
						p.logger.Error("Failed to unmarshal re-read config on SIGHUP", zap.Error(err))
					} else {
						p.config = newCfg
						p.logger.Info("Configuration reloaded successfully via SIGHUP")
					}
				}
			case <-appCtx.Done():
				p.logger.Info("SIGHUPConfigReloader goroutine shutting down due to context cancellation.")
				return
			}
		}
	}()

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in OnConfigChange callback",
					zap.String("event_name", e.Name),
					zap.String("event_op", e.Op.String()),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		p.logger.Info("Config file changed", zap.String("name", e.Name), zap.String("op", e.Op.String()))
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			p.logger.Error("Failed to unmarshal config on file change event", zap.Error(err))
		} else {
			p.config = newCfg
			p.logger.Info("Configuration reloaded successfully via file change event")
		}
	})

	p.logger.Info("Configuration loaded successfully", zap.String("config_file_used", v.ConfigFileUsed()))

	return p, nil
}

// Get returns the current configuration.
func (p *viperProvider) Get() *Config {
	return p.config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8000)
	v.SetDefault("log.level", "info")
	v.SetDefault("cache.backend", "http")
	v.SetDefault("cache.default_ttl_seconds", 300)
	v.SetDefault("cache.busy_ttl_seconds", 10)
	v.SetDefault("downstream.request_timeout_ms", 5000)
	v.SetDefault("downstream.probe_timeout_ms", 1000)
	v.SetDefault("downstream.enrichment_timeout_ms", 2000)
	v.SetDefault("app.service_name", "daisi-gateway-service")
	v.SetDefault("app.shutdown_timeout_seconds", 30)
	v.SetDefault("app.default_page_size", 20)
	v.SetDefault("app.max_page_size", 100)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
