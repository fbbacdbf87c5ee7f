package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/config"
	apphttp "gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/http"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/httpcache"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/httpclient"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/logger"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/middleware"
	appnats "gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/nats"
	appredis "gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/redis"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/application"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
)

// InitialZapLoggerProvider provides a basic *zap.Logger for the config layer,
// which loads before the real logger can be configured.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		zapLogger, err = zap.NewDevelopment()
		if err != nil {
			zapLogger = zap.NewExample()
			fmt.Fprintf(os.Stderr, "Failed to create initial zap logger, falling back to example: %v\n", err)
		}
	}
	cleanup := func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return zapLogger, cleanup, nil
}

// App holds the assembled gateway: configuration, logging, and the HTTP
// server carrying the full route tree.
type App struct {
	configProvider config.Provider
	logger         domain.Logger
	httpServer     *http.Server
}

// NewApp is the constructor for App, used by Wire.
func NewApp(cfgProvider config.Provider, appLogger domain.Logger, server *http.Server) *App {
	return &App{
		configProvider: cfgProvider,
		logger:         appLogger,
		httpServer:     server,
	}
}

// ConfigProvider provides the application configuration with hot reload.
func ConfigProvider(appCtx context.Context, zapLogger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, zapLogger)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	appCfg := cfgProvider.Get()
	return logger.NewZapAdapter(cfgProvider, appCfg.App.ServiceName)
}

// ServiceRegistryProvider builds the immutable downstream service registry
// from configuration. Services without a configured base URL are left out of
// the registry so requests against them fail closed.
func ServiceRegistryProvider(cfgProvider config.Provider) *domain.ServiceRegistry {
	services := cfgProvider.Get().Services
	entries := []struct {
		name     domain.ServiceName
		endpoint config.ServiceEndpoint
	}{
		{domain.ServiceAuth, services.Auth},
		{domain.ServiceProfile, services.Profile},
		{domain.ServicePosts, services.Posts},
		{domain.ServiceForum, services.Forum},
		{domain.ServiceGallery, services.Gallery},
		{domain.ServiceCache, services.Cache},
	}
	descriptors := make([]domain.ServiceDescriptor, 0, len(entries))
	for _, entry := range entries {
		if entry.endpoint.BaseURL == "" {
			continue
		}
		descriptors = append(descriptors, domain.ServiceDescriptor{
			Name:       entry.name,
			BaseURL:    entry.endpoint.BaseURL,
			HealthPath: entry.endpoint.HealthPath,
		})
	}
	return domain.NewServiceRegistry(descriptors...)
}

// DownstreamClientProvider provides the shared HTTP client for downstream
// calls.
func DownstreamClientProvider(registry *domain.ServiceRegistry, cfgProvider config.Provider, appLogger domain.Logger) domain.DownstreamClient {
	return httpclient.NewClient(registry, cfgProvider, appLogger)
}

// HealthProberProvider provides the availability probe.
func HealthProberProvider(registry *domain.ServiceRegistry, cfgProvider config.Provider, appLogger domain.Logger) domain.HealthProber {
	return httpclient.NewProber(registry, cfgProvider, appLogger)
}

// IdentityResolverProvider provides the profile enrichment resolver.
func IdentityResolverProvider(client domain.DownstreamClient, cfgProvider config.Provider, appLogger domain.Logger) domain.IdentityResolver {
	return httpclient.NewIdentityResolverAdapter(client, cfgProvider, appLogger)
}

// CacheStoreProvider selects the cache adapter from configuration: the
// portal's HTTP cache service by default, or a direct Redis connection. The
// Redis client is only created, and only pinged, when that backend is chosen.
func CacheStoreProvider(cfgProvider config.Provider, client domain.DownstreamClient, appLogger domain.Logger) (domain.CacheStore, func(), error) {
	appCfg := cfgProvider.Get()
	switch appCfg.Cache.Backend {
	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     appCfg.Redis.Address,
			Password: appCfg.Redis.Password,
			DB:       appCfg.Redis.DB,
		})
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			appLogger.Error(context.Background(), "Failed to connect to Redis", "error", err.Error(), "address", appCfg.Redis.Address)
			return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", appCfg.Redis.Address, err)
		}
		cleanup := func() {
			redisClient.Close()
			appLogger.Info(context.Background(), "Redis connection closed")
		}
		appLogger.Info(context.Background(), "Using Redis cache backend", "address", appCfg.Redis.Address)
		return appredis.NewCacheAdapter(redisClient, appLogger), cleanup, nil
	default:
		appLogger.Info(context.Background(), "Using HTTP cache service backend")
		return httpcache.NewCacheAdapter(client, appLogger), func() {}, nil
	}
}

// EventPublisherProvider provides the NATS mutation event publisher. An
// empty NATS URL yields a disabled publisher; the gateway runs fine without
// eventing.
func EventPublisherProvider(appCtx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (domain.EventPublisher, func(), error) {
	return appnats.NewPublisherAdapter(appCtx, cfgProvider, appLogger)
}

// AuthServiceProvider provides the auth delegate.
func AuthServiceProvider(appLogger domain.Logger, client domain.DownstreamClient) *application.AuthService {
	return application.NewAuthService(appLogger, client)
}

// TokenVerifierProvider exposes the auth delegate to the route middleware.
func TokenVerifierProvider(authService *application.AuthService) middleware.TokenVerifier {
	return authService
}

// AggregatorProvider provides the orchestration core.
func AggregatorProvider(
	appLogger domain.Logger,
	cfgProvider config.Provider,
	client domain.DownstreamClient,
	prober domain.HealthProber,
	cache domain.CacheStore,
	resolver domain.IdentityResolver,
	events domain.EventPublisher,
) *application.Aggregator {
	return application.NewAggregator(appLogger, cfgProvider, client, prober, cache, resolver, events)
}

// HandlersProvider provides the HTTP handler set.
func HandlersProvider(appLogger domain.Logger, cfgProvider config.Provider, aggregator *application.Aggregator) *apphttp.Handlers {
	return apphttp.NewHandlers(appLogger, cfgProvider, aggregator)
}

// RouterProvider provides the assembled route tree.
func RouterProvider(handlers *apphttp.Handlers, verifier middleware.TokenVerifier, appLogger domain.Logger) http.Handler {
	return apphttp.NewRouter(handlers, verifier, appLogger)
}

// HTTPGracefulServerProvider provides the HTTP server configured for
// graceful shutdown.
func HTTPGracefulServerProvider(cfgProvider config.Provider, handler http.Handler) *http.Server {
	appCfg := cfgProvider.Get()
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.Server.HTTPPort),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	LoggerProvider,

	ServiceRegistryProvider,
	DownstreamClientProvider,
	HealthProberProvider,
	IdentityResolverProvider,
	CacheStoreProvider,
	EventPublisherProvider,

	AuthServiceProvider,
	TokenVerifierProvider,
	AggregatorProvider,

	HandlersProvider,
	RouterProvider,
	HTTPGracefulServerProvider,
	NewApp,
)
