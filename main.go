package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hubgateway/apigw"
	"hubgateway/catalog"
	"hubgateway/featureflag"
	"hubgateway/handlers"
	"hubgateway/logger"
	"hubgateway/monitoring"
	"hubgateway/query"
)

// application связывает модули BFF-шлюза
type application struct {
	config  *AppConfig
	monitor *monitoring.Monitor
	client  *catalog.Client
	cache   *query.Orchestrator
	flags   *featureflag.Store
	warmer  *query.Warmer
	gateway *apigw.Gateway
}

// newApplication создает все модули по конфигурации. Метрики модулей
// регистрируются в реестре монитора.
func newApplication(ctx context.Context, config *AppConfig) (*application, error) {
	monitor, err := monitoring.New(&config.Monitoring)
	if err != nil {
		return nil, fmt.Errorf("failed to create monitoring module: %w", err)
	}
	reg := monitor.Registry()

	client, err := catalog.NewClient(&config.Upstream, catalog.NewMetrics(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}

	cache, err := query.New(&config.Query, query.NewMetrics(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to create query orchestrator: %w", err)
	}

	source, err := featureflag.NewSource(ctx, &config.FeatureFlags)
	if err != nil {
		return nil, fmt.Errorf("failed to create feature flag source: %w", err)
	}
	flags := featureflag.NewStore(source, config.FeatureFlags.Environment)
	if err := flags.Refresh(ctx); err != nil {
		// Без флагов все функции считаются выключенными
		logger.Warn("Starting without feature flags: %v", err)
	}
	monitor.AddCheck(monitoring.Check{
		Name: "featureflags",
		Fn: func(ctx context.Context) error {
			loadedAt, err := flags.Status()
			if loadedAt.IsZero() {
				if err != nil {
					return err
				}
				return errors.New("feature flags not loaded")
			}
			return nil
		},
	})

	pages, err := config.PageMatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to build page metadata registry: %w", err)
	}

	gateway := apigw.New(config.ToAPIGatewayConfig(), apigw.NewMetrics(reg))
	gateway.Use(apigw.FeatureFlags(flags))
	if err := gateway.Register(handlers.New(client, cache, pages).Routes()...); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	return &application{
		config:  config,
		monitor: monitor,
		client:  client,
		cache:   cache,
		flags:   flags,
		warmer:  query.NewWarmer(cache, client, config.Query.WarmupInterval),
		gateway: gateway,
	}, nil
}

// runBackground запускает обновление флагов, прогрев и сборку кэша до отмены ctx
func (a *application) runBackground(ctx context.Context) {
	go a.flags.Run(ctx, a.config.FeatureFlags.RefreshInterval)
	go a.warmer.Run(ctx)
	go a.cache.RunGC(ctx)
}

func main() {
	// Парсим аргументы командной строки
	var (
		configFile     = flag.String("config", "", "Configuration file path (YAML)")
		listenAddr     = flag.String("listen", "", "Listen address (overrides config)")
		tlsCert        = flag.String("tls-cert", "", "TLS certificate file (overrides config)")
		tlsKey         = flag.String("tls-key", "", "TLS key file (overrides config)")
		readTimeout    = flag.Duration("read-timeout", 0, "Read timeout (overrides config)")
		writeTimeout   = flag.Duration("write-timeout", 0, "Write timeout (overrides config)")
		upstreamURL    = flag.String("upstream", "", "Catalog base URL (overrides config)")
		environment    = flag.String("environment", "", "Feature flag environment (overrides config)")
		logLevel       = flag.String("log-level", "", "Log level (debug, info, warn, error) (overrides config)")
		metricsAddr    = flag.String("metrics-listen", "", "Metrics server listen address (overrides config)")
		disableMetrics = flag.Bool("disable-metrics", false, "Disable metrics collection (overrides config)")
		writeDefaults  = flag.String("write-default-config", "", "Write default configuration to file and exit")
	)
	flag.Parse()

	if *writeDefaults != "" {
		if err := DefaultAppConfig().SaveConfig(*writeDefaults); err != nil {
			log.Fatalf("Failed to write default configuration: %v", err)
		}
		logger.Info("Default configuration written to %s", *writeDefaults)
		return
	}

	// Загружаем конфигурацию
	config := DefaultAppConfig()
	if *configFile != "" {
		logger.Info("Loading configuration from file: %s", *configFile)
		var err error
		config, err = LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		logger.Info("Configuration loaded successfully")
	} else {
		logger.Warn("Config file not provided, using defaults")
	}

	// Применяем переопределения из командной строки
	applyCommandLineOverrides(config,
		*listenAddr, *tlsCert, *tlsKey, *readTimeout, *writeTimeout,
		*upstreamURL, *environment, *logLevel, *metricsAddr, *disableMetrics)

	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Устанавливаем уровень логирования
	level := logger.ParseLogLevel(config.Logging.Level)
	logger.SetGlobalLevel(level)

	logger.Info("Hub gateway starting...")
	logger.Info("Log level: %s", level.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := newApplication(ctx, config)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	if err := app.monitor.Start(); err != nil {
		log.Fatalf("Failed to start monitoring module: %v", err)
	}

	gatewayConfig := config.ToAPIGatewayConfig()
	logger.Info("Configuration:")
	logger.Info("  Listen Address: %s", gatewayConfig.ListenAddress)
	logger.Info("  Upstream: %s", app.client.BaseURL())
	logger.Info("  Feature flags: source=%s, environment=%s", config.FeatureFlags.Source, config.FeatureFlags.Environment)
	logger.Info("  Cache stale time: %v, gc time: %v", config.Query.StaleTime, config.Query.GCTime)
	if gatewayConfig.TLSCertFile != "" {
		logger.Info("  TLS Enabled: Yes")
		logger.Info("  TLS Cert: %s", gatewayConfig.TLSCertFile)
		logger.Info("  TLS Key: %s", gatewayConfig.TLSKeyFile)
	} else {
		logger.Info("  TLS Enabled: No")
	}
	for _, route := range app.gateway.Routes() {
		logger.Debug("  Route: %s %s", route.Method, route.Pattern)
	}

	app.runBackground(ctx)

	// Настраиваем graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Запускаем API Gateway в отдельной горутине
	go func() {
		if err := app.gateway.Start(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	logger.Info("Hub gateway started successfully")
	if app.monitor.IsEnabled() {
		logger.Info("Metrics available at: %s%s", config.Monitoring.ListenAddress, config.Monitoring.MetricsPath)
	}

	// Ждем сигнал для остановки
	sig := <-sigChan
	logger.Info("Received signal %v, shutting down...", sig)

	// Балансировщик перестает направлять трафик до остановки сервера
	app.monitor.SetShuttingDown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Останавливаем API Gateway
	if err := app.gateway.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping API Gateway: %v", err)
	}

	// Останавливаем мониторинг
	if err := app.monitor.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping monitoring: %v", err)
	}

	logger.Info("Hub gateway stopped")
}

// applyCommandLineOverrides применяет переопределения из командной строки
func applyCommandLineOverrides(config *AppConfig,
	listenAddr, tlsCert, tlsKey string,
	readTimeout, writeTimeout time.Duration,
	upstreamURL, environment, logLevel, metricsAddr string, disableMetrics bool) {

	// Переопределения сервера
	if listenAddr != "" {
		config.Server.ListenAddress = listenAddr
		logger.Debug("Override: server.listen_address = %s", listenAddr)
	}

	if tlsCert != "" {
		config.Server.TLSCertFile = tlsCert
		logger.Debug("Override: server.tls_cert_file = %s", tlsCert)
	}

	if tlsKey != "" {
		config.Server.TLSKeyFile = tlsKey
		logger.Debug("Override: server.tls_key_file = %s", tlsKey)
	}

	if readTimeout > 0 {
		config.Server.ReadTimeout = readTimeout
		logger.Debug("Override: server.read_timeout = %v", readTimeout)
	}

	if writeTimeout > 0 {
		config.Server.WriteTimeout = writeTimeout
		logger.Debug("Override: server.write_timeout = %v", writeTimeout)
	}

	// Переопределения каталога и флагов
	if upstreamURL != "" {
		config.Upstream.BaseURL = upstreamURL
		logger.Debug("Override: upstream.base_url = %s", upstreamURL)
	}

	if environment != "" {
		config.FeatureFlags.Environment = environment
		logger.Debug("Override: feature_flags.environment = %s", environment)
	}

	// Переопределения логирования
	if logLevel != "" {
		config.Logging.Level = logLevel
		logger.Debug("Override: logging.level = %s", logLevel)
	}

	// Переопределения мониторинга
	if metricsAddr != "" {
		config.Monitoring.ListenAddress = metricsAddr
		logger.Debug("Override: monitoring.listen_address = %s", metricsAddr)
	}

	if disableMetrics {
		config.Monitoring.Enabled = false
		logger.Debug("Override: monitoring.enabled = false")
	}
}
