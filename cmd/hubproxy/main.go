// Команда hubproxy - прокси листинга плагинов. Адрес каталога берется из API_URL.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"hubgateway/logger"
	"hubgateway/monitoring"
	"hubgateway/proxy"
)

func main() {
	config := proxy.FromEnv()

	var (
		logLevel    string
		metricsAddr string
	)
	flag.StringVar(&config.ListenAddress, "listen", config.ListenAddress, "listen address")
	flag.DurationVar(&config.Timeout, "timeout", config.Timeout, "upstream request timeout")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&metricsAddr, "metrics-listen", "", "metrics server listen address, empty disables metrics")
	flag.Parse()

	if !logger.IsValidLevel(logLevel) {
		log.Fatalf("invalid log level: %s", logLevel)
	}
	logger.SetGlobalLevel(logger.ParseLogLevel(logLevel))

	monitorConfig := monitoring.DefaultConfig()
	monitorConfig.Enabled = metricsAddr != ""
	if metricsAddr != "" {
		monitorConfig.ListenAddress = metricsAddr
	}
	monitor, err := monitoring.New(monitorConfig)
	if err != nil {
		log.Fatalf("init monitoring: %v", err)
	}

	p, err := proxy.New(config, proxy.NewMetrics(monitor.Registry()))
	if err != nil {
		log.Fatalf("init proxy: %v", err)
	}

	ln, err := net.Listen("tcp", config.ListenAddress)
	if err != nil {
		log.Fatalf("listen %s: %v", config.ListenAddress, err)
	}

	srv := &http.Server{
		Handler:           p,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := monitor.Start(); err != nil {
		log.Fatalf("start monitoring: %v", err)
	}

	go func() {
		logger.Info("hubproxy listening on %s, upstream=%s", config.ListenAddress, p.Upstream())
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	monitor.SetShuttingDown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown: %v", err)
	}
	_ = monitor.Stop(shutdownCtx)
}
