package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"

	"github.com/signalsfoundry/emfield/internal/columnar"
	"github.com/signalsfoundry/emfield/internal/logging"
	"github.com/signalsfoundry/emfield/internal/observability"
	"github.com/signalsfoundry/emfield/internal/raster"
	"github.com/signalsfoundry/emfield/internal/rest"
	"github.com/signalsfoundry/emfield/internal/service"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML server config file")
	listenAddr := flag.String("listen-addr", "", "TCP address the API server listens on (overrides config)")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := rest.LoadServerConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load config", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}

	collector, err := observability.NewComputeCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}

	svc := service.New(
		service.Config{CacheSize: cfg.CacheSize},
		log,
		collector,
		raster.NewGeoTIFFWriter(),
		columnar.NewParquetTopKWriter(),
	)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: rest.NewServer(svc, log, collector).Handler(),
	}

	log.Info(ctx, "starting API server", logging.String("addr", cfg.ListenAddr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "API server exited", logging.String("error", err.Error()))
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-stopCtx.Done()

	log.Info(ctx, "shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "shutdown incomplete", logging.String("error", err.Error()))
	}
	observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
}
