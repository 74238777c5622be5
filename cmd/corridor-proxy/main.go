// Command corridor-proxy serves the anomaly-corridor HTTP API: it wraps
// an upstream Grafana-fronted Prometheus DataSource with a persistent
// DFT-based corridor cache and re-emits query_range results annotated
// with corridor bounds and anomaly concern scores.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/vasiliyffedorov/corridor-proxy/internal/cacheorch"
	"github.com/vasiliyffedorov/corridor-proxy/internal/datasource"
	"github.com/vasiliyffedorov/corridor-proxy/internal/persistcache"
	v1 "github.com/vasiliyffedorov/corridor-proxy/pkg/api/v1"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/config"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/middleware"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	cache, err := persistcache.Open(cfg.Cache.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("opening persistent cache")
	}
	defer cache.Close()

	ds := datasource.New(datasource.Options{
		BaseURL:            cfg.UpstreamURL,
		Timeout:            cfg.HTTPTimeout,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		BearerToken:        cfg.BearerToken,
		CacheTTL:           cfg.DataSourceCacheTTL,
	}, log)
	if ds != nil {
		defer ds.Close()
	} else {
		log.Warn("no upstream_url configured: query_range and label discovery will return 502 until one is set")
	}

	orch := cacheorch.New(cache, log)
	handler := v1.NewHandler(orch, ds, cfg, log)

	router := mux.NewRouter()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(log))
	handler.RegisterRoutes(router)

	apiServer := &http.Server{
		Addr:         fmtAddr(cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	metricsRouter := http.NewServeMux()
	metricsRouter.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmtAddr(cfg.MetricsPort),
		Handler: metricsRouter,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("addr", apiServer.Addr).Info("starting corridor proxy API server")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("API server failed")
		}
	}()
	go func() {
		log.WithField("addr", metricsServer.Addr).Info("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("metrics server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("API server shutdown")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("metrics server shutdown")
	}
}

func fmtAddr(port int) string {
	return fmt.Sprintf(":%d", port)
}
