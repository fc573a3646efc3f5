// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/broker"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/config"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/logger"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/secrets"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/storage"
)

// Run wires and runs the risk computation worker. It consumes jobs from
// the broker, prices them against the contract and market tool servers,
// and serves /health and /metrics for the cluster probes and the KEDA
// scaler. It blocks until SIGINT or SIGTERM.
func Run() {
	log := logger.New("risk-worker")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.ErrorWithErr("", "", "failed to load configuration", err, nil)
		os.Exit(1)
	}
	resolver, err := secrets.ForConfig(cfg)
	if err != nil {
		log.ErrorWithErr("", "", "failed to build secret resolver", err, nil)
		os.Exit(1)
	}
	if err := secrets.Apply(ctx, resolver, cfg); err != nil {
		log.ErrorWithErr("", "", "failed to resolve secrets", err, nil)
		os.Exit(1)
	}

	var bkr broker.Broker
	if cfg.BrokerURL != "" {
		amqpBroker, err := broker.NewAMQPBroker(broker.AMQPConfig{URL: cfg.BrokerURL})
		if err != nil {
			log.ErrorWithErr("", "", "failed to connect to rabbitmq", err, nil)
			os.Exit(1)
		}
		bkr = amqpBroker
	} else {
		bkr = broker.NewMemoryBroker()
		log.Warn("", "", "no broker url configured, using in-process broker", nil)
	}
	defer bkr.Close()
	if err := bkr.DeclareTopology(ctx); err != nil {
		log.ErrorWithErr("", "", "failed to declare broker topology", err, nil)
		os.Exit(1)
	}

	var guard IdempotencyGuard
	if cfg.RedisURL != "" {
		client, err := storage.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.ErrorWithErr("", "", "failed to connect to redis", err, nil)
			os.Exit(1)
		}
		defer client.Close()
		guard = NewRedisGuard(client)
	} else {
		guard = NewMemoryGuard()
		log.Warn("", "", "no redis url configured, idempotency is per-process only", nil)
	}

	engine := NewEngine(
		NewHTTPContractSource(cfg.ContractsURL),
		NewHTTPMarketSource(cfg.MarketURL),
	)
	w := New(bkr, engine, Options{
		Concurrency: cfg.WorkerConcurrency,
		MaxAttempts: cfg.MaxJobAttempts,
		Guard:       guard,
		Logger:      log,
	})

	go serveAdmin(ctx, cfg.Port, log)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.ErrorWithErr("", "", "worker exited", err, nil)
		os.Exit(1)
	}
	log.Info("", "", "worker stopped", nil)
}

// serveAdmin exposes health and metrics without the tool server surface.
func serveAdmin(ctx context.Context, port string, log *logger.Logger) {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "service": "risk-worker"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("", "", "admin server listening", map[string]interface{}{"port": port})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.ErrorWithErr("", "", "admin server exited", err, nil)
	}
}
