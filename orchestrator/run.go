// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package orchestrator

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

// Run wires and runs the agent orchestrator: the breach detector over
// the result fanout queue, the market shock monitor, and the scheduled
// portfolio scans, all escalating to the Foundry agent. It blocks until
// SIGINT or SIGTERM.
func Run() {
	log := logger.New("orchestrator")
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

	var dedup AlertDeduper
	if cfg.RedisURL != "" {
		client, err := storage.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.ErrorWithErr("", "", "failed to connect to redis", err, nil)
			os.Exit(1)
		}
		defer client.Close()
		dedup = NewRedisDeduper(client)
	} else {
		dedup = NewMemoryDeduper()
		log.Warn("", "", "no redis url configured, alert dedup is per-process only", nil)
	}

	agent := NewFoundryClient(FoundryOptions{
		Endpoint:     cfg.FoundryEndpoint,
		APIKey:       cfg.FoundryAPIKey,
		ContractsURL: cfg.ContractsURL,
		RiskURL:      cfg.RiskURL,
		MarketURL:    cfg.MarketURL,
		Logger:       log,
	})

	detector := NewBreachDetector(
		Thresholds{FXVaR: cfg.FXVaRThreshold, IRDv01: cfg.IRDv01Threshold},
		agent,
		NewHTTPMemoWriter(cfg.ContractsURL),
		dedup,
		log,
	)
	go func() {
		if err := detector.Run(ctx, bkr); err != nil && ctx.Err() == nil {
			log.ErrorWithErr("", "", "breach detector stopped", err, nil)
		}
	}()

	monitor := NewMarketMonitor(NewHTTPSnapshotSource(cfg.MarketURL), agent, MonitorOptions{
		ShockThresholdPct: cfg.MarketShockThreshold,
		VolSpikeLimit:     cfg.VolatilitySpikeLimit,
		Interval:          cfg.MarketPollInterval,
		Logger:            log,
	})
	go monitor.Run(ctx)

	scheduler, err := NewScheduler(agent, log)
	if err != nil {
		log.ErrorWithErr("", "", "failed to build scan scheduler", err, nil)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	serveAdmin(ctx, cfg.Port, log)
}

// serveAdmin exposes health and metrics; the orchestrator has no tool
// surface of its own.
func serveAdmin(ctx context.Context, port string, log *logger.Logger) {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "service": "orchestrator"})
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
