// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package risk

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/broker"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/config"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/logger"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/secrets"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/storage"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/toolserver"
)

const rateLimitPerMinute = 300

// Run wires and serves the risk analytics tool server: job submission
// tools over HTTP, the job store, and the result consumer that applies
// worker output back onto submitted jobs. It blocks until SIGINT or
// SIGTERM.
func Run() {
	log := logger.New("mcp-risk")
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

	var store JobStore
	if cfg.MongoURI != "" {
		client, err := storage.Dial(ctx, cfg.MongoURI)
		if err != nil {
			log.ErrorWithErr("", "", "failed to connect to mongodb", err, nil)
			os.Exit(1)
		}
		defer client.Disconnect(context.Background())

		mongoStore, err := NewMongoJobStore(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			log.ErrorWithErr("", "", "failed to initialize job store", err, nil)
			os.Exit(1)
		}
		store = mongoStore
		log.Info("", "", "job store ready", map[string]interface{}{"backend": "mongodb", "database": cfg.MongoDatabase})
	} else {
		store = NewMemoryJobStore()
		log.Info("", "", "job store ready", map[string]interface{}{"backend": "memory"})
	}

	svc := NewService(store, bkr, log)
	go func() {
		if err := svc.ConsumeResults(ctx, bkr); err != nil && ctx.Err() == nil {
			log.ErrorWithErr("", "", "result consumer stopped", err, nil)
		}
	}()

	var limiter *toolserver.RateLimiter
	if cfg.RedisURL != "" {
		client, err := storage.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.ErrorWithErr("", "", "failed to connect to redis", err, nil)
			os.Exit(1)
		}
		defer client.Close()
		limiter = toolserver.NewRateLimiter(rateLimitPerMinute, client)
	} else {
		limiter = toolserver.NewRateLimiter(rateLimitPerMinute, nil)
	}

	srv := toolserver.NewServer(toolserver.Options{
		Name:        "mcp-risk",
		JWTSecret:   cfg.JWTSecret,
		RateLimiter: limiter,
		Logger:      log,
	}, BuildRegistry(svc))

	srv.SetReady(true)
	if err := srv.ListenAndServe(ctx, cfg.Port); err != nil {
		log.ErrorWithErr("", "", "tool server exited", err, nil)
		os.Exit(1)
	}
}
