// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package registry

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/config"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/logger"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/secrets"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/storage"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/toolserver"
)

const rateLimitPerMinute = 300

// Run wires and serves the contract registry tool server. With a Mongo
// URI configured it persists to Cosmos/MongoDB and seeds the sample
// book on first start; without one it serves a seeded in-memory store.
// It blocks until SIGINT or SIGTERM.
func Run() {
	log := logger.New("mcp-contracts")
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

	var store Store
	if cfg.MongoURI != "" {
		client, err := storage.Dial(ctx, cfg.MongoURI)
		if err != nil {
			log.ErrorWithErr("", "", "failed to connect to mongodb", err, nil)
			os.Exit(1)
		}
		defer client.Disconnect(context.Background())

		mongoStore, err := NewMongoStore(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			log.ErrorWithErr("", "", "failed to initialize contract store", err, nil)
			os.Exit(1)
		}
		if err := mongoStore.Seed(ctx); err != nil {
			log.ErrorWithErr("", "", "failed to seed contract book", err, nil)
			os.Exit(1)
		}
		store = mongoStore
		log.Info("", "", "contract store ready", map[string]interface{}{"backend": "mongodb", "database": cfg.MongoDatabase})
	} else {
		store = NewSeededStore()
		log.Info("", "", "contract store ready", map[string]interface{}{"backend": "memory"})
	}

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
		Name:        "mcp-contracts",
		JWTSecret:   cfg.JWTSecret,
		RateLimiter: limiter,
		Logger:      log,
	}, BuildRegistry(store))

	srv.SetReady(true)
	if err := srv.ListenAndServe(ctx, cfg.Port); err != nil {
		log.ErrorWithErr("", "", "tool server exited", err, nil)
		os.Exit(1)
	}
}
