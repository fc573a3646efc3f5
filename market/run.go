// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package market

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

// Run wires and serves the market data tool server. It blocks until
// SIGINT or SIGTERM, then drains in-flight requests.
func Run() {
	log := logger.New("mcp-market")
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
		Name:        "mcp-market",
		JWTSecret:   cfg.JWTSecret,
		RateLimiter: limiter,
		Logger:      log,
	}, BuildRegistry(NewStore()))

	srv.SetReady(true)
	if err := srv.ListenAndServe(ctx, cfg.Port); err != nil {
		log.ErrorWithErr("", "", "tool server exited", err, nil)
		os.Exit(1)
	}
}
