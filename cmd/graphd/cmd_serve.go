// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/AleutianGraph/pkg/logging"
	"github.com/AleutianAI/AleutianGraph/services/graphd/config"
	"github.com/AleutianAI/AleutianGraph/services/graphd/dispatch"
	"github.com/AleutianAI/AleutianGraph/services/graphd/server"
	"github.com/AleutianAI/AleutianGraph/services/graphd/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const telemetryShutdownTimeout = 5 * time.Second

// runServe starts the TCP server, the admin surface and, with
// --watch-config, the config watcher. It returns after SIGINT/SIGTERM once
// every session has said goodbye.
func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyServeFlags(cmd.Flags(), &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.LogDir,
		Service: "graphd",
		JSON:    cfg.Logging.JSON,
	})
	defer logger.Close()

	if level == logging.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	dispatcher := dispatch.New(logger.With("component", "dispatch"))
	srv := server.New(server.Config{
		ListenAddress: cfg.Server.ListenAddress,
		IdleTimeout:   cfg.Server.IdleTimeout,
		MaxSessions:   cfg.Server.MaxSessions,
		ReuseAddress:  cfg.Server.ReuseAddress,
	}, dispatcher, logger.With("component", "server"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := srv.ListenAndServe(gctx)
		if errors.Is(err, server.ErrServerClosed) {
			return nil
		}
		return err
	})

	if cfg.Admin.Enabled {
		admin := server.NewAdmin(server.AdminConfig{
			ListenAddress:     cfg.Admin.ListenAddress,
			WebsocketSessions: cfg.Admin.WebsocketSessions,
		}, srv, dispatcher, logger.With("component", "admin"))
		g.Go(func() error {
			if err := admin.ListenAndServe(gctx); err != nil {
				return fmt.Errorf("admin: %w", err)
			}
			return nil
		})
	}

	if watchConfig {
		if configPath == "" {
			logger.Warn("--watch-config ignored without --config")
		} else {
			g.Go(func() error {
				return config.Watch(gctx, configPath, reloader(logger, srv))
			})
		}
	}

	logger.Info("graphd starting", "version", version,
		"listen_address", cfg.Server.ListenAddress,
		"admin_enabled", cfg.Admin.Enabled,
	)

	if err := g.Wait(); err != nil {
		logger.Error("graphd stopped with error", "error", err)
		return err
	}
	logger.Info("graphd stopped")
	return nil
}

// applyServeFlags overlays flags the user set explicitly.
func applyServeFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("listen") {
		cfg.Server.ListenAddress = listenAddress
	}
	if flags.Changed("admin-listen") {
		cfg.Admin.ListenAddress = adminAddress
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("max-sessions") {
		cfg.Server.MaxSessions = maxSessions
	}
	if flags.Changed("no-admin") && noAdmin {
		cfg.Admin.Enabled = false
	}
}

func telemetryConfig(cfg config.Config) telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceName = "graphd"
	tc.ServiceVersion = version
	tc.TraceExporter = cfg.Telemetry.TraceExporter
	tc.MetricExporter = cfg.Telemetry.MetricExporter
	tc.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	tc.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	return tc
}

// reloader applies the hot-reloadable settings. Listen addresses and
// session limits need a restart.
func reloader(logger *logging.Logger, srv *server.Server) config.ReloadFunc {
	return func(cfg config.Config, err error) {
		if err != nil {
			logger.Warn("config reload rejected, keeping current settings", "error", err)
			return
		}
		if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
			logger.SetLevel(level)
		}
		srv.SetIdleTimeout(cfg.Server.IdleTimeout)
		logger.Info("config reloaded",
			"log_level", cfg.Logging.Level,
			"idle_timeout", cfg.Server.IdleTimeout.String(),
		)
	}
}
