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
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianGraph/pkg/logging"
	"github.com/AleutianAI/AleutianGraph/services/graphd/config"
	"github.com/AleutianAI/AleutianGraph/services/graphd/dispatch"
	"github.com/AleutianAI/AleutianGraph/services/graphd/server"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		configPath = ""
	})
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, context.Background(), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graphd "+version+" "), out)
}

func TestConfigInitAndPrint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "graphd.yaml")

	out, err := execute(t, context.Background(), "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote default configuration")
	assert.FileExists(t, path)

	out, err = execute(t, context.Background(), "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "left unchanged")

	out, err = execute(t, context.Background(), "config", "print", "--config", path)
	require.NoError(t, err)
	assert.Regexp(t, `listen_address: "?:50000"?`, out)
}

func TestConfigPrint_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: shouting\n"), 0644))

	_, err := execute(t, context.Background(), "config", "print", "--config", path)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestApplyServeFlags(t *testing.T) {
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.StringVar(&listenAddress, "listen", "", "")
	flags.StringVar(&adminAddress, "admin-listen", "", "")
	flags.StringVar(&logLevel, "log-level", "", "")
	flags.IntVar(&maxSessions, "max-sessions", 0, "")
	flags.BoolVar(&noAdmin, "no-admin", false, "")
	t.Cleanup(func() {
		listenAddress, adminAddress, logLevel = "", "", ""
		maxSessions = 0
		noAdmin = false
	})

	require.NoError(t, flags.Parse([]string{"--listen", ":6000", "--log-level", "debug", "--no-admin"}))

	cfg := config.DefaultConfig()
	applyServeFlags(flags, &cfg)

	assert.Equal(t, ":6000", cfg.Server.ListenAddress)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Admin.Enabled)
	assert.Equal(t, config.DefaultConfig().Admin.ListenAddress, cfg.Admin.ListenAddress)
	assert.Equal(t, config.DefaultConfig().Server.MaxSessions, cfg.Server.MaxSessions)
}

func TestTelemetryConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Telemetry.TraceExporter = "stdout"

	tc := telemetryConfig(cfg)
	assert.Equal(t, "graphd", tc.ServiceName)
	assert.Equal(t, version, tc.ServiceVersion)
	assert.Equal(t, "stdout", tc.TraceExporter)
	assert.Equal(t, cfg.Telemetry.MetricExporter, tc.MetricExporter)
}

func TestReloader(t *testing.T) {
	logger := logging.New(logging.Config{Level: logging.LevelInfo, Quiet: true})
	srv := server.New(server.Config{IdleTimeout: time.Minute}, dispatch.New(nil), nil)
	apply := reloader(logger, srv)

	cfg := config.DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Server.IdleTimeout = 5 * time.Second
	apply(cfg, nil)

	assert.Equal(t, logging.LevelDebug, logger.Level())
	assert.Equal(t, 5*time.Second, srv.IdleTimeout())

	// A failed reload keeps the previous settings.
	apply(config.Config{}, config.ErrInvalidConfig)
	assert.Equal(t, logging.LevelDebug, logger.Level())
	assert.Equal(t, 5*time.Second, srv.IdleTimeout())
}

// freeAddress returns a loopback address with a currently unused port.
// Port 0 is rejected by config validation.
func freeAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestServeCommand_StopsOnCancel(t *testing.T) {
	addr := freeAddress(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := execute(t, ctx, "serve", "--listen", addr, "--no-admin", "--log-level", "error")
		done <- err
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
