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
	"github.com/spf13/cobra"
)

// Build metadata, set with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

// --- Global Command Variables ---
var (
	configPath string

	// serve overrides
	listenAddress string
	adminAddress  string
	logLevel      string
	maxSessions   int
	noAdmin       bool
	watchConfig   bool

	// client
	clientAddress string
	noPrompt      bool
)

var (
	rootCmd = &cobra.Command{
		Use:   "graphd",
		Short: "A shared directed-graph server speaking a line protocol over TCP",
		Long: `graphd keeps one weighted directed graph in memory and lets any number
of clients edit and query it concurrently over a plain-text TCP protocol.`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the graph server",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_serve.go
	}

	clientCmd = &cobra.Command{
		Use:   "client",
		Short: "Connect to a graph server and relay stdin",
		Args:  cobra.NoArgs,
		RunE:  runClient, // Defined in cmd_client.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run:   runVersion, // Defined in cmd_version.go
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the server configuration",
	}
	configPrintCmd = &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE:  runConfigPrint, // Defined in cmd_config.go
	}
	configInitCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration to a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigInit, // Defined in cmd_config.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to the YAML configuration file (defaults and GRAPHD_* environment apply without it)")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddress, "listen", "", "Line-protocol listen address, e.g. :50000")
	serveCmd.Flags().StringVar(&adminAddress, "admin-listen", "", "Admin HTTP listen address, e.g. :9090")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	serveCmd.Flags().IntVar(&maxSessions, "max-sessions", 0, "Maximum concurrent sessions (0 = unbounded)")
	serveCmd.Flags().BoolVar(&noAdmin, "no-admin", false, "Disable the admin HTTP surface")
	serveCmd.Flags().BoolVar(&watchConfig, "watch-config", false,
		"Reload log level and idle timeout when the config file changes")

	rootCmd.AddCommand(clientCmd)
	clientCmd.Flags().StringVarP(&clientAddress, "addr", "a", "localhost:50000", "Server address")
	clientCmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Do not print the client > prompt")

	rootCmd.AddCommand(versionCmd)

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPrintCmd)
	configCmd.AddCommand(configInitCmd)
}
