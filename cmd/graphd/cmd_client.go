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
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/AleutianGraph/pkg/ux"
	"github.com/AleutianAI/AleutianGraph/services/graphd/client"
	"github.com/spf13/cobra"
)

func runClient(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := ux.NewPrinter(cmd.OutOrStdout())
	printer.Notice("connecting to " + clientAddress + "...")

	conn, err := client.Dial(ctx, clientAddress, client.DefaultDialTimeout)
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	defer conn.Close()

	interactive := !noPrompt && ux.IsTerminal(cmd.InOrStdin())
	return client.Relay(ctx, conn, cmd.InOrStdin(), printer, client.WithPrompt(interactive))
}
