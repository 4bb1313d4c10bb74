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
	"fmt"
	"os"

	"github.com/AleutianAI/AleutianGraph/services/graphd/config"
	"github.com/spf13/cobra"
)

// runConfigPrint loads the configuration the way serve does, without flag
// overrides, and prints it.
func runConfigPrint(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// runConfigInit writes the defaults unless the file already exists.
func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, left unchanged\n", args[0])
		return nil
	}
	if err := config.WriteDefault(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote default configuration to %s\n", args[0])
	return nil
}
