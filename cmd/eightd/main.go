// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// eightd is the terminal client for the 8D quality complaint workflow:
// complaint intake, per-step editing with AI-gated section validation,
// evidence uploads, and a development backend stub.
package main

import (
	"log"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"eightd/cmd/eightd/config"
	"eightd/pkg/backend"
	"eightd/pkg/logging"
)

var (
	logger *logging.Logger
	api    *backend.Client
)

func main() {
	defer func() {
		if logger != nil {
			logger.Close()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if err := config.Load(); err != nil {
			log.Fatalf("Error loading the config: %v", err)
		}

		// File-only logging keeps the TUI and piped output clean.
		var err error
		logger, err = logging.New(logging.Config{
			Level:   logging.ParseLevel(config.Global.Logging.Level),
			LogDir:  config.Global.Logging.LogDir,
			Service: "cli",
			Quiet:   true,
		})
		if err != nil {
			log.Fatalf("Error setting up logging: %v", err)
		}
		slog.SetDefault(logger.Logger)

		timeout := time.Duration(config.Global.Backend.TimeoutSeconds) * time.Second
		api = backend.New(config.Global.Backend.BaseURL, timeout, logger.Logger)
	}
}
