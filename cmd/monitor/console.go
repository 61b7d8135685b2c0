// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/sensor_monitor/internal/app"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive console monitor",
	Long: `Runs the monitor in the terminal. Type start, stop, export, status or
quit; an empty line toggles the connection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		return app.RunConsole(ctx, a, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
