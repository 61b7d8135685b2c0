// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/sensor_monitor/internal/app"
	"github.com/relabs-tech/sensor_monitor/internal/config"
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Headless HTTP/WebSocket monitor",
	Long: `Serves a JSON API (status, start, stop, export) and a WebSocket feed of
readings and connection state at /ws.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		err = app.RunWeb(ctx, a, a.Config.WebServerAddr)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(webCmd)

	webCmd.Flags().String("addr", "", "listen address (default :8080)")
	if err := v.BindPFlag(config.KeyWebServerAddr, webCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
}
