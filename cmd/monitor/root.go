// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/sensor_monitor/internal/app"
	"github.com/relabs-tech/sensor_monitor/internal/config"
)

var (
	cfgFile string
	v       = config.NewViper()
)

var rootCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Serial sensor monitor",
	Long: `monitor reads T=..&P=..&H=.. lines from a serial port, shows live
temperature, pressure and humidity with running averages, and exports the
collected samples to a JSON file on demand.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is "+config.DefaultPath+" if present)")
	flags.String("port", "", "serial port")
	flags.Int("baud", 0, "serial baud rate")
	flags.String("driver", "", "serial driver: jacobsa, bugst or mock")
	flags.String("export-dir", "", "directory for export files")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	bindFlag(config.KeySerialPort, "port")
	bindFlag(config.KeySerialBaud, "baud")
	bindFlag(config.KeySerialDriver, "driver")
	bindFlag(config.KeyExportDir, "export-dir")
	bindFlag(config.KeyLogLevel, "log-level")
}

func bindFlag(key, name string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name)); err != nil {
		panic(err)
	}
}

// loadApp reads .env, the config file and flags, then wires the core.
func loadApp() (*app.App, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	path, required := cfgFile, true
	if path == "" {
		path, required = config.DefaultPath, false
	}
	if err := config.ReadFile(v, path, required); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	logger, err := app.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}

	a := app.New(cfg, logger)
	if cfg.MQTTBroker != "" {
		disconnect, err := app.AttachMQTT(a)
		if err != nil {
			// MQTT is a mirror; the monitor works without it.
			logger.Warn("mqtt disabled", "broker", cfg.MQTTBroker, "err", err)
		} else {
			cobra.OnFinalize(disconnect)
		}
	}
	return a, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
