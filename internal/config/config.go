// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/relabs-tech/sensor_monitor/internal/serialport"
)

// Config file keys. The file uses the KEY=VALUE format with # comments.
const (
	KeySerialPort        = "SERIAL_PORT"
	KeySerialBaud        = "SERIAL_BAUD"
	KeySerialReadTimeout = "SERIAL_READ_TIMEOUT_MS"
	KeySerialDriver      = "SERIAL_DRIVER"
	KeyMockInterval      = "MOCK_INTERVAL_MS"
	KeyStopWait          = "STOP_WAIT_MS"
	KeyExportDir         = "EXPORT_DIR"
	KeyMQTTBroker        = "MQTT_BROKER"
	KeyMQTTClientID      = "MQTT_CLIENT_ID"
	KeyMQTTTopic         = "MQTT_TOPIC"
	KeyWebServerAddr     = "WEB_SERVER_ADDR"
	KeyLogLevel          = "LOG_LEVEL"
)

// DefaultPath is read when no --config flag is given. It is optional.
const DefaultPath = "monitor_config.txt"

var defaults = map[string]any{
	KeySerialPort:        "/dev/ttyUSB0",
	KeySerialBaud:        9600,
	KeySerialReadTimeout: 1000,
	KeySerialDriver:      serialport.DriverJacobsa,
	KeyMockInterval:      1000,
	KeyStopWait:          1500,
	KeyExportDir:         ".",
	KeyMQTTBroker:        "",
	KeyMQTTClientID:      "sensor-monitor",
	KeyMQTTTopic:         "sensors/reading",
	KeyWebServerAddr:     ":8080",
	KeyLogLevel:          "info",
}

// Config holds all application configuration values.
type Config struct {
	// Serial
	SerialPort        string
	SerialBaud        int
	SerialReadTimeout time.Duration
	SerialDriver      string
	MockInterval      time.Duration

	// Session
	StopWait time.Duration

	// Export
	ExportDir string

	// MQTT (disabled when MQTTBroker is empty)
	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string

	// Web Server
	WebServerAddr string

	LogLevel string
}

// NewViper returns a viper instance with defaults set and environment
// overrides enabled.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("env")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	return v
}

// ReadFile merges the KEY=VALUE file at path into v. A missing file is only
// an error if required is set.
func ReadFile(v *viper.Viper, path string, required bool) error {
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// Load builds a validated Config from v.
func Load(v *viper.Viper) (*Config, error) {
	for _, key := range v.AllKeys() {
		if _, ok := defaults[strings.ToUpper(key)]; !ok {
			return nil, fmt.Errorf("unknown config key: %q", strings.ToUpper(key))
		}
	}

	cfg := &Config{
		SerialPort:        strings.TrimSpace(v.GetString(KeySerialPort)),
		SerialBaud:        v.GetInt(KeySerialBaud),
		SerialReadTimeout: time.Duration(v.GetInt(KeySerialReadTimeout)) * time.Millisecond,
		SerialDriver:      strings.ToLower(strings.TrimSpace(v.GetString(KeySerialDriver))),
		MockInterval:      time.Duration(v.GetInt(KeyMockInterval)) * time.Millisecond,
		StopWait:          time.Duration(v.GetInt(KeyStopWait)) * time.Millisecond,
		ExportDir:         v.GetString(KeyExportDir),
		MQTTBroker:        strings.TrimSpace(v.GetString(KeyMQTTBroker)),
		MQTTClientID:      v.GetString(KeyMQTTClientID),
		MQTTTopic:         v.GetString(KeyMQTTTopic),
		WebServerAddr:     v.GetString(KeyWebServerAddr),
		LogLevel:          v.GetString(KeyLogLevel),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks that all required fields are set and in range.
func (c *Config) validate() error {
	switch c.SerialDriver {
	case serialport.DriverJacobsa, serialport.DriverBugst, serialport.DriverMock:
	default:
		return fmt.Errorf("SERIAL_DRIVER must be one of jacobsa, bugst, mock, got %q", c.SerialDriver)
	}
	if c.SerialPort == "" && c.SerialDriver != serialport.DriverMock {
		return fmt.Errorf("SERIAL_PORT is required")
	}
	if c.SerialBaud <= 0 {
		return fmt.Errorf("SERIAL_BAUD must be positive, got %d", c.SerialBaud)
	}
	if c.SerialReadTimeout < 100*time.Millisecond || c.SerialReadTimeout > 25500*time.Millisecond {
		return fmt.Errorf("SERIAL_READ_TIMEOUT_MS must be 100-25500, got %d", c.SerialReadTimeout.Milliseconds())
	}
	if c.MockInterval <= 0 {
		return fmt.Errorf("MOCK_INTERVAL_MS must be positive, got %d", c.MockInterval.Milliseconds())
	}
	if c.StopWait <= 0 {
		return fmt.Errorf("STOP_WAIT_MS must be positive, got %d", c.StopWait.Milliseconds())
	}
	if c.MQTTBroker != "" && c.MQTTTopic == "" {
		return fmt.Errorf("MQTT_TOPIC is required when MQTT_BROKER is set")
	}
	return nil
}

// Serial returns the byte-stream source settings.
func (c *Config) Serial() serialport.Config {
	return serialport.Config{
		Port:         c.SerialPort,
		Baud:         c.SerialBaud,
		ReadTimeout:  c.SerialReadTimeout,
		Driver:       c.SerialDriver,
		MockInterval: c.MockInterval,
	}
}
