// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package serialport

import (
	"fmt"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
)

// VTIME is expressed in tenths of a second and stored in a byte.
const (
	minInterCharTimeout = 100 * time.Millisecond
	maxInterCharTimeout = 25500 * time.Millisecond
)

func openJacobsa(cfg Config) (Source, error) {
	opts := serial.OpenOptions{
		PortName:              cfg.Port,
		BaudRate:              uint(cfg.Baud),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		MinimumReadSize:       0,
		InterCharacterTimeout: interCharTimeoutMillis(cfg.ReadTimeout),
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open %s at %d baud: %w", cfg.Port, cfg.Baud, err)
	}
	return newLineReader(port), nil
}

// interCharTimeoutMillis rounds d to the 100ms granularity termios supports.
func interCharTimeoutMillis(d time.Duration) uint {
	if d < minInterCharTimeout {
		d = minInterCharTimeout
	}
	if d > maxInterCharTimeout {
		d = maxInterCharTimeout
	}
	d = d.Round(100 * time.Millisecond)
	return uint(d / time.Millisecond)
}
