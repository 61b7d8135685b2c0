// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package serialport

import (
	"fmt"
	"io"
	"time"

	bugst "go.bug.st/serial"
)

func openBugst(cfg Config) (Source, error) {
	mode := &bugst.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}

	port, err := bugst.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s at %d baud: %w", cfg.Port, cfg.Baud, err)
	}

	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Port, err)
	}

	return newLineReader(timeoutReader{port}), nil
}

// timeoutReader reports an expired read timeout as errReadTimeout. go.bug.st
// returns (0, nil) in that case, which bufio would otherwise retry until it
// gives up with io.ErrNoProgress.
type timeoutReader struct {
	io.ReadCloser
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.ReadCloser.Read(p)
	if n == 0 && err == nil && len(p) > 0 {
		return 0, errReadTimeout
	}
	return n, err
}

// ListPorts returns the serial ports the OS currently reports.
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
