// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package serialport

import (
	"fmt"
	"math"
	"net"
	"sync"
	"time"
)

// noiseEvery makes the mock emit one malformed line per this many lines.
const noiseEvery = 25

type mockSource struct {
	start    time.Time
	interval time.Duration
	n        int

	closeOnce sync.Once
	closed    chan struct{}
}

// NewMockSource creates a source that emits a smoothly changing
// T=..&P=..&H=.. line every interval, with the occasional garbage line.
func NewMockSource(interval time.Duration) Source {
	if interval <= 0 {
		interval = time.Second
	}
	return &mockSource{
		start:    time.Now(),
		interval: interval,
		closed:   make(chan struct{}),
	}
}

func (m *mockSource) ReadLine() (string, error) {
	select {
	case <-m.closed:
		return "", net.ErrClosed
	case <-time.After(m.interval):
	}

	m.n++
	if m.n%noiseEvery == 0 {
		return "T=??&P=&H=", nil
	}

	elapsed := time.Since(m.start).Seconds()
	return fmt.Sprintf("T=%.1f&P=%d&H=%d",
		22+2*math.Sin(elapsed/10),
		101300+int(150*math.Cos(elapsed/30)),
		45+int(5*math.Sin(elapsed/20)),
	), nil
}

func (m *mockSource) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}
