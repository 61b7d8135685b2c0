// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sensor_monitor/internal/session"
)

// syncBuffer guards a bytes.Buffer for reads from the test goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestConsoleCommands(t *testing.T) {
	a := newTestApp(t, newLineSource())
	out := &syncBuffer{}
	in := strings.NewReader("export\nstart\nstart\nstatus\nstop\nbogus\nquit\n")

	require.NoError(t, RunConsole(context.Background(), a, in, out))

	text := out.String()
	assert.Contains(t, text, "[STAT] Disconnected")
	assert.Contains(t, text, "[WARN] Nothing to export: no data collected.")
	assert.Contains(t, text, "[STAT] Connected")
	assert.Contains(t, text, "[WARN] already connected")
	assert.Contains(t, text, "[STAT] Connected (0 samples)")
	assert.Contains(t, text, "[STAT] Stopped")
	assert.Contains(t, text, `unknown command "bogus"`)
	assert.Equal(t, session.Disconnected, a.Session.State())
}

func TestConsoleReadingsAndExport(t *testing.T) {
	a := newTestApp(t, newLineSource("T=23.5&P=1013&H=45", "garbage", "T=24.5&P=1015&H=47"))
	out := &syncBuffer{}
	pr, pw := io.Pipe()
	defer pw.Close()

	done := make(chan error, 1)
	go func() { done <- RunConsole(context.Background(), a, pr, out) }()

	_, err := io.WriteString(pw, "\n") // toggle on
	require.NoError(t, err)
	require.Eventually(t, func() bool { return a.Store.Len() == 2 }, 2*time.Second, 5*time.Millisecond)

	_, err = io.WriteString(pw, "export\nquit\n")
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("console did not exit")
	}

	text := out.String()
	assert.Contains(t, text, "[DATA] Temp: 23.5 °C")
	assert.Contains(t, text, "[AVG ] Avg Temp: 24.0  Avg Pressure: 1014.0  Avg Humidity: 46.0")
	assert.Contains(t, text, "[INFO] Saved to ")

	entries, err := os.ReadDir(a.Config.ExportDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestConsoleConnectionError(t *testing.T) {
	a := newFailingApp(t)
	out := &syncBuffer{}

	require.NoError(t, RunConsole(context.Background(), a, strings.NewReader("start\nquit\n"), out))
	assert.Contains(t, out.String(), "[STAT] Connection Error: connect /dev/ttyTEST")
	assert.Equal(t, session.Error, a.Session.State())
}

func TestConsoleContextCancel(t *testing.T) {
	a := newTestApp(t, newLineSource())
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunConsole(ctx, a, pr, &syncBuffer{}) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("console ignored cancellation")
	}
}
