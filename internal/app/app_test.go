// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"math"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sensor_monitor/internal/config"
	"github.com/relabs-tech/sensor_monitor/internal/env"
	"github.com/relabs-tech/sensor_monitor/internal/export"
	"github.com/relabs-tech/sensor_monitor/internal/serialport"
	"github.com/relabs-tech/sensor_monitor/internal/session"
	"github.com/relabs-tech/sensor_monitor/internal/store"
)

// lineSource hands out lines in order, then blocks until closed.
type lineSource struct {
	lines  chan string
	closed chan struct{}
	once   sync.Once
}

func newLineSource(lines ...string) *lineSource {
	s := &lineSource{lines: make(chan string, len(lines)), closed: make(chan struct{})}
	for _, l := range lines {
		s.lines <- l
	}
	return s
}

func (s *lineSource) ReadLine() (string, error) {
	select {
	case <-s.closed:
		return "", net.ErrClosed
	default:
	}
	select {
	case l := <-s.lines:
		return l, nil
	case <-s.closed:
		return "", net.ErrClosed
	}
}

func (s *lineSource) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		SerialPort:        "/dev/ttyTEST",
		SerialBaud:        9600,
		SerialReadTimeout: time.Second,
		SerialDriver:      serialport.DriverJacobsa,
		StopWait:          100 * time.Millisecond,
		ExportDir:         t.TempDir(),
		MQTTTopic:         "sensors/reading",
	}
}

func newTestApp(t *testing.T, src serialport.Source) *App {
	return New(testConfig(t), nil, session.WithOpener(func(serialport.Config) (serialport.Source, error) {
		return src, nil
	}))
}

func newFailingApp(t *testing.T) *App {
	return New(testConfig(t), nil, session.WithOpener(func(serialport.Config) (serialport.Source, error) {
		return nil, errors.New("no such file or directory")
	}))
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Disconnected", StatusText(session.Disconnected, "", nil))
	assert.Equal(t, "Connected", StatusText(session.Connected, "id", nil))
	assert.Equal(t, "Connection Error", StatusText(session.Error, "", errors.New("x")))
	assert.Equal(t, "Stopped", StatusText(session.Disconnected, "id", nil))
	assert.Equal(t, "Disconnected", StatusText(session.Disconnected, "id", &session.StreamIOError{Err: errors.New("eio")}))
}

func TestExportMessage(t *testing.T) {
	assert.Equal(t, "Saved to export_x.json", ExportMessage("export_x.json", nil))
	assert.Equal(t, "Nothing to export: no data collected.", ExportMessage("", export.ErrEmptyStore))
	assert.Equal(t, "Export failed: permission denied",
		ExportMessage("", &export.WriteError{Path: "p", Err: errors.New("permission denied")}))
}

func TestFormat(t *testing.T) {
	r := env.NewReading(time.Now(), 23.46, 1013, 45)
	line := FormatReading(r)
	assert.Contains(t, line, "Temp: 23.5 °C")
	assert.Contains(t, line, "Pressure: 1013 Pa")
	assert.Contains(t, line, "Humidity: 45 %")

	assert.Equal(t, "Avg Temp: --  Avg Pressure: --  Avg Humidity: --", FormatAverages(nil))
	assert.Equal(t, "Avg Temp: 24.0  Avg Pressure: 1014.0  Avg Humidity: 46.0",
		FormatAverages(&store.Averages{Temp: 24, Press: 1014, Humid: 46}))
}

func TestAppStatus(t *testing.T) {
	src := newLineSource("T=23.5&P=1013&H=45")
	a := newTestApp(t, src)

	st := a.Status()
	assert.Equal(t, session.Disconnected, st.State)
	assert.Equal(t, "Disconnected", st.Text)
	assert.Nil(t, st.Averages)
	assert.Nil(t, st.Last)

	require.NoError(t, a.Session.Start())
	require.Eventually(t, func() bool { return a.Store.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, a.Session.Stop())

	st = a.Status()
	assert.Equal(t, "Stopped", st.Text)
	assert.NotEmpty(t, st.SessionID)
	assert.Equal(t, 1, st.Count)
	require.NotNil(t, st.Averages)
	assert.Equal(t, 23.5, st.Averages.Temp)
	require.NotNil(t, st.Last)
	assert.Equal(t, 1013, st.Last.Pressure)
}

func TestAppStatusAfterConnectionError(t *testing.T) {
	a := newFailingApp(t)
	require.Error(t, a.Session.Start())

	st := a.Status()
	assert.Equal(t, session.Error, st.State)
	assert.Equal(t, "Connection Error", st.Text)
	assert.Contains(t, st.Error, "no such file")
	assert.Equal(t, 0, st.Count)
}

func TestFormatHugePressure(t *testing.T) {
	r := env.NewReading(time.Now(), 20, math.MaxInt, 50)
	assert.Equal(t, "Temp: 20.0 °C  Pressure: 9223372036854775807 Pa  Humidity: 50 %", FormatReading(r))
}
