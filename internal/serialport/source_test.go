// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package serialport

import (
	"errors"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sensor_monitor/internal/env"
)

// chunk is one scripted Read result. An empty data with nil err is a
// go.bug.st style timeout.
type chunk struct {
	data string
	err  error
}

type scriptedReader struct {
	chunks []chunk
	closed bool
}

func (s *scriptedReader) Read(p []byte) (int, error) {
	if len(s.chunks) == 0 {
		return 0, syscall.EIO
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	n := copy(p, c.data)
	return n, c.err
}

func (s *scriptedReader) Close() error {
	s.closed = true
	return nil
}

func TestLineReaderReassemblesAcrossTimeouts(t *testing.T) {
	sr := &scriptedReader{chunks: []chunk{
		{data: "T=23.5&P=10"},
		{err: io.EOF},
		{data: "13&H=45\r\nT=24"},
		{err: io.EOF},
		{data: ".5&P=1015&H=47\n"},
	}}
	lr := newLineReader(sr)

	var lines []string
	for i := 0; i < 4; i++ {
		line, err := lr.ReadLine()
		require.NoError(t, err)
		if line != "" {
			lines = append(lines, line)
		}
	}
	assert.Equal(t, []string{"T=23.5&P=1013&H=45", "T=24.5&P=1015&H=47"}, lines)
}

func TestLineReaderTimeoutIsEmpty(t *testing.T) {
	lr := newLineReader(&scriptedReader{chunks: []chunk{{err: io.EOF}}})
	line, err := lr.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "", line)
}

func TestLineReaderIOError(t *testing.T) {
	lr := newLineReader(&scriptedReader{})
	_, err := lr.ReadLine()
	assert.True(t, errors.Is(err, syscall.EIO))
}

func TestTimeoutReaderZeroRead(t *testing.T) {
	sr := &scriptedReader{chunks: []chunk{
		{},
		{data: "T=1&P=2&H=3\n"},
	}}
	lr := newLineReader(timeoutReader{sr})

	line, err := lr.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "", line)

	line, err = lr.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "T=1&P=2&H=3", line)
}

func TestLineReaderCloseOnce(t *testing.T) {
	sr := &scriptedReader{}
	lr := newLineReader(sr)
	require.NoError(t, lr.Close())
	require.NoError(t, lr.Close())
	assert.True(t, sr.closed)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Port: "x", Baud: 9600, Driver: "nope"})
	assert.Error(t, err)
}

func TestMockSource(t *testing.T) {
	src, err := Open(Config{Driver: DriverMock, ReadTimeout: time.Minute, MockInterval: time.Millisecond})
	require.NoError(t, err)

	began := time.Now()
	line, err := src.ReadLine()
	assert.Less(t, time.Since(began), time.Second)
	require.NoError(t, err)
	_, err = env.Parse(line, time.Now())
	assert.NoError(t, err)

	require.NoError(t, src.Close())
	_, err = src.ReadLine()
	assert.Error(t, err)
}

func TestInterCharTimeoutMillis(t *testing.T) {
	assert.Equal(t, uint(100), interCharTimeoutMillis(0))
	assert.Equal(t, uint(1000), interCharTimeoutMillis(time.Second))
	assert.Equal(t, uint(1300), interCharTimeoutMillis(1260*time.Millisecond))
	assert.Equal(t, uint(25500), interCharTimeoutMillis(time.Minute))
}
