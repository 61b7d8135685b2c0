// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package serialport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Supported drivers.
const (
	DriverJacobsa = "jacobsa"
	DriverBugst   = "bugst"
	DriverMock    = "mock"
)

// Config describes how to open the byte-stream source.
type Config struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
	Driver      string

	// MockInterval is the line period of DriverMock. Real drivers ignore it.
	MockInterval time.Duration
}

// Source is a line-oriented byte stream.
//
// ReadLine blocks for at most the configured read timeout. A timeout is not
// an error: it returns ("", nil). Any error means the stream is unusable.
type Source interface {
	ReadLine() (string, error)
	Close() error
}

// Opener opens a Source. Open is the production implementation; tests
// substitute their own.
type Opener func(Config) (Source, error)

// errReadTimeout marks a read that returned nothing within the timeout.
var errReadTimeout = errors.New("serial read timeout")

// Open opens the source selected by cfg.Driver. An empty driver means
// DriverJacobsa.
func Open(cfg Config) (Source, error) {
	switch cfg.Driver {
	case "", DriverJacobsa:
		return openJacobsa(cfg)
	case DriverBugst:
		return openBugst(cfg)
	case DriverMock:
		return NewMockSource(cfg.MockInterval), nil
	default:
		return nil, fmt.Errorf("unknown serial driver %q", cfg.Driver)
	}
}

// lineReader turns a timeout-bounded io.ReadCloser into a Source. Bytes read
// before a timeout are kept until the rest of the line arrives.
type lineReader struct {
	rc      io.ReadCloser
	r       *bufio.Reader
	pending strings.Builder

	closeOnce sync.Once
	closeErr  error
}

func newLineReader(rc io.ReadCloser) *lineReader {
	return &lineReader{rc: rc, r: bufio.NewReader(rc)}
}

func (l *lineReader) ReadLine() (string, error) {
	chunk, err := l.r.ReadString('\n')
	l.pending.WriteString(chunk)
	if err != nil {
		// A tty opened with VMIN=0 reports an expired VTIME as a
		// zero-byte read, which os.File surfaces as io.EOF.
		if errors.Is(err, io.EOF) || errors.Is(err, errReadTimeout) {
			return "", nil
		}
		return "", err
	}

	line := strings.TrimSpace(l.pending.String())
	l.pending.Reset()
	return line, nil
}

func (l *lineReader) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.rc.Close()
	})
	return l.closeErr
}
