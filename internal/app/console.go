// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/relabs-tech/sensor_monitor/internal/env"
	"github.com/relabs-tech/sensor_monitor/internal/session"
	"github.com/relabs-tech/sensor_monitor/internal/store"
)

const consoleHelp = `commands:
  start    connect to the serial port
  stop     disconnect
  toggle   start or stop (same as an empty line)
  export   write collected samples to a JSON file
  status   show connection state and averages
  quit     stop and exit`

// RunConsole is the interactive text shell. It reads commands from in and
// prints readings, averages and status changes to out until quit, EOF or
// ctx is cancelled. The session is stopped on return.
func RunConsole(ctx context.Context, a *App, in io.Reader, out io.Writer) error {
	var mu sync.Mutex
	printf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, format, args...)
	}

	a.Session.OnReading(func(r env.Reading, avg *store.Averages) {
		printf("[DATA] %s\n[AVG ] %s\n", FormatReading(r), FormatAverages(avg))
	})
	a.Session.OnStateChange(func(state session.State, err error) {
		text := StatusText(state, a.Session.SessionID(), err)
		if err != nil {
			printf("[STAT] %s: %v\n", text, err)
			return
		}
		printf("[STAT] %s\n", text)
	})
	defer a.Session.Stop()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	printf("%s\n[STAT] %s\n", consoleHelp, a.Status().Text)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			if quit := runCommand(a, strings.TrimSpace(line), printf); quit {
				return nil
			}
		}
	}
}

func runCommand(a *App, cmd string, printf func(string, ...any)) (quit bool) {
	switch strings.ToLower(cmd) {
	case "", "toggle":
		if err := a.Session.Toggle(); err != nil && !errors.As(err, new(*session.ConnectionError)) {
			printf("[WARN] %v\n", err)
		}
	case "start":
		err := a.Session.Start()
		if errors.Is(err, session.ErrAlreadyConnected) {
			printf("[WARN] already connected\n")
		}
	case "stop":
		a.Session.Stop()
	case "export":
		path, err := a.Export()
		if err != nil {
			printf("[WARN] %s\n", ExportMessage(path, err))
			break
		}
		printf("[INFO] %s\n", ExportMessage(path, nil))
	case "status":
		st := a.Status()
		printf("[STAT] %s (%d samples)\n[AVG ] %s\n", st.Text, st.Count, FormatAverages(st.Averages))
	case "help", "?":
		printf("%s\n", consoleHelp)
	case "quit", "exit", "q":
		return true
	default:
		printf("[WARN] unknown command %q, type help\n", cmd)
	}
	return false
}
