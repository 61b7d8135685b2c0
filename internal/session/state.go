// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"errors"
	"fmt"
)

// State of an acquisition session. Error behaves like Disconnected (Start
// may be retried) and exists so the shell can say why it is not connected.
type State int

const (
	Disconnected State = iota
	Connected
	Error
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrAlreadyConnected is returned by Start while a session is running.
var ErrAlreadyConnected = errors.New("session already connected")

// ConnectionError means the byte-stream source could not be opened. Every
// cause (missing port, busy device, bad settings) collapses into it.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// StreamIOError means the stream failed mid-session and the session was
// forced to Disconnected.
type StreamIOError struct {
	Err error
}

func (e *StreamIOError) Error() string {
	return fmt.Sprintf("serial stream: %v", e.Err)
}

func (e *StreamIOError) Unwrap() error { return e.Err }
