// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/relabs-tech/sensor_monitor/internal/env"
	"github.com/relabs-tech/sensor_monitor/internal/serialport"
	"github.com/relabs-tech/sensor_monitor/internal/store"
)

// DefaultStopWait bounds how long Stop waits for the read loop before and
// after closing the port.
const DefaultStopWait = 1500 * time.Millisecond

// DisplayFunc receives every accepted reading together with the averages
// recomputed after appending it. avg is nil only if no averages exist.
// It runs on the read-loop goroutine.
type DisplayFunc func(r env.Reading, avg *store.Averages)

// StateFunc is called after every state transition. err is the cause for
// Error and for a stream failure, nil otherwise.
type StateFunc func(state State, err error)

// Session owns the serial source and the single read-loop worker feeding
// the store.
type Session struct {
	cfg      serialport.Config
	store    *store.Store
	open     serialport.Opener
	logger   *log.Logger
	now      func() time.Time
	stopWait time.Duration

	// opMu serializes Start, Stop and Toggle. mu guards the fields below
	// and is never held across sensor I/O.
	opMu sync.Mutex

	mu      sync.Mutex
	state   State
	id      string
	lastErr error
	gen     uint64 // bumped whenever the running worker loses ownership
	src     serialport.Source
	cancel  context.CancelFunc
	done    chan struct{}

	cbMu      sync.RWMutex
	onReading []DisplayFunc
	onState   []StateFunc
}

type Option func(*Session)

func WithOpener(open serialport.Opener) Option {
	return func(s *Session) { s.open = open }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func WithStopWait(d time.Duration) Option {
	return func(s *Session) { s.stopWait = d }
}

// New creates a Disconnected session that appends to st.
func New(cfg serialport.Config, st *store.Store, opts ...Option) *Session {
	s := &Session{
		cfg:      cfg,
		store:    st,
		open:     serialport.Open,
		logger:   log.New(io.Discard),
		now:      time.Now,
		stopWait: DefaultStopWait,
		state:    Disconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnReading registers a display callback.
func (s *Session) OnReading(fn DisplayFunc) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onReading = append(s.onReading, fn)
}

// OnStateChange registers a state callback.
func (s *Session) OnStateChange(fn StateFunc) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onState = append(s.onState, fn)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionID identifies the current or most recent connected session.
// It is empty until the first successful Start.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// LastError is the *ConnectionError or *StreamIOError that caused the last
// involuntary transition, or nil.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Start opens the source and spawns the read loop. On failure the session
// moves to Error and a *ConnectionError is returned; the store is untouched.
// A Start issued while Stop is still winding down waits for it.
func (s *Session) Start() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.start()
}

// Stop ends the running session. It waits up to the stop wait for the
// worker, closes the source regardless, then waits once more. Calling Stop
// when not Connected is a no-op.
func (s *Session) Stop() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.stop()
}

// Toggle stops a connected session and starts one otherwise.
func (s *Session) Toggle() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.State() == Connected {
		return s.stop()
	}
	return s.start()
}

func (s *Session) start() error {
	if s.State() == Connected {
		return ErrAlreadyConnected
	}

	src, err := s.open(s.cfg)
	if err != nil {
		cerr := &ConnectionError{Port: s.cfg.Port, Err: err}
		s.mu.Lock()
		s.state = Error
		s.lastErr = cerr
		s.mu.Unlock()

		s.logger.Error("connection failed", "port", s.cfg.Port, "err", err)
		s.notifyState(Error, cerr)
		return cerr
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = Connected
	s.id = uuid.NewString()
	s.lastErr = nil
	s.src = src
	s.cancel = cancel
	s.done = done
	id := s.id
	s.mu.Unlock()

	s.logger.Info("serial port opened", "port", s.cfg.Port, "baud", s.cfg.Baud, "driver", s.cfg.Driver, "session", id)
	s.notifyState(Connected, nil)

	go s.readLoop(ctx, gen, src, done)
	return nil
}

func (s *Session) stop() error {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return nil
	}
	s.state = Disconnected
	s.lastErr = nil
	s.gen++
	gen := s.gen
	src, cancel, done := s.src, s.cancel, s.done
	s.src, s.cancel, s.done = nil, nil, nil
	id := s.id
	s.mu.Unlock()

	cancel()
	if !waitDone(done, s.stopWait) {
		s.logger.Debug("read loop busy, closing port", "session", id)
	}
	if err := src.Close(); err != nil {
		s.logger.Warn("close serial port", "port", s.cfg.Port, "err", err)
	}
	if !waitDone(done, s.stopWait) {
		s.logger.Warn("read loop did not exit after close", "session", id)
	}

	s.logger.Info("session stopped", "session", id)
	s.mu.Lock()
	current := s.gen == gen
	s.mu.Unlock()
	if current {
		s.notifyState(Disconnected, nil)
	}
	return nil
}

func (s *Session) readLoop(ctx context.Context, gen uint64, src serialport.Source, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		line, err := src.ReadLine()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.fail(gen, src, err)
			return
		}
		if line == "" {
			continue
		}

		r, err := env.Parse(line, s.now())
		if err != nil {
			s.logger.Debug("dropping line", "err", err)
			continue
		}

		avg := s.store.Append(r)
		s.notifyReading(r, &avg)
	}
}

// fail handles a read error. It only transitions the session if this
// worker still owns it.
func (s *Session) fail(gen uint64, src serialport.Source, cause error) {
	if err := src.Close(); err != nil {
		s.logger.Debug("close after stream failure", "err", err)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	serr := &StreamIOError{Err: cause}
	s.state = Disconnected
	s.lastErr = serr
	cancel := s.cancel
	s.src, s.cancel, s.done = nil, nil, nil
	id := s.id
	s.mu.Unlock()

	cancel()
	s.logger.Error("serial stream failed", "port", s.cfg.Port, "session", id, "err", cause)
	s.notifyState(Disconnected, serr)
}

func (s *Session) notifyReading(r env.Reading, avg *store.Averages) {
	s.cbMu.RLock()
	defer s.cbMu.RUnlock()
	for _, fn := range s.onReading {
		fn(r, avg)
	}
}

func (s *Session) notifyState(state State, err error) {
	s.cbMu.RLock()
	defer s.cbMu.RUnlock()
	for _, fn := range s.onState {
		fn(state, err)
	}
}

func waitDone(done <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}
