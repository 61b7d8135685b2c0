// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/relabs-tech/sensor_monitor/internal/config"
	"github.com/relabs-tech/sensor_monitor/internal/env"
	"github.com/relabs-tech/sensor_monitor/internal/export"
	"github.com/relabs-tech/sensor_monitor/internal/session"
	"github.com/relabs-tech/sensor_monitor/internal/store"
)

// App is the application state owned by a shell: one store, one session
// feeding it and the exporter that reads it.
type App struct {
	Config   *config.Config
	Store    *store.Store
	Session  *session.Session
	Exporter *export.Exporter
	Logger   *log.Logger
}

// New wires the core components from cfg. Extra session options are
// applied last so tests can swap the opener.
func New(cfg *config.Config, logger *log.Logger, opts ...session.Option) *App {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	st := store.New()

	sessOpts := append([]session.Option{
		session.WithLogger(logger.WithPrefix("session")),
		session.WithStopWait(cfg.StopWait),
	}, opts...)

	return &App{
		Config:   cfg,
		Store:    st,
		Session:  session.New(cfg.Serial(), st, sessOpts...),
		Exporter: export.New(cfg.ExportDir, export.WithLogger(logger.WithPrefix("export"))),
		Logger:   logger,
	}
}

// NewLogger builds the charmbracelet logger used by every component.
func NewLogger(w io.Writer, level string) (*log.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	}), nil
}

// Status is a point-in-time view for the shells.
type Status struct {
	State     session.State   `json:"state"`
	Text      string          `json:"text"`
	SessionID string          `json:"session_id,omitempty"`
	Count     int             `json:"count"`
	Averages  *store.Averages `json:"averages,omitempty"`
	Last      *env.Reading    `json:"last,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (a *App) Status() Status {
	state := a.Session.State()
	id := a.Session.SessionID()
	lastErr := a.Session.LastError()

	st := Status{
		State:     state,
		Text:      StatusText(state, id, lastErr),
		SessionID: id,
		Count:     a.Store.Len(),
	}
	if avg, ok := a.Store.Averages(); ok {
		st.Averages = &avg
	}
	if last, ok := a.Store.Last(); ok {
		st.Last = &last
	}
	if lastErr != nil {
		st.Error = lastErr.Error()
	}
	return st
}

// StatusText is the user-facing status line. A session that was stopped
// by the user reads "Stopped"; one that lost its stream reads
// "Disconnected".
func StatusText(state session.State, sessionID string, err error) string {
	switch state {
	case session.Connected:
		return "Connected"
	case session.Error:
		return "Connection Error"
	}
	if err != nil || sessionID == "" {
		return "Disconnected"
	}
	return "Stopped"
}

// Export writes the store to a new file.
func (a *App) Export() (string, error) {
	return a.Exporter.Export(a.Store)
}

// ExportMessage is the user-facing outcome of an export.
func ExportMessage(path string, err error) string {
	var werr *export.WriteError
	switch {
	case err == nil:
		return "Saved to " + path
	case errors.Is(err, export.ErrEmptyStore):
		return "Nothing to export: no data collected."
	case errors.As(err, &werr):
		return "Export failed: " + werr.Err.Error()
	default:
		return "Export failed: " + err.Error()
	}
}

// FormatReading renders the live values.
func FormatReading(r env.Reading) string {
	if !r.InPhysicRange() {
		return fmt.Sprintf("Temp: %.1f °C  Pressure: %d Pa  Humidity: %d %%",
			r.Temperature, r.Pressure, r.Humidity)
	}
	e := r.Env()
	return fmt.Sprintf("Temp: %.1f °C  Pressure: %d Pa (%s)  Humidity: %d %%",
		r.Temperature, r.Pressure, e.Pressure, r.Humidity)
}

// FormatAverages renders the running averages, or placeholders before the
// first reading.
func FormatAverages(avg *store.Averages) string {
	if avg == nil {
		return "Avg Temp: --  Avg Pressure: --  Avg Humidity: --"
	}
	return fmt.Sprintf("Avg Temp: %.1f  Avg Pressure: %.1f  Avg Humidity: %.1f",
		avg.Temp, avg.Press, avg.Humid)
}
