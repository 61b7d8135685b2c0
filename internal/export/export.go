// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/relabs-tech/sensor_monitor/internal/env"
	"github.com/relabs-tech/sensor_monitor/internal/store"
)

// ErrEmptyStore is returned when there is nothing to export. No file is
// written in that case.
var ErrEmptyStore = errors.New("nothing to export: no data collected")

// WriteError wraps any failure while writing the export file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Document is the on-disk export format.
type Document struct {
	Records  []env.Reading  `json:"records"`
	Averages store.Averages `json:"averages"`
}

// Exporter writes store contents to timestamped JSON files in Dir.
type Exporter struct {
	Dir string

	now    func() time.Time
	logger *log.Logger
}

type Option func(*Exporter)

func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

func New(dir string, opts ...Option) *Exporter {
	if dir == "" {
		dir = "."
	}
	e := &Exporter{
		Dir:    dir,
		now:    time.Now,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FileName returns the export file name for t: export_YYYYMMDD_HHMMSS.json.
func FileName(t time.Time) string {
	return "export_" + t.Format("20060102_150405") + ".json"
}

// Export writes every reading in st plus their averages and returns the
// path written.
func (e *Exporter) Export(st *store.Store) (string, error) {
	records := st.Snapshot()
	avg, ok := store.Mean(records)
	if !ok {
		return "", ErrEmptyStore
	}

	path := filepath.Join(e.Dir, FileName(e.now()))
	doc := Document{Records: records, Averages: avg}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return "", &WriteError{Path: path, Err: err}
	}
	if err := writeFile(path, data); err != nil {
		return "", &WriteError{Path: path, Err: err}
	}

	e.logger.Info("exported samples", "path", path, "records", len(records))
	return path, nil
}

// writeFile writes through a temp file in the same directory so a failed
// export never leaves a truncated file at path.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadDocument loads a previously exported file.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read export %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode export %s: %w", path, err)
	}
	return doc, nil
}
