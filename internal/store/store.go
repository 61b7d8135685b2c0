// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package store

import (
	"sync"

	"github.com/relabs-tech/sensor_monitor/internal/env"
)

// Averages holds the arithmetic mean of every stored reading.
type Averages struct {
	Temp  float64 `json:"temp"`
	Press float64 `json:"press"`
	Humid float64 `json:"humid"`
}

// Store is an append-only, ordered collection of readings with running
// sums. It grows without bound for the life of the process; there is no
// eviction.
//
// A single acquisition worker appends while the shell reads averages and
// snapshots, so every access goes through mu.
type Store struct {
	mu       sync.RWMutex
	readings []env.Reading

	// Float sums, like Mean: pressure and humidity are unbounded ints.
	sumTemp  float64
	sumPress float64
	sumHumid float64
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Append adds r and returns the averages including it, computed under the
// same lock so callers never see a sum from one append with the count of
// another.
func (s *Store) Append(r env.Reading) Averages {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readings = append(s.readings, r)
	s.sumTemp += r.Temperature
	s.sumPress += float64(r.Pressure)
	s.sumHumid += float64(r.Humidity)

	return s.averagesLocked()
}

// Averages returns false while the store is empty.
func (s *Store) Averages() (Averages, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.readings) == 0 {
		return Averages{}, false
	}
	return s.averagesLocked(), true
}

func (s *Store) averagesLocked() Averages {
	n := float64(len(s.readings))
	return Averages{
		Temp:  s.sumTemp / n,
		Press: s.sumPress / n,
		Humid: s.sumHumid / n,
	}
}

// Snapshot returns a copy of all readings in arrival order.
func (s *Store) Snapshot() []env.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]env.Reading, len(s.readings))
	copy(out, s.readings)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings)
}

// Last returns the most recent reading, if any.
func (s *Store) Last() (env.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.readings) == 0 {
		return env.Reading{}, false
	}
	return s.readings[len(s.readings)-1], true
}

// Mean computes averages over an arbitrary slice of readings. It is used
// where a consistent snapshot matters more than the running sums.
func Mean(readings []env.Reading) (Averages, bool) {
	if len(readings) == 0 {
		return Averages{}, false
	}
	var a Averages
	for _, r := range readings {
		a.Temp += r.Temperature
		a.Press += float64(r.Pressure)
		a.Humid += float64(r.Humidity)
	}
	n := float64(len(readings))
	a.Temp /= n
	a.Press /= n
	a.Humid /= n
	return a, true
}
