// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field keys in wire order: T=<float>&P=<int>&H=<int>
var fieldKeys = [3]string{"T", "P", "H"}

// ParseError is returned for any line that does not match the wire format.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Line, e.Reason)
}

// Parse turns one raw line into a Reading stamped with at. It is all or
// nothing: either every field converts or a *ParseError is returned.
// Values are not range checked.
func Parse(line string, at time.Time) (Reading, error) {
	line = strings.TrimSpace(line)

	parts := strings.Split(line, "&")
	if len(parts) != len(fieldKeys) {
		return Reading{}, &ParseError{Line: line, Reason: fmt.Sprintf("want %d fields, got %d", len(fieldKeys), len(parts))}
	}

	var values [3]string
	for i, part := range parts {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return Reading{}, &ParseError{Line: line, Reason: fmt.Sprintf("field %d: missing '='", i+1)}
		}
		if strings.TrimSpace(key) != fieldKeys[i] {
			return Reading{}, &ParseError{Line: line, Reason: fmt.Sprintf("field %d: want key %s, got %q", i+1, fieldKeys[i], key)}
		}
		values[i] = strings.TrimSpace(value)
	}

	temp, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return Reading{}, &ParseError{Line: line, Reason: fmt.Sprintf("temperature %q: not a number", values[0])}
	}
	// JSON has no NaN/Inf; such a reading could never be exported.
	if math.IsNaN(temp) || math.IsInf(temp, 0) {
		return Reading{}, &ParseError{Line: line, Reason: fmt.Sprintf("temperature %q: not finite", values[0])}
	}

	press, err := strconv.Atoi(values[1])
	if err != nil {
		return Reading{}, &ParseError{Line: line, Reason: fmt.Sprintf("pressure %q: not an integer", values[1])}
	}

	humid, err := strconv.Atoi(values[2])
	if err != nil {
		return Reading{}, &ParseError{Line: line, Reason: fmt.Sprintf("humidity %q: not an integer", values[2])}
	}

	return NewReading(at, temp, press, humid), nil
}
