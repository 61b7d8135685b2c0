// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import (
	"math"
	"time"

	"periph.io/x/conn/v3/physic"
)

// TimeLayout is the ISO-8601 layout used for Reading.Time (local wall clock,
// microsecond precision).
const TimeLayout = "2006-01-02T15:04:05.000000"

// Reading represents a single accepted sensor line. Field names double as the
// export record format.
type Reading struct {
	Time string `json:"time"` // ISO-8601, see TimeLayout

	Temperature float64 `json:"temp"`  // °C
	Pressure    int     `json:"press"` // Pa
	Humidity    int     `json:"humid"` // %
}

// NewReading stamps the three values with t.
func NewReading(t time.Time, temperature float64, pressure, humidity int) Reading {
	return Reading{
		Time:        t.Format(TimeLayout),
		Temperature: temperature,
		Pressure:    pressure,
		Humidity:    humidity,
	}
}

// MaxPressure is the largest pressure, in Pa, that physic.Pressure can hold.
const MaxPressure = math.MaxInt64 / int64(physic.Pascal)

const (
	maxHumidity    = math.MaxInt32 / int64(physic.PercentRH)
	maxTemperature = float64(math.MaxInt64 / int64(physic.Kelvin))
)

// InPhysicRange reports whether Env represents r without clamping.
func (r Reading) InPhysicRange() bool {
	p, h := int64(r.Pressure), int64(r.Humidity)
	return p >= -MaxPressure && p <= MaxPressure &&
		h >= -maxHumidity && h <= maxHumidity &&
		r.Temperature+273.15 >= -maxTemperature && r.Temperature+273.15 <= maxTemperature
}

// Env converts the reading into periph physic units for display. Values
// outside the physic range are clamped.
func (r Reading) Env() physic.Env {
	kelvin := min(max(r.Temperature+273.15, -maxTemperature), maxTemperature)
	return physic.Env{
		Temperature: physic.Temperature(kelvin * float64(physic.Kelvin)),
		Pressure:    physic.Pressure(clamp(int64(r.Pressure), MaxPressure)) * physic.Pascal,
		Humidity:    physic.RelativeHumidity(clamp(int64(r.Humidity), maxHumidity)) * physic.PercentRH,
	}
}

func clamp(v, limit int64) int64 {
	return min(max(v, -limit), limit)
}
