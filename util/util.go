// Package util contains misc internal utilities.
package util

import (
	"time"
)

// Clamp restricts v to the range [low, high]
func Clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// Limiter holds a min/max pair and can clamp values to it.
// An unconfigured Limiter passes everything through; a zero Min,Max
// pair from an unpopulated config would otherwise pin every command
// to zero.
type Limiter struct {
	Min float64 `yaml:"Min"`
	Max float64 `yaml:"Max"`

	// Present indicates the limiter was populated from config
	Present bool `yaml:"-"`
}

// Check returns true if v is within the limits
func (l Limiter) Check(v float64) bool {
	if !l.Present {
		return true
	}
	return v >= l.Min && v <= l.Max
}

// Clamp restricts v to the limits
func (l Limiter) Clamp(v float64) float64 {
	if !l.Present {
		return v
	}
	return Clamp(v, l.Min, l.Max)
}

// SecsToDuration converts a seconds value to a time.Duration
func SecsToDuration(s float64) time.Duration {
	return time.Duration(s * 1e9)
}
