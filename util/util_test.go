package util_test

import (
	"testing"
	"time"

	"github.com/iontrap/hvpsu/util"
)

func TestClampHigh(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 20.
	)
	clamped := util.Clamp(input, low, high)
	if clamped != high {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampLow(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = -1.
	)
	clamped := util.Clamp(input, low, high)
	if clamped != low {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampPassthrough(t *testing.T) {
	out := util.Clamp(5, 0, 10)
	if out != 5 {
		t.Errorf("expected in-range value to pass unchanged, got %f", out)
	}
}

func TestLimiterZeroValuePasses(t *testing.T) {
	l := util.Limiter{}
	if !l.Check(1e6) {
		t.Error("unconfigured limiter rejected a value")
	}
	if l.Clamp(1e6) != 1e6 {
		t.Error("unconfigured limiter modified a value")
	}
}

func TestLimiterConfigured(t *testing.T) {
	l := util.Limiter{Min: 0, Max: 1000, Present: true}
	if l.Check(2000) {
		t.Error("limiter passed an out of range value")
	}
	if l.Clamp(2000) != 1000 {
		t.Errorf("expected clamp to 1000, got %f", l.Clamp(2000))
	}
}

func TestSecsToDuration(t *testing.T) {
	var dur time.Duration = 123456789
	secs := dur.Seconds()
	out := util.SecsToDuration(secs)
	if out != dur {
		t.Errorf("expected SecsToDuration to round trip, output %v != expected %v", out, dur)
	}
}
