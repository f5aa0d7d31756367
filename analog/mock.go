package analog

import (
	"errors"
	"sync"

	"github.com/iontrap/hvpsu/heinzinger"
)

// ErrMockFailure is returned by a Mock with failure injection enabled
var ErrMockFailure = errors.New("analog: injected hardware failure")

// Mock implements heinzinger.AnalogInterface in memory, for tests and
// for running the control service without hardware attached.  Monitor
// channels echo the code latched on the corresponding DAC, emulating a
// supply whose output tracks its programming input exactly.
type Mock struct {
	sync.Mutex

	codes map[heinzinger.Channel]uint16

	// FailWrites causes every Write to fail without changing state
	FailWrites bool

	// FailReads causes every Read to fail
	FailReads bool
}

// NewMock returns a Mock with all channels at zero
func NewMock() *Mock {
	return &Mock{codes: make(map[heinzinger.Channel]uint16)}
}

// Write latches a code, or fails if FailWrites is set
func (m *Mock) Write(ch heinzinger.Channel, code uint16) error {
	m.Lock()
	defer m.Unlock()
	if m.FailWrites {
		return ErrMockFailure
	}
	m.codes[ch] = code
	return nil
}

// Read reports a latched code; monitor channels mirror their DAC
func (m *Mock) Read(ch heinzinger.Channel) (uint16, error) {
	m.Lock()
	defer m.Unlock()
	if m.FailReads {
		return 0, ErrMockFailure
	}
	switch ch {
	case heinzinger.ChanVoltageMon:
		return m.codes[heinzinger.ChanVoltageDAC], nil
	case heinzinger.ChanCurrentMon:
		return m.codes[heinzinger.ChanCurrentDAC], nil
	default:
		return m.codes[ch], nil
	}
}

// Code returns the last code latched on a channel
func (m *Mock) Code(ch heinzinger.Channel) uint16 {
	m.Lock()
	defer m.Unlock()
	return m.codes[ch]
}
