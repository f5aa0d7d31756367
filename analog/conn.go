package analog

import (
	"fmt"

	"github.com/iontrap/hvpsu/heinzinger"
)

// Conn adapts a Board to the heinzinger.AnalogInterface capability.
// The channel assignment matches the lab wiring: DAC A programs voltage,
// DAC B programs current, monitor outputs land on ADC B words 2 and 3.
type Conn struct {
	Board *Board
}

// NewConn wraps a board in the channel mapping
func NewConn(b *Board) Conn {
	return Conn{Board: b}
}

// Write latches a code on an output channel
func (c Conn) Write(ch heinzinger.Channel, code uint16) error {
	switch ch {
	case heinzinger.ChanVoltageDAC:
		return c.Board.SetDACA(code)
	case heinzinger.ChanCurrentDAC:
		return c.Board.SetDACB(code)
	case heinzinger.ChanRelay:
		return c.Board.SetRelay(code != 0)
	default:
		return fmt.Errorf("analog: channel %d is not writable", ch)
	}
}

// Read samples an input channel via a fresh telemetry transaction
func (c Conn) Read(ch heinzinger.Channel) (uint16, error) {
	snap, err := c.Board.Readout()
	if err != nil {
		return 0, err
	}
	switch ch {
	case heinzinger.ChanVoltageMon:
		return snap.ADCB[2], nil
	case heinzinger.ChanCurrentMon:
		return snap.ADCB[3], nil
	case heinzinger.ChanAuxMon0:
		return snap.ADCB[0], nil
	case heinzinger.ChanAuxMon1:
		return snap.ADCB[1], nil
	case heinzinger.ChanVoltageDAC:
		return snap.DACA, nil
	case heinzinger.ChanCurrentDAC:
		return snap.DACB, nil
	case heinzinger.ChanRelay:
		if snap.Relay {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("analog: unknown channel %d", ch)
	}
}
