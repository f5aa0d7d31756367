package analog

import (
	"encoding/hex"
	"fmt"
	"log"

	"github.com/cenkalti/backoff"
	"github.com/google/gousb"
)

const (
	// DefaultVendorID is the USB vendor ID of the interface board
	DefaultVendorID gousb.ID = 0xA0A0

	// DefaultProductID is the USB product ID of the interface board
	DefaultProductID gousb.ID = 0x000C

	// the board exposes a single bulk endpoint pair at address 1
	endpointNum = 1
)

// Snapshot is the telemetry carried by every response frame
type Snapshot struct {
	// ADCA holds the four signed auxiliary ADC words
	ADCA [4]int16

	// ADCB holds the four unsigned monitor ADC words.  Index 2 is the
	// voltage monitor, index 3 the current monitor.
	ADCB [4]uint16

	// DACA and DACB are readbacks of the latched output registers
	DACA uint16
	DACB uint16

	// Relay is true when the output relay is closed
	Relay bool

	// Sequence is the board's frame counter
	Sequence uint16

	// Status is the device status word from the last transaction
	Status int16
}

// Board is an open connection to one interface board.  It is not
// concurrent safe; the owning Supply serializes access.
type Board struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	iface  *gousb.Interface
	closer func()
	in     *gousb.InEndpoint
	out    *gousb.OutEndpoint

	seq  uint16
	last Snapshot

	// Verbose enables hex dumps of each frame in both directions
	Verbose bool
}

// Open connects to the index-th board matching vid/pid on the bus.
// Enumeration is retried with exponential backoff; the boards take a
// moment to come up after plug-in.
func Open(vid, pid gousb.ID, index int) (*Board, error) {
	b := &Board{ctx: gousb.NewContext()}
	connect := func() error {
		seen := 0
		devs, err := b.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
			if desc.Vendor == vid && desc.Product == pid {
				if seen == index {
					seen++
					return true
				}
				seen++
			}
			return false
		})
		if err != nil {
			for _, d := range devs {
				d.Close()
			}
			return err
		}
		if len(devs) == 0 {
			return fmt.Errorf("analog: no board #%d with ID %s:%s on the bus", index, vid, pid)
		}
		b.dev = devs[0]
		return nil
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(connect, policy); err != nil {
		b.ctx.Close()
		return nil, err
	}
	if err := b.dev.SetAutoDetach(true); err != nil {
		b.Close()
		return nil, err
	}
	var err error
	b.iface, b.closer, err = b.dev.DefaultInterface()
	if err != nil {
		b.Close()
		return nil, err
	}
	b.in, err = b.iface.InEndpoint(endpointNum)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.out, err = b.iface.OutEndpoint(endpointNum)
	if err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Close releases the USB interface and context
func (b *Board) Close() error {
	if b.closer != nil {
		b.closer()
		b.closer = nil
	}
	var err error
	if b.dev != nil {
		err = b.dev.Close()
		b.dev = nil
	}
	if b.ctx != nil {
		if cerr := b.ctx.Close(); err == nil {
			err = cerr
		}
		b.ctx = nil
	}
	return err
}

// query performs one transaction: write the command frame, read the
// response, validate it, and retain the telemetry snapshot
func (b *Board) query(cmd Frame) (Snapshot, error) {
	cmd.SequenceNo = b.seq
	b.seq++
	buf := cmd.encode()
	if b.Verbose {
		log.Printf("analog: > mask %03b %s", cmd.SetMask, hex.EncodeToString(buf))
	}
	n, err := b.out.Write(buf)
	if err != nil {
		return Snapshot{}, fmt.Errorf("analog: bulk write: %w", err)
	}
	if n != FrameSize {
		return Snapshot{}, fmt.Errorf("analog: wrote %d of %d frame bytes", n, FrameSize)
	}
	rbuf := make([]byte, FrameSize)
	n, err = b.in.Read(rbuf)
	if err != nil {
		return Snapshot{}, fmt.Errorf("analog: bulk read: %w", err)
	}
	if b.Verbose {
		log.Printf("analog: < %s", hex.EncodeToString(rbuf[:n]))
	}
	resp, err := decodeFrame(rbuf[:n])
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		ADCA:     resp.ADCA,
		ADCB:     resp.ADCB,
		DACA:     resp.DACA,
		DACB:     resp.DACB,
		Relay:    resp.Relay != 0,
		Sequence: resp.SequenceNo,
		Status:   resp.Response}
	b.last = snap
	// the firmware raises statusBenign during normal operation; only
	// other nonzero words indicate a failed transaction
	if resp.Response != 0 && resp.Response != statusBenign {
		return snap, fmt.Errorf("analog: device reported error word 0x%04X", uint16(resp.Response))
	}
	return snap, nil
}

// SetDACA latches a code on DAC channel A (voltage programming)
func (b *Board) SetDACA(code uint16) error {
	cmd := command()
	cmd.SetMask = maskDACA
	cmd.DACA = code
	_, err := b.query(cmd)
	return err
}

// SetDACB latches a code on DAC channel B (current programming)
func (b *Board) SetDACB(code uint16) error {
	cmd := command()
	cmd.SetMask = maskDACB
	cmd.DACB = code
	_, err := b.query(cmd)
	return err
}

// SetRelay commands the output relay
func (b *Board) SetRelay(on bool) error {
	cmd := command()
	cmd.SetMask = maskRelay
	if on {
		cmd.Relay = 1
	}
	_, err := b.query(cmd)
	return err
}

// Readout performs a pure telemetry transaction with no outputs latched
func (b *Board) Readout() (Snapshot, error) {
	return b.query(command())
}

// LastSnapshot returns the telemetry from the most recent transaction
// without touching the hardware
func (b *Board) LastSnapshot() Snapshot {
	return b.last
}
