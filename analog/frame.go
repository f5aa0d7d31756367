// Package analog speaks the binary protocol of the 16-bit DAC/ADC USB
// interface board used to steer analog-programmed high voltage supplies.
//
// The board exchanges fixed 32-byte frames over a bulk endpoint.  Every
// transaction is a query: the host writes one frame, the board answers
// with one frame carrying the full telemetry snapshot (both DAC readback
// registers, eight ADC words, relay state).  A set mask in the command
// frame selects which output registers the board should latch.
package analog

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Magic is the sync word carried by every frame in both directions
	Magic uint32 = 0xA4A7051F

	// FrameSize is the wire size of a frame, bytes
	FrameSize = 32

	maskDACA  = 1 << 0
	maskDACB  = 1 << 1
	maskRelay = 1 << 2

	// statusBenign is a device status word the firmware raises during
	// normal operation.  It does not indicate a failed transaction.
	statusBenign = 0x0F00
)

var (
	// ErrBadMagic is generated when a response frame does not begin with Magic
	ErrBadMagic = errors.New("analog: magic number in response does not correspond")

	// ErrBadChecksum is generated when a response frame fails checksum validation
	ErrBadChecksum = errors.New("analog: checksum in response does not correspond")

	// ErrShortFrame is generated when fewer than FrameSize bytes are (de)coded
	ErrShortFrame = errors.New("analog: frame shorter than 32 bytes")
)

// Frame is the host<->board datagram.  Field order matches the wire
// layout; all multi-byte fields are little endian.
type Frame struct {
	Magic      uint32
	Checksum   uint16
	SequenceNo uint16
	Response   int16
	ADCA       [4]int16
	ADCB       [4]uint16
	DACA       uint16
	DACB       uint16
	Relay      uint8
	SetMask    uint8
}

// encode serializes the frame and stamps the checksum word
func (f Frame) encode() []byte {
	buf := make([]byte, FrameSize)
	binary.LittleEndian.PutUint32(buf[0:], f.Magic)
	// checksum at [4:6] is computed over the zeroed field below
	binary.LittleEndian.PutUint16(buf[6:], f.SequenceNo)
	binary.LittleEndian.PutUint16(buf[8:], uint16(f.Response))
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint16(buf[10+2*i:], uint16(f.ADCA[i]))
		binary.LittleEndian.PutUint16(buf[18+2*i:], f.ADCB[i])
	}
	binary.LittleEndian.PutUint16(buf[26:], f.DACA)
	binary.LittleEndian.PutUint16(buf[28:], f.DACB)
	buf[30] = f.Relay
	buf[31] = f.SetMask
	binary.LittleEndian.PutUint16(buf[4:], foldChecksum(buf))
	return buf
}

// decodeFrame parses a received frame, validating magic and checksum
func decodeFrame(buf []byte) (Frame, error) {
	var f Frame
	if len(buf) < FrameSize {
		return f, fmt.Errorf("%w: got %d", ErrShortFrame, len(buf))
	}
	buf = buf[:FrameSize]
	f.Magic = binary.LittleEndian.Uint32(buf[0:])
	if f.Magic != Magic {
		return f, ErrBadMagic
	}
	if foldChecksum(buf) != 0 {
		return f, ErrBadChecksum
	}
	f.Checksum = binary.LittleEndian.Uint16(buf[4:])
	f.SequenceNo = binary.LittleEndian.Uint16(buf[6:])
	f.Response = int16(binary.LittleEndian.Uint16(buf[8:]))
	for i := 0; i < 4; i++ {
		f.ADCA[i] = int16(binary.LittleEndian.Uint16(buf[10+2*i:]))
		f.ADCB[i] = binary.LittleEndian.Uint16(buf[18+2*i:])
	}
	f.DACA = binary.LittleEndian.Uint16(buf[26:])
	f.DACB = binary.LittleEndian.Uint16(buf[28:])
	f.Relay = buf[30]
	f.SetMask = buf[31]
	return f, nil
}

// foldChecksum XOR-folds the buffer as little endian uint16 words with a
// seed of 0xFFFF.  A frame carrying a valid checksum folds to zero.  The
// algorithm is fixed by the board firmware.
func foldChecksum(buf []byte) uint16 {
	var res uint16 = 0xFFFF
	for i := 0; i+1 < len(buf); i += 2 {
		res ^= binary.LittleEndian.Uint16(buf[i:])
	}
	return res
}

// command returns a zeroed command frame with the magic stamped
func command() Frame {
	return Frame{Magic: Magic}
}
