package analog

import (
	"testing"
)

func TestEncodedFrameFoldsToZero(t *testing.T) {
	f := command()
	f.SetMask = maskDACA
	f.DACA = 0x1234
	buf := f.encode()
	if len(buf) != FrameSize {
		t.Fatalf("expected %d byte frame, got %d", FrameSize, len(buf))
	}
	if fold := foldChecksum(buf); fold != 0 {
		t.Errorf("checksummed frame should fold to zero, got 0x%04X", fold)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	f := command()
	f.SequenceNo = 7
	f.SetMask = maskDACB | maskRelay
	f.DACB = 0xBEEF
	f.Relay = 1
	f.ADCA = [4]int16{-1, 2, -3, 4}
	f.ADCB = [4]uint16{10, 20, 30, 40}
	got, err := decodeFrame(f.encode())
	if err != nil {
		t.Fatalf("decode of a well formed frame failed: %v", err)
	}
	if got.SequenceNo != f.SequenceNo || got.SetMask != f.SetMask || got.DACB != f.DACB || got.Relay != f.Relay {
		t.Errorf("decoded frame differs from input: %+v", got)
	}
	if got.ADCA != f.ADCA || got.ADCB != f.ADCB {
		t.Errorf("ADC words did not survive the round trip: %+v", got)
	}
}

func TestCorruptFrameRejected(t *testing.T) {
	buf := command().encode()
	buf[12] ^= 0xFF
	if _, err := decodeFrame(buf); err != ErrBadChecksum {
		t.Errorf("expected ErrBadChecksum for corrupted body, got %v", err)
	}
}

func TestBadMagicRejected(t *testing.T) {
	buf := command().encode()
	buf[0] = 0x00
	if _, err := decodeFrame(buf); err != ErrBadMagic {
		t.Errorf("expected ErrBadMagic, got %v", err)
	}
}

func TestShortFrameRejected(t *testing.T) {
	if _, err := decodeFrame(make([]byte, 10)); err == nil {
		t.Error("expected an error for a short frame")
	}
}
