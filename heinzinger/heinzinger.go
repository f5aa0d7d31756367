/*Package heinzinger controls Heinzinger PNC (and similar FUG) high voltage
supplies steered through a 16-bit analog interface board.

The supplies have no digital protocol of their own; output voltage and
current limits are programmed by an analog voltage on their control input,
and monitor outputs report the live values the same way.  This package
translates between physical units and DAC/ADC codes, clamps every command
against the calibrated ceilings of the supply, and keeps a cache of the
last accepted setpoints.

Some configurations cannot read a quantity back from the hardware (the
monitor line is not wired, or the supply lacks one).  Reads of such a
quantity return the cached setpoint instead of erroring.  This guarantees
read-after-write consistency at the cost of not observing drift between
the supply and the cache; callers who need fault detection should wire
the monitor line.

Basic usage:
 board, err := analog.Open(analog.DefaultVendorID, analog.DefaultProductID, 0)
 if err != nil {
 	log.Fatal(err)
 }
 defer board.Close()
 psu, err := heinzinger.New(analog.NewConn(board), heinzinger.DefaultConfig())
 if err != nil {
 	log.Fatal(err)
 }
 psu.SetCurrent(1.5) // mA, limit first
 psu.SetVoltage(15000)
 psu.On()
*/
package heinzinger

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/iontrap/hvpsu/util"
)

// Channel identifies a line on the analog interface board.  The
// assignment is fixed wiring, not negotiated at runtime.
type Channel int

const (
	// ChanVoltageDAC is the DAC programming the voltage setpoint
	ChanVoltageDAC Channel = iota

	// ChanCurrentDAC is the DAC programming the current limit
	ChanCurrentDAC

	// ChanRelay is the output enable relay; any nonzero code closes it
	ChanRelay

	// ChanVoltageMon is the ADC sampling the voltage monitor output
	ChanVoltageMon

	// ChanCurrentMon is the ADC sampling the current monitor output
	ChanCurrentMon

	// ChanAuxMon0 and ChanAuxMon1 are the spare ADC inputs on the
	// monitor bank, unconnected in the standard wiring
	ChanAuxMon0
	ChanAuxMon1
)

// AnalogInterface is the raw binary capability consumed by a Supply.
// analog.Conn implements it against the USB interface board; the mock
// in package analog implements it in memory.
type AnalogInterface interface {
	// Write latches a code on an output channel
	Write(ch Channel, code uint16) error

	// Read samples an input channel, or echoes the latched code of an
	// output channel
	Read(ch Channel) (uint16, error)
}

var (
	// ErrInvalidConfiguration is generated when a Supply is constructed
	// with nonsensical limits.  The Supply is not usable.
	ErrInvalidConfiguration = errors.New("heinzinger: invalid configuration")

	// ErrNoRelay is generated when relay control is commanded on a supply
	// configured without one (some units are switched on at the front
	// panel and have no relay line wired).
	ErrNoRelay = errors.New("heinzinger: supply has no output relay")
)

// Config holds the calibration constants and policy flags of one supply.
// The zero value is not valid; start from DefaultConfig.
type Config struct {
	// MaxVoltage is the absolute ceiling for commanded voltage, volts
	MaxVoltage float64 `yaml:"MaxVoltage"`

	// MaxCurrent is the absolute ceiling for commanded current, mA
	MaxCurrent float64 `yaml:"MaxCurrent"`

	// FullScaleInput is the analog programming range of the supply, volts.
	// Typically 10V for Heinzinger and FUG.
	FullScaleInput float64 `yaml:"FullScaleInput"`

	// BoardFullScale is the output range of the interface board DAC,
	// volts.  Zero means equal to FullScaleInput.  The populated value
	// for the boards in this lab is 11.3.
	BoardFullScale float64 `yaml:"BoardFullScale"`

	// NoRelay disables relay control (Heinzinger)
	NoRelay bool `yaml:"NoRelay"`

	// NoVoltageReadback routes voltage reads to the setpoint cache
	NoVoltageReadback bool `yaml:"NoVoltageReadback"`

	// NoCurrentReadback routes current reads to the setpoint cache
	NoCurrentReadback bool `yaml:"NoCurrentReadback"`

	// Verbose enables diagnostic logging of each operation
	Verbose bool `yaml:"Verbose"`

	// Log is the diagnostic sink; nil means the stdlib default logger
	Log *log.Logger `yaml:"-"`
}

// DefaultConfig returns the configuration for a typical Heinzinger PNC
// 30kV/2mA supply on a 10V programming input
func DefaultConfig() Config {
	return Config{
		MaxVoltage:     30000,
		MaxCurrent:     2,
		FullScaleInput: 10}
}

// FUGConfig returns the configuration for the FUG HCP 50kV/0.5mA supply,
// which carries an output relay
func FUGConfig() Config {
	return Config{
		MaxVoltage:     50000,
		MaxCurrent:     0.5,
		FullScaleInput: 10}
}

// Supply is one high voltage supply behind an analog interface.
// It owns its AnalogInterface exclusively and performs no internal
// locking; accesses from multiple goroutines must be serialized by
// the caller.
type Supply struct {
	iface AnalogInterface

	cfg Config

	// fullScaleCode is the code corresponding to FullScaleInput on the
	// board DAC; constant after construction
	fullScaleCode uint16

	// setpoint caches, updated iff the hardware write succeeded
	voltCache  float64
	currCache  float64
	relayCache bool
}

// New returns a Supply bound to the given analog capability, or
// ErrInvalidConfiguration if the limits are nonsensical.
func New(iface AnalogInterface, cfg Config) (*Supply, error) {
	if iface == nil {
		return nil, fmt.Errorf("%w: nil analog interface", ErrInvalidConfiguration)
	}
	if cfg.MaxVoltage <= 0 {
		return nil, fmt.Errorf("%w: max voltage %v <= 0", ErrInvalidConfiguration, cfg.MaxVoltage)
	}
	if cfg.MaxCurrent <= 0 {
		return nil, fmt.Errorf("%w: max current %v <= 0", ErrInvalidConfiguration, cfg.MaxCurrent)
	}
	if cfg.FullScaleInput <= 0 {
		return nil, fmt.Errorf("%w: full scale input %v <= 0", ErrInvalidConfiguration, cfg.FullScaleInput)
	}
	if cfg.BoardFullScale == 0 {
		cfg.BoardFullScale = cfg.FullScaleInput
	}
	if cfg.BoardFullScale < cfg.FullScaleInput {
		return nil, fmt.Errorf("%w: board full scale %v V below supply programming range %v V",
			ErrInvalidConfiguration, cfg.BoardFullScale, cfg.FullScaleInput)
	}
	fsc := uint16(math.Round(65535 * cfg.FullScaleInput / cfg.BoardFullScale))
	return &Supply{iface: iface, cfg: cfg, fullScaleCode: fsc}, nil
}

// Config returns the configuration the supply was built with
func (s *Supply) Config() Config {
	return s.cfg
}

// FullScaleCode returns the DAC code corresponding to the supply's full
// programming input
func (s *Supply) FullScaleCode() uint16 {
	return s.fullScaleCode
}

// toCode converts a physical value on [0, max] to a DAC code.
// The value is clamped before scaling; the code saturates at the 16-bit
// boundary rather than wrapping.
func (s *Supply) toCode(value, max float64) uint16 {
	value = util.Clamp(value, 0, max)
	code := math.Round(value / max * float64(s.fullScaleCode))
	if code > 65535 {
		code = 65535
	}
	if code < 0 {
		code = 0
	}
	return uint16(code)
}

// fromCode converts an ADC code back to physical units on [0, max]
func (s *Supply) fromCode(code uint16, max float64) float64 {
	return float64(code) / float64(s.fullScaleCode) * max
}

// SetVoltage programs the output voltage setpoint, volts.  Values outside
// [0, MaxVoltage] are clamped, not rejected.  The cached setpoint is
// updated only if the hardware accepted the write.
func (s *Supply) SetVoltage(v float64) error {
	clamped := util.Clamp(v, 0, s.cfg.MaxVoltage)
	code := s.toCode(clamped, s.cfg.MaxVoltage)
	if err := s.iface.Write(ChanVoltageDAC, code); err != nil {
		return fmt.Errorf("heinzinger: set voltage: %w", err)
	}
	s.voltCache = clamped
	s.logf("set voltage %g V (requested %g) -> code %d", clamped, v, code)
	return nil
}

// SetCurrent programs the current limit, mA, with the same clamping and
// caching contract as SetVoltage.
func (s *Supply) SetCurrent(c float64) error {
	clamped := util.Clamp(c, 0, s.cfg.MaxCurrent)
	code := s.toCode(clamped, s.cfg.MaxCurrent)
	if err := s.iface.Write(ChanCurrentDAC, code); err != nil {
		return fmt.Errorf("heinzinger: set current: %w", err)
	}
	s.currCache = clamped
	s.logf("set current %g mA (requested %g) -> code %d", clamped, c, code)
	return nil
}

// SetMaxVoltage drives the voltage setpoint to the configured ceiling.
// It is a convenience alias for SetVoltage(MaxVoltage).
func (s *Supply) SetMaxVoltage() error {
	return s.SetVoltage(s.cfg.MaxVoltage)
}

// SetMaxCurrent drives the current limit to the configured ceiling
func (s *Supply) SetMaxCurrent() error {
	return s.SetCurrent(s.cfg.MaxCurrent)
}

// On closes the output relay.  Calling On on a closed relay is a no-op
// at the hardware and leaves the cached state true.
func (s *Supply) On() error {
	return s.setRelay(true)
}

// Off opens the output relay
func (s *Supply) Off() error {
	return s.setRelay(false)
}

func (s *Supply) setRelay(on bool) error {
	if s.cfg.NoRelay {
		return ErrNoRelay
	}
	var code uint16
	if on {
		code = 1
	}
	if err := s.iface.Write(ChanRelay, code); err != nil {
		return fmt.Errorf("heinzinger: switch relay: %w", err)
	}
	s.relayCache = on
	s.logf("relay -> %v", on)
	return nil
}

// Relay returns the last commanded relay state.  The board echoes the
// relay in telemetry, but the cache is authoritative for the same reason
// as setpoint fallback: it reflects the last accepted command.
func (s *Supply) Relay() bool {
	return s.relayCache
}

// Voltage reads the output voltage, volts.  If the monitor channel is
// wired the value comes from the ADC; otherwise the cached setpoint is
// returned and the error is always nil.
func (s *Supply) Voltage() (float64, error) {
	if s.cfg.NoVoltageReadback {
		return s.voltCache, nil
	}
	code, err := s.iface.Read(ChanVoltageMon)
	if err != nil {
		return 0, fmt.Errorf("heinzinger: read voltage: %w", err)
	}
	return s.fromCode(code, s.cfg.MaxVoltage), nil
}

// Current reads the output current, mA, with the same fallback contract
// as Voltage.
func (s *Supply) Current() (float64, error) {
	if s.cfg.NoCurrentReadback {
		return s.currCache, nil
	}
	code, err := s.iface.Read(ChanCurrentMon)
	if err != nil {
		return 0, fmt.Errorf("heinzinger: read current: %w", err)
	}
	return s.fromCode(code, s.cfg.MaxCurrent), nil
}

// VoltageSetpoint returns the cached voltage setpoint, volts
func (s *Supply) VoltageSetpoint() float64 {
	return s.voltCache
}

// CurrentSetpoint returns the cached current limit, mA
func (s *Supply) CurrentSetpoint() float64 {
	return s.currCache
}

// RawADC samples the full monitor ADC bank and returns the raw codes
// without unit conversion, in bank order (aux 0, aux 1, voltage monitor,
// current monitor), for calibration and troubleshooting.  It has no
// effect on the cached state.
func (s *Supply) RawADC() ([]uint16, error) {
	chans := []Channel{ChanAuxMon0, ChanAuxMon1, ChanVoltageMon, ChanCurrentMon}
	out := make([]uint16, len(chans))
	for i, ch := range chans {
		code, err := s.iface.Read(ch)
		if err != nil {
			return nil, fmt.Errorf("heinzinger: raw ADC read: %w", err)
		}
		out[i] = code
	}
	return out, nil
}

func (s *Supply) logf(format string, args ...interface{}) {
	if !s.cfg.Verbose {
		return
	}
	if s.cfg.Log != nil {
		s.cfg.Log.Printf("heinzinger: "+format, args...)
		return
	}
	log.Printf("heinzinger: "+format, args...)
}
