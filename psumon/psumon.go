/*Package psumon contains the machinery for a PSU telemetry recorder.

It samples voltage and current from a supply every <duration> and stores
up to N of them in ring buffers to return over HTTP, so operators can see
ramp behavior without polling the device themselves.
*/
package psumon

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/brandondube/ringo"
)

// Source is a device the monitor can sample.  *heinzinger.Supply satisfies it.
type Source interface {
	// Voltage reads the output voltage, volts
	Voltage() (float64, error)

	// Current reads the output current, mA
	Current() (float64, error)
}

// Monitor stores ring buffers of voltage and current and can serve the
// slices over HTTP
type Monitor struct {
	V    ringo.CircleF64
	I    ringo.CircleF64
	Time ringo.CircleTime

	src    Source
	mu     *sync.Mutex
	ticker *time.Ticker
	stop   chan struct{}
}

type history struct {
	V    *[]float64   `json:"voltage"`
	I    *[]float64   `json:"current"`
	Time *[]time.Time `json:"timestamp"`
}

// New creates a new Monitor and initializes the internal machinery.
// mu is the lock serializing access to the supply; the supplies perform
// no internal locking, so the monitor must share a mutex with any other
// goroutine touching the same device.  It may be nil if the caller
// guarantees exclusive access.  A non-positive tick or capacity comes
// from an unpopulated config and falls back to one second and one hour
// of samples.
func New(src Source, mu *sync.Mutex, tick time.Duration, capacity int) *Monitor {
	if tick <= 0 {
		tick = time.Second
	}
	if capacity <= 0 {
		capacity = 3600
	}
	v := ringo.CircleF64{}
	v.Init(capacity)
	i := ringo.CircleF64{}
	i.Init(capacity)
	times := ringo.CircleTime{}
	times.Init(capacity)
	return &Monitor{
		V:      v,
		I:      i,
		Time:   times,
		src:    src,
		mu:     mu,
		ticker: time.NewTicker(tick),
		stop:   make(chan struct{})}
}

// Start triggers operation of the monitor
func (m *Monitor) Start() {
	go m.runner()
}

// Stop kills the monitor.  It may not be restarted.
func (m *Monitor) Stop() {
	m.ticker.Stop()
	close(m.stop)
}

func (m *Monitor) runner() {
	for {
		select {
		case t := <-m.ticker.C:
			if err := m.sample(t); err != nil {
				log.Printf("psumon: error sampling supply, %q", err)
			}
		case <-m.stop:
			return
		}
	}
}

// sample reads the supply and appends to the rings.  mu covers the
// appends as well as the device access, so a reader holding the same
// mutex sees consistent buffers.
func (m *Monitor) sample(t time.Time) error {
	if m.mu != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	v, err := m.src.Voltage()
	if err != nil {
		return err
	}
	i, err := m.src.Current()
	if err != nil {
		return err
	}
	m.Time.Append(t)
	m.V.Append(v)
	m.I.Append(i)
	return nil
}

// HTTPYield returns an object over HTTP which contains arrays of voltage,
// current, and timestamps.  The caller must hold the mutex shared with
// the sampler while this runs; the control server does so with its
// per-node serialize middleware.
func (m *Monitor) HTTPYield(w http.ResponseWriter, r *http.Request) {
	bufV := m.V.Contiguous()
	bufI := m.I.Contiguous()
	bufT := m.Time.Contiguous()
	s := history{
		V:    &bufV,
		I:    &bufI,
		Time: &bufT}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	err := json.NewEncoder(w).Encode(s)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
	return
}
