package psumon

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeSource struct {
	v, i float64
	fail bool
}

func (f fakeSource) Voltage() (float64, error) {
	if f.fail {
		return 0, errors.New("no hardware")
	}
	return f.v, nil
}

func (f fakeSource) Current() (float64, error) {
	if f.fail {
		return 0, errors.New("no hardware")
	}
	return f.i, nil
}

func TestSampleReadsBothQuantities(t *testing.T) {
	m := New(fakeSource{v: 1500, i: 0.25}, &sync.Mutex{}, time.Hour, 4)
	defer m.Stop()
	if err := m.sample(time.Now()); err != nil {
		t.Fatalf("sample: %v", err)
	}
	vs := m.V.Contiguous()
	is := m.I.Contiguous()
	if len(vs) != 1 || vs[0] != 1500 {
		t.Errorf("expected voltage buffer [1500], got %v", vs)
	}
	if len(is) != 1 || is[0] != 0.25 {
		t.Errorf("expected current buffer [0.25], got %v", is)
	}
}

func TestSampleSurfacesErrorsWithoutAppending(t *testing.T) {
	m := New(fakeSource{fail: true}, nil, time.Hour, 4)
	defer m.Stop()
	if err := m.sample(time.Now()); err == nil {
		t.Error("expected an error from a failing source")
	}
	if vs := m.V.Contiguous(); len(vs) != 0 {
		t.Errorf("failed sample must not append, got %v", vs)
	}
}

func TestRunnerAppendsToBuffers(t *testing.T) {
	mu := &sync.Mutex{}
	m := New(fakeSource{v: 100, i: 1}, mu, time.Millisecond, 8)
	m.Start()
	time.Sleep(50 * time.Millisecond)
	m.Stop()
	mu.Lock()
	vs := m.V.Contiguous()
	mu.Unlock()
	if len(vs) == 0 || vs[len(vs)-1] != 100 {
		t.Errorf("expected buffered samples of 100, got %v", vs)
	}
}

func TestHistoryServesWhileSampling(t *testing.T) {
	mu := &sync.Mutex{}
	m := New(fakeSource{v: 100, i: 1}, mu, time.Millisecond, 16)
	m.Start()
	defer m.Stop()
	for j := 0; j < 50; j++ {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/history", nil)
		mu.Lock()
		m.HTTPYield(w, r)
		mu.Unlock()
		if w.Code != 200 {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}
}

func TestNewToleratesUnpopulatedSetup(t *testing.T) {
	m := New(fakeSource{v: 100, i: 1}, nil, 0, 0)
	defer m.Stop()
	if err := m.sample(time.Now()); err != nil {
		t.Fatalf("sample: %v", err)
	}
	if vs := m.V.Contiguous(); len(vs) != 1 || vs[0] != 100 {
		t.Errorf("expected voltage buffer [100], got %v", vs)
	}
}

func TestHTTPYieldEncodesHistory(t *testing.T) {
	m := New(fakeSource{v: 100, i: 1}, nil, time.Hour, 4)
	defer m.Stop()
	m.V.Append(100)
	m.I.Append(1)
	m.Time.Append(time.Now())
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/history", nil)
	m.HTTPYield(w, r)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out struct {
		V []float64 `json:"voltage"`
		I []float64 `json:"current"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if len(out.V) != 1 || out.V[0] != 100 {
		t.Errorf("expected voltage history [100], got %v", out.V)
	}
}
