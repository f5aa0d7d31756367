package heinzinger_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iontrap/hvpsu/analog"
	"github.com/iontrap/hvpsu/heinzinger"
	"github.com/iontrap/hvpsu/server"

	"goji.io"
)

func newWrapped(t *testing.T) (*goji.Mux, *heinzinger.Supply) {
	t.Helper()
	psu, _ := newSupply(t, heinzinger.DefaultConfig())
	w := heinzinger.NewHTTPWrapper(psu)
	mux := goji.NewMux()
	w.RT().Bind(mux)
	return mux, psu
}

func TestHTTPSetThenGetVoltage(t *testing.T) {
	mux, _ := newWrapped(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/voltage", strings.NewReader(`{"f64": 12000}`))
	mux.ServeHTTP(w, r)
	if w.Code != 200 {
		t.Fatalf("set voltage returned %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/voltage", nil)
	mux.ServeHTTP(w, r)
	if w.Code != 200 {
		t.Fatalf("get voltage returned %d", w.Code)
	}
	var out server.FloatT
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if out.F64 < 11999 || out.F64 > 12001 {
		t.Errorf("expected ~12000 back, got %g", out.F64)
	}
}

func TestHTTPBadBodyRejected(t *testing.T) {
	mux, _ := newWrapped(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/voltage", strings.NewReader("not json"))
	mux.ServeHTTP(w, r)
	if w.Code != 400 {
		t.Errorf("expected 400 for a malformed body, got %d", w.Code)
	}
}

func TestHTTPRelayRoundTrip(t *testing.T) {
	mux, psu := newWrapped(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/relay", strings.NewReader(`{"bool": true}`))
	mux.ServeHTTP(w, r)
	if w.Code != 200 {
		t.Fatalf("set relay returned %d: %s", w.Code, w.Body.String())
	}
	if !psu.Relay() {
		t.Error("relay cache should be true")
	}

	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/relay", nil)
	mux.ServeHTTP(w, r)
	var out server.BoolT
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if !out.Bool {
		t.Error("expected relay true over HTTP")
	}
}

func TestHTTPReadBundle(t *testing.T) {
	mux, psu := newWrapped(t)
	if err := psu.SetVoltage(5000); err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/read", nil)
	mux.ServeHTTP(w, r)
	var out struct {
		Voltage float64 `json:"voltage"`
		Current float64 `json:"current"`
		On      bool    `json:"on"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if out.Voltage < 4999 || out.Voltage > 5001 {
		t.Errorf("expected ~5000 V in bundle, got %g", out.Voltage)
	}
}
