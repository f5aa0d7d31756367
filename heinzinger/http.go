package heinzinger

import (
	"encoding/json"
	"go/types"
	"net/http"

	"github.com/iontrap/hvpsu/server"

	"goji.io/pat"
)

// HTTPWrapper provides HTTP bindings on top of the underlying Go interface.
// Bind the route table to a mux to serve it.
type HTTPWrapper struct {
	// Supply is the underlying device that is wrapped
	Supply *Supply

	// RouteTable maps goji patterns to http handlers
	RouteTable server.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured
func NewHTTPWrapper(s *Supply) HTTPWrapper {
	w := HTTPWrapper{Supply: s}
	rt := server.RouteTable{
		pat.Get("/voltage"):      w.GetVoltage,
		pat.Post("/voltage"):     w.SetVoltage,
		pat.Post("/voltage/max"): w.SetMaxVoltage,
		pat.Get("/current"):      w.GetCurrent,
		pat.Post("/current"):     w.SetCurrent,
		pat.Post("/current/max"): w.SetMaxCurrent,
		pat.Get("/relay"):        w.GetRelay,
		pat.Post("/relay"):       w.SetRelay,
		pat.Get("/read"):         w.Read,
		pat.Get("/adc-raw"):      w.RawADC,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h HTTPWrapper) RT() server.RouteTable {
	return h.RouteTable
}

// GetVoltage reads the output voltage and returns it as json {"f64": value}
func (h HTTPWrapper) GetVoltage(w http.ResponseWriter, r *http.Request) {
	v, err := h.Supply.Voltage()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	hp := server.HumanPayload{T: types.Float64, Float: v}
	hp.EncodeAndRespond(w, r)
}

// SetVoltage programs the voltage setpoint from json {"f64": value}
func (h HTTPWrapper) SetVoltage(w http.ResponseWriter, r *http.Request) {
	f := server.FloatT{}
	err := json.NewDecoder(r.Body).Decode(&f)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Supply.SetVoltage(f.F64); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// SetMaxVoltage drives the voltage setpoint to the configured ceiling
func (h HTTPWrapper) SetMaxVoltage(w http.ResponseWriter, r *http.Request) {
	if err := h.Supply.SetMaxVoltage(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetCurrent reads the output current and returns it as json {"f64": value}
func (h HTTPWrapper) GetCurrent(w http.ResponseWriter, r *http.Request) {
	c, err := h.Supply.Current()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	hp := server.HumanPayload{T: types.Float64, Float: c}
	hp.EncodeAndRespond(w, r)
}

// SetCurrent programs the current limit from json {"f64": value}
func (h HTTPWrapper) SetCurrent(w http.ResponseWriter, r *http.Request) {
	f := server.FloatT{}
	err := json.NewDecoder(r.Body).Decode(&f)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Supply.SetCurrent(f.F64); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// SetMaxCurrent drives the current limit to the configured ceiling
func (h HTTPWrapper) SetMaxCurrent(w http.ResponseWriter, r *http.Request) {
	if err := h.Supply.SetMaxCurrent(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetRelay returns the commanded relay state as json {"bool": value}
func (h HTTPWrapper) GetRelay(w http.ResponseWriter, r *http.Request) {
	hp := server.HumanPayload{T: types.Bool, Bool: h.Supply.Relay()}
	hp.EncodeAndRespond(w, r)
}

// SetRelay switches the output relay from json {"bool": value}
func (h HTTPWrapper) SetRelay(w http.ResponseWriter, r *http.Request) {
	b := server.BoolT{}
	err := json.NewDecoder(r.Body).Decode(&b)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if b.Bool {
		err = h.Supply.On()
	} else {
		err = h.Supply.Off()
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type readout struct {
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	On      bool    `json:"on"`
}

// Read returns voltage, current and relay state in a single reply
func (h HTTPWrapper) Read(w http.ResponseWriter, r *http.Request) {
	v, err := h.Supply.Voltage()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	c, err := h.Supply.Current()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := readout{Voltage: v, Current: c, On: h.Supply.Relay()}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(out); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RawADC returns the unconverted monitor codes as a JSON array
func (h HTTPWrapper) RawADC(w http.ResponseWriter, r *http.Request) {
	codes, err := h.Supply.RawADC()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(codes); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
