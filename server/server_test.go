package server_test

import (
	"encoding/json"
	"go/types"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iontrap/hvpsu/server"

	"goji.io/pat"
)

func TestHumanPayloadFloat(t *testing.T) {
	hp := server.HumanPayload{T: types.Float64, Float: 1.5}
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	hp.EncodeAndRespond(w, r)
	var out server.FloatT
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if out.F64 != 1.5 {
		t.Errorf("expected 1.5, got %g", out.F64)
	}
}

func TestHumanPayloadBool(t *testing.T) {
	hp := server.HumanPayload{T: types.Bool, Bool: true}
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	hp.EncodeAndRespond(w, r)
	var out server.BoolT
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if !out.Bool {
		t.Error("expected true")
	}
}

func TestRouteTableEndpoints(t *testing.T) {
	noop := func(w http.ResponseWriter, r *http.Request) {}
	rt := server.RouteTable{
		pat.Get("/voltage"):  noop,
		pat.Post("/voltage"): noop,
	}
	eps := rt.Endpoints()
	if len(eps) != 2 {
		t.Errorf("expected 2 endpoints, got %d: %v", len(eps), eps)
	}
}
