// Package server contains HTTP plumbing shared by the device wrappers:
// a goji-based route table and single-value JSON envelopes with concrete
// types, so clients get {"f64": 1.5} instead of stringly-typed replies.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"log"
	"net/http"

	"goji.io"
)

// RouteTable maps goji patterns to handlers.  It is the backing store
// for every device HTTP wrapper in this module.
type RouteTable map[goji.Pattern]http.HandlerFunc

// Endpoints lists the patterns in the table as strings
func (rt RouteTable) Endpoints() []string {
	routes := make([]string, 0, len(rt))
	for k := range rt {
		routes = append(routes, fmt.Sprint(k))
	}
	return routes
}

// Bind attaches each route in the table to a goji mux
func (rt RouteTable) Bind(mux *goji.Mux) {
	for ptrn, handler := range rt {
		mux.HandleFunc(ptrn, handler)
	}
}

// HTTPer is a type which has a route table and can yield it
type HTTPer interface {
	RT() RouteTable
}

// FloatT is a struct with a single f64 field
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field
type IntT struct {
	Int int `json:"int"`
}

// BoolT is a struct with a single bool field
type BoolT struct {
	Bool bool `json:"bool"`
}

// StrT is a struct with a single str field
type StrT struct {
	Str string `json:"str"`
}

// Uint16T is a struct with a single u16 field
type Uint16T struct {
	U16 uint16 `json:"u16"`
}

// HumanPayload is a struct containing the basic types runtime responses
// may hold.  T indicates which field is populated.
type HumanPayload struct {
	// Bool holds a boolean
	Bool bool

	// Int holds an int
	Int int

	// Uint16 holds a uint16
	Uint16 uint16

	// Float holds a float
	Float float64

	// String holds a string
	String string

	// T holds the type of the payload
	T types.BasicKind
}

// EncodeAndRespond encodes the payload to JSON and writes it to w.
// logs errors and replies with http.Error on failure.
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var err error
	switch hp.T {
	case types.Bool:
		obj := BoolT{Bool: hp.Bool}
		err = json.NewEncoder(w).Encode(obj)
	case types.Int:
		obj := IntT{Int: hp.Int}
		err = json.NewEncoder(w).Encode(obj)
	case types.Uint16:
		obj := Uint16T{U16: hp.Uint16}
		err = json.NewEncoder(w).Encode(obj)
	case types.String:
		obj := StrT{Str: hp.String}
		err = json.NewEncoder(w).Encode(obj)
	default: // default is float64
		obj := FloatT{F64: hp.Float}
		err = json.NewEncoder(w).Encode(obj)
	}
	if err != nil {
		fstr := fmt.Sprintf("error encoding payload to json %q", err)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusInternalServerError)
	}
	return
}

// BadMethod returns an error to the client complaining about the request method
func BadMethod(w http.ResponseWriter, r *http.Request) {
	fstr := fmt.Sprintf("%s queried %s with bad method %s", r.RemoteAddr, r.URL, r.Method)
	log.Println(fstr)
	http.Error(w, fstr, http.StatusMethodNotAllowed)
}
