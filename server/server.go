// Package server contains misc server utilities.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi"
)

// HumanPayload is a struct containing the basic types the server responds with
type HumanPayload struct {
	// T is the type of data contained in the payload
	T types.BasicKind

	// Bool holds a bool
	Bool bool

	// Float holds a float
	Float float64

	// Int holds an int
	Int int

	// String holds a string
	String string
}

// FloatT is a struct with a single float64 field, serialized as {"f64": value}
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field, serialized as {"int": value}
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single string field, serialized as {"str": value}
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a struct with a single bool field, serialized as {"bool": value}
type BoolT struct {
	Bool bool `json:"bool"`
}

// EncodeAndRespond converts the HumanPayload to a single-field JSON struct
// of the right type and writes it to w
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	var obj interface{}
	switch hp.T {
	case types.Bool:
		obj = BoolT{Bool: hp.Bool}
	case types.Float64:
		obj = FloatT{F64: hp.Float}
	case types.Int:
		obj = IntT{Int: hp.Int}
	case types.String:
		obj = StrT{Str: hp.String}
	default:
		http.Error(w, fmt.Sprintf("unsupported payload kind %v", hp.T), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	err := json.NewEncoder(w).Encode(obj)
	if err != nil {
		slog.Error("encoding payload", "err", err, "path", r.URL.Path)
	}
}

// MethodPath is a struct containing an HTTP method and a URL path
type MethodPath struct {
	Method string
	Path   string
}

// RouteTable maps method+path pairs to handlers
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints lists the paths in a RouteTable, sorted
func (rt RouteTable) Endpoints() []string {
	routes := make([]string, 0, len(rt))
	for k := range rt {
		routes = append(routes, k.Method+" "+k.Path)
	}
	sort.Strings(routes)
	return routes
}

// Bind adds every route in the table to r, plus a GET route-list route
// which returns the routes as a JSON array of strings
func (rt RouteTable) Bind(r chi.Router) {
	for mp, h := range rt {
		r.MethodFunc(mp.Method, mp.Path, h)
	}
	r.Get("/route-list", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(rt.Endpoints())
		if err != nil {
			slog.Error("encoding list of routes", "err", err)
		}
	})
}

// HTTPer is an object which has a route table
type HTTPer interface {
	RT() RouteTable
}
