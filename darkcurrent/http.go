package darkcurrent

import (
	"errors"
	"go/types"
	"net/http"
	"strconv"

	"github.jpl.nasa.gov/bdube/cireduce/ci"
	"github.jpl.nasa.gov/bdube/cireduce/server"
)

// HTTPWrapper exposes the dark current model over HTTP for diagnostics.
// Every route is a GET with its arguments in the query string.
type HTTPWrapper struct {
	// Gains converts electrons to ADU
	Gains GainLookup

	// Library is used by the choose route.  It may be nil, in which case
	// choose responds 501
	Library MasterDarkLibrary

	// RouteTable maps method/path pairs to http handlers
	RouteTable server.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured
func NewHTTPWrapper(gains GainLookup, lib MasterDarkLibrary) HTTPWrapper {
	w := HTTPWrapper{Gains: gains, Library: lib}
	rt := server.RouteTable{
		{Method: http.MethodGet, Path: "/dark/rate"}:      w.HTTPRate,
		{Method: http.MethodGet, Path: "/dark/electrons"}: w.HTTPElectrons,
		{Method: http.MethodGet, Path: "/dark/adu"}:       w.HTTPADU,
		{Method: http.MethodGet, Path: "/dark/coeff"}:     w.HTTPCoeff,
		{Method: http.MethodGet, Path: "/dark/factor"}:    w.HTTPFactor,
		{Method: http.MethodGet, Path: "/dark/choose"}:    w.HTTPChoose,
	}
	w.RouteTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h HTTPWrapper) RT() server.RouteTable {
	return h.RouteTable
}

func queryFloat(r *http.Request, key string) (float64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, errors.New("missing query parameter " + key)
	}
	return strconv.ParseFloat(s, 64)
}

// statusFor maps model errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ci.ErrInvalidExtname), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrModelBreakdown):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondFloat(w http.ResponseWriter, r *http.Request, f float64) {
	hp := server.HumanPayload{T: types.Float64, Float: f}
	hp.EncodeAndRespond(w, r)
}

// HTTPRate returns Rate(t) as {"f64": value}
func (h HTTPWrapper) HTTPRate(w http.ResponseWriter, r *http.Request) {
	t, err := queryFloat(r, "t")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondFloat(w, r, Rate(t))
}

// HTTPElectrons returns TotalElectrons(exptime, t)
func (h HTTPWrapper) HTTPElectrons(w http.ResponseWriter, r *http.Request) {
	t, err := queryFloat(r, "t")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	exptime, err := queryFloat(r, "exptime")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	e, err := TotalElectrons(exptime, t)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	respondFloat(w, r, e)
}

// HTTPADU returns TotalADU(ext, exptime, t)
func (h HTTPWrapper) HTTPADU(w http.ResponseWriter, r *http.Request) {
	t, err := queryFloat(r, "t")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	exptime, err := queryFloat(r, "exptime")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	adu, err := TotalADU(ci.Extname(r.URL.Query().Get("ext")), exptime, t, h.Gains)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	respondFloat(w, r, adu)
}

// HTTPCoeff returns LinearCoeff(ext)
func (h HTTPWrapper) HTTPCoeff(w http.ResponseWriter, r *http.Request) {
	f, err := LinearCoeff(ci.Extname(r.URL.Query().Get("ext")))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	respondFloat(w, r, f)
}

// HTTPFactor returns RescalingFactor(tmaster, t, ext)
func (h HTTPWrapper) HTTPFactor(w http.ResponseWriter, r *http.Request) {
	t, err := queryFloat(r, "t")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tm, err := queryFloat(r, "tmaster")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fac, err := RescalingFactor(tm, t, ci.Extname(r.URL.Query().Get("ext")))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	respondFloat(w, r, fac)
}

// HTTPChoose returns the path of the master dark which would be used for
// (ext, exptime, t), or the default master dark if none matches
func (h HTTPWrapper) HTTPChoose(w http.ResponseWriter, r *http.Request) {
	if h.Library == nil {
		http.Error(w, "no master dark library configured", http.StatusNotImplemented)
		return
	}
	ext := ci.Extname(r.URL.Query().Get("ext"))
	if err := ext.Check(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	t, err := queryFloat(r, "t")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	exptime, err := queryFloat(r, "exptime")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	index, err := h.Library.DarkIndex()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	fn, ok := ChooseMasterDark(exptime, ext, t, index)
	if !ok {
		fn = h.Library.DefaultMasterDark()
	}
	hp := server.HumanPayload{T: types.String, String: fn}
	hp.EncodeAndRespond(w, r)
}
