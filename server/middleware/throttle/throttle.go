// Package throttle provides an HTTP middleware which limits the rate requests are served at, returning 429 (too many requests)
package throttle

import (
	"go/types"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.jpl.nasa.gov/bdube/cireduce/server"
)

// Inject adds a throttle route to a server.HTTPer which reports if the throttle is rejecting requests
func Inject(other server.HTTPer, t *Throttle) {
	rt := other.RT()
	rt[server.MethodPath{Method: http.MethodGet, Path: "/throttle"}] = t.HTTPGet
}

// Throttle wraps a token bucket and holds a list of paths to not limit
type Throttle struct {
	lim *rate.Limiter

	// DoNotLimit is a list of paths not to apply the limit to
	DoNotLimit []string
}

// New returns a new Throttle allowing perSec requests per second with bursts
// of up to burst.  DoNotLimit is prepopulated with "throttle".
// perSec <= 0 disables limiting.
func New(perSec float64, burst int) *Throttle {
	lim := rate.NewLimiter(rate.Inf, 0)
	if perSec > 0 {
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(perSec), burst)
	}
	return &Throttle{lim: lim, DoNotLimit: []string{"throttle"}}
}

// Saturated returns true if a request arriving now would be rejected
func (t *Throttle) Saturated() bool {
	return t.lim.Limit() != rate.Inf && t.lim.Tokens() < 1
}

// Check is an HTTP middleware that returns http.StatusTooManyRequests if the bucket is empty, otherwise passes down the line
func (t *Throttle) Check(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		url := r.URL.Path
		for _, str := range t.DoNotLimit {
			if strings.Contains(url, str) {
				next.ServeHTTP(w, r)
				return
			}
		}
		if !t.lim.Allow() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HTTPGet returns Saturated() over HTTP as JSON
func (t *Throttle) HTTPGet(w http.ResponseWriter, r *http.Request) {
	hp := server.HumanPayload{T: types.Bool, Bool: t.Saturated()}
	hp.EncodeAndRespond(w, r)
}
