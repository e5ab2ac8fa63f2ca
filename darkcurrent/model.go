/*Package darkcurrent models the dark current of the CI cameras and predicts
the dark signal in an exposure.

The rate model is an exponential in temperature,

	I(T) = I0 * 2^(T/dT)

with I0 the rate at 0 C in e-/pix/sec and dT the doubling temperature in C.
All cameras are assumed to share one rate model.

Predicted dark images come from a library of master darks, which are
per-second dark maps in ADU.  The master dark with the matching integration
time and the nearest temperature is chosen, linearly rescaled to the
temperature of the exposure, and multiplied by the exposure time.

*/
package darkcurrent

import (
	"errors"
	"fmt"
	"math"

	"github.jpl.nasa.gov/bdube/cireduce/ci"
	"github.jpl.nasa.gov/bdube/cireduce/mathx"
)

const (
	// I0 is the dark current at 0 C, e-/pix/sec
	I0 = 0.0957

	// DoublingTemp is the temperature change, in C, over which the dark current doubles
	DoublingTemp = 6.774
)

var (
	// ErrInvalidInput is generated for a negative exposure time
	ErrInvalidInput = errors.New("invalid input")

	// ErrNonPositiveRate is generated when a rate measurement can not be log-fit
	ErrNonPositiveRate = errors.New("dark rate measurements must be positive")
)

// Rate returns the dark current in e-/pix/sec at temperature tCelsius
func Rate(tCelsius float64) float64 {
	return I0 * math.Pow(2, tCelsius/DoublingTemp)
}

// Rates is Rate over a slice of temperatures
func Rates(tCelsius []float64) []float64 {
	out := make([]float64, len(tCelsius))
	for i, t := range tCelsius {
		out[i] = Rate(t)
	}
	return out
}

// TotalElectrons returns the dark current in e-/pix accumulated over
// exptime seconds at temperature tCelsius
func TotalElectrons(exptime, tCelsius float64) (float64, error) {
	if exptime < 0 {
		return 0, fmt.Errorf("%w: exposure time %v s is negative", ErrInvalidInput, exptime)
	}
	return Rate(tCelsius) * exptime, nil
}

// GainLookup provides the gain, in e-/ADU, of a camera.
// ci.GainTable implements it.
type GainLookup interface {
	Gain(ci.Extname) (float64, error)
}

// ToADU converts electrons to ADU with the gain of camera ext
func ToADU(ext ci.Extname, electrons float64, gains GainLookup) (float64, error) {
	if err := ext.Check(); err != nil {
		return 0, err
	}
	g, err := gains.Gain(ext)
	if err != nil {
		return 0, err
	}
	return electrons / g, nil
}

// ToElectrons converts ADU to electrons with the gain of camera ext
func ToElectrons(ext ci.Extname, adu float64, gains GainLookup) (float64, error) {
	if err := ext.Check(); err != nil {
		return 0, err
	}
	g, err := gains.Gain(ext)
	if err != nil {
		return 0, err
	}
	return adu * g, nil
}

// TotalADU returns the modeled dark current in ADU/pix for camera ext
// over exptime seconds at temperature tCelsius
func TotalADU(ext ci.Extname, exptime, tCelsius float64, gains GainLookup) (float64, error) {
	if err := ext.Check(); err != nil {
		return 0, err
	}
	e, err := TotalElectrons(exptime, tCelsius)
	if err != nil {
		return 0, err
	}
	return ToADU(ext, e, gains)
}

// Measurements returns the (temperature C, e-/pix/sec) pairs of DESI-3358
// slide 9 that I0 and DoublingTemp were fit to.  No uncertainties are
// available for either quantity.
func Measurements() (tCelsius, ePerPixPerSec []float64) {
	return []float64{0, 5, 10, 20}, []float64{0.08, 0.16, 0.38, 0.62}
}

// FitDoublingRate fits the rate model to measured rates by least squares on
// ln(rate) vs temperature.  It returns the rate at 0 C and the doubling
// temperature.
func FitDoublingRate(tCelsius, ePerPixPerSec []float64) (i0, dT float64, err error) {
	if len(tCelsius) != len(ePerPixPerSec) {
		return 0, 0, mathx.ErrLengthMismatch
	}
	y := make([]float64, len(ePerPixPerSec))
	for i, r := range ePerPixPerSec {
		if !(r > 0) {
			return 0, 0, fmt.Errorf("%w: rate[%d]=%v", ErrNonPositiveRate, i, r)
		}
		y[i] = math.Log(r)
	}
	slope, intercept, err := mathx.PolyFit1(tCelsius, y)
	if err != nil {
		return 0, 0, err
	}
	return math.Exp(intercept), math.Ln2 / slope, nil
}
