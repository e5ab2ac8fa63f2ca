package darkcurrent

import (
	"errors"
	"fmt"
	"math"

	"github.jpl.nasa.gov/bdube/cireduce/ci"
)

// ReferenceTemp is the temperature, in C, the linear rescaling coefficients
// are referenced to.  The coefficients were fit against it; do not change it
// without refitting them.
const ReferenceTemp = 11.0

// ErrModelBreakdown is generated when the temperature rescaling factor is not
// a finite positive number, which means a temperature or coefficient is outside the range the
// model was calibrated over.  It is not recoverable.
var ErrModelBreakdown = errors.New("dark rescaling model breakdown")

// linear coefficients from the GFA dark calibration notebook
// https://github.com/desihub/desicmx/blob/master/analysis/gfa/GFA-Dark-Calibration.ipynb
var linearCoeffs = ci.MustTable("dark linear coefficient", map[ci.Extname]float64{
	ci.GUIDE0: 0.223,
	ci.FOCUS1: 0.224,
	ci.GUIDE2: 0.237,
	ci.GUIDE3: 0.222,
	ci.FOCUS4: 0.233,
	ci.GUIDE5: 0.237,
	ci.FOCUS6: 0.209,
	ci.GUIDE7: 0.228,
	ci.GUIDE8: 0.195,
	ci.FOCUS9: 0.225,
}, true)

// LinearCoeff returns the fractional change in dark level per degree C for
// camera ext, referenced to ReferenceTemp
func LinearCoeff(ext ci.Extname) (float64, error) {
	return linearCoeffs.Lookup(ext)
}

// RescalingFactor returns the multiplier that takes a master dark taken at
// tMaster to the dark level expected at tImage for camera ext
func RescalingFactor(tMaster, tImage float64, ext ci.Extname) (float64, error) {
	f, err := LinearCoeff(ext)
	if err != nil {
		return 0, err
	}
	// conversions round the products so they are never fused into an FMA
	den := 1 + float64(f*(tMaster-ReferenceTemp))
	fac := (1 + float64(f*(tImage-ReferenceTemp))) / den
	if den == 0 || math.IsInf(fac, 0) || !(fac > 0) {
		return fac, fmt.Errorf("%w: %s factor %v for master at %v C, image at %v C",
			ErrModelBreakdown, ext, fac, tMaster, tImage)
	}
	return fac, nil
}
