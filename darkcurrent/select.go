package darkcurrent

import (
	"strings"

	"github.jpl.nasa.gov/bdube/cireduce/ci"
	"github.jpl.nasa.gov/bdube/cireduce/mathx"
)

// IndexEntry is one row of the master dark index
type IndexEntry struct {
	// ReadWarn is nonzero if the master dark may have a bad readout
	ReadWarn int

	// OrigTime is the integration time of the master dark, in seconds
	OrigTime float64

	// Extname is the camera the master dark belongs to
	Extname ci.Extname

	// GCCDTemp is the CCD temperature the master dark was taken at, C
	GCCDTemp float64

	// FnameFull is the path to the master dark, possibly space padded
	FnameFull string
}

// ChooseMasterDark returns the path of the master dark in index for camera
// ext with integration time exactly exptime and the temperature nearest
// temp.  Ties go to the first entry in the index, and an entry with a NaN
// temperature is taken over any finite one.  If no master dark has the
// integration time, ok is false.
func ChooseMasterDark(exptime float64, ext ci.Extname, temp float64, index []IndexEntry) (path string, ok bool) {
	var (
		cands []IndexEntry
		temps []float64
	)
	for _, e := range index {
		// bad readouts should already be gone from the index, but just in case
		if e.ReadWarn != 0 {
			continue
		}
		if e.Extname != ext || e.OrigTime != exptime {
			continue
		}
		cands = append(cands, e)
		temps = append(temps, e.GCCDTemp)
	}
	if len(cands) == 0 {
		return "", false
	}
	best := cands[mathx.ArgMinAbsDiff(temps, temp)]
	return strings.Replace(best.FnameFull, " ", "", -1), true
}
