package darkcurrent

import (
	"fmt"
	"log/slog"

	"github.jpl.nasa.gov/bdube/cireduce/ci"
	"github.jpl.nasa.gov/bdube/cireduce/mathx"
)

// MasterDarkLibrary is a source of master darks and their index
type MasterDarkLibrary interface {
	// DarkIndex reads the master dark index.  It is read fresh on every call.
	DarkIndex() ([]IndexEntry, error)

	// DefaultMasterDark is the path of the master dark used when no master
	// dark in the index has a matching integration time
	DefaultMasterDark() string

	// ReadMasterDark reads the extension ext of the master dark at path with
	// the overscan removed, and the GCCDTEMP it was taken at
	ReadMasterDark(path string, ext ci.Extname) (ci.Image, float64, error)
}

// Predictor predicts dark images in ADU from a library of master darks
type Predictor struct {
	Library MasterDarkLibrary

	// Log receives the selection and rescaling events.  nil uses slog.Default()
	Log *slog.Logger
}

func (p *Predictor) log() *slog.Logger {
	if p.Log == nil {
		return slog.Default()
	}
	return p.Log
}

// ReadDarkImage picks the master dark for camera ext at exptime and temp,
// falling back to the library default when no integration time matches.
// It returns the master dark pixels, its temperature, and its path.
func (p *Predictor) ReadDarkImage(ext ci.Extname, exptime, temp float64) (ci.Image, float64, string, error) {
	if err := ext.Check(); err != nil {
		return ci.Image{}, 0, "", err
	}
	index, err := p.Library.DarkIndex()
	if err != nil {
		return ci.Image{}, 0, "", fmt.Errorf("reading master dark index: %w", err)
	}
	fn, ok := ChooseMasterDark(exptime, ext, temp, index)
	if !ok {
		fn = p.Library.DefaultMasterDark()
		p.log().Warn("no master dark with ORIGTIME matching EXPTIME, using default",
			"extname", ext, "exptime", exptime, "path", fn)
	}
	p.log().Info("reading master dark", "path", fn, "extname", ext)
	img, tMaster, err := p.Library.ReadMasterDark(fn, ext)
	if err != nil {
		return ci.Image{}, 0, fn, err
	}
	return img, tMaster, fn, nil
}

// PredictADU returns the total dark signal in ADU expected in an exposure of
// exptime seconds at temp C from camera ext.  The master dark is a per
// second map, so it is rescaled in temperature and multiplied by exptime.
func (p *Predictor) PredictADU(ext ci.Extname, exptime, temp float64) (ci.Image, error) {
	if exptime < 0 {
		return ci.Image{}, fmt.Errorf("%w: exposure time %v s is negative", ErrInvalidInput, exptime)
	}
	dark, tMaster, fn, err := p.ReadDarkImage(ext, exptime, temp)
	if err != nil {
		return ci.Image{}, err
	}
	fac, err := RescalingFactor(tMaster, temp, ext)
	if err != nil {
		return ci.Image{}, err
	}
	p.log().Debug("dark rescaling factor",
		"extname", ext, "factor", mathx.Round(fac, 1e-6), "tmaster", tMaster, "timage", temp, "path", fn)
	dark.Scale(fac * exptime)
	return dark, nil
}

// ModelPredictor predicts flat dark images from the rate model alone.  It
// serves where no master dark library is available.
type ModelPredictor struct {
	Gains GainLookup

	// Width and Height are the shape of the predicted images
	Width, Height int
}

// PredictADU returns an image filled with TotalADU for camera ext
func (m ModelPredictor) PredictADU(ext ci.Extname, exptime, temp float64) (ci.Image, error) {
	v, err := TotalADU(ext, exptime, temp, m.Gains)
	if err != nil {
		return ci.Image{}, err
	}
	return ci.NewImageFilled(m.Width, m.Height, v), nil
}
