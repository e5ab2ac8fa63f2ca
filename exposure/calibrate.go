package exposure

import (
	"errors"
	"fmt"
	"log/slog"

	"github.jpl.nasa.gov/bdube/cireduce/ci"
)

// ErrPhaseOrder is generated when a calibration step is run before the step that must precede it
var ErrPhaseOrder = errors.New("calibration step out of order")

// Phase is how far through calibration an exposure has been taken
type Phase int

const (
	// Raw exposures have had no calibration applied
	Raw Phase = iota

	// BiasSubtracted exposures have had the master bias removed
	BiasSubtracted

	// DarkSubtracted exposures have had the predicted dark removed
	DarkSubtracted

	// FlatFielded exposures have been divided by the master flat.  This is the terminal phase.
	FlatFielded
)

func (p Phase) String() string {
	switch p {
	case Raw:
		return "raw"
	case BiasSubtracted:
		return "bias subtracted"
	case DarkSubtracted:
		return "dark subtracted"
	case FlatFielded:
		return "flat fielded"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// FrameSource provides the master bias and flat of each camera.
// calib.Library implements it.
type FrameSource interface {
	ReadBias(ci.Extname) (ci.Image, error)
	ReadFlat(ci.Extname) (ci.Image, error)
}

// DarkPredictor predicts the dark signal in ADU of an exposure.
// darkcurrent.Predictor and darkcurrent.ModelPredictor implement it.
type DarkPredictor interface {
	PredictADU(ext ci.Extname, exptime, temp float64) (ci.Image, error)
}

// Calibrator applies bias, dark, and flat corrections to exposures
type Calibrator struct {
	Frames FrameSource
	Dark   DarkPredictor

	// Log receives progress events.  nil uses slog.Default()
	Log *slog.Logger
}

func (c *Calibrator) log() *slog.Logger {
	if c.Log == nil {
		return slog.Default()
	}
	return c.Log
}

// step runs fcn over e if e is in phase from, moving it to phase to.  If e
// is already at or past to, nothing is done.  If fcn fails partway the
// exposure is left partially corrected and must be discarded.
func (c *Calibrator) step(e *Exposure, from, to Phase, fcn func(*Image) error) error {
	if e.phase >= to {
		return nil
	}
	if e.phase != from {
		return fmt.Errorf("%w: exposure is %s, must be %s before it can be %s", ErrPhaseOrder, e.phase, from, to)
	}
	c.log().Info("calibrating exposure", "step", to.String(), "cameras", e.NumPopulated())
	if err := e.each(fcn); err != nil {
		return err
	}
	e.phase = to
	return nil
}

// SubtractBias removes the master bias from every populated camera
func (c *Calibrator) SubtractBias(e *Exposure) error {
	return c.step(e, Raw, BiasSubtracted, func(img *Image) error {
		ext := img.Header.Extname
		bias, err := c.Frames.ReadBias(ext)
		if err != nil {
			return fmt.Errorf("bias for %s: %w", ext, err)
		}
		if err := img.Pixels.SubInPlace(bias); err != nil {
			return fmt.Errorf("bias for %s: %w", ext, err)
		}
		return nil
	})
}

// SubtractDark removes the predicted dark current from every populated
// camera, using the camera's own exposure time and temperature
func (c *Calibrator) SubtractDark(e *Exposure) error {
	return c.step(e, BiasSubtracted, DarkSubtracted, func(img *Image) error {
		h := img.Header
		dark, err := c.Dark.PredictADU(h.Extname, h.ActTime, h.CamTemp)
		if err != nil {
			return fmt.Errorf("dark for %s: %w", h.Extname, err)
		}
		if err := img.Pixels.SubInPlace(dark); err != nil {
			return fmt.Errorf("dark for %s: %w", h.Extname, err)
		}
		return nil
	})
}

// ApplyFlatField divides every populated camera by the master flat.  Zero
// flat values are not guarded against and produce Inf or NaN pixels.
func (c *Calibrator) ApplyFlatField(e *Exposure) error {
	return c.step(e, DarkSubtracted, FlatFielded, func(img *Image) error {
		ext := img.Header.Extname
		flat, err := c.Frames.ReadFlat(ext)
		if err != nil {
			return fmt.Errorf("flat for %s: %w", ext, err)
		}
		if err := img.Pixels.DivInPlace(flat); err != nil {
			return fmt.Errorf("flat for %s: %w", ext, err)
		}
		return nil
	})
}

// CalibratePixels subtracts the bias, subtracts the dark, and applies the
// flat field, in that order
func (c *Calibrator) CalibratePixels(e *Exposure) error {
	if err := c.SubtractBias(e); err != nil {
		return err
	}
	if err := c.SubtractDark(e); err != nil {
		return err
	}
	return c.ApplyFlatField(e)
}
