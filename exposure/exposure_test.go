package exposure_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.jpl.nasa.gov/bdube/cireduce/ci"
	"github.jpl.nasa.gov/bdube/cireduce/darkcurrent"
	"github.jpl.nasa.gov/bdube/cireduce/exposure"
)

const w, h = 3, 2

// vars, not consts, so the expected value is computed in float64 like the pixels are
var (
	rawLevel  = 1000.
	biasLevel = 100.
	darkLevel = 20.
	flatLevel = 0.8
)

// recorder is a FrameSource and DarkPredictor which returns constant frames
// and logs the order it was called in
type recorder struct {
	calls   []string
	darkErr error
}

func (r *recorder) ReadBias(ext ci.Extname) (ci.Image, error) {
	r.calls = append(r.calls, "bias "+string(ext))
	return ci.NewImageFilled(w, h, biasLevel), nil
}

func (r *recorder) ReadFlat(ext ci.Extname) (ci.Image, error) {
	r.calls = append(r.calls, "flat "+string(ext))
	return ci.NewImageFilled(w, h, flatLevel), nil
}

func (r *recorder) PredictADU(ext ci.Extname, exptime, temp float64) (ci.Image, error) {
	r.calls = append(r.calls, "dark "+string(ext))
	if r.darkErr != nil {
		return ci.Image{}, r.darkErr
	}
	return ci.NewImageFilled(w, h, darkLevel), nil
}

func rawImage(ext ci.Extname) exposure.Image {
	return exposure.Image{
		Pixels: ci.NewImageFilled(w, h, rawLevel),
		Header: exposure.Header{Extname: ext, ActTime: 5, CamTemp: 11},
	}
}

func TestNewPlacesImagesInSlots(t *testing.T) {
	e, err := exposure.New([]exposure.Image{rawImage(ci.FOCUS4), rawImage(ci.GUIDE0)})
	require.NoError(t, err)
	assert.Equal(t, 2, e.NumPopulated())
	assert.Equal(t, []ci.Extname{ci.GUIDE0, ci.FOCUS4}, e.PopulatedExtnames())
	_, ok := e.Get(ci.GUIDE2)
	assert.False(t, ok)
	_, ok = e.Get("BOGUS")
	assert.False(t, ok)
	assert.Equal(t, exposure.Raw, e.Phase())

	_, err = exposure.New([]exposure.Image{rawImage("GUIDE1")})
	assert.True(t, errors.Is(err, ci.ErrInvalidExtname))
}

func TestCalibratePixelsOrderAndValue(t *testing.T) {
	// one populated and one empty camera
	e, err := exposure.New([]exposure.Image{rawImage(ci.GUIDE0)})
	require.NoError(t, err)
	r := &recorder{}
	c := exposure.Calibrator{Frames: r, Dark: r}
	require.NoError(t, c.CalibratePixels(e))

	assert.Equal(t, []string{"bias GUIDE0", "dark GUIDE0", "flat GUIDE0"}, r.calls)
	assert.Equal(t, exposure.FlatFielded, e.Phase())

	img, ok := e.Get(ci.GUIDE0)
	require.True(t, ok)
	want := (rawLevel - biasLevel - darkLevel) / flatLevel
	for _, v := range img.Pixels.Pix {
		assert.Equal(t, want, v)
	}
	_, ok = e.Get(ci.FOCUS1)
	assert.False(t, ok)
	assert.Equal(t, 1, e.NumPopulated())
}

func TestStepsAreIdempotentWithinPhase(t *testing.T) {
	e, err := exposure.New([]exposure.Image{rawImage(ci.GUIDE5)})
	require.NoError(t, err)
	r := &recorder{}
	c := exposure.Calibrator{Frames: r, Dark: r}

	require.NoError(t, c.SubtractBias(e))
	require.NoError(t, c.SubtractBias(e))
	assert.Equal(t, []string{"bias GUIDE5"}, r.calls)

	require.NoError(t, c.CalibratePixels(e))
	require.NoError(t, c.CalibratePixels(e))
	assert.Equal(t, []string{"bias GUIDE5", "dark GUIDE5", "flat GUIDE5"}, r.calls)
}

func TestStepsOutOfOrderFail(t *testing.T) {
	e, err := exposure.New([]exposure.Image{rawImage(ci.GUIDE5)})
	require.NoError(t, err)
	r := &recorder{}
	c := exposure.Calibrator{Frames: r, Dark: r}

	assert.True(t, errors.Is(c.SubtractDark(e), exposure.ErrPhaseOrder))
	assert.True(t, errors.Is(c.ApplyFlatField(e), exposure.ErrPhaseOrder))
	assert.Empty(t, r.calls)

	require.NoError(t, c.SubtractBias(e))
	assert.True(t, errors.Is(c.ApplyFlatField(e), exposure.ErrPhaseOrder))
	assert.True(t, errors.Is(e.Assign(rawImage(ci.GUIDE0)), exposure.ErrPhaseOrder))
}

func TestDarkErrorsPropagate(t *testing.T) {
	e, err := exposure.New([]exposure.Image{rawImage(ci.GUIDE0)})
	require.NoError(t, err)
	r := &recorder{darkErr: darkcurrent.ErrModelBreakdown}
	c := exposure.Calibrator{Frames: r, Dark: r}
	err = c.CalibratePixels(e)
	assert.True(t, errors.Is(err, darkcurrent.ErrModelBreakdown))
	assert.Equal(t, exposure.BiasSubtracted, e.Phase())
}

func TestEmptyExposureCalibrates(t *testing.T) {
	e, err := exposure.New(nil)
	require.NoError(t, err)
	r := &recorder{}
	c := exposure.Calibrator{Frames: r, Dark: r}
	require.NoError(t, c.CalibratePixels(e))
	assert.Empty(t, r.calls)
	assert.Equal(t, exposure.FlatFielded, e.Phase())
}

func TestShapeMismatchFails(t *testing.T) {
	img := rawImage(ci.GUIDE0)
	img.Pixels = ci.NewImage(w+1, h)
	e, err := exposure.New([]exposure.Image{img})
	require.NoError(t, err)
	r := &recorder{}
	c := exposure.Calibrator{Frames: r, Dark: r}
	assert.True(t, errors.Is(c.CalibratePixels(e), ci.ErrShape))
}

func TestModelPredictorPlugsIn(t *testing.T) {
	g, err := ci.GainTableFromStrings(ci.DefaultGains())
	require.NoError(t, err)
	e, err := exposure.New([]exposure.Image{rawImage(ci.FOCUS9)})
	require.NoError(t, err)
	r := &recorder{}
	c := exposure.Calibrator{Frames: r, Dark: darkcurrent.ModelPredictor{Gains: g, Width: w, Height: h}}
	require.NoError(t, c.CalibratePixels(e))

	dark, err := darkcurrent.TotalADU(ci.FOCUS9, 5, 11, g)
	require.NoError(t, err)
	img, _ := e.Get(ci.FOCUS9)
	assert.InDelta(t, (rawLevel-biasLevel-dark)/flatLevel, img.Pixels.At(0, 0), 1e-9)
}
