package calib

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"

	"github.jpl.nasa.gov/bdube/cireduce/ci"
)

var (
	// ErrMissingKeyword is generated when a required header card is absent
	ErrMissingKeyword = errors.New("required header keyword missing")

	// ErrNoSuchHDU is generated when a file has no HDU with the requested EXTNAME
	ErrNoSuchHDU = errors.New("no HDU with that EXTNAME")

	// ErrNotImage is generated when an HDU expected to hold an image does not
	ErrNotImage = errors.New("HDU is not a 2D image")
)

// openFITS opens path for reading.  Callers must close both the returned
// file and the *os.File.
func openFITS(path string) (*os.File, *fitsio.File, error) {
	fid, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingCalibrationFile, path)
		}
		return nil, nil, err
	}
	f, err := fitsio.Open(fid)
	if err != nil {
		fid.Close()
		return nil, nil, fmt.Errorf("opening FITS %s: %w", path, err)
	}
	return fid, f, nil
}

// findHDU returns the HDU of f whose EXTNAME is name
func findHDU(f *fitsio.File, name string) (fitsio.HDU, error) {
	for _, hdu := range f.HDUs() {
		if strings.TrimSpace(hdu.Name()) == name {
			return hdu, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoSuchHDU, name)
}

// ImageFromHDU converts a 2D image HDU to a ci.Image, applying BSCALE and
// BZERO when present
func ImageFromHDU(hdu fitsio.Image) (ci.Image, error) {
	hdr := hdu.Header()
	axes := hdr.Axes()
	if len(axes) != 2 {
		return ci.Image{}, fmt.Errorf("%w: NAXIS=%d", ErrNotImage, len(axes))
	}
	w, h := axes[0], axes[1]
	n := w * h
	out := ci.NewImage(w, h)
	var err error
	switch hdr.Bitpix() {
	case 8:
		raw := make([]byte, n)
		err = hdu.Read(&raw)
		for i, v := range raw {
			out.Pix[i] = float64(v)
		}
	case 16:
		raw := make([]int16, n)
		err = hdu.Read(&raw)
		for i, v := range raw {
			out.Pix[i] = float64(v)
		}
	case 32:
		raw := make([]int32, n)
		err = hdu.Read(&raw)
		for i, v := range raw {
			out.Pix[i] = float64(v)
		}
	case 64:
		raw := make([]int64, n)
		err = hdu.Read(&raw)
		for i, v := range raw {
			out.Pix[i] = float64(v)
		}
	case -32:
		raw := make([]float32, n)
		err = hdu.Read(&raw)
		for i, v := range raw {
			out.Pix[i] = float64(v)
		}
	case -64:
		err = hdu.Read(&out.Pix)
	default:
		return ci.Image{}, fmt.Errorf("%w: unsupported BITPIX %d", ErrNotImage, hdr.Bitpix())
	}
	if err != nil {
		return ci.Image{}, err
	}

	bscale, bzero := 1.0, 0.0
	if c := hdr.Get("BSCALE"); c != nil {
		if bscale, err = CardFloat(c); err != nil {
			return ci.Image{}, err
		}
	}
	if c := hdr.Get("BZERO"); c != nil {
		if bzero, err = CardFloat(c); err != nil {
			return ci.Image{}, err
		}
	}
	if bscale != 1 || bzero != 0 {
		for i, v := range out.Pix {
			out.Pix[i] = v*bscale + bzero
		}
	}
	return out, nil
}

// CardFloat converts the value of a header card to a float64
func CardFloat(c *fitsio.Card) (float64, error) {
	switch v := c.Value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("header card %s has non-numeric value %v", c.Name, c.Value)
	}
}

// HeaderFloat returns the numeric value of header keyword key
func HeaderFloat(hdr *fitsio.Header, key string) (float64, error) {
	c := hdr.Get(key)
	if c == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingKeyword, key)
	}
	return CardFloat(c)
}
