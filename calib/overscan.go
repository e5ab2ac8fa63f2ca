package calib

import (
	"errors"
	"fmt"

	"github.jpl.nasa.gov/bdube/cireduce/ci"
)

// ErrTrimTooLarge is generated when the overscan to remove is larger than the image
var ErrTrimTooLarge = errors.New("overscan trim exceeds image size")

// Trim describes the prescan/overscan regions to remove from each edge of a
// raw frame, in pixels
type Trim struct {
	Left   int `koanf:"left" yaml:"left"`
	Right  int `koanf:"right" yaml:"right"`
	Bottom int `koanf:"bottom" yaml:"bottom"`
	Top    int `koanf:"top" yaml:"top"`
}

// IsZero returns true if the trim removes nothing
func (t Trim) IsZero() bool {
	return t == Trim{}
}

// Apply returns the light sensitive region of img.  The zero Trim returns
// img unchanged (not a copy).
func (t Trim) Apply(img ci.Image) (ci.Image, error) {
	if t.IsZero() {
		return img, nil
	}
	if t.Left < 0 || t.Right < 0 || t.Bottom < 0 || t.Top < 0 {
		return ci.Image{}, fmt.Errorf("%w: negative trim %+v", ErrTrimTooLarge, t)
	}
	w := img.Width - t.Left - t.Right
	h := img.Height - t.Bottom - t.Top
	if w <= 0 || h <= 0 {
		return ci.Image{}, fmt.Errorf("%w: %+v on %dx%d", ErrTrimTooLarge, t, img.Width, img.Height)
	}
	out := ci.NewImage(w, h)
	for y := 0; y < h; y++ {
		src := (y+t.Bottom)*img.Width + t.Left
		copy(out.Pix[y*w:(y+1)*w], img.Pix[src:src+w])
	}
	return out, nil
}
