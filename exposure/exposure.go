/*Package exposure holds a single CI exposure, one image per camera, and the
calibration sequence that is applied to it.

An Exposure has one slot per CI camera.  A slot is either empty or holds
an Image.  The set of slots is fixed; cameras which did not read out are
simply empty and are skipped by every calibration step.

*/
package exposure

import (
	"fmt"

	"github.com/astrogo/fitsio"

	"github.jpl.nasa.gov/bdube/cireduce/ci"
)

// Header is the per-camera metadata calibration needs
type Header struct {
	// Extname is the camera
	Extname ci.Extname

	// ActTime is the actual exposure time in seconds
	ActTime float64

	// CamTemp is the camera temperature in C
	CamTemp float64

	// Cards are the remaining header cards, carried through to output
	Cards []fitsio.Card
}

// Image is the pixels and header of one camera
type Image struct {
	Pixels ci.Image
	Header Header
}

type slot struct {
	present bool
	img     Image
}

// Exposure is a CI exposure.  It is not thread safe.
type Exposure struct {
	slots [ci.NumExtnames]slot
	phase Phase

	// PrimaryCards is the primary header of the raw file, if any
	PrimaryCards []fitsio.Card
}

// New creates an exposure holding images.  Each image is placed in the slot
// of its header Extname; a later image for the same camera replaces an
// earlier one.
func New(images []Image) (*Exposure, error) {
	e := &Exposure{}
	for _, img := range images {
		if err := e.Assign(img); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Assign places img in its camera's slot.  Images may only be assigned
// before calibration begins.
func (e *Exposure) Assign(img Image) error {
	i := img.Header.Extname.Index()
	if i < 0 {
		return img.Header.Extname.Check()
	}
	if e.phase != Raw {
		return fmt.Errorf("%w: assigning %s to an exposure already %s", ErrPhaseOrder, img.Header.Extname, e.phase)
	}
	e.slots[i] = slot{present: true, img: img}
	return nil
}

// Get returns the image of camera ext, if it is populated
func (e *Exposure) Get(ext ci.Extname) (Image, bool) {
	i := ext.Index()
	if i < 0 || !e.slots[i].present {
		return Image{}, false
	}
	return e.slots[i].img, true
}

// NumPopulated returns the number of cameras with an image
func (e *Exposure) NumPopulated() int {
	n := 0
	for _, s := range e.slots {
		if s.present {
			n++
		}
	}
	return n
}

// PopulatedExtnames returns the cameras with an image, in slot order
func (e *Exposure) PopulatedExtnames() []ci.Extname {
	var out []ci.Extname
	for i, s := range e.slots {
		if s.present {
			out = append(out, ci.Extnames()[i])
		}
	}
	return out
}

// Phase returns how far through calibration the exposure is
func (e *Exposure) Phase() Phase {
	return e.phase
}

// each calls fcn on every populated slot, in slot order, stopping at the
// first error.  fcn may modify the image's pixels in place.
func (e *Exposure) each(fcn func(*Image) error) error {
	for i := range e.slots {
		if !e.slots[i].present {
			continue
		}
		if err := fcn(&e.slots[i].img); err != nil {
			return err
		}
	}
	return nil
}
