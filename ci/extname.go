/*Package ci holds the fixed facts about the CI camera array that every other
package keys on: the extension names of the cameras, per-camera constants,
and the pixel array type that calibration operates on.

*/
package ci

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidExtname is generated when a camera extension name is not one
	// of the ten CI cameras
	ErrInvalidExtname = errors.New("invalid CI extension name")
)

// Extname is the FITS EXTNAME of one CI camera, e.g. GUIDE0
type Extname string

// the cameras, in canonical (slot) order
const (
	GUIDE0 Extname = "GUIDE0"
	FOCUS1 Extname = "FOCUS1"
	GUIDE2 Extname = "GUIDE2"
	GUIDE3 Extname = "GUIDE3"
	FOCUS4 Extname = "FOCUS4"
	GUIDE5 Extname = "GUIDE5"
	FOCUS6 Extname = "FOCUS6"
	GUIDE7 Extname = "GUIDE7"
	GUIDE8 Extname = "GUIDE8"
	FOCUS9 Extname = "FOCUS9"
)

// NumExtnames is the number of cameras in a CI exposure
const NumExtnames = 10

var extnames = [NumExtnames]Extname{
	GUIDE0, FOCUS1, GUIDE2, GUIDE3, FOCUS4,
	GUIDE5, FOCUS6, GUIDE7, GUIDE8, FOCUS9,
}

// Extnames returns the valid extension names in slot order.
// The returned slice is a copy and may be modified.
func Extnames() []Extname {
	out := make([]Extname, NumExtnames)
	copy(out, extnames[:])
	return out
}

// Index returns the slot number of e, or -1 if e is not valid
func (e Extname) Index() int {
	for i, v := range extnames {
		if v == e {
			return i
		}
	}
	return -1
}

// Valid returns true if e is one of the CI cameras
func (e Extname) Valid() bool {
	return e.Index() >= 0
}

// Check returns nil if e is valid, else an error wrapping ErrInvalidExtname
func (e Extname) Check() error {
	if !e.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidExtname, string(e))
	}
	return nil
}

// IsGuide returns true for the guide cameras
func (e Extname) IsGuide() bool {
	return e.Valid() && strings.HasPrefix(string(e), "GUIDE")
}

// IsFocus returns true for the focus cameras
func (e Extname) IsFocus() bool {
	return e.Valid() && strings.HasPrefix(string(e), "FOCUS")
}

// ParseExtname converts a header string to an Extname.  FITS pads strings
// with spaces, these are trimmed before validation.
func ParseExtname(s string) (Extname, error) {
	e := Extname(strings.ToUpper(strings.TrimSpace(s)))
	return e, e.Check()
}
