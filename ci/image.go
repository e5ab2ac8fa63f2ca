package ci

import (
	"errors"
	"fmt"
)

// ErrShape is generated when two images which must be the same size are not
var ErrShape = errors.New("image shapes differ")

// Image is a 2D array of pixel values.  Pix is strided by Width, i.e.
// the pixel at (x, y) is Pix[y*Width+x].
type Image struct {
	Width  int
	Height int
	Pix    []float64
}

// NewImage returns a zero-valued image of the given size
func NewImage(width, height int) Image {
	return Image{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// NewImageFilled returns an image with every pixel set to v
func NewImageFilled(width, height int, v float64) Image {
	img := NewImage(width, height)
	img.Fill(v)
	return img
}

// At returns the pixel at (x, y)
func (img Image) At(x, y int) float64 {
	return img.Pix[y*img.Width+x]
}

// Set sets the pixel at (x, y)
func (img Image) Set(x, y int, v float64) {
	img.Pix[y*img.Width+x] = v
}

// Shape returns (W, H)
func (img Image) Shape() [2]int {
	return [2]int{img.Width, img.Height}
}

// SameShape returns nil if other is the same size as img, else an error
// wrapping ErrShape
func (img Image) SameShape(other Image) error {
	if img.Width != other.Width || img.Height != other.Height || len(img.Pix) != len(other.Pix) {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrShape, img.Width, img.Height, other.Width, other.Height)
	}
	return nil
}

// Clone returns a deep copy of img
func (img Image) Clone() Image {
	out := Image{Width: img.Width, Height: img.Height, Pix: make([]float64, len(img.Pix))}
	copy(out.Pix, img.Pix)
	return out
}

// Fill sets every pixel to v
func (img Image) Fill(v float64) {
	for i := range img.Pix {
		img.Pix[i] = v
	}
}

// Scale multiplies every pixel by s in place
func (img Image) Scale(s float64) {
	for i := range img.Pix {
		img.Pix[i] *= s
	}
}

// SubInPlace does img -= other, element-wise
func (img Image) SubInPlace(other Image) error {
	if err := img.SameShape(other); err != nil {
		return err
	}
	for i, v := range other.Pix {
		img.Pix[i] -= v
	}
	return nil
}

// DivInPlace does img /= other, element-wise.  Zeros in other are not
// special cased and produce Inf or NaN.
func (img Image) DivInPlace(other Image) error {
	if err := img.SameShape(other); err != nil {
		return err
	}
	for i, v := range other.Pix {
		img.Pix[i] /= v
	}
	return nil
}
