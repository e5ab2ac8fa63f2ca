package calib

import (
	"fmt"
	"io"
	"strings"

	"github.com/astrogo/fitsio"

	"github.jpl.nasa.gov/bdube/cireduce/ci"
)

// ImageExt is one image extension of a multi-extension FITS file
type ImageExt struct {
	// Name is written as EXTNAME
	Name string

	Image ci.Image

	// Cards are additional header cards
	Cards []fitsio.Card
}

// WriteMEF streams a multi-extension fits file to w.  The primary HDU holds
// no data, only the primary cards.  Pixels are written as float32 for
// bitpix -32 or float64 for bitpix -64.
func WriteMEF(w io.Writer, bitpix int, primary []fitsio.Card, exts []ImageExt) error {
	if bitpix != -32 && bitpix != -64 {
		return fmt.Errorf("WriteMEF: unsupported BITPIX %d", bitpix)
	}
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()

	phdr := fitsio.NewHeader(primary, fitsio.IMAGE_HDU, 8, []int{})
	phdu, err := fitsio.NewPrimaryHDU(phdr)
	if err != nil {
		return err
	}
	err = fits.Write(phdu)
	if err != nil {
		return err
	}

	for _, ext := range exts {
		err = writeExt(fits, bitpix, ext)
		if err != nil {
			return fmt.Errorf("writing %s: %w", ext.Name, err)
		}
	}
	return nil
}

func writeExt(fits *fitsio.File, bitpix int, ext ImageExt) error {
	im := fitsio.NewImage(bitpix, []int{ext.Image.Width, ext.Image.Height})
	defer im.Close()
	cards := append([]fitsio.Card{{Name: "EXTNAME", Value: ext.Name}}, UserCards(ext.Cards)...)
	err := im.Header().Append(cards...)
	if err != nil {
		return err
	}
	if bitpix == -32 {
		buf := make([]float32, len(ext.Image.Pix))
		for i, v := range ext.Image.Pix {
			buf[i] = float32(v)
		}
		err = im.Write(buf)
	} else {
		err = im.Write(ext.Image.Pix)
	}
	if err != nil {
		return err
	}
	return fits.Write(im)
}

// structural keywords are written by fitsio from the HDU shape and type
var structural = map[string]bool{
	"SIMPLE": true, "XTENSION": true, "BITPIX": true, "EXTEND": true,
	"PCOUNT": true, "GCOUNT": true, "EXTNAME": true, "BZERO": true,
	"BSCALE": true, "END": true,
}

// UserCards returns cards without the structural keywords, so they can be
// carried from one HDU to a new one of a different shape or type
func UserCards(cards []fitsio.Card) []fitsio.Card {
	out := make([]fitsio.Card, 0, len(cards))
	for _, c := range cards {
		n := strings.ToUpper(c.Name)
		if structural[n] || strings.HasPrefix(n, "NAXIS") {
			continue
		}
		out = append(out, c)
	}
	return out
}
