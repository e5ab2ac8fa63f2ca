// Package imgrec reads raw CI exposures and records reduced ones to disk.
package imgrec

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/astrogo/fitsio"

	"github.jpl.nasa.gov/bdube/cireduce/calib"
	"github.jpl.nasa.gov/bdube/cireduce/ci"
	"github.jpl.nasa.gov/bdube/cireduce/exposure"
)

// Recorder records reduced exposures with incrementing filenames in yyyy-mm-dd subfolders.  It is not thread safe.
type Recorder struct {
	// counter is the internally incrementing counter
	counter int

	// Root is the root path
	Root string

	// Prefix is the prefix for the filenames
	Prefix string

	// timeFldr is the subfolder with yyy-mm-dd format.
	timeFldr string

	// now is swapped in tests
	now func() time.Time
}

// updateFolder checks the current time and updates the folder and timestamp as needed
func (r *Recorder) updateFolder() {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	t := now()
	r.timeFldr = fmt.Sprintf("%04d-%02d-%02d", t.Year(), t.Month(), t.Day())
}

// mkDir makes the folder and returns it
func (r *Recorder) mkDir() (string, error) {
	fldr := path.Join(r.Root, r.timeFldr)
	err := os.MkdirAll(fldr, 0777)
	return fldr, err
}

// Incr updates the filename counter; it scans the folder to do so.  If there is an error, the counter is not incremented
func (r *Recorder) Incr() {
	r.updateFolder()
	dn, _ := r.mkDir()
	files, err := ioutil.ReadDir(dn)
	if err != nil {
		return
	}
	count := 0
	for _, file := range files {
		// skip directories, non-fits, and wrong prefix
		if file.IsDir() {
			continue
		}
		fn := file.Name()
		if !strings.HasSuffix(fn, ".fits") || !strings.HasPrefix(fn, r.Prefix) {
			continue
		}
		bit := strings.TrimPrefix(fn, r.Prefix)
		bit = bit[:len(bit)-5] // pop fits
		n, err := strconv.Atoi(bit)
		if err != nil {
			// someone else's file with our prefix
			continue
		}
		if count < n {
			count = n
		}
	}
	r.counter = count + 1
}

// WriteExposure writes the populated cameras of e as float32 image
// extensions to the next file in today's folder and returns its path
func (r *Recorder) WriteExposure(e *exposure.Exposure) (string, error) {
	r.Incr()
	fldr, err := r.mkDir()
	if err != nil {
		return "", err
	}
	fn := path.Join(fldr, fmt.Sprintf("%s%06d.fits", r.Prefix, r.counter))

	var exts []calib.ImageExt
	for _, ext := range e.PopulatedExtnames() {
		img, _ := e.Get(ext)
		cards := append(without(calib.UserCards(img.Header.Cards), "ACTTIME", "CAMTEMP", "CALSTAT"),
			fitsio.Card{Name: "ACTTIME", Value: img.Header.ActTime, Comment: "actual exposure time [s]"},
			fitsio.Card{Name: "CAMTEMP", Value: img.Header.CamTemp, Comment: "camera temperature [C]"},
			fitsio.Card{Name: "CALSTAT", Value: e.Phase().String(), Comment: "calibration applied"})
		exts = append(exts, calib.ImageExt{Name: string(ext), Image: img.Pixels, Cards: cards})
	}

	fid, err := os.Create(fn)
	if err != nil {
		return "", err
	}
	defer fid.Close()
	err = calib.WriteMEF(fid, -32, calib.UserCards(e.PrimaryCards), exts)
	if err != nil {
		return "", err
	}
	return fn, nil
}

// ReadExposure reads a raw CI exposure.  Every image extension must have a
// valid EXTNAME, ACTTIME (or EXPTIME), and CAMTEMP.  trim is removed from
// each image.
func ReadExposure(fn string, trim calib.Trim) (*exposure.Exposure, error) {
	fid, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fid.Close()
	f, err := fitsio.Open(fid)
	if err != nil {
		return nil, fmt.Errorf("opening FITS %s: %w", fn, err)
	}
	defer f.Close()

	e := &exposure.Exposure{}
	for i, hdu := range f.HDUs() {
		if i == 0 {
			e.PrimaryCards = headerCards(hdu.Header())
		}
		im, ok := hdu.(fitsio.Image)
		if !ok || len(im.Header().Axes()) != 2 {
			continue
		}
		img, err := readImage(im, trim)
		if err != nil {
			return nil, fmt.Errorf("%s HDU %d: %w", fn, i, err)
		}
		if err := e.Assign(img); err != nil {
			return nil, fmt.Errorf("%s HDU %d: %w", fn, i, err)
		}
	}
	return e, nil
}

func readImage(im fitsio.Image, trim calib.Trim) (exposure.Image, error) {
	hdr := im.Header()
	ext, err := ci.ParseExtname(im.Name())
	if err != nil {
		return exposure.Image{}, err
	}
	act, err := calib.HeaderFloat(hdr, "ACTTIME")
	if err != nil {
		act, err = calib.HeaderFloat(hdr, "EXPTIME")
		if err != nil {
			return exposure.Image{}, fmt.Errorf("%s: ACTTIME or EXPTIME: %w", ext, err)
		}
	}
	temp, err := calib.HeaderFloat(hdr, "CAMTEMP")
	if err != nil {
		return exposure.Image{}, fmt.Errorf("%s: %w", ext, err)
	}
	pix, err := calib.ImageFromHDU(im)
	if err != nil {
		return exposure.Image{}, fmt.Errorf("%s: %w", ext, err)
	}
	pix, err = trim.Apply(pix)
	if err != nil {
		return exposure.Image{}, fmt.Errorf("%s: %w", ext, err)
	}
	return exposure.Image{
		Pixels: pix,
		Header: exposure.Header{
			Extname: ext,
			ActTime: act,
			CamTemp: temp,
			Cards:   headerCards(hdr),
		},
	}, nil
}

// headerCards copies the cards out of hdr
func headerCards(hdr *fitsio.Header) []fitsio.Card {
	keys := hdr.Keys()
	out := make([]fitsio.Card, 0, len(keys))
	for _, k := range keys {
		if c := hdr.Get(k); c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// without returns cards minus any named names
func without(cards []fitsio.Card, names ...string) []fitsio.Card {
	out := make([]fitsio.Card, 0, len(cards))
outer:
	for _, c := range cards {
		for _, n := range names {
			if strings.EqualFold(c.Name, n) {
				continue outer
			}
		}
		out = append(out, c)
	}
	return out
}
