/*Package calib reads the CI calibration library: the master bias, master
flat, and master darks, and the index of master darks.

All files live in one directory (the "etc" directory, $CI_REDUCE_ETC).  The
master bias, flat, and darks are multi-extension FITS files with one image
HDU per camera, selected by EXTNAME.  The master dark index is a binary
table.

Nothing is cached; every call reads from disk.  A Library is therefore safe
to share between goroutines.

*/
package calib

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrogo/fitsio"

	"github.jpl.nasa.gov/bdube/cireduce/ci"
	"github.jpl.nasa.gov/bdube/cireduce/darkcurrent"
)

// ErrMissingCalibrationFile is generated when a calibration file or the
// master dark index does not exist.  It is not retried.
var ErrMissingCalibrationFile = errors.New("calibration file missing")

// Paths are the locations of the calibration files.  Non-absolute file
// names are taken relative to Etc.
type Paths struct {
	// Etc is the calibration directory
	Etc string `koanf:"etc" yaml:"etc"`

	// DarkIndex is the master dark index table
	DarkIndex string `koanf:"darkindex" yaml:"darkindex"`

	// MasterDark is the default master dark, used when no entry in the
	// index has a matching integration time
	MasterDark string `koanf:"masterdark" yaml:"masterdark"`

	// Bias is the master bias
	Bias string `koanf:"bias" yaml:"bias"`

	// Flat is the master flat
	Flat string `koanf:"flat" yaml:"flat"`
}

// DefaultPaths returns the standard file names of the calibration library
func DefaultPaths() Paths {
	return Paths{
		DarkIndex:  "master_dark_index.fits",
		MasterDark: "CI_master_dark.fits",
		Bias:       "CI_master_bias.fits",
		Flat:       "CI_master_flat.fits",
	}
}

// Resolve joins fn onto Etc unless it is absolute
func (p Paths) Resolve(fn string) string {
	if filepath.IsAbs(fn) || p.Etc == "" {
		return fn
	}
	return filepath.Join(p.Etc, fn)
}

// Library reads calibration frames from disk.  It implements
// darkcurrent.MasterDarkLibrary and exposure.FrameSource.
type Library struct {
	Paths Paths

	// Trim is the overscan removed from every frame read
	Trim Trim
}

// mustExist returns ErrMissingCalibrationFile if path does not exist
func mustExist(path string) error {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingCalibrationFile, path)
		}
		return err
	}
	return nil
}

// ErrIndexColumn is generated when the master dark index lacks a column or
// stores it in a type that can not be converted
var ErrIndexColumn = errors.New("master dark index column missing or of unsupported type")

// indexColumns are the columns of the master dark index
var indexColumns = []string{"READWARN", "ORIGTIME", "EXTNAME", "GCCDTEMP", "FNAME_FULL"}

// colNumber converts a numeric table cell of any TFORM to float64
func colNumber(row map[string]interface{}, name string) (float64, error) {
	switch v := row[name].(type) {
	case uint8:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: %s is %T", ErrIndexColumn, name, v)
	}
}

func colString(row map[string]interface{}, name string) (string, error) {
	v, ok := row[name].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T", ErrIndexColumn, name, row[name])
	}
	return strings.TrimRight(v, "\x00 "), nil
}

// indexEntry converts one scanned row of the index
func indexEntry(row map[string]interface{}) (darkcurrent.IndexEntry, error) {
	var e darkcurrent.IndexEntry
	rw, err := colNumber(row, "READWARN")
	if err != nil {
		return e, err
	}
	e.ReadWarn = int(rw)
	if e.OrigTime, err = colNumber(row, "ORIGTIME"); err != nil {
		return e, err
	}
	if e.GCCDTemp, err = colNumber(row, "GCCDTEMP"); err != nil {
		return e, err
	}
	ext, err := colString(row, "EXTNAME")
	if err != nil {
		return e, err
	}
	e.Extname = ci.Extname(strings.TrimSpace(strings.Trim(ext, "\x00")))
	if e.FnameFull, err = colString(row, "FNAME_FULL"); err != nil {
		return e, err
	}
	return e, nil
}

// ReadIndex reads a master dark index table from path.  The table is the
// first binary table HDU in the file.
func ReadIndex(path string) ([]darkcurrent.IndexEntry, error) {
	if err := mustExist(path); err != nil {
		return nil, err
	}
	fid, f, err := openFITS(path)
	if err != nil {
		return nil, err
	}
	defer fid.Close()
	defer f.Close()

	var tbl *fitsio.Table
	for _, hdu := range f.HDUs() {
		if t, ok := hdu.(*fitsio.Table); ok {
			tbl = t
			break
		}
	}
	if tbl == nil {
		return nil, fmt.Errorf("%s: no table HDU in master dark index", path)
	}
	// column names are matched case insensitively; cells are read in the
	// column's own type and converted
	names := make(map[string]string, tbl.NumCols())
	for _, col := range tbl.Cols() {
		names[strings.ToUpper(strings.TrimSpace(col.Name))] = col.Name
	}
	for _, c := range indexColumns {
		if _, ok := names[c]; !ok {
			return nil, fmt.Errorf("%s: %w: no %s", path, ErrIndexColumn, c)
		}
	}
	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []darkcurrent.IndexEntry
	for rows.Next() {
		raw := map[string]interface{}{}
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", path, len(out), err)
		}
		row := make(map[string]interface{}, len(indexColumns))
		for _, c := range indexColumns {
			row[c] = raw[names[c]]
		}
		e, err := indexEntry(row)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", path, len(out), err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DarkIndex reads the master dark index
func (l Library) DarkIndex() ([]darkcurrent.IndexEntry, error) {
	return ReadIndex(l.Paths.Resolve(l.Paths.DarkIndex))
}

// DefaultMasterDark returns the path to the default master dark
func (l Library) DefaultMasterDark() string {
	return l.Paths.Resolve(l.Paths.MasterDark)
}

// readFrame reads extension ext of path with the overscan trimmed, and its header
func (l Library) readFrame(path string, ext ci.Extname) (ci.Image, *fitsio.Header, error) {
	if err := ext.Check(); err != nil {
		return ci.Image{}, nil, err
	}
	if err := mustExist(path); err != nil {
		return ci.Image{}, nil, err
	}
	fid, f, err := openFITS(path)
	if err != nil {
		return ci.Image{}, nil, err
	}
	defer fid.Close()
	defer f.Close()

	hdu, err := findHDU(f, string(ext))
	if err != nil {
		return ci.Image{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	imHDU, ok := hdu.(fitsio.Image)
	if !ok {
		return ci.Image{}, nil, fmt.Errorf("%s[%s]: %w", path, ext, ErrNotImage)
	}
	img, err := ImageFromHDU(imHDU)
	if err != nil {
		return ci.Image{}, nil, fmt.Errorf("%s[%s]: %w", path, ext, err)
	}
	img, err = l.Trim.Apply(img)
	if err != nil {
		return ci.Image{}, nil, fmt.Errorf("%s[%s]: %w", path, ext, err)
	}
	return img, imHDU.Header(), nil
}

// ReadMasterDark reads extension ext of the master dark at path with the
// overscan removed, and the temperature it was taken at (GCCDTEMP)
func (l Library) ReadMasterDark(path string, ext ci.Extname) (ci.Image, float64, error) {
	img, hdr, err := l.readFrame(path, ext)
	if err != nil {
		return ci.Image{}, 0, err
	}
	t, err := HeaderFloat(hdr, "GCCDTEMP")
	if err != nil {
		return ci.Image{}, 0, fmt.Errorf("%s[%s]: %w", path, ext, err)
	}
	return img, t, nil
}

// ReadBias reads the master bias for camera ext
func (l Library) ReadBias(ext ci.Extname) (ci.Image, error) {
	img, _, err := l.readFrame(l.Paths.Resolve(l.Paths.Bias), ext)
	return img, err
}

// ReadFlat reads the master flat for camera ext
func (l Library) ReadFlat(ext ci.Extname) (ci.Image, error) {
	img, _, err := l.readFrame(l.Paths.Resolve(l.Paths.Flat), ext)
	return img, err
}
