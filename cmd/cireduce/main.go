package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/theckman/yacspin"

	yml "gopkg.in/yaml.v2"

	"github.jpl.nasa.gov/bdube/cireduce/ci"
	"github.jpl.nasa.gov/bdube/cireduce/darkcurrent"
	"github.jpl.nasa.gov/bdube/cireduce/exposure"
	"github.jpl.nasa.gov/bdube/cireduce/imgrec"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "cireduce.yml"

	// EnvPrefix is the prefix of environment variables that override the config file
	EnvPrefix = "CI_REDUCE_"

	k = koanf.New(".")
)

// envKey maps CI_REDUCE_TRIM_LEFT to trim.left
func envKey(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", -1)
}

func setupconfig() {
	k.Load(structs.Provider(DefaultConfig(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		log.Fatalf("error loading environment: %v", err)
	}
}

func loadconfig() Config {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.Level()}))
	slog.SetDefault(logger)
	return c
}

func root() {
	str := `cireduce removes bias, dark current, and flat field structure from CI exposures.
Dark current is predicted from the master dark library, rescaled to the
temperature of each camera, or from the dark current rate model alone.

Usage:
	cireduce <command>

Commands:
	rate <temperature C>
	predict <EXTNAME> <exptime s> <temperature C>
	reduce <raw.fits>...
	serve
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `cireduce is amenable to configuration via its .yml file.  For a primer on YAML, see
https://yaml.org/start.html

Every key may be overridden by an environment variable with the CI_REDUCE_ prefix,
e.g. CI_REDUCE_ETC=/data/etc or CI_REDUCE_TRIM_LEFT=50.

Keys:
- etc: the calibration directory.  darkindex, masterdark, bias, and flat are relative to it
- darksource: "library" to rescale master darks, "model" to use the rate model
- trim: overscan columns and rows (left, right, bottom, top) removed from every image
- gains: e-/ADU of each camera by EXTNAME, default 1.64
- outdir, prefix: reduced files are written to outdir/yyyy-mm-dd/<prefix>NNNNNN.fits
- addr, ratelimit, rateburst: the listen address and request limit of serve
- loglevel: debug, info, warn, or error

Cameras: GUIDE0 FOCUS1 GUIDE2 GUIDE3 FOCUS4 GUIDE5 FOCUS6 GUIDE7 GUIDE8 FOCUS9`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("cireduce version %v\n", Version)
}

func parseFloats(args []string) []float64 {
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			log.Fatalf("argument %d: %v", i+1, err)
		}
		out[i] = f
	}
	return out
}

func rate(args []string) {
	if len(args) != 1 {
		log.Fatal("usage: cireduce rate <temperature C>")
	}
	t := parseFloats(args)[0]
	fmt.Printf("%.6g e-/pix/s at %g C\n", darkcurrent.Rate(t), t)
}

func predict(args []string) {
	if len(args) != 3 {
		log.Fatal("usage: cireduce predict <EXTNAME> <exptime s> <temperature C>")
	}
	c := loadconfig()
	ext, err := ci.ParseExtname(args[0])
	if err != nil {
		log.Fatal(err)
	}
	f := parseFloats(args[1:])
	exptime, t := f[0], f[1]
	gains, err := c.GainTable()
	if err != nil {
		log.Fatal(err)
	}
	adu, err := darkcurrent.TotalADU(ext, exptime, t, gains)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("model: %.6g ADU/pix for %s, %g s at %g C\n", adu, ext, exptime, t)

	index, err := c.Library().DarkIndex()
	if err != nil {
		slog.Warn("master dark index unavailable", "err", err)
		return
	}
	fn, ok := darkcurrent.ChooseMasterDark(exptime, ext, t, index)
	if !ok {
		fmt.Printf("master dark: none with ORIGTIME %g s, default %s\n", exptime, c.Library().DefaultMasterDark())
		return
	}
	fmt.Printf("master dark: %s\n", fn)
}

// firstShape returns the shape of the first populated camera of e
func firstShape(e *exposure.Exposure) [2]int {
	exts := e.PopulatedExtnames()
	if len(exts) == 0 {
		return [2]int{}
	}
	img, _ := e.Get(exts[0])
	return img.Pixels.Shape()
}

func reduce(args []string) {
	if len(args) == 0 {
		log.Fatal("usage: cireduce reduce <raw.fits>...")
	}
	c := loadconfig()
	gains, err := c.GainTable()
	if err != nil {
		log.Fatal(err)
	}
	lib := c.Library()
	rec := imgrec.Recorder{Root: c.OutDir, Prefix: c.Prefix}

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[11],
		Suffix:            " ",
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		log.Fatal(err)
	}
	if err = spinner.Start(); err != nil {
		log.Fatal(err)
	}
	fail := func(err error) {
		spinner.StopFailMessage(err.Error())
		spinner.StopFail()
		os.Exit(1)
	}
	for i, fn := range args {
		spinner.Message(fmt.Sprintf("(%d/%d) %s", i+1, len(args), fn))
		e, err := imgrec.ReadExposure(fn, c.Trim)
		if err != nil {
			fail(err)
		}
		dark, err := c.DarkPredictor(gains, firstShape(e), slog.Default())
		if err != nil {
			fail(err)
		}
		cal := exposure.Calibrator{Frames: lib, Dark: dark}
		if err = cal.CalibratePixels(e); err != nil {
			fail(fmt.Errorf("%s: %w", fn, err))
		}
		out, err := rec.WriteExposure(e)
		if err != nil {
			fail(err)
		}
		slog.Info("reduced exposure", "raw", fn, "reduced", out, "cameras", e.NumPopulated())
	}
	spinner.StopMessage(fmt.Sprintf("reduced %d exposures", len(args)))
	spinner.Stop()
}

func serve() {
	c := loadconfig()
	gains, err := c.GainTable()
	if err != nil {
		log.Fatal(err)
	}
	mux := BuildMux(c, gains)
	slog.Info("now listening for requests", "addr", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, mux))
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "version":
		pversion()
		return
	case "rate":
		rate(args[2:])
		return
	case "predict":
		predict(args[2:])
		return
	case "reduce":
		reduce(args[2:])
		return
	case "serve", "run":
		serve()
		return
	default:
		log.Fatal("unknown command")
	}
}
