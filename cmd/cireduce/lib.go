package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.jpl.nasa.gov/bdube/cireduce/calib"
	"github.jpl.nasa.gov/bdube/cireduce/ci"
	"github.jpl.nasa.gov/bdube/cireduce/darkcurrent"
	"github.jpl.nasa.gov/bdube/cireduce/exposure"
	"github.jpl.nasa.gov/bdube/cireduce/server/middleware/throttle"
)

const (
	// DarkSourceLibrary predicts darks from rescaled master darks
	DarkSourceLibrary = "library"

	// DarkSourceModel predicts uniform darks from the rate model alone
	DarkSourceModel = "model"
)

// Config is a struct that holds the setup of the reduction.
// It is populated by koanf from defaults, cireduce.yml, and CI_REDUCE_ environment variables.
type Config struct {
	// Addr is the address to listen at for serve
	Addr string `koanf:"addr" yaml:"addr"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `koanf:"loglevel" yaml:"loglevel"`

	// Etc is the calibration directory; the remaining paths are relative to it
	Etc string `koanf:"etc" yaml:"etc"`

	DarkIndex  string `koanf:"darkindex" yaml:"darkindex"`
	MasterDark string `koanf:"masterdark" yaml:"masterdark"`
	Bias       string `koanf:"bias" yaml:"bias"`
	Flat       string `koanf:"flat" yaml:"flat"`

	// DarkSource is "library" or "model"
	DarkSource string `koanf:"darksource" yaml:"darksource"`

	// Trim is the overscan removed from every raw and calibration image
	Trim calib.Trim `koanf:"trim" yaml:"trim"`

	// Gains maps EXTNAME to e-/ADU.  Cameras not listed use ci.DefaultGain
	Gains map[string]float64 `koanf:"gains" yaml:"gains"`

	// OutDir is the root folder reduced exposures are written under
	OutDir string `koanf:"outdir" yaml:"outdir"`

	// Prefix is prepended to the reduced exposure filenames
	Prefix string `koanf:"prefix" yaml:"prefix"`

	// RateLimit is the number of requests per second serve answers; <= 0 is unlimited
	RateLimit float64 `koanf:"ratelimit" yaml:"ratelimit"`

	// RateBurst is the largest burst of requests serve answers at once
	RateBurst int `koanf:"rateburst" yaml:"rateburst"`
}

// DefaultConfig is the configuration used when nothing else is given
func DefaultConfig() Config {
	p := calib.DefaultPaths()
	return Config{
		Addr:       ":8000",
		LogLevel:   "info",
		Etc:        p.Etc,
		DarkIndex:  p.DarkIndex,
		MasterDark: p.MasterDark,
		Bias:       p.Bias,
		Flat:       p.Flat,
		DarkSource: DarkSourceLibrary,
		Gains:      ci.DefaultGains(),
		OutDir:     "reduced",
		Prefix:     "ci-",
		RateLimit:  20,
		RateBurst:  5,
	}
}

// Library returns the calibration library described by c
func (c Config) Library() calib.Library {
	return calib.Library{
		Paths: calib.Paths{
			Etc:        c.Etc,
			DarkIndex:  c.DarkIndex,
			MasterDark: c.MasterDark,
			Bias:       c.Bias,
			Flat:       c.Flat,
		},
		Trim: c.Trim,
	}
}

// GainTable returns the gain table of c.  Every camera starts at
// ci.DefaultGain and is overridden by c.Gains, matched case insensitively.
func (c Config) GainTable() (ci.GainTable, error) {
	merged := ci.DefaultGains()
	for k, v := range c.Gains {
		ext, err := ci.ParseExtname(k)
		if err != nil {
			return ci.GainTable{}, fmt.Errorf("gains: %w", err)
		}
		merged[string(ext)] = v
	}
	return ci.GainTableFromStrings(merged)
}

// Level parses LogLevel, defaulting to info
func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// DarkPredictor returns the dark predictor selected by DarkSource.  The
// model predictor produces images of the given shape.
func (c Config) DarkPredictor(gains ci.GainTable, shape [2]int, log *slog.Logger) (exposure.DarkPredictor, error) {
	switch strings.ToLower(c.DarkSource) {
	case "", DarkSourceLibrary:
		return &darkcurrent.Predictor{Library: c.Library(), Log: log}, nil
	case DarkSourceModel:
		return darkcurrent.ModelPredictor{Gains: gains, Width: shape[0], Height: shape[1]}, nil
	default:
		return nil, fmt.Errorf("darksource %q not understood, must be %s or %s", c.DarkSource, DarkSourceLibrary, DarkSourceModel)
	}
}

// BuildMux builds the diagnostics router.  Every route is rate limited
// except the throttle status route; /route-list lists them all.
func BuildMux(c Config, gains ci.GainTable) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)

	thr := throttle.New(c.RateLimit, c.RateBurst)
	httper := darkcurrent.NewHTTPWrapper(gains, c.Library())
	throttle.Inject(httper, thr)

	root.Use(thr.Check)
	httper.RT().Bind(root)
	return root
}
