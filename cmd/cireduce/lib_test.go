package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.jpl.nasa.gov/bdube/cireduce/ci"
	"github.jpl.nasa.gov/bdube/cireduce/darkcurrent"
)

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "trim.left", envKey("CI_REDUCE_TRIM_LEFT"))
	assert.Equal(t, "etc", envKey("CI_REDUCE_ETC"))
	assert.Equal(t, "gains.guide0", envKey("CI_REDUCE_GAINS_GUIDE0"))
}

func TestGainTableOverridesDefaults(t *testing.T) {
	c := DefaultConfig()
	c.Gains = map[string]float64{"focus4": 2.0}
	g, err := c.GainTable()
	require.NoError(t, err)
	v, err := g.Gain(ci.FOCUS4)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
	v, err = g.Gain(ci.GUIDE0)
	require.NoError(t, err)
	assert.Equal(t, ci.DefaultGain, v)

	c.Gains = map[string]float64{"GUIDE1": 2.0}
	_, err = c.GainTable()
	assert.True(t, errors.Is(err, ci.ErrInvalidExtname))

	c.Gains = map[string]float64{"GUIDE0": -1}
	_, err = c.GainTable()
	assert.Error(t, err)
}

func TestLevel(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, slog.LevelInfo, c.Level())
	c.LogLevel = "debug"
	assert.Equal(t, slog.LevelDebug, c.Level())
	c.LogLevel = "loud"
	assert.Equal(t, slog.LevelInfo, c.Level())
}

func TestDarkPredictorSelection(t *testing.T) {
	c := DefaultConfig()
	g, err := c.GainTable()
	require.NoError(t, err)

	p, err := c.DarkPredictor(g, [2]int{3, 2}, nil)
	require.NoError(t, err)
	assert.IsType(t, &darkcurrent.Predictor{}, p)

	c.DarkSource = "Model"
	p, err = c.DarkPredictor(g, [2]int{3, 2}, nil)
	require.NoError(t, err)
	img, err := p.PredictADU(ci.GUIDE0, 5, 11)
	require.NoError(t, err)
	assert.Equal(t, [2]int{3, 2}, img.Shape())

	c.DarkSource = "crystal ball"
	_, err = c.DarkPredictor(g, [2]int{3, 2}, nil)
	assert.Error(t, err)
}

func TestBuildMux(t *testing.T) {
	c := DefaultConfig()
	c.RateLimit = 1
	c.RateBurst = 1
	g, err := c.GainTable()
	require.NoError(t, err)
	mux := BuildMux(c, g)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		return rec
	}
	assert.Equal(t, http.StatusOK, get("/dark/rate?t=11").Code)
	assert.Equal(t, http.StatusTooManyRequests, get("/dark/rate?t=11").Code)

	// the throttle status route is never limited
	rec := get("/throttle")
	require.Equal(t, http.StatusOK, rec.Code)
	var b struct {
		Bool bool `json:"bool"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&b))
	assert.True(t, b.Bool)
}
