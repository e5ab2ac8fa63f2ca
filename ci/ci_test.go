package ci_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.jpl.nasa.gov/bdube/cireduce/ci"
)

func TestExtnamesCanonicalOrder(t *testing.T) {
	names := ci.Extnames()
	require.Len(t, names, ci.NumExtnames)
	for i, e := range names {
		assert.Equal(t, i, e.Index())
		assert.True(t, e.Valid())
	}
	// mutating the copy must not leak back
	names[0] = "NOPE"
	assert.Equal(t, ci.GUIDE0, ci.Extnames()[0])
}

func TestParseExtname(t *testing.T) {
	e, err := ci.ParseExtname(" guide3  ")
	require.NoError(t, err)
	assert.Equal(t, ci.GUIDE3, e)
	assert.True(t, e.IsGuide())
	assert.False(t, e.IsFocus())

	_, err = ci.ParseExtname("GUIDE1")
	assert.True(t, errors.Is(err, ci.ErrInvalidExtname))
	assert.Equal(t, -1, ci.Extname("CIC").Index())
}

func TestNewTableRejectsMismatch(t *testing.T) {
	m := map[ci.Extname]float64{}
	for _, e := range ci.Extnames() {
		m[e] = 1
	}
	_, err := ci.NewTable("x", m, true)
	require.NoError(t, err)

	delete(m, ci.FOCUS9)
	_, err = ci.NewTable("x", m, true)
	assert.True(t, errors.Is(err, ci.ErrBadTable))

	m[ci.FOCUS9] = 1
	m["GUIDE1"] = 1
	_, err = ci.NewTable("x", m, true)
	assert.True(t, errors.Is(err, ci.ErrBadTable))

	delete(m, "GUIDE1")
	m[ci.GUIDE5] = 0
	_, err = ci.NewTable("x", m, true)
	assert.True(t, errors.Is(err, ci.ErrBadTable))
	_, err = ci.NewTable("x", m, false)
	assert.NoError(t, err)
}

func TestGainTableFromStrings(t *testing.T) {
	m := ci.DefaultGains()
	m["guide0"] = 2.0
	delete(m, "GUIDE0")
	g, err := ci.GainTableFromStrings(m)
	require.NoError(t, err)
	v, err := g.Gain(ci.GUIDE0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	_, err = g.Gain("CIX")
	assert.True(t, errors.Is(err, ci.ErrInvalidExtname))
}

func TestImageArithmetic(t *testing.T) {
	a := ci.NewImageFilled(3, 2, 10)
	b := ci.NewImageFilled(3, 2, 4)
	require.NoError(t, a.SubInPlace(b))
	assert.Equal(t, 6.0, a.At(2, 1))

	require.NoError(t, a.DivInPlace(ci.NewImageFilled(3, 2, 2)))
	assert.Equal(t, 3.0, a.At(0, 0))

	a.Scale(2)
	assert.Equal(t, 6.0, a.At(1, 1))

	err := a.SubInPlace(ci.NewImage(2, 3))
	assert.True(t, errors.Is(err, ci.ErrShape))
}

func TestImageDivideByZeroPropagates(t *testing.T) {
	a := ci.NewImageFilled(2, 1, 1)
	a.Set(1, 0, 0)
	require.NoError(t, a.DivInPlace(ci.NewImage(2, 1)))
	assert.True(t, math.IsInf(a.At(0, 0), 1))
	assert.True(t, math.IsNaN(a.At(1, 0)))
}

func TestCloneIsDeep(t *testing.T) {
	a := ci.NewImageFilled(2, 2, 1)
	b := a.Clone()
	b.Fill(5)
	assert.Equal(t, 1.0, a.At(1, 1))
}
