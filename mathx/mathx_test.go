package mathx_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.jpl.nasa.gov/bdube/cireduce/mathx"
)

func ExampleRound() {
	fmt.Println(mathx.Round(2.3, 0.5))
	// Output: 2.5
}

func TestPolyFit1ExactLine(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{1, 3, 5, 7}
	m, b, err := mathx.PolyFit1(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 2, m, 1e-12)
	assert.InDelta(t, 1, b, 1e-12)
}

func TestPolyFit1Errors(t *testing.T) {
	_, _, err := mathx.PolyFit1([]float64{1}, []float64{1})
	assert.ErrorIs(t, err, mathx.ErrTooFewPoints)
	_, _, err = mathx.PolyFit1([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, mathx.ErrLengthMismatch)
	_, _, err = mathx.PolyFit1([]float64{2, 2}, []float64{1, 3})
	assert.ErrorIs(t, err, mathx.ErrTooFewPoints)
}

func TestArgMinAbsDiffTiesGoFirst(t *testing.T) {
	assert.Equal(t, -1, mathx.ArgMinAbsDiff(nil, 3))
	assert.Equal(t, 1, mathx.ArgMinAbsDiff([]float64{5, 10, 15}, 11))
	assert.Equal(t, 0, mathx.ArgMinAbsDiff([]float64{9, 11, 9}, 10))
	assert.Equal(t, 0, mathx.ArgMinAbsDiff([]float64{math.Inf(1)}, 10))
}

func TestArgMinAbsDiffNaNWins(t *testing.T) {
	assert.Equal(t, 1, mathx.ArgMinAbsDiff([]float64{10, math.NaN(), 11, math.NaN()}, 10))
	assert.Equal(t, 0, mathx.ArgMinAbsDiff([]float64{5, 10}, math.NaN()))
}
