package nwcal

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLongestIncreasingRun(t *testing.T) {
	lo, hi := longestIncreasingRun([]float64{1, 2, 3, 2, 3, 4, 5, 1})
	require.Equal(t, 3, lo)
	require.Equal(t, 7, hi)

	lo, hi = longestIncreasingRun([]float64{5, 4, 3})
	require.Equal(t, 1, hi-lo)

	lo, hi = longestIncreasingRun([]float64{1, 2, 3})
	require.Equal(t, 0, lo)
	require.Equal(t, 3, hi)
}

func TestMedianAbsDeviation(t *testing.T) {
	require.InDelta(t, 1.0, medianAbsDeviation([]float64{1, 2, 3, 4, 5}), 1e-12)
	require.InDelta(t, 0.0, medianAbsDeviation([]float64{7, 7, 7}), 1e-12)
}

func TestRansacLineRejectsOutliers(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	var xs, ys []float64
	for i := 0; i < 200; i++ {
		x := 10 * rng.Float64()
		xs = append(xs, x)
		ys = append(ys, 1+2*x+0.05*rng.NormFloat64())
	}
	// Outliers far above the line.
	for i := 0; i < 30; i++ {
		x := 10 * rng.Float64()
		xs = append(xs, x)
		ys = append(ys, 1+2*x+50)
	}

	slope, intercept, err := ransacLine(xs, ys, rng)
	require.NoError(t, err)
	require.InDelta(t, 2.0, slope, 0.2)
	require.InDelta(t, 1.0, intercept, 1.0)
}

func TestGPRegressorSmooths(t *testing.T) {
	var xs, ys []float64
	for x := -1.0; x <= 1.0; x += 0.1 {
		xs = append(xs, x)
		ys = append(ys, x*x)
	}
	gp, err := newGPRegressor(xs, ys, 0.2, 1e-5)
	require.NoError(t, err)

	mean, std := gp.Predict(0.0)
	require.InDelta(t, 0.0, mean, 0.05)
	require.GreaterOrEqual(t, std, 0.0)

	mean, _ = gp.Predict(0.75)
	require.InDelta(t, 0.5625, mean, 0.05)
}

func TestWavySamplesCuts(t *testing.T) {
	events := []DitheredEvent{
		{Event: Event{Pos: 10, VWMulti: 0}, TotalRL: 1000, TotalRR: 1100},
		{Event: Event{Pos: 20, VWMulti: 1}, TotalRL: 1000, TotalRR: 1100}, // veto fired
		{Event: Event{Pos: 30, VWMulti: 0}, TotalRL: 10, TotalRR: 12},    // noise floor
		{Event: Event{Pos: 40, VWMulti: 0}, TotalRL: 3500, TotalRR: 900}, // near ceiling
	}
	xs, ys := WavySamples(events)
	require.Len(t, xs, 1)
	require.Equal(t, 10.0, xs[0])
	require.InDelta(t, math.Log(1.1), ys[0], 1e-9)
}

func TestWavyFitStraightBar(t *testing.T) {
	// On a bar without waviness the non-parametric fit must agree with the
	// straight line it generalizes.
	rng := rand.New(rand.NewSource(41))
	var xs, ys []float64
	for i := 0; i < 30000; i++ {
		pos := -100 + 200*rng.Float64()
		xs = append(xs, pos)
		ys = append(ys, 0.1+0.02*pos+0.1*rng.NormFloat64())
	}

	fit, err := NewWavyCorrector(xs, ys, rng).Fit()
	require.NoError(t, err)

	for pos := -50.0; pos <= 50; pos += 10 {
		require.InDelta(t, 0.1+0.02*pos, fit.Eval(pos), 0.05, "pos=%v", pos)
	}
	require.InDelta(t, math.Exp(0.1), fit.GainRatio(), 0.06)
	require.InDelta(t, 100.0, fit.AttenuationLength(), 10)
	require.Less(t, fit.Spread(), 0.15)
}

func TestWavyFitInsufficient(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := NewWavyCorrector([]float64{1, 2}, []float64{0.1, 0.2}, rng).Fit()
	var insufficient *ErrInsufficientData
	require.ErrorAs(t, err, &insufficient)
}
