package nwcal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogRatioFitRecoversPhysics(t *testing.T) {
	// ln(R/L) = 0.1 + 0.02*pos corresponds to lambda = 100 cm and a gain
	// ratio of exp(0.1).
	var pts []Point
	for pos := -90.0; pos <= 90; pos += 2 {
		pts = append(pts, Point{X: pos, Y: 0.1 + 0.02*pos, W: 1 + math.Abs(pos)/100})
	}

	fit, err := NewSaturationCorrector(pts, [2]float64{}).Fit()
	require.NoError(t, err)

	require.InDelta(t, 0.1, fit.Intercept, 1e-9)
	require.InDelta(t, 0.02, fit.Slope, 1e-9)
	require.InDelta(t, 100.0, fit.AttenuationLength, 1e-6)
	require.InDelta(t, math.Exp(0.1), fit.GainRatio, 1e-9)
	require.Greater(t, fit.GainRatioErr, 0.0)
	require.Greater(t, fit.AttenuationLengthErr, 0.0)
}

func TestLogRatioFitWindow(t *testing.T) {
	// Points outside the fit window must not influence the line.
	pts := []Point{
		{X: -120, Y: 100, W: 1},
		{X: 120, Y: -100, W: 1},
	}
	for pos := -40.0; pos <= 40; pos += 5 {
		pts = append(pts, Point{X: pos, Y: 0.05 + 0.025*pos, W: 1})
	}

	fit, err := NewSaturationCorrector(pts, [2]float64{}).Fit()
	require.NoError(t, err)
	require.InDelta(t, 0.05, fit.Intercept, 1e-9)
	require.InDelta(t, 0.025, fit.Slope, 1e-9)
}

func TestLogRatioFitInsufficient(t *testing.T) {
	pts := []Point{{X: 200, Y: 1, W: 1}}
	_, err := NewSaturationCorrector(pts, [2]float64{}).Fit()
	var insufficient *ErrInsufficientData
	require.ErrorAs(t, err, &insufficient)
}

func TestLogRatioEval(t *testing.T) {
	fit := LogRatioFit{Intercept: 0.1, Slope: 0.02}
	require.InDelta(t, 0.1, fit.Eval(0), 1e-12)
	require.InDelta(t, 0.5, fit.Eval(20), 1e-12)
	require.InDelta(t, math.Exp(0.5), fit.TotalRatio(20), 1e-12)
}
