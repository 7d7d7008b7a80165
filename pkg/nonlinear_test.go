package nwcal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// syntheticFastTotal generates noiseless points from the two-regime model.
func syntheticFastTotal(linP0, linP1, quadP2, xSwitch float64) []Point {
	var pts []Point
	f := NonLinearFit{LinP0: linP0, LinP1: linP1, QuadP2: quadP2, XSwitch: xSwitch}
	f.QuadP0, f.QuadP1, _ = quadraticParams(linP0, linP1, quadP2, xSwitch)
	for x := 50.0; x < 4000; x += 10 {
		pts = append(pts, Point{X: x, Y: f.Eval(x), W: 1})
	}
	return pts
}

func TestQuadraticParamsContinuity(t *testing.T) {
	const (
		linP0   = 60.0
		linP1   = 1.2
		quadP2  = -2e-4
		xSwitch = 3200.0
	)
	p0, p1, p2 := quadraticParams(linP0, linP1, quadP2, xSwitch)

	linear := linP0 + linP1*xSwitch
	quad := p0 + p1*xSwitch + p2*xSwitch*xSwitch
	require.InDelta(t, linear, quad, 1e-9)

	linSlope := linP1
	quadSlope := p1 + 2*p2*xSwitch
	require.InDelta(t, linSlope, quadSlope, 1e-9)
}

func TestNonLinearFitRecovers(t *testing.T) {
	pts := syntheticFastTotal(60, 1.2, -1.5e-4, 3150)

	fit, err := NewNonLinearCorrector(pts, [2]float64{}).Fit()
	require.NoError(t, err)
	require.True(t, fit.Converged)

	require.InDelta(t, 60, fit.LinP0, 1)
	require.InDelta(t, 1.2, fit.LinP1, 0.01)
	require.GreaterOrEqual(t, fit.XSwitch, xSwitchBounds[0])
	require.LessOrEqual(t, fit.XSwitch, xSwitchBounds[1])

	// The fitted curve must reproduce the data everywhere, whatever exact
	// (curvature, switch) pair the simplex lands on.
	for _, p := range pts {
		require.InDelta(t, p.Y, fit.Eval(p.X), 15.0, "x=%v", p.X)
	}

	// Branches join with matching value and slope.
	atSwitch := fit.LinP0 + fit.LinP1*fit.XSwitch
	quadAtSwitch := fit.QuadP0 + fit.QuadP1*fit.XSwitch + fit.QuadP2*fit.XSwitch*fit.XSwitch
	require.InDelta(t, atSwitch, quadAtSwitch, 1e-6)
}

func TestNonLinearFitPureLinear(t *testing.T) {
	// A response with no bend: curvature should come out near zero and the
	// model should stay linear.
	var pts []Point
	for x := 50.0; x < 4000; x += 10 {
		pts = append(pts, Point{X: x, Y: 10 + 0.9*x, W: 1})
	}

	fit, err := NewNonLinearCorrector(pts, [2]float64{}).Fit()
	require.NoError(t, err)
	require.InDelta(t, 10, fit.LinP0, 1)
	require.InDelta(t, 0.9, fit.LinP1, 0.01)
	for _, p := range pts {
		require.InDelta(t, p.Y, fit.Eval(p.X), 10.0)
	}
}

func TestNonLinearFitInsufficientData(t *testing.T) {
	pts := []Point{
		{X: 1500, Y: 100, W: 1},
		{X: 2000, Y: 130, W: 1},
	}
	// No points above the linear window upper edge is fine, but an empty
	// linear window is not.
	_, err := NewNonLinearCorrector(nil, [2]float64{}).Fit()
	require.Error(t, err)

	fit, err := NewNonLinearCorrector(pts, [2]float64{}).Fit()
	require.NoError(t, err)
	require.NotNil(t, fit)
}

func TestNonLinearEvalPiecewise(t *testing.T) {
	f := NonLinearFit{LinP0: 0, LinP1: 1, XSwitch: 3000}
	f.QuadP0, f.QuadP1, f.QuadP2 = quadraticParams(0, 1, -1e-4, 3000)

	require.InDelta(t, 1000.0, f.Eval(1000), 1e-12)
	// Above the switch the quadratic bends below the linear extrapolation.
	require.Less(t, f.Eval(3500), 3500.0)
}
