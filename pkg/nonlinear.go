package nwcal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Search bounds and seed for the saturation-response fit. The curvature of the
// quadratic branch is non-positive (the response bends down towards the
// ceiling) and the switch point sits in the upper quarter of the ADC range.
var (
	curvatureBounds = [2]float64{-1e-2, 0}
	xSwitchBounds   = [2]float64{3000, 4000}
	nonLinearSeed   = [2]float64{-1e-4, 3100}
)

// defaultLinearFitRange is the fast-gate window believed to be safely linear.
var defaultLinearFitRange = [2]float64{1000, 3000}

// NonLinearFit models the total-gate response of one side as a function of the
// fast-gate reading: linear below XSwitch, quadratic above, with the quadratic
// coefficients derived so that the two branches join with equal value and
// slope at XSwitch.
type NonLinearFit struct {
	LinP0, LinP1           float64
	QuadP0, QuadP1, QuadP2 float64
	XSwitch                float64
	// Converged is false when the simplex search stopped on a search bound;
	// the fit is still usable but should be treated as a data-quality warning.
	Converged bool
}

// quadraticParams derives the constant and linear coefficients of the
// quadratic branch from continuity and smoothness at xSwitch:
// matching value and first derivative of the linear branch leaves only the
// curvature quadP2 free.
func quadraticParams(linP0, linP1, quadP2, xSwitch float64) (p0, p1, p2 float64) {
	p0 = linP0 + quadP2*xSwitch*xSwitch
	p1 = linP1 - 2*quadP2*xSwitch
	return p0, p1, quadP2
}

// Eval evaluates the piecewise model.
func (f *NonLinearFit) Eval(x float64) float64 {
	if x < f.XSwitch {
		return f.LinP0 + f.LinP1*x
	}
	return f.QuadP0 + f.QuadP1*x + f.QuadP2*x*x
}

// fastTotalModel is the model during the fit, before the quadratic branch is
// frozen into a NonLinearFit.
func fastTotalModel(x, linP0, linP1, quadP2, xSwitch float64) float64 {
	if x < xSwitch {
		return linP0 + linP1*x
	}
	p0, p1, p2 := quadraticParams(linP0, linP1, quadP2, xSwitch)
	return p0 + p1*x + p2*x*x
}

// NonLinearCorrector fits the two-regime saturation response of one detector
// side from a fast-vs-total histogram.
type NonLinearCorrector struct {
	LinearFitRange [2]float64
	pts            []Point
}

// NewNonLinearCorrector prepares a corrector from the histogram's non-empty
// bins. A zero-valued LinearFitRange falls back to the default window.
func NewNonLinearCorrector(pts []Point, linearFitRange [2]float64) *NonLinearCorrector {
	if linearFitRange == ([2]float64{}) {
		linearFitRange = defaultLinearFitRange
	}
	return &NonLinearCorrector{LinearFitRange: linearFitRange, pts: pts}
}

// cost is the weighted mean squared error of the piecewise model over the
// restricted points, plus a squared penalty that activates when the vertex of
// the quadratic branch drops below the point where the linear model crosses
// the ADC ceiling. The penalty keeps the fitted curve monotonic increasing
// through the physically valid range.
func nonLinearCost(pts []Point, linP0, linP1, minStationary, quadP2, xSwitch float64) float64 {
	var mse float64
	for _, p := range pts {
		r := p.W * (p.Y - fastTotalModel(p.X, linP0, linP1, quadP2, xSwitch))
		mse += r * r
	}
	mse /= float64(len(pts))

	penalty := 0.0
	if quadP2 != 0 {
		stationary := xSwitch - 0.5*linP1/quadP2
		penalty = math.Max(0, minStationary-stationary)
	}
	return mse + (0.1*penalty)*(0.1*penalty)
}

// Fit runs the two-stage fit: a weighted linear fit over the safe window, then
// a bounded Nelder-Mead search over (curvature, switch point) with the linear
// model held fixed.
func (c *NonLinearCorrector) Fit() (*NonLinearFit, error) {
	var window []Point
	for _, p := range c.pts {
		if p.X > c.LinearFitRange[0] && p.X < c.LinearFitRange[1] {
			window = append(window, p)
		}
	}
	coef, _, err := fitWeightedLine(window)
	if err != nil {
		return nil, fmt.Errorf("non-linear corrector linear stage: %w", err)
	}

	var restricted []Point
	for _, p := range c.pts {
		if p.X > c.LinearFitRange[0] {
			restricted = append(restricted, p)
		}
	}
	if len(restricted) == 0 {
		return nil, &ErrInsufficientData{What: "non-linear corrector fit window", Samples: 0}
	}

	// Fast-gate reading at which the linear extrapolation reaches the ceiling.
	minStationary := (SaturationCeiling - coef[0]) / coef[1]

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			quadP2, xSwitch := x[0], x[1]
			if out := boundsExcess(quadP2, curvatureBounds) + boundsExcess(xSwitch, xSwitchBounds); out > 0 {
				return 1e30 * (1 + out)
			}
			return nonLinearCost(restricted, coef[0], coef[1], minStationary, quadP2, xSwitch)
		},
	}
	result, err := optimize.Minimize(problem, []float64{nonLinearSeed[0], nonLinearSeed[1]}, nil, &optimize.NelderMead{})
	if err != nil && result == nil {
		return nil, fmt.Errorf("non-linear corrector simplex search: %w", err)
	}

	quadP2, xSwitch := result.X[0], result.X[1]
	fit := &NonLinearFit{
		LinP0:     coef[0],
		LinP1:     coef[1],
		QuadP2:    quadP2,
		XSwitch:   xSwitch,
		Converged: !atBound(quadP2, curvatureBounds) && !atBound(xSwitch, xSwitchBounds),
	}
	fit.QuadP0, fit.QuadP1, _ = quadraticParams(coef[0], coef[1], quadP2, xSwitch)
	if !fit.Converged {
		logger.Warn(fmt.Sprintf("non-linear fit stopped on a bound: curvature=%g x_switch=%g", quadP2, xSwitch), "nonlinear")
	}
	return fit, nil
}

func boundsExcess(v float64, bounds [2]float64) float64 {
	switch {
	case v < bounds[0]:
		return bounds[0] - v
	case v > bounds[1]:
		return v - bounds[1]
	default:
		return 0
	}
}

func atBound(v float64, bounds [2]float64) bool {
	const eps = 1e-9
	return math.Abs(v-bounds[0]) < eps || math.Abs(v-bounds[1]) < eps
}
