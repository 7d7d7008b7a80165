package nwcal

import (
	"fmt"
	"math"
)

// defaultLogRatioFitRange restricts the log-ratio fit to positions well inside
// the bar, away from edge effects.
var defaultLogRatioFitRange = [2]float64{-50, 50}

// LogRatioFit is the fitted linear relation between ln(total_R/total_L) and
// hit position, with the physical quantities derived from it. The slope maps
// to the light attenuation length (lambda = 2/slope, centimeters) and the
// intercept to the right/left gain ratio (exp(intercept)). Errors are
// propagated to first order from the unscaled regression covariance.
type LogRatioFit struct {
	Intercept float64
	Slope     float64

	GainRatio             float64
	GainRatioErr          float64
	AttenuationLength     float64
	AttenuationLengthErr  float64
}

// Eval returns the modeled ln(total_R/total_L) at a position.
func (f *LogRatioFit) Eval(pos float64) float64 {
	return f.Intercept + f.Slope*pos
}

// TotalRatio returns the modeled total_R/total_L at a position.
func (f *LogRatioFit) TotalRatio(pos float64) float64 {
	return math.Exp(f.Eval(pos))
}

// SaturationCorrector extracts attenuation length and gain ratio from a
// log-ratio histogram via weighted least squares.
type SaturationCorrector struct {
	FitRange [2]float64
	pts      []Point
}

// NewSaturationCorrector prepares a corrector from the histogram's non-empty
// bins. A zero-valued FitRange falls back to the default window.
func NewSaturationCorrector(pts []Point, fitRange [2]float64) *SaturationCorrector {
	if fitRange == ([2]float64{}) {
		fitRange = defaultLogRatioFitRange
	}
	return &SaturationCorrector{FitRange: fitRange, pts: pts}
}

// Fit runs the weighted linear regression and derives the physical quantities.
func (c *SaturationCorrector) Fit() (*LogRatioFit, error) {
	var window []Point
	for _, p := range c.pts {
		if p.X > c.FitRange[0] && p.X < c.FitRange[1] {
			window = append(window, p)
		}
	}
	coef, cov, err := fitWeightedLine(window)
	if err != nil {
		return nil, fmt.Errorf("log-ratio fit: %w", err)
	}
	perr0 := math.Sqrt(cov.At(0, 0))
	perr1 := math.Sqrt(cov.At(1, 1))

	fit := &LogRatioFit{
		Intercept: coef[0],
		Slope:     coef[1],
		GainRatio: math.Exp(coef[0]),
	}
	fit.GainRatioErr = fit.GainRatio * perr0
	fit.AttenuationLength = 2 / coef[1]
	fit.AttenuationLengthErr = math.Abs(fit.AttenuationLength * (perr1 / coef[1]))
	return fit, nil
}
