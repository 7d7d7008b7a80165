package nwcal

import "math"

// Below this the fitted total ratio is considered degenerate and no
// cross-side recovery is attempted.
const minTotalRatio = 1e-8

// BarCalibration bundles the fitted models for one bar: the saturation
// response of each side and the global light-ratio relation.
type BarCalibration struct {
	FastTotalL NonLinearFit
	FastTotalR NonLinearFit
	LogRatio   LogRatioFit
}

// RecoverSaturation reconstructs the true total-gate reading of a saturated
// side from the opposite side and the ratio model
// exp((2/lambda)*pos + ln(gain_ratio)). When neither or both sides saturate,
// the readings pass through unmodified; the both-saturated case is flagged as
// unrecoverable and implicitly carries higher uncertainty.
func RecoverSaturation(totalL, totalR, pos float64, lr *LogRatioFit) (outL, outR float64, bothSaturated bool) {
	satL := totalL > SaturationThreshold
	satR := totalR > SaturationThreshold
	ratio := math.Exp((2/lr.AttenuationLength)*pos + math.Log(lr.GainRatio))
	switch {
	case satL && satR:
		return totalL, totalR, true
	case ratio <= minTotalRatio:
		return totalL, totalR, false
	case satL:
		return totalR / ratio, totalR, false
	case satR:
		return totalL, totalL * ratio, false
	default:
		return totalL, totalR, false
	}
}

// CorrectNonLinear undoes the bend of the total-gate response in the
// non-saturated but non-linear regime: above the switch point the measured
// total is lifted by the gap between the linear extrapolation and the fitted
// quadratic at the fast-gate reading. The correction vanishes at the switch
// point, so the corrected value blends continuously with the raw one below.
func (f *NonLinearFit) CorrectNonLinear(total, fast float64, saturated bool) float64 {
	if saturated || fast <= f.XSwitch {
		return total
	}
	linear := f.LinP0 + f.LinP1*fast
	quad := f.QuadP0 + f.QuadP1*fast + f.QuadP2*fast*fast
	return total + linear - quad
}

// Apply runs the full correction chain over one dithered event. The two
// corrections work from the raw dithered readings independently: the
// non-linear regime correction lifts each unsaturated side, while the
// cross-side recovery reconstructs a saturated side from the opposite raw
// reading and the ratio model.
func (c *BarCalibration) Apply(ev DitheredEvent) CorrectedEvent {
	satL := ev.SaturatedL()
	satR := ev.SaturatedR()

	totalL := c.FastTotalL.CorrectNonLinear(ev.TotalRL, ev.FastRL, satL)
	totalR := c.FastTotalR.CorrectNonLinear(ev.TotalRR, ev.FastRR, satR)

	ratio := c.LogRatio.TotalRatio(ev.Pos)
	var both bool
	switch {
	case satL && satR:
		both = true
	case ratio <= minTotalRatio:
	case satL:
		totalL = ev.TotalRR / ratio
	case satR:
		totalR = ev.TotalRL * ratio
	}
	return CorrectedEvent{
		DitheredEvent: ev,
		TotalFL:       totalL,
		TotalFR:       totalR,
		BothSaturated: both,
	}
}

// ApplyAll corrects a whole event slice.
func (c *BarCalibration) ApplyAll(events []DitheredEvent) []CorrectedEvent {
	out := make([]CorrectedEvent, len(events))
	for i, ev := range events {
		out[i] = c.Apply(ev)
	}
	return out
}
