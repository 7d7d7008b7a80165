package nwcal

import "fmt"

// FilterMultiplicity keeps events with neutron-wall multiplicity at or above
// the lower bound.
func FilterMultiplicity(events []Event, lowerBound int) []Event {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if int(ev.NWMulti) >= lowerBound {
			out = append(out, ev)
		}
	}
	return out
}

// AddPosition derives the hit position from the time difference between the
// two sides, pos = p0 + p1*(time_L - time_R), using per-bar constants from the
// position-calibration service. Events for bars without constants keep their
// original position.
func AddPosition(events []Event, constants map[int][2]float64) []Event {
	out := make([]Event, len(events))
	for i, ev := range events {
		if pars, ok := constants[int(ev.Bar)]; ok {
			ev.Pos = pars[0] + pars[1]*(ev.TimeL-ev.TimeR)
		}
		out[i] = ev
	}
	return out
}

// CalibrateBar runs the fit chain for one bar over dithered events: histogram
// aggregation, the two per-side saturation-response fits and the log-ratio
// fit. The histograms are returned alongside the fitted models so that the
// gallery can overlay one on the other.
func CalibrateBar(events []DitheredEvent, bar int32, cfg Config) (*BarCalibration, *BarHistograms, error) {
	histos, err := HistogramBuilder{Bar: bar}.Build(events)
	if err != nil {
		return nil, nil, fmt.Errorf("bar %d histograms: %w", bar, err)
	}

	ftL, err := NewNonLinearCorrector(HistoPoints(histos.FastTotalL), cfg.LinearFitRange).Fit()
	if err != nil {
		return nil, nil, fmt.Errorf("bar %d left side: %w", bar, err)
	}
	ftR, err := NewNonLinearCorrector(HistoPoints(histos.FastTotalR), cfg.LinearFitRange).Fit()
	if err != nil {
		return nil, nil, fmt.Errorf("bar %d right side: %w", bar, err)
	}
	lr, err := NewSaturationCorrector(HistoPoints(histos.LogRatio), cfg.LogRatioFitRange).Fit()
	if err != nil {
		return nil, nil, fmt.Errorf("bar %d log ratio: %w", bar, err)
	}

	calib := &BarCalibration{FastTotalL: *ftL, FastTotalR: *ftR, LogRatio: *lr}
	return calib, histos, nil
}
