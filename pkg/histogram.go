package nwcal

import (
	"math"

	"go-hep.org/x/hep/hbook"
)

// Axis describes one histogram axis: bin count and range.
type Axis struct {
	Bins     int
	Min, Max float64
}

// Point is one weighted sample fed to the curve fitters: the center of a
// non-empty histogram bin and its summed weight.
type Point struct {
	X, Y, W float64
}

// Default binnings, matching the granularity the ADCs deliver.
var (
	fastTotalXAxis = Axis{Bins: 2050, Min: 0, Max: 4100}
	fastTotalYAxis = Axis{Bins: 2050, Min: 0, Max: 4100}
	logRatioXAxis  = Axis{Bins: 250, Min: -125, Max: 125}
	logRatioYAxis  = Axis{Bins: 500, Min: -5, Max: 5}
)

// Quality cuts for the log-ratio histogram.
const (
	amplitudeNoiseFloor  = 25.0
	logRatioAmplitudeCut = 3000.0
)

// NewHisto2D allocates an empty 2D histogram after validating the axes.
func NewHisto2D(x, y Axis) (*hbook.H2D, error) {
	if x.Min == x.Max {
		return nil, &ErrDegenerateAxis{Axis: "x", Min: x.Min, Max: x.Max}
	}
	if y.Min == y.Max {
		return nil, &ErrDegenerateAxis{Axis: "y", Min: y.Min, Max: y.Max}
	}
	return hbook.NewH2D(x.Bins, x.Min, x.Max, y.Bins, y.Min, y.Max), nil
}

// HistoPoints converts a filled histogram into weighted fit points, dropping
// zero-weight bins so that structural zeros do not bias a least-squares fit.
func HistoPoints(h *hbook.H2D) []Point {
	pts := make([]Point, 0, len(h.Binning.Bins))
	for i := range h.Binning.Bins {
		bin := &h.Binning.Bins[i]
		w := bin.Dist.SumW()
		if w == 0 {
			continue
		}
		pts = append(pts, Point{
			X: 0.5 * (bin.XRange.Min + bin.XRange.Max),
			Y: 0.5 * (bin.YRange.Min + bin.YRange.Max),
			W: w,
		})
	}
	return pts
}

// BarHistograms holds the fit inputs for one bar: the fast-vs-total response
// of each side and the log light-ratio vs. position.
type BarHistograms struct {
	FastTotalL *hbook.H2D
	FastTotalR *hbook.H2D
	LogRatio   *hbook.H2D
}

// HistogramBuilder bins dithered events for one bar into the fit histograms.
// It is a pure aggregation: the events are left untouched.
type HistogramBuilder struct {
	Bar int32
}

// Build fills the three fit histograms from events of the builder's bar.
// The base cut requires both dithered fast gates above zero; the log-ratio
// histogram additionally requires a quiet veto wall, a signal amplitude above
// the noise floor and both totals safely below saturation.
func (b HistogramBuilder) Build(events []DitheredEvent) (*BarHistograms, error) {
	ftL, err := NewHisto2D(fastTotalXAxis, fastTotalYAxis)
	if err != nil {
		return nil, err
	}
	ftR, err := NewHisto2D(fastTotalXAxis, fastTotalYAxis)
	if err != nil {
		return nil, err
	}
	lr, err := NewHisto2D(logRatioXAxis, logRatioYAxis)
	if err != nil {
		return nil, err
	}

	for i := range events {
		ev := &events[i]
		if ev.Bar != b.Bar {
			continue
		}
		if ev.FastRL <= 0 || ev.FastRR <= 0 {
			continue
		}
		ftL.Fill(ev.FastRL, ev.TotalRL, 1)
		ftR.Fill(ev.FastRR, ev.TotalRR, 1)

		if ev.VWMulti != 0 {
			continue
		}
		if math.Sqrt(ev.TotalRR*ev.TotalRL) <= amplitudeNoiseFloor {
			continue
		}
		if ev.TotalRL >= logRatioAmplitudeCut || ev.TotalRR >= logRatioAmplitudeCut {
			continue
		}
		lr.Fill(ev.Pos, math.Log(ev.TotalRR/ev.TotalRL), 1)
	}

	return &BarHistograms{FastTotalL: ftL, FastTotalR: ftR, LogRatio: lr}, nil
}
