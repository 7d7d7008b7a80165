package nwcal

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Gallery writes per-bar diagnostic plots: the fit histograms with the
// fitted curves overlaid. Plots land under <Dir>/gallery/run-NNNN/.
type Gallery struct {
	Dir  string
	Wall string
}

func (g *Gallery) runDir(run int) string {
	return filepath.Join(g.Dir, "gallery", fmt.Sprintf("run-%04d", run))
}

// SaveBar renders the three diagnostic plots for one calibrated bar.
func (g *Gallery) SaveBar(run int, bar int32, h *BarHistograms, c *BarCalibration) error {
	dir := g.runDir(run)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	name := func(kind string) string {
		return filepath.Join(dir, fmt.Sprintf("nw%s-bar%02d-%s.png", g.Wall, bar, kind))
	}

	if err := g.saveFastTotal(name("fast-total-L"), "L", bar, h.FastTotalL, &c.FastTotalL); err != nil {
		return err
	}
	if err := g.saveFastTotal(name("fast-total-R"), "R", bar, h.FastTotalR, &c.FastTotalR); err != nil {
		return err
	}
	return g.saveLogRatio(name("log-ratio"), bar, h.LogRatio, &c.LogRatio)
}

func (g *Gallery) saveFastTotal(path, side string, bar int32, h *hbook.H2D, fit *NonLinearFit) error {
	p := hplot.New()
	p.Title.Text = fmt.Sprintf("NW%s bar %d total vs fast (%s)", g.Wall, bar, side)
	p.X.Label.Text = "fast (ADC)"
	p.Y.Label.Text = "total (ADC)"
	p.Add(hplot.NewH2D(h, nil))

	model := plotter.NewFunction(fit.Eval)
	model.Color = color.RGBA{R: 220, A: 255}
	model.XMin = 0
	model.XMax = 4100
	p.Add(model)

	vline := hplot.VLine(fit.XSwitch, nil, nil)
	vline.Line.Color = color.RGBA{B: 220, A: 255}
	p.Add(vline)

	return p.Save(6*vg.Inch, 5*vg.Inch, path)
}

func (g *Gallery) saveLogRatio(path string, bar int32, h *hbook.H2D, fit *LogRatioFit) error {
	p := hplot.New()
	p.Title.Text = fmt.Sprintf("NW%s bar %d log light ratio", g.Wall, bar)
	p.X.Label.Text = "position (cm)"
	p.Y.Label.Text = "ln(total_R / total_L)"
	p.Add(hplot.NewH2D(h, nil))

	model := plotter.NewFunction(fit.Eval)
	model.Color = color.RGBA{R: 220, A: 255}
	model.XMin = logRatioXAxis.Min
	model.XMax = logRatioXAxis.Max
	p.Add(model)

	return p.Save(6*vg.Inch, 5*vg.Inch, path)
}

// SaveWavy renders the wavy ridge and its spline on top of the scatter
// histogram for bars fitted with the non-parametric model.
func (g *Gallery) SaveWavy(run int, bar int32, h *hbook.H2D, fit *WavyFit) error {
	dir := g.runDir(run)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("nw%s-bar%02d-log-ratio-wavy.png", g.Wall, bar))

	p := hplot.New()
	p.Title.Text = fmt.Sprintf("NW%s bar %d log light ratio (wavy)", g.Wall, bar)
	p.X.Label.Text = "position (cm)"
	p.Y.Label.Text = "ln(total_R / total_L)"
	p.Add(hplot.NewH2D(h, nil))

	model := plotter.NewFunction(fit.Eval)
	model.Color = color.RGBA{R: 220, A: 255}
	model.XMin = logRatioXAxis.Min
	model.XMax = logRatioXAxis.Max
	p.Add(model)

	ridge := make(plotter.XYs, len(fit.RidgeX))
	for i := range fit.RidgeX {
		ridge[i].X = fit.RidgeX[i] * wavyScaleX
		ridge[i].Y = fit.RidgeY[i] * wavyScaleY
	}
	pts, err := plotter.NewScatter(ridge)
	if err != nil {
		return err
	}
	pts.Color = color.RGBA{G: 160, A: 255}
	p.Add(pts)

	return p.Save(6*vg.Inch, 5*vg.Inch, path)
}
