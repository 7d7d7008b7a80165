package nwcal

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// SideParams is the persisted saturation-response model of one detector side.
type SideParams struct {
	NonLinearFastThreshold float64    `json:"nonlinear_fast_threshold"`
	LinearFitParams        [2]float64 `json:"linear_fit_params"`
	QuadraticFitParams     [3]float64 `json:"quadratic_fit_params"`
}

// LogRatioParams is the persisted light-ratio model of one bar.
type LogRatioParams struct {
	AttenuationLength      float64 `json:"attenuation_length"`
	AttenuationLengthError float64 `json:"attenuation_length_error"`
	GainRatio              float64 `json:"gain_ratio"`
	GainRatioError         float64 `json:"gain_ratio_error"`
}

// CalibrationParameters is the per-(run, bar) bundle written to disk. It is
// created once per calibration run and never mutated after saving.
type CalibrationParameters struct {
	FastTotalL    SideParams     `json:"fast_total_L"`
	FastTotalR    SideParams     `json:"fast_total_R"`
	LogRatioTotal LogRatioParams `json:"log_ratio_total"`
}

// NewCalibrationParameters flattens fitted models into the persisted form.
func NewCalibrationParameters(c *BarCalibration) CalibrationParameters {
	side := func(f *NonLinearFit) SideParams {
		return SideParams{
			NonLinearFastThreshold: f.XSwitch,
			LinearFitParams:        [2]float64{f.LinP0, f.LinP1},
			QuadraticFitParams:     [3]float64{f.QuadP0, f.QuadP1, f.QuadP2},
		}
	}
	return CalibrationParameters{
		FastTotalL: side(&c.FastTotalL),
		FastTotalR: side(&c.FastTotalR),
		LogRatioTotal: LogRatioParams{
			AttenuationLength:      c.LogRatio.AttenuationLength,
			AttenuationLengthError: c.LogRatio.AttenuationLengthErr,
			GainRatio:              c.LogRatio.GainRatio,
			GainRatioError:         c.LogRatio.GainRatioErr,
		},
	}
}

// BarCalibration rebuilds the fitted models from a persisted bundle. The
// round trip reproduces corrected ADC outputs within floating-point tolerance.
func (p CalibrationParameters) BarCalibration() *BarCalibration {
	side := func(s SideParams) NonLinearFit {
		return NonLinearFit{
			LinP0:     s.LinearFitParams[0],
			LinP1:     s.LinearFitParams[1],
			QuadP0:    s.QuadraticFitParams[0],
			QuadP1:    s.QuadraticFitParams[1],
			QuadP2:    s.QuadraticFitParams[2],
			XSwitch:   s.NonLinearFastThreshold,
			Converged: true,
		}
	}
	lr := LogRatioFit{
		AttenuationLength:    p.LogRatioTotal.AttenuationLength,
		AttenuationLengthErr: p.LogRatioTotal.AttenuationLengthError,
		GainRatio:            p.LogRatioTotal.GainRatio,
		GainRatioErr:         p.LogRatioTotal.GainRatioError,
	}
	lr.Slope = 2 / lr.AttenuationLength
	lr.Intercept = math.Log(lr.GainRatio)
	return &BarCalibration{
		FastTotalL: side(p.FastTotalL),
		FastTotalR: side(p.FastTotalR),
		LogRatio:   lr,
	}
}

// ParameterStore persists calibration bundles under a base directory, one
// JSON file per (run, bar). Writes are atomic (temp file then rename) so
// concurrent writers targeting different paths never interleave.
type ParameterStore struct {
	Dir  string
	Wall string
}

func (s ParameterStore) path(run, bar int) string {
	wall := strings.ToLower(s.Wall)
	return filepath.Join(s.Dir, "calib_params",
		fmt.Sprintf("run-%04d", run),
		fmt.Sprintf("nw%s-bar%02d.json", wall, bar))
}

// Save writes one bundle. The directory tree is created as needed.
func (s ParameterStore) Save(run, bar int, params CalibrationParameters) error {
	path := s.path(run, bar)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating parameter directory: %w", err)
	}
	data, err := json.MarshalIndent(params, "", "    ")
	if err != nil {
		return fmt.Errorf("error encoding parameters: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".nwcal-*.json")
	if err != nil {
		return fmt.Errorf("error creating temporary parameter file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("error writing parameters: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error closing temporary parameter file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads one bundle back.
func (s ParameterStore) Load(run, bar int) (CalibrationParameters, error) {
	var params CalibrationParameters
	data, err := os.ReadFile(s.path(run, bar))
	if err != nil {
		return params, &ErrOpenFile{Filename: s.path(run, bar), Err: err}
	}
	if err := json.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("error decoding parameters: %w", err)
	}
	return params, nil
}
