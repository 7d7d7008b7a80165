package nwcal

import "fmt"

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error { return e.Err }

// ErrInsufficientData is returned when a fit window holds too few weighted
// samples to constrain the model. It is surfaced per (run, bar) so that
// other bars keep processing.
type ErrInsufficientData struct {
	What    string
	Samples int
}

func (e *ErrInsufficientData) Error() string {
	return fmt.Sprintf("insufficient data for %s: %d weighted samples", e.What, e.Samples)
}

// ErrDegenerateAxis is returned when a histogram axis range collapses.
type ErrDegenerateAxis struct {
	Axis     string
	Min, Max float64
}

func (e *ErrDegenerateAxis) Error() string {
	return fmt.Sprintf("degenerate %s axis range [%g, %g]", e.Axis, e.Min, e.Max)
}

// ErrNoCalibration is returned when no calibration constants cover a
// (run, bar) pair. A negative Bar marks a whole-run miss.
type ErrNoCalibration struct {
	Run int
	Bar int
}

func (e *ErrNoCalibration) Error() string {
	if e.Bar < 0 {
		return fmt.Sprintf("no calibration constants for run %d", e.Run)
	}
	return fmt.Sprintf("no calibration constants for run %d bar %d", e.Run, e.Bar)
}
