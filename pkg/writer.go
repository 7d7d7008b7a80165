package nwcal

import (
	"errors"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

// Writer streams the calibration results for one run to an HDF5 file:
// run metadata under /Run, the per-bar fit parameters under /Calib and the
// corrected events under /Events.
type Writer struct {
	file        *hdf5.File
	runGroup    *hdf5.Group
	calibGroup  *hdf5.Group
	eventsGroup *hdf5.Group

	runInfoTable *hdf5.Dataset
	paramsTable  *hdf5.Dataset
	eventsTable  *hdf5.Dataset
}

// NewWriter creates the output file, its groups and tables. The compression
// level is the deflate level applied to every table.
func NewWriter(fname string, compression int) (*Writer, error) {
	file, err := createHDF5File(fname)
	if err != nil {
		return nil, err
	}

	w := &Writer{file: file}
	if w.runGroup, err = createGroup(file, "Run"); err != nil {
		return nil, err
	}
	if w.calibGroup, err = createGroup(file, "Calib"); err != nil {
		return nil, err
	}
	if w.eventsGroup, err = createGroup(file, "Events"); err != nil {
		return nil, err
	}
	if w.runInfoTable, err = createTable(w.runGroup, "runInfo", RunInfoHDF5{}, compression); err != nil {
		return nil, err
	}
	if w.paramsTable, err = createTable(w.calibGroup, "parameters", BarParamsHDF5{}, compression); err != nil {
		return nil, err
	}
	if w.eventsTable, err = createTable(w.eventsGroup, "corrected", CorrectedEventHDF5{}, compression); err != nil {
		return nil, err
	}
	return w, nil
}

// WriteRunInfo records the run metadata. Call once per file.
func (w *Writer) WriteRunInfo(run, nbars int, seed int64) error {
	return writeEntryToTable(w.runInfoTable, RunInfoHDF5{
		run_number: int32(run),
		n_bars:     int32(nbars),
		seed:       seed,
	})
}

// WriteBarParams appends one bar's fitted parameters.
func (w *Writer) WriteBarParams(bar int32, c *BarCalibration) error {
	row := BarParamsHDF5{
		bar: bar,

		fast_threshold_L: c.FastTotalL.XSwitch,
		lin_p0_L:         c.FastTotalL.LinP0,
		lin_p1_L:         c.FastTotalL.LinP1,
		quad_p0_L:        c.FastTotalL.QuadP0,
		quad_p1_L:        c.FastTotalL.QuadP1,
		quad_p2_L:        c.FastTotalL.QuadP2,

		fast_threshold_R: c.FastTotalR.XSwitch,
		lin_p0_R:         c.FastTotalR.LinP0,
		lin_p1_R:         c.FastTotalR.LinP1,
		quad_p0_R:        c.FastTotalR.QuadP0,
		quad_p1_R:        c.FastTotalR.QuadP1,
		quad_p2_R:        c.FastTotalR.QuadP2,

		gain_ratio:         c.LogRatio.GainRatio,
		attenuation_length: c.LogRatio.AttenuationLength,
	}
	return writeEntryToTable(w.paramsTable, row)
}

// WriteEvents appends a batch of corrected events.
func (w *Writer) WriteEvents(events []CorrectedEvent) error {
	// The array must be fully allocated up front, appends confuse HDF5.
	rows := make([]CorrectedEventHDF5, len(events))
	for i := range events {
		ev := &events[i]
		var sat uint8
		if ev.BothSaturated {
			sat = 1
		}
		rows[i] = CorrectedEventHDF5{
			bar:            ev.Bar,
			pos:            ev.Pos,
			total_L:        ev.TotalL,
			total_R:        ev.TotalR,
			fast_L:         ev.FastL,
			fast_R:         ev.FastR,
			total_f_L:      ev.TotalFL,
			total_f_R:      ev.TotalFR,
			light_gm:       ev.LightGM,
			both_saturated: sat,
		}
	}
	return writeArrayToTable(w.eventsTable, &rows)
}

// Close flushes and closes every open HDF5 handle, reporting the first
// failures without skipping the rest.
func (w *Writer) Close() error {
	return errors.Join(
		w.runInfoTable.Close(),
		w.paramsTable.Close(),
		w.eventsTable.Close(),
		w.runGroup.Close(),
		w.calibGroup.Close(),
		w.eventsGroup.Close(),
		w.file.Close(),
	)
}
