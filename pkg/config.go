package nwcal

// Config gathers the knobs of the calibration pipeline. It is passed
// explicitly to the stages that need it; there is no package-level mutable
// calibration state.
type Config struct {
	Wall             string     `json:"wall"`
	Runs             []int      `json:"runs"`
	Bars             []int      `json:"bars"`
	InputPathFmt     string     `json:"input_path_fmt"`
	TreeName         string     `json:"tree_name"`
	OutputDir        string     `json:"output_dir"`
	LightCalibPath   string     `json:"light_calib_path"`
	LinearFitRange   [2]float64 `json:"linear_fit_range"`
	LogRatioFitRange [2]float64 `json:"log_ratio_fit_range"`
	NWMultiMin       int        `json:"nw_multi_min"`
	Seed             int64      `json:"seed"`
	Verbosity        int        `json:"verbosity"`
	NumWorkers       int        `json:"num_workers"`
	MaxEvents        int        `json:"max_events"`
	NoDB             bool       `json:"no_db"`
	Host             string     `json:"host"`
	User             string     `json:"user"`
	Passwd           string     `json:"pass"`
	DBName           string     `json:"dbname"`
	WriteHDF5        bool       `json:"write_hdf5"`
	WriteGallery     bool       `json:"write_gallery"`
	WriteParams      bool       `json:"write_params"`
	CompressionLevel int        `json:"compression_level"`
	FitWavy          bool       `json:"fit_wavy"`
}
