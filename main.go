package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sqlx "github.com/jmoiron/sqlx"
	"golang.org/x/exp/maps"

	nwcal "github.com/nscl-hira/nwcalib_go/pkg"
)

var dbConn *sqlx.DB
var configuration nwcal.Config

var (
	logger         Logger
	VerbosityLevel int
)

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = Logger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	var err error
	configuration, err = LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		return
	}
	nwcal.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		printConfiguration(configuration, logger)
	}

	if !configuration.NoDB {
		dbConn, err = nwcal.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
		if err != nil {
			message := fmt.Errorf("Error connecting to database: %w", err)
			logger.Error(message.Error())
			return
		}
		defer dbConn.Close()
	}

	var lightParams map[int]nwcal.LightCalibCoeffs
	if configuration.LightCalibPath != "" {
		lightParams, err = nwcal.ReadLightCalibParams(configuration.LightCalibPath)
		if err != nil {
			message := fmt.Errorf("Error reading light calibration: %w", err)
			logger.Error(message.Error())
			return
		}
	}

	start := time.Now()
	for _, run := range configuration.Runs {
		if err := processRun(run, lightParams); err != nil {
			message := fmt.Errorf("Error processing run %d: %w", run, err)
			logger.Error(message.Error())
		}
	}
	duration := time.Since(start)
	fmt.Printf("Total time: %d ms\n", duration.Milliseconds())
}

func processRun(run int, lightParams map[int]nwcal.LightCalibCoeffs) error {
	reader := nwcal.EventReader{
		Path:      fmt.Sprintf(configuration.InputPathFmt, run),
		TreeName:  configuration.TreeName,
		Wall:      configuration.Wall,
		MaxEvents: configuration.MaxEvents,
	}
	events, err := reader.Read()
	if err != nil {
		return err
	}

	events = nwcal.FilterMultiplicity(events, configuration.NWMultiMin)
	if VerbosityLevel > 0 {
		logger.Info(fmt.Sprintf("%d events after multiplicity cut", len(events)), "main")
	}

	if !configuration.NoDB {
		constants, err := nwcal.GetPositionCalib(dbConn, configuration.Wall, run)
		if err != nil {
			return err
		}
		events = nwcal.AddPosition(events, constants)
	}

	byBar := make(map[int32][]nwcal.Event)
	for _, ev := range events {
		byBar[ev.Bar] = append(byBar[ev.Bar], ev)
	}

	bars := configuration.Bars
	if len(bars) == 0 {
		for _, bar := range maps.Keys(byBar) {
			bars = append(bars, int(bar))
		}
		sort.Ints(bars)
	}

	jobs := make(chan BarJob, configuration.NumWorkers)
	results := make(chan BarResult, len(bars))
	for w := 1; w <= configuration.NumWorkers; w++ {
		go worker(w, configuration, jobs, results)
	}
	go func() {
		for _, bar := range bars {
			jobs <- BarJob{Run: run, Bar: int32(bar), Events: byBar[int32(bar)]}
		}
		close(jobs)
	}()

	store := nwcal.ParameterStore{Dir: configuration.OutputDir, Wall: configuration.Wall}
	gallery := nwcal.Gallery{Dir: configuration.OutputDir, Wall: configuration.Wall}

	var writer *nwcal.Writer
	if configuration.WriteHDF5 {
		if err := os.MkdirAll(configuration.OutputDir, 0755); err != nil {
			return err
		}
		path := filepath.Join(configuration.OutputDir,
			fmt.Sprintf("nw%s-calib-%04d.h5", strings.ToLower(configuration.Wall), run))
		writer, err = nwcal.NewWriter(path, configuration.CompressionLevel)
		if err != nil {
			return err
		}
		if err := writer.WriteRunInfo(run, len(bars), configuration.Seed); err != nil {
			writer.Close()
			return err
		}
	}

	for range bars {
		res := <-results
		if res.Err != nil {
			message := fmt.Errorf("skipping run %d bar %d: %w", res.Run, res.Bar, res.Err)
			logger.Error(message.Error())
			continue
		}
		if err := writeBarOutputs(res, store, gallery, writer, lightParams); err != nil {
			message := fmt.Errorf("error writing run %d bar %d: %w", res.Run, res.Bar, err)
			logger.Error(message.Error())
		}
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			return fmt.Errorf("error closing output file: %w", err)
		}
	}
	return nil
}

func writeBarOutputs(res BarResult, store nwcal.ParameterStore, gallery nwcal.Gallery,
	writer *nwcal.Writer, lightParams map[int]nwcal.LightCalibCoeffs) error {
	if lightParams != nil {
		nwcal.ApplyLightOutput(res.Corrected, lightParams, res.Cal.LogRatio.GainRatio)
	}

	if configuration.WriteParams {
		if err := store.Save(res.Run, int(res.Bar), nwcal.NewCalibrationParameters(res.Cal)); err != nil {
			return err
		}
	}
	if writer != nil {
		if err := writer.WriteBarParams(res.Bar, res.Cal); err != nil {
			return err
		}
		if err := writer.WriteEvents(res.Corrected); err != nil {
			return err
		}
	}
	if configuration.WriteGallery {
		if err := gallery.SaveBar(res.Run, res.Bar, res.Hists, res.Cal); err != nil {
			return err
		}
		if res.Wavy != nil {
			if err := gallery.SaveWavy(res.Run, res.Bar, res.Hists.LogRatio, res.Wavy); err != nil {
				return err
			}
		}
	}

	if VerbosityLevel > 0 {
		logger.Info(fmt.Sprintf("Run %d bar %d: lambda = %.1f cm, gain = %.3f",
			res.Run, res.Bar, res.Cal.LogRatio.AttenuationLength, res.Cal.LogRatio.GainRatio), "main")
	}
	return nil
}
