package main

import (
	"encoding/json"
	"fmt"
	"os"

	nwcal "github.com/nscl-hira/nwcalib_go/pkg"
)

func LoadConfiguration(filename string) (nwcal.Config, error) {
	var config nwcal.Config

	// Set default values
	config.Wall = "B"
	config.TreeName = "tree"
	config.OutputDir = "./output"
	config.NWMultiMin = 1
	config.Seed = 0
	config.Verbosity = 0
	config.NumWorkers = 1
	config.MaxEvents = 1000000000
	config.NoDB = false
	config.Host = "hira.nscl.msu.edu"
	config.User = "hirareader"
	config.Passwd = "readonly"
	config.DBName = "E15190"
	config.WriteHDF5 = true
	config.WriteGallery = false
	config.WriteParams = true
	config.CompressionLevel = 4
	config.FitWavy = false

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

func printConfiguration(config nwcal.Config, logger Logger) {
	logger.Info(fmt.Sprintf("Wall: %s", config.Wall), "config")
	logger.Info(fmt.Sprintf("Runs: %v", config.Runs), "config")
	logger.Info(fmt.Sprintf("Bars: %v", config.Bars), "config")
	logger.Info(fmt.Sprintf("Input path format: %s", config.InputPathFmt), "config")
	logger.Info(fmt.Sprintf("Tree name: %s", config.TreeName), "config")
	logger.Info(fmt.Sprintf("Output dir: %s", config.OutputDir), "config")
	logger.Info(fmt.Sprintf("Light calib path: %s", config.LightCalibPath), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("NW multiplicity min: %d", config.NWMultiMin), "config")
	logger.Info(fmt.Sprintf("Seed: %d", config.Seed), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Write HDF5: %t", config.WriteHDF5), "config")
	logger.Info(fmt.Sprintf("Write gallery: %t", config.WriteGallery), "config")
	logger.Info(fmt.Sprintf("Write parameters: %t", config.WriteParams), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Fit wavy bars: %t", config.FitWavy), "config")
}
