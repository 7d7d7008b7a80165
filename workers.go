package main

import (
	"fmt"
	"math/rand"

	nwcal "github.com/nscl-hira/nwcalib_go/pkg"
)

type BarJob struct {
	Run    int
	Bar    int32
	Events []nwcal.Event
}

type BarResult struct {
	Run       int
	Bar       int32
	Cal       *nwcal.BarCalibration
	Hists     *nwcal.BarHistograms
	Wavy      *nwcal.WavyFit
	Corrected []nwcal.CorrectedEvent
	Err       error
}

func worker(id int, configuration nwcal.Config, jobs <-chan BarJob, results chan<- BarResult) {
	for job := range jobs {
		if configuration.Verbosity > 0 {
			logger.Info(fmt.Sprintf("Worker %d processing run %d bar %d (%d events)",
				id, job.Run, job.Bar, len(job.Events)), "worker")
		}
		results <- processBar(configuration, job)
	}
}

// processBar runs the full per-bar chain: dither, fit, optional wavy fit and
// the correction sweep. A panic in any fit is converted into a per-bar error
// so one pathological bar cannot take down the run.
func processBar(configuration nwcal.Config, job BarJob) (res BarResult) {
	res = BarResult{Run: job.Run, Bar: job.Bar}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("bar %d recovered from panic: %v", job.Bar, r)
		}
	}()

	// Every bar gets its own generator so results do not depend on worker
	// scheduling.
	rng := rand.New(rand.NewSource(configuration.Seed + int64(job.Bar)))
	dithered := nwcal.DitherAll(job.Events, rng)

	cal, hists, err := nwcal.CalibrateBar(dithered, job.Bar, configuration)
	if err != nil {
		res.Err = err
		return res
	}
	res.Cal = cal
	res.Hists = hists

	if configuration.FitWavy {
		xs, ys := nwcal.WavySamples(dithered)
		wavy, err := nwcal.NewWavyCorrector(xs, ys, rng).Fit()
		if err != nil {
			logger.Warn(fmt.Sprintf("wavy fit failed for bar %d, keeping linear model: %v", job.Bar, err), "worker")
		} else {
			res.Wavy = wavy
		}
	}

	res.Corrected = cal.ApplyAll(dithered)
	return res
}
