package nwcal

import (
	"math"

	"github.com/maorshutman/lm"
)

// GaussianPeak holds the parameters of a Gaussian fitted to a 1D slice.
type GaussianPeak struct {
	Amplitude float64
	Mean      float64
	Sigma     float64
}

func (p GaussianPeak) Eval(x float64) float64 {
	d := (x - p.Mean) / p.Sigma
	return p.Amplitude * math.Exp(-0.5*d*d)
}

// histogram1D bins samples into nbins equal-width bins over [lo, hi].
// Returns bin centers and counts for every non-empty bin.
func histogram1D(samples []float64, nbins int, lo, hi float64) (centers, counts []float64) {
	width := (hi - lo) / float64(nbins)
	binned := make([]float64, nbins)
	for _, v := range samples {
		if v < lo || v >= hi {
			continue
		}
		binned[int((v-lo)/width)]++
	}
	for i, c := range binned {
		if c == 0 {
			continue
		}
		centers = append(centers, lo+(float64(i)+0.5)*width)
		counts = append(counts, c)
	}
	return centers, counts
}

// FitGaussianPeak bins the samples over [lo, hi] and fits a Gaussian to the
// resulting histogram by Levenberg-Marquardt. Seeds come from the highest
// bin and the sample spread.
func FitGaussianPeak(samples []float64, nbins int, lo, hi float64) (GaussianPeak, error) {
	centers, counts := histogram1D(samples, nbins, lo, hi)
	if len(centers) < 4 {
		return GaussianPeak{}, &ErrInsufficientData{What: "peak histogram bins", Samples: len(centers)}
	}

	amp, cen := counts[0], centers[0]
	for i, c := range counts {
		if c > amp {
			amp, cen = c, centers[i]
		}
	}
	sigma := stddev(samples)
	if sigma == 0 {
		sigma = (hi - lo) / float64(nbins)
	}

	f := func(dst, params []float64) {
		p := GaussianPeak{Amplitude: params[0], Mean: params[1], Sigma: params[2]}
		for i := range dst {
			dst[i] = p.Eval(centers[i]) - counts[i]
		}
	}
	jacobian := lm.NumJac{Func: f}

	problem := lm.LMProblem{
		Dim:        3,
		Size:       len(centers),
		Func:       f,
		Jac:        jacobian.Jac,
		InitParams: []float64{amp, cen, sigma},
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}
	results, err := lm.LM(problem, &lm.Settings{Iterations: 100, ObjectiveTol: 1e-16})
	if err != nil {
		return GaussianPeak{}, err
	}

	return GaussianPeak{
		Amplitude: results.X[0],
		Mean:      results.X[1],
		Sigma:     math.Abs(results.X[2]),
	}, nil
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
