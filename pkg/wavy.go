package nwcal

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// The wavy fit works in scaled coordinates so that both axes are order one.
const (
	wavyScaleX = 100.0
	wavyScaleY = 2.0

	wavyWindowLo    = -2.2
	wavyWindowHi    = 2.2
	wavyWindowWidth = 0.1
	wavyWindowStep  = 0.02
	wavyWindowMin   = 30

	wavyPeakBins  = 200
	wavyPeakRange = 1.0

	wavyGPLengthScale = 0.1
	wavyGPNoise       = 1e-5

	ransacIterations = 100
)

// WavyFit is a non-parametric model of ln(total_R/total_L) versus position
// for bars whose light-ratio curve deviates from a straight line. It keeps
// the straight-line fit alongside the fitted ridge for cross-checks.
type WavyFit struct {
	RidgeX []float64
	RidgeY []float64

	Linear LogRatioFit

	spline   interp.FritschButland
	loX, loY float64
	hiX, hiY float64
	loSlope  float64
	hiSlope  float64
}

// Eval returns the modeled ln(total_R/total_L) at a position, extrapolating
// linearly with the edge slopes outside the fitted ridge.
func (f *WavyFit) Eval(pos float64) float64 {
	x := pos / wavyScaleX
	var y float64
	switch {
	case x < f.loX:
		y = f.loY + f.loSlope*(x-f.loX)
	case x > f.hiX:
		y = f.hiY + f.hiSlope*(x-f.hiX)
	default:
		y = f.spline.Predict(x)
	}
	return y * wavyScaleY
}

// TotalRatio returns the modeled total_R/total_L at a position.
func (f *WavyFit) TotalRatio(pos float64) float64 {
	return math.Exp(f.Eval(pos))
}

// GainRatio is the right/left gain ratio, read off the ridge at the bar
// center.
func (f *WavyFit) GainRatio() float64 {
	return math.Exp(f.Eval(0))
}

// AttenuationLength derives lambda from the mean ridge slope within 25 cm of
// the bar center. When it disagrees with the straight-line value by more than
// five percent the bar deserves a closer look and a warning is emitted.
func (f *WavyFit) AttenuationLength() float64 {
	const window = 25.0
	const step = 1.0
	var sum float64
	var n int
	for pos := -window; pos < window; pos += step {
		sum += (f.Eval(pos+step) - f.Eval(pos)) / step
		n++
	}
	slope := sum / float64(n)
	att := 2 / slope

	if f.Linear.AttenuationLength != 0 {
		rdiff := math.Abs(att-f.Linear.AttenuationLength) / math.Abs(f.Linear.AttenuationLength)
		if rdiff > 0.05 {
			logger.Warn(fmt.Sprintf("wavy attenuation length %.1f cm deviates %.1f%% from linear %.1f cm",
				att, 100*rdiff, f.Linear.AttenuationLength), "wavy")
		}
	}
	return att
}

// Spread is the peak-to-peak excursion of the ridge around the straight line,
// in log-ratio units. A flat bar has spread near zero.
func (f *WavyFit) Spread() float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, x := range f.RidgeX {
		r := f.RidgeY[i]*wavyScaleY - f.Linear.Eval(x*wavyScaleX)
		if r < lo {
			lo = r
		}
		if r > hi {
			hi = r
		}
	}
	return hi - lo
}

// WavyCorrector fits the wavy log-ratio model from per-event samples of
// (position, ln(total_R/total_L)).
type WavyCorrector struct {
	xs, ys []float64
	rng    *rand.Rand
}

// NewWavyCorrector prepares a corrector from raw samples. The random source
// drives the RANSAC prefit; passing the run seed keeps fits reproducible.
func NewWavyCorrector(xs, ys []float64, rng *rand.Rand) *WavyCorrector {
	return &WavyCorrector{xs: xs, ys: ys, rng: rng}
}

// WavySamples extracts (position, log ratio) samples from events that pass
// the same cuts as the log-ratio histogram.
func WavySamples(events []DitheredEvent) (xs, ys []float64) {
	for i := range events {
		ev := &events[i]
		if ev.VWMulti != 0 {
			continue
		}
		if math.Sqrt(ev.TotalRR*ev.TotalRL) <= amplitudeNoiseFloor {
			continue
		}
		if ev.TotalRL >= logRatioAmplitudeCut || ev.TotalRR >= logRatioAmplitudeCut {
			continue
		}
		xs = append(xs, ev.Pos)
		ys = append(ys, math.Log(ev.TotalRR/ev.TotalRL))
	}
	return xs, ys
}

// Fit runs the full wavy pipeline: a RANSAC straight-line prefit, rotation
// into a flattened frame, ridge extraction from Gaussian peak fits in
// sliding position windows, Gaussian-process smoothing, and a monotone cubic
// spline through the smoothed ridge.
func (c *WavyCorrector) Fit() (*WavyFit, error) {
	if len(c.xs) < wavyWindowMin {
		return nil, &ErrInsufficientData{What: "wavy fit samples", Samples: len(c.xs)}
	}

	sx := make([]float64, len(c.xs))
	sy := make([]float64, len(c.ys))
	for i := range c.xs {
		sx[i] = c.xs[i] / wavyScaleX
		sy[i] = c.ys[i] / wavyScaleY
	}

	px, py := pcaFilter(sx, sy)
	slope, intercept, err := ransacLine(px, py, c.rng)
	if err != nil {
		return nil, fmt.Errorf("wavy prefit: %w", err)
	}

	// Flatten: rotate so the prefit line lies along the x axis.
	theta := math.Atan(slope)
	cosT, sinT := math.Cos(theta), math.Sin(theta)
	fx := make([]float64, len(sx))
	fy := make([]float64, len(sy))
	for i := range sx {
		y := sy[i] - intercept
		fx[i] = sx[i]*cosT + y*sinT
		fy[i] = -sx[i]*sinT + y*cosT
	}

	ridgeX, ridgeY := extractRidge(fx, fy)
	if len(ridgeX) < 4 {
		return nil, &ErrInsufficientData{What: "wavy ridge windows", Samples: len(ridgeX)}
	}

	gp, err := newGPRegressor(ridgeX, ridgeY, wavyGPLengthScale, wavyGPNoise)
	if err != nil {
		return nil, fmt.Errorf("wavy smoothing: %w", err)
	}
	smooth := make([]float64, len(ridgeX))
	for i, x := range ridgeX {
		smooth[i], _ = gp.Predict(x)
	}

	// De-rotate back to the scaled (position, log ratio) frame.
	outX := make([]float64, len(ridgeX))
	outY := make([]float64, len(ridgeX))
	for i := range ridgeX {
		outX[i] = ridgeX[i]*cosT - smooth[i]*sinT
		outY[i] = ridgeX[i]*sinT + smooth[i]*cosT + intercept
	}
	sortRidge(outX, outY)

	// The physical curve rises monotonically with position. Keep the longest
	// contiguous increasing run and let the spline anchors cover the rest.
	lo, hi := longestIncreasingRun(outY)
	outX, outY = outX[lo:hi], outY[lo:hi]
	if len(outX) < 4 {
		return nil, &ErrInsufficientData{What: "monotone ridge segment", Samples: len(outX)}
	}

	linPts := make([]Point, len(c.xs))
	for i := range c.xs {
		linPts[i] = Point{X: c.xs[i], Y: c.ys[i], W: 1}
	}
	coef, _, err := fitWeightedLine(linPts)
	if err != nil {
		return nil, fmt.Errorf("wavy linear reference: %w", err)
	}

	fit := &WavyFit{
		RidgeX: outX,
		RidgeY: outY,
		Linear: LogRatioFit{
			Intercept:         coef[0],
			Slope:             coef[1],
			GainRatio:         math.Exp(coef[0]),
			AttenuationLength: 2 / coef[1],
		},
	}

	n := len(outX)
	fit.loSlope = (outY[1] - outY[0]) / (outX[1] - outX[0])
	fit.hiSlope = (outY[n-1] - outY[n-2]) / (outX[n-1] - outX[n-2])

	// Anchor knots one scaled unit beyond each edge keep the spline linear
	// where no ridge was measured.
	knotsX := make([]float64, 0, n+2)
	knotsY := make([]float64, 0, n+2)
	knotsX = append(knotsX, outX[0]-1)
	knotsY = append(knotsY, outY[0]-fit.loSlope)
	knotsX = append(knotsX, outX...)
	knotsY = append(knotsY, outY...)
	knotsX = append(knotsX, outX[n-1]+1)
	knotsY = append(knotsY, outY[n-1]+fit.hiSlope)

	if err := fit.spline.Fit(knotsX, knotsY); err != nil {
		return nil, fmt.Errorf("wavy spline: %w", err)
	}
	fit.loX, fit.loY = knotsX[0], knotsY[0]
	fit.hiX, fit.hiY = knotsX[len(knotsX)-1], knotsY[len(knotsY)-1]
	return fit, nil
}

// pcaFilter keeps the core of the scatter: points within 0.6 scaled units of
// the bar center whose second principal component stays within 0.4 units.
func pcaFilter(xs, ys []float64) (fx, fy []float64) {
	var cx, cy []float64
	for i := range xs {
		if math.Abs(xs[i]) < 0.6 {
			cx = append(cx, xs[i])
			cy = append(cy, ys[i])
		}
	}
	if len(cx) < 3 {
		return xs, ys
	}

	data := make([]float64, 0, 2*len(cx))
	for i := range cx {
		data = append(data, cx[i], cy[i])
	}
	m := mat.NewDense(len(cx), 2, data)

	var pc stat.PC
	if ok := pc.PrincipalComponents(m, nil); !ok {
		return cx, cy
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	ax2 := [2]float64{vecs.At(0, 1), vecs.At(1, 1)}

	mx := stat.Mean(cx, nil)
	my := stat.Mean(cy, nil)
	for i := range cx {
		proj := (cx[i]-mx)*ax2[0] + (cy[i]-my)*ax2[1]
		if math.Abs(proj) < 0.4 {
			fx = append(fx, cx[i])
			fy = append(fy, cy[i])
		}
	}
	if len(fx) < 3 {
		return cx, cy
	}
	return fx, fy
}

// ransacLine fits a robust straight line: repeated fits on random half
// subsets, scored by inliers within the median absolute deviation of y, then
// a final fit on the best consensus set.
func ransacLine(xs, ys []float64, rng *rand.Rand) (slope, intercept float64, err error) {
	n := len(xs)
	if n < 2 {
		return 0, 0, &ErrInsufficientData{What: "ransac samples", Samples: n}
	}
	minSamples := n / 2
	if minSamples < 2 {
		minSamples = 2
	}
	threshold := medianAbsDeviation(ys)
	if threshold == 0 {
		threshold = 1e-12
	}

	var bestInliers []int
	for iter := 0; iter < ransacIterations; iter++ {
		perm := rng.Perm(n)[:minSamples]
		pts := make([]Point, minSamples)
		for i, j := range perm {
			pts[i] = Point{X: xs[j], Y: ys[j], W: 1}
		}
		coef, _, ferr := fitWeightedLine(pts)
		if ferr != nil {
			continue
		}
		var inliers []int
		for i := range xs {
			if math.Abs(ys[i]-coef[0]-coef[1]*xs[i]) < threshold {
				inliers = append(inliers, i)
			}
		}
		if len(inliers) > len(bestInliers) {
			bestInliers = inliers
		}
	}
	if len(bestInliers) < 2 {
		return 0, 0, &ErrInsufficientData{What: "ransac consensus", Samples: len(bestInliers)}
	}

	pts := make([]Point, len(bestInliers))
	for i, j := range bestInliers {
		pts[i] = Point{X: xs[j], Y: ys[j], W: 1}
	}
	coef, _, ferr := fitWeightedLine(pts)
	if ferr != nil {
		return 0, 0, ferr
	}
	return coef[1], coef[0], nil
}

// extractRidge slides a narrow window across the flattened scatter and fits
// a Gaussian to the y distribution in each window. Window centers with a
// successful fit become ridge points.
func extractRidge(fx, fy []float64) (ridgeX, ridgeY []float64) {
	for lo := wavyWindowLo; lo+wavyWindowWidth <= wavyWindowHi; lo += wavyWindowStep {
		hi := lo + wavyWindowWidth
		var samples []float64
		for i := range fx {
			if fx[i] >= lo && fx[i] < hi {
				samples = append(samples, fy[i])
			}
		}
		if len(samples) < wavyWindowMin {
			continue
		}
		peak, err := FitGaussianPeak(samples, wavyPeakBins, -wavyPeakRange, wavyPeakRange)
		if err != nil {
			continue
		}
		if math.Abs(peak.Mean) > wavyPeakRange {
			continue
		}
		ridgeX = append(ridgeX, lo+0.5*wavyWindowWidth)
		ridgeY = append(ridgeY, peak.Mean)
	}
	return ridgeX, ridgeY
}

// longestIncreasingRun returns the half-open bounds of the longest contiguous
// strictly increasing run in ys.
func longestIncreasingRun(ys []float64) (lo, hi int) {
	bestLo, bestHi := 0, 1
	runLo := 0
	for i := 1; i <= len(ys); i++ {
		if i == len(ys) || ys[i] <= ys[i-1] {
			if i-runLo > bestHi-bestLo {
				bestLo, bestHi = runLo, i
			}
			runLo = i
		}
	}
	return bestLo, bestHi
}

func sortRidge(xs, ys []float64) {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })
	ox := make([]float64, len(xs))
	oy := make([]float64, len(ys))
	for i, j := range idx {
		ox[i], oy[i] = xs[j], ys[j]
	}
	copy(xs, ox)
	copy(ys, oy)
}

func medianAbsDeviation(ys []float64) float64 {
	med := median(ys)
	dev := make([]float64, len(ys))
	for i, y := range ys {
		dev[i] = math.Abs(y - med)
	}
	return median(dev)
}

func median(ys []float64) float64 {
	s := append([]float64(nil), ys...)
	sort.Float64s(s)
	n := len(s)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return s[n/2]
	}
	return 0.5 * (s[n/2-1] + s[n/2])
}

// gpRegressor is a Gaussian-process smoother with an RBF kernel plus white
// noise, with fixed hyperparameters.
type gpRegressor struct {
	x           []float64
	alpha       *mat.VecDense
	chol        mat.Cholesky
	lengthScale float64
	noise       float64
}

func newGPRegressor(x, y []float64, lengthScale, noise float64) (*gpRegressor, error) {
	n := len(x)
	if n == 0 {
		return nil, &ErrInsufficientData{What: "gp training points", Samples: 0}
	}
	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := rbf(x[i], x[j], lengthScale)
			if i == j {
				v += noise
			}
			k.SetSym(i, j, v)
		}
	}

	g := &gpRegressor{x: x, lengthScale: lengthScale, noise: noise}
	if ok := g.chol.Factorize(k); !ok {
		return nil, &ErrInsufficientData{What: "gp kernel factorization", Samples: n}
	}
	g.alpha = mat.NewVecDense(n, nil)
	if err := g.chol.SolveVecTo(g.alpha, mat.NewVecDense(n, y)); err != nil {
		return nil, err
	}
	return g, nil
}

// Predict returns the posterior mean and standard deviation at a point.
func (g *gpRegressor) Predict(x float64) (mean, std float64) {
	n := len(g.x)
	ks := mat.NewVecDense(n, nil)
	for i, xi := range g.x {
		ks.SetVec(i, rbf(x, xi, g.lengthScale))
	}
	mean = mat.Dot(ks, g.alpha)

	v := mat.NewVecDense(n, nil)
	if err := g.chol.SolveVecTo(v, ks); err != nil {
		return mean, math.NaN()
	}
	variance := rbf(x, x, g.lengthScale) + g.noise - mat.Dot(ks, v)
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

func rbf(a, b, lengthScale float64) float64 {
	d := (a - b) / lengthScale
	return math.Exp(-0.5 * d * d)
}
