package nwcal

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Vec3 is a lab- or local-frame Cartesian vector in centimeters.
type Vec3 [3]float64

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v[0] * s, v[1] * s, v[2] * s} }
func (v Vec3) Dot(o Vec3) float64   { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }
func (v Vec3) Norm() float64        { return math.Sqrt(v.Dot(v)) }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Frame is an orthonormal local coordinate frame: a centroid and three unit
// axes expressed in lab coordinates. It is a value type; transforms are pure.
type Frame struct {
	Origin Vec3
	Axes   [3]Vec3
}

// ToLocal transforms a lab-frame point into the local frame.
func (f Frame) ToLocal(p Vec3) Vec3 {
	d := p.Sub(f.Origin)
	return Vec3{d.Dot(f.Axes[0]), d.Dot(f.Axes[1]), d.Dot(f.Axes[2])}
}

// ToLab transforms a local-frame point back into the lab frame.
func (f Frame) ToLab(p Vec3) Vec3 {
	out := f.Origin
	for i := range f.Axes {
		out = out.Add(f.Axes[i].Scale(p[i]))
	}
	return out
}

// PyrexThickness is the glass shell of a bar, 1/8 inch in centimeters.
const PyrexThickness = 2.54 / 8

// Bar is an immutable bar geometry: the local frame, the outer dimensions
// (length, height, thickness) and the shell thickness currently included in
// those dimensions.
type Bar struct {
	Frame Frame
	Dims  Vec3
	Shell float64
}

func (b Bar) Length() float64    { return b.Dims[0] }
func (b Bar) Height() float64    { return b.Dims[1] }
func (b Bar) Thickness() float64 { return b.Dims[2] }

// WithShellThickness returns a copy of the bar whose dimensions include a
// shell of the given thickness on every face. The input bar is never
// modified, so geometries shared across cached computations cannot alias.
func WithShellThickness(b Bar, t float64) Bar {
	delta := 2 * (t - b.Shell)
	return Bar{
		Frame: b.Frame,
		Dims:  Vec3{b.Dims[0] + delta, b.Dims[1] + delta, b.Dims[2] + delta},
		Shell: t,
	}
}

// NewBarFromVertices builds a bar from its eight lab-frame corner points.
// The vertex order does not matter: principal components identify the local
// x (length), y (height) and z (thickness) directions. Axis signs follow the
// wall convention: local x opposes lab x, local y points along lab y, local z
// by the right-hand rule.
func NewBarFromVertices(vertices [8]Vec3, shell float64) (Bar, error) {
	data := make([]float64, 0, 24)
	for _, v := range vertices {
		data = append(data, v[0], v[1], v[2])
	}
	m := mat.NewDense(8, 3, data)

	var pc stat.PC
	if ok := pc.PrincipalComponents(m, nil); !ok {
		return Bar{}, &ErrInsufficientData{What: "bar principal components", Samples: 8}
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	var axes [3]Vec3
	for i := 0; i < 3; i++ {
		axes[i] = Vec3{vecs.At(0, i), vecs.At(1, i), vecs.At(2, i)}
	}
	if axes[0].Dot(Vec3{-1, 0, 0}) < 0 {
		axes[0] = axes[0].Scale(-1)
	}
	if axes[1].Dot(Vec3{0, 1, 0}) < 0 {
		axes[1] = axes[1].Scale(-1)
	}
	if axes[2].Dot(axes[0].Cross(axes[1])) < 0 {
		axes[2] = axes[2].Scale(-1)
	}

	var centroid Vec3
	for _, v := range vertices {
		centroid = centroid.Add(v)
	}
	centroid = centroid.Scale(1.0 / 8)

	frame := Frame{Origin: centroid, Axes: axes}
	var lo, hi Vec3
	for i, v := range vertices {
		local := frame.ToLocal(v)
		for k := 0; k < 3; k++ {
			if i == 0 || local[k] < lo[k] {
				lo[k] = local[k]
			}
			if i == 0 || local[k] > hi[k] {
				hi[k] = local[k]
			}
		}
	}

	return Bar{
		Frame: frame,
		Dims:  hi.Sub(lo),
		Shell: shell,
	}, nil
}

// RandomizeFromLocalX spreads hits uniformly over the bar cross-section.
// Experimentally only the local x of a hit is known; the y and z coordinates
// are drawn uniformly within the given normalized ranges (-0.5 is one
// surface, +0.5 the opposite one). Returns lab-frame points.
func (b Bar) RandomizeFromLocalX(localX []float64, ynorm, znorm [2]float64, rng *rand.Rand) []Vec3 {
	out := make([]Vec3, len(localX))
	for i, x := range localX {
		y := (ynorm[0] + rng.Float64()*(ynorm[1]-ynorm[0])) * b.Height()
		z := (znorm[0] + rng.Float64()*(znorm[1]-znorm[0])) * b.Thickness()
		out[i] = b.Frame.ToLab(Vec3{x, y, z})
	}
	return out
}
