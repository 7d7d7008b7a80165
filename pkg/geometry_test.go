package nwcal

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// boxVertices builds the eight corners of a box centered at c, with half
// extents h along the given unit axes.
func boxVertices(c Vec3, axes [3]Vec3, h Vec3) [8]Vec3 {
	var out [8]Vec3
	i := 0
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			for _, sz := range []float64{-1, 1} {
				p := c
				p = p.Add(axes[0].Scale(sx * h[0]))
				p = p.Add(axes[1].Scale(sy * h[1]))
				p = p.Add(axes[2].Scale(sz * h[2]))
				out[i] = p
				i++
			}
		}
	}
	return out
}

func TestNewBarFromVertices(t *testing.T) {
	center := Vec3{10, -5, 440}
	// Local x opposing lab x, slightly rotated in the xz plane.
	theta := 0.1
	axes := [3]Vec3{
		{-math.Cos(theta), 0, math.Sin(theta)},
		{0, 1, 0},
		{math.Sin(theta), 0, math.Cos(theta)},
	}
	bar, err := NewBarFromVertices(boxVertices(center, axes, Vec3{100, 3.81, 3.175}), PyrexThickness)
	require.NoError(t, err)

	require.InDelta(t, 200.0, bar.Length(), 1e-6)
	require.InDelta(t, 7.62, bar.Height(), 1e-6)
	require.InDelta(t, 6.35, bar.Thickness(), 1e-6)

	for k := 0; k < 3; k++ {
		require.InDelta(t, center[k], bar.Frame.Origin[k], 1e-9)
	}

	// Sign conventions.
	require.Less(t, bar.Frame.Axes[0].Dot(Vec3{1, 0, 0}), 0.0)
	require.Greater(t, bar.Frame.Axes[1].Dot(Vec3{0, 1, 0}), 0.0)
	cross := bar.Frame.Axes[0].Cross(bar.Frame.Axes[1])
	require.Greater(t, bar.Frame.Axes[2].Dot(cross), 0.9)

	// Orthonormality.
	for i := 0; i < 3; i++ {
		require.InDelta(t, 1.0, bar.Frame.Axes[i].Norm(), 1e-9)
		for j := i + 1; j < 3; j++ {
			require.InDelta(t, 0.0, bar.Frame.Axes[i].Dot(bar.Frame.Axes[j]), 1e-9)
		}
	}
}

func TestFrameRoundTrip(t *testing.T) {
	f := Frame{
		Origin: Vec3{1, 2, 3},
		Axes: [3]Vec3{
			{-1, 0, 0},
			{0, 1, 0},
			{0, 0, -1},
		},
	}
	p := Vec3{4.5, -2.25, 7}
	back := f.ToLab(f.ToLocal(p))
	for k := 0; k < 3; k++ {
		require.InDelta(t, p[k], back[k], 1e-12)
	}
}

func TestWithShellThicknessPure(t *testing.T) {
	orig, err := NewBarFromVertices(boxVertices(Vec3{}, [3]Vec3{
		{-1, 0, 0}, {0, 1, 0}, {0, 0, -1},
	}, Vec3{100, 3.81, 3.175}), PyrexThickness)
	require.NoError(t, err)

	bare := WithShellThickness(orig, 0)
	require.InDelta(t, orig.Length()-2*PyrexThickness, bare.Length(), 1e-9)
	require.InDelta(t, orig.Thickness()-2*PyrexThickness, bare.Thickness(), 1e-9)
	require.Equal(t, 0.0, bare.Shell)

	// The original is untouched and a round trip restores it.
	require.InDelta(t, 200.0, orig.Length(), 1e-6)
	restored := WithShellThickness(bare, PyrexThickness)
	require.InDelta(t, orig.Length(), restored.Length(), 1e-9)
	require.InDelta(t, orig.Height(), restored.Height(), 1e-9)
}

func TestRandomizeFromLocalX(t *testing.T) {
	bar, err := NewBarFromVertices(boxVertices(Vec3{}, [3]Vec3{
		{-1, 0, 0}, {0, 1, 0}, {0, 0, -1},
	}, Vec3{100, 3.81, 3.175}), PyrexThickness)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(5))
	xs := []float64{-80, 0, 80}
	pts := bar.RandomizeFromLocalX(xs, [2]float64{-0.5, 0.5}, [2]float64{-0.5, 0.5}, rng)
	require.Len(t, pts, 3)

	for i, p := range pts {
		local := bar.Frame.ToLocal(p)
		require.InDelta(t, xs[i], local[0], 1e-9)
		require.LessOrEqual(t, math.Abs(local[1]), bar.Height()/2)
		require.LessOrEqual(t, math.Abs(local[2]), bar.Thickness()/2)
	}
}
