package nwcal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecoverSaturationLeft(t *testing.T) {
	lr := &LogRatioFit{GainRatio: 1.0, AttenuationLength: 120}

	// At pos 0 with unit gain the two sides read the same, so a saturated
	// left comes back as the right reading.
	outL, outR, both := RecoverSaturation(4096, 2000, 0, lr)
	require.False(t, both)
	require.InDelta(t, 2000.0, outL, 1e-9)
	require.InDelta(t, 2000.0, outR, 1e-9)
}

func TestRecoverSaturationRight(t *testing.T) {
	lr := &LogRatioFit{GainRatio: 1.0, AttenuationLength: 120}

	pos := 30.0
	ratio := math.Exp((2 / 120.0) * pos)
	outL, outR, both := RecoverSaturation(1500, 4096, pos, lr)
	require.False(t, both)
	require.InDelta(t, 1500.0, outL, 1e-9)
	require.InDelta(t, 1500*ratio, outR, 1e-9)
}

func TestRecoverSaturationBoth(t *testing.T) {
	lr := &LogRatioFit{GainRatio: 1.2, AttenuationLength: 120}

	outL, outR, both := RecoverSaturation(4096, 4096, -10, lr)
	require.True(t, both)
	require.Equal(t, 4096.0, outL)
	require.Equal(t, 4096.0, outR)
}

func TestRecoverSaturationNeither(t *testing.T) {
	lr := &LogRatioFit{GainRatio: 1.2, AttenuationLength: 120}

	outL, outR, both := RecoverSaturation(1000, 1100, 5, lr)
	require.False(t, both)
	require.Equal(t, 1000.0, outL)
	require.Equal(t, 1100.0, outR)
}

func TestCorrectNonLinear(t *testing.T) {
	f := NonLinearFit{LinP0: 0, LinP1: 1, XSwitch: 3000}
	f.QuadP0, f.QuadP1, f.QuadP2 = quadraticParams(0, 1, -1e-4, 3000)

	// Below the switch nothing changes.
	require.Equal(t, 2500.0, f.CorrectNonLinear(2500, 2500, false))

	// At the switch the correction vanishes, giving a continuous blend.
	require.InDelta(t, 3000.0, f.CorrectNonLinear(3000, 3000, false), 1e-9)

	// Above the switch the total is lifted by the linear-quadratic gap.
	fast := 3500.0
	gap := (f.LinP0 + f.LinP1*fast) - (f.QuadP0 + f.QuadP1*fast + f.QuadP2*fast*fast)
	require.Greater(t, gap, 0.0)
	require.InDelta(t, 3400+gap, f.CorrectNonLinear(3400, fast, false), 1e-9)

	// Saturated readings are left for the cross-side recovery.
	require.Equal(t, 3400.0, f.CorrectNonLinear(3400, fast, true))
}

func TestBarCalibrationApply(t *testing.T) {
	cal := &BarCalibration{
		FastTotalL: NonLinearFit{LinP0: 0, LinP1: 1, XSwitch: 3000},
		FastTotalR: NonLinearFit{LinP0: 0, LinP1: 1, XSwitch: 3000},
		LogRatio:   LogRatioFit{Intercept: 0, Slope: 2.0 / 120},
	}
	cal.FastTotalL.QuadP0, cal.FastTotalL.QuadP1, cal.FastTotalL.QuadP2 = quadraticParams(0, 1, -1e-4, 3000)
	cal.FastTotalR.QuadP0, cal.FastTotalR.QuadP1, cal.FastTotalR.QuadP2 = quadraticParams(0, 1, -1e-4, 3000)
	cal.LogRatio.GainRatio = 1
	cal.LogRatio.AttenuationLength = 120

	t.Run("saturated left recovered from right", func(t *testing.T) {
		ev := DitheredEvent{
			Event:   Event{TotalL: 4096, TotalR: 2000, Pos: 0},
			TotalRL: 4096, TotalRR: 2000.2, FastRL: 2000, FastRR: 1800,
		}
		out := cal.Apply(ev)
		require.False(t, out.BothSaturated)
		require.InDelta(t, 2000.2, out.TotalFR, 1e-9)
		require.InDelta(t, 2000.2, out.TotalFL, 1e-9)
	})

	t.Run("both saturated flagged and untouched", func(t *testing.T) {
		ev := DitheredEvent{
			Event:   Event{TotalL: 4096, TotalR: 4096, Pos: 10},
			TotalRL: 4096, TotalRR: 4096, FastRL: 3900, FastRR: 3900,
		}
		out := cal.Apply(ev)
		require.True(t, out.BothSaturated)
		require.Equal(t, 4096.0, out.TotalFL)
		require.Equal(t, 4096.0, out.TotalFR)
	})

	t.Run("saturated left recovered from raw right above the switch", func(t *testing.T) {
		// The recovery works from the raw right reading even when the
		// right side itself sits in the non-linear regime and gets its
		// own lift.
		ev := DitheredEvent{
			Event:   Event{TotalL: 4096, TotalR: 3470, Pos: 0},
			TotalRL: 4096, TotalRR: 3470.2, FastRL: 3900, FastRR: 3500,
		}
		out := cal.Apply(ev)
		require.False(t, out.BothSaturated)
		require.InDelta(t, 3470.2, out.TotalFL, 1e-9)

		gap := -cal.FastTotalR.QuadP2 * (3500 - 3000) * (3500 - 3000)
		require.InDelta(t, 3470.2+gap, out.TotalFR, 1e-9)
	})

	t.Run("unsaturated event gets only the bend correction", func(t *testing.T) {
		ev := DitheredEvent{
			Event:   Event{TotalL: 3400, TotalR: 1200, Pos: -20},
			TotalRL: 3400.1, TotalRR: 1200.3, FastRL: 3500, FastRR: 1100,
		}
		out := cal.Apply(ev)
		require.False(t, out.BothSaturated)
		require.Greater(t, out.TotalFL, ev.TotalRL)
		require.Equal(t, ev.TotalRR, out.TotalFR)
	})
}

func TestRecoverSaturationDegenerateRatio(t *testing.T) {
	// A pathological fit can drive the total ratio to zero; the event then
	// passes through instead of blowing up the recovered value.
	lr := &LogRatioFit{Intercept: -700, GainRatio: 1e-300, AttenuationLength: 120}

	outL, outR, both := RecoverSaturation(4096, 2000, 0, lr)
	require.False(t, both)
	require.Equal(t, 4096.0, outL)
	require.Equal(t, 2000.0, outR)

	cal := &BarCalibration{LogRatio: *lr}
	out := cal.Apply(DitheredEvent{
		Event:   Event{TotalL: 4096, TotalR: 2000},
		TotalRL: 4096, TotalRR: 2000.2, FastRL: 3900, FastRR: 1800,
	})
	require.False(t, out.BothSaturated)
	require.Equal(t, 4096.0, out.TotalFL)
	require.Equal(t, 2000.2, out.TotalFR)
}

func TestApplyAll(t *testing.T) {
	cal := &BarCalibration{
		LogRatio: LogRatioFit{GainRatio: 1, AttenuationLength: 120},
	}
	events := []DitheredEvent{
		{Event: Event{TotalL: 100, TotalR: 110}, TotalRL: 100.1, TotalRR: 110.2},
		{Event: Event{TotalL: 4096, TotalR: 4096}, TotalRL: 4096, TotalRR: 4096},
	}
	out := cal.ApplyAll(events)
	require.Len(t, out, 2)
	require.False(t, out[0].BothSaturated)
	require.True(t, out[1].BothSaturated)
}
