package nwcal

import "math/rand"

// DitherADC de-aliases one integer-quantized ADC channel. Values strictly
// inside the valid range get U(-0.5, 0.5); a reading of exactly zero gets
// U(0, 0.5) so that no artificial spike builds up at 0; anything else
// (negative or saturated) passes through unperturbed.
//
// Each worker must hold its own *rand.Rand so that dithering stays
// uncorrelated across bars processed in parallel.
func DitherADC(v float64, rng *rand.Rand) float64 {
	switch {
	case v > 0 && v < SaturationCeiling:
		return v + rng.Float64() - 0.5
	case v == 0:
		return v + 0.5*rng.Float64()
	default:
		return v
	}
}

// Dither applies DitherADC to the four ADC channels of an event, drawing an
// independent value for each channel.
func Dither(ev Event, rng *rand.Rand) DitheredEvent {
	return DitheredEvent{
		Event:   ev,
		TotalRL: DitherADC(ev.TotalL, rng),
		TotalRR: DitherADC(ev.TotalR, rng),
		FastRL:  DitherADC(ev.FastL, rng),
		FastRR:  DitherADC(ev.FastR, rng),
	}
}

// DitherAll dithers a whole event slice with a single generator, preserving
// order. The input slice is not modified.
func DitherAll(events []Event, rng *rand.Rand) []DitheredEvent {
	out := make([]DitheredEvent, len(events))
	for i, ev := range events {
		out[i] = Dither(ev, rng)
	}
	return out
}
