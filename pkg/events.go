package nwcal

// SaturationCeiling is the digital ceiling of the 12-bit ADCs. Readings above
// SaturationThreshold are treated as saturated.
const (
	SaturationCeiling   = 4096.0
	SaturationThreshold = 4095.5
)

// Event is one neutron-wall hit as read from the calibrated run file. Raw
// fields are never mutated; derived quantities live in DitheredEvent and
// CorrectedEvent.
type Event struct {
	Bar     int32
	TotalL  float64
	TotalR  float64
	FastL   float64
	FastR   float64
	TimeL   float64
	TimeR   float64
	Pos     float64
	NWMulti int32
	VWMulti int32
}

// DitheredEvent carries the anti-aliasing randomized ADC values alongside the
// raw event. The dither is applied once, before any histogram is filled.
type DitheredEvent struct {
	Event
	TotalRL float64
	TotalRR float64
	FastRL  float64
	FastRR  float64
}

// CorrectedEvent is the outcome of applying the fitted calibration back onto
// a dithered event.
type CorrectedEvent struct {
	DitheredEvent
	TotalFL       float64
	TotalFR       float64
	LightGM       float64
	BothSaturated bool
}

// SaturatedL reports whether the left total-gate reading hit the ADC ceiling.
func (e *Event) SaturatedL() bool { return e.TotalL > SaturationThreshold }

// SaturatedR reports whether the right total-gate reading hit the ADC ceiling.
func (e *Event) SaturatedR() bool { return e.TotalR > SaturationThreshold }
