package nwcal

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// LightCalibCoeffs are the per-bar pulse-height calibration constants mapping
// position-corrected ADC to MeVee light output.
type LightCalibCoeffs struct {
	A, B, C, D, E float64
}

// lightScale is the fixed ADC-to-light conversion scale of the pulse-height
// calibration.
const lightScale = 4.196

// LightFromADC converts a (geometric-mean) ADC value at a hit position into
// MeVee units.
func (p LightCalibCoeffs) LightFromADC(adc, pos float64) float64 {
	result := lightScale * adc / (p.A + p.B*pos + p.C*pos*pos)
	return p.D + result*p.E
}

// ADCFromLight is the algebraic inverse of LightFromADC.
func (p LightCalibCoeffs) ADCFromLight(light, pos float64) float64 {
	result := (light - p.D) / (lightScale * p.E)
	return result * (p.A + p.B*pos + p.C*pos*pos)
}

// GainMatch equalizes the two sides with the fitted gain ratio: the left gets
// multiplied and the right divided. Bars without a fitted ratio pass through
// (ratio 1).
func GainMatch(totalL, totalR, gainRatio float64) (float64, float64) {
	if gainRatio < 1e-6 {
		gainRatio = 1.0
	}
	return totalL * gainRatio, totalR / gainRatio
}

// LightGM computes the geometric-mean light output of the corrected totals in
// MeVee.
func (p LightCalibCoeffs) LightGM(totalFL, totalFR, pos float64) float64 {
	return p.LightFromADC(math.Sqrt(totalFL*totalFR), pos)
}

// ApplyLightOutput fills the geometric-mean light output on corrected events
// from the per-bar pulse-height constants, after gain matching both sides
// with the fitted ratio. Bars without constants keep LightGM at zero.
func ApplyLightOutput(events []CorrectedEvent, coeffs map[int]LightCalibCoeffs, gainRatio float64) {
	for i := range events {
		ev := &events[i]
		p, ok := coeffs[int(ev.Bar)]
		if !ok {
			continue
		}
		l, r := GainMatch(ev.TotalFL, ev.TotalFR, gainRatio)
		ev.LightGM = p.LightGM(l, r, ev.Pos)
	}
}

// ReadLightCalibParams parses the whitespace table of per-bar pulse-height
// constants. Lines starting with '#' are comments; columns are
// bar a b c d e.
func ReadLightCalibParams(path string) (map[int]LightCalibCoeffs, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ErrOpenFile{Filename: path, Err: err}
	}
	defer file.Close()

	params := make(map[int]LightCalibCoeffs)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		bar, err := strconv.Atoi(fields[0])
		if err != nil {
			// header row
			continue
		}
		if len(fields) < 6 {
			return nil, fmt.Errorf("malformed light calibration row: %q", line)
		}
		var vals [5]float64
		for i := 0; i < 5; i++ {
			vals[i], err = strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("malformed coefficient in %q: %w", line, err)
			}
		}
		params[bar] = LightCalibCoeffs{A: vals[0], B: vals[1], C: vals[2], D: vals[3], E: vals[4]}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return params, nil
}
