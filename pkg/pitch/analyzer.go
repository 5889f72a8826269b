// Package pitch interprets one radius's canonical spectral data for one
// mode: it locates the dominant frequency bin and derives the pitch angle,
// phase angle, signal-to-noise ratio, and peak width. Computation failures
// are not errors in the process sense; they resolve to NaN-filled results
// carrying an explicit state and code, and later stages of the analysis
// chain inherit the failure.
package pitch

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"galpitch/pkg/polar"
	"galpitch/pkg/spectrum"
)

// State classifies the outcome of one analysis stage.
type State int

const (
	// StateOK means the stage produced valid values.
	StateOK State = iota

	// StateNaN means the spectral data carried no signal (all-NaN scan
	// window). Not an error; the result record is NaN-filled.
	StateNaN

	// StateError means the stage could not complete; see the Code.
	StateError
)

// Code identifies why a stage failed.
type Code int

const (
	CodeNone Code = iota

	// CodeNoPeak: no maximum amplitude could be located in the scan window.
	CodeNoPeak

	// CodeAllNaN: no valid sample in the scan window for the noise floor.
	CodeAllNaN

	// CodeZeroSigma: near-zero variance in the scan window; the SNR
	// division would blow up.
	CodeZeroSigma

	// CodeNoHalfWidth: a half-maximum boundary was never reached inside
	// the scan window.
	CodeNoHalfWidth

	// CodeBadPeak: the peak index fell outside the scan window.
	CodeBadPeak
)

// Result is the per-(mode, radius) analysis record. Fields that could not
// be computed hold NaN. A Result is written once and immutable thereafter.
type Result struct {
	Index  int
	Freq   float64
	Amp    float64
	AvgAmp float64
	Pitch  float64
	Phase  float64
	SNR    float64
	FWHM   float64
}

// NaNResult returns a record with every numeric field set to NaN, the
// representation for a radius/mode with no computable signal.
func NaNResult() Result {
	n := math.NaN()
	return Result{Freq: n, Amp: n, AvgAmp: n, Pitch: n, Phase: n, SNR: n, FWHM: n}
}

// sigmaFloor is the smallest usable window standard deviation; below it the
// SNR is meaningless.
const sigmaFloor = 1e-10

// Analyzer scans a fixed central window of canonical frequency bins. The
// zero value is not usable; NewAnalyzer sets the historical window bounds.
// Lo, Hi, and DC are exported so tests can run against small windows.
type Analyzer struct {
	Lo, Hi int // inclusive scan window in canonical indices
	DC     int // the DC bin, excluded from every scan
}

// NewAnalyzer returns an analyzer over the standard scan window.
func NewAnalyzer() *Analyzer {
	return &Analyzer{Lo: spectrum.ScanLo, Hi: spectrum.ScanHi, DC: spectrum.DCIndex}
}

// Analyze runs the full stage chain for one mode's canonical spectrum:
// peak find, then SNR, then FWHM. A failed stage NaN-fills its own and all
// later fields, matching the stage dependencies (no SNR without a peak, no
// FWHM without the noise floor).
func (a *Analyzer) Analyze(spec []spectrum.Cell, mode int) Result {
	res, state, _ := a.PeakPhase(spec, mode)
	if state != StateOK {
		return NaNResult()
	}
	if state, _ = a.SNR(spec, &res); state != StateOK {
		n := math.NaN()
		res.AvgAmp, res.SNR, res.FWHM = n, n, n
		return res
	}
	if state, _ = a.FWHM(spec, &res); state != StateOK {
		res.FWHM = math.NaN()
	}
	return res
}

// PeakPhase finds the maximum-magnitude bin in the scan window (DC
// excluded) and computes the pitch and phase angles for it. StateNaN is
// returned when every bin in the window is NaN; CodeNoPeak should not occur
// with rational input.
func (a *Analyzer) PeakPhase(spec []spectrum.Cell, mode int) (Result, State, Code) {
	aMax := -255.0
	index := -1
	allNaN := true

	for i := a.Lo; i <= a.Hi; i++ {
		abs := spec[i].Abs
		if abs == abs { // NaN test by self-equality
			allNaN = false
		}
		if abs > aMax && i != a.DC {
			index = i
			aMax = abs
		}
	}

	if allNaN {
		return NaNResult(), StateNaN, CodeNone
	}
	if index < 0 {
		return NaNResult(), StateError, CodeNoPeak
	}

	res := NaNResult()
	res.Index = index
	res.Amp = spec[index].Abs
	res.Freq = spec[index].Freq

	res.Pitch = math.Atan2(float64(mode), res.Freq) / polar.DegToRad
	if math.Abs(res.Pitch) > 90.0 {
		res.Pitch -= 180.0
	}
	res.Phase = math.Atan2(spec[index].Imag, spec[index].Real) / polar.DegToRad / float64(mode)
	return res, StateOK, CodeNone
}

// SNR computes the noise floor (mean magnitude over the scan window), the
// population sigma about it, and the peak's signal-to-noise ratio. The DC
// bin and NaN samples are excluded from both statistics.
func (a *Analyzer) SNR(spec []spectrum.Cell, res *Result) (State, Code) {
	valid := make([]float64, 0, a.Hi-a.Lo+1)
	for i := a.Lo; i <= a.Hi; i++ {
		abs := spec[i].Abs
		if i != a.DC && abs == abs {
			valid = append(valid, abs)
		}
	}
	if len(valid) < 1 {
		return StateError, CodeAllNaN
	}

	l := stat.Mean(valid, nil)
	sigma := math.Sqrt(stat.PopVariance(valid, nil))
	if sigma <= sigmaFloor {
		return StateError, CodeZeroSigma
	}

	res.AvgAmp = l
	res.SNR = (res.Amp - l) / sigma
	if res.SNR != res.SNR {
		return StateNaN, CodeNone
	}
	return StateOK, CodeNone
}

// FWHM walks outward from the peak in both directions until the magnitude
// drops below halfway between the peak and the noise floor, and records the
// width in bins. PeakPhase and SNR must have populated res.
func (a *Analyzer) FWHM(spec []spectrum.Cell, res *Result) (State, Code) {
	if res.Index < a.Lo || res.Index > a.Hi {
		return StateError, CodeBadPeak
	}

	limit := res.Amp - (res.Amp-res.AvgAmp)/2.0
	hi, lo := 0, 0

	for i := res.Index + 1; i <= a.Hi; i++ {
		if i != a.DC && spec[i].Abs < limit {
			hi = i - 1
			break
		}
	}
	for i := res.Index - 1; i >= a.Lo; i-- {
		if i != a.DC && spec[i].Abs < limit {
			lo = i + 1
			break
		}
	}
	if hi == 0 || lo == 0 {
		return StateError, CodeNoHalfWidth
	}

	res.FWHM = float64(hi - lo + 1)
	if res.FWHM != res.FWHM {
		return StateNaN, CodeNone
	}
	return StateOK, CodeNone
}
