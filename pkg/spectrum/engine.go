// Package spectrum wraps the fixed-size 2D discrete Fourier transform over
// the polar sample grid and reorders its raw output into the canonical
// per-mode, per-frequency layout used by the analyzer, the record files, and
// the inverse reconstructor. The canonical index mapping is shared between
// the forward and inverse directions; it must not be re-derived elsewhere or
// the frequency labels on historical record files stop lining up.
package spectrum

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"galpitch/pkg/polar"
)

// Harmonic mode range. Mode m corresponds to an assumed m-armed symmetry.
const (
	ModeMin = 0
	ModeMax = 6
)

// Canonical spectral buffer layout. The buffer is 1-based with indices
// 2..DimRad+1 populated; DC sits at DCIndex and the retained frequency range
// [FreqMin, FreqMax] occupies RecLo..RecHi. The analyzer scans one bin wider
// on each side.
const (
	CanonLen = polar.DimRad + 2
	DCIndex  = polar.DimRad/2 + 1

	RecLo = DCIndex - int(polar.FreqMax/polar.FreqStep)
	RecHi = DCIndex + int(polar.FreqMax/polar.FreqStep)

	ScanLo = RecLo - 1
	ScanHi = RecHi + 1

	// NumBins is the number of retained frequency bins per mode.
	NumBins = RecHi - RecLo + 1
)

// Cell is one canonical Mode-Frequency record: the complex transform value,
// its magnitude, and the frequency the canonical index stands for.
type Cell struct {
	Real float64
	Imag float64
	Abs  float64
	Freq float64
}

// CanonicalIndex maps a raw transform bin k (0 = DC, then increasing
// positive frequency, wrapping to negative frequencies at the top) to its
// canonical buffer index.
func CanonicalIndex(k int) int {
	idx := k + polar.DimRad/2 + 1
	if idx > polar.DimRad+1 {
		idx -= polar.DimRad
	}
	return idx
}

// RawBin is the inverse of CanonicalIndex: the raw transform bin a canonical
// index originates from.
func RawBin(idx int) int {
	k := idx - polar.DimRad/2 - 1
	if k < 0 {
		k += polar.DimRad
	}
	return k
}

// FreqAt returns the frequency a canonical index stands for.
func FreqAt(idx int) float64 {
	return (float64(idx-1) - float64(polar.DimRad)/2.0) * polar.FreqStep
}

// BinFreq returns the frequency of retained bin i (0..NumBins-1), the
// ordering used by record files and the summed spectrum.
func BinFreq(i int) float64 {
	return polar.FreqMin + float64(i)*polar.FreqStep
}

// Engine executes the fixed-size 2D transform. It is stateless and safe
// for concurrent use by multiple workers against their own grids; build
// one per pipeline and share it.
type Engine struct{}

// NewEngine returns a transform engine for the polar grid dimensions.
func NewEngine() *Engine {
	return &Engine{}
}

// Forward runs the forward 2D transform over the grid and normalizes every
// output value by norma (the assembler's included-sample sum). A zero norma
// yields non-finite outputs; callers detect and exclude those downstream
// rather than treating them as an error here.
func (e *Engine) Forward(grid *polar.Grid, norma float64) [][]complex128 {
	out := fft.FFT2(grid.Rows())
	scale := complex(norma, 0)
	for t := range out {
		row := out[t]
		for j := range row {
			row[j] /= scale
		}
	}
	return out
}

// Inverse runs the backward 2D transform over the grid. The output is
// normalized by the total sample count (DimTheta*DimRad), which is the
// convention the reconstructor expects.
func (e *Engine) Inverse(grid *polar.Grid) [][]complex128 {
	return fft.IFFT2(grid.Rows())
}

// ModeSpectrum copies one mode's block of the raw transform output into dst
// in canonical order. dst must have length CanonLen. The imaginary part is
// negated on copy: the transform convention is sign-reversed relative to the
// layout the record files and analyzer assume.
func ModeSpectrum(raw [][]complex128, mode int, dst []Cell) {
	dst[0] = Cell{}
	dst[1] = Cell{}
	row := raw[mode]
	for k := 0; k < polar.DimRad; k++ {
		idx := CanonicalIndex(k)
		c := row[k]
		dst[idx] = Cell{
			Real: real(c),
			Imag: -imag(c),
			Abs:  cmplx.Abs(c),
			Freq: FreqAt(idx),
		}
	}
}
