// Package polar provides the logarithmic-polar sampling grid and the
// coordinate mapping between (log-radius, angle) cells and Cartesian pixel
// offsets. The grid dimensions and step sizes are fixed constants of the
// analysis: the per-radius record files written by the pipeline encode them
// implicitly, so changing any of them breaks compatibility with historical
// data sets.
package polar

import "math"

const (
	// DimTheta is the number of angular steps in the polar grid.
	DimTheta = 1024

	// DimRad is the number of log-radius steps in the polar grid.
	DimRad = 2048

	// FreqStep is the spacing between adjacent frequency bins produced by
	// the radial transform.
	FreqStep = 0.25

	// FreqMin and FreqMax bound the frequency range retained in record
	// files and summed spectra.
	FreqMin = -50.0
	FreqMax = 50.0

	// DegToRad converts degrees to radians.
	DegToRad = math.Pi / 180.0

	// RadStep is the log-radius increment between adjacent grid columns.
	// The full sweep covers ln r in [0, 2*pi/FreqStep).
	RadStep = 2.0 * math.Pi / FreqStep / DimRad

	// ThetaStepDeg is the angular increment between adjacent grid rows,
	// in degrees (360 degrees divided into DimTheta steps).
	ThetaStepDeg = 2.0 * math.Pi / DegToRad / DimTheta
)

// Cartesian converts a (log-radius, angle) pair to Cartesian offsets from
// the image center. theta is in radians.
func Cartesian(lnr, theta float64) (x, y float64) {
	r := math.Exp(lnr)
	return r * math.Cos(theta), r * math.Sin(theta)
}

// PixelOffset converts a (log-radius, angle) pair to integer pixel offsets.
// Coordinates truncate toward zero; no interpolation is performed.
func PixelOffset(lnr, theta float64) (dx, dy int) {
	x, y := Cartesian(lnr, theta)
	return int(x), int(y)
}

// ThetaRad returns the angle, in radians, of angular grid row t.
func ThetaRad(t int) float64 {
	return float64(t) * ThetaStepDeg * DegToRad
}

// LnR returns the log-radius of grid column j.
func LnR(j int) float64 {
	return float64(j) * RadStep
}

// Grid is one polar sample grid: DimTheta angular rows by DimRad log-radius
// columns of complex samples, backed by a single contiguous allocation.
// A Grid is owned by exactly one worker at a time and must be fully
// re-zeroed before each fill; stale samples from a previous radius corrupt
// the transform output.
type Grid struct {
	rows [][]complex128
	data []complex128
}

// NewGrid allocates a zeroed polar sample grid.
func NewGrid() *Grid {
	g := &Grid{
		rows: make([][]complex128, DimTheta),
		data: make([]complex128, DimTheta*DimRad),
	}
	for t := range g.rows {
		g.rows[t] = g.data[t*DimRad : (t+1)*DimRad]
	}
	return g
}

// Zero clears every cell of the grid.
func (g *Grid) Zero() {
	for i := range g.data {
		g.data[i] = 0
	}
}

// Rows exposes the grid as row slices (theta-major) for the transform.
// The returned slices alias the grid's backing storage.
func (g *Grid) Rows() [][]complex128 {
	return g.rows
}

// At returns the sample at angular row t, log-radius column j.
func (g *Grid) At(t, j int) complex128 {
	return g.rows[t][j]
}

// SetReal stores a purely real sample at angular row t, log-radius column j.
func (g *Grid) SetReal(t, j int, v float64) {
	g.rows[t][j] = complex(v, 0)
}

// Add accumulates a complex sample at angular row t, log-radius column j.
func (g *Grid) Add(t, j int, v complex128) {
	g.rows[t][j] += v
}
