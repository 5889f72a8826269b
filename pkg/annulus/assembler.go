// Package annulus builds the polar sample grid for one analysis radius from
// a Cartesian image. For a given inner radius the assembler sweeps every
// (angle, log-radius) cell of the grid, maps the cell back to a source pixel,
// and either copies the brightness into the grid's real channel or leaves the
// cell at zero, depending on the active inclusion policy. The sum of all
// included samples (norma) is returned for the spectral normalization step.
package annulus

import (
	"math"

	"galpitch/internal/models"
	"galpitch/pkg/polar"
)

// Policy selects which annulus bounds include a sample.
type Policy int

const (
	// Standard includes samples from the current radius outward:
	// ln(sample radius) in [log(r), log(maxRadius)].
	Standard Policy = iota

	// Reverse bounds the annulus from the outside in:
	// ln(sample radius) <= log(maxRadius - r + 1).
	Reverse

	// FixedWindow includes only samples inside a window of fixed width
	// centered on the current radius:
	// ln(sample radius) in [log(r - w/2), log(r + w/2)].
	FixedWindow
)

// Window width limits for the FixedWindow policy, in pixels.
const (
	MinWindow = 2
	MaxWindow = 512
)

// Zero-padded angular rows at the start and end of the grid when edge
// padding is enabled. The asymmetry is historical: record files produced
// with padding used these exact row counts.
const (
	padRowsLow  = 2
	padRowsHigh = 4
)

// Options configures one assembly pass. Exactly one Policy is active per
// run; the masks and edge padding compose with it.
type Options struct {
	Policy Policy

	// Window is the annulus width for FixedWindow, in pixels.
	Window int

	// MaskCore zeroes any sample at least as bright as the center pixel.
	MaskCore bool

	// MaskBar zeroes any sample inside the estimated bar radius.
	// BarLogRadius is the natural log of that radius (see FindBar).
	MaskBar      bool
	BarLogRadius float64

	// ZeroPad forces the first and last few angular rows to zero,
	// simulating a transform window.
	ZeroPad bool
}

// SkipRadius reports whether the FixedWindow policy cannot form a full
// window at the given radius, in which case the radius is not processed.
func (o Options) SkipRadius(radius, maxRadius int) bool {
	if o.Policy != FixedWindow {
		return false
	}
	half := o.Window / 2
	return radius <= half || radius >= maxRadius-half
}

// Assemble fills grid's real channel with brightness samples for one inner
// radius. The grid is fully zeroed first. Samples mapping outside the image
// bounds contribute nothing; this is intentional, not an error. The returned
// norma is the sum of all included samples. A zero norma means the annulus
// contained no data: downstream normalization will then produce non-finite
// values, which callers treat as a no-signal marker rather than a failure.
func Assemble(grid *polar.Grid, img *models.PixelGrid, radius, maxRadius int, opts Options) float64 {
	grid.Zero()

	x0 := img.CenterX()
	y0 := img.CenterY()
	ctrVal := img.At(x0, y0)

	logMax := math.Log(float64(maxRadius))
	var logRad, logLo, logHi float64
	switch opts.Policy {
	case Reverse:
		logRad = math.Log(float64(maxRadius - radius + 1))
	case FixedWindow:
		half := float64(opts.Window) / 2.0
		logLo = math.Log(float64(radius) - half)
		logHi = math.Log(float64(radius) + half)
	default:
		logRad = math.Log(float64(radius))
	}

	norma := 0.0
	for t := 0; t < polar.DimTheta; t++ {
		if opts.ZeroPad && (t < padRowsLow || t >= polar.DimTheta-padRowsHigh) {
			continue
		}
		theta := polar.ThetaRad(t)
		for j := 0; j < polar.DimRad; j++ {
			lnr := polar.LnR(j)

			if opts.MaskBar && lnr <= opts.BarLogRadius {
				continue
			}

			switch opts.Policy {
			case Reverse:
				if lnr > logRad || lnr > logMax {
					continue
				}
			case FixedWindow:
				if lnr > logHi || lnr < logLo {
					continue
				}
			default:
				if lnr > logMax || lnr < logRad {
					continue
				}
			}

			dx, dy := polar.PixelOffset(lnr, theta)
			x, y := x0+dx, y0+dy
			if !img.InBounds(x, y) {
				continue
			}

			v := img.At(x, y)
			if opts.MaskCore && v >= ctrVal {
				continue
			}
			grid.SetReal(t, j, v)
			norma += v
		}
	}
	return norma
}

// FindBar estimates the bar radius of an image: for each angle it walks
// outward from the center while brightness stays at or above limit, and
// returns the natural log of the largest radius reached over all angles.
// The walk along an angle stops at the first pixel below the limit.
func FindBar(img *models.PixelGrid, maxRadius int, limit float64) float64 {
	x0 := img.CenterX()
	y0 := img.CenterY()
	logEdge := math.Log(float64(maxRadius))

	largest := 0.0
	for t := 0; t < polar.DimTheta; t++ {
		theta := polar.ThetaRad(t)
		for j := 0; j < polar.DimRad; j++ {
			lnr := polar.LnR(j)
			if lnr > logEdge {
				break
			}
			dx, dy := polar.PixelOffset(lnr, theta)
			x, y := x0+dx, y0+dy
			if !img.InBounds(x, y) {
				break
			}
			if img.At(x, y) < limit {
				break
			}
			if lnr > largest {
				largest = lnr
			}
		}
	}
	return largest
}
