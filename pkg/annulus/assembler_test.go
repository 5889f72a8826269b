package annulus

import (
	"math"
	"testing"

	"galpitch/internal/models"
	"galpitch/pkg/polar"
)

// diskImage builds a square image with value v everywhere within the given
// distance of the center and zero outside.
func diskImage(side int, within float64, v float64) *models.PixelGrid {
	img := models.NewPixelGrid(side, side)
	cx, cy := img.CenterX(), img.CenterY()
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			dx, dy := float64(x-cx), float64(y-cy)
			if math.Sqrt(dx*dx+dy*dy) <= within {
				img.Set(x, y, v)
			}
		}
	}
	return img
}

// TestAssembleNormaMatchesGrid verifies that the returned norma is exactly
// the sum of the samples placed on the grid
func TestAssembleNormaMatchesGrid(t *testing.T) {
	img := diskImage(61, 30, 1.0)
	grid := polar.NewGrid()

	norma := Assemble(grid, img, 5, 30, Options{})
	if norma <= 0 {
		t.Fatalf("Expected positive norma for a uniform disk, got %f", norma)
	}

	sum := 0.0
	for th := 0; th < polar.DimTheta; th++ {
		for j := 0; j < polar.DimRad; j++ {
			sum += real(grid.At(th, j))
		}
	}
	if math.Abs(sum-norma) > 1e-6 {
		t.Errorf("Expected norma %f to equal grid sum %f", norma, sum)
	}
}

// TestAssembleStandardShrinksWithRadius verifies that a larger inner radius
// admits fewer samples under the standard policy
func TestAssembleStandardShrinksWithRadius(t *testing.T) {
	img := diskImage(61, 30, 1.0)
	grid := polar.NewGrid()

	inner := Assemble(grid, img, 2, 30, Options{})
	outer := Assemble(grid, img, 20, 30, Options{})
	if outer >= inner {
		t.Errorf("Expected norma to shrink with radius, got %f at r=2 and %f at r=20", inner, outer)
	}
}

// TestAssembleFixedWindowExcludesOutside verifies that brightness outside
// the window contributes nothing
func TestAssembleFixedWindowExcludesOutside(t *testing.T) {
	img := diskImage(61, 25, 1.0)
	grid := polar.NewGrid()
	opts := Options{Policy: FixedWindow, Window: 20}

	base := Assemble(grid, img, 15, 30, opts)

	// Brighten a ring beyond the window's outer edge of 25.
	cx, cy := img.CenterX(), img.CenterY()
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			dx, dy := float64(x-cx), float64(y-cy)
			d := math.Sqrt(dx*dx + dy*dy)
			if d > 26.5 && d < 29.5 {
				img.Set(x, y, 100.0)
			}
		}
	}
	spiked := Assemble(grid, img, 15, 30, opts)

	if math.Abs(spiked-base) > 1e-9 {
		t.Errorf("Expected ring outside window to be excluded: norma changed from %f to %f", base, spiked)
	}
}

// TestSkipRadius checks the fixed-window processable range
func TestSkipRadius(t *testing.T) {
	opts := Options{Policy: FixedWindow, Window: 20}

	if !opts.SkipRadius(10, 30) {
		t.Errorf("Expected radius 10 skipped with window 20")
	}
	if !opts.SkipRadius(20, 30) {
		t.Errorf("Expected radius 20 skipped with window 20 and max 30")
	}
	if opts.SkipRadius(15, 30) {
		t.Errorf("Expected radius 15 processable with window 20 and max 30")
	}

	if (Options{}).SkipRadius(1, 30) {
		t.Errorf("Expected no skips under the standard policy")
	}
}

// TestAssembleCoreMask verifies that samples at least as bright as the
// center pixel are excluded, and nothing else changes
func TestAssembleCoreMask(t *testing.T) {
	img := diskImage(61, 30, 1.0)
	// Bright core block around the center.
	cx, cy := img.CenterX(), img.CenterY()
	for y := cy - 2; y <= cy+2; y++ {
		for x := cx - 2; x <= cx+2; x++ {
			img.Set(x, y, 10.0)
		}
	}
	grid := polar.NewGrid()

	unmasked := Assemble(grid, img, 1, 30, Options{})
	masked := Assemble(grid, img, 1, 30, Options{MaskCore: true})

	if masked >= unmasked {
		t.Fatalf("Expected core mask to reduce norma, got %f >= %f", masked, unmasked)
	}
	// Every excluded sample has value 10, so the difference must be a
	// multiple of it.
	diff := unmasked - masked
	if rem := math.Mod(diff, 10.0); math.Abs(rem) > 1e-6 && math.Abs(rem-10.0) > 1e-6 {
		t.Errorf("Expected mask to remove only core-bright samples, difference %f", diff)
	}
}

// TestAssembleZeroPad verifies the wrap rows are blanked
func TestAssembleZeroPad(t *testing.T) {
	img := diskImage(61, 30, 1.0)
	grid := polar.NewGrid()

	Assemble(grid, img, 1, 30, Options{ZeroPad: true})

	for _, row := range []int{0, 1, polar.DimTheta - 4, polar.DimTheta - 1} {
		for j := 0; j < polar.DimRad; j++ {
			if grid.At(row, j) != 0 {
				t.Fatalf("Expected padded row %d to be zero, found %v at column %d", row, grid.At(row, j), j)
			}
		}
	}
}

// TestAssembleEmptyImage verifies that an all-zero image yields zero norma
func TestAssembleEmptyImage(t *testing.T) {
	img := models.NewPixelGrid(61, 61)
	grid := polar.NewGrid()

	if norma := Assemble(grid, img, 5, 30, Options{}); norma != 0 {
		t.Errorf("Expected zero norma for an empty image, got %f", norma)
	}
}

// TestFindBar checks the bar radius estimate on a bright central block
func TestFindBar(t *testing.T) {
	img := diskImage(61, 30, 1.0)
	cx, cy := img.CenterX(), img.CenterY()
	for y := cy - 4; y <= cy+4; y++ {
		for x := cx - 4; x <= cx+4; x++ {
			img.Set(x, y, 5.0)
		}
	}

	// Along the diagonals the truncating pixel map stays inside the
	// block out to just past r = 4*sqrt(2).
	bar := FindBar(img, 30, 5.0)
	if bar < math.Log(3.5) || bar > math.Log(7.2) {
		t.Errorf("Expected bar log-radius near ln(4..7), got %f (r=%f)", bar, math.Exp(bar))
	}
}
