package pipeline

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"galpitch/internal/models"
	"galpitch/pkg/annulus"
	"galpitch/pkg/fits"
	"galpitch/pkg/spectrum"
)

// TestProcessAllMissingImage verifies an unreadable image is counted and
// skipped without aborting the batch
func TestProcessAllMissingImage(t *testing.T) {
	proc := New(Params{Workers: 1})
	rep := proc.ProcessAll([]models.FileRecord{
		models.NewFileRecord(filepath.Join(t.TempDir(), "missing.fits")),
	})
	if rep.Failed != 1 || rep.Processed != 0 {
		t.Errorf("Expected 1 failed, 0 processed, got %+v", rep)
	}
}

// TestProcessAllTinyImage verifies an image too small to hold an annulus is
// a per-image failure
func TestProcessAllTinyImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.fits")
	if err := fits.Write(path, models.NewPixelGrid(3, 3), false, "", ""); err != nil {
		t.Fatalf("Writing fixture failed: %v", err)
	}

	proc := New(Params{Workers: 1})
	rep := proc.ProcessAll([]models.FileRecord{models.NewFileRecord(path)})
	if rep.Failed != 1 {
		t.Errorf("Expected tiny image to fail, got %+v", rep)
	}
}

// chdir switches the working directory for the test and restores it on
// cleanup; stand-in for t.Chdir, which needs Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

// writeDisk writes a uniform disk image and returns its record.
func writeDisk(t *testing.T, name string, side int, v float64) models.FileRecord {
	t.Helper()
	img := models.NewPixelGrid(side, side)
	cx, cy := img.CenterX(), img.CenterY()
	limit := float64(img.MaxRadius())
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			dx, dy := float64(x-cx), float64(y-cy)
			if math.Sqrt(dx*dx+dy*dy) <= limit {
				img.Set(x, y, v)
			}
		}
	}
	if err := fits.Write(name, img, false, "galpitch", Version); err != nil {
		t.Fatalf("Writing image failed: %v", err)
	}
	return models.NewFileRecord(name)
}

// TestProcessImageOutputs runs the full measurement on a small disk and
// checks every result file the run must leave behind
func TestProcessImageOutputs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full pipeline in short mode")
	}
	chdir(t, t.TempDir())

	rec := writeDisk(t, "gal.fits", 21, 2.0)
	proc := New(Params{Workers: 2})
	rep := proc.ProcessAll([]models.FileRecord{rec})
	if rep.Failed != 0 || rep.Processed != 1 {
		t.Fatalf("Expected one processed image, got %+v", rep)
	}

	// Radius derives to 10; radii 1..9 are measured.
	for mode := spectrum.ModeMin; mode <= spectrum.ModeMax; mode++ {
		data, err := os.ReadFile(fmt.Sprintf("gal_m%d", mode))
		if err != nil {
			t.Fatalf("Summary for mode %d missing: %v", mode, err)
		}
		lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		if len(lines) != 10 {
			t.Fatalf("Expected 10 summary rows for mode %d, got %d", mode, len(lines))
		}
		// The outermost radius is never measured and records as NaN.
		if !strings.Contains(lines[9], "NaN") {
			t.Errorf("Expected NaN row at the outer radius, got %q", lines[9])
		}

		sum, err := os.ReadFile(fmt.Sprintf("gal_sum_m%d", mode))
		if err != nil {
			t.Fatalf("Summed spectrum for mode %d missing: %v", mode, err)
		}
		sumLines := strings.Split(strings.TrimRight(string(sum), "\n"), "\n")
		if len(sumLines) != spectrum.NumBins {
			t.Errorf("Expected %d summed bins, got %d", spectrum.NumBins, len(sumLines))
		}
	}

	// Record files land in a directory named after the result prefix.
	entries, err := os.ReadDir("gal")
	if err != nil {
		t.Fatalf("Record directory missing: %v", err)
	}
	rips := 0
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".rip") {
			rips++
		}
	}
	if want := 9 * (spectrum.ModeMax - spectrum.ModeMin + 1); rips != want {
		t.Errorf("Expected %d record files, got %d", want, rips)
	}
}

// TestProcessImageEmpty verifies an all-zero image produces NaN records,
// not a failure
func TestProcessImageEmpty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full pipeline in short mode")
	}
	chdir(t, t.TempDir())

	path := "empty.fits"
	if err := fits.Write(path, models.NewPixelGrid(21, 21), false, "", ""); err != nil {
		t.Fatalf("Writing image failed: %v", err)
	}

	proc := New(Params{Workers: 1})
	rep := proc.ProcessAll([]models.FileRecord{models.NewFileRecord(path)})
	if rep.Failed != 0 || rep.Processed != 1 {
		t.Fatalf("Expected empty image processed, got %+v", rep)
	}

	data, err := os.ReadFile("empty_m2")
	if err != nil {
		t.Fatalf("Summary missing: %v", err)
	}
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if !strings.Contains(line, "NaN") {
			t.Errorf("Expected NaN record for empty annulus, got %q", line)
		}
	}
}

// TestProcessImageFixedWindowSkips verifies the fixed-window policy skips
// radii that cannot hold a full window
func TestProcessImageFixedWindowSkips(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full pipeline in short mode")
	}
	chdir(t, t.TempDir())

	rec := writeDisk(t, "win.fits", 41, 1.0)
	proc := New(Params{
		Workers: 2,
		Annulus: annulus.Options{Policy: annulus.FixedWindow, Window: 10},
	})
	rep := proc.ProcessAll([]models.FileRecord{rec})
	if rep.Failed != 0 {
		t.Fatalf("Expected success, got %+v", rep)
	}
	// Radius derives to 20; with a width-10 window, radii 1..5 and 15..19
	// cannot hold it.
	if rep.SkippedRadii != 10 {
		t.Errorf("Expected 10 skipped radii, got %d", rep.SkippedRadii)
	}
}
