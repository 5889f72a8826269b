package fits

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"galpitch/internal/models"
)

// TestWriteReadRoundTrip verifies an image survives the text encoding
func TestWriteReadRoundTrip(t *testing.T) {
	img := models.NewPixelGrid(4, 3)
	for i := range img.Data {
		img.Data[i] = float64(i) * 0.5
	}

	path := filepath.Join(t.TempDir(), "galaxy.fits")
	if err := Write(path, img, false, "galpitch", "1.0"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Width != 4 || got.Height != 3 {
		t.Fatalf("Expected 4x3, got %dx%d", got.Width, got.Height)
	}
	for i := range img.Data {
		if got.Data[i] != img.Data[i] {
			t.Fatalf("Pixel %d: expected %f, got %f", i, img.Data[i], got.Data[i])
		}
	}
}

// TestReadDims verifies the dimension probe
func TestReadDims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dims.fits")
	img := models.NewPixelGrid(7, 5)
	if err := Write(path, img, false, "", ""); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	w, h, err := ReadDims(path)
	if err != nil {
		t.Fatalf("ReadDims failed: %v", err)
	}
	if w != 7 || h != 5 {
		t.Errorf("Expected 7x5, got %dx%d", w, h)
	}
}

// TestReadSquareFallback verifies headerless files are read as squares
func TestReadSquareFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.fits")
	body := "0.5 0.25 0.5\n1.5 2.5 3.5\n4.5 5.5 6.5\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Writing fixture failed: %v", err)
	}

	img, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if img.Width != 3 || img.Height != 3 {
		t.Errorf("Expected 3x3 fallback, got %dx%d", img.Width, img.Height)
	}
	if img.At(0, 0) != 0.5 || img.At(2, 2) != 6.5 {
		t.Errorf("Expected corner values 0.5 and 6.5, got %f and %f", img.At(0, 0), img.At(2, 2))
	}
}

// TestWriteCreateNew verifies create-only mode refuses to clobber
func TestWriteCreateNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.fits")
	img := models.NewPixelGrid(2, 2)
	if err := Write(path, img, true, "", ""); err != nil {
		t.Fatalf("First write failed: %v", err)
	}

	err := Write(path, img, true, "", "")
	if !errors.Is(err, ErrCreate) {
		t.Errorf("Expected ErrCreate on second create-only write, got %v", err)
	}
}

// TestReadMissing verifies the open error classification
func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.fits"))
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Expected ErrOpen, got %v", err)
	}
}

// TestReadTruncated verifies a value count short of the header is rejected
func TestReadTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.fits")
	if err := os.WriteFile(path, []byte("4 4\n1 2 3\n"), 0644); err != nil {
		t.Fatalf("Writing fixture failed: %v", err)
	}

	_, err := Read(path)
	if !errors.Is(err, ErrSize) {
		t.Errorf("Expected ErrSize, got %v", err)
	}
}

// TestWriteKeys verifies header fields land in the sidecar
func TestWriteKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagged.fits")
	img := models.NewPixelGrid(2, 2)
	if err := Write(path, img, false, "galpitch", "1.0"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path + ".hdr")
	if err != nil {
		t.Fatalf("Reading sidecar failed: %v", err)
	}
	if len(data) == 0 {
		t.Errorf("Expected sidecar header fields, got empty file")
	}
}
