// Package fits reads and writes the pixel-grid image files consumed and
// produced by the pipeline. The on-disk format is the suite's text image
// format: whitespace-separated numbers, the first two being the width and
// height, followed by width*height brightness values in row order. Named
// header fields live in a sidecar .hdr file next to the image so the data
// stream stays a plain number sequence.
package fits

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"

	"galpitch/internal/models"
)

// MaxDim bounds the accepted image dimensions on both read and write.
const MaxDim = 8192

// Collaborator error taxonomy. Callers classify failures with errors.Is.
var (
	ErrOpen   = errors.New("fits: cannot open file")
	ErrSize   = errors.New("fits: dimensions out of bounds")
	ErrCreate = errors.New("fits: cannot create file")
	ErrWrite  = errors.New("fits: write failed")
	ErrClose  = errors.New("fits: close failed")
)

// Read loads a pixel grid from path. If the leading dimension pair is
// missing or implausible, the dimensions are inferred from the value count
// (square image fallback, as older files omitted the pair).
func Read(path string) (*models.PixelGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}
	defer f.Close()

	var values []float64
	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		var v float64
		if _, err := fmt.Sscanf(sc.Text(), "%g", &v); err != nil {
			return nil, fmt.Errorf("%w: %s: bad value %q", ErrOpen, path, sc.Text())
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: %s: empty image", ErrSize, path)
	}

	width, height, ok := headerDims(values[0], values[1])
	data := values
	if ok {
		data = values[2:]
	} else {
		// No size header; assume a square image.
		side := int(math.Sqrt(float64(len(values))))
		width, height = side, side
	}
	if width < 1 || height < 1 || width > MaxDim || height > MaxDim {
		return nil, fmt.Errorf("%w: %s: %dx%d", ErrSize, path, width, height)
	}
	if len(data) < width*height {
		return nil, fmt.Errorf("%w: %s: have %d values, want %d", ErrSize, path, len(data), width*height)
	}

	grid := models.NewPixelGrid(width, height)
	copy(grid.Data, data[:width*height])
	return grid, nil
}

// ReadDims returns an image's dimensions without loading its pixels.
func ReadDims(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}
	defer f.Close()

	var a, b float64
	if _, err := fmt.Fscan(f, &a, &b); err != nil {
		return 0, 0, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}
	w, h, ok := headerDims(a, b)
	if !ok || w > MaxDim || h > MaxDim {
		return 0, 0, fmt.Errorf("%w: %s", ErrSize, path)
	}
	return w, h, nil
}

// headerDims interprets the leading value pair as dimensions. Both must be
// positive integers for the pair to count as a size header.
func headerDims(a, b float64) (int, int, bool) {
	if a <= 0 || b <= 0 || a != math.Trunc(a) || b != math.Trunc(b) {
		return 0, 0, false
	}
	return int(a), int(b), true
}

// Write stores a pixel grid at path, one image row per line after the
// dimension pair. With createNew set an existing file is an ErrCreate
// failure; otherwise the file is overwritten. The program and version tags
// are recorded as header fields in the sidecar.
func Write(path string, grid *models.PixelGrid, createNew bool, programTag, versionTag string) error {
	if grid.Width < 1 || grid.Height < 1 || grid.Width > MaxDim || grid.Height > MaxDim {
		return fmt.Errorf("%w: %dx%d", ErrSize, grid.Width, grid.Height)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if createNew {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCreate, path, err)
	}

	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(w, "%d %d\n", grid.Width, grid.Height); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			sep := " "
			if x == grid.Width-1 {
				sep = "\n"
			}
			if _, err := fmt.Fprintf(w, "%g%s", grid.At(x, y), sep); err != nil {
				f.Close()
				return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrClose, path, err)
	}

	if programTag != "" || versionTag != "" {
		return WriteKeys(path, [][2]string{
			{"PROGRAM", programTag},
			{"VERSION", versionTag},
		})
	}
	return nil
}

// WriteKeys appends named header fields to an image's sidecar .hdr file.
func WriteKeys(path string, keys [][2]string) error {
	f, err := os.OpenFile(path+".hdr", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCreate, path, err)
	}
	for _, kv := range keys {
		if _, err := fmt.Fprintf(f, "%-8s= %s\n", kv[0], kv[1]); err != nil {
			f.Close()
			return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrClose, path, err)
	}
	return nil
}
