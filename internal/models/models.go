package models

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// PixelGrid is a 2D real-valued brightness grid stored row-major
// (y-major, x within a row), 0-indexed internally. The external file
// format is 1-indexed; the fits package handles that shift at the I/O
// boundary. The backing slice is contiguous so the grid can be handed
// wholesale to the file writer.
type PixelGrid struct {
	// Data holds Width*Height brightness values.
	Data []float64

	// Width and Height are the grid dimensions in pixels.
	Width  int
	Height int
}

// NewPixelGrid allocates a zeroed grid of the given dimensions.
func NewPixelGrid(width, height int) *PixelGrid {
	return &PixelGrid{
		Data:   make([]float64, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the brightness at pixel (x, y).
func (g *PixelGrid) At(x, y int) float64 {
	return g.Data[y*g.Width+x]
}

// Set stores a brightness value at pixel (x, y).
func (g *PixelGrid) Set(x, y int, v float64) {
	g.Data[y*g.Width+x] = v
}

// InBounds reports whether (x, y) lies inside the grid.
func (g *PixelGrid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// CenterX returns the x index of the image center pixel. The (dim-1)/2
// form works for both odd and even sized images.
func (g *PixelGrid) CenterX() int {
	return (g.Width - 1) / 2
}

// CenterY returns the y index of the image center pixel.
func (g *PixelGrid) CenterY() int {
	return (g.Height - 1) / 2
}

// MaxRadius returns the largest analysis radius the grid supports,
// based on its shortest dimension.
func (g *PixelGrid) MaxRadius() int {
	if g.Width < g.Height {
		return (g.Width - 1) / 2
	}
	return (g.Height - 1) / 2
}

// FileRecord describes one image to be processed: where to read it, the
// prefix for its result files, the keyword used in per-radius record file
// names, and the outer analysis radius. Radius and Valid may be left unset
// (Radius < 0, Valid false), in which case the pipeline derives the radius
// from the image dimensions.
type FileRecord struct {
	Name    string
	Result  string
	Keyword string
	Radius  int
	Valid   bool
}

// DefaultKeyword is the per-radius record file prefix used when none is
// given. Kept for compatibility with record files written by earlier
// versions of the suite.
const DefaultKeyword = "outi"

// NewFileRecord builds a record for a bare image path: the result prefix is
// the file name without its extension and the radius is left for the
// pipeline to derive.
func NewFileRecord(name string) FileRecord {
	return FileRecord{
		Name:    name,
		Result:  stripExtension(name),
		Keyword: DefaultKeyword,
		Radius:  -1,
		Valid:   false,
	}
}

// ParseManifest reads an input manifest: one record per line in the form
//
//	image_file[,result_prefix[,radius]]
//
// Blank lines and lines starting with '#' are ignored. Missing fields are
// derived later by the pipeline.
func ParseManifest(r io.Reader) ([]FileRecord, error) {
	var items []FileRecord
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == '\t' || r == ' '
		})
		if len(fields) == 0 {
			continue
		}
		rec := NewFileRecord(fields[0])
		if len(fields) > 1 && fields[1] != "" {
			rec.Result = fields[1]
		}
		if len(fields) > 2 && fields[2] != "" {
			rad, err := strconv.Atoi(fields[2])
			if err != nil || rad < 1 {
				return nil, fmt.Errorf("manifest line %d: invalid radius %q", line, fields[2])
			}
			rec.Radius = rad
			rec.Valid = true
		}
		items = append(items, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return items, nil
}

// stripExtension removes the final extension from a path, leaving any
// directory components and dots inside them intact.
func stripExtension(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}
