// Package inverse rebuilds a galaxy image from the per-radius record files
// a measurement run left behind. Selected modes and a radius range are
// summed in the Mode-Frequency plane, transformed back, and resampled from
// the logarithmic-polar grid onto Cartesian pixels.
package inverse

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"galpitch/internal/models"
	"galpitch/pkg/logging"
	"galpitch/pkg/polar"
	"galpitch/pkg/ripfile"
	"galpitch/pkg/spectrum"
)

// DefaultRange returns the radius range rebuilt when the caller gives none:
// everything from 1 out to 90% of the measured outer radius. The outermost
// annuli carry mostly background and are left off.
func DefaultRange(maxRadius int) (start, end int) {
	return 1, maxRadius * 9 / 10
}

// ReadMaxRadius recovers the outer analysis radius from a mode-1 summary
// file: the record name in the last row ends with the largest radius.
func ReadMaxRadius(summaryPath string) (int, error) {
	f, err := os.Open(summaryPath)
	if err != nil {
		return 0, fmt.Errorf("opening summary %s: %w", summaryPath, err)
	}
	defer f.Close()

	var last string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			last = sc.Text()
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("reading summary %s: %w", summaryPath, err)
	}
	fields := strings.Fields(last)
	if len(fields) < 2 {
		return 0, fmt.Errorf("summary %s: no record rows", summaryPath)
	}
	rad, err := radiusFromRecordName(fields[1])
	if err != nil {
		return 0, fmt.Errorf("summary %s: %w", summaryPath, err)
	}
	return rad, nil
}

// radiusFromRecordName extracts the radius from a record name of the form
// <keyword><radius>_m<mode>.
func radiusFromRecordName(name string) (int, error) {
	cut := strings.LastIndex(name, "_m")
	if cut < 1 {
		return 0, fmt.Errorf("malformed record name %q", name)
	}
	head := name[:cut]
	i := len(head)
	for i > 0 && head[i-1] >= '0' && head[i-1] <= '9' {
		i--
	}
	if i == len(head) {
		return 0, fmt.Errorf("no radius in record name %q", name)
	}
	rad, err := strconv.Atoi(head[i:])
	if err != nil || rad < 1 {
		return 0, fmt.Errorf("bad radius in record name %q", name)
	}
	return rad, nil
}

// Reconstructor rebuilds images from record files.
type Reconstructor struct {
	engine *spectrum.Engine
	log    logging.Logger
}

// New creates a reconstructor.
func New() *Reconstructor {
	return &Reconstructor{
		engine: spectrum.NewEngine(),
		log:    logging.GetGlobalLogger(),
	}
}

// Reconstruct sums the record files for the given modes over radii
// [start, end], runs the backward transform, and resamples the result onto
// a square image of side 2*maxRadius+1 centered on the galaxy center.
// Missing or unreadable record files skip their radius for that mode; a
// rebuild with no readable records at all is an error.
func (rc *Reconstructor) Reconstruct(dir, keyword string, maxRadius int, modes []int, start, end int) (*models.PixelGrid, error) {
	start, end = rc.clampRange(start, end, maxRadius)
	if end < start {
		return nil, fmt.Errorf("empty radius range [%d, %d]", start, end)
	}

	grid := polar.NewGrid()
	grid.Zero()

	loaded := 0
	for _, mode := range modes {
		if mode < spectrum.ModeMin || mode > spectrum.ModeMax {
			return nil, fmt.Errorf("mode %d out of range", mode)
		}
		for r := start; r <= end; r++ {
			path := filepath.Join(dir, ripfile.Name(keyword, r, mode))
			rec, err := ripfile.ReadRIP(path)
			if err != nil {
				rc.log.Warn("record file skipped", logging.Fields{
					"path": path, "err": err.Error(),
				})
				continue
			}
			addRecord(grid, mode, rec)
			loaded++
		}
	}
	if loaded == 0 {
		return nil, fmt.Errorf("no readable record files under %s for modes %v", dir, modes)
	}

	out := rc.engine.Inverse(grid)
	return resample(out, maxRadius, end), nil
}

// clampRange resolves the rebuilt radius range. Unset bounds take the
// defaults; an end beyond 90% of the measured radius is trimmed back with a
// warning, since the outermost annuli carry degenerate samples.
func (rc *Reconstructor) clampRange(start, end, maxRadius int) (int, int) {
	defStart, defEnd := DefaultRange(maxRadius)
	if start < 1 {
		start = defStart
	}
	if end < 1 {
		end = defEnd
	} else if end > defEnd {
		rc.log.Warn("end radius trimmed to 90% of the measured radius", logging.Fields{
			"requested": end, "end": defEnd,
		})
		end = defEnd
	}
	return start, end
}

// addRecord accumulates one record file into the transform grid. Components
// are placed back at the raw bins they came from, with the imaginary sign
// convention undone. Non-finite components are dropped individually so one
// saturated bin cannot poison the whole rebuild.
func addRecord(grid *polar.Grid, mode int, rec *ripfile.Record) {
	for i := 0; i < ripfile.NumRecords; i++ {
		bin := spectrum.RawBin(spectrum.RecLo + i)
		re, im := rec.Real[i], -rec.Imag[i]
		if math.IsNaN(re) || math.IsInf(re, 0) {
			re = 0
		}
		if math.IsNaN(im) || math.IsInf(im, 0) {
			im = 0
		}
		grid.Add(mode, bin, complex(re, im))
	}
}

// resample maps the polar-grid rebuild onto Cartesian pixels. Every polar
// cell inside the rebuilt radius votes its value into the pixel it lands
// on; each pixel averages its votes. The accumulation runs in (y, x) order
// and the final image is transposed out of it.
func resample(out [][]complex128, maxRadius, finish int) *models.PixelGrid {
	dim := 2*maxRadius + 1
	mat := make([][]float64, dim)
	vals := make([][]float64, dim)
	for i := range mat {
		mat[i] = make([]float64, dim)
		vals[i] = make([]float64, dim)
	}

	logFinish := math.Log(float64(finish))
	for t := 0; t < polar.DimTheta; t++ {
		theta := polar.ThetaRad(t)
		for j := 0; j < polar.DimRad; j++ {
			lnr := polar.LnR(j)
			if lnr > logFinish {
				break
			}
			v := real(out[t][j])
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			dx, dy := polar.PixelOffset(lnr, theta)
			x, y := dx+maxRadius, dy+maxRadius
			if x < 0 || x >= dim || y < 0 || y >= dim {
				continue
			}
			mat[x][y] += v
			vals[x][y]++
		}
	}

	img := models.NewPixelGrid(dim, dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			if vals[i][j] > 0 {
				img.Set(j, i, mat[i][j]/vals[i][j])
			}
		}
	}
	return img
}
