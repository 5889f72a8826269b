// Package pipeline drives the full measurement for a batch of galaxy
// images: annulus assembly, forward transform, per-mode analysis, and the
// result files. Radii within an image are processed concurrently; each
// worker owns its own polar grid and spectrum buffer so no scratch state is
// shared.
package pipeline

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"galpitch/internal/models"
	"galpitch/pkg/annulus"
	"galpitch/pkg/fits"
	"galpitch/pkg/logging"
	"galpitch/pkg/pitch"
	"galpitch/pkg/polar"
	"galpitch/pkg/ripfile"
	"galpitch/pkg/spectrum"
)

// Version is recorded in the headers of images the suite writes.
const Version = "1.0"

// Params configures a processing run.
type Params struct {
	// Workers is the number of concurrent radius workers. Zero or
	// negative means one per CPU.
	Workers int

	// Annulus selects the assembly policy and masks. BarLogRadius is
	// overwritten per image when MaskBar is set.
	Annulus annulus.Options

	// HighPass suppresses frequencies below each mode's own number in
	// the record files and the analysis, keeping the summed spectra
	// intact.
	HighPass bool

	// PolarImage saves the innermost annulus grid as an image alongside
	// the results.
	PolarImage bool

	// Warn logs every skipped radius instead of counting silently.
	Warn bool
}

// Report summarizes a batch run. A failed image is one that could not be
// read or whose result files could not be created; analysis failures within
// an image produce NaN records, not failures.
type Report struct {
	Processed    int
	Failed       int
	SkippedRadii int
}

// Processor runs the measurement over file records.
type Processor struct {
	params Params
	engine *spectrum.Engine
	log    logging.Logger
}

// New creates a processor. Workers defaults to the CPU count.
func New(params Params) *Processor {
	if params.Workers < 1 {
		params.Workers = runtime.NumCPU()
	}
	return &Processor{
		params: params,
		engine: spectrum.NewEngine(),
		log:    logging.GetGlobalLogger(),
	}
}

// ProcessAll runs every record in sequence. Image-level failures are
// logged, counted, and skipped; the batch always runs to completion.
func (p *Processor) ProcessAll(items []models.FileRecord) Report {
	var rep Report
	for _, rec := range items {
		skipped, err := p.processImage(rec)
		rep.SkippedRadii += skipped
		if err != nil {
			p.log.Error(err, "skipping image", logging.Fields{"image": rec.Name})
			rep.Failed++
			continue
		}
		rep.Processed++
	}
	return rep
}

// processImage measures one image across all radii and modes and writes its
// result files. The returned count is the number of radii skipped by the
// fixed-window policy.
func (p *Processor) processImage(rec models.FileRecord) (int, error) {
	img, err := fits.Read(rec.Name)
	if err != nil {
		return 0, err
	}

	maxRadius := rec.Radius
	if !rec.Valid || maxRadius < 1 {
		maxRadius = img.MaxRadius()
	}
	if maxRadius < 2 {
		return 0, fmt.Errorf("image %s: outer radius %d too small", rec.Name, maxRadius)
	}

	keyword := rec.Keyword
	if keyword == "" {
		keyword = models.DefaultKeyword
	}

	opts := p.params.Annulus
	if opts.MaskBar {
		ctrVal := img.At(img.CenterX(), img.CenterY())
		opts.BarLogRadius = annulus.FindBar(img, maxRadius, ctrVal)
		p.log.Info("bar mask radius", logging.Fields{
			"image": rec.Name, "lnr": opts.BarLogRadius,
		})
	}

	ripDir := filepath.Base(rec.Result)
	if err := os.MkdirAll(ripDir, 0755); err != nil {
		return 0, fmt.Errorf("creating result directory %s: %w", ripDir, err)
	}

	// Dense result storage: one record per mode and radius, NaN until a
	// worker fills it. Radius 0 is unused; the outermost radius is never
	// measured and stays NaN by construction.
	results := make([][]pitch.Result, spectrum.ModeMax+1)
	for m := range results {
		results[m] = make([]pitch.Result, maxRadius+1)
		for r := range results[m] {
			results[m][r] = pitch.NaNResult()
		}
	}
	acc := spectrum.NewAccumulator()

	jobs := make(chan int)
	var skipped int
	var skipMu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < p.params.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			grid := polar.NewGrid()
			buf := make([]spectrum.Cell, spectrum.CanonLen)
			analyzer := pitch.NewAnalyzer()
			for r := range jobs {
				if opts.SkipRadius(r, maxRadius) {
					if p.params.Warn {
						p.log.Warn("radius outside fixed window", logging.Fields{
							"image": rec.Name, "radius": r,
						})
					}
					skipMu.Lock()
					skipped++
					skipMu.Unlock()
					continue
				}
				p.processRadius(rec, img, grid, buf, analyzer, acc, results, opts, keyword, ripDir, r, maxRadius)
			}
		}()
	}
	for r := 1; r < maxRadius; r++ {
		jobs <- r
	}
	close(jobs)
	wg.Wait()

	if err := p.writeSummaries(rec, keyword, maxRadius, results, acc); err != nil {
		return skipped, err
	}
	return skipped, nil
}

// processRadius assembles one annulus, transforms it, and records every
// mode. File write failures are warnings: the in-memory results still feed
// the summaries.
func (p *Processor) processRadius(rec models.FileRecord, img *models.PixelGrid,
	grid *polar.Grid, buf []spectrum.Cell, analyzer *pitch.Analyzer,
	acc *spectrum.Accumulator, results [][]pitch.Result,
	opts annulus.Options, keyword, ripDir string, radius, maxRadius int) {

	norma := annulus.Assemble(grid, img, radius, maxRadius, opts)

	if p.params.PolarImage && radius == 1 {
		if err := p.writePolarImage(rec, grid); err != nil {
			p.log.Warn("polar image not written", logging.Fields{
				"image": rec.Name, "err": err.Error(),
			})
		}
	}

	raw := p.engine.Forward(grid, norma)
	halfWidth := img.Width / 2

	for mode := spectrum.ModeMin; mode <= spectrum.ModeMax; mode++ {
		spectrum.ModeSpectrum(raw, mode, buf)

		for idx := spectrum.RecLo; idx <= spectrum.RecHi; idx++ {
			acc.Add(mode, idx-spectrum.RecLo, buf[idx].Abs)
		}

		if p.params.HighPass {
			cutoff := float64(mode) * polar.FreqStep
			for idx := spectrum.RecLo; idx <= spectrum.RecHi; idx++ {
				if math.Abs(buf[idx].Freq) < cutoff {
					buf[idx].Real, buf[idx].Imag, buf[idx].Abs = 0, 0, 0
				}
			}
		}

		ripPath := filepath.Join(ripDir, ripfile.Name(keyword, radius, mode))
		if err := ripfile.WriteRIP(ripPath, halfWidth, norma, buf); err != nil {
			p.log.Warn("record file not written", logging.Fields{
				"image": rec.Name, "radius": radius, "mode": mode, "err": err.Error(),
			})
		}
		datPath := filepath.Join(ripDir, ripfile.DatName(keyword, radius, mode))
		if err := ripfile.WriteDAT(datPath, buf); err != nil {
			p.log.Warn("listing file not written", logging.Fields{
				"image": rec.Name, "radius": radius, "mode": mode, "err": err.Error(),
			})
		}

		results[mode][radius] = analyzer.Analyze(buf, mode)
	}
}

// writePolarImage saves the real channel of the annulus grid so the remap
// can be inspected visually.
func (p *Processor) writePolarImage(rec models.FileRecord, grid *polar.Grid) error {
	out := models.NewPixelGrid(polar.DimRad, polar.DimTheta)
	for t := 0; t < polar.DimTheta; t++ {
		for j := 0; j < polar.DimRad; j++ {
			out.Set(j, t, real(grid.At(t, j)))
		}
	}
	name := filepath.Join(filepath.Dir(rec.Result), "P_"+filepath.Base(rec.Result)+".fits")
	return fits.Write(name, out, false, "galpitch", Version)
}

// writeSummaries emits the per-mode summary and summed-spectrum files. The
// summary carries one fixed-width row per radius from 1 through the outer
// radius; unmeasured fields print as NaN.
func (p *Processor) writeSummaries(rec models.FileRecord, keyword string,
	maxRadius int, results [][]pitch.Result, acc *spectrum.Accumulator) error {

	for mode := spectrum.ModeMin; mode <= spectrum.ModeMax; mode++ {
		path := fmt.Sprintf("%s_m%d", rec.Result, mode)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating summary %s: %w", path, err)
		}
		for r := 1; r <= maxRadius; r++ {
			res := results[mode][r]
			name := fmt.Sprintf("%s%d_m%d", keyword, r, mode)
			fmt.Fprintf(f, "%6d%11s%8.2f%12.3f%9.2f%11.3f%11.3f%11.3f\n",
				mode, name, res.Freq, res.Amp, res.Pitch, res.Phase, res.SNR, res.FWHM)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("closing summary %s: %w", path, err)
		}

		sumPath := fmt.Sprintf("%s_sum_m%d", rec.Result, mode)
		sf, err := os.Create(sumPath)
		if err != nil {
			return fmt.Errorf("creating summed spectrum %s: %w", sumPath, err)
		}
		sum := acc.Sum(mode)
		for i, v := range sum {
			fmt.Fprintf(sf, "%6.2f     %f\n", spectrum.BinFreq(i), v)
		}
		if err := sf.Close(); err != nil {
			return fmt.Errorf("closing summed spectrum %s: %w", sumPath, err)
		}
	}
	return nil
}
