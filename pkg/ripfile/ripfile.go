// Package ripfile reads and writes the per-radius spectral record files
// (.rip) and their human-readable amplitude listings (.dat). A .rip file
// carries the half width of the source image, the annulus normalization
// factor, and the complex spectrum over the recorded frequency range so a
// later inverse run can rebuild the annulus without the original image.
package ripfile

import (
	"bufio"
	"fmt"
	"os"

	"galpitch/pkg/spectrum"
)

// NumRecords is the number of frequency bins stored in a record file.
const NumRecords = spectrum.RecHi - spectrum.RecLo + 1

// Record is the in-memory form of a .rip file.
type Record struct {
	HalfWidth int
	Norma     float64

	// Real and Imag hold NumRecords components in ascending frequency
	// order, index 0 at the lowest recorded frequency.
	Real []float64
	Imag []float64
}

// Name returns the record file name for a radius and mode, e.g.
// "outi25_m2.rip".
func Name(keyword string, radius, mode int) string {
	return fmt.Sprintf("%s%d_m%d.rip", keyword, radius, mode)
}

// DatName returns the amplitude listing name for a radius and mode.
func DatName(keyword string, radius, mode int) string {
	return fmt.Sprintf("%s%d_m%d.dat", keyword, radius, mode)
}

// WriteRIP stores one mode's spectrum to path. spec must span the full
// canonical buffer; only the recorded frequency window is written.
func WriteRIP(path string, halfWidth int, norma float64, spec []spectrum.Cell) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating record file: %w", err)
	}
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "%d\n", halfWidth)
	fmt.Fprintf(w, "%e\n", norma)
	for idx := spectrum.RecLo; idx <= spectrum.RecHi; idx++ {
		fmt.Fprintf(w, "%e\n", spec[idx].Real)
		fmt.Fprintf(w, "%e\n", spec[idx].Imag)
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing record file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing record file %s: %w", path, err)
	}
	return nil
}

// WriteDAT stores the frequency/amplitude listing for one mode's spectrum.
func WriteDAT(path string, spec []spectrum.Cell) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating listing file: %w", err)
	}
	w := bufio.NewWriter(f)

	for idx := spectrum.RecLo; idx <= spectrum.RecHi; idx++ {
		fmt.Fprintf(w, "%f %e\n", spec[idx].Freq, spec[idx].Abs)
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing listing file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing listing file %s: %w", path, err)
	}
	return nil
}

// ReadRIP loads a record file written by WriteRIP.
func ReadRIP(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening record file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	rec := &Record{
		Real: make([]float64, NumRecords),
		Imag: make([]float64, NumRecords),
	}
	if _, err := fmt.Fscan(r, &rec.HalfWidth); err != nil {
		return nil, fmt.Errorf("record file %s: bad half width: %w", path, err)
	}
	if _, err := fmt.Fscan(r, &rec.Norma); err != nil {
		return nil, fmt.Errorf("record file %s: bad normalization: %w", path, err)
	}
	for i := 0; i < NumRecords; i++ {
		if _, err := fmt.Fscan(r, &rec.Real[i], &rec.Imag[i]); err != nil {
			return nil, fmt.Errorf("record file %s: truncated at component %d: %w", path, i, err)
		}
	}
	return rec, nil
}
