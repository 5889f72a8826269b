package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"galpitch/internal/models"
	"galpitch/pkg/fits"
	"galpitch/pkg/inverse"
	"galpitch/pkg/logging"
	"galpitch/pkg/pipeline"
	"galpitch/pkg/spectrum"
)

func main() {
	// Parse command line arguments
	inputFile := flag.String("input", "", "File listing result prefixes to rebuild, one per line")
	modesArg := flag.String("mode", "", "Comma-separated modes to include (default: all)")
	start := flag.Int("start", 0, "Innermost radius to rebuild (default: 1)")
	end := flag.Int("end", 0, "Outermost radius to rebuild (default: 90% of the measured radius)")
	keyword := flag.String("keyword", models.DefaultKeyword, "Record file name prefix")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *inputFile == "" && flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}
	if *verbose {
		logging.SetLevel(logging.DebugLevel)
	}

	modes, err := parseModes(*modesArg)
	if err != nil {
		log.Fatalf("Invalid -mode value: %v", err)
	}

	bases, err := collectBases(*inputFile, flag.Args())
	if err != nil {
		log.Fatalf("Failed to read input list: %v", err)
	}
	if len(bases) == 0 {
		log.Fatalf("No results to rebuild")
	}

	rc := inverse.New()
	failed := 0
	for _, base := range bases {
		if err := rebuild(rc, base, *keyword, modes, *modesArg, *start, *end); err != nil {
			logging.Error(err, "rebuild failed", logging.Fields{"base": base})
			failed++
		}
	}

	fmt.Printf("Rebuilt %d of %d result set(s)\n", len(bases)-failed, len(bases))
}

// rebuild reads one result set's records and writes the rebuilt image.
func rebuild(rc *inverse.Reconstructor, base, keyword string, modes []int, modesArg string, start, end int) error {
	maxRad, err := inverse.ReadMaxRadius(fmt.Sprintf("%s_m1", base))
	if err != nil {
		return err
	}

	img, err := rc.Reconstruct(filepath.Base(base), keyword, maxRad, modes, start, end)
	if err != nil {
		return err
	}

	out := outputName(base, modesArg)
	if err := fits.Write(out, img, false, "igalpitch", pipeline.Version); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (radius %d)\n", out, maxRad)
	return nil
}

// outputName derives the rebuilt image name: I_<base>.fits, or
// I_<modes>_<base>.fits when a mode subset was requested.
func outputName(base, modesArg string) string {
	dir := filepath.Dir(base)
	name := filepath.Base(base)
	if modesArg != "" {
		tag := strings.ReplaceAll(modesArg, ",", "")
		return filepath.Join(dir, fmt.Sprintf("I_%s_%s.fits", tag, name))
	}
	return filepath.Join(dir, fmt.Sprintf("I_%s.fits", name))
}

// parseModes converts the -mode argument to a mode list. Empty selects
// every mode.
func parseModes(arg string) ([]int, error) {
	if arg == "" {
		modes := make([]int, 0, spectrum.ModeMax-spectrum.ModeMin+1)
		for m := spectrum.ModeMin; m <= spectrum.ModeMax; m++ {
			modes = append(modes, m)
		}
		return modes, nil
	}
	var modes []int
	for _, part := range strings.Split(arg, ",") {
		m, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%q is not a mode number", part)
		}
		if m < spectrum.ModeMin || m > spectrum.ModeMax {
			return nil, fmt.Errorf("mode %d out of range [%d, %d]", m, spectrum.ModeMin, spectrum.ModeMax)
		}
		modes = append(modes, m)
	}
	return modes, nil
}

// collectBases gathers result prefixes from the list file and the command
// line, stripping any image extension.
func collectBases(inputFile string, args []string) ([]string, error) {
	var bases []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || strings.HasPrefix(s, "#") {
			return
		}
		bases = append(bases, strings.TrimSuffix(s, ".fits"))
	}
	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, fmt.Errorf("opening list %s: %w", inputFile, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			add(line)
		}
	}
	for _, arg := range args {
		add(arg)
	}
	return bases, nil
}
