package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"galpitch/internal/models"
	"galpitch/pkg/annulus"
	"galpitch/pkg/config"
	"galpitch/pkg/logging"
	"galpitch/pkg/pipeline"
)

func main() {
	// Parse command line arguments
	inputFile := flag.String("input", "", "Manifest file listing images to process (image[,result[,radius]] per line)")
	configPath := flag.String("config", "", "YAML configuration file")
	workers := flag.Int("workers", runtime.NumCPU(), "Number of concurrent radius workers (default: all cores)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	warn := flag.Bool("warn", false, "Log every skipped radius")
	reverse := flag.Bool("reverse", false, "Grow annuli inward from the outer radius")
	fixed := flag.Int("fixed", 0, "Fixed annulus window width in pixels (0 disables)")
	mask := flag.Int("mask", -1, "Masking: 0 masks the bright core, 1 masks the central bar")
	zero := flag.Bool("zero", false, "Zero the angular wrap rows before transforming")
	highpass := flag.Bool("highpass", false, "Suppress frequencies below each mode's own number")
	polarImage := flag.Bool("polar", false, "Save the innermost annulus grid as an image")
	flag.Parse()

	// Validate inputs
	if *inputFile == "" && flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}
	if *fixed != 0 && *reverse {
		log.Fatalf("-fixed and -reverse cannot be combined")
	}
	if *fixed != 0 && (*fixed < annulus.MinWindow || *fixed > annulus.MaxWindow) {
		log.Fatalf("-fixed must be between %d and %d pixels", annulus.MinWindow, annulus.MaxWindow)
	}
	if *mask < -1 || *mask > 1 {
		log.Fatalf("-mask accepts only 0 (core) or 1 (bar)")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Explicit flags override the configuration file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Processing.Workers = *workers
		case "verbose":
			cfg.Output.Verbose = *verbose
		case "warn":
			cfg.Output.Warn = *warn
		case "reverse":
			cfg.Annulus.Reverse = *reverse
		case "fixed":
			cfg.Annulus.FixedWindow = *fixed
		case "mask":
			cfg.Annulus.MaskCore = *mask == 0
			cfg.Annulus.MaskBar = *mask == 1
		case "zero":
			cfg.Annulus.ZeroPad = *zero
		case "highpass":
			cfg.Annulus.HighPass = *highpass
		case "polar":
			cfg.Output.PolarImage = *polarImage
		}
	})
	if cfg.Annulus.FixedWindow != 0 && cfg.Annulus.Reverse {
		log.Fatalf("fixed window and reverse annuli cannot be combined")
	}

	if cfg.Output.Verbose {
		logging.SetLevel(logging.DebugLevel)
	}

	items, err := collectItems(*inputFile, flag.Args())
	if err != nil {
		log.Fatalf("Failed to read input list: %v", err)
	}
	if len(items) == 0 {
		log.Fatalf("No images to process")
	}

	opts := annulus.Options{
		MaskCore: cfg.Annulus.MaskCore,
		MaskBar:  cfg.Annulus.MaskBar,
		ZeroPad:  cfg.Annulus.ZeroPad,
	}
	switch {
	case cfg.Annulus.FixedWindow != 0:
		opts.Policy = annulus.FixedWindow
		opts.Window = cfg.Annulus.FixedWindow
	case cfg.Annulus.Reverse:
		opts.Policy = annulus.Reverse
	}

	proc := pipeline.New(pipeline.Params{
		Workers:    cfg.Processing.Workers,
		Annulus:    opts,
		HighPass:   cfg.Annulus.HighPass,
		PolarImage: cfg.Output.PolarImage,
		Warn:       cfg.Output.Warn,
	})

	fmt.Printf("Processing %d image(s) with %d worker(s)...\n", len(items), cfg.Processing.Workers)
	startTime := time.Now()
	rep := proc.ProcessAll(items)
	elapsed := time.Since(startTime)

	fmt.Printf("\nCompleted in %.2f seconds\n", elapsed.Seconds())
	fmt.Printf("Images processed: %d\n", rep.Processed)
	if rep.Failed > 0 {
		fmt.Printf("Images skipped:   %d\n", rep.Failed)
	}
	if rep.SkippedRadii > 0 {
		fmt.Printf("Radii skipped:    %d\n", rep.SkippedRadii)
	}
}

// collectItems builds the work list from the manifest file and any image
// paths given directly on the command line.
func collectItems(inputFile string, args []string) ([]models.FileRecord, error) {
	var items []models.FileRecord
	if inputFile != "" {
		f, err := os.Open(inputFile)
		if err != nil {
			return nil, fmt.Errorf("opening manifest %s: %w", inputFile, err)
		}
		items, err = models.ParseManifest(f)
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	for _, arg := range args {
		items = append(items, models.NewFileRecord(arg))
	}
	return items, nil
}
