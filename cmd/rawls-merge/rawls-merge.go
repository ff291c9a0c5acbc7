package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/abworrall/rawls-accum/pkg/accum"
)

var (
	fVerbosity int
	fConfig    string
	fFolder    string
	fOutput    string
	fBaseName  string
	fStep      int
	fPolicy    string
	fFormat    string
	fFlip      string
	fOperator  string
	fAnnotate  bool
	fCompress  bool
	fKeepGoing bool
	fWatch     bool
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fConfig, "config", "", "YAML config file; flags given on the command line override it")

	flag.StringVar(&fFolder, "folder", "", "folder of .rawls buffers to fuse (or pass files and dirs as args)")
	flag.StringVar(&fOutput, "output", "", "folder the snapshots are written into")
	flag.StringVar(&fBaseName, "basename", "", "snapshots are named <basename>_<samples>.<ext>; defaults to the output folder's name")
	flag.IntVar(&fStep, "step", 0, "write a snapshot every this many accumulated samples")
	flag.StringVar(&fPolicy, "policy", "multiple", "when a snapshot is due: multiple (count lands on a multiple of step), crossing")
	flag.StringVar(&fFormat, "ext", "png", "snapshot format: rawls, png, tiff, bmp, hdr, exr")
	flag.StringVar(&fFlip, "flip", "none", "flip every input as it's loaded: none, h, v")
	flag.StringVar(&fOperator, "operator", "srgb", "how to tonemap display snapshots: srgb, linear, reinhard05, drago03")
	flag.BoolVar(&fAnnotate, "annotate", false, "stamp the sample count onto display snapshots")
	flag.BoolVar(&fCompress, "compress", false, "zstd-compress rawls snapshots")
	flag.BoolVar(&fKeepGoing, "keepgoing", false, "log failed snapshot writes and carry on")
	flag.BoolVar(&fWatch, "watch", false, "after the existing buffers, keep fusing new ones as they arrive in -folder")
	flag.Parse()

	log.Printf("rawls-merge starting\n")
}

func main() {
	cfg := accum.NewConfig()
	if fConfig != "" {
		var err error
		if cfg, err = accum.LoadConfig(fConfig); err != nil {
			log.Fatal(err)
		}
	}

	// Only flags actually given override the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			cfg.Verbosity = fVerbosity
		case "output":
			cfg.Output = fOutput
		case "basename":
			cfg.BaseName = fBaseName
		case "step":
			cfg.Step = fStep
		case "policy":
			cfg.Policy = fPolicy
		case "ext":
			cfg.Format = fFormat
		case "flip":
			cfg.Flip = fFlip
		case "operator":
			cfg.Operator = fOperator
		case "annotate":
			cfg.Annotate = fAnnotate
		case "compress":
			cfg.Compress = fCompress
		case "keepgoing":
			cfg.KeepGoing = fKeepGoing
		}
	})

	if cfg.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	a, err := accum.NewAccumulator(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Output != "" {
		if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
			log.Fatal(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if fWatch {
		if fFolder == "" {
			log.Fatal("-watch needs a -folder")
		}
		merged, err := a.Watch(ctx, fFolder)
		if err != nil {
			log.Fatal(err)
		}
		if merged != nil {
			log.Printf("Stopped watching, fused %d samples\n", merged.Samples)
		}
		return
	}

	args := flag.Args()
	if fFolder != "" {
		args = append([]string{fFolder}, args...)
	}
	if len(args) == 0 {
		log.Fatal("no inputs; use -folder, or pass files and dirs as args")
	}

	files, err := accum.ListInputs(args...)
	if err != nil {
		log.Fatal(err)
	}

	merged, err := a.Run(ctx, files)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Fused %d buffers, %d samples, wrote %d snapshots\n", len(files), merged.Samples, len(a.Checkpoints))
	if a.FailedExports > 0 {
		log.Printf("%d snapshot writes failed\n", a.FailedExports)
	}
}
