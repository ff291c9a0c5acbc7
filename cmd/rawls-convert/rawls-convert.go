package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/abworrall/rawls-accum/pkg/accum"
)

var (
	fVerbosity int
	fFolder    string
	fOutput    string
	fFormat    string
	fFlip      string
	fOperator  string
	fCompress  bool
	fKeepGoing bool
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fFolder, "folder", "", "folder of .rawls buffers to convert (or pass files and dirs as args)")
	flag.StringVar(&fOutput, "output", ".", "folder the converted files are written into")
	flag.StringVar(&fFormat, "ext", "png", "output format: rawls, png, tiff, bmp, hdr, exr")
	flag.StringVar(&fFlip, "flip", "none", "flip each buffer before writing: none, h, v")
	flag.StringVar(&fOperator, "operator", "srgb", "how to tonemap display outputs: srgb, linear, reinhard05, drago03")
	flag.BoolVar(&fCompress, "compress", false, "zstd-compress rawls outputs")
	flag.BoolVar(&fKeepGoing, "keepgoing", false, "log failed writes and carry on")
	flag.Parse()

	log.Printf("rawls-convert starting\n")
}

func main() {
	cfg := accum.NewConfig()
	cfg.Verbosity = fVerbosity
	cfg.Output = fOutput
	cfg.Format = fFormat
	cfg.Flip = fFlip
	cfg.Operator = fOperator
	cfg.Compress = fCompress
	cfg.KeepGoing = fKeepGoing

	if cfg.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	c, err := accum.NewConverter(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
		log.Fatal(err)
	}

	args := flag.Args()
	if fFolder != "" {
		args = append([]string{fFolder}, args...)
	}
	files, err := accum.ListInputs(args...)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	written, err := c.Convert(ctx, files)
	log.Printf("Converted %d of %d buffers\n", len(written), len(files))
	if err != nil {
		log.Fatal(err)
	}
}
