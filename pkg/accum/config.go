package accum

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/rawls-accum/pkg/export"
	"github.com/abworrall/rawls-accum/pkg/radiance"
)

/* Example config file ...

verbosity: 1
output: out/living-room
basename: living-room
step: 100
policy: multiple
format: png
operator: srgb
annotate: true
flip: v
keepgoing: true

*/

type Config struct {
	Verbosity int

	Output   string // Directory the snapshots go into
	BaseName string // Snapshot files are <BaseName>_<samples>.<ext>; defaults to the last element of Output

	Step   int    // Checkpoint interval, in accumulated samples
	Policy string // "multiple" or "crossing", see Scheduler

	Format   string // Container of the snapshots: rawls, png, tiff, bmp, hdr, exr
	Operator string // Tonemapping for display formats
	Annotate bool
	Compress bool

	Flip string // Applied to every input as it is loaded: none, h, v

	KeepGoing bool // A failed snapshot write is logged, rather than stopping the run
}

func NewConfig() Config {
	return Config{
		Policy:   string(PolicyMultiple),
		Format:   "png",
		Operator: export.OperatorSRGB,
		Flip:     "none",
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	return c, err
}

// LoadConfig reads a YAML config file; fields it doesn't mention keep their defaults.
func LoadConfig(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read %s: %v", filename, err)
	}

	c, err := newConfigFromYaml(contents)
	if err != nil {
		return Config{}, fmt.Errorf("config parse %s: %v", filename, err)
	}
	return c, nil
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Printf("Can't marshal config yaml: %v\n", err)
		return ""
	}
	return string(b)
}

// DefaultBaseName names the snapshots when neither BaseName nor Output gives a name.
const DefaultBaseName = "accum"

func (c Config) GetBaseName() string {
	if c.BaseName != "" {
		return c.BaseName
	}
	switch base := filepath.Base(filepath.Clean(c.Output)); base {
	case ".", string(filepath.Separator):
		return DefaultBaseName
	default:
		return base
	}
}

// Validate checks everything an accumulation run needs, before any
// input is touched.
func (c Config) Validate() error {
	if _, err := NewScheduler(c.Step, Policy(c.Policy)); err != nil {
		return err
	}
	if _, _, err := c.exportSetup(); err != nil {
		return err
	}
	return nil
}

// validateOutput is Validate without the checkpoint settings, which a
// plain conversion doesn't use.
func (c Config) validateOutput() error {
	_, _, err := c.exportSetup()
	return err
}

// exportSetup turns the format settings into a kind, and a dispatcher that can write it.
func (c Config) exportSetup() (export.OutputKind, *export.Dispatcher, error) {
	kind, container, err := export.ParseFormat(c.Format)
	if err != nil {
		return 0, nil, err
	}
	if _, err := radiance.ParseFlip(c.Flip); err != nil {
		return 0, nil, err
	}

	opts := export.Options{
		Operator: c.Operator,
		Annotate: c.Annotate,
		Compress: c.Compress,
	}
	switch kind {
	case export.DisplayImage:
		opts.Raster = container
	case export.LinearHDR:
		opts.HDR = container
	}

	d, err := export.NewDispatcher(opts)
	if err != nil {
		return 0, nil, err
	}
	return kind, d, nil
}
