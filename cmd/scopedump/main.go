// Command scopedump pulls bulk waveform data or screenshots from a Rigol
// DS1000Z series oscilloscope and writes them to disk.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/theckman/yacspin"

	"github.com/x-vmaier/rigol1000z/ds1000z"
	"github.com/x-vmaier/rigol1000z/oscilloscope"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "scopedump.yml"
	k              = koanf.New(".")
)

// Config holds the initialization parameters for the dump tool.
type Config struct {
	// Scope is the network address of the instrument, e.g.
	// 192.168.1.100:5555
	Scope string `yaml:"Scope" koanf:"Scope"`

	// USB connects over USBTMC instead of the network when true; Scope
	// is ignored
	USB bool `yaml:"USB" koanf:"USB"`

	// Source is the waveform source to read, CHAN1 through CHAN4 or MATH
	Source string `yaml:"Source" koanf:"Source"`

	// Mode is NORM for the points on screen or RAW for the full capture
	// memory
	Mode string `yaml:"Mode" koanf:"Mode"`

	// Baseline is zero or device; device anchors the time column at the
	// instrument's reported trigger offset instead of zero
	Baseline string `yaml:"Baseline" koanf:"Baseline"`

	// Format is the screenshot image format, one of jpeg, png, bmp8,
	// bmp24, tiff
	Format string `yaml:"Format" koanf:"Format"`

	// Output is the file to write; existing files are replaced
	Output string `yaml:"Output" koanf:"Output"`
}

func setupconfig() {
	k.Load(structs.Provider(Config{
		Scope:    "192.168.1.100:5555",
		Source:   ds1000z.SourceChan1,
		Mode:     ds1000z.ModeRaw,
		Baseline: "zero",
		Format:   "png",
		Output:   "waveform.txt"}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `scopedump pulls bulk waveform data or screenshots from a Rigol DS1000Z
series oscilloscope and writes them to disk.

Usage:
	scopedump <command>

Commands:
	waveform
	screenshot
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `scopedump is amenable to configuration via its .yaml file.  For a primer
on YAML, see https://yaml.org/start.html

Scope is the TCP address of the instrument, port 5555 on the stock firmware.
Set USB to true to talk over USBTMC instead; the first DS1000Z found on the
bus is used.

waveform stops the scope, downloads Source in Mode, and writes two-column
text (time, volts) to Output.  RAW mode reads the full capture memory, up
to 24M points, in 250k point windows; a deep capture takes a little while.
The scope is left stopped.

screenshot writes the display image in Format to Output.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("scopedump version %v\n", Version)
}

func connect(c Config) *ds1000z.Scope {
	if c.USB {
		return ds1000z.NewScopeUSB()
	}
	return ds1000z.NewScope(c.Scope)
}

func waveform() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	opts := ds1000z.AcquireOptions{Source: c.Source, Mode: c.Mode}
	switch c.Baseline {
	case "", "zero":
	case "device":
		opts.Baseline = oscilloscope.BaselineDevice
	default:
		log.Fatalf("baseline %q not in {zero, device}", c.Baseline)
	}
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[59],
		Suffix:          " downloading",
		SuffixAutoColon: true,
		StopCharacter:   "done",
	})
	if err != nil {
		log.Fatal(err)
	}
	opts.Progress = func(done, total int) {
		spinner.Message(fmt.Sprintf("block %d of %d", done, total))
	}
	scope := connect(c)
	spinner.Start()
	series, err := scope.AcquireDataToFile(context.Background(), opts, c.Output)
	if err != nil {
		spinner.StopFail()
		log.Fatal(err)
	}
	spinner.Stop()
	fmt.Printf("wrote %d samples to %s\n", len(series.Volts), c.Output)
}

func screenshot() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	scope := connect(c)
	if err := scope.ScreenshotToFile(c.Format, c.Output); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s image to %s\n", c.Format, c.Output)
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd := strings.ToLower(args[1])
	switch cmd {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "waveform":
		waveform()
	case "screenshot":
		screenshot()
	case "version":
		pversion()
	default:
		log.Fatal("unknown command")
	}
}
