// Command scopesrv exposes a Rigol DS1000Z series oscilloscope over an
// HTTP interface.  This enables a server-client architecture, and the
// clients can leverage the excellent HTTP libraries for any programming
// language.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	"github.com/x-vmaier/rigol1000z/ds1000z"
	"github.com/x-vmaier/rigol1000z/server"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "scopesrv.yml"
	k              = koanf.New(".")
)

// Config holds the initialization parameters for the server.
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Scope is the network address of the instrument, e.g.
	// 192.168.1.100:5555
	Scope string `yaml:"Scope" koanf:"Scope"`

	// USB connects over USBTMC instead of the network when true; Scope
	// is ignored
	USB bool `yaml:"USB" koanf:"USB"`

	// Stem is the URL prefix the scope routes are served under
	Stem string `yaml:"Stem" koanf:"Stem"`
}

func setupconfig() {
	k.Load(structs.Provider(Config{
		Addr:  ":8000",
		Scope: "192.168.1.100:5555",
		Stem:  "/scope"}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `scopesrv communicates with a Rigol DS1000Z series oscilloscope and exposes
an HTTP interface to it.  This enables a server-client architecture, and the
clients can leverage the excellent HTTP libraries for any programming language.

Usage:
	scopesrv <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `scopesrv is amenable to configuration via its .yaml file.  For a primer on
YAML, see https://yaml.org/start.html

Scope is the TCP address of the instrument, port 5555 on the stock firmware.
Set USB to true to talk over USBTMC instead; the first DS1000Z found on the
bus is used.

Routes are served under Stem, e.g. Stem=/scope produces /scope/run,
/scope/waveform, /scope/screenshot and so on.  GET /scope/endpoints lists
every route.

The waveform route streams two-column text (time, volts) and accepts source,
mode, and baseline query parameters.`
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
	fmt.Printf("scopesrv version %v\n", Version)
}

func run() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	var scope *ds1000z.Scope
	if c.USB {
		scope = ds1000z.NewScopeUSB()
	} else {
		scope = ds1000z.NewScope(c.Scope)
	}
	wrapper := ds1000z.NewHTTPWrapper(scope)
	lock := server.NewLocker()
	server.Inject(wrapper, lock)
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	stem := c.Stem
	if !strings.HasPrefix(stem, "/") {
		stem = "/" + stem
	}
	root.Route(stem, func(r chi.Router) {
		r.Use(lock.Check)
		wrapper.Bind(r)
	})
	log.Println("now listening for requests at", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, root))
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
	case "run":
		run()
	case "version":
		pversion()
	default:
		log.Fatal("unknown command")
	}
}
