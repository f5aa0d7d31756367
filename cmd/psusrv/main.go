package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/iontrap/hvpsu/analog"
	"github.com/iontrap/hvpsu/heinzinger"

	"github.com/go-chi/chi/middleware"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "psusrv.yml"
	k              = koanf.New(".")
)

func setupconfig() {
	k.Load(structs.Provider(Config{
		Addr:  ":8000",
		Nodes: []ObjSetup{}}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `psusrv communicates with analog-programmed high voltage supplies and
exposes an HTTP interface to them.  This enables a server-client
architecture, and the clients can leverage the excellent HTTP libraries
for any programming language.

Usage:
	psusrv <command>

Commands:
	run
	help
	mkconf
	conf
	check <file>
	version`
	fmt.Println(str)
}

func help() {
	str := `psusrv is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

Without a configuration, the server will start with no nodes and serve
only /endpoints.

No two nodes can have the same Endpoint.

Endpoints may look like any variation between "lab/psu" or "/lab/psu/",
the leading and trailing slashes are added by the server if missing.

Supply families and matching "Type" fields, case insensitive:
- Heinzinger:
	> PNC series "heinzinger", "pnc" (30kV / 2mA defaults)
- FUG:
	> HCP series "fug", "hcp" (50kV / 0.5mA defaults)

Set NoRelay: true on nodes whose relay line is not wired.

Set Mock: true to run without hardware; every board is replaced by an
in-memory loopback, which is useful for client bring-up.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{
		Addr: ":8000",
		Nodes: []ObjSetup{
			{
				Endpoint:    "heinzinger",
				Type:        "heinzinger",
				DeviceIndex: 0,
				NoRelay:     true,
				History:     &HistorySetup{PeriodS: 1, Capacity: 3600},
			},
			{
				Endpoint:    "fug",
				Type:        "fug",
				DeviceIndex: 1,
				Limits:      map[string]Minmax{"V": {Min: 0, Max: 20000}},
			},
		}}
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

// check validates a config file without touching hardware
func check(path string) {
	c, err := LoadYaml(path)
	if err != nil {
		log.Fatalf("%s does not parse: %v", path, err)
	}
	if stem := duplicateStem(c.Nodes); stem != "" {
		log.Fatalf("duplicate endpoint %s", stem)
	}
	for _, node := range c.Nodes {
		cfg := supplyConfig(node)
		if _, err := heinzinger.New(analog.NewMock(), cfg); err != nil {
			log.Fatalf("node %s: %v", node.Endpoint, err)
		}
	}
	fmt.Printf("%s ok, %d nodes\n", path, len(c.Nodes))
}

func pversion() {
	fmt.Printf("psusrv version %v\n", Version)
}

func run() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	mux := BuildMux(c)
	log.Println("now listening for requests at ", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, middleware.Logger(mux)))
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "check":
		if len(args) < 3 {
			log.Fatal("check requires a config file path")
		}
		check(args[2])
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
