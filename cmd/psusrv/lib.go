package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/iontrap/hvpsu/analog"
	"github.com/iontrap/hvpsu/heinzinger"
	"github.com/iontrap/hvpsu/psumon"
	"github.com/iontrap/hvpsu/server/middleware/locker"
	"github.com/iontrap/hvpsu/util"

	"github.com/go-yaml/yaml"
	"goji.io"
	"goji.io/pat"
)

// Minmax holds a min and max value
type Minmax struct {
	Min float64 `yaml:"Min"`
	Max float64 `yaml:"Max"`
}

// HistorySetup configures the telemetry recorder for a node
type HistorySetup struct {
	// PeriodS is the sampling period in seconds
	PeriodS float64 `yaml:"PeriodS"`

	// Capacity is the number of samples retained
	Capacity int `yaml:"Capacity"`
}

// ObjSetup holds the args for one supply node.
// Zero fields inherit the defaults of the node's Type.
type ObjSetup struct {
	// Endpoint is the path the routes from this supply will be served on
	// ex. Endpoint="/lab/heinzinger" produces routes of /lab/heinzinger/voltage, etc.
	Endpoint string `yaml:"Endpoint"`

	// Type is the supply family, "heinzinger" or "fug"
	Type string `yaml:"Type"`

	// DeviceIndex selects among multiple interface boards on the bus
	DeviceIndex int `yaml:"DeviceIndex"`

	MaxVoltage     float64 `yaml:"MaxVoltage"`
	MaxCurrent     float64 `yaml:"MaxCurrent"`
	FullScaleInput float64 `yaml:"FullScaleInput"`
	BoardFullScale float64 `yaml:"BoardFullScale"`

	NoRelay           bool `yaml:"NoRelay"`
	NoVoltageReadback bool `yaml:"NoVoltageReadback"`
	NoCurrentReadback bool `yaml:"NoCurrentReadback"`
	Verbose           bool `yaml:"Verbose"`

	// Limits narrows the operational window below the hardware ceilings,
	// keyed "V" and "I"
	Limits map[string]Minmax `yaml:"Limits"`

	// History, if present, enables the telemetry recorder on /history
	History *HistorySetup `yaml:"History"`
}

// Config is a struct that holds the initialization parameters for the
// server and its supply nodes.  It is populated by a yaml unmarshal call.
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr"`

	// Mock swaps every board for an in-memory loopback
	Mock bool `yaml:"Mock"`

	// Nodes is the list of supplies to set up
	Nodes []ObjSetup `yaml:"Nodes"`
}

// LoadYaml converts a (path to a) yaml file into a Config struct
func LoadYaml(path string) (Config, error) {
	cfg := Config{}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	err = yaml.NewDecoder(f).Decode(&cfg)
	return cfg, err
}

// subMuxSanitize prepares an endpoint for submux mounting,
// "lab/psu" => "/lab/psu/"
func subMuxSanitize(stem string) string {
	if !strings.HasPrefix(stem, "/") {
		stem = "/" + stem
	}
	if !strings.HasSuffix(stem, "/") {
		stem = stem + "/"
	}
	return stem
}

// serialize is a middleware holding mu for the duration of each request.
// The supplies have no internal locking; this pins all access to one
// device behind one mutex, shared with its telemetry monitor.
func serialize(mu *sync.Mutex) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			defer mu.Unlock()
			next.ServeHTTP(w, r)
		})
	}
}

// duplicateStem returns the first endpoint claimed by two nodes after
// sanitization, or the empty string
func duplicateStem(nodes []ObjSetup) string {
	seen := map[string]bool{}
	for _, node := range nodes {
		stem := subMuxSanitize(node.Endpoint)
		if seen[stem] {
			return stem
		}
		seen[stem] = true
	}
	return ""
}

// supplyConfig translates one node's setup into a driver configuration
func supplyConfig(node ObjSetup) heinzinger.Config {
	var cfg heinzinger.Config
	switch strings.ToLower(node.Type) {
	case "heinzinger", "pnc":
		cfg = heinzinger.DefaultConfig()
	case "fug", "hcp":
		cfg = heinzinger.FUGConfig()
	default:
		log.Fatal("type ", node.Type, " not understood")
	}
	if node.MaxVoltage != 0 {
		cfg.MaxVoltage = node.MaxVoltage
	}
	if node.MaxCurrent != 0 {
		cfg.MaxCurrent = node.MaxCurrent
	}
	if node.FullScaleInput != 0 {
		cfg.FullScaleInput = node.FullScaleInput
	}
	if node.BoardFullScale != 0 {
		cfg.BoardFullScale = node.BoardFullScale
	}
	if mm, ok := node.Limits["V"]; ok {
		lim := util.Limiter{Min: mm.Min, Max: mm.Max, Present: true}
		cfg.MaxVoltage = lim.Clamp(cfg.MaxVoltage)
	}
	if mm, ok := node.Limits["I"]; ok {
		lim := util.Limiter{Min: mm.Min, Max: mm.Max, Present: true}
		cfg.MaxCurrent = lim.Clamp(cfg.MaxCurrent)
	}
	cfg.NoRelay = cfg.NoRelay || node.NoRelay
	cfg.NoVoltageReadback = cfg.NoVoltageReadback || node.NoVoltageReadback
	cfg.NoCurrentReadback = cfg.NoCurrentReadback || node.NoCurrentReadback
	cfg.Verbose = node.Verbose
	return cfg
}

// BuildMux constructs a goji mux with a submux per supply node.
// The mux serves a special route, /endpoints, which returns a map of
// node stems to their routes as JSON.
func BuildMux(c Config) *goji.Mux {
	root := goji.NewMux()
	supergraph := map[string][]string{}

	if stem := duplicateStem(c.Nodes); stem != "" {
		log.Fatalf("duplicate endpoint %s", stem)
	}

	for _, node := range c.Nodes {
		cfg := supplyConfig(node)

		var ifc heinzinger.AnalogInterface
		if c.Mock {
			ifc = analog.NewMock()
		} else {
			board, err := analog.Open(analog.DefaultVendorID, analog.DefaultProductID, node.DeviceIndex)
			if err != nil {
				log.Fatalf("opening interface board #%d: %v", node.DeviceIndex, err)
			}
			board.Verbose = node.Verbose
			ifc = analog.NewConn(board)
		}
		psu, err := heinzinger.New(ifc, cfg)
		if err != nil {
			log.Fatalf("configuring supply at %s: %v", node.Endpoint, err)
		}

		httper := heinzinger.NewHTTPWrapper(psu)
		mu := &sync.Mutex{}

		if node.History != nil {
			mon := psumon.New(psu, mu, util.SecsToDuration(node.History.PeriodS), node.History.Capacity)
			mon.Start()
			httper.RouteTable[pat.Get("/history")] = mon.HTTPYield
		}

		lock := locker.New()
		locker.Inject(httper, lock)

		stem := subMuxSanitize(node.Endpoint)
		supergraph[stem] = httper.RT().Endpoints()

		mux := goji.SubMux()
		mux.Use(serialize(mu))
		mux.Use(lock.Check)
		httper.RT().Bind(mux)
		root.Handle(pat.New(stem+"*"), mux)
	}

	root.HandleFunc(pat.Get("/endpoints"), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root
}
