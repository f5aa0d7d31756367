// psucli is an interactive console for one supply: type a setpoint,
// watch the monitor outputs settle.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/iontrap/hvpsu/analog"
	"github.com/iontrap/hvpsu/heinzinger"

	"golang.org/x/time/rate"
)

func main() {
	var (
		device  int
		mock    bool
		verbose bool
		fug     bool
		samples int
	)
	flag.IntVar(&device, "device", 0, "index of the interface board on the bus")
	flag.BoolVar(&mock, "mock", false, "use an in-memory loopback instead of hardware")
	flag.BoolVar(&verbose, "verbose", false, "log each hardware transaction")
	flag.BoolVar(&fug, "fug", false, "use FUG HCP defaults instead of Heinzinger PNC")
	flag.IntVar(&samples, "samples", 20, "readback samples after each setpoint")
	flag.Parse()

	cfg := heinzinger.DefaultConfig()
	if fug {
		cfg = heinzinger.FUGConfig()
	}
	cfg.Verbose = verbose

	var ifc heinzinger.AnalogInterface
	if mock {
		ifc = analog.NewMock()
	} else {
		board, err := analog.Open(analog.DefaultVendorID, analog.DefaultProductID, device)
		if err != nil {
			log.Fatalf("opening interface board #%d: %v", device, err)
		}
		defer board.Close()
		board.Verbose = verbose
		ifc = analog.NewConn(board)
	}
	psu, err := heinzinger.New(ifc, cfg)
	if err != nil {
		log.Fatal(err)
	}

	// one reading per second; the monitor outputs settle slowly and
	// there is no point hammering the bus
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("Enter new set voltage: ")
		if !scanner.Scan() {
			return
		}
		v, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			fmt.Println("not a number:", scanner.Text())
			continue
		}
		if err := psu.SetVoltage(v); err != nil {
			fmt.Println("set voltage failed:", err)
			continue
		}
		for i := 0; i < samples; i++ {
			if err := limiter.Wait(ctx); err != nil {
				log.Fatal(err)
			}
			mv, err := psu.Voltage()
			if err != nil {
				fmt.Println("read voltage failed:", err)
				break
			}
			mc, err := psu.Current()
			if err != nil {
				fmt.Println("read current failed:", err)
				break
			}
			fmt.Printf("%.1f V, %.3f mA\n", mv, mc)
		}
	}
}
