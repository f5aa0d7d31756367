// usbinfo walks the USB bus and reports device identification, to help
// operators sort out which interface board is which.  It has no
// programmatic contract with the control service; output is for humans.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/iontrap/hvpsu/analog"

	"github.com/google/gousb"
	"github.com/theckman/yacspin"
)

func strOrNA(s string, err error) string {
	if err != nil {
		return "n/a"
	}
	return s
}

func main() {
	var onlyBoards bool
	flag.BoolVar(&onlyBoards, "boards", false, "only list PSU interface boards")
	flag.Parse()

	cfg := yacspin.Config{
		Frequency: 100 * time.Millisecond,
		CharSet:   yacspin.CharSets[59],
		Suffix:    " scanning USB bus",
	}
	spinner, err := yacspin.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx := gousb.NewContext()
	defer ctx.Close()

	spinner.Start()
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if onlyBoards {
			return desc.Vendor == analog.DefaultVendorID && desc.Product == analog.DefaultProductID
		}
		return true
	})
	spinner.Stop()
	// OpenDevices may return devices alongside an error when one of them
	// could not be opened; report what we can
	if err != nil {
		log.Println("some devices could not be opened:", err)
	}

	if len(devs) == 0 {
		fmt.Println("no devices found")
		return
	}

	for _, dev := range devs {
		desc := dev.Desc
		isBoard := desc.Vendor == analog.DefaultVendorID && desc.Product == analog.DefaultProductID
		tag := ""
		if isBoard {
			tag = "  <-- PSU interface board"
		}
		fmt.Printf("bus %03d addr %03d ID %s:%s%s\n", desc.Bus, desc.Address, desc.Vendor, desc.Product, tag)
		fmt.Printf("  Manufacturer:  %s\n", strOrNA(dev.Manufacturer()))
		fmt.Printf("  Product:       %s\n", strOrNA(dev.Product()))
		fmt.Printf("  Serial Number: %s\n", strOrNA(dev.SerialNumber()))
		dev.Close()
	}
}
