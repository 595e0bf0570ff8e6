// Command sht30 takes one measurement from an SHT3x sensor and prints it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"

	"sht30logger/bus"
	"sht30logger/sht3x"
)

func main() {
	busName := flag.String("bus", "1", "I²C bus name or number")
	addr := flag.String("address", "0x44", "sensor address (0x44 or 0x45)")
	flag.Parse()

	a, err := strconv.ParseUint(*addr, 0, 7)
	if err != nil {
		log.Fatalf("invalid address %q: %v", *addr, err)
	}

	t, err := bus.Open(*busName)
	if err != nil {
		log.Fatal(err)
	}
	dev, err := sht3x.New(t, uint16(a), nil)
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Close()
	if err := dev.Reset(); err != nil {
		log.Fatal(err)
	}

	r, err := dev.ReadRaw(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Temperature: %.2f °C\n", r.Temperature)
	fmt.Printf("Temperature: %.2f °F\n", r.Fahrenheit())
	fmt.Printf("Humidity: %.2f %%RH\n", r.Humidity)
}
