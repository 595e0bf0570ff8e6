//go:build !tinygo

package bus

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

// Open initializes the host drivers and opens the named I²C bus. An empty
// name opens the first bus available; "1" opens /dev/i2c-1 on a Raspberry Pi.
// The returned transport owns the bus and releases it on Close.
func Open(name string) (*I2C, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("bus: failed to initialize host: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("bus: failed to open %q: %w", name, err)
	}
	return &I2C{bus: b, closer: b}, nil
}

var _ drivers.I2C = i2c.Bus(nil)
