//go:build tinygo && (rp2040 || rp2350)

package bus

import (
	"fmt"

	"machine"
)

// OpenMachine configures hardware I²C peripheral n (0 or 1) on the given pins
// and returns a transport on it. The peripheral stays configured on Close.
func OpenMachine(n int, sda, scl machine.Pin, hz uint32) (*I2C, error) {
	var hw *machine.I2C
	switch n {
	case 0:
		hw = machine.I2C0
	case 1:
		hw = machine.I2C1
	default:
		return nil, fmt.Errorf("bus: no I2C peripheral %d", n)
	}
	sda.Configure(machine.PinConfig{Mode: machine.PinI2C})
	scl.Configure(machine.PinConfig{Mode: machine.PinI2C})
	if err := hw.Configure(machine.I2CConfig{
		SCL:       scl,
		SDA:       sda,
		Frequency: hz,
	}); err != nil {
		return nil, fmt.Errorf("bus: failed to configure I2C%d: %w", n, err)
	}
	return New(hw), nil
}
