package bus

import (
	"errors"
	"fmt"
	"io"

	"tinygo.org/x/drivers"
)

const maxAddr = 0x7f

// I2C is a Transport over any bus exposing Tx. Both periph's i2c.Bus and
// TinyGo's drivers.I2C qualify.
type I2C struct {
	bus    drivers.I2C
	closer io.Closer
}

// New returns a Transport on b. Closing the transport does not close b.
func New(b drivers.I2C) *I2C {
	return &I2C{bus: b}
}

// Write implements Transport.
func (t *I2C) Write(addr uint16, reg byte, data []byte) error {
	if addr > maxAddr {
		return &Error{Op: "write", Addr: addr, Reg: reg, Kind: Io, Err: errors.New("address is not 7 bit")}
	}
	w := make([]byte, 0, len(data)+1)
	w = append(w, reg)
	w = append(w, data...)
	if err := t.bus.Tx(addr, w, nil); err != nil {
		return wrap("write", addr, reg, err)
	}
	return nil
}

// Read implements Transport.
func (t *I2C) Read(addr uint16, reg byte, n int) ([]byte, error) {
	if addr > maxAddr {
		return nil, &Error{Op: "read", Addr: addr, Reg: reg, Kind: Io, Err: errors.New("address is not 7 bit")}
	}
	if n <= 0 {
		return nil, &Error{Op: "read", Addr: addr, Reg: reg, Kind: Io, Err: fmt.Errorf("invalid read length %d", n)}
	}
	r := make([]byte, n)
	if err := t.bus.Tx(addr, []byte{reg}, r); err != nil {
		return nil, wrap("read", addr, reg, err)
	}
	return r, nil
}

// Close releases the bus if this transport opened it.
func (t *I2C) Close() error {
	if t.closer == nil {
		return nil
	}
	err := t.closer.Close()
	t.closer = nil
	return err
}

func (t *I2C) String() string {
	if s, ok := t.bus.(fmt.Stringer); ok {
		return s.String()
	}
	return "i2c"
}

var _ Transport = &I2C{}
