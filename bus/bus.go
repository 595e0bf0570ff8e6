// Package bus issues register writes and reads against devices on a two-wire
// (I²C) bus.
//
// Transactions are not retried here. A failed transaction surfaces as an
// *Error classified as a NACK, a timeout or a lower level I/O fault, and the
// caller decides what to do about it.
package bus

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Transport is the bus contract consumed by sensor drivers.
type Transport interface {
	// Write sends reg followed by data to the device at addr.
	Write(addr uint16, reg byte, data []byte) error
	// Read selects reg on the device at addr and reads exactly n bytes.
	Read(addr uint16, reg byte, n int) ([]byte, error)
}

// Kind classifies a failed bus transaction.
type Kind int

const (
	// Io is any lower level fault that is neither a NACK nor a timeout.
	Io Kind = iota
	// Nack means the device did not acknowledge its address or data.
	Nack
	// Timeout means the transaction did not complete in time.
	Timeout
)

func (k Kind) String() string {
	switch k {
	case Nack:
		return "nack"
	case Timeout:
		return "timeout"
	default:
		return "io"
	}
}

// Error is returned by Transport implementations in this package.
type Error struct {
	Op   string
	Addr uint16
	Reg  byte
	Kind Kind
	Err  error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrNack    = &Error{Kind: Nack}
	ErrTimeout = &Error{Kind: Timeout}
	ErrIo      = &Error{Kind: Io}
)

func (e *Error) Error() string {
	if e.Op == "" {
		return "bus: " + e.Kind.String()
	}
	if e.Err == nil {
		return fmt.Sprintf("bus: %s 0x%02x reg 0x%02x: %s", e.Op, e.Addr, e.Reg, e.Kind)
	}
	return fmt.Sprintf("bus: %s 0x%02x reg 0x%02x: %s: %v", e.Op, e.Addr, e.Reg, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is one of the Kind sentinels matching e.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

func wrap(op string, addr uint16, reg byte, err error) error {
	return &Error{Op: op, Addr: addr, Reg: reg, Kind: classify(err), Err: err}
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return Timeout
	}
	return classifyErrno(err)
}
