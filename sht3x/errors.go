package sht3x

import "fmt"

// TransportError wraps a failed bus transaction. Unwrap it to a *bus.Error
// to tell a NACK from a timeout.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sht3x: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CRCError means a payload word did not match its CRC byte. The reading is
// discarded rather than returned with possibly corrupt values.
type CRCError struct {
	Field string
	Got   byte
	Want  byte
}

func (e *CRCError) Error() string {
	return fmt.Sprintf("sht3x: %s CRC mismatch: calculated %02x, received %02x", e.Field, e.Want, e.Got)
}

// PayloadError means the measurement payload had the wrong length.
type PayloadError struct {
	Length int
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("sht3x: expected %d byte payload, got %d", payloadLength, e.Length)
}
