package sht30logger

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"go.bug.st/serial"
)

// Frame layout: frameStart, payload length, CBOR payload, checksum. The
// checksum is the XOR of the payload bytes masked to 7 bits.
const (
	frameStart      byte = 0xa5
	maxFramePayload      = 0xff
)

var frameEncMode cbor.EncMode

func init() {
	var err error
	frameEncMode, err = cbor.EncOptions{
		Sort: cbor.SortCanonical,
		Time: cbor.TimeUnixMicro,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}
}

// SerialWriter mirrors records over a serial link, one CBOR frame each, for
// a downstream display or microcontroller.
type SerialWriter struct {
	port io.WriteCloser
}

// OpenSerial opens the named port at baud.
func OpenSerial(name string, baud int) (*SerialWriter, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return NewSerialWriter(port), nil
}

// NewSerialWriter writes frames to w and closes it on Close.
func NewSerialWriter(w io.WriteCloser) *SerialWriter {
	return &SerialWriter{port: w}
}

// WriteRecord implements Sink.
func (sw *SerialWriter) WriteRecord(r Record) error {
	payload, err := frameEncMode.Marshal(r)
	if err != nil {
		return fmt.Errorf("error encoding frame: %w", err)
	}
	frame, err := encodeFrame(payload)
	if err != nil {
		return err
	}
	if _, err := sw.port.Write(frame); err != nil {
		return fmt.Errorf("error writing to serial: %w", err)
	}
	return nil
}

func (sw *SerialWriter) Close() error {
	return sw.port.Close()
}

func encodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > maxFramePayload {
		return nil, fmt.Errorf("frame payload of %d bytes exceeds %d", len(payload), maxFramePayload)
	}
	frame := make([]byte, 0, len(payload)+3)
	frame = append(frame, frameStart, byte(len(payload)))
	frame = append(frame, payload...)
	return append(frame, checksum(payload)), nil
}

func checksum(payload []byte) byte {
	var c byte
	for _, b := range payload {
		c ^= b
	}
	return c & 0x7f
}
