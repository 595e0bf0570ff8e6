package sht3x

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"

	"sht30logger/bus"
	"sht30logger/reading"
)

const (
	// DefaultAddress is the address with the ADDR pin pulled low.
	DefaultAddress uint16 = 0x44
	// AlternateAddress is the address with the ADDR pin pulled high.
	AlternateAddress uint16 = 0x45

	// Single shot, high repeatability, clock stretching disabled.
	cmdMeasure    byte = 0x2c
	argMeasure    byte = 0x06
	cmdSoftReset  byte = 0x30
	argSoftReset  byte = 0xa2
	regData       byte = 0x00
	payloadLength      = 6

	crcPolynomial byte = 0x31

	countDivisor = 65535.0

	conversionDelay   = 15 * time.Millisecond
	resetDelay        = 10 * time.Millisecond
	minSampleDuration = 20 * time.Millisecond
)

// Opts holds the configuration options for the device.
type Opts struct {
	// ConversionDelay is the time between triggering a measurement and
	// reading it back. Reading earlier returns garbage. Default is 15ms.
	ConversionDelay time.Duration
	// Wait blocks for d or until ctx is done. Default is a timer based wait.
	// Tests replace it to avoid real delays.
	Wait func(ctx context.Context, d time.Duration) error
	// ValidateCRC enables checking the CRC byte that follows each word of the
	// payload. Default is true.
	ValidateCRC bool
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	ConversionDelay: conversionDelay,
	Wait:            Sleep,
	ValidateCRC:     true,
}

// Sleep waits for d, returning early with ctx.Err() if ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Dev is a handle to an SHT3x sensor. It owns its transport; reads on one
// Dev are serialized.
type Dev struct {
	t    bus.Transport
	addr uint16
	opts Opts

	mu       sync.Mutex
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// New returns a Dev talking to the sensor at addr through t. The Opts can be
// nil.
func New(t bus.Transport, addr uint16, opts *Opts) (*Dev, error) {
	if t == nil {
		return nil, errors.New("sht3x: nil transport")
	}
	if addr > 0x7f {
		return nil, fmt.Errorf("sht3x: invalid address %#x", addr)
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.ConversionDelay <= 0 {
		o.ConversionDelay = conversionDelay
	}
	if o.Wait == nil {
		o.Wait = Sleep
	}
	return &Dev{t: t, addr: addr, opts: o}, nil
}

// ReadRaw triggers one measurement, waits for the conversion to finish and
// decodes the result. Every call performs exactly one trigger write and one
// read; nothing is cached.
func (d *Dev) ReadRaw(ctx context.Context) (reading.Raw, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readRaw(ctx)
}

func (d *Dev) readRaw(ctx context.Context) (reading.Raw, error) {
	if err := d.t.Write(d.addr, cmdMeasure, []byte{argMeasure}); err != nil {
		return reading.Raw{}, &TransportError{Err: err}
	}
	if err := d.opts.Wait(ctx, d.opts.ConversionDelay); err != nil {
		return reading.Raw{}, err
	}
	b, err := d.t.Read(d.addr, regData, payloadLength)
	if err != nil {
		return reading.Raw{}, &TransportError{Err: err}
	}
	return decode(b, d.opts.ValidateCRC)
}

// Decode converts a 6 byte measurement payload
// [T_MSB, T_LSB, T_CRC, H_MSB, H_LSB, H_CRC] into physical values, checking
// both CRC bytes.
func Decode(b []byte) (reading.Raw, error) {
	return decode(b, true)
}

func decode(b []byte, validate bool) (reading.Raw, error) {
	if len(b) != payloadLength {
		return reading.Raw{}, &PayloadError{Length: len(b)}
	}
	if validate {
		if crc := calculateCRC8(b[0:2]); crc != b[2] {
			return reading.Raw{}, &CRCError{Field: "temperature", Got: b[2], Want: crc}
		}
		if crc := calculateCRC8(b[3:5]); crc != b[5] {
			return reading.Raw{}, &CRCError{Field: "humidity", Got: b[5], Want: crc}
		}
	}
	rawTemp := uint16(b[0])<<8 | uint16(b[1])
	rawHum := uint16(b[3])<<8 | uint16(b[4])
	return reading.Raw{
		Temperature: countToCelsius(rawTemp),
		Humidity:    countToHumidity(rawHum),
	}, nil
}

func countToCelsius(count uint16) float64 {
	return -45 + 175*(float64(count)/countDivisor)
}

func countToHumidity(count uint16) float64 {
	return 100 * (float64(count) / countDivisor)
}

// calculateCRC8 uses polynomial x^8 + x^5 + x^4 + 1 with initial value 0xff.
func calculateCRC8(data []byte) byte {
	crc := byte(0xff)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// Reset issues a soft reset to the device.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.t.Write(d.addr, cmdSoftReset, []byte{argSoftReset}); err != nil {
		return &TransportError{Err: err}
	}
	return d.opts.Wait(context.Background(), resetDelay)
}

// Sense implements physic.SenseEnv. Pressure is always 0.
func (d *Dev) Sense(e *physic.Env) error {
	r, err := d.ReadRaw(context.Background())
	if err != nil {
		return err
	}
	e.Temperature = physic.Temperature(r.Temperature*float64(physic.Kelvin)) + physic.ZeroCelsius
	e.Humidity = physic.RelativeHumidity(r.Humidity * float64(physic.PercentRH))
	e.Pressure = 0
	return nil
}

// SenseContinuous implements physic.SenseEnv. Failed reads are dropped. Call
// Halt to stop sensing and close the channel.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < minSampleDuration {
		return nil, errors.New("sht3x: sample interval is shorter than the conversion time")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shutdown != nil {
		return nil, errors.New("sht3x: SenseContinuous already running")
	}
	d.shutdown = make(chan struct{})
	stop := d.shutdown
	ch := make(chan physic.Env, 16)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				var e physic.Env
				if err := d.Sense(&e); err != nil {
					continue
				}
				select {
				case ch <- e:
				case <-stop:
					return
				}
			}
		}
	}()
	return ch, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Kelvin / 100
	e.Humidity = physic.PercentRH / 100
	e.Pressure = 0
}

// Halt stops a running SenseContinuous. Implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop := d.shutdown
	d.shutdown = nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		d.wg.Wait()
	}
	return nil
}

// Close halts the device and releases the transport if it can be closed.
func (d *Dev) Close() error {
	if err := d.Halt(); err != nil {
		return err
	}
	if c, ok := d.t.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("sht3x{%#x}", d.addr)
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
