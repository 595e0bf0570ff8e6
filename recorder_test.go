package sht30logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sht30logger/bus"
	"sht30logger/filter"
	"sht30logger/reading"
	"sht30logger/sht3x"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeClock struct {
	now   time.Time
	waits []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Wait(ctx context.Context, d time.Duration) error {
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

type result struct {
	raw reading.Raw
	err error
}

type fakeSensor struct {
	results []result
	calls   int
	onCall  func(n int)
}

func (f *fakeSensor) ReadRaw(ctx context.Context) (reading.Raw, error) {
	f.calls++
	if f.onCall != nil {
		f.onCall(f.calls)
	}
	if len(f.results) == 0 {
		return reading.Raw{Temperature: 25, Humidity: 40}, nil
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r.raw, r.err
}

type memSink struct {
	records []Record
	err     error
	closed  bool
}

func (m *memSink) WriteRecord(r Record) error {
	m.records = append(m.records, r)
	return m.err
}

func (m *memSink) Close() error {
	m.closed = true
	return nil
}

func newTestRecorder(t *testing.T, s Sensor, alpha float64, interval, duration time.Duration) (*Recorder, *filter.Engine, *fakeClock) {
	t.Helper()
	engine, err := filter.New(alpha, filter.DefaultWindow)
	require.NoError(t, err)
	rec, err := NewRecorder(s, engine, interval, duration)
	require.NoError(t, err)
	clock := newFakeClock()
	rec.Now = clock.Now
	rec.Wait = clock.Wait
	rec.Logger = discardLogger
	return rec, engine, clock
}

func TestRecorder_RunDuration(t *testing.T) {
	sensor := &fakeSensor{}
	rec, _, clock := newTestRecorder(t, sensor, 0.2, 2*time.Second, 10*time.Second)
	sink := &memSink{}
	rec.AddSink(sink)
	start := clock.Now()

	require.NoError(t, rec.Run(context.Background()))

	assert.Equal(t, 5, sensor.calls)
	require.Len(t, sink.records, 5)
	for i, r := range sink.records {
		assert.Equal(t, uint64(i), r.Seq)
		assert.Equal(t, rec.Session(), r.Session)
		assert.Equal(t, start.Add(time.Duration(i)*2*time.Second), r.Time)
		assert.Equal(t, 25.0, r.Filtered.SMATemp)
	}
	for _, w := range clock.waits {
		assert.Equal(t, 2*time.Second, w)
	}
	_, err := uuid.Parse(rec.Session())
	assert.NoError(t, err)

	st := rec.Stats()
	assert.Equal(t, Stats{Reads: 5, Records: 5}, st)
	latest, ok := rec.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(4), latest.Seq)

	require.NoError(t, rec.Close())
	assert.True(t, sink.closed)
}

func TestRecorder_FailedReadSkipsFilter(t *testing.T) {
	sensor := &fakeSensor{results: []result{
		{raw: reading.Raw{Temperature: 20, Humidity: 50}},
		{err: &sht3x.TransportError{Err: bus.ErrNack}},
		{raw: reading.Raw{Temperature: 30, Humidity: 60}},
	}}
	rec, _, _ := newTestRecorder(t, sensor, 0.1, time.Second, 3*time.Second)
	sink := &memSink{}
	rec.AddSink(sink)

	require.NoError(t, rec.Run(context.Background()))

	require.Len(t, sink.records, 2)
	second := sink.records[1]
	assert.Equal(t, uint64(1), second.Seq)
	assert.InDelta(t, 21.0, second.Filtered.EMATemp, 1e-12)
	assert.InDelta(t, 51.0, second.Filtered.EMAHum, 1e-12)
	assert.Equal(t, 25.0, second.Filtered.SMATemp)
	assert.Equal(t, Stats{Reads: 3, Failures: 1, Records: 2}, rec.Stats())
}

type nackTransport struct{}

func (nackTransport) Write(addr uint16, reg byte, data []byte) error {
	return &bus.Error{Op: "write", Addr: addr, Reg: reg, Kind: bus.Nack}
}

func (nackTransport) Read(addr uint16, reg byte, n int) ([]byte, error) {
	return nil, &bus.Error{Op: "read", Addr: addr, Reg: reg, Kind: bus.Nack}
}

func TestRecorder_NackNeverTouchesFilter(t *testing.T) {
	dev, err := sht3x.New(nackTransport{}, sht3x.DefaultAddress, nil)
	require.NoError(t, err)
	rec, engine, _ := newTestRecorder(t, dev, 0.2, time.Second, 4*time.Second)
	sink := &memSink{}
	rec.AddSink(sink)

	require.NoError(t, rec.Run(context.Background()))

	assert.Empty(t, sink.records)
	assert.Equal(t, Stats{Reads: 4, Failures: 4}, rec.Stats())
	st := engine.State()
	assert.False(t, st.Initialized)
	assert.Equal(t, 0, st.Len())
	_, ok := rec.Latest()
	assert.False(t, ok)
}

func TestRecorder_Unbounded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sensor := &fakeSensor{onCall: func(n int) {
		if n == 7 {
			cancel()
		}
	}}
	rec, _, _ := newTestRecorder(t, sensor, 0.2, 500*time.Millisecond, 0)
	sink := &memSink{}
	rec.AddSink(sink)

	require.NoError(t, rec.Run(ctx))
	assert.Equal(t, 7, sensor.calls)
	assert.Len(t, sink.records, 7)
}

func TestRecorder_CancelledRead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sensor := &fakeSensor{
		results: []result{{err: context.Canceled}},
		onCall:  func(int) { cancel() },
	}
	rec, _, _ := newTestRecorder(t, sensor, 0.2, time.Second, 0)

	require.NoError(t, rec.Run(ctx))
	assert.Equal(t, uint64(0), rec.Stats().Failures)
}

func TestRecorder_SinkErrors(t *testing.T) {
	sinkErr := errors.New("disk full")
	bad := &memSink{err: sinkErr}
	good := &memSink{}
	rec, _, _ := newTestRecorder(t, &fakeSensor{}, 0.2, time.Second, 3*time.Second)
	rec.AddSink(bad)
	rec.AddSink(good)

	err := rec.Run(context.Background())
	assert.ErrorIs(t, err, sinkErr)
	assert.Len(t, good.records, 3)
	assert.Len(t, bad.records, 3)
	assert.Equal(t, uint64(3), rec.Stats().SinkErrors)
}

func TestNewRecorder_Validation(t *testing.T) {
	engine, err := filter.New(0.2, 5)
	require.NoError(t, err)
	_, err = NewRecorder(nil, engine, time.Second, 0)
	assert.Error(t, err)
	_, err = NewRecorder(&fakeSensor{}, nil, time.Second, 0)
	assert.Error(t, err)
	_, err = NewRecorder(&fakeSensor{}, engine, 0, 0)
	assert.Error(t, err)
	_, err = NewRecorder(&fakeSensor{}, engine, time.Second, -time.Second)
	assert.Error(t, err)
}
