package sht30logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sht30logger/filter"
	"sht30logger/reading"
	"sht30logger/sht3x"
)

// Sensor produces raw samples. *sht3x.Dev implements it.
type Sensor interface {
	ReadRaw(ctx context.Context) (reading.Raw, error)
}

// Record is one emitted sample, tagged with the capture session and a
// sequence number.
type Record struct {
	Session  string           `json:"session" cbor:"1,keyasint"`
	Seq      uint64           `json:"seq" cbor:"2,keyasint"`
	Time     time.Time        `json:"time" cbor:"3,keyasint"`
	Filtered reading.Filtered `json:"filtered" cbor:"4,keyasint"`
}

// Sink consumes records. Persisting or displaying them is entirely up to the
// sink.
type Sink interface {
	WriteRecord(r Record) error
	Close() error
}

// Stats counts what a Recorder has done so far.
type Stats struct {
	Reads      uint64 `json:"reads"`
	Failures   uint64 `json:"failures"`
	Records    uint64 `json:"records"`
	SinkErrors uint64 `json:"sink_errors"`
}

// Recorder samples a Sensor on a fixed interval, runs each sample through a
// filter Engine and hands the result to its sinks.
type Recorder struct {
	Logger *slog.Logger
	// Now and Wait default to the wall clock and a context aware sleep.
	Now  func() time.Time
	Wait func(ctx context.Context, d time.Duration) error

	sensor   Sensor
	filter   *filter.Engine
	interval time.Duration
	duration time.Duration
	session  string

	sinksMu sync.Mutex
	sinks   []Sink

	mu     sync.Mutex
	stats  Stats
	latest *Record
}

// NewRecorder returns a Recorder reading sensor every interval. A zero
// duration records until the context passed to Run is cancelled.
func NewRecorder(sensor Sensor, f *filter.Engine, interval, duration time.Duration) (*Recorder, error) {
	if sensor == nil || f == nil {
		return nil, errors.New("recorder: sensor and filter are required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("recorder: interval %s must be positive", interval)
	}
	if duration < 0 {
		return nil, fmt.Errorf("recorder: duration %s must not be negative", duration)
	}
	return &Recorder{
		Logger:   slog.Default(),
		Now:      time.Now,
		Wait:     sht3x.Sleep,
		sensor:   sensor,
		filter:   f,
		interval: interval,
		duration: duration,
		session:  uuid.New().String(),
	}, nil
}

// AddSink registers s to receive every record.
func (r *Recorder) AddSink(s Sink) {
	r.sinksMu.Lock()
	defer r.sinksMu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Session returns the tag stamped on every record of this recorder.
func (r *Recorder) Session() string {
	return r.session
}

// Stats returns a snapshot of the counters.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Latest returns the most recent record, if any.
func (r *Recorder) Latest() (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == nil {
		return Record{}, false
	}
	return *r.latest, true
}

// Run samples until the configured duration has elapsed or ctx is cancelled.
// A failed read is logged and skipped; the filter only ever sees good
// samples. Sink failures do not stop the loop; the first error of each sink
// is returned once Run ends.
func (r *Recorder) Run(ctx context.Context) error {
	start := r.Now()
	sinkErrs := map[int]error{}
	r.Logger.Info("recording started",
		"session", r.session, "interval", r.interval, "duration", r.duration)

	for ctx.Err() == nil {
		if r.duration > 0 && !r.Now().Before(start.Add(r.duration)) {
			break
		}
		r.tick(ctx, sinkErrs)
		if err := r.Wait(ctx, r.interval); err != nil {
			break
		}
	}

	st := r.Stats()
	r.Logger.Info("recording stopped",
		"session", r.session, "records", st.Records, "failures", st.Failures)

	r.sinksMu.Lock()
	n := len(r.sinks)
	r.sinksMu.Unlock()
	errs := make([]error, 0, len(sinkErrs))
	for i := 0; i < n; i++ {
		if err, ok := sinkErrs[i]; ok {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Recorder) tick(ctx context.Context, sinkErrs map[int]error) {
	raw, err := r.sensor.ReadRaw(ctx)
	r.mu.Lock()
	r.stats.Reads++
	if err != nil {
		if ctx.Err() == nil {
			r.stats.Failures++
		}
		r.mu.Unlock()
		if ctx.Err() == nil {
			r.Logger.Warn("sensor read failed", "err", err)
		}
		return
	}
	rec := Record{
		Session:  r.session,
		Seq:      r.stats.Records,
		Time:     r.Now(),
		Filtered: r.filter.Update(raw),
	}
	r.stats.Records++
	r.latest = &rec
	r.mu.Unlock()

	r.sinksMu.Lock()
	defer r.sinksMu.Unlock()
	for i, s := range r.sinks {
		if err := s.WriteRecord(rec); err != nil {
			r.mu.Lock()
			r.stats.SinkErrors++
			r.mu.Unlock()
			r.Logger.Error("sink write failed", "sink", fmt.Sprintf("%T", s), "err", err)
			if _, ok := sinkErrs[i]; !ok {
				sinkErrs[i] = err
			}
		}
	}
}

// Close closes every sink.
func (r *Recorder) Close() error {
	r.sinksMu.Lock()
	defer r.sinksMu.Unlock()
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.sinks = nil
	return errors.Join(errs...)
}
