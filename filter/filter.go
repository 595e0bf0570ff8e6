// Package filter smooths a stream of temperature/humidity samples with an
// exponential moving average and a simple moving average over a bounded
// window.
//
// State.Update is a pure transform: it returns the next state alongside the
// record and leaves its receiver untouched. Engine wraps a State for callers
// that prefer to keep it in place. Neither does I/O.
package filter

import (
	"fmt"

	"sht30logger/reading"
)

const (
	// DefaultAlpha is the EMA smoothing factor used when none is configured.
	DefaultAlpha = 0.2
	// DefaultWindow is the SMA window capacity used when none is configured.
	DefaultWindow = 5
)

type pair struct {
	temp, hum float64
}

// State is the filter state for one sample stream. The zero value filters
// with DefaultAlpha and DefaultWindow.
type State struct {
	EMATemp     float64
	EMAHum      float64
	Initialized bool

	alpha    float64
	capacity int
	window   []pair
}

// NewState returns an uninitialized state. alpha must be in (0, 1] and
// capacity at least 1.
func NewState(alpha float64, capacity int) (State, error) {
	if !(alpha > 0 && alpha <= 1) {
		return State{}, fmt.Errorf("filter: alpha %v is not in (0, 1]", alpha)
	}
	if capacity < 1 {
		return State{}, fmt.Errorf("filter: window capacity %d is less than 1", capacity)
	}
	return State{alpha: alpha, capacity: capacity}, nil
}

// Alpha returns the smoothing factor.
func (s State) Alpha() float64 { return s.alpha }

// Capacity returns the SMA window capacity.
func (s State) Capacity() int { return s.capacity }

// Len returns the number of samples held in the SMA window.
func (s State) Len() int { return len(s.window) }

// Update folds raw into the state. The first sample seeds the EMA; later
// samples are blended with alpha. The SMA is the mean of whatever the window
// holds, oldest evicted first once it is full.
func (s State) Update(raw reading.Raw) (State, reading.Filtered) {
	next := s
	if !(next.alpha > 0 && next.alpha <= 1) {
		next.alpha = DefaultAlpha
	}
	if next.capacity < 1 {
		next.capacity = DefaultWindow
	}
	if !s.Initialized {
		next.EMATemp = raw.Temperature
		next.EMAHum = raw.Humidity
		next.Initialized = true
	} else {
		next.EMATemp = next.alpha*raw.Temperature + (1-next.alpha)*s.EMATemp
		next.EMAHum = next.alpha*raw.Humidity + (1-next.alpha)*s.EMAHum
	}

	start := 0
	if len(s.window) >= next.capacity {
		start = len(s.window) - next.capacity + 1
	}
	next.window = make([]pair, 0, next.capacity)
	next.window = append(next.window, s.window[start:]...)
	next.window = append(next.window, pair{raw.Temperature, raw.Humidity})

	var sumTemp, sumHum float64
	for _, p := range next.window {
		sumTemp += p.temp
		sumHum += p.hum
	}
	n := float64(len(next.window))

	return next, reading.Filtered{
		RawTemp: raw.Temperature,
		RawHum:  raw.Humidity,
		EMATemp: next.EMATemp,
		EMAHum:  next.EMAHum,
		SMATemp: sumTemp / n,
		SMAHum:  sumHum / n,
	}
}

// Engine owns the State of a single sample stream. It is not safe for
// concurrent use; give each sensor its own Engine.
type Engine struct {
	state   State
	initial State
}

// New returns an Engine with the given smoothing factor and window capacity.
func New(alpha float64, capacity int) (*Engine, error) {
	s, err := NewState(alpha, capacity)
	if err != nil {
		return nil, err
	}
	return &Engine{state: s, initial: s}, nil
}

// Update feeds one raw sample and returns the combined record.
func (e *Engine) Update(raw reading.Raw) reading.Filtered {
	var f reading.Filtered
	e.state, f = e.state.Update(raw)
	return f
}

// State returns a snapshot of the current state.
func (e *Engine) State() State {
	return e.state
}

// Reset discards all history.
func (e *Engine) Reset() {
	e.state = e.initial
}
