// Package reading holds the sample types passed between the sensor driver,
// the filter engine and the recorder.
package reading

// Raw is one decoded sensor measurement.
type Raw struct {
	Temperature float64 `json:"temperature_c" cbor:"1,keyasint"`
	Humidity    float64 `json:"humidity_pct" cbor:"2,keyasint"`
}

// Fahrenheit returns the temperature in degrees Fahrenheit.
func (r Raw) Fahrenheit() float64 {
	return Fahrenheit(r.Temperature)
}

// Fahrenheit converts degrees Celsius to degrees Fahrenheit.
func Fahrenheit(celsius float64) float64 {
	return celsius*1.8 + 32
}

// Filtered combines a raw sample with the smoothed values computed from it.
type Filtered struct {
	RawTemp float64 `json:"raw_temp" cbor:"1,keyasint"`
	RawHum  float64 `json:"raw_hum" cbor:"2,keyasint"`
	EMATemp float64 `json:"ema_temp" cbor:"3,keyasint"`
	EMAHum  float64 `json:"ema_hum" cbor:"4,keyasint"`
	SMATemp float64 `json:"sma_temp" cbor:"5,keyasint"`
	SMAHum  float64 `json:"sma_hum" cbor:"6,keyasint"`
}

// Raw returns the raw sample the record was derived from.
func (f Filtered) Raw() Raw {
	return Raw{Temperature: f.RawTemp, Humidity: f.RawHum}
}
