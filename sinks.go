package sht30logger

import (
	"context"
	"errors"
	"io"
)

// OpenSinks opens every sink enabled in cfg. Console output goes to console.
// On error the sinks opened so far are closed.
func OpenSinks(ctx context.Context, cfg Config, console io.Writer) ([]Sink, error) {
	var sinks []Sink
	fail := func(err error) ([]Sink, error) {
		for _, s := range sinks {
			err = errors.Join(err, s.Close())
		}
		return nil, err
	}

	if cfg.CSV != "" {
		cw, err := CreateCSV(cfg.CSV)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, cw)
	}
	if cfg.Console && console != nil {
		sinks = append(sinks, NewConsoleWriter(console))
	}
	if cfg.SQLite != "" {
		st, err := OpenStore(cfg.SQLite)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, st)
	}
	if cfg.Serial.Port != "" {
		sw, err := OpenSerial(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, sw)
	}
	if cfg.MQTT.Broker != "" {
		mp, err := DialMQTT(ctx, cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, mp)
	}
	return sinks, nil
}
