package sht30logger

import (
	"fmt"
	"io"
)

// ConsoleWriter prints a human readable line per record.
type ConsoleWriter struct {
	w io.Writer
}

func NewConsoleWriter(w io.Writer) *ConsoleWriter {
	return &ConsoleWriter{w: w}
}

// WriteRecord implements Sink.
func (c *ConsoleWriter) WriteRecord(r Record) error {
	f := r.Filtered
	_, err := fmt.Fprintf(c.w, "[%s] Raw: %.2f°C / %.2f%% | EMA: %.2f°C / %.2f%% | SMA: %.2f°C / %.2f%%\n",
		r.Time.Local().Format("15:04:05"),
		f.RawTemp, f.RawHum,
		f.EMATemp, f.EMAHum,
		f.SMATemp, f.SMAHum)
	return err
}

func (c *ConsoleWriter) Close() error {
	return nil
}
