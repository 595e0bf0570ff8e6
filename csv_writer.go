package sht30logger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// TimestampLayout is the local wall clock format of the Timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

var csvHeader = []string{
	"Timestamp",
	"Temp_C", "Hum_%",
	"EMA_Temp", "EMA_Hum",
	"SMA_Temp", "SMA_Hum",
}

// CSVWriter writes one row per record, flushed immediately.
type CSVWriter struct {
	writer *csv.Writer
	closer io.Closer
}

// NewCSVWriter writes the header row to w and returns a writer for the
// records. Close does not close w.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := &CSVWriter{writer: csv.NewWriter(w)}
	if err := cw.writer.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("error writing CSV header: %w", err)
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return nil, fmt.Errorf("error writing CSV header: %w", err)
	}
	return cw, nil
}

// CreateCSV truncates or creates path and writes the header row.
func CreateCSV(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	cw, err := NewCSVWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	cw.closer = f
	return cw, nil
}

// WriteRecord implements Sink.
func (cw *CSVWriter) WriteRecord(r Record) error {
	f := r.Filtered
	if err := cw.writer.Write([]string{
		r.Time.Local().Format(TimestampLayout),
		fmt.Sprintf("%.2f", f.RawTemp),
		fmt.Sprintf("%.2f", f.RawHum),
		fmt.Sprintf("%.2f", f.EMATemp),
		fmt.Sprintf("%.2f", f.EMAHum),
		fmt.Sprintf("%.2f", f.SMATemp),
		fmt.Sprintf("%.2f", f.SMAHum),
	}); err != nil {
		return fmt.Errorf("error writing CSV: %w", err)
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close flushes pending rows and closes the file opened by CreateCSV.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	err := cw.writer.Error()
	if cw.closer != nil {
		if cerr := cw.closer.Close(); err == nil {
			err = cerr
		}
		cw.closer = nil
	}
	return err
}
