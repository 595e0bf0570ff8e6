package sht30logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSinks(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.CSV = filepath.Join(dir, "out.csv")
	cfg.SQLite = filepath.Join(dir, "out.db")
	var console bytes.Buffer

	sinks, err := OpenSinks(context.Background(), cfg, &console)
	require.NoError(t, err)
	require.Len(t, sinks, 3)
	assert.IsType(t, &CSVWriter{}, sinks[0])
	assert.IsType(t, &ConsoleWriter{}, sinks[1])
	assert.IsType(t, &Store{}, sinks[2])

	for _, s := range sinks {
		require.NoError(t, s.WriteRecord(testRecord))
	}
	n, err := sinks[2].(*Store).Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	for _, s := range sinks {
		require.NoError(t, s.Close())
	}
	assert.NotEmpty(t, console.String())
}

func TestOpenSinks_ClosesOnFailure(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.CSV = filepath.Join(dir, "out.csv")
	cfg.Console = false
	cfg.SQLite = filepath.Join(dir, "missing", "out.db")

	_, err := OpenSinks(context.Background(), cfg, nil)
	require.Error(t, err)
	// The CSV sink was opened and flushed its header before the failure.
	data, err := os.ReadFile(cfg.CSV)
	require.NoError(t, err)
	assert.Equal(t, "Timestamp,Temp_C,Hum_%,EMA_Temp,EMA_Hum,SMA_Temp,SMA_Hum\n", string(data))
}
