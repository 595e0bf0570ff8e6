// Command sht30log samples an SHT3x sensor at a fixed interval, smooths the
// readings with an EMA and an SMA filter and writes raw and filtered values
// to the configured sinks.
//
// Usage:
//
//	sht30log [-config file.yaml] [flags]
//
// Flags override values from the config file. A duration of 0 records until
// interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"sht30logger"
	"sht30logger/bus"
	"sht30logger/filter"
	"sht30logger/sht3x"
)

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("sht30log failed", "err", err)
		os.Exit(1)
	}
}

func parseConfig(args []string) (sht30logger.Config, error) {
	fs := flag.NewFlagSet("sht30log", flag.ContinueOnError)
	over := sht30logger.Default()

	configPath := fs.String("config", "", "YAML configuration file")
	fs.StringVar(&over.Bus, "bus", over.Bus, "I²C bus name or number")
	fs.Func("address", "sensor address, 0x44 or 0x45 (default 0x44)", func(s string) error {
		a, err := strconv.ParseUint(s, 0, 7)
		if err != nil {
			return err
		}
		over.Address = uint16(a)
		return nil
	})
	fs.BoolVar(&over.ValidateCRC, "crc", over.ValidateCRC, "validate payload CRC bytes")
	fs.Var(&over.Interval, "interval", "sampling interval in seconds")
	fs.Var(&over.Duration, "duration", "capture duration in seconds, 0 for unbounded")
	fs.Float64Var(&over.Alpha, "alpha", over.Alpha, "EMA smoothing factor in (0, 1]")
	fs.IntVar(&over.Window, "window", over.Window, "SMA window size")
	fs.StringVar(&over.CSV, "csv", over.CSV, "CSV output file, empty to disable")
	fs.BoolVar(&over.Console, "console", over.Console, "print each record")
	fs.StringVar(&over.SQLite, "sqlite", over.SQLite, "SQLite database file")
	fs.StringVar(&over.HTTP, "http", over.HTTP, "HTTP listen address for /status, /latest and /ws")
	fs.StringVar(&over.Serial.Port, "serial", over.Serial.Port, "serial port to mirror records to")
	fs.IntVar(&over.Serial.Baud, "baud", over.Serial.Baud, "serial baud rate")
	fs.StringVar(&over.MQTT.Broker, "mqtt", over.MQTT.Broker, "MQTT broker host:port")
	fs.StringVar(&over.MQTT.Topic, "topic", over.MQTT.Topic, "MQTT topic")
	fs.StringVar(&over.LogLevel, "log-level", over.LogLevel, "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return over, err
	}

	if *configPath == "" {
		return over, over.Validate()
	}
	cfg, err := sht30logger.Load(*configPath)
	if err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "bus":
			cfg.Bus = over.Bus
		case "address":
			cfg.Address = over.Address
		case "crc":
			cfg.ValidateCRC = over.ValidateCRC
		case "interval":
			cfg.Interval = over.Interval
		case "duration":
			cfg.Duration = over.Duration
		case "alpha":
			cfg.Alpha = over.Alpha
		case "window":
			cfg.Window = over.Window
		case "csv":
			cfg.CSV = over.CSV
		case "console":
			cfg.Console = over.Console
		case "sqlite":
			cfg.SQLite = over.SQLite
		case "http":
			cfg.HTTP = over.HTTP
		case "serial":
			cfg.Serial.Port = over.Serial.Port
		case "baud":
			cfg.Serial.Baud = over.Serial.Baud
		case "mqtt":
			cfg.MQTT.Broker = over.MQTT.Broker
		case "topic":
			cfg.MQTT.Topic = over.MQTT.Topic
		case "log-level":
			cfg.LogLevel = over.LogLevel
		}
	})
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg sht30logger.Config, logger *slog.Logger) error {
	t, err := bus.Open(cfg.Bus)
	if err != nil {
		return err
	}
	dev, err := sht3x.New(t, cfg.Address, &sht3x.Opts{ValidateCRC: cfg.ValidateCRC})
	if err != nil {
		t.Close()
		return err
	}
	defer dev.Close()
	if err := dev.Reset(); err != nil {
		return fmt.Errorf("sensor reset failed: %w", err)
	}

	engine, err := filter.New(cfg.Alpha, cfg.Window)
	if err != nil {
		return err
	}
	rec, err := sht30logger.NewRecorder(dev, engine, cfg.Interval.Duration(), cfg.Duration.Duration())
	if err != nil {
		return err
	}
	rec.Logger = logger

	sinks, err := sht30logger.OpenSinks(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	for _, s := range sinks {
		rec.AddSink(s)
	}
	defer func() {
		if err := rec.Close(); err != nil {
			logger.Error("failed to close sinks", "err", err)
		}
	}()

	if cfg.HTTP != "" {
		ws := sht30logger.NewWebSocketServer(logger)
		rec.AddSink(ws)
		srv := sht30logger.NewServer(rec, ws, cfg, logger)
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := srv.ListenAndServe(srvCtx, cfg.HTTP); err != nil {
				logger.Error("web server failed", "err", err)
			}
		}()
	}

	logger.Info("sensor ready", "device", dev.String(), "bus", cfg.Bus)
	return rec.Run(ctx)
}
