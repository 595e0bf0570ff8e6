package sht30logger

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sosodev/duration"
	"gopkg.in/yaml.v3"

	"sht30logger/filter"
	"sht30logger/sht3x"
)

// Seconds is a duration configured as a (fractional) number of seconds, a Go
// duration string such as "1500ms", or an ISO-8601 duration such as "PT3M".
type Seconds time.Duration

// Duration returns s as a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}

func (s Seconds) String() string {
	return strconv.FormatFloat(time.Duration(s).Seconds(), 'f', -1, 64)
}

// Set implements flag.Value.
func (s *Seconds) Set(v string) error {
	d, err := parseSeconds(v)
	if err != nil {
		return err
	}
	*s = d
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Seconds) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	d, err := parseSeconds(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*s = d
	return nil
}

// maxSeconds bounds what a time.Duration holds.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

func parseSeconds(v string) (Seconds, error) {
	v = strings.TrimSpace(v)
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		if math.IsNaN(f) || math.Abs(f) >= maxSeconds {
			return 0, fmt.Errorf("duration %q is out of range", v)
		}
		return Seconds(f * float64(time.Second)), nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return Seconds(d), nil
	}
	if strings.HasPrefix(v, "P") || strings.HasPrefix(v, "-P") {
		d, err := duration.Parse(v)
		if err != nil {
			return 0, fmt.Errorf("invalid ISO-8601 duration %q: %w", v, err)
		}
		return Seconds(d.ToTimeDuration()), nil
	}
	return 0, fmt.Errorf("invalid duration %q", v)
}

// SerialConfig selects a serial port to mirror records to.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// MQTTConfig selects a broker to publish records to.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

// Config is the logger configuration. Zero values for the sink settings
// disable the sink.
type Config struct {
	Bus         string  `yaml:"bus"`
	Address     uint16  `yaml:"address"`
	ValidateCRC bool    `yaml:"validate_crc"`
	Interval    Seconds `yaml:"interval"`
	// Duration of 0 records until interrupted.
	Duration Seconds `yaml:"duration"`
	Alpha    float64 `yaml:"alpha"`
	Window   int     `yaml:"window"`

	CSV     string       `yaml:"csv"`
	Console bool         `yaml:"console"`
	SQLite  string       `yaml:"sqlite"`
	HTTP    string       `yaml:"http"`
	Serial  SerialConfig `yaml:"serial"`
	MQTT    MQTTConfig   `yaml:"mqtt"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Bus:         "1",
		Address:     sht3x.DefaultAddress,
		ValidateCRC: true,
		Interval:    Seconds(2 * time.Second),
		Duration:    Seconds(30 * time.Second),
		Alpha:       filter.DefaultAlpha,
		Window:      filter.DefaultWindow,
		CSV:         "sht30_data.csv",
		Console:     true,
		Serial:      SerialConfig{Baud: 115200},
		MQTT:        MQTTConfig{Topic: "sht30/records", ClientID: "sht30logger"},
		LogLevel:    "info",
	}
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values the core depends on.
func (c Config) Validate() error {
	if c.Address > 0x7f {
		return fmt.Errorf("address %#x is not a 7 bit address", c.Address)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval %ss must be positive", c.Interval)
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration %ss must not be negative", c.Duration)
	}
	if !(c.Alpha > 0 && c.Alpha <= 1) {
		return fmt.Errorf("alpha %v is not in (0, 1]", c.Alpha)
	}
	if c.Window < 1 {
		return fmt.Errorf("window %d must be at least 1", c.Window)
	}
	if c.Serial.Port != "" && c.Serial.Baud <= 0 {
		return fmt.Errorf("serial baud %d must be positive", c.Serial.Baud)
	}
	if c.MQTT.Broker != "" && c.MQTT.Topic == "" {
		return fmt.Errorf("mqtt topic is required with a broker")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return l, nil
}
