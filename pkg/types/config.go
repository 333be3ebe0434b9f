package types

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Config holds the settings read from config.yaml and the environment.
type Config struct {
	DataDir       string      `json:"data_dir" yaml:"data_dir,omitempty"`
	LogLevel      string      `json:"log_level" yaml:"log_level"`
	PartitionSize int64       `json:"partition_size" yaml:"partition_size"`
	FormatVersion int         `json:"format_version" yaml:"format_version"`
	Tools         ToolsConfig `json:"tools" yaml:"tools"`
}

// ToolsConfig locates the ESP-IDF partition tools.
type ToolsConfig struct {
	Python       string `json:"python" yaml:"python"`
	NVSTool      string `json:"nvs_tool" yaml:"nvs_tool"`
	PartitionGen string `json:"partition_gen" yaml:"partition_gen"`
}

// Defaults used when config.yaml omits a value.
const (
	DefaultPartitionSize = 0x5000
	DefaultFormatVersion = 2
	DefaultLogLevel      = "info"
	DefaultPython        = "python3"
	DefaultNVSTool       = "nvs_tool.py"
	DefaultPartitionGen  = "esp_idf_nvs_partition_gen"

	// PartitionPageSize is the NVS flash page size; partition sizes must be
	// a multiple of it.
	PartitionPageSize = 0x1000
)

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:      DefaultLogLevel,
		PartitionSize: DefaultPartitionSize,
		FormatVersion: DefaultFormatVersion,
		Tools: ToolsConfig{
			Python:       DefaultPython,
			NVSTool:      DefaultNVSTool,
			PartitionGen: DefaultPartitionGen,
		},
	}
}

// Config validation errors.
var (
	ErrPartitionSize = errors.New("partition size must be a positive multiple of 4096")
	ErrFormatVersion = errors.New("format version must be 1 or 2")
	ErrLogLevel      = errors.New("unknown log level")
)

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if err := ValidatePartitionSize(c.PartitionSize); err != nil {
		return err
	}
	if c.FormatVersion != 1 && c.FormatVersion != 2 {
		return ErrFormatVersion
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ValidatePartitionSize checks a target partition size.
func ValidatePartitionSize(size int64) error {
	if size <= 0 || size%PartitionPageSize != 0 {
		return fmt.Errorf("%w: got %#x", ErrPartitionSize, size)
	}
	return nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w %q", ErrLogLevel, s)
	}
}
