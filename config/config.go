// Package config holds the bridge configuration, stored as TOML.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/log"
	"github.com/naoina/toml"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if rt.Name() != "" && unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// Config is the top level bridge configuration.
type Config struct {
	Log      LogConfig
	Database DatabaseConfig
	Callback CallbackConfig
}

// LogConfig configures the log level and the optional rotating log file.
type LogConfig struct {
	Level      string
	File       string `toml:",omitempty"`
	MaxSizeMB  int
	MaxBackups int
}

// DatabaseConfig configures on-disk databases opened by the service.
type DatabaseConfig struct {
	Cache     int // MB of memory allocated for the LevelDB block cache
	Handles   int // open file handles, 0 selects the LevelDB default
	Namespace string
}

// CallbackConfig configures callbacks into the host.
type CallbackConfig struct {
	// BufferSize is the initial response buffer handed to status callbacks.
	BufferSize int
}

// Defaults contains the default settings.
var Defaults = Config{
	Log: LogConfig{
		Level:      "info",
		MaxSizeMB:  100,
		MaxBackups: 3,
	},
	Database: DatabaseConfig{
		Cache:     256,
		Handles:   0,
		Namespace: "bridge/db/",
	},
	Callback: CallbackConfig{
		BufferSize: 64 * 1024,
	},
}

// Load reads the TOML file at path on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the service cannot work with.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.File != "" && c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("invalid log file size %d", c.Log.MaxSizeMB)
	}
	if c.Database.Cache < 0 || c.Database.Handles < 0 {
		return errors.New("database cache and handles must not be negative")
	}
	if c.Callback.BufferSize <= 0 {
		return fmt.Errorf("invalid callback buffer size %d", c.Callback.BufferSize)
	}
	return nil
}

var levels = map[string]slog.Level{
	"trace":   log.LevelTrace,
	"debug":   log.LevelDebug,
	"info":    log.LevelInfo,
	"warn":    log.LevelWarn,
	"warning": log.LevelWarn,
	"error":   log.LevelError,
	"crit":    log.LevelCrit,
}

// ParseLevel converts a level name (trace, debug, info, warn, error, crit) or
// a legacy verbosity number (0-5) into a log level.
func ParseLevel(name string) (slog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if lvl, ok := levels[name]; ok {
		return lvl, nil
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 0 && n <= 5 {
		return log.FromLegacyLevel(n), nil
	}
	return 0, fmt.Errorf("invalid log level %q", name)
}

// Encode writes the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	out, err := tomlSettings.Marshal(c)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
