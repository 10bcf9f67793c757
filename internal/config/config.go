// Package config provides environment defaults for slate. Command-line flags
// override every value loaded here.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables read by Load.
const (
	EnvLogLevel      = "SLATE_LOG_LEVEL"
	EnvStripComments = "SLATE_STRIP_COMMENTS"
	EnvIndent        = "SLATE_INDENT"
)

// Config holds the defaults for one invocation.
type Config struct {
	// LogLevel is a level name understood by logging.ParseLevel.
	LogLevel string

	// Options contains format-specific options.
	Options Options
}

// Options contains optional settings.
type Options struct {
	StripComments bool
	// Indent is the indentation unit for pretty output. Empty uses each
	// format's default.
	Indent string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{LogLevel: "warn"}
}

// Load reads the defaults from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads the defaults through lookup, which has the signature of
// os.LookupEnv.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}

	if v, ok := lookup(EnvStripComments); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvStripComments, err)
		}
		cfg.Options.StripComments = b
	}

	if v, ok := lookup(EnvIndent); ok && v != "" {
		indent, err := parseIndent(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvIndent, err)
		}
		cfg.Options.Indent = indent
	}

	return cfg, nil
}

// parseIndent accepts a number of spaces, "tab", or literal whitespace.
func parseIndent(s string) (string, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 16 {
			return "", fmt.Errorf("indent width %d out of range 0-16", n)
		}
		return strings.Repeat(" ", n), nil
	}
	if strings.EqualFold(s, "tab") {
		return "\t", nil
	}
	if strings.Trim(s, " \t") != "" {
		return "", fmt.Errorf("%q is not a width, \"tab\" or whitespace", s)
	}
	return s, nil
}
