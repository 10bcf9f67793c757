package config

import (
	"testing"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name      string
		vars      map[string]string
		wantLevel string
		wantStrip bool
		wantInd   string
		wantErr   bool
	}{
		{name: "defaults", vars: nil, wantLevel: "warn"},
		{name: "log level", vars: map[string]string{EnvLogLevel: " debug "}, wantLevel: "debug"},
		{name: "blank log level", vars: map[string]string{EnvLogLevel: "  "}, wantLevel: "warn"},
		{name: "strip comments", vars: map[string]string{EnvStripComments: "true"}, wantLevel: "warn", wantStrip: true},
		{name: "strip comments numeric", vars: map[string]string{EnvStripComments: "1"}, wantLevel: "warn", wantStrip: true},
		{name: "invalid strip comments", vars: map[string]string{EnvStripComments: "maybe"}, wantErr: true},
		{name: "indent width", vars: map[string]string{EnvIndent: "4"}, wantLevel: "warn", wantInd: "    "},
		{name: "indent tab", vars: map[string]string{EnvIndent: "TAB"}, wantLevel: "warn", wantInd: "\t"},
		{name: "indent literal", vars: map[string]string{EnvIndent: "   "}, wantLevel: "warn", wantInd: "   "},
		{name: "indent out of range", vars: map[string]string{EnvIndent: "40"}, wantErr: true},
		{name: "indent garbage", vars: map[string]string{EnvIndent: "wide"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFrom(env(tt.vars))
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadFrom() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg.LogLevel != tt.wantLevel {
				t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, tt.wantLevel)
			}
			if cfg.Options.StripComments != tt.wantStrip {
				t.Errorf("StripComments = %v, want %v", cfg.Options.StripComments, tt.wantStrip)
			}
			if cfg.Options.Indent != tt.wantInd {
				t.Errorf("Indent = %q, want %q", cfg.Options.Indent, tt.wantInd)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvLogLevel, "info")
	t.Setenv(EnvStripComments, "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}
