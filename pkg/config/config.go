// Package config contains the settings of the language server and the
// configuration file that provides their defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Trace is the verbosity of the server's debug log.
type Trace string

// Possible values of Trace.
const (
	TraceOff      Trace = "off"
	TraceMessages Trace = "messages"
	TraceVerbose  Trace = "verbose"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Trace) UnmarshalText(b []byte) error {
	switch s := Trace(strings.ToLower(string(b))); s {
	case TraceOff, TraceMessages, TraceVerbose:
		*t = s
		return nil
	case "":
		*t = TraceOff
		return nil
	default:
		return fmt.Errorf("invalid trace level %q", b)
	}
}

// Settings are the settings of one session.
type Settings struct {
	// Maximal number of diagnostics published per document; 0 means no
	// limit.
	MaxNumberOfProblems int   `json:"maxNumberOfProblems" yaml:"maxNumberOfProblems"`
	Trace               Trace `json:"-" yaml:"trace"`
}

// Default returns the default settings.
func Default() Settings {
	return Settings{MaxNumberOfProblems: 10, Trace: TraceOff}
}

// Section is the name of the settings section in the client's configuration.
const Section = "wikitextLanguageServer"

// FromLSP applies the settings object sent by the client with
// workspace/didChangeConfiguration to base. Settings missing from the object
// keep their values from base.
//
// The object has the shape
//
//	{"wikitextLanguageServer": {"maxNumberOfProblems": 10, "trace": {"server": "off"}}}
func FromLSP(base Settings, raw json.RawMessage) (Settings, error) {
	var obj map[string]json.RawMessage
	if len(raw) == 0 || string(raw) == "null" {
		return base, nil
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return base, fmt.Errorf("settings: %w", err)
	}
	section, ok := obj[Section]
	if !ok {
		return base, nil
	}
	var s struct {
		MaxNumberOfProblems *int `json:"maxNumberOfProblems"`
		Trace               *struct {
			Server Trace `json:"server"`
		} `json:"trace"`
	}
	if err := json.Unmarshal(section, &s); err != nil {
		return base, fmt.Errorf("settings: %s: %w", Section, err)
	}
	if s.MaxNumberOfProblems != nil {
		base.MaxNumberOfProblems = max(0, *s.MaxNumberOfProblems)
	}
	if s.Trace != nil {
		base.Trace = s.Trace.Server
	}
	return base, nil
}

// File is the content of a configuration file.
type File struct {
	// Seed file or database loaded in addition to the built-in seed.
	Seed string `yaml:"seed"`
	// Defaults of the session settings.
	Settings     Settings      `yaml:"settings"`
	SyncDelay    time.Duration `yaml:"syncDelay"`
	AnalyzeDelay time.Duration `yaml:"analyzeDelay"`
	// Address serving Prometheus metrics, such as "localhost:9090".
	MetricsAddr string `yaml:"metricsAddr"`
}

// DefaultFile returns the configuration used when there is no file.
func DefaultFile() *File {
	return &File{Settings: Default()}
}

// Load reads a configuration file. Fields missing from the file keep their
// defaults.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses the content of a configuration file.
func Parse(data []byte) (*File, error) {
	f := DefaultFile()
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if f.SyncDelay < 0 || f.AnalyzeDelay < 0 {
		return nil, fmt.Errorf("parse config: negative delay")
	}
	f.Settings.MaxNumberOfProblems = max(0, f.Settings.MaxNumberOfProblems)
	return f, nil
}
