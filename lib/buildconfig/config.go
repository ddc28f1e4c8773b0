// Package buildconfig is the layered build configuration.
//
// A Config is parsed from an ordered list of source identifiers (see package
// sources). Later sources override keys of the same name in the same section;
// everything else keeps the value from earlier sources. Values are never
// interpolated. After Load the Config is read-only.
package buildconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ghodss/yaml"
	"github.com/onkernel/debian-builder/lib/logger"
	"github.com/onkernel/debian-builder/lib/sources"
	"gopkg.in/ini.v1"
)

// Config is the resolved build configuration.
type Config struct {
	file    *ini.File
	sources []string
}

type options struct {
	stdin io.Reader
}

// Option configures Load.
type Option func(*options)

// WithStdin sets the reader used for the "-" source identifier.
func WithStdin(r io.Reader) Option {
	return func(o *options) {
		o.stdin = r
	}
}

// Load parses ids in order into a single Config.
func Load(ctx context.Context, ids []string, opts ...Option) (*Config, error) {
	log := logger.FromContext(ctx)

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	reader := sources.NewReader(o.stdin)

	file := ini.Empty(iniOptions)
	for _, id := range ids {
		data, err := reader.Read(id)
		if err != nil {
			return nil, &ConfigError{Source: id, Err: err}
		}
		if err := file.Append(normalize(data)); err != nil {
			return nil, &ConfigError{Source: id, Err: err}
		}
		log.DebugContext(ctx, "loaded config source", "source", id, "bytes", len(data))
	}

	return &Config{
		file:    file,
		sources: append([]string(nil), ids...),
	}, nil
}

// Parse builds a Config from in-memory INI text, mostly for tests and for
// reading back an embedded config.
func Parse(data []byte) (*Config, error) {
	file, err := ini.LoadSources(iniOptions, normalize(data))
	if err != nil {
		return nil, &ConfigError{Source: "<data>", Err: err}
	}
	return &Config{file: file}, nil
}

// Sources returns the identifiers the Config was loaded from.
func (c *Config) Sources() []string {
	return append([]string(nil), c.sources...)
}

// Dump writes the resolved configuration in INI form. Multi-line values use
// indented continuation lines, so the output loads back unchanged here and
// in configparser.
func (c *Config) Dump(w io.Writer) error {
	if err := writeINI(w, c.file); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DumpFormat writes the resolved configuration in the given format.
func (c *Config) DumpFormat(w io.Writer, format Format) error {
	switch format {
	case FormatINI, "":
		return c.Dump(w)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(c.Map()); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		return nil
	case FormatYAML:
		out, err := yaml.Marshal(c.Map())
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		if _, err := w.Write(out); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q", format)
	}
}

// Map returns the configuration as section -> key -> value.
// The unnamed default section is omitted when empty.
func (c *Config) Map() map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, sec := range c.file.Sections() {
		if sec.Name() == ini.DefaultSection && len(sec.Keys()) == 0 {
			continue
		}
		values := make(map[string]string, len(sec.Keys()))
		for _, key := range sec.Keys() {
			values[key.Name()] = key.Value()
		}
		out[sec.Name()] = values
	}
	return out
}
