// Package config loads the optional --config TOML file that supplies
// default values for the shared CLI flags. It is grounded on the
// teacher's internal/parser/toml package, which reads a TOML document
// via os.Open + toml.NewDecoder(r).Decode into a typed struct; this
// generalizes that same pattern from a database schema description to
// a flag-default document.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// File is the shape of one --config document. Every field mirrors a
// shared CLI flag (spec §6); a zero value means "not set in the file"
// except DisableFKChecks, which distinguishes unset from an explicit
// false via a pointer, since its flag default varies by subcommand.
type File struct {
	Provider           string   `toml:"provider"`
	Source             string   `toml:"source"`
	SourceEnv          string   `toml:"source_env"`
	Destination        string   `toml:"destination"`
	DestinationEnv     string   `toml:"destination_env"`
	Tables             []string `toml:"tables"`
	Exclude            []string `toml:"exclude"`
	BatchRows          int      `toml:"batch_rows"`
	ConsistentSnapshot bool     `toml:"consistent_snapshot"`
	DisableFKChecks    *bool    `toml:"disable_fk_checks"`
	Gzip               bool     `toml:"gzip"`
	JSONLogs           bool     `toml:"json_logs"`
	Debug              bool     `toml:"debug"`
}

// Load opens path and parses it as a config File.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a config File from r.
func Parse(r io.Reader) (*File, error) {
	var cfg File
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}
