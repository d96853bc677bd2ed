// Package config holds the merge and profile job configurations and loads
// them from JSON or YAML files.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"dataprep/internal/storage"
)

// Default output file names of the profile stage.
const (
	DefaultNumericOutput     = "numeric_distribution_summary.csv"
	DefaultCategoricalOutput = "categorical_distribution_summary.csv"
)

// Merge configures the union (quotes) and optional join (vehicle) stages.
type Merge struct {
	Job     string         `json:"job" yaml:"job"`
	Quotes  QuotesConfig   `json:"quotes" yaml:"quotes"`
	Vehicle *VehicleConfig `json:"vehicle,omitempty" yaml:"vehicle,omitempty"`
	Runtime RuntimeConfig  `json:"runtime" yaml:"runtime"`
}

// QuotesConfig lists the row-aligned source tables to combine.
type QuotesConfig struct {
	Files  []string `json:"files" yaml:"files"`
	Format string   `json:"format,omitempty" yaml:"format,omitempty"`
	Output Output   `json:"output" yaml:"output"`
	Parser Options  `json:"parser,omitempty" yaml:"parser,omitempty"`
}

// VehicleConfig describes the reference table joined onto the combined table.
type VehicleConfig struct {
	File          string   `json:"file" yaml:"file"`
	Format        string   `json:"format,omitempty" yaml:"format,omitempty"`
	Output        Output   `json:"output" yaml:"output"`
	ABIQuoteCol   string   `json:"abi_quote_col" yaml:"abi_quote_col"`
	ABIVehicleCol string   `json:"abi_vehicle_col" yaml:"abi_vehicle_col"`
	Suffixes      []string `json:"suffixes,omitempty" yaml:"suffixes,omitempty"`
	Parser        Options  `json:"parser,omitempty" yaml:"parser,omitempty"`
}

// RuntimeConfig controls execution behavior.
type RuntimeConfig struct {
	// ReaderWorkers bounds how many sources load in parallel (0 = default).
	ReaderWorkers int `json:"reader_workers" yaml:"reader_workers"`
}

// Profile configures the distribution profiler.
type Profile struct {
	Input             string   `json:"input" yaml:"input"`
	Format            string   `json:"format,omitempty" yaml:"format,omitempty"`
	NumericOutput     Output   `json:"numeric_output" yaml:"numeric_output"`
	CategoricalOutput Output   `json:"categorical_output" yaml:"categorical_output"`
	Columns           []string `json:"columns,omitempty" yaml:"columns,omitempty"`
	Parser            Options  `json:"parser,omitempty" yaml:"parser,omitempty"`
}

// ApplyDefaults fills in the default summary file names.
func (p *Profile) ApplyDefaults() {
	if p.NumericOutput.IsZero() {
		p.NumericOutput = Output{Path: DefaultNumericOutput}
	}
	if p.CategoricalOutput.IsZero() {
		p.CategoricalOutput = Output{Path: DefaultCategoricalOutput}
	}
}

// Output is a result sink. In files it is either a bare path (a CSV file)
// or an object: {"kind": "sqlite", "dsn": "out.db", "table": "final"}.
type Output struct {
	Kind    string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	DSN     string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Table   string `json:"table,omitempty" yaml:"table,omitempty"`
	Replace bool   `json:"replace,omitempty" yaml:"replace,omitempty"`
}

type outputFields Output

// IsZero reports whether no target was configured.
func (o Output) IsZero() bool { return o == Output{} }

// UnmarshalJSON accepts a string path or an object.
func (o *Output) UnmarshalJSON(b []byte) error {
	if s := bytes.TrimSpace(b); len(s) > 0 && s[0] == '"' {
		var path string
		if err := json.Unmarshal(s, &path); err != nil {
			return err
		}
		*o = Output{Path: path}
		return nil
	}
	var f outputFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*o = Output(f)
	return nil
}

// UnmarshalYAML accepts a scalar path or a mapping.
func (o *Output) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*o = Output{Path: n.Value}
		return nil
	}
	var f outputFields
	if err := n.Decode(&f); err != nil {
		return err
	}
	*o = Output(f)
	return nil
}

// Storage converts the target into a storage config. Environment variables
// in DSN are expanded.
func (o Output) Storage() storage.Config {
	return storage.Config{
		Kind:    o.Kind,
		Path:    o.Path,
		DSN:     os.ExpandEnv(o.DSN),
		Table:   o.Table,
		Replace: o.Replace,
	}
}

func (o Output) isFile() bool {
	k := strings.ToLower(strings.TrimSpace(o.Kind))
	return k == "" || k == "csv"
}

// LoadMerge reads a merge configuration file.
func LoadMerge(path string) (Merge, error) {
	var cfg Merge
	if err := decodeFile(path, &cfg); err != nil {
		return Merge{}, err
	}
	return cfg, nil
}

// LoadProfile reads a profile configuration file and applies defaults.
func LoadProfile(path string) (Profile, error) {
	var cfg Profile
	if err := decodeFile(path, &cfg); err != nil {
		return Profile{}, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// IsConfigPath reports whether path names a supported configuration file.
func IsConfigPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// decodeFile unmarshals a JSON or YAML file (chosen by extension) into v.
// Unknown keys are ignored so configs can carry free-form
// notes next to the known fields.
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config %s: unsupported extension (want .json, .yaml or .yml)", path)
	}
	return nil
}
