// Package config loads and validates the optional .parity YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deixis/parity/internal/compare"
	"github.com/deixis/parity/internal/runner"
	"github.com/deixis/parity/internal/scenario"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up from the working directory
// upwards.
const FileName = ".parity"

// Default values.
const (
	DefaultTimeout   = runner.DefaultTimeout
	DefaultParallel  = 1
	DefaultReference = "bash"
)

// Config holds the parsed .parity configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version     int              `yaml:"version"`
	Reference   string           `yaml:"reference"` // trusted interpreter
	Candidate   string           `yaml:"candidate"` // interpreter under test
	Fixtures    string           `yaml:"fixtures"`  // fixture directory, relative to the config file
	RawTimeout  string           `yaml:"timeout"`   // e.g. "10s"
	RawParallel int              `yaml:"parallel"`
	Results     string           `yaml:"results"` // directory for saved runs; empty uses a temp dir
	Scenarios   []ScenarioConfig `yaml:"scenarios"`
}

// ScenarioConfig is one entry of the scenario table.
type ScenarioConfig struct {
	Name       string   `yaml:"name"`
	Script     string   `yaml:"script"`
	Missing    bool     `yaml:"missing"` // the script must not exist
	Fields     []string `yaml:"fields"`  // default: all, or status+stdout when missing
	Input      *string  `yaml:"input"`
	RawTimeout string   `yaml:"timeout"`
}

// Timeout returns the configured timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// checkTimeouts rejects zero durations such as "0s", which the schema
// pattern accepts.
func (c *Config) checkTimeouts() error {
	if c.RawTimeout != "" {
		if d, err := time.ParseDuration(c.RawTimeout); err != nil || d <= 0 {
			return fmt.Errorf("invalid timeout %q: must be a positive duration", c.RawTimeout)
		}
	}
	for _, sc := range c.Scenarios {
		if sc.RawTimeout == "" {
			continue
		}
		if d, err := time.ParseDuration(sc.RawTimeout); err != nil || d <= 0 {
			return fmt.Errorf("scenario %s: invalid timeout %q: must be a positive duration", sc.Name, sc.RawTimeout)
		}
	}
	return nil
}

// Parallel returns how many scenarios may run at once.
func (c *Config) Parallel() int {
	if c.RawParallel > 0 {
		return c.RawParallel
	}
	return DefaultParallel
}

// ReferencePath returns the configured reference interpreter or bash.
func (c *Config) ReferencePath() string {
	if c.Reference != "" {
		return c.Reference
	}
	return DefaultReference
}

// ScenarioTable converts the configured scenarios. Without any, the
// built-in table is returned.
func (c *Config) ScenarioTable() ([]scenario.Scenario, error) {
	if len(c.Scenarios) == 0 {
		return scenario.Default(), nil
	}

	out := make([]scenario.Scenario, 0, len(c.Scenarios))
	for _, sc := range c.Scenarios {
		s := scenario.New(sc.Name, sc.Script)
		if sc.Missing {
			s = scenario.Missing(sc.Name, sc.Script)
		}
		if len(sc.Fields) > 0 {
			fields, err := compare.ParseFieldSet(sc.Fields)
			if err != nil {
				return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
			s.Fields = fields
		}
		if sc.Input != nil {
			s.Input = []byte(*sc.Input)
		}
		if sc.RawTimeout != "" {
			d, err := time.ParseDuration(sc.RawTimeout)
			if err != nil || d <= 0 {
				return nil, fmt.Errorf("scenario %s: invalid timeout %q", sc.Name, sc.RawTimeout)
			}
			s.Timeout = d
		}
		out = append(out, s)
	}
	if err := scenario.Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadResult holds the parsed config and where it was found.
type LoadResult struct {
	Config *Config
	Path   string // the .parity file; empty when none was found
	Root   string // directory containing the file; falls back to workspace
}

// FixturesDir returns the absolute fixture directory.
func (r *LoadResult) FixturesDir() string {
	dir := r.Config.Fixtures
	if dir == "" {
		return r.Root
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(r.Root, dir)
}

// ResultsDir returns the directory for saved runs, or "" for a temp dir.
func (r *LoadResult) ResultsDir() string {
	dir := r.Config.Results
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(r.Root, dir)
}

// Load finds the .parity file by walking upward from workspace and reads
// it. If there is none, a default Config rooted at workspace is returned.
func Load(workspace string) (*LoadResult, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace: %w", err)
	}
	path, err := findConfig(abs)
	if err != nil {
		return &LoadResult{Config: &Config{}, Root: abs}, nil
	}
	return LoadFile(path)
}

// LoadFile reads, validates and decodes a specific config file.
func LoadFile(path string) (*LoadResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.checkTimeouts(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Path: abs, Root: filepath.Dir(abs)}, nil
}

var errNotFound = errors.New(FileName + " not found")

// findConfig walks upward from dir looking for FileName.
func findConfig(dir string) (string, error) {
	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errNotFound
		}
		dir = parent
	}
}
