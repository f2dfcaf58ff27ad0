// Package config holds the run configuration of an analysis: replay mode,
// scorer weights and worker count. Values come from Default, then an
// optional YAML or TOML file, then command-line flags.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/seqscore/internal/corpus"
	"github.com/roach88/seqscore/internal/engine"
	"github.com/roach88/seqscore/internal/score"
)

// Config is the run configuration.
type Config struct {
	Mode       engine.Mode   `yaml:"mode" toml:"mode"`
	Workers    int           `yaml:"workers" toml:"workers"`
	Weights    score.Weights `yaml:"weights" toml:"weights"`
	Extensions []string      `yaml:"extensions" toml:"extensions"`
	Rewrite    bool          `yaml:"rewrite" toml:"rewrite"`
	DB         string        `yaml:"db" toml:"db"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Mode:       engine.ModeStrict,
		Workers:    runtime.NumCPU(),
		Weights:    score.DefaultWeights(),
		Extensions: append([]string(nil), corpus.DefaultExtensions...),
		Rewrite:    true,
	}
}

// Load reads a configuration file on top of Default. The format is chosen
// by extension: .yaml/.yml or .toml. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
		}
	case ".toml":
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return cfg, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
		}
	default:
		return cfg, fmt.Errorf("%s: unsupported config format (want .yaml, .yml or .toml)", path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, err := engine.ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	return nil
}
