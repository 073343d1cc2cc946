package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/c360/eventgraph/errors"
)

// Config selects the seed data and reference checking for a Store.
type Config struct {
	// FixturePath points at a .json/.yaml/.yml dataset; empty uses the embedded one.
	FixturePath string `json:"fixture_path,omitempty" yaml:"fixture_path,omitempty" schema:"type:string,description:Seed dataset file"`

	// StrictReferences rejects writes whose foreign keys do not resolve.
	StrictReferences bool `json:"strict_references" yaml:"strict_references" schema:"type:bool,description:Reject dangling foreign keys on write,default:false"`
}

// Validate checks the fixture path has a supported extension.
func (c *Config) Validate() error {
	if c.FixturePath == "" {
		return nil
	}
	switch strings.ToLower(filepath.Ext(c.FixturePath)) {
	case ".json", ".yaml", ".yml":
		return nil
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: fixture_path must end in .json, .yaml or .yml", errors.ErrInvalidConfig),
			"Config", "Validate", "fixture_path validation")
	}
}

// Open loads the configured fixture and returns a seeded Store.
func Open(cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fixture, err := LoadFixture(cfg.FixturePath)
	if err != nil {
		return nil, err
	}

	s := New(append([]Option{WithStrictReferences(cfg.StrictReferences)}, opts...)...)
	s.Seed(fixture)
	return s, nil
}
