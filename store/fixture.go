package store

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/eventgraph/errors"
)

//go:embed fixture.json
var defaultFixture []byte

// Fixture is the dataset a Store is seeded with at startup.
type Fixture struct {
	Users        []User        `json:"users" yaml:"users"`
	Events       []Event       `json:"events" yaml:"events"`
	Locations    []Location    `json:"locations" yaml:"locations"`
	Participants []Participant `json:"participants" yaml:"participants"`
}

// DefaultFixture returns the dataset embedded in the binary.
func DefaultFixture() (Fixture, error) {
	return DecodeFixture(defaultFixture, ".json")
}

// LoadFixture reads a fixture from a .json, .yaml or .yml file.
// An empty path returns the embedded default.
func LoadFixture(path string) (Fixture, error) {
	if path == "" {
		return DefaultFixture()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, errors.WrapInvalid(err, "Store", "LoadFixture", "read "+path)
	}
	return DecodeFixture(data, filepath.Ext(path))
}

// DecodeFixture parses data according to the file extension ext.
func DecodeFixture(data []byte, ext string) (Fixture, error) {
	var f Fixture
	var err error

	switch strings.ToLower(ext) {
	case ".json":
		err = json.Unmarshal(data, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		return Fixture{}, errors.WrapInvalid(
			fmt.Errorf("%w: unsupported fixture extension %q", errors.ErrInvalidData, ext),
			"Store", "DecodeFixture", "select decoder")
	}
	if err != nil {
		return Fixture{}, errors.WrapInvalid(err, "Store", "DecodeFixture", "decode fixture")
	}

	if err := f.validate(); err != nil {
		return Fixture{}, err
	}
	return f, nil
}

// validate rejects fixtures with empty or repeated ids within a collection.
func (f Fixture) validate() error {
	check := func(kind string, ids []string) error {
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if id == "" {
				return errors.WrapInvalid(fmt.Errorf("%w: %s with empty id", errors.ErrInvalidData, kind),
					"Store", "DecodeFixture", "validate ids")
			}
			if _, dup := seen[id]; dup {
				return errors.WrapInvalid(fmt.Errorf("%w: duplicate %s id %q", errors.ErrInvalidData, kind, id),
					"Store", "DecodeFixture", "validate ids")
			}
			seen[id] = struct{}{}
		}
		return nil
	}

	if err := check(KindUser, ids(f.Users, func(u User) string { return u.ID })); err != nil {
		return err
	}
	if err := check(KindEvent, ids(f.Events, func(e Event) string { return e.ID })); err != nil {
		return err
	}
	if err := check(KindLocation, ids(f.Locations, func(l Location) string { return l.ID })); err != nil {
		return err
	}
	return check(KindParticipant, ids(f.Participants, func(p Participant) string { return p.ID }))
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}
