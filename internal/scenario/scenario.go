// Package scenario loads engagement descriptions from YAML or JSON files and turns them
// into simulator input.
package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/OCAP2/combatsim/pkg/core"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed scenario.schema.json
var schemaJSON string

const schemaURL = "scenario.schema.json"

var (
	ErrUnknownUnitType = errors.New("unknown unit type")
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrInvalidOrder    = errors.New("invalid order")
	ErrInvalid         = errors.New("scenario does not match schema")
)

// Scenario is one engagement as written in a scenario file.
type Scenario struct {
	Name         string       `yaml:"name" json:"name"`
	Tag          string       `yaml:"tag,omitempty" json:"tag,omitempty"`
	MaxFrames    int          `yaml:"maxFrames,omitempty" json:"maxFrames,omitempty"`
	CooldownRule string       `yaml:"cooldownRule,omitempty" json:"cooldownRule,omitempty"`
	Region       core.Region  `yaml:"region" json:"region"`
	Players      []PlayerSpec `yaml:"players" json:"players"`
	Units        []UnitSpec   `yaml:"units" json:"units"`

	// Source is the file the scenario was read from, empty for in-memory scenarios.
	Source string `yaml:"-" json:"-"`
}

type PlayerSpec struct {
	ID       int            `yaml:"id" json:"id"`
	Name     string         `yaml:"name,omitempty" json:"name,omitempty"`
	Upgrades map[string]int `yaml:"upgrades,omitempty" json:"upgrades,omitempty"`
}

type UnitSpec struct {
	ID       int           `yaml:"id" json:"id"`
	Player   int           `yaml:"player" json:"player"`
	Type     string        `yaml:"type" json:"type"`
	Position core.Position `yaml:"position" json:"position"`
	Facing   float64       `yaml:"facing,omitempty" json:"facing,omitempty"`
	// HP and Shields default to the type's maxima.
	HP      *int       `yaml:"hp,omitempty" json:"hp,omitempty"`
	Shields *int       `yaml:"shields,omitempty" json:"shields,omitempty"`
	Order   *OrderSpec `yaml:"order,omitempty" json:"order,omitempty"`
}

// OrderSpec is a standing order. Target is used by attack, follow and repair; To by move,
// attackMove and patrol; From by patrol only.
type OrderSpec struct {
	Type   string         `yaml:"type" json:"type"`
	Target *int           `yaml:"target,omitempty" json:"target,omitempty"`
	To     *core.Position `yaml:"to,omitempty" json:"to,omitempty"`
	From   *core.Position `yaml:"from,omitempty" json:"from,omitempty"`
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	s, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Source = path
	return s, nil
}

// Parse validates YAML or JSON scenario bytes against the schema and decodes them.
func Parse(raw []byte) (*Scenario, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	// the validator wants encoding/json shaped values
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize scenario: %w", err)
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(asJSON))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("failed to normalize scenario: %w", err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile scenario schema: %w", err)
	}
	if err := sch.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	return &s, nil
}

// Engagement returns the storage header for the scenario. Zero MaxFrames and an empty
// CooldownRule are left for the runner to fill from configuration.
func (s *Scenario) Engagement() core.Engagement {
	players := make([]core.Player, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, core.Player{ID: p.ID, Name: p.Name, Upgrades: p.Upgrades})
	}
	return core.Engagement{
		Name:         s.Name,
		Source:       s.Source,
		Tag:          s.Tag,
		Region:       s.Region,
		CooldownRule: s.CooldownRule,
		MaxFrames:    s.MaxFrames,
		Players:      players,
	}
}
