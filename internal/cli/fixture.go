package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arbordata/arbor/internal/writer"
)

// Fixture is a YAML aggregate instance for plan/exec:
//
//	entity: order
//	prior: auto        # auto | new | existing
//	aggregate:
//	  customer: "ada"
//	  items:
//	    - sku: "a-1"
type Fixture struct {
	Entity    string         `yaml:"entity"`
	Prior     string         `yaml:"prior"`
	Aggregate map[string]any `yaml:"aggregate"`
}

// LoadFixture reads and decodes one aggregate fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBadFixture, Message: fmt.Sprintf("reading fixture: %v", err)}
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &LoadError{Code: ErrCodeBadFixture, Message: fmt.Sprintf("decoding fixture: %v", err)}
	}
	if f.Entity == "" {
		return nil, &LoadError{Code: ErrCodeBadFixture, Message: "fixture declares no entity"}
	}
	if f.Aggregate == nil {
		return nil, &LoadError{Code: ErrCodeBadFixture, Message: "fixture declares no aggregate"}
	}
	return &f, nil
}

// PriorState maps the fixture's prior field onto the writer's enum.
func (f *Fixture) PriorState() (writer.PriorState, error) {
	switch f.Prior {
	case "", "auto":
		return writer.PriorAuto, nil
	case "new":
		return writer.PriorNew, nil
	case "existing":
		return writer.PriorExisting, nil
	default:
		return writer.PriorAuto, &LoadError{Code: ErrCodeBadFixture,
			Message: fmt.Sprintf("unknown prior %q (want auto, new, or existing)", f.Prior)}
	}
}
